package toolkit

import "math"

// linearModel 最小二乘线性回归
type linearModel struct {
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
}

// fitLinear 正规方程求解最小二乘，奇异时退化为均值预测
func fitLinear(X [][]float64, y []float64) *linearModel {
	n := len(X)
	p := len(X[0])

	// 设计矩阵含截距项，构造 (p+1)x(p+1) 正规方程组
	dim := p + 1
	a := make([][]float64, dim)
	b := make([]float64, dim)
	for i := range a {
		a[i] = make([]float64, dim)
	}
	for r := 0; r < n; r++ {
		row := make([]float64, dim)
		row[0] = 1
		copy(row[1:], X[r])
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				a[i][j] += row[i] * row[j]
			}
			b[i] += row[i] * y[r]
		}
	}

	coef, ok := solveGaussian(a, b)
	if !ok {
		m := meanOf(y)
		return &linearModel{Intercept: m, Weights: make([]float64, p)}
	}
	return &linearModel{Intercept: coef[0], Weights: coef[1:]}
}

func (m *linearModel) predict(x []float64) float64 {
	out := m.Intercept
	for i, w := range m.Weights {
		out += w * x[i]
	}
	return out
}

// solveGaussian 带部分主元的高斯消元
func solveGaussian(a [][]float64, b []float64) ([]float64, bool) {
	n := len(b)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, false
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			f := a[r][col] / a[col][col]
			for c := col; c < n; c++ {
				a[r][c] -= f * a[col][c]
			}
			b[r] -= f * b[col]
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := b[i]
		for j := i + 1; j < n; j++ {
			sum -= a[i][j] * x[j]
		}
		x[i] = sum / a[i][i]
	}
	return x, true
}

// logisticModel 二分类逻辑回归，特征经标准化
type logisticModel struct {
	Intercept float64   `json:"intercept"`
	Weights   []float64 `json:"weights"`
	Means     []float64 `json:"means"`
	Stds      []float64 `json:"stds"`
}

// fitLogistic 梯度下降训练，y 取值 0/1
func fitLogistic(X [][]float64, y []float64) *logisticModel {
	n := len(X)
	p := len(X[0])

	means := make([]float64, p)
	stds := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			means[j] += X[i][j]
		}
		means[j] /= float64(n)
		for i := 0; i < n; i++ {
			d := X[i][j] - means[j]
			stds[j] += d * d
		}
		stds[j] = math.Sqrt(stds[j] / float64(n))
		if stds[j] == 0 {
			stds[j] = 1
		}
	}

	scaled := make([][]float64, n)
	for i := range X {
		scaled[i] = make([]float64, p)
		for j := range X[i] {
			scaled[i][j] = (X[i][j] - means[j]) / stds[j]
		}
	}

	m := &logisticModel{Weights: make([]float64, p), Means: means, Stds: stds}
	const (
		iterations = 500
		lr         = 0.1
	)
	for iter := 0; iter < iterations; iter++ {
		gradB := 0.0
		gradW := make([]float64, p)
		for i := 0; i < n; i++ {
			z := m.Intercept
			for j := 0; j < p; j++ {
				z += m.Weights[j] * scaled[i][j]
			}
			err := sigmoid(z) - y[i]
			gradB += err
			for j := 0; j < p; j++ {
				gradW[j] += err * scaled[i][j]
			}
		}
		m.Intercept -= lr * gradB / float64(n)
		for j := 0; j < p; j++ {
			m.Weights[j] -= lr * gradW[j] / float64(n)
		}
	}
	return m
}

// predictProba 正类概率
func (m *logisticModel) predictProba(x []float64) float64 {
	z := m.Intercept
	for j, w := range m.Weights {
		z += w * (x[j] - m.Means[j]) / m.Stds[j]
	}
	return sigmoid(z)
}

func (m *logisticModel) predict(x []float64) float64 {
	if m.predictProba(x) >= 0.5 {
		return 1
	}
	return 0
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
