package toolkit

import (
	"math"
	"math/rand"
)

const kmeansMaxIterations = 100

// kmeansModel Lloyd 算法 K 均值聚类
type kmeansModel struct {
	Centroids [][]float64 `json:"centroids"`
	Inertia   float64     `json:"inertia"`
	Sizes     []int       `json:"sizes"`
}

// fitKMeans 训练 K 均值，seed 固定时质心初始化可复现
func fitKMeans(X [][]float64, k int, seed int64) *kmeansModel {
	rng := rand.New(rand.NewSource(seed))
	n := len(X)
	if k > n {
		k = n
	}

	// 随机选 k 个不同样本作为初始质心
	perm := rng.Perm(n)
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), X[perm[i]]...)
	}

	assign := make([]int, n)
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, x := range X {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := sqDist(x, centroid)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// 重算质心，空簇保持原位
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, len(X[0]))
		}
		for i, x := range X {
			c := assign[i]
			counts[c]++
			for j, v := range x {
				sums[c][j] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for j := range sums[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	m := &kmeansModel{Centroids: centroids, Sizes: make([]int, k)}
	for i, x := range X {
		m.Sizes[assign[i]]++
		m.Inertia += sqDist(x, centroids[assign[i]])
	}
	return m
}

// predict 返回最近质心的索引
func (m *kmeansModel) predict(x []float64) float64 {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range m.Centroids {
		d := sqDist(x, centroid)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return float64(best)
}

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
