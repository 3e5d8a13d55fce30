package toolkit

import (
	"math"
	"math/rand"
	"sort"
)

const (
	treeMaxDepth     = 8
	treeMinSplit     = 2
	forestTreeCount  = 50
	forestSampleFrac = 1.0
)

// treeNode CART 树节点，叶子节点 Feature 为 -1
type treeNode struct {
	Feature int       `json:"feature"`
	Thresh  float64   `json:"thresh,omitempty"`
	Value   float64   `json:"value,omitempty"` // 叶子预测值（回归为均值，分类为类别索引）
	Left    *treeNode `json:"left,omitempty"`
	Right   *treeNode `json:"right,omitempty"`
}

// decisionTree CART 决策树，classify 决定不纯度函数与叶子取值
type decisionTree struct {
	Root     *treeNode `json:"root"`
	Classify bool      `json:"classify"`
	NClasses int       `json:"n_classes,omitempty"`
}

// fitTree 训练决策树。分类时 y 为类别索引，nClasses 为类别数。
// importances 非空时按不纯度减少量累加特征重要性。
func fitTree(X [][]float64, y []float64, classify bool, nClasses int, rng *rand.Rand, featureFrac float64, importances []float64) *decisionTree {
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t := &decisionTree{Classify: classify, NClasses: nClasses}
	t.Root = buildNode(X, y, idx, 0, classify, nClasses, rng, featureFrac, importances)
	return t
}

func buildNode(X [][]float64, y []float64, idx []int, depth int, classify bool, nClasses int, rng *rand.Rand, featureFrac float64, importances []float64) *treeNode {
	leaf := &treeNode{Feature: -1, Value: leafValue(y, idx, classify, nClasses)}
	if depth >= treeMaxDepth || len(idx) < treeMinSplit || pure(y, idx) {
		return leaf
	}

	p := len(X[0])
	features := candidateFeatures(p, rng, featureFrac)

	parentImp := impurity(y, idx, classify, nClasses)
	bestGain := 0.0
	bestFeature, bestThresh := -1, 0.0
	var bestLeft, bestRight []int

	for _, f := range features {
		sorted := make([]int, len(idx))
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return X[sorted[a]][f] < X[sorted[b]][f] })

		for split := 1; split < len(sorted); split++ {
			if X[sorted[split-1]][f] == X[sorted[split]][f] {
				continue
			}
			left, right := sorted[:split], sorted[split:]
			gain := parentImp -
				(float64(len(left))*impurity(y, left, classify, nClasses)+
					float64(len(right))*impurity(y, right, classify, nClasses))/float64(len(idx))
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThresh = (X[sorted[split-1]][f] + X[sorted[split]][f]) / 2
				bestLeft = append([]int(nil), left...)
				bestRight = append([]int(nil), right...)
			}
		}
	}
	if bestFeature < 0 {
		return leaf
	}
	if importances != nil {
		importances[bestFeature] += bestGain * float64(len(idx))
	}

	return &treeNode{
		Feature: bestFeature,
		Thresh:  bestThresh,
		Left:    buildNode(X, y, bestLeft, depth+1, classify, nClasses, rng, featureFrac, importances),
		Right:   buildNode(X, y, bestRight, depth+1, classify, nClasses, rng, featureFrac, importances),
	}
}

func candidateFeatures(p int, rng *rand.Rand, frac float64) []int {
	all := make([]int, p)
	for i := range all {
		all[i] = i
	}
	if rng == nil || frac >= 1 {
		return all
	}
	n := int(math.Max(1, math.Round(frac*float64(p))))
	rng.Shuffle(p, func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:n]
}

func leafValue(y []float64, idx []int, classify bool, nClasses int) float64 {
	if !classify {
		sum := 0.0
		for _, i := range idx {
			sum += y[i]
		}
		return sum / float64(len(idx))
	}
	counts := make([]int, nClasses)
	for _, i := range idx {
		counts[int(y[i])]++
	}
	best := 0
	for c, n := range counts {
		if n > counts[best] {
			best = c
		}
	}
	return float64(best)
}

func pure(y []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if y[i] != y[idx[0]] {
			return false
		}
	}
	return true
}

// impurity 分类用基尼系数，回归用方差
func impurity(y []float64, idx []int, classify bool, nClasses int) float64 {
	if len(idx) == 0 {
		return 0
	}
	if classify {
		counts := make([]int, nClasses)
		for _, i := range idx {
			counts[int(y[i])]++
		}
		gini := 1.0
		for _, n := range counts {
			p := float64(n) / float64(len(idx))
			gini -= p * p
		}
		return gini
	}
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	m := sum / float64(len(idx))
	v := 0.0
	for _, i := range idx {
		d := y[i] - m
		v += d * d
	}
	return v / float64(len(idx))
}

func (t *decisionTree) predict(x []float64) float64 {
	node := t.Root
	for node.Feature >= 0 {
		if x[node.Feature] <= node.Thresh {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// randomForest Bagging 随机森林
type randomForest struct {
	Trees       []*decisionTree `json:"trees"`
	Classify    bool            `json:"classify"`
	NClasses    int             `json:"n_classes,omitempty"`
	Importances []float64       `json:"importances"`
}

// fitForest 有放回抽样训练多棵树，特征子采样 sqrt(p)
func fitForest(X [][]float64, y []float64, classify bool, nClasses int, seed int64) *randomForest {
	rng := rand.New(rand.NewSource(seed))
	n := len(X)
	p := len(X[0])
	featureFrac := math.Sqrt(float64(p)) / float64(p)

	forest := &randomForest{
		Classify:    classify,
		NClasses:    nClasses,
		Importances: make([]float64, p),
	}
	for t := 0; t < forestTreeCount; t++ {
		sampleSize := int(float64(n) * forestSampleFrac)
		bX := make([][]float64, sampleSize)
		bY := make([]float64, sampleSize)
		for i := 0; i < sampleSize; i++ {
			j := rng.Intn(n)
			bX[i] = X[j]
			bY[i] = y[j]
		}
		forest.Trees = append(forest.Trees, fitTree(bX, bY, classify, nClasses, rng, featureFrac, forest.Importances))
	}

	// 归一化重要性
	total := 0.0
	for _, v := range forest.Importances {
		total += v
	}
	if total > 0 {
		for i := range forest.Importances {
			forest.Importances[i] /= total
		}
	}
	return forest
}

func (f *randomForest) predict(x []float64) float64 {
	if f.Classify {
		votes := make([]int, f.NClasses)
		for _, t := range f.Trees {
			votes[int(t.predict(x))]++
		}
		best := 0
		for c, n := range votes {
			if n > votes[best] {
				best = c
			}
		}
		return float64(best)
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.Trees))
}
