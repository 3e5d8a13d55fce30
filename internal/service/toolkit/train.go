package toolkit

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/sello-bot/luna-data-science-chatbot/internal/service/tabular"
)

const (
	// 训练与抽样的固定随机种子，保证同数据同参数结果可复现
	trainSeed = 42

	defaultTestSize  = 0.2
	defaultClusters  = 3
	minTrainingRows  = 10
	classifyDistinct = 10 // 目标列取值少于该数时按分类处理
)

// ModelTypes 支持的模型类型
var ModelTypes = []string{"linear_regression", "logistic_regression", "decision_tree", "random_forest", "kmeans"}

// TrainRequest 训练请求参数
type TrainRequest struct {
	ModelType string   `json:"model_type"`
	Target    string   `json:"target,omitempty"`
	Features  []string `json:"features,omitempty"`
	TestSize  float64  `json:"test_size,omitempty"`
	Clusters  int      `json:"clusters,omitempty"`
}

// FeatureImportance 单个特征的重要性
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// ModelHandle 训练完成的模型句柄
// Importances 按重要性降序排列。
type ModelHandle struct {
	ID           string              `json:"id"`
	ModelType    string              `json:"model_type"`
	Task         string              `json:"task"` // regression, classification, clustering
	Target       string              `json:"target,omitempty"`
	Features     []string            `json:"features"`
	Classes      []string            `json:"classes,omitempty"`
	Metrics      map[string]float64  `json:"metrics"`
	Importances  []FeatureImportance `json:"importances,omitempty"`
	ClusterSizes []int               `json:"cluster_sizes,omitempty"`
	DroppedRows  int                 `json:"dropped_rows"`

	params  interface{}
	predict func([]float64) float64
}

// MarshalParams 序列化模型参数，用于持久化
func (h *ModelHandle) MarshalParams() ([]byte, error) {
	return json.Marshal(h.params)
}

// Train 按请求训练模型并在保留测试集上评估
func Train(ds *tabular.Dataset, req *TrainRequest) (*ModelHandle, error) {
	switch req.ModelType {
	case "linear_regression", "logistic_regression", "decision_tree", "random_forest":
		return trainSupervised(ds, req)
	case "kmeans":
		return trainKMeans(ds, req)
	default:
		return nil, fmt.Errorf("unknown model type: %s (supported: %s)", req.ModelType, strings.Join(ModelTypes, ", "))
	}
}

func trainSupervised(ds *tabular.Dataset, req *TrainRequest) (*ModelHandle, error) {
	if req.Target == "" {
		return nil, &MissingTargetError{ModelType: req.ModelType}
	}
	targetCol, err := ds.Column(req.Target)
	if err != nil {
		return nil, err
	}

	features, err := resolveFeatures(ds, req.Features, req.Target)
	if err != nil {
		return nil, err
	}

	classify, classes, err := detectTask(ds, targetCol, req.ModelType)
	if err != nil {
		return nil, err
	}

	X, y, dropped, err := assembleMatrix(ds, features, targetCol, classify, classes)
	if err != nil {
		return nil, err
	}
	if len(X) < minTrainingRows {
		return nil, &tabular.InsufficientDataError{
			Op:     req.ModelType,
			Reason: fmt.Sprintf("only %d usable rows after dropping missing values, need at least %d", len(X), minTrainingRows),
		}
	}

	trainX, trainY, testX, testY := split(X, y, req.TestSize)

	handle := &ModelHandle{
		ID:          uuid.New().String(),
		ModelType:   req.ModelType,
		Target:      req.Target,
		Features:    features,
		Classes:     classes,
		DroppedRows: dropped,
	}
	if classify {
		handle.Task = "classification"
	} else {
		handle.Task = "regression"
	}

	switch req.ModelType {
	case "linear_regression":
		m := fitLinear(trainX, trainY)
		handle.params = m
		handle.predict = m.predict
	case "logistic_regression":
		m := fitLogistic(trainX, trainY)
		handle.params = m
		handle.predict = m.predict
	case "decision_tree":
		gains := make([]float64, len(features))
		m := fitTree(trainX, trainY, classify, len(classes), nil, 1, gains)
		handle.params = m
		handle.predict = m.predict
		handle.Importances = rankImportances(features, gains)
	case "random_forest":
		m := fitForest(trainX, trainY, classify, len(classes), trainSeed)
		handle.params = m
		handle.predict = m.predict
		handle.Importances = rankImportances(features, m.Importances)
	}

	if classify {
		handle.Metrics = classificationMetrics(handle.predict, testX, testY, len(classes))
	} else {
		handle.Metrics = regressionMetrics(handle.predict, testX, testY)
	}
	return handle, nil
}

func trainKMeans(ds *tabular.Dataset, req *TrainRequest) (*ModelHandle, error) {
	features, err := resolveFeatures(ds, req.Features, "")
	if err != nil {
		return nil, err
	}

	X, _, dropped, err := assembleMatrix(ds, features, nil, false, nil)
	if err != nil {
		return nil, err
	}
	k := req.Clusters
	if k <= 0 {
		k = defaultClusters
	}
	if len(X) < k {
		return nil, &tabular.InsufficientDataError{
			Op:     "kmeans",
			Reason: fmt.Sprintf("only %d usable rows for %d clusters", len(X), k),
		}
	}

	m := fitKMeans(X, k, trainSeed)
	return &ModelHandle{
		ID:           uuid.New().String(),
		ModelType:    "kmeans",
		Task:         "clustering",
		Features:     features,
		Metrics:      map[string]float64{"inertia": round3(m.Inertia), "clusters": float64(len(m.Centroids))},
		ClusterSizes: m.Sizes,
		DroppedRows:  dropped,
		params:       m,
		predict:      m.predict,
	}, nil
}

// resolveFeatures 校验特征列，缺省时取目标列以外的全部数值列
func resolveFeatures(ds *tabular.Dataset, requested []string, target string) ([]string, error) {
	if len(requested) == 0 {
		var features []string
		for _, name := range ds.NumericColumns() {
			if name != target {
				features = append(features, name)
			}
		}
		if len(features) == 0 {
			return nil, &tabular.InsufficientDataError{Op: "train", Reason: "no numeric feature columns available"}
		}
		return features, nil
	}
	for _, name := range requested {
		if _, _, err := ds.NumericValues(name); err != nil {
			return nil, err
		}
		if name == target {
			return nil, &tabular.InvalidTransformError{Op: "train", Reason: "target column cannot be used as a feature"}
		}
	}
	return requested, nil
}

// detectTask 判定分类或回归，返回分类时的类别集合
// 非数值目标列或取值较少的数值列按分类处理
func detectTask(ds *tabular.Dataset, target *tabular.Column, modelType string) (bool, []string, error) {
	distinct := make(map[string]bool)
	for i := range target.Cells {
		if !target.Cells[i].Missing {
			distinct[target.Cells[i].Raw] = true
		}
	}
	numeric := target.Kind == tabular.KindNumeric
	classify := !numeric || len(distinct) < classifyDistinct

	switch modelType {
	case "linear_regression":
		if !numeric {
			return false, nil, &tabular.InvalidTransformError{Op: modelType, Reason: "target column " + target.Name + " must be numeric"}
		}
		return false, nil, nil
	case "logistic_regression":
		if len(distinct) != 2 {
			return false, nil, &tabular.InvalidTransformError{
				Op:     modelType,
				Reason: fmt.Sprintf("target column %s has %d distinct values, logistic regression requires exactly 2", target.Name, len(distinct)),
			}
		}
		classify = true
	}
	if !classify {
		return false, nil, nil
	}

	classes := make([]string, 0, len(distinct))
	for v := range distinct {
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return true, classes, nil
}

// assembleMatrix 组装特征矩阵，丢弃任一所需列缺失的行并统计丢弃数
// target 为 nil 时只组装特征（聚类）
func assembleMatrix(ds *tabular.Dataset, features []string, target *tabular.Column, classify bool, classes []string) ([][]float64, []float64, int, error) {
	classIndex := make(map[string]int, len(classes))
	for i, c := range classes {
		classIndex[c] = i
	}

	cols := make([]*tabular.Column, len(features))
	for i, name := range features {
		c, err := ds.Column(name)
		if err != nil {
			return nil, nil, 0, err
		}
		cols[i] = c
	}

	var X [][]float64
	var y []float64
	dropped := 0
	for row := 0; row < ds.RowCount(); row++ {
		ok := true
		for _, c := range cols {
			if c.Cells[row].Missing {
				ok = false
				break
			}
		}
		if ok && target != nil && target.Cells[row].Missing {
			ok = false
		}
		if !ok {
			dropped++
			continue
		}

		x := make([]float64, len(cols))
		for i, c := range cols {
			x[i] = c.Cells[row].Num
		}
		X = append(X, x)
		if target != nil {
			if classify {
				y = append(y, float64(classIndex[target.Cells[row].Raw]))
			} else {
				y = append(y, target.Cells[row].Num)
			}
		}
	}
	if len(X) == 0 {
		return nil, nil, 0, &tabular.InsufficientDataError{Op: "train", Reason: "no rows without missing values in the selected columns"}
	}
	return X, y, dropped, nil
}

// rankImportances 归一化特征重要性并按降序排列，同分按特征名排序
func rankImportances(features []string, raw []float64) []FeatureImportance {
	total := 0.0
	for _, v := range raw {
		total += v
	}
	out := make([]FeatureImportance, len(features))
	for i, f := range features {
		v := raw[i]
		if total > 0 {
			v /= total
		}
		out[i] = FeatureImportance{Feature: f, Importance: round3(v)}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Importance != out[b].Importance {
			return out[a].Importance > out[b].Importance
		}
		return out[a].Feature < out[b].Feature
	})
	return out
}

// split 固定种子打乱后切分训练集与测试集，测试集大小向下取整
func split(X [][]float64, y []float64, testSize float64) ([][]float64, []float64, [][]float64, []float64) {
	if testSize <= 0 || testSize >= 1 {
		testSize = defaultTestSize
	}
	n := len(X)
	perm := rand.New(rand.NewSource(trainSeed)).Perm(n)

	testN := int(math.Floor(float64(n) * testSize))
	if testN < 1 {
		testN = 1
	}
	if testN >= n {
		testN = n - 1
	}

	var trainX, testX [][]float64
	var trainY, testY []float64
	for i, j := range perm {
		if i < testN {
			testX = append(testX, X[j])
			testY = append(testY, y[j])
		} else {
			trainX = append(trainX, X[j])
			trainY = append(trainY, y[j])
		}
	}
	return trainX, trainY, testX, testY
}

func regressionMetrics(predict func([]float64) float64, X [][]float64, y []float64) map[string]float64 {
	var sse, sae float64
	m := meanOf(y)
	var sst float64
	for i, x := range X {
		p := predict(x)
		d := p - y[i]
		sse += d * d
		sae += math.Abs(d)
		dm := y[i] - m
		sst += dm * dm
	}
	n := float64(len(X))
	r2 := 0.0
	if sst > 0 {
		r2 = 1 - sse/sst
	}
	return map[string]float64{
		"r2":   round3(r2),
		"rmse": round3(math.Sqrt(sse / n)),
		"mae":  round3(sae / n),
	}
}

func classificationMetrics(predict func([]float64) float64, X [][]float64, y []float64, nClasses int) map[string]float64 {
	correct := 0
	tp := make([]float64, nClasses)
	fp := make([]float64, nClasses)
	fn := make([]float64, nClasses)
	for i, x := range X {
		p := int(predict(x))
		actual := int(y[i])
		if p == actual {
			correct++
			tp[p]++
		} else {
			fp[p]++
			fn[actual]++
		}
	}

	// 宏平均精确率/召回率/F1
	var precision, recall float64
	for c := 0; c < nClasses; c++ {
		if tp[c]+fp[c] > 0 {
			precision += tp[c] / (tp[c] + fp[c])
		}
		if tp[c]+fn[c] > 0 {
			recall += tp[c] / (tp[c] + fn[c])
		}
	}
	precision /= float64(nClasses)
	recall /= float64(nClasses)
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return map[string]float64{
		"accuracy":  round3(float64(correct) / float64(len(X))),
		"precision": round3(precision),
		"recall":    round3(recall),
		"f1":        round3(f1),
	}
}

// Summarize 生成训练结果的文字摘要
func (h *ModelHandle) Summarize() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Trained %s (%s) on features [%s]", h.ModelType, h.Task, strings.Join(h.Features, ", "))
	if h.Target != "" {
		fmt.Fprintf(&sb, " with target %s", h.Target)
	}
	sb.WriteString(".")
	if h.DroppedRows > 0 {
		fmt.Fprintf(&sb, " Dropped %d rows with missing values.", h.DroppedRows)
	}

	keys := make([]string, 0, len(h.Metrics))
	for k := range h.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%.3f", k, h.Metrics[k]))
	}
	fmt.Fprintf(&sb, " Metrics: %s.", strings.Join(parts, " "))

	if len(h.Importances) > 0 {
		fmt.Fprintf(&sb, " Most important feature: %s (%.3f).", h.Importances[0].Feature, h.Importances[0].Importance)
	}
	if len(h.ClusterSizes) > 0 {
		sizes := make([]string, len(h.ClusterSizes))
		for i, s := range h.ClusterSizes {
			sizes[i] = fmt.Sprintf("%d", s)
		}
		fmt.Fprintf(&sb, " Cluster sizes: [%s].", strings.Join(sizes, ", "))
	}
	fmt.Fprintf(&sb, " Model ID: %s.", h.ID)
	return sb.String()
}
