// Package toolkit 实现数据分析操作：统计分析、可视化、模型训练
package toolkit

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sello-bot/luna-data-science-chatbot/internal/service/tabular"
)

// 相关性强弱判定阈值
const strongCorrelationThreshold = 0.7

// Result 操作执行结果
// Summary 为面向用户的文字摘要，Data 为结构化明细
type Result struct {
	Summary string      `json:"summary"`
	Data    interface{} `json:"data,omitempty"`
}

// AnalysisTypes 支持的分析类型
var AnalysisTypes = []string{"summary", "missing_values", "statistics", "correlations"}

// Analyze 执行指定类型的分析
func Analyze(ds *tabular.Dataset, analysisType string, columns []string) (*Result, error) {
	switch analysisType {
	case "summary", "":
		return analyzeSummary(ds), nil
	case "missing_values":
		return analyzeMissing(ds), nil
	case "statistics", "describe":
		return analyzeStatistics(ds, columns)
	case "correlations":
		return analyzeCorrelations(ds)
	default:
		return nil, fmt.Errorf("unknown analysis type: %s (supported: %s)", analysisType, strings.Join(AnalysisTypes, ", "))
	}
}

// summaryData 数据集概览
type summaryData struct {
	Rows        int                              `json:"rows"`
	Columns     int                              `json:"columns"`
	ColumnKinds map[string]tabular.ColumnKind    `json:"column_kinds"`
	Missing     map[string]int                   `json:"missing,omitempty"`
	Preview     []map[string]string              `json:"preview"`
	Transforms  []tabular.TransformRecord        `json:"transforms,omitempty"`
}

func analyzeSummary(ds *tabular.Dataset) *Result {
	meta := ds.Metadata()
	data := &summaryData{
		Rows:        ds.RowCount(),
		Columns:     ds.ColumnCount(),
		ColumnKinds: meta.ColumnKinds,
		Missing:     ds.MissingCounts(),
		Preview:     ds.Head(5),
		Transforms:  ds.Transforms(),
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Dataset has %d rows and %d columns.", data.Rows, data.Columns)
	fmt.Fprintf(&sb, " Numeric columns: %s.", joinOrNone(ds.NumericColumns()))
	fmt.Fprintf(&sb, " Categorical columns: %s.", joinOrNone(ds.CategoricalColumns()))
	if total := totalMissing(data.Missing); total > 0 {
		fmt.Fprintf(&sb, " %d missing values across %d columns.", total, len(data.Missing))
	} else {
		sb.WriteString(" No missing values.")
	}
	return &Result{Summary: sb.String(), Data: data}
}

// missingData 缺失值明细
type missingData struct {
	TotalMissing int                `json:"total_missing"`
	Columns      map[string]int     `json:"columns"`
	Percent      map[string]float64 `json:"percent"`
}

func analyzeMissing(ds *tabular.Dataset) *Result {
	counts := ds.MissingCounts()
	data := &missingData{
		Columns: counts,
		Percent: make(map[string]float64, len(counts)),
	}
	for name, n := range counts {
		data.TotalMissing += n
		if ds.RowCount() > 0 {
			data.Percent[name] = float64(n) / float64(ds.RowCount()) * 100
		}
	}

	if data.TotalMissing == 0 {
		return &Result{Summary: "No missing values in the dataset.", Data: data}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %d (%.1f%%)", name, counts[name], data.Percent[name]))
	}
	return &Result{
		Summary: fmt.Sprintf("%d missing values found. %s.", data.TotalMissing, strings.Join(parts, ", ")),
		Data:    data,
	}
}

// 未显式指定列时只描述数值列，与 describe 的惯例一致
func analyzeStatistics(ds *tabular.Dataset, columns []string) (*Result, error) {
	if len(columns) == 0 {
		columns = ds.NumericColumns()
		if len(columns) == 0 {
			return nil, &tabular.InsufficientDataError{Op: "describe", Reason: "no numeric columns to describe"}
		}
	}
	stats := make([]*tabular.ColumnStats, 0, len(columns))
	for _, name := range columns {
		s, err := ds.Stats(name)
		if err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Statistics for %d columns.", len(stats))
	for _, s := range stats {
		if s.Kind == tabular.KindNumeric || s.Kind == tabular.KindBoolean {
			fmt.Fprintf(&sb, " %s: mean=%.3f median=%.3f std=%.3f min=%.3f max=%.3f.",
				s.Column, s.Mean, s.Median, s.Std, s.Min, s.Max)
		} else {
			fmt.Fprintf(&sb, " %s: %d distinct values, most common %q.", s.Column, s.Distinct, s.Mode)
		}
	}
	return &Result{Summary: sb.String(), Data: stats}, nil
}

// CorrelationPair 一对列的相关系数
type CorrelationPair struct {
	ColumnA string  `json:"column_a"`
	ColumnB string  `json:"column_b"`
	R       float64 `json:"r"`
}

// correlationData 相关性分析结果
type correlationData struct {
	Columns []string            `json:"columns"`
	Matrix  [][]float64         `json:"matrix"`
	Strong  []CorrelationPair   `json:"strong,omitempty"`
}

func analyzeCorrelations(ds *tabular.Dataset) (*Result, error) {
	numeric := ds.NumericColumns()
	if len(numeric) < 2 {
		return nil, &tabular.InsufficientDataError{Op: "correlations", Reason: "need at least 2 numeric columns"}
	}

	data := &correlationData{Columns: numeric, Matrix: make([][]float64, len(numeric))}
	series := make([]map[int]float64, len(numeric))
	for i, name := range numeric {
		vals, idx, err := ds.NumericValues(name)
		if err != nil {
			return nil, err
		}
		series[i] = make(map[int]float64, len(vals))
		for j, row := range idx {
			series[i][row] = vals[j]
		}
	}

	for i := range numeric {
		data.Matrix[i] = make([]float64, len(numeric))
		for j := range numeric {
			r := pearson(series[i], series[j])
			data.Matrix[i][j] = r
			if i < j && math.Abs(r) >= strongCorrelationThreshold {
				data.Strong = append(data.Strong, CorrelationPair{
					ColumnA: numeric[i], ColumnB: numeric[j], R: r,
				})
			}
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Computed correlations for %d numeric columns.", len(numeric))
	if len(data.Strong) == 0 {
		sb.WriteString(" No strong correlations (|r| >= 0.7) found.")
	} else {
		for _, p := range data.Strong {
			fmt.Fprintf(&sb, " %s and %s are strongly correlated (r=%.3f).", p.ColumnA, p.ColumnB, p.R)
		}
	}
	return &Result{Summary: sb.String(), Data: data}, nil
}

// pearson 对两列共同的非缺失行计算皮尔逊相关系数
func pearson(a, b map[int]float64) float64 {
	var xs, ys []float64
	for row, x := range a {
		if y, ok := b[row]; ok {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	n := float64(len(xs))
	if n < 2 {
		return 0
	}

	var sumX, sumY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
	}
	meanX, meanY := sumX/n, sumY/n

	var cov, varX, varY float64
	for i := range xs {
		dx, dy := xs[i]-meanX, ys[i]-meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func totalMissing(m map[string]int) int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}
