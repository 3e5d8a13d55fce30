package tabular

import (
	"math"
	"sort"
)

// ValueCount 取值及其出现次数
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// ColumnStats 单列统计摘要
// 数值语义列填充 Mean 等数值字段，类别列填充 Distinct/TopValues/Mode
type ColumnStats struct {
	Column   string     `json:"column"`
	Kind     ColumnKind `json:"kind"`
	Count    int        `json:"count"`
	Missing  int        `json:"missing"`
	Mean     float64    `json:"mean,omitempty"`
	Median   float64    `json:"median,omitempty"`
	Std      float64    `json:"std,omitempty"`
	Min      float64    `json:"min,omitempty"`
	Max      float64    `json:"max,omitempty"`
	Q25      float64    `json:"q25,omitempty"`
	Q75      float64    `json:"q75,omitempty"`
	Distinct int        `json:"distinct,omitempty"`
	Mode     string     `json:"mode,omitempty"`
	// 出现频率最高的取值，最多 5 个
	TopValues []ValueCount `json:"top_values,omitempty"`
}

// Stats 计算指定列的统计摘要
func (ds *Dataset) Stats(name string) (*ColumnStats, error) {
	col, err := ds.Column(name)
	if err != nil {
		return nil, err
	}

	stats := &ColumnStats{Column: col.Name, Kind: col.Kind}
	for i := range col.Cells {
		if col.Cells[i].Missing {
			stats.Missing++
		} else {
			stats.Count++
		}
	}

	if col.Kind == KindNumeric || col.Kind == KindBoolean {
		vals, _, _ := ds.NumericValues(name)
		if len(vals) > 0 {
			sorted := make([]float64, len(vals))
			copy(sorted, vals)
			sort.Float64s(sorted)
			stats.Mean = mean(vals)
			stats.Median = median(vals)
			stats.Std = stddev(vals, stats.Mean)
			stats.Min = sorted[0]
			stats.Max = sorted[len(sorted)-1]
			stats.Q25 = quantile(sorted, 0.25)
			stats.Q75 = quantile(sorted, 0.75)
		}
		return stats, nil
	}

	counts := make(map[string]int)
	for i := range col.Cells {
		if !col.Cells[i].Missing {
			counts[col.Cells[i].Raw]++
		}
	}
	stats.Distinct = len(counts)
	stats.TopValues = topValues(counts, 5)
	if len(stats.TopValues) > 0 {
		stats.Mode = stats.TopValues[0].Value
	}
	return stats, nil
}

// MissingCounts 各列缺失值数量，仅含存在缺失的列
func (ds *Dataset) MissingCounts() map[string]int {
	out := make(map[string]int)
	for _, c := range ds.columns {
		missing := 0
		for i := range c.Cells {
			if c.Cells[i].Missing {
				missing++
			}
		}
		if missing > 0 {
			out[c.Name] = missing
		}
	}
	return out
}

// stddev 样本标准差
func stddev(vals []float64, m float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)-1))
}

// quantile 线性插值分位数，要求输入已排序
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// topValues 按出现次数降序取前 n 个取值，次数相同时按字典序保证稳定
func topValues(counts map[string]int, n int) []ValueCount {
	out := make([]ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
