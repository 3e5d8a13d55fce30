package tabular

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FilterOperators 行过滤支持的比较操作符
var FilterOperators = []string{">", "<", ">=", "<=", "==", "!=", "contains"}

// DropColumn 删除列
func (ds *Dataset) DropColumn(name string) error {
	i, ok := ds.index[name]
	if !ok {
		return &ColumnNotFoundError{Column: name, Suggestions: ds.suggestColumns(name)}
	}
	if len(ds.columns) == 1 {
		return &InvalidTransformError{Op: "drop_column", Reason: "cannot drop the last remaining column"}
	}
	ds.columns = append(ds.columns[:i], ds.columns[i+1:]...)
	ds.index = buildIndex(ds.columns)
	ds.record("drop_column", map[string]string{"column": name})
	return nil
}

// RenameColumn 重命名列
func (ds *Dataset) RenameColumn(oldName, newName string) error {
	i, ok := ds.index[oldName]
	if !ok {
		return &ColumnNotFoundError{Column: oldName, Suggestions: ds.suggestColumns(oldName)}
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return &InvalidTransformError{Op: "rename_column", Reason: "new name is empty"}
	}
	if _, exists := ds.index[newName]; exists && newName != oldName {
		return &InvalidTransformError{Op: "rename_column", Reason: "column " + newName + " already exists"}
	}
	ds.columns[i].Name = newName
	ds.index = buildIndex(ds.columns)
	ds.record("rename_column", map[string]string{"from": oldName, "to": newName})
	return nil
}

// FillMissing 填充缺失值
// strategy: mean, median, mode, forward。mean/median 仅数值列有效。
func (ds *Dataset) FillMissing(name, strategy string) error {
	col, err := ds.Column(name)
	if err != nil {
		return err
	}

	numeric := col.Kind == KindNumeric || col.Kind == KindBoolean
	var fill Cell
	switch strategy {
	case "mean", "median":
		if !numeric {
			return &InvalidTransformError{Op: "fill_missing", Reason: strategy + " fill requires a numeric column"}
		}
		vals, _, _ := ds.NumericValues(name)
		if len(vals) == 0 {
			return &InvalidTransformError{Op: "fill_missing", Reason: "column " + name + " has no values to compute " + strategy}
		}
		v := mean(vals)
		if strategy == "median" {
			v = median(vals)
		}
		fill = Cell{Raw: strconv.FormatFloat(v, 'g', -1, 64), Num: v}
	case "mode":
		raw, ok := modeRaw(col)
		if !ok {
			return &InvalidTransformError{Op: "fill_missing", Reason: "column " + name + " has no values to compute mode"}
		}
		fill = Cell{Raw: raw}
		if numeric {
			fill.Num, _ = strconv.ParseFloat(raw, 64)
		}
	case "forward":
		// 前向填充：用前一个非缺失值填充，开头的缺失保持不变
		working := col.clone()
		var last *Cell
		for i := range working.Cells {
			if working.Cells[i].Missing {
				if last != nil {
					working.Cells[i] = *last
				}
			} else {
				last = &working.Cells[i]
			}
		}
		ds.replaceColumn(working)
		ds.record("fill_missing", map[string]string{"column": name, "strategy": strategy})
		return nil
	default:
		return &InvalidTransformError{Op: "fill_missing", Reason: "unknown strategy: " + strategy}
	}

	working := col.clone()
	for i := range working.Cells {
		if working.Cells[i].Missing {
			working.Cells[i] = fill
		}
	}
	ds.replaceColumn(working)
	ds.record("fill_missing", map[string]string{"column": name, "strategy": strategy})
	return nil
}

// Retype 将列转换为目标类型，任一非缺失值无法转换则整列不变
func (ds *Dataset) Retype(name string, kind ColumnKind) error {
	col, err := ds.Column(name)
	if err != nil {
		return err
	}
	switch kind {
	case KindNumeric, KindCategorical, KindDatetime, KindBoolean:
	default:
		return &InvalidTransformError{Op: "retype", Reason: "unknown kind: " + string(kind)}
	}

	working := col.clone()
	for i := range working.Cells {
		cell := &working.Cells[i]
		if cell.Missing {
			continue
		}
		switch kind {
		case KindNumeric:
			if _, err := strconv.ParseFloat(cell.Raw, 64); err != nil {
				return &InvalidTransformError{Op: "retype", Reason: fmt.Sprintf("value %q in column %s is not numeric", cell.Raw, name)}
			}
		case KindBoolean:
			if _, ok := parseBool(cell.Raw); !ok {
				return &InvalidTransformError{Op: "retype", Reason: fmt.Sprintf("value %q in column %s is not boolean", cell.Raw, name)}
			}
		case KindDatetime:
			if _, ok := parseDatetime(cell.Raw); !ok {
				return &InvalidTransformError{Op: "retype", Reason: fmt.Sprintf("value %q in column %s is not a datetime", cell.Raw, name)}
			}
		}
	}
	working.Kind = kind
	cacheNumeric(working)
	ds.replaceColumn(working)
	ds.record("retype", map[string]string{"column": name, "kind": string(kind)})
	return nil
}

// Filter 按条件过滤行，保留满足条件的行
// 数值列上的比较按数值进行，其他列按文本。contains 为大小写不敏感子串匹配。
func (ds *Dataset) Filter(name, operator, value string) (int, error) {
	col, err := ds.Column(name)
	if err != nil {
		return 0, err
	}

	valid := false
	for _, op := range FilterOperators {
		if op == operator {
			valid = true
			break
		}
	}
	if !valid {
		return 0, &InvalidTransformError{Op: "filter", Reason: "unknown operator: " + operator + " (supported: " + strings.Join(FilterOperators, " ") + ")"}
	}

	numeric := col.Kind == KindNumeric || col.Kind == KindBoolean || col.Kind == KindDatetime
	ordering := operator == ">" || operator == "<" || operator == ">=" || operator == "<="
	if ordering && !numeric {
		return 0, &InvalidTransformError{Op: "filter", Reason: "operator " + operator + " requires a numeric column"}
	}
	// 布尔与日期时间字面量先换算成数值，与列的数值缓存比较
	var target float64
	if numeric && operator != "contains" {
		parsed := false
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			target, parsed = v, true
		} else if b, ok := parseBool(value); ok && col.Kind == KindBoolean {
			parsed = true
			if b {
				target = 1
			}
		} else if t, ok := parseDatetime(value); ok && col.Kind == KindDatetime {
			target, parsed = float64(t.Unix()), true
		}
		if !parsed {
			return 0, &InvalidTransformError{Op: "filter", Reason: fmt.Sprintf("value %q is not comparable with numeric column %s", value, name)}
		}
	}

	keep := make([]bool, ds.nRows)
	kept := 0
	for i := range col.Cells {
		cell := col.Cells[i]
		if cell.Missing {
			continue
		}
		var ok bool
		switch operator {
		case ">":
			ok = numeric && cell.Num > target
		case "<":
			ok = numeric && cell.Num < target
		case ">=":
			ok = numeric && cell.Num >= target
		case "<=":
			ok = numeric && cell.Num <= target
		case "==":
			if numeric {
				ok = cell.Num == target
			} else {
				ok = cell.Raw == value
			}
		case "!=":
			if numeric {
				ok = cell.Num != target
			} else {
				ok = cell.Raw != value
			}
		case "contains":
			ok = strings.Contains(strings.ToLower(cell.Raw), strings.ToLower(value))
		}
		if ok {
			keep[i] = true
			kept++
		}
	}

	ds.keepRows(keep, kept)
	ds.record("filter", map[string]string{"column": name, "operator": operator, "value": value})
	return kept, nil
}

// DropDuplicates 删除重复行，返回删除数量
func (ds *Dataset) DropDuplicates() int {
	seen := make(map[string]bool, ds.nRows)
	keep := make([]bool, ds.nRows)
	kept := 0
	var sb strings.Builder
	for i := 0; i < ds.nRows; i++ {
		sb.Reset()
		for _, c := range ds.columns {
			sb.WriteString(c.Cells[i].Raw)
			sb.WriteByte('\x1f')
		}
		key := sb.String()
		if !seen[key] {
			seen[key] = true
			keep[i] = true
			kept++
		}
	}
	removed := ds.nRows - kept
	if removed > 0 {
		ds.keepRows(keep, kept)
		ds.record("drop_duplicates", nil)
	}
	return removed
}

// DropMissingRows 删除指定列存在缺失值的行，列为空时检查所有列
func (ds *Dataset) DropMissingRows(names []string) (int, error) {
	cols := ds.columns
	if len(names) > 0 {
		cols = make([]*Column, 0, len(names))
		for _, name := range names {
			c, err := ds.Column(name)
			if err != nil {
				return 0, err
			}
			cols = append(cols, c)
		}
	}

	keep := make([]bool, ds.nRows)
	kept := 0
	for i := 0; i < ds.nRows; i++ {
		ok := true
		for _, c := range cols {
			if c.Cells[i].Missing {
				ok = false
				break
			}
		}
		if ok {
			keep[i] = true
			kept++
		}
	}
	removed := ds.nRows - kept
	if removed > 0 {
		ds.keepRows(keep, kept)
		ds.record("drop_missing", map[string]string{"columns": strings.Join(names, ",")})
	}
	return removed, nil
}

// replaceColumn 用同名工作副本替换列
func (ds *Dataset) replaceColumn(working *Column) {
	ds.columns[ds.index[working.Name]] = working
}

// keepRows 按掩码保留行
func (ds *Dataset) keepRows(keep []bool, kept int) {
	for _, c := range ds.columns {
		cells := make([]Cell, 0, kept)
		for i, k := range keep {
			if k {
				cells = append(cells, c.Cells[i])
			}
		}
		c.Cells = cells
	}
	ds.nRows = kept
}

func (ds *Dataset) record(op string, params map[string]string) {
	ds.transforms = append(ds.transforms, TransformRecord{
		Op:        op,
		Params:    params,
		RowsAfter: ds.nRows,
		AppliedAt: time.Now(),
	})
}

// mean 算术平均
func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// median 中位数
func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// modeRaw 出现次数最多的原始值，平局时取先出现的
func modeRaw(col *Column) (string, bool) {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for i := range col.Cells {
		if col.Cells[i].Missing {
			continue
		}
		raw := col.Cells[i].Raw
		counts[raw]++
		if counts[raw] > bestCount {
			best, bestCount = raw, counts[raw]
		}
	}
	return best, bestCount > 0
}
