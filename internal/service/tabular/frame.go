package tabular

import (
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ColumnKind 列的推断类型
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindDatetime    ColumnKind = "datetime"
	KindBoolean     ColumnKind = "boolean"
)

// 缺失值的文本表示，解析时统一视为缺失
var missingTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "null": true, "none": true,
}

// 日期时间解析尝试的格式，按常见程度排序
var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-01-2006",
}

// Cell 单元格，Raw 保留原始文本，数值类列同时缓存解析结果
type Cell struct {
	Raw     string
	Num     float64
	Missing bool
}

// Column 列存储
type Column struct {
	Name  string
	Kind  ColumnKind
	Cells []Cell
}

// clone 深拷贝列
func (c *Column) clone() *Column {
	cells := make([]Cell, len(c.Cells))
	copy(cells, c.Cells)
	return &Column{Name: c.Name, Kind: c.Kind, Cells: cells}
}

// TransformRecord 已应用的变换记录（追加写，不修改历史）
type TransformRecord struct {
	Op        string            `json:"op"`
	Params    map[string]string `json:"params,omitempty"`
	RowsAfter int               `json:"rows_after"`
	AppliedAt time.Time         `json:"applied_at"`
}

// Metadata 数据集元信息
type Metadata struct {
	FileName    string                `json:"file_name"`
	Format      string                `json:"format"`
	RowCount    int                   `json:"row_count"`
	ColumnCount int                   `json:"column_count"`
	ColumnKinds map[string]ColumnKind `json:"column_kinds"`
	LoadedAt    time.Time             `json:"loaded_at"`
}

// Dataset 内存中的表格数据集
// 按列存储，保留上传时的原始快照用于 reset。并发控制由上层会话串行化保证。
type Dataset struct {
	columns    []*Column
	index      map[string]int
	nRows      int
	original   []*Column // 加载时的快照
	transforms []TransformRecord
	meta       Metadata
}

// NewFromRecords 从表头和行记录构建数据集，推断每列类型
func NewFromRecords(headers []string, rows [][]string) (*Dataset, error) {
	if len(headers) == 0 || len(rows) == 0 {
		return nil, &EmptyDatasetError{}
	}

	columns := make([]*Column, len(headers))
	for i, name := range headers {
		cells := make([]Cell, len(rows))
		for j, row := range rows {
			raw := ""
			if i < len(row) {
				raw = strings.TrimSpace(row[i])
			}
			cells[j] = Cell{Raw: raw, Missing: missingTokens[strings.ToLower(raw)]}
		}
		col := &Column{Name: name, Cells: cells}
		inferKind(col)
		columns[i] = col
	}

	ds := &Dataset{
		columns: columns,
		index:   buildIndex(columns),
		nRows:   len(rows),
	}
	ds.original = cloneColumns(columns)
	ds.meta = Metadata{
		RowCount:    ds.nRows,
		ColumnCount: len(columns),
		ColumnKinds: ds.columnKinds(),
		LoadedAt:    time.Now(),
	}
	return ds, nil
}

// inferKind 推断列类型：全部可解析为布尔 → boolean，数值 → numeric，
// 日期 → datetime，否则 categorical。全缺失列按 categorical 处理。
func inferKind(col *Column) {
	seen := false
	isBool, isNum, isDate := true, true, true
	for i := range col.Cells {
		cell := &col.Cells[i]
		if cell.Missing {
			continue
		}
		seen = true
		if isBool {
			if _, ok := parseBool(cell.Raw); !ok {
				isBool = false
			}
		}
		if isNum {
			if _, err := strconv.ParseFloat(cell.Raw, 64); err != nil {
				isNum = false
			}
		}
		if isDate {
			if _, ok := parseDatetime(cell.Raw); !ok {
				isDate = false
			}
		}
		if !isBool && !isNum && !isDate {
			break
		}
	}

	switch {
	case !seen:
		col.Kind = KindCategorical
	case isBool:
		col.Kind = KindBoolean
	case isNum:
		col.Kind = KindNumeric
	case isDate:
		col.Kind = KindDatetime
	default:
		col.Kind = KindCategorical
	}
	cacheNumeric(col)
}

// cacheNumeric 为数值语义的列缓存 float 表示
func cacheNumeric(col *Column) {
	for i := range col.Cells {
		cell := &col.Cells[i]
		if cell.Missing {
			continue
		}
		switch col.Kind {
		case KindNumeric:
			cell.Num, _ = strconv.ParseFloat(cell.Raw, 64)
		case KindBoolean:
			if b, _ := parseBool(cell.Raw); b {
				cell.Num = 1
			} else {
				cell.Num = 0
			}
		case KindDatetime:
			if t, ok := parseDatetime(cell.Raw); ok {
				cell.Num = float64(t.Unix())
			}
		}
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func parseDatetime(s string) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func buildIndex(columns []*Column) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c.Name] = i
	}
	return idx
}

func cloneColumns(columns []*Column) []*Column {
	out := make([]*Column, len(columns))
	for i, c := range columns {
		out[i] = c.clone()
	}
	return out
}

func (ds *Dataset) columnKinds() map[string]ColumnKind {
	kinds := make(map[string]ColumnKind, len(ds.columns))
	for _, c := range ds.columns {
		kinds[c.Name] = c.Kind
	}
	return kinds
}

// RowCount 行数
func (ds *Dataset) RowCount() int { return ds.nRows }

// ColumnCount 列数
func (ds *Dataset) ColumnCount() int { return len(ds.columns) }

// Columns 按序返回列名
func (ds *Dataset) Columns() []string {
	names := make([]string, len(ds.columns))
	for i, c := range ds.columns {
		names[i] = c.Name
	}
	return names
}

// Metadata 返回元信息副本（行列数取当前值）
func (ds *Dataset) Metadata() Metadata {
	m := ds.meta
	m.RowCount = ds.nRows
	m.ColumnCount = len(ds.columns)
	m.ColumnKinds = ds.columnKinds()
	return m
}

// SetSource 记录数据来源文件信息
func (ds *Dataset) SetSource(fileName, format string) {
	ds.meta.FileName = fileName
	ds.meta.Format = format
}

// Column 按名称获取列，不存在时返回含近似建议的错误
func (ds *Dataset) Column(name string) (*Column, error) {
	if i, ok := ds.index[name]; ok {
		return ds.columns[i], nil
	}
	return nil, &ColumnNotFoundError{Column: name, Suggestions: ds.suggestColumns(name)}
}

// HasColumn 列是否存在
func (ds *Dataset) HasColumn(name string) bool {
	_, ok := ds.index[name]
	return ok
}

// suggestColumns 查找近似列名：大小写不敏感匹配和子串匹配
func (ds *Dataset) suggestColumns(name string) []string {
	lower := strings.ToLower(name)
	var out []string
	for _, c := range ds.columns {
		cl := strings.ToLower(c.Name)
		if cl == lower || strings.Contains(cl, lower) || strings.Contains(lower, cl) {
			out = append(out, c.Name)
		}
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// NumericColumns 返回数值语义列（numeric 与 boolean）
func (ds *Dataset) NumericColumns() []string {
	var out []string
	for _, c := range ds.columns {
		if c.Kind == KindNumeric || c.Kind == KindBoolean {
			out = append(out, c.Name)
		}
	}
	return out
}

// CategoricalColumns 返回类别列
func (ds *Dataset) CategoricalColumns() []string {
	var out []string
	for _, c := range ds.columns {
		if c.Kind == KindCategorical {
			out = append(out, c.Name)
		}
	}
	return out
}

// NumericValues 返回列的非缺失数值及其行号
func (ds *Dataset) NumericValues(name string) ([]float64, []int, error) {
	col, err := ds.Column(name)
	if err != nil {
		return nil, nil, err
	}
	if col.Kind == KindCategorical {
		return nil, nil, &InvalidTransformError{Op: "numeric_values", Reason: "column " + name + " is not numeric"}
	}
	var vals []float64
	var idx []int
	for i := range col.Cells {
		if !col.Cells[i].Missing {
			vals = append(vals, col.Cells[i].Num)
			idx = append(idx, i)
		}
	}
	return vals, idx, nil
}

// Row 返回指定行，列名到原始文本的映射
func (ds *Dataset) Row(i int) map[string]string {
	row := make(map[string]string, len(ds.columns))
	for _, c := range ds.columns {
		if c.Cells[i].Missing {
			row[c.Name] = ""
		} else {
			row[c.Name] = c.Cells[i].Raw
		}
	}
	return row
}

// Head 返回前 n 行，n 超界时截断
func (ds *Dataset) Head(n int) []map[string]string {
	n = clamp(n, ds.nRows)
	rows := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, ds.Row(i))
	}
	return rows
}

// Tail 返回后 n 行
func (ds *Dataset) Tail(n int) []map[string]string {
	n = clamp(n, ds.nRows)
	rows := make([]map[string]string, 0, n)
	for i := ds.nRows - n; i < ds.nRows; i++ {
		rows = append(rows, ds.Row(i))
	}
	return rows
}

// RandomSample 返回 n 行随机抽样，seed 固定时结果可复现
func (ds *Dataset) RandomSample(n int, seed int64) []map[string]string {
	n = clamp(n, ds.nRows)
	perm := rand.New(rand.NewSource(seed)).Perm(ds.nRows)[:n]
	sort.Ints(perm)
	rows := make([]map[string]string, 0, n)
	for _, i := range perm {
		rows = append(rows, ds.Row(i))
	}
	return rows
}

func clamp(n, max int) int {
	if n < 0 {
		n = 0
	}
	if n > max {
		n = max
	}
	return n
}

// Transforms 返回已应用变换记录的副本
func (ds *Dataset) Transforms() []TransformRecord {
	out := make([]TransformRecord, len(ds.transforms))
	copy(out, ds.transforms)
	return out
}

// Reset 恢复到上传时的原始快照并清空变换记录
func (ds *Dataset) Reset() {
	ds.columns = cloneColumns(ds.original)
	ds.index = buildIndex(ds.columns)
	if len(ds.columns) > 0 {
		ds.nRows = len(ds.columns[0].Cells)
	}
	ds.transforms = ds.transforms[:0]
}
