package tabular

import "strings"

// ColumnQuality 单列质量指标
type ColumnQuality struct {
	Column     string     `json:"column"`
	Kind       ColumnKind `json:"kind"`
	Missing    int        `json:"missing"`
	MissingPct float64    `json:"missing_pct"`
	Distinct   int        `json:"distinct"`
}

// QualityReport 数据质量报告
type QualityReport struct {
	TotalRows     int             `json:"total_rows"`
	TotalColumns  int             `json:"total_columns"`
	MissingCells  int             `json:"missing_cells"`
	DuplicateRows int             `json:"duplicate_rows"`
	Columns       []ColumnQuality `json:"columns"`
}

// Quality 生成数据质量报告
func (ds *Dataset) Quality() *QualityReport {
	report := &QualityReport{
		TotalRows:    ds.nRows,
		TotalColumns: len(ds.columns),
	}

	for _, c := range ds.columns {
		missing := 0
		distinct := make(map[string]bool)
		for i := range c.Cells {
			if c.Cells[i].Missing {
				missing++
			} else {
				distinct[c.Cells[i].Raw] = true
			}
		}
		report.MissingCells += missing
		pct := 0.0
		if ds.nRows > 0 {
			pct = float64(missing) / float64(ds.nRows) * 100
		}
		report.Columns = append(report.Columns, ColumnQuality{
			Column:     c.Name,
			Kind:       c.Kind,
			Missing:    missing,
			MissingPct: pct,
			Distinct:   len(distinct),
		})
	}

	seen := make(map[string]bool, ds.nRows)
	var sb strings.Builder
	for i := 0; i < ds.nRows; i++ {
		sb.Reset()
		for _, c := range ds.columns {
			sb.WriteString(c.Cells[i].Raw)
			sb.WriteByte('\x1f')
		}
		key := sb.String()
		if seen[key] {
			report.DuplicateRows++
		} else {
			seen[key] = true
		}
	}
	return report
}

// Search 在指定列（为空时所有列）中做大小写不敏感子串查找
// 返回最多 limit 行匹配结果
func (ds *Dataset) Search(query string, columns []string, limit int) ([]map[string]string, error) {
	cols := ds.columns
	if len(columns) > 0 {
		cols = make([]*Column, 0, len(columns))
		for _, name := range columns {
			c, err := ds.Column(name)
			if err != nil {
				return nil, err
			}
			cols = append(cols, c)
		}
	}
	if limit <= 0 {
		limit = 20
	}

	lower := strings.ToLower(query)
	var rows []map[string]string
	for i := 0; i < ds.nRows && len(rows) < limit; i++ {
		for _, c := range cols {
			if !c.Cells[i].Missing && strings.Contains(strings.ToLower(c.Cells[i].Raw), lower) {
				rows = append(rows, ds.Row(i))
				break
			}
		}
	}
	return rows, nil
}
