package toolkit

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/sello-bot/luna-data-science-chatbot/internal/service/tabular"
)

// pairplot 最多纳入的数值列数
const pairplotMaxColumns = 5

// PlotTypes 支持的图表类型
var PlotTypes = []string{"histogram", "scatter", "line", "bar", "box", "heatmap", "pairplot"}

// PlotRequest 图表请求参数
type PlotRequest struct {
	PlotType string   `json:"plot_type"`
	X        string   `json:"x,omitempty"`
	Y        string   `json:"y,omitempty"`
	Color    string   `json:"color,omitempty"`   // 散点图按该列取值分组着色
	Columns  []string `json:"columns,omitempty"` // pairplot 的候选列
	Bins     int      `json:"bins,omitempty"`
	Title    string   `json:"title,omitempty"`
}

// PlotArtifact 生成的图表文件
type PlotArtifact struct {
	ID       string   `json:"id"`
	Path     string   `json:"path"`
	PlotType string   `json:"plot_type"`
	Title    string   `json:"title"`
	Columns  []string `json:"columns"`
}

// CreatePlot 校验参数并生成 ECharts 配置 JSON 文件
func CreatePlot(ds *tabular.Dataset, req *PlotRequest, plotDir string) (*PlotArtifact, error) {
	var (
		option  map[string]interface{}
		columns []string
		err     error
	)
	switch req.PlotType {
	case "histogram":
		option, columns, err = histogramOption(ds, req)
	case "scatter":
		option, columns, err = scatterOption(ds, req)
	case "line":
		option, columns, err = lineOption(ds, req)
	case "bar":
		option, columns, err = barOption(ds, req)
	case "box":
		option, columns, err = boxOption(ds, req)
	case "heatmap":
		option, columns, err = heatmapOption(ds)
	case "pairplot":
		option, columns, err = pairplotOption(ds, req)
	default:
		return nil, &InvalidPlotParamsError{PlotType: req.PlotType, Reason: "unknown plot type (supported: " + strings.Join(PlotTypes, ", ") + ")"}
	}
	if err != nil {
		return nil, err
	}

	title := req.Title
	if title == "" {
		title = defaultTitle(req.PlotType, columns)
	}
	option["title"] = map[string]interface{}{"text": title}

	if err := os.MkdirAll(plotDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}
	id := uuid.New().String()
	path := filepath.Join(plotDir, "echarts_"+id+".json")
	data, err := json.MarshalIndent(option, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write plot file: %w", err)
	}

	return &PlotArtifact{
		ID:       id,
		Path:     path,
		PlotType: req.PlotType,
		Title:    title,
		Columns:  columns,
	}, nil
}

func defaultTitle(plotType string, columns []string) string {
	if len(columns) == 0 {
		return plotType
	}
	return fmt.Sprintf("%s of %s", plotType, strings.Join(columns, " vs "))
}

// requireNumeric 校验列存在且为数值语义
func requireNumeric(ds *tabular.Dataset, plotType, name, role string) ([]float64, []int, error) {
	if name == "" {
		return nil, nil, &InvalidPlotParamsError{PlotType: plotType, Reason: role + " column is required"}
	}
	vals, idx, err := ds.NumericValues(name)
	if err != nil {
		if _, ok := err.(*tabular.ColumnNotFoundError); ok {
			return nil, nil, err
		}
		return nil, nil, &InvalidPlotParamsError{PlotType: plotType, Reason: role + " column " + name + " must be numeric"}
	}
	return vals, idx, nil
}

func histogramOption(ds *tabular.Dataset, req *PlotRequest) (map[string]interface{}, []string, error) {
	vals, _, err := requireNumeric(ds, "histogram", req.X, "x")
	if err != nil {
		return nil, nil, err
	}
	if len(vals) == 0 {
		return nil, nil, &tabular.InsufficientDataError{Op: "histogram", Reason: "column " + req.X + " has no values"}
	}

	bins := req.Bins
	if bins <= 0 {
		bins = 10
	}
	min, max := vals[0], vals[0]
	for _, v := range vals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	width := (max - min) / float64(bins)
	if width == 0 {
		width = 1
	}
	counts := make([]int, bins)
	labels := make([]string, bins)
	for _, v := range vals {
		i := int((v - min) / width)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}
	for i := range labels {
		labels[i] = fmt.Sprintf("%.2f-%.2f", min+float64(i)*width, min+float64(i+1)*width)
	}

	option := map[string]interface{}{
		"tooltip": map[string]interface{}{"trigger": "axis"},
		"xAxis":   map[string]interface{}{"type": "category", "data": labels, "name": req.X},
		"yAxis":   map[string]interface{}{"type": "value", "name": "count"},
		"series": []interface{}{
			map[string]interface{}{"type": "bar", "data": counts, "name": req.X},
		},
	}
	return option, []string{req.X}, nil
}

func scatterOption(ds *tabular.Dataset, req *PlotRequest) (map[string]interface{}, []string, error) {
	xVals, xIdx, err := requireNumeric(ds, "scatter", req.X, "x")
	if err != nil {
		return nil, nil, err
	}
	yVals, yIdx, err := requireNumeric(ds, "scatter", req.Y, "y")
	if err != nil {
		return nil, nil, err
	}

	// 仅保留两列均非缺失的行
	yByRow := make(map[int]float64, len(yVals))
	for i, row := range yIdx {
		yByRow[row] = yVals[i]
	}

	option := map[string]interface{}{
		"tooltip": map[string]interface{}{"trigger": "item"},
		"xAxis":   map[string]interface{}{"type": "value", "name": req.X},
		"yAxis":   map[string]interface{}{"type": "value", "name": req.Y},
	}
	columns := []string{req.X, req.Y}

	if req.Color == "" {
		var points [][2]float64
		for i, row := range xIdx {
			if y, ok := yByRow[row]; ok {
				points = append(points, [2]float64{xVals[i], y})
			}
		}
		if len(points) == 0 {
			return nil, nil, &tabular.InsufficientDataError{Op: "scatter", Reason: "no rows with both columns present"}
		}
		option["series"] = []interface{}{
			map[string]interface{}{"type": "scatter", "data": points},
		}
		return option, columns, nil
	}

	// 按颜色列取值分组，每组一个系列
	cCol, err := ds.Column(req.Color)
	if err != nil {
		return nil, nil, err
	}
	groups := make(map[string][][2]float64)
	for i, row := range xIdx {
		y, ok := yByRow[row]
		if !ok || cCol.Cells[row].Missing {
			continue
		}
		k := cCol.Cells[row].Raw
		groups[k] = append(groups[k], [2]float64{xVals[i], y})
	}
	if len(groups) == 0 {
		return nil, nil, &tabular.InsufficientDataError{Op: "scatter", Reason: "no rows with all columns present"}
	}

	labels := sortedKeys(groups)
	series := make([]interface{}, 0, len(labels))
	for _, k := range labels {
		series = append(series, map[string]interface{}{
			"type": "scatter", "name": k, "data": groups[k],
		})
	}
	option["series"] = series
	option["legend"] = map[string]interface{}{"data": labels}
	return option, append(columns, req.Color), nil
}

func lineOption(ds *tabular.Dataset, req *PlotRequest) (map[string]interface{}, []string, error) {
	if req.X == "" {
		return nil, nil, &InvalidPlotParamsError{PlotType: "line", Reason: "x column is required"}
	}
	if !ds.HasColumn(req.X) {
		_, err := ds.Column(req.X)
		return nil, nil, err
	}
	yVals, yIdx, err := requireNumeric(ds, "line", req.Y, "y")
	if err != nil {
		return nil, nil, err
	}

	labels := make([]string, 0, len(yIdx))
	for _, row := range yIdx {
		labels = append(labels, ds.Row(row)[req.X])
	}
	option := map[string]interface{}{
		"tooltip": map[string]interface{}{"trigger": "axis"},
		"xAxis":   map[string]interface{}{"type": "category", "data": labels, "name": req.X},
		"yAxis":   map[string]interface{}{"type": "value", "name": req.Y},
		"series": []interface{}{
			map[string]interface{}{"type": "line", "data": yVals, "name": req.Y},
		},
	}
	return option, []string{req.X, req.Y}, nil
}

// barOption 类别计数或按类别聚合均值
// y 缺省时按 x 取值计数，指定数值 y 时画各类别的均值
func barOption(ds *tabular.Dataset, req *PlotRequest) (map[string]interface{}, []string, error) {
	if req.X == "" {
		return nil, nil, &InvalidPlotParamsError{PlotType: "bar", Reason: "x column is required"}
	}
	xCol, err := ds.Column(req.X)
	if err != nil {
		return nil, nil, err
	}

	columns := []string{req.X}
	var labels []string
	var values []float64
	yName := "count"

	if req.Y == "" {
		counts := make(map[string]int)
		for i := range xCol.Cells {
			if !xCol.Cells[i].Missing {
				counts[xCol.Cells[i].Raw]++
			}
		}
		labels = sortedKeys(counts)
		for _, k := range labels {
			values = append(values, float64(counts[k]))
		}
	} else {
		yVals, yIdx, err := requireNumeric(ds, "bar", req.Y, "y")
		if err != nil {
			return nil, nil, err
		}
		sums := make(map[string]float64)
		ns := make(map[string]int)
		for i, row := range yIdx {
			if xCol.Cells[row].Missing {
				continue
			}
			k := xCol.Cells[row].Raw
			sums[k] += yVals[i]
			ns[k]++
		}
		labels = sortedKeys(ns)
		for _, k := range labels {
			values = append(values, sums[k]/float64(ns[k]))
		}
		yName = "mean " + req.Y
		columns = append(columns, req.Y)
	}
	if len(labels) == 0 {
		return nil, nil, &tabular.InsufficientDataError{Op: "bar", Reason: "no values to plot"}
	}

	option := map[string]interface{}{
		"tooltip": map[string]interface{}{"trigger": "axis"},
		"xAxis":   map[string]interface{}{"type": "category", "data": labels, "name": req.X},
		"yAxis":   map[string]interface{}{"type": "value", "name": yName},
		"series": []interface{}{
			map[string]interface{}{"type": "bar", "data": values},
		},
	}
	return option, columns, nil
}

func boxOption(ds *tabular.Dataset, req *PlotRequest) (map[string]interface{}, []string, error) {
	yVals, yIdx, err := requireNumeric(ds, "box", req.Y, "y")
	if err != nil {
		return nil, nil, err
	}

	groups := map[string][]float64{}
	columns := []string{req.Y}
	if req.X != "" {
		xCol, err := ds.Column(req.X)
		if err != nil {
			return nil, nil, err
		}
		for i, row := range yIdx {
			if !xCol.Cells[row].Missing {
				k := xCol.Cells[row].Raw
				groups[k] = append(groups[k], yVals[i])
			}
		}
		columns = []string{req.X, req.Y}
	} else {
		groups[req.Y] = yVals
	}
	if len(groups) == 0 {
		return nil, nil, &tabular.InsufficientDataError{Op: "box", Reason: "no values to plot"}
	}

	labels := make([]string, 0, len(groups))
	for k := range groups {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	// 每组五数概括 [min, q1, median, q3, max]
	data := make([][]float64, 0, len(labels))
	for _, k := range labels {
		vals := groups[k]
		sort.Float64s(vals)
		data = append(data, []float64{
			vals[0],
			quantileSorted(vals, 0.25),
			quantileSorted(vals, 0.5),
			quantileSorted(vals, 0.75),
			vals[len(vals)-1],
		})
	}

	option := map[string]interface{}{
		"tooltip": map[string]interface{}{"trigger": "item"},
		"xAxis":   map[string]interface{}{"type": "category", "data": labels},
		"yAxis":   map[string]interface{}{"type": "value", "name": req.Y},
		"series": []interface{}{
			map[string]interface{}{"type": "boxplot", "data": data},
		},
	}
	return option, columns, nil
}

// heatmapOption 数值列相关系数热力图
func heatmapOption(ds *tabular.Dataset) (map[string]interface{}, []string, error) {
	result, err := analyzeCorrelations(ds)
	if err != nil {
		return nil, nil, err
	}
	corr := result.Data.(*correlationData)

	var cells []interface{}
	for i := range corr.Columns {
		for j := range corr.Columns {
			cells = append(cells, []interface{}{i, j, round3(corr.Matrix[i][j])})
		}
	}

	option := map[string]interface{}{
		"tooltip": map[string]interface{}{"position": "top"},
		"xAxis":   map[string]interface{}{"type": "category", "data": corr.Columns},
		"yAxis":   map[string]interface{}{"type": "category", "data": corr.Columns},
		"visualMap": map[string]interface{}{
			"min": -1, "max": 1, "calculable": true, "orient": "horizontal",
		},
		"series": []interface{}{
			map[string]interface{}{"type": "heatmap", "data": cells, "label": map[string]interface{}{"show": true}},
		},
	}
	return option, corr.Columns, nil
}

// pairplotOption 数值列两两散点矩阵，最多取前 5 个数值列
func pairplotOption(ds *tabular.Dataset, req *PlotRequest) (map[string]interface{}, []string, error) {
	numeric := req.Columns
	if len(numeric) == 0 {
		numeric = ds.NumericColumns()
	}
	for _, name := range numeric {
		if _, _, err := requireNumeric(ds, "pairplot", name, "pairplot"); err != nil {
			return nil, nil, err
		}
	}
	if len(numeric) < 2 {
		return nil, nil, &tabular.InsufficientDataError{Op: "pairplot", Reason: "need at least 2 numeric columns"}
	}
	if len(numeric) > pairplotMaxColumns {
		numeric = numeric[:pairplotMaxColumns]
	}

	n := len(numeric)
	series := make([]interface{}, 0, n*n)
	grids := make([]interface{}, 0, n*n)
	xAxes := make([]interface{}, 0, n*n)
	yAxes := make([]interface{}, 0, n*n)
	cell := 100.0 / float64(n)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			idx := i*n + j
			grids = append(grids, map[string]interface{}{
				"left":   fmt.Sprintf("%.1f%%", float64(j)*cell+2),
				"top":    fmt.Sprintf("%.1f%%", float64(i)*cell+2),
				"width":  fmt.Sprintf("%.1f%%", cell-4),
				"height": fmt.Sprintf("%.1f%%", cell-4),
			})
			xAxes = append(xAxes, map[string]interface{}{"type": "value", "gridIndex": idx, "name": numeric[j]})
			yAxes = append(yAxes, map[string]interface{}{"type": "value", "gridIndex": idx, "name": numeric[i]})

			xVals, xIdx, _ := ds.NumericValues(numeric[j])
			yVals, yIdx, _ := ds.NumericValues(numeric[i])
			yByRow := make(map[int]float64, len(yVals))
			for k, row := range yIdx {
				yByRow[row] = yVals[k]
			}
			var points [][2]float64
			for k, row := range xIdx {
				if y, ok := yByRow[row]; ok {
					points = append(points, [2]float64{xVals[k], y})
				}
			}
			series = append(series, map[string]interface{}{
				"type": "scatter", "xAxisIndex": idx, "yAxisIndex": idx,
				"data": points, "symbolSize": 4,
			})
		}
	}

	option := map[string]interface{}{
		"grid":   grids,
		"xAxis":  xAxes,
		"yAxis":  yAxes,
		"series": series,
	}
	return option, numeric, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quantileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
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

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
