package toolkit

import (
	"encoding/json"
	"os"
	"strconv"
	"testing"

	"github.com/sello-bot/luna-data-science-chatbot/internal/service/tabular"
)

// ========== 图表测试 ==========

func plotDataset(t *testing.T) *tabular.Dataset {
	t.Helper()
	headers := []string{"a", "b", "c", "d", "e", "f", "group"}
	rows := make([][]string, 0, 30)
	for i := 0; i < 30; i++ {
		group := "g1"
		if i%2 == 0 {
			group = "g2"
		}
		rows = append(rows, []string{
			strconv.Itoa(i), strconv.Itoa(i * 2), strconv.Itoa(i * i),
			strconv.Itoa(30 - i), strconv.Itoa(i % 7), strconv.Itoa(i % 3),
			group,
		})
	}
	ds, err := tabular.NewFromRecords(headers, rows)
	if err != nil {
		t.Fatalf("NewFromRecords() error = %v", err)
	}
	return ds
}

func TestCreatePlotWritesEChartsJSON(t *testing.T) {
	ds := plotDataset(t)
	dir := t.TempDir()

	artifact, err := CreatePlot(ds, &PlotRequest{PlotType: "histogram", X: "a", Bins: 5}, dir)
	if err != nil {
		t.Fatalf("CreatePlot() error = %v", err)
	}
	if artifact.PlotType != "histogram" {
		t.Errorf("PlotType = %s, want histogram", artifact.PlotType)
	}

	raw, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("plot file not written: %v", err)
	}
	var option map[string]interface{}
	if err := json.Unmarshal(raw, &option); err != nil {
		t.Fatalf("plot file is not valid JSON: %v", err)
	}
	if _, ok := option["series"]; !ok {
		t.Error("plot option missing series")
	}
	if _, ok := option["title"]; !ok {
		t.Error("plot option missing title")
	}
}

func TestCreatePlotValidation(t *testing.T) {
	ds := plotDataset(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		req  *PlotRequest
	}{
		{"unknown type", &PlotRequest{PlotType: "pie3d", X: "a"}},
		{"histogram without x", &PlotRequest{PlotType: "histogram"}},
		{"histogram categorical x", &PlotRequest{PlotType: "histogram", X: "group"}},
		{"scatter without y", &PlotRequest{PlotType: "scatter", X: "a"}},
		{"scatter unknown column", &PlotRequest{PlotType: "scatter", X: "a", Y: "nope"}},
		{"scatter unknown color column", &PlotRequest{PlotType: "scatter", X: "a", Y: "b", Color: "nope"}},
		{"bar without x", &PlotRequest{PlotType: "bar"}},
		{"box without y", &PlotRequest{PlotType: "box"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CreatePlot(ds, tt.req, dir); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestCreatePlotAllTypes(t *testing.T) {
	ds := plotDataset(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		req  *PlotRequest
	}{
		{"scatter", &PlotRequest{PlotType: "scatter", X: "a", Y: "b"}},
		{"line", &PlotRequest{PlotType: "line", X: "a", Y: "b"}},
		{"bar counts", &PlotRequest{PlotType: "bar", X: "group"}},
		{"bar means", &PlotRequest{PlotType: "bar", X: "group", Y: "a"}},
		{"box grouped", &PlotRequest{PlotType: "box", X: "group", Y: "a"}},
		{"heatmap", &PlotRequest{PlotType: "heatmap"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact, err := CreatePlot(ds, tt.req, dir)
			if err != nil {
				t.Fatalf("CreatePlot() error = %v", err)
			}
			if _, err := os.Stat(artifact.Path); err != nil {
				t.Errorf("plot file missing: %v", err)
			}
		})
	}
}

func TestCreateScatterWithColorGrouping(t *testing.T) {
	ds := plotDataset(t)
	dir := t.TempDir()

	artifact, err := CreatePlot(ds, &PlotRequest{PlotType: "scatter", X: "a", Y: "b", Color: "group"}, dir)
	if err != nil {
		t.Fatalf("CreatePlot() error = %v", err)
	}
	if len(artifact.Columns) != 3 {
		t.Errorf("Columns = %v, want x, y and color columns", artifact.Columns)
	}

	raw, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("plot file not written: %v", err)
	}
	var option map[string]interface{}
	if err := json.Unmarshal(raw, &option); err != nil {
		t.Fatalf("plot file is not valid JSON: %v", err)
	}
	series, ok := option["series"].([]interface{})
	if !ok {
		t.Fatalf("series type = %T, want array", option["series"])
	}
	// group 列有 g1、g2 两个取值，应各有一个系列
	if len(series) != 2 {
		t.Errorf("series count = %d, want 2", len(series))
	}
	if _, ok := option["legend"]; !ok {
		t.Error("colored scatter missing legend")
	}
}

func TestPairplotCapsColumns(t *testing.T) {
	ds := plotDataset(t)
	dir := t.TempDir()

	// 数据集有 6 个数值列，pairplot 应只取前 5 个
	artifact, err := CreatePlot(ds, &PlotRequest{PlotType: "pairplot"}, dir)
	if err != nil {
		t.Fatalf("CreatePlot() error = %v", err)
	}
	if len(artifact.Columns) != 5 {
		t.Errorf("pairplot columns = %d, want 5", len(artifact.Columns))
	}
}

func TestPairplotNeedsTwoNumeric(t *testing.T) {
	ds, err := tabular.NewFromRecords([]string{"v", "s"}, [][]string{{"1", "a"}, {"2", "b"}})
	if err != nil {
		t.Fatalf("NewFromRecords() error = %v", err)
	}
	if _, err := CreatePlot(ds, &PlotRequest{PlotType: "pairplot"}, t.TempDir()); err == nil {
		t.Error("pairplot with one numeric column expected error, got nil")
	}
}
