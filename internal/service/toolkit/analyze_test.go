package toolkit

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/sello-bot/luna-data-science-chatbot/internal/service/tabular"
)

// ========== 测试数据 ==========

func analysisDataset(t *testing.T) *tabular.Dataset {
	t.Helper()
	headers := []string{"x", "double_x", "noise", "label"}
	rows := make([][]string, 0, 20)
	for i := 0; i < 20; i++ {
		label := "low"
		if i >= 10 {
			label = "high"
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.Itoa(i * 2),
			strconv.Itoa((i * 7) % 5),
			label,
		})
	}
	ds, err := tabular.NewFromRecords(headers, rows)
	if err != nil {
		t.Fatalf("NewFromRecords() error = %v", err)
	}
	return ds
}

// ========== 分析操作测试 ==========

func TestAnalyzeSummary(t *testing.T) {
	ds := analysisDataset(t)

	result, err := Analyze(ds, "summary", nil)
	if err != nil {
		t.Fatalf("Analyze(summary) error = %v", err)
	}
	data, ok := result.Data.(*summaryData)
	if !ok {
		t.Fatalf("Data type = %T, want *summaryData", result.Data)
	}
	if data.Rows != 20 || data.Columns != 4 {
		t.Errorf("Rows/Columns = %d/%d, want 20/4", data.Rows, data.Columns)
	}
	if len(data.Preview) != 5 {
		t.Errorf("Preview rows = %d, want 5", len(data.Preview))
	}
}

func TestAnalyzeMissingValues(t *testing.T) {
	headers := []string{"a", "b"}
	rows := [][]string{{"1", "x"}, {"", "y"}, {"3", ""}, {"", "w"}}
	ds, err := tabular.NewFromRecords(headers, rows)
	if err != nil {
		t.Fatalf("NewFromRecords() error = %v", err)
	}

	result, err := Analyze(ds, "missing_values", nil)
	if err != nil {
		t.Fatalf("Analyze(missing_values) error = %v", err)
	}
	data := result.Data.(*missingData)
	if data.TotalMissing != 3 {
		t.Errorf("TotalMissing = %d, want 3", data.TotalMissing)
	}
	if data.Columns["a"] != 2 || data.Columns["b"] != 1 {
		t.Errorf("Columns = %v, want a:2 b:1", data.Columns)
	}
	if data.Percent["a"] != 50 {
		t.Errorf("Percent[a] = %v, want 50", data.Percent["a"])
	}
}

func TestAnalyzeCorrelations(t *testing.T) {
	ds := analysisDataset(t)

	result, err := Analyze(ds, "correlations", nil)
	if err != nil {
		t.Fatalf("Analyze(correlations) error = %v", err)
	}
	data := result.Data.(*correlationData)

	// x 与 double_x 完全线性相关
	found := false
	for _, p := range data.Strong {
		if p.ColumnA == "x" && p.ColumnB == "double_x" {
			found = true
			if p.R < 0.999 {
				t.Errorf("r(x, double_x) = %v, want ~1", p.R)
			}
		}
	}
	if !found {
		t.Errorf("strong pair x/double_x not reported: %v", data.Strong)
	}

	// 对角线恒为 1
	for i := range data.Columns {
		if data.Matrix[i][i] < 0.999 {
			t.Errorf("Matrix[%d][%d] = %v, want 1", i, i, data.Matrix[i][i])
		}
	}
}

func TestAnalyzeCorrelationsInsufficient(t *testing.T) {
	headers := []string{"only", "text"}
	rows := [][]string{{"1", "a"}, {"2", "b"}}
	ds, err := tabular.NewFromRecords(headers, rows)
	if err != nil {
		t.Fatalf("NewFromRecords() error = %v", err)
	}

	if _, err := Analyze(ds, "correlations", nil); err == nil {
		t.Error("correlations with one numeric column expected error, got nil")
	}
}

func TestAnalyzeUnknownType(t *testing.T) {
	ds := analysisDataset(t)
	if _, err := Analyze(ds, "entropy", nil); err == nil {
		t.Error("Analyze(entropy) expected error, got nil")
	}
}

func TestAnalyzeDescribeDefaultsToNumericColumns(t *testing.T) {
	ds := analysisDataset(t)

	result, err := Analyze(ds, "describe", nil)
	if err != nil {
		t.Fatalf("Analyze(describe) error = %v", err)
	}
	stats := result.Data.([]*tabular.ColumnStats)
	if len(stats) != 3 {
		t.Fatalf("stats columns = %d, want 3 numeric columns", len(stats))
	}
	for _, s := range stats {
		if s.Column == "label" {
			t.Errorf("describe included categorical column %q without explicit request", s.Column)
		}
	}
}

func TestAnalyzeStatisticsExplicitCategoricalColumn(t *testing.T) {
	ds := analysisDataset(t)

	result, err := Analyze(ds, "statistics", []string{"label"})
	if err != nil {
		t.Fatalf("Analyze(statistics, label) error = %v", err)
	}
	stats := result.Data.([]*tabular.ColumnStats)
	if len(stats) != 1 || stats[0].Column != "label" {
		t.Errorf("stats = %v, want explicit label column", stats)
	}
}

func TestAnalyzeDescribeNoNumericColumns(t *testing.T) {
	ds, err := tabular.NewFromRecords([]string{"s"}, [][]string{{"a"}, {"b"}})
	if err != nil {
		t.Fatalf("NewFromRecords() error = %v", err)
	}
	if _, err := Analyze(ds, "describe", nil); err == nil {
		t.Error("describe on all-categorical dataset expected error, got nil")
	}
}

func TestAnalyzeStatisticsUnknownColumn(t *testing.T) {
	ds := analysisDataset(t)
	_, err := Analyze(ds, "statistics", []string{"nope"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if _, ok := err.(*tabular.ColumnNotFoundError); !ok {
		t.Errorf("error type = %T, want *ColumnNotFoundError", err)
	}
}

// ========== 推荐测试 ==========

func TestSuggestModels(t *testing.T) {
	ds := analysisDataset(t)

	tests := []struct {
		name        string
		target      string
		wantProblem string
	}{
		{"no target suggests clustering", "", "clustering"},
		{"binary target suggests classification", "label", "classification"},
		{"continuous target suggests regression", "x", "regression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestions, err := SuggestModels(ds, tt.target)
			if err != nil {
				t.Fatalf("SuggestModels() error = %v", err)
			}
			if len(suggestions) == 0 {
				t.Fatal("no suggestions returned")
			}
			if suggestions[0].Problem != tt.wantProblem {
				t.Errorf("Problem = %s, want %s", suggestions[0].Problem, tt.wantProblem)
			}
		})
	}

	// 二分类目标应包含逻辑回归
	suggestions, _ := SuggestModels(ds, "label")
	hasLogistic := false
	for _, s := range suggestions {
		if s.ModelType == "logistic_regression" {
			hasLogistic = true
		}
	}
	if !hasLogistic {
		t.Errorf("binary target suggestions missing logistic_regression: %v", suggestions)
	}
}

func TestSuggestPlots(t *testing.T) {
	ds := analysisDataset(t)

	suggestions := SuggestPlots(ds)
	types := make(map[string]bool)
	for _, s := range suggestions {
		types[s.PlotType] = true
	}
	for _, want := range []string{"histogram", "scatter", "heatmap", "bar", "box"} {
		if !types[want] {
			t.Errorf("SuggestPlots() missing %s: %v", want, suggestions)
		}
	}
}

func ExampleAnalyze() {
	headers := []string{"v"}
	rows := [][]string{{"1"}, {"2"}, {"3"}}
	ds, _ := tabular.NewFromRecords(headers, rows)
	result, _ := Analyze(ds, "summary", nil)
	fmt.Println(result.Summary)
	// Output: Dataset has 3 rows and 1 columns. Numeric columns: v. Categorical columns: none. No missing values.
}
