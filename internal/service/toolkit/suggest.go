package toolkit

import (
	"fmt"

	"github.com/sello-bot/luna-data-science-chatbot/internal/service/tabular"
)

// ModelSuggestion 模型推荐
type ModelSuggestion struct {
	ModelType string `json:"model_type"`
	Problem   string `json:"problem"`
	Reason    string `json:"reason"`
}

// SuggestModels 根据目标列特征推荐合适的模型
// 无目标列时推荐聚类，类别目标或低基数数值目标推荐分类，其余推荐回归
func SuggestModels(ds *tabular.Dataset, target string) ([]ModelSuggestion, error) {
	if target == "" {
		return []ModelSuggestion{
			{ModelType: "kmeans", Problem: "clustering", Reason: "no target column given, clustering groups similar rows"},
		}, nil
	}

	col, err := ds.Column(target)
	if err != nil {
		return nil, err
	}

	distinct := make(map[string]bool)
	for i := range col.Cells {
		if !col.Cells[i].Missing {
			distinct[col.Cells[i].Raw] = true
		}
	}

	numeric := col.Kind == tabular.KindNumeric
	if !numeric || len(distinct) < classifyDistinct {
		out := []ModelSuggestion{
			{ModelType: "random_forest", Problem: "classification", Reason: "robust default for classification, handles non-linear boundaries"},
			{ModelType: "decision_tree", Problem: "classification", Reason: "interpretable rules over the feature columns"},
		}
		if len(distinct) == 2 {
			out = append(out, ModelSuggestion{
				ModelType: "logistic_regression", Problem: "classification",
				Reason: fmt.Sprintf("target %s is binary", target),
			})
		}
		return out, nil
	}

	return []ModelSuggestion{
		{ModelType: "linear_regression", Problem: "regression", Reason: fmt.Sprintf("target %s is continuous", target)},
		{ModelType: "random_forest", Problem: "regression", Reason: "captures non-linear relationships"},
		{ModelType: "decision_tree", Problem: "regression", Reason: "interpretable splits over the feature columns"},
	}, nil
}

// PlotSuggestion 图表推荐
type PlotSuggestion struct {
	PlotType string   `json:"plot_type"`
	Columns  []string `json:"columns,omitempty"`
	Reason   string   `json:"reason"`
}

// SuggestPlots 根据列类型组合推荐图表
func SuggestPlots(ds *tabular.Dataset) []PlotSuggestion {
	numeric := ds.NumericColumns()
	categorical := ds.CategoricalColumns()

	var out []PlotSuggestion
	if len(numeric) >= 1 {
		out = append(out, PlotSuggestion{
			PlotType: "histogram", Columns: numeric[:1],
			Reason: "distribution of a numeric column",
		})
	}
	if len(numeric) >= 2 {
		out = append(out, PlotSuggestion{
			PlotType: "scatter", Columns: numeric[:2],
			Reason: "relationship between two numeric columns",
		})
		out = append(out, PlotSuggestion{
			PlotType: "heatmap",
			Reason:   "correlation overview across numeric columns",
		})
	}
	if len(categorical) >= 1 {
		out = append(out, PlotSuggestion{
			PlotType: "bar", Columns: categorical[:1],
			Reason: "value counts of a categorical column",
		})
	}
	if len(categorical) >= 1 && len(numeric) >= 1 {
		out = append(out, PlotSuggestion{
			PlotType: "box", Columns: []string{categorical[0], numeric[0]},
			Reason: "numeric spread per category",
		})
	}
	return out
}
