package resolver

import (
	"regexp"
	"strings"
)

// RuleResolver 确定性规则解析器
// 推理服务不可用时使用，规则按声明顺序匹配，首个命中生效。
type RuleResolver struct {
	rules []rule
}

type rule struct {
	pattern *regexp.Regexp
	resolve func(in *Input, match []string) *Resolution
}

// NewRuleResolver 创建规则解析器
func NewRuleResolver() *RuleResolver {
	r := &RuleResolver{}
	r.rules = []rule{
		{
			pattern: regexp.MustCompile(`(?i)\b(hello|hi|hey|good (morning|afternoon|evening))\b`),
			resolve: func(in *Input, _ []string) *Resolution {
				return &Resolution{Reply: "Hello! Upload a dataset and ask me to analyze it, plot columns, or train a model."}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(bye|goodbye|see you)\b`),
			resolve: func(in *Input, _ []string) *Resolution {
				return &Resolution{Reply: "Goodbye! Come back when you have more data to explore."}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(thanks|thank you)\b`),
			resolve: func(in *Input, _ []string) *Resolution {
				return &Resolution{Reply: "You're welcome!"}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(help|what can you do)\b`),
			resolve: func(in *Input, _ []string) *Resolution {
				return &Resolution{Reply: "I can analyze uploaded tabular data: summaries, missing values, statistics, correlations, charts (histogram, scatter, line, bar, box, heatmap, pairplot), filtering, cleaning, and model training (linear/logistic regression, decision tree, random forest, kmeans)."}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(missing|null|nan)\b`),
			resolve: opRule(OpAnalyze, map[string]interface{}{"analysis_type": "missing_values"}),
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(correlat)`),
			resolve: opRule(OpAnalyze, map[string]interface{}{"analysis_type": "correlations"}),
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(statistics|describe|stats)\b`),
			resolve: opRule(OpAnalyze, map[string]interface{}{"analysis_type": "statistics"}),
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(quality|duplicates?)\b`),
			resolve: opRule(OpQuality, nil),
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(what|which|suggest|recommend)\b.*\b(plot|chart|visuali[sz]ation)s?\b`),
			resolve: opRule(OpSuggestPlots, nil),
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(histogram|scatter|plot|chart|visuali[sz]e|graph)\b`),
			resolve: func(in *Input, match []string) *Resolution {
				plotType := strings.ToLower(match[0])
				if plotType != "histogram" && plotType != "scatter" {
					// 未指明类型时画首个数值列的直方图
					plotType = "histogram"
				}
				args := map[string]interface{}{"plot_type": plotType}
				if col := firstMentionedColumn(in); col != "" {
					args["x"] = col
				}
				return &Resolution{Invocations: []Invocation{{Op: OpVisualize, Args: args}}}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(train|model|predict\w* model|machine learning)\b`),
			resolve: opRule(OpSuggestModels, nil),
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(clean|remove duplicates|drop duplicates)\b`),
			resolve: opRule(OpTransform, map[string]interface{}{"transform": "drop_duplicates"}),
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(reset|undo|start over|original data)\b`),
			resolve: opRule(OpReset, nil),
		},
		{
			pattern: regexp.MustCompile(`(?i)\bexport\b.*\b(csv|xlsx|excel|json|parquet)\b`),
			resolve: func(in *Input, match []string) *Resolution {
				format := strings.ToLower(match[1])
				if format == "excel" {
					format = "xlsx"
				}
				return &Resolution{Invocations: []Invocation{{Op: OpExport, Args: map[string]interface{}{"format": format}}}}
			},
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(sample|show|head|first few|preview)\b`),
			resolve: opRule(OpSample, map[string]interface{}{"position": "head", "rows": float64(5)}),
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(summary|overview|about the data)\b`),
			resolve: opRule(OpAnalyze, map[string]interface{}{"analysis_type": "summary"}),
		},
		{
			pattern: regexp.MustCompile(`(?i)\b(search|find|look ?up)\b\s+(.+)`),
			resolve: func(in *Input, match []string) *Resolution {
				query := strings.TrimSpace(match[2])
				if query == "" {
					return nil
				}
				return &Resolution{Invocations: []Invocation{{Op: OpSearch, Args: map[string]interface{}{"query": query}}}}
			},
		},
	}
	return r
}

func opRule(op Op, args map[string]interface{}) func(*Input, []string) *Resolution {
	return func(*Input, []string) *Resolution {
		return &Resolution{Invocations: []Invocation{{Op: op, Args: args}}}
	}
}

// Resolve 按规则顺序匹配消息，全部未命中时返回兜底回复
// 同样的输入总是产生同样的解析结果。
func (r *RuleResolver) Resolve(in *Input) *Resolution {
	for _, rl := range r.rules {
		match := rl.pattern.FindStringSubmatch(in.Message)
		if match == nil {
			continue
		}
		resolution := rl.resolve(in, match)
		if resolution == nil {
			continue
		}
		resolution.FromFallback = true
		return resolution
	}
	return &Resolution{
		Reply:        "I didn't understand that. Try asking for a summary, statistics, a chart of a column, or model training. Say \"help\" for the full list.",
		FromFallback: true,
	}
}

// firstMentionedColumn 查找消息中提到的首个数据集列名
func firstMentionedColumn(in *Input) string {
	if in.Dataset == nil {
		return ""
	}
	lower := strings.ToLower(in.Message)
	for _, col := range in.Dataset.Columns {
		if strings.Contains(lower, strings.ToLower(col)) {
			return col
		}
	}
	return ""
}
