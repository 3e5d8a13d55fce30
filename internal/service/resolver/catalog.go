// Package resolver 将自然语言消息解析为数据操作调用
package resolver

import (
	"github.com/cloudwego/eino/schema"
)

// Op 数据操作名
type Op string

const (
	OpAnalyze       Op = "analyze_data"
	OpVisualize     Op = "create_visualization"
	OpTrain         Op = "train_model"
	OpFilter        Op = "filter_data"
	OpSample        Op = "get_data_sample"
	OpTransform     Op = "transform_data"
	OpExport        Op = "export_data"
	OpSearch        Op = "search_data"
	OpQuality       Op = "data_quality_report"
	OpPredict       Op = "predict"
	OpReset         Op = "reset_data"
	OpSuggestModels Op = "suggest_models"
	OpSuggestPlots  Op = "suggest_plots"
)

// Invocation 一次操作调用
type Invocation struct {
	Op   Op                     `json:"op"`
	Args map[string]interface{} `json:"args,omitempty"`
	// 推理服务分配的调用 ID，合成回复时回传
	CallID string `json:"call_id,omitempty"`
}

// Resolution 解析结果：操作调用列表，或无需操作时的直接回复
type Resolution struct {
	Invocations []Invocation `json:"invocations,omitempty"`
	Reply       string       `json:"reply,omitempty"`
	// 本次解析是否由确定性规则产生
	FromFallback bool `json:"from_fallback,omitempty"`
}

// DatasetBrief 解析上下文中携带的数据集概要
type DatasetBrief struct {
	FileName    string            `json:"file_name"`
	Rows        int               `json:"rows"`
	Columns     []string          `json:"columns"`
	ColumnKinds map[string]string `json:"column_kinds"`
}

// Turn 历史对话轮次
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Input 解析输入
type Input struct {
	Message string
	History []Turn
	Dataset *DatasetBrief // 未上传数据时为 nil
}

// knownOps 已登记操作集合
var knownOps = map[Op]bool{
	OpAnalyze: true, OpVisualize: true, OpTrain: true, OpFilter: true,
	OpSample: true, OpTransform: true, OpExport: true, OpSearch: true,
	OpQuality: true, OpPredict: true, OpReset: true, OpSuggestModels: true,
	OpSuggestPlots: true,
}

// KnownOp 操作名是否已登记
func KnownOp(name string) bool {
	return knownOps[Op(name)]
}

// Catalog 操作目录，供推理服务做函数调用选择
func Catalog() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: string(OpAnalyze),
			Desc: "Analyze the uploaded dataset: overview, missing values, per-column statistics, or correlations between numeric columns.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"analysis_type": {
					Type:     schema.String,
					Desc:     "One of: summary, missing_values, statistics, correlations",
					Required: true,
				},
				"columns": {
					Type:     schema.Array,
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
					Desc:     "Columns to include for statistics, empty for all",
				},
			}),
		},
		{
			Name: string(OpVisualize),
			Desc: "Create a chart from the dataset. Supported plot types: histogram, scatter, line, bar, box, heatmap, pairplot.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"plot_type": {Type: schema.String, Desc: "Chart type", Required: true},
				"x":         {Type: schema.String, Desc: "X axis column"},
				"y":         {Type: schema.String, Desc: "Y axis column"},
				"color":     {Type: schema.String, Desc: "Column to group scatter points by color"},
				"bins":      {Type: schema.Integer, Desc: "Histogram bin count"},
				"title":     {Type: schema.String, Desc: "Chart title"},
			}),
		},
		{
			Name: string(OpTrain),
			Desc: "Train a machine learning model on the dataset. Supported: linear_regression, logistic_regression, decision_tree, random_forest, kmeans.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"model_type": {Type: schema.String, Desc: "Model type", Required: true},
				"target":     {Type: schema.String, Desc: "Target column for supervised models"},
				"features": {
					Type:     schema.Array,
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
					Desc:     "Feature columns, empty for all numeric columns",
				},
				"test_size": {Type: schema.Number, Desc: "Hold-out fraction, default 0.2"},
				"clusters":  {Type: schema.Integer, Desc: "Cluster count for kmeans, default 3"},
			}),
		},
		{
			Name: string(OpFilter),
			Desc: "Filter dataset rows by a condition on one column. Operators: > < >= <= == != contains.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"column":   {Type: schema.String, Desc: "Column to filter on", Required: true},
				"operator": {Type: schema.String, Desc: "Comparison operator", Required: true},
				"value":    {Type: schema.String, Desc: "Comparison value", Required: true},
			}),
		},
		{
			Name: string(OpSample),
			Desc: "Show sample rows from the dataset.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"position": {Type: schema.String, Desc: "head, tail or random, default head"},
				"rows":     {Type: schema.Integer, Desc: "Number of rows, default 5"},
			}),
		},
		{
			Name: string(OpTransform),
			Desc: "Transform the dataset in place: drop_column, rename_column, fill_missing, retype, drop_duplicates, drop_missing.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"transform": {Type: schema.String, Desc: "Transform name", Required: true},
				"column":    {Type: schema.String, Desc: "Column to operate on"},
				"new_name":  {Type: schema.String, Desc: "New column name for rename_column"},
				"strategy":  {Type: schema.String, Desc: "Fill strategy: mean, median, mode, forward"},
				"kind":      {Type: schema.String, Desc: "Target kind for retype: numeric, categorical, datetime, boolean"},
			}),
		},
		{
			Name: string(OpExport),
			Desc: "Export the current dataset to a file. Formats: csv, xlsx, json, parquet.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"format": {Type: schema.String, Desc: "Export format", Required: true},
			}),
		},
		{
			Name: string(OpSearch),
			Desc: "Search dataset rows containing a text value.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {Type: schema.String, Desc: "Text to search for", Required: true},
				"columns": {
					Type:     schema.Array,
					ElemInfo: &schema.ParameterInfo{Type: schema.String},
					Desc:     "Columns to search in, empty for all",
				},
			}),
		},
		{
			Name:        string(OpQuality),
			Desc:        "Generate a data quality report: missing values, duplicates, column types.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: string(OpPredict),
			Desc: "Predict with a previously trained model.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"model_id": {Type: schema.String, Desc: "ID of the trained model", Required: true},
				"rows": {
					Type:     schema.Array,
					ElemInfo: &schema.ParameterInfo{Type: schema.Object},
					Desc:     "Rows to predict, feature name to value",
					Required: true,
				},
			}),
		},
		{
			Name:        string(OpReset),
			Desc:        "Reset the dataset to its originally uploaded state, undoing all filters and transforms.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
		{
			Name: string(OpSuggestModels),
			Desc: "Suggest suitable machine learning models for the dataset and an optional target column.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"target": {Type: schema.String, Desc: "Target column, empty for clustering suggestions"},
			}),
		},
		{
			Name:        string(OpSuggestPlots),
			Desc:        "Suggest suitable chart types for the dataset based on its column types.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
		},
	}
}
