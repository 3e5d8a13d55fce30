package resolver

import (
	"testing"
)

// ========== 规则解析测试 ==========

func fallbackInput(message string) *Input {
	return &Input{
		Message: message,
		Dataset: &DatasetBrief{
			FileName: "sales.csv",
			Rows:     100,
			Columns:  []string{"region", "revenue", "units"},
			ColumnKinds: map[string]string{
				"region": "categorical", "revenue": "numeric", "units": "numeric",
			},
		},
	}
}

func TestRuleResolverOperations(t *testing.T) {
	r := NewRuleResolver()

	tests := []struct {
		name    string
		message string
		wantOp  Op
	}{
		{"missing values", "how many missing values are there?", OpAnalyze},
		{"correlations", "show correlations between columns", OpAnalyze},
		{"statistics", "describe the revenue column", OpAnalyze},
		{"quality", "are there duplicates in the data?", OpQuality},
		{"visualization", "draw a histogram of revenue", OpVisualize},
		{"training", "train a model on this data", OpSuggestModels},
		{"plot suggestions", "what chart should I use?", OpSuggestPlots},
		{"plot recommendations", "recommend some plots for this data", OpSuggestPlots},
		{"cleaning", "please clean the data", OpTransform},
		{"reset", "reset to the original data", OpReset},
		{"export", "export this as csv please", OpExport},
		{"sample", "show me the first few rows", OpSample},
		{"summary", "give me an overview", OpAnalyze},
		{"search", "find rows with Tokyo", OpSearch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolution := r.Resolve(fallbackInput(tt.message))
			if !resolution.FromFallback {
				t.Error("FromFallback = false, want true")
			}
			if len(resolution.Invocations) != 1 {
				t.Fatalf("Invocations = %v, want exactly one", resolution.Invocations)
			}
			if resolution.Invocations[0].Op != tt.wantOp {
				t.Errorf("Op = %s, want %s", resolution.Invocations[0].Op, tt.wantOp)
			}
		})
	}
}

func TestRuleResolverDirectReplies(t *testing.T) {
	r := NewRuleResolver()

	tests := []struct {
		name    string
		message string
	}{
		{"greeting", "hello there"},
		{"farewell", "ok bye"},
		{"thanks", "thanks a lot"},
		{"help", "what can you do?"},
		{"unintelligible", "qwertyuiop zxcvbnm"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolution := r.Resolve(fallbackInput(tt.message))
			if len(resolution.Invocations) != 0 {
				t.Errorf("Invocations = %v, want none", resolution.Invocations)
			}
			if resolution.Reply == "" {
				t.Error("Reply is empty, want canned response")
			}
		})
	}
}

func TestRuleResolverDeterministic(t *testing.T) {
	r := NewRuleResolver()
	in := fallbackInput("show correlations")

	a := r.Resolve(in)
	b := r.Resolve(in)
	if a.Invocations[0].Op != b.Invocations[0].Op {
		t.Errorf("same input produced different ops: %s vs %s", a.Invocations[0].Op, b.Invocations[0].Op)
	}
}

func TestRuleResolverColumnMention(t *testing.T) {
	r := NewRuleResolver()

	resolution := r.Resolve(fallbackInput("histogram of revenue please"))
	if len(resolution.Invocations) != 1 {
		t.Fatalf("Invocations = %v, want one", resolution.Invocations)
	}
	args := resolution.Invocations[0].Args
	if args["x"] != "revenue" {
		t.Errorf("args[x] = %v, want revenue", args["x"])
	}
}

func TestRuleResolverSearchQuery(t *testing.T) {
	r := NewRuleResolver()

	resolution := r.Resolve(fallbackInput("find rows with Tokyo"))
	if len(resolution.Invocations) != 1 {
		t.Fatalf("Invocations = %v, want one", resolution.Invocations)
	}
	if resolution.Invocations[0].Args["query"] != "rows with Tokyo" {
		t.Errorf("query = %v, want %q", resolution.Invocations[0].Args["query"], "rows with Tokyo")
	}
}

// ========== 目录与参数解析测试 ==========

func TestCatalogCoversKnownOps(t *testing.T) {
	catalog := Catalog()
	if len(catalog) != len(knownOps) {
		t.Errorf("catalog size = %d, want %d", len(catalog), len(knownOps))
	}
	for _, info := range catalog {
		if !KnownOp(info.Name) {
			t.Errorf("catalog entry %s is not a known op", info.Name)
		}
	}
}

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKey string
		wantErr bool
	}{
		{"valid json", `{"plot_type":"scatter"}`, "plot_type", false},
		{"empty arguments", "", "", false},
		{"repairable json", `{"plot_type":'scatter',}`, "plot_type", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := parseArguments(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseArguments() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantKey != "" {
				if _, ok := args[tt.wantKey]; !ok {
					t.Errorf("args missing key %s: %v", tt.wantKey, args)
				}
			}
		})
	}
}
