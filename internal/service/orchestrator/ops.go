package orchestrator

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sello-bot/luna-data-science-chatbot/internal/model"
	"github.com/sello-bot/luna-data-science-chatbot/internal/service/resolver"
	"github.com/sello-bot/luna-data-science-chatbot/internal/service/tabular"
	"github.com/sello-bot/luna-data-science-chatbot/internal/service/toolkit"
)

// 随机抽样使用的固定种子
const sampleSeed = 42

const noDatasetReply = "No dataset uploaded yet. Please upload a CSV, Excel, JSON or Parquet file first."

// execute 执行单个操作，错误转为面向用户的文字
func (o *Orchestrator) execute(s *Session, inv resolver.Invocation) OpOutcome {
	if s.dataset == nil && inv.Op != resolver.OpPredict {
		return OpOutcome{Error: noDatasetReply}
	}

	var outcome OpOutcome
	var err error
	switch inv.Op {
	case resolver.OpAnalyze:
		outcome, err = o.opAnalyze(s, inv.Args)
	case resolver.OpVisualize:
		outcome, err = o.opVisualize(s, inv.Args)
	case resolver.OpTrain:
		outcome, err = o.opTrain(s, inv.Args)
	case resolver.OpFilter:
		outcome, err = o.opFilter(s, inv.Args)
	case resolver.OpSample:
		outcome, err = o.opSample(s, inv.Args)
	case resolver.OpTransform:
		outcome, err = o.opTransform(s, inv.Args)
	case resolver.OpExport:
		outcome, err = o.opExport(s, inv.Args)
	case resolver.OpSearch:
		outcome, err = o.opSearch(s, inv.Args)
	case resolver.OpQuality:
		outcome = o.opQuality(s)
	case resolver.OpPredict:
		outcome, err = o.opPredict(s, inv.Args)
	case resolver.OpReset:
		outcome = o.opReset(s)
	case resolver.OpSuggestModels:
		outcome, err = o.opSuggestModels(s, inv.Args)
	case resolver.OpSuggestPlots:
		outcome = o.opSuggestPlots(s)
	default:
		err = &resolver.UnknownOperationError{Name: string(inv.Op)}
	}
	if err != nil {
		return OpOutcome{Error: errorReply(err)}
	}
	return outcome
}

// errorReply 将领域错误转为对话回复
func errorReply(err error) string {
	switch err.(type) {
	case *tabular.ColumnNotFoundError:
		return fmt.Sprintf("I couldn't find that column. %s.", capitalizeFirst(err.Error()))
	case *tabular.InsufficientDataError:
		return fmt.Sprintf("There isn't enough data for that: %s.", err.Error())
	case *toolkit.ModelNotFoundError:
		return fmt.Sprintf("%s. Train a model first, then use the model ID from the training result.", capitalizeFirst(err.Error()))
	default:
		return fmt.Sprintf("I couldn't complete that: %s.", err.Error())
	}
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (o *Orchestrator) opAnalyze(s *Session, args map[string]interface{}) (OpOutcome, error) {
	result, err := toolkit.Analyze(s.dataset, argString(args, "analysis_type"), argStrings(args, "columns"))
	if err != nil {
		return OpOutcome{}, err
	}
	return OpOutcome{Summary: result.Summary, Data: result.Data}, nil
}

func (o *Orchestrator) opVisualize(s *Session, args map[string]interface{}) (OpOutcome, error) {
	req := &toolkit.PlotRequest{
		PlotType: argString(args, "plot_type"),
		X:        argString(args, "x"),
		Y:        argString(args, "y"),
		Color:    argString(args, "color"),
		Columns:  argStrings(args, "columns"),
		Bins:     argInt(args, "bins"),
		Title:    argString(args, "title"),
	}
	artifact, err := toolkit.CreatePlot(s.dataset, req, o.cfg.Storage.PlotDir)
	if err != nil {
		return OpOutcome{}, err
	}

	o.persistArtifact(s.ID, &model.Artifact{
		ID:        artifact.ID,
		SessionID: s.ID,
		Kind:      "plot",
		SubType:   artifact.PlotType,
		Path:      artifact.Path,
		Title:     artifact.Title,
	}, artifact.Columns)

	return OpOutcome{
		Summary:    fmt.Sprintf("Created a %s chart (%s) saved as %s.", artifact.PlotType, artifact.Title, filepath.Base(artifact.Path)),
		Data:       artifact,
		ArtifactID: artifact.ID,
	}, nil
}

func (o *Orchestrator) opTrain(s *Session, args map[string]interface{}) (OpOutcome, error) {
	req := &toolkit.TrainRequest{
		ModelType: argString(args, "model_type"),
		Target:    argString(args, "target"),
		Features:  argStrings(args, "features"),
		TestSize:  argFloat(args, "test_size"),
		Clusters:  argInt(args, "clusters"),
	}
	handle, err := toolkit.Train(s.dataset, req)
	if err != nil {
		return OpOutcome{}, err
	}
	s.models.Register(handle)
	o.persistModel(s.ID, handle)

	return OpOutcome{
		Summary:    handle.Summarize(),
		Data:       handle,
		ArtifactID: handle.ID,
	}, nil
}

func (o *Orchestrator) opFilter(s *Session, args map[string]interface{}) (OpOutcome, error) {
	column := argString(args, "column")
	operator := argString(args, "operator")
	value := argString(args, "value")
	before := s.dataset.RowCount()
	kept, err := s.dataset.Filter(column, operator, value)
	if err != nil {
		return OpOutcome{}, err
	}
	removed := before - kept
	return OpOutcome{
		Summary: fmt.Sprintf("Filtered on %s %s %s: removed %d of %d rows, %d remain. Say \"reset\" to restore the original data.",
			column, operator, value, removed, before, kept),
		Data: map[string]int{"rows_before": before, "rows_removed": removed, "rows_after": kept},
	}, nil
}

func (o *Orchestrator) opSample(s *Session, args map[string]interface{}) (OpOutcome, error) {
	n := argInt(args, "rows")
	if n <= 0 {
		n = 5
	}
	position := argString(args, "position")
	var rows []map[string]string
	switch position {
	case "tail":
		rows = s.dataset.Tail(n)
	case "random":
		rows = s.dataset.RandomSample(n, sampleSeed)
	case "head", "":
		rows = s.dataset.Head(n)
	default:
		return OpOutcome{}, fmt.Errorf("unknown sample position: %s (use head, tail or random)", position)
	}
	return OpOutcome{
		Summary: fmt.Sprintf("Showing %d %s rows of %d total.", len(rows), positionLabel(position), s.dataset.RowCount()),
		Data:    rows,
	}, nil
}

func positionLabel(position string) string {
	switch position {
	case "tail":
		return "last"
	case "random":
		return "random"
	default:
		return "first"
	}
}

func (o *Orchestrator) opTransform(s *Session, args map[string]interface{}) (OpOutcome, error) {
	transform := argString(args, "transform")
	column := argString(args, "column")

	switch transform {
	case "drop_column":
		if err := s.dataset.DropColumn(column); err != nil {
			return OpOutcome{}, err
		}
		return OpOutcome{Summary: fmt.Sprintf("Dropped column %s. %d columns remain.", column, s.dataset.ColumnCount())}, nil
	case "rename_column":
		newName := argString(args, "new_name")
		if err := s.dataset.RenameColumn(column, newName); err != nil {
			return OpOutcome{}, err
		}
		return OpOutcome{Summary: fmt.Sprintf("Renamed column %s to %s.", column, newName)}, nil
	case "fill_missing":
		strategy := argString(args, "strategy")
		if strategy == "" {
			strategy = "mean"
		}
		if err := s.dataset.FillMissing(column, strategy); err != nil {
			return OpOutcome{}, err
		}
		return OpOutcome{Summary: fmt.Sprintf("Filled missing values in %s using the %s strategy.", column, strategy)}, nil
	case "retype":
		kind := tabular.ColumnKind(argString(args, "kind"))
		if err := s.dataset.Retype(column, kind); err != nil {
			return OpOutcome{}, err
		}
		return OpOutcome{Summary: fmt.Sprintf("Converted column %s to %s.", column, kind)}, nil
	case "drop_duplicates":
		removed := s.dataset.DropDuplicates()
		return OpOutcome{Summary: fmt.Sprintf("Removed %d duplicate rows. %d rows remain.", removed, s.dataset.RowCount())}, nil
	case "drop_missing":
		var columns []string
		if column != "" {
			columns = []string{column}
		}
		removed, err := s.dataset.DropMissingRows(columns)
		if err != nil {
			return OpOutcome{}, err
		}
		return OpOutcome{Summary: fmt.Sprintf("Removed %d rows with missing values. %d rows remain.", removed, s.dataset.RowCount())}, nil
	default:
		return OpOutcome{}, &tabular.InvalidTransformError{Op: transform, Reason: "unknown transform"}
	}
}

func (o *Orchestrator) opExport(s *Session, args map[string]interface{}) (OpOutcome, error) {
	format := strings.ToLower(argString(args, "format"))
	if format == "" {
		format = "csv"
	}
	path := filepath.Join(o.cfg.Storage.ExportDir, fmt.Sprintf("export_%s.%s", uuid.New().String(), format))
	if err := tabular.Export(s.dataset, format, path); err != nil {
		return OpOutcome{}, err
	}
	return OpOutcome{
		Summary: fmt.Sprintf("Exported %d rows to %s.", s.dataset.RowCount(), filepath.Base(path)),
		Data:    map[string]string{"path": path, "format": format},
	}, nil
}

func (o *Orchestrator) opSearch(s *Session, args map[string]interface{}) (OpOutcome, error) {
	query := argString(args, "query")
	if query == "" {
		return OpOutcome{}, fmt.Errorf("search query is empty")
	}
	rows, err := s.dataset.Search(query, argStrings(args, "columns"), 20)
	if err != nil {
		return OpOutcome{}, err
	}
	return OpOutcome{
		Summary: fmt.Sprintf("Found %d rows containing %q.", len(rows), query),
		Data:    rows,
	}, nil
}

func (o *Orchestrator) opQuality(s *Session) OpOutcome {
	report := s.dataset.Quality()
	return OpOutcome{
		Summary: fmt.Sprintf("Quality report: %d rows, %d columns, %d missing cells, %d duplicate rows.",
			report.TotalRows, report.TotalColumns, report.MissingCells, report.DuplicateRows),
		Data: report,
	}
}

func (o *Orchestrator) opPredict(s *Session, args map[string]interface{}) (OpOutcome, error) {
	modelID := argString(args, "model_id")
	rows := argRows(args, "rows")
	if len(rows) == 0 {
		return OpOutcome{}, fmt.Errorf("no rows given to predict")
	}
	predictions, err := s.models.Predict(modelID, rows)
	if err != nil {
		return OpOutcome{}, err
	}
	return OpOutcome{
		Summary: fmt.Sprintf("Predictions: %s.", strings.Join(predictions, ", ")),
		Data:    predictions,
	}, nil
}

func (o *Orchestrator) opReset(s *Session) OpOutcome {
	s.dataset.Reset()
	return OpOutcome{
		Summary: fmt.Sprintf("Restored the originally uploaded data: %d rows, %d columns.", s.dataset.RowCount(), s.dataset.ColumnCount()),
	}
}

func (o *Orchestrator) opSuggestModels(s *Session, args map[string]interface{}) (OpOutcome, error) {
	suggestions, err := toolkit.SuggestModels(s.dataset, argString(args, "target"))
	if err != nil {
		return OpOutcome{}, err
	}
	parts := make([]string, len(suggestions))
	for i, sg := range suggestions {
		parts[i] = fmt.Sprintf("%s (%s): %s", sg.ModelType, sg.Problem, sg.Reason)
	}
	return OpOutcome{
		Summary: "Suggested models: " + strings.Join(parts, "; ") + ".",
		Data:    suggestions,
	}, nil
}

func (o *Orchestrator) opSuggestPlots(s *Session) OpOutcome {
	suggestions := toolkit.SuggestPlots(s.dataset)
	if len(suggestions) == 0 {
		return OpOutcome{Summary: "No chart suggestions for this dataset."}
	}
	parts := make([]string, len(suggestions))
	for i, sg := range suggestions {
		if len(sg.Columns) > 0 {
			parts[i] = fmt.Sprintf("%s of %s (%s)", sg.PlotType, strings.Join(sg.Columns, ", "), sg.Reason)
		} else {
			parts[i] = fmt.Sprintf("%s (%s)", sg.PlotType, sg.Reason)
		}
	}
	return OpOutcome{
		Summary: "Suggested charts: " + strings.Join(parts, "; ") + ".",
		Data:    suggestions,
	}
}

// persistArtifact 落库图表记录
func (o *Orchestrator) persistArtifact(sessionID string, a *model.Artifact, columns []string) {
	if o.repos == nil {
		return
	}
	if len(columns) > 0 {
		if cols, err := jsonMarshal(columns); err == nil {
			a.SourceColumns = cols
		}
	}
	if err := o.repos.Artifact.Create(a); err != nil {
		log.Printf("Warning: failed to persist artifact: %v", err)
	}
}

// persistModel 序列化模型参数并落库，同时写入模型目录
func (o *Orchestrator) persistModel(sessionID string, handle *toolkit.ModelHandle) {
	blob, err := handle.MarshalParams()
	if err != nil {
		log.Printf("Warning: failed to serialize model %s: %v", handle.ID, err)
		return
	}

	if o.cfg.Storage.ModelDir != "" {
		if err := os.MkdirAll(o.cfg.Storage.ModelDir, 0o755); err == nil {
			path := filepath.Join(o.cfg.Storage.ModelDir, "model_"+handle.ID+".json")
			if err := os.WriteFile(path, blob, 0o644); err != nil {
				log.Printf("Warning: failed to write model file: %v", err)
			}
		}
	}

	if o.repos == nil {
		return
	}
	record := &model.TrainedModel{
		ID:        handle.ID,
		SessionID: sessionID,
		ModelType: handle.ModelType,
		Target:    handle.Target,
		Blob:      blob,
	}
	if features, err := jsonMarshal(handle.Features); err == nil {
		record.Features = features
	}
	if metrics, err := jsonMarshal(handle.Metrics); err == nil {
		record.Metrics = metrics
	}
	if err := o.repos.Model.Create(record); err != nil {
		log.Printf("Warning: failed to persist trained model: %v", err)
	}
}

// ========== 参数读取 ==========

func argString(args map[string]interface{}, key string) string {
	if args == nil {
		return ""
	}
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func argInt(args map[string]interface{}, key string) int {
	if args == nil {
		return 0
	}
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func argFloat(args map[string]interface{}, key string) float64 {
	if args == nil {
		return 0
	}
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func argStrings(args map[string]interface{}, key string) []string {
	if args == nil {
		return nil
	}
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// argRows 读取预测输入行
func argRows(args map[string]interface{}, key string) []map[string]string {
	if args == nil {
		return nil
	}
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	rows := make([]map[string]string, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		row := make(map[string]string, len(obj))
		for k, v := range obj {
			switch x := v.(type) {
			case string:
				row[k] = x
			case float64:
				row[k] = fmt.Sprintf("%g", x)
			case bool:
				row[k] = fmt.Sprintf("%t", x)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func jsonMarshal(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	return string(data), err
}
