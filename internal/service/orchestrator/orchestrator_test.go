package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/sello-bot/luna-data-science-chatbot/internal/config"
	"github.com/sello-bot/luna-data-science-chatbot/internal/service/resolver"
)

// ========== 测试环境 ==========

// newTestOrchestrator 无数据库、无 Redis、无推理服务的编排器
// 解析全部走确定性规则。
func newTestOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			UploadDir: filepath.Join(dir, "uploads"),
			PlotDir:   filepath.Join(dir, "plots"),
			ModelDir:  filepath.Join(dir, "models"),
			ExportDir: filepath.Join(dir, "exports"),
		},
		Chat: config.ChatConfig{
			MaxHistoryTurns:    10,
			SessionIdleTimeout: 3600,
			ResolveTimeout:     60,
		},
	}
	return New(cfg, nil, nil, nil)
}

func uploadCSV(t *testing.T, o *Orchestrator, sessionID string) *UploadResult {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.csv")
	content := "name,age,salary,city\n"
	for i := 0; i < 30; i++ {
		city := "Tokyo"
		if i%3 == 0 {
			city = "Osaka"
		}
		content += fmt.Sprintf("person%d,%d,%d,%s\n", i, 20+i, 40000+i*1000, city)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}

	result, err := o.HandleUpload(context.Background(), sessionID, path, "people.csv")
	if err != nil {
		t.Fatalf("HandleUpload() error = %v", err)
	}
	return result
}

// ========== 上传测试 ==========

func TestHandleUpload(t *testing.T) {
	o := newTestOrchestrator(t)

	result := uploadCSV(t, o, "s1")
	if result.SessionID != "s1" {
		t.Errorf("SessionID = %s, want s1", result.SessionID)
	}
	if result.Rows != 30 {
		t.Errorf("Rows = %d, want 30", result.Rows)
	}
	if len(result.Columns) != 4 {
		t.Errorf("Columns = %v, want 4 columns", result.Columns)
	}
	if result.ColumnKinds["age"] != "numeric" || result.ColumnKinds["city"] != "categorical" {
		t.Errorf("ColumnKinds = %v", result.ColumnKinds)
	}
	if len(result.Preview) != 5 {
		t.Errorf("Preview rows = %d, want 5", len(result.Preview))
	}
}

func TestHandleUploadGeneratesSessionID(t *testing.T) {
	o := newTestOrchestrator(t)
	result := uploadCSV(t, o, "")
	if result.SessionID == "" {
		t.Error("SessionID is empty, want generated ID")
	}
}

func TestHandleUploadUnsupportedFormat(t *testing.T) {
	o := newTestOrchestrator(t)
	path := filepath.Join(t.TempDir(), "data.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := o.HandleUpload(context.Background(), "s1", path, "data.txt"); err == nil {
		t.Error("expected error for unsupported format, got nil")
	}
}

// ========== 消息处理测试 ==========

func TestHandleMessageDirectReply(t *testing.T) {
	o := newTestOrchestrator(t)

	reply, err := o.HandleMessage(context.Background(), "s1", "hello")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if reply.Content == "" {
		t.Error("Content is empty, want greeting")
	}
	if len(reply.Operations) != 0 {
		t.Errorf("Operations = %v, want none", reply.Operations)
	}
}

func TestHandleMessageWithoutDataset(t *testing.T) {
	o := newTestOrchestrator(t)

	reply, err := o.HandleMessage(context.Background(), "s1", "how many missing values are there?")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !strings.Contains(reply.Content, "upload") {
		t.Errorf("Content = %q, want upload prompt", reply.Content)
	}
}

func TestHandleMessageAnalyze(t *testing.T) {
	o := newTestOrchestrator(t)
	uploadCSV(t, o, "s1")

	reply, err := o.HandleMessage(context.Background(), "s1", "give me an overview")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(reply.Operations) != 1 || reply.Operations[0].Op != "analyze_data" {
		t.Fatalf("Operations = %v, want analyze_data", reply.Operations)
	}
	if !strings.Contains(reply.Content, "30 rows") {
		t.Errorf("Content = %q, want row count mention", reply.Content)
	}
}

func TestHandleMessageVisualize(t *testing.T) {
	o := newTestOrchestrator(t)
	uploadCSV(t, o, "s1")

	reply, err := o.HandleMessage(context.Background(), "s1", "draw a histogram of age")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(reply.Operations) != 1 {
		t.Fatalf("Operations = %v, want one", reply.Operations)
	}
	out := reply.Operations[0]
	if out.Error != "" {
		t.Fatalf("operation error: %s", out.Error)
	}
	if out.ArtifactID == "" {
		t.Error("ArtifactID is empty, want plot artifact")
	}
}

func TestHandleMessageFilterAndReset(t *testing.T) {
	o := newTestOrchestrator(t)
	uploadCSV(t, o, "s1")
	ctx := context.Background()

	s := o.getOrCreateSession("s1")
	if _, err := s.dataset.Filter("age", ">", "40"); err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if s.dataset.RowCount() == 30 {
		t.Fatal("filter had no effect")
	}

	reply, err := o.HandleMessage(ctx, "s1", "reset to the original data")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(reply.Operations) != 1 || reply.Operations[0].Op != "reset_data" {
		t.Fatalf("Operations = %v, want reset_data", reply.Operations)
	}
	if s.dataset.RowCount() != 30 {
		t.Errorf("RowCount = %d after reset, want 30", s.dataset.RowCount())
	}
}

func TestHandleMessageSuggestPlots(t *testing.T) {
	o := newTestOrchestrator(t)
	uploadCSV(t, o, "s1")

	reply, err := o.HandleMessage(context.Background(), "s1", "what chart should I use?")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(reply.Operations) != 1 || reply.Operations[0].Op != "suggest_plots" {
		t.Fatalf("Operations = %v, want suggest_plots", reply.Operations)
	}
	// 数据集含数值列与类别列，应推荐直方图
	if !strings.Contains(reply.Content, "histogram") {
		t.Errorf("Content = %q, want histogram suggestion", reply.Content)
	}
}

func TestFilterReportsRemovedRows(t *testing.T) {
	o := newTestOrchestrator(t)
	uploadCSV(t, o, "s1")
	s := o.getOrCreateSession("s1")

	out := o.execute(s, resolver.Invocation{
		Op:   resolver.OpFilter,
		Args: map[string]interface{}{"column": "age", "operator": ">", "value": "40"},
	})
	if out.Error != "" {
		t.Fatalf("filter error: %s", out.Error)
	}
	// 年龄 20..49，>40 保留 9 行，删除 21 行
	if !strings.Contains(out.Summary, "removed 21 of 30 rows") {
		t.Errorf("Summary = %q, want removed/total counts", out.Summary)
	}
	counts, ok := out.Data.(map[string]int)
	if !ok {
		t.Fatalf("Data type = %T, want map[string]int", out.Data)
	}
	if counts["rows_removed"] != 21 || counts["rows_after"] != 9 {
		t.Errorf("counts = %v, want rows_removed 21, rows_after 9", counts)
	}
}

func TestHandleMessageEmpty(t *testing.T) {
	o := newTestOrchestrator(t)
	if _, err := o.HandleMessage(context.Background(), "s1", "   "); err == nil {
		t.Error("expected error for empty message, got nil")
	}
}

func TestHandleMessageUnknownColumnSuggestion(t *testing.T) {
	o := newTestOrchestrator(t)
	uploadCSV(t, o, "s1")

	// 规则解析会把提到的列名放进参数，Age 大小写不符但应得到建议
	reply, err := o.HandleMessage(context.Background(), "s1", "draw a histogram of AGE")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(reply.Operations) != 1 {
		t.Fatalf("Operations = %v, want one", reply.Operations)
	}
	// 规则解析做大小写不敏感列匹配，应直接命中 age 列
	if reply.Operations[0].Error != "" {
		t.Errorf("operation error = %q, want success via case-insensitive match", reply.Operations[0].Error)
	}
}

// ========== 会话管理测试 ==========

func TestHistoryWindow(t *testing.T) {
	o := newTestOrchestrator(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if _, err := o.HandleMessage(ctx, "s1", "hello"); err != nil {
			t.Fatalf("HandleMessage() error = %v", err)
		}
	}

	s := o.getOrCreateSession("s1")
	if len(s.history) > o.cfg.Chat.MaxHistoryTurns*2 {
		t.Errorf("history length = %d, want <= %d", len(s.history), o.cfg.Chat.MaxHistoryTurns*2)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	o := newTestOrchestrator(t)
	uploadCSV(t, o, "s1")

	reply, err := o.HandleMessage(context.Background(), "s2", "give me an overview")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	// s2 没有数据集，不应看到 s1 的数据
	if !strings.Contains(reply.Content, "upload") {
		t.Errorf("Content = %q, want upload prompt for fresh session", reply.Content)
	}
}

func TestConcurrentMessagesSameSession(t *testing.T) {
	o := newTestOrchestrator(t)
	uploadCSV(t, o, "s1")
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.HandleMessage(ctx, "s1", "give me an overview"); err != nil {
				t.Errorf("HandleMessage() error = %v", err)
			}
		}()
	}
	wg.Wait()

	s := o.getOrCreateSession("s1")
	// 每条消息追加用户与助手两条历史
	if len(s.history) != 16 {
		t.Errorf("history length = %d, want 16", len(s.history))
	}
}

func TestEvictIdle(t *testing.T) {
	o := newTestOrchestrator(t)
	o.cfg.Chat.SessionIdleTimeout = 0 // 立即过期

	uploadCSV(t, o, "s1")
	uploadCSV(t, o, "s2")

	evicted := o.EvictIdle()
	if evicted != 2 {
		t.Errorf("EvictIdle() = %d, want 2", evicted)
	}

	o.mu.RLock()
	remaining := len(o.sessions)
	o.mu.RUnlock()
	if remaining != 0 {
		t.Errorf("sessions remaining = %d, want 0", remaining)
	}
}
