// Package orchestrator 管理对话会话：解析用户意图、执行数据操作、合成回复
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sello-bot/luna-data-science-chatbot/internal/config"
	"github.com/sello-bot/luna-data-science-chatbot/internal/model"
	"github.com/sello-bot/luna-data-science-chatbot/internal/repository"
	"github.com/sello-bot/luna-data-science-chatbot/internal/service/resolver"
	"github.com/sello-bot/luna-data-science-chatbot/internal/service/tabular"
)

// Orchestrator 对话编排器
type Orchestrator struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	cfg   *config.Config
	repos *repository.Repositories
	redis *redis.Client
	llm   *resolver.LLMResolver // 推理服务不可用时为 nil
	rules *resolver.RuleResolver
}

// New 创建编排器。repos、redisClient、llm 均可为 nil（降级运行）。
func New(cfg *config.Config, repos *repository.Repositories, redisClient *redis.Client, llm *resolver.LLMResolver) *Orchestrator {
	return &Orchestrator{
		sessions: make(map[string]*Session),
		cfg:      cfg,
		repos:    repos,
		redis:    redisClient,
		llm:      llm,
		rules:    resolver.NewRuleResolver(),
	}
}

// Reply 一次消息处理的结果
type Reply struct {
	SessionID  string       `json:"session_id"`
	Content    string       `json:"content"`
	Operations []OpOutcome  `json:"operations,omitempty"`
	// 推理服务是否降级为规则解析
	Degraded bool `json:"degraded,omitempty"`
}

// OpOutcome 单个操作的执行结果
type OpOutcome struct {
	Op         string      `json:"op"`
	Summary    string      `json:"summary"`
	Data       interface{} `json:"data,omitempty"`
	ArtifactID string      `json:"artifact_id,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// UploadResult 数据上传结果
type UploadResult struct {
	SessionID   string              `json:"session_id"`
	DatasetID   string              `json:"dataset_id"`
	FileName    string              `json:"file_name"`
	Rows        int                 `json:"rows"`
	Columns     []string            `json:"columns"`
	ColumnKinds map[string]string   `json:"column_kinds"`
	Preview     []map[string]string `json:"preview"`
}

// HandleUpload 加载上传文件并挂到会话，替换已有数据集
func (o *Orchestrator) HandleUpload(ctx context.Context, sessionID, path, fileName string) (*UploadResult, error) {
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	s := o.getOrCreateSession(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := tabular.Load(path)
	if err != nil {
		return nil, err
	}
	s.dataset = ds
	o.touch(ctx, s)

	meta := ds.Metadata()
	record := &model.DatasetRecord{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		FileName:    fileName,
		Format:      meta.Format,
		SourcePath:  path,
		RowCount:    meta.RowCount,
		ColumnCount: meta.ColumnCount,
	}
	if metaJSON, err := json.Marshal(meta); err == nil {
		record.Metadata = string(metaJSON)
	}
	o.persistSession(ctx, sessionID, fileName)
	if o.repos != nil {
		if err := o.repos.Dataset.Create(record); err != nil {
			log.Printf("Warning: failed to persist dataset record: %v", err)
		}
	}

	kinds := make(map[string]string, len(meta.ColumnKinds))
	for name, kind := range meta.ColumnKinds {
		kinds[name] = string(kind)
	}
	return &UploadResult{
		SessionID:   sessionID,
		DatasetID:   record.ID,
		FileName:    fileName,
		Rows:        meta.RowCount,
		Columns:     ds.Columns(),
		ColumnKinds: kinds,
		Preview:     ds.Head(5),
	}, nil
}

// HandleMessage 处理一条用户消息
// 同一会话内的消息按到达顺序串行处理。
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, message string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is empty")
	}
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	s := o.getOrCreateSession(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	in := &resolver.Input{
		Message: message,
		History: append([]resolver.Turn(nil), s.history...),
		Dataset: s.datasetBrief(),
	}

	resolution, degraded := o.resolve(ctx, in)

	reply := &Reply{SessionID: sessionID, Degraded: degraded}
	if len(resolution.Invocations) == 0 {
		reply.Content = resolution.Reply
	} else {
		reply.Operations = o.executeAll(s, resolution.Invocations)
		reply.Content = o.synthesize(ctx, in, resolution, reply.Operations)
	}

	o.appendHistory(s, "user", message)
	o.appendHistory(s, "assistant", reply.Content)
	o.touch(ctx, s)
	o.persistSession(ctx, sessionID, truncateTitle(message))
	o.persistTurn(ctx, sessionID, message, reply)
	return reply, nil
}

// truncateTitle 取消息前缀作为会话标题
func truncateTitle(message string) string {
	const max = 50
	if len(message) <= max {
		return message
	}
	return message[:max] + "..."
}

// resolve 优先使用推理服务，失败时降级到确定性规则（仅影响当前轮次）
func (o *Orchestrator) resolve(ctx context.Context, in *resolver.Input) (*resolver.Resolution, bool) {
	if o.llm != nil {
		resolution, err := o.llm.Resolve(ctx, in)
		if err == nil {
			return resolution, false
		}
		log.Printf("Warning: reasoning service failed, using rule fallback: %v", err)
	}
	return o.rules.Resolve(in), o.llm != nil
}

// executeAll 依次执行操作，单个操作失败不中断其余操作
func (o *Orchestrator) executeAll(s *Session, invocations []resolver.Invocation) []OpOutcome {
	outcomes := make([]OpOutcome, 0, len(invocations))
	for _, inv := range invocations {
		outcome := o.execute(s, inv)
		outcome.Op = string(inv.Op)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// synthesize 合成最终回复
// 推理服务解析的结果交回推理服务收尾，失败或规则解析时拼接操作摘要。
func (o *Orchestrator) synthesize(ctx context.Context, in *resolver.Input, resolution *resolver.Resolution, outcomes []OpOutcome) string {
	summaries := make([]string, len(outcomes))
	for i, out := range outcomes {
		if out.Error != "" {
			summaries[i] = out.Error
		} else {
			summaries[i] = out.Summary
		}
	}

	if o.llm != nil && !resolution.FromFallback {
		content, err := o.llm.Synthesize(ctx, in, resolution.Invocations, summaries)
		if err == nil && content != "" {
			return content
		}
		if err != nil {
			log.Printf("Warning: synthesis failed, returning operation summaries: %v", err)
		}
	}
	return strings.Join(summaries, "\n\n")
}

// persistTurn 将用户与助手消息落库
func (o *Orchestrator) persistTurn(ctx context.Context, sessionID, message string, reply *Reply) {
	if o.repos == nil {
		return
	}

	now := time.Now()
	userMsg := &model.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      "user",
		Content:   message,
		CreatedAt: now,
	}
	assistantMsg := &model.ChatMessage{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      "assistant",
		Content:   reply.Content,
		CreatedAt: now.Add(time.Millisecond),
	}
	if len(reply.Operations) > 0 {
		assistantMsg.Operation = reply.Operations[0].Op
		assistantMsg.ArtifactID = reply.Operations[0].ArtifactID
		if payload, err := json.Marshal(reply.Operations); err == nil {
			assistantMsg.Payload = string(payload)
		}
	}

	if err := o.repos.Chat.CreateMessage(userMsg); err != nil {
		log.Printf("Warning: failed to persist user message: %v", err)
	}
	if err := o.repos.Chat.CreateMessage(assistantMsg); err != nil {
		log.Printf("Warning: failed to persist assistant message: %v", err)
	}
}

// persistSession 确保会话记录存在
func (o *Orchestrator) persistSession(ctx context.Context, sessionID, title string) {
	if o.repos == nil {
		return
	}
	if _, err := o.repos.Chat.GetSessionByID(sessionID); err == nil {
		return
	}
	if title == "" {
		title = "New conversation"
	}
	session := &model.ChatSession{
		ID:     sessionID,
		Title:  title,
		Status: "active",
	}
	if err := o.repos.Chat.CreateSession(session); err != nil {
		log.Printf("Warning: failed to persist session: %v", err)
	}
}

// ListSessions 列出持久化的会话
func (o *Orchestrator) ListSessions(userID string, offset, limit int) ([]*model.ChatSession, error) {
	if o.repos == nil {
		return nil, fmt.Errorf("persistence is not configured")
	}
	return o.repos.Chat.ListSessions(userID, offset, limit)
}

// DeleteSession 删除会话的内存状态与持久化记录
func (o *Orchestrator) DeleteSession(sessionID string) error {
	o.mu.Lock()
	delete(o.sessions, sessionID)
	o.mu.Unlock()

	if o.repos == nil {
		return nil
	}
	return o.repos.Chat.DeleteSession(sessionID)
}

// SessionMessages 读取会话的持久化消息
func (o *Orchestrator) SessionMessages(sessionID string) ([]*model.ChatMessage, error) {
	if o.repos == nil {
		return nil, fmt.Errorf("persistence is not configured")
	}
	return o.repos.Chat.GetMessagesBySessionID(sessionID)
}

// SessionArtifacts 读取会话的副产物记录
func (o *Orchestrator) SessionArtifacts(sessionID, kind string) ([]*model.Artifact, error) {
	if o.repos == nil {
		return nil, fmt.Errorf("persistence is not configured")
	}
	return o.repos.Artifact.ListBySession(sessionID, kind)
}

// Artifact 按 ID 读取副产物记录
func (o *Orchestrator) Artifact(id string) (*model.Artifact, error) {
	if o.repos == nil {
		return nil, fmt.Errorf("persistence is not configured")
	}
	return o.repos.Artifact.GetByID(id)
}
