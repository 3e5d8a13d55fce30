package orchestrator

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/sello-bot/luna-data-science-chatbot/internal/service/resolver"
	"github.com/sello-bot/luna-data-science-chatbot/internal/service/tabular"
	"github.com/sello-bot/luna-data-science-chatbot/internal/service/toolkit"
)

const sessionKeyPrefix = "luna:session:"

// Session 单个会话的内存状态
// mu 串行化同一会话内的消息处理，保证按到达顺序生效
type Session struct {
	ID string

	mu         sync.Mutex
	dataset    *tabular.Dataset
	models     *toolkit.Registry
	history    []resolver.Turn
	lastActive time.Time
}

// sessionMeta Redis 中镜像的会话元信息
type sessionMeta struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name,omitempty"`
	Rows       int       `json:"rows,omitempty"`
	Columns    int       `json:"columns,omitempty"`
	LastActive time.Time `json:"last_active"`
}

// getOrCreateSession 查找或创建会话，读锁快路径
func (o *Orchestrator) getOrCreateSession(id string) *Session {
	o.mu.RLock()
	s, ok := o.sessions[id]
	o.mu.RUnlock()
	if ok {
		return s
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.sessions[id]; ok {
		return s
	}
	s = &Session{
		ID:         id,
		models:     toolkit.NewRegistry(),
		lastActive: time.Now(),
	}
	o.sessions[id] = s
	return s
}

// touch 更新活跃时间并镜像到 Redis
func (o *Orchestrator) touch(ctx context.Context, s *Session) {
	s.lastActive = time.Now()
	if o.redis == nil {
		return
	}

	meta := sessionMeta{ID: s.ID, LastActive: s.lastActive}
	if s.dataset != nil {
		m := s.dataset.Metadata()
		meta.FileName = m.FileName
		meta.Rows = m.RowCount
		meta.Columns = m.ColumnCount
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return
	}
	ttl := time.Duration(o.cfg.Chat.SessionIdleTimeout) * time.Second
	if err := o.redis.Set(ctx, sessionKeyPrefix+s.ID, data, ttl).Err(); err != nil {
		log.Printf("Warning: failed to mirror session %s to redis: %v", s.ID, err)
	}
}

// EvictIdle 淘汰空闲超时的会话，返回淘汰数量
func (o *Orchestrator) EvictIdle() int {
	timeout := time.Duration(o.cfg.Chat.SessionIdleTimeout) * time.Second
	cutoff := time.Now().Add(-timeout)

	o.mu.Lock()
	defer o.mu.Unlock()
	evicted := 0
	for id, s := range o.sessions {
		// 正在处理消息的会话不淘汰
		if !s.mu.TryLock() {
			continue
		}
		idle := s.lastActive.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(o.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		log.Printf("Evicted %d idle sessions", evicted)
	}
	return evicted
}

// StartEviction 启动后台空闲会话清理
func (o *Orchestrator) StartEviction(ctx context.Context) {
	interval := time.Duration(o.cfg.Chat.SessionIdleTimeout) * time.Second / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				o.EvictIdle()
			}
		}
	}()
}

// appendHistory 追加对话轮次并按窗口截断
func (o *Orchestrator) appendHistory(s *Session, role, content string) {
	s.history = append(s.history, resolver.Turn{Role: role, Content: content})
	max := o.cfg.Chat.MaxHistoryTurns * 2 // 每轮含用户与助手各一条
	if max > 0 && len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
}

// datasetBrief 构建解析上下文的数据集概要
func (s *Session) datasetBrief() *resolver.DatasetBrief {
	if s.dataset == nil {
		return nil
	}
	m := s.dataset.Metadata()
	kinds := make(map[string]string, len(m.ColumnKinds))
	for name, kind := range m.ColumnKinds {
		kinds[name] = string(kind)
	}
	return &resolver.DatasetBrief{
		FileName:    m.FileName,
		Rows:        m.RowCount,
		Columns:     s.dataset.Columns(),
		ColumnKinds: kinds,
	}
}
