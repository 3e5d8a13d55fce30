package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"
)

const systemPromptTemplate = `You are a data analysis assistant. Users upload tabular datasets and ask questions about them in natural language.

Decide which data operations answer the user's request and call them. When no operation is needed (greetings, questions about your abilities), reply directly without calling anything.

Rules:
- Only reference columns that exist in the dataset schema below.
- When the user asks about data but no dataset is uploaded, tell them to upload a file first.
- Keep replies short and factual.`

// LLMResolver 基于工具调用的意图解析器
type LLMResolver struct {
	chatModel model.ToolCallingChatModel // 已绑定操作目录
	timeout   time.Duration
}

// NewLLMResolver 创建解析器，将操作目录绑定到 ChatModel
func NewLLMResolver(chatModel model.ToolCallingChatModel, timeout time.Duration) (*LLMResolver, error) {
	bound, err := chatModel.WithTools(Catalog())
	if err != nil {
		return nil, fmt.Errorf("failed to bind operation catalog: %w", err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LLMResolver{chatModel: bound, timeout: timeout}, nil
}

// Resolve 将用户消息解析为操作调用或直接回复
func (r *LLMResolver) Resolve(ctx context.Context, in *Input) (*Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.chatModel.Generate(ctx, r.buildMessages(in))
	if err != nil {
		return nil, &ReasoningUnavailableError{Reason: err.Error()}
	}

	if len(resp.ToolCalls) == 0 {
		return &Resolution{Reply: resp.Content}, nil
	}

	invocations := make([]Invocation, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		if !KnownOp(tc.Function.Name) {
			return nil, &UnknownOperationError{Name: tc.Function.Name}
		}
		args, err := parseArguments(tc.Function.Arguments)
		if err != nil {
			return nil, &ReasoningUnavailableError{Reason: fmt.Sprintf("malformed arguments for %s: %v", tc.Function.Name, err)}
		}
		invocations = append(invocations, Invocation{
			Op:     Op(tc.Function.Name),
			Args:   args,
			CallID: tc.ID,
		})
	}
	return &Resolution{Invocations: invocations}, nil
}

// Synthesize 将操作执行结果交回推理服务，合成面向用户的回复
// results 与 invocations 一一对应，为各操作的文字摘要
func (r *LLMResolver) Synthesize(ctx context.Context, in *Input, invocations []Invocation, results []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	messages := r.buildMessages(in)

	assistant := &schema.Message{Role: schema.Assistant}
	for _, inv := range invocations {
		argsJSON, _ := json.Marshal(inv.Args)
		assistant.ToolCalls = append(assistant.ToolCalls, schema.ToolCall{
			ID: inv.CallID,
			Function: schema.FunctionCall{
				Name:      string(inv.Op),
				Arguments: string(argsJSON),
			},
		})
	}
	messages = append(messages, assistant)
	for i, inv := range invocations {
		content := ""
		if i < len(results) {
			content = results[i]
		}
		messages = append(messages, &schema.Message{
			Role:       schema.Tool,
			Content:    content,
			ToolCallID: inv.CallID,
		})
	}

	resp, err := r.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", &ReasoningUnavailableError{Reason: err.Error()}
	}
	return resp.Content, nil
}

// buildMessages 组装系统提示、数据集概要、历史与当前消息
func (r *LLMResolver) buildMessages(in *Input) []*schema.Message {
	var sb strings.Builder
	sb.WriteString(systemPromptTemplate)
	if in.Dataset != nil {
		sb.WriteString("\n\nDataset schema:\n")
		fmt.Fprintf(&sb, "- file: %s, rows: %d\n", in.Dataset.FileName, in.Dataset.Rows)
		for _, col := range in.Dataset.Columns {
			fmt.Fprintf(&sb, "- %s (%s)\n", col, in.Dataset.ColumnKinds[col])
		}
	} else {
		sb.WriteString("\n\nNo dataset uploaded yet.")
	}

	messages := []*schema.Message{{Role: schema.System, Content: sb.String()}}
	for _, turn := range in.History {
		role := schema.User
		if turn.Role == "assistant" {
			role = schema.Assistant
		}
		messages = append(messages, &schema.Message{Role: role, Content: turn.Content})
	}
	return append(messages, &schema.Message{Role: schema.User, Content: in.Message})
}

// parseArguments 解析工具调用参数，语法损坏时先修复再解析
func parseArguments(raw string) (map[string]interface{}, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &args); err == nil {
		return args, nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return nil, err
	}
	log.Printf("Warning: repaired malformed tool arguments: %s", raw)
	if err := json.Unmarshal([]byte(repaired), &args); err != nil {
		return nil, err
	}
	return args, nil
}
