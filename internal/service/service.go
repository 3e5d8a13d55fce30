// Package service 组装业务服务与 AI 组件
package service

import (
	"context"
	"fmt"
	"log"
	"time"

	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/redis/go-redis/v9"

	"github.com/sello-bot/luna-data-science-chatbot/internal/config"
	"github.com/sello-bot/luna-data-science-chatbot/internal/repository"
	"github.com/sello-bot/luna-data-science-chatbot/internal/service/orchestrator"
	"github.com/sello-bot/luna-data-science-chatbot/internal/service/resolver"
)

// Services 服务集合
type Services struct {
	Orchestrator *orchestrator.Orchestrator
	Config       *config.Config
}

// NewServices 创建所有服务
// 推理服务创建失败时降级运行，消息解析走确定性规则。
func NewServices(repos *repository.Repositories, cfg *config.Config, redisClient *redis.Client) (*Services, error) {
	ctx := context.Background()

	var llm *resolver.LLMResolver
	chatModel, err := newToolCallingChatModel(ctx, cfg)
	if err != nil {
		log.Printf("Warning: failed to create chat model, falling back to rule-based resolution: %v", err)
	} else {
		timeout := time.Duration(cfg.Chat.ResolveTimeout) * time.Second
		llm, err = resolver.NewLLMResolver(chatModel, timeout)
		if err != nil {
			log.Printf("Warning: failed to create resolver: %v", err)
		}
	}

	orch := orchestrator.New(cfg, repos, redisClient, llm)
	orch.StartEviction(ctx)

	return &Services{
		Orchestrator: orch,
		Config:       cfg,
	}, nil
}

// newToolCallingChatModel 创建支持工具调用的 ChatModel
func newToolCallingChatModel(ctx context.Context, cfg *config.Config) (ecomodel.ToolCallingChatModel, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "alibaba", "qwen", "dashscope":
		apiKey = aiCfg.Alibaba.AccessKeySecret
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		modelName = aiCfg.Alibaba.Model
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		modelName = aiCfg.DeepSeek.Model
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api key is not configured for provider %s", aiCfg.Provider)
	}

	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	temperature := float32(0.2)

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       modelName,
		Temperature: &temperature,
	})
}
