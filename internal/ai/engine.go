// Package ai adapts the eino model stack into the completion engine the
// cortex session drives: provider construction, the react agent loop, and
// the tool registry.
package ai

import (
	"context"
	"fmt"

	"cortexchat/internal/config"
	"cortexchat/internal/models"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const defaultMaxSteps = 50

// EngineConfig describes one completion engine instance. Engines are cheap
// and constructed per request so routing and provider changes apply
// immediately.
type EngineConfig struct {
	Provider     string
	ProviderConf config.ProviderConfig
	Model        string
	SystemPrompt string
	MaxSteps     int
	Tools        []tool.BaseTool
}

// Engine runs one completion: system prompt, prior turns, then the inbound
// prompt, with tool calling when tools are configured.
type Engine struct {
	chatModel    model.ToolCallingChatModel
	agent        *react.Agent
	systemPrompt string
}

// NewEngine builds the chat model for the configured provider and, when
// tools are present, wraps it in a react agent with a bounded step count.
func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	var (
		chatModel model.ToolCallingChatModel
		err       error
	)
	modelName := cfg.Model
	if modelName == "" {
		modelName = cfg.ProviderConf.Model
	}

	switch cfg.Provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.ProviderConf.BaseURL,
			Model:   modelName,
			APIKey:  cfg.ProviderConf.APIKey,
		})
	case "gemini":
		var client *genai.Client
		client, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: cfg.ProviderConf.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
			ThinkingConfig: &genai.ThinkingConfig{
				IncludeThoughts: true,
				ThinkingBudget:  nil,
			},
		})
	case "claude":
		var baseURLPtr *string
		if cfg.ProviderConf.BaseURL != "" {
			baseURLPtr = &cfg.ProviderConf.BaseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.ProviderConf.APIKey,
			Model:     modelName,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", cfg.Provider, err)
	}

	eng := &Engine{
		chatModel:    chatModel,
		systemPrompt: cfg.SystemPrompt,
	}
	if len(cfg.Tools) > 0 {
		maxSteps := cfg.MaxSteps
		if maxSteps <= 0 {
			maxSteps = defaultMaxSteps
		}
		eng.agent, err = react.NewAgent(ctx, &react.AgentConfig{
			ToolCallingModel: chatModel,
			ToolsConfig: compose.ToolsNodeConfig{
				Tools: cfg.Tools,
			},
			MaxStep: maxSteps,
		})
		if err != nil {
			return nil, fmt.Errorf("init react agent: %w", err)
		}
	}
	return eng, nil
}

// Generate runs one completion with the prior turns as history and prompt as
// the inbound user turn.
func (e *Engine) Generate(ctx context.Context, prior []*models.ChatMessage, prompt string) (string, error) {
	messages := make([]*schema.Message, 0, len(prior)+2)
	if e.systemPrompt != "" {
		messages = append(messages, schema.SystemMessage(e.systemPrompt))
	}
	messages = append(messages, ConvertHistory(prior)...)
	messages = append(messages, schema.UserMessage(prompt))

	var (
		resp *schema.Message
		err  error
	)
	if e.agent != nil {
		resp, err = e.agent.Generate(ctx, messages)
	} else {
		resp, err = e.chatModel.Generate(ctx, messages)
	}
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	return resp.Content, nil
}

// ConvertHistory maps persisted turns to engine messages. Only user and
// assistant turns participate; other roles are dropped.
func ConvertHistory(prior []*models.ChatMessage) []*schema.Message {
	messages := make([]*schema.Message, 0, len(prior))
	for _, msg := range prior {
		switch msg.Role {
		case models.RoleUser:
			messages = append(messages, schema.UserMessage(msg.Content))
		case models.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(msg.Content, nil))
		}
	}
	return messages
}
