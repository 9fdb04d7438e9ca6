package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/primal-archive/server/internal/agent/model"
	logx "github.com/primal-archive/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation.
type ChatModelConfig struct {
	Client       *genai.Client
	RouterConfig *model.RouterModelConfig
	GraderConfig *model.GraderModelConfig
	AnswerConfig *model.AnswerModelConfig
}

// ChatModels holds the three model handles the graph depends on. The
// fields are eino interfaces so tests can substitute scripted fakes.
type ChatModels struct {
	Router einomodel.ToolCallingChatModel // decides between retrieval and direct answer
	Grader einomodel.BaseChatModel        // binary relevance verdicts
	Answer einomodel.BaseChatModel        // persona-voiced final answers, streamed

	RouterModelName string
	GraderModelName string
	AnswerModelName string
}

// NewGenaiClient creates the shared Gemini API client. The same client
// also serves the embedding collaborator, so it is built once upstream.
func NewGenaiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}
	return client, nil
}

// NewChatModels creates the router, grader, and answer chat models on a
// shared client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.Client == nil {
		return nil, fmt.Errorf("genai client is nil")
	}

	router, err := newGeminiModel(ctx, config.Client, config.RouterConfig.Model,
		config.RouterConfig.Temperature, config.RouterConfig.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating router model: %w", err)
	}

	grader, err := newGeminiModel(ctx, config.Client, config.GraderConfig.Model,
		config.GraderConfig.Temperature, config.GraderConfig.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating grader model: %w", err)
	}

	answer, err := newGeminiModel(ctx, config.Client, config.AnswerConfig.Model,
		config.AnswerConfig.Temperature, config.AnswerConfig.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating answer model: %w", err)
	}

	return &ChatModels{
		Router:          router,
		Grader:          grader,
		Answer:          answer,
		RouterModelName: config.RouterConfig.Model,
		GraderModelName: config.GraderConfig.Model,
		AnswerModelName: config.AnswerConfig.Model,
	}, nil
}

func newGeminiModel(ctx context.Context, client *genai.Client, name string, temperature float32, maxTokens int) (*gemini.ChatModel, error) {
	return gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       name,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
}

// BindRouterTools binds the retrieval capability to the router model.
func (cm *ChatModels) BindRouterTools(toolInfos []*schema.ToolInfo) error {
	bound, err := cm.Router.WithTools(toolInfos)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to router model")
		return fmt.Errorf("failed to bind tools to router model: %w", err)
	}
	cm.Router = bound

	logx.Debug().Int("tools", len(toolInfos)).Msg("Bound tools to router model")
	return nil
}
