package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/primal-archive/server/internal/agent/graph/conversations"
	"github.com/primal-archive/server/internal/agent/graph/nodes"
	"github.com/primal-archive/server/internal/agent/graph/tools"
	"github.com/primal-archive/server/internal/agent/model"
	"github.com/primal-archive/server/internal/search"
	logx "github.com/primal-archive/server/pkg/logger"
)

// NewGenaiClient builds the Gemini API client shared by the chat models
// and the embedder.
func NewGenaiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	return nodes.NewGenaiClient(ctx, apiKey, baseURL)
}

// Config holds everything needed to compose the chat graph end-to-end.
// This is a convenience layer over GraphConfig that also constructs the
// chat models and the conversation manager.
type Config struct {
	Client       *genai.Client
	RouterModel  model.RouterModelConfig
	GraderModel  model.GraderModelConfig
	AnswerModel  model.AnswerModelConfig
	Persona      model.PersonaConfig
	Conversation model.ConversationConfig
	ThreadStore  model.ThreadStore
	Searcher     search.Searcher
}

// GraphConfig holds all configuration needed to build the graph.
type GraphConfig struct {
	ChatModels  *nodes.ChatModels
	Manager     *conversations.Manager
	Searcher    search.Searcher
	Persona     model.PersonaConfig
	TopK        int
	MaxRewrites int
}

// GraphBuilder handles the construction of the chat graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.QueryInput, *schema.Message]
}

// BuildChatGraph composes the chat models and conversation manager,
// builds the graph, and returns a Runner.
func BuildChatGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.ThreadStore == nil {
		return nil, fmt.Errorf("thread store is nil")
	}
	if cfg.Searcher == nil {
		return nil, fmt.Errorf("searcher is nil")
	}

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		Client:       cfg.Client,
		RouterConfig: &cfg.RouterModel,
		GraderConfig: &cfg.GraderModel,
		AnswerConfig: &cfg.AnswerModel,
	})
	if err != nil {
		return nil, err
	}

	mm := conversations.NewManager(cfg.ThreadStore)

	runnable, err := BuildGraph(ctx, &GraphConfig{
		ChatModels:  cms,
		Manager:     mm,
		Searcher:    cfg.Searcher,
		Persona:     cfg.Persona,
		TopK:        cfg.Conversation.Retrieval.TopK,
		MaxRewrites: cfg.Conversation.Rewrites.Max,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Chat graph built successfully")
	return newRunner(runnable, mm), nil
}

// BuildGraph constructs and compiles the chat graph:
//
//	START → input_converter → router ─┬→ retrieve → grade ─┬→ answer_assembler → generate_answer → END
//	                          ▲       └→ answer_assembler  └→ rewrite_question ─┘(loop)
//
// Only generate_answer is adjacent to END, so the graph's output stream
// carries that node's fragments and nothing else.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.ChatModels == nil || config.ChatModels.Router == nil ||
		config.ChatModels.Grader == nil || config.ChatModels.Answer == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.Manager == nil {
		return nil, fmt.Errorf("conversation manager is nil")
	}
	if config.Searcher == nil {
		return nil, fmt.Errorf("searcher is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.QueryInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	if err := builder.setupRetrieval(ctx); err != nil {
		return nil, err
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// setupRetrieval binds the search tool to the router model and adds the
// retrieve tools node.
func (b *GraphBuilder) setupRetrieval(ctx context.Context) error {
	searchTools := tools.GetQueryTools(b.config.Searcher, b.config.TopK)
	toolInfos, err := tools.GetToolInfos(ctx, searchTools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to get tool infos")
		return fmt.Errorf("failed to get tool infos: %w", err)
	}

	if err := b.config.ChatModels.BindRouterTools(toolInfos); err != nil {
		return err
	}

	toolsNode, err := compose.NewToolNode(ctx, &compose.ToolsNodeConfig{
		Tools:               searchTools,
		ExecuteSequentially: true,
		UnknownToolsHandler: func(ctx context.Context, name, input string) (string, error) {
			// A hallucinated tool name still has to produce a well-formed
			// tool message; an empty block grades not relevant and the
			// loop recovers via a rewrite.
			logx.Warn().
				Str("tool_name", name).
				Str("arguments", input).
				Msg("Unknown tool call; returning empty retrieval block")
			return "", nil
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Failed to create tools node")
		return fmt.Errorf("failed to create tools node: %w", err)
	}

	b.graph.AddToolsNode(nodes.NodeRetrieve, toolsNode,
		compose.WithStatePostHandler(nodes.NewRetrievePostHandler(b.config.Manager)),
	)

	return nil
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeInputConverter,
		nodes.NewInputConverterNode(b.config.Manager),
		compose.WithStatePreHandler(nodes.NewInputConverterPreHandler()),
	)

	b.graph.AddChatModelNode(nodes.NodeRouter,
		b.config.ChatModels.Router,
		compose.WithStatePostHandler(nodes.NewRouterPostHandler(b.config.Manager)),
	)

	b.graph.AddLambdaNode(nodes.NodeGrade,
		nodes.NewGradeNode(b.config.ChatModels.Grader),
	)

	b.graph.AddLambdaNode(nodes.NodeRewriteQuestion,
		nodes.NewRewriteQuestionNode(b.config.Manager, b.config.ChatModels.Answer),
		compose.WithStatePreHandler(nodes.NewRewriteQuestionPreHandler()),
	)

	b.graph.AddLambdaNode(nodes.NodeAnswerAssembler,
		nodes.NewAnswerAssemblerNode(b.config.Persona),
	)

	// No state handlers here: the answer stream must pass through to END
	// untouched. The runner stages and commits the final answer.
	b.graph.AddChatModelNode(nodes.NodeGenerateAnswer,
		b.config.ChatModels.Answer,
	)
}

// addEdges creates the unconditional flow connections between nodes.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeInputConverter},
		{nodes.NodeInputConverter, nodes.NodeRouter},
		{nodes.NodeRetrieve, nodes.NodeGrade},
		{nodes.NodeRewriteQuestion, nodes.NodeRouter},
		{nodes.NodeAnswerAssembler, nodes.NodeGenerateAnswer},
		{nodes.NodeGenerateAnswer, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates the two conditional routings: tool-call intent off
// the router, and the grade verdict off the grader.
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		nodes.NewRouteCondition(),
		map[string]bool{
			nodes.NodeRetrieve:        true,
			nodes.NodeAnswerAssembler: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeRouter, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}

	gradeBranch := compose.NewGraphBranch(
		nodes.NewGradeCondition(b.config.MaxRewrites),
		map[string]bool{
			nodes.NodeAnswerAssembler: true,
			nodes.NodeRewriteQuestion: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeGrade, gradeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding grade branch")
		return fmt.Errorf("error adding grade branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.QueryInput, *schema.Message], error) {
	// Step backstop on top of the rewrite budget: each rewrite cycle
	// touches four nodes.
	maxSteps := 8 + b.config.MaxRewrites*4
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
