package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/primal-archive/server/internal/agent/graph"
	"github.com/primal-archive/server/internal/agent/model"
	"github.com/primal-archive/server/internal/agent/repo"
	"github.com/primal-archive/server/internal/core"
	"github.com/primal-archive/server/internal/search"
	logx "github.com/primal-archive/server/pkg/logger"
	pkgpostgres "github.com/primal-archive/server/pkg/postgres"
	pkgredis "github.com/primal-archive/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the archive agent,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Infrastructure
	Redis    pkgredis.Config
	Postgres pkgpostgres.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Embeddings
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-004"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`

	// Agent configs
	Router       model.RouterModelConfig
	Grader       model.GraderModelConfig
	Answer       model.AnswerModelConfig
	Persona      model.PersonaConfig
	Conversation model.ConversationConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(envCfg.Environment)})

	client, err := graph.NewGenaiClient(ctx, envCfg.APIKey, envCfg.BaseURL)
	if err != nil {
		log.Fatalf("Failed to initialise Gemini client: %v", err)
	}

	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}

	// Redis holds thread history when configured; otherwise threads live
	// in process memory, which is enough for a local session.
	var store model.ThreadStore
	if envCfg.Redis.URL != "" {
		rdb, err := envCfg.Redis.New()
		if err != nil {
			log.Fatalf("Failed to initialise Redis client: %v", err)
		}
		defer rdb.Close()
		store = repo.NewRedisThreadStore(rdb, ttl)
		logx.Info().Msg("Thread history backed by Redis")
	} else {
		store = repo.NewMemoryThreadStore()
		logx.Info().Msg("Thread history held in memory")
	}

	pool, err := envCfg.Postgres.New(ctx)
	if err != nil {
		log.Fatalf("Failed to initialise Postgres pool: %v", err)
	}
	defer pool.Close()

	embedder := search.NewGenaiEmbedder(client, envCfg.EmbeddingModel)
	archive := search.NewPostgresStore(pool, embedder)
	if err := archive.EnsureSchema(ctx, envCfg.EmbeddingDimensions); err != nil {
		log.Fatalf("Failed to ensure archive schema: %v", err)
	}

	runner, err := graph.BuildChatGraph(ctx, graph.Config{
		Client:       client,
		RouterModel:  envCfg.Router,
		GraderModel:  envCfg.Grader,
		AnswerModel:  envCfg.Answer,
		Persona:      envCfg.Persona,
		Conversation: envCfg.Conversation,
		ThreadStore:  store,
		Searcher:     archive,
	})
	if err != nil {
		log.Fatalf("Failed to build graph: %v", err)
	}

	repl(ctx, runner)
}

// repl reads questions from stdin and streams answers back, one thread
// for the whole session.
func repl(ctx context.Context, runner graph.Runner) {
	threadID := fmt.Sprintf("cli-%d", time.Now().Unix())
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Primal archive agent. Ask a question, or 'exit' to quit.")
	for {
		fmt.Print(">>> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}

		stream, err := runner.RunTurn(ctx, threadID, question)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}

		for {
			frag, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				fmt.Printf("\nerror: %v", err)
				break
			}
			fmt.Print(frag.Text)
		}
		stream.Close()
		fmt.Println()
	}
}
