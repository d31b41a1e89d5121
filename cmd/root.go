package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/quickspin-labs/assistant/internal/assistant"
	"github.com/quickspin-labs/assistant/internal/assistant/composer"
	"github.com/quickspin-labs/assistant/internal/assistant/conversation"
	"github.com/quickspin-labs/assistant/internal/assistant/intent"
	"github.com/quickspin-labs/assistant/internal/assistant/knowledge"
	"github.com/quickspin-labs/assistant/internal/assistant/llm"
	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/assistant/pricing"
	"github.com/quickspin-labs/assistant/internal/assistant/workflow"
	"github.com/quickspin-labs/assistant/internal/core"
	"github.com/quickspin-labs/assistant/internal/platform/kube"
	"github.com/quickspin-labs/assistant/internal/platform/quickspin"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
	pkgredis "github.com/quickspin-labs/assistant/pkg/redis"
)

// AppConfig defines all configurable parameters, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Redis     pkgredis.Config
	QuickSpin model.QuickSpinConfig
	Kube      model.KubeConfig

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Pipeline configs
	Classifier    model.ClassifierModelConfig
	ComposerModel model.ComposerModelConfig
	Conversation  model.ConversationConfig
	Workflow      model.WorkflowConfig

	// Caller identity for CLI sessions
	Token          string `envconfig:"QUICKSPIN_API_TOKEN"`
	UserID         string `envconfig:"QUICKSPIN_USER_ID" default:"local-user"`
	OrganizationID string `envconfig:"QUICKSPIN_ORG_ID" default:"local-org"`
}

var rootCmd = &cobra.Command{
	Use:   "assistant",
	Short: "QuickSpin conversational infrastructure assistant",
	Long: `The QuickSpin assistant turns natural-language requests into concrete
infrastructure operations: provisioning managed services, diagnosing
problems, and finding cost savings. Mutating operations always pause
for explicit confirmation before anything is created or changed.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

// app is the wired object graph behind every subcommand.
type app struct {
	cfg       AppConfig
	assistant *assistant.Service
	engine    *workflow.Engine
	repo      *conversation.RedisRepository
}

func buildApp(ctx context.Context) (*app, error) {
	if err := godotenv.Load(".env"); err != nil {
		logx.Debug().Err(err).Msg("no .env file loaded")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	ttl, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid CONVERSATION_TTL %q: %w", cfg.Conversation.TTL, err)
	}
	stepTimeout, err := time.ParseDuration(cfg.Workflow.StepTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKFLOW_STEP_TIMEOUT %q: %w", cfg.Workflow.StepTimeout, err)
	}
	llmTimeout, err := time.ParseDuration(cfg.Workflow.LLMTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKFLOW_LLM_TIMEOUT %q: %w", cfg.Workflow.LLMTimeout, err)
	}
	idleAfter, err := time.ParseDuration(cfg.Workflow.IdleAfter)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKFLOW_IDLE_AFTER %q: %w", cfg.Workflow.IdleAfter, err)
	}
	confirmationTTL, err := time.ParseDuration(cfg.Workflow.ConfirmationTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKFLOW_CONFIRMATION_TTL %q: %w", cfg.Workflow.ConfirmationTTL, err)
	}

	rdb, err := cfg.Redis.New()
	if err != nil {
		return nil, fmt.Errorf("initialise redis client: %w", err)
	}

	store := knowledge.NewRedisStore(rdb)
	if err := store.Seed(ctx); err != nil {
		logx.Warn().Err(err).Msg("knowledge seeding failed, retrieval will be degraded")
	}
	retriever := knowledge.NewRetriever(store)

	var classifierCompleter, composerCompleter llm.Completer
	if cfg.APIKey != "" {
		models, err := llm.NewModels(ctx, llm.GeminiConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL},
			cfg.Classifier, cfg.ComposerModel)
		if err != nil {
			return nil, fmt.Errorf("initialise language models: %w", err)
		}
		classifierCompleter = models.Classifier
		composerCompleter = models.Composer
	} else {
		logx.Warn().Msg("GEMINI_API_KEY not set, running with rule-based classification and templated replies")
	}

	var orchestrator workflow.Orchestrator
	kc, err := kube.New(cfg.Kube)
	if err != nil {
		logx.Warn().Err(err).Msg("kubernetes unavailable, diagnostics will miss pod data")
		orchestrator = unavailableOrchestrator{}
	} else {
		orchestrator = kc
	}

	deps := &workflow.Deps{
		Services:             quickspin.New(cfg.QuickSpin),
		Orchestrator:         orchestrator,
		Retriever:            retriever,
		Completer:            classifierCompleter,
		Pricing:              pricing.NewTable(),
		StepTimeout:          stepTimeout,
		LLMTimeout:           llmTimeout,
		IdleAfter:            idleAfter,
		UtilizationThreshold: cfg.Workflow.UtilizationThreshold,
	}

	engine := workflow.NewEngine(deps, confirmationTTL)
	repo := conversation.NewRedisRepository(rdb, ttl)
	manager := conversation.NewManager(repo, cfg.Conversation)
	comp := composer.New(composerCompleter)

	return &app{
		cfg:    cfg,
		engine: engine,
		repo:   repo,
		assistant: assistant.New(
			manager,
			intent.NewClassifier(classifierCompleter),
			engine,
			comp,
			retriever,
		),
	}, nil
}
