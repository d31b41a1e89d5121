package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/quickspin-labs/assistant/internal/assistant/model"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

// GeminiConfig holds provider-level settings shared by all models.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
}

// Models bundles the two completers the assistant needs: a cheap
// deterministic one for classification/extraction and a larger one for
// analysis and response composition.
type Models struct {
	Classifier Completer
	Composer   Completer
}

// NewModels creates both completers against one shared Gemini client.
func NewModels(ctx context.Context, cfg GeminiConfig, classifierCfg model.ClassifierModelConfig, composerCfg model.ComposerModelConfig) (*Models, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	classifier, err := newGeminiCompleter(ctx, client, classifierCfg.Model, classifierCfg.Temperature, classifierCfg.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating classifier model: %w", err)
	}
	composer, err := newGeminiCompleter(ctx, client, composerCfg.Model, composerCfg.Temperature, composerCfg.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("error creating composer model: %w", err)
	}

	return &Models{Classifier: classifier, Composer: composer}, nil
}

type geminiCompleter struct {
	chat      *gemini.ChatModel
	modelName string
}

func newGeminiCompleter(ctx context.Context, client *genai.Client, modelName string, temperature float32, maxTokens int) (*geminiCompleter, error) {
	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       modelName,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, err
	}
	return &geminiCompleter{chat: chat, modelName: modelName}, nil
}

func (g *geminiCompleter) Complete(ctx context.Context, messages []*schema.Message) (string, error) {
	out, err := g.chat.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", fmt.Errorf("model returned no message")
	}
	logUsage(g.modelName, out)
	return out.Content, nil
}

var _ Completer = (*geminiCompleter)(nil)
