// Package llm wraps the external completion service behind a Backend
// interface with interchangeable OpenAI-compatible and Ollama
// implementations, plus a retrying embedding client.
package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/AnvinX1/Firm-ai-sub000/pkg/apperr"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/config"
)

// Backend is a chat-completion service that can also embed text. The
// implementation is chosen once at construction time from configuration,
// never by sniffing the runtime environment.
type Backend interface {
	llms.Model
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// NewBackend builds the backend selected by cfg.Provider.
func NewBackend(cfg config.LLMConfig) (Backend, error) {
	switch cfg.Provider {
	case "", "openai":
		if cfg.APIKey == "" {
			return nil, apperr.Newf(apperr.KindMissingConfig, "llm.backend",
				"API key is required for the openai provider")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithModel(cfg.ChatModel),
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		backend, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai backend: %w", err)
		}
		return backend, nil

	case "ollama":
		chat, err := ollama.New(
			ollama.WithModel(cfg.ChatModel),
			ollama.WithServerURL(cfg.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama chat model: %w", err)
		}
		embed, err := ollama.New(
			ollama.WithModel(cfg.EmbeddingModel),
			ollama.WithServerURL(cfg.BaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedding model: %w", err)
		}
		return &ollamaBackend{chat: chat, embed: embed}, nil

	default:
		return nil, apperr.Newf(apperr.KindValidation, "llm.backend",
			"unknown provider %q", cfg.Provider)
	}
}

// ollamaBackend pairs two ollama clients because chat and embedding models
// differ and one client serves one model.
type ollamaBackend struct {
	chat  *ollama.LLM
	embed *ollama.LLM
}

func (b *ollamaBackend) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return b.chat.GenerateContent(ctx, messages, options...)
}

func (b *ollamaBackend) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return b.chat.Call(ctx, prompt, options...)
}

func (b *ollamaBackend) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	return b.embed.CreateEmbedding(ctx, texts)
}
