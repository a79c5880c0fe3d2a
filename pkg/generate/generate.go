// Package generate turns retrieved context and user material into study
// artifacts: IRAC case summaries, quizzes, mock exams, and tutor replies.
package generate

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"

	"github.com/AnvinX1/Firm-ai-sub000/internal/models"
	"github.com/AnvinX1/Firm-ai-sub000/internal/types"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/apperr"
)

// Retriever supplies similarity search plus bounded context rendering.
type Retriever interface {
	types.Searcher
	FormatContext(results []models.SearchResult, maxChars int) string
}

type OrchestratorConfig struct {
	// Per-artifact model overrides. Empty means the backend's default
	// chat model.
	SummaryModel string
	QuizModel    string
	ExamModel    string
	TutorModel   string
	// MaxContextChars bounds retrieved context per prompt.
	MaxContextChars int
}

// Orchestrator drives retrieval-augmented generation. Retrieval failures are
// not fatal to generation: a prompt without context is still a valid prompt.
type Orchestrator struct {
	config    OrchestratorConfig
	backend   llms.Model
	retriever Retriever
	log       *zap.Logger
}

func NewOrchestrator(backend llms.Model, retriever Retriever, config OrchestratorConfig, log *zap.Logger) *Orchestrator {
	if config.MaxContextChars == 0 {
		config.MaxContextChars = 8000
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{config: config, backend: backend, retriever: retriever, log: log}
}

// CaseSummary produces an IRAC analysis of caseText, augmented with chunks
// retrieved under opts. Malformed model output degrades to placeholder
// sections rather than an error.
func (o *Orchestrator) CaseSummary(ctx context.Context, caseText string, opts types.SearchOptions) (models.CaseSummary, error) {
	if strings.TrimSpace(caseText) == "" {
		return models.CaseSummary{}, apperr.Newf(apperr.KindValidation, "generate.summary", "case text is empty")
	}

	ragContext := o.retrieve(ctx, caseText, opts)
	body, err := o.complete(ctx, o.config.SummaryModel,
		summarySystemPrompt, summaryUserPrompt(caseText, ragContext), 0.3, 2000)
	if err != nil {
		return models.CaseSummary{}, err
	}
	return decodeSummary(body), nil
}

// Quiz produces up to count multiple-choice questions over material.
// Malformed entries in the model output are dropped and a wholly unparseable
// response yields an empty list, so the result holds 0 to count questions;
// only a failed or empty completion call is an error.
func (o *Orchestrator) Quiz(ctx context.Context, material string, count int, opts types.SearchOptions) ([]models.QuizQuestion, error) {
	if strings.TrimSpace(material) == "" {
		return nil, apperr.Newf(apperr.KindValidation, "generate.quiz", "quiz material is empty")
	}
	if count <= 0 {
		return nil, apperr.Newf(apperr.KindValidation, "generate.quiz", "question count must be positive")
	}

	ragContext := o.retrieve(ctx, material, opts)
	body, err := o.complete(ctx, o.config.QuizModel,
		quizSystemPrompt, quizUserPrompt(material, ragContext, count), 0.5, 3000)
	if err != nil {
		return nil, err
	}

	questions := decodeQuestions(body)
	if questions == nil {
		o.log.Warn("quiz response had no usable questions", zap.Int("requested", count))
		return []models.QuizQuestion{}, nil
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	return questions, nil
}

// MockExam produces a titled exam of count questions spanning topics. Each
// topic contributes a slice of retrieved context so the exam draws on the
// caller's actual material.
func (o *Orchestrator) MockExam(ctx context.Context, topics []string, count int, opts types.SearchOptions) (models.MockExam, error) {
	if len(topics) == 0 {
		return models.MockExam{}, apperr.Newf(apperr.KindValidation, "generate.exam", "at least one topic is required")
	}
	for _, t := range topics {
		if strings.TrimSpace(t) == "" {
			return models.MockExam{}, apperr.Newf(apperr.KindValidation, "generate.exam", "topic is empty")
		}
	}
	if count <= 0 {
		return models.MockExam{}, apperr.Newf(apperr.KindValidation, "generate.exam", "question count must be positive")
	}

	// A couple of chunks per topic keeps the prompt balanced across topics
	// instead of letting one topic crowd out the rest.
	topicOpts := opts
	topicOpts.Limit = 2
	var blocks []string
	for _, topic := range topics {
		if block := o.retrieve(ctx, topic, topicOpts); block != "" {
			blocks = append(blocks, block)
		}
	}
	ragContext := strings.Join(blocks, "\n\n")
	if len(ragContext) > o.config.MaxContextChars {
		ragContext = ragContext[:o.config.MaxContextChars]
	}

	body, err := o.complete(ctx, o.config.ExamModel,
		examSystemPrompt, examUserPrompt(topics, ragContext, count), 0.5, 4000)
	if err != nil {
		return models.MockExam{}, err
	}

	exam, ok := decodeExam(body)
	if !ok {
		return models.MockExam{}, apperr.Newf(apperr.KindGeneration, "generate.exam",
			"model returned no usable exam")
	}
	if len(exam.Questions) > count {
		exam.Questions = exam.Questions[:count]
	}
	return exam, nil
}

// TutorRespond answers one conversational turn, weaving in the student's
// case history, current study topic, and retrieved reference material.
func (o *Orchestrator) TutorRespond(ctx context.Context, message string, tc TutorContext, opts types.SearchOptions) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", apperr.Newf(apperr.KindValidation, "generate.tutor", "message is empty")
	}

	ragContext := o.retrieve(ctx, message, opts)
	return o.complete(ctx, o.config.TutorModel,
		tutorSystemPrompt, tutorUserPrompt(message, tc, ragContext), 0.7, 1000)
}

// retrieve fetches and formats context for query, treating failures as an
// empty context. Generation proceeds either way.
func (o *Orchestrator) retrieve(ctx context.Context, query string, opts types.SearchOptions) string {
	if o.retriever == nil {
		return ""
	}
	results, err := o.retriever.Search(ctx, query, opts)
	if err != nil {
		o.log.Warn("context retrieval failed, generating without it", zap.Error(err))
		return ""
	}
	return o.retriever.FormatContext(results, o.config.MaxContextChars)
}

func (o *Orchestrator) complete(ctx context.Context, model, system, user string, temperature float64, maxTokens int) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
	options := []llms.CallOption{
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	}
	if model != "" {
		options = append(options, llms.WithModel(model))
	}

	resp, err := o.backend.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", apperr.New(apperr.KindOf(err), "generate.complete", err)
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", apperr.Newf(apperr.KindGeneration, "generate.complete",
			"model returned an empty response")
	}
	return resp.Choices[0].Content, nil
}
