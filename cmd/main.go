package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/AnvinX1/Firm-ai-sub000/internal/models"
	"github.com/AnvinX1/Firm-ai-sub000/internal/types"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/apperr"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/chunker"
	cfgPkg "github.com/AnvinX1/Firm-ai-sub000/pkg/config"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/extract"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/generate"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/ingest"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/llm"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/retrieval"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/store"
	"github.com/AnvinX1/Firm-ai-sub000/server"
)

type Flags struct {
	ConfigPath string
	IngestPath string
	OwnerID    string
	CaseID     string
	Title      string
	DocType    string
	Serve      bool
	Dev        bool
}

func main() {
	flags := parseFlags()

	if err := run(flags); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Flags {
	var flags Flags
	flag.StringVar(&flags.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&flags.IngestPath, "ingest", "", "Document file to ingest, then exit")
	flag.StringVar(&flags.OwnerID, "owner", "", "Owner id for ingested documents")
	flag.StringVar(&flags.CaseID, "case", "", "Case id for ingested documents")
	flag.StringVar(&flags.Title, "title", "", "Title for the ingested document")
	flag.StringVar(&flags.DocType, "type", string(models.DocumentTypeUserCase), "Document type: user_case or knowledge_base")
	flag.BoolVar(&flags.Serve, "serve", false, "Run the HTTP server instead of the chat loop")
	flag.BoolVar(&flags.Dev, "dev", false, "Use development logging")
	flag.Parse()
	return flags
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(flags Flags) error {
	config, err := cfgPkg.LoadConfig(flags.ConfigPath)
	if err != nil {
		return err
	}
	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %s", e.Error())
		}
		return fmt.Errorf("invalid configuration")
	}

	logger, err := newLogger(flags.Dev)
	if err != nil {
		return err
	}
	defer logger.Sync()

	backend, err := llm.NewBackend(config.LLM)
	if err != nil {
		return err
	}

	ctx := context.Background()
	vectorStore, err := store.NewWithConfig(ctx, store.StoreConfig{
		ConnString: config.Database.URL,
		VectorDim:  config.Database.VectorDim,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	embedder := llm.NewEmbedder(backend, llm.EmbedderConfig{
		Dimensions: config.Database.VectorDim,
		RateLimit:  config.LLM.RateLimit,
	}, logger)

	textChunker := chunker.NewWithConfig(chunker.ChunkerConfig{
		TargetWords:       config.Chunker.TargetWords,
		OverlapWords:      config.Chunker.OverlapWords,
		WordsPerParagraph: config.Chunker.WordsPerParagraph,
	})

	ingester := ingest.NewService(
		extract.New(logger), &textChunker, embedder, vectorStore,
		ingest.ServiceConfig{
			BatchSize: config.Database.BatchSize,
			Workers:   config.Ingest.Workers,
		}, logger)

	retriever := retrieval.NewService(embedder, vectorStore, retrieval.ServiceConfig{
		DefaultLimit:    config.Search.Limit,
		MinSimilarity:   config.Search.MinSimilarity,
		MaxContextChars: config.Search.MaxContextChars,
	}, logger)

	generator := generate.NewOrchestrator(backend, retriever, generate.OrchestratorConfig{
		SummaryModel:    config.LLM.SummaryModel,
		QuizModel:       config.LLM.QuizModel,
		ExamModel:       config.LLM.ExamModel,
		TutorModel:      config.LLM.ChatModel,
		MaxContextChars: config.Search.MaxContextChars,
	}, logger)

	if flags.IngestPath != "" {
		return runIngest(ctx, ingester, flags)
	}

	if flags.Serve {
		srv := server.New(server.ServerConfig{Addr: config.Server.Addr},
			ingester, retriever, generator, vectorStore, logger)
		return srv.ListenAndServe()
	}

	return runChat(ctx, generator, flags)
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runIngest(ctx context.Context, ingester *ingest.Service, flags Flags) error {
	content, err := os.ReadFile(flags.IngestPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %v", flags.IngestPath, err)
	}

	title := flags.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(flags.IngestPath), filepath.Ext(flags.IngestPath))
	}

	color.Blue("\nIngesting %s\n", flags.IngestPath)
	spinner := getSpinner("Extracting, chunking, and embedding...")

	result, err := ingester.Ingest(ctx, ingest.Request{
		OwnerID:  flags.OwnerID,
		CaseID:   flags.CaseID,
		Title:    title,
		Type:     models.DocumentType(flags.DocType),
		Content:  content,
		Filename: flags.IngestPath,
	})
	spinner.Finish()
	fmt.Print("\r")

	if err != nil {
		p := apperr.Present(err)
		color.Red("\n%s: %s %s\n", p.Title, p.Message, p.Suggestion)
		return err
	}

	color.Green("\n✓ Stored %d chunks as document %s\n", result.TotalChunks, result.DocumentID)
	return nil
}

func runChat(ctx context.Context, generator *generate.Orchestrator, flags Flags) error {
	color.Cyan("\nAsk the legal tutor anything (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	opts := types.SearchOptions{
		OwnerID:             flags.OwnerID,
		IncludeSharedCorpus: true,
	}
	if flags.CaseID != "" {
		opts.CaseIDs = []string{flags.CaseID}
	}

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}
		query := scanner.Text()
		if strings.ToLower(strings.TrimSpace(query)) == "exit" {
			break
		}
		if strings.TrimSpace(query) == "" {
			continue
		}

		spinner := getSpinner("Thinking...")
		reply, err := generator.TutorRespond(ctx, query, generate.TutorContext{}, opts)
		spinner.Finish()
		fmt.Print("\r")

		if err != nil {
			p := apperr.Present(err)
			color.Red("%s: %s\n", p.Title, p.Message)
			continue
		}

		fmt.Print("\n")
		assistantPrompt("Tutor: %s\n", reply)
	}
	return nil
}
