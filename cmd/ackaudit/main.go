package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/xhad/ackaudit/internal/types"
	cfgPkg "github.com/xhad/ackaudit/pkg/config"
	"github.com/xhad/ackaudit/pkg/extract"
	"github.com/xhad/ackaudit/pkg/highlight"
	"github.com/xhad/ackaudit/pkg/layout"
	"github.com/xhad/ackaudit/pkg/llm"
	"github.com/xhad/ackaudit/pkg/pipeline"
	"github.com/xhad/ackaudit/pkg/refs"
	"github.com/xhad/ackaudit/pkg/sentence"
	"github.com/xhad/ackaudit/pkg/store"
	"github.com/xhad/ackaudit/pkg/verify"
)

type cliConfig struct {
	ConfigPath string
	BaseURL    string
	DBUrl      string
	SeedFile   string
	SeedURL    string
	OutDir     string
	Offline    bool
	Verbose    bool
}

func main() {
	config := parseFlags()

	if err := run(config, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() cliConfig {
	var config cliConfig

	flag.StringVar(&config.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&config.BaseURL, "ollama-url", os.Getenv("OLLAMA_BASE_URL"), "Ollama server URL")
	flag.StringVar(&config.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&config.SeedFile, "seed-file", "", "Seed reference phrases from a text file")
	flag.StringVar(&config.SeedURL, "seed-url", "", "Seed reference phrases scraped from a guidance page")
	flag.StringVar(&config.OutDir, "out", ".", "Directory for verdicts, sentence indexes, and annotated PDFs")
	flag.BoolVar(&config.Offline, "offline", false, "Use an in-memory vector index instead of Postgres")
	flag.BoolVar(&config.Verbose, "v", false, "Verbose logging")
	flag.Parse()

	return config
}

func run(cli cliConfig, pdfPaths []string) error {
	level := slog.LevelWarn
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := cfgPkg.LoadConfig(cli.ConfigPath)
	if err != nil {
		return err
	}
	if cli.BaseURL != "" {
		cfg.LLM.BaseURL = cli.BaseURL
	}
	if cli.DBUrl != "" {
		cfg.Database.URL = cli.DBUrl
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %s", e.Error())
		}
		return fmt.Errorf("invalid configuration")
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.Embedding.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return err
	}

	var index types.VectorIndex
	if cli.Offline || cfg.Database.URL == "" {
		index = store.NewMemoryStore(cfg.Embedding.VectorDim)
	} else {
		vs, err := store.NewWithConfig(store.VectorStoreConfig{
			ConnString: cfg.Database.URL,
			VectorDim:  cfg.Embedding.VectorDim,
		})
		if err != nil {
			return err
		}
		defer vs.Close()
		index = vs
	}

	ctx := context.Background()

	if cli.SeedFile != "" || cli.SeedURL != "" {
		if err := seed(ctx, cli, cfg, embedder, index); err != nil {
			return err
		}
	}

	if len(pdfPaths) == 0 {
		if cli.SeedFile == "" && cli.SeedURL == "" {
			return fmt.Errorf("no PDF files given; see -h for usage")
		}
		return nil
	}

	judge, err := llm.NewJudgeWithConfig(llm.JudgeConfig{
		BaseURL:       cfg.LLM.BaseURL,
		Model:         cfg.LLM.Model,
		FallbackModel: cfg.LLM.FallbackModel,
		MaxTokens:     cfg.LLM.MaxTokens,
		RateLimit:     cfg.LLM.RateLimit,
	}, logger)
	if err != nil {
		return err
	}

	lcfg := layout.Config{
		MinColumnBlocks: cfg.Layout.MinColumnBlocks,
		GapFraction:     cfg.Layout.GapFraction,
	}
	verifier := verify.NewWithConfig(verify.Config{
		Collection:   cfg.Database.Collection,
		Threshold:    cfg.Verify.Threshold,
		TopK:         cfg.Verify.TopK,
		MaxSentences: cfg.Verify.MaxSentences,
	}, embedder, index, judge, logger)

	pipe := pipeline.New(
		pipeline.Config{Layout: lcfg},
		extract.New(logger),
		verifier,
		highlight.New(logger, lcfg),
		logger,
	)

	if err := os.MkdirAll(cli.OutDir, 0o755); err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(pdfPaths)), "auditing")
	failures := 0
	for _, path := range pdfPaths {
		if err := auditOne(ctx, pipe, path, cli.OutDir); err != nil {
			color.Red("%s: %v", path, err)
			failures++
		}
		bar.Add(1)
	}
	fmt.Println()

	if failures > 0 {
		return fmt.Errorf("%d of %d documents failed", failures, len(pdfPaths))
	}
	return nil
}

func seed(ctx context.Context, cli cliConfig, cfg *cfgPkg.Config, embedder types.Embedder, index types.VectorIndex) error {
	var phrases []string

	if cli.SeedFile != "" {
		fromFile, err := refs.LoadFile(cli.SeedFile)
		if err != nil {
			return err
		}
		n, err := refs.Seed(ctx, embedder, index, cfg.Database.Collection, fromFile, "file")
		if err != nil {
			return err
		}
		color.Green("seeded %d phrases from %s", n, cli.SeedFile)
		phrases = append(phrases, fromFile...)
	}

	if cli.SeedURL != "" {
		scraper := refs.NewScraperWithConfig(refs.ScraperConfig{RateLimit: cfg.LLM.RateLimit})
		fromWeb, err := scraper.ScrapePhrases(ctx, cli.SeedURL)
		if err != nil {
			return err
		}
		n, err := refs.Seed(ctx, embedder, index, cfg.Database.Collection, fromWeb, "web")
		if err != nil {
			return err
		}
		color.Green("seeded %d phrases from %s", n, cli.SeedURL)
		phrases = append(phrases, fromWeb...)
	}

	if len(phrases) == 0 {
		color.Yellow("no reference phrases found to seed")
	}
	return nil
}

func auditOne(ctx context.Context, pipe *pipeline.Pipeline, path, outDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	result, err := pipe.Ingest(ctx, data)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	verdictJSON, err := json.MarshalIndent(result.Verdict, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, base+".verdict.json"), verdictJSON, 0o644); err != nil {
		return err
	}

	sentencesFile, err := os.Create(filepath.Join(outDir, base+".sentences.jsonl"))
	if err != nil {
		return err
	}
	if err := sentence.WriteJSONL(sentencesFile, result.Sentences); err != nil {
		sentencesFile.Close()
		return err
	}
	if err := sentencesFile.Close(); err != nil {
		return err
	}

	if len(result.AnnotatedPDF) > 0 {
		if err := os.WriteFile(filepath.Join(outDir, base+".annotated.pdf"), result.AnnotatedPDF, 0o644); err != nil {
			return err
		}
	}

	if result.Verdict.Result == "Yes" {
		color.Green("%s: Yes (%.4f)", base, result.Verdict.Confidence)
	} else {
		color.Yellow("%s: No (%.4f)", base, result.Verdict.Confidence)
	}
	return nil
}
