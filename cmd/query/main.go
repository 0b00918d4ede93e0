package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Retrieval-Engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	booleanFile := flag.String("boolean", "", "file with one boolean query per line")
	vectorFile := flag.String("vector", "", "file with one free-text query per line")
	outDir := flag.String("out", "", "directory for results.txt and vector_search.csv (default index.outputDir)")
	raw := flag.Bool("raw", false, "treat free-text queries as already normalized")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if *outDir == "" {
		*outDir = cfg.Index.OutputDir
	}

	if err := run(cfg, *booleanFile, *vectorFile, *outDir, *raw); err != nil {
		slog.Error("query batch failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, booleanFile, vectorFile, outDir string, raw bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var override corpus.TextNormalizer
	if raw {
		override = tokenizer.Whitespace{}
	}
	snap, err := searcher.LoadSnapshot(cfg.Index.OutputDir, override)
	if err != nil {
		return err
	}
	if err := searcher.CheckLanguage(snap, cfg.Search.NormalizerLanguage); err != nil {
		return err
	}
	booleanQueries, err := readQueryFile(booleanFile)
	if err != nil {
		return err
	}
	vectorQueries, err := readQueryFile(vectorFile)
	if err != nil {
		return err
	}

	report, err := searcher.RunBatch(ctx, snap, booleanQueries, vectorQueries, cfg.Search.Workers, outDir)
	if err != nil {
		return err
	}
	slog.Info("query batch complete",
		"snapshot", snap.Version,
		"boolean", report.Boolean,
		"boolean_failed", report.BooleanFailed,
		"vector", report.Vector,
		"out_dir", outDir,
	)
	return nil
}

func readQueryFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening query file: %w", err)
	}
	defer f.Close()
	return searcher.ReadQueries(f)
}
