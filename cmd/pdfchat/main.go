package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"pdfchat/internal/config"
	"pdfchat/internal/extractor"
	"pdfchat/internal/indexer"
	"pdfchat/internal/pipeline"
	"pdfchat/internal/repl"
	"pdfchat/internal/service"
	"pdfchat/internal/session"
	"pdfchat/internal/tui"
	"pdfchat/internal/watcher"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var plain bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/pdfchat/config.yaml if not provided)")
	flag.BoolVar(&plain, "plain", false, "Use the line-mode interface instead of the full-screen TUI")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage: pdfchat [--config=config.yaml] [--plain] [file1.pdf ...]")
		flag.PrintDefaults()
	}
	flag.Parse()
	inputs := flag.Args()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, closeLog, err := newLogger(cfg.Log, plain)
	if err != nil {
		log.Fatalf("failed to open log file: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Assemble components
	emb, closeEmb, err := newEmbedder(cfg.Embedder, logger)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}
	defer closeEmb()

	builder, err := newIndexBuilder(cfg.VectorStore, logger)
	if err != nil {
		log.Fatalf("vector store init failed: %v", err)
	}

	model, err := newChatModel(cfg.LLM)
	if err != nil {
		log.Fatalf("language model init failed: %v", err)
	}
	if model == nil {
		logger.Warn("language model credential missing; answers will report the missing configuration")
	}

	ch, err := newChunker(cfg.Chunker)
	if err != nil {
		log.Fatalf("chunker init failed: %v", err)
	}

	sum, err := newSummarizer(cfg.Summarizer)
	if err != nil {
		log.Fatalf("summarizer init failed: %v", err)
	}

	concurrency := 0
	if cfg.Embedder.OpenAI != nil {
		concurrency = cfg.Embedder.OpenAI.Concurrency
	}
	ingestor := service.NewIngestor(
		extractor.New(logger),
		ch,
		indexer.New(emb, builder, concurrency, logger),
		sum,
		model,
		pipeline.Options{TopK: cfg.Retrieval.TopK, ScoreThreshold: cfg.Retrieval.ScoreThreshold},
		logger,
	)
	sess := session.New(ingestor, logger)
	defer sess.Reset()

	if plain {
		if err := repl.New(sess, os.Stdin, os.Stdout).Run(ctx, inputs); err != nil {
			log.Fatal(err)
		}
		return
	}

	var events <-chan watcher.Event
	if dir := cfg.Uploads.WatchDir; dir != "" {
		w, err := watcher.New(logger)
		if err != nil {
			log.Fatalf("upload watcher init failed: %v", err)
		}
		defer w.Close()
		if events, err = w.Watch(ctx, dir); err != nil {
			log.Fatalf("failed to watch %s: %v", dir, err)
		}
	}

	m := tui.New(ctx, sess, service.ExpandPaths(inputs), events)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		log.Fatal(err)
	}
}

// newLogger writes to the configured file in TUI mode so log lines never
// corrupt the screen; plain mode logs to stderr.
func newLogger(cfg config.LogConfig, plain bool) (*slog.Logger, func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if !plain {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeFn = func() { _ = f.Close() }
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	return slog.New(handler), closeFn, nil
}
