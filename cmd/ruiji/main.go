// Package main is the Ruiji CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tsukihi/ruiji/internal/cli"
	"github.com/tsukihi/ruiji/internal/collection"
	"github.com/tsukihi/ruiji/internal/config"
	"github.com/tsukihi/ruiji/internal/embedding"
	"github.com/tsukihi/ruiji/internal/ingest"
	"github.com/tsukihi/ruiji/internal/ledger"
	"github.com/tsukihi/ruiji/internal/milvus"
	"github.com/tsukihi/ruiji/internal/models"
	"github.com/tsukihi/ruiji/internal/server"
	"github.com/tsukihi/ruiji/internal/watcher"
	"github.com/tsukihi/ruiji/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ruiji/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence (for development). Returns the config
// and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve":
		runServe()
	case "ensure":
		runEnsure()
	case "insert":
		runInsert()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "drop":
		runDrop()
	case "version", "--version", "-v":
		fmt.Printf("ruiji version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Store    milvus.Store
	Embedder embedding.Embedder
	Handler  *collection.Handler
	Ledger   *ledger.Ledger
	Ingestor *ingest.Ingestor
}

func (c *Components) Close() {
	if c.Ledger != nil {
		_ = c.Ledger.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Store.Close(ctx)
	}
}

// initializeComponents connects to the database, builds the embedder, and
// wires the collection handler. withLedger additionally opens the ingest
// ledger (serve and ingest need it; one-shot commands do not).
func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withLedger bool) (*Components, error) {
	client, err := milvus.Connect(ctx, &cfg.Milvus, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	var embedder embedding.Embedder
	onnxEmbedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		logger.Debug("onnx embedder unavailable, using hash embedder", zap.Error(err))
		embedder = embedding.NewHashEmbedder(cfg.Embedding.Dimensions)
	} else {
		embedder = onnxEmbedder
	}

	handler := collection.New(client, &cfg.Collection, embedder, &cfg.Search, logger)

	components := &Components{
		Store:    client,
		Embedder: embedder,
		Handler:  handler,
	}
	if withLedger {
		led, err := ledger.Open(cfg.Ingest.LedgerPath)
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to open ingest ledger: %w", err)
		}
		components.Ledger = led
		components.Ingestor = ingest.New(handler, led, cfg.Ingest.BatchSize, logger)
	}
	return components, nil
}

// setup is the shared one-shot command preamble: load config, build logger,
// initialize components. Exits the process on failure.
func setup(configPath string, withLedger bool) (*config.Config, *zap.Logger, *Components) {
	cfg, resolvedPath, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolvedPath))
	components, err := initializeComponents(context.Background(), cfg, logger, withLedger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, components
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(context.Background(), cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if err := components.Handler.Ensure(context.Background()); err != nil {
		logger.Fatal("Failed to ensure collection", zap.Error(err))
	}

	var watchSvc *watcher.Watcher
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if len(cfg.Ingest.Directories) > 0 {
		ing := components.Ingestor
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.New(
			cfg.Ingest.Directories,
			cfg.Ingest.Extensions,
			cfg.Ingest.RecursiveOrDefault(),
			func(path string) {
				if _, err := ing.IngestFile(context.Background(), path); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if err := ing.RemoveSource(context.Background(), path); err != nil {
					logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
				}
			},
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		watchSvc.SyncExistingFiles()
	}

	srv := server.NewServer(components.Handler, components.Ingestor, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runEnsure() {
	fs := flag.NewFlagSet("ensure", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	if err := components.Handler.Ensure(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Ensure failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Collection ready: %s\n", cfg.Collection.Name)
}

func runInsert() {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	source := fs.String("source", "", "source tag for the inserted sentences")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: ruiji insert [flags] <sentence> [sentence...]")
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	if err := components.Handler.Ensure(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Ensure failed: %v\n", err)
		os.Exit(1)
	}
	result, err := components.Handler.InsertTexts(ctx, fs.Args(), *source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Insert failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteInsertResult(os.Stdout, result, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: ruiji ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path := fs.Arg(0)

	cfg, logger, components := setup(*configPath, true)
	defer logger.Sync()
	defer components.Close()

	ctx := context.Background()
	if err := components.Handler.Ensure(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Ensure failed: %v\n", err)
		os.Exit(1)
	}
	info, err := os.Stat(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to stat path: %v\n", err)
		os.Exit(1)
	}
	if info.IsDir() {
		files, sentences, err := components.Ingestor.IngestDirectory(
			ctx, path, cfg.Ingest.Extensions, cfg.Ingest.RecursiveOrDefault())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d sentence(s) from %d file(s) in %s\n", sentences, files, path)
		return
	}
	// Single file: no extension filter
	n, err := components.Ingestor.IngestFile(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	if n == 0 {
		fmt.Printf("Unchanged, skipped: %s\n", path)
		return
	}
	fmt.Printf("Ingested %d sentence(s) from %s\n", n, path)
}

// buildSearchText joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchText(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	limit := fs.Int("limit", 0, "number of results (0 = config default)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: ruiji search [flags] <text>")
		os.Exit(1)
	}
	text := buildSearchText(fs.Args())
	if text == "" {
		fmt.Println("Usage: ruiji search [flags] <text>")
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	response, err := components.Handler.Search(context.Background(), &models.SearchQuery{
		Text:  text,
		Limit: *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	_, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	status, err := components.Handler.Status(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDrop() {
	fs := flag.NewFlagSet("drop", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	yes := fs.Bool("yes", false, "skip confirmation prompt")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, components := setup(*configPath, false)
	defer logger.Sync()
	defer components.Close()

	if !*yes {
		fmt.Printf("Drop collection %q and all its data? [y/N] ", cfg.Collection.Name)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("Aborted")
			return
		}
	}
	if err := components.Handler.Drop(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Drop failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Collection dropped: %s\n", cfg.Collection.Name)
}

func parseOutputFormat(s string) (cli.OutputFormat, error) {
	switch s {
	case "text":
		return cli.OutputText, nil
	case "json":
		return cli.OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func printUsage() {
	fmt.Println(`ruiji - Milvus-backed sentence similarity service

Usage:
  ruiji serve [flags]               Start the HTTP server (with directory watching)
  ruiji ensure [flags]              Create the collection if it does not exist
  ruiji insert [flags] <sentence>   Insert one or more sentences
  ruiji ingest [flags] <path>       Ingest a sentence file or directory
  ruiji search [flags] <text>       Find sentences similar to the given text
  ruiji status [flags]              Show collection status
  ruiji drop [flags]                Drop the collection
  ruiji version                     Show version
  ruiji help                        Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/ruiji/config.yaml;
                     config.yaml in the current directory takes precedence)
  --output string    Output format: text or json (search, status, insert)

Serve Flags:
  --debug            Enable debug logging

Insert Flags:
  --source string    Source tag for the inserted sentences

Drop Flags:
  --yes              Skip confirmation prompt

Examples:
  ruiji serve
  ruiji ensure
  ruiji insert "Mickey was born in Paris"
  ruiji ingest ./sentences
  ruiji search "Mickey was born where?"
  ruiji search --limit 5 --output json who is Mickey
  ruiji status
  ruiji drop --yes`)
}
