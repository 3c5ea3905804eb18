// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kotaehq/kotae/internal/config"
	"github.com/kotaehq/kotae/internal/embedding"
	"github.com/kotaehq/kotae/internal/index"
	"github.com/kotaehq/kotae/internal/ingest"
	"github.com/kotaehq/kotae/internal/llm"
	"github.com/kotaehq/kotae/internal/models"
	"github.com/kotaehq/kotae/internal/rag"
	"github.com/kotaehq/kotae/internal/server"
	"github.com/kotaehq/kotae/internal/storage"
	"github.com/kotaehq/kotae/internal/watcher"
	"github.com/kotaehq/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first
// looks for config.yaml in the current directory (for development); if
// that exists it is used. Returns the config and the path actually
// loaded.
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
	// OPENAI_API_KEY may live in a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Kotae - question answering over a website knowledge base

Usage:
  kotae server [-config path] [-debug]        Start the HTTP API server
  kotae ingest [-config path] [file]          Rebuild the index from the corpus document
  kotae ask [-config path] <question>         Ask a question
  kotae status [-config path]                 Show index status
  kotae version                               Show version
  kotae help                                  Show this help

The ask, ingest, and status commands talk to a running server
(http://localhost:8080 by default, override with -server). Pass
-server "" to work directly against the storage artifacts instead.`)
}

// Components holds the initialized service dependencies.
type Components struct {
	Meta     *storage.MetaStore
	Embedder embedding.Embedder
	Chat     llm.Client
	Cache    *index.Cache
	Engine   *rag.Engine
	Ingestor *ingest.Ingestor
}

// Close releases all component resources.
func (c *Components) Close() {
	if c.Chat != nil {
		_ = c.Chat.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Meta != nil {
		_ = c.Meta.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	meta, err := storage.NewMetaStore(cfg.Storage.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metadata store: %w", err)
	}

	embedder, err := embedding.NewEmbedder(
		cfg.Embedding.Provider,
		cfg.Embedding.Model,
		cfg.Embedding.Dimensions,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		meta.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var chat llm.Client
	if cfg.Embedding.Provider == "mock" {
		chat = &llm.MockClient{Response: rag.NotFoundAnswer}
	} else {
		chat, err = llm.NewOpenAIClient(cfg.Chat.Model, cfg.Chat.Temperature, cfg.Chat.MaxTokens)
		if err != nil {
			embedder.Close()
			meta.Close()
			return nil, fmt.Errorf("failed to initialize chat client: %w", err)
		}
	}

	cache := index.NewCache(cfg.Storage.Root, meta)

	engineOpts := []rag.Option{}
	ingestOpts := []ingest.Option{}
	if debug && logger != nil {
		engineOpts = append(engineOpts, rag.WithLogger(logger))
	}
	if logger != nil {
		ingestOpts = append(ingestOpts, ingest.WithLogger(logger))
	}

	return &Components{
		Meta:     meta,
		Embedder: embedder,
		Chat:     chat,
		Cache:    cache,
		Engine:   rag.NewEngine(cfg, embedder, cache, chat, engineOpts...),
		Ingestor: ingest.NewIngestor(cfg, embedder, meta, cache, ingestOpts...),
	}, nil
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
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

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// Warm-up: load the snapshot now so the first query does not pay
	// the disk read. Missing index is fine before the first ingest.
	if _, err := components.Cache.Get(context.Background()); err != nil {
		if errors.Is(err, index.ErrNotInitialized) {
			logger.Warn("knowledge base not initialized; POST /api/ingest to build it")
		} else {
			logger.Warn("snapshot warm-up failed", zap.Error(err))
		}
	} else {
		logger.Info("snapshot loaded", zap.Int("vectors", components.Cache.Size()))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Corpus.Watch && cfg.Corpus.Path != "" {
		ingestor := components.Ingestor
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		w := watcher.New(cfg.Corpus.Path, func(path string) {
			if _, err := ingestor.Rebuild(context.Background(), path); err != nil {
				logger.Warn("watch rebuild failed", zap.String("path", path), zap.Error(err))
			}
		}, watchOpts...)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start corpus watcher", zap.Error(err))
		}
		defer w.Stop()
		logger.Info("watching corpus", zap.String("path", cfg.Corpus.Path))
	}

	srv := server.NewServer(
		components.Engine,
		components.Ingestor,
		components.Meta,
		components.Cache,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = work directly on storage)")
	_ = fs.Parse(os.Args[2:])

	corpusPath := ""
	if fs.NArg() > 0 {
		corpusPath = fs.Arg(0)
	}

	if *serverURL != "" {
		var result ingestHTTPResponse
		if err := postJSON(*serverURL+"/api/ingest", map[string]string{"path": corpusPath}, &result); err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Ingested %d sections into %d chunks (generation %s)\n",
			result.Sections, result.Chunks, result.Generation)
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if corpusPath == "" {
		corpusPath = cfg.Corpus.Path
	}
	if corpusPath == "" {
		fmt.Fprintln(os.Stderr, "No corpus path given and none configured")
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger, cfg.Debug)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	result, err := components.Ingestor.Rebuild(context.Background(), corpusPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Ingested %d sections into %d chunks (generation %s)\n",
		result.Sections, result.Chunks, result.Generation)
}

type ingestHTTPResponse struct {
	Status     string `json:"status"`
	Sections   int    `json:"sections"`
	Chunks     int    `json:"chunks"`
	Generation string `json:"generation"`
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = work directly on storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}

	var result models.AnswerResult
	if *serverURL != "" {
		if err := postJSON(*serverURL+"/api/chat", map[string]string{"question": question}, &result); err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger, cfg.Debug)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()

		answer, err := components.Engine.Answer(context.Background(), question)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
		result = *answer
	}

	if *outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Sources {
			fmt.Printf("  - %s (%s)\n", src.SectionTitle, src.URL)
		}
	}
	fmt.Printf("\nConfidence: %s\n", result.Confidence)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = work directly on storage)")
	_ = fs.Parse(os.Args[2:])

	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(body))
			os.Exit(1)
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, body, "", "  "); err != nil {
			fmt.Println(string(body))
			return
		}
		fmt.Println(pretty.String())
		return
	}

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	meta, err := storage.NewMetaStore(cfg.Storage.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open metadata store: %v\n", err)
		os.Exit(1)
	}
	defer meta.Close()

	ctx := context.Background()
	chunks, err := meta.Count(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	generation, createdAt, err := meta.Generation(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	_, statErr := os.Stat(index.IndexPath(cfg.Storage.Root))

	fmt.Printf("Initialized: %v\n", statErr == nil)
	fmt.Printf("Chunks:      %d\n", chunks)
	if generation != "" {
		fmt.Printf("Generation:  %s (built %s)\n", generation, createdAt.Format(time.RFC3339))
	}
	if diskBytes, err := storage.DiskUsageBytes(cfg.Storage.Root); err == nil {
		fmt.Printf("Disk usage:  %d bytes\n", diskBytes)
	}
}

// postJSON posts body to url and decodes the JSON response into out.
func postJSON(url string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
