// Package main is the wadai CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/wadai/internal/cli"
	"github.com/hyperjump/wadai/internal/config"
	"github.com/hyperjump/wadai/internal/ingest"
	"github.com/hyperjump/wadai/internal/keyword"
	"github.com/hyperjump/wadai/internal/models"
	"github.com/hyperjump/wadai/internal/server"
	"github.com/hyperjump/wadai/internal/storage"
	"github.com/hyperjump/wadai/internal/topic"
	"github.com/hyperjump/wadai/internal/watcher"
	"github.com/hyperjump/wadai/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/wadai/config.yaml"
	defaultServerURL  = "http://localhost:3000"
)

// loadConfig loads config from path. When path is the default, a config.yaml in
// the current directory wins, and when neither exists the config comes from the
// environment and defaults alone. It returns the config and the path that was
// loaded, which is empty when no file was read.
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Default()
			return cfg, "", err
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
		printUsage(os.Stdout)
		os.Exit(1)
	}
	args := os.Args[2:]
	var err error
	switch command := os.Args[1]; command {
	case "server":
		err = runServer(args)
	case "ingest":
		err = runIngest(args, os.Stdin, os.Stdout)
	case "topics":
		err = runTopics(args, os.Stdout)
	case "topic":
		err = runTopic(args, os.Stdout)
	case "seed":
		err = runSeed(args, os.Stdout)
	case "regen":
		err = runRegen(args, os.Stdout)
	case "status":
		err = runStatus(args, os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("wadai version %s\n", version)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage(os.Stdout)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config and builds a logger. The debug flag forces debug logging.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Debug = cfg.Debug || debug
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, resolved, logger, nil
}

// withComponents runs fn against locally initialized components.
func withComponents(configPath string, fn func(ctx context.Context, c *Components) error) error {
	cfg, _, logger, err := setup(configPath, false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c)
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolved, logger, err := setup(*configPath, *debug)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", resolved), zap.Bool("debug", cfg.Debug))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	opts := []server.Option{
		server.WithTopicSearch(c.Search),
		server.WithMetrics(c.Registry),
	}
	if len(cfg.Inbox.Directories) > 0 {
		inbox := newInbox(cfg, c.Pipeline, logger)
		if err := inbox.Start(ctx); err != nil {
			return fmt.Errorf("failed to start inbox watcher: %w", err)
		}
		defer inbox.Stop()
		go inbox.SyncExistingFiles()
		opts = append(opts, server.WithInbox(inbox))
	}

	srv := server.NewServer(c.Pipeline, c.Storage, cfg, logger, opts...)
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func newInbox(cfg *config.Config, p *ingest.Pipeline, logger *zap.Logger) *watcher.Inbox {
	exts := cfg.Inbox.Extensions
	return watcher.NewInbox(
		cfg.Inbox.Directories,
		exts,
		cfg.Inbox.RecursiveOrDefault(),
		func(ctx context.Context, path string) {
			in, err := p.IngestFile(ctx, path, exts)
			switch {
			case errors.Is(err, ingest.ErrAlreadyIngested), errors.Is(err, ingest.ErrEmptyText):
				logger.Debug("inbox file skipped", zap.String("path", path), zap.Error(err))
			case err != nil:
				logger.Warn("inbox file ingest failed", zap.String("path", path), zap.Error(err))
			default:
				logger.Info("inbox file ingested", zap.String("path", path), zap.String("input_id", in.ID))
			}
		},
		watcher.WithLogger(logger),
	)
}

// noteText joins args into the note text. A single "-" reads the text from stdin.
func noteText(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	return strings.Join(args, " "), nil
}

func runIngest(args []string, stdin io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	id := fs.String("id", "", "note id (default: random uuid)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	text, err := noteText(fs.Args(), stdin)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("usage: wadai ingest [flags] <text> (or - to read stdin)")
	}
	req := ingest.IngestRequest{ID: *id, Text: text}

	if *serverURL != "" {
		var in models.Input
		if err := newAPIClient(*serverURL).do(context.Background(), http.MethodPost, "/api/v1/ingest", nil, req, &in); err != nil {
			return err
		}
		return cli.WriteInput(out, &in, format)
	}
	return withComponents(*configPath, func(ctx context.Context, c *Components) error {
		in, err := c.Pipeline.Ingest(ctx, req)
		if err != nil {
			return err
		}
		return cli.WriteInput(out, in, format)
	})
}

func runTopics(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("topics", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	q := fs.String("q", "", "search topics by keyword and meaning")
	limit := fs.Int("limit", 0, "maximum number of topics (0 = all, or 20 when searching)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(append([]string{*q}, fs.Args()...), " "))

	if *serverURL != "" {
		params := url.Values{}
		if query != "" {
			params.Set("q", query)
		}
		if *limit > 0 {
			params.Set("limit", strconv.Itoa(*limit))
		}
		var topics []*models.Topic
		if err := newAPIClient(*serverURL).do(context.Background(), http.MethodGet, "/api/v1/topics", params, nil, &topics); err != nil {
			return err
		}
		return cli.WriteTopics(out, topics, format)
	}
	return withComponents(*configPath, func(ctx context.Context, c *Components) error {
		topics, err := listTopics(ctx, c, query, *limit)
		if err != nil {
			return err
		}
		return cli.WriteTopics(out, topics, format)
	})
}

func listTopics(ctx context.Context, c *Components, query string, limit int) ([]*models.Topic, error) {
	if query == "" {
		topics, err := c.Storage.ListTopics(ctx)
		if err != nil {
			return nil, err
		}
		if limit > 0 && len(topics) > limit {
			topics = topics[:limit]
		}
		return topics, nil
	}
	if limit <= 0 {
		limit = 20
	}
	hits, err := c.Search.Search(ctx, query, limit, &keyword.SearchOptions{TitleBoost: 2, Fuzziness: 1})
	if err != nil {
		return nil, err
	}
	topics := make([]*models.Topic, 0, len(hits))
	for _, h := range hits {
		t, err := c.Storage.GetTopic(ctx, h.ID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, nil
}

func runTopic(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("topic", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: wadai topic [flags] <id>")
	}
	id := fs.Arg(0)

	if *serverURL != "" {
		var t models.Topic
		if err := newAPIClient(*serverURL).do(context.Background(), http.MethodGet, "/api/v1/topics/"+url.PathEscape(id), nil, nil, &t); err != nil {
			return err
		}
		return cli.WriteTopic(out, &t, format)
	}
	return withComponents(*configPath, func(ctx context.Context, c *Components) error {
		t, err := c.Storage.GetTopic(ctx, id)
		if err != nil {
			return err
		}
		return cli.WriteTopic(out, t, format)
	})
}

func runSeed(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	file := fs.String("file", "", "file with one concept per line (default: topics.seed_file, or built-in examples)")
	concurrency := fs.Int("concurrency", 0, "concepts generated at once (default: topics.seed_concurrency)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	return withComponents(*configPath, func(ctx context.Context, c *Components) error {
		concepts, err := seedConcepts(*file, c.Config.Topics.SeedFile)
		if err != nil {
			return err
		}
		n := *concurrency
		if n <= 0 {
			n = c.Config.Topics.SeedConcurrency
		}
		results, err := topic.NewSeeder(c.Storage, c.Embedder, c.Summarizer, n, nil).Seed(ctx, concepts)
		if err != nil {
			return err
		}
		if err := reindexTopics(ctx, c); err != nil {
			return err
		}
		return cli.WriteSeedResults(out, results, format)
	})
}

// seedConcepts reads concepts from the flag file, then the configured file,
// and falls back to the built-in examples.
func seedConcepts(flagFile, configFile string) ([]string, error) {
	path := flagFile
	if path == "" {
		path = configFile
	}
	if path == "" {
		return topic.DefaultConcepts, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return topic.ReadConcepts(f)
}

func runRegen(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("regen", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dryRun := fs.Bool("dry-run", false, "generate text but do not write")
	inspect := fs.Bool("inspect", false, "only list topics missing a title or summary")
	topicID := fs.String("topic-id", "", "topic whose source text is overridden by -text")
	text := fs.String("text", "", "source text for -topic-id")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	if (*topicID == "") != (*text == "") {
		return errors.New("-topic-id and -text must be used together")
	}
	return withComponents(*configPath, func(ctx context.Context, c *Components) error {
		var report *topic.FillReport
		var err error
		if *inspect {
			report, err = c.Engine.MissingText(ctx)
		} else {
			report, err = c.Engine.FillMissingText(ctx, topic.FillOptions{DryRun: *dryRun, TopicID: *topicID, Text: *text})
		}
		if err != nil {
			return err
		}
		if report.Updated > 0 {
			if err := reindexTopics(ctx, c); err != nil {
				return err
			}
		}
		return cli.WriteFillReport(out, report, format)
	})
}

type statusResponse struct {
	Topics         int64          `json:"topics"`
	Inputs         int64          `json:"inputs"`
	DiskUsageBytes *int64         `json:"disk_usage_bytes,omitempty"`
	Config         map[string]any `json:"config,omitempty"`
}

func runStatus(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = use direct storage)")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	var status statusResponse
	if *serverURL != "" {
		if err := newAPIClient(*serverURL).do(context.Background(), http.MethodGet, "/api/v1/status", nil, nil, &status); err != nil {
			return err
		}
	} else {
		err := withComponents(*configPath, func(ctx context.Context, c *Components) error {
			var err error
			if status.Topics, err = c.Storage.CountTopics(ctx); err != nil {
				return fmt.Errorf("count topics: %w", err)
			}
			if status.Inputs, err = c.Storage.CountInputs(ctx); err != nil {
				return fmt.Errorf("count inputs: %w", err)
			}
			cfg := c.Config
			status.Config = map[string]any{
				"storage_backend":      cfg.Storage.Backend,
				"embedding_provider":   cfg.Embedding.Provider,
				"embedding_dimensions": cfg.Embedding.Dimensions,
				"similarity_threshold": cfg.Topics.SimilarityThreshold,
				"database_path":        cfg.Storage.DatabasePath,
				"keyword_index_path":   cfg.Storage.KeywordIndexPath,
			}
			if n, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.KeywordIndexPath); err == nil {
				status.DiskUsageBytes = &n
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return writeStatus(out, &status, format)
}

func writeStatus(out io.Writer, status *statusResponse, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		return writeJSON(out, status)
	}
	fmt.Fprintf(out, "topics:             %d\n", status.Topics)
	fmt.Fprintf(out, "inputs:             %d\n", status.Inputs)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(out, "disk_usage_bytes:   %d   # storage + keyword index on disk\n", *status.DiskUsageBytes)
	}
	if len(status.Config) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "# configuration")
		for _, key := range sortedKeys(status.Config) {
			fmt.Fprintf(out, "%-22s %v\n", key+":", status.Config[key])
		}
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `wadai - incremental topic grouping for short notes

Usage:
  wadai server [flags]            Start the HTTP server (and inbox watcher)
  wadai ingest [flags] <text>     Store a note and assign it to a topic ("-" reads stdin)
  wadai topics [flags] [query]    List topics, or search them
  wadai topic [flags] <id>        Show one topic
  wadai seed [flags]              Create anchor topics from concepts
  wadai regen [flags]             Generate missing topic titles and summaries
  wadai status [flags]            Show counts, disk usage and configuration
  wadai version                   Show version
  wadai help                      Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/wadai/config.yaml;
                     ./config.yaml is used instead when present)
  --server string    Server URL for ingest/topics/topic/status (default: http://localhost:3000).
                     Use --server "" to work on local storage directly.
  --output string    Output format: text or json (default: text)

Server Flags:
  --debug            Enable debug logging

Topics Flags:
  --q string         Search query (keywords and meaning)
  --limit int        Maximum number of topics

Seed Flags:
  --file string      One concept per line; lines starting with # are ignored
  --concurrency int  Concepts generated at once

Regen Flags:
  --dry-run          Show generated text without saving
  --inspect          Only list topics missing text
  --topic-id string  Topic to regenerate from --text
  --text string      Source text for --topic-id

Examples:
  wadai server
  wadai ingest "remember to call the dentist next Tuesday"
  echo "what if notes grouped themselves" | wadai ingest -
  wadai topics --q dentist
  wadai topic 6f1c0a52-5d1e-4f8e-9c39-1a2b3c4d5e6f --output json
  wadai seed --file concepts.txt
  wadai regen --dry-run`)
}
