// Package main is the chartdex CLI entry point.
package main

import (
	"context"
	"encoding/json"
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

	"github.com/tuforums/chartdex/internal/cli"
	"github.com/tuforums/chartdex/internal/config"
	"github.com/tuforums/chartdex/internal/index"
	"github.com/tuforums/chartdex/internal/indexer"
	"github.com/tuforums/chartdex/internal/models"
	"github.com/tuforums/chartdex/internal/retrieval"
	"github.com/tuforums/chartdex/internal/search"
	"github.com/tuforums/chartdex/internal/server"
	"github.com/tuforums/chartdex/internal/tier"
	"github.com/tuforums/chartdex/internal/watcher"
	"github.com/tuforums/chartdex/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/chartdex/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used. Returns the config and the path that was actually loaded.
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
	case "server":
		runServer()
	case "levels":
		runSearch("levels")
	case "passes":
		runSearch("passes")
	case "load":
		runLoad()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("chartdex version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: chartdex <command> [flags]

Commands:
  server    run the search API server
  levels    search the level collection
  passes    search the pass collection
  load      load the data dumps into the indices
  status    show document counts
  version   print version
`)
}

// components holds every initialized dependency behind the server and the
// direct-access CLI paths.
type components struct {
	Levels      *index.LevelIndex
	Passes      *index.PassIndex
	Tiers       *tier.SQLiteResolver
	Indexer     *indexer.Indexer
	LevelEngine *search.LevelEngine
	PassEngine  *search.PassEngine
	Config      *config.Config
	Logger      *zap.Logger
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	levels, err := index.OpenLevels(cfg.Storage.LevelIndexPath)
	if err != nil {
		return nil, err
	}
	passes, err := index.OpenPasses(cfg.Storage.PassIndexPath)
	if err != nil {
		_ = levels.Close()
		return nil, err
	}
	tiers, err := tier.Open(cfg.Storage.DatabasePath)
	if err != nil {
		_ = levels.Close()
		_ = passes.Close()
		return nil, err
	}

	retCfg := retrieval.Config{
		MaxResultWindow: cfg.Search.MaxResultWindow,
		ScrollPageSize:  cfg.Search.ScrollPageSize,
		MaxScrollPages:  cfg.Search.MaxScrollPages,
	}
	return &components{
		Levels:      levels,
		Passes:      passes,
		Tiers:       tiers,
		Indexer:     indexer.NewIndexer(levels, passes, indexer.WithLogger(logger)),
		LevelEngine: search.NewLevelEngine(levels, tiers, logger, retCfg),
		PassEngine:  search.NewPassEngine(passes, logger, retCfg),
		Config:      cfg,
		Logger:      logger,
	}, nil
}

// Close releases the indices and the tier database.
func (c *components) Close() {
	_ = c.Levels.Close()
	_ = c.Passes.Close()
	_ = c.Tiers.Close()
}

// CountLevels implements server.Counts.
func (c *components) CountLevels(context.Context) (uint64, error) {
	return c.Levels.DocCount()
}

// CountPasses implements server.Counts.
func (c *components) CountPasses(context.Context) (uint64, error) {
	return c.Passes.DocCount()
}

func (c *components) reload(ctx context.Context) (indexer.Stats, error) {
	return c.Indexer.LoadDumps(ctx, c.Config.Storage.DataDir, c.Tiers)
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

	c, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer c.Close()

	if stats, err := c.reload(context.Background()); err != nil {
		logger.Warn("initial dump load failed", zap.Error(err))
	} else {
		logger.Info("initial dump load done",
			zap.Int("levels", stats.Levels), zap.Int("passes", stats.Passes))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Watch.Enabled {
		watchOpts := []watcher.WatcherOption{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc := watcher.NewWatcher(
			cfg.Storage.DataDir,
			[]string{indexer.LevelsDump, indexer.PassesDump, indexer.DifficultiesDump},
			func() {
				if _, err := c.reload(context.Background()); err != nil {
					logger.Warn("dump reload failed", zap.Error(err))
				}
			},
			watchOpts...,
		)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer watchSvc.Stop()
	}

	srv := server.NewServer(c.LevelEngine, c.PassEngine, c, c.reload, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
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

// searchParams carries the flag values shared by the levels and passes
// subcommands.
type searchParams struct {
	query   string
	sort    string
	offset  int
	limit   int
	filters url.Values
}

func runSearch(collection string) {
	fs := flag.NewFlagSet(collection, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = open the indices directly)")
	sortKey := fs.String("sort", "", "sort key")
	offset := fs.Int("offset", 0, "page offset")
	limit := fs.Int("limit", 30, "number of results")
	deleted := fs.String("deleted", "", `deleted filter: "hide" or "only"`)
	lowDiff := fs.String("low-diff", "", "lowest difficulty tier name")
	highDiff := fs.String("high-diff", "", "highest difficulty tier name")
	only12k := fs.Bool("only-12k", false, "only 12-key clears (passes)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	queryStr := strings.TrimSpace(strings.Join(fs.Args(), " "))
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	p := searchParams{
		query:   queryStr,
		sort:    *sortKey,
		offset:  *offset,
		limit:   *limit,
		filters: url.Values{},
	}
	if *deleted != "" {
		p.filters.Set("deletedFilter", *deleted)
	}
	if *lowDiff != "" {
		p.filters.Set("lowDiff", *lowDiff)
	}
	if *highDiff != "" {
		p.filters.Set("highDiff", *highDiff)
	}
	if *only12k {
		p.filters.Set("only12k", "true")
	}

	if *serverURL != "" {
		if err := searchViaHTTP(*serverURL, collection, p, format); err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Direct index access when the server is not running.
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

	c, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	filters := models.Filters{
		Deleted:  models.VisibilityMode(*deleted),
		LowDiff:  *lowDiff,
		HighDiff: *highDiff,
		Only12K:  *only12k,
		Sort:     *sortKey,
		Offset:   *offset,
		Limit:    *limit,
	}
	ctx := context.Background()
	switch collection {
	case "levels":
		res, err := c.LevelEngine.Search(ctx, queryStr, filters)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteLevelResults(os.Stdout, res, format)
	case "passes":
		res, err := c.PassEngine.Search(ctx, queryStr, filters)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WritePassResults(os.Stdout, res, format)
	}
}

// searchURL builds the API URL for a collection search.
func searchURL(serverURL, collection string, p searchParams) string {
	q := url.Values{}
	for k, vs := range p.filters {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if p.query != "" {
		q.Set("query", p.query)
	}
	if p.sort != "" {
		q.Set("sort", p.sort)
	}
	if p.offset > 0 {
		q.Set("offset", strconv.Itoa(p.offset))
	}
	q.Set("limit", strconv.Itoa(p.limit))
	return serverURL + "/api/v1/" + collection + "?" + q.Encode()
}

func searchViaHTTP(serverURL, collection string, p searchParams, format cli.SearchOutputFormat) error {
	resp, err := http.Get(searchURL(serverURL, collection, p))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	switch collection {
	case "levels":
		var res models.LevelResult
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return cli.WriteLevelResults(os.Stdout, &res, format)
	default:
		var res models.PassResult
		if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return cli.WritePassResults(os.Stdout, &res, format)
	}
}

func runLoad() {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	dataDir := fs.String("data", "", "data dump directory (default: storage.data_dir)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	c, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	stats, err := c.reload(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("loaded %d levels, %d passes, %d tiers from %s\n",
		stats.Levels, stats.Passes, stats.Tiers, cfg.Storage.DataDir)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = open the indices directly)")
	_ = fs.Parse(os.Args[2:])

	var levels, passes uint64
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var body struct {
			Levels uint64 `json:"levels"`
			Passes uint64 `json:"passes"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			fmt.Fprintf(os.Stderr, "decode response: %v\n", err)
			os.Exit(1)
		}
		levels, passes = body.Levels, body.Passes
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
		c, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer c.Close()
		if levels, err = c.Levels.DocCount(); err != nil {
			fmt.Fprintf(os.Stderr, "Count levels failed: %v\n", err)
			os.Exit(1)
		}
		if passes, err = c.Passes.DocCount(); err != nil {
			fmt.Fprintf(os.Stderr, "Count passes failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("levels: %d\npasses: %d\n", levels, passes)
}
