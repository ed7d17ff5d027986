package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/user00265/ctyresolve/internal/api"
	"github.com/user00265/ctyresolve/internal/config"
	"github.com/user00265/ctyresolve/internal/cty"
	"github.com/user00265/ctyresolve/internal/db"
	"github.com/user00265/ctyresolve/internal/dxcc"
	"github.com/user00265/ctyresolve/internal/logging"
	"github.com/user00265/ctyresolve/internal/lookup"
	"github.com/user00265/ctyresolve/internal/redisclient"
	"github.com/user00265/ctyresolve/version"
)

// Swapped by tests.
var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

func main() {
	status := RunApplication(context.Background(), os.Args[1:])
	if status != 0 {
		os.Exit(status)
	}
}

// RunApplication runs the command in args and returns the exit code.
// Tests call this function directly to run the app in-process.
//
//	ctyresolve                 serve the HTTP API
//	ctyresolve healthcheck     validate configuration
//	ctyresolve resolve CALL... resolve calls (or stdin lines) to stdout
func RunApplication(ctx context.Context, args []string) int {
	// Apply LOG_LEVEL first so the very first log lines respect it.
	envLevel := os.Getenv("LOG_LEVEL")
	applyLogLevel(envLevel)

	cfg, err := config.LoadConfig()
	if err != nil {
		logging.Crit("Failed to load configuration: %v", err)
		return 1
	}
	// A level set only in the env file is known after LoadConfig.
	if cfg.LogLevel != envLevel {
		applyLogLevel(cfg.LogLevel)
	}
	if cfg.LogFile != "" {
		logging.SetFile(cfg.LogFile)
		defer logging.SetFile("")
	}

	cmd := ""
	if len(args) > 0 {
		cmd = strings.ToLower(args[0])
	}
	switch cmd {
	case "healthcheck":
		fmt.Fprintln(stdout, "Health check successful")
		return 0
	case "resolve":
		return runResolve(ctx, cfg, args[1:])
	case "", "serve":
		return runServer(ctx, cfg)
	default:
		logging.Error("Unknown command %q; valid: serve, healthcheck, resolve", args[0])
		return 2
	}
}

func applyLogLevel(v string) {
	if v == "" {
		return
	}
	lvl, err := logging.ParseLevel(v)
	if err != nil {
		logging.Warn("Unrecognized LOG_LEVEL=%q; valid: crit,error,warn,notice,info,debug or 0-5. Using default (NOTICE).", v)
		return
	}
	logging.SetLevel(lvl)
}

func lookupOptions(cfg *config.Config) lookup.Options {
	return lookup.Options{
		CacheSize:       cfg.CacheSize,
		CacheTTL:        cfg.CacheTTL,
		Workers:         cfg.BatchWorkers,
		CallPattern:     cfg.CallsignRe,
		DomesticPattern: cfg.DomesticCallsignRe,
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*cty.Client, error) {
	dbClient, err := db.NewSQLiteClient(cfg.DataDir, cty.DBFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open country file database: %w", err)
	}
	client, err := cty.NewClient(ctx, *cfg, dbClient)
	if err != nil {
		dbClient.Close()
		return nil, err
	}
	return client, nil
}

// loadDataset refreshes the stored country file when needed and returns
// the index. A failed download falls back to whatever is already stored.
func loadDataset(ctx context.Context, cfg *config.Config, store *cty.Client) (*dxcc.Index, string, error) {
	if cfg.CtyFile != "" {
		logging.Info("Loading country file from %s", cfg.CtyFile)
		if err := store.LoadFile(ctx, cfg.CtyFile); err != nil {
			return nil, "", err
		}
	} else {
		needs, err := store.NeedsUpdate(ctx)
		if err != nil {
			logging.Warn("Could not check country file age, refreshing: %v", err)
			needs = true
		}
		if needs {
			if err := store.FetchAndStore(ctx); err != nil {
				logging.Warn("Country file download failed, using stored copy if any: %v", err)
			}
		} else {
			logging.Info("Stored country file is recent; skipping download.")
		}
	}
	return store.LoadIndex(ctx)
}

func runResolve(ctx context.Context, cfg *config.Config, calls []string) int {
	store, err := openStore(ctx, cfg)
	if err != nil {
		logging.Crit("%v", err)
		return 1
	}
	defer store.Close()

	ix, ver, err := loadDataset(ctx, cfg, store)
	if err != nil {
		logging.Crit("No country file available: %v", err)
		return 1
	}

	if len(calls) == 0 {
		sc := bufio.NewScanner(stdin)
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				calls = append(calls, line)
			}
		}
		if err := sc.Err(); err != nil {
			logging.Crit("Failed to read callsigns from stdin: %v", err)
			return 1
		}
	}

	svc := lookup.NewService(lookupOptions(cfg), nil)
	svc.SetIndex(ix, ver)
	out, err := svc.LookupBatch(ctx, calls)
	if err != nil {
		logging.Crit("Lookup aborted: %v", err)
		return 1
	}

	w := bufio.NewWriter(stdout)
	defer w.Flush()
	for _, info := range out {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			info.Callsign, info.Name, info.Prefix, info.CQZone, info.ITUZone, info.Continent, info.PortableID)
	}
	return 0
}

func runServer(ctx context.Context, cfg *config.Config) int {
	logging.Notice("Starting %s v%s (+%s)", version.ProjectName, version.ProjectVersion, version.ProjectGitHubURL)
	logging.Info("Configuration loaded. WebPort: %d, DataDir: %s, CacheSize: %d, BatchWorkers: %d",
		cfg.WebPort, cfg.DataDir, cfg.CacheSize, cfg.BatchWorkers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var remote lookup.ResultCache
	if cfg.Redis.Enabled {
		rdb, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			logging.Crit("Failed to initialize Redis client: %v", err)
			return 1
		}
		defer rdb.Close()
		remote = redisclient.NewResultCache(rdb, cfg.Redis.ResultExpiry)
		logging.Info("Redis result cache enabled. Host: %s:%s, DB: %d, TLS: %t", cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.DB, cfg.Redis.UseTLS)
	} else {
		logging.Info("Redis result cache disabled (using in-memory only).")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		logging.Crit("%v", err)
		return 1
	}
	defer store.Close()

	svc := lookup.NewService(lookupOptions(cfg), remote)
	if ix, ver, err := loadDataset(ctx, cfg, store); err != nil {
		// Serve 503s until the updater stores a dataset.
		logging.Error("No country file available yet: %v", err)
	} else {
		svc.SetIndex(ix, ver)
	}
	if cfg.CtyFile == "" {
		store.StartUpdater(ctx, svc.SetIndex)
	}

	router := api.NewRouter(api.Options{BaseURL: cfg.BaseURL, BatchMax: cfg.BatchMax}, svc, store)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	logging.Notice("HTTP API listening on :%d (BaseURL: %s)", cfg.WebPort, cfg.BaseURL)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		logging.Notice("Received OS shutdown signal. Shutting down server...")
	case <-ctx.Done():
		logging.Notice("Context cancelled. Shutting down server...")
	case err := <-serveErr:
		logging.Crit("HTTP server failed: %v", err)
		return 3
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Crit("Server forced to shutdown: %v", err)
		return 3
	}
	logging.Notice("Server exited gracefully.")
	return 0
}
