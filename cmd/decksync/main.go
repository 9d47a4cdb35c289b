package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/conorfennell/decksync/internal/config"
	"github.com/conorfennell/decksync/internal/importer"
	"github.com/conorfennell/decksync/internal/localstore"
	"github.com/conorfennell/decksync/internal/remote"
	"github.com/conorfennell/decksync/internal/store"
	"github.com/conorfennell/decksync/internal/syncer"
	"github.com/conorfennell/decksync/internal/web"
)

func main() {
	flags := flag.NewFlagSet("decksync", flag.ExitOnError)
	configFile := flags.String("config", "", "Path to a yaml config file")
	flags.String("db.path", "decksync.db", "Path to the SQLite database file")
	flags.String("listen.addr", ":8787", "HTTP listen address")
	flags.String("remote.url", "", "Base URL of the remote store (empty for local-only)")
	flags.String("remote.api_key", "", "API key for the remote store")
	flags.String("import.cache_dir", "repos", "Directory for cached git clones")
	syncOnce := flags.Bool("sync-once", false, "Run a single sync pass and exit")
	source := flags.String("source", "", "Import cards from a markdown directory or git URL, then exit")
	exportJSON := flags.Bool("export-json", false, "Print the collection as JSON and exit")
	loadJSON := flags.String("load-json", "", "Replace the collection from a JSON export file, then exit")
	flags.Parse(os.Args[1:])

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configFile, flags)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	local, err := localstore.Open(cfg.DB.Path)
	if err != nil {
		logger.Error("Failed to open database", "path", cfg.DB.Path, "error", err)
		os.Exit(1)
	}
	defer local.Close()
	logger.Info("Database opened", "path", cfg.DB.Path)

	var engine *syncer.Engine
	if cfg.RemoteEnabled() {
		rem := remote.New(cfg.Remote.URL, cfg.Remote.APIKey)
		engine = syncer.New(local, rem, logger)
		engine.ResetDelay = cfg.Sync.ResetDelay
		logger.Info("Remote sync enabled", "url", cfg.Remote.URL)
	} else {
		logger.Info("Running in local-only mode")
	}

	mgr := store.New(local, engine, logger)

	ctx := context.Background()
	if err := mgr.Init(ctx); err != nil {
		logger.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}

	switch {
	case *exportJSON:
		data, err := mgr.ExportData()
		if err != nil {
			logger.Error("Export failed", "error", err)
			os.Exit(1)
		}
		fmt.Println(data)
	case *loadJSON != "":
		payload, err := os.ReadFile(*loadJSON)
		if err != nil {
			logger.Error("Failed to read import file", "path", *loadJSON, "error", err)
			os.Exit(1)
		}
		if !mgr.ImportData(string(payload)) {
			logger.Error("Import file rejected", "path", *loadJSON)
			os.Exit(1)
		}
		logger.Info("Collection imported", "path", *loadJSON)
	case *source != "":
		var result importer.Result
		if importer.IsGitSource(*source) {
			result, err = importer.Git(mgr, *source, cfg.Import.CacheDir)
		} else {
			result, err = importer.Dir(mgr, *source)
		}
		if err != nil {
			logger.Error("Import failed", "source", *source, "error", err)
			os.Exit(1)
		}
		fmt.Printf("Imported %d cards into %d new decks from %d files (%d duplicates skipped, %d errors).\n",
			result.Cards, result.Decks, result.Files, result.Skipped, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("- %s\n", e)
		}
	case *syncOnce:
		if engine == nil {
			logger.Error("No remote configured, nothing to sync")
			os.Exit(1)
		}
		if err := engine.Run(ctx); err != nil && !errors.Is(err, syncer.ErrInFlight) {
			logger.Error("Sync failed", "error", err)
			os.Exit(1)
		}
		engine.Wait()
		logger.Info("Sync finished", "state", engine.State())
	default:
		if engine != nil {
			engine.Trigger()
		}
		srv := web.NewServer(mgr)
		logger.Info("Listening", "addr", cfg.Listen.Addr)
		if err := http.ListenAndServe(cfg.Listen.Addr, srv); err != nil {
			logger.Error("Server stopped", "error", err)
			os.Exit(1)
		}
	}
}
