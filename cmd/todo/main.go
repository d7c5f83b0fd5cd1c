package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"todovoice/internal/capture"
	"todovoice/internal/config"
	"todovoice/internal/logging"
	"todovoice/internal/repository"
	"todovoice/internal/storage"
	"todovoice/internal/task"
	"todovoice/internal/ui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	args, err := parseArgs(argv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	configPath := args.ConfigPath
	if configPath == "" {
		configPath = config.ResolveConfigPath()
	}
	firstLaunch := false
	if _, err := os.Stat(configPath); err != nil {
		firstLaunch = errors.Is(err, os.ErrNotExist)
	}
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		return 1
	}

	logger, logFile, err := logging.Open(logging.Options{
		Path:    cfg.LogPath,
		Level:   cfg.LogLevel,
		Verbose: args.Verbose,
	})
	if err != nil {
		fmt.Printf("failed to open log: %v\n", err)
		return 1
	}
	defer logFile.Close()

	backend, err := openBackend(cfg)
	if err != nil {
		fmt.Printf("failed to open storage: %v\n", err)
		return 1
	}
	defer backend.Close()
	logger.Debug("storage opened", "backend", cfg.Backend, "namespace", cfg.Namespace)

	store := storage.NewStore(backend, cfg.Namespace, logger)
	repo := newRepository(cfg, store, logger, task.SystemClock)
	a := &app{repo: repo, store: store, now: task.SystemClock, in: os.Stdin, out: os.Stdout}
	handled, err := a.handle(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if handled {
		return 0
	}

	speech := capture.NewCommand(cfg.SpeechCommand, logger)
	if err := ui.Run(repo, speech, cfg, configPath, firstLaunch); err != nil {
		fmt.Printf("error running program: %v\n", err)
		return 1
	}
	return 0
}

func openBackend(cfg config.Config) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return storage.OpenFile(cfg.DataDir)
	default:
		return storage.OpenSQLite(cfg.DBPath)
	}
}

func newRepository(cfg config.Config, store *storage.Store, logger *log.Logger, now task.Clock) *repository.Repository {
	// LoadOrCreate has already rejected a bad timezone.
	loc, _ := cfg.Location()
	return repository.New(repository.Config{
		Store:    store,
		Clock:    now,
		Location: loc,
		Logger:   logger,
	})
}
