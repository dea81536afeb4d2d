package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/KCErb/Gospel-Language-Study/config"
	"github.com/KCErb/Gospel-Language-Study/progress"
	"github.com/KCErb/Gospel-Language-Study/talks"
	"github.com/KCErb/Gospel-Language-Study/vocab"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{})))

	var (
		configPath string
		dataDir    string
		port       int
		playTalk   string
		audioLang  string
		textLang   string
	)
	flag.StringVar(&configPath, "config", "gls.yaml", "path to config file")
	flag.StringVar(&dataDir, "data", "", "data directory (overrides config)")
	flag.IntVar(&port, "port", 0, "port to listen on (overrides config)")
	flag.StringVar(&playTalk, "play", "", "play a talk in the terminal instead of serving")
	flag.StringVar(&audioLang, "audio-lang", "", "audio language for -play")
	flag.StringVar(&textLang, "text-lang", "", "text language for -play")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
		cfg.DBPath = dataDir + "/gls.db"
	}
	if port != 0 {
		cfg.Port = port
	}

	db, err := initDB(cfg.DBPath)
	if err != nil {
		slog.Error("opening database", "path", cfg.DBPath, "err", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if playTalk != "" {
		if err := runPlay(ctx, cfg, db, playTalk, audioLang, textLang); err != nil {
			slog.Error("play", "talk", playTalk, "err", err)
			os.Exit(1)
		}
		return
	}

	if err := runServer(ctx, cfg, db); err != nil {
		slog.Error("server", "err", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context, cfg *config.Config, db *sql.DB) error {
	handler := newServer(talks.NewFSRepo(cfg.TalksDir()), vocab.NewSQLiteRepo(db))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr, "talks", cfg.TalksDir())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http listen and serve: %w", err)
	case <-ctx.Done():
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

func initDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	_, err = db.Exec(`
	PRAGMA busy_timeout       = 10000;
	PRAGMA journal_mode       = WAL;
	PRAGMA journal_size_limit = 200000000;
	PRAGMA synchronous        = NORMAL;
	PRAGMA foreign_keys       = ON;
	PRAGMA temp_store         = MEMORY;
	PRAGMA cache_size         = -16000;`)
	if err != nil {
		return nil, fmt.Errorf("applying pragmas: %w", err)
	}

	if err := vocab.Migrate(db); err != nil {
		return nil, err
	}
	if err := progress.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
