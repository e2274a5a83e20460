package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quipdeck/quipdeck/internal/catalog"
	"github.com/quipdeck/quipdeck/internal/config"
	"github.com/quipdeck/quipdeck/internal/engine"
	"github.com/quipdeck/quipdeck/internal/server"
	"github.com/quipdeck/quipdeck/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Warn().Err(err).Msg("config file not loaded, using defaults")
		cfg = config.Default()
	}

	cat, err := catalog.LoadDir(cfg.Game.DeckDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Game.DeckDir).Msg("loading decks")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()

	store := storage.NewRedisStore(rdb, cfg.Game.SessionTTLDuration())
	eng := engine.New(store, cat)
	srv := server.New(eng, cfg.Game, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := srv.Run(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}
