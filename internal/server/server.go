// Package server is the HTTP face of the engine: a thin JSON adapter that
// authenticates players by id header, forwards operations, and translates
// domain errors to status codes. All game semantics live below it.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quipdeck/quipdeck/internal/apperrors"
	"github.com/quipdeck/quipdeck/internal/config"
	"github.com/quipdeck/quipdeck/internal/engine"
)

// playerHeader carries the caller's player id. The demo deployment trusts it;
// real authentication sits in front of this service.
const playerHeader = "X-Player-ID"

type Server struct {
	engine   *engine.Engine
	defaults config.GameConfig
	log      zerolog.Logger
	router   *gin.Engine
}

func New(eng *engine.Engine, defaults config.GameConfig, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:   eng,
		defaults: defaults,
		log:      log,
		router:   gin.New(),
	}
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLog())
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := r.Group("/api")
	api.POST("/sessions", s.handleCreate)
	api.POST("/sessions/:id/join", s.handleJoin)
	api.GET("/sessions/:id", s.handleState)
	api.POST("/sessions/:id/start", s.handleStart)
	api.POST("/sessions/:id/submit", s.handleSubmit)
	api.POST("/sessions/:id/winner", s.handlePickWinner)
	api.POST("/sessions/:id/skip-czar", s.handleVoteSkipCzar)
	api.POST("/sessions/:id/early-review", s.handleForceEarlyReview)
	api.POST("/sessions/:id/next-czar", s.handleSetNextCzar)
	api.POST("/sessions/:id/place-skipped", s.handlePlaceSkipped)
	api.POST("/sessions/:id/remove", s.handleRemovePlayer)
	api.POST("/sessions/:id/transfer-host", s.handleTransferHost)
	api.POST("/sessions/:id/leave", s.handleLeave)
	api.POST("/sessions/:id/pause", s.handleTogglePause)
	api.POST("/sessions/:id/refresh-hand", s.handleRefreshHand)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info().Str("addr", addr).Msg("listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).
			Msg("http")
	}
}

// playerID extracts the caller identity, failing the request when absent.
func playerID(c *gin.Context) (string, bool) {
	id := c.GetHeader(playerHeader)
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing_player_id"})
		return "", false
	}
	return id, true
}

// fail translates engine and domain errors into HTTP responses.
func (s *Server) fail(c *gin.Context, err error) {
	var gameErr *apperrors.GameError
	if errors.As(err, &gameErr) {
		c.JSON(statusForKind(gameErr.Kind), gin.H{
			"error":   gameErr.Code,
			"message": gameErr.Message,
		})
		return
	}
	s.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("internal error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
}

func statusForKind(k apperrors.Kind) int {
	switch k {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindUnauthorized:
		return http.StatusForbidden
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindConflict, apperrors.KindPoolExhausted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
