package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/quipdeck/quipdeck/internal/catalog"
	"github.com/quipdeck/quipdeck/internal/engine"
	"github.com/quipdeck/quipdeck/internal/game/session"
)

type createSessionRequest struct {
	Name     string            `json:"name"`
	Settings *session.Settings `json:"settings"`
	Filter   catalog.Filter    `json:"filter"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type submitRequest struct {
	CardIDs []string `json:"card_ids"`
}

type winnerRequest struct {
	WinnerID string `json:"winner_id"`
}

type nextCzarRequest struct {
	CzarID string `json:"czar_id"`
}

type placeSkippedRequest struct {
	SkippedID string `json:"skipped_id"`
	BeforeID  string `json:"before_id"`
}

type removeRequest struct {
	TargetID string `json:"target_id"`
}

type transferHostRequest struct {
	NewHostID string `json:"new_host_id"`
	Leave     bool   `json:"leave"`
}

// sessionSettings merges the request with the configured defaults.
func (s *Server) sessionSettings(req *session.Settings) session.Settings {
	settings := session.Settings{
		MaxPlayers: s.defaults.MaxPlayers,
		MaxScore:   s.defaults.MaxScore,
		HandSize:   s.defaults.HandSize,
	}
	if req == nil {
		return settings
	}
	if req.MaxPlayers != 0 {
		settings.MaxPlayers = req.MaxPlayers
	}
	if req.MaxScore != 0 {
		settings.MaxScore = req.MaxScore
	}
	if req.HandSize != 0 {
		settings.HandSize = req.HandSize
	}
	settings.RandoEnabled = req.RandoEnabled
	settings.AllowLateJoin = req.AllowLateJoin
	return settings
}

func (s *Server) handleCreate(c *gin.Context) {
	var req createSessionRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	sess, creatorID, err := s.engine.CreateSession(c.Request.Context(), req.Name, s.sessionSettings(req.Settings), req.Filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info().Str("session", sess.ID).Msg("session created")
	c.JSON(http.StatusCreated, gin.H{
		"player_id": creatorID,
		"session":   viewFor(sess, creatorID),
	})
}

func (s *Server) handleJoin(c *gin.Context) {
	var req joinRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}

	sess, joinedID, err := s.engine.Join(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"player_id": joinedID,
		"session":   viewFor(sess, joinedID),
	})
}

// handleState is the polling endpoint. With ?since=<version> it answers
// 304 Not Modified while the document is unchanged, so clients poll cheaply.
func (s *Server) handleState(c *gin.Context) {
	pid, ok := playerID(c)
	if !ok {
		return
	}

	var since int64
	if raw := c.Query("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_since"})
			return
		}
		since = v
	}

	sess, err := s.engine.State(c.Request.Context(), c.Param("id"), since)
	if errors.Is(err, engine.ErrNotModified) {
		c.Status(http.StatusNotModified)
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": viewFor(sess, pid)})
}

func (s *Server) handleStart(c *gin.Context) {
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.Start(c.Request.Context(), c.Param("id"), pid)
	})
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.Submit(c.Request.Context(), c.Param("id"), pid, req.CardIDs)
	})
}

func (s *Server) handlePickWinner(c *gin.Context) {
	var req winnerRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.PickWinner(c.Request.Context(), c.Param("id"), pid, req.WinnerID)
	})
}

func (s *Server) handleVoteSkipCzar(c *gin.Context) {
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.VoteSkipCzar(c.Request.Context(), c.Param("id"), pid)
	})
}

func (s *Server) handleForceEarlyReview(c *gin.Context) {
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.ForceEarlyReview(c.Request.Context(), c.Param("id"), pid)
	})
}

func (s *Server) handleSetNextCzar(c *gin.Context) {
	var req nextCzarRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.SetNextCzar(c.Request.Context(), c.Param("id"), pid, req.CzarID)
	})
}

func (s *Server) handlePlaceSkipped(c *gin.Context) {
	var req placeSkippedRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.PlaceSkippedPlayer(c.Request.Context(), c.Param("id"), pid, req.SkippedID, req.BeforeID)
	})
}

func (s *Server) handleRemovePlayer(c *gin.Context) {
	var req removeRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.RemovePlayer(c.Request.Context(), c.Param("id"), pid, req.TargetID)
	})
}

func (s *Server) handleTransferHost(c *gin.Context) {
	var req transferHostRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.TransferHost(c.Request.Context(), c.Param("id"), pid, req.NewHostID, req.Leave)
	})
}

func (s *Server) handleLeave(c *gin.Context) {
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.LeaveGame(c.Request.Context(), c.Param("id"), pid)
	})
}

func (s *Server) handleTogglePause(c *gin.Context) {
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.TogglePause(c.Request.Context(), c.Param("id"), pid)
	})
}

func (s *Server) handleRefreshHand(c *gin.Context) {
	s.mutate(c, func(pid string) (*session.Session, error) {
		return s.engine.RefreshHand(c.Request.Context(), c.Param("id"), pid)
	})
}

// mutate runs an engine operation for the authenticated caller and replies
// with their view of the updated session.
func (s *Server) mutate(c *gin.Context, op func(playerID string) (*session.Session, error)) {
	pid, ok := playerID(c)
	if !ok {
		return
	}
	sess, err := op(pid)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": viewFor(sess, pid)})
}
