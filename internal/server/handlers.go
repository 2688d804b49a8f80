package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/alkime/journal/internal/entry"
	"github.com/alkime/journal/internal/journal"
	"github.com/alkime/journal/internal/refine"
	"github.com/alkime/journal/internal/transcription"
	"github.com/gin-gonic/gin"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Server) handleCreateVoice(c *gin.Context) {
	var req entry.CreateVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body", "")
		return
	}

	e, err := s.deps.Entries.CreateVoice(c.Request.Context(), userFrom(c), req)
	if err != nil {
		s.entryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry.Envelope{Entry: e})
}

func (s *Server) handleListEntries(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			abortWithError(c, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}

		limit = min(n, maxListLimit)
	}

	entries, err := s.deps.Entries.List(c.Request.Context(), userFrom(c), limit)
	if err != nil {
		s.entryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) handleGetEntry(c *gin.Context) {
	e, err := s.deps.Entries.Get(c.Request.Context(), userFrom(c), c.Param("id"))
	if err != nil {
		s.entryError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry.Envelope{Entry: e})
}

func (s *Server) handleUpdateEntry(c *gin.Context) {
	var patch entry.UpdateRequest
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid request body", "")
		return
	}

	e, err := s.deps.Entries.Update(c.Request.Context(), userFrom(c), c.Param("id"), patch)
	if err != nil {
		s.entryError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry.Envelope{Entry: e})
}

func (s *Server) handleDeleteEntry(c *gin.Context) {
	e, err := s.deps.Entries.Delete(c.Request.Context(), userFrom(c), c.Param("id"))
	if err != nil {
		s.entryError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry.Envelope{Entry: e})
}

// entryError maps repository errors onto status codes.
func (s *Server) entryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entry.ErrInvalidEntry):
		abortWithError(c, http.StatusBadRequest, err.Error(), "")
	case errors.Is(err, entry.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "entry not found", "")
	case errors.Is(err, entry.ErrLocked):
		abortWithError(c, http.StatusConflict, "entry is locked", "locked")
	default:
		s.logger.Error("entry request failed", "path", c.FullPath(), "error", err)
		abortWithError(c, http.StatusInternalServerError, "internal error", "")
	}
}

func (s *Server) handleTranscribe(c *gin.Context) {
	if s.deps.Transcriber == nil {
		abortWithError(c, http.StatusServiceUnavailable, "transcription is not configured", "")
		return
	}

	var req transcription.Request
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.AudioURL) == "" {
		abortWithError(c, http.StatusBadRequest, "audioUrl is required", "")
		return
	}

	text, err := s.deps.Transcriber.Transcribe(c.Request.Context(), req.AudioURL)
	switch {
	case errors.Is(err, transcription.ErrQuotaExceeded):
		s.logger.Warn("transcription quota exceeded", "error", err)
		abortWithError(c, http.StatusTooManyRequests, "transcription quota exceeded", transcription.QuotaCode)

		return
	case err != nil:
		s.logger.Error("transcription failed", "error", err)
		abortWithError(c, http.StatusBadGateway, "transcription failed", "")

		return
	}

	c.JSON(http.StatusOK, transcription.Response{Transcript: text})
}

func (s *Server) handleProcessTranscript(c *gin.Context) {
	if s.deps.Corrector == nil {
		abortWithError(c, http.StatusServiceUnavailable, "transcript correction is not configured", "")
		return
	}

	var req refine.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Transcript) == "" {
		abortWithError(c, http.StatusBadRequest, "transcript is required", "")
		return
	}

	result, err := s.deps.Corrector.Correct(c.Request.Context(), req.Transcript)
	if err != nil {
		s.logger.Error("transcript correction failed", "error", err)
		abortWithError(c, http.StatusBadGateway, "transcript correction failed", "")

		return
	}

	corrections := result.Corrections
	if corrections == nil {
		corrections = []journal.Correction{}
	}

	c.JSON(http.StatusOK, refine.ProcessResponse{
		Processed:   result.Processed,
		Original:    result.Original,
		Changed:     result.Changed,
		Corrections: corrections,
	})
}
