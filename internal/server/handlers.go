package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/irrwahn/ffpreview/internal/preview"
	"github.com/irrwahn/ffpreview/internal/procrun"
	"github.com/irrwahn/ffpreview/pkg/models"
)

// buildRequest carries one extraction request. Unset optional fields
// fall back to the configured defaults.
type buildRequest struct {
	Path        string   `json:"path" binding:"required"`
	Width       int      `json:"width"`
	Method      string   `json:"method"`
	FrameSkip   int      `json:"frame_skip"`
	TimeSkip    float64  `json:"time_skip"`
	SceneThresh float64  `json:"scene_thresh"`
	CustomVF    string   `json:"customvf"`
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	BurnSub     *int     `json:"addss"`
	Reuse       bool     `json:"reuse"`
	Force       bool     `json:"force"`
}

func (s *Server) params(req buildRequest) (models.ExtractionParams, error) {
	def := s.defaults()
	if req.Width <= 0 {
		req.Width = def.ThumbWidth
	}
	if req.Method == "" {
		req.Method = def.Method
	}
	if req.FrameSkip <= 0 {
		req.FrameSkip = def.FrameSkip
	}
	if req.TimeSkip <= 0 {
		req.TimeSkip = def.TimeSkip
	}
	if req.SceneThresh <= 0 {
		req.SceneThresh = def.SceneThresh
	}
	if req.CustomVF == "" {
		req.CustomVF = def.CustomVF
	}
	burnSub := -1
	if req.BurnSub != nil {
		burnSub = *req.BurnSub
	}

	method, err := models.ParseMethod(req.Method, req.FrameSkip, req.TimeSkip, req.SceneThresh, req.CustomVF)
	if err != nil {
		return models.ExtractionParams{}, err
	}
	return models.ExtractionParams{
		VideoPath:    req.Path,
		Start:        req.Start,
		End:          req.End,
		Width:        req.Width,
		Method:       method,
		Reuse:        req.Reuse,
		BurnSubIndex: burnSub,
		Force:        req.Force,
	}, nil
}

// POST /api/v1/previews
func (s *Server) buildPreviewHandler(c *gin.Context) {
	var req buildRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}

	params, err := s.params(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid parameters", "details": err.Error()})
		return
	}

	if s.svc.Running() {
		c.JSON(http.StatusConflict, gin.H{"error": "an extraction is already in flight"})
		return
	}

	manifest, hit, err := s.svc.Build(c.Request.Context(), params, nil)
	switch {
	case errors.Is(err, procrun.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "an extraction is already in flight"})
		return
	case errors.Is(err, preview.ErrUnreadableVideo):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "video is unreadable", "details": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "extraction failed", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cache_hit": hit, "manifest": manifest})
}

// GET /api/v1/previews
func (s *Server) listPreviewsHandler(c *gin.Context) {
	entries, err := s.svc.Scan(nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to scan cache", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"root": s.svc.Root(), "previews": entries})
}

// GET /api/v1/previews/:video
func (s *Server) getManifestHandler(c *gin.Context) {
	manifest, ok := s.svc.Manifest(c.Param("video"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no manifest for this video"})
		return
	}
	c.JSON(http.StatusOK, manifest)
}

// GET /api/v1/previews/:video/thumbs/:file
func (s *Server) getThumbHandler(c *gin.Context) {
	path, err := s.svc.ThumbPath(c.Param("video"), c.Param("file"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.File(path)
}

// DELETE /api/v1/previews/:video
func (s *Server) deletePreviewHandler(c *gin.Context) {
	if err := s.svc.Delete(c.Param("video")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "preview removed"})
}

// POST /api/v1/abort
func (s *Server) abortHandler(c *gin.Context) {
	s.svc.Abort()
	c.JSON(http.StatusOK, gin.H{"message": "abort requested"})
}

type playRequest struct {
	Path      string `json:"path" binding:"required"`
	Timestamp string `json:"timestamp"`
	Paused    bool   `json:"paused"`
}

// POST /api/v1/play
func (s *Server) playHandler(c *gin.Context) {
	var req playRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
		return
	}
	if err := s.player.Launch(req.Path, req.Timestamp, req.Paused); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to launch player", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "player launched"})
}
