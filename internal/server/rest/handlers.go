package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/cubicd/internal/server/settings"
)

var okTrue = gin.H{"ok": true}

// maxConfigBody caps PUT /config.json bodies.
const maxConfigBody = 4 << 10

// GetConfig handles GET /config.json.
func (s *Server) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Settings.Get())
}

// PutConfig handles PUT /config.json with a partial configuration object.
func (s *Server) PutConfig(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxConfigBody))
	if err != nil {
		s.metrics.configUpdates.WithLabelValues("rejected").Inc()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.String(http.StatusRequestEntityTooLarge, "Payload Too Large")
			return
		}
		c.String(http.StatusBadRequest, "No Body")
		return
	}

	_, err = s.deps.Settings.Update(c.Request.Context(), body)
	switch {
	case err == nil:
		s.metrics.configUpdates.WithLabelValues("ok").Inc()
		c.JSON(http.StatusOK, okTrue)
	case errors.Is(err, settings.ErrNoBody):
		s.metrics.configUpdates.WithLabelValues("rejected").Inc()
		c.String(http.StatusBadRequest, "No Body")
	case errors.Is(err, settings.ErrBadJSON):
		s.metrics.configUpdates.WithLabelValues("rejected").Inc()
		c.String(http.StatusBadRequest, "Bad JSON")
	default:
		s.metrics.configUpdates.WithLabelValues("error").Inc()
		s.logger.Error(c.Request.Context(), "configuration update failed", "error", err)
		c.String(http.StatusInternalServerError, "Storage Error")
	}
}

// GetNTP handles GET /ntp.json, the in-memory timezone and NTP host.
func (s *Server) GetNTP(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Settings.Current())
}

func (s *Server) GetWiFi(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.WiFi.Snapshot(c.Request.Context()))
}

func (s *Server) GetTime(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Clock.Snapshot())
}

// ListFiles handles GET /fs/list.
func (s *Server) ListFiles(c *gin.Context) {
	list, err := s.deps.Store.List(c.Request.Context())
	if err != nil {
		s.logger.Error(c.Request.Context(), "list failed", "error", err)
		c.String(http.StatusInternalServerError, "Storage Error")
		return
	}
	c.JSON(http.StatusOK, list)
}

// DeleteFile handles DELETE /fs/delete?path=P. The response reports
// whether a file was actually removed.
func (s *Server) DeleteFile(c *gin.Context) {
	p, ok := c.GetQuery("path")
	if !ok {
		c.String(http.StatusBadRequest, "missing path")
		return
	}

	removed, err := s.deps.Store.Delete(c.Request.Context(), p)
	if err != nil {
		s.logger.Warn(c.Request.Context(), "delete failed", "path", p, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"ok": removed})
}

// UploadFiles handles POST /fs/upload. Every file part is streamed into
// the store. The response is always ok:true; failures are only logged and
// counted.
func (s *Server) UploadFiles(c *gin.Context) {
	ctx := c.Request.Context()
	if s.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	}

	mr, err := c.Request.MultipartReader()
	if err != nil {
		s.metrics.uploadFailures.Inc()
		s.logger.Warn(ctx, "upload is not multipart", "error", err)
		c.JSON(http.StatusOK, okTrue)
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.metrics.uploadFailures.Inc()
			s.logger.Warn(ctx, "multipart stream broken", "error", err)
			break
		}

		name := part.FileName()
		if name == "" {
			_ = part.Close()
			continue
		}

		res := s.deps.Uploader.Receive(ctx, name, part)
		_ = part.Close()

		s.metrics.uploadedBytes.Add(float64(res.Size))
		if res.Err != nil {
			s.metrics.uploadFailures.Inc()
			s.logger.Error(ctx, "upload failed", "path", res.Path, "session", res.ID.String(), "error", res.Err)
		}
	}

	c.JSON(http.StatusOK, okTrue)
}
