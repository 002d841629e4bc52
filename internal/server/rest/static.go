package rest

import (
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/cubicd/internal/common"
	"github.com/dmitrijs2005/cubicd/internal/store"
)

const gzSuffix = ".gz"

// contentTypeByExt maps file extensions to MIME types. Anything else is
// served as text/plain.
var contentTypeByExt = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gz":   "application/octet-stream",
}

func detectContentType(name string) string {
	if ct, ok := contentTypeByExt[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "text/plain"
}

// Index handles GET / by serving the web UI entry asset.
func (s *Server) Index(c *gin.Context) {
	s.serveAsset(c, s.indexAsset, s.gzipAssets)
}

// Static serves any other GET straight from the store.
func (s *Server) Static(c *gin.Context) {
	s.serveAsset(c, c.Request.URL.Path, false)
}

// assetCandidates lists the store paths tried for p, in order. With
// gzipFirst the compressed variant is preferred; otherwise it is only a
// fallback, and only when compressed assets are enabled.
func (s *Server) assetCandidates(p string, gzipFirst bool) []string {
	if strings.HasSuffix(p, gzSuffix) || !s.gzipAssets {
		return []string{p}
	}
	if gzipFirst {
		return []string{p + gzSuffix, p}
	}
	return []string{p, p + gzSuffix}
}

func (s *Server) serveAsset(c *gin.Context, p string, gzipFirst bool) {
	ctx := c.Request.Context()
	np := store.NormalizePath(p)

	for _, candidate := range s.assetCandidates(np, gzipFirst) {
		rc, size, err := s.deps.Store.Open(ctx, candidate)
		if errors.Is(err, common.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Error(ctx, "asset read failed", "path", candidate, "error", err)
			c.String(http.StatusInternalServerError, "Storage Error")
			return
		}
		defer rc.Close()

		headers := map[string]string{}
		if candidate != np {
			headers["Content-Encoding"] = "gzip"
		}
		c.DataFromReader(http.StatusOK, size, detectContentType(np), rc, headers)
		return
	}

	c.String(http.StatusNotFound, "Not Found")
}
