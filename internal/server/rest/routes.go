package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	s.engine.GET("/", s.Index)

	s.engine.GET("/config.json", s.GetConfig)
	s.engine.PUT("/config.json", s.PutConfig)
	s.engine.GET("/ntp.json", s.GetNTP)
	s.engine.GET("/wifi.json", s.GetWiFi)
	s.engine.GET("/time.json", s.GetTime)

	fs := s.engine.Group("/fs")
	{
		fs.GET("/list", s.ListFiles)
		fs.DELETE("/delete", s.DeleteFile)
		fs.POST("/upload", s.UploadFiles)
	}

	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	s.engine.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			s.Static(c)
			return
		}
		c.String(http.StatusNotFound, "Not Found")
	})
}
