package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danmuck/igtlctl/internal/auth"
	"github.com/danmuck/igtlctl/internal/bridge"
	"github.com/danmuck/igtlctl/internal/link"
	"github.com/danmuck/igtlctl/internal/observability"
)

func (s *Server) registerRoutes() {
	observability.RegisterMetrics()

	s.router.GET("/health", func(c *gin.Context) {
		state := s.link.State()
		status := "ok"
		if state != link.Connected {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"link":    state.String(),
			"uptime":  time.Since(s.started).Round(time.Second).String(),
			"service": s.name,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	data := s.router.Group("/")
	if s.guard != nil {
		data.Use(auth.Middleware(s.guard))
	}

	data.GET("/poses", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"poses": s.hub.Latest()})
	})

	data.GET("/entities", func(c *gin.Context) {
		snap := s.entities.Snapshot()
		out := make([]gin.H, 0, len(snap))
		for _, e := range snap {
			p := e.Pose
			out = append(out, gin.H{
				"id":       e.ID,
				"index":    e.Index,
				"screw":    e.IsScrew(),
				"position": [3]float64{p.Position.X, p.Position.Y, p.Position.Z},
				"rotation": [4]float64{p.Rotation.X, p.Rotation.Y, p.Rotation.Z, p.Rotation.W},
			})
		}
		c.JSON(http.StatusOK, gin.H{"entities": out})
	})

	data.GET("/ws", gin.WrapF(bridge.Handler(s.hub)))
}
