// Package api is the read-only health/monitoring endpoint. It exposes
// snapshots of routing state and source health for external diagnostics;
// there is no mutation path.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tickrouter/internal/feed/model"
	"tickrouter/internal/feed/routing"
	"tickrouter/internal/feed/store"
)

// DBHealth is the optional database ping used by /healthz.
type DBHealth interface {
	IsHealthy(ctx context.Context) bool
}

type Server struct {
	engine *routing.Engine
	health *routing.HealthRegistry
	latest *store.LatestStore
	db     DBHealth // nil when persistence is disabled
	logger *zap.Logger
	srv    *http.Server
}

func NewServer(addr string, engine *routing.Engine, health *routing.HealthRegistry,
	latest *store.LatestStore, db DBHealth, logger *zap.Logger) *Server {
	s := &Server{
		engine: engine,
		health: health,
		latest: latest,
		db:     db,
		logger: logger,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", s.handleHealthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	{
		v1.GET("/routing", s.handleRouting)
		v1.GET("/routing/:symbol", s.handleRoutingSymbol)
		v1.GET("/sources", s.handleSources)
		v1.GET("/latest", s.handleLatest)
	}

	s.srv = &http.Server{Addr: addr, Handler: router}
	return s
}

// Run serves until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	status := http.StatusOK
	resp := gin.H{"status": "ok"}

	connected := 0
	sources := s.health.Snapshot()
	for _, src := range sources {
		if src.Connected {
			connected++
		}
	}
	resp["sources_connected"] = connected
	resp["sources_total"] = len(sources)
	if connected == 0 {
		status = http.StatusServiceUnavailable
		resp["status"] = "degraded"
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if s.db.IsHealthy(ctx) {
			resp["postgres"] = "ok"
		} else {
			resp["postgres"] = "unreachable"
		}
	}

	c.JSON(status, resp)
}

func (s *Server) handleRouting(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Snapshots())
}

func (s *Server) handleRoutingSymbol(c *gin.Context) {
	snap, ok := s.engine.Snapshot(c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown symbol"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleSources(c *gin.Context) {
	c.JSON(http.StatusOK, s.health.Snapshot())
}

// latestView is the JSON shape of one routed tick.
type latestView struct {
	Symbol        string    `json:"symbol"`
	AssetClass    string    `json:"assetClass"`
	Price         string    `json:"price"`
	Volume        string    `json:"volume"`
	QualityScore  int       `json:"qualityScore"`
	IsRealtime    bool      `json:"isRealtime"`
	RoutingStatus string    `json:"routingStatus"`
	SourceID      string    `json:"sourceId"`
	Timestamp     time.Time `json:"timestamp"`
}

func toLatestView(tick model.RoutedTick) latestView {
	return latestView{
		Symbol:        tick.Symbol,
		AssetClass:    string(tick.AssetClass),
		Price:         tick.Price.String(),
		Volume:        tick.Volume.String(),
		QualityScore:  tick.QualityScore,
		IsRealtime:    tick.IsRealtime,
		RoutingStatus: string(tick.RoutingStatus),
		SourceID:      tick.SourceID,
		Timestamp:     tick.Timestamp,
	}
}

func (s *Server) handleLatest(c *gin.Context) {
	all := s.latest.All()
	out := make([]latestView, 0, len(all))
	for _, tick := range all {
		out = append(out, toLatestView(tick))
	}
	c.JSON(http.StatusOK, out)
}
