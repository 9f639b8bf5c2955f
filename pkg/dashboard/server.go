package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anrid/colombia-stats/pkg/stats"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageTitle    = "Visualización de Matrículas en Educación Superior (2015–2023)"
	pageSubtitle = "Programas académicos y promedio de matriculados por departamento"
)

// ServerConfig holds the HTTP settings of the dashboard.
type ServerConfig struct {
	CORSOrigins []string
}

// Server serves the dashboard page, the rendered views and the merged
// dataset. Everything is prepared in NewServer; handlers only read.
type Server struct {
	ds      *stats.Dataset
	views   []View
	byID    map[string]View
	geojson []byte
	logger  *zap.Logger
	router  *gin.Engine

	requests *prometheus.CounterVec
	registry *prometheus.Registry
}

// RegionResponse is the JSON form of a region, without geometry.
type RegionResponse struct {
	Name              string            `json:"name"`
	Key               string            `json:"key"`
	ProgramCount      *int64            `json:"program_count"`
	AverageEnrollment *float64          `json:"average_enrollment"`
	LogCount          *float64          `json:"log_count"`
	TopQuartile       bool              `json:"top_quartile"`
	Attributes        map[string]string `json:"attributes"`
}

// NewServer renders the views of ds and sets up the routes.
func NewServer(ds *stats.Dataset, cfg ServerConfig, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	views, err := BuildViews(ds)
	if err != nil {
		return nil, err
	}

	fc, err := json.Marshal(ds.FeatureCollection(true))
	if err != nil {
		return nil, fmt.Errorf("encode feature collection: %w", err)
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		ds:       ds,
		views:    views,
		byID:     make(map[string]View, len(views)),
		geojson:  fc,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "HTTP requests served by the dashboard, by route and status.",
		}, []string{"route", "status"}),
	}
	for _, v := range views {
		s.byID[v.ID] = v
	}
	s.registry.MustRegister(s.requests)

	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests())
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.Index)
	router.GET("/views/:file", s.ViewSVG)
	router.GET("/healthz", s.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	api.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	{
		api.GET("/regions", s.Regions)
		api.GET("/regions.geojson", s.RegionsGeoJSON)
	}

	s.router = router
	return s, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        24 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

// logRequests logs every request and counts it by route and status.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		s.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		s.logger.Debug("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)))
	}
}

// Handler returns the HTTP handler of the dashboard.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Views returns the rendered views in tab order.
func (s *Server) Views() []View {
	return s.views
}

// Index handles GET /
func (s *Server) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title":    pageTitle,
		"Subtitle": pageSubtitle,
		"Views":    s.views,
	})
}

// ViewSVG handles GET /views/:id.svg
func (s *Server) ViewSVG(c *gin.Context) {
	id := strings.TrimSuffix(c.Param("file"), ".svg")
	v, ok := s.byID[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "View not found"})
		return
	}
	c.Data(http.StatusOK, "image/svg+xml; charset=utf-8", []byte(v.SVG))
}

// Regions handles GET /api/regions
func (s *Server) Regions(c *gin.Context) {
	out := make([]RegionResponse, 0, len(s.ds.Regions))
	for _, r := range s.ds.Regions {
		out = append(out, RegionResponse{
			Name:              r.Name,
			Key:               r.Key,
			ProgramCount:      r.ProgramCount,
			AverageEnrollment: r.AverageEnrollment,
			LogCount:          r.LogCount,
			TopQuartile:       r.TopQuartile,
			Attributes:        r.Attributes,
		})
	}
	c.JSON(http.StatusOK, out)
}

// RegionsGeoJSON handles GET /api/regions.geojson
func (s *Server) RegionsGeoJSON(c *gin.Context) {
	c.Data(http.StatusOK, "application/geo+json", s.geojson)
}

// Health handles GET /healthz
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "regions": len(s.ds.Regions)})
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting dashboard", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
