// Package httpserver serves a finished report, and optionally its DuckDB
// export, over a read-only JSON API.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/notmyname/logflow/internal/model"
)

// DefaultAddr is used when no listen address is configured.
const DefaultAddr = "127.0.0.1:3000"

// QueryStore is the narrow store contract required for SQL access.
type QueryStore interface {
	ExecuteQuery(query string) ([]map[string]interface{}, error)
	TableRowCounts() (map[string]int64, error)
	GetSchemaDescription() string
}

// Server provides an HTTP API over one report.
type Server struct {
	addr      string
	report    *model.Report
	store     QueryStore
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server. store may be nil, in which case
// the SQL endpoints answer 404.
func NewServer(addr string, report *model.Report, store QueryStore) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if report == nil {
		report = &model.Report{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:      addr,
		report:    report,
		store:     store,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/report", s.handleReport)
	api.GET("/series", s.handleSeriesList)
	api.GET("/series/:name", s.handleSeries)
	api.GET("/percentiles", s.handlePercentiles)
	api.GET("/edges", s.handleEdges)
	api.GET("/drives", s.handleDrives)
	api.GET("/skips", s.handleSkips)
	api.GET("/schema", s.handleSchema)
	api.POST("/query", s.handleQuery)
	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.routes(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("httpserver: listen %s: %w", s.addr, err)
	}
	s.listener = listener
	s.startTime = time.Now()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("component", "httpserver").Msg("serve failed")
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
		"lines":  s.report.Lines,
		"sql":    s.store != nil,
	})
}

func (s *Server) handleReport(c *gin.Context) {
	c.JSON(http.StatusOK, s.report)
}

func (s *Server) handleSeriesList(c *gin.Context) {
	type summary struct {
		Name   string `json:"name"`
		Points int    `json:"points"`
		Peak   int64  `json:"peak"`
	}

	var out []summary
	for _, group := range [][]model.Series{s.report.Series, s.report.DriveSeries} {
		for _, series := range group {
			sum := summary{Name: series.Name, Points: len(series.Points)}
			for _, p := range series.Points {
				if p.Count > sum.Peak {
					sum.Peak = p.Count
				}
			}
			out = append(out, sum)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"resolution": s.report.Resolution,
		"series":     out,
	})
}

func (s *Server) handleSeries(c *gin.Context) {
	name := c.Param("name")
	series := s.report.SeriesByName(name)
	if series == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown series %q", name)})
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) handlePercentiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"lookback": s.report.Lookback,
		"summary":  s.report.Latency,
		"rolling":  s.report.Rolling,
	})
}

func (s *Server) handleEdges(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"edges": s.report.Edges})
}

func (s *Server) handleDrives(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"drives": s.report.Drives})
}

func (s *Server) handleSkips(c *gin.Context) {
	type reasonCount struct {
		Reason string `json:"reason"`
		Lines  int64  `json:"lines"`
	}

	reasons := make([]reasonCount, 0, len(s.report.Skipped))
	for reason, n := range s.report.Skipped {
		reasons = append(reasons, reasonCount{Reason: reason, Lines: n})
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i].Reason < reasons[j].Reason })

	c.JSON(http.StatusOK, gin.H{
		"lines":      s.report.Lines,
		"degenerate": s.report.Degenerate,
		"skipped":    reasons,
	})
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sql access requires a duckdb export"})
		return false
	}
	return true
}

func (s *Server) handleSchema(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	tables, err := s.store.ExecuteQuery(
		"SELECT table_name, column_name, data_type FROM information_schema.columns WHERE table_schema = 'main' ORDER BY table_name, ordinal_position",
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read schema metadata"})
		return
	}

	schema := make(map[string][]map[string]string)
	for _, row := range tables {
		tableName := fmt.Sprintf("%v", row["table_name"])
		schema[tableName] = append(schema[tableName], map[string]string{
			"column": fmt.Sprintf("%v", row["column_name"]),
			"type":   fmt.Sprintf("%v", row["data_type"]),
		})
	}

	counts, err := s.store.TableRowCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read table row counts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"description": s.store.GetSchemaDescription(),
		"tables":      schema,
		"row_counts":  counts,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	var req struct {
		SQL string `json:"sql" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing sql field"})
		return
	}

	results, err := s.store.ExecuteQuery(req.SQL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var columns []string
	if len(results) > 0 {
		for col := range results[0] {
			columns = append(columns, col)
		}
		sort.Strings(columns)
	}

	c.JSON(http.StatusOK, gin.H{
		"columns":   columns,
		"rows":      results,
		"row_count": len(results),
	})
}
