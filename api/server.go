// Package api serves the stored readings, a live reading stream and the loop
// metrics over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ZamarianPatrick/pms/model"
	"github.com/ZamarianPatrick/pms/store"
)

const (
	defaultLimit = 20
	maxLimit     = 1000
)

type Records interface {
	Latest(limit int) ([]model.Record, error)
}

type Readings interface {
	ReadingChannel(ctx context.Context) <-chan model.Reading
}

type Server struct {
	logger   *slog.Logger
	records  Records
	readings Readings
	engine   *gin.Engine
	upgrader websocket.Upgrader
}

func NewServer(records Records, readings Readings, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		logger:   logger,
		records:  records,
		readings: readings,
		engine:   gin.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.engine.Use(gin.Recovery(), s.logRequests)
	s.engine.GET("/readings", s.listReadings)
	s.engine.GET("/readings/latest", s.latestReading)
	s.engine.GET("/readings/stream", s.streamReadings)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks serving addr.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("http api listening", "address", addr)
	return srv.ListenAndServe()
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("http request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

func (s *Server) listReadings(c *gin.Context) {
	limit := defaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	records, err := s.records.Latest(limit)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) latestReading(c *gin.Context) {
	records, err := s.records.Latest(1)
	if err != nil {
		s.storeError(c, err)
		return
	}
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no readings yet"})
		return
	}
	c.JSON(http.StatusOK, records[0])
}

func (s *Server) storeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNoDatabase) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database not ready"})
		return
	}
	s.logger.Error("failed to query readings", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query readings"})
}

// streamReadings pushes every new reading as json until the client leaves.
func (s *Server) streamReadings(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The client never sends anything; reading only notices it leaving.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for r := range s.readings.ReadingChannel(ctx) {
		if err := conn.WriteJSON(r); err != nil {
			s.logger.Debug("websocket client gone", "error", err)
			return
		}
	}
}
