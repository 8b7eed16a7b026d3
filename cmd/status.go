// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/lolmon/pkg/lolmon"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// activeSession is the session /stats reports on
	activeSession atomic.Pointer[lolmon.Session]

	statusServer *http.Server
	statusStart  time.Time
)

// newStatusRouter builds the HTTP routes served by --metrics-addr.
func newStatusRouter(l zerolog.Logger) *gin.Engine {
	lolmon.RegisterMetrics()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(l))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET"},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(statusStart).String(),
			"connected": activeSession.Load() != nil,
			"version":   version,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/stats", func(c *gin.Context) {
		s := activeSession.Load()
		if s == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no session"})
			return
		}
		stats := s.Stats()
		stats.CalculateRates()
		c.JSON(http.StatusOK, stats)
	})

	return r
}

func requestLogger(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := l.Debug()
		if status >= 500 {
			event = l.Error()
		} else if status >= 400 {
			event = l.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

func startStatusServer(addr string) {
	statusStart = time.Now()
	statusServer = &http.Server{
		Addr:              addr,
		Handler:           newStatusRouter(logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := statusServer
	go func() {
		logger.Info().Str("addr", addr).Msg("status server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("status server failed")
		}
	}()
}

func stopStatusServer() {
	if statusServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = statusServer.Shutdown(ctx)
	statusServer = nil
}
