package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/social-leads/internal/model"
	"github.com/sells-group/social-leads/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the lead scraper HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(p),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// newRouter builds the API router. Endpoint paths mirror the service this
// replaced, so existing callers keep working.
func newRouter(p *pipeline.Pipeline) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/scrapers/instagram-profile-lead-scraper/", scrapeHandler(p, model.PlatformInstagram))
	r.Post("/api/scrapers/tiktok-profile-lead-scraper/", scrapeHandler(p, model.PlatformTikTok))

	return r
}

func scrapeHandler(p *pipeline.Pipeline, platform model.Platform) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()

		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, model.APIError{
				Code:    model.CodeValidationError,
				Message: "invalid request body",
				Details: map[string]string{"platform": platform.DisplayName()},
			})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, model.APIError{
				Code:    model.CodeValidationError,
				Message: "url is required",
				Details: map[string]string{"platform": platform.DisplayName()},
			})
			return
		}

		zap.L().Info("scrape request",
			zap.String("request_id", requestID),
			zap.String("platform", string(platform)),
			zap.String("url", req.URL),
		)

		rec, err := p.Scrape(r.Context(), platform, req.URL)
		if err != nil {
			// Client went away; nothing useful to write.
			if r.Context().Err() != nil {
				zap.L().Debug("scrape cancelled by client",
					zap.String("request_id", requestID),
				)
				return
			}
			status, apiErr := pipeline.APIErrorFor(err, platform)
			zap.L().Error("scrape failed",
				zap.String("request_id", requestID),
				zap.String("platform", string(platform)),
				zap.Error(err),
			)
			writeJSON(w, status, apiErr)
			return
		}

		writeJSON(w, http.StatusOK, rec)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
