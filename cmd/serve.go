package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridscope/equimap-cli/internal/analysis"
	"github.com/gridscope/equimap-cli/internal/config"
	"github.com/gridscope/equimap-cli/internal/source"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis service",
	Long:  "Serves the analysis over HTTP: POST GeoJSON facility and district collections to /v1/analyze and receive the full result. Intended for dashboards that submit datasets directly instead of going through files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: buildRouter(cfg.Server.CORSOrigins, cfg.Analysis),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter assembles the HTTP API. Kept apart from the serve command
// so tests can drive the handlers without a listener.
func buildRouter(corsOrigins []string, defaults config.AnalysisConfig) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Post("/v1/analyze", handleAnalyze(defaults))

	return r
}

// requestLogger writes one log line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("component", "server"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// analyzeRequest carries two embedded GeoJSON feature collections plus
// parameter overrides. Zero parameters fall back to the server's
// configured defaults.
type analyzeRequest struct {
	Facilities json.RawMessage `json:"facilities"`
	Districts  json.RawMessage `json:"districts"`
	Capacity   int             `json:"capacity"`
	Radius     float64         `json:"radius"`
	NameAttr   string          `json:"name_attr"`
	PopAttr    string          `json:"pop_attr"`
}

func handleAnalyze(defaults config.AnalysisConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if len(req.Facilities) == 0 || len(req.Districts) == 0 {
			writeError(w, http.StatusBadRequest, "facilities and districts are required")
			return
		}

		facilities, err := source.FromGeoJSON("facilities", req.Facilities)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		districts, err := source.FromGeoJSON("districts", req.Districts)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		districts, err = source.Align(facilities, districts)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		opts := analysis.Options{
			Capacity: req.Capacity,
			Radius:   req.Radius,
			NameAttr: req.NameAttr,
			PopAttr:  req.PopAttr,
		}
		if opts.Capacity == 0 {
			opts.Capacity = defaults.Capacity
		}
		if opts.Radius == 0 {
			opts.Radius = defaults.Radius
		}
		if opts.NameAttr == "" {
			opts.NameAttr = defaults.NameAttr
		}
		if opts.PopAttr == "" {
			opts.PopAttr = defaults.PopAttr
		}

		res, err := analysis.Run(r.Context(), facilities, districts, opts)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(res); err != nil {
			zap.L().Error("encode response", zap.Error(err))
		}
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
