package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studioforge/asset-cli/internal/classify"
	"github.com/studioforge/asset-cli/internal/model"
	"github.com/studioforge/asset-cli/internal/prepass"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for classification requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      newRouter(env),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownGracefully(srv, 15*time.Second)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// shutdownGracefully drains in-flight requests on a fresh context; the
// signal context is already cancelled by the time shutdown starts.
func shutdownGracefully(srv *http.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("server shutdown", zap.Error(err))
	}
}

func newRouter(env *pipelineEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/prepass", func(w http.ResponseWriter, req *http.Request) {
		body, ok := decodePipelineRequest(w, req)
		if !ok {
			return
		}
		result, err := env.Prepass.Run(req.Context(), prepass.Request{
			AssetID:   body.AssetID,
			ProjectID: body.ProjectID,
			ImagePath: body.Image,
			Actor:     body.Actor,
		})
		if err != nil {
			writeJSON(w, statusForError(err), result)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Post("/classify", func(w http.ResponseWriter, req *http.Request) {
		body, ok := decodePipelineRequest(w, req)
		if !ok {
			return
		}
		result, err := env.Classify.Run(req.Context(), classify.Request{
			AssetID:   body.AssetID,
			ProjectID: body.ProjectID,
			ImagePath: body.Image,
			Actor:     body.Actor,
		})
		if err != nil {
			writeJSON(w, statusForError(err), result)
			return
		}
		writeJSON(w, http.StatusOK, result)
	})

	r.Get("/audit/{assetID}", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		records, err := env.Store.ListAudit(req.Context(), chi.URLParam(req, "assetID"), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if records == nil {
			records = []model.AuditRecord{}
		}
		writeJSON(w, http.StatusOK, records)
	})

	return r
}

type pipelineRequest struct {
	AssetID   string `json:"asset_id"`
	ProjectID string `json:"project_id"`
	Image     string `json:"image"`
	Actor     string `json:"actor"`
}

func decodePipelineRequest(w http.ResponseWriter, req *http.Request) (pipelineRequest, bool) {
	var body pipelineRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return body, false
	}
	if body.AssetID == "" || body.Image == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "asset_id and image are required"})
		return body, false
	}
	if body.Actor == "" {
		body.Actor = "api"
	}
	return body, true
}

func statusForError(err error) int {
	switch model.KindOf(err) {
	case model.KindValidation:
		return http.StatusUnprocessableEntity
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindPermission:
		return http.StatusForbidden
	case model.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
