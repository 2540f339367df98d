package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/model"
	"github.com/terrastat/landcover-cli/internal/regions"
	"github.com/terrastat/landcover-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the run-status API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var jobs sync.WaitGroup
		r := newStatusRouter(ctx, env, loadRegionsByName, regionTimeout(), &jobs)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		err = srv.ListenAndServe()

		// In-flight classification jobs must finish writing run records
		// before the deferred env.Close releases the store.
		jobs.Wait()

		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newStatusRouter builds the status API routes. Async classification jobs
// started by POST /v1/classify are tracked in jobs; callers must drain the
// group before tearing down env.
func newStatusRouter(ctx context.Context, env *pipelineEnv, loadRegion func(string) ([]model.Region, error), timeout time.Duration, jobs *sync.WaitGroup) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/v1/runs", func(w http.ResponseWriter, req *http.Request) {
		filter := store.RunFilter{
			Status: model.RunStatus(req.URL.Query().Get("status")),
			Region: req.URL.Query().Get("region"),
			Limit:  50,
		}
		if limit := req.URL.Query().Get("limit"); limit != "" {
			n, convErr := strconv.Atoi(limit)
			if convErr != nil || n < 1 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
				return
			}
			filter.Limit = n
		}

		runs, listErr := env.Store.ListRuns(req.Context(), filter)
		if listErr != nil {
			zap.L().Error("list runs failed", zap.Error(listErr))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list runs failed"})
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/v1/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, getErr := env.Store.GetRun(req.Context(), chi.URLParam(req, "id"))
		if getErr != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Post("/v1/classify", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Region string `json:"region"`
		}
		if decErr := json.NewDecoder(req.Body).Decode(&body); decErr != nil || body.Region == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "region is required"})
			return
		}

		regionList, loadErr := loadRegion(body.Region)
		if loadErr != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": loadErr.Error()})
			return
		}
		region := regionList[0]

		// Classification runs asynchronously; poll /v1/runs for the outcome.
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			runCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			if _, runErr := env.Pipeline.Run(runCtx, region); runErr != nil {
				zap.L().Error("classification failed",
					zap.String("region", region.Name),
					zap.Error(runErr),
				)
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"region": region.Name,
		})
	})

	return r
}

// loadRegionsByName loads the boundary shapefile and returns the named region.
func loadRegionsByName(name string) ([]model.Region, error) {
	all, err := regions.LoadShapefile(cfg.Boundaries.Path, cfg.Boundaries.NameField)
	if err != nil {
		return nil, err
	}
	for _, r := range all {
		if r.Name == name {
			return []model.Region{r}, nil
		}
	}
	return nil, eris.Errorf("region %q not found", name)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
