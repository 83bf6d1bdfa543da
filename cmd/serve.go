package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/credential"
	"github.com/sells-group/attribution-cli/internal/metadata"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/pipeline"
	"github.com/sells-group/attribution-cli/internal/resilience"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the attribution HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline("serve")
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		api := &apiServer{
			resolver:    env.Pipeline,
			keyStats:    env.KeyStats,
			circuits:    env.Breakers.States,
			maxUploadMB: cfg.Server.MaxUploadMB,
			timeout:     seconds(cfg.Pipeline.TimeoutSecs),
		}
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(cfg.Server.CORSOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
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

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// resolver is the slice of the pipeline the API needs.
type resolver interface {
	Resolve(ctx context.Context, img model.ImageRef, opts pipeline.Options) (*model.PipelineResult, error)
	ResolveBatch(ctx context.Context, refs []model.ImageRef, opts pipeline.Options) (*model.BatchResult, error)
	LookupPage(ctx context.Context, pageURL string) (*model.LookupResult, error)
}

type apiServer struct {
	resolver    resolver
	keyStats    func() map[string]credential.Stats
	circuits    func() map[string]resilience.CircuitState
	maxUploadMB int
	// timeout bounds single-image requests; batch requests get no router
	// deadline beyond the pipeline's own per-image limit.
	timeout time.Duration
}

type searchRequest struct {
	ImageURL    string   `json:"image_url"`
	MaxResults  int      `json:"max_results"`
	Timeout     int      `json:"timeout"`
	Engines     []string `json:"engines"`
	APIKeyIndex *int     `json:"api_key_index"`
}

type lookupRequest struct {
	URL string `json:"url"`
}

type batchRequest struct {
	ImageURLs          []string `json:"image_urls"`
	MaxResultsPerImage int      `json:"max_results_per_image"`
	TimeoutPerImage    int      `json:"timeout_per_image"`
}

func (s *apiServer) routes(origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/api-key-stats", s.handleKeyStats)

	r.Group(func(r chi.Router) {
		if s.timeout > 0 {
			r.Use(middleware.Timeout(s.timeout + 10*time.Second))
		}
		r.Post("/reverse-search", s.handleSearch)
		r.Post("/reverse-search/upload", s.handleUpload)
		r.Post("/get-attribution", s.handleLookup)
	})
	r.Post("/reverse-search/batch", s.handleBatch)

	return r
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.circuits != nil {
		states := make(map[string]string)
		for name, st := range s.circuits() {
			states[name] = st.String()
		}
		body["circuits"] = states
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *apiServer) handleKeyStats(w http.ResponseWriter, _ *http.Request) {
	stats := map[string]credential.Stats{}
	if s.keyStats != nil {
		stats = s.keyStats()
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "image_url is required")
		return
	}

	keyIndex := -1
	if req.APIKeyIndex != nil {
		keyIndex = *req.APIKeyIndex
	}
	opts := requestOptions(req.Engines, req.MaxResults, req.Timeout, keyIndex)
	s.resolve(w, r, model.ImageRef{URL: req.ImageURL}, opts)
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.maxUploadMB) << 20
	if limit <= 0 {
		limit = 20 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload")
		return
	}
	if int64(len(data)) > limit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file exceeds %d MB", s.maxUploadMB))
		return
	}
	if _, err := metadata.Validate(data); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	maxResults, _ := strconv.Atoi(r.FormValue("max_results"))
	timeout, _ := strconv.Atoi(r.FormValue("timeout"))
	keyIndex := -1
	if v := r.FormValue("api_key_index"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			keyIndex = n
		}
	}
	var engines []string
	if v := r.FormValue("engines"); v != "" {
		engines = strings.Split(v, ",")
	}
	s.resolve(w, r, model.ImageRef{Bytes: data}, requestOptions(engines, maxResults, timeout, keyIndex))
}

func (s *apiServer) resolve(w http.ResponseWriter, r *http.Request, img model.ImageRef, opts pipeline.Options) {
	result, err := s.resolver.Resolve(r.Context(), img, opts)
	if err != nil {
		if errors.Is(err, model.ErrInvalidImage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("reverse search failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	res, err := s.resolver.LookupPage(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, model.ErrInvalidImage) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("page lookup failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *apiServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	refs := make([]model.ImageRef, len(req.ImageURLs))
	for i, u := range req.ImageURLs {
		refs[i] = model.ImageRef{URL: u}
	}
	opts := requestOptions(nil, req.MaxResultsPerImage, req.TimeoutPerImage, -1)

	out, err := s.resolver.ResolveBatch(r.Context(), refs, opts)
	if err != nil {
		if errors.Is(err, pipeline.ErrBatchSize) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		zap.L().Error("batch reverse search failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
