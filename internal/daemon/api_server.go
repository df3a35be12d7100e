package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vinylscout/internal/api"
	"vinylscout/internal/catalog"
	"vinylscout/internal/logging"
	"vinylscout/internal/metrics"
	"vinylscout/internal/services"
)

const (
	defaultHistoryLimit = 365
	defaultRunLimit     = 20
	maxRunLimit         = 500
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(bind, token string, d *Daemon, logger *slog.Logger) *apiServer {
	bind = strings.TrimSpace(bind)
	if bind == "" || d == nil {
		return nil
	}
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(token),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, requestContext, middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware(token))
		r.Get("/status", s.handleStatus)
		r.Get("/runs", s.handleRuns)
		r.Post("/sync", s.handleSync)
		r.Route("/products/{id}", func(r chi.Router) {
			r.Get("/offers", s.handleOffers)
			r.Get("/history", s.handleHistory)
			r.Post("/refresh", s.handleRefresh)
		})
	})
	return r
}

// requestContext carries chi's request id into the services context so
// downstream loggers pick it up.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(services.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
}

func (s *apiServer) addr() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status())
}

func (s *apiServer) handleOffers(w http.ResponseWriter, r *http.Request) {
	product, ok := s.loadProduct(w, r)
	if !ok {
		return
	}
	offers, err := s.daemon.store.OffersForProduct(r.Context(), product.ID)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewOffersResponse(*product, offers))
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	product, ok := s.loadProduct(w, r)
	if !ok {
		return
	}
	limit, err := queryLimit(r, "limit", defaultHistoryLimit, defaultHistoryLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	points, err := s.daemon.store.PriceHistory(r.Context(), product.ID, limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromHistory(product.ID, points))
}

func (s *apiServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, "limit", defaultRunLimit, maxRunLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runs, err := s.daemon.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromRuns(runs))
}

func (s *apiServer) handleSync(w http.ResponseWriter, _ *http.Request) {
	if s.daemon.TriggerSync() {
		s.writeJSON(w, http.StatusAccepted, api.SyncResponse{Queued: true, Message: "sync requested"})
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.SyncResponse{Queued: false, Message: "sync already pending"})
}

func (s *apiServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id, ok := s.productID(w, r)
	if !ok {
		return
	}
	outcome, err := s.daemon.RefreshProduct(r.Context(), id)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, catalog.ErrProductNotFound):
		s.writeError(w, http.StatusNotFound, "product not found")
		return
	case errors.Is(err, services.ErrRateLimited):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		s.writeStoreError(w, r, err)
		return
	}

	resp := api.RefreshResponse{
		ProductID: id,
		Result:    string(outcome.Result),
		Reason:    outcome.Reason,
		Offers:    api.FromOffers(outcome.Offers),
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

func (s *apiServer) loadProduct(w http.ResponseWriter, r *http.Request) (*catalog.Product, bool) {
	id, ok := s.productID(w, r)
	if !ok {
		return nil, false
	}
	product, err := s.daemon.store.Product(r.Context(), id)
	if errors.Is(err, catalog.ErrProductNotFound) {
		s.writeError(w, http.StatusNotFound, "product not found")
		return nil, false
	}
	if err != nil {
		s.writeStoreError(w, r, err)
		return nil, false
	}
	return product, true
}

func queryLimit(r *http.Request, key string, fallback, ceiling int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return min(n, ceiling), nil
}

func (s *apiServer) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	logging.ErrorWithContext(logging.WithContext(r.Context(), s.log()), "api request failed", "api_store_error",
		logging.String("path", r.URL.Path),
		logging.Error(err),
	)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
