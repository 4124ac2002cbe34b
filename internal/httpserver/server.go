package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/calebwray/interest-radar/internal/config"
	"github.com/calebwray/interest-radar/internal/domain"
)

// Publisher triggers the notification fanout for a durably created post.
type Publisher interface {
	Publish(ctx context.Context, interest *domain.Interest) error
}

// Directory is the user-directory and geo-index surface of the spatial store.
type Directory interface {
	UserLocation(ctx context.Context, userID string) (*domain.Point, error)
	SetUserLocation(ctx context.Context, userID string, p domain.Point) error
	SetUserTags(ctx context.Context, userID string, tags []string) error
	AddInterestLocation(ctx context.Context, interestID string, p domain.Point) error
	RemoveInterestLocation(ctx context.Context, interestID string) error
	NearbyInterestIDs(ctx context.Context, origin domain.Point, radiusMeters float64) ([]string, error)
}

// Server is the HTTP server exposing the interest API and the websocket
// endpoint.
type Server struct {
	cfg        *config.Config
	store      domain.InterestStore
	directory  Directory
	publisher  Publisher
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP server. wsHandler serves the websocket
// endpoint and is mounted at /ws.
func NewServer(cfg *config.Config, store domain.InterestStore, directory Directory, publisher Publisher, wsHandler http.Handler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		store:     store,
		directory: directory,
		publisher: publisher,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/interests", s.handleCreateInterest)
	mux.HandleFunc("GET /v1/interests", s.handleListByAuthor)
	mux.HandleFunc("GET /v1/interests/nearby", s.handleNearbyInterests)
	mux.HandleFunc("GET /v1/interests/{id}", s.handleGetInterest)
	mux.HandleFunc("DELETE /v1/interests/{id}", s.handleDeleteInterest)
	mux.HandleFunc("PUT /v1/users/{id}/location", s.handleSetUserLocation)
	mux.HandleFunc("PUT /v1/users/{id}/interests", s.handleSetUserInterests)
	mux.Handle("GET /ws", wsHandler)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     withLogging(logger, mux),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the server's root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createInterestRequest struct {
	UserID      string   `json:"userId"`
	UserName    string   `json:"userName"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

func (s *Server) handleCreateInterest(w http.ResponseWriter, r *http.Request) {
	var req createInterestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed JSON body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "userId is required")
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "title is required")
		return
	}

	loc, err := s.directory.UserLocation(r.Context(), req.UserID)
	if err != nil {
		s.logger.Error("failed to look up user location", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to create interest")
		return
	}
	if loc == nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "user location not found")
		return
	}

	interest := &domain.Interest{
		AuthorID:    req.UserID,
		AuthorName:  req.UserName,
		Title:       req.Title,
		Description: req.Description,
		Tags:        domain.NormalizeTags(req.Tags),
		Location:    loc,
	}

	if err := s.store.Create(r.Context(), interest); err != nil {
		s.logger.Error("failed to persist interest", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to create interest")
		return
	}

	if err := s.directory.AddInterestLocation(r.Context(), interest.ID, *loc); err != nil {
		// The post exists either way; only the nearby query misses it.
		s.logger.Error("failed to geo-index interest", "interest_id", interest.ID, "error", err)
	}

	// Fanout runs after the response; it must never delay or fail the
	// publishing request.
	go func() {
		if err := s.publisher.Publish(context.Background(), interest); err != nil {
			s.logger.Warn("fanout rejected post", "interest_id", interest.ID, "error", err)
		}
	}()

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"interest": toInterestJSON(interest),
	})
}

func (s *Server) handleListByAuthor(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "userId parameter is required")
		return
	}

	interests, err := s.store.ListByAuthor(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to list interests", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to list interests")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"interests": toInterestListJSON(interests),
	})
}

func (s *Server) handleNearbyInterests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	radius := float64(domain.DefaultRadiusMeters)
	if raw := q.Get("radius"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "radius must be a positive number")
			return
		}
		radius = parsed
	}

	var origin *domain.Point
	if q.Get("lng") != "" || q.Get("lat") != "" {
		lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
		lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
		if lngErr != nil || latErr != nil || !validCoordinates(lng, lat) {
			writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid coordinates")
			return
		}
		origin = &domain.Point{Lng: lng, Lat: lat}
	} else if userID := q.Get("userId"); userID != "" {
		// Fall back to the caller's saved location.
		loc, err := s.directory.UserLocation(r.Context(), userID)
		if err != nil {
			s.logger.Error("failed to look up user location", "user_id", userID, "error", err)
			writeError(w, http.StatusInternalServerError, "InternalError", "failed to query nearby interests")
			return
		}
		origin = loc
	}
	if origin == nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "lng and lat are required, or a userId with a saved location")
		return
	}

	ids, err := s.directory.NearbyInterestIDs(r.Context(), *origin, radius)
	if err != nil {
		s.logger.Error("nearby interest query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to query nearby interests")
		return
	}

	interests, err := s.store.ListByIDs(r.Context(), ids)
	if err != nil {
		s.logger.Error("failed to load nearby interests", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to query nearby interests")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"count":     len(interests),
		"interests": toInterestListJSON(interests),
	})
}

func (s *Server) handleGetInterest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	interest, err := s.store.GetByID(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", "interest not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to get interest", "interest_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to get interest")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"interest": toInterestJSON(interest),
	})
}

func (s *Server) handleDeleteInterest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "userId parameter is required")
		return
	}

	err := s.store.Delete(r.Context(), id, userID)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NotFound", "interest not found or not yours")
		return
	}
	if err != nil {
		s.logger.Error("failed to delete interest", "interest_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to delete interest")
		return
	}

	if err := s.directory.RemoveInterestLocation(r.Context(), id); err != nil {
		s.logger.Error("failed to remove interest from geo index", "interest_id", id, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type setLocationRequest struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

func (s *Server) handleSetUserLocation(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	var req setLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed JSON body")
		return
	}
	if !validCoordinates(req.Lng, req.Lat) {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid coordinates")
		return
	}

	if err := s.directory.SetUserLocation(r.Context(), userID, domain.Point{Lng: req.Lng, Lat: req.Lat}); err != nil {
		s.logger.Error("failed to save user location", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to save location")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type setInterestsRequest struct {
	Interests []string `json:"interests"`
}

func (s *Server) handleSetUserInterests(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	var req setInterestsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "malformed JSON body")
		return
	}

	tags := domain.NormalizeTags(req.Interests)
	if err := s.directory.SetUserTags(r.Context(), userID, tags); err != nil {
		s.logger.Error("failed to save user interests", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to save interests")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"interests": tags,
	})
}

func validCoordinates(lng, lat float64) bool {
	return lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90
}

func toInterestJSON(i *domain.Interest) map[string]any {
	return map[string]any{
		"id":          i.ID,
		"userId":      i.AuthorID,
		"userName":    i.AuthorName,
		"title":       i.Title,
		"description": i.Description,
		"tags":        i.Tags,
		"location":    map[string]float64{"lng": i.Location.Lng, "lat": i.Location.Lat},
		"createdAt":   i.CreatedAt.Format(time.RFC3339),
	}
}

func toInterestListJSON(interests []domain.Interest) []map[string]any {
	out := make([]map[string]any, len(interests))
	for idx := range interests {
		out[idx] = toInterestJSON(&interests[idx])
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack passes hijacking through so the websocket upgrade works behind the
// logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
