package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"urlshortener/internal/model"
	"urlshortener/internal/repository"
	"urlshortener/internal/urlnorm"
	"urlshortener/pkg/logger"
)

// Shortener is the slice of the service the HTTP surface needs.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (*model.URLMapping, error)
	Expand(ctx context.Context, code string, recordClick bool) (*model.URLMapping, error)
	Stats(ctx context.Context, code string) (*model.URLMapping, error)
	List(ctx context.Context, page, limit int) ([]model.URLMapping, error)
}

type Handler struct {
	Service     Shortener
	AdminToken  string
	RateLimiter *RateLimiter
}

type shortenRequest struct {
	URL string `json:"url"`
}

type shortenResponse struct {
	ShortURL    string `json:"short_url"`
	ShortCode   string `json:"short_code"`
	OriginalURL string `json:"original_url"`
}

type statsResponse struct {
	ShortCode  string `json:"short_code"`
	LongURL    string `json:"long_url"`
	ClickCount int64  `json:"click_count"`
	CreatedAt  string `json:"created_at"`
}

func NewHandler(s Shortener, adminToken string) *Handler {
	return &Handler{
		Service:     s,
		AdminToken:  adminToken,
		RateLimiter: NewRateLimiter(1.0, 10),
	}
}

func (h *Handler) Routes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/shorten", h.RateLimitMiddleware(h.CreateShort)).Methods("POST")
	r.HandleFunc("/admin/urls", h.AdminAuth(h.ListURLs)).Methods("GET")
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/{code}/stats", h.Stats).Methods("GET")
	r.HandleFunc("/{code}", h.Redirect).Methods("GET")

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Info().Str("method", req.Method).Str("path", req.URL.Path).Msg("request")
			next.ServeHTTP(w, req)
		})
	})

	return r
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) CreateShort(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	m, err := h.Service.Shorten(r.Context(), req.URL)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	resp := &shortenResponse{
		ShortURL:    fmt.Sprintf("%s://%s/%s", scheme, r.Host, m.ShortCode),
		ShortCode:   m.ShortCode,
		OriginalURL: m.LongURL,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if code == "" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	if !h.RateLimiter.Allow(r.RemoteAddr) {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	m, err := h.Service.Expand(r.Context(), code, true)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	http.Redirect(w, r, m.LongURL, http.StatusMovedPermanently)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	m, err := h.Service.Stats(r.Context(), code)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := &statsResponse{
		ShortCode:  m.ShortCode,
		LongURL:    m.LongURL,
		ClickCount: m.ClickCount,
		CreatedAt:  m.CreatedAt.Format(http.TimeFormat),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) ListURLs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.Service.List(r.Context(), page, limit)
	if err != nil {
		http.Error(w, "error listing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (h *Handler) AdminAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Admin-Token")
		if token == "" || token != h.AdminToken {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (h *Handler) RateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.RateLimiter.Allow(r.RemoteAddr) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	}
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Anything that is not bad input or a missing code is treated as a transient
// backend failure the client may retry.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, urlnorm.ErrInvalidURL):
		http.Error(w, "invalid url", http.StatusBadRequest)
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		logger.Error().Err(err).Msg("backend failure")
		http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
	}
}
