package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"weatherdash/internal/dashboard"
	"weatherdash/internal/database"
	"weatherdash/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultHistoryLimit = 100
	defaultPlaceLimit   = 5
	dateLayout          = "2006-01-02"
)

// FavoriteRequest is the body of POST /favorites
type FavoriteRequest struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

// RuleRequest is the body of POST /alerts/rules
type RuleRequest struct {
	City      string   `json:"city"`
	Country   string   `json:"country"`
	AlertType string   `json:"alert_type"`
	Threshold *float64 `json:"threshold_value"`
	Condition string   `json:"condition"`
}

// Server represents the HTTP server
type Server struct {
	svc       *dashboard.Service
	retention time.Duration
	mux       *http.ServeMux
}

// NewServer creates a new HTTP server. retention is the default age cutoff
// for POST /alerts/purge.
func NewServer(svc *dashboard.Service, retention time.Duration) *Server {
	s := &Server{
		svc:       svc,
		retention: retention,
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/weather", s.handleWeather)
	s.mux.HandleFunc("/weather/latest", s.handleLatest)
	s.mux.HandleFunc("/weather/history", s.handleHistory)
	s.mux.HandleFunc("/places", s.handlePlaces)
	s.mux.HandleFunc("/favorites", s.handleFavorites)
	s.mux.HandleFunc("/alerts/rules", s.handleRules)
	s.mux.HandleFunc("/alerts/history", s.handleAlertHistory)
	s.mux.HandleFunc("/alerts/purge", s.handlePurge)
	s.mux.HandleFunc("/alerts/suggestions", s.handleSuggestions)
	s.mux.HandleFunc("/moon", s.handleMoon)
	s.mux.Handle("/metrics", promhttp.Handler())

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth returns the server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().String(),
	})
}

// handleWeather runs a refresh for ?city=
func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		http.Error(w, "city is required", http.StatusBadRequest)
		return
	}

	view, err := s.svc.Refresh(r.Context(), city)
	if err != nil && (view == nil || !view.Unsaved) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	rec, err := s.svc.Latest(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	city := r.URL.Query().Get("city")
	limit := queryInt(r, "limit", defaultHistoryLimit)

	records, err := s.svc.History(r.Context(), city, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}

func (s *Server) handlePlaces(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}

	places, err := s.svc.Lookup(r.Context(), query, queryInt(r, "limit", defaultPlaceLimit))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(places),
		"places": places,
	})
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		favorites, err := s.svc.ListFavorites(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"count":     len(favorites),
			"favorites": favorites,
		})

	case http.MethodPost:
		var req FavoriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.City) == "" {
			http.Error(w, "city is required", http.StatusBadRequest)
			return
		}

		added, err := s.svc.AddFavorite(ctx, req.City, req.Country)
		if err != nil {
			writeError(w, err)
			return
		}
		if !added {
			writeJSON(w, http.StatusOK, map[string]string{"status": "already_present"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})

	case http.MethodDelete:
		city := r.URL.Query().Get("city")
		if strings.TrimSpace(city) == "" {
			http.Error(w, "city is required", http.StatusBadRequest)
			return
		}

		removed, err := s.svc.RemoveFavorite(ctx, city, r.URL.Query().Get("country"))
		if err != nil {
			writeError(w, err)
			return
		}
		if !removed {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		rules, err := s.svc.ListRules(ctx, r.URL.Query().Get("city"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"count": len(rules),
			"rules": rules,
		})

	case http.MethodPost:
		var req RuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}

		rule := &models.AlertRule{
			City:      req.City,
			Country:   req.Country,
			AlertType: models.ParseAlertType(req.AlertType),
			Threshold: req.Threshold,
			Condition: models.Condition(req.Condition),
		}
		if err := s.svc.AddRule(ctx, rule); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, rule)

	case http.MethodDelete:
		id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "id must be a positive integer", http.StatusBadRequest)
			return
		}

		if err := s.svc.RemoveRule(ctx, id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	limit := queryInt(r, "limit", database.DefaultAlertHistoryLimit)
	events, err := s.svc.AlertHistory(r.Context(), r.URL.Query().Get("city"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(events),
		"alerts": events,
	})
}

// handlePurge deletes alert history older than ?days= (default: configured retention)
func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	olderThan := s.retention
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days < 0 {
			http.Error(w, "days must be a non-negative integer", http.StatusBadRequest)
			return
		}
		olderThan = time.Duration(days) * 24 * time.Hour
	}

	n, err := s.svc.PurgeAlerts(r.Context(), olderThan)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"purged": n,
	})
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	city := strings.TrimSpace(r.URL.Query().Get("city"))
	if city == "" {
		http.Error(w, "city is required", http.StatusBadRequest)
		return
	}

	suggestions, err := s.svc.SuggestRules(r.Context(), city)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(suggestions),
		"suggestions": suggestions,
	})
}

func (s *Server) handleMoon(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	var at time.Time
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		at = parsed
	}

	writeJSON(w, http.StatusOK, s.svc.Moon(at))
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, dashboard.ErrDataUnavailable):
		return http.StatusNotFound, "unavailable"
	case errors.Is(err, database.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, models.ErrInvalidRule):
		return http.StatusBadRequest, "invalid_rule"
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, dashboard.ErrNoGeocoder):
		return http.StatusNotImplemented, "not_configured"
	}
	return http.StatusInternalServerError, "error"
}

func writeError(w http.ResponseWriter, err error) {
	status, label := statusFor(err)
	if status >= 500 {
		log.Printf("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{
		"status": label,
		"error":  err.Error(),
	})
}
