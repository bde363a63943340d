package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/satslist/satslist/internal/models"
	"github.com/satslist/satslist/internal/notify"
	"github.com/satslist/satslist/internal/relay"
	"github.com/satslist/satslist/internal/service"
)

// Server provides the HTTP JSON API.
type Server struct {
	svc      *service.Service
	relayLog *relay.Log
	logger   *logrus.Logger
	mux      *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, relayLog *relay.Log, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, relayLog: relayLog, logger: logger, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// API – Wishlist
	s.mux.HandleFunc("GET /api/wishlist", s.handleGetWishlist)
	s.mux.HandleFunc("POST /api/wishlist", s.handleAddItem)
	s.mux.HandleFunc("DELETE /api/wishlist/{id}", s.handleDeleteItem)
	s.mux.HandleFunc("POST /api/wishlist/refresh", s.handleRefresh)
	s.mux.HandleFunc("POST /api/wishlist/clear-deleted", s.handleClearDeleted)

	// API – Price & metadata
	s.mux.HandleFunc("GET /api/price", s.handleGetPrice)
	s.mux.HandleFunc("GET /api/metadata", s.handleGetMetadata)

	// API – Notifications
	s.mux.HandleFunc("GET /api/notifications/consent", s.handleGetConsent)
	s.mux.HandleFunc("PUT /api/notifications/consent", s.handleSetConsent)

	// Diagnostics
	s.mux.HandleFunc("GET /api/relay/log", s.handleRelayLog)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// ---------------------------------------------------------------------------
// Wishlist
// ---------------------------------------------------------------------------

type wishlistResponse struct {
	Items            []models.WishlistItem `json:"items"`
	Stats            models.WishlistStats  `json:"stats"`
	PublishStatus    service.PublishState  `json:"publishStatus"`
	RateLimitWarning string                `json:"rateLimitWarning,omitempty"`
}

func (s *Server) handleGetWishlist(w http.ResponseWriter, r *http.Request) {
	items, stats := s.svc.SnapshotWithPrice()
	s.respondJSON(w, http.StatusOK, wishlistResponse{
		Items:            items,
		Stats:            stats,
		PublishStatus:    s.svc.Sync.PublishStatus(),
		RateLimitWarning: s.svc.Sync.RateLimitWarning(),
	})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var payload models.WishlistPayload
	if ok, msg := s.decodeJSON(r, &payload); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := payload.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.svc.Sync.AddItem(r.Context(), payload)
	if err != nil {
		if errors.Is(err, relay.ErrNoIdentity) {
			s.respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.logger.WithError(err).Error("failed to add wishlist item")
		s.respondError(w, http.StatusBadGateway, "failed to publish wishlist item")
		return
	}

	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "missing item id")
		return
	}

	if err := s.svc.Sync.DeleteItem(r.Context(), id); err != nil {
		if errors.Is(err, relay.ErrNoIdentity) {
			s.respondError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.logger.WithError(err).Error("failed to delete wishlist item")
		s.respondError(w, http.StatusBadGateway, "failed to publish deletion")
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Sync.Refresh(r.Context()); err != nil {
		s.logger.WithError(err).Error("failed to refresh wishlist")
		s.respondError(w, http.StatusBadGateway, "failed to refresh wishlist from relays")
		return
	}
	s.handleGetWishlist(w, r)
}

func (s *Server) handleClearDeleted(w http.ResponseWriter, r *http.Request) {
	s.svc.Sync.ClearDeleted()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ---------------------------------------------------------------------------
// Price & metadata
// ---------------------------------------------------------------------------

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	price := s.svc.CurrentPrice()
	if price == nil {
		fetched, err := s.svc.RefreshPrice(r.Context())
		if err != nil {
			s.logger.WithError(err).Error("failed to fetch bitcoin price")
			s.respondError(w, http.StatusBadGateway, "failed to fetch bitcoin price")
			return
		}
		price = fetched
	}
	s.respondJSON(w, http.StatusOK, price)
}

func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		s.respondError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	meta, err := s.svc.Metadata.Fetch(r.Context(), rawURL)
	if err != nil {
		// Scrape failures are expected; the client falls back to manual entry.
		s.logger.WithError(err).WithField("url", rawURL).Debug("metadata scrape failed")
		s.respondError(w, http.StatusBadGateway, "unable to load remote page")
		return
	}

	s.respondJSON(w, http.StatusOK, meta)
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

type consentRequest struct {
	Consent string `json:"consent"`
}

func (s *Server) handleGetConsent(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"consent": string(s.svc.Notifier.Consent())})
}

func (s *Server) handleSetConsent(w http.ResponseWriter, r *http.Request) {
	var req consentRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	switch notify.Consent(req.Consent) {
	case notify.ConsentGranted, notify.ConsentDenied, notify.ConsentDefault:
		s.svc.Notifier.SetConsent(notify.Consent(req.Consent))
	default:
		s.respondError(w, http.StatusBadRequest, "consent must be granted, denied or default")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"consent": string(s.svc.Notifier.Consent())})
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func (s *Server) handleRelayLog(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.relayLog.Entries())
}
