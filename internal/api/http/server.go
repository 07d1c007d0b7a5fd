package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appAuth "github.com/barter-hub/barter-hub/internal/application/auth"
	appCatalog "github.com/barter-hub/barter-hub/internal/application/catalog"
	appChat "github.com/barter-hub/barter-hub/internal/application/chat"
	appExchange "github.com/barter-hub/barter-hub/internal/application/exchange"
	appNotification "github.com/barter-hub/barter-hub/internal/application/notification"
	appProposal "github.com/barter-hub/barter-hub/internal/application/proposal"
	appRating "github.com/barter-hub/barter-hub/internal/application/rating"
	appUser "github.com/barter-hub/barter-hub/internal/application/user"
	"github.com/barter-hub/barter-hub/internal/infrastructure/sse"
)

// maxBodyBytes bounds JSON bodies, which may carry up to five base64 images
// per entity.
const maxBodyBytes = 96 << 20

// Server holds dependencies for HTTP handlers.
type Server struct {
	authSvc             *appAuth.Service
	userSvc             *appUser.Service
	catalogSvc          *appCatalog.Service
	proposals           *appProposal.Builder
	exchangeSvc         *appExchange.Service
	chatSvc             *appChat.Service
	ratingSvc           *appRating.Service
	bridge              *appNotification.Bridge
	sseHub              *sse.Hub
	sessionCookieName   string
	sessionCookieSecure bool
	logger              zerolog.Logger
}

func NewServer(
	authSvc *appAuth.Service,
	userSvc *appUser.Service,
	catalogSvc *appCatalog.Service,
	proposals *appProposal.Builder,
	exchangeSvc *appExchange.Service,
	chatSvc *appChat.Service,
	ratingSvc *appRating.Service,
	bridge *appNotification.Bridge,
	sseHub *sse.Hub,
	sessionCookieName string,
	sessionCookieSecure bool,
	logger zerolog.Logger,
) *Server {
	return &Server{
		authSvc:             authSvc,
		userSvc:             userSvc,
		catalogSvc:          catalogSvc,
		proposals:           proposals,
		exchangeSvc:         exchangeSvc,
		chatSvc:             chatSvc,
		ratingSvc:           ratingSvc,
		bridge:              bridge,
		sseHub:              sseHub,
		sessionCookieName:   sessionCookieName,
		sessionCookieSecure: sessionCookieSecure,
		logger:              logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/logout", s.logout)
				r.Get("/me", s.me)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			// The stream stays open, so it sits outside the request timeout.
			r.Get("/stream", s.stream)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))

				r.Route("/items", func(r chi.Router) {
					r.Get("/", s.browseItems)
					r.Post("/", s.createItem)
					r.Get("/{itemId}", s.getItem)
					r.Patch("/{itemId}", s.updateItem)
					r.Delete("/{itemId}", s.deleteItem)
					r.Get("/{itemId}/candidates", s.offerCandidates)
				})

				r.Route("/exchanges", func(r chi.Router) {
					r.Post("/", s.createExchange)
					r.Get("/", s.listExchanges)
					r.Get("/{exchangeId}", s.getExchange)
					r.Get("/{exchangeId}/poll", s.pollExchange)
					r.Post("/{exchangeId}/respond", s.respondExchange)
					r.Post("/{exchangeId}/modify", s.modifyExchange)
					r.Post("/{exchangeId}/counter", s.counterOffer)
					r.Post("/{exchangeId}/confirm", s.confirmExchange)
					r.Post("/{exchangeId}/cancel", s.cancelExchange)
					r.Post("/{exchangeId}/rate", s.rateExchange)
					r.Get("/{exchangeId}/contacts", s.exchangeContacts)
					r.Get("/{exchangeId}/messages", s.listMessages)
					r.Post("/{exchangeId}/messages", s.sendMessage)
					r.Post("/{exchangeId}/read", s.markRead)
				})

				r.Route("/users", func(r chi.Router) {
					r.Get("/{userId}", s.getProfile)
					r.Get("/{userId}/ratings", s.listRatings)
				})

				r.Route("/me", func(r chi.Router) {
					r.Get("/counters", s.counters)
					r.Get("/items", s.myItems)
					r.Get("/profile", s.myProfile)
					r.Patch("/contact", s.updateContact)
					r.Put("/password", s.setPassword)
				})
			})
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

type listResponse struct {
	Items  interface{} `json:"items"`
	Total  *int        `json:"total,omitempty"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
