package apiv1

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"club-payment-service/internal/infra/redis"
	"club-payment-service/internal/usecase"
)

// checkout creation is throttled per client IP
const (
	checkoutRateLimit  = 10
	checkoutRateWindow = time.Minute
)

type Server struct {
	checkoutUC usecase.CheckoutUseCase
	confirmUC  usecase.ConfirmUseCase
	planUC     *usecase.PlanUseCase
	catalogUC  *usecase.CatalogUseCase
	limiter    *redis.RateLimiter
	apiKey     string
	log        *zerolog.Logger
}

func NewServer(
	checkoutUC usecase.CheckoutUseCase,
	confirmUC usecase.ConfirmUseCase,
	planUC *usecase.PlanUseCase,
	catalogUC *usecase.CatalogUseCase,
	limiter *redis.RateLimiter,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{
		checkoutUC: checkoutUC,
		confirmUC:  confirmUC,
		planUC:     planUC,
		catalogUC:  catalogUC,
		limiter:    limiter,
		apiKey:     apiKey,
		log:        &l,
	}
}

func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/membership", func(r chi.Router) {
			r.Post("/checkout", s.handleMembershipCheckout)
			r.Get("/confirm", s.handleConfirm)
		})
		r.Route("/events/{eventID}", func(r chi.Router) {
			r.Post("/checkout", s.handleTicketCheckout)
			r.Get("/confirm", s.handleConfirm)
		})
		r.Route("/shop", func(r chi.Router) {
			r.Post("/checkout", s.handleOrderCheckout)
			r.Get("/confirm", s.handleConfirm)
		})

		r.Post("/webhooks/sumup", s.handleSumUpWebhook)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/plans", s.handlePlanList)
			r.Post("/plans", s.handlePlanCreate)
			r.Get("/plans/{planID}", s.handlePlanGet)
			r.Put("/plans/{planID}", s.handlePlanUpdate)
			r.Delete("/plans/{planID}", s.handlePlanDeactivate)
			r.Get("/events", s.handleEventList)
			r.Get("/products", s.handleProductList)
		})
	})

	return r
}

// authMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "bearer") {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
