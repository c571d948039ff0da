package apiv1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"club-payment-service/internal/domain"
	"club-payment-service/internal/domain/model"
	"club-payment-service/internal/infra/metrics"
	"club-payment-service/internal/infra/redis"
	"club-payment-service/internal/usecase"
)

type customerRequest struct {
	Email          string `json:"email"`
	Name           string `json:"name"`
	Consent        bool   `json:"consent"`
	CaptchaToken   string `json:"captcha_token"`
	IdempotencyKey string `json:"idempotency_key"`
}

func (c customerRequest) toInput(r *http.Request) usecase.CustomerInput {
	// The header form wins over the body field when both are present.
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		key = c.IdempotencyKey
	}
	return usecase.CustomerInput{
		Email:          c.Email,
		Name:           c.Name,
		Consent:        c.Consent,
		CaptchaToken:   c.CaptchaToken,
		ClientIP:       r.RemoteAddr,
		IdempotencyKey: key,
	}
}

type checkoutResponse struct {
	OrderRef   string `json:"order_ref"`
	CheckoutID string `json:"checkout_id"`
	Reused     bool   `json:"reused,omitempty"`
}

func (s *Server) handleMembershipCheckout(w http.ResponseWriter, r *http.Request) {
	if !s.allowCheckout(w, r) {
		return
	}
	var req struct {
		customerRequest
		PlanCode  string `json:"plan_code"`
		AutoRenew bool   `json:"auto_renew"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := s.checkoutUC.CheckoutMembership(r.Context(), usecase.MembershipCheckoutInput{
		Customer:  req.toInput(r),
		PlanCode:  req.PlanCode,
		AutoRenew: req.AutoRenew,
	})
	s.writeCheckout(w, "membership", res, err)
}

func (s *Server) handleTicketCheckout(w http.ResponseWriter, r *http.Request) {
	if !s.allowCheckout(w, r) {
		return
	}
	var req customerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := s.checkoutUC.CheckoutTicket(r.Context(), usecase.TicketCheckoutInput{
		Customer: req.toInput(r),
		EventID:  chi.URLParam(r, "eventID"),
	})
	s.writeCheckout(w, "ticket", res, err)
}

func (s *Server) handleOrderCheckout(w http.ResponseWriter, r *http.Request) {
	if !s.allowCheckout(w, r) {
		return
	}
	var req struct {
		customerRequest
		Items []struct {
			ProductID string `json:"product_id"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	items := make([]usecase.OrderItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.OrderItemInput{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	res, err := s.checkoutUC.CheckoutOrder(r.Context(), usecase.OrderCheckoutInput{
		Customer: req.toInput(r),
		Items:    items,
	})
	s.writeCheckout(w, "order", res, err)
}

func (s *Server) allowCheckout(w http.ResponseWriter, r *http.Request) bool {
	if s.limiter == nil {
		return true
	}
	ok, err := s.limiter.Allow(r.Context(), redis.CheckoutKey(r.RemoteAddr), checkoutRateLimit, checkoutRateWindow)
	if err != nil {
		// Redis being down must not take checkout down with it.
		s.log.Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	if !ok {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return false
	}
	return true
}

func (s *Server) writeCheckout(w http.ResponseWriter, kind string, res *usecase.CheckoutResult, err error) {
	if err != nil {
		metrics.IncCheckout(kind, "error")
		s.writeError(w, err)
		return
	}
	metrics.IncCheckout(kind, "created")
	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderRef:   res.OrderRef,
		CheckoutID: res.CheckoutID,
		Reused:     res.Reused,
	})
}

type confirmResponse struct {
	Status string     `json:"status"`
	Kind   string     `json:"kind,omitempty"`
	EndsAt *time.Time `json:"ends_at,omitempty"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	orderRef := r.URL.Query().Get("orderRef")
	res, err := s.confirmUC.ConfirmByOrderRef(r.Context(), orderRef)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := confirmResponse{Status: string(res.Status), Kind: string(res.Kind)}
	if res.Membership != nil {
		resp.EndsAt = res.Membership.EndDate
	}
	code := http.StatusOK
	if res.Status == usecase.ConfirmStatusNotFound {
		code = http.StatusNotFound
	}
	writeJSON(w, code, resp)
}

// handleSumUpWebhook acknowledges every well-formed event with 200 so the
// provider stops retrying; the confirmation itself is idempotent, so a
// duplicate or already-processed event is a no-op.
func (s *Server) handleSumUpWebhook(w http.ResponseWriter, r *http.Request) {
	var event struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
		Payload   struct {
			CheckoutID string `json:"checkout_id"`
			Reference  string `json:"reference"`
		} `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		metrics.IncWebhookEvent("malformed")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	checkoutRef := event.Payload.CheckoutID
	if checkoutRef == "" {
		checkoutRef = event.ID
	}

	// Detach from the provider's request deadline; the ack does not depend
	// on the confirmation finishing.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 20*time.Second)
	defer cancel()

	res, err := s.confirmUC.ConfirmByCheckoutRef(ctx, checkoutRef)
	if err != nil {
		// Transient failure: a non-2xx tells the provider to redeliver.
		// Every settled outcome below, including mismatch and not-found,
		// acks so redelivery stops.
		metrics.IncWebhookEvent("error")
		s.log.Error().Err(err).Str("checkout_ref", checkoutRef).Msg("webhook confirmation failed")
		http.Error(w, "Temporarily unavailable", http.StatusInternalServerError)
		return
	}
	if res.Status == usecase.ConfirmStatusNotFound {
		metrics.IncWebhookEvent("unknown_ref")
	} else {
		metrics.IncWebhookEvent(string(res.Status))
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type planRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	PeriodMonths int    `json:"period_months"`
	PriceCents   int64  `json:"price_cents"`
	Currency     string `json:"currency"`
}

func (s *Server) handlePlanCreate(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	plan, err := s.planUC.Create(r.Context(), req.Code, req.Name, req.PeriodMonths, req.PriceCents, req.Currency)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handlePlanList(w http.ResponseWriter, r *http.Request) {
	plans, err := s.planUC.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handlePlanGet(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planUC.Get(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handlePlanUpdate(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	plan := &model.MembershipPlan{
		ID:           chi.URLParam(r, "planID"),
		Code:         req.Code,
		Name:         req.Name,
		PeriodMonths: req.PeriodMonths,
		PriceCents:   req.PriceCents,
		Currency:     req.Currency,
		Active:       true,
	}
	if err := s.planUC.Update(r.Context(), plan); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handlePlanDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := s.planUC.Deactivate(r.Context(), chi.URLParam(r, "planID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEventList(w http.ResponseWriter, r *http.Request) {
	events, err := s.catalogUC.ListUpcomingEvents(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleProductList(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalogUC.ListProducts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrCaptchaFailed):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadyExists):
		http.Error(w, "Already exists", http.StatusConflict)
	case errors.Is(err, domain.ErrSoldOut):
		http.Error(w, "Sold out", http.StatusConflict)
	case errors.Is(err, domain.ErrRateLimited):
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
	case errors.Is(err, domain.ErrCheckoutFailed):
		http.Error(w, "Payment provider rejected the checkout", http.StatusBadGateway)
	default:
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
