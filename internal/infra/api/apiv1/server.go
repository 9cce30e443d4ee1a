package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
	"learnhub-checkout/internal/infra/i18n"
	"learnhub-checkout/internal/infra/logging"
	"learnhub-checkout/internal/usecase"
)

// RateLimit bounds POST /checkout per learner. Zero Limit disables it.
type RateLimit struct {
	Limit  int
	Window time.Duration
}

type Server struct {
	resolver usecase.PlanResolver
	timeline usecase.TimelineUseCase
	checkout usecase.CheckoutUseCase
	receipts usecase.ReceiptUseCase
	limiter  adapter.RateLimiter
	rate     RateLimit
	auth     *AuthManager
	msgs     *i18n.Catalog
	log      *zerolog.Logger
}

func NewServer(
	resolver usecase.PlanResolver,
	timeline usecase.TimelineUseCase,
	checkout usecase.CheckoutUseCase,
	receipts usecase.ReceiptUseCase,
	limiter adapter.RateLimiter,
	rate RateLimit,
	auth *AuthManager,
	msgs *i18n.Catalog,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{
		resolver: resolver,
		timeline: timeline,
		checkout: checkout,
		receipts: receipts,
		limiter:  limiter,
		rate:     rate,
		auth:     auth,
		msgs:     msgs,
		log:      &l,
	}
}

// RegisterAPIV1 mounts the learner checkout API under /api/v1.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Get("/courses/{courseID}/plans", s.handlePlans)
		r.Get("/courses/{courseID}/subscriptions", s.handleSubscriptions)
		r.Get("/courses/{courseID}/installments", s.handleInstallments)
		r.Post("/courses/{courseID}/installments/{index}/receipt", s.handleRegenerateReceipt)

		r.Post("/checkout", s.handleBeginCheckout)
		r.Get("/checkout/{sessionID}", s.handleGetCheckout)
		r.Post("/checkout/{sessionID}/gateway", s.handleGatewayResult)

		r.Get("/receipts", s.handleListReceipts)
		r.Get("/receipts/{receiptID}", s.handleDownloadReceipt)
	})
}

// ---- helpers ----

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var messageKeys = map[string]string{
	usecase.MsgPaymentFailed:    "checkout.payment_failed",
	usecase.MsgAccessProcessing: "checkout.access_processing",
	usecase.MsgPaymentCancelled: "checkout.payment_cancelled",
	usecase.MsgPaymentComplete:  "checkout.payment_complete",
}

// writeSession renders the session message in the caller's language.
func (s *Server) writeSession(w http.ResponseWriter, r *http.Request, status int, sess *model.CheckoutSession) {
	if key, ok := messageKeys[sess.Message]; ok && s.msgs != nil {
		out := *sess
		out.Message = s.msgs.T(s.msgs.Match(r.Header.Get("Accept-Language")), key)
		sess = &out
	}
	writeJSON(w, status, sess)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// fail maps a use case error to a status. Unknown errors are logged and
// hidden behind a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, msg)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("empty body")
	}
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v)
}
