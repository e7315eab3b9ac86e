package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/KanavDutta/cryptofence/logger"
	"github.com/KanavDutta/cryptofence/pkg/cryptoservice"
	"github.com/KanavDutta/cryptofence/pkg/ratelimit"
	"github.com/KanavDutta/cryptofence/store"
)

// CheckKeyPrefix is prepended to every key named in a /check request, so
// callers can never reach operation, domain or client buckets.
const CheckKeyPrefix = "check:"

// Handler serves rate limit checks and the record vault.
type Handler struct {
	checks   *ratelimit.Limiter
	vault    *cryptoservice.Vault
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new API handler. checks holds the buckets behind
// /check and should not be the limiter that gates crypto operations.
// A nil vault disables the /records routes.
func NewHandler(checks *ratelimit.Limiter, vault *cryptoservice.Vault, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		checks:   checks,
		vault:    vault,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Routes registers the handler's endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/check", h.CheckRateLimit)

	if h.vault != nil {
		r.Route("/records", func(r chi.Router) {
			r.Post("/", h.SealRecord)
			r.Get("/{id}", h.OpenRecord)
			r.Delete("/{id}", h.DestroyRecord)
		})
	}
}

// CheckRequest asks for tokens from one bucket
type CheckRequest struct {
	Key    string `json:"key" validate:"required,max=256"`
	Tokens int64  `json:"tokens,omitempty" validate:"gte=0"` // Optional: defaults to 1
}

// CheckResponse represents the rate limit check response
type CheckResponse struct {
	Key          string `json:"key"`
	Allowed      bool   `json:"allowed"`
	Remaining    int64  `json:"remaining"`
	Limit        int64  `json:"limit"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty"` // -1 when the request exceeds the burst size
}

// SealRequest stores data in the vault. Data is base64 in JSON.
type SealRequest struct {
	ID   string `json:"id,omitempty" validate:"omitempty,max=128,printascii"`
	Data []byte `json:"data" validate:"required"`
}

// RecordResponse describes a sealed or opened record
type RecordResponse struct {
	ID   string `json:"id"`
	Data []byte `json:"data,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CheckRateLimit handles POST /check requests
func (h *Handler) CheckRateLimit(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Tokens == 0 {
		req.Tokens = 1
	}

	decision := h.checks.Consume(CheckKeyPrefix+req.Key, req.Tokens)

	resp := CheckResponse{
		Key:       req.Key,
		Allowed:   decision.Allowed,
		Remaining: decision.Remaining,
		Limit:     decision.Limit,
	}
	switch {
	case decision.RetryAfter < 0:
		resp.RetryAfterMs = -1
	case decision.RetryAfter > 0:
		resp.RetryAfterMs = decision.RetryAfter.Milliseconds()
	}

	status := http.StatusOK
	if !decision.Allowed {
		status = http.StatusTooManyRequests
	}
	writeJSON(w, status, resp)
}

// SealRecord handles POST /records
func (h *Handler) SealRecord(w http.ResponseWriter, r *http.Request) {
	var req SealRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.vault.Seal(r.Context(), req.ID, req.Data)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, RecordResponse{ID: id})
}

// OpenRecord handles GET /records/{id}
func (h *Handler) OpenRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, err := h.vault.Open(r.Context(), id)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordResponse{ID: id, Data: data})
}

// DestroyRecord handles DELETE /records/{id}
func (h *Handler) DestroyRecord(w http.ResponseWriter, r *http.Request) {
	if err := h.vault.Destroy(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		sendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		sendError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cryptoservice.ErrRateLimited):
		sendError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many cryptographic operations. Please try again later.")
	case errors.Is(err, store.ErrNotFound):
		sendError(w, http.StatusNotFound, "not_found", "Record not found")
	case errors.Is(err, cryptoservice.ErrRecordExists):
		sendError(w, http.StatusConflict, "conflict", "A record with this id already exists")
	case errors.Is(err, cryptoservice.ErrInvalidInput),
		errors.Is(err, cryptoservice.ErrInvalidKeySize),
		errors.Is(err, store.ErrInvalidID):
		sendError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, store.ErrUnavailable):
		h.logger.ErrorContext(r.Context(), "secure storage unavailable", logger.Error(err))
		sendError(w, http.StatusServiceUnavailable, "unavailable", "Secure storage is unavailable")
	default:
		h.logger.ErrorContext(r.Context(), "vault operation failed", logger.Error(err))
		sendError(w, http.StatusInternalServerError, "internal_error", "The operation failed")
	}
}

func sendError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
