package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/eventum/internal/domain"
)

// writeJSON marshals v as JSON and writes it with the given status code. If
// marshaling fails, it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps a settlement error to its HTTP status and writes it.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), domainMessage(err))
}

// statusFor maps the settlement error taxonomy to HTTP status codes.
// Precondition failures are 409s (the request is well-formed but the market
// state forbids it); malformed inputs are 400s.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrMarketResolved),
		errors.Is(err, domain.ErrMarketAlreadyResolved),
		errors.Is(err, domain.ErrMarketNotResolved),
		errors.Is(err, domain.ErrMarketExpired),
		errors.Is(err, domain.ErrInsufficientLiquidity),
		errors.Is(err, domain.ErrUnbalancedPool),
		errors.Is(err, domain.ErrNothingToClaim),
		errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusConflict
	case errors.Is(err, domain.ErrLockHeld):
		return http.StatusLocked
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrInvalidDuration),
		errors.Is(err, domain.ErrQuestionTooLong),
		errors.Is(err, domain.ErrAddressMismatch),
		errors.Is(err, domain.ErrArithmeticOverflow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// domainMessage returns the sentinel's message when the error wraps one, and
// a generic message otherwise so internals do not leak to clients.
func domainMessage(err error) string {
	for _, sentinel := range []error{
		domain.ErrNotFound, domain.ErrAlreadyInitialized, domain.ErrUnauthorized,
		domain.ErrMarketResolved, domain.ErrMarketAlreadyResolved, domain.ErrMarketNotResolved,
		domain.ErrMarketExpired, domain.ErrInvalidAmount, domain.ErrInvalidOutcome,
		domain.ErrInvalidDuration, domain.ErrQuestionTooLong, domain.ErrInsufficientLiquidity,
		domain.ErrUnbalancedPool, domain.ErrNothingToClaim, domain.ErrArithmeticOverflow,
		domain.ErrInsufficientBalance, domain.ErrAddressMismatch, domain.ErrLockHeld,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal server error"
}

// parseListOpts extracts pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{Limit: limit, Offset: offset}
}

// pathAddress parses the {address} path parameter.
func pathAddress(r *http.Request) (domain.Address, error) {
	return domain.ParseAddress(r.PathValue("address"))
}

// decodeBody decodes the JSON request body into dst, rejecting unknown
// fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
