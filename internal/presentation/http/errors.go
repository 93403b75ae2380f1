package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/invoice"
	domainOrder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
)

type errorResponse struct {
	Error string `json:"error"`
}

// maxBodyBytes caps request bodies; the largest valid one is a checkout with a card.
const maxBodyBytes = 64 << 10

var errBodyTooLarge = errors.New("http: request body too large")

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit %d bytes", errBodyTooLarge, tooLarge.Limit)
		}
		return application.Validation(err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, invoice.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrValidation),
		errors.Is(err, domainOrder.ErrInvalidQuantity),
		errors.Is(err, domainOrder.ErrAmountOverflow),
		errors.Is(err, domainOrder.ErrProductInactive):
		return http.StatusBadRequest
	case errors.Is(err, domainOrder.ErrOrderClosed),
		errors.Is(err, domainOrder.ErrEmptyOrder),
		errors.Is(err, domainOrder.ErrAlreadyClosed),
		errors.Is(err, domainOrder.ErrAlreadyPaid),
		errors.Is(err, domainOrder.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err)
}

// statusForOutcome maps a settled payment to the checkout response code.
func statusForOutcome(o payment.Outcome) int {
	switch {
	case o.Succeeded():
		return http.StatusOK
	case o.Retryable():
		return http.StatusServiceUnavailable
	default:
		return http.StatusPaymentRequired
	}
}
