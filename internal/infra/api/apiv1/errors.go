package apiv1

import (
	"errors"
	"net/http"

	"learnhub-checkout/internal/domain"
)

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrFullyPaid),
		errors.Is(err, domain.ErrLockHeld),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrGatewayMismatch):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrNotPaid):
		return http.StatusConflict, domain.ErrNotPaid.Error()
	case errors.Is(err, domain.ErrPlanUnavailable):
		return http.StatusUnprocessableEntity, domain.ErrPlanUnavailable.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, domain.ErrRateLimited.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
