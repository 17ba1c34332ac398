package web

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	authservice "github.com/goserg/eventhub/auth/service"
	"github.com/goserg/eventhub/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

var errInvalidParam = errors.New("invalid parameter")

type apiError struct {
	Errors    []string `json:"errors"`
	Message   string   `json:"message"`
	Reason    string   `json:"reason"`
	Status    string   `json:"status"`
	Timestamp string   `json:"timestamp"`
}

type errorKind struct {
	target error
	code   int
	reason string
}

var errorKinds = []errorKind{
	{domain.ErrNotFound, fiber.StatusNotFound, "The required object was not found."},

	{errInvalidParam, fiber.StatusBadRequest, "Incorrectly made request."},
	{domain.ErrInvalidBatch, fiber.StatusBadRequest, "Incorrectly made request."},
	{domain.ErrInvalidStatus, fiber.StatusBadRequest, "Incorrectly made request."},
	{domain.ErrInvalidReaction, fiber.StatusBadRequest, "Incorrectly made request."},
	{domain.ErrInvalidSortField, fiber.StatusBadRequest, "Incorrectly made request."},
	{domain.ErrInvalidFilter, fiber.StatusBadRequest, "Incorrectly made request."},
	{domain.ErrInvalidPagination, fiber.StatusBadRequest, "Incorrectly made request."},

	{authservice.ErrNotAuthorized, fiber.StatusUnauthorized, "Authorization required."},
	{authservice.ErrTokenExpired, fiber.StatusUnauthorized, "Authorization required."},
	{authservice.ErrForbidden, fiber.StatusForbidden, "Access denied."},
	{domain.ErrNotInitiator, fiber.StatusForbidden, "Access denied."},
	{domain.ErrNotRequester, fiber.StatusForbidden, "Access denied."},

	{domain.ErrModerationDisabled, fiber.StatusConflict, "For the requested operation the conditions are not met."},
	{domain.ErrInvalidRequestState, fiber.StatusConflict, "For the requested operation the conditions are not met."},
	{domain.ErrParticipantLimitReached, fiber.StatusConflict, "For the requested operation the conditions are not met."},
	{domain.ErrDuplicateRequest, fiber.StatusConflict, "Integrity constraint has been violated."},
	{domain.ErrSelfParticipation, fiber.StatusConflict, "For the requested operation the conditions are not met."},
	{domain.ErrConcurrentUpdate, fiber.StatusConflict, "Concurrent modification, retry the request."},
	{domain.ErrSelfSubscription, fiber.StatusConflict, "Subscription is not possible."},
	{domain.ErrSubscriptionDisabled, fiber.StatusConflict, "Subscription is not possible."},
	{domain.ErrAlreadySubscribed, fiber.StatusConflict, "Subscription is not possible."},
	{domain.ErrNotSubscribed, fiber.StatusConflict, "Subscription is not possible."},
}

// classify maps an error returned by a handler to a response status.
func classify(err error) (int, string) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return fiber.StatusBadRequest, "Incorrectly made request."
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}
	for _, kind := range errorKinds {
		if errors.Is(err, kind.target) {
			return kind.code, kind.reason
		}
	}
	return fiber.StatusInternalServerError, "Internal server error."
}

func newAPIError(err error, now time.Time) (int, apiError) {
	code, reason := classify(err)
	resp := apiError{
		Errors:    []string{},
		Message:   err.Error(),
		Reason:    reason,
		Status:    statusName(code),
		Timestamp: now.Format(timeLayout),
	}
	if code == fiber.StatusInternalServerError {
		resp.Message = "internal error"
		return code, resp
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		for _, fe := range validationErrs {
			resp.Errors = append(resp.Errors, "Field: "+fe.Field()+". Error: failed on '"+fe.Tag()+"'.")
		}
		return code, resp
	}
	for _, err := range unwrap(err) {
		resp.Errors = append(resp.Errors, err.Error())
	}
	return code, resp
}

func statusName(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusConflict:
		return "CONFLICT"
	}
	return "INTERNAL_SERVER_ERROR"
}

type multierr interface {
	Unwrap() []error
}

func unwrap(err error) []error {
	var merr multierr
	if errors.As(err, &merr) {
		var errs []error
		for _, err := range merr.Unwrap() {
			errs = append(errs, unwrap(err)...)
		}
		return errs
	}
	return []error{err}
}
