// Package httputil centralizes JSON response writing and domain error
// translation for the HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "taleweave/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so encoding
	// errors are ignored.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError translates transport-agnostic domain errors into HTTP status
// codes and error responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		response := map[string]string{
			"error": codeToken(domainErr.Code),
		}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		WriteJSON(w, codeStatus(domainErr.Code), response)
		return
	}

	WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": codeToken(domainerrors.CodeInternal),
	})
}

func codeStatus(code domainerrors.Code) int {
	switch code {
	case domainerrors.CodeNotFound:
		return http.StatusNotFound
	case domainerrors.CodeBadRequest, domainerrors.CodeValidation, domainerrors.CodeInvalidInput, domainerrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case domainerrors.CodeConflict:
		return http.StatusConflict
	case domainerrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case domainerrors.CodeForbidden, domainerrors.CodeInvalidConsent, domainerrors.CodeMissingConsent:
		return http.StatusForbidden
	case domainerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case domainerrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeToken(code domainerrors.Code) string {
	switch code {
	case domainerrors.CodeNotFound:
		return "not_found"
	case domainerrors.CodeBadRequest, domainerrors.CodeInvalidInput:
		return "bad_request"
	case domainerrors.CodeValidation, domainerrors.CodeInvariantViolation:
		return "validation_error"
	case domainerrors.CodeConflict:
		return "conflict"
	case domainerrors.CodeUnauthorized:
		return "unauthorized"
	case domainerrors.CodeForbidden:
		return "forbidden"
	case domainerrors.CodeInvalidConsent:
		return "invalid_consent"
	case domainerrors.CodeMissingConsent:
		return "missing_consent"
	case domainerrors.CodeTimeout:
		return "timeout"
	case domainerrors.CodeUnavailable:
		return "unavailable"
	default:
		return "internal_error"
	}
}

// DecodeJSON decodes a JSON request body into the target type. On failure it
// writes the error response and returns false.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "failed to decode request body",
				"error", err,
				"request_id", requestID,
			)
		}
		WriteError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}
	return &req, true
}

// Validatable is implemented by request types that support validation.
type Validatable interface {
	Validate() error
}

// DecodeAndValidate combines JSON decoding with validation when the target
// type implements Validatable.
func DecodeAndValidate[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req, ok := DecodeJSON[T](w, r, logger, ctx, requestID)
	if !ok {
		return nil, false
	}
	if v, ok := any(req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			if logger != nil {
				logger.WarnContext(ctx, "invalid request", "error", err, "request_id", requestID)
			}
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				WriteError(w, err)
			} else {
				WriteError(w, domainerrors.New(domainerrors.CodeValidation, err.Error()))
			}
			return nil, false
		}
	}
	return req, true
}
