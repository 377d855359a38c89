package app

import (
	"errors"
	"fmt"
	"net/http"

	"knowledgebase/internal/assets"
	"knowledgebase/internal/auth"
	"knowledgebase/internal/authpw"
	"knowledgebase/internal/blocks"
	"knowledgebase/internal/export"
	"knowledgebase/internal/store"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *blocks.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "INVALID_TREE", "Document tree is invalid", validationErr.Problems
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, "CONFLICT", "Document was changed by someone else", nil
	case errors.Is(err, blocks.ErrUnknownType), errors.Is(err, blocks.ErrUnknownOp):
		return http.StatusBadRequest, "INVALID_OPERATION", err.Error(), nil
	case errors.Is(err, blocks.ErrMoveDisabled):
		return http.StatusConflict, "MOVE_DISABLED", "Entries cannot be reordered in alphabetical mode", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	case errors.Is(err, authpw.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, authpw.ErrEmailTaken):
		return http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil
	case errors.Is(err, assets.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "UNSUPPORTED_ASSET", "Only image uploads are accepted", nil
	case errors.Is(err, assets.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "ASSET_TOO_LARGE", "Asset exceeds the upload limit", nil
	case errors.Is(err, assets.ErrUnavailable):
		return http.StatusServiceUnavailable, "ASSETS_UNAVAILABLE", "Asset storage not configured", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
