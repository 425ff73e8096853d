package api

import (
	"account_system/internal/domain" // Error codes
	"errors"                         // Error matching
	"net/http"                       // HTTP status codes

	"github.com/gin-gonic/gin"               // Gin web framework
	"github.com/go-playground/validator/v10" // Binding validation errors
	"github.com/sirupsen/logrus"             // Logging library
)

// Error codes produced by the HTTP layer itself
const (
	codeInvalidRequest = "INVALID_REQUEST"
	codeForbidden      = "FORBIDDEN"
	codeUnauthorized   = "UNAUTHORIZED"
	codeInternal       = "INTERNAL_SERVER_ERROR"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	ErrorCode    string       `json:"errorCode"`         // Stable error kind
	ErrorMessage string       `json:"errorMessage"`      // Human-readable message
	Details      []FieldError `json:"details,omitempty"` // Per-field binding failures
}

// FieldError describes one request field that failed validation
type FieldError struct {
	Field string `json:"field"`           // Request struct field name
	Rule  string `json:"rule"`            // Failed binding rule, e.g. len or numeric
	Param string `json:"param,omitempty"` // Rule parameter, if any
}

// statusFor maps a business error kind to its HTTP status
func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.UserNotFound, domain.AccountNotFound, domain.TransactionNotFound:
		return http.StatusNotFound
	case domain.UserAccountMismatch, domain.TransactionAccountUnMatch:
		return http.StatusForbidden
	case domain.AccountTransactionLock, domain.AccountAlreadyUnregistered, domain.TransactionAlreadyCancelled:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// respondError writes err as an ErrorResponse. Business errors keep their
// code and message; anything else is logged and hidden behind a 500.
func respondError(c *gin.Context, err error, fields logrus.Fields) {
	if code := domain.CodeOf(err); code != "" {
		c.JSON(statusFor(code), ErrorResponse{ErrorCode: string(code), ErrorMessage: err.Error()})
		return
	}
	if fields == nil {
		fields = logrus.Fields{}
	}
	fields["path"] = c.FullPath()
	fields["error"] = err.Error()
	logrus.WithFields(fields).Error("Request failed")
	c.JSON(http.StatusInternalServerError, ErrorResponse{ErrorCode: codeInternal, ErrorMessage: "Internal server error"})
}

// abortWith writes an HTTP-layer error
func abortWith(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{ErrorCode: code, ErrorMessage: message})
}

// abortBind reports a request that failed to bind, listing the offending fields
func abortBind(c *gin.Context, err error) {
	resp := ErrorResponse{ErrorCode: codeInvalidRequest, ErrorMessage: "Invalid request"}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			resp.Details = append(resp.Details, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
		}
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}
