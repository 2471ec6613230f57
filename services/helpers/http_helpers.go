package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"auction-marketplace/internal/auctionerrors"
	"auction-marketplace/internal/auth"
	"auction-marketplace/utils"

	"github.com/gin-gonic/gin"
)

const claimsKey = "auth.claims"

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message.
// Specific errors come first; everything else falls back to its kind.
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for auction"
	case errors.Is(err, auctionerrors.ErrInvoiceNotFound):
		return http.StatusNotFound, "invoice not issued"
	case errors.Is(err, auctionerrors.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, auctionerrors.ErrValidationFailed):
		return http.StatusBadRequest, "invalid request details"
	case errors.Is(err, auctionerrors.ErrInvalidState):
		return http.StatusConflict, "operation not allowed in current state"
	case errors.Is(err, auctionerrors.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, auctionerrors.ErrDependencyFailure):
		return http.StatusServiceUnavailable, "dependency unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// HandleServiceError writes the mapped error response and logs it.
// Server-side failures log at error level, client mistakes at warn.
func HandleServiceError(c *gin.Context, handlerName string, err error, ctx map[string]any) {
	status, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	fields := map[string]any{"handler": handlerName, "status": status, "error": err.Error()}
	for k, v := range ctx {
		fields[k] = v
	}
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}

// SetClaims stores the authenticated caller on the request context
func SetClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(claimsKey, claims)
}

// CurrentClaims returns the authenticated caller set by the auth middleware
func CurrentClaims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

// MustClaims is CurrentClaims for routes behind the auth middleware.
// A missing caller is answered with 401 and false.
func MustClaims(c *gin.Context) (*auth.Claims, bool) {
	claims, ok := CurrentClaims(c)
	if !ok {
		utils.AbortJSONError(c, http.StatusUnauthorized, errors.New("missing credentials"), "unauthorized")
		return nil, false
	}
	return claims, true
}

// PathID reads a path parameter that must be an identifier. A malformed value
// is answered with 400 and false.
func PathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if !utils.IsID(id) {
		utils.JSONError(c, http.StatusBadRequest, fmt.Errorf("malformed %s %q", name, id), "invalid "+name)
		return "", false
	}
	return id, true
}
