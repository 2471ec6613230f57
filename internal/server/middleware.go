package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"auction-marketplace/internal/auth"
	"auction-marketplace/internal/metrics"
	"auction-marketplace/internal/tracing"
	"auction-marketplace/services/helpers"
	"auction-marketplace/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"route":   c.FullPath(),
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	})
}

// MetricsMiddleware records request counts and latency per route template
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// TracingMiddleware continues an incoming trace and opens a server span per request
func TracingMiddleware(c *gin.Context) {
	ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
	ctx, span := tracing.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, c.FullPath()),
		attribute.String("http.method", c.Request.Method),
		attribute.String("http.route", c.FullPath()))
	c.Request = c.Request.WithContext(ctx)

	c.Next()

	status := c.Writer.Status()
	span.SetAttributes(attribute.Int("http.status_code", status))
	var err error
	if status >= http.StatusInternalServerError {
		err = errors.New(http.StatusText(status))
	}
	tracing.End(span, err)
}

// JWTAuth requires a valid bearer token and exposes its claims to handlers
func JWTAuth(issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			utils.AbortJSONError(c, http.StatusUnauthorized, errors.New("missing bearer token"), "unauthorized")
			return
		}
		claims, err := issuer.Parse(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			utils.AbortJSONError(c, http.StatusUnauthorized, err, "unauthorized")
			utils.Warn("JWTAuth: rejected token", map[string]any{"path": c.Request.URL.Path, "error": err.Error()})
			return
		}
		helpers.SetClaims(c, claims)
		c.Next()
	}
}

// RequireRole admits only callers holding one of the roles. It must run after JWTAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := helpers.CurrentClaims(c)
		if !ok {
			utils.AbortJSONError(c, http.StatusUnauthorized, errors.New("missing credentials"), "unauthorized")
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			utils.AbortJSONError(c, http.StatusForbidden, fmt.Errorf("role %q not permitted", claims.Role), "forbidden")
			return
		}
		c.Next()
	}
}
