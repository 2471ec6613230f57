package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"auction-marketplace/internal/auctionerrors"
	"auction-marketplace/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToHTTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err    error
		status int
	}{
		{err: fmt.Errorf("service: %w", auctionerrors.ErrBidTooLow), status: http.StatusConflict},
		{err: auctionerrors.ErrInvalidBid, status: http.StatusBadRequest},
		{err: auctionerrors.ErrReasonRequired, status: http.StatusBadRequest},
		{err: fmt.Errorf("get: %w", auctionerrors.ErrAuctionNotFound), status: http.StatusNotFound},
		{err: auctionerrors.ErrPaymentNotFound, status: http.StatusNotFound},
		{err: auctionerrors.ErrAuctionNotActive, status: http.StatusConflict},
		{err: auctionerrors.ErrDuplicatePayment, status: http.StatusConflict},
		{err: auctionerrors.ErrNotWinner, status: http.StatusForbidden},
		{err: auctionerrors.ErrInvalidCredentials, status: http.StatusUnauthorized},
		{err: auctionerrors.Classify(errors.New("db down")), status: http.StatusServiceUnavailable},
		{err: errors.New("unexpected"), status: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.err.Error(), func(t *testing.T) {
			t.Parallel()
			status, message := MapErrorToHTTP(tc.err)
			require.Equal(t, tc.status, status)
			require.NotEmpty(t, message)
		})
	}
}

func TestClaimsRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, ok := CurrentClaims(c)
	require.False(t, ok)
	_, ok = MustClaims(c)
	require.False(t, ok)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	SetClaims(c, &auth.Claims{Sub: "u1", Role: "admin"})
	claims, ok := CurrentClaims(c)
	require.True(t, ok)
	require.Equal(t, "u1", claims.Sub)
	require.True(t, claims.IsAdmin())
}

func TestPathID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/auctions/:auction_id", func(c *gin.Context) {
		id, ok := PathID(c, "auction_id")
		if !ok {
			return
		}
		c.String(http.StatusOK, id)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auctions/not-an-id", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)

	id := "0b6f8a52-5f39-4c51-9d3a-3f7f3f0e8c11"
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auctions/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, id, w.Body.String())
}
