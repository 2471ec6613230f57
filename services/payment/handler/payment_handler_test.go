package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"auction-marketplace/internal/auctionerrors"
	"auction-marketplace/internal/auth"
	model "auction-marketplace/internal/models"
	payment "auction-marketplace/internal/paymentService"
	"auction-marketplace/services/helpers"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRouter(userID string, role model.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		helpers.SetClaims(c, &auth.Claims{Sub: userID, Role: string(role)})
		c.Next()
	})
	return router
}

func post(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Test SubmitPaymentHandler
func TestSubmitPaymentHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockPaymentServiceInterface(ctrl)
	handler := NewPaymentHandler(mockService)

	winnerID := uuid.NewString()
	router := newTestRouter(winnerID, model.RoleBidder)
	router.POST("/auctions/:auction_id/payments", handler.SubmitPaymentHandler)

	tests := []struct {
		name           string
		body           string
		mockSetup      func(auctionID string)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "success",
			body: `{"amount":200000,"method":"bank_transfer","proof_url":"https://files.example.com/p.png"}`,
			mockSetup: func(auctionID string) {
				mockService.EXPECT().
					SubmitPayment(gomock.Any(), payment.Submission{AuctionID: auctionID, UserID: winnerID, Amount: 200000, Method: "bank_transfer", ProofURL: "https://files.example.com/p.png"}).
					Return(model.Payment{PaymentID: uuid.NewString(), AuctionID: auctionID, UserID: winnerID, Amount: 200000, Status: model.PaymentPending}, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedMsg:    "payment submitted successfully",
		},
		{
			name:           "missing_proof",
			body:           `{"amount":200000,"method":"bank_transfer"}`,
			mockSetup:      func(string) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "not_winner",
			body: `{"amount":200000,"method":"cash","proof_url":"x"}`,
			mockSetup: func(auctionID string) {
				mockService.EXPECT().SubmitPayment(gomock.Any(), gomock.Any()).Return(model.Payment{}, auctionerrors.ErrNotWinner)
			},
			expectedStatus: http.StatusForbidden,
			expectedMsg:    "forbidden",
		},
		{
			name: "duplicate",
			body: `{"amount":200000,"method":"cash","proof_url":"x"}`,
			mockSetup: func(auctionID string) {
				mockService.EXPECT().SubmitPayment(gomock.Any(), gomock.Any()).Return(model.Payment{}, auctionerrors.ErrDuplicatePayment)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "operation not allowed",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			auctionID := uuid.NewString()
			tc.mockSetup(auctionID)

			w := post(router, "/auctions/"+auctionID+"/payments", tc.body)

			require.Equal(t, tc.expectedStatus, w.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Contains(t, resp["message"], tc.expectedMsg)
		})
	}
}

// Test VerifyPaymentHandler
func TestVerifyPaymentHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockPaymentServiceInterface(ctrl)
	handler := NewPaymentHandler(mockService)

	adminID := uuid.NewString()
	router := newTestRouter(adminID, model.RoleAdmin)
	router.POST("/payments/:payment_id/verify", handler.VerifyPaymentHandler)

	tests := []struct {
		name           string
		body           string
		mockSetup      func(paymentID string)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "verified_with_documents",
			body: `{"status":"verified","documents":[{"name":"receipt","url":"https://files.example.com/r.pdf"}]}`,
			mockSetup: func(paymentID string) {
				mockService.EXPECT().
					VerifyPayment(gomock.Any(), payment.Verification{
						PaymentID: paymentID,
						AdminID:   adminID,
						Status:    model.PaymentVerified,
						Documents: []model.PaymentDocument{{Name: "receipt", URL: "https://files.example.com/r.pdf"}},
					}).
					Return(model.Payment{PaymentID: paymentID, Status: model.PaymentVerified}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "payment verified",
		},
		{
			name: "rejected_without_reason",
			body: `{"status":"rejected"}`,
			mockSetup: func(paymentID string) {
				mockService.EXPECT().
					VerifyPayment(gomock.Any(), payment.Verification{PaymentID: paymentID, AdminID: adminID, Status: model.PaymentRejected}).
					Return(model.Payment{}, auctionerrors.ErrReasonRequired)
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request details",
		},
		{
			name:           "unknown_status",
			body:           `{"status":"paid"}`,
			mockSetup:      func(string) {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "not_pending",
			body: `{"status":"verified"}`,
			mockSetup: func(paymentID string) {
				mockService.EXPECT().VerifyPayment(gomock.Any(), gomock.Any()).Return(model.Payment{}, auctionerrors.ErrPaymentNotPending)
			},
			expectedStatus: http.StatusConflict,
			expectedMsg:    "operation not allowed",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			paymentID := uuid.NewString()
			tc.mockSetup(paymentID)

			w := post(router, "/payments/"+paymentID+"/verify", tc.body)

			require.Equal(t, tc.expectedStatus, w.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Contains(t, resp["message"], tc.expectedMsg)
		})
	}
}

func TestPaymentReadHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockPaymentServiceInterface(ctrl)
	handler := NewPaymentHandler(mockService)

	userID := uuid.NewString()
	router := newTestRouter(userID, model.RoleBidder)
	router.GET("/payments/:payment_id", handler.GetPaymentHandler)
	router.GET("/auctions/:auction_id/payment", handler.GetAuctionPaymentHandler)
	router.GET("/admin/payments", handler.ListPaymentsHandler)

	paymentID, auctionID := uuid.NewString(), uuid.NewString()
	mockService.EXPECT().GetPayment(gomock.Any(), paymentID, userID, false).
		Return(model.Payment{PaymentID: paymentID, UserID: userID, Status: model.PaymentPending}, nil)
	mockService.EXPECT().GetAuctionPayment(gomock.Any(), auctionID, userID, false).
		Return(model.Payment{AuctionID: auctionID, UserID: userID, Status: model.PaymentUnpaid, Amount: 200000}, nil)
	mockService.EXPECT().ListPayments(gomock.Any(), model.PaymentPending).Return(nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payments/"+paymentID, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auctions/"+auctionID+"/payment", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "unpaid", resp["data"].(map[string]any)["status"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/payments", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Empty(t, resp["data"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/payments/not-a-uuid", nil))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
