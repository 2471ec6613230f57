package handler

import (
	"context"
	"net/http"

	model "auction-marketplace/internal/models"
	payment "auction-marketplace/internal/paymentService"
	"auction-marketplace/services/helpers"
	"auction-marketplace/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -destination=mock_payment_service.go -package=handler auction-marketplace/services/payment/handler PaymentServiceInterface

type PaymentServiceInterface interface {
	SubmitPayment(ctx context.Context, in payment.Submission) (model.Payment, error)
	VerifyPayment(ctx context.Context, in payment.Verification) (model.Payment, error)
	GetPayment(ctx context.Context, paymentID, requesterID string, isAdmin bool) (model.Payment, error)
	GetAuctionPayment(ctx context.Context, auctionID, requesterID string, isAdmin bool) (model.Payment, error)
	ListPayments(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error)
}

type PaymentHandler struct {
	service PaymentServiceInterface
}

func NewPaymentHandler(service PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// SubmitPaymentHandler handles POST /auctions/:auction_id/payments
func (h *PaymentHandler) SubmitPaymentHandler(c *gin.Context) {
	claims, ok := helpers.MustClaims(c)
	if !ok {
		return
	}
	auctionID, ok := helpers.PathID(c, "auction_id")
	if !ok {
		return
	}
	var req helpers.SubmitPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SubmitPaymentHandler", err)
		return
	}

	p, err := h.service.SubmitPayment(c.Request.Context(), payment.Submission{
		AuctionID: auctionID,
		UserID:    claims.Sub,
		Amount:    req.Amount,
		Method:    req.Method,
		ProofURL:  req.ProofURL,
	})
	if err != nil {
		helpers.HandleServiceError(c, "SubmitPaymentHandler", err, map[string]any{
			"auction_id": auctionID,
			"user_id":    claims.Sub,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, p, "payment submitted successfully")
	helpers.LogSuccess("SubmitPaymentHandler", "payment submitted successfully", map[string]any{
		"payment_id": p.PaymentID,
		"auction_id": p.AuctionID,
		"user_id":    p.UserID,
	})
}

// VerifyPaymentHandler handles POST /payments/:payment_id/verify
func (h *PaymentHandler) VerifyPaymentHandler(c *gin.Context) {
	claims, ok := helpers.MustClaims(c)
	if !ok {
		return
	}
	paymentID, ok := helpers.PathID(c, "payment_id")
	if !ok {
		return
	}
	var req helpers.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "VerifyPaymentHandler", err)
		return
	}

	p, err := h.service.VerifyPayment(c.Request.Context(), payment.Verification{
		PaymentID: paymentID,
		AdminID:   claims.Sub,
		Status:    req.Status,
		Notes:     req.Notes,
		Documents: req.Documents,
	})
	if err != nil {
		helpers.HandleServiceError(c, "VerifyPaymentHandler", err, map[string]any{
			"payment_id": paymentID,
			"admin_id":   claims.Sub,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, p, "payment "+string(p.Status))
	helpers.LogSuccess("VerifyPaymentHandler", "payment reviewed", map[string]any{
		"payment_id": p.PaymentID,
		"status":     string(p.Status),
	})
}

// GetPaymentHandler handles GET /payments/:payment_id
func (h *PaymentHandler) GetPaymentHandler(c *gin.Context) {
	claims, ok := helpers.MustClaims(c)
	if !ok {
		return
	}
	paymentID, ok := helpers.PathID(c, "payment_id")
	if !ok {
		return
	}
	p, err := h.service.GetPayment(c.Request.Context(), paymentID, claims.Sub, claims.IsAdmin())
	if err != nil {
		helpers.HandleServiceError(c, "GetPaymentHandler", err, map[string]any{"payment_id": paymentID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, p, "payment retrieved successfully")
}

// GetAuctionPaymentHandler handles GET /auctions/:auction_id/payment
func (h *PaymentHandler) GetAuctionPaymentHandler(c *gin.Context) {
	claims, ok := helpers.MustClaims(c)
	if !ok {
		return
	}
	auctionID, ok := helpers.PathID(c, "auction_id")
	if !ok {
		return
	}
	p, err := h.service.GetAuctionPayment(c.Request.Context(), auctionID, claims.Sub, claims.IsAdmin())
	if err != nil {
		helpers.HandleServiceError(c, "GetAuctionPaymentHandler", err, map[string]any{"auction_id": auctionID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, p, "payment retrieved successfully")
}

// ListPaymentsHandler handles GET /admin/payments?status=
func (h *PaymentHandler) ListPaymentsHandler(c *gin.Context) {
	status := model.PaymentStatus(c.DefaultQuery("status", string(model.PaymentPending)))
	payments, err := h.service.ListPayments(c.Request.Context(), status)
	if err != nil {
		helpers.HandleServiceError(c, "ListPaymentsHandler", err, map[string]any{"status": string(status)})
		return
	}
	if payments == nil {
		payments = []model.Payment{}
	}

	utils.JSONResponse(c, http.StatusOK, payments, "payments retrieved successfully")
	helpers.LogSuccess("ListPaymentsHandler", "payments retrieved successfully", map[string]any{
		"status": string(status),
		"count":  len(payments),
	})
}
