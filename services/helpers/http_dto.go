package helpers

import (
	"time"

	model "auction-marketplace/internal/models"
)

// Request/Response DTOs. Amounts are integer minor currency units.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`
	Username string `json:"username"`
	Password string `json:"password" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

type CreateAuctionRequest struct {
	Title            string    `json:"title" binding:"required"`
	Description      string    `json:"description"`
	StartingPrice    int64     `json:"starting_price" binding:"required,gt=0,lte=1000000000000000"`
	MinimumIncrement int64     `json:"minimum_increment" binding:"gte=0,lte=1000000000000000"`
	EndTime          time.Time `json:"end_time" binding:"required"`
}

type PlaceBidRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0,lte=1000000000000000"`
}

type BidResponse struct {
	BidID     string `json:"bid_id"`
	AuctionID string `json:"auction_id"`
	UserID    string `json:"user_id"`
	Amount    int64  `json:"amount"`
	CreatedAt string `json:"created_at"`
}

// NewBidResponse formats a bid for the wire
func NewBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:     bid.BidID,
		AuctionID: bid.AuctionID,
		UserID:    bid.UserID,
		Amount:    bid.Amount,
		CreatedAt: bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type InvoiceResponse struct {
	AuctionID     string `json:"auction_id"`
	InvoiceNumber string `json:"invoice_number"`
}

type SweepResponse struct {
	Closed int `json:"closed"`
}

type SubmitPaymentRequest struct {
	Amount   int64  `json:"amount" binding:"required,gt=0"`
	Method   string `json:"method" binding:"required"`
	ProofURL string `json:"proof_url" binding:"required"`
}

type VerifyPaymentRequest struct {
	Status    model.PaymentStatus     `json:"status" binding:"required,oneof=verified rejected"`
	Notes     string                  `json:"notes"`
	Documents []model.PaymentDocument `json:"documents"`
}
