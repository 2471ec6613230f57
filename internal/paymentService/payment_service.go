package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auction-marketplace/internal/auctionerrors"
	"auction-marketplace/internal/invoice"
	model "auction-marketplace/internal/models"
	"auction-marketplace/internal/notification"
	"auction-marketplace/internal/repository"
	"auction-marketplace/internal/tracing"
	"auction-marketplace/utils"

	"go.opentelemetry.io/otel/attribute"
)

// PaymentService runs the manual payment verification workflow:
// unpaid -> pending -> verified | rejected, and rejected -> pending on resubmission.
type PaymentService struct {
	repo     repository.AuctionDB
	notifier notification.Notifier
	now      func() time.Time
}

// Option configures a PaymentService
type Option func(*PaymentService)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(s *PaymentService) { s.now = now }
}

// NewPaymentService creates a new PaymentService instance
func NewPaymentService(repo repository.AuctionDB, notifier notification.Notifier, opts ...Option) *PaymentService {
	s := &PaymentService{
		repo:     repo,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submission is the winner's proof of payment
type Submission struct {
	AuctionID string
	UserID    string
	Amount    int64
	Method    string
	ProofURL  string
}

// Verification is an admin decision
type Verification struct {
	PaymentID string
	AdminID   string
	Status    model.PaymentStatus
	Notes     string
	Documents []model.PaymentDocument
}

// SubmitPayment records the winner's payment, or resubmits a rejected one
// on the same record. Every admin is told a payment awaits review.
func (s *PaymentService) SubmitPayment(ctx context.Context, in Submission) (p model.Payment, err error) {
	ctx, span := tracing.Start(ctx, "payment.SubmitPayment",
		attribute.String("auction_id", in.AuctionID),
		attribute.String("user_id", in.UserID))
	defer func() { tracing.End(span, err) }()

	if err := validateSubmission(in); err != nil {
		return model.Payment{}, err
	}

	auction, err := s.repo.GetAuction(ctx, in.AuctionID)
	if err != nil {
		return model.Payment{}, fmt.Errorf("service: failed to load auction %s: %w", in.AuctionID, err)
	}
	switch {
	case auction.Status == model.AuctionActive:
		return model.Payment{}, fmt.Errorf("service: %w", auctionerrors.ErrAuctionNotEnded)
	case !auction.HasWinner():
		return model.Payment{}, fmt.Errorf("service: %w", auctionerrors.ErrNoWinner)
	case *auction.WinnerID != in.UserID:
		return model.Payment{}, fmt.Errorf("service: %w", auctionerrors.ErrNotWinner)
	case in.Amount != auction.CurrentPrice:
		return model.Payment{}, fmt.Errorf("service: %w - amount must equal the winning bid of %d", auctionerrors.ErrInvalidPayment, auction.CurrentPrice)
	}

	now := s.now()
	p, err = s.repo.SubmitPayment(ctx, model.Payment{
		PaymentID: utils.GenerateID(),
		AuctionID: in.AuctionID,
		UserID:    in.UserID,
		Amount:    in.Amount,
		Method:    strings.TrimSpace(in.Method),
		ProofURL:  strings.TrimSpace(in.ProofURL),
		Status:    model.PaymentPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return model.Payment{}, fmt.Errorf("service: failed to submit payment for auction %s: %w", in.AuctionID, err)
	}

	utils.Info("payment submitted", map[string]any{
		"payment_id": p.PaymentID,
		"auction_id": p.AuctionID,
		"user_id":    p.UserID,
		"amount":     p.Amount,
	})
	s.notifier.Notify(ctx, model.Notification{
		Broadcast: true,
		Type:      model.NotifyPaymentSubmitted,
		Title:     "Payment awaiting verification",
		Message:   fmt.Sprintf("A payment of %s for %q was submitted.", invoice.FormatAmount(p.Amount), auction.Title),
		Data: map[string]any{
			"payment_id": p.PaymentID,
			"auction_id": p.AuctionID,
			"user_id":    p.UserID,
		},
	})
	return p, nil
}

func validateSubmission(in Submission) error {
	switch {
	case in.AuctionID == "" || in.UserID == "":
		return fmt.Errorf("service: %w - missing auctionID or userID", auctionerrors.ErrInvalidPayment)
	case in.Amount <= 0:
		return fmt.Errorf("service: %w - non-positive amount", auctionerrors.ErrInvalidPayment)
	case strings.TrimSpace(in.Method) == "":
		return fmt.Errorf("service: %w - payment method is required", auctionerrors.ErrInvalidPayment)
	case strings.TrimSpace(in.ProofURL) == "":
		return fmt.Errorf("service: %w - proof of payment is required", auctionerrors.ErrInvalidPayment)
	}
	return nil
}

// VerifyPayment applies an admin's decision to a pending payment and tells the payer
func (s *PaymentService) VerifyPayment(ctx context.Context, in Verification) (p model.Payment, err error) {
	ctx, span := tracing.Start(ctx, "payment.VerifyPayment",
		attribute.String("payment_id", in.PaymentID),
		attribute.String("status", string(in.Status)))
	defer func() { tracing.End(span, err) }()

	if in.PaymentID == "" {
		return model.Payment{}, fmt.Errorf("service: %w - empty payment ID", auctionerrors.ErrInvalidPayment)
	}
	switch in.Status {
	case model.PaymentVerified:
	case model.PaymentRejected:
		if strings.TrimSpace(in.Notes) == "" {
			return model.Payment{}, fmt.Errorf("service: %w", auctionerrors.ErrReasonRequired)
		}
	default:
		return model.Payment{}, fmt.Errorf("service: %w - status must be verified or rejected", auctionerrors.ErrInvalidPayment)
	}
	if in.Status == model.PaymentRejected && len(in.Documents) > 0 {
		return model.Payment{}, fmt.Errorf("service: %w - documents attach only to verified payments", auctionerrors.ErrInvalidPayment)
	}

	admin, err := s.repo.GetUser(ctx, in.AdminID)
	if errors.Is(err, auctionerrors.ErrUserNotFound) || (err == nil && !admin.IsAdmin()) {
		return model.Payment{}, fmt.Errorf("service: %w", auctionerrors.ErrNotAdmin)
	}
	if err != nil {
		return model.Payment{}, fmt.Errorf("service: failed to load admin %s: %w", in.AdminID, err)
	}

	p, err = s.repo.VerifyPayment(ctx, repository.PaymentVerification{
		PaymentID: in.PaymentID,
		AdminID:   in.AdminID,
		Status:    in.Status,
		Notes:     strings.TrimSpace(in.Notes),
		Documents: in.Documents,
		At:        s.now(),
	})
	if err != nil {
		return model.Payment{}, fmt.Errorf("service: failed to verify payment %s: %w", in.PaymentID, err)
	}

	utils.Info("payment reviewed", map[string]any{
		"payment_id": p.PaymentID,
		"auction_id": p.AuctionID,
		"admin_id":   in.AdminID,
		"status":     string(p.Status),
	})
	s.notifier.Notify(ctx, reviewNotification(p))
	return p, nil
}

func reviewNotification(p model.Payment) model.Notification {
	n := model.Notification{
		UserID: p.UserID,
		Data: map[string]any{
			"payment_id": p.PaymentID,
			"auction_id": p.AuctionID,
		},
	}
	if p.Status == model.PaymentVerified {
		n.Type = model.NotifyPaymentVerified
		n.Title = "Payment verified"
		n.Message = "Your payment was verified."
		if len(p.Documents) > 0 {
			n.Data["documents"] = []model.PaymentDocument(p.Documents)
		}
		return n
	}
	n.Type = model.NotifyPaymentRejected
	n.Title = "Payment rejected"
	n.Message = "Your payment was rejected: " + p.Notes + ". Please resubmit."
	n.Data["reason"] = p.Notes
	return n
}

// GetPayment returns a payment to its payer or to an admin
func (s *PaymentService) GetPayment(ctx context.Context, paymentID, requesterID string, isAdmin bool) (model.Payment, error) {
	if paymentID == "" {
		return model.Payment{}, fmt.Errorf("service: %w - empty payment ID", auctionerrors.ErrInvalidPayment)
	}
	p, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return model.Payment{}, fmt.Errorf("service: failed to get payment %s: %w", paymentID, err)
	}
	if !isAdmin && p.UserID != requesterID {
		return model.Payment{}, fmt.Errorf("service: %w", auctionerrors.ErrNotWinner)
	}
	return p, nil
}

// GetAuctionPayment returns the payment state of an ended auction. Before the
// winner submits anything the result is a synthesized record with status unpaid.
func (s *PaymentService) GetAuctionPayment(ctx context.Context, auctionID, requesterID string, isAdmin bool) (model.Payment, error) {
	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Payment{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	if !auction.HasWinner() {
		return model.Payment{}, fmt.Errorf("service: %w", auctionerrors.ErrNoWinner)
	}
	if !isAdmin && *auction.WinnerID != requesterID {
		return model.Payment{}, fmt.Errorf("service: %w", auctionerrors.ErrNotWinner)
	}

	p, err := s.repo.GetPaymentByAuction(ctx, auctionID)
	if errors.Is(err, auctionerrors.ErrPaymentNotFound) {
		return model.Payment{
			AuctionID: auctionID,
			UserID:    *auction.WinnerID,
			Amount:    auction.CurrentPrice,
			Status:    model.PaymentUnpaid,
		}, nil
	}
	if err != nil {
		return model.Payment{}, fmt.Errorf("service: failed to get payment for auction %s: %w", auctionID, err)
	}
	return p, nil
}

// ListPayments returns payments in a status, or all of them
func (s *PaymentService) ListPayments(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	switch status {
	case "", model.PaymentPending, model.PaymentVerified, model.PaymentRejected:
	default:
		return nil, fmt.Errorf("service: %w - unknown status %q", auctionerrors.ErrInvalidPayment, status)
	}
	payments, err := s.repo.ListPayments(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list payments: %w", err)
	}
	return payments, nil
}
