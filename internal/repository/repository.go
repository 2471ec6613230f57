package repository

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/internal/auctionerrors"
	model "auction-marketplace/internal/models"
)

//go:generate mockgen -destination=mock_repository.go -package=repository auction-marketplace/internal/repository AuctionDB

// AuctionDB defines the storage interface for the auction system.
// Every state transition is a conditional write, so callers never check-then-act.
type AuctionDB interface {
	CreateUser(ctx context.Context, user model.User) error
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	ListAdmins(ctx context.Context) ([]model.User, error)

	CreateAuction(ctx context.Context, auction model.Auction) error
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListAuctions(ctx context.Context, filter AuctionFilter) ([]model.Auction, error)
	ListExpiredAuctions(ctx context.Context, now time.Time) ([]model.Auction, error)
	// CloseAuction moves an active auction to ended and assigns the winner.
	// closed is true only for the single call that performed the transition.
	CloseAuction(ctx context.Context, auctionID string, now time.Time) (auction model.Auction, closed bool, err error)
	CancelAuction(ctx context.Context, auctionID string, now time.Time) (auction model.Auction, cancelled bool, err error)
	ArchiveAuction(ctx context.Context, auctionID string) (model.Auction, error)
	// SetInvoice stores the invoice on an ended auction. With onlyIfMissing it
	// writes nothing when a number is already present and reports false.
	SetInvoice(ctx context.Context, auctionID string, invoice Invoice, onlyIfMissing bool) (bool, error)

	// RecordBidForAuction inserts the bid and raises current_price in one
	// transaction and returns the bid that was highest before it, if any.
	RecordBidForAuction(ctx context.Context, bid model.Bid) (*model.Bid, error)
	GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetBidderIDs(ctx context.Context, auctionID string) ([]string, error)
	GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error)

	// SubmitPayment creates the auction's payment or resubmits a rejected one.
	SubmitPayment(ctx context.Context, payment model.Payment) (model.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (model.Payment, error)
	GetPaymentByAuction(ctx context.Context, auctionID string) (model.Payment, error)
	ListPayments(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error)
	VerifyPayment(ctx context.Context, v PaymentVerification) (model.Payment, error)

	CreateNotifications(ctx context.Context, notifications ...model.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}

// AuctionFilter narrows ListAuctions; zero values match everything
type AuctionFilter struct {
	Status   model.AuctionStatus
	Archived *bool
}

func (f AuctionFilter) matches(a model.Auction) bool {
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Archived != nil && a.Archived != *f.Archived {
		return false
	}
	return true
}

// Invoice is the rendered artifact persisted onto an auction
type Invoice struct {
	Number      string
	Document    []byte
	ContentType string
}

// PaymentVerification is an admin decision on a pending payment
type PaymentVerification struct {
	PaymentID string
	AdminID   string
	Status    model.PaymentStatus
	Notes     string
	Documents []model.PaymentDocument
	At        time.Time
}

// bidRejection explains why the conditional price update matched no row
func bidRejection(auction model.Auction, bid model.Bid) error {
	switch {
	case auction.Status != model.AuctionActive:
		return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotActive)
	case !bid.CreatedAt.Before(auction.EndTime):
		return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionExpired)
	default:
		return fmt.Errorf("record bid for auction %s: %w - minimum acceptable bid is %d",
			bid.AuctionID, auctionerrors.ErrBidTooLow, auction.MinimumBid())
	}
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w", op, auctionerrors.Classify(err))
}
