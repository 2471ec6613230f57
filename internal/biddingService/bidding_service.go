package bidding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"auction-marketplace/internal/auctionerrors"
	"auction-marketplace/internal/invoice"
	"auction-marketplace/internal/metrics"
	model "auction-marketplace/internal/models"
	"auction-marketplace/internal/notification"
	"auction-marketplace/internal/repository"
	"auction-marketplace/internal/tracing"
	"auction-marketplace/utils"

	"go.opentelemetry.io/otel/attribute"
)

// BiddingService defines the business logic for auctions and bidding
type BiddingService struct {
	repo     repository.AuctionDB
	notifier notification.Notifier
	renderer invoice.Renderer
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a BiddingService
type Option func(*BiddingService)

// WithClock replaces the wall clock, for tests
func WithClock(now func() time.Time) Option {
	return func(s *BiddingService) { s.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *BiddingService) { s.metrics = m }
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(repo repository.AuctionDB, notifier notification.Notifier, renderer invoice.Renderer, opts ...Option) *BiddingService {
	s := &BiddingService{
		repo:     repo,
		notifier: notifier,
		renderer: renderer,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewAuction is the admin input for CreateAuction
type NewAuction struct {
	Title            string
	Description      string
	StartingPrice    int64
	MinimumIncrement int64
	EndTime          time.Time
}

// PlaceBid validates and records a user's bid on an auction.
// The previous top bidder is told they were outbid.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, userID string, amount int64) (bid model.Bid, err error) {
	ctx, span := tracing.Start(ctx, "bidding.PlaceBid",
		attribute.String("auction_id", auctionID),
		attribute.String("user_id", userID),
		attribute.Int64("amount", amount))
	defer func() { tracing.End(span, err) }()

	if err := s.validateBid(ctx, auctionID, userID, amount); err != nil {
		s.observeBid(err)
		return model.Bid{}, err
	}

	bid = model.Bid{
		BidID:     utils.GenerateID(),
		AuctionID: auctionID,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: s.now(),
	}

	previous, err := s.repo.RecordBidForAuction(ctx, bid)
	if err != nil {
		s.observeBid(err)
		return model.Bid{}, fmt.Errorf("service: failed to record bid for auction %s by user %s: %w", auctionID, userID, err)
	}
	s.metrics.ObserveBid(metrics.BidAccepted)

	if previous != nil && previous.UserID != userID {
		s.notifier.Notify(ctx, model.Notification{
			UserID:  previous.UserID,
			Type:    model.NotifyOutbid,
			Title:   "You have been outbid",
			Message: fmt.Sprintf("A bid of %s was placed on an auction you were leading.", invoice.FormatAmount(amount)),
			Data: map[string]any{
				"auction_id":      auctionID,
				"amount":          amount,
				"previous_amount": previous.Amount,
			},
		})
	}

	return bid, nil
}

// validateBid checks input validity and the rules that do not depend on the current price.
// Price, status and expiry are re-checked atomically by the repository.
func (s *BiddingService) validateBid(ctx context.Context, auctionID, userID string, amount int64) error {
	if auctionID == "" || userID == "" {
		return fmt.Errorf("service: %w - missing auctionID or userID", auctionerrors.ErrInvalidBid)
	}
	if amount <= 0 || amount > model.MaxAmount {
		return fmt.Errorf("service: %w - bid amount must be between 1 and %d", auctionerrors.ErrInvalidBid, model.MaxAmount)
	}

	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	if auction.OwnerID == userID {
		return fmt.Errorf("service: %w", auctionerrors.ErrOwnBid)
	}
	if auction.Status != model.AuctionActive {
		return fmt.Errorf("service: %w - auction is %s", auctionerrors.ErrAuctionNotActive, auction.Status)
	}
	if !s.now().Before(auction.EndTime) {
		return fmt.Errorf("service: %w - auction ended at %s", auctionerrors.ErrAuctionExpired, auction.EndTime.Format(time.RFC3339))
	}
	if !auction.AcceptsBid(amount) {
		return fmt.Errorf("service: %w - minimum acceptable bid is %d", auctionerrors.ErrBidTooLow, auction.MinimumBid())
	}
	return nil
}

func (s *BiddingService) observeBid(err error) {
	switch auctionerrors.KindOf(err) {
	case auctionerrors.ErrDependencyFailure, nil:
		s.metrics.ObserveBid(metrics.BidFailed)
	default:
		s.metrics.ObserveBid(metrics.BidRejected)
	}
}

// GetBidsForAuction returns all bids for a specific auction
func (s *BiddingService) GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	bids, err := s.repo.GetBidsByAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	return bids, nil
}

// GetWinningBid returns the highest bid for a specific auction
func (s *BiddingService) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	if auctionID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidBid)
	}

	winningBid, err := s.repo.GetWinningBid(ctx, auctionID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to get winning bid for auction %s: %w", auctionID, err)
	}

	return winningBid, nil
}

// GetAuctionsByUser returns all auctions a user has placed bids on
func (s *BiddingService) GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error) {
	if userID == "" {
		return nil, fmt.Errorf("service: %w - empty user ID", auctionerrors.ErrInvalidBid)
	}

	auctions, err := s.repo.GetAuctionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get auctions for user %s: %w", userID, err)
	}

	return auctions, nil
}

// CreateAuction opens a new active auction owned by ownerID
func (s *BiddingService) CreateAuction(ctx context.Context, ownerID string, in NewAuction) (model.Auction, error) {
	now := s.now()
	switch {
	case ownerID == "":
		return model.Auction{}, fmt.Errorf("service: %w - missing owner", auctionerrors.ErrInvalidAuction)
	case strings.TrimSpace(in.Title) == "":
		return model.Auction{}, fmt.Errorf("service: %w - title is required", auctionerrors.ErrInvalidAuction)
	case in.StartingPrice <= 0:
		return model.Auction{}, fmt.Errorf("service: %w - starting price must be positive", auctionerrors.ErrInvalidAuction)
	case in.StartingPrice > model.MaxAmount:
		return model.Auction{}, fmt.Errorf("service: %w - starting price exceeds %d", auctionerrors.ErrInvalidAuction, model.MaxAmount)
	case in.MinimumIncrement < 0:
		return model.Auction{}, fmt.Errorf("service: %w - minimum increment cannot be negative", auctionerrors.ErrInvalidAuction)
	case in.MinimumIncrement > model.MaxAmount:
		return model.Auction{}, fmt.Errorf("service: %w - minimum increment exceeds %d", auctionerrors.ErrInvalidAuction, model.MaxAmount)
	case !in.EndTime.After(now):
		return model.Auction{}, fmt.Errorf("service: %w - end time must be in the future", auctionerrors.ErrInvalidAuction)
	}

	auction := model.Auction{
		AuctionID:        utils.GenerateID(),
		Title:            strings.TrimSpace(in.Title),
		Description:      in.Description,
		OwnerID:          ownerID,
		StartingPrice:    in.StartingPrice,
		CurrentPrice:     in.StartingPrice,
		MinimumIncrement: in.MinimumIncrement,
		Status:           model.AuctionActive,
		EndTime:          in.EndTime.UTC(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to create auction: %w", err)
	}

	utils.Info("auction created", map[string]any{
		"auction_id": auction.AuctionID,
		"owner_id":   ownerID,
		"end_time":   auction.EndTime.Format(time.RFC3339),
	})
	return auction, nil
}

// GetAuction returns a single auction
func (s *BiddingService) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}
	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}
	return auction, nil
}

// ListAuctions returns auctions matching the filter
func (s *BiddingService) ListAuctions(ctx context.Context, filter repository.AuctionFilter) ([]model.Auction, error) {
	switch filter.Status {
	case "", model.AuctionActive, model.AuctionEnded, model.AuctionCancelled:
	default:
		return nil, fmt.Errorf("service: %w - unknown status %q", auctionerrors.ErrInvalidAuction, filter.Status)
	}
	auctions, err := s.repo.ListAuctions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list auctions: %w", err)
	}
	return auctions, nil
}

// CancelAuction withdraws an active auction. Cancelled auctions have no winner and no invoice.
func (s *BiddingService) CancelAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	auction, cancelled, err := s.repo.CancelAuction(ctx, auctionID, s.now())
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to cancel auction %s: %w", auctionID, err)
	}
	if !cancelled && auction.Status != model.AuctionCancelled {
		return model.Auction{}, fmt.Errorf("service: %w - auction %s is %s", auctionerrors.ErrAuctionNotActive, auctionID, auction.Status)
	}
	if cancelled {
		utils.Info("auction cancelled", map[string]any{"auction_id": auctionID})
	}
	return auction, nil
}

// ArchiveAuction hides an ended or cancelled auction from default listings
func (s *BiddingService) ArchiveAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	auction, err := s.repo.ArchiveAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to archive auction %s: %w", auctionID, err)
	}
	return auction, nil
}
