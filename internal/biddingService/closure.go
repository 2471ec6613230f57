package bidding

import (
	"context"
	"errors"
	"fmt"

	"auction-marketplace/internal/auctionerrors"
	"auction-marketplace/internal/invoice"
	model "auction-marketplace/internal/models"
	"auction-marketplace/internal/tracing"
	"auction-marketplace/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Closure triggers, used as the metrics label
const (
	TriggerAdmin = "admin"
	TriggerSweep = "sweep"
)

// CloseAuction ends an auction on admin request. Closing an ended auction
// returns it unchanged; closing a cancelled one is an invalid state.
func (s *BiddingService) CloseAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("service: %w - empty auction ID", auctionerrors.ErrInvalidAuction)
	}
	auction, closed, err := s.closeAuction(ctx, auctionID, TriggerAdmin)
	if err != nil {
		return model.Auction{}, err
	}
	if !closed && auction.Status == model.AuctionCancelled {
		return model.Auction{}, fmt.Errorf("service: %w - auction %s was cancelled", auctionerrors.ErrAuctionNotActive, auctionID)
	}
	return auction, nil
}

// SweepExpiredAuctions closes every active auction whose end time has passed
// and returns how many this call closed. A failure on one auction does not
// stop the sweep; all failures are returned joined.
func (s *BiddingService) SweepExpiredAuctions(ctx context.Context) (closed int, err error) {
	ctx, span := tracing.Start(ctx, "bidding.SweepExpiredAuctions")
	start := s.now()
	defer func() {
		s.metrics.ObserveSweep(s.now().Sub(start))
		span.SetAttributes(attribute.Int("closed", closed))
		tracing.End(span, err)
	}()

	expired, err := s.repo.ListExpiredAuctions(ctx, start)
	if err != nil {
		return 0, fmt.Errorf("service: failed to list expired auctions: %w", err)
	}

	var errs []error
	for _, a := range expired {
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = append(errs, auctionerrors.Classify(ctxErr))
			break
		}
		current, ok, err := s.closeAuction(ctx, a.AuctionID, TriggerSweep)
		if err != nil {
			utils.Error("sweep: failed to close auction", map[string]any{
				"auction_id": a.AuctionID,
				"error":      err.Error(),
			})
			errs = append(errs, err)
			continue
		}
		if ok {
			closed++
		} else if current.Status == model.AuctionCancelled {
			utils.Debug("sweep: auction cancelled before it could be closed", map[string]any{"auction_id": a.AuctionID})
		}
	}
	return closed, errors.Join(errs...)
}

// closeAuction performs the conditional transition and, only for the caller
// that performed it, the side effects: invoice and notifications. An auction
// that was not closed is returned as stored, cancelled ones included.
func (s *BiddingService) closeAuction(ctx context.Context, auctionID, trigger string) (auction model.Auction, closed bool, err error) {
	ctx, span := tracing.Start(ctx, "bidding.closeAuction",
		attribute.String("auction_id", auctionID),
		attribute.String("trigger", trigger))
	defer func() { tracing.End(span, err) }()

	auction, closed, err = s.repo.CloseAuction(ctx, auctionID, s.now())
	if err != nil {
		return model.Auction{}, false, fmt.Errorf("service: failed to close auction %s: %w", auctionID, err)
	}
	if !closed {
		return auction, false, nil
	}

	s.metrics.ObserveClosure(trigger)
	utils.Info("auction closed", map[string]any{
		"auction_id": auctionID,
		"trigger":    trigger,
		"winner_id":  winnerOf(auction),
	})

	return s.afterClose(ctx, auction), true, nil
}

// afterClose runs the post-transition side effects. Their failures are logged
// and never undo the closure; the returned auction carries the invoice if one was stored.
func (s *BiddingService) afterClose(ctx context.Context, auction model.Auction) model.Auction {
	if !auction.HasWinner() {
		utils.Info("auction closed without bids", map[string]any{"auction_id": auction.AuctionID})
		return auction
	}
	winnerID := *auction.WinnerID

	winner, err := s.repo.GetUser(ctx, winnerID)
	if err != nil && !errors.Is(err, auctionerrors.ErrUserNotFound) {
		utils.Warn("close: failed to load winner", map[string]any{
			"auction_id": auction.AuctionID,
			"user_id":    winnerID,
			"error":      err.Error(),
		})
	}
	if winner.IsAdmin() {
		utils.Info("close: auction won by an administrator, no invoice issued", map[string]any{
			"auction_id": auction.AuctionID,
			"user_id":    winnerID,
		})
		return auction
	}

	winning, err := s.repo.GetWinningBid(ctx, auction.AuctionID)
	if err != nil {
		utils.Error("close: failed to load winning bid", map[string]any{
			"auction_id": auction.AuctionID,
			"error":      err.Error(),
		})
		winning = model.Bid{UserID: winnerID, Amount: auction.CurrentPrice}
	}

	updated, issued, err := s.issueInvoice(ctx, auction, winner, winning.Amount, true)
	if err != nil {
		utils.Error("close: invoice generation failed, auction stays ended without invoice", map[string]any{
			"auction_id": auction.AuctionID,
			"user_id":    winnerID,
			"error":      err.Error(),
		})
	} else {
		auction = updated
	}

	notifications := []model.Notification{{
		UserID:  winnerID,
		Type:    model.NotifyAuctionWon,
		Title:   "You won the auction",
		Message: fmt.Sprintf("You won %q with a bid of %s.", auction.Title, invoice.FormatAmount(winning.Amount)),
		Data: map[string]any{
			"auction_id": auction.AuctionID,
			"amount":     winning.Amount,
		},
	}}
	if issued {
		notifications = append(notifications, invoiceNotification(auction, winnerID))
	}

	bidders, err := s.repo.GetBidderIDs(ctx, auction.AuctionID)
	if err != nil {
		utils.Warn("close: failed to load bidders, losers not notified", map[string]any{
			"auction_id": auction.AuctionID,
			"error":      err.Error(),
		})
	}
	for _, bidder := range bidders {
		if bidder == winnerID {
			continue
		}
		notifications = append(notifications, model.Notification{
			UserID:  bidder,
			Type:    model.NotifyAuctionLost,
			Title:   "Auction ended",
			Message: fmt.Sprintf("%q ended and another bidder won.", auction.Title),
			Data: map[string]any{
				"auction_id": auction.AuctionID,
				"amount":     winning.Amount,
			},
		})
	}

	s.notifier.Notify(ctx, notifications...)
	return auction
}

func winnerOf(a model.Auction) string {
	if a.HasWinner() {
		return *a.WinnerID
	}
	return ""
}
