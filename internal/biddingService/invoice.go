package bidding

import (
	"context"
	"errors"
	"fmt"

	"auction-marketplace/internal/auctionerrors"
	"auction-marketplace/internal/invoice"
	model "auction-marketplace/internal/models"
	"auction-marketplace/internal/repository"
	"auction-marketplace/utils"
)

// RegenerateInvoice recovers an invoice that failed at closure, or re-renders
// an existing one. An existing invoice number never changes. The winner is
// notified only when this call issued the invoice. Auctions won by an
// administrator are never invoiced.
func (s *BiddingService) RegenerateInvoice(ctx context.Context, auctionID string) (model.Auction, error) {
	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	switch {
	case auction.Status == model.AuctionActive:
		return model.Auction{}, fmt.Errorf("service: %w", auctionerrors.ErrAuctionNotEnded)
	case !auction.HasWinner():
		return model.Auction{}, fmt.Errorf("service: %w", auctionerrors.ErrNoWinner)
	}

	winner, err := s.repo.GetUser(ctx, *auction.WinnerID)
	if err != nil && !errors.Is(err, auctionerrors.ErrUserNotFound) {
		return model.Auction{}, fmt.Errorf("service: failed to load winner: %w", err)
	}
	if winner.IsAdmin() {
		return model.Auction{}, fmt.Errorf("service: %w - auction %s was won by an administrator", auctionerrors.ErrNoWinner, auctionID)
	}
	winning, err := s.repo.GetWinningBid(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to load winning bid: %w", err)
	}

	updated, issued, err := s.issueInvoice(ctx, auction, winner, winning.Amount, !auction.HasInvoice())
	if err != nil {
		return model.Auction{}, fmt.Errorf("service: failed to regenerate invoice for auction %s: %w", auctionID, err)
	}
	if issued {
		s.notifier.Notify(ctx, invoiceNotification(updated, *updated.WinnerID))
	}
	return updated, nil
}

// GetInvoice returns the stored invoice document to the winner or an admin
func (s *BiddingService) GetInvoice(ctx context.Context, auctionID, requesterID string, isAdmin bool) (repository.Invoice, error) {
	auction, err := s.repo.GetAuction(ctx, auctionID)
	if err != nil {
		return repository.Invoice{}, fmt.Errorf("service: failed to load auction %s: %w", auctionID, err)
	}
	if !isAdmin && (!auction.HasWinner() || *auction.WinnerID != requesterID) {
		return repository.Invoice{}, fmt.Errorf("service: %w", auctionerrors.ErrNotWinner)
	}
	if !auction.HasInvoice() {
		return repository.Invoice{}, fmt.Errorf("service: %w - auction %s", auctionerrors.ErrInvoiceNotFound, auctionID)
	}
	return repository.Invoice{
		Number:      *auction.InvoiceNumber,
		Document:    auction.InvoiceDocument,
		ContentType: auction.InvoiceContentType,
	}, nil
}

// issueInvoice renders and stores the invoice. With onlyIfMissing the write
// is guarded so that concurrent callers issue at most one number; issued
// reports whether this call stored a new number.
func (s *BiddingService) issueInvoice(ctx context.Context, auction model.Auction, winner model.User, amount int64, onlyIfMissing bool) (model.Auction, bool, error) {
	now := s.now()
	number := invoice.Number(auction.AuctionID, *auction.WinnerID, now)
	if auction.HasInvoice() {
		number = *auction.InvoiceNumber
	}

	doc, contentType, err := s.renderer.Render(invoice.Data{
		Number:       number,
		AuctionID:    auction.AuctionID,
		AuctionTitle: auction.Title,
		WinnerID:     *auction.WinnerID,
		WinnerName:   winner.Username,
		Amount:       amount,
		IssuedAt:     now,
	})
	if err != nil {
		s.metrics.ObserveInvoice("render_failed")
		return auction, false, fmt.Errorf("%w: %w", auctionerrors.ErrRenderFailed, err)
	}

	stored, err := s.repo.SetInvoice(ctx, auction.AuctionID, repository.Invoice{
		Number:      number,
		Document:    doc,
		ContentType: contentType,
	}, onlyIfMissing)
	if err != nil {
		s.metrics.ObserveInvoice("store_failed")
		return auction, false, err
	}
	if !stored {
		// someone else issued it first; report what is stored
		current, err := s.repo.GetAuction(ctx, auction.AuctionID)
		if err != nil {
			return auction, false, err
		}
		return current, false, nil
	}

	wasMissing := !auction.HasInvoice()
	auction.InvoiceNumber = &number
	auction.InvoiceDocument = doc
	auction.InvoiceContentType = contentType

	if wasMissing {
		s.metrics.ObserveInvoice("issued")
		utils.Info("invoice issued", map[string]any{
			"auction_id":     auction.AuctionID,
			"user_id":        *auction.WinnerID,
			"invoice_number": number,
		})
	} else {
		s.metrics.ObserveInvoice("rerendered")
	}
	return auction, wasMissing, nil
}

func invoiceNotification(auction model.Auction, winnerID string) model.Notification {
	number := ""
	if auction.HasInvoice() {
		number = *auction.InvoiceNumber
	}
	return model.Notification{
		UserID:  winnerID,
		Type:    model.NotifyInvoiceIssued,
		Title:   "Invoice issued",
		Message: fmt.Sprintf("Invoice %s for %q is ready. Please submit your payment.", number, auction.Title),
		Data: map[string]any{
			"auction_id":     auction.AuctionID,
			"invoice_number": number,
		},
	}
}
