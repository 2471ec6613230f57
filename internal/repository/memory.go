package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-marketplace/internal/auctionerrors"
	model "auction-marketplace/internal/models"
)

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB.
// A single mutex makes every conditional transition atomic.
type MemoryRepo struct {
	mu            sync.RWMutex
	users         map[string]model.User
	auctions      map[string]model.Auction
	bids          map[string][]model.Bid // key: auctionID -> value: list of bids
	userAuctions  map[string][]string    // key: userID -> value: list of auctionIDs user has bid on
	payments      map[string]model.Payment
	notifications []model.Notification
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:        make(map[string]model.User),
		auctions:     make(map[string]model.Auction),
		bids:         make(map[string][]model.Bid),
		userAuctions: make(map[string][]string),
		payments:     make(map[string]model.Payment),
	}
}

// CreateUser stores a user; emails are unique
func (r *MemoryRepo) CreateUser(_ context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("create user %s: %w", user.Email, auctionerrors.ErrEmailTaken)
		}
	}
	r.users[user.UserID] = user
	return nil
}

// GetUser returns a user by id
func (r *MemoryRepo) GetUser(_ context.Context, userID string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[userID]
	if !ok {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return u, nil
}

// GetUserByEmail returns a user by email
func (r *MemoryRepo) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, fmt.Errorf("get user by email %s: %w", email, auctionerrors.ErrUserNotFound)
}

// ListAdmins returns every admin user
func (r *MemoryRepo) ListAdmins(_ context.Context) ([]model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var admins []model.User
	for _, u := range r.users {
		if u.IsAdmin() {
			admins = append(admins, u)
		}
	}
	sort.Slice(admins, func(i, j int) bool { return admins[i].UserID < admins[j].UserID })
	return admins, nil
}

// CreateAuction stores a new auction
func (r *MemoryRepo) CreateAuction(_ context.Context, auction model.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.AuctionID] = auction
	return nil
}

// GetAuction returns an auction by id
func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// ListAuctions returns auctions matching filter ordered by end time
func (r *MemoryRepo) ListAuctions(_ context.Context, filter AuctionFilter) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Auction, 0, len(r.auctions))
	for _, a := range r.auctions {
		if filter.matches(a) {
			out = append(out, a)
		}
	}
	sortByEndTime(out)
	return out, nil
}

// ListExpiredAuctions returns active auctions whose end time is at or before now
func (r *MemoryRepo) ListExpiredAuctions(_ context.Context, now time.Time) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.Auction
	for _, a := range r.auctions {
		if a.Status == model.AuctionActive && !a.EndTime.After(now) {
			out = append(out, a)
		}
	}
	sortByEndTime(out)
	return out, nil
}

// CloseAuction ends an active auction and assigns the highest bidder as winner
func (r *MemoryRepo) CloseAuction(_ context.Context, auctionID string, now time.Time) (model.Auction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, false, fmt.Errorf("close auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Status != model.AuctionActive {
		return a, false, nil
	}

	a.Status = model.AuctionEnded
	a.ClosedAt = &now
	a.UpdatedAt = now
	if winning, ok := winningBid(r.bids[auctionID]); ok {
		winner := winning.UserID
		a.WinnerID = &winner
	} else {
		a.Archived = true
	}
	r.auctions[auctionID] = a
	return a, true, nil
}

// CancelAuction moves an active auction to cancelled
func (r *MemoryRepo) CancelAuction(_ context.Context, auctionID string, now time.Time) (model.Auction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, false, fmt.Errorf("cancel auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Status != model.AuctionActive {
		return a, false, nil
	}
	a.Status = model.AuctionCancelled
	a.ClosedAt = &now
	a.UpdatedAt = now
	r.auctions[auctionID] = a
	return a, true, nil
}

// ArchiveAuction hides a finished auction from default listings
func (r *MemoryRepo) ArchiveAuction(_ context.Context, auctionID string) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("archive auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Status == model.AuctionActive {
		return model.Auction{}, fmt.Errorf("archive auction %s: %w", auctionID, auctionerrors.ErrAuctionNotEnded)
	}
	a.Archived = true
	r.auctions[auctionID] = a
	return a, nil
}

// SetInvoice stores the invoice on an ended auction
func (r *MemoryRepo) SetInvoice(_ context.Context, auctionID string, invoice Invoice, onlyIfMissing bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return false, fmt.Errorf("set invoice for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Status != model.AuctionEnded || (onlyIfMissing && a.HasInvoice()) {
		return false, nil
	}
	number := invoice.Number
	a.InvoiceNumber = &number
	a.InvoiceDocument = invoice.Document
	a.InvoiceContentType = invoice.ContentType
	r.auctions[auctionID] = a
	return true, nil
}

// RecordBidForAuction records a user's bid and raises the auction's current price
func (r *MemoryRepo) RecordBidForAuction(_ context.Context, bid model.Bid) (*model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[bid.AuctionID]
	if !ok {
		return nil, fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, auctionerrors.ErrAuctionNotFound)
	}
	if a.Status != model.AuctionActive || !bid.CreatedAt.Before(a.EndTime) || !a.AcceptsBid(bid.Amount) {
		return nil, bidRejection(a, bid)
	}

	var previous *model.Bid
	if top, ok := winningBid(r.bids[bid.AuctionID]); ok {
		previous = &top
	}

	a.CurrentPrice = bid.Amount
	a.UpdatedAt = bid.CreatedAt
	r.auctions[bid.AuctionID] = a
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)

	for _, id := range r.userAuctions[bid.UserID] {
		if id == bid.AuctionID {
			return previous, nil
		}
	}
	r.userAuctions[bid.UserID] = append(r.userAuctions[bid.UserID], bid.AuctionID)

	return previous, nil
}

// GetBidsByAuction returns all bids for an auction in placement order
func (r *MemoryRepo) GetBidsByAuction(_ context.Context, auctionID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	bids := r.bids[auctionID]
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return append([]model.Bid(nil), bids...), nil
}

// GetWinningBid returns the highest bid for an auction, earliest first on ties
func (r *MemoryRepo) GetWinningBid(_ context.Context, auctionID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.auctions[auctionID]; !ok {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	winning, ok := winningBid(r.bids[auctionID])
	if !ok {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return winning, nil
}

// GetBidderIDs returns the distinct users who bid on an auction
func (r *MemoryRepo) GetBidderIDs(_ context.Context, auctionID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, b := range r.bids[auctionID] {
		if _, ok := seen[b.UserID]; ok {
			continue
		}
		seen[b.UserID] = struct{}{}
		ids = append(ids, b.UserID)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetAuctionsByUser returns all auctions a user has bid on
func (r *MemoryRepo) GetAuctionsByUser(_ context.Context, userID string) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	auctionIDs, ok := r.userAuctions[userID]
	if !ok || len(auctionIDs) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, auctionerrors.ErrUserNoBids)
	}

	auctions := make([]model.Auction, 0, len(auctionIDs))
	for _, id := range auctionIDs {
		if a, exists := r.auctions[id]; exists {
			auctions = append(auctions, a)
		}
	}
	sortByEndTime(auctions)
	return auctions, nil
}

// SubmitPayment creates the auction's payment or resubmits a rejected one
func (r *MemoryRepo) SubmitPayment(_ context.Context, payment model.Payment) (model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, existing := range r.payments {
		if existing.AuctionID != payment.AuctionID {
			continue
		}
		if existing.Status != model.PaymentRejected {
			return model.Payment{}, fmt.Errorf("submit payment for auction %s: %w", payment.AuctionID, auctionerrors.ErrDuplicatePayment)
		}
		existing.UserID = payment.UserID
		existing.Amount = payment.Amount
		existing.Method = payment.Method
		existing.ProofURL = payment.ProofURL
		existing.Status = model.PaymentPending
		existing.Notes = ""
		existing.Documents = nil
		existing.VerifiedAt = nil
		existing.VerifiedBy = nil
		existing.UpdatedAt = payment.UpdatedAt
		r.payments[id] = existing
		return existing, nil
	}

	payment.Status = model.PaymentPending
	r.payments[payment.PaymentID] = payment
	return payment, nil
}

// GetPayment returns a payment by id
func (r *MemoryRepo) GetPayment(_ context.Context, paymentID string) (model.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[paymentID]
	if !ok {
		return model.Payment{}, fmt.Errorf("get payment %s: %w", paymentID, auctionerrors.ErrPaymentNotFound)
	}
	return p, nil
}

// GetPaymentByAuction returns the payment attached to an auction
func (r *MemoryRepo) GetPaymentByAuction(_ context.Context, auctionID string) (model.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.payments {
		if p.AuctionID == auctionID {
			return p, nil
		}
	}
	return model.Payment{}, fmt.Errorf("get payment for auction %s: %w", auctionID, auctionerrors.ErrPaymentNotFound)
}

// ListPayments returns payments in the given status, or all when status is empty
func (r *MemoryRepo) ListPayments(_ context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Payment, 0)
	for _, p := range r.payments {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

// VerifyPayment applies an admin decision to a pending payment
func (r *MemoryRepo) VerifyPayment(_ context.Context, v PaymentVerification) (model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[v.PaymentID]
	if !ok {
		return model.Payment{}, fmt.Errorf("verify payment %s: %w", v.PaymentID, auctionerrors.ErrPaymentNotFound)
	}
	if p.Status != model.PaymentPending {
		return model.Payment{}, fmt.Errorf("verify payment %s: %w", v.PaymentID, auctionerrors.ErrPaymentNotPending)
	}
	at, admin := v.At, v.AdminID
	p.Status = v.Status
	p.Notes = v.Notes
	p.Documents = append([]model.PaymentDocument(nil), v.Documents...)
	p.VerifiedAt = &at
	p.VerifiedBy = &admin
	p.UpdatedAt = at
	r.payments[v.PaymentID] = p
	return p, nil
}

// CreateNotifications stores notification records
func (r *MemoryRepo) CreateNotifications(_ context.Context, notifications ...model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, notifications...)
	return nil
}

// ListNotifications returns a user's notifications, newest first
func (r *MemoryRepo) ListNotifications(_ context.Context, userID string) ([]model.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Notification, 0)
	for _, n := range r.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MarkNotificationRead flags one of the user's notifications as read
func (r *MemoryRepo) MarkNotificationRead(_ context.Context, userID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, n := range r.notifications {
		if n.NotificationID == notificationID && n.UserID == userID {
			r.notifications[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("mark notification %s read: %w", notificationID, auctionerrors.ErrNotificationNotFound)
}

// AddAuction adds an auction to the repository. This method is intended for tests and seeding.
func (r *MemoryRepo) AddAuction(auction model.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auction.AuctionID] = auction
}

// winningBid picks the highest amount, earliest CreatedAt on ties
func winningBid(bids []model.Bid) (model.Bid, bool) {
	if len(bids) == 0 {
		return model.Bid{}, false
	}
	winning := bids[0]
	for _, b := range bids[1:] {
		if b.Amount > winning.Amount || (b.Amount == winning.Amount && b.CreatedAt.Before(winning.CreatedAt)) {
			winning = b
		}
	}
	return winning, true
}

func sortByEndTime(auctions []model.Auction) {
	sort.Slice(auctions, func(i, j int) bool {
		if auctions[i].EndTime.Equal(auctions[j].EndTime) {
			return auctions[i].AuctionID < auctions[j].AuctionID
		}
		return auctions[i].EndTime.Before(auctions[j].EndTime)
	})
}
