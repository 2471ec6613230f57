package models

import (
	"math"
	"time"

	"gorm.io/datatypes"
)

// Role is the authorization role of a user
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleBidder Role = "bidder"
)

// User represents a participant in the marketplace
type User struct {
	UserID       string    `json:"user_id" gorm:"primaryKey;type:varchar(36)"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Username     string    `json:"username" gorm:"type:varchar(255)"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         Role      `json:"role" gorm:"type:varchar(16);index;not null"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	AuctionActive    AuctionStatus = "active"
	AuctionEnded     AuctionStatus = "ended"
	AuctionCancelled AuctionStatus = "cancelled"
)

// MaxAmount caps prices, increments and bids so that price arithmetic stays
// far from int64 overflow (10^15 minor units).
const MaxAmount int64 = 1_000_000_000_000_000

// Auction represents a time-bounded sale. Amounts are in minor currency units.
type Auction struct {
	AuctionID        string        `json:"auction_id" gorm:"primaryKey;type:varchar(36)"`
	Title            string        `json:"title" gorm:"not null"`
	Description      string        `json:"description"`
	OwnerID          string        `json:"owner_id" gorm:"type:varchar(36);index"`
	StartingPrice    int64         `json:"starting_price" gorm:"not null"`
	CurrentPrice     int64         `json:"current_price" gorm:"not null"`
	MinimumIncrement int64         `json:"minimum_increment" gorm:"not null"`
	Status           AuctionStatus `json:"status" gorm:"type:varchar(16);index;not null"`
	EndTime          time.Time     `json:"end_time" gorm:"index;not null"`
	WinnerID         *string       `json:"winner_id,omitempty" gorm:"type:varchar(36)"`
	Archived         bool          `json:"archived" gorm:"not null;default:false"`
	ClosedAt         *time.Time    `json:"closed_at,omitempty"`

	InvoiceNumber      *string `json:"invoice_number,omitempty" gorm:"type:varchar(160)"`
	InvoiceDocument    []byte  `json:"-"`
	InvoiceContentType string  `json:"-" gorm:"type:varchar(64)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasWinner reports whether closure assigned a winner
func (a Auction) HasWinner() bool {
	return a.WinnerID != nil && *a.WinnerID != ""
}

// AcceptsBid reports whether amount meets currentPrice + minimumIncrement.
// The comparison subtracts so it cannot overflow for a positive amount.
func (a Auction) AcceptsBid(amount int64) bool {
	return amount > 0 && amount-a.MinimumIncrement >= a.CurrentPrice
}

// MinimumBid is currentPrice + minimumIncrement, saturating at MaxInt64
func (a Auction) MinimumBid() int64 {
	if a.MinimumIncrement > math.MaxInt64-a.CurrentPrice {
		return math.MaxInt64
	}
	return a.CurrentPrice + a.MinimumIncrement
}

// HasInvoice reports whether an invoice number has been issued
func (a Auction) HasInvoice() bool {
	return a.InvoiceNumber != nil && *a.InvoiceNumber != ""
}

// Bid represents a user's bid on an auction
type Bid struct {
	BidID     string    `json:"bid_id" gorm:"primaryKey;type:varchar(36)"`
	AuctionID string    `json:"auction_id" gorm:"type:varchar(36);index:idx_bids_auction_amount,priority:1;not null"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Amount    int64     `json:"amount" gorm:"index:idx_bids_auction_amount,priority:2;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

// PaymentStatus is the verification state of a payment
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPending  PaymentStatus = "pending"
	PaymentVerified PaymentStatus = "verified"
	PaymentRejected PaymentStatus = "rejected"
)

// PaymentDocument is a supplemental letter attached on verification
type PaymentDocument struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Payment is the winner's manually verified settlement of an auction.
// There is at most one row per auction; resubmission mutates it.
type Payment struct {
	PaymentID  string                               `json:"payment_id" gorm:"primaryKey;type:varchar(36)"`
	AuctionID  string                               `json:"auction_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	UserID     string                               `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Amount     int64                                `json:"amount" gorm:"not null"`
	Method     string                               `json:"method" gorm:"type:varchar(64)"`
	ProofURL   string                               `json:"proof_url"`
	Status     PaymentStatus                        `json:"status" gorm:"type:varchar(16);index;not null"`
	Notes      string                               `json:"notes,omitempty"`
	Documents  datatypes.JSONSlice[PaymentDocument] `json:"documents,omitempty"`
	VerifiedAt *time.Time                           `json:"verified_at,omitempty"`
	VerifiedBy *string                              `json:"verified_by,omitempty" gorm:"type:varchar(36)"`
	CreatedAt  time.Time                            `json:"created_at"`
	UpdatedAt  time.Time                            `json:"updated_at"`
}

// NotificationType identifies the lifecycle transition a notification reports
type NotificationType string

const (
	NotifyOutbid           NotificationType = "outbid"
	NotifyAuctionWon       NotificationType = "auction_won"
	NotifyAuctionLost      NotificationType = "auction_lost"
	NotifyInvoiceIssued    NotificationType = "invoice_issued"
	NotifyPaymentSubmitted NotificationType = "payment_submitted"
	NotifyPaymentVerified  NotificationType = "payment_verified"
	NotifyPaymentRejected  NotificationType = "payment_rejected"
)

// Notification is a message for one user, or for every admin when Broadcast is set
type Notification struct {
	NotificationID string            `json:"notification_id" gorm:"primaryKey;type:varchar(36)"`
	UserID         string            `json:"user_id" gorm:"type:varchar(36);index"`
	Broadcast      bool              `json:"-" gorm:"-"`
	Type           NotificationType  `json:"type" gorm:"type:varchar(32);not null"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	Data           datatypes.JSONMap `json:"data,omitempty"`
	Read           bool              `json:"read" gorm:"not null;default:false"`
	CreatedAt      time.Time         `json:"created_at"`
}
