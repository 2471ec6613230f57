package auctionerrors

import "errors"

// Error kinds. Every error returned by a service unwraps to exactly one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrValidationFailed  = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrDependencyFailure = errors.New("dependency failure")
)

// Error is a specific failure tied to a kind
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Repository-level errors
var (
	ErrAuctionNotFound      = newError(ErrNotFound, "auction not found")
	ErrPaymentNotFound      = newError(ErrNotFound, "payment not found")
	ErrUserNotFound         = newError(ErrNotFound, "user not found")
	ErrNotificationNotFound = newError(ErrNotFound, "notification not found")
	ErrNoBids               = newError(ErrNotFound, "no bids found for auction")
	ErrUserNoBids           = newError(ErrNotFound, "user has not placed any bids")
	ErrInvoiceNotFound      = newError(ErrNotFound, "invoice not issued")
	ErrStore                = newError(ErrDependencyFailure, "store failure")
)

// business logic errors
var (
	ErrInvalidBid     = newError(ErrValidationFailed, "invalid bid")
	ErrBidTooLow      = newError(ErrValidationFailed, "bid amount too low")
	ErrInvalidAuction = newError(ErrValidationFailed, "invalid auction")
	ErrInvalidPayment = newError(ErrValidationFailed, "invalid payment")
	ErrReasonRequired = newError(ErrValidationFailed, "rejection reason required")
	ErrInvalidAccount = newError(ErrValidationFailed, "invalid account details")

	ErrAuctionNotActive  = newError(ErrInvalidState, "auction is not active")
	ErrAuctionExpired    = newError(ErrInvalidState, "auction has expired")
	ErrAuctionNotEnded   = newError(ErrInvalidState, "auction has not ended")
	ErrNoWinner          = newError(ErrInvalidState, "auction has no winner")
	ErrPaymentNotPending = newError(ErrInvalidState, "payment is not pending")
	ErrDuplicatePayment  = newError(ErrInvalidState, "a payment for this auction already exists")
	ErrEmailTaken        = newError(ErrInvalidState, "email already registered")

	ErrOwnBid             = newError(ErrForbidden, "owners cannot bid on their own auction")
	ErrNotWinner          = newError(ErrForbidden, "only the auction winner may do this")
	ErrNotAdmin           = newError(ErrForbidden, "admin role required")
	ErrInvalidCredentials = newError(ErrForbidden, "invalid credentials")
)

// dependency errors, logged and never propagated out of a committed transition
var (
	ErrRenderFailed = newError(ErrDependencyFailure, "invoice rendering failed")
	ErrNotifyFailed = newError(ErrDependencyFailure, "notification delivery failed")
)

var kinds = []error{ErrNotFound, ErrInvalidState, ErrValidationFailed, ErrForbidden, ErrDependencyFailure}

// KindOf returns the kind err belongs to, or nil when it is unclassified
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Classify leaves classified errors untouched and marks anything else as a store failure
func Classify(err error) error {
	if err == nil || KindOf(err) != nil {
		return err
	}
	return errors.Join(ErrStore, err)
}
