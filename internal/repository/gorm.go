package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-marketplace/internal/auctionerrors"
	model "auction-marketplace/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepo is the relational implementation of AuctionDB.
// The database must be opened with gorm.Config{TranslateError: true}.
type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo creates a repository over an open gorm connection
func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

// Migrate creates or updates the schema
func (r *GormRepo) Migrate() error {
	return r.db.AutoMigrate(&model.User{}, &model.Auction{}, &model.Bid{}, &model.Payment{}, &model.Notification{})
}

func (r *GormRepo) CreateUser(ctx context.Context, user model.User) error {
	err := r.db.WithContext(ctx).Create(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("create user %s: %w", user.Email, auctionerrors.ErrEmailTaken)
	}
	if err != nil {
		return storeErr("create user", err)
	}
	return nil
}

func (r *GormRepo) GetUser(ctx context.Context, userID string) (model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, fmt.Errorf("get user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, storeErr("get user", err)
	}
	return u, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, fmt.Errorf("get user by email %s: %w", email, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, storeErr("get user by email", err)
	}
	return u, nil
}

func (r *GormRepo) ListAdmins(ctx context.Context) ([]model.User, error) {
	var admins []model.User
	if err := r.db.WithContext(ctx).Where("role = ?", model.RoleAdmin).Order("user_id").Find(&admins).Error; err != nil {
		return nil, storeErr("list admins", err)
	}
	return admins, nil
}

func (r *GormRepo) CreateAuction(ctx context.Context, auction model.Auction) error {
	if err := r.db.WithContext(ctx).Create(&auction).Error; err != nil {
		return storeErr("create auction", err)
	}
	return nil
}

func (r *GormRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	return r.getAuction(r.db.WithContext(ctx), auctionID)
}

func (r *GormRepo) getAuction(tx *gorm.DB, auctionID string) (model.Auction, error) {
	var a model.Auction
	err := tx.Where("auction_id = ?", auctionID).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	if err != nil {
		return model.Auction{}, storeErr("get auction", err)
	}
	return a, nil
}

func (r *GormRepo) ListAuctions(ctx context.Context, filter AuctionFilter) ([]model.Auction, error) {
	q := r.db.WithContext(ctx).Model(&model.Auction{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Archived != nil {
		q = q.Where("archived = ?", *filter.Archived)
	}
	out := make([]model.Auction, 0)
	if err := q.Order("end_time ASC, auction_id ASC").Find(&out).Error; err != nil {
		return nil, storeErr("list auctions", err)
	}
	return out, nil
}

func (r *GormRepo) ListExpiredAuctions(ctx context.Context, now time.Time) ([]model.Auction, error) {
	var out []model.Auction
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_time <= ?", model.AuctionActive, now).
		Order("end_time ASC, auction_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, storeErr("list expired auctions", err)
	}
	return out, nil
}

// CloseAuction uses the status guard in the UPDATE itself as the exclusivity check
func (r *GormRepo) CloseAuction(ctx context.Context, auctionID string, now time.Time) (model.Auction, bool, error) {
	var (
		auction model.Auction
		closed  bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Auction{}).
			Where("auction_id = ? AND status = ?", auctionID, model.AuctionActive).
			Updates(map[string]any{"status": model.AuctionEnded, "closed_at": now, "updated_at": now})
		if res.Error != nil {
			return storeErr("close auction", res.Error)
		}

		if res.RowsAffected == 1 {
			closed = true
			updates := map[string]any{}
			top, err := topBid(tx, auctionID)
			switch {
			case err == nil:
				updates["winner_id"] = top.UserID
			case errors.Is(err, gorm.ErrRecordNotFound):
				updates["archived"] = true
			default:
				return storeErr("close auction: winning bid", err)
			}
			if err := tx.Model(&model.Auction{}).Where("auction_id = ?", auctionID).Updates(updates).Error; err != nil {
				return storeErr("close auction: assign winner", err)
			}
		}

		var err error
		auction, err = r.getAuction(tx, auctionID)
		return err
	})
	if err != nil {
		return model.Auction{}, false, err
	}
	return auction, closed, nil
}

func (r *GormRepo) CancelAuction(ctx context.Context, auctionID string, now time.Time) (model.Auction, bool, error) {
	var (
		auction   model.Auction
		cancelled bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Auction{}).
			Where("auction_id = ? AND status = ?", auctionID, model.AuctionActive).
			Updates(map[string]any{"status": model.AuctionCancelled, "closed_at": now, "updated_at": now})
		if res.Error != nil {
			return storeErr("cancel auction", res.Error)
		}
		cancelled = res.RowsAffected == 1

		var err error
		auction, err = r.getAuction(tx, auctionID)
		return err
	})
	if err != nil {
		return model.Auction{}, false, err
	}
	return auction, cancelled, nil
}

func (r *GormRepo) ArchiveAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	var auction model.Auction
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Auction{}).
			Where("auction_id = ? AND status <> ?", auctionID, model.AuctionActive).
			Update("archived", true)
		if res.Error != nil {
			return storeErr("archive auction", res.Error)
		}

		var err error
		auction, err = r.getAuction(tx, auctionID)
		if err != nil {
			return err
		}
		if auction.Status == model.AuctionActive {
			return fmt.Errorf("archive auction %s: %w", auctionID, auctionerrors.ErrAuctionNotEnded)
		}
		return nil
	})
	if err != nil {
		return model.Auction{}, err
	}
	return auction, nil
}

func (r *GormRepo) SetInvoice(ctx context.Context, auctionID string, invoice Invoice, onlyIfMissing bool) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.Auction{}).
		Where("auction_id = ? AND status = ?", auctionID, model.AuctionEnded)
	if onlyIfMissing {
		q = q.Where("invoice_number IS NULL")
	}
	res := q.Updates(map[string]any{
		"invoice_number":       invoice.Number,
		"invoice_document":     invoice.Document,
		"invoice_content_type": invoice.ContentType,
	})
	if res.Error != nil {
		return false, storeErr("set invoice", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetAuction(ctx, auctionID); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// RecordBidForAuction raises current_price with a conditional UPDATE and inserts
// the bid in the same transaction; zero affected rows means the bid lost.
func (r *GormRepo) RecordBidForAuction(ctx context.Context, bid model.Bid) (*model.Bid, error) {
	var previous *model.Bid
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Auction{}).
			Where("auction_id = ? AND status = ? AND end_time > ? AND ? - minimum_increment >= current_price",
				bid.AuctionID, model.AuctionActive, bid.CreatedAt, bid.Amount).
			Updates(map[string]any{"current_price": bid.Amount, "updated_at": bid.CreatedAt})
		if res.Error != nil {
			return storeErr("record bid", res.Error)
		}
		if res.RowsAffected == 0 {
			auction, err := r.getAuction(tx, bid.AuctionID)
			if err != nil {
				return fmt.Errorf("record bid for auction %s: %w", bid.AuctionID, err)
			}
			return bidRejection(auction, bid)
		}

		top, err := topBid(tx, bid.AuctionID)
		switch {
		case err == nil:
			previous = &top
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return storeErr("record bid: previous bid", err)
		}

		if err := tx.Create(&bid).Error; err != nil {
			return storeErr("record bid: insert", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

func (r *GormRepo) GetBidsByAuction(ctx context.Context, auctionID string) ([]model.Bid, error) {
	db := r.db.WithContext(ctx)
	if _, err := r.getAuction(db, auctionID); err != nil {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, err)
	}
	var bids []model.Bid
	if err := db.Where("auction_id = ?", auctionID).Order("created_at ASC").Find(&bids).Error; err != nil {
		return nil, storeErr("get bids", err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	return bids, nil
}

func (r *GormRepo) GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error) {
	db := r.db.WithContext(ctx)
	if _, err := r.getAuction(db, auctionID); err != nil {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, err)
	}
	top, err := topBid(db, auctionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Bid{}, fmt.Errorf("get winning bid for auction %s: %w", auctionID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, storeErr("get winning bid", err)
	}
	return top, nil
}

func (r *GormRepo) GetBidderIDs(ctx context.Context, auctionID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Bid{}).
		Where("auction_id = ?", auctionID).
		Distinct().
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, storeErr("get bidder ids", err)
	}
	return ids, nil
}

func (r *GormRepo) GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error) {
	db := r.db.WithContext(ctx)
	var auctions []model.Auction
	err := db.Where("auction_id IN (?)", db.Model(&model.Bid{}).Select("auction_id").Where("user_id = ?", userID)).
		Order("end_time ASC, auction_id ASC").
		Find(&auctions).Error
	if err != nil {
		return nil, storeErr("get auctions by user", err)
	}
	if len(auctions) == 0 {
		return nil, fmt.Errorf("get auctions for user %s: %w", userID, auctionerrors.ErrUserNoBids)
	}
	return auctions, nil
}

// SubmitPayment locks the auction's payment row (if any) before deciding
// between create and resubmit. The unique auction_id index backs the create path.
func (r *GormRepo) SubmitPayment(ctx context.Context, payment model.Payment) (model.Payment, error) {
	var stored model.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("auction_id = ?", payment.AuctionID).
			Take(&existing).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			payment.Status = model.PaymentPending
			if err := tx.Create(&payment).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("submit payment for auction %s: %w", payment.AuctionID, auctionerrors.ErrDuplicatePayment)
				}
				return storeErr("submit payment", err)
			}
			stored = payment
			return nil
		case err != nil:
			return storeErr("submit payment", err)
		case existing.Status != model.PaymentRejected:
			return fmt.Errorf("submit payment for auction %s: %w", payment.AuctionID, auctionerrors.ErrDuplicatePayment)
		}

		res := tx.Model(&model.Payment{}).
			Where("payment_id = ? AND status = ?", existing.PaymentID, model.PaymentRejected).
			Updates(map[string]any{
				"user_id":     payment.UserID,
				"amount":      payment.Amount,
				"method":      payment.Method,
				"proof_url":   payment.ProofURL,
				"status":      model.PaymentPending,
				"notes":       "",
				"documents":   datatypes.JSONSlice[model.PaymentDocument](nil),
				"verified_at": nil,
				"verified_by": nil,
				"updated_at":  payment.UpdatedAt,
			})
		if res.Error != nil {
			return storeErr("resubmit payment", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("submit payment for auction %s: %w", payment.AuctionID, auctionerrors.ErrDuplicatePayment)
		}
		if err := tx.Where("payment_id = ?", existing.PaymentID).Take(&stored).Error; err != nil {
			return storeErr("resubmit payment", err)
		}
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	return stored, nil
}

func (r *GormRepo) GetPayment(ctx context.Context, paymentID string) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, fmt.Errorf("get payment %s: %w", paymentID, auctionerrors.ErrPaymentNotFound)
	}
	if err != nil {
		return model.Payment{}, storeErr("get payment", err)
	}
	return p, nil
}

func (r *GormRepo) GetPaymentByAuction(ctx context.Context, auctionID string) (model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Where("auction_id = ?", auctionID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Payment{}, fmt.Errorf("get payment for auction %s: %w", auctionID, auctionerrors.ErrPaymentNotFound)
	}
	if err != nil {
		return model.Payment{}, storeErr("get payment by auction", err)
	}
	return p, nil
}

func (r *GormRepo) ListPayments(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	q := r.db.WithContext(ctx).Model(&model.Payment{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	out := make([]model.Payment, 0)
	if err := q.Order("updated_at ASC").Find(&out).Error; err != nil {
		return nil, storeErr("list payments", err)
	}
	return out, nil
}

func (r *GormRepo) VerifyPayment(ctx context.Context, v PaymentVerification) (model.Payment, error) {
	var stored model.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":      v.Status,
			"notes":       v.Notes,
			"documents":   datatypes.JSONSlice[model.PaymentDocument](nil),
			"verified_at": v.At,
			"verified_by": v.AdminID,
			"updated_at":  v.At,
		}
		if len(v.Documents) > 0 {
			updates["documents"] = datatypes.JSONSlice[model.PaymentDocument](v.Documents)
		}
		res := tx.Model(&model.Payment{}).
			Where("payment_id = ? AND status = ?", v.PaymentID, model.PaymentPending).
			Updates(updates)
		if res.Error != nil {
			return storeErr("verify payment", res.Error)
		}

		err := tx.Where("payment_id = ?", v.PaymentID).Take(&stored).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("verify payment %s: %w", v.PaymentID, auctionerrors.ErrPaymentNotFound)
		}
		if err != nil {
			return storeErr("verify payment", err)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("verify payment %s: %w", v.PaymentID, auctionerrors.ErrPaymentNotPending)
		}
		return nil
	})
	if err != nil {
		return model.Payment{}, err
	}
	return stored, nil
}

func (r *GormRepo) CreateNotifications(ctx context.Context, notifications ...model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&notifications).Error; err != nil {
		return storeErr("create notifications", err)
	}
	return nil
}

func (r *GormRepo) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	out := make([]model.Notification, 0)
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, storeErr("list notifications", err)
	}
	return out, nil
}

func (r *GormRepo) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&model.Notification{}).
		Where("notification_id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if res.Error != nil {
		return storeErr("mark notification read", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := db.Model(&model.Notification{}).Where("notification_id = ? AND user_id = ?", notificationID, userID).Count(&count).Error; err != nil {
		return storeErr("mark notification read", err)
	}
	if count == 0 {
		return fmt.Errorf("mark notification %s read: %w", notificationID, auctionerrors.ErrNotificationNotFound)
	}
	return nil
}

// topBid is the winner query: highest amount, then earliest bid
func topBid(tx *gorm.DB, auctionID string) (model.Bid, error) {
	var top model.Bid
	err := tx.Where("auction_id = ?", auctionID).
		Order("amount DESC, created_at ASC").
		Limit(1).
		Take(&top).Error
	return top, err
}
