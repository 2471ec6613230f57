package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"auction-marketplace/internal/auctionerrors"
	bidding "auction-marketplace/internal/biddingService"
	model "auction-marketplace/internal/models"
	"auction-marketplace/internal/repository"
	"auction-marketplace/services/helpers"
	"auction-marketplace/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -destination=mock_bidding_service.go -package=handler auction-marketplace/services/bidding/handler BiddingServiceInterface

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, auctionID, userID string, amount int64) (model.Bid, error)
	GetBidsForAuction(ctx context.Context, auctionID string) ([]model.Bid, error)
	GetWinningBid(ctx context.Context, auctionID string) (model.Bid, error)
	GetAuctionsByUser(ctx context.Context, userID string) ([]model.Auction, error)

	CreateAuction(ctx context.Context, ownerID string, in bidding.NewAuction) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ListAuctions(ctx context.Context, filter repository.AuctionFilter) ([]model.Auction, error)
	CloseAuction(ctx context.Context, auctionID string) (model.Auction, error)
	CancelAuction(ctx context.Context, auctionID string) (model.Auction, error)
	ArchiveAuction(ctx context.Context, auctionID string) (model.Auction, error)
	SweepExpiredAuctions(ctx context.Context) (int, error)

	RegenerateInvoice(ctx context.Context, auctionID string) (model.Auction, error)
	GetInvoice(ctx context.Context, auctionID, requesterID string, isAdmin bool) (repository.Invoice, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	claims, ok := helpers.MustClaims(c)
	if !ok {
		return
	}
	auctionID, ok := helpers.PathID(c, "auction_id")
	if !ok {
		return
	}
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.service.PlaceBid(c.Request.Context(), auctionID, claims.Sub, req.Amount)
	if err != nil {
		helpers.HandleServiceError(c, "PlaceBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"user_id":    claims.Sub,
			"amount":     req.Amount,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"user_id":    bid.UserID,
		"amount":     bid.Amount,
	})
}

// GetBidsByAuctionHandler handles GET /auctions/:auction_id/bids
func (h *BiddingHandler) GetBidsByAuctionHandler(c *gin.Context) {
	auctionID, ok := helpers.PathID(c, "auction_id")
	if !ok {
		return
	}
	bids, err := h.service.GetBidsForAuction(c.Request.Context(), auctionID)
	if err != nil && !errors.Is(err, auctionerrors.ErrNoBids) {
		helpers.HandleServiceError(c, "GetBidsByAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := make([]helpers.BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, helpers.NewBidResponse(b))
	}

	utils.JSONResponse(c, http.StatusOK, resp, "bids retrieved successfully")
	helpers.LogSuccess("GetBidsByAuctionHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(resp),
	})
}

// GetWinningBidHandler handles GET /auctions/:auction_id/winning
func (h *BiddingHandler) GetWinningBidHandler(c *gin.Context) {
	auctionID, ok := helpers.PathID(c, "auction_id")
	if !ok {
		return
	}
	bid, err := h.service.GetWinningBid(c.Request.Context(), auctionID)
	if err != nil {
		// For auction, winning bid not found -> 404
		if errors.Is(err, auctionerrors.ErrNoBids) {
			utils.JSONError(c, http.StatusNotFound, err, "no winning bid found")
			utils.Info("GetWinningBidHandler: no winning bid found", map[string]any{"auction_id": auctionID})
			return
		}
		helpers.HandleServiceError(c, "GetWinningBidHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid), "winning bid retrieved successfully")
	helpers.LogSuccess("GetWinningBidHandler", "winning bid retrieved successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": bid.AuctionID,
		"user_id":    bid.UserID,
		"amount":     bid.Amount,
	})
}

// GetMyAuctionsHandler handles GET /users/me/auctions
func (h *BiddingHandler) GetMyAuctionsHandler(c *gin.Context) {
	claims, ok := helpers.MustClaims(c)
	if !ok {
		return
	}
	auctions, err := h.service.GetAuctionsByUser(c.Request.Context(), claims.Sub)
	if err != nil && !errors.Is(err, auctionerrors.ErrUserNoBids) {
		helpers.HandleServiceError(c, "GetMyAuctionsHandler", err, map[string]any{"user_id": claims.Sub})
		return
	}

	if auctions == nil {
		auctions = []model.Auction{}
	}

	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
	helpers.LogSuccess("GetMyAuctionsHandler", "auctions retrieved successfully", map[string]any{
		"user_id":        claims.Sub,
		"auctions_count": len(auctions),
	})
}

// CreateAuctionHandler handles POST /auctions
func (h *BiddingHandler) CreateAuctionHandler(c *gin.Context) {
	claims, ok := helpers.MustClaims(c)
	if !ok {
		return
	}
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	auction, err := h.service.CreateAuction(c.Request.Context(), claims.Sub, bidding.NewAuction{
		Title:            req.Title,
		Description:      req.Description,
		StartingPrice:    req.StartingPrice,
		MinimumIncrement: req.MinimumIncrement,
		EndTime:          req.EndTime,
	})
	if err != nil {
		helpers.HandleServiceError(c, "CreateAuctionHandler", err, map[string]any{"owner_id": claims.Sub})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, auction, "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id": auction.AuctionID,
		"owner_id":   auction.OwnerID,
	})
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID, ok := helpers.PathID(c, "auction_id")
	if !ok {
		return
	}
	auction, err := h.service.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}
	utils.JSONResponse(c, http.StatusOK, auction, "auction retrieved successfully")
}

// ListAuctionsHandler handles GET /auctions?status=&archived=
func (h *BiddingHandler) ListAuctionsHandler(c *gin.Context) {
	filter := repository.AuctionFilter{Status: model.AuctionStatus(c.Query("status"))}
	if raw, present := c.GetQuery("archived"); present {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, fmt.Errorf("archived: %w", err), "invalid archived filter")
			return
		}
		filter.Archived = &archived
	}

	auctions, err := h.service.ListAuctions(c.Request.Context(), filter)
	if err != nil {
		helpers.HandleServiceError(c, "ListAuctionsHandler", err, map[string]any{"status": string(filter.Status)})
		return
	}
	if auctions == nil {
		auctions = []model.Auction{}
	}
	utils.JSONResponse(c, http.StatusOK, auctions, "auctions retrieved successfully")
}

// CloseAuctionHandler handles POST /auctions/:auction_id/end
func (h *BiddingHandler) CloseAuctionHandler(c *gin.Context) {
	h.transition(c, "CloseAuctionHandler", "auction closed successfully", h.service.CloseAuction)
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *BiddingHandler) CancelAuctionHandler(c *gin.Context) {
	h.transition(c, "CancelAuctionHandler", "auction cancelled successfully", h.service.CancelAuction)
}

// ArchiveAuctionHandler handles POST /auctions/:auction_id/archive
func (h *BiddingHandler) ArchiveAuctionHandler(c *gin.Context) {
	h.transition(c, "ArchiveAuctionHandler", "auction archived successfully", h.service.ArchiveAuction)
}

func (h *BiddingHandler) transition(c *gin.Context, handlerName, message string, fn func(context.Context, string) (model.Auction, error)) {
	auctionID, ok := helpers.PathID(c, "auction_id")
	if !ok {
		return
	}
	auction, err := fn(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, handlerName, err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, auction, message)
	helpers.LogSuccess(handlerName, message, map[string]any{
		"auction_id": auction.AuctionID,
		"status":     string(auction.Status),
	})
}

// SweepHandler handles POST /admin/sweep. Partial failures still report
// the auctions that were closed.
func (h *BiddingHandler) SweepHandler(c *gin.Context) {
	closed, err := h.service.SweepExpiredAuctions(c.Request.Context())
	if err != nil && closed == 0 {
		helpers.HandleServiceError(c, "SweepHandler", err, nil)
		return
	}
	if err != nil {
		utils.Warn("SweepHandler: sweep finished with failures", map[string]any{"closed": closed, "error": err.Error()})
	}

	utils.JSONResponse(c, http.StatusOK, helpers.SweepResponse{Closed: closed}, "sweep completed")
	helpers.LogSuccess("SweepHandler", "sweep completed", map[string]any{"closed": closed})
}

// RegenerateInvoiceHandler handles POST /auctions/:auction_id/invoice/regenerate
func (h *BiddingHandler) RegenerateInvoiceHandler(c *gin.Context) {
	auctionID, ok := helpers.PathID(c, "auction_id")
	if !ok {
		return
	}
	auction, err := h.service.RegenerateInvoice(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "RegenerateInvoiceHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	resp := helpers.InvoiceResponse{AuctionID: auction.AuctionID}
	if auction.HasInvoice() {
		resp.InvoiceNumber = *auction.InvoiceNumber
	}
	utils.JSONResponse(c, http.StatusOK, resp, "invoice generated successfully")
	helpers.LogSuccess("RegenerateInvoiceHandler", "invoice generated successfully", map[string]any{
		"auction_id":     resp.AuctionID,
		"invoice_number": resp.InvoiceNumber,
	})
}

// GetInvoiceHandler handles GET /auctions/:auction_id/invoice and returns the stored document
func (h *BiddingHandler) GetInvoiceHandler(c *gin.Context) {
	claims, ok := helpers.MustClaims(c)
	if !ok {
		return
	}
	auctionID, ok := helpers.PathID(c, "auction_id")
	if !ok {
		return
	}
	inv, err := h.service.GetInvoice(c.Request.Context(), auctionID, claims.Sub, claims.IsAdmin())
	if err != nil {
		helpers.HandleServiceError(c, "GetInvoiceHandler", err, map[string]any{"auction_id": auctionID, "user_id": claims.Sub})
		return
	}

	c.Header("X-Invoice-Number", inv.Number)
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", inv.Number))
	c.Data(http.StatusOK, inv.ContentType, inv.Document)
}
