package handler

import (
	"context"
	"net/http"

	model "auction-marketplace/internal/models"
	"auction-marketplace/services/helpers"
	"auction-marketplace/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -destination=mock_account_service.go -package=handler auction-marketplace/services/account/handler AccountServiceInterface
//go:generate mockgen -destination=mock_inbox.go -package=handler auction-marketplace/services/account/handler InboxInterface

type AccountServiceInterface interface {
	Register(ctx context.Context, email, username, password string) (model.User, error)
	Login(ctx context.Context, email, password string) (string, model.User, error)
	GetUser(ctx context.Context, userID string) (model.User, error)
}

type InboxInterface interface {
	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
}

type AccountHandler struct {
	accounts AccountServiceInterface
	inbox    InboxInterface
}

func NewAccountHandler(accounts AccountServiceInterface, inbox InboxInterface) *AccountHandler {
	return &AccountHandler{accounts: accounts, inbox: inbox}
}

// RegisterHandler handles POST /auth/register
func (h *AccountHandler) RegisterHandler(c *gin.Context) {
	var req helpers.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "RegisterHandler", err)
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		helpers.HandleServiceError(c, "RegisterHandler", err, map[string]any{"email": req.Email})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, user, "account registered successfully")
	helpers.LogSuccess("RegisterHandler", "account registered successfully", map[string]any{"user_id": user.UserID})
}

// LoginHandler handles POST /auth/login
func (h *AccountHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	token, user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		helpers.HandleServiceError(c, "LoginHandler", err, map[string]any{"email": req.Email})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.LoginResponse{Token: token, User: user}, "login successful")
	helpers.LogSuccess("LoginHandler", "login successful", map[string]any{"user_id": user.UserID, "role": string(user.Role)})
}

// MeHandler handles GET /users/me
func (h *AccountHandler) MeHandler(c *gin.Context) {
	claims, ok := helpers.MustClaims(c)
	if !ok {
		return
	}
	user, err := h.accounts.GetUser(c.Request.Context(), claims.Sub)
	if err != nil {
		helpers.HandleServiceError(c, "MeHandler", err, map[string]any{"user_id": claims.Sub})
		return
	}
	utils.JSONResponse(c, http.StatusOK, user, "user retrieved successfully")
}

// ListNotificationsHandler handles GET /notifications
func (h *AccountHandler) ListNotificationsHandler(c *gin.Context) {
	claims, ok := helpers.MustClaims(c)
	if !ok {
		return
	}
	notifications, err := h.inbox.ListNotifications(c.Request.Context(), claims.Sub)
	if err != nil {
		helpers.HandleServiceError(c, "ListNotificationsHandler", err, map[string]any{"user_id": claims.Sub})
		return
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}
	utils.JSONResponse(c, http.StatusOK, notifications, "notifications retrieved successfully")
}

// MarkNotificationReadHandler handles POST /notifications/:notification_id/read
func (h *AccountHandler) MarkNotificationReadHandler(c *gin.Context) {
	claims, ok := helpers.MustClaims(c)
	if !ok {
		return
	}
	notificationID, ok := helpers.PathID(c, "notification_id")
	if !ok {
		return
	}
	if err := h.inbox.MarkRead(c.Request.Context(), claims.Sub, notificationID); err != nil {
		helpers.HandleServiceError(c, "MarkNotificationReadHandler", err, map[string]any{
			"user_id":         claims.Sub,
			"notification_id": notificationID,
		})
		return
	}
	utils.JSONResponse(c, http.StatusOK, gin.H{"notification_id": notificationID}, "notification marked read")
}
