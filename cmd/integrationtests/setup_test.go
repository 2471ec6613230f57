package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"auction-marketplace/internal/auth"
	bidding "auction-marketplace/internal/biddingService"
	"auction-marketplace/internal/invoice"
	"auction-marketplace/internal/notification"
	payment "auction-marketplace/internal/paymentService"
	"auction-marketplace/internal/repository"
	"auction-marketplace/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin-password"
)

// clock lets a test move past auction end times
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testApp is the full HTTP stack on the in-memory repository
type testApp struct {
	router     *gin.Engine
	repo       *repository.MemoryRepo
	dispatcher *notification.Dispatcher
	clock      *clock
	adminToken string
}

// SetupTestApp initializes the router with in-memory repository for integration testing.
func SetupTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	repo := repository.NewMemoryRepo()
	dispatcher := notification.NewDispatcher(notification.NewStoreSink(repo), repo, time.Second, notification.WithClock(clk.Now))
	tokens := auth.NewTokenIssuer("integration-secret", time.Hour)
	accounts := auth.NewAccountService(repo, tokens)

	_, err := accounts.EnsureAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)
	adminToken, _, err := accounts.Login(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	biddingSvc := bidding.NewBiddingService(repo, dispatcher, invoice.NewHTMLRenderer("Pay by bank transfer."), bidding.WithClock(clk.Now))
	paymentSvc := payment.NewPaymentService(repo, dispatcher, payment.WithClock(clk.Now))

	router := server.SetupRouter(server.Dependencies{
		Bidding:  biddingSvc,
		Payments: paymentSvc,
		Accounts: accounts,
		Inbox:    notification.NewInbox(repo),
		Tokens:   tokens,
	})
	t.Cleanup(dispatcher.Wait)

	return &testApp{router: router, repo: repo, dispatcher: dispatcher, clock: clk, adminToken: adminToken}
}

// registerBidder creates an account through the API and returns its token and id
func (a *testApp) registerBidder(t *testing.T, email string) (string, string) {
	t.Helper()
	creds := map[string]string{"email": email, "password": "bidder-password"}

	resp, w := ExecuteRequestAndParse(t, a.router, http.MethodPost, "/auth/register", "", creds)
	require.Equal(t, http.StatusCreated, w.Code)
	userID := resp["user_id"].(string)

	resp, w = ExecuteRequestAndParse(t, a.router, http.MethodPost, "/auth/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code)
	token := resp["data"].(map[string]any)["token"].(string)
	return token, userID
}

// createAuction opens an auction as the admin and returns its id
func (a *testApp) createAuction(t *testing.T, startingPrice, increment int64, lasts time.Duration) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, a.router, http.MethodPost, "/auctions", a.adminToken, map[string]any{
		"title":             "Vintage lamp",
		"starting_price":    startingPrice,
		"minimum_increment": increment,
		"end_time":          a.clock.Now().Add(lasts).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return resp["auction_id"].(string)
}

// ExecuteRequest executes an HTTP request and returns the response recorder.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the response
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url, token string, body any) (map[string]any, *httptest.ResponseRecorder) {
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := ExecuteRequest(t, router, method, url, token, reqBody)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		err := json.Unmarshal(w.Body.Bytes(), &resp)
		if err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}

		if w.Code == http.StatusCreated {
			resp = resp["data"].(map[string]any)
		}
	}

	return resp, w
}

// notificationTypes waits for queued deliveries and returns the user's notification types
func (a *testApp) notificationTypes(t *testing.T, token string) []string {
	t.Helper()
	a.dispatcher.Wait()

	resp, w := ExecuteRequestAndParse(t, a.router, http.MethodGet, "/notifications", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var types []string
	for _, n := range resp["data"].([]any) {
		types = append(types, n.(map[string]any)["type"].(string))
	}
	return types
}
