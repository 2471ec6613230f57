package bidding

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"auction-marketplace/internal/auctionerrors"
	"auction-marketplace/internal/invoice"
	model "auction-marketplace/internal/models"
	"auction-marketplace/internal/repository"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

type failingRenderer struct{}

func (failingRenderer) Render(invoice.Data) ([]byte, string, error) {
	return nil, "", errors.New("template exploded")
}

type fixture struct {
	repo     *repository.MemoryRepo
	notifier *recordingNotifier
	clock    *testClock
	service  *BiddingService
}

func newFixture(t *testing.T, renderer invoice.Renderer) *fixture {
	t.Helper()
	if renderer == nil {
		renderer = invoice.NewHTMLRenderer("Pay by bank transfer")
	}
	f := &fixture{
		repo:     repository.NewMemoryRepo(),
		notifier: &recordingNotifier{},
		clock:    newTestClock(start),
	}
	f.service = NewBiddingService(f.repo, f.notifier, renderer, WithClock(f.clock.Now))
	return f
}

func (f *fixture) createAuction(t *testing.T, startingPrice, increment int64) model.Auction {
	t.Helper()
	a, err := f.service.CreateAuction(context.Background(), "owner", NewAuction{
		Title:            "Lot",
		StartingPrice:    startingPrice,
		MinimumIncrement: increment,
		EndTime:          f.clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) bid(t *testing.T, auctionID, userID string, amount int64) {
	t.Helper()
	f.clock.Advance(time.Second)
	_, err := f.service.PlaceBid(context.Background(), auctionID, userID, amount)
	require.NoError(t, err)
}

func TestPlaceBid_CurrentPriceMonotone(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.createAuction(t, 1000, 100)

	attempts := []struct {
		user   string
		amount int64
	}{
		{"u1", 1100}, {"u2", 1150}, {"u2", 1200}, {"u3", 1200}, {"u1", 5000}, {"u3", 5099}, {"u3", 5100}, {"u2", 1},
	}

	last := a.CurrentPrice
	for _, at := range attempts {
		f.clock.Advance(time.Second)
		before, err := f.service.GetAuction(ctx, a.AuctionID)
		require.NoError(t, err)

		bid, err := f.service.PlaceBid(ctx, a.AuctionID, at.user, at.amount)
		after, getErr := f.service.GetAuction(ctx, a.AuctionID)
		require.NoError(t, getErr)

		if at.amount < before.CurrentPrice+before.MinimumIncrement {
			require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
			require.Equal(t, before.CurrentPrice, after.CurrentPrice, "rejected bid must not move the price")
			continue
		}
		require.NoError(t, err)
		require.GreaterOrEqual(t, after.CurrentPrice, last+a.MinimumIncrement)
		require.Equal(t, bid.Amount, after.CurrentPrice)
		last = after.CurrentPrice
	}
	require.Equal(t, int64(5100), last)

	// amounts near the cap must not wrap the minimum bid
	f.clock.Advance(time.Second)
	_, err := f.service.PlaceBid(ctx, a.AuctionID, "u1", model.MaxAmount)
	require.NoError(t, err)

	for _, amount := range []int64{1, 5100, model.MaxAmount} {
		_, err := f.service.PlaceBid(ctx, a.AuctionID, "u2", amount)
		require.ErrorIs(t, err, auctionerrors.ErrBidTooLow, amount)
	}
	_, err = f.service.PlaceBid(ctx, a.AuctionID, "u2", math.MaxInt64)
	require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)

	after, err := f.service.GetAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, model.MaxAmount, after.CurrentPrice)
	require.GreaterOrEqual(t, after.CurrentPrice, after.StartingPrice)
}

func TestPlaceBid_ConcurrentBidders(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.createAuction(t, 100, 10)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.service.PlaceBid(ctx, a.AuctionID, "user"+string(rune('A'+i%26)), int64(110+i*10))
		}(i)
	}
	wg.Wait()

	bids, err := f.service.GetBidsForAuction(ctx, a.AuctionID)
	require.NoError(t, err)

	got, err := f.service.GetAuction(ctx, a.AuctionID)
	require.NoError(t, err)

	var max int64
	for _, b := range bids {
		if b.Amount > max {
			max = b.Amount
		}
	}
	require.Equal(t, max, got.CurrentPrice, "current price equals the highest accepted bid")

	// accepted bids, in acceptance order, respect the increment
	for i := 1; i < len(bids); i++ {
		require.GreaterOrEqual(t, bids[i].Amount, bids[i-1].Amount+a.MinimumIncrement)
	}
}

// startingPrice=100000, minimumIncrement=50000
func TestScenario_IncrementEnforcedAndWinnerInvoiced(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.createAuction(t, 100000, 50000)

	f.bid(t, a.AuctionID, "alice", 150000)
	got, err := f.service.GetAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, int64(150000), got.CurrentPrice)

	_, err = f.service.PlaceBid(ctx, a.AuctionID, "bob", 170000)
	require.ErrorIs(t, err, auctionerrors.ErrBidTooLow)
	require.Contains(t, err.Error(), "200000")

	f.bid(t, a.AuctionID, "bob", 200000)

	f.clock.Advance(2 * time.Hour)
	closed, err := f.service.SweepExpiredAuctions(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, closed)

	got, err = f.service.GetAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionEnded, got.Status)
	require.Equal(t, "bob", *got.WinnerID)
	require.True(t, got.HasInvoice())
	require.True(t, strings.HasPrefix(*got.InvoiceNumber, "INV-"+a.AuctionID+"-bob-"))
	require.Contains(t, string(got.InvoiceDocument), "2000.00")
	require.Contains(t, string(got.InvoiceDocument), "Pay by bank transfer")

	won := f.notifier.ofType(model.NotifyAuctionWon)
	require.Len(t, won, 1)
	require.Equal(t, "bob", won[0].UserID)
	require.Equal(t, int64(200000), won[0].Data["amount"])

	lost := f.notifier.ofType(model.NotifyAuctionLost)
	require.Len(t, lost, 1)
	require.Equal(t, "alice", lost[0].UserID)

	require.Len(t, f.notifier.ofType(model.NotifyInvoiceIssued), 1)

	outbid := f.notifier.ofType(model.NotifyOutbid)
	require.Len(t, outbid, 1)
	require.Equal(t, "alice", outbid[0].UserID)
}

func TestCloseAuction_TieGoesToEarliestBid(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.createAuction(t, 100, 0)

	f.bid(t, a.AuctionID, "early", 500)
	f.bid(t, a.AuctionID, "late", 500)

	closed, err := f.service.CloseAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, "early", *closed.WinnerID)
}

func TestCloseAuction_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.createAuction(t, 100, 10)
	f.bid(t, a.AuctionID, "alice", 200)
	f.bid(t, a.AuctionID, "bob", 300)

	first, err := f.service.CloseAuction(ctx, a.AuctionID)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	second, err := f.service.CloseAuction(ctx, a.AuctionID)
	require.NoError(t, err)

	require.Equal(t, *first.WinnerID, *second.WinnerID)
	require.Equal(t, *first.InvoiceNumber, *second.InvoiceNumber)
	require.Len(t, f.notifier.ofType(model.NotifyAuctionWon), 1)
	require.Len(t, f.notifier.ofType(model.NotifyInvoiceIssued), 1)
	require.Len(t, f.notifier.ofType(model.NotifyAuctionLost), 1)

	_, err = f.service.CloseAuction(ctx, "missing")
	require.ErrorIs(t, err, auctionerrors.ErrNotFound)
}

func TestCloseAuction_NoBids(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	a := f.createAuction(t, 100, 10)

	closed, err := f.service.CloseAuction(context.Background(), a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionEnded, closed.Status)
	require.False(t, closed.HasWinner())
	require.False(t, closed.HasInvoice())
	require.True(t, closed.Archived)
	require.Empty(t, f.notifier.sent)

	_, err = f.service.RegenerateInvoice(context.Background(), a.AuctionID)
	require.ErrorIs(t, err, auctionerrors.ErrNoWinner)
}

func TestCloseAuction_AdminWinnerGetsNoInvoice(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.repo.CreateUser(ctx, model.User{UserID: "root", Email: "root@example.com", Role: model.RoleAdmin}))

	a := f.createAuction(t, 100, 10)
	f.bid(t, a.AuctionID, "alice", 200)
	f.bid(t, a.AuctionID, "root", 300)

	closed, err := f.service.CloseAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, "root", *closed.WinnerID)
	require.False(t, closed.HasInvoice())
	require.Empty(t, f.notifier.ofType(model.NotifyAuctionWon))
	require.Empty(t, f.notifier.ofType(model.NotifyAuctionLost))

	_, err = f.service.RegenerateInvoice(ctx, a.AuctionID)
	require.ErrorIs(t, err, auctionerrors.ErrNoWinner)
	require.ErrorIs(t, err, auctionerrors.ErrInvalidState)

	stored, err := f.service.GetAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.False(t, stored.HasInvoice())
	require.Empty(t, f.notifier.ofType(model.NotifyInvoiceIssued))
}

func TestCloseAuction_RenderFailureKeepsClosure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, failingRenderer{})
	ctx := context.Background()
	a := f.createAuction(t, 100, 10)
	f.bid(t, a.AuctionID, "alice", 200)

	closed, err := f.service.CloseAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionEnded, closed.Status)
	require.Equal(t, "alice", *closed.WinnerID)
	require.False(t, closed.HasInvoice())

	require.Len(t, f.notifier.ofType(model.NotifyAuctionWon), 1)
	require.Empty(t, f.notifier.ofType(model.NotifyInvoiceIssued))

	// an admin recovers the invoice once rendering works again
	f.service.renderer = invoice.NewHTMLRenderer("")
	recovered, err := f.service.RegenerateInvoice(ctx, a.AuctionID)
	require.NoError(t, err)
	require.True(t, recovered.HasInvoice())
	require.Len(t, f.notifier.ofType(model.NotifyInvoiceIssued), 1)
}

func TestRegenerateInvoice_NumberStable(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.createAuction(t, 100, 10)
	f.bid(t, a.AuctionID, "alice", 200)

	closed, err := f.service.CloseAuction(ctx, a.AuctionID)
	require.NoError(t, err)
	number := *closed.InvoiceNumber

	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Hour)
		again, err := f.service.RegenerateInvoice(ctx, a.AuctionID)
		require.NoError(t, err)
		require.Equal(t, number, *again.InvoiceNumber)
	}
	require.Len(t, f.notifier.ofType(model.NotifyInvoiceIssued), 1, "regeneration of an issued invoice does not notify")

	inv, err := f.service.GetInvoice(ctx, a.AuctionID, "alice", false)
	require.NoError(t, err)
	require.Equal(t, number, inv.Number)
	require.Equal(t, invoice.ContentTypeHTML, inv.ContentType)

	_, err = f.service.GetInvoice(ctx, a.AuctionID, "mallory", false)
	require.ErrorIs(t, err, auctionerrors.ErrForbidden)

	_, err = f.service.GetInvoice(ctx, a.AuctionID, "someone-admin", true)
	require.NoError(t, err)
}

func TestRegenerateInvoice_Errors(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()
	a := f.createAuction(t, 100, 10)

	_, err := f.service.RegenerateInvoice(ctx, a.AuctionID)
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotEnded)

	_, err = f.service.RegenerateInvoice(ctx, "missing")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotFound)

	_, err = f.service.GetInvoice(ctx, a.AuctionID, "", true)
	require.ErrorIs(t, err, auctionerrors.ErrInvoiceNotFound)
}

func TestSweepExpiredAuctions_ClosesOnlyExpired(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	soon, err := f.service.CreateAuction(ctx, "owner", NewAuction{Title: "soon", StartingPrice: 100, EndTime: start.Add(time.Minute)})
	require.NoError(t, err)
	exact, err := f.service.CreateAuction(ctx, "owner", NewAuction{Title: "exact", StartingPrice: 100, EndTime: start.Add(10 * time.Minute)})
	require.NoError(t, err)
	later, err := f.service.CreateAuction(ctx, "owner", NewAuction{Title: "later", StartingPrice: 100, EndTime: start.Add(time.Hour)})
	require.NoError(t, err)
	cancelled, err := f.service.CreateAuction(ctx, "owner", NewAuction{Title: "cancelled", StartingPrice: 100, EndTime: start.Add(time.Minute)})
	require.NoError(t, err)
	_, err = f.service.CancelAuction(ctx, cancelled.AuctionID)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	closed, err := f.service.SweepExpiredAuctions(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, closed)

	for id, want := range map[string]model.AuctionStatus{
		soon.AuctionID:      model.AuctionEnded,
		exact.AuctionID:     model.AuctionEnded,
		later.AuctionID:     model.AuctionActive,
		cancelled.AuctionID: model.AuctionCancelled,
	} {
		got, err := f.service.GetAuction(ctx, id)
		require.NoError(t, err)
		require.Equal(t, want, got.Status, got.Title)
	}

	closed, err = f.service.SweepExpiredAuctions(ctx)
	require.NoError(t, err)
	require.Zero(t, closed, "a second sweep finds nothing to close")
}

func TestSweepExpiredAuctions_ContinuesPastFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo, &recordingNotifier{}, invoice.NewHTMLRenderer(""), WithClock(func() time.Time { return start }))

	ended := func(id string) model.Auction {
		a := activeAuction(id, 100, 10)
		a.Status = model.AuctionEnded
		a.Archived = true
		return a
	}

	mockRepo.EXPECT().ListExpiredAuctions(gomock.Any(), start).
		Return([]model.Auction{activeAuction("a1", 100, 10), activeAuction("a2", 100, 10), activeAuction("a3", 100, 10)}, nil)
	mockRepo.EXPECT().CloseAuction(gomock.Any(), "a1", start).Return(ended("a1"), true, nil)
	mockRepo.EXPECT().CloseAuction(gomock.Any(), "a2", start).Return(model.Auction{}, false, auctionerrors.Classify(errors.New("deadlock")))
	mockRepo.EXPECT().CloseAuction(gomock.Any(), "a3", start).Return(ended("a3"), false, nil)

	closed, err := service.SweepExpiredAuctions(context.Background())
	require.Equal(t, 1, closed)
	require.Error(t, err)
	require.ErrorIs(t, err, auctionerrors.ErrDependencyFailure)
}

// an auction cancelled between listing and closing is skipped by the sweep,
// while an admin close of the same auction still fails
func TestSweepExpiredAuctions_SkipsCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := repository.NewMockAuctionDB(ctrl)
	service := NewBiddingService(mockRepo, &recordingNotifier{}, invoice.NewHTMLRenderer(""), WithClock(func() time.Time { return start }))

	cancelled := activeAuction("a1", 100, 10)
	cancelled.Status = model.AuctionCancelled
	ended := activeAuction("a2", 100, 10)
	ended.Status = model.AuctionEnded
	ended.Archived = true

	mockRepo.EXPECT().ListExpiredAuctions(gomock.Any(), start).
		Return([]model.Auction{activeAuction("a1", 100, 10), activeAuction("a2", 100, 10)}, nil)
	mockRepo.EXPECT().CloseAuction(gomock.Any(), "a1", start).Return(cancelled, false, nil).Times(2)
	mockRepo.EXPECT().CloseAuction(gomock.Any(), "a2", start).Return(ended, true, nil)

	closed, err := service.SweepExpiredAuctions(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, closed)

	_, err = service.CloseAuction(context.Background(), "a1")
	require.ErrorIs(t, err, auctionerrors.ErrAuctionNotActive)
	require.ErrorIs(t, err, auctionerrors.ErrInvalidState)
}

// admin "end auction" racing the sweep on the same auction
func TestCloseAuction_AdminRacesSweep(t *testing.T) {
	t.Parallel()

	for round := 0; round < 20; round++ {
		f := newFixture(t, nil)
		ctx := context.Background()
		a := f.createAuction(t, 100, 10)
		f.bid(t, a.AuctionID, "alice", 200)
		f.bid(t, a.AuctionID, "bob", 300)
		f.clock.Advance(2 * time.Hour)

		var (
			wg         sync.WaitGroup
			sweepCount int
			sweepErr   error
			adminErr   error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, adminErr = f.service.CloseAuction(ctx, a.AuctionID)
		}()
		go func() {
			defer wg.Done()
			sweepCount, sweepErr = f.service.SweepExpiredAuctions(ctx)
		}()
		wg.Wait()

		require.NoError(t, adminErr)
		require.NoError(t, sweepErr)
		require.LessOrEqual(t, sweepCount, 1)

		got, err := f.service.GetAuction(ctx, a.AuctionID)
		require.NoError(t, err)
		require.Equal(t, "bob", *got.WinnerID)
		require.True(t, got.HasInvoice())

		require.Len(t, f.notifier.ofType(model.NotifyAuctionWon), 1)
		require.Len(t, f.notifier.ofType(model.NotifyInvoiceIssued), 1)
		require.Len(t, f.notifier.ofType(model.NotifyAuctionLost), 1)
	}
}
