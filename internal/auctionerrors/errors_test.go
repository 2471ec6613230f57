package auctionerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "not_found", err: ErrAuctionNotFound, want: ErrNotFound},
		{name: "wrapped_invalid_state", err: fmt.Errorf("service: %w - closed", ErrAuctionNotActive), want: ErrInvalidState},
		{name: "validation", err: ErrBidTooLow, want: ErrValidationFailed},
		{name: "forbidden", err: ErrNotWinner, want: ErrForbidden},
		{name: "dependency", err: ErrRenderFailed, want: ErrDependencyFailure},
		{name: "unclassified", err: errors.New("boom"), want: nil},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, KindOf(tc.err))
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	require.NoError(t, Classify(nil))
	require.Same(t, ErrBidTooLow, Classify(ErrBidTooLow))

	raw := errors.New("connection reset")
	err := Classify(raw)
	require.ErrorIs(t, err, ErrStore)
	require.ErrorIs(t, err, ErrDependencyFailure)
	require.ErrorIs(t, err, raw)
}
