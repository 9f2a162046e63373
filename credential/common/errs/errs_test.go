package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapMatchesSentinel(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrIssuanceFailed, cause)

	assert.ErrorIs(t, err, ErrIssuanceFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrHolderMismatch)
	assert.Equal(t, "credential issuance failed: boom", err.Error())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "sentinel", err: ErrIssuerNotConfigured, want: KindNotConfigured},
		{name: "wrapped twice", err: fmt.Errorf("outer: %w", New(ErrInvalidAddress, "bad %s", "0x1")), want: KindInvalidInput},
		{name: "plain error", err: errors.New("x"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "HolderMismatch", CodeOf(Wrap(ErrHolderMismatch, errors.New("x"))))
	assert.Equal(t, "", CodeOf(errors.New("x")))
}

func TestDescribe(t *testing.T) {
	err := Describe(ErrOwnershipMismatch, "Wallet ownership verification failed: %s", "bad signature")

	assert.ErrorIs(t, err, ErrOwnershipMismatch)
	assert.Equal(t, KindCryptographicMismatch, KindOf(err))
	assert.Equal(t, "Wallet ownership verification failed: bad signature", err.Error())
}
