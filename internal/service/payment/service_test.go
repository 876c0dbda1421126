package payment

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
)

func TestSettlementFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"invalid amount", domain.ErrInvalidAmount, "amount mismatch"},
		{"insufficient balance", domain.ErrInsufficientBalance, "insufficient balance"},
		{"conditional debit lost", repository.ErrInsufficientBalance, "insufficient balance"},
		{"reservation gone", domain.ErrReservationNotPending, "reservation no longer pending"},
		{"seat gone", domain.ErrSeatNotReserved, "seat no longer reserved"},
		{"wrapped precondition", fmt.Errorf("tx: %w", domain.ErrInvalidAmount), "amount mismatch"},
		// Transient failures must NOT settle the claim as failed, the
		// client retries against the still-PROCESSING payment.
		{"transient db error", errors.New("connection reset"), ""},
		{"nil-adjacent wrap", fmt.Errorf("commit: %w", errors.New("timeout")), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, settlementFailure(tt.err))
		})
	}
}

func TestReclaim(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.PaymentStatus
		wantErr error
	}{
		// A claim stranded by an attempt that died mid-settlement must
		// stay payable: the retry re-enters it instead of being locked
		// out forever.
		{"stranded processing claim", domain.PaymentProcessing, nil},
		{"already succeeded", domain.PaymentSuccess, domain.ErrAlreadyProcessed},
		{"already failed", domain.PaymentFailed, domain.ErrAlreadyProcessed},
		{"already cancelled", domain.PaymentCancelled, domain.ErrAlreadyProcessed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := reclaim(tt.status)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
