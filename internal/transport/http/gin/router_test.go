package httpgin

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
	"github.com/stagepass/stagepass/internal/repository/postgres"
	"github.com/stagepass/stagepass/internal/service/admission"
	"github.com/stagepass/stagepass/internal/service/payment"
	"github.com/stagepass/stagepass/internal/service/reservation"
	"github.com/stagepass/stagepass/internal/service/users"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func performErr(err error) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respondErr(c, err)
	return w
}

func TestRespondErrMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not admitted", admission.ErrNotAdmitted, http.StatusForbidden, "ADMISSION_DENIED"},
		{"wrapped not admitted", fmt.Errorf("svc:%w", admission.ErrNotAdmitted), http.StatusForbidden, "ADMISSION_DENIED"},
		{"token missing", admission.ErrTokenNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"token for another concert", fmt.Errorf("svc:%w", domain.ErrConcertMismatch), http.StatusForbidden, "ADMISSION_DENIED"},
		{"seat taken", reservation.ErrSeatUnavailable, http.StatusConflict, "SEAT_UNAVAILABLE"},
		{"seat lock contended", reservation.ErrLockContended, http.StatusConflict, "LOCK_ACQUISITION_FAILED"},
		{"payment lock contended", payment.ErrLockContended, http.StatusConflict, "LOCK_ACQUISITION_FAILED"},
		{"sale over", reservation.ErrSaleClosed, http.StatusConflict, "SALE_CLOSED"},
		{"idem key in flight", reservation.ErrRequestInFlight, http.StatusConflict, "IDEMPOTENCY_IN_PROGRESS"},
		{"already finalized", reservation.ErrAlreadyFinalized, http.StatusConflict, "ALREADY_FINALIZED"},
		{"duplicate settle", domain.ErrAlreadyProcessed, http.StatusConflict, "ALREADY_PROCESSED"},
		{"price mismatch", domain.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"broke buyer", domain.ErrInsufficientBalance, http.StatusPaymentRequired, "INSUFFICIENT_BALANCE"},
		{"debit raced", repository.ErrInsufficientBalance, http.StatusPaymentRequired, "INSUFFICIENT_BALANCE"},
		{"reservation raced", domain.ErrReservationNotPending, http.StatusConflict, "RESERVATION_NOT_PENDING"},
		{"unknown user", users.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"repo not found", repository.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"anything else", fmt.Errorf("pq: connection refused"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performErr(tt.err)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"`+tt.wantCode+`"`)
		})
	}
}

func TestWriteJSONWithCacheETag(t *testing.T) {
	body := map[string]string{"hello": "world"}

	// Serve through an engine: gin only flushes a status set without a
	// body when a real request runs the full handler chain.
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		writeJSONWithCache(c, http.StatusOK, body, "public, max-age=15")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "public, max-age=15", w.Header().Get("Cache-Control"))

	// Replaying with the tag gets a 304 and no body.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)

	assert.Equal(t, http.StatusNotModified, w2.Code)
	assert.Empty(t, w2.Body.String())
}

func TestReservationResponseCarriesSeatAndPrice(t *testing.T) {
	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	res := &postgres.ReservationWithSeat{
		Reservation: domain.Reservation{
			ID:        uuid.MustParse("0191d8a2-0000-7000-8000-00000000000a"),
			SeatID:    33,
			Status:    domain.ReservationPending,
			CreatedAt: created,
			ExpiresAt: created.Add(5 * time.Minute),
		},
		SeatNo:     12,
		PriceCents: 150_00,
	}

	out := toReservationResponse(res)

	assert.Equal(t, "0191d8a2-0000-7000-8000-00000000000a", out.ReservationID)
	assert.Equal(t, int64(33), out.SeatID)
	assert.Equal(t, 12, out.SeatNo)
	assert.Equal(t, int64(150_00), out.PriceCents)
	assert.Equal(t, "pending", out.Status)
	assert.Equal(t, created, out.CreatedAt)
	assert.Equal(t, created.Add(5*time.Minute), out.ExpiresAt)
}

func TestQueueTokenResolution(t *testing.T) {
	t.Run("body wins over header", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
		c.Request.Header.Set("X-Queue-Token", "0191d8a2-0000-7000-8000-000000000001")

		id, ok := queueToken(c, "0191d8a2-0000-7000-8000-000000000002")
		require.True(t, ok)
		assert.Equal(t, "0191d8a2-0000-7000-8000-000000000002", id.String())
	})

	t.Run("falls back to header", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
		c.Request.Header.Set("X-Queue-Token", "0191d8a2-0000-7000-8000-000000000001")

		id, ok := queueToken(c, "")
		require.True(t, ok)
		assert.Equal(t, "0191d8a2-0000-7000-8000-000000000001", id.String())
	})

	t.Run("missing token is a 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

		_, ok := queueToken(c, "")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("garbage token is a 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

		_, ok := queueToken(c, "not-a-uuid")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
