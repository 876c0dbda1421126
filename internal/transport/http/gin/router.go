package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/stagepass/stagepass/internal/domain"
	"github.com/stagepass/stagepass/internal/repository"
	"github.com/stagepass/stagepass/internal/service"
	"github.com/stagepass/stagepass/internal/service/admin"
	"github.com/stagepass/stagepass/internal/service/admission"
	"github.com/stagepass/stagepass/internal/service/payment"
	"github.com/stagepass/stagepass/internal/service/query"
	"github.com/stagepass/stagepass/internal/service/reservation"
	"github.com/stagepass/stagepass/internal/service/users"
)

func NewRouter(
	svcs *service.Services,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Waiting room
	r.POST("/concerts/:id/users/:userId/tokens", handleIssueToken(svcs))
	r.GET("/concerts/:id/tokens/:tokenId", handleTokenStatus(svcs))
	r.GET("/concerts/:id/queue", handleQueueStats(svcs))

	// Catalogue
	r.GET("/concerts", handleListConcerts(svcs))
	r.GET("/concerts/:id", handleGetConcert(svcs))
	r.GET("/concerts/:id/dates", handleListDates(svcs))
	r.GET("/concerts/:id/dates/:dateId/seats", handleListSeats(svcs))

	// Reservation and payment
	r.POST("/reservations", handleCreateReservation(svcs))
	r.GET("/reservations/:id", handleGetReservation(svcs))
	r.DELETE("/reservations/:id", handleCancelReservation(svcs))
	r.POST("/payments", handleSettlePayment(svcs))
	r.GET("/payments/:id", handleGetPayment(svcs))

	// Users
	r.POST("/users", handleRegisterUser(svcs))
	r.POST("/users/:id/charge", handleCharge(svcs))
	r.GET("/users/:id/balance", handleBalance(svcs))
	r.GET("/users/:id/reservations", handleListUserReservations(svcs))

	// Rankings
	r.GET("/rankings/soldout", handleSoldOutRankings(svcs))

	// Admin-API
	// TODO: add admin middleware
	adm := r.Group("/admin")
	{
		adm.POST("/concerts", handleCreateConcert(svcs))
		adm.POST("/concerts/:id/dates", handleCreateDate(svcs))
		adm.POST("/dates/:id/seats", handleBatchCreateSeats(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Issue queue token
// @Param    id      path  int  true  "Concert ID"
// @Param    userId  path  int  true  "User ID"
// @Success  201  {object}  TokenResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /concerts/{id}/users/{userId}/tokens [post]
func handleIssueToken(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		userID, ok := parseInt64Param(c, "userId")
		if !ok {
			return
		}

		tok, err := svcs.Admission.IssueToken(c.Request.Context(), concertID, userID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, toTokenResponse(tok))
	}
}

// @Summary  Get queue token status
// @Param    id       path  int     true  "Concert ID"
// @Param    tokenId  path  string  true  "Token ID (uuid)"
// @Success  200  {object}  TokenResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /concerts/{id}/tokens/{tokenId} [get]
func handleTokenStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		tokenID, err := uuid.Parse(c.Param("tokenId"))
		if err != nil {
			badRequest(c, "invalid token id")
			return
		}

		tok, err := svcs.Admission.GetStatus(c.Request.Context(), concertID, tokenID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toTokenResponse(tok))
	}
}

// @Summary  Queue occupancy for a concert
// @Param    id  path  int  true  "Concert ID"
// @Success  200  {object}  QueueStatsResponse
// @Router   /concerts/{id}/queue [get]
func handleQueueStats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		active, waiting, err := svcs.Admission.Stats(c.Request.Context(), concertID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, QueueStatsResponse{
			ConcertID: concertID,
			Active:    active,
			Waiting:   waiting,
		})
	}
}

// @Summary  List open concerts
// @Success  200  {array}  domain.Concert
// @Router   /concerts [get]
func handleListConcerts(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concerts, err := svcs.Query.ListConcerts(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, concerts, "public, max-age=60")
	}
}

// @Summary  Get concert
// @Param    id  path  int  true  "Concert ID"
// @Success  200  {object}  domain.Concert
// @Failure  404  {object}  ErrorResponse
// @Router   /concerts/{id} [get]
func handleGetConcert(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		concert, err := svcs.Query.GetConcert(c.Request.Context(), concertID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, concert, "public, max-age=60")
	}
}

// @Summary  List concert dates with availability
// @Param    id  path  int  true  "Concert ID"
// @Success  200  {array}  postgres.DateWithAvailability
// @Router   /concerts/{id}/dates [get]
func handleListDates(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		dates, err := svcs.Query.ListDates(c.Request.Context(), concertID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, dates, "public, max-age=15")
	}
}

// @Summary  List seats for a date
// @Param    id      path   int     true  "Concert ID"
// @Param    dateId  path   int     true  "Concert date ID"
// @Param    only    query  string  false "available"
// @Success  200  {array}  domain.Seat
// @Router   /concerts/{id}/dates/{dateId}/seats [get]
func handleListSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := parseInt64Param(c, "id"); !ok {
			return
		}
		dateID, ok := parseInt64Param(c, "dateId")
		if !ok {
			return
		}

		onlyAvailable := c.Query("only") == "available"

		seats, err := svcs.Query.ListSeats(c.Request.Context(), dateID, onlyAvailable)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, seats, "public, max-age=5")
	}
}

// @Summary  Reserve a seat
// @Param    req body  CreateReservationRequest true "payload"
// @Param    Idempotency-Key  header  string  false  "retry-safe key"
// @Success  201 {object} ReservationResponse
// @Failure  403 {object} ErrorResponse "ADMISSION_DENIED"
// @Failure  409 {object} ErrorResponse "SEAT_UNAVAILABLE / LOCK_ACQUISITION_FAILED"
// @Router   /reservations [post]
func handleCreateReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateReservationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		tokenID, ok := queueToken(c, req.TokenID)
		if !ok {
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))

		res, err := svcs.Reservation.Reserve(
			c.Request.Context(),
			req.UserID,
			req.ConcertID,
			req.ConcertDateID,
			req.SeatID,
			tokenID,
			idemKey,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		if idemKey != "" {
			c.Header("Idempotency-Key", idemKey)
		}
		c.JSON(http.StatusCreated, toReservationResponse(res))
	}
}

// @Summary  Get reservation
// @Param    id       path   string  true  "Reservation ID (uuid)"
// @Param    user_id  query  int     true  "Owner user ID"
// @Success  200 {object} ReservationResponse
// @Router   /reservations/{id} [get]
func handleGetReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		reservationID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		userID, ok := parseInt64Query(c, "user_id")
		if !ok {
			return
		}

		res, err := svcs.Reservation.Get(c.Request.Context(), reservationID, userID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toReservationResponse(res))
	}
}

// @Summary  Cancel a pending reservation
// @Param    id       path   string  true  "Reservation ID (uuid)"
// @Param    user_id  query  int     true  "Owner user ID"
// @Success  204
// @Failure  409 {object} ErrorResponse "ALREADY_FINALIZED"
// @Router   /reservations/{id} [delete]
func handleCancelReservation(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		reservationID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		userID, ok := parseInt64Query(c, "user_id")
		if !ok {
			return
		}

		if err := svcs.Reservation.Cancel(c.Request.Context(), reservationID, userID); err != nil {
			respondErr(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Settle payment for a reservation
// @Param    req body  SettlePaymentRequest true "payload"
// @Success  200 {object} PaymentResponse
// @Failure  402 {object} ErrorResponse "INSUFFICIENT_BALANCE"
// @Failure  409 {object} ErrorResponse "ALREADY_PROCESSED"
// @Router   /payments [post]
func handleSettlePayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SettlePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		reservationID, err := uuid.Parse(req.ReservationID)
		if err != nil {
			badRequest(c, "invalid reservation_id")
			return
		}

		tokenID, ok := queueToken(c, req.TokenID)
		if !ok {
			return
		}

		pay, err := svcs.Payment.Settle(
			c.Request.Context(),
			reservationID,
			req.ConcertID,
			tokenID,
			req.AmountCents,
		)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toPaymentResponse(pay))
	}
}

// @Summary  Get payment
// @Param    id       path   string  true  "Payment ID (uuid)"
// @Param    user_id  query  int     true  "Owner user ID"
// @Success  200 {object} PaymentResponse
// @Router   /payments/{id} [get]
func handleGetPayment(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		paymentID, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		userID, ok := parseInt64Query(c, "user_id")
		if !ok {
			return
		}

		pay, err := svcs.Payment.Get(c.Request.Context(), paymentID, userID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, toPaymentResponse(pay))
	}
}

// @Summary  Register user
// @Param    req body  RegisterUserRequest true "payload"
// @Success  201 {object} BalanceResponse
// @Router   /users [post]
func handleRegisterUser(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		u, err := svcs.Users.Register(c.Request.Context(), req.BalanceCents)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, BalanceResponse{
			UserID:       u.ID,
			BalanceCents: u.BalanceCents,
		})
	}
}

// @Summary  Charge balance
// @Param    id   path  int  true  "User ID"
// @Param    req  body  ChargeRequest true "payload"
// @Success  200 {object} BalanceResponse
// @Router   /users/{id}/charge [post]
func handleCharge(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req ChargeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		balance, err := svcs.Users.Charge(c.Request.Context(), userID, req.AmountCents)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, BalanceResponse{UserID: userID, BalanceCents: balance})
	}
}

// @Summary  Get balance
// @Param    id  path  int  true  "User ID"
// @Success  200 {object} BalanceResponse
// @Router   /users/{id}/balance [get]
func handleBalance(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		balance, err := svcs.Users.Balance(c.Request.Context(), userID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, BalanceResponse{UserID: userID, BalanceCents: balance})
	}
}

// @Summary  List user reservations
// @Param    id  path  int  true  "User ID"
// @Success  200 {array} ReservationResponse
// @Router   /users/{id}/reservations [get]
func handleListUserReservations(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		list, err := svcs.Reservation.ListByUser(c.Request.Context(), userID)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]ReservationResponse, 0, len(list))
		for i := range list {
			out = append(out, toReservationResponse(&list[i]))
		}

		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Fastest sold-out concerts
// @Param    limit  query  int  false  "max entries (default 100)"
// @Success  200 {array} domain.SoldOutRankEntry
// @Router   /rankings/soldout [get]
func handleSoldOutRankings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := int64(parseIntDefault(c.Query("limit"), 100))

		entries, err := svcs.Rank.Top(c.Request.Context(), limit)
		if err != nil {
			respondErr(c, err)
			return
		}

		writeJSONWithCache(c, http.StatusOK, entries, "public, max-age=15")
	}
}

// @Summary  Create concert
// @Param    req body  CreateConcertRequest true "payload"
// @Success  201 {object} CreateConcertResponse
// @Router   /admin/concerts [post]
func handleCreateConcert(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateConcertRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		openedAt, err := parseRFC3339(req.OpenedAt)
		if err != nil {
			badRequest(c, "invalid opened_at (RFC3339)")
			return
		}
		closedAt, err := parseRFC3339(req.ClosedAt)
		if err != nil {
			badRequest(c, "invalid closed_at (RFC3339)")
			return
		}

		id, err := svcs.Admin.CreateConcert(c.Request.Context(), req.Title, openedAt, closedAt)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreateConcertResponse{ConcertID: id})
	}
}

// @Summary  Create concert date
// @Param    id   path  int  true  "Concert ID"
// @Param    req  body  CreateDateRequest true "payload"
// @Success  201 {object} CreateDateResponse
// @Router   /admin/concerts/{id}/dates [post]
func handleCreateDate(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		concertID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req CreateDateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		startsAt, err := parseRFC3339(req.StartsAt)
		if err != nil {
			badRequest(c, "invalid starts_at (RFC3339)")
			return
		}
		reserveBy, err := parseRFC3339(req.ReserveBy)
		if err != nil {
			badRequest(c, "invalid reserve_by (RFC3339)")
			return
		}

		id, err := svcs.Admin.CreateDate(c.Request.Context(), concertID, startsAt, reserveBy)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, CreateDateResponse{ConcertDateID: id})
	}
}

// @Summary  Batch create seats for a date
// @Param    id   path  int  true  "Concert date ID"
// @Param    req  body  BatchCreateSeatsRequest true "payload"
// @Success  201 {object} map[string]int
// @Router   /admin/dates/{id}/seats [post]
func handleBatchCreateSeats(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		dateID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}

		var req BatchCreateSeatsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		specs := make([]admin.SeatSpec, 0, len(req.Seats))
		for _, s := range req.Seats {
			specs = append(specs, admin.SeatSpec{
				SeatNo:     s.SeatNo,
				Grade:      domain.SeatGrade(s.Grade),
				PriceCents: s.PriceCents,
			})
		}

		if err := svcs.Admin.BatchCreateSeats(c.Request.Context(), req.ConcertID, dateID, specs); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"created": len(specs)})
	}
}

// --- Helpers ---

// queueToken resolves the admission token from the request body or the
// X-Queue-Token header. The body wins when both are present.
func queueToken(c *gin.Context, fromBody string) (uuid.UUID, bool) {
	raw := fromBody
	if raw == "" {
		raw = strings.TrimSpace(c.GetHeader("X-Queue-Token"))
	}
	if raw == "" {
		badRequest(c, "missing queue token")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "invalid queue token")
		return uuid.Nil, false
	}

	return id, true
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseInt64Query(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Query(name), 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: "BAD_REQUEST", Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// admission service
	case errors.Is(err, admission.ErrNotAdmitted):
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "ADMISSION_DENIED", Error: "queue token is not active"})
	case errors.Is(err, domain.ErrConcertMismatch):
		c.JSON(http.StatusForbidden, ErrorResponse{Code: "ADMISSION_DENIED", Error: "token does not admit this concert"})
	case errors.Is(err, admission.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Error: "token not found"})
	case errors.Is(err, admission.ErrConcertNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Error: "concert not found"})
	case errors.Is(err, admission.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Error: "user not found"})

	// reservation service
	case errors.Is(err, reservation.ErrSeatUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Code: "SEAT_UNAVAILABLE", Error: "seat is not available"})
	case errors.Is(err, reservation.ErrLockContended), errors.Is(err, payment.ErrLockContended):
		c.JSON(http.StatusConflict, ErrorResponse{Code: "LOCK_ACQUISITION_FAILED", Error: "try again"})
	case errors.Is(err, reservation.ErrRequestInFlight):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusConflict, ErrorResponse{Code: "IDEMPOTENCY_IN_PROGRESS", Error: "idempotency key in progress"})
	case errors.Is(err, reservation.ErrSaleClosed):
		c.JSON(http.StatusConflict, ErrorResponse{Code: "SALE_CLOSED", Error: "reservation period is over"})
	case errors.Is(err, reservation.ErrAlreadyFinalized):
		c.JSON(http.StatusConflict, ErrorResponse{Code: "ALREADY_FINALIZED", Error: "reservation is no longer pending"})
	case errors.Is(err, reservation.ErrReservationNotFound),
		errors.Is(err, reservation.ErrSeatNotFound),
		errors.Is(err, reservation.ErrConcertDateNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Error: err.Error()})

	// payment service
	case errors.Is(err, domain.ErrAlreadyProcessed):
		c.JSON(http.StatusConflict, ErrorResponse{Code: "ALREADY_PROCESSED", Error: "payment was already claimed"})
	case errors.Is(err, domain.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_AMOUNT", Error: "amount does not match seat price"})
	case errors.Is(err, domain.ErrInsufficientBalance), errors.Is(err, repository.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, ErrorResponse{Code: "INSUFFICIENT_BALANCE", Error: "balance too low"})
	case errors.Is(err, domain.ErrReservationNotPending), errors.Is(err, domain.ErrSeatNotReserved):
		c.JSON(http.StatusConflict, ErrorResponse{Code: "RESERVATION_NOT_PENDING", Error: err.Error()})
	case errors.Is(err, payment.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Error: "payment not found"})

	// users service
	case errors.Is(err, users.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Error: "user not found"})
	case errors.Is(err, users.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "INVALID_AMOUNT", Error: "amount must be positive"})

	// query service
	case errors.Is(err, query.ErrConcertNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Error: "concert not found"})

	// admin service
	case errors.Is(err, admin.ErrInvalidSchedule):
		c.JSON(http.StatusBadRequest, ErrorResponse{Code: "BAD_REQUEST", Error: "invalid schedule"})
	case errors.Is(err, admin.ErrConcertNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Error: "concert or date not found"})
	case errors.Is(err, admin.ErrSeatConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Code: "CONFLICT", Error: "seat already exists"})

	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Code: "NOT_FOUND", Error: "not found"})

	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL", Error: "internal error"})
	}
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
