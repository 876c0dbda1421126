package redis

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "stagepass:v1"

// Admission queue keys. Waiting and active sets are sorted by
// issue/activation time; the dedup key makes issuance idempotent per
// (user, concert).
func KeyQueueWaiting(concertID int64) string {
	return fmt.Sprintf("%s:queue:waiting:%d", ns, concertID)
}

func KeyQueueActive(concertID int64) string {
	return fmt.Sprintf("%s:queue:active:%d", ns, concertID)
}

func KeyTokenInfo(tokenID uuid.UUID) string {
	return fmt.Sprintf("%s:token:info:%s", ns, tokenID)
}

func KeyTokenByUser(userID, concertID int64) string {
	return fmt.Sprintf("%s:token:id:%d:%d", ns, userID, concertID)
}

// Lock keys. Deterministic naming so any process contends on the same
// lease.
func KeySeatLock(seatID int64) string {
	return fmt.Sprintf("%s:lock:reserve:seat:%d", ns, seatID)
}

func KeyUserLock(userID int64) string {
	return fmt.Sprintf("%s:lock:user:%d", ns, userID)
}

func KeyReservationLock(reservationID uuid.UUID) string {
	return fmt.Sprintf("%s:lock:reservation:%s", ns, reservationID)
}

func KeyExpireBatchLock() string {
	return ns + ":lock:reservation:expire-batch"
}

// Sold-out leaderboard, one global ordered set.
func KeySoldOutRank() string {
	return ns + ":concert:ranking:soldout"
}

// Cache keys for the read side.
func KeyConcertDates(concertID int64) string {
	return fmt.Sprintf("%s:concert:%d:dates", ns, concertID)
}

func KeyDateSeats(concertDateID int64) string {
	return fmt.Sprintf("%s:date:%d:seats", ns, concertDateID)
}
