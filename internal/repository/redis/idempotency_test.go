package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyIdemReservation(t *testing.T) {
	t.Run("scoped to the user", func(t *testing.T) {
		// Two users reusing the same client-chosen key must never share
		// a slot: otherwise one user's retry replays the other's
		// reservation.
		a := KeyIdemReservation(1, "retry-abc")
		b := KeyIdemReservation(2, "retry-abc")
		assert.NotEqual(t, a, b)
	})

	t.Run("stable for the same request", func(t *testing.T) {
		assert.Equal(t,
			KeyIdemReservation(7, "retry-abc"),
			KeyIdemReservation(7, "retry-abc"),
		)
	})

	t.Run("carries namespace, user and key", func(t *testing.T) {
		assert.Equal(t, "stagepass:v1:idem:reservations:7:retry-abc", KeyIdemReservation(7, "retry-abc"))
	})
}
