package service

import (
	"log/slog"

	"github.com/stagepass/stagepass/internal/kafka"
	"github.com/stagepass/stagepass/internal/lock"
	postgres "github.com/stagepass/stagepass/internal/repository/postgres"
	redis "github.com/stagepass/stagepass/internal/repository/redis"
	"github.com/stagepass/stagepass/internal/service/admin"
	"github.com/stagepass/stagepass/internal/service/admission"
	"github.com/stagepass/stagepass/internal/service/payment"
	"github.com/stagepass/stagepass/internal/service/query"
	"github.com/stagepass/stagepass/internal/service/rank"
	"github.com/stagepass/stagepass/internal/service/reservation"
	"github.com/stagepass/stagepass/internal/service/users"
)

type Services struct {
	Admission   *admission.Service
	Reservation *reservation.Service
	Payment     *payment.Service
	Query       *query.Service
	Users       *users.Service
	Admin       *admin.Service
	Rank        *rank.Listener
}

type Config struct {
	Admission   admission.Config
	Reservation reservation.Config
	Payment     payment.Config
	Query       query.Config
}

func NewServices(
	store *postgres.Store,
	queue *redis.QueueRepo,
	rankRepo *redis.RankRepo,
	cache *redis.Cache,
	idem *redis.IdempotencyStore,
	locker lock.Locker,
	producer *kafka.Producer,
	logger *slog.Logger,
	cfg Config,
) *Services {
	adm := admission.New(store, queue, cfg.Admission)

	return &Services{
		Admission:   adm,
		Reservation: reservation.New(store, locker, cache, idem, adm, producer, logger, cfg.Reservation),
		Payment:     payment.New(store, locker, cache, adm, producer, logger, cfg.Payment),
		Query:       query.New(store, cache, cfg.Query),
		Users:       users.New(store),
		Admin:       admin.New(store, cache),
		Rank:        rank.NewListener(store.Seats(), store.Concerts(), rankRepo, logger),
	}
}
