package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/klimaz/starlotto/internal/config"
	"github.com/klimaz/starlotto/internal/metrics"
	"github.com/klimaz/starlotto/internal/models"
	"github.com/klimaz/starlotto/internal/registry"
	"github.com/klimaz/starlotto/internal/storage"
)

// PaymentEvent is a confirmed payment delivered by the payment feed.
type PaymentEvent struct {
	UserID     int64
	Username   string
	FirstName  string
	LastName   string
	EntryFee   int64
	PaymentRef string
}

// AdmissionService decides which room a newly-paid participant joins.
// It is the only writer of room membership: the payment webhook hands
// confirmed payments to OnPaymentConfirmed and nothing else mutates
// membership.
type AdmissionService struct {
	registry *registry.Registry
	store    storage.Store
	cfg      *config.Config
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewAdmissionService creates an AdmissionService.
func NewAdmissionService(reg *registry.Registry, store storage.Store, cfg *config.Config, m *metrics.Metrics) *AdmissionService {
	return &AdmissionService{
		registry: reg,
		store:    store,
		cfg:      cfg,
		metrics:  m,
		now:      time.Now,
	}
}

// OnPaymentConfirmed admits the paying user into a room. The payment
// reference is checked against the ledger first, so a re-delivered
// payment is rejected instead of double-counted. The exclusivity
// check, room matching and join run in one registry critical section;
// ledger writes happen after the lock is released.
func (s *AdmissionService) OnPaymentConfirmed(ctx context.Context, ev PaymentEvent) (*registry.JoinResult, error) {
	slog.Info("payment confirmed",
		"user_id", ev.UserID,
		"entry_fee", ev.EntryFee,
		"payment_ref", ev.PaymentRef,
	)

	if !s.cfg.AllowsEntryFee(ev.EntryFee) {
		s.metrics.RejectedJoins.Inc()
		return nil, fmt.Errorf("%w: %d", models.ErrInvalidEntryFee, ev.EntryFee)
	}

	prior, err := s.store.FindTransactionByPaymentRef(ctx, ev.PaymentRef)
	if err != nil {
		slog.Error("idempotency check failed", "payment_ref", ev.PaymentRef, "error", err)
		return nil, err
	}
	if prior != nil {
		s.metrics.DuplicatePayments.Inc()
		slog.Warn("duplicate payment delivery",
			"payment_ref", ev.PaymentRef,
			"room_id", prior.RoomID,
		)
		return nil, models.ErrDuplicatePayment
	}

	user := &models.User{
		ID:        ev.UserID,
		Username:  ev.Username,
		FirstName: ev.FirstName,
		LastName:  ev.LastName,
	}
	if err := s.store.GetOrCreateUser(ctx, user); err != nil {
		return nil, err
	}

	now := s.now()
	participant := models.Participant{
		UserID:     ev.UserID,
		Username:   ev.Username,
		FirstName:  ev.FirstName,
		PaymentRef: ev.PaymentRef,
		JoinedAt:   now,
	}

	res, err := s.registry.Admit(ev.EntryFee, participant, now)
	if err != nil {
		s.metrics.RejectedJoins.Inc()
		slog.Warn("join rejected", "user_id", ev.UserID, "error", err)
		return nil, err
	}

	if err := s.persistJoin(ctx, res, participant); err != nil {
		// The in-memory join stands; a re-delivery of this payment is
		// caught by the exclusivity check, not double-counted.
		slog.Error("join not persisted",
			"room_id", res.Room.ID,
			"user_id", ev.UserID,
			"error", err,
		)
		return nil, err
	}

	s.metrics.Joins.Inc()
	if res.Created {
		s.metrics.RoomsCreated.Inc()
	}
	slog.Info("participant joined",
		"room_id", res.Room.ID,
		"user_id", ev.UserID,
		"participants", len(res.Room.Participants),
		"capacity", s.registry.Capacity(),
		"full", res.Full,
	)
	return res, nil
}

func (s *AdmissionService) persistJoin(ctx context.Context, res *registry.JoinResult, p models.Participant) error {
	if err := s.store.UpsertRoom(ctx, res.Room); err != nil {
		return err
	}
	if err := s.store.AddRoomParticipant(ctx, res.Room.ID, p); err != nil {
		return err
	}
	from := p.UserID
	return s.store.AppendTransaction(ctx, &models.Transaction{
		RoomID:     res.Room.ID,
		FromUserID: &from,
		Amount:     res.Room.EntryFee,
		Type:       models.TxEntryFee,
		PaymentRef: p.PaymentRef,
		CreatedAt:  p.JoinedAt,
	})
}
