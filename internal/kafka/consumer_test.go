package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	ctx    context.Context
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "test-member" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }

var _ sarama.ConsumerGroupSession = (*fakeSession)(nil)

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	ch chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return TopicPaymentSuccess }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.ch }

var _ sarama.ConsumerGroupClaim = (*fakeClaim)(nil)

type scriptedHandler struct {
	errs map[string]error
	seen []string
}

func (h *scriptedHandler) HandlePaymentSuccess(_ context.Context, e PaymentSuccessEvent) error {
	h.seen = append(h.seen, e.PaymentID)
	return h.errs[e.PaymentID]
}

func paymentMsg(t *testing.T, offset int64, paymentID string) *sarama.ConsumerMessage {
	t.Helper()

	value, err := json.Marshal(PaymentSuccessEvent{PaymentID: paymentID})
	require.NoError(t, err)

	return &sarama.ConsumerMessage{
		Topic:  TopicPaymentSuccess,
		Offset: offset,
		Value:  value,
	}
}

func newTestConsumer(h PaymentSuccessHandler) *Consumer {
	return &Consumer{
		handler: h,
		logger:  slog.New(slog.DiscardHandler),
	}
}

func TestConsumeClaimMarksHandledMessages(t *testing.T) {
	handler := &scriptedHandler{}
	consumer := newTestConsumer(handler)

	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- paymentMsg(t, 10, "pay-1")
	ch <- paymentMsg(t, 11, "pay-2")
	close(ch)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, consumer.ConsumeClaim(session, &fakeClaim{ch: ch}))

	assert.Equal(t, []string{"pay-1", "pay-2"}, handler.seen)
	assert.Equal(t, []int64{10, 11}, session.marked)
}

func TestConsumeClaimStopsOnHandlerError(t *testing.T) {
	boom := errors.New("rank store down")
	handler := &scriptedHandler{errs: map[string]error{"pay-1": boom}}
	consumer := newTestConsumer(handler)

	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- paymentMsg(t, 10, "pay-1")
	ch <- paymentMsg(t, 11, "pay-2")
	close(ch)

	session := &fakeSession{ctx: context.Background()}
	err := consumer.ConsumeClaim(session, &fakeClaim{ch: ch})
	require.ErrorIs(t, err, boom)

	// The failed offset stays unmarked and nothing after it is
	// consumed: marking a later message would commit past the failure
	// and skip it for good.
	assert.Equal(t, []string{"pay-1"}, handler.seen)
	assert.Empty(t, session.marked)
}

func TestConsumeClaimDropsMalformedPayload(t *testing.T) {
	handler := &scriptedHandler{}
	consumer := newTestConsumer(handler)

	ch := make(chan *sarama.ConsumerMessage, 2)
	ch <- &sarama.ConsumerMessage{Topic: TopicPaymentSuccess, Offset: 10, Value: []byte("not json")}
	ch <- paymentMsg(t, 11, "pay-2")
	close(ch)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, consumer.ConsumeClaim(session, &fakeClaim{ch: ch}))

	assert.Equal(t, []string{"pay-2"}, handler.seen)
	assert.Equal(t, []int64{10, 11}, session.marked)
}
