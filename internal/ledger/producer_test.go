package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/smartcargo-next/internal/config"
	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	last   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.last = append([]kafka.Message{}, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducerPublishAudit(t *testing.T) {
	fw := &fakeWriter{}
	p := newProducerWithWriter(fw, "audit")

	shipmentID := uint(12)
	event := &models.AuditEvent{
		EventID:         "7c1f0d5e-1111-4a4a-9b9b-000000000001",
		EventType:       constants.EventCargoAssigned,
		Details:         models.JSON{"cargoId": 3, "vehicleId": 5},
		RelatedEntityID: &shipmentID,
		Timestamp:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, p.PublishAudit(context.Background(), event))
	require.Len(t, fw.last, 1)

	msg := fw.last[0]
	require.Equal(t, "audit", msg.Topic)
	require.Equal(t, []byte(event.EventID), msg.Key)
	require.Equal(t, constants.EventCargoAssigned, string(msg.Headers[0].Value))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	require.Equal(t, event.EventType, decoded.EventType)
	require.NotNil(t, decoded.RelatedEntityID)
	require.Equal(t, shipmentID, *decoded.RelatedEntityID)
}

func TestProducerWrapsWriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	p := newProducerWithWriter(fw, "audit")

	err := p.PublishAudit(context.Background(), &models.AuditEvent{EventID: "x", EventType: constants.EventUserRegistered})
	require.Error(t, err)
	require.Contains(t, err.Error(), "kafka publish USER_REGISTERED")
	require.Contains(t, err.Error(), "broker down")
}

func TestNewProducerDisabled(t *testing.T) {
	require.Nil(t, NewProducer(&config.LedgerConfig{Enabled: false}))

	var p *Producer
	require.NoError(t, p.PublishAudit(context.Background(), &models.AuditEvent{}))
	require.NoError(t, p.Close())
}

func TestNewProducerEnabled(t *testing.T) {
	p := NewProducer(&config.LedgerConfig{Enabled: true, Brokers: []string{"localhost:0"}})
	require.NotNil(t, p)
	require.Equal(t, "smartcargo.audit-events", p.topic)
}
