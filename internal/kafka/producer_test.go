package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

type mockWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *mockWriter) Close() error { return nil }

func TestProducer_PublishFeeAccrual(t *testing.T) {
	w := &mockWriter{}
	p := &Producer{writer: w, topic: "fee-accruals", now: func() time.Time { return fixedNow }}

	result := &models.FeeAccrualResult{
		VaultID:            "v1",
		VaultIndex:         12,
		GAV:                decimal.NewFromInt(1000),
		TotalAccruedFeeUSD: decimal.NewFromInt(20),
		CreatorShareUSD:    decimal.NewFromInt(14),
		PlatformShareUSD:   decimal.NewFromInt(6),
	}
	require.NoError(t, p.PublishFeeAccrual(context.Background(), result))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "12", string(w.msgs[0].Key))

	var event models.FeeAccrualEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, models.EventTypeFeeAccrualComputed, event.EventType)
	assert.Equal(t, 12, event.VaultIndex)
	assert.True(t, event.Timestamp.Equal(fixedNow))
	require.NotNil(t, event.Result)
	assert.True(t, event.Result.CreatorShareUSD.Equal(decimal.NewFromInt(14)))
}

func TestProducer_PublishFeeAccrual_writeError(t *testing.T) {
	p := &Producer{writer: &mockWriter{err: errors.New("broker down")}, now: time.Now}

	err := p.PublishFeeAccrual(context.Background(), &models.FeeAccrualResult{VaultIndex: 1})
	assert.ErrorContains(t, err, "broker down")
}
