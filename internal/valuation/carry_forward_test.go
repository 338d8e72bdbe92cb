package valuation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

func TestResolveCarryForward(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("carries stale prices forward", func(t *testing.T) {
		ticks := []models.PriceTick{
			tick("A", "100", t0),
			tick("B", "200", t0),
			tick("B", "210", t0.Add(60*time.Minute)),
		}
		b, err := Aggregate(ticks, IntervalHour)
		require.NoError(t, err)

		resolved := ResolveCarryForward(b, []string{"A", "B"})
		require.Len(t, resolved, 2)

		assert.True(t, resolved[0].Prices["A"].Equal(decimal.NewFromInt(100)))
		assert.True(t, resolved[0].Prices["B"].Equal(decimal.NewFromInt(200)))
		assert.True(t, resolved[0].Fresh["A"])

		assert.True(t, resolved[1].Prices["A"].Equal(decimal.NewFromInt(100)))
		assert.False(t, resolved[1].Fresh["A"])
		assert.True(t, resolved[1].Prices["B"].Equal(decimal.NewFromInt(210)))
		assert.True(t, resolved[1].Fresh["B"])
	})

	t.Run("asset without earlier data is absent, bucket still emitted", func(t *testing.T) {
		ticks := []models.PriceTick{
			tick("B", "5", t0),
			tick("A", "7", t0.Add(time.Hour)),
		}
		b, err := Aggregate(ticks, IntervalHour)
		require.NoError(t, err)

		resolved := ResolveCarryForward(b, []string{"A", "B"})
		require.Len(t, resolved, 2)
		_, hasA := resolved[0].Prices["A"]
		assert.False(t, hasA)
		assert.Len(t, resolved[1].Prices, 2)
	})

	t.Run("buckets with no basket data are dropped", func(t *testing.T) {
		ticks := []models.PriceTick{
			tick("OTHER", "1", t0),
			tick("A", "7", t0.Add(2*time.Hour)),
		}
		b, err := Aggregate(ticks, IntervalHour)
		require.NoError(t, err)

		resolved := ResolveCarryForward(b, []string{"A"})
		require.Len(t, resolved, 1)
		assert.True(t, t0.Add(2*time.Hour).Equal(resolved[0].Start))
	})

	t.Run("no data yields nothing", func(t *testing.T) {
		b, err := Aggregate(nil, IntervalDay)
		require.NoError(t, err)
		assert.Empty(t, ResolveCarryForward(b, []string{"A"}))
	})

	t.Run("never looks ahead", func(t *testing.T) {
		past := []models.PriceTick{
			tick("A", "100", t0),
			tick("B", "50", t0.Add(time.Hour)),
		}
		future := append([]models.PriceTick{
			tick("A", "999", t0.Add(3*time.Hour)),
			tick("B", "1", t0.Add(4*time.Hour)),
		}, past...)

		before, err := Aggregate(past, IntervalHour)
		require.NoError(t, err)
		after, err := Aggregate(future, IntervalHour)
		require.NoError(t, err)

		withoutFuture := ResolveCarryForward(before, []string{"A", "B"})
		withFuture := ResolveCarryForward(after, []string{"A", "B"})
		require.Len(t, withFuture, 4)

		for i, rb := range withoutFuture {
			assert.True(t, rb.Start.Equal(withFuture[i].Start))
			assert.Equal(t, len(rb.Prices), len(withFuture[i].Prices))
			for key, price := range rb.Prices {
				assert.True(t, price.Equal(withFuture[i].Prices[key]), "bucket %d asset %s", i, key)
			}
		}
	})
}
