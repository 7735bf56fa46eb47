package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminal_bridge/internal/models"
)

func snapshot(balance int64, ts time.Time) models.AccountSnapshot {
	v := decimal.NewFromInt(balance)
	return models.AccountSnapshot{Balance: v, Equity: v, Timestamp: ts}
}

func TestAccountCache_SetGet(t *testing.T) {
	c := New()
	now := time.Now()

	_, ok := c.Get(1)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Count())

	c.Set(1, snapshot(100, now))

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, int64(1), got.AccountID)
	assert.Equal(t, models.SourceLive, got.Source)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, c.Count())
}

func TestAccountCache_SnapshotPlaceholder(t *testing.T) {
	c := New()

	snap := c.Snapshot(42)
	assert.Equal(t, models.SourceNoCache, snap.Source)
	assert.Equal(t, int64(42), snap.AccountID)
	assert.True(t, snap.Balance.IsZero())
	assert.True(t, snap.Timestamp.IsZero())
	assert.False(t, snap.HasData())
}

func TestAccountCache_MarkCached(t *testing.T) {
	c := New()
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c.Set(1, snapshot(100, ts))

	c.MarkCached(1)
	c.MarkCached(2)

	got := c.Snapshot(1)
	assert.Equal(t, models.SourceCached, got.Source)
	assert.Equal(t, ts, got.Timestamp)
	assert.True(t, got.Balance.Equal(decimal.NewFromInt(100)))

	// Nothing stored for 2, still a placeholder.
	assert.Equal(t, models.SourceNoCache, c.Snapshot(2).Source)
	assert.Equal(t, 1, c.Count())

	// A later success restores the live tag.
	c.Set(1, snapshot(120, ts.Add(time.Minute)))
	assert.Equal(t, models.SourceLive, c.Snapshot(1).Source)
}

func TestAccountCache_ConcurrentReadersSeeWholeEntries(t *testing.T) {
	c := New()
	var wg sync.WaitGroup

	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Set(1, snapshot(int64(w*1000+i), time.Now()))
			}
		}(w)
	}

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := c.Snapshot(1)
				if snap.HasData() {
					assert.True(t, snap.Balance.Equal(snap.Equity))
				}
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, 1, c.Count())
}
