package alert

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/equitrader/journal"
	"github.com/rustyeddy/equitrader/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kst = time.FixedZone("KST", 9*3600)

type mapMemory struct {
	seen map[string]bool
	err  error
}

func (m *mapMemory) RememberAlert(symbol, signalType string, day time.Time) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	key := symbol + ":" + signalType + ":" + day.Format("2006-01-02")
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func TestRemember_OncePerDay(t *testing.T) {
	t.Parallel()

	d := New(&mapMemory{seen: map[string]bool{}}, kst, zerolog.Nop())
	at := time.Date(2024, 3, 4, 9, 0, 0, 0, kst)

	assert.True(t, d.Remember("A", risk.StopLoss, at))
	assert.False(t, d.Remember("A", risk.StopLoss, at.Add(2*time.Hour)))
	assert.True(t, d.Remember("A", risk.Trailing, at))
	assert.True(t, d.Remember("B", risk.StopLoss, at))
	assert.True(t, d.Remember("A", risk.StopLoss, at.AddDate(0, 0, 1)))
}

func TestRemember_DateInLocation(t *testing.T) {
	t.Parallel()

	d := New(&mapMemory{seen: map[string]bool{}}, kst, zerolog.Nop())

	// both instants fall on 2024-03-05 in KST
	assert.True(t, d.Remember("A", risk.StopLoss, time.Date(2024, 3, 4, 16, 0, 0, 0, time.UTC)))
	assert.False(t, d.Remember("A", risk.StopLoss, time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC)))
}

func TestRemember_MemoryFailureSuppresses(t *testing.T) {
	t.Parallel()

	d := New(&mapMemory{err: errors.New("disk full")}, kst, zerolog.Nop())
	assert.False(t, d.Remember("A", risk.StopLoss, time.Now()))
}

func TestRemember_WithJournal(t *testing.T) {
	t.Parallel()

	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "alerts.db"), journal.WithLocation(kst))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	d := New(j, kst, zerolog.Nop())
	at := time.Date(2024, 3, 4, 9, 0, 0, 0, kst)
	assert.True(t, d.Remember("005930.KS", risk.TakeProfit, at))
	for i := 0; i < 5; i++ {
		assert.False(t, d.Remember("005930.KS", risk.TakeProfit, at))
	}
}
