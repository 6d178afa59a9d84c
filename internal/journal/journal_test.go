package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Record(Event{Symbol: "ETHUSDT", Kind: KindEntry, Side: "BUY", Price: 2000, Quantity: 2}))
	require.NoError(t, j.Record(Event{Symbol: "ETHUSDT", Kind: KindTakeProfit, Side: "SELL", Price: 2030, Quantity: 2, PnL: 60}))

	events, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, KindTakeProfit, events[0].Kind)
	assert.Equal(t, KindEntry, events[1].Kind)
	assert.False(t, events[0].CreatedAt.IsZero())
}

func TestNilJournalIsSafe(t *testing.T) {
	var j *Journal
	assert.NoError(t, j.Record(Event{Kind: KindAdd}))
	events, err := j.Recent(5)
	assert.NoError(t, err)
	assert.Nil(t, events)
	assert.NoError(t, j.Close())
}
