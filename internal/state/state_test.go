package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "state.yaml"), 4)
	st, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, PhasePending, st.Bootstrap)
	assert.False(t, st.HasPosition())
	assert.Zero(t, st.AddCount)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	store := NewStore(path, 4)

	st := Default()
	st.OpenPosition(2000, time.Unix(1700000000, 0))
	st.AddCount = 2
	st.LastAddPrice = 1960
	st.TrailActive = true
	st.TrailAnchorPrice = 2080
	st.TrailDist = 16
	st.Bootstrap = PhaseDone
	st.LastRegime = "TREND"
	require.NoError(t, store.Save(st))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, st, loaded)

	// The document stays human-readable key/value.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "entry_price: 2000")
	assert.Contains(t, string(raw), "bootstrap_phase: DONE")
}

func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")
	store := NewStore(path, 4)
	require.NoError(t, store.Save(Default()))
	st := Default()
	st.EntryPrice = 1234
	require.NoError(t, store.Save(st))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLoadRejectsMalformedState(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad add_count", "add_count: 9\nbootstrap_phase: DONE\n"},
		{"negative add_count", "add_count: -1\nbootstrap_phase: DONE\n"},
		{"unknown phase", "bootstrap_phase: MAYBE\n"},
		{"trail without anchor", "trail_active: true\nbootstrap_phase: DONE\n"},
		{"negative loss", "daily_loss_realized: -5\nbootstrap_phase: DONE\n"},
		{"not yaml", "{{{{\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "state.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o644))
			_, err := NewStore(path, 4).Load()
			assert.Error(t, err)
		})
	}
}

func TestClosePositionClearsEverything(t *testing.T) {
	st := Default()
	st.OpenPosition(2000, time.Unix(1700000000, 0))
	st.TrailActive = true
	st.TrailAnchorPrice = 2100
	st.TrailDist = 20
	st.AddCount = 1

	st.ClosePosition(2050, time.Unix(1700003600, 0))
	assert.False(t, st.HasPosition())
	assert.Equal(t, 2050.0, st.LastExitPrice)
	assert.EqualValues(t, 1700003600, st.LastExitAt)
	assert.False(t, st.TrailActive)
	assert.Zero(t, st.AddCount)
	assert.Zero(t, st.OpenedAt)
}

func TestRollLossDay(t *testing.T) {
	st := Default()
	st.DailyLossRealized = 12
	st.LossDay = "2024-04-08"
	st.RollLossDay(time.Date(2024, 4, 8, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, 12.0, st.DailyLossRealized)
	st.RollLossDay(time.Date(2024, 4, 9, 0, 5, 0, 0, time.UTC))
	assert.Zero(t, st.DailyLossRealized)
	assert.Equal(t, "2024-04-09", st.LossDay)
}
