package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/meihua/internal/models"
)

func gameConfig(t *testing.T, g models.GameType) models.GameConfig {
	t.Helper()
	cfg, err := models.LookupGame(g)
	require.NoError(t, err)
	return cfg
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		game    models.GameType
		line    string
		ok      bool
		period  string
		numbers []int
		special *int
	}{
		{
			name:    "ssq reds sorted and blue kept",
			game:    models.GameSSQ,
			line:    "2024001   2024-01-01  01 02 03 04 05 06 07",
			ok:      true,
			period:  "2024001",
			numbers: []int{1, 2, 3, 4, 5, 6},
			special: models.IntPtr(7),
		},
		{
			name:    "ssq unsorted reds",
			game:    models.GameSSQ,
			line:    "2024002 2024-01-04 33 08 15 01 22 09 12 extra",
			ok:      true,
			period:  "2024002",
			numbers: []int{1, 8, 9, 15, 22, 33},
			special: models.IntPtr(12),
		},
		{
			name:    "dlt keeps first back number",
			game:    models.GameDLT,
			line:    "2024010 2024-02-01 35 01 12 07 20 11 03",
			ok:      true,
			period:  "2024010",
			numbers: []int{1, 7, 12, 20, 35},
			special: models.IntPtr(11),
		},
		{
			name:    "keno8 twenty numbers with separators",
			game:    models.GameKeno8,
			line:    "2024100 2024-03-01 80 1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16 17 18 19, 1,234",
			ok:      true,
			period:  "2024100",
			numbers: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 80},
		},
		{
			name: "wrong period width",
			game: models.GameSSQ,
			line: "202401 2024-01-01 01 02 03 04 05 06 07",
		},
		{
			name: "too few numbers",
			game: models.GameSSQ,
			line: "2024001 2024-01-01 01 02 03 04 05 06",
		},
		{
			name: "non numeric tokens skipped but still short",
			game: models.GameSSQ,
			line: "2024001 2024-01-01 01 x2 03 04 05 06 07",
		},
		{
			name: "blank",
			game: models.GameSSQ,
			line: "   ",
		},
		{
			name: "unknown game",
			game: "pick3",
			line: "2024001 2024-01-01 1 2 3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ParseLine(tt.game, tt.line)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.period, rec.Period)
			assert.Equal(t, tt.numbers, rec.Numbers)
			assert.Equal(t, tt.special, rec.Special)
			assert.NoError(t, rec.Validate())
		})
	}
}

func TestParseDatasetSortsAndSkips(t *testing.T) {
	input := strings.Join([]string{
		"2024003 2024-01-08 01 02 03 04 05 06 07",
		"garbage line",
		"2024001 2024-01-01 11 12 13 14 15 16 01",
		"",
		"2024002 2024-01-04 21 22 23 24 25 26 02",
	}, "\n")

	records, err := ParseDataset(models.GameSSQ, strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2024001", records[0].Period)
	assert.Equal(t, "2024002", records[1].Period)
	assert.Equal(t, "2024003", records[2].Period)
}

func TestLoadDatasetMissingFile(t *testing.T) {
	records, err := LoadDataset(models.GameSSQ, filepath.Join(t.TempDir(), "none.txt"))
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	s := NewStore(dir, 0, 0)

	records, err := s.Load(models.GameSSQ)
	require.NoError(t, err)
	assert.Empty(t, records)

	want := SimulatedHistory(gameConfig(t, models.GameSSQ), 5, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), 1)
	require.NoError(t, s.Save(models.GameSSQ, want))
	assert.FileExists(t, filepath.Join(dir, "ssq_history.json"))
	assert.NoFileExists(t, filepath.Join(dir, "ssq_history.json.tmp"))

	got, err := s.Load(models.GameSSQ)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = NewStore(dir, 0, 0).Load(models.GameDLT)
	assert.NoError(t, err)
}

func TestStoreRejectsCorruptCache(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 0, 0)
	require.NoError(t, os.WriteFile(s.Path(models.GameKeno8), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(s.Path(models.GameKeno8)+".tmp", []byte("stale"), 0o644))

	_, err := s.Load(models.GameKeno8)
	assert.Error(t, err)
	assert.NoFileExists(t, s.Path(models.GameKeno8)+".tmp")
}

func TestSimulatedHistory(t *testing.T) {
	now := time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC)
	for _, g := range models.GameTypes {
		t.Run(string(g), func(t *testing.T) {
			cfg := gameConfig(t, g)
			records := SimulatedHistory(cfg, 30, now, 99)
			require.Len(t, records, 30)
			assert.Equal(t, "2024-04-20", records[0].Timestamp)
			assert.Equal(t, "2024-05-19", records[29].Timestamp)
			assert.Equal(t, "sim_0", records[0].Period)

			for _, rec := range records {
				require.Len(t, rec.Numbers, cfg.DrawnNumbers)
				assert.IsIncreasing(t, rec.Numbers)
				assert.GreaterOrEqual(t, rec.Numbers[0], 1)
				assert.LessOrEqual(t, rec.Numbers[len(rec.Numbers)-1], cfg.TotalNumbers)
				if cfg.SpecialNumbers > 0 {
					require.NotNil(t, rec.Special)
					assert.LessOrEqual(t, *rec.Special, cfg.SpecialNumbers)
				} else {
					assert.Nil(t, rec.Special)
				}
			}
			assert.Equal(t, records, SimulatedHistory(cfg, 30, now, 99))
			assert.NotEqual(t, records, SimulatedHistory(cfg, 30, now, 100))
		})
	}
	assert.Nil(t, SimulatedHistory(gameConfig(t, models.GameSSQ), 0, now, 1))
}

type stubFetcher struct {
	records []models.HistoryRecord
	err     error
	calls   int
}

func (f *stubFetcher) Fetch(context.Context, models.GameConfig) ([]models.HistoryRecord, error) {
	f.calls++
	return f.records, f.err
}

func writeDataset(t *testing.T, dir string, lines ...string) {
	t.Helper()
	path := filepath.Join(dir, "ssq_asc.txt")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))
}

func TestManagerLoad(t *testing.T) {
	now := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ssq := gameConfig(t, models.GameSSQ)

	fetched := []models.HistoryRecord{
		{Period: "2024002", Numbers: []int{1, 2, 3, 4, 5, 6}, Timestamp: "2024-01-08", Special: models.IntPtr(1)},
		{Period: "2024001", Numbers: []int{7, 8, 9, 10, 11, 12}, Timestamp: "2024-01-04", Special: models.IntPtr(2)},
	}

	t.Run("remote source sorted and cached", func(t *testing.T) {
		store := NewStore(t.TempDir(), 0, 0)
		fetcher := &stubFetcher{records: fetched}
		m := NewManager(ManagerConfig{Game: ssq, Store: store, Fetcher: fetcher, Now: clock})

		records, err := m.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "2024001", records[0].Period)
		assert.Equal(t, "2024002", fetched[0].Period)

		// cache is fresh now, the fetcher is not asked again
		again, err := m.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, records, again)
		assert.Equal(t, 1, fetcher.calls)
	})

	t.Run("force update ignores fresh cache", func(t *testing.T) {
		store := NewStore(t.TempDir(), 0, 0)
		require.NoError(t, store.Save(models.GameSSQ, fetched[:1]))
		fetcher := &stubFetcher{records: fetched}
		m := NewManager(ManagerConfig{Game: ssq, Store: store, Fetcher: fetcher, ForceUpdate: true, Now: clock})

		records, err := m.Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, records, 2)
		assert.Equal(t, 1, fetcher.calls)
	})

	t.Run("stale cache trimmed on refresh", func(t *testing.T) {
		store := NewStore(t.TempDir(), 0, 0)
		require.NoError(t, store.Save(models.GameSSQ, fetched[1:]))
		fetcher := &stubFetcher{records: fetched}
		m := NewManager(ManagerConfig{Game: ssq, Store: store, Fetcher: fetcher, MaxPeriods: 1, Now: clock})

		records, err := m.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "2024002", records[0].Period)
	})

	t.Run("fetch failure falls back to local dataset", func(t *testing.T) {
		dir := t.TempDir()
		writeDataset(t, dir,
			"2023150 2023-12-31 01 02 03 04 05 06 07",
			"2023149 2023-12-28 08 09 10 11 12 13 14",
			"bad",
		)
		fetcher := &stubFetcher{err: errors.New("offline")}
		m := NewManager(ManagerConfig{Game: ssq, Fetcher: fetcher, DatasetDir: dir, Now: clock})

		records, err := m.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "2023149", records[0].Period)
		assert.Equal(t, 7, *records[1].Special)
	})

	t.Run("simulation as last resort", func(t *testing.T) {
		m := NewManager(ManagerConfig{Game: ssq, DatasetDir: t.TempDir(), MaxPeriods: 12, Seed: 5, Now: clock})
		records, err := m.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SimulatedHistory(ssq, 12, now, 5), records)
	})

	t.Run("no simulation gives no data", func(t *testing.T) {
		m := NewManager(ManagerConfig{Game: ssq, SimulatedPeriods: -1, Now: clock})
		_, err := m.Load(context.Background())
		assert.ErrorIs(t, err, ErrNoData)
	})
}
