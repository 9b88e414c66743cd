package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"fleet-analytics-api/models"
)

type stubLoader struct {
	mu    sync.Mutex
	calls int
	sets  []*models.TableSet
	err   error
}

func (s *stubLoader) Load(context.Context) (*models.TableSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	ts := s.sets[0]
	if len(s.sets) > 1 {
		s.sets = s.sets[1:]
	}
	return ts, nil
}

func (s *stubLoader) Describe() string { return "stub" }

func tableSet(route string) *models.TableSet {
	return &models.TableSet{
		Trips:    []models.Trip{{Route: route, Vehicle: "T1"}},
		LoadedAt: time.Now().UTC(),
	}
}

func newTestStore(loader DatasetLoader) (*SessionStore, *MemoryBackend) {
	log := zap.NewNop().Sugar()
	backend := NewMemoryBackend()
	defaults := NewDefaultDataset(loader, NewEventBus(&CacheService{}, log), log)
	return NewSessionStore(backend, defaults, time.Hour), backend
}

func TestSessionStoreFallsBackToDefault(t *testing.T) {
	loader := &stubLoader{sets: []*models.TableSet{tableSet("DEFAULT")}}
	store, _ := newTestStore(loader)

	ts, origin, err := store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, models.OriginDefault, origin)
	assert.Equal(t, "DEFAULT", ts.Trips[0].Route)

	_, _, err = store.Get(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls, "default set is loaded once and cached")
}

func TestSessionStoreIsolatesSessions(t *testing.T) {
	store, backend := newTestStore(&stubLoader{sets: []*models.TableSet{tableSet("DEFAULT")}})
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", tableSet("A1")))
	require.NoError(t, store.Put(ctx, "b", tableSet("B1")))
	require.NoError(t, store.Put(ctx, "a", tableSet("A2")))

	ts, origin, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, models.OriginUpload, origin)
	assert.Equal(t, "A2", ts.Trips[0].Route)

	ts, _, err = store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "B1", ts.Trips[0].Route)

	ts, origin, err = store.Get(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, models.OriginDefault, origin)
	assert.Equal(t, "DEFAULT", ts.Trips[0].Route)
	assert.Equal(t, 2, backend.Len())
}

func TestSessionStorePutRequiresSession(t *testing.T) {
	store, _ := newTestStore(&stubLoader{sets: []*models.TableSet{tableSet("DEFAULT")}})
	assert.Error(t, store.Put(context.Background(), "", tableSet("X")))
}

func TestMemoryBackendExpiry(t *testing.T) {
	backend := NewMemoryBackend()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, backend.Save(ctx, "old", tableSet("OLD"), time.Minute))
	_, err := backend.Load(ctx, "old")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = backend.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNoUpload)
	assert.Zero(t, backend.Len())
}

func TestMemoryBackendSaveSweepsExpired(t *testing.T) {
	backend := NewMemoryBackend()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, backend.Save(ctx, "a", tableSet("A"), time.Minute))
	now = now.Add(2 * time.Minute)
	require.NoError(t, backend.Save(ctx, "b", tableSet("B"), time.Minute))
	assert.Equal(t, 1, backend.Len())
}

func TestRedisBackendWithoutRedisHasNoUploads(t *testing.T) {
	backend := NewRedisBackend(&CacheService{})
	ctx := context.Background()
	_, err := backend.Load(ctx, "s-1")
	assert.ErrorIs(t, err, ErrNoUpload)
	assert.NoError(t, backend.Save(ctx, "s-1", tableSet("A"), time.Minute))
}

func TestDefaultDatasetUnavailable(t *testing.T) {
	store, _ := newTestStore(&stubLoader{err: os.ErrNotExist})
	_, _, err := store.Get(context.Background(), "s-1")
	assert.ErrorIs(t, err, ErrDefaultUnavailable)
}

func TestDefaultDatasetReloadKeepsPreviousOnFailure(t *testing.T) {
	log := zap.NewNop().Sugar()
	loader := &stubLoader{sets: []*models.TableSet{tableSet("V1"), tableSet("V2")}}
	d := NewDefaultDataset(loader, NewEventBus(&CacheService{}, log), log)
	ctx := context.Background()

	ts, err := d.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "V1", ts.Trips[0].Route)

	require.NoError(t, d.Reload(ctx))
	ts, _ = d.Get(ctx)
	assert.Equal(t, "V2", ts.Trips[0].Route)

	loader.mu.Lock()
	loader.err = errors.New("disk gone")
	loader.mu.Unlock()
	assert.ErrorIs(t, d.Reload(ctx), ErrDefaultUnavailable)
	ts, _ = d.Get(ctx)
	assert.Equal(t, "V2", ts.Trips[0].Route)
}

func writeWorkbook(t *testing.T, path string, weights ...float64) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheets := map[string][][]interface{}{
		models.SheetTrips:       {{"Ruta", "Tractocamión", "Fecha Salida", "Peso Kgs", "Estatus de Viaje"}},
		models.SheetAssignments: {{"Ruta", "Tractocamión", "Prob_vacio"}, {"R1", "T1", 0.2}},
		models.SheetRisk:        {{"Ruta", "Tractocamión", "Prob_vacio"}, {"R1", "T1", 0.4}},
		models.SheetForecast:    {{"Fecha", "pronostico"}, {"2026-01-01", 0.1}},
	}
	for _, w := range weights {
		sheets[models.SheetTrips] = append(sheets[models.SheetTrips], []interface{}{"R1", "T1", "2025-01-10", w, "Cerrado"})
	}
	for i, name := range models.RequiredSheets {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	tmp := filepath.Join(filepath.Dir(path), "next-"+filepath.Base(path))
	require.NoError(t, f.SaveAs(tmp))
	require.NoError(t, os.Rename(tmp, path))
}

func TestWorkbookLoaderFlagsEmptyTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Viajes.xlsx")
	writeWorkbook(t, path, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100)

	ts, err := WorkbookLoader{Path: path, Quantile: 0.10}.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ts.Trips, 10)
	require.NotNil(t, ts.EmptyThreshold)
	assert.InDelta(t, 19.0, *ts.EmptyThreshold, 1e-9)
	assert.True(t, ts.Trips[0].IsEmpty)
	assert.False(t, ts.Trips[1].IsEmpty)
}

func TestWorkbookLoaderMissingFile(t *testing.T) {
	_, err := WorkbookLoader{Path: filepath.Join(t.TempDir(), "nope.xlsx")}.Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatchWorkbookReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Viajes.xlsx")
	writeWorkbook(t, path, 100)

	log := zap.NewNop().Sugar()
	d := NewDefaultDataset(WorkbookLoader{Path: path, Quantile: 0.10}, NewEventBus(&CacheService{}, log), log)
	ts, err := d.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, ts.Trips, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- WatchWorkbook(ctx, path, d, log) }()
	defer func() {
		cancel()
		<-done
	}()

	// give the watcher time to register before the write
	time.Sleep(100 * time.Millisecond)
	writeWorkbook(t, path, 100, 200, 300)

	assert.Eventually(t, func() bool {
		ts, err := d.Get(context.Background())
		return err == nil && len(ts.Trips) == 3
	}, 5*time.Second, 50*time.Millisecond)
}
