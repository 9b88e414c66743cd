package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleet-analytics-api/analytics"
	"fleet-analytics-api/metrics"
	"fleet-analytics-api/models"
	"fleet-analytics-api/workbook"
)

// ErrDefaultUnavailable wraps any failure to produce the default dataset.
var ErrDefaultUnavailable = errors.New("default dataset unavailable")

// DatasetLoader produces a fully prepared table set.
type DatasetLoader interface {
	Load(ctx context.Context) (*models.TableSet, error)
	Describe() string
}

// WorkbookLoader reads the bundled workbook from disk.
type WorkbookLoader struct {
	Path     string
	Quantile float64
}

func (l WorkbookLoader) Load(_ context.Context) (*models.TableSet, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ts, err := workbook.Parse(f)
	if err != nil {
		return nil, err
	}
	analytics.Prepare(ts, l.Quantile)
	return ts, nil
}

func (l WorkbookLoader) Describe() string { return "workbook " + l.Path }

// PostgresLoader reads the tables the upstream scoring, optimisation and
// forecast jobs write. It never writes.
type PostgresLoader struct {
	DB       *gorm.DB
	Quantile float64
}

func (l PostgresLoader) Load(ctx context.Context) (*models.TableSet, error) {
	db := l.DB.WithContext(ctx)
	ts := &models.TableSet{Columns: make(map[string][]string, len(models.RequiredColumns))}

	if err := db.Order("departure_date").Find(&ts.Trips).Error; err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	if err := db.Find(&ts.Assignments).Error; err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	if err := db.Find(&ts.Risk).Error; err != nil {
		return nil, fmt.Errorf("query risk scores: %w", err)
	}
	if err := db.Order("date").Find(&ts.Forecast).Error; err != nil {
		return nil, fmt.Errorf("query forecasts: %w", err)
	}

	// The tables have a fixed schema, so every view column is present.
	for sheet, cols := range models.RequiredColumns {
		ts.Columns[sheet] = append([]string(nil), cols...)
	}
	ts.LoadedAt = time.Now().UTC()
	analytics.Prepare(ts, l.Quantile)
	return ts, nil
}

func (l PostgresLoader) Describe() string { return "postgres" }

// DefaultDataset is the read-only table set shown to sessions without an
// upload. It loads lazily and is swapped atomically on reload.
type DefaultDataset struct {
	loader  DatasetLoader
	log     *zap.SugaredLogger
	events  *EventBus
	current atomic.Pointer[models.TableSet]
	mu      sync.Mutex
}

func NewDefaultDataset(loader DatasetLoader, events *EventBus, log *zap.SugaredLogger) *DefaultDataset {
	return &DefaultDataset{loader: loader, events: events, log: log}
}

func (d *DefaultDataset) Get(ctx context.Context) (*models.TableSet, error) {
	if ts := d.current.Load(); ts != nil {
		return ts, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if ts := d.current.Load(); ts != nil {
		return ts, nil
	}
	ts, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	d.current.Store(ts)
	return ts, nil
}

// Reload replaces the cached set. On failure the previous set stays active.
func (d *DefaultDataset) Reload(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ts, err := d.load(ctx)
	if err != nil {
		return err
	}
	d.current.Store(ts)
	d.events.Publish(ctx, Event{Type: EventDatasetReloaded, Scope: ScopeDefault, LoadedAt: ts.LoadedAt, Trips: len(ts.Trips)})
	return nil
}

func (d *DefaultDataset) load(ctx context.Context) (*models.TableSet, error) {
	ts, err := d.loader.Load(ctx)
	if err != nil {
		metrics.DefaultReloads.WithLabelValues("error").Inc()
		d.log.Errorw("default dataset load failed", "source", d.loader.Describe(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrDefaultUnavailable, err)
	}
	metrics.DefaultReloads.WithLabelValues("ok").Inc()
	d.log.Infow("default dataset loaded", "source", d.loader.Describe(), "trips", len(ts.Trips), "risk_rows", len(ts.Risk))
	return ts, nil
}
