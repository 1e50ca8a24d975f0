package analytics

import (
	"context"
	"time"

	"linkgate/internal/entities"
	"linkgate/internal/logging"
	"linkgate/internal/metrics"
)

// ClickStore persists batches of click events.
type ClickStore interface {
	InsertClicks(ctx context.Context, events []entities.ClickEvent) error
}

type RecorderConfig struct {
	Buffer        int
	BatchSize     int
	FlushInterval time.Duration
}

// Recorder buffers click events in memory and writes them in batches from
// a single goroutine. Record never blocks: when the buffer is full the
// event is dropped. The per-link click counter is maintained separately,
// so a dropped event only thins the breakdowns.
type Recorder struct {
	store    ClickStore
	events   chan entities.ClickEvent
	batch    int
	interval time.Duration
}

func NewRecorder(store ClickStore, cfg RecorderConfig) *Recorder {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 1024
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	return &Recorder{
		store:    store,
		events:   make(chan entities.ClickEvent, cfg.Buffer),
		batch:    cfg.BatchSize,
		interval: cfg.FlushInterval,
	}
}

// Record queues e and reports whether it was accepted.
func (r *Recorder) Record(e entities.ClickEvent) bool {
	select {
	case r.events <- e:
		return true
	default:
		metrics.AnalyticsEvents.WithLabelValues("dropped").Inc()
		logging.Warn().Str("short_code", e.ShortCode).Msg("click buffer full, dropping event")
		return false
	}
}

// Run flushes queued events until ctx is cancelled, then drains what is
// left in the buffer and returns.
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	pending := make([]entities.ClickEvent, 0, r.batch)
	logging.Info().Dur("interval", r.interval).Int("batch", r.batch).Msg("click recorder started")

	for {
		select {
		case e := <-r.events:
			pending = append(pending, e)
			if len(pending) >= r.batch {
				pending = r.flush(pending)
			}
		case <-ticker.C:
			pending = r.flush(pending)
		case <-ctx.Done():
			for {
				select {
				case e := <-r.events:
					pending = append(pending, e)
				default:
					r.flush(pending)
					logging.Info().Msg("click recorder stopped")
					return
				}
			}
		}
	}
}

func (r *Recorder) flush(pending []entities.ClickEvent) []entities.ClickEvent {
	if len(pending) == 0 {
		return pending
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.InsertClicks(ctx, pending); err != nil {
		metrics.AnalyticsEvents.WithLabelValues("failed").Add(float64(len(pending)))
		logging.Warn().Err(err).Int("events", len(pending)).Msg("failed to flush click events")
	} else {
		metrics.AnalyticsEvents.WithLabelValues("flushed").Add(float64(len(pending)))
	}
	return make([]entities.ClickEvent, 0, r.batch)
}
