// Package ingest pulls the upstream observations feed, filters it to the
// stations the catalog knows, and persists the result.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
	"github.com/couchcryptid/delivery-fee-service/internal/observability"
)

// ObservationWriter persists a batch of observations.
type ObservationWriter interface {
	InsertMany(ctx context.Context, observations []domain.Observation) error
}

// Publisher forwards persisted observations to downstream consumers.
// Publishing is best-effort; failures never fail an ingestion cycle.
type Publisher interface {
	PublishBatch(ctx context.Context, observations []domain.Observation) error
}

// Ingester runs the fetch-parse-filter-persist cycle. It keeps the last
// successfully parsed document in memory and reprocesses it when the
// upstream is unavailable, so a flaky feed degrades to stale-but-present
// data instead of gaps.
type Ingester struct {
	fetcher   Fetcher
	store     ObservationWriter
	publisher Publisher // nil when publishing is disabled
	stations  map[int]bool
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu       sync.Mutex // serializes cycles; guards lastGood
	lastGood []byte
	ready    atomic.Bool
}

// New creates an Ingester. Pass a nil publisher to disable downstream
// publishing.
func New(fetcher Fetcher, store ObservationWriter, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics) *Ingester {
	return &Ingester{
		fetcher:   fetcher,
		store:     store,
		publisher: publisher,
		stations:  domain.StationCodes(),
		logger:    logger,
		metrics:   metrics,
	}
}

// Update runs one ingestion cycle: fetch the feed, parse it, filter to known
// stations, and persist. When the fetch or parse fails and a previous
// document is cached, that document is reprocessed instead; with no cached
// document the cycle fails. Cycles never overlap.
func (i *Ingester) Update(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	data, err := i.fetcher.Fetch(ctx)
	if err == nil {
		var observations []domain.Observation
		if observations, err = domain.ParseFeed(data); err == nil {
			if err := i.persistLocked(ctx, observations); err != nil {
				i.metrics.IngestRuns.WithLabelValues("error").Inc()
				return err
			}
			i.lastGood = data
			i.markSuccess("success")
			return nil
		}
	}

	if i.lastGood == nil {
		i.metrics.IngestRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("update observations: %w", err)
	}

	i.logger.Warn("upstream unavailable, reprocessing last good document", "error", err)
	observations, parseErr := domain.ParseFeed(i.lastGood)
	if parseErr != nil {
		// lastGood parsed once already; reaching this means memory corruption.
		i.metrics.IngestRuns.WithLabelValues("error").Inc()
		return parseErr
	}
	if err := i.persistLocked(ctx, observations); err != nil {
		i.metrics.IngestRuns.WithLabelValues("error").Inc()
		return err
	}
	i.markSuccess("fallback")
	return nil
}

// ProcessDocument parses and persists an already-fetched document, bypassing
// the upstream fetch. It shares the persist tail with Update and exists so
// tests can drive the pipeline with fixture documents.
func (i *Ingester) ProcessDocument(ctx context.Context, data []byte) error {
	observations, err := domain.ParseFeed(data)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	return i.persistLocked(ctx, observations)
}

// CheckReadiness returns nil once at least one cycle has persisted
// successfully.
func (i *Ingester) CheckReadiness(_ context.Context) error {
	if !i.ready.Load() {
		return errors.New("no observations ingested yet")
	}
	return nil
}

func (i *Ingester) persistLocked(ctx context.Context, observations []domain.Observation) error {
	kept := observations[:0:0]
	for _, obs := range observations {
		if i.stations[obs.WMOCode] {
			kept = append(kept, obs)
		}
	}
	if dropped := len(observations) - len(kept); dropped > 0 {
		i.metrics.ObservationsFiltered.Add(float64(dropped))
	}
	if len(kept) == 0 {
		i.logger.Warn("document contained no catalog stations")
		return nil
	}

	if err := i.store.InsertMany(ctx, kept); err != nil {
		return fmt.Errorf("persist observations: %w", err)
	}
	i.metrics.ObservationsPersisted.Add(float64(len(kept)))
	i.logger.Info("observations ingested", "count", len(kept))

	if i.publisher != nil {
		if err := i.publisher.PublishBatch(ctx, kept); err != nil {
			i.logger.Warn("publish observations failed", "error", err)
		}
	}
	return nil
}

func (i *Ingester) markSuccess(outcome string) {
	i.metrics.IngestRuns.WithLabelValues(outcome).Inc()
	i.metrics.LastIngestSuccess.Set(float64(clock.Now().Unix()))
	i.ready.Store(true)
}
