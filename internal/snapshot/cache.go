// Package snapshot persists the current dataset and its report as a single
// versioned, expiring entry of a key-value store.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"pdmtracker/pkg/domain"
)

const (
	// Key is the store key holding the snapshot.
	Key = "pdm_data_cache"
	// Version is the snapshot format version; other versions are discarded.
	Version = "1.0.0"
	// MaxAgeDays is the snapshot lifetime in whole days. Partial days do not
	// count, so a snapshot survives until 31 full days have passed.
	MaxAgeDays = 30
)

const day = 24 * time.Hour

// expired reports whether more than MaxAgeDays whole days separate ts and now.
func expired(ts, now time.Time) bool {
	return int64(now.Sub(ts)/day) > MaxAgeDays
}

// Snapshot pairs a dataset with its report.
type Snapshot struct {
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Dataset   *domain.Dataset        `json:"pdmData"`
	Report    *domain.AnalysisReport `json:"analisis"`
}

// Info describes the stored snapshot without decoding its payload for callers.
type Info struct {
	Exists    bool       `json:"existe"`
	Timestamp *time.Time `json:"fecha,omitempty"`
	Version   string     `json:"version,omitempty"`
}

// Restater recomputes date-dependent dataset fields on load.
type Restater func(ds *domain.Dataset, now time.Time)

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) { c.log = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache reads and writes the snapshot entry. Callers serialize access.
type Cache struct {
	store   domain.KeyValueStore
	restate Restater
	now     func() time.Time
	log     zerolog.Logger
}

// New returns a cache over store. restate runs on every successful Load.
func New(store domain.KeyValueStore, restate Restater, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		restate: restate,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the stored snapshot, or nil when there is none. Entries that
// cannot be decoded, carry another version or are older than MaxAgeDays are
// removed and reported absent. The returned dataset has been re-stated for
// the current time.
func (c *Cache) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := c.store.Get(ctx, Key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.log.Warn().Err(err).Msg("discarding undecodable snapshot")
		return nil, c.Clear(ctx)
	}
	now := c.now()
	switch {
	case snap.Version != Version:
		c.log.Info().Str("version", snap.Version).Msg("discarding snapshot from another version")
		return nil, c.Clear(ctx)
	case expired(snap.Timestamp, now):
		c.log.Info().Time("timestamp", snap.Timestamp).Msg("discarding expired snapshot")
		return nil, c.Clear(ctx)
	case snap.Dataset == nil || snap.Report == nil:
		c.log.Warn().Msg("discarding incomplete snapshot")
		return nil, c.Clear(ctx)
	}
	if c.restate != nil {
		c.restate(snap.Dataset, now)
	}
	return &snap, nil
}

// Save writes the dataset and report. A rejected write clears the entry and
// is retried once; failures are logged and never returned.
func (c *Cache) Save(ctx context.Context, ds *domain.Dataset, report *domain.AnalysisReport) {
	payload, err := json.Marshal(Snapshot{Version: Version, Timestamp: c.now().UTC(), Dataset: ds, Report: report})
	if err != nil {
		c.log.Warn().Err(err).Msg("encode snapshot")
		return
	}
	err = c.store.Set(ctx, Key, payload)
	if err == nil {
		return
	}
	c.log.Warn().Err(err).Int("bytes", len(payload)).Msg("save snapshot failed, clearing and retrying")
	if rmErr := c.store.Remove(ctx, Key); rmErr != nil {
		c.log.Warn().Err(rmErr).Msg("clear snapshot before retry")
	}
	if err := c.store.Set(ctx, Key, payload); err != nil {
		c.log.Warn().Err(err).Msg("save snapshot retry failed, giving up")
	}
}

// Clear removes the stored snapshot.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.store.Remove(ctx, Key); err != nil {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

// Info reports whether a decodable snapshot is stored, with its timestamp and version.
func (c *Cache) Info(ctx context.Context) Info {
	raw, err := c.store.Get(ctx, Key)
	if err != nil {
		return Info{}
	}
	var head struct {
		Version   string    `json:"version"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return Info{}
	}
	ts := head.Timestamp
	return Info{Exists: true, Timestamp: &ts, Version: head.Version}
}
