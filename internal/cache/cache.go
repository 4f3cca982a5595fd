// Package cache memoizes daily analysis results per (user, business date).
// A small RWMutex-guarded map is the primary tier; an optional key-value
// store persists snapshots across restarts. Store failures degrade to a
// cache miss, never to a request failure.
package cache

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/mkarlsen/daylog/internal/timeline"
)

// ErrUnavailable marks persistent-tier failures; callers treat it as a miss.
var ErrUnavailable = errors.New("cache unavailable")

const DefaultMaxAge = 60 * time.Minute

// KV is the optional persistent tier. The sqlite store's state table
// satisfies it.
type KV interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
	DeleteState(key string) error
}

type Service struct {
	mu      sync.RWMutex
	results map[string]timeline.DailyResult
	maxAge  time.Duration
	kv      KV
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a cache with the given max age. kv may be nil for memory-only
// operation.
func New(maxAge time.Duration, kv KV, logger *slog.Logger) *Service {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		results: make(map[string]timeline.DailyResult),
		maxAge:  maxAge,
		kv:      kv,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the cached result for the key, missing when none is stored or
// the entry has outlived the max age.
func (c *Service) Get(userID, businessDate string) (timeline.DailyResult, bool) {
	key := cacheKey(userID, businessDate)

	c.mu.RLock()
	res, ok := c.results[key]
	c.mu.RUnlock()

	if ok && c.fresh(res) {
		return res, true
	}

	if res, ok := c.loadKV(key); ok && c.fresh(res) {
		c.mu.Lock()
		c.results[key] = res
		c.mu.Unlock()
		return res, true
	}

	return timeline.DailyResult{}, false
}

// Put stores the result unless the cache already holds a fresher note set for
// the same key: an invalidate-then-recompute race must not let a stale
// recompute overwrite newer data.
func (c *Service) Put(userID, businessDate string, res timeline.DailyResult) {
	key := cacheKey(userID, businessDate)

	c.mu.Lock()
	if cached, ok := c.results[key]; ok && cached.NoteVersion > res.NoteVersion {
		c.mu.Unlock()
		c.logger.Debug("dropping stale cache write",
			"key", key,
			"cached_version", cached.NoteVersion,
			"incoming_version", res.NoteVersion,
		)
		return
	}
	c.results[key] = res
	c.mu.Unlock()

	c.storeKV(key, res)
}

// Invalidate removes the cached result, typically on new-note ingestion.
func (c *Service) Invalidate(userID, businessDate string) {
	key := cacheKey(userID, businessDate)

	c.mu.Lock()
	delete(c.results, key)
	c.mu.Unlock()

	if c.kv == nil {
		return
	}
	if err := c.kv.DeleteState(key); err != nil {
		c.logger.Debug("cache invalidate failed on persistent tier", "key", key, "error", err)
	}
}

func (c *Service) fresh(res timeline.DailyResult) bool {
	return c.now().Sub(res.GeneratedAt) <= c.maxAge
}

func (c *Service) loadKV(key string) (timeline.DailyResult, bool) {
	if c.kv == nil {
		return timeline.DailyResult{}, false
	}
	val, err := c.kv.GetState(key)
	if err != nil {
		c.logger.Debug("cache read failed, treating as miss", "key", key, "error", err)
		return timeline.DailyResult{}, false
	}
	if val == "" {
		return timeline.DailyResult{}, false
	}
	var res timeline.DailyResult
	if err := json.Unmarshal([]byte(val), &res); err != nil {
		c.logger.Debug("cached snapshot unparseable, treating as miss", "key", key, "error", err)
		return timeline.DailyResult{}, false
	}
	return res, true
}

func (c *Service) storeKV(key string, res timeline.DailyResult) {
	if c.kv == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Debug("marshaling cache snapshot failed", "key", key, "error", err)
		return
	}
	if err := c.kv.SetState(key, string(data)); err != nil {
		c.logger.Debug("cache write failed on persistent tier", "key", key, "error", err)
	}
}

func cacheKey(userID, businessDate string) string {
	return "analysis:" + userID + ":" + businessDate
}
