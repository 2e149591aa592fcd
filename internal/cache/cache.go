// Package cache keeps finished assessment reports keyed by listing
// fingerprint. Concurrent requests for the same fingerprint share one build,
// expired entries are served stale while a background refresh runs, and the
// whole store is bounded by an LRU capacity.
package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"hostscore/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Key identifies one cacheable assessment. Extractor version is part of the
// key so a new extractor release invalidates old entries naturally.
type Key struct {
	Address          string
	ExtractorVersion string
	Tier             model.ReportTier
}

// Fingerprint derives the stable cache key for this assessment.
func (k Key) Fingerprint() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s", k.Address, k.ExtractorVersion, k.Tier)))
	return hex.EncodeToString(sum[:])
}

// Status describes how a report was obtained.
type Status string

const (
	// StatusHit means a fresh cached report was returned.
	StatusHit Status = "hit"
	// StatusStale means an expired report was returned while a background
	// refresh runs.
	StatusStale Status = "stale"
	// StatusBuilt means the report was built for this request.
	StatusBuilt Status = "built"
)

// BuildFunc produces a report for a key. It runs under a context detached
// from any single caller so an abandoned request never cancels a shared
// build.
type BuildFunc func(ctx context.Context, key Key) (*model.Report, error)

type entry struct {
	key        Key
	report     *model.Report
	builtAt    time.Time
	refreshing bool
	elem       *list.Element
}

// Coordinator is the in-process report cache.
type Coordinator struct {
	mu       sync.Mutex
	entries  map[string]*entry
	reports  map[string]string // report ID -> fingerprint
	lru      *list.List        // front is most recently used
	group    singleflight.Group
	ttl      time.Duration
	capacity int
	timeout  time.Duration
	build    BuildFunc
	logger   zerolog.Logger
	now      func() time.Time
}

func New(ttl time.Duration, capacity int, buildTimeout time.Duration, build BuildFunc, logger zerolog.Logger) *Coordinator {
	if capacity < 1 {
		capacity = 1
	}
	return &Coordinator{
		entries:  make(map[string]*entry),
		reports:  make(map[string]string),
		lru:      list.New(),
		ttl:      ttl,
		capacity: capacity,
		timeout:  buildTimeout,
		build:    build,
		logger:   logger.With().Str("service", "ReportCache").Logger(),
		now:      time.Now,
	}
}

// Get returns the report for key. A fresh entry is returned as-is; an expired
// entry is returned immediately while one background refresh is started; a
// missing entry is built once no matter how many callers ask for it. With
// force set the cached entry is ignored and a rebuild is performed, still
// shared between concurrent forcers.
//
// ctx only bounds this caller's wait. The build itself runs on a detached
// context so other waiters are unaffected when one caller goes away.
func (c *Coordinator) Get(ctx context.Context, key Key, force bool) (*model.Report, Status, error) {
	fp := key.Fingerprint()

	if !force {
		c.mu.Lock()
		if e, ok := c.entries[fp]; ok {
			if c.now().Sub(e.builtAt) < c.ttl {
				c.lru.MoveToFront(e.elem)
				report := e.report
				c.mu.Unlock()
				return report, StatusHit, nil
			}
			report := e.report
			if !e.refreshing {
				e.refreshing = true
				go c.refresh(fp, key)
			}
			c.lru.MoveToFront(e.elem)
			c.mu.Unlock()
			return report, StatusStale, nil
		}
		c.mu.Unlock()
	}

	ch := c.group.DoChan(fp, func() (interface{}, error) {
		buildCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()
		report, err := c.build(buildCtx, key)
		if err != nil {
			return nil, err
		}
		c.store(fp, key, report)
		return report, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, "", res.Err
		}
		return res.Val.(*model.Report), StatusBuilt, nil
	case <-ctx.Done():
		// The build keeps running for other waiters.
		return nil, "", ctx.Err()
	}
}

// refresh rebuilds an expired entry in the background. Failure keeps the
// stale entry in place so readers keep getting served.
func (c *Coordinator) refresh(fp string, key Key) {
	buildCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	report, err := c.build(buildCtx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("fingerprint", fp).Msg("Background refresh failed, keeping stale entry")
		c.mu.Lock()
		if e, ok := c.entries[fp]; ok {
			e.refreshing = false
		}
		c.mu.Unlock()
		return
	}
	c.store(fp, key, report)
}

// store inserts or replaces the entry for fp and evicts past capacity.
func (c *Coordinator) store(fp string, key Key, report *model.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[fp]; ok {
		delete(c.reports, e.report.ID)
		e.report = report
		e.builtAt = c.now()
		e.refreshing = false
		c.lru.MoveToFront(e.elem)
		c.reports[report.ID] = fp
		return
	}

	e := &entry{key: key, report: report, builtAt: c.now()}
	e.elem = c.lru.PushFront(fp)
	c.entries[fp] = e
	c.reports[report.ID] = fp

	for len(c.entries) > c.capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		oldFp := oldest.Value.(string)
		if old, ok := c.entries[oldFp]; ok {
			delete(c.reports, old.report.ID)
		}
		delete(c.entries, oldFp)
		c.lru.Remove(oldest)
	}
}

// ReportByID looks up a cached report by its report ID. Evicted reports are
// gone; callers treat that as not found.
func (c *Coordinator) ReportByID(id string) (*model.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fp, ok := c.reports[id]
	if !ok {
		return nil, false
	}
	e, ok := c.entries[fp]
	if !ok {
		return nil, false
	}
	return e.report, true
}

// Len reports the number of cached entries.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
