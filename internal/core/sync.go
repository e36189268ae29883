package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budgetcore/pkg/domain"
)

// Sync errors.
var (
	ErrNoSession = errors.New("cloud sync requires a signed-in session")
	ErrNoRemote  = errors.New("no remote store configured")
)

// SyncCoordinator persists repository snapshots: always to the local cache,
// and, when a backend session exists, to the user's remote document in the
// background. Remote failures are logged and counted but never undo local
// state. Uploads are whole-document replaces; the last one to finish wins.
type SyncCoordinator struct {
	cache  domain.LocalCache
	remote domain.RemoteStore
	obs    observability

	mu     sync.Mutex
	loaded bool
	closed bool
	wg     sync.WaitGroup
}

// NewSyncCoordinator builds a coordinator over cache. Remote sync is enabled
// by WithRemoteStore.
func NewSyncCoordinator(cache domain.LocalCache, opts ...Option) *SyncCoordinator {
	o := buildOptions(opts)
	return &SyncCoordinator{cache: cache, remote: o.remote, obs: o.observability}
}

// Loaded reports whether the initial load has completed.
func (c *SyncCoordinator) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Load resolves the starting snapshot. With a session the remote document is
// adopted when it holds at least one agency; otherwise, or on remote
// failure, the local cache is used (migrating the legacy layout and seeding
// defaults as needed). The result is written back to the local cache and the
// coordinator starts accepting Observe calls. A returned error concerns the
// local write only; the snapshot is usable either way.
func (c *SyncCoordinator) Load(ctx context.Context, sess *domain.Session) (domain.Snapshot, error) {
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()

	snap, ok := c.fetchRemote(ctx, sess)
	if !ok {
		var source localSource
		var err error
		snap, source, err = loadLocalSnapshot(c.cache)
		if err != nil {
			c.obs.logger.Warn("local snapshot unreadable, seeding defaults", "error", err)
			snap, source = domain.DefaultSnapshot(), sourceDefaults
		}
		c.obs.logger.Debug("loaded local snapshot", "source", string(source), "agencies", len(snap.Agencies))
	}
	err := c.saveLocal(ctx, snap)
	c.mu.Lock()
	c.loaded = true
	c.mu.Unlock()
	return snap, err
}

func (c *SyncCoordinator) fetchRemote(ctx context.Context, sess *domain.Session) (domain.Snapshot, bool) {
	if sess == nil || c.remote == nil {
		return domain.Snapshot{}, false
	}
	start := c.obs.clock.Now()
	doc, found, err := c.remote.Fetch(ctx, sess.UserID)
	c.obs.metrics.Observe(ctx, "remote_fetch", err == nil, since(c.obs.clock, start))
	switch {
	case err != nil:
		c.obs.logger.Warn("remote fetch failed, using local cache", "user_id", sess.UserID, "error", err)
		return domain.Snapshot{}, false
	case !found || len(doc.Data.Agencies) == 0:
		c.obs.logger.Info("no remote snapshot, using local cache", "user_id", sess.UserID)
		return domain.Snapshot{}, false
	}
	snap := doc.Data
	snap.Normalize()
	c.obs.logger.Info("adopted remote snapshot", "user_id", sess.UserID, "agencies", len(snap.Agencies), "updated_at", doc.UpdatedAt)
	return snap, true
}

// Observe persists snap after a change. Calls before the initial load are
// ignored. The local write is synchronous; the remote upsert runs in the
// background and is not cancelled with ctx.
func (c *SyncCoordinator) Observe(ctx context.Context, snap domain.Snapshot, sess *domain.Session) error {
	if !c.Loaded() {
		return nil
	}
	if err := c.saveLocal(ctx, snap); err != nil {
		return err
	}
	if sess == nil || c.remote == nil {
		return nil
	}
	doc := domain.RemoteDocument{Data: snap.Clone(), UpdatedAt: c.obs.clock.Now().UTC()}
	userID := sess.UserID
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.obs.logger.Warn("remote upsert skipped, coordinator closed", "user_id", userID)
		return nil
	}
	c.wg.Add(1)
	c.mu.Unlock()
	bg := context.WithoutCancel(ctx)
	go func() {
		defer c.wg.Done()
		start := c.obs.clock.Now()
		err := c.remote.Upsert(bg, userID, doc)
		c.obs.metrics.Observe(bg, "remote_upsert", err == nil, since(c.obs.clock, start))
		if err != nil {
			c.obs.logger.Error("remote upsert failed", "user_id", userID, "error", err)
			return
		}
		c.obs.logger.Debug("remote upsert done", "user_id", userID)
	}()
	return nil
}

// ForceUpload overwrites the remote document with snap and waits for the
// result.
func (c *SyncCoordinator) ForceUpload(ctx context.Context, snap domain.Snapshot, sess *domain.Session) error {
	if sess == nil {
		return ErrNoSession
	}
	if c.remote == nil {
		return ErrNoRemote
	}
	snap = snap.Clone()
	snap.Normalize()
	doc := domain.RemoteDocument{Data: snap, UpdatedAt: c.obs.clock.Now().UTC()}
	start := c.obs.clock.Now()
	err := c.remote.Upsert(ctx, sess.UserID, doc)
	c.obs.metrics.Observe(ctx, "force_upload", err == nil, since(c.obs.clock, start))
	if err != nil {
		c.obs.logger.Error("force upload failed", "user_id", sess.UserID, "error", err)
		return fmt.Errorf("upload snapshot: %w", err)
	}
	c.obs.logger.Info("force upload done", "user_id", sess.UserID, "agencies", len(snap.Agencies))
	return nil
}

// Wait blocks until background uploads started so far have finished.
func (c *SyncCoordinator) Wait() {
	c.wg.Wait()
}

// Close stops starting new background uploads and waits for the pending
// ones. Later Observe calls still write the local cache.
func (c *SyncCoordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *SyncCoordinator) saveLocal(ctx context.Context, snap domain.Snapshot) error {
	start := c.obs.clock.Now()
	err := saveLocalSnapshot(c.cache, snap.Clone())
	c.obs.metrics.Observe(ctx, "local_save", err == nil, since(c.obs.clock, start))
	if err != nil {
		c.obs.logger.Error("local save failed", "error", err)
	}
	return err
}

func since(clock Clock, start time.Time) time.Duration {
	return clock.Now().Sub(start)
}
