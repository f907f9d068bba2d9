package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"debt_flow_app_go/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dashboard cache keys
const (
	DashboardSnapshotKey = "dashboard:snapshot"
	DashboardSeqKey      = "dashboard:seq"
)

// DashboardSnapshot is one consistent read of the admin dashboard data
type DashboardSnapshot struct {
	Seq          uint64                 `json:"seq"`
	FetchedAt    time.Time              `json:"fetchedAt"`
	Stats        *models.DashboardStats `json:"stats"`
	Agencies     []models.Agency        `json:"agencies"`
	PendingCases []models.Case          `json:"pendingCases"`
}

// Ready derives the auto-assign-ready list at render time
func (s *DashboardSnapshot) Ready(fallback int, now time.Time) []ReadyCase {
	return SelectAutoAssignReady(s.PendingCases, fallback, now)
}

// storeIfNewer only writes when the incoming seq beats the stored one
var storeIfNewer = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) <= cur then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[3])
return 1
`)

// DashboardCache holds the latest dashboard snapshot. Redis is shared
// between instances when configured; the in-memory copy is always kept so
// a Redis outage degrades to per-process caching.
type DashboardCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger

	mu      sync.Mutex
	lastSeq uint64
	current *DashboardSnapshot
}

// NewDashboardCache creates the cache; client may be nil
func NewDashboardCache(client *redis.Client, ttl time.Duration) *DashboardCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardCache{client: client, ttl: ttl, log: zap.L().Named("dashboard_cache")}
}

// NewRedisClient connects to url. It returns nil, err when Redis is
// unreachable so callers can run without it.
func NewRedisClient(url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Begin reserves a sequence number for a fetch that is about to start.
// Numbers are time based so instances sharing Redis order correctly.
func (c *DashboardCache) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	seq := uint64(time.Now().UnixNano())
	if seq <= c.lastSeq {
		seq = c.lastSeq + 1
	}
	c.lastSeq = seq
	return seq
}

// Store saves snap unless a snapshot from a later Begin is already stored.
// It reports whether snap was kept.
func (c *DashboardCache) Store(ctx context.Context, snap *DashboardSnapshot) bool {
	c.mu.Lock()
	if c.current != nil && snap.Seq <= c.current.Seq {
		c.mu.Unlock()
		return false
	}
	c.current = snap
	c.mu.Unlock()

	if c.client != nil {
		data, err := json.Marshal(snap)
		if err != nil {
			c.log.Error("failed to encode snapshot", zap.Error(err))
			return true
		}
		kept, err := storeIfNewer.Run(ctx, c.client,
			[]string{DashboardSnapshotKey, DashboardSeqKey},
			snap.Seq, data, c.ttl.Milliseconds(),
		).Int()
		if err != nil {
			c.log.Warn("redis store failed", zap.Error(err))
		} else if kept == 0 {
			return false
		}
	}
	return true
}

// Get returns the latest snapshot, preferring the shared copy
func (c *DashboardCache) Get(ctx context.Context) (*DashboardSnapshot, bool) {
	if c.client != nil {
		data, err := c.client.Get(ctx, DashboardSnapshotKey).Bytes()
		if err == nil {
			var snap DashboardSnapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				return &snap, true
			}
		} else if err != redis.Nil {
			c.log.Warn("redis get failed", zap.Error(err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || time.Since(c.current.FetchedAt) > c.ttl {
		return nil, false
	}
	return c.current, true
}

// Invalidate drops the cached snapshot; the sequence guard is kept
func (c *DashboardCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	if c.current != nil {
		c.current = &DashboardSnapshot{Seq: c.current.Seq}
	}
	c.mu.Unlock()
	if c.client != nil {
		c.client.Del(ctx, DashboardSnapshotKey)
	}
}

// DashboardSource is the backend reporting surface
type DashboardSource interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
	AgencyPerformance(ctx context.Context) ([]models.Agency, error)
}

// PendingCaseLister lists every case with a status
type PendingCaseLister interface {
	ListAll(ctx context.Context, status models.CaseStatus, pageSize int) ([]models.Case, error)
}

// LoadDashboard fetches stats, agency ranking and pending cases in parallel
func LoadDashboard(ctx context.Context, seq uint64, dash DashboardSource, cases PendingCaseLister) (*DashboardSnapshot, error) {
	snap := &DashboardSnapshot{Seq: seq}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		stats, err := dash.Stats(gctx)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		snap.Stats = stats
		return nil
	})
	g.Go(func() error {
		agencies, err := dash.AgencyPerformance(gctx)
		if err != nil {
			return fmt.Errorf("agency performance: %w", err)
		}
		snap.Agencies = agencies
		return nil
	})
	g.Go(func() error {
		pending, err := cases.ListAll(gctx, models.CaseStatusPending, 100)
		if err != nil {
			return fmt.Errorf("pending cases: %w", err)
		}
		snap.PendingCases = pending
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.FetchedAt = time.Now()
	return snap, nil
}
