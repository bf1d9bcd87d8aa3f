package cache

import (
	"math"
	"sort"
	"sync"
	"time"
)

// CacheStats is a point-in-time snapshot of one named cache's hit/miss,
// eviction, and sizing behavior.
type CacheStats struct {
	Name            string
	Hits            int64
	Misses          int64
	HitRate         float64
	TotalLoadTime   time.Duration
	AvgLoadTime     time.Duration
	Evictions       int64
	EvictionReasons map[string]int64
	Size            int64
	MaxSize         int64
	FillRate        float64

	evictionReasons map[string]int64
}

func (s *CacheStats) copyEvictionReasons() map[string]int64 {
	out := make(map[string]int64, len(s.evictionReasons))
	for reason, count := range s.evictionReasons {
		out[reason] = count
	}
	return out
}

func (s *CacheStats) recomputeHitRate() {
	total := s.Hits + s.Misses
	if total == 0 {
		s.HitRate = 0
		return
	}
	s.HitRate = float64(s.Hits) / float64(total)
}

func (s *CacheStats) snapshot() *CacheStats {
	return &CacheStats{
		Name:            s.Name,
		Hits:            s.Hits,
		Misses:          s.Misses,
		HitRate:         s.HitRate,
		TotalLoadTime:   s.TotalLoadTime,
		AvgLoadTime:     s.AvgLoadTime,
		Evictions:       s.Evictions,
		EvictionReasons: s.copyEvictionReasons(),
		Size:            s.Size,
		MaxSize:         s.MaxSize,
		FillRate:        s.FillRate,
	}
}

// effectivenessScore blends hit rate, fill rate, eviction pressure, and
// load latency into a single 0..1 score for one cache.
func (s *CacheStats) effectivenessScore() float64 {
	total := float64(s.Hits + s.Misses)

	hitComponent := s.HitRate

	fillComponent := 1 - math.Abs(s.FillRate-0.75)*2
	if fillComponent < 0 {
		fillComponent = 0
	} else if fillComponent > 1 {
		fillComponent = 1
	}

	evictRate := float64(s.Evictions) / (total + 1)
	evictComponent := 1 / (1 + evictRate)

	loadComponent := 1.0
	if s.AvgLoadTime > 0 {
		loadComponent = 1 / (1 + s.AvgLoadTime.Seconds())
	}

	return 0.4*hitComponent + 0.2*fillComponent + 0.2*evictComponent + 0.2*loadComponent
}

// HotKeyInfo describes one key's access frequency within a tracker's window.
type HotKeyInfo struct {
	Key         string
	AccessCount int64
	HitRate     float64
	AvgLoadTime time.Duration
}

type accessRecord struct {
	at       time.Time
	hit      bool
	loadTime time.Duration
}

// HotKeyTracker keeps a rolling window of per-key accesses so the busiest
// keys can be identified regardless of which named cache they belong to.
type HotKeyTracker struct {
	mu        sync.Mutex
	window    time.Duration
	topN      int
	keyAccess map[string][]accessRecord
}

// NewHotKeyTracker creates a tracker retaining accesses within window,
// reporting at most topN keys from GetHotKeys.
func NewHotKeyTracker(window time.Duration, topN int) *HotKeyTracker {
	return &HotKeyTracker{
		window:    window,
		topN:      topN,
		keyAccess: make(map[string][]accessRecord),
	}
}

func (t *HotKeyTracker) recordAccess(key string, hit bool, loadTime time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keyAccess[key] = append(t.keyAccess[key], accessRecord{at: time.Now(), hit: hit, loadTime: loadTime})
}

// GetHotKeys returns up to topN keys active within window, ranked by
// access count descending.
func (t *HotKeyTracker) GetHotKeys() []HotKeyInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := time.Now().Add(-t.window)
	infos := make([]HotKeyInfo, 0, len(t.keyAccess))

	for key, records := range t.keyAccess {
		var accessCount, hits, loadCount int64
		var totalLoad time.Duration

		for _, r := range records {
			if r.at.Before(cutoff) {
				continue
			}
			accessCount++
			if r.hit {
				hits++
			} else {
				totalLoad += r.loadTime
				loadCount++
			}
		}

		if accessCount == 0 {
			continue
		}

		info := HotKeyInfo{Key: key, AccessCount: accessCount, HitRate: float64(hits) / float64(accessCount)}
		if loadCount > 0 {
			info.AvgLoadTime = totalLoad / time.Duration(loadCount)
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].AccessCount != infos[j].AccessCount {
			return infos[i].AccessCount > infos[j].AccessCount
		}
		return infos[i].Key < infos[j].Key
	})

	if len(infos) > t.topN {
		infos = infos[:t.topN]
	}
	return infos
}

// CacheReport aggregates every tracked cache's stats and the busiest keys
// observed across all of them.
type CacheReport struct {
	CacheStats         []*CacheStats
	HotKeys            []HotKeyInfo
	TotalHits          int64
	TotalMisses        int64
	TotalEvictions     int64
	TotalSize          int64
	TotalMaxSize       int64
	OverallHitRate     float64
	EffectivenessScore float64
	GeneratedAt        time.Time
	AnalyticsPeriod    time.Duration
}

// CacheAnalytics tracks hit/miss/eviction/size behavior for any number of
// named caches and the hottest keys across them, for reporting via
// CacheReporter.
type CacheAnalytics struct {
	mu      sync.RWMutex
	window  time.Duration
	stats   map[string]*CacheStats
	tracker *HotKeyTracker
}

// NewCacheAnalytics creates an analytics collector retaining a window's
// worth of hot-key history.
func NewCacheAnalytics(window time.Duration) *CacheAnalytics {
	return &CacheAnalytics{
		window:  window,
		stats:   make(map[string]*CacheStats),
		tracker: NewHotKeyTracker(window, 100),
	}
}

func (a *CacheAnalytics) entry(name string) *CacheStats {
	s, ok := a.stats[name]
	if !ok {
		s = &CacheStats{Name: name, evictionReasons: make(map[string]int64)}
		a.stats[name] = s
	}
	return s
}

// RecordHit records a cache hit for key in cacheName.
func (a *CacheAnalytics) RecordHit(cacheName, key string) {
	a.mu.Lock()
	s := a.entry(cacheName)
	s.Hits++
	s.recomputeHitRate()
	a.mu.Unlock()

	a.tracker.recordAccess(key, true, 0)
}

// RecordMiss records a cache miss for key in cacheName that took loadTime
// to fill.
func (a *CacheAnalytics) RecordMiss(cacheName, key string, loadTime time.Duration) {
	a.mu.Lock()
	s := a.entry(cacheName)
	s.Misses++
	s.TotalLoadTime += loadTime
	if s.Misses > 0 {
		s.AvgLoadTime = s.TotalLoadTime / time.Duration(s.Misses)
	}
	s.recomputeHitRate()
	a.mu.Unlock()

	a.tracker.recordAccess(key, false, loadTime)
}

// RecordEviction records count entries evicted from cacheName for reason.
func (a *CacheAnalytics) RecordEviction(cacheName string, count int64, reason string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.entry(cacheName)
	s.Evictions += count
	s.evictionReasons[reason] += count
}

// UpdateSize records cacheName's current occupancy out of maxSize.
func (a *CacheAnalytics) UpdateSize(cacheName string, size, maxSize int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.entry(cacheName)
	s.Size = size
	s.MaxSize = maxSize
	if maxSize > 0 {
		s.FillRate = float64(size) / float64(maxSize)
	} else {
		s.FillRate = 0
	}
}

// GetCacheStats returns a snapshot of cacheName's stats, or false if it has
// never been recorded against.
func (a *CacheAnalytics) GetCacheStats(name string) (*CacheStats, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.stats[name]
	if !ok {
		return nil, false
	}
	return s.snapshot(), true
}

// GetAllStats returns a snapshot of every tracked cache, sorted by total
// operations (hits+misses) descending.
func (a *CacheAnalytics) GetAllStats() []*CacheStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]*CacheStats, 0, len(a.stats))
	for _, s := range a.stats {
		out = append(out, s.snapshot())
	}

	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].Hits+out[i].Misses, out[j].Hits+out[j].Misses
		if ti != tj {
			return ti > tj
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// GetHotKeys returns the busiest keys across every tracked cache.
func (a *CacheAnalytics) GetHotKeys() []HotKeyInfo {
	return a.tracker.GetHotKeys()
}

// GetEffectivenessScore returns a 0..1 score across all tracked caches,
// weighted by each cache's operation volume.
func (a *CacheAnalytics) GetEffectivenessScore() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var weightedSum, totalWeight float64
	for _, s := range a.stats {
		weight := float64(s.Hits + s.Misses)
		if weight == 0 {
			continue
		}
		weightedSum += weight * s.effectivenessScore()
		totalWeight += weight
	}

	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// GenerateReport snapshots every tracked cache and the hottest keys into a
// single report suitable for CacheReporter.
func (a *CacheAnalytics) GenerateReport() *CacheReport {
	allStats := a.GetAllStats()

	report := &CacheReport{
		CacheStats:      allStats,
		HotKeys:         a.GetHotKeys(),
		GeneratedAt:     time.Now(),
		AnalyticsPeriod: a.window,
	}

	for _, s := range allStats {
		report.TotalHits += s.Hits
		report.TotalMisses += s.Misses
		report.TotalEvictions += s.Evictions
		report.TotalSize += s.Size
		report.TotalMaxSize += s.MaxSize
	}

	if total := report.TotalHits + report.TotalMisses; total > 0 {
		report.OverallHitRate = float64(report.TotalHits) / float64(total)
	}
	report.EffectivenessScore = a.GetEffectivenessScore()

	return report
}

var (
	globalCacheAnalytics *CacheAnalytics
	cacheAnalyticsOnce   sync.Once
)

// InitializeCacheAnalytics eagerly creates the process-wide analytics
// collector. Idempotent; safe to call before GetCacheAnalytics.
func InitializeCacheAnalytics() {
	cacheAnalyticsOnce.Do(func() {
		globalCacheAnalytics = NewCacheAnalytics(1 * time.Hour)
	})
}

// GetCacheAnalytics returns the process-wide analytics collector,
// creating it on first access.
func GetCacheAnalytics() *CacheAnalytics {
	cacheAnalyticsOnce.Do(func() {
		globalCacheAnalytics = NewCacheAnalytics(1 * time.Hour)
	})
	return globalCacheAnalytics
}
