package cache

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// CacheReporter renders a CacheAnalytics collector's state as text,
// Prometheus-style metrics, or a compact one-line summary.
type CacheReporter struct {
	analytics *CacheAnalytics
}

// NewCacheReporter creates a reporter over analytics.
func NewCacheReporter(analytics *CacheAnalytics) *CacheReporter {
	return &CacheReporter{analytics: analytics}
}

// GenerateTextReport writes a human-readable performance report to w.
func (r *CacheReporter) GenerateTextReport(w io.Writer) error {
	report := r.analytics.GenerateReport()

	var b strings.Builder
	b.WriteString("=== Cache Performance Report ===\n\n")
	fmt.Fprintf(&b, "Overall Hit Rate: %.1f%%\n", report.OverallHitRate*100)
	fmt.Fprintf(&b, "Effectiveness Score: %.1f/100\n", report.EffectivenessScore*100)
	fmt.Fprintf(&b, "Total Operations: %d hits, %d misses\n\n", report.TotalHits, report.TotalMisses)

	if len(report.CacheStats) > 0 {
		b.WriteString("Cache Statistics:\n")
		for _, s := range report.CacheStats {
			fmt.Fprintf(&b, "  %-20s  Hits: %-6d  Misses: %-6d  Hit Rate: %5.1f%%  Fill: %5.1f%%  Size: %d/%d\n",
				s.Name, s.Hits, s.Misses, s.HitRate*100, s.FillRate*100, s.Size, s.MaxSize)
		}
		b.WriteString("\n")
	}

	if len(report.HotKeys) > 0 {
		b.WriteString("Hot Keys:\n")
		for i, hk := range report.HotKeys {
			if i >= 10 {
				break
			}
			fmt.Fprintf(&b, "  %-2d %-30s  Accesses: %-6d  Hit Rate: %5.1f%%\n",
				i+1, truncateKey(hk.Key, 30), hk.AccessCount, hk.HitRate*100)
		}
		b.WriteString("\n")
	}

	b.WriteString("Recommendations:\n")
	for _, rec := range r.recommendations(report) {
		fmt.Fprintf(&b, "  - %s\n", rec)
	}

	_, err := w.Write([]byte(b.String()))
	return err
}

// GenerateCompactReport renders a single-line summary, one hit-rate
// fragment per tracked cache, or "" when nothing has been recorded.
func (r *CacheReporter) GenerateCompactReport() string {
	stats := r.analytics.GetAllStats()
	if len(stats) == 0 {
		return ""
	}

	parts := make([]string, 0, len(stats))
	for _, s := range stats {
		total := s.Hits + s.Misses
		parts = append(parts, fmt.Sprintf("%s: %.1f%% hit rate (%d/%d)", s.Name, s.HitRate*100, s.Hits, total))
	}
	return strings.Join(parts, ", ")
}

// GenerateMetricsReport writes a Prometheus-style exposition of the
// current analytics state to w.
func (r *CacheReporter) GenerateMetricsReport(w io.Writer) error {
	report := r.analytics.GenerateReport()

	var b strings.Builder
	b.WriteString("# Cache Analytics Report\n")
	fmt.Fprintf(&b, "cache_total_hits %d\n", report.TotalHits)
	fmt.Fprintf(&b, "cache_total_misses %d\n", report.TotalMisses)
	fmt.Fprintf(&b, "cache_total_evictions %d\n", report.TotalEvictions)
	fmt.Fprintf(&b, "cache_overall_hit_rate %.4f\n", report.OverallHitRate)
	fmt.Fprintf(&b, "cache_effectiveness_score %.4f\n", report.EffectivenessScore)
	fmt.Fprintf(&b, "cache_total_size %d\n", report.TotalSize)
	fmt.Fprintf(&b, "cache_total_capacity %d\n", report.TotalMaxSize)

	for _, s := range report.CacheStats {
		fmt.Fprintf(&b, "cache_hits{cache=%q} %d\n", s.Name, s.Hits)
		fmt.Fprintf(&b, "cache_misses{cache=%q} %d\n", s.Name, s.Misses)
		fmt.Fprintf(&b, "cache_hit_rate{cache=%q} %.4f\n", s.Name, s.HitRate)
		fmt.Fprintf(&b, "cache_fill_rate{cache=%q} %.4f\n", s.Name, s.FillRate)
		fmt.Fprintf(&b, "cache_avg_load_time_seconds{cache=%q} %.6f\n", s.Name, s.AvgLoadTime.Seconds())
	}

	for i, hk := range report.HotKeys {
		if i >= 10 {
			break
		}
		rank := i + 1
		fmt.Fprintf(&b, "cache_hot_key_accesses{rank=\"%d\"} %d\n", rank, hk.AccessCount)
		fmt.Fprintf(&b, "cache_hot_key_hit_rate{rank=\"%d\"} %.4f\n", rank, hk.HitRate)
	}

	_, err := w.Write([]byte(b.String()))
	return err
}

// GenerateDiffReport writes a comparison between a previous and current
// report, highlighting new caches and caches whose hit rate moved by at
// least one percentage point.
func (r *CacheReporter) GenerateDiffReport(previous, current *CacheReport, w io.Writer) error {
	var b strings.Builder
	b.WriteString("=== Cache Performance Comparison ===\n\n")

	b.WriteString("Overall Metrics:\n")
	fmt.Fprintf(&b, "  Hit Rate: %.1f%% -> %.1f%% (%+.1f%%)\n",
		previous.OverallHitRate*100, current.OverallHitRate*100, (current.OverallHitRate-previous.OverallHitRate)*100)
	fmt.Fprintf(&b, "  Effectiveness: %.1f -> %.1f (%+.1f)\n",
		previous.EffectivenessScore*100, current.EffectivenessScore*100, (current.EffectivenessScore-previous.EffectivenessScore)*100)
	b.WriteString("\n")

	prevByName := make(map[string]*CacheStats, len(previous.CacheStats))
	for _, s := range previous.CacheStats {
		prevByName[s.Name] = s
	}

	b.WriteString("Per-Cache Changes:\n")
	for _, cur := range current.CacheStats {
		prev, existed := prevByName[cur.Name]
		if !existed {
			fmt.Fprintf(&b, "  %s: NEW CACHE (hit rate %.1f%%)\n", cur.Name, cur.HitRate*100)
			continue
		}

		delta := cur.HitRate - prev.HitRate
		if delta < 0 {
			delta = -delta
		}
		if delta < 0.01 {
			continue
		}

		fmt.Fprintf(&b, "  %s: %.1f%% -> %.1f%% (%+.1f%%)\n", cur.Name, prev.HitRate*100, cur.HitRate*100, (cur.HitRate-prev.HitRate)*100)
	}

	_, err := w.Write([]byte(b.String()))
	return err
}

// recommendations derives plain-language suggestions from a report. Never
// returns an empty slice; falls back to a positive confirmation.
func (r *CacheReporter) recommendations(report *CacheReport) []string {
	var recs []string

	if total := report.TotalHits + report.TotalMisses; total > 0 && report.OverallHitRate < 0.5 {
		recs = append(recs, fmt.Sprintf("Overall hit rate is low (%.1f%%); consider increasing cache capacity or adjusting TTLs.", report.OverallHitRate*100))
	}

	if report.EffectivenessScore > 0 && report.EffectivenessScore < 0.3 {
		recs = append(recs, fmt.Sprintf("Overall cache effectiveness is low (%.1f/100); review hit rate, fill rate, and eviction pressure together.", report.EffectivenessScore*100))
	}

	for _, s := range report.CacheStats {
		total := s.Hits + s.Misses

		if total >= 10 && s.HitRate < 0.5 {
			recs = append(recs, fmt.Sprintf("%s cache has low hit rate (%.1f%%); consider a larger capacity or different eviction policy.", s.Name, s.HitRate*100))
		}

		if evictRate := float64(s.Evictions) / float64(total+1); evictRate > 1.0 {
			recs = append(recs, fmt.Sprintf("%s cache has high eviction rate (%d evictions over %d operations); increase its capacity.", s.Name, s.Evictions, total))
		}

		if s.MaxSize > 0 && s.FillRate < 0.2 {
			recs = append(recs, fmt.Sprintf("%s cache is underutilized (%.1f%% full); consider shrinking its capacity.", s.Name, s.FillRate*100))
		}

		if s.AvgLoadTime > 100*time.Millisecond {
			recs = append(recs, fmt.Sprintf("%s cache has slow average load time (%s); investigate its loader.", s.Name, formatDuration(s.AvgLoadTime)))
		}
	}

	if len(report.HotKeys) > 0 {
		var total int64
		for _, hk := range report.HotKeys {
			total += hk.AccessCount
		}
		if total > 0 {
			top := report.HotKeys[0]
			if share := float64(top.AccessCount) / float64(total); share > 0.5 {
				recs = append(recs, fmt.Sprintf("Hot key %q accounts for %.1f%% of cache accesses; consider a dedicated single-entry cache for it.", top.Key, share*100))
			}
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "No immediate optimizations needed.")
	}

	return recs
}

// truncateKey shortens key to at most maxLen characters, replacing the
// tail with "..." when it doesn't fit.
func truncateKey(key string, maxLen int) string {
	if len(key) <= maxLen {
		return key
	}
	if maxLen <= 3 {
		return key[:maxLen]
	}
	return key[:maxLen-3] + "..."
}

// formatDuration renders d in the coarsest unit that keeps it readable.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()+0.5))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%.1fd", d.Hours()/24)
	}
}
