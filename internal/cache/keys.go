package cache

import (
	"strings"
	"time"
)

// Namespace is the Redis key prefix for the service.
const Namespace = "zerodte"

// minLatestTTL keeps the mirrored result alive across short test intervals.
const minLatestTTL = time.Minute

// AnalysisRunTTL bounds how long a single run stays mirrored; Postgres keeps
// it afterwards.
const AnalysisRunTTL = 24 * time.Hour

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// --- Analysis Keys ----------------------------------------------------------

// AnalysisLatestKey holds the JSON encoded latest analysis result.
func AnalysisLatestKey() string {
	return formatKey("analysis", "latest")
}

// AnalysisRunKey scopes a single archived run.
func AnalysisRunKey(runID string) string {
	return formatKey("analysis", "run", runID)
}

// --- TTL Helpers ------------------------------------------------------------

// AnalysisLatestTTL returns twice the scheduler interval so a missed tick
// does not expire the mirror.
func AnalysisLatestTTL(interval time.Duration) time.Duration {
	ttl := 2 * interval
	if ttl < minLatestTTL {
		return minLatestTTL
	}
	return ttl
}
