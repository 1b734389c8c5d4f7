package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAnalysisKeys(t *testing.T) {
	assert.Equal(t, "zerodte:analysis:latest", AnalysisLatestKey())
	assert.Equal(t, "zerodte:analysis:run:abc", AnalysisRunKey("abc"))
	assert.Equal(t, "zerodte:analysis:run", AnalysisRunKey(" "))
	assert.Equal(t, "zerodte:analysis:run:a b", AnalysisRunKey(" a b "))
}

func TestAnalysisLatestTTL(t *testing.T) {
	assert.Equal(t, 20*time.Minute, AnalysisLatestTTL(10*time.Minute))
	assert.Equal(t, time.Minute, AnalysisLatestTTL(5*time.Second))
	assert.Equal(t, time.Minute, AnalysisLatestTTL(0))
}
