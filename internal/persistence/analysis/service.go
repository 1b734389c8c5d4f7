package analysispersist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	cachekeys "zerodte-api/internal/cache"
	"zerodte-api/internal/model"
	"zerodte-api/pkg/analysis"
	"zerodte-api/pkg/snapshot"
)

// SinkName identifies the archive in logs and metrics.
const SinkName = "archive"

// ErrRunNotFound is returned by LoadRun for unknown run ids.
var ErrRunNotFound = errors.New("archive: run not found")

// Cache is the subset of the go-zero redis client used for the mirror.
type Cache interface {
	SetexCtx(ctx context.Context, key, value string, seconds int) error
	GetCtx(ctx context.Context, key string) (string, error)
}

// Service archives completed results to Postgres and mirrors the latest one
// to Redis.
type Service struct {
	resultsModel model.AnalysisResultsModel
	cache        Cache
	interval     time.Duration
	symbol       string
}

// Config enumerates dependencies required to archive analysis results.
type Config struct {
	ResultsModel model.AnalysisResultsModel
	Cache        Cache
	Interval     time.Duration // scheduler interval; the mirror lives for twice this
	Symbol       string
}

// NewService wires an archive service. Returns nil when neither Postgres nor
// Redis is configured.
func NewService(cfg Config) *Service {
	if cfg.ResultsModel == nil && cfg.Cache == nil {
		return nil
	}
	return &Service{
		resultsModel: cfg.ResultsModel,
		cache:        cfg.Cache,
		interval:     cfg.Interval,
		symbol:       strings.ToUpper(strings.TrimSpace(cfg.Symbol)),
	}
}

func (s *Service) Name() string { return SinkName }

// Save inserts r into analysis_results and refreshes the Redis mirror. Mirror
// failures are logged only.
func (s *Service) Save(ctx context.Context, r analysis.Result) error {
	if s == nil || !r.Ready() {
		return nil
	}
	if s.resultsModel != nil {
		row, err := s.toRow(r)
		if err != nil {
			return err
		}
		if _, err := s.resultsModel.Insert(ctx, row); err != nil {
			return fmt.Errorf("archive: insert run %s: %w", r.RunID, err)
		}
	}
	s.cacheLatest(ctx, r)
	return nil
}

// LoadRun returns one archived run by id, reading the per-run mirror before
// Postgres.
func (s *Service) LoadRun(ctx context.Context, runID string) (analysis.Result, error) {
	runID = strings.TrimSpace(runID)
	if s == nil || runID == "" {
		return analysis.Result{}, ErrRunNotFound
	}
	if r, ok := s.readMirror(ctx, cachekeys.AnalysisRunKey(runID)); ok && r.RunID == runID {
		return r, nil
	}
	if s.resultsModel == nil {
		return analysis.Result{}, ErrRunNotFound
	}
	row, err := s.resultsModel.FindOneByRunId(ctx, runID)
	if errors.Is(err, model.ErrNotFound) {
		return analysis.Result{}, ErrRunNotFound
	}
	if err != nil {
		return analysis.Result{}, fmt.Errorf("archive: load run %s: %w", runID, err)
	}
	return fromRow(row)
}

// LoadLatest returns the most recent archived result, preferring the Redis
// mirror over Postgres. ok is false when nothing has been archived yet.
func (s *Service) LoadLatest(ctx context.Context) (analysis.Result, bool, error) {
	if s == nil {
		return analysis.Result{}, false, nil
	}
	if r, ok := s.readMirror(ctx, cachekeys.AnalysisLatestKey()); ok {
		return r, true, nil
	}
	if s.resultsModel == nil {
		return analysis.Result{}, false, nil
	}
	row, err := s.resultsModel.FindLatest(ctx, s.symbol)
	if errors.Is(err, model.ErrNotFound) {
		return analysis.Result{}, false, nil
	}
	if err != nil {
		return analysis.Result{}, false, fmt.Errorf("archive: load latest: %w", err)
	}
	r, err := fromRow(row)
	if err != nil {
		return analysis.Result{}, false, err
	}
	return r, true, nil
}

func (s *Service) toRow(r analysis.Result) (*model.AnalysisResults, error) {
	symbol := s.symbol
	data := sql.NullString{}
	if r.Data != nil {
		raw, err := json.Marshal(r.Data)
		if err != nil {
			return nil, fmt.Errorf("archive: encode snapshot: %w", err)
		}
		data = sql.NullString{String: string(raw), Valid: true}
		if r.Data.Symbol != "" {
			symbol = r.Data.Symbol
		}
	}
	return &model.AnalysisResults{
		RunId:  r.RunID,
		Symbol: symbol,
		Ts:     r.Timestamp.UTC(),
		Text:   r.Text,
		Data:   data,
	}, nil
}

func fromRow(row *model.AnalysisResults) (analysis.Result, error) {
	ts := row.Ts.UTC()
	r := analysis.Result{
		RunID:     row.RunId,
		Timestamp: &ts,
		Text:      row.Text,
	}
	if row.Data.Valid && row.Data.String != "" {
		var snap snapshot.MarketSnapshot
		if err := json.Unmarshal([]byte(row.Data.String), &snap); err != nil {
			return analysis.Result{}, fmt.Errorf("archive: decode run %s: %w", row.RunId, err)
		}
		r.Data = &snap
	}
	return r, nil
}

// readMirror decodes a mirrored result; misses and errors report ok=false.
func (s *Service) readMirror(ctx context.Context, key string) (analysis.Result, bool) {
	if s.cache == nil {
		return analysis.Result{}, false
	}
	raw, err := s.cache.GetCtx(ctx, key)
	if err != nil {
		logx.WithContext(ctx).Errorf("archive: read mirror %s: %v", key, err)
		return analysis.Result{}, false
	}
	if raw == "" {
		return analysis.Result{}, false
	}
	var r analysis.Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		logx.WithContext(ctx).Errorf("archive: decode mirror %s: %v", key, err)
		return analysis.Result{}, false
	}
	return r, r.Ready()
}

func (s *Service) cacheLatest(ctx context.Context, r analysis.Result) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(r)
	if err != nil {
		logx.WithContext(ctx).Errorf("archive: encode mirror: %v", err)
		return
	}
	mirrors := []struct {
		key string
		ttl time.Duration
	}{
		{cachekeys.AnalysisLatestKey(), cachekeys.AnalysisLatestTTL(s.interval)},
		{cachekeys.AnalysisRunKey(r.RunID), cachekeys.AnalysisRunTTL},
	}
	for _, m := range mirrors {
		if err := s.cache.SetexCtx(ctx, m.key, string(raw), int(m.ttl/time.Second)); err != nil {
			logx.WithContext(ctx).Errorf("archive: cache %s: %v", m.key, err)
		}
	}
}
