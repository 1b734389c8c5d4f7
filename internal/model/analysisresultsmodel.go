package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ AnalysisResultsModel = (*defaultAnalysisResultsModel)(nil)

const analysisResultsRows = "id, run_id, symbol, ts, text, data, created_at"

type (
	// AnalysisResultsModel is the archive of completed analysis runs.
	AnalysisResultsModel interface {
		Insert(ctx context.Context, data *AnalysisResults) (sql.Result, error)
		FindOneByRunId(ctx context.Context, runID string) (*AnalysisResults, error)
		FindLatest(ctx context.Context, symbol string) (*AnalysisResults, error)
	}

	defaultAnalysisResultsModel struct {
		conn  sqlx.SqlConn
		table string
	}

	AnalysisResults struct {
		Id        int64          `db:"id"`
		RunId     string         `db:"run_id"`
		Symbol    string         `db:"symbol"`
		Ts        time.Time      `db:"ts"`
		Text      string         `db:"text"`
		Data      sql.NullString `db:"data"`
		CreatedAt time.Time      `db:"created_at"`
	}
)

// NewAnalysisResultsModel returns a model for the database table.
func NewAnalysisResultsModel(conn sqlx.SqlConn) AnalysisResultsModel {
	return &defaultAnalysisResultsModel{
		conn:  conn,
		table: `"public"."analysis_results"`,
	}
}

// Insert stores one run. Re-inserting a run id is a no-op.
func (m *defaultAnalysisResultsModel) Insert(ctx context.Context, data *AnalysisResults) (sql.Result, error) {
	query := fmt.Sprintf(`INSERT INTO %s (run_id, symbol, ts, text, data, created_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (run_id) DO NOTHING`, m.table)
	return m.conn.ExecCtx(ctx, query, data.RunId, data.Symbol, data.Ts, data.Text, data.Data)
}

func (m *defaultAnalysisResultsModel) FindOneByRunId(ctx context.Context, runID string) (*AnalysisResults, error) {
	var resp AnalysisResults
	query := fmt.Sprintf("SELECT %s FROM %s WHERE run_id = $1 LIMIT 1", analysisResultsRows, m.table)
	err := m.conn.QueryRowCtx(ctx, &resp, query, runID)
	switch {
	case err == nil:
		return &resp, nil
	case errors.Is(err, sqlx.ErrNotFound):
		return nil, ErrNotFound
	default:
		return nil, err
	}
}

func (m *defaultAnalysisResultsModel) FindLatest(ctx context.Context, symbol string) (*AnalysisResults, error) {
	var resp AnalysisResults
	query := fmt.Sprintf("SELECT %s FROM %s WHERE symbol = $1 ORDER BY ts DESC LIMIT 1", analysisResultsRows, m.table)
	err := m.conn.QueryRowCtx(ctx, &resp, query, symbol)
	switch {
	case err == nil:
		return &resp, nil
	case errors.Is(err, sqlx.ErrNotFound):
		return nil, ErrNotFound
	default:
		return nil, err
	}
}
