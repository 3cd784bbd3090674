package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CANProbe/internal/domain/models"
	domrepo "CANProbe/internal/domain/repository"
	pkgch "CANProbe/pkg/clickhouse"
	applogger "CANProbe/pkg/logger"
)

// DefaultArchiveTable is the run-record table used when the config
// leaves it unset.
const DefaultArchiveTable = "canprobe.run_records"

// ClickHouseArchive implements SampleStorage backed by ClickHouse.
type ClickHouseArchive struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseArchive(ch *pkgch.Client, table string) *ClickHouseArchive {
	if table == "" {
		table = DefaultArchiveTable
	}
	return &ClickHouseArchive{ch: ch, db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *ClickHouseArchive) SetLogger(l *applogger.Logger) { s.l = l }

// Init ensures the database and run-record table exist (idempotent).
func (s *ClickHouseArchive) Init(ctx context.Context) error {
	stmts := make([]string, 0, 2)
	if db, _, ok := strings.Cut(s.table, "."); ok {
		stmts = append(stmts, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db))
	}
	stmts = append(stmts, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            run_id  String,
            kind    LowCardinality(String),
            pid     String,
            can_id  String,
            ts      DateTime64(3),
            value   Float64,
            payload String
        ) ENGINE = MergeTree
        PARTITION BY toDate(ts)
        ORDER BY (run_id, ts)
    `, s.table))
	return s.ch.InitSchema(ctx, stmts)
}

func (s *ClickHouseArchive) Store(ctx context.Context, rec *models.ArchiveRecord) error {
	if rec == nil {
		return fmt.Errorf("nil record")
	}
	q := fmt.Sprintf("INSERT INTO %s (run_id, kind, pid, can_id, ts, value, payload) VALUES (?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		rec.RunID,
		string(rec.Kind),
		rec.PID,
		rec.CANID,
		rec.Timestamp,
		rec.Value,
		rec.Payload,
	)
	return err
}

func (s *ClickHouseArchive) StoreBatch(ctx context.Context, recs []*models.ArchiveRecord) error {
	if len(recs) == 0 {
		return nil
	}
	// Multi-row VALUES insert to reduce round-trips; chunked at 2000 rows.
	const chunkSize = 2000
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*7)
		for _, rec := range recs[start:end] {
			if rec == nil || rec.RunID == "" || rec.Kind == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				rec.RunID,
				string(rec.Kind),
				rec.PID,
				rec.CANID,
				rec.Timestamp,
				rec.Value,
				rec.Payload,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (run_id, kind, pid, can_id, ts, value, payload) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// Query returns the records of one run ordered by time. Zero from/to
// bounds are open.
func (s *ClickHouseArchive) Query(ctx context.Context, runID string, from, to time.Time, limit int) ([]*models.ArchiveRecord, error) {
	start := time.Now()

	where := []string{"run_id = ?"}
	args := []interface{}{runID}
	if !from.IsZero() {
		where = append(where, "ts >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		where = append(where, "ts <= ?")
		args = append(args, to)
	}
	args = append(args, limit)

	q := fmt.Sprintf("SELECT run_id, kind, pid, can_id, ts, value, payload FROM %s WHERE %s ORDER BY ts ASC LIMIT ?",
		s.table, strings.Join(where, " AND "))
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse archive query error",
				applogger.String("table", s.table),
				applogger.String("run_id", runID),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query run records: %w", err)
	}
	defer rows.Close()

	out := make([]*models.ArchiveRecord, 0, 256)
	for rows.Next() {
		var rec models.ArchiveRecord
		var kind string
		if err := rows.Scan(&rec.RunID, &kind, &rec.PID, &rec.CANID, &rec.Timestamp, &rec.Value, &rec.Payload); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse archive scan error",
					applogger.String("table", s.table),
					applogger.String("run_id", runID),
					applogger.Error(err),
				)
			}
			return nil, fmt.Errorf("scan run record: %w", err)
		}
		rec.Kind = models.ArchiveKind(kind)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse archive query ok",
			applogger.String("table", s.table),
			applogger.String("run_id", runID),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *ClickHouseArchive) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseArchive) Close() error {
	return nil // connection pool managed by pkg
}

var _ domrepo.SampleStorage = (*ClickHouseArchive)(nil)
