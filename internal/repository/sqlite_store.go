package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"CANProbe/internal/domain/models"
	domrepo "CANProbe/internal/domain/repository"
	"CANProbe/internal/services/codec"
)

// SQLiteSignalStore persists the DBC signal model in an embedded
// SQLite database. One row per signal; messages are a derived view.
type SQLiteSignalStore struct {
	db *sql.DB
}

// NewSQLiteSignalStore opens (or creates) the database at path and
// ensures the schema.
func NewSQLiteSignalStore(path string) (*SQLiteSignalStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open signal store: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("signal store %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			can_id     TEXT NOT NULL,
			name       TEXT NOT NULL,
			start_bit  INTEGER NOT NULL,
			length     INTEGER NOT NULL,
			byte_order TEXT NOT NULL,
			is_signed  INTEGER NOT NULL,
			scale      DOUBLE NOT NULL,
			offset_val DOUBLE NOT NULL,
			min_val    DOUBLE NOT NULL DEFAULT 0,
			max_val    DOUBLE NOT NULL DEFAULT 0,
			unit       TEXT NOT NULL DEFAULT '',
			comment    TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_signals_can_id ON signals(can_id);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("signal store schema: %w", err)
	}

	return &SQLiteSignalStore{db: db}, nil
}

// Add persists a signal and returns the assigned id. The CAN ID is
// stored in canonical form.
func (s *SQLiteSignalStore) Add(ctx context.Context, sig *models.Signal) (int64, error) {
	if sig == nil {
		return 0, fmt.Errorf("nil signal")
	}
	if err := sig.Validate(); err != nil {
		return 0, err
	}
	canID := models.NormalizeCANID(sig.CANID)
	if canID == "" {
		return 0, fmt.Errorf("signal %s: empty can id", sig.Name)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO signals (can_id, name, start_bit, length, byte_order, is_signed, scale, offset_val, min_val, max_val, unit, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		canID, sig.Name, sig.StartBit, sig.Length, string(sig.ByteOrder), sig.Signed,
		sig.Scale, sig.Offset, sig.MinVal, sig.MaxVal, sig.Unit, sig.Comment,
	)
	if err != nil {
		return 0, fmt.Errorf("insert signal %s: %w", sig.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert signal %s: %w", sig.Name, err)
	}
	return id, nil
}

func (s *SQLiteSignalStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM signals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete signal %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete signal %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("signal %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

func (s *SQLiteSignalStore) Get(ctx context.Context, id int64) (*models.Signal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, can_id, name, start_bit, length, byte_order, is_signed, scale, offset_val, min_val, max_val, unit, comment
		FROM signals WHERE id = ?`, id)
	sig, err := scanSignal(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("signal %d: %w", id, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("get signal %d: %w", id, err)
	}
	return sig, nil
}

// List returns every stored signal ordered by CAN ID, then name, then id.
func (s *SQLiteSignalStore) List(ctx context.Context) ([]models.Signal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, can_id, name, start_bit, length, byte_order, is_signed, scale, offset_val, min_val, max_val, unit, comment
		FROM signals ORDER BY can_id ASC, name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []models.Signal
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		out = append(out, *sig)
	}
	return out, rows.Err()
}

// Messages groups stored signals by CAN ID. Size is the smallest frame
// that covers every signal of the message.
func (s *SQLiteSignalStore) Messages(ctx context.Context) ([]models.Message, error) {
	signals, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Message
	for _, sig := range signals {
		need := codec.RequiredBytes(&sig)
		if n := len(out); n > 0 && out[n-1].CANID == sig.CANID {
			out[n-1].Signals = append(out[n-1].Signals, sig)
			if need > out[n-1].Size {
				out[n-1].Size = need
			}
			continue
		}
		out = append(out, models.Message{
			CANID:   sig.CANID,
			Size:    need,
			Signals: []models.Signal{sig},
		})
	}
	return out, nil
}

func (s *SQLiteSignalStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSignal(r rowScanner) (*models.Signal, error) {
	var sig models.Signal
	var order string
	if err := r.Scan(&sig.ID, &sig.CANID, &sig.Name, &sig.StartBit, &sig.Length, &order,
		&sig.Signed, &sig.Scale, &sig.Offset, &sig.MinVal, &sig.MaxVal, &sig.Unit, &sig.Comment); err != nil {
		return nil, err
	}
	sig.ByteOrder = models.ByteOrder(order)
	return &sig, nil
}

var _ domrepo.SignalStore = (*SQLiteSignalStore)(nil)
