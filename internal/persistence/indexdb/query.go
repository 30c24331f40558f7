package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"mapsmith.ai/internal/sim/mapdef"
)

type StructureFilter struct {
	Kind  string
	Owner string
	Limit int
}

// ListStructures returns indexed structures, oldest first.
func (s *SQLiteIndex) ListStructures(ctx context.Context, f StructureFilter) ([]mapdef.Structure, error) {
	var (
		where []string
		args  []any
	)
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, f.Owner)
	}
	q := "SELECT raw_json FROM structures"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_tick, rowid"
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []mapdef.Structure
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var st mapdef.Structure
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

type SessionRecord struct {
	Operator  string `json:"operator"`
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	StartTick uint64 `json:"start_tick"`
	EndTick   uint64 `json:"end_tick,omitempty"`
	EndReason string `json:"end_reason,omitempty"`
	Active    bool   `json:"active"`
}

// ListSessions returns the most recent sessions, newest first.
func (s *SQLiteIndex) ListSessions(ctx context.Context, limit int) ([]SessionRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT operator,start_tick,kind,name,end_tick,end_reason FROM sessions ORDER BY start_tick DESC, operator LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		var (
			r      SessionRecord
			start  int64
			end    sql.NullInt64
			reason sql.NullString
		)
		if err := rows.Scan(&r.Operator, &start, &r.Kind, &r.Name, &end, &reason); err != nil {
			return nil, err
		}
		r.StartTick = uint64(start)
		r.Active = !end.Valid
		if end.Valid {
			r.EndTick = uint64(end.Int64)
		}
		r.EndReason = reason.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// LastStep returns the highest indexed tick and its digest.
func (s *SQLiteIndex) LastStep(ctx context.Context) (tick uint64, digest string, ok bool, err error) {
	var t int64
	err = s.db.QueryRowContext(ctx, `SELECT tick,digest FROM steps ORDER BY tick DESC LIMIT 1`).Scan(&t, &digest)
	if err == sql.ErrNoRows {
		return 0, "", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	return uint64(t), digest, true, nil
}
