package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"mapsmith.ai/internal/sim/authoring"
	"mapsmith.ai/internal/sim/mapdef"
	"mapsmith.ai/internal/sim/scheduler"
)

// SQLiteIndex is a queryable read model of the step and record logs. Writes
// are queued and applied in batches by a single goroutine; the JSONL logs
// remain the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropStep      atomic.Uint64
	dropSession   atomic.Uint64
	dropStructure atomic.Uint64
}

type reqKind int

const (
	reqStep reqKind = iota + 1
	reqSessionStart
	reqSessionEnd
	reqStructure
)

type req struct {
	kind reqKind

	step      scheduler.StepLogEntry
	session   sessionRow
	structure mapdef.Structure
}

type sessionRow struct {
	Operator string
	Kind     string
	Name     string
	Tick     uint64
	Reason   string
}

type Stats struct {
	QueueDepth         int    `json:"queue_depth"`
	QueueCapacity      int    `json:"queue_capacity"`
	DropStepTotal      uint64 `json:"drop_step_total"`
	DropSessionTotal   uint64 `json:"drop_session_total"`
	DropStructureTotal uint64 `json:"drop_structure_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS config (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS steps (
			tick INTEGER PRIMARY KEY,
			digest TEXT NOT NULL,
			inputs INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			operator TEXT NOT NULL,
			start_tick INTEGER NOT NULL,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			end_tick INTEGER,
			end_reason TEXT,
			PRIMARY KEY (operator, start_tick)
		);`,
		`CREATE TABLE IF NOT EXISTS structures (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			owner TEXT NOT NULL,
			created_tick INTEGER NOT NULL,
			template_id TEXT,
			points INTEGER NOT NULL,
			regions INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_structures_kind_tick ON structures(kind, created_tick);`,
		`CREATE INDEX IF NOT EXISTS idx_structures_owner_tick ON structures(owner, created_tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		QueueDepth:         len(s.ch),
		QueueCapacity:      cap(s.ch),
		DropStepTotal:      s.dropStep.Load(),
		DropSessionTotal:   s.dropSession.Load(),
		DropStructureTotal: s.dropStructure.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind.
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteStep(entry scheduler.StepLogEntry) error {
	s.enqueue(req{kind: reqStep, step: entry}, &s.dropStep)
	return nil
}

func (s *SQLiteIndex) SessionStarted(operator string, r authoring.StartRequest, tick uint64) {
	s.enqueue(req{kind: reqSessionStart, session: sessionRow{Operator: operator, Kind: r.Kind, Name: r.Name, Tick: tick}}, &s.dropSession)
}

func (s *SQLiteIndex) SessionEnded(operator, reason string, tick uint64) {
	s.enqueue(req{kind: reqSessionEnd, session: sessionRow{Operator: operator, Tick: tick, Reason: reason}}, &s.dropSession)
}

func (s *SQLiteIndex) RecordStructure(st mapdef.Structure) {
	s.enqueue(req{kind: reqStructure, structure: st}, &s.dropStructure)
}

// UpsertConfig stores the effective value of a named configuration as
// canonical JSON.
func (s *SQLiteIndex) UpsertConfig(name string, v any) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO config(name,digest,json,updated_at) VALUES(?,?,?,?)`,
		name, hex.EncodeToString(sum[:]), string(b), now); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertStep, _ := s.db.Prepare(`INSERT OR REPLACE INTO steps(tick,digest,inputs,raw_json) VALUES(?,?,?,?)`)
	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(operator,start_tick,kind,name) VALUES(?,?,?,?)`)
	endSession, _ := s.db.Prepare(`UPDATE sessions SET end_tick=?, end_reason=? WHERE operator=? AND end_tick IS NULL`)
	insertStructure, _ := s.db.Prepare(`INSERT OR REPLACE INTO structures(id,name,kind,owner,created_tick,template_id,points,regions,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertStep, insertSession, endSession, insertStructure} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	exec := func(st *sql.Stmt, args ...any) {
		if st == nil || tx == nil {
			return
		}
		if _, err := tx.Stmt(st).Exec(args...); err != nil {
			rollback()
			return
		}
		opCount++
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqStep:
			b, _ := json.Marshal(r.step)
			exec(insertStep, int64(r.step.Tick), r.step.Digest, len(r.step.Inputs), string(b))
		case reqSessionStart:
			se := r.session
			exec(insertSession, se.Operator, int64(se.Tick), se.Kind, se.Name)
		case reqSessionEnd:
			se := r.session
			exec(endSession, int64(se.Tick), se.Reason, se.Operator)
		case reqStructure:
			st := r.structure
			b, _ := json.Marshal(st)
			var tpl any
			if st.Transform != nil {
				tpl = st.Transform.TemplateID
			}
			exec(insertStructure, st.ID, st.Name, st.Kind, st.Owner, int64(st.CreatedTick), tpl, len(st.Points), len(st.Regions), string(b))
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait || len(s.ch) == 0) {
			commit()
		}
	}

	commit()
}
