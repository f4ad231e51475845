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

	"driftline.space/internal/persistence/snapshot"
	"driftline.space/internal/sim/activation"
	"driftline.space/internal/sim/catalogs"
	"driftline.space/internal/sim/session"
	"driftline.space/internal/sim/tuning"
)

// SQLiteIndex is a secondary, queryable copy of the day log, the audit
// trail and snapshot metadata. Writes are queued and applied by a single
// goroutine; when the queue is full they are dropped and counted.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropDay      atomic.Uint64
	dropAudit    atomic.Uint64
	dropSnapshot atomic.Uint64
	applied      atomic.Uint64
	failed       atomic.Uint64
}

type Stats struct {
	DropDayTotal      uint64 `json:"drop_day_total"`
	DropAuditTotal    uint64 `json:"drop_audit_total"`
	DropSnapshotTotal uint64 `json:"drop_snapshot_total"`
	AppliedTotal      uint64 `json:"applied_total"`
	FailedTotal       uint64 `json:"failed_total"`
	QueueDepth        int    `json:"queue_depth"`
	QueueCapacity     int    `json:"queue_capacity"`
}

type reqKind int

const (
	reqDay reqKind = iota + 1
	reqAudit
	reqSnapshot
)

type req struct {
	kind reqKind

	day      session.DayEntry
	audit    activation.AuditEntry
	snapshot snapshotRow
}

type snapshotRow struct {
	Date       int64
	Path       string
	WorldID    string
	Seed       int64
	Companies  int
	Sectors    int
	Spacecraft int
	Travels    int
	Fleets     []fleetRow
}

type fleetRow struct {
	ID        string
	CompanyID string
	SectorID  string
	TravelID  string
	Ships     int
}

const defaultQueue = 65536

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, defaultQueue)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
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
		ch: make(chan req, queue),
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
		"PRAGMA foreign_keys=ON;",
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
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS days (
			date INTEGER PRIMARY KEY,
			active_sector TEXT,
			departures INTEGER NOT NULL,
			arrivals INTEGER NOT NULL,
			travels INTEGER NOT NULL,
			fleets INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			date INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			local_time REAL NOT NULL,
			sector_id TEXT NOT NULL,
			actor TEXT NOT NULL,
			action TEXT NOT NULL,
			ship_id TEXT,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			reason TEXT,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (date, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_sector_date ON audits(sector_id, date);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_ship ON audits(ship_id);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			date INTEGER PRIMARY KEY,
			path TEXT NOT NULL,
			world_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			companies INTEGER NOT NULL,
			sectors INTEGER NOT NULL,
			spacecraft INTEGER NOT NULL,
			fleets INTEGER NOT NULL,
			travels INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS fleet_state (
			date INTEGER NOT NULL,
			fleet_id TEXT NOT NULL,
			company_id TEXT NOT NULL,
			sector_id TEXT,
			travel_id TEXT,
			ships INTEGER NOT NULL,
			PRIMARY KEY (date, fleet_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_fleet_state_company ON fleet_state(company_id, date);`,
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
		DropDayTotal:      s.dropDay.Load(),
		DropAuditTotal:    s.dropAudit.Load(),
		DropSnapshotTotal: s.dropSnapshot.Load(),
		AppliedTotal:      s.applied.Load(),
		FailedTotal:       s.failed.Load(),
		QueueDepth:        len(s.ch),
		QueueCapacity:     cap(s.ch),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	select {
	case s.ch <- r:
	default:
		// The JSONL logs remain the source of truth.
		drops.Add(1)
	}
}

func (s *SQLiteIndex) WriteDay(entry session.DayEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.enqueue(req{kind: reqDay, day: entry}, &s.dropDay)
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry activation.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	s.enqueue(req{kind: reqAudit, audit: entry}, &s.dropAudit)
	return nil
}

// RecordSnapshot indexes a written snapshot and the fleet roster it holds.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	r := snapshotRow{
		Date:       snap.Header.Date,
		Path:       path,
		WorldID:    snap.Header.WorldID,
		Seed:       snap.Seed,
		Companies:  len(snap.Companies),
		Sectors:    len(snap.Sectors),
		Spacecraft: len(snap.Spacecraft),
		Travels:    len(snap.Travels),
	}
	for _, f := range snap.Fleets {
		r.Fleets = append(r.Fleets, fleetRow{
			ID:        f.ID,
			CompanyID: f.CompanyID,
			SectorID:  f.SectorID,
			TravelID:  f.TravelID,
			Ships:     len(f.ShipIDs),
		})
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: r}, &s.dropSnapshot)
	return nil
}

// UpsertCatalogs stores the catalog files and the applied tuning so the
// index can be read without the config tree.
func (s *SQLiteIndex) UpsertCatalogs(catalogDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	for _, c := range []struct{ name, digest string }{
		{"spacecraft", cats.Spacecraft.Digest},
		{"resources", cats.Resources.Digest},
		{"technologies", cats.Technologies.Digest},
	} {
		if catalogDir == "" {
			break
		}
		b, err := os.ReadFile(filepath.Join(catalogDir, c.name+".json"))
		if err != nil {
			continue
		}
		rows = append(rows, kv{name: c.name, digest: c.digest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertDay, _ := s.db.Prepare(`INSERT OR REPLACE INTO days(date,active_sector,departures,arrivals,travels,fleets,raw_json) VALUES(?,?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(date,seq,local_time,sector_id,actor,action,ship_id,x,y,z,reason,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`)
	nextSeq, _ := s.db.Prepare(`SELECT COALESCE(MAX(seq)+1, 0) FROM audits WHERE date=?`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(date,path,world_id,seed,companies,sectors,spacecraft,fleets,travels) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertFleet, _ := s.db.Prepare(`INSERT OR REPLACE INTO fleet_state(date,fleet_id,company_id,sector_id,travel_id,ships) VALUES(?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertDay, insertAudit, nextSeq, insertSnapshot, insertFleet} {
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

		auditDate = int64(-1)
		auditSeq  int64
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
		if err := tx.Commit(); err != nil {
			s.failed.Add(uint64(opCount))
		} else {
			s.applied.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		s.failed.Add(uint64(opCount) + 1)
		tx = nil
		opCount = 0
		lastCommit = time.Now()
		// The sequence may have advanced inside the discarded transaction.
		auditDate = -1
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			s.failed.Add(1)
			continue
		}
		switch r.kind {
		case reqDay:
			d := r.day
			raw, _ := json.Marshal(d)
			if insertDay == nil {
				break
			}
			if _, err := tx.Stmt(insertDay).Exec(d.Date, d.ActiveSector, len(d.Departures), len(d.Arrivals), d.Travels, d.Fleets, string(raw)); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqAudit:
			a := r.audit
			if insertAudit == nil || nextSeq == nil {
				break
			}
			if a.Date != auditDate {
				if err := tx.Stmt(nextSeq).QueryRow(a.Date).Scan(&auditSeq); err != nil {
					rollback()
					continue
				}
				auditDate = a.Date
			}
			seq := auditSeq
			auditSeq++
			raw, _ := json.Marshal(a)
			if _, err := tx.Stmt(insertAudit).Exec(
				a.Date,
				seq,
				a.LocalTime,
				a.SectorID,
				a.Actor,
				a.Action,
				a.ShipID,
				a.Pos[0], a.Pos[1], a.Pos[2],
				a.Reason,
				string(raw),
			); err != nil {
				rollback()
				continue
			}
			opCount++

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot == nil || insertFleet == nil {
				break
			}
			if _, err := tx.Stmt(insertSnapshot).Exec(
				sn.Date,
				sn.Path,
				sn.WorldID,
				sn.Seed,
				sn.Companies,
				sn.Sectors,
				sn.Spacecraft,
				len(sn.Fleets),
				sn.Travels,
			); err != nil {
				rollback()
				continue
			}
			opCount++
			for _, f := range sn.Fleets {
				if _, err := tx.Stmt(insertFleet).Exec(sn.Date, f.ID, f.CompanyID, f.SectorID, f.TravelID, f.Ships); err != nil {
					rollback()
					break
				}
				opCount++
			}
		}
		if tx != nil && (opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait) {
			commit()
		}
	}

	commit()
}
