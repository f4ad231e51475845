package indexdb

import (
	"database/sql"
	"path/filepath"
	"testing"

	"driftline.space/internal/persistence/snapshot"
	"driftline.space/internal/sim/activation"
	"driftline.space/internal/sim/catalogs"
	"driftline.space/internal/sim/session"
	"driftline.space/internal/sim/tuning"
)

func queryInt(t *testing.T, db *sql.DB, q string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := db.QueryRow(q, args...).Scan(&n); err != nil {
		t.Fatalf("%s: %v", q, err)
	}
	return n
}

func reopen(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteIndex_WritesDaysAuditsSnapshots(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index", "driftline.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	_ = idx.WriteDay(session.DayEntry{Date: 1, ActiveSector: "s1", Departures: []string{"F1"}, Travels: 1, Fleets: 3})
	_ = idx.WriteDay(session.DayEntry{Date: 2, ActiveSector: "s2", Arrivals: []string{"F1"}, Fleets: 3})
	for _, e := range []activation.AuditEntry{
		{Date: 1, SectorID: "s1", Actor: "SECTOR", Action: "LOAD"},
		{Date: 1, SectorID: "s1", Actor: "PLY", Action: "SPACECRAFT_DESTROYED", ShipID: "SC7", Pos: [3]float64{1, 2, 3}},
		{Date: 2, SectorID: "s2", Actor: "SECTOR", Action: "LOAD"},
	} {
		_ = idx.WriteAudit(e)
	}
	_ = idx.RecordSnapshot("/data/2.snap.zst", snapshot.SnapshotV1{
		Header:     snapshot.Header{Version: snapshot.Version, WorldID: "w", Date: 2},
		Seed:       7,
		Spacecraft: make([]snapshot.SpacecraftV1, 4),
		Fleets: []snapshot.FleetV1{
			{ID: "F1", CompanyID: "PLY", SectorID: "s2", ShipIDs: []string{"SC1", "SC2"}},
			{ID: "F2", CompanyID: "ALY", TravelID: "TR1", ShipIDs: []string{"SC3"}},
		},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if st := idx.Stats(); st.AppliedTotal != 8 || st.FailedTotal != 0 {
		t.Fatalf("stats=%+v", st)
	}
	if err := idx.WriteDay(session.DayEntry{Date: 3}); err != nil {
		t.Fatalf("write after close: %v", err)
	}

	db := reopen(t, path)
	if n := queryInt(t, db, `SELECT COUNT(*) FROM days`); n != 2 {
		t.Fatalf("days=%d", n)
	}
	if n := queryInt(t, db, `SELECT arrivals FROM days WHERE date=2`); n != 1 {
		t.Fatalf("arrivals=%d", n)
	}
	if n := queryInt(t, db, `SELECT seq FROM audits WHERE date=1 AND ship_id='SC7'`); n != 1 {
		t.Fatalf("seq=%d", n)
	}
	if n := queryInt(t, db, `SELECT seq FROM audits WHERE date=2`); n != 0 {
		t.Fatalf("seq not reset per date: %d", n)
	}
	if n := queryInt(t, db, `SELECT spacecraft FROM snapshots WHERE date=2`); n != 4 {
		t.Fatalf("snapshot spacecraft=%d", n)
	}
	if n := queryInt(t, db, `SELECT ships FROM fleet_state WHERE date=2 AND fleet_id='F1'`); n != 2 {
		t.Fatalf("fleet ships=%d", n)
	}
	var travel string
	if err := db.QueryRow(`SELECT travel_id FROM fleet_state WHERE fleet_id='F2'`).Scan(&travel); err != nil || travel != "TR1" {
		t.Fatalf("travel=%q err=%v", travel, err)
	}
}

func TestSQLiteIndex_AuditSeqContinuesAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.sqlite")
	for i := 0; i < 2; i++ {
		idx, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		_ = idx.WriteAudit(activation.AuditEntry{Date: 5, SectorID: "s1", Actor: "SECTOR", Action: "LOAD"})
		_ = idx.WriteAudit(activation.AuditEntry{Date: 5, SectorID: "s1", Actor: "SECTOR", Action: "DESTROY_SECTOR"})
		if err := idx.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	db := reopen(t, path)
	if n := queryInt(t, db, `SELECT COUNT(*) FROM audits WHERE date=5`); n != 4 {
		t.Fatalf("audits=%d, a reopen overwrote rows", n)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqDay}

	_ = s.WriteDay(session.DayEntry{Date: 2})
	_ = s.WriteAudit(activation.AuditEntry{Date: 2})
	_ = s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropDayTotal != 1 || st.DropAuditTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drops=%+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	cats, err := catalogs.Load("../../../configs/catalogs")
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	path := filepath.Join(t.TempDir(), "idx.sqlite")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.UpsertCatalogs("../../../configs/catalogs", cats, tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := idx.UpsertCatalogs("../../../configs/catalogs", cats, tuning.Defaults()); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	_ = idx.Close()

	db := reopen(t, path)
	if n := queryInt(t, db, `SELECT COUNT(*) FROM catalogs`); n != 4 {
		t.Fatalf("catalog rows=%d", n)
	}
	var digest string
	if err := db.QueryRow(`SELECT digest FROM catalogs WHERE name='spacecraft'`).Scan(&digest); err != nil || digest != cats.Spacecraft.Digest {
		t.Fatalf("digest=%q err=%v", digest, err)
	}
}
