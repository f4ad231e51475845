package session

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"driftline.space/internal/persistence/snapshot"
	"driftline.space/internal/sim/activation"
	"driftline.space/internal/sim/catalogs"
	"driftline.space/internal/sim/tuning"
	"driftline.space/internal/sim/world"
)

type memDays struct{ entries []DayEntry }

func (m *memDays) WriteDay(e DayEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

type memIndex struct {
	memDays
	snaps []string
}

func (m *memIndex) RecordSnapshot(path string, _ snapshot.SnapshotV1) error {
	m.snaps = append(m.snaps, path)
	return nil
}

type memPub struct{ sums []activation.Summary }

func (m *memPub) Publish(s activation.Summary) { m.sums = append(m.sums, s) }

func (m *memPub) last() activation.Summary { return m.sums[len(m.sums)-1] }

type fixture struct {
	w     *world.World
	ship  *world.Spacecraft
	fleet *world.Fleet
	days  *memDays
	index *memIndex
	pub   *memPub
	dir   string
	s     *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cats, err := catalogs.Load("../../../configs/catalogs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tu := tuning.Defaults()
	tu.TickRateHz = 2
	tu.DayTicks = 4
	tu.SnapshotEveryDays = 1
	w, err := world.New(world.Config{
		ID:     "test",
		Seed:   1,
		Tuning: tu,
		Logger: zerolog.Nop(),
		Random: rand.New(rand.NewPCG(5, 6)),
	}, cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	if _, err := w.AddCompany("PLY", "Player", true); err != nil {
		t.Fatalf("company: %v", err)
	}
	if _, err := w.AddCompany("ALY", "Ally", false); err != nil {
		t.Fatalf("company: %v", err)
	}
	for _, sec := range []*world.Sector{
		{ID: "s1", Name: "Nema", LimitRadius: 30000},
		{ID: "s2", Name: "Boneyard", LimitRadius: 30000},
	} {
		if err := w.AddSector(sec); err != nil {
			t.Fatalf("sector: %v", err)
		}
	}
	ship, err := w.AddSpacecraft(world.SpawnSpec{DescID: "ship-ghoul", CompanyID: "PLY", SectorID: "s1"})
	if err != nil {
		t.Fatalf("ship: %v", err)
	}
	if _, err := w.AddSpacecraft(world.SpawnSpec{DescID: "ship-orca", CompanyID: "ALY", SectorID: "s2"}); err != nil {
		t.Fatalf("ship: %v", err)
	}
	f := w.Company("PLY").CreateAutomaticFleet(ship)
	w.SetPlayer(world.Player{CompanyID: "PLY", ShipID: ship.ID, FleetID: f.ID})

	fx := &fixture{w: w, ship: ship, fleet: f, days: &memDays{}, index: &memIndex{}, pub: &memPub{}, dir: t.TempDir()}
	ctl := activation.NewController(activation.Config{World: w, Logger: zerolog.Nop()})
	fx.s, err = New(Config{
		World:       w,
		Controller:  ctl,
		Logger:      zerolog.Nop(),
		SnapshotDir: fx.dir,
		DayLog:      fx.days,
		Index:       fx.index,
		Publisher:   fx.pub,
	})
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return fx
}

func activeSector(t *testing.T, s *Session) string {
	t.Helper()
	sec, err := s.ctl.Active()
	if err != nil {
		t.Fatalf("no active sector: %v", err)
	}
	return sec.Parent().ID
}

func TestSession_ActivationFollowsPlayerTravel(t *testing.T) {
	fx := newFixture(t)
	if err := fx.s.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := activeSector(t, fx.s); got != "s1" {
		t.Fatalf("active=%s want s1", got)
	}
	if fx.pub.last().SectorID != "s1" {
		t.Fatalf("resume did not publish")
	}

	info, err := fx.s.StartTravel(fx.fleet.ID, "s2")
	if err != nil {
		t.Fatalf("travel: %v", err)
	}
	if info.Duration != 2 || info.OriginID != "s1" {
		t.Fatalf("travel=%+v", info)
	}
	if got := activeSector(t, fx.s); got != "travel-"+info.ID {
		t.Fatalf("active=%s, want the travel sector", got)
	}

	for i := 0; i < 4; i++ {
		fx.s.Step()
	}
	if fx.w.Date() != 1 || activeSector(t, fx.s) != "travel-"+info.ID {
		t.Fatalf("day 1: date=%d active=%s", fx.w.Date(), activeSector(t, fx.s))
	}
	for i := 0; i < 4; i++ {
		fx.s.Step()
	}
	if got := activeSector(t, fx.s); got != "s2" {
		t.Fatalf("active=%s after arrival", got)
	}
	sec, _ := fx.s.ctl.Active()
	if sec.SpacecraftByID(fx.ship.ID) == nil || len(sec.Ships()) != 2 {
		t.Fatalf("arrival sector missing ships")
	}
	if fx.ship.SpawnMode != world.SpawnSafe {
		t.Fatalf("spawn mode=%v after landing", fx.ship.SpawnMode)
	}

	if len(fx.days.entries) != 2 {
		t.Fatalf("day entries=%d", len(fx.days.entries))
	}
	d1, d2 := fx.days.entries[0], fx.days.entries[1]
	if len(d1.Departures) != 1 || d1.Departures[0] != fx.fleet.ID || d1.Travels != 1 {
		t.Fatalf("day 1=%+v", d1)
	}
	if len(d2.Arrivals) != 1 || d2.Arrivals[0] != fx.fleet.ID || d2.ActiveSector != "s2" || d2.Travels != 0 {
		t.Fatalf("day 2=%+v", d2)
	}
	if len(fx.index.entries) != 2 {
		t.Fatalf("index days=%d", len(fx.index.entries))
	}
	if last := fx.pub.last(); last.SectorID != "s2" || last.Date != 2 {
		t.Fatalf("last summary=%+v", last)
	}
}

func TestSession_SnapshotsEveryDay(t *testing.T) {
	fx := newFixture(t)
	if err := fx.s.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	fx.s.AdvanceDay()
	fx.s.AdvanceDay()

	if len(fx.index.snaps) != 2 {
		t.Fatalf("snapshots=%v", fx.index.snaps)
	}
	want := filepath.Join(fx.dir, snapshot.FileName(2))
	if got := snapshot.Latest(fx.dir); got != want {
		t.Fatalf("latest=%q want %q", got, want)
	}
	if _, err := os.Stat(fx.index.snaps[0]); err != nil {
		t.Fatalf("snapshot file: %v", err)
	}
	snap, err := snapshot.ReadSnapshot(want)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if snap.Header.Date != 2 || snap.Player.ShipID != fx.ship.ID {
		t.Fatalf("snapshot header=%+v player=%+v", snap.Header, snap.Player)
	}
}

func TestSession_StartTravelErrors(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.s.StartTravel("nope", "s2"); !errors.Is(err, world.ErrUnknownFleet) {
		t.Fatalf("err=%v want ErrUnknownFleet", err)
	}
	if _, err := fx.s.StartTravel(fx.fleet.ID, "s1"); !errors.Is(err, world.ErrTravelRefused) {
		t.Fatalf("err=%v want ErrTravelRefused", err)
	}
	if _, err := fx.s.StartTravel(fx.fleet.ID, "nowhere"); !errors.Is(err, world.ErrUnknownSector) {
		t.Fatalf("err=%v want ErrUnknownSector", err)
	}
}

func TestSession_RunServesTravelRequests(t *testing.T) {
	fx := newFixture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fx.s.Run(ctx) }()

	info, err := fx.s.RequestTravel(ctx, fx.fleet.ID, "s2")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if info.DestinationID != "s2" || info.FleetID != fx.fleet.ID {
		t.Fatalf("info=%+v", info)
	}
	fx.s.Stop()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := fx.s.RequestTravel(ctx, fx.fleet.ID, "s1"); !errors.Is(err, ErrStopped) {
		t.Fatalf("err=%v want ErrStopped", err)
	}
	if snapshot.Latest(fx.dir) == "" {
		t.Fatalf("no snapshot written on stop")
	}
}
