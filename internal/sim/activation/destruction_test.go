package activation

import (
	"math/rand/v2"
	"testing"

	"driftline.space/internal/sim/mathx"
	"driftline.space/internal/sim/world"
)

func TestAddDestroyedSpacecraft_TieredProbability(t *testing.T) {
	for _, tc := range []struct {
		name  string
		desc  string
		force bool
		vals  []float64
		want  DestroyOutcome
	}{
		{"drone triggered", "drone-hornet", false, []float64{0.4, 0.5}, OutcomeExploded},
		{"small not triggered", "ship-ghoul", false, []float64{0.2}, OutcomeRemoved},
		{"small triggered", "ship-ghoul", false, []float64{0.05, 0.3}, OutcomeExploded},
		{"large triggered silent", "ship-invader", false, []float64{0.04, 0.995}, OutcomeRemoved},
		{"large not triggered", "ship-invader", false, []float64{0.06}, OutcomeRemoved},
		{"forced", "ship-omen", true, []float64{0.5}, OutcomeExploded},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := newTestWorld(t, nil)
			sim := spawn(t, w, world.SpawnSpec{DescID: tc.desc, CompanyID: "PLY", SectorID: "s1", Location: mathx.V(0, 3000, 0)})
			scene := newRecordingScene()
			src := &fixedSource{vals: tc.vals}
			sec := newTestSector(w, scene, src)
			sec.Load(w.Sector("s1"))

			got := sec.AddDestroyedSpacecraft(sec.SpacecraftByID(sim.ID), tc.force)
			if got != tc.want {
				t.Fatalf("outcome=%v want %v", got, tc.want)
			}
			if src.i != len(tc.vals) {
				t.Fatalf("consumed %d rolls, want %d", src.i, len(tc.vals))
			}
			exploded := len(scene.exploded) == 1 && scene.exploded[0] == sim.ID
			if exploded != (tc.want == OutcomeExploded) {
				t.Fatalf("scene exploded=%v", scene.exploded)
			}
			if len(scene.live) != 0 {
				t.Fatalf("scene still holds %v", scene.live)
			}
			if sec.SpacecraftByID(sim.ID) != nil || len(sec.Ships()) != 0 {
				t.Fatalf("ship still active")
			}
			if w.Spacecraft(sim.ID) != nil {
				t.Fatalf("ship still simulated")
			}
		})
	}
}

func TestAddDestroyedSpacecraft_ReserveReplacement(t *testing.T) {
	w := newTestWorld(t, nil)
	lost := spawn(t, w, world.SpawnSpec{DescID: "ship-ghoul", CompanyID: "PLY", SectorID: "s1", Location: mathx.V(1000, 0, 0)})
	reserve := spawn(t, w, world.SpawnSpec{DescID: "ship-ghoul", CompanyID: "PLY", SectorID: "s1", Reserve: true})
	src := &fixedSource{vals: []float64{0.5}}
	sec := newTestSector(w, nil, src)
	sec.Load(w.Sector("s1"))

	if got := sec.AddDestroyedSpacecraft(sec.SpacecraftByID(lost.ID), false); got != OutcomeExploded {
		t.Fatalf("outcome=%v", got)
	}
	if src.i != 1 {
		t.Fatalf("rolls=%d, the replacement skips the trigger roll", src.i)
	}
	a := sec.SpacecraftByID(reserve.ID)
	if a == nil || reserve.Reserve || !reserve.IsActive() {
		t.Fatalf("reserve ship not deployed")
	}
	if a.Location != mathx.V(1000, 0, 0) || reserve.SpawnMode != world.SpawnSafe {
		t.Fatalf("replacement at %+v mode=%v", a.Location, reserve.SpawnMode)
	}
}

func TestAddDestroyedSpacecraft_DropsBombsAndDockings(t *testing.T) {
	w := newTestWorld(t, nil)
	omen := spawn(t, w, world.SpawnSpec{DescID: "ship-omen", CompanyID: "HOS", SectorID: "s1", Location: mathx.V(0, 3000, 0)})
	hub := spawn(t, w, world.SpawnSpec{DescID: "station-hub", CompanyID: "ALY", SectorID: "s1"})
	docked := spawn(t, w, world.SpawnSpec{DescID: "ship-orca", CompanyID: "ALY", SectorID: "s1", DockedTo: hub.ID})
	w.Sector("s1").Bombs = []world.BombRecord{{ID: "b1", ParentShipID: omen.ID, WeaponSlot: "bomb_1"}}

	sec := newTestSector(w, nil, rand.New(rand.NewPCG(1, 1)))
	sec.Load(w.Sector("s1"))
	if len(sec.Bombs()) != 1 {
		t.Fatalf("bomb not loaded")
	}
	sec.AddDestroyedSpacecraft(sec.SpacecraftByID(omen.ID), true)
	if len(sec.Bombs()) != 0 {
		t.Fatalf("bombs of a destroyed ship survive")
	}

	sec.AddDestroyedSpacecraft(sec.SpacecraftByID(hub.ID), true)
	if d := sec.SpacecraftByID(docked.ID); d.DockedTo != nil || docked.DockedTo != "" {
		t.Fatalf("ship still docked to a destroyed station")
	}
	if _, r := sec.Repartition(); r != w.Tuning().Spawn.MinSectorRadius {
		t.Fatalf("repartition not refreshed: radius=%v", r)
	}
	if sec.AddDestroyedSpacecraft(nil, true) != OutcomeNone {
		t.Fatalf("nil ship destroyed")
	}
}

func TestCaches_LazyAndInvalidatedPerCompany(t *testing.T) {
	w := newTestWorld(t, nil)
	spawn(t, w, world.SpawnSpec{DescID: "ship-ghoul", CompanyID: "PLY", SectorID: "s1", Location: mathx.V(2000, 0, 0)})
	spawn(t, w, world.SpawnSpec{DescID: "station-hub", CompanyID: "PLY", SectorID: "s1"})
	spawn(t, w, world.SpawnSpec{DescID: "ship-orca", CompanyID: "ALY", SectorID: "s1", Location: mathx.V(-2000, 0, 0)})

	sec := newTestSector(w, nil, rand.New(rand.NewPCG(1, 1)))
	sec.Load(w.Sector("s1"))
	if sec.cachedCompanies() != 0 {
		t.Fatalf("caches filled before the first query")
	}
	ships := sec.CompanyShips("PLY")
	if len(ships) != 1 || len(sec.CompanySpacecraft("PLY")) != 2 || len(sec.CompanyShips("ALY")) != 1 {
		t.Fatalf("company lists wrong")
	}
	ships[0] = nil
	if sec.CompanyShips("PLY")[0] == nil {
		t.Fatalf("returned slice aliases the cache")
	}

	extra := spawn(t, w, world.SpawnSpec{DescID: "ship-orca", CompanyID: "PLY", SectorID: "s1", Location: mathx.V(0, 5000, 0), SpawnMode: world.SpawnSpawn})
	a := sec.AddReinforcingShip(extra)
	if a == nil {
		t.Fatalf("reinforcement refused")
	}
	if _, ok := sec.companyShips["PLY"]; ok {
		t.Fatalf("PLY cache not invalidated by the addition")
	}
	if _, ok := sec.companyShips["ALY"]; !ok {
		t.Fatalf("ALY cache dropped by a PLY change")
	}
	if got := len(sec.CompanyShips("PLY")); got != 2 {
		t.Fatalf("PLY ships=%d", got)
	}

	sec.AddDestroyedSpacecraft(a, true)
	if _, ok := sec.companySpacecraft["PLY"]; ok {
		t.Fatalf("PLY cache not invalidated by the removal")
	}
	if got := len(sec.CompanyShips("PLY")); got != 1 {
		t.Fatalf("PLY ships=%d after removal", got)
	}

	elsewhere := spawn(t, w, world.SpawnSpec{DescID: "ship-orca", CompanyID: "PLY", SectorID: "s2"})
	if sec.AddReinforcingShip(elsewhere) != nil {
		t.Fatalf("reinforcement from another sector accepted")
	}
}
