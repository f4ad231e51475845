package world

import (
	"errors"
	"testing"

	"driftline.space/internal/sim/tuning"
)

func TestTravel_StartAndArrive(t *testing.T) {
	w := newTestWorld(t, nil)
	f, ships := fleetOf(t, w, "PLY", "s1", "ship-ghoul", "ship-atlas")

	tr, err := w.StartTravel(f, "s2")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	// base 2 + large ship 1 + slow engine 1
	if tr.Duration != 4 {
		t.Fatalf("duration=%d want 4", tr.Duration)
	}
	if !f.IsTraveling() || f.SectorID != "" {
		t.Fatalf("fleet not traveling: sector=%q travel=%q", f.SectorID, f.TravelID)
	}
	ts := f.CurrentSector()
	if ts == nil || !ts.Travel || ts.ID != tr.TravelSectorID {
		t.Fatalf("travel sector=%+v", ts)
	}
	for _, s := range ships {
		if s.SectorID != ts.ID {
			t.Fatalf("%s still in %s", s.ID, s.SectorID)
		}
	}
	if len(w.Sector("s1").SpacecraftIDs()) != 0 || len(w.Sector("s1").Fleets()) != 0 {
		t.Fatalf("origin keeps departed fleet")
	}
	for _, s := range w.Sectors() {
		if s.Travel {
			t.Fatalf("Sectors lists travel sector %s", s.ID)
		}
	}

	for day := 1; day < 4; day++ {
		if got := w.SimulateDay(); len(got) != 0 {
			t.Fatalf("day %d: early arrival", day)
		}
		if tr.Remaining() != int64(4-day) {
			t.Fatalf("day %d: remaining=%d", day, tr.Remaining())
		}
	}
	arrived := w.SimulateDay()
	if len(arrived) != 1 || arrived[0] != f {
		t.Fatalf("arrived=%v", arrived)
	}
	if f.IsTraveling() || f.SectorID != "s2" {
		t.Fatalf("fleet sector=%q travel=%q", f.SectorID, f.TravelID)
	}
	for _, s := range ships {
		if s.SectorID != "s2" || s.SpawnMode != SpawnTravel {
			t.Fatalf("%s sector=%s mode=%v", s.ID, s.SectorID, s.SpawnMode)
		}
	}
	if w.Sector(tr.TravelSectorID) != nil || w.Travel(tr.ID) != nil {
		t.Fatalf("travel records not dropped")
	}
	if len(w.Sector("s2").Fleets()) != 1 {
		t.Fatalf("destination does not list the fleet")
	}
}

func TestTravel_ChangeDestinationOnlyBeforeFirstDay(t *testing.T) {
	w := newTestWorld(t, nil)
	f, _ := fleetOf(t, w, "PLY", "s1", "ship-ghoul")
	tr, err := w.StartTravel(f, "s2")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	again, err := w.StartTravel(f, "s3")
	if err != nil {
		t.Fatalf("retarget: %v", err)
	}
	if again != tr || tr.DestinationID != "s3" {
		t.Fatalf("retarget created %v dest=%s", again, tr.DestinationID)
	}

	w.SimulateDay()
	if tr.CanChangeDestination() {
		t.Fatalf("destination still changeable after a day")
	}
	if tr.ChangeDestination(w.Sector("s2")) {
		t.Fatalf("ChangeDestination accepted under way")
	}
	if _, err := w.StartTravel(f, "s2"); !errors.Is(err, ErrTravelRefused) {
		t.Fatalf("err=%v want ErrTravelRefused", err)
	}
}

func TestTravel_LeavesImmobilizedShipsBehind(t *testing.T) {
	w := newTestWorld(t, nil)
	f, ships := fleetOf(t, w, "PLY", "s1", "ship-ghoul", "ship-orca", "ship-omen")
	ships[1].Trading = true

	if _, err := w.StartTravel(f, "s2"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if ships[1].SectorID != "s1" || ships[1].FleetID == f.ID {
		t.Fatalf("trading ship traveled: sector=%s fleet=%s", ships[1].SectorID, ships[1].FleetID)
	}
	if f.RosterSize() != 2 {
		t.Fatalf("roster=%d want 2", f.RosterSize())
	}
}

func TestTravel_Refusals(t *testing.T) {
	w := newTestWorld(t, nil)
	f, ships := fleetOf(t, w, "PLY", "s1", "ship-ghoul")

	if _, err := w.StartTravel(f, "nowhere"); !errors.Is(err, ErrUnknownSector) {
		t.Fatalf("err=%v want ErrUnknownSector", err)
	}
	if _, err := w.StartTravel(f, "s1"); !errors.Is(err, ErrTravelRefused) {
		t.Fatalf("err=%v want ErrTravelRefused for current sector", err)
	}
	ships[0].Stranded = true
	if _, err := w.StartTravel(f, "s2"); !errors.Is(err, ErrTravelRefused) {
		t.Fatalf("err=%v want ErrTravelRefused for stranded fleet", err)
	}
}

func TestTravel_ArrivalIntoHostilesIntercepts(t *testing.T) {
	w := newTestWorld(t, func(tu *tuning.Tuning) { tu.Fleet.InterceptProbability = 1 })
	addShip(t, w, "HOS", "ship-ghoul", "s2")
	f, ships := fleetOf(t, w, "PLY", "s1", "ship-orca", "ship-orca", "ship-orca", "ship-orca")
	ships[0].Intercepted = true
	f.RemoveImmobilizedShips()

	if _, err := w.StartTravel(f, "s2"); err != nil {
		t.Fatalf("start: %v", err)
	}
	for len(w.Travels()) > 0 {
		w.SimulateDay()
	}
	n := 0
	for _, s := range f.Ships() {
		if s.Intercepted {
			n++
		}
	}
	// three ships traveled, the cap is max(1, 3/2)
	if n != 1 {
		t.Fatalf("intercepted=%d want 1", n)
	}
}

func TestTravel_DestroyedLastShipDropsTravel(t *testing.T) {
	w := newTestWorld(t, nil)
	f, ships := fleetOf(t, w, "PLY", "s1", "ship-ghoul", "ship-orca")
	tr, err := w.StartTravel(f, "s2")
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	w.RemoveSpacecraft(ships[0].ID)
	if f.RosterSize() != 1 || !f.IsTraveling() {
		t.Fatalf("roster=%d traveling=%v", f.RosterSize(), f.IsTraveling())
	}
	if f.SlowestShip() != ships[1] {
		t.Fatalf("slowest cache not refreshed")
	}

	w.RemoveSpacecraft(ships[1].ID)
	if !f.IsDisbanded() {
		t.Fatalf("empty traveling fleet not disbanded")
	}
	if w.Travel(tr.ID) != nil || w.Sector(tr.TravelSectorID) != nil {
		t.Fatalf("travel survived its fleet")
	}
}
