package world

import (
	"errors"
	"fmt"

	"driftline.space/internal/sim/mathx"
	"driftline.space/internal/sim/tuning"
)

var ErrTravelRefused = errors.New("travel refused")

// TravelPlanner computes how many days a fleet needs between two sectors.
type TravelPlanner interface {
	TravelDuration(origin, destination *Sector, f *Fleet) int64
}

// DefaultPlanner charges a flat base, a penalty when any large ship is
// aboard and one extra day when the slowest engine is weak.
type DefaultPlanner struct {
	Travel tuning.Travel
}

func (p DefaultPlanner) TravelDuration(origin, destination *Sector, f *Fleet) int64 {
	if origin != nil && destination != nil && origin.ID == destination.ID {
		return 0
	}
	d := int64(p.Travel.BaseDays)
	for _, s := range f.Ships() {
		if s.IsLarge() {
			d += int64(p.Travel.LargeShipDays)
			break
		}
	}
	if f.RosterSize() > 0 && f.SlowestEngine() < p.Travel.SlowEngineBelow {
		d++
	}
	return max(1, d)
}

// Travel is a fleet relocation in progress. The fleet lives in a synthetic
// travel sector until it arrives.
type Travel struct {
	ID             string
	FleetID        string
	OriginID       string
	DestinationID  string
	TravelSectorID string
	DepartureDate  int64
	Duration       int64

	w *World
}

func (t *Travel) Fleet() *Fleet         { return t.w.fleets[t.FleetID] }
func (t *Travel) Origin() *Sector       { return t.w.sectors[t.OriginID] }
func (t *Travel) Destination() *Sector  { return t.w.sectors[t.DestinationID] }
func (t *Travel) TravelSector() *Sector { return t.w.sectors[t.TravelSectorID] }

func (t *Travel) Elapsed() int64 { return t.w.date - t.DepartureDate }

func (t *Travel) Remaining() int64 { return max(0, t.Duration-t.Elapsed()) }

// CanChangeDestination is true until the first day of travel has been simulated.
func (t *Travel) CanChangeDestination() bool { return t.Elapsed() <= 0 }

// ChangeDestination retargets the travel and recomputes its duration.
func (t *Travel) ChangeDestination(dest *Sector) bool {
	if dest == nil || dest.Travel {
		return false
	}
	if !t.CanChangeDestination() {
		t.w.log.Warn().Str("travel", t.ID).Str("reason", "already under way").Msg("change destination refused")
		return false
	}
	t.DestinationID = dest.ID
	t.Duration = t.w.planner.TravelDuration(t.Origin(), dest, t.Fleet())
	if ts := t.TravelSector(); ts != nil {
		ts.Name = "Travel to " + dest.Name
	}
	return true
}

// StartTravel sends f towards destID. A fleet that just departed is
// retargeted instead. Ships that cannot travel are left behind in a fleet of
// their own.
func (w *World) StartTravel(f *Fleet, destID string) (*Travel, error) {
	if f == nil || f.disbanded {
		return nil, ErrUnknownFleet
	}
	dest := w.sectors[destID]
	if dest == nil || dest.Travel {
		return nil, fmt.Errorf("%w %q", ErrUnknownSector, destID)
	}
	if ok, reason := f.CanTravel(dest); !ok {
		return nil, fmt.Errorf("%w: %s", ErrTravelRefused, reason)
	}
	if t := f.CurrentTravel(); t != nil {
		t.ChangeDestination(dest)
		return t, nil
	}
	if f.SectorID == dest.ID {
		return nil, fmt.Errorf("%w: already in %s", ErrTravelRefused, dest.Name)
	}
	origin := w.sectors[f.SectorID]
	if origin == nil {
		return nil, fmt.Errorf("fleet %s: %w %q", f.ID, ErrUnknownSector, f.SectorID)
	}

	f.RemoveImmobilizedShips()

	t := &Travel{
		ID:            w.newTravelID(),
		FleetID:       f.ID,
		OriginID:      origin.ID,
		DestinationID: dest.ID,
		DepartureDate: w.date,
		w:             w,
	}
	t.Duration = w.planner.TravelDuration(origin, dest, f)
	ts := &Sector{
		ID:          "travel-" + t.ID,
		Name:        "Travel to " + dest.Name,
		LimitRadius: dest.LimitRadius,
		Travel:      true,
	}
	if err := w.AddSector(ts); err != nil {
		return nil, err
	}
	t.TravelSectorID = ts.ID
	w.travels[t.ID] = t

	for _, s := range f.Ships() {
		w.moveSpacecraft(s, ts)
		s.DockedTo = ""
		s.Trading = false
	}
	f.SetCurrentTravel(t)
	w.log.Info().Str("fleet", f.ID).Str("from", origin.ID).Str("to", dest.ID).Int64("days", t.Duration).Msg("travel started")
	return t, nil
}

// SimulateDay advances the date and lands every travel that is due. It
// returns the fleets that arrived, in travel id order.
func (w *World) SimulateDay() []*Fleet {
	w.date++
	var arrived []*Fleet
	for _, t := range w.Travels() {
		if t.Elapsed() < t.Duration {
			continue
		}
		if f := w.arrive(t); f != nil {
			arrived = append(arrived, f)
		}
	}
	return arrived
}

func (w *World) arrive(t *Travel) *Fleet {
	f := w.fleets[t.FleetID]
	dest := w.sectors[t.DestinationID]
	if dest == nil {
		w.log.Warn().Str("travel", t.ID).Str("sector", t.DestinationID).Msg("destination vanished, returning to origin")
		dest = w.sectors[t.OriginID]
	}
	if dest == nil {
		w.dropTravel(t)
		return nil
	}
	if ts := w.sectors[t.TravelSectorID]; ts != nil {
		for _, s := range ts.Spacecraft() {
			w.moveSpacecraft(s, dest)
			s.SpawnMode = SpawnTravel
			s.Intercepted = false
			s.Velocity = mathx.Vec3{}
		}
	}
	if f == nil {
		w.dropTravel(t)
		return nil
	}
	f.SetCurrentSector(dest)
	w.dropTravel(t)

	if w.hostileArmedPresence(f.CompanyID, dest) {
		f.InterceptShips()
	}
	w.log.Info().Str("fleet", f.ID).Str("sector", dest.ID).Msg("travel arrived")
	return f
}

// dropTravel forgets a travel and its travel sector. Leftover ships go back
// to the origin.
func (w *World) dropTravel(t *Travel) {
	if ts := w.sectors[t.TravelSectorID]; ts != nil {
		if origin := w.sectors[t.OriginID]; origin != nil {
			for _, s := range ts.Spacecraft() {
				w.moveSpacecraft(s, origin)
			}
		}
		delete(w.sectors, ts.ID)
	}
	if f := w.fleets[t.FleetID]; f != nil && f.TravelID == t.ID {
		f.TravelID = ""
	}
	delete(w.travels, t.ID)
}

func (w *World) hostileArmedPresence(companyID string, s *Sector) bool {
	c := w.companies[companyID]
	if c == nil {
		return false
	}
	for _, sc := range s.Spacecraft() {
		if sc.CompanyID != companyID && c.IsAtWar(sc.CompanyID) && sc.IsMilitary() && sc.Damage < 1 {
			return true
		}
	}
	return false
}
