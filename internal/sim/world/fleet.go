package world

// Fleet groups spacecraft of one company that travel and trade together.
// Drones ride along but stay out of the ship cap and most counts.
type Fleet struct {
	ID        string
	Name      string
	CompanyID string

	// SectorID is empty while the fleet is traveling.
	SectorID string
	TravelID string

	WhitelistID  string
	TradeRouteID string
	AutoCreated  bool

	shipIDs   []string
	shipCount int

	slowestID     string
	slowestEngine float64

	disbanded bool

	w *World
}

func (f *Fleet) Company() *Company { return f.w.companies[f.CompanyID] }

func (f *Fleet) IsTraveling() bool { return f.TravelID != "" }

func (f *Fleet) IsDisbanded() bool { return f.disbanded }

func (f *Fleet) CurrentTravel() *Travel {
	if f.TravelID == "" {
		return nil
	}
	return f.w.travels[f.TravelID]
}

// CurrentSector is the fleet's sector, or the travel sector while en route.
func (f *Fleet) CurrentSector() *Sector {
	if t := f.CurrentTravel(); t != nil {
		return f.w.sectors[t.TravelSectorID]
	}
	return f.w.sectors[f.SectorID]
}

// IsPlayerFleet reports whether this is the player's primary fleet.
func (f *Fleet) IsPlayerFleet() bool { return f.w.player.FleetID != "" && f.w.player.FleetID == f.ID }

// HoldsPlayerShip reports whether the ship the human flies is in this fleet.
func (f *Fleet) HoldsPlayerShip() bool {
	ps := f.w.PlayerShip()
	return ps != nil && ps.FleetID == f.ID
}

// ShipCount is the number of non-drone ships.
func (f *Fleet) ShipCount() int { return f.shipCount }

// RosterSize counts every member, drones included.
func (f *Fleet) RosterSize() int { return len(f.shipIDs) }

func (f *Fleet) ShipIDs() []string { return append([]string(nil), f.shipIDs...) }

func (f *Fleet) Ships() []*Spacecraft {
	out := make([]*Spacecraft, 0, len(f.shipIDs))
	for _, id := range f.shipIDs {
		if s := f.w.spacecraft[id]; s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f *Fleet) Contains(ship *Spacecraft) bool { return ship != nil && ship.FleetID == f.ID }

func (f *Fleet) SlowestShip() *Spacecraft { return f.w.spacecraft[f.slowestID] }

func (f *Fleet) SlowestEngine() float64 { return f.slowestEngine }

// CanAddShip reports whether AddShip would accept ship.
func (f *Fleet) CanAddShip(ship *Spacecraft) bool {
	if ship == nil || ship.IsStation() {
		return false
	}
	if f.IsTraveling() {
		return false
	}
	if f.SectorID != "" && ship.SectorID != f.SectorID {
		return false
	}
	if ship.FleetID == f.ID {
		return true
	}
	return f.shipCount+f.incoming(ship) <= f.w.cfg.Tuning.Fleet.MaxShips
}

// incoming counts the non-drone ships adding ship would bring in: the ship
// itself and every child the re-parenting walk would pick up.
func (f *Fleet) incoming(ship *Spacecraft) int {
	n := 0
	if !ship.IsDrone() {
		n++
	}
	work := append([]string(nil), ship.ChildIDs...)
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		child := f.w.spacecraft[id]
		if child == nil || child.IsStation() || child.FleetID == f.ID {
			continue
		}
		if prior := child.Fleet(); prior != nil && prior.IsTraveling() {
			continue
		}
		if !child.IsDrone() {
			n++
		}
		work = append(work, child.ChildIDs...)
	}
	return n
}

// AddShip adds ship and its children to the roster, detaching them from any
// prior fleet. Traveling fleets and foreign-sector ships are refused.
func (f *Fleet) AddShip(ship *Spacecraft, ignoreSectorCheck bool) {
	if ship == nil {
		return
	}
	switch {
	case f.disbanded:
		f.refuse("add ship", ship, "fleet disbanded")
		return
	case f.IsTraveling():
		f.refuse("add ship", ship, "fleet traveling")
		return
	case ship.IsStation():
		f.refuse("add ship", ship, "station")
		return
	case ship.FleetID == f.ID:
		return
	case !ignoreSectorCheck && f.SectorID != "" && ship.SectorID != f.SectorID:
		f.refuse("add ship", ship, "different sector")
		return
	case f.shipCount+f.incoming(ship) > f.w.cfg.Tuning.Fleet.MaxShips:
		f.refuse("add ship", ship, "fleet full")
		return
	}
	if prior := ship.Fleet(); prior != nil && prior.IsTraveling() {
		f.refuse("add ship", ship, "prior fleet traveling")
		return
	}
	if f.SectorID == "" {
		f.SectorID = ship.SectorID
		if s := f.w.sectors[f.SectorID]; s != nil {
			s.addFleet(f)
		}
	}

	f.addOne(ship)

	// Children follow their parent; the worklist covers nested carriers.
	work := append([]string(nil), ship.ChildIDs...)
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		child := f.w.spacecraft[id]
		if child == nil || child.IsStation() || child.FleetID == f.ID {
			continue
		}
		if prior := child.Fleet(); prior != nil && prior.IsTraveling() {
			continue
		}
		f.addOne(child)
		work = append(work, child.ChildIDs...)
	}
}

func (f *Fleet) refuse(op string, ship *Spacecraft, reason string) {
	ev := f.w.log.Warn().Str("fleet", f.ID).Str("reason", reason)
	if ship != nil {
		ev = ev.Str("ship", ship.ID)
	}
	ev.Msg(op + " refused")
}

func (f *Fleet) addOne(ship *Spacecraft) {
	if prior := ship.Fleet(); prior != nil && prior != f {
		prior.removeShip(ship, false, false, false)
	}
	f.shipIDs = append(f.shipIDs, ship.ID)
	ship.FleetID = f.ID
	if !ship.IsDrone() {
		f.shipCount++
	}
	if len(f.shipIDs) == 1 || ship.EngineAcceleration() < f.slowestEngine {
		f.slowestID = ship.ID
		f.slowestEngine = ship.EngineAcceleration()
	}
}

// RemoveShip takes ship out of the roster. Unless destroyed, reformFleet puts
// it into a new automatic fleet. An emptied fleet disbands.
func (f *Fleet) RemoveShip(ship *Spacecraft, destroyed, reformFleet bool) {
	f.removeShip(ship, destroyed, reformFleet, false)
}

// removeShip with force bypasses the traveling gate; used when a ship stops existing.
func (f *Fleet) removeShip(ship *Spacecraft, destroyed, reformFleet, force bool) {
	if ship == nil {
		return
	}
	if f.IsTraveling() && !force {
		f.refuse("remove ship", ship, "fleet traveling")
		return
	}
	i := indexOf(f.shipIDs, ship.ID)
	if i < 0 {
		f.refuse("remove ship", ship, "not a member")
		return
	}
	f.shipIDs = append(f.shipIDs[:i], f.shipIDs[i+1:]...)
	if !ship.IsDrone() {
		f.shipCount--
	}
	if ship.FleetID == f.ID {
		ship.FleetID = ""
	}

	if !destroyed && reformFleet {
		if c := ship.Company(); c != nil {
			c.CreateAutomaticFleet(ship)
		}
		// The new fleet may have pulled our last members away as children.
		if f.disbanded {
			return
		}
	}

	if len(f.shipIDs) == 0 {
		f.disband()
		return
	}
	if f.slowestID == ship.ID {
		f.recomputeSlowest()
	}
}

// RemoveShips detaches a batch; all ships land in the single automatic fleet
// created for the first one.
func (f *Fleet) RemoveShips(ships []*Spacecraft) {
	if f.IsTraveling() {
		f.refuse("remove ships", nil, "fleet traveling")
		return
	}
	var target *Fleet
	for _, ship := range ships {
		if ship == nil || ship.FleetID != f.ID {
			continue
		}
		if target == nil || target.disbanded {
			f.RemoveShip(ship, false, true)
			target = ship.Fleet()
			continue
		}
		f.RemoveShip(ship, false, false)
		target.AddShip(ship, true)
	}
}

func (f *Fleet) recomputeSlowest() {
	f.slowestID = ""
	f.slowestEngine = 0
	for i, s := range f.Ships() {
		if i == 0 || s.EngineAcceleration() < f.slowestEngine {
			f.slowestID = s.ID
			f.slowestEngine = s.EngineAcceleration()
		}
	}
}

// CanMerge reports whether other can be absorbed, with the refusal reason.
func (f *Fleet) CanMerge(other *Fleet) (bool, string) {
	switch {
	case other == nil || other == f:
		return false, "Cannot merge a fleet with itself"
	case other.CompanyID != f.CompanyID:
		return false, "Fleets belong to different companies"
	case f.shipCount+other.shipCount > f.w.cfg.Tuning.Fleet.MaxShips:
		return false, "Too many ships in the merged fleet"
	case f.IsTraveling() || other.IsTraveling():
		return false, "Traveling fleets cannot merge"
	case other.IsPlayerFleet():
		return false, "Cannot merge the player fleet into another fleet"
	case f.SectorID != other.SectorID:
		return false, "Fleets are in different sectors"
	}
	return true, ""
}

// Merge absorbs other: it is disbanded and its ships are re-added one by one.
func (f *Fleet) Merge(other *Fleet) bool {
	if ok, reason := f.CanMerge(other); !ok {
		ev := f.w.log.Warn().Str("fleet", f.ID).Str("reason", reason)
		if other != nil {
			ev = ev.Str("other", other.ID)
		}
		ev.Msg("merge refused")
		return false
	}
	ships := other.Ships()
	other.disband()
	for _, s := range ships {
		f.AddShip(s, false)
	}
	return true
}

// Disband dissolves the fleet. Refused while traveling.
func (f *Fleet) Disband() bool {
	if f.IsTraveling() {
		f.refuse("disband", nil, "fleet traveling")
		return false
	}
	f.disband()
	return true
}

func (f *Fleet) disband() {
	if f.disbanded {
		return
	}
	for _, id := range f.shipIDs {
		if s := f.w.spacecraft[id]; s != nil && s.FleetID == f.ID {
			s.FleetID = ""
		}
	}
	f.shipIDs = nil
	f.shipCount = 0
	f.slowestID = ""
	f.slowestEngine = 0

	if f.TradeRouteID != "" {
		if r := f.w.routes[f.TradeRouteID]; r != nil {
			r.RemoveFleet(f.ID)
		}
		f.TradeRouteID = ""
	}
	if s := f.CurrentSector(); s != nil {
		s.DisbandFleet(f)
	}
	if t := f.CurrentTravel(); t != nil {
		f.w.dropTravel(t)
	}
	if c := f.Company(); c != nil {
		c.removeFleet(f.ID)
	}
	if f.w.player.FleetID == f.ID {
		f.w.player.FleetID = ""
	}
	delete(f.w.fleets, f.ID)
	f.disbanded = true
}

// SetCurrentSector places the fleet in s, ending any travel state.
func (f *Fleet) SetCurrentSector(s *Sector) {
	if old := f.CurrentSector(); old != nil && old != s {
		old.DisbandFleet(f)
	}
	f.TravelID = ""
	f.SectorID = ""
	if s != nil {
		f.SectorID = s.ID
		s.addFleet(f)
	}
}

// SetCurrentTravel marks the fleet en route; the roster freezes until arrival.
func (f *Fleet) SetCurrentTravel(t *Travel) {
	if old := f.w.sectors[f.SectorID]; old != nil {
		old.DisbandFleet(f)
	}
	f.SectorID = ""
	f.TravelID = t.ID
	if ts := f.w.sectors[t.TravelSectorID]; ts != nil {
		ts.addFleet(f)
	}
}

// InterceptShips marks up to half (at least one) of the eligible ships as
// intercepted, each with the tuned probability. It returns how many were hit.
func (f *Fleet) InterceptShips() int {
	limit := max(1, f.shipCount/2)
	p := f.w.cfg.Tuning.Fleet.InterceptProbability
	n := 0
	for _, s := range f.Ships() {
		if n >= limit {
			break
		}
		if s.IsPlayerShip() || s.IsDrone() || s.Intercepted {
			continue
		}
		if f.w.rnd.Float64() < p {
			s.Intercepted = true
			n++
		}
	}
	if n > 0 {
		f.w.log.Info().Str("fleet", f.ID).Int("intercepted", n).Msg("fleet intercepted")
	}
	return n
}

// RemoveImmobilizedShips detaches ships that cannot travel into a fleet of
// their own, unless that would leave nothing behind.
func (f *Fleet) RemoveImmobilizedShips() int {
	var stuck []*Spacecraft
	ships := f.Ships()
	for _, s := range ships {
		if s.IsPlayerShip() || s.IsDrone() || s.CanTravel() {
			continue
		}
		stuck = append(stuck, s)
	}
	if len(stuck) == 0 || len(stuck) == len(ships) {
		return 0
	}
	f.RemoveShips(stuck)
	return len(stuck)
}
