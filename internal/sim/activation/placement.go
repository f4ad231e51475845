package activation

import (
	"math"

	"driftline.space/internal/sim/mathx"
	"driftline.space/internal/sim/world"
)

type placement struct {
	Location   mathx.Vec3
	Iterations int
	Radius     float64
	Clear      bool
}

// place positions a ship according to its spawn mode, then resets the mode to
// Safe unless the ship is still en route.
func (s *Sector) place(a *Spacecraft) {
	sim := a.Sim
	switch sim.SpawnMode {
	case world.SpawnSpawn:
		a.Velocity = mathx.Vec3{}
		a.Location = s.search(a, sim.Location, true).Location
	case world.SpawnTravel:
		s.placeTravel(a)
	case world.SpawnExit:
		s.placeExit(a)
	case world.SpawnInternalDocked:
		if !s.placeLaunched(a) {
			s.placeSafe(a)
		}
	default:
		s.placeSafe(a)
	}
	a.positioned = true
	s.scene.SetLocation(a.ID, a.Location)
	s.scene.SetVelocity(a.ID, a.Velocity)

	if s.cfg.DevChecks && !a.IsStation() && s.parent.InExclusion(a.Location) {
		s.log.Warn().
			Str("sector", s.parent.ID).
			Str("ship", a.ID).
			Str("mode", sim.SpawnMode.String()).
			Msg("ship placed inside an exclusion volume")
		s.audit("PLACEMENT_OVERLAP", a, sim.SpawnMode.String(), nil)
	}
	if !s.parent.Travel {
		sim.SpawnMode = world.SpawnSafe
	}
}

func (s *Sector) placeSafe(a *Spacecraft) {
	if a.DockedTo != nil || a.IsStation() {
		return
	}
	a.Location = s.search(a, a.Location, true).Location
}

func (s *Sector) placeTravel(a *Spacecraft) {
	tune := s.w.Tuning().Spawn
	center, radius := s.Repartition()
	dir := s.travelDirection(a, center)

	dist := radius + tune.TravelDistance
	battle := s.parent.InBattle(a.CompanyID())
	if battle {
		dist += tune.BattleMargin
	}
	if lim := s.parent.LimitRadius; lim > 0 && dist > lim {
		dist = lim
	}
	a.Location = s.search(a, center.Add(dir.Scale(dist)), false).Location
	a.Velocity = mathx.Vec3{}
	if battle {
		if in, ok := center.Sub(a.Location).Normalized(); ok {
			a.Velocity = in.Scale(tune.BattleEntrySpeed)
		}
	}
}

// travelDirection picks the arrival side: away from the company's ships already
// here, else away from hostile ships, else a uniformly random direction.
func (s *Sector) travelDirection(a *Spacecraft, center mathx.Vec3) mathx.Vec3 {
	c := s.w.Company(a.CompanyID())
	var friends, hostiles []mathx.Vec3
	for _, o := range s.ships {
		if o == a || !o.positioned {
			continue
		}
		switch {
		case o.CompanyID() == a.CompanyID():
			friends = append(friends, o.Location)
		case c != nil && c.IsAtWar(o.CompanyID()):
			hostiles = append(hostiles, o.Location)
		}
	}
	if m, ok := mathx.Mean(friends); ok {
		if d, ok := center.Sub(m).Normalized(); ok {
			return d
		}
	}
	if m, ok := mathx.Mean(hostiles); ok {
		if d, ok := center.Sub(m).Normalized(); ok {
			return d
		}
	}
	return mathx.RandomUnit(s.rnd)
}

func (s *Sector) placeExit(a *Spacecraft) {
	tune := s.w.Tuning().Spawn
	center, radius := s.Repartition()
	limit := s.parent.LimitRadius
	if limit <= 0 {
		limit = radius
	}
	dir, ok := a.Sim.Velocity.Normalized()
	if !ok {
		dir, ok = a.Sim.Location.Sub(center).Normalized()
	}
	if !ok {
		dir = mathx.RandomUnit(s.rnd)
	}
	a.Location = s.search(a, center.Add(dir.Scale(limit*tune.ExitLimitRatio)), false).Location
	a.Velocity = mathx.Vec3{}
	if in, ok := center.Sub(a.Location).Normalized(); ok {
		a.Velocity = in.Scale(a.Sim.Velocity.Len() * tune.ExitVelocityDamping)
	}
}

// placeLaunched puts an internally docked ship beside its active mothership,
// alternating sides by sibling rank. It reports false when there is no
// active mothership.
func (s *Sector) placeLaunched(a *Spacecraft) bool {
	p := a.Parent
	if p == nil || p.removed {
		return false
	}
	if !p.positioned {
		s.place(p)
	}
	tune := s.w.Tuning().Spawn
	rank := 0
	for i, id := range p.Sim.ChildIDs {
		if id == a.ID {
			rank = i
			break
		}
	}
	side := 1.0
	if rank%2 == 1 {
		side = -1
	}
	offset := p.Size() + a.Size() + tune.DockedSpacing*float64(rank/2+1)
	a.Location = p.Location.Add(mathx.RightOf(p.Rotation.Y).Scale(side * offset))
	a.Velocity = p.Velocity.Scale(tune.DockedVelocityRatio)
	a.Rotation = p.Rotation
	a.Sim.InternalDocked = false
	return true
}

// search perturbs start until the nearest body is clear of the ship. The
// radius grows by one increment per step when grow is set, up to
// GrowthLimit increments; otherwise it stays at one increment. The search
// gives up after GrowthLimit steps and returns the clearest candidate seen.
func (s *Sector) search(a *Spacecraft, start mathx.Vec3, grow bool) placement {
	tune := s.w.Tuning().Placement
	limit := float64(tune.GrowthLimit) * tune.Increment

	best := placement{Location: start}
	bestClearance := math.Inf(-1)
	loc, radius := start, 0.0
	steps := 0
	for ; steps <= tune.GrowthLimit; steps++ {
		if s.tearingDown {
			break
		}
		clearance, found := s.clearance(a, loc)
		if !found || clearance-a.Size() > 0 {
			return placement{Location: loc, Iterations: steps, Radius: radius, Clear: true}
		}
		if clearance > bestClearance {
			bestClearance = clearance
			best.Location = loc
		}
		if steps == 0 || grow {
			radius = math.Min(radius+tune.Increment, limit)
		}
		loc = start.Add(mathx.RandomUnit(s.rnd).Scale(radius))
	}
	best.Iterations = steps
	best.Radius = radius
	return best
}

// clearance is the distance from loc to the surface of the nearest ship,
// asteroid or exclusion volume. found is false in an empty sector.
func (s *Sector) clearance(a *Spacecraft, loc mathx.Vec3) (float64, bool) {
	nearest, found := math.Inf(1), false
	consider := func(center mathx.Vec3, radius float64) {
		if d := loc.Dist(center) - radius; d < nearest {
			nearest = d
		}
		found = true
	}
	for _, o := range s.spacecraft {
		if o == a || !o.positioned || o.DockedTo != nil {
			continue
		}
		consider(o.Location, o.Size())
	}
	for _, ast := range s.asteroids {
		consider(ast.Location, ast.Radius())
	}
	if s.parent != nil {
		for _, e := range s.parent.Exclusions {
			consider(e.Center, e.Radius)
		}
	}
	return nearest, found
}
