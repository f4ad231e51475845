package activation

import "driftline.space/internal/sim/mathx"

// Tick advances the active sector by dt seconds. Loops stop at the next
// iteration once the sector starts tearing down.
func (s *Sector) Tick(dt float64) {
	if s.state != StateActive || s.paused || dt <= 0 {
		return
	}
	gen := s.generation
	aborted := func() bool { return s.tearingDown || s.generation != gen || s.state != StateActive }

	s.localTime += dt

	for _, b := range s.bombs {
		if aborted() {
			return
		}
		b.Location = b.Location.Add(b.Velocity.Scale(dt))
	}

	var hits []*Meteorite
	for _, m := range s.meteorites {
		if aborted() {
			return
		}
		if m.Exploded {
			continue
		}
		m.Location = m.Location.Add(m.Velocity.Scale(dt))
		if t := s.byID[m.TargetID]; t != nil && m.Location.Dist(t.Location) <= m.Radius+t.Size() {
			hits = append(hits, m)
		}
	}
	for _, m := range hits {
		if aborted() {
			return
		}
		s.impact(m)
	}

	for _, a := range s.Ships() {
		if aborted() {
			return
		}
		if a.removed {
			continue
		}
		s.steer(a, dt)
	}

	kept := s.shells[:0]
	for _, sh := range s.shells {
		if aborted() {
			return
		}
		sh.TTL -= dt
		if sh.TTL <= 0 {
			s.scene.SafeDestroy(sh.ID)
			s.pools.shells.Put(sh)
			continue
		}
		sh.Location = sh.Location.Add(sh.Velocity.Scale(dt))
		kept = append(kept, sh)
	}
	for i := len(kept); i < len(s.shells); i++ {
		s.shells[i] = nil
	}
	s.shells = kept
}

func (s *Sector) steer(a *Spacecraft, dt float64) {
	switch {
	case a.DockedTo != nil:
		a.Location = a.DockedTo.Location
		return
	case a.Autopilot != nil:
		to := a.Autopilot.Target.Sub(a.Location)
		step := a.Autopilot.Speed * dt
		if to.Len() <= step {
			a.Location = a.Autopilot.Target
			a.Velocity = mathx.Vec3{}
			a.CancelAutopilot()
			s.scene.SetLocation(a.ID, a.Location)
			s.scene.SetVelocity(a.ID, a.Velocity)
			return
		}
		dir, _ := to.Normalized()
		a.Velocity = dir.Scale(a.Autopilot.Speed)
		s.scene.SetVelocity(a.ID, a.Velocity)
	}
	a.Location = a.Location.Add(a.Velocity.Scale(dt))
}

// impact explodes a meteorite on its target and applies its damage.
func (s *Sector) impact(m *Meteorite) {
	t := s.byID[m.TargetID]
	m.Exploded = true
	s.scene.Explode(m.ID)
	if t == nil {
		return
	}
	t.Sim.Damage += m.Damage
	if t.Sim.Damage < 1 {
		return
	}
	t.Sim.Damage = 1
	if !t.IsStation() {
		s.AddDestroyedSpacecraft(t, false)
	}
}
