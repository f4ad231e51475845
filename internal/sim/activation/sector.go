package activation

import (
	"github.com/rs/zerolog"

	"driftline.space/internal/sim/mathx"
	"driftline.space/internal/sim/world"
)

// Sector is the active instance of one simulated sector. A Sector is reused
// across loads; only one is active at a time (see Controller).
type Sector struct {
	cfg   Config
	w     *world.World
	scene Scene
	rnd   mathx.Source
	log   zerolog.Logger
	pools *pools

	parent      *world.Sector
	state       State
	paused      bool
	tearingDown bool
	generation  uint64

	localTimeBaseline float64
	localTime         float64

	spacecraft []*Spacecraft
	ships      []*Spacecraft
	stations   []*Spacecraft
	asteroids  []*Asteroid
	meteorites []*Meteorite
	bombs      []*Bomb
	shells     []*Shell

	byID      map[string]*Spacecraft
	companies []string

	companyShips      map[string][]*Spacecraft
	companySpacecraft map[string][]*Spacecraft

	repartitionValid  bool
	repartitionCenter mathx.Vec3
	repartitionRadius float64

	nextShell uint64
}

func NewSector(cfg Config) *Sector {
	return newSector(cfg, newPools())
}

func newSector(cfg Config, p *pools) *Sector {
	cfg = cfg.withDefaults()
	s := &Sector{
		cfg:   cfg,
		w:     cfg.World,
		scene: cfg.Scene,
		rnd:   cfg.Random,
		log:   cfg.Logger.With().Str("component", "activation").Logger(),
		pools: p,
	}
	s.reset()
	return s
}

func (s *Sector) Parent() *world.Sector { return s.parent }
func (s *Sector) State() State          { return s.state }
func (s *Sector) IsActive() bool        { return s.state == StateActive }
func (s *Sector) Paused() bool          { return s.paused }
func (s *Sector) SetPaused(p bool)      { s.paused = p }
func (s *Sector) TearingDown() bool     { return s.tearingDown }

// LocalTime is the sector clock; it started at LocalTimeBaseline when loaded.
func (s *Sector) LocalTime() float64         { return s.localTime }
func (s *Sector) LocalTimeBaseline() float64 { return s.localTimeBaseline }

func (s *Sector) Ships() []*Spacecraft         { return append([]*Spacecraft(nil), s.ships...) }
func (s *Sector) Stations() []*Spacecraft      { return append([]*Spacecraft(nil), s.stations...) }
func (s *Sector) AllSpacecraft() []*Spacecraft { return append([]*Spacecraft(nil), s.spacecraft...) }
func (s *Sector) Asteroids() []*Asteroid       { return append([]*Asteroid(nil), s.asteroids...) }
func (s *Sector) Meteorites() []*Meteorite     { return append([]*Meteorite(nil), s.meteorites...) }
func (s *Sector) Bombs() []*Bomb               { return append([]*Bomb(nil), s.bombs...) }
func (s *Sector) Shells() []*Shell             { return append([]*Shell(nil), s.shells...) }
func (s *Sector) CompaniesPresent() []string   { return append([]string(nil), s.companies...) }

func (s *Sector) sectorID() string {
	if s.parent == nil {
		return ""
	}
	return s.parent.ID
}

// Load activates parent. Any previous activation is torn down first.
func (s *Sector) Load(parent *world.Sector) {
	s.DestroySector()
	if parent == nil {
		s.log.Warn().Msg("load without a sector")
		return
	}
	s.state = StateLoading
	s.parent = parent
	s.localTimeBaseline = parent.LocalTime
	s.localTime = parent.LocalTime

	for _, rec := range parent.Asteroids {
		s.loadAsteroid(rec)
	}
	for _, rec := range parent.Meteorites {
		if !rec.Exploded {
			s.loadMeteorite(rec)
		}
	}

	playerShipID := s.w.Player().ShipID
	sims := parent.Spacecraft()
	for _, sim := range sims {
		if sim.IsStation() {
			s.instantiate(sim)
		}
	}
	for _, sim := range sims {
		if sim.IsStation() {
			continue
		}
		if sim.ID == playerShipID || (!sim.Reserve && !sim.InternalDocked) {
			s.instantiate(sim)
		}
	}

	for _, rec := range parent.Bombs {
		s.loadBomb(rec)
	}

	for _, a := range s.spacecraft {
		s.attach(a)
	}
	for _, a := range s.spacecraft {
		if s.tearingDown {
			return
		}
		if !a.positioned {
			s.place(a)
		}
	}

	s.state = StateActive
	for _, id := range s.companies {
		if c := s.w.Company(id); c != nil {
			c.OnSectorLoaded(parent.ID)
		}
	}
	s.log.Info().
		Str("sector", parent.ID).
		Int("ships", len(s.ships)).
		Int("stations", len(s.stations)).
		Int("asteroids", len(s.asteroids)).
		Int("meteorites", len(s.meteorites)).
		Int("bombs", len(s.bombs)).
		Msg("sector loaded")
	s.audit("LOAD", nil, "", map[string]any{
		"ships":    len(s.ships),
		"stations": len(s.stations),
		"bombs":    len(s.bombs),
	})
}

// DestroySector releases every active instance and clears all caches.
// It does nothing when the sector is already inactive.
func (s *Sector) DestroySector() {
	if s.state == StateInactive {
		return
	}
	s.tearingDown = true
	s.state = StateDestroying
	s.generation++
	s.audit("DESTROY_SECTOR", nil, "", nil)

	for _, a := range s.spacecraft {
		a.CancelAutopilot()
		s.scene.SafeDestroy(a.ID)
		s.release(a)
	}
	for _, b := range s.bombs {
		s.scene.SafeDestroy(b.ID)
	}
	for _, a := range s.asteroids {
		s.scene.SafeDestroy(a.ID)
		s.pools.asteroids.Put(a)
	}
	for _, m := range s.meteorites {
		if !m.Exploded {
			s.scene.SafeDestroy(m.ID)
		}
		s.pools.meteorites.Put(m)
	}
	for _, sh := range s.shells {
		s.scene.SafeDestroy(sh.ID)
		s.pools.shells.Put(sh)
	}
	if s.parent != nil {
		s.log.Info().Str("sector", s.parent.ID).Msg("sector destroyed")
	}
	s.reset()
	s.state = StateInactive
	s.paused = false
	s.tearingDown = false
}

// Save writes the active state back into the simulated records.
func (s *Sector) Save() {
	if s.state != StateActive {
		return
	}
	for _, a := range s.spacecraft {
		sim := a.Sim
		sim.Location = a.Location
		sim.Velocity = a.Velocity
		sim.Rotation = a.Rotation
		sim.DockedTo = ""
		if a.DockedTo != nil {
			sim.DockedTo = a.DockedTo.ID
		}
	}
	asteroids := make([]world.AsteroidRecord, 0, len(s.asteroids))
	for _, a := range s.asteroids {
		asteroids = append(asteroids, world.AsteroidRecord{ID: a.ID, Location: a.Location, Rotation: a.Rotation, Scale: a.Scale})
	}
	meteorites := make([]world.MeteoriteRecord, 0, len(s.meteorites))
	for _, m := range s.meteorites {
		meteorites = append(meteorites, world.MeteoriteRecord{
			ID:       m.ID,
			Location: m.Location,
			Velocity: m.Velocity,
			Radius:   m.Radius,
			TargetID: m.TargetID,
			Damage:   m.Damage,
			Exploded: m.Exploded,
		})
	}
	bombs := make([]world.BombRecord, 0, len(s.bombs))
	for _, b := range s.bombs {
		bombs = append(bombs, world.BombRecord{
			ID:           b.ID,
			ParentShipID: b.Parent.ID,
			WeaponSlot:   b.WeaponSlot,
			Location:     b.Location,
			Velocity:     b.Velocity,
			Armed:        b.Armed,
		})
	}
	s.parent.Asteroids = asteroids
	s.parent.Meteorites = meteorites
	s.parent.Bombs = bombs
	s.parent.LocalTime = s.localTime
}

func (s *Sector) reset() {
	s.parent = nil
	s.spacecraft = nil
	s.ships = nil
	s.stations = nil
	s.asteroids = nil
	s.meteorites = nil
	s.bombs = nil
	s.shells = nil
	s.byID = map[string]*Spacecraft{}
	s.companies = nil
	s.companyShips = map[string][]*Spacecraft{}
	s.companySpacecraft = map[string][]*Spacecraft{}
	s.repartitionValid = false
	s.repartitionCenter = mathx.Vec3{}
	s.repartitionRadius = 0
	s.localTimeBaseline = 0
	s.localTime = 0
}

func (s *Sector) loadAsteroid(rec world.AsteroidRecord) {
	a := s.pools.asteroids.Get()
	a.ID = rec.ID
	a.Location = rec.Location
	a.Rotation = rec.Rotation
	a.Scale = rec.Scale
	s.asteroids = append(s.asteroids, a)
	s.scene.Spawn(a.ID, KindAsteroid, a.Location, a.Radius())
}

func (s *Sector) loadMeteorite(rec world.MeteoriteRecord) {
	m := s.pools.meteorites.Get()
	m.ID = rec.ID
	m.Location = rec.Location
	m.Velocity = rec.Velocity
	m.Radius = rec.Radius
	m.TargetID = rec.TargetID
	m.Damage = rec.Damage
	s.meteorites = append(s.meteorites, m)
	s.scene.Spawn(m.ID, KindMeteorite, m.Location, m.Radius)
	s.scene.SetVelocity(m.ID, m.Velocity)
}

// loadBomb attaches a bomb record to the active ship and weapon slot that
// released it. Records without a match are dropped.
func (s *Sector) loadBomb(rec world.BombRecord) {
	var owner *Spacecraft
	for _, a := range s.ships {
		if a.ID == rec.ParentShipID && a.Sim.Desc.HasWeaponSlot(rec.WeaponSlot) {
			owner = a
			break
		}
	}
	if owner == nil {
		s.log.Warn().
			Str("sector", s.sectorID()).
			Str("bomb", rec.ID).
			Str("ship", rec.ParentShipID).
			Str("slot", rec.WeaponSlot).
			Msg("bomb parent not found, skipped")
		return
	}
	b := &Bomb{
		ID:         rec.ID,
		Parent:     owner,
		WeaponSlot: rec.WeaponSlot,
		Location:   rec.Location,
		Velocity:   rec.Velocity,
		Armed:      rec.Armed,
	}
	s.bombs = append(s.bombs, b)
	s.scene.Spawn(b.ID, KindBomb, b.Location, 0)
	s.scene.SetVelocity(b.ID, b.Velocity)
}

func (s *Sector) instantiate(sim *world.Spacecraft) *Spacecraft {
	if existing := s.byID[sim.ID]; existing != nil {
		return existing
	}
	a := &Spacecraft{
		ID:         sim.ID,
		Sim:        sim,
		Location:   sim.Location,
		Velocity:   sim.Velocity,
		Rotation:   sim.Rotation,
		positioned: sim.IsStation(),
	}
	s.spacecraft = append(s.spacecraft, a)
	if a.IsStation() {
		s.stations = append(s.stations, a)
	} else {
		s.ships = append(s.ships, a)
	}
	s.byID[a.ID] = a
	s.notePresence(sim.CompanyID)
	s.invalidateCompany(sim.CompanyID)
	sim.SetActive(a)
	s.scene.Spawn(a.ID, a.kind(), a.Location, a.Size())
	return a
}

// attach restores parent/child links and re-docks docked ships.
func (s *Sector) attach(a *Spacecraft) {
	sim := a.Sim
	if sim.ParentID != "" {
		if p := s.byID[sim.ParentID]; p != nil && a.Parent == nil {
			a.Parent = p
			p.Children = append(p.Children, a)
		}
	}
	if sim.DockedTo == "" {
		return
	}
	st := s.byID[sim.DockedTo]
	if st == nil || !st.IsStation() {
		s.log.Warn().
			Str("sector", s.sectorID()).
			Str("ship", a.ID).
			Str("station", sim.DockedTo).
			Msg("dock target not active, undocked")
		sim.DockedTo = ""
		return
	}
	a.DockedTo = st
	a.Location = st.Location
	a.Velocity = mathx.Vec3{}
	a.positioned = true
	s.scene.SetLocation(a.ID, a.Location)
	s.scene.SetVelocity(a.ID, a.Velocity)
}

func (s *Sector) notePresence(companyID string) {
	for _, id := range s.companies {
		if id == companyID {
			return
		}
	}
	s.companies = append(s.companies, companyID)
}

func (s *Sector) audit(action string, a *Spacecraft, reason string, details map[string]any) {
	if s.cfg.Audit == nil {
		return
	}
	entry := AuditEntry{
		Date:      s.w.Date(),
		LocalTime: s.localTime,
		SectorID:  s.sectorID(),
		Actor:     "SECTOR",
		Action:    action,
		Reason:    reason,
		Details:   details,
	}
	if a != nil {
		entry.Actor = a.CompanyID()
		entry.ShipID = a.ID
		entry.Pos = [3]float64{a.Location.X, a.Location.Y, a.Location.Z}
	}
	_ = s.cfg.Audit.WriteAudit(entry)
}
