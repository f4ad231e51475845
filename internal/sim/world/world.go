package world

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/rs/zerolog"

	"driftline.space/internal/sim/catalogs"
	"driftline.space/internal/sim/mathx"
	"driftline.space/internal/sim/tuning"
)

var (
	ErrUnknownSector     = errors.New("unknown sector")
	ErrUnknownFleet      = errors.New("unknown fleet")
	ErrUnknownCompany    = errors.New("unknown company")
	ErrUnknownSpacecraft = errors.New("unknown spacecraft")
	ErrDuplicateID       = errors.New("duplicate id")
)

type Config struct {
	ID     string
	Seed   int64
	Tuning tuning.Tuning
	Logger zerolog.Logger

	// Random overrides the seeded source. Tests inject fixed PCG streams here.
	Random mathx.Source

	// Planner computes travel durations; nil selects DefaultPlanner.
	Planner TravelPlanner
}

// Player identifies the human company, the ship it flies and its primary fleet.
type Player struct {
	CompanyID string
	ShipID    string
	FleetID   string
}

// World is the registry of every simulated record.
// All state must be accessed only from the session goroutine.
type World struct {
	cfg      Config
	catalogs *catalogs.Catalogs
	log      zerolog.Logger
	rnd      mathx.Source
	planner  TravelPlanner

	date int64

	companies  map[string]*Company
	spacecraft map[string]*Spacecraft
	fleets     map[string]*Fleet
	sectors    map[string]*Sector
	travels    map[string]*Travel
	whitelists map[string]*Whitelist
	routes     map[string]*TradeRoute

	player Player

	nextFleet  uint64
	nextTravel uint64
	nextShip   uint64
}

func New(cfg Config, cats *catalogs.Catalogs) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("world: nil catalogs")
	}
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	if cfg.ID == "" {
		cfg.ID = "driftline"
	}
	w := &World{
		cfg:        cfg,
		catalogs:   cats,
		log:        cfg.Logger.With().Str("component", "world").Logger(),
		rnd:        cfg.Random,
		planner:    cfg.Planner,
		companies:  map[string]*Company{},
		spacecraft: map[string]*Spacecraft{},
		fleets:     map[string]*Fleet{},
		sectors:    map[string]*Sector{},
		travels:    map[string]*Travel{},
		whitelists: map[string]*Whitelist{},
		routes:     map[string]*TradeRoute{},
	}
	if w.rnd == nil {
		seed := uint64(cfg.Seed)
		w.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	if w.planner == nil {
		w.planner = DefaultPlanner{Travel: cfg.Tuning.Travel}
	}
	return w, nil
}

func (w *World) ID() string                   { return w.cfg.ID }
func (w *World) Seed() int64                  { return w.cfg.Seed }
func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }
func (w *World) Tuning() tuning.Tuning        { return w.cfg.Tuning }
func (w *World) Logger() zerolog.Logger       { return w.log }
func (w *World) Random() mathx.Source         { return w.rnd }
func (w *World) Date() int64                  { return w.date }
func (w *World) Player() Player               { return w.player }

func (w *World) SetPlayer(p Player) { w.player = p }

func (w *World) PlayerShip() *Spacecraft { return w.spacecraft[w.player.ShipID] }
func (w *World) PlayerFleet() *Fleet     { return w.fleets[w.player.FleetID] }

func (w *World) Company(id string) *Company       { return w.companies[id] }
func (w *World) Spacecraft(id string) *Spacecraft { return w.spacecraft[id] }
func (w *World) Fleet(id string) *Fleet           { return w.fleets[id] }
func (w *World) Sector(id string) *Sector         { return w.sectors[id] }
func (w *World) Travel(id string) *Travel         { return w.travels[id] }
func (w *World) Whitelist(id string) *Whitelist   { return w.whitelists[id] }
func (w *World) TradeRoute(id string) *TradeRoute { return w.routes[id] }

func (w *World) Companies() []*Company {
	out := make([]*Company, 0, len(w.companies))
	for _, c := range w.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Sectors lists the real sectors; travel sectors are excluded.
func (w *World) Sectors() []*Sector {
	out := make([]*Sector, 0, len(w.sectors))
	for _, s := range w.sectors {
		if s.Travel {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) Fleets() []*Fleet {
	out := make([]*Fleet, 0, len(w.fleets))
	for _, f := range w.fleets {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) Travels() []*Travel {
	out := make([]*Travel, 0, len(w.travels))
	for _, t := range w.travels {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CompanyShips returns the company's non-station spacecraft ordered by id.
func (w *World) CompanyShips(companyID string) []*Spacecraft {
	c := w.companies[companyID]
	if c == nil {
		return nil
	}
	out := make([]*Spacecraft, 0, len(c.shipIDs))
	for _, id := range c.shipIDs {
		s := w.spacecraft[id]
		if s == nil || s.IsStation() {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) AddCompany(id, name string, player bool) (*Company, error) {
	if id == "" {
		return nil, fmt.Errorf("company: empty id")
	}
	if _, ok := w.companies[id]; ok {
		return nil, fmt.Errorf("company %s: %w", id, ErrDuplicateID)
	}
	c := &Company{
		ID:       id,
		Name:     name,
		Player:   player,
		hostiles: map[string]bool{},
		visited:  map[string]bool{},
		w:        w,
	}
	w.companies[id] = c
	if player && w.player.CompanyID == "" {
		w.player.CompanyID = id
	}
	return c, nil
}

func (w *World) AddSector(s *Sector) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("sector: empty id")
	}
	if _, ok := w.sectors[s.ID]; ok {
		return fmt.Errorf("sector %s: %w", s.ID, ErrDuplicateID)
	}
	s.w = w
	w.sectors[s.ID] = s
	return nil
}

// NewShipID allocates the next spacecraft id.
func (w *World) NewShipID() string {
	w.nextShip++
	return fmt.Sprintf("SC%06d", w.nextShip)
}

func (w *World) newFleetID() string {
	w.nextFleet++
	return fmt.Sprintf("FL%06d", w.nextFleet)
}

func (w *World) newTravelID() string {
	w.nextTravel++
	return fmt.Sprintf("TR%06d", w.nextTravel)
}

// SpawnSpec describes a spacecraft created by world generation or construction.
type SpawnSpec struct {
	ID        string
	DescID    string
	CompanyID string
	SectorID  string
	Location  mathx.Vec3
	Rotation  mathx.Vec3
	SpawnMode SpawnMode
	ParentID  string
	DockedTo  string

	InternalDocked bool
	Reserve        bool
}

// AddSpacecraft creates a simulated spacecraft and registers it with its
// company, sector and parent.
func (w *World) AddSpacecraft(spec SpawnSpec) (*Spacecraft, error) {
	def, ok := w.catalogs.SpacecraftDef(spec.DescID)
	if !ok {
		return nil, fmt.Errorf("spacecraft %s: unknown class %q", spec.ID, spec.DescID)
	}
	c := w.companies[spec.CompanyID]
	if c == nil {
		return nil, fmt.Errorf("spacecraft %s: %w %q", spec.ID, ErrUnknownCompany, spec.CompanyID)
	}
	sec := w.sectors[spec.SectorID]
	if sec == nil {
		return nil, fmt.Errorf("spacecraft %s: %w %q", spec.ID, ErrUnknownSector, spec.SectorID)
	}
	id := spec.ID
	if id == "" {
		id = w.NewShipID()
	}
	if _, dup := w.spacecraft[id]; dup {
		return nil, fmt.Errorf("spacecraft %s: %w", id, ErrDuplicateID)
	}
	s := &Spacecraft{
		ID:             id,
		DescID:         def.ID,
		Desc:           def,
		CompanyID:      c.ID,
		SectorID:       sec.ID,
		Location:       spec.Location,
		Rotation:       spec.Rotation,
		SpawnMode:      spec.SpawnMode,
		DockedTo:       spec.DockedTo,
		InternalDocked: spec.InternalDocked,
		Reserve:        spec.Reserve,
		Cargo:          NewCargoBay(def.CargoSlots, def.CargoSlotCapacity),
		w:              w,
	}
	w.spacecraft[id] = s
	c.shipIDs = append(c.shipIDs, id)
	sec.addSpacecraft(s)
	if spec.ParentID != "" {
		if parent := w.spacecraft[spec.ParentID]; parent != nil {
			s.ParentID = parent.ID
			parent.ChildIDs = append(parent.ChildIDs, id)
		} else {
			w.log.Warn().Str("ship", id).Str("parent", spec.ParentID).Msg("unknown parent, spawned unattached")
		}
	}
	return s, nil
}

// RemoveSpacecraft deletes a spacecraft from the world: its fleet, company,
// sector and parent lose the reference. Children are detached.
func (w *World) RemoveSpacecraft(id string) {
	s := w.spacecraft[id]
	if s == nil {
		return
	}
	if f := s.Fleet(); f != nil {
		f.removeShip(s, true, false, true)
	}
	if parent := w.spacecraft[s.ParentID]; parent != nil {
		parent.ChildIDs = removeID(parent.ChildIDs, id)
	}
	for _, cid := range s.ChildIDs {
		if child := w.spacecraft[cid]; child != nil {
			child.ParentID = ""
		}
	}
	if c := w.companies[s.CompanyID]; c != nil {
		c.shipIDs = removeID(c.shipIDs, id)
	}
	if sec := w.sectors[s.SectorID]; sec != nil {
		sec.removeSpacecraft(s)
	}
	s.Destroyed = true
	s.active = nil
	delete(w.spacecraft, id)
}

// SetCompanyHostile records mutual hostility between two companies.
func (w *World) SetCompanyHostile(a, b string, hostile bool) error {
	ca, cb := w.companies[a], w.companies[b]
	if ca == nil || cb == nil {
		return fmt.Errorf("hostility %s/%s: %w", a, b, ErrUnknownCompany)
	}
	if hostile {
		ca.hostiles[b] = true
		cb.hostiles[a] = true
	} else {
		delete(ca.hostiles, b)
		delete(cb.hostiles, a)
	}
	return nil
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
