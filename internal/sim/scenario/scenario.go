package scenario

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"driftline.space/internal/sim/catalogs"
	"driftline.space/internal/sim/mathx"
	"driftline.space/internal/sim/world"
)

// Scenario is the initial world: sector map, companies and their ships.
type Scenario struct {
	WorldID    string          `yaml:"world_id"`
	Player     PlayerSpec      `yaml:"player"`
	Companies  []CompanySpec   `yaml:"companies"`
	Sectors    []SectorSpec    `yaml:"sectors"`
	Whitelists []WhitelistSpec `yaml:"whitelists,omitempty"`
	Spacecraft []ShipSpec      `yaml:"spacecraft"`
	Fleets     []FleetSpec     `yaml:"fleets,omitempty"`
}

type PlayerSpec struct {
	Company string `yaml:"company"`
	Ship    string `yaml:"ship"`
}

type CompanySpec struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	Player    bool     `yaml:"player"`
	Hostile   []string `yaml:"hostile,omitempty"`
	Whitelist string   `yaml:"whitelist,omitempty"`
}

type SphereSpec struct {
	Center [3]float64 `yaml:"center"`
	Radius float64    `yaml:"radius"`
}

// AsteroidFieldSpec scatters Count asteroids uniformly inside a sphere.
type AsteroidFieldSpec struct {
	Center   [3]float64 `yaml:"center"`
	Radius   float64    `yaml:"radius"`
	Count    int        `yaml:"count"`
	MinScale float64    `yaml:"min_scale"`
	MaxScale float64    `yaml:"max_scale"`
}

type MeteoriteSpec struct {
	ID       string     `yaml:"id"`
	Location [3]float64 `yaml:"location"`
	Velocity [3]float64 `yaml:"velocity"`
	Radius   float64    `yaml:"radius"`
	Target   string     `yaml:"target,omitempty"`
	Damage   float64    `yaml:"damage,omitempty"`
}

type SectorSpec struct {
	ID             string              `yaml:"id"`
	Name           string              `yaml:"name"`
	LimitRadius    float64             `yaml:"limit_radius"`
	Exclusions     []SphereSpec        `yaml:"exclusions,omitempty"`
	AsteroidFields []AsteroidFieldSpec `yaml:"asteroid_fields,omitempty"`
	Meteorites     []MeteoriteSpec     `yaml:"meteorites,omitempty"`
}

type WhitelistRuleSpec struct {
	Company   string   `yaml:"company"`
	TradeTo   []string `yaml:"trade_to,omitempty"`
	TradeFrom []string `yaml:"trade_from,omitempty"`
}

type WhitelistSpec struct {
	ID      string              `yaml:"id"`
	Name    string              `yaml:"name"`
	Company string              `yaml:"company"`
	Rules   []WhitelistRuleSpec `yaml:"rules,omitempty"`
}

type ShipSpec struct {
	ID             string     `yaml:"id"`
	Class          string     `yaml:"class"`
	Company        string     `yaml:"company"`
	Sector         string     `yaml:"sector"`
	Location       [3]float64 `yaml:"location"`
	Rotation       [3]float64 `yaml:"rotation,omitempty"`
	Parent         string     `yaml:"parent,omitempty"`
	DockedTo       string     `yaml:"docked_to,omitempty"`
	InternalDocked bool       `yaml:"internal_docked,omitempty"`
	Reserve        bool       `yaml:"reserve,omitempty"`
	SpawnMode      string     `yaml:"spawn_mode,omitempty"`
}

type FleetSpec struct {
	Name      string   `yaml:"name"`
	Company   string   `yaml:"company"`
	Ships     []string `yaml:"ships"`
	Whitelist string   `yaml:"whitelist,omitempty"`
}

const defaultLimitRadius = 30000

func Load(path string) (Scenario, error) {
	var sc Scenario
	b, err := os.ReadFile(path)
	if err != nil {
		return sc, err
	}
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return sc, fmt.Errorf("scenario.yaml: %w", err)
	}
	sc.Normalize()
	if err := sc.Validate(); err != nil {
		return sc, fmt.Errorf("scenario.yaml: %w", err)
	}
	return sc, nil
}

func (sc *Scenario) Normalize() {
	sc.WorldID = strings.TrimSpace(sc.WorldID)
	if sc.WorldID == "" {
		sc.WorldID = "driftline"
	}
	for i := range sc.Companies {
		c := &sc.Companies[i]
		c.ID = strings.TrimSpace(c.ID)
		if c.Name == "" {
			c.Name = c.ID
		}
	}
	if sc.Player.Company == "" {
		for _, c := range sc.Companies {
			if c.Player {
				sc.Player.Company = c.ID
				break
			}
		}
	}
	for i := range sc.Companies {
		if sc.Companies[i].ID == sc.Player.Company {
			sc.Companies[i].Player = true
		}
	}
	for i := range sc.Sectors {
		s := &sc.Sectors[i]
		s.ID = strings.TrimSpace(s.ID)
		if s.Name == "" {
			s.Name = s.ID
		}
		if s.LimitRadius == 0 {
			s.LimitRadius = defaultLimitRadius
		}
		for j := range s.AsteroidFields {
			f := &s.AsteroidFields[j]
			if f.MinScale == 0 {
				f.MinScale = 1
			}
			if f.MaxScale < f.MinScale {
				f.MaxScale = f.MinScale
			}
		}
		for j := range s.Meteorites {
			if s.Meteorites[j].ID == "" {
				s.Meteorites[j].ID = fmt.Sprintf("%s-m%d", s.ID, j+1)
			}
		}
	}
	for i := range sc.Whitelists {
		if sc.Whitelists[i].Name == "" {
			sc.Whitelists[i].Name = sc.Whitelists[i].ID
		}
	}
	for i := range sc.Spacecraft {
		sc.Spacecraft[i].ID = strings.TrimSpace(sc.Spacecraft[i].ID)
	}
}

func (sc Scenario) Validate() error {
	companies := map[string]bool{}
	players := 0
	for _, c := range sc.Companies {
		if c.ID == "" {
			return fmt.Errorf("company with empty id")
		}
		if companies[c.ID] {
			return fmt.Errorf("duplicate company id: %s", c.ID)
		}
		companies[c.ID] = true
		if c.Player {
			players++
		}
	}
	if players != 1 {
		return fmt.Errorf("exactly one player company required, got %d", players)
	}
	for _, c := range sc.Companies {
		for _, h := range c.Hostile {
			if !companies[h] || h == c.ID {
				return fmt.Errorf("company %s: bad hostile %q", c.ID, h)
			}
		}
	}

	sectors := map[string]bool{}
	for _, s := range sc.Sectors {
		if s.ID == "" {
			return fmt.Errorf("sector with empty id")
		}
		if strings.HasPrefix(s.ID, "travel-") {
			return fmt.Errorf("sector %s: the travel- prefix is reserved", s.ID)
		}
		if sectors[s.ID] {
			return fmt.Errorf("duplicate sector id: %s", s.ID)
		}
		sectors[s.ID] = true
		if s.LimitRadius <= 0 {
			return fmt.Errorf("sector %s limit_radius must be > 0", s.ID)
		}
		for i, f := range s.AsteroidFields {
			if f.Count < 0 || f.Radius < 0 {
				return fmt.Errorf("sector %s asteroid_fields[%d]: negative count or radius", s.ID, i)
			}
		}
	}
	if len(sectors) == 0 {
		return fmt.Errorf("at least one sector required")
	}

	whitelists := map[string]bool{}
	for _, wl := range sc.Whitelists {
		if wl.ID == "" || whitelists[wl.ID] {
			return fmt.Errorf("whitelist id %q empty or duplicate", wl.ID)
		}
		if !companies[wl.Company] {
			return fmt.Errorf("whitelist %s: unknown company %q", wl.ID, wl.Company)
		}
		whitelists[wl.ID] = true
	}
	for _, c := range sc.Companies {
		if c.Whitelist != "" && !whitelists[c.Whitelist] {
			return fmt.Errorf("company %s: unknown whitelist %q", c.ID, c.Whitelist)
		}
	}

	ships := map[string]ShipSpec{}
	for i, s := range sc.Spacecraft {
		if s.ID == "" {
			return fmt.Errorf("spacecraft[%d] has empty id", i)
		}
		if _, dup := ships[s.ID]; dup {
			return fmt.Errorf("duplicate spacecraft id: %s", s.ID)
		}
		if !companies[s.Company] {
			return fmt.Errorf("spacecraft %s: unknown company %q", s.ID, s.Company)
		}
		if !sectors[s.Sector] {
			return fmt.Errorf("spacecraft %s: unknown sector %q", s.ID, s.Sector)
		}
		if s.Parent != "" {
			p, ok := ships[s.Parent]
			if !ok {
				return fmt.Errorf("spacecraft %s: parent %q must be listed before it", s.ID, s.Parent)
			}
			if p.Sector != s.Sector {
				return fmt.Errorf("spacecraft %s: parent %s is in another sector", s.ID, s.Parent)
			}
		}
		if s.DockedTo != "" {
			st, ok := ships[s.DockedTo]
			if !ok || st.Sector != s.Sector {
				return fmt.Errorf("spacecraft %s: docked_to %q must be an earlier spacecraft of the same sector", s.ID, s.DockedTo)
			}
		}
		if s.SpawnMode != "" {
			if _, err := world.ParseSpawnMode(s.SpawnMode); err != nil {
				return fmt.Errorf("spacecraft %s: %w", s.ID, err)
			}
		}
		ships[s.ID] = s
	}
	for _, sec := range sc.Sectors {
		for _, m := range sec.Meteorites {
			if m.Target != "" {
				if _, ok := ships[m.Target]; !ok {
					return fmt.Errorf("meteorite %s: unknown target %q", m.ID, m.Target)
				}
			}
		}
	}

	ps, ok := ships[sc.Player.Ship]
	if sc.Player.Ship != "" && (!ok || ps.Company != sc.Player.Company) {
		return fmt.Errorf("player ship %q must belong to the player company", sc.Player.Ship)
	}

	inFleet := map[string]bool{}
	for i, f := range sc.Fleets {
		if !companies[f.Company] {
			return fmt.Errorf("fleets[%d]: unknown company %q", i, f.Company)
		}
		if len(f.Ships) == 0 {
			return fmt.Errorf("fleets[%d]: no ships", i)
		}
		if f.Whitelist != "" && !whitelists[f.Whitelist] {
			return fmt.Errorf("fleets[%d]: unknown whitelist %q", i, f.Whitelist)
		}
		sector := ""
		for _, id := range f.Ships {
			s, ok := ships[id]
			if !ok {
				return fmt.Errorf("fleets[%d]: unknown ship %q", i, id)
			}
			if s.Company != f.Company {
				return fmt.Errorf("fleets[%d]: ship %s belongs to %s", i, id, s.Company)
			}
			if sector == "" {
				sector = s.Sector
			} else if s.Sector != sector {
				return fmt.Errorf("fleets[%d]: ships span several sectors", i)
			}
			if inFleet[id] {
				return fmt.Errorf("fleets[%d]: ship %s already in a fleet", i, id)
			}
			inFleet[id] = true
		}
	}
	return nil
}

// Build creates a world from the scenario. Ships left out of every fleet
// get an automatic fleet of their own, children riding with their parent.
func Build(sc Scenario, cfg world.Config, cats *catalogs.Catalogs) (*world.World, error) {
	if cfg.ID == "" {
		cfg.ID = sc.WorldID
	}
	w, err := world.New(cfg, cats)
	if err != nil {
		return nil, err
	}
	for _, c := range sc.Companies {
		if _, err := w.AddCompany(c.ID, c.Name, c.Player); err != nil {
			return nil, err
		}
	}
	for _, c := range sc.Companies {
		for _, h := range c.Hostile {
			if err := w.SetCompanyHostile(c.ID, h, true); err != nil {
				return nil, err
			}
		}
	}
	rnd := w.Random()
	for _, s := range sc.Sectors {
		sec := &world.Sector{ID: s.ID, Name: s.Name, LimitRadius: s.LimitRadius}
		for _, ex := range s.Exclusions {
			sec.Exclusions = append(sec.Exclusions, world.Sphere{Center: vec(ex.Center), Radius: ex.Radius})
		}
		n := 0
		for _, f := range s.AsteroidFields {
			center := vec(f.Center)
			for i := 0; i < f.Count; i++ {
				n++
				// uniform inside the sphere
				r := f.Radius * cbrt(rnd.Float64())
				sec.Asteroids = append(sec.Asteroids, world.AsteroidRecord{
					ID:       fmt.Sprintf("%s-a%d", s.ID, n),
					Location: center.Add(mathx.RandomUnit(rnd).Scale(r)),
					Rotation: mathx.V(rnd.Float64()*360, rnd.Float64()*360, rnd.Float64()*360),
					Scale:    f.MinScale + (f.MaxScale-f.MinScale)*rnd.Float64(),
				})
			}
		}
		for _, m := range s.Meteorites {
			sec.Meteorites = append(sec.Meteorites, world.MeteoriteRecord{
				ID:       m.ID,
				Location: vec(m.Location),
				Velocity: vec(m.Velocity),
				Radius:   m.Radius,
				TargetID: m.Target,
				Damage:   m.Damage,
			})
		}
		if err := w.AddSector(sec); err != nil {
			return nil, err
		}
	}
	for _, wl := range sc.Whitelists {
		list := &world.Whitelist{ID: wl.ID, Name: wl.Name, CompanyID: wl.Company}
		for _, r := range wl.Rules {
			list.SetRule(r.Company, r.TradeTo, r.TradeFrom)
		}
		if err := w.AddWhitelist(list); err != nil {
			return nil, err
		}
	}
	for _, c := range sc.Companies {
		if c.Whitelist != "" {
			w.Company(c.ID).SelectWhitelist(c.Whitelist)
		}
	}
	for _, s := range sc.Spacecraft {
		// Fresh ships run the placement search on their first activation.
		mode := world.SpawnSpawn
		switch {
		case s.SpawnMode != "":
			mode, _ = world.ParseSpawnMode(s.SpawnMode)
		case s.InternalDocked:
			mode = world.SpawnInternalDocked
		case s.DockedTo != "":
			mode = world.SpawnSafe
		}
		if _, err := w.AddSpacecraft(world.SpawnSpec{
			ID:             s.ID,
			DescID:         s.Class,
			CompanyID:      s.Company,
			SectorID:       s.Sector,
			Location:       vec(s.Location),
			Rotation:       vec(s.Rotation),
			SpawnMode:      mode,
			ParentID:       s.Parent,
			DockedTo:       s.DockedTo,
			InternalDocked: s.InternalDocked,
			Reserve:        s.Reserve,
		}); err != nil {
			return nil, err
		}
	}
	for _, f := range sc.Fleets {
		first := w.Spacecraft(f.Ships[0])
		fleet := w.Company(f.Company).CreateFleet(f.Name, first.SectorID)
		fleet.SelectWhitelist(f.Whitelist)
		for _, id := range f.Ships {
			fleet.AddShip(w.Spacecraft(id), false)
		}
	}
	for _, s := range sc.Spacecraft {
		ship := w.Spacecraft(s.ID)
		if ship == nil || ship.IsStation() || ship.FleetID != "" || ship.Parent() != nil {
			continue
		}
		w.Company(s.Company).CreateAutomaticFleet(ship)
	}
	// Children whose parent is a station still need a fleet.
	for _, s := range sc.Spacecraft {
		ship := w.Spacecraft(s.ID)
		if ship == nil || ship.IsStation() || ship.FleetID != "" {
			continue
		}
		w.Company(s.Company).CreateAutomaticFleet(ship)
	}

	p := world.Player{CompanyID: sc.Player.Company, ShipID: sc.Player.Ship}
	if ps := w.Spacecraft(sc.Player.Ship); ps != nil {
		p.FleetID = ps.FleetID
	}
	w.SetPlayer(p)
	return w, nil
}

func vec(a [3]float64) mathx.Vec3 { return mathx.V(a[0], a[1], a[2]) }

func cbrt(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Cbrt(x)
}
