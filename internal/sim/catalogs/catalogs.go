package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const (
	SizeS = "S"
	SizeL = "L"
)

type Catalogs struct {
	Spacecraft   SpacecraftCatalog
	Resources    ResourceCatalog
	Technologies TechnologyCatalog
}

type SpacecraftCatalog struct {
	ByID   map[string]SpacecraftDef
	Digest string
}

type SpacecraftDef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Size    string `json:"size"` // "S","L"
	Station bool   `json:"station,omitempty"`
	Drone   bool   `json:"drone,omitempty"`
	// Complex stations host child modules attached to them.
	Complex  bool `json:"complex,omitempty"`
	Shipyard bool `json:"shipyard,omitempty"`

	Radius             float64 `json:"radius"`
	EngineAcceleration float64 `json:"engine_acceleration,omitempty"`
	CombatPoints       int     `json:"combat_points,omitempty"`
	DockingSlots       int     `json:"docking_slots,omitempty"`

	CargoSlots        int `json:"cargo_slots,omitempty"`
	CargoSlotCapacity int `json:"cargo_slot_capacity,omitempty"`

	WeaponGroups []WeaponGroupDef `json:"weapon_groups,omitempty"`

	RepairDays int `json:"repair_days,omitempty"`
	RefillDays int `json:"refill_days,omitempty"`

	CycleCost CycleCostDef `json:"cycle_cost"`
}

type WeaponGroupDef struct {
	ID    string   `json:"id"`
	Type  string   `json:"type"` // "GUN","TURRET","BOMB"
	Slots []string `json:"slots"`
}

type CycleCostDef struct {
	ProductionDays int              `json:"production_days"`
	Inputs         []ResourceAmount `json:"inputs,omitempty"`
}

type ResourceAmount struct {
	Resource string `json:"resource"`
	Quantity int    `json:"quantity"`
}

func (d SpacecraftDef) IsLarge() bool    { return d.Size == SizeL }
func (d SpacecraftDef) IsMilitary() bool { return len(d.WeaponGroups) > 0 }

// HasWeaponSlot reports whether slot is declared by one of the weapon groups.
func (d SpacecraftDef) HasWeaponSlot(slot string) bool {
	for _, g := range d.WeaponGroups {
		for _, s := range g.Slots {
			if s == slot {
				return true
			}
		}
	}
	return false
}

func (d SpacecraftDef) CargoCapacity() int { return d.CargoSlots * d.CargoSlotCapacity }

type ResourceCatalog struct {
	ByID   map[string]ResourceDef
	Digest string
}

type ResourceDef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MinPrice     int    `json:"min_price"`
	MaxPrice     int    `json:"max_price"`
	TransportFee int    `json:"transport_fee"`
	Consumer     bool   `json:"consumer,omitempty"`
	Maintenance  bool   `json:"maintenance,omitempty"`
}

type TechnologyCatalog struct {
	ByID   map[string]TechnologyDef
	Digest string
}

type TechnologyDef struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Level    int      `json:"level"`
	Cost     int      `json:"cost"`
	Unlocks  []string `json:"unlocks,omitempty"`
}

// Load reads spacecraft.json, resources.json and technologies.json from dir.
// Every file is validated against its embedded schema before decoding.
func Load(dir string) (*Catalogs, error) {
	var (
		sc    []SpacecraftDef
		res   []ResourceDef
		techs []TechnologyDef
	)
	digests := map[string]string{}
	for _, f := range []struct {
		name string
		out  any
	}{
		{"spacecraft.json", &sc},
		{"resources.json", &res},
		{"technologies.json", &techs},
	} {
		raw, err := os.ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			return nil, err
		}
		if err := validateFile(f.name, raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, f.out); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		digests[f.name] = sha256Hex(raw)
	}
	c, err := New(sc, res, techs)
	if err != nil {
		return nil, err
	}
	c.Spacecraft.Digest = digests["spacecraft.json"]
	c.Resources.Digest = digests["resources.json"]
	c.Technologies.Digest = digests["technologies.json"]
	return c, nil
}

// New builds catalogs from in-memory definitions and checks cross references.
func New(sc []SpacecraftDef, res []ResourceDef, techs []TechnologyDef) (*Catalogs, error) {
	c := &Catalogs{
		Spacecraft:   SpacecraftCatalog{ByID: make(map[string]SpacecraftDef, len(sc))},
		Resources:    ResourceCatalog{ByID: make(map[string]ResourceDef, len(res))},
		Technologies: TechnologyCatalog{ByID: make(map[string]TechnologyDef, len(techs))},
	}
	for _, r := range res {
		if r.ID == "" {
			return nil, fmt.Errorf("resources: empty id")
		}
		if r.MinPrice > r.MaxPrice {
			return nil, fmt.Errorf("resources: %s min_price > max_price", r.ID)
		}
		c.Resources.ByID[r.ID] = r
	}
	for _, d := range sc {
		if d.ID == "" {
			return nil, fmt.Errorf("spacecraft: empty id")
		}
		if d.Size != SizeS && d.Size != SizeL {
			return nil, fmt.Errorf("spacecraft: %s size must be S or L", d.ID)
		}
		if d.Drone && d.Size != SizeS {
			return nil, fmt.Errorf("spacecraft: drone %s must be size S", d.ID)
		}
		for _, in := range d.CycleCost.Inputs {
			if _, ok := c.Resources.ByID[in.Resource]; !ok {
				return nil, fmt.Errorf("spacecraft: %s cycle cost references unknown resource %s", d.ID, in.Resource)
			}
		}
		c.Spacecraft.ByID[d.ID] = d
	}
	for _, t := range techs {
		if t.ID == "" {
			return nil, fmt.Errorf("technologies: empty id")
		}
		for _, u := range t.Unlocks {
			if _, ok := c.Spacecraft.ByID[u]; !ok {
				return nil, fmt.Errorf("technologies: %s unlocks unknown spacecraft %s", t.ID, u)
			}
		}
		c.Technologies.ByID[t.ID] = t
	}
	c.Spacecraft.Digest = digestOf(sc)
	c.Resources.Digest = digestOf(res)
	c.Technologies.Digest = digestOf(techs)
	return c, nil
}

func (c *Catalogs) SpacecraftDef(id string) (SpacecraftDef, bool) {
	d, ok := c.Spacecraft.ByID[id]
	return d, ok
}

func (c *Catalogs) ResourceDef(id string) (ResourceDef, bool) {
	d, ok := c.Resources.ByID[id]
	return d, ok
}

// ResourceIDs returns resource ids in stable order.
func (c *Catalogs) ResourceIDs() []string {
	out := make([]string, 0, len(c.Resources.ByID))
	for id := range c.Resources.ByID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// TechnologiesUnlocking lists technologies that unlock the given spacecraft class.
func (c *Catalogs) TechnologiesUnlocking(spacecraftID string) []TechnologyDef {
	var out []TechnologyDef
	for _, t := range c.Technologies.ByID {
		for _, u := range t.Unlocks {
			if u == spacecraftID {
				out = append(out, t)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func digestOf(v any) string {
	b, _ := json.Marshal(v)
	return sha256Hex(b)
}
