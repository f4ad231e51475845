package world

import (
	"fmt"
	"sort"
)

type Company struct {
	ID     string
	Name   string
	Player bool

	// WhitelistID is the company-wide trading whitelist; fleets may override it.
	WhitelistID string

	hostiles map[string]bool
	visited  map[string]bool

	shipIDs  []string
	fleetIDs []string

	w *World
}

func (c *Company) IsAtWar(other string) bool { return c.hostiles[other] }

func (c *Company) Hostiles() []string { return sortedKeys(c.hostiles) }

// VisitedSectors lists the sectors whose load completed while the company was present.
func (c *Company) VisitedSectors() []string { return sortedKeys(c.visited) }

func (c *Company) HasVisited(sectorID string) bool { return c.visited[sectorID] }

// OnSectorLoaded is called by the activation engine once a sector finished loading.
func (c *Company) OnSectorLoaded(sectorID string) {
	if !c.visited[sectorID] {
		c.w.log.Debug().Str("company", c.ID).Str("sector", sectorID).Msg("sector discovered")
	}
	c.visited[sectorID] = true
}

func (c *Company) ShipIDs() []string { return append([]string(nil), c.shipIDs...) }

func (c *Company) Fleets() []*Fleet {
	out := make([]*Fleet, 0, len(c.fleetIDs))
	for _, id := range c.fleetIDs {
		if f := c.w.fleets[id]; f != nil {
			out = append(out, f)
		}
	}
	return out
}

func (c *Company) SelectWhitelist(id string) {
	if id != "" && c.w.whitelists[id] == nil {
		c.w.log.Warn().Str("company", c.ID).Str("whitelist", id).Msg("unknown whitelist")
		return
	}
	c.WhitelistID = id
}

// CreateFleet creates an empty fleet located in sectorID.
func (c *Company) CreateFleet(name, sectorID string) *Fleet {
	id := c.w.newFleetID()
	if name == "" {
		name = fmt.Sprintf("Fleet %d", c.w.nextFleet)
	}
	f := &Fleet{
		ID:        id,
		Name:      name,
		CompanyID: c.ID,
		SectorID:  sectorID,
		w:         c.w,
	}
	c.w.fleets[id] = f
	c.fleetIDs = append(c.fleetIDs, id)
	if s := c.w.sectors[sectorID]; s != nil {
		s.addFleet(f)
	}
	return f
}

// CreateAutomaticFleet wraps a single ship into a new fleet of its own.
func (c *Company) CreateAutomaticFleet(ship *Spacecraft) *Fleet {
	f := c.CreateFleet(fmt.Sprintf("%s fleet", ship.Desc.Name), ship.SectorID)
	f.AutoCreated = true
	f.AddShip(ship, false)
	return f
}

func (c *Company) removeFleet(id string) {
	c.fleetIDs = removeID(c.fleetIDs, id)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
