package activation

import (
	"fmt"

	"driftline.space/internal/sim/world"
)

// Controller owns the single active sector. Activating a sector saves and
// tears down the previous one first.
type Controller struct {
	cfg    Config
	pools  *pools
	sector *Sector
}

func NewController(cfg Config) *Controller {
	p := newPools()
	return &Controller{
		cfg:    cfg,
		pools:  p,
		sector: newSector(cfg, p),
	}
}

// Activate loads the simulated sector with the given id.
func (c *Controller) Activate(sectorID string) (*Sector, error) {
	parent := c.cfg.World.Sector(sectorID)
	if parent == nil {
		return nil, fmt.Errorf("activate %q: %w", sectorID, world.ErrUnknownSector)
	}
	c.sector.Save()
	c.sector.Load(parent)
	return c.sector, nil
}

// Reload tears the active sector down without saving it and loads
// sectorID. Use it after the world moved spacecraft under an active sector
// that was already saved.
func (c *Controller) Reload(sectorID string) (*Sector, error) {
	c.sector.DestroySector()
	parent := c.cfg.World.Sector(sectorID)
	if parent == nil {
		return nil, fmt.Errorf("reload %q: %w", sectorID, world.ErrUnknownSector)
	}
	c.sector.Load(parent)
	return c.sector, nil
}

// Active returns the active sector or ErrNoActiveSector.
func (c *Controller) Active() (*Sector, error) {
	if c.sector.state != StateActive {
		return nil, ErrNoActiveSector
	}
	return c.sector, nil
}

// Deactivate saves the active sector and tears it down.
func (c *Controller) Deactivate() {
	c.sector.Save()
	c.sector.DestroySector()
}

// Tick advances the active sector; it is a no-op when nothing is active.
func (c *Controller) Tick(dt float64) { c.sector.Tick(dt) }

func (c *Controller) Save() error {
	if c.sector.state != StateActive {
		return ErrNoActiveSector
	}
	c.sector.Save()
	return nil
}

type PoolStats struct {
	Allocated int `json:"allocated"`
	Recycled  int `json:"recycled"`
	Free      int `json:"free"`
}

func (c *Controller) AsteroidPool() PoolStats {
	p := c.pools.asteroids
	return PoolStats{Allocated: p.Allocated(), Recycled: p.Recycled(), Free: p.Free()}
}

func (c *Controller) MeteoritePool() PoolStats {
	p := c.pools.meteorites
	return PoolStats{Allocated: p.Allocated(), Recycled: p.Recycled(), Free: p.Free()}
}
