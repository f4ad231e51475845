package activation

import (
	"driftline.space/internal/sim/mathx"
	"driftline.space/internal/sim/world"
)

// AsteroidUnitRadius is the radius of an asteroid of scale 1, in meters.
const AsteroidUnitRadius = 100.0

// Autopilot steers a ship toward a target at constant speed.
type Autopilot struct {
	Target mathx.Vec3
	Speed  float64
}

// Spacecraft is the active instance of a simulated spacecraft.
type Spacecraft struct {
	ID  string
	Sim *world.Spacecraft

	Location mathx.Vec3
	Velocity mathx.Vec3
	Rotation mathx.Vec3

	Parent   *Spacecraft
	Children []*Spacecraft
	DockedTo *Spacecraft

	Autopilot *Autopilot

	positioned bool
	removed    bool
}

func (a *Spacecraft) SpacecraftID() string { return a.ID }
func (a *Spacecraft) CompanyID() string    { return a.Sim.CompanyID }
func (a *Spacecraft) IsStation() bool      { return a.Sim.IsStation() }
func (a *Spacecraft) Size() float64        { return a.Sim.Size() }
func (a *Spacecraft) Positioned() bool     { return a.positioned }
func (a *Spacecraft) Removed() bool        { return a.removed }

func (a *Spacecraft) kind() Kind {
	if a.IsStation() {
		return KindStation
	}
	return KindShip
}

func (a *Spacecraft) SetAutopilot(target mathx.Vec3, speed float64) {
	a.Autopilot = &Autopilot{Target: target, Speed: speed}
}

func (a *Spacecraft) CancelAutopilot() { a.Autopilot = nil }

type Asteroid struct {
	ID       string
	Location mathx.Vec3
	Rotation mathx.Vec3
	Scale    float64
}

func (a *Asteroid) Radius() float64 { return a.Scale * AsteroidUnitRadius }

type Meteorite struct {
	ID       string
	Location mathx.Vec3
	Velocity mathx.Vec3
	Radius   float64
	TargetID string
	Damage   float64
	Exploded bool
}

type Bomb struct {
	ID         string
	Parent     *Spacecraft
	WeaponSlot string
	Location   mathx.Vec3
	Velocity   mathx.Vec3
	Armed      bool
}

// Shell is a transient projectile. Shells are never saved.
type Shell struct {
	ID       string
	OwnerID  string
	Location mathx.Vec3
	Velocity mathx.Vec3
	TTL      float64
}
