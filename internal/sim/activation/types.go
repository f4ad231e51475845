package activation

import (
	"errors"

	"github.com/rs/zerolog"

	"driftline.space/internal/sim/mathx"
	"driftline.space/internal/sim/world"
)

var ErrNoActiveSector = errors.New("no active sector")

type State int

const (
	StateInactive State = iota
	StateLoading
	StateActive
	StateDestroying
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateDestroying:
		return "destroying"
	default:
		return "inactive"
	}
}

type Kind string

const (
	KindShip      Kind = "ship"
	KindStation   Kind = "station"
	KindAsteroid  Kind = "asteroid"
	KindMeteorite Kind = "meteorite"
	KindBomb      Kind = "bomb"
	KindShell     Kind = "shell"
)

// Scene is the physics/render side of the active sector. Every instance
// created by a Sector is spawned into the scene and released exactly once,
// either through SafeDestroy or Explode.
type Scene interface {
	Spawn(id string, kind Kind, loc mathx.Vec3, radius float64)
	SetLocation(id string, loc mathx.Vec3)
	SetVelocity(id string, vel mathx.Vec3)
	SafeDestroy(id string)
	Explode(id string)
}

type NopScene struct{}

func (NopScene) Spawn(string, Kind, mathx.Vec3, float64) {}
func (NopScene) SetLocation(string, mathx.Vec3)          {}
func (NopScene) SetVelocity(string, mathx.Vec3)          {}
func (NopScene) SafeDestroy(string)                      {}
func (NopScene) Explode(string)                          {}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// MultiAudit fans an entry out to every sink and joins their errors.
type MultiAudit []AuditLogger

func (m MultiAudit) WriteAudit(entry AuditEntry) error {
	var errs []error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.WriteAudit(entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type AuditEntry struct {
	Date      int64          `json:"date"`
	LocalTime float64        `json:"local_time"`
	SectorID  string         `json:"sector_id"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"` // e.g. "LOAD"
	ShipID    string         `json:"ship_id,omitempty"`
	Pos       [3]float64     `json:"pos"`
	Reason    string         `json:"reason,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type Config struct {
	World  *world.World
	Scene  Scene
	Logger zerolog.Logger
	// Random defaults to the world's source.
	Random mathx.Source
	Audit  AuditLogger

	// DevChecks enables post-placement overlap warnings.
	DevChecks bool
}

func (c Config) withDefaults() Config {
	if c.Scene == nil {
		c.Scene = NopScene{}
	}
	if c.Random == nil && c.World != nil {
		c.Random = c.World.Random()
	}
	return c
}
