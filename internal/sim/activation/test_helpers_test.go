package activation

import (
	"math/rand/v2"
	"testing"

	"github.com/rs/zerolog"

	"driftline.space/internal/sim/catalogs"
	"driftline.space/internal/sim/mathx"
	"driftline.space/internal/sim/tuning"
	"driftline.space/internal/sim/world"
)

func newTestWorld(t *testing.T, tune func(*tuning.Tuning)) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs/catalogs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tu := tuning.Defaults()
	if tune != nil {
		tune(&tu)
	}
	w, err := world.New(world.Config{
		ID:     "test",
		Seed:   1,
		Tuning: tu,
		Logger: zerolog.Nop(),
		Random: rand.New(rand.NewPCG(3, 4)),
	}, cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	for _, c := range []struct {
		id     string
		player bool
	}{{"PLY", true}, {"ALY", false}, {"HOS", false}} {
		if _, err := w.AddCompany(c.id, c.id, c.player); err != nil {
			t.Fatalf("company %s: %v", c.id, err)
		}
	}
	if err := w.SetCompanyHostile("PLY", "HOS", true); err != nil {
		t.Fatalf("hostile: %v", err)
	}
	for _, s := range []*world.Sector{
		{ID: "s1", Name: "Nema", LimitRadius: 30000},
		{ID: "s2", Name: "Boneyard", LimitRadius: 30000},
	} {
		if err := w.AddSector(s); err != nil {
			t.Fatalf("sector %s: %v", s.ID, err)
		}
	}
	return w
}

func spawn(t *testing.T, w *world.World, spec world.SpawnSpec) *world.Spacecraft {
	t.Helper()
	s, err := w.AddSpacecraft(spec)
	if err != nil {
		t.Fatalf("add %s: %v", spec.DescID, err)
	}
	return s
}

func newTestSector(w *world.World, scene Scene, rnd mathx.Source) *Sector {
	return NewSector(Config{World: w, Scene: scene, Logger: zerolog.Nop(), Random: rnd, DevChecks: true})
}

// recordingScene tracks which instances are alive in the scene.
type recordingScene struct {
	live      map[string]Kind
	spawned   int
	exploded  []string
	destroyed []string
	onExplode func(id string)
}

func newRecordingScene() *recordingScene { return &recordingScene{live: map[string]Kind{}} }

func (r *recordingScene) Spawn(id string, kind Kind, _ mathx.Vec3, _ float64) {
	r.live[id] = kind
	r.spawned++
}

func (r *recordingScene) SetLocation(string, mathx.Vec3) {}
func (r *recordingScene) SetVelocity(string, mathx.Vec3) {}

func (r *recordingScene) SafeDestroy(id string) {
	delete(r.live, id)
	r.destroyed = append(r.destroyed, id)
}

func (r *recordingScene) Explode(id string) {
	delete(r.live, id)
	r.exploded = append(r.exploded, id)
	if r.onExplode != nil {
		r.onExplode(id)
	}
}

// fixedSource returns scripted Float64 values in a loop and unit normals.
type fixedSource struct {
	vals []float64
	i    int
}

func (s *fixedSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func (s *fixedSource) NormFloat64() float64 { return 1 }

func near(a, b mathx.Vec3, eps float64) bool { return a.Dist(b) <= eps }
