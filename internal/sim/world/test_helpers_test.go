package world

import (
	"math/rand/v2"
	"testing"

	"github.com/rs/zerolog"

	"driftline.space/internal/sim/catalogs"
	"driftline.space/internal/sim/mathx"
	"driftline.space/internal/sim/tuning"
)

func newTestWorld(t *testing.T, tune func(*tuning.Tuning)) *World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs/catalogs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tu := tuning.Defaults()
	if tune != nil {
		tune(&tu)
	}
	w, err := New(Config{
		ID:     "test",
		Seed:   1,
		Tuning: tu,
		Logger: zerolog.Nop(),
		Random: rand.New(rand.NewPCG(1, 2)),
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
	for _, s := range []*Sector{
		{ID: "s1", Name: "Nema", LimitRadius: 30000},
		{ID: "s2", Name: "Boneyard", LimitRadius: 30000},
		{ID: "s3", Name: "Blue Heart", LimitRadius: 30000},
	} {
		if err := w.AddSector(s); err != nil {
			t.Fatalf("sector %s: %v", s.ID, err)
		}
	}
	return w
}

func addShip(t *testing.T, w *World, company, desc, sector string) *Spacecraft {
	t.Helper()
	s, err := w.AddSpacecraft(SpawnSpec{DescID: desc, CompanyID: company, SectorID: sector})
	if err != nil {
		t.Fatalf("add %s: %v", desc, err)
	}
	return s
}

func addChild(t *testing.T, w *World, parent *Spacecraft, desc string) *Spacecraft {
	t.Helper()
	s, err := w.AddSpacecraft(SpawnSpec{
		DescID:         desc,
		CompanyID:      parent.CompanyID,
		SectorID:       parent.SectorID,
		ParentID:       parent.ID,
		InternalDocked: true,
	})
	if err != nil {
		t.Fatalf("add child %s: %v", desc, err)
	}
	return s
}

// fleetOf builds a fleet in sector holding the given classes in order.
func fleetOf(t *testing.T, w *World, company, sector string, descs ...string) (*Fleet, []*Spacecraft) {
	t.Helper()
	f := w.Company(company).CreateFleet("", sector)
	var ships []*Spacecraft
	for _, d := range descs {
		s := addShip(t, w, company, d, sector)
		f.AddShip(s, false)
		ships = append(ships, s)
	}
	return f, ships
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

var _ mathx.Source = (*fixedSource)(nil)
