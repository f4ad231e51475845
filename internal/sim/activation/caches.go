package activation

import "driftline.space/internal/sim/mathx"

// SpacecraftByID looks up an active spacecraft of this sector.
func (s *Sector) SpacecraftByID(id string) *Spacecraft { return s.byID[id] }

// CompanyShips lists the company's active ships, stations excluded.
// The returned slice is a copy.
func (s *Sector) CompanyShips(companyID string) []*Spacecraft {
	list, ok := s.companyShips[companyID]
	if !ok {
		for _, a := range s.ships {
			if a.CompanyID() == companyID {
				list = append(list, a)
			}
		}
		s.companyShips[companyID] = list
	}
	return append([]*Spacecraft(nil), list...)
}

// CompanySpacecraft lists every active ship and station of the company.
func (s *Sector) CompanySpacecraft(companyID string) []*Spacecraft {
	list, ok := s.companySpacecraft[companyID]
	if !ok {
		for _, a := range s.spacecraft {
			if a.CompanyID() == companyID {
				list = append(list, a)
			}
		}
		s.companySpacecraft[companyID] = list
	}
	return append([]*Spacecraft(nil), list...)
}

func (s *Sector) cachedCompanies() int { return len(s.companyShips) + len(s.companySpacecraft) }

func (s *Sector) invalidateCompany(companyID string) {
	delete(s.companyShips, companyID)
	delete(s.companySpacecraft, companyID)
}

// Repartition returns a bounding sphere over the stations, computed once per
// load. Sectors without stations get a sphere of the minimum radius at the origin.
func (s *Sector) Repartition() (mathx.Vec3, float64) {
	if s.repartitionValid {
		return s.repartitionCenter, s.repartitionRadius
	}
	pts := make([]mathx.Vec3, 0, len(s.stations))
	radii := make([]float64, 0, len(s.stations))
	for _, st := range s.stations {
		pts = append(pts, st.Location)
		radii = append(radii, st.Size())
	}
	center, r := mathx.BoundingSphere(pts, radii)
	if floor := s.w.Tuning().Spawn.MinSectorRadius; r < floor {
		r = floor
	}
	s.repartitionCenter, s.repartitionRadius = center, r
	s.repartitionValid = true
	return center, r
}
