package activation

type CompanySummary struct {
	ID       string `json:"id"`
	Ships    int    `json:"ships"`
	Stations int    `json:"stations"`
	InBattle bool   `json:"in_battle"`
}

// Summary is a copy of the active sector's headline numbers, safe to hand
// to other goroutines.
type Summary struct {
	Date       int64            `json:"date"`
	SectorID   string           `json:"sector_id"`
	SectorName string           `json:"sector_name"`
	State      string           `json:"state"`
	Paused     bool             `json:"paused"`
	LocalTime  float64          `json:"local_time"`
	Ships      int              `json:"ships"`
	Stations   int              `json:"stations"`
	Asteroids  int              `json:"asteroids"`
	Meteorites int              `json:"meteorites"`
	Bombs      int              `json:"bombs"`
	Shells     int              `json:"shells"`
	Companies  []CompanySummary `json:"companies,omitempty"`
}

func (s *Sector) Summary() Summary {
	out := Summary{
		Date:      s.w.Date(),
		State:     s.state.String(),
		Paused:    s.paused,
		LocalTime: s.localTime,
		Ships:     len(s.ships),
		Stations:  len(s.stations),
		Asteroids: len(s.asteroids),
		Bombs:     len(s.bombs),
		Shells:    len(s.shells),
	}
	for _, m := range s.meteorites {
		if !m.Exploded {
			out.Meteorites++
		}
	}
	if s.parent == nil {
		return out
	}
	out.SectorID = s.parent.ID
	out.SectorName = s.parent.Name
	for _, id := range s.companies {
		all := s.CompanySpacecraft(id)
		ships := len(s.CompanyShips(id))
		out.Companies = append(out.Companies, CompanySummary{
			ID:       id,
			Ships:    ships,
			Stations: len(all) - ships,
			InBattle: s.parent.InBattle(id),
		})
	}
	return out
}
