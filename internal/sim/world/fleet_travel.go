package world

import (
	"fmt"
	"strings"
)

type immobilizedCounts struct {
	trading     int
	intercepted int
	stranded    int
}

func (c immobilizedCounts) total() int { return c.trading + c.intercepted + c.stranded }

// immobilized counts non-drone ships that cannot travel, each under its first
// matching reason. It also returns how many ships were considered.
func (f *Fleet) immobilized() (immobilizedCounts, int) {
	var c immobilizedCounts
	ships := f.Ships()
	considered := 0
	for _, s := range ships {
		if s.IsDrone() {
			continue
		}
		considered++
		switch {
		case s.Trading:
			c.trading++
		case s.Intercepted:
			c.intercepted++
		case s.Stranded:
			c.stranded++
		}
	}
	if considered > 0 {
		return c, considered
	}
	// Drone-only fleets are judged on their drones.
	for _, s := range ships {
		considered++
		switch {
		case s.Trading:
			c.trading++
		case s.Intercepted:
			c.intercepted++
		case s.Stranded:
			c.stranded++
		}
	}
	return c, considered
}

// CanTravel reports whether the fleet may depart for target, with the
// refusal reason.
func (f *Fleet) CanTravel(target *Sector) (bool, string) {
	if target == nil {
		return false, "Unknown destination"
	}
	if t := f.CurrentTravel(); t != nil {
		if !t.CanChangeDestination() {
			return false, "Travel in progress"
		}
		if t.DestinationID == target.ID {
			return false, "Already traveling to " + target.Name
		}
	}
	counts, considered := f.immobilized()
	if considered == 0 || counts.total() == considered {
		return false, "Trading, stranded or intercepted"
	}
	if ps := f.w.PlayerShip(); ps != nil && ps.FleetID == f.ID && ps.Stranded {
		return false, "Stranded"
	}
	return true, ""
}

// TravelConfirmText summarizes which ships will be left behind, e.g.
// "2 ships are trading or 1 ship is stranded, and will not travel."
// It is empty when every ship travels, or when none can.
func (f *Fleet) TravelConfirmText() string {
	counts, considered := f.immobilized()
	total := counts.total()
	if total == 0 || total == considered {
		return ""
	}
	var clauses []string
	for _, r := range []struct {
		n    int
		verb string
	}{
		{counts.trading, "trading"},
		{counts.intercepted, "intercepted"},
		{counts.stranded, "stranded"},
	} {
		if r.n == 0 {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%d %s %s", r.n, pluralShip(r.n), r.verb))
	}
	return strings.Join(clauses, " or ") + ", and will not travel."
}

func pluralShip(n int) string {
	if n == 1 {
		return "ship is"
	}
	return "ships are"
}
