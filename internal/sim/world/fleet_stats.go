package world

import "fmt"

func (f *Fleet) cargoShips(skipStranded bool) []*Spacecraft {
	var out []*Spacecraft
	for _, s := range f.Ships() {
		if skipStranded && s.Stranded {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (f *Fleet) CargoCapacity(skipStranded bool) int {
	n := 0
	for _, s := range f.cargoShips(skipStranded) {
		n += s.Cargo.Capacity()
	}
	return n
}

func (f *Fleet) UsedCargo(skipStranded bool) int {
	n := 0
	for _, s := range f.cargoShips(skipStranded) {
		n += s.Cargo.Used()
	}
	return n
}

func (f *Fleet) FreeCargo(skipStranded bool) int {
	n := 0
	for _, s := range f.cargoShips(skipStranded) {
		n += s.Cargo.Free()
	}
	return n
}

func (f *Fleet) ResourceQuantity(resource string) int {
	n := 0
	for _, s := range f.Ships() {
		n += s.Cargo.Quantity(resource)
	}
	return n
}

func (f *Fleet) FreeSpaceForResource(resource string) int {
	n := 0
	for _, s := range f.Ships() {
		n += s.Cargo.FreeSpaceFor(resource)
	}
	return n
}

// CombatPoints sums member combat value; current accounts for hull damage.
func (f *Fleet) CombatPoints(current bool) int {
	n := 0
	for _, s := range f.Ships() {
		n += s.CombatPoints(current)
	}
	return n
}

// MilitaryShipCountBySize counts armed non-drone ships of the given size class.
func (f *Fleet) MilitaryShipCountBySize(size string) int {
	n := 0
	for _, s := range f.Ships() {
		if s.IsMilitary() && s.Desc.Size == size {
			n++
		}
	}
	return n
}

func (f *Fleet) RepairDuration() int {
	d := 0
	for _, s := range f.Ships() {
		d = max(d, s.RepairDays())
	}
	return d
}

func (f *Fleet) RefillDuration() int {
	d := 0
	for _, s := range f.Ships() {
		d = max(d, s.RefillDays())
	}
	return d
}

func (f *Fleet) RepairText() string {
	d := f.RepairDuration()
	if d == 0 {
		return "No repair needed"
	}
	return "Repair: " + days(d)
}

func (f *Fleet) RefillText() string {
	d := f.RefillDuration()
	if d == 0 {
		return "No refill needed"
	}
	return "Refill: " + days(d)
}

// StatusText is the one-line fleet summary shown next to its name.
func (f *Fleet) StatusText() string {
	if t := f.CurrentTravel(); t != nil {
		dest := t.Destination()
		name := t.DestinationID
		if dest != nil {
			name = dest.Name
		}
		return fmt.Sprintf("Traveling to %s (%s left)", name, days(int(t.Remaining())))
	}
	s := f.w.sectors[f.SectorID]
	if s == nil {
		return "Idle"
	}
	counts, _ := f.immobilized()
	switch {
	case counts.intercepted > 0:
		return "Intercepted in " + s.Name
	case counts.trading > 0:
		return "Trading in " + s.Name
	}
	return "Idle in " + s.Name
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
