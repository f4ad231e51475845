package world

// CargoSlot holds at most one resource. An empty Resource marks a free slot.
type CargoSlot struct {
	Resource string
	Quantity int
}

// CargoBay is a fixed set of slots sharing one per-slot capacity.
type CargoBay struct {
	SlotCapacity int
	Slots        []CargoSlot
}

func NewCargoBay(slots, capacity int) CargoBay {
	if slots < 0 {
		slots = 0
	}
	return CargoBay{SlotCapacity: capacity, Slots: make([]CargoSlot, slots)}
}

func (b *CargoBay) Capacity() int { return len(b.Slots) * b.SlotCapacity }

func (b *CargoBay) Used() int {
	n := 0
	for _, s := range b.Slots {
		n += s.Quantity
	}
	return n
}

func (b *CargoBay) Free() int { return b.Capacity() - b.Used() }

func (b *CargoBay) Quantity(resource string) int {
	n := 0
	for _, s := range b.Slots {
		if s.Resource == resource {
			n += s.Quantity
		}
	}
	return n
}

// FreeSpaceFor counts room left in slots holding resource plus every empty slot.
func (b *CargoBay) FreeSpaceFor(resource string) int {
	n := 0
	for _, s := range b.Slots {
		switch s.Resource {
		case resource:
			n += b.SlotCapacity - s.Quantity
		case "":
			n += b.SlotCapacity
		}
	}
	return n
}

// Load stores up to qty units and returns how many fit. Partially filled
// slots of the same resource are topped up before empty slots are taken.
func (b *CargoBay) Load(resource string, qty int) int {
	if resource == "" || qty <= 0 {
		return 0
	}
	loaded := 0
	for pass := 0; pass < 2 && loaded < qty; pass++ {
		for i := range b.Slots {
			s := &b.Slots[i]
			if pass == 0 && s.Resource != resource {
				continue
			}
			if pass == 1 && s.Resource != "" {
				continue
			}
			room := b.SlotCapacity - s.Quantity
			if room <= 0 {
				continue
			}
			n := min(room, qty-loaded)
			s.Resource = resource
			s.Quantity += n
			loaded += n
			if loaded == qty {
				break
			}
		}
	}
	return loaded
}

// Unload removes up to qty units and returns how many were taken. Emptied
// slots are released.
func (b *CargoBay) Unload(resource string, qty int) int {
	if qty <= 0 {
		return 0
	}
	taken := 0
	for i := len(b.Slots) - 1; i >= 0 && taken < qty; i-- {
		s := &b.Slots[i]
		if s.Resource != resource {
			continue
		}
		n := min(s.Quantity, qty-taken)
		s.Quantity -= n
		taken += n
		if s.Quantity == 0 {
			s.Resource = ""
		}
	}
	return taken
}
