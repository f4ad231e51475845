package activation

// Pool recycles released instances across sector loads.
type Pool[T any] struct {
	free  []*T
	reset func(*T)

	allocated int
	recycled  int
}

func NewPool[T any](reset func(*T)) *Pool[T] {
	return &Pool[T]{reset: reset}
}

// Get returns a recycled instance when one is free, a fresh one otherwise.
func (p *Pool[T]) Get() *T {
	if n := len(p.free); n > 0 {
		v := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		p.recycled++
		return v
	}
	p.allocated++
	return new(T)
}

func (p *Pool[T]) Put(v *T) {
	if v == nil {
		return
	}
	if p.reset != nil {
		p.reset(v)
	}
	p.free = append(p.free, v)
}

func (p *Pool[T]) Free() int      { return len(p.free) }
func (p *Pool[T]) Allocated() int { return p.allocated }
func (p *Pool[T]) Recycled() int  { return p.recycled }

type pools struct {
	asteroids  *Pool[Asteroid]
	meteorites *Pool[Meteorite]
	shells     *Pool[Shell]
}

func newPools() *pools {
	return &pools{
		asteroids:  NewPool(func(a *Asteroid) { *a = Asteroid{} }),
		meteorites: NewPool(func(m *Meteorite) { *m = Meteorite{} }),
		shells:     NewPool(func(s *Shell) { *s = Shell{} }),
	}
}
