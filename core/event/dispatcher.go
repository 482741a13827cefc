package event

// Dispatcher holds subscribers per lifecycle point.
//
// A Dispatcher is used by a single build and is not safe for concurrent use.
type Dispatcher struct {
	subs map[Point][]func(Event) error
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: make(map[Point][]func(Event) error)}
}

// Subscribe registers fn for events of type E.
func Subscribe[E Event](d *Dispatcher, fn func(E) error) {
	var zero E
	p := zero.Point()
	d.subs[p] = append(d.subs[p], func(e Event) error {
		return fn(e.(E)) //nolint:forcetypeassert // the point fixes the type
	})
}

// Len returns the number of subscribers for p.
func (d *Dispatcher) Len(p Point) int {
	return len(d.subs[p])
}

// Dispatch runs the subscribers for e's point in registration order and
// stops at the first failure, which is returned as a *PointError.
func (d *Dispatcher) Dispatch(e Event) error {
	p := e.Point()
	for _, fn := range d.subs[p] {
		if err := fn(e); err != nil {
			return &PointError{Point: p, Err: err}
		}
	}
	return nil
}
