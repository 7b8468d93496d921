package resilience

import "sync"

// SingleFlight deduplicates concurrent calls for the same key. The first
// caller runs fn; everyone who arrives before it finishes waits and shares
// the result.
type SingleFlight struct {
	mu      sync.Mutex
	flights map[string]*flight
}

type flight struct {
	done chan struct{}
	val  any
	err  error
}

// Do returns fn's value and error, plus whether the result was shared from
// another caller's flight.
func (g *SingleFlight) Do(key string, fn func() (any, error)) (any, error, bool) {
	g.mu.Lock()
	if g.flights == nil {
		g.flights = make(map[string]*flight)
	}
	if f, ok := g.flights[key]; ok {
		g.mu.Unlock()
		<-f.done
		return f.val, f.err, true
	}

	f := &flight{done: make(chan struct{})}
	g.flights[key] = f
	g.mu.Unlock()

	f.val, f.err = fn()
	close(f.done)

	g.mu.Lock()
	if g.flights[key] == f {
		delete(g.flights, key)
	}
	g.mu.Unlock()

	return f.val, f.err, false
}

// Forget detaches an in-flight call from the key. Callers already waiting
// still get that call's result, but the next Do starts fresh instead of
// joining a flight whose inputs are known stale.
func (g *SingleFlight) Forget(key string) {
	g.mu.Lock()
	delete(g.flights, key)
	g.mu.Unlock()
}
