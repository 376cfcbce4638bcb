package cart

import "time"

func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// LockAggregator simule une mutation en cours
func LockAggregator(a *Aggregator) func() {
	a.mu.Lock()
	return a.mu.Unlock
}
