package health

import (
	"context"
	"sync"
)

// Aggregator combines multiple named checkers into a single composite
// check whose status is the worst of its parts.
type Aggregator struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	order    []string // Maintains registration order
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		checkers: make(map[string]Checker),
	}
}

// Register adds a checker under the given name, replacing any previous
// checker with the same name.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = checker
}

// Unregister removes a checker.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		return
	}
	delete(a.checkers, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// Check runs every registered checker and returns the worst status.
// Per-checker results are included in Details keyed by name.
func (a *Aggregator) Check(ctx context.Context) Result {
	a.mu.RLock()
	names := make([]string, len(a.order))
	copy(names, a.order)
	checkers := make(map[string]Checker, len(a.checkers))
	for name, c := range a.checkers {
		checkers[name] = c
	}
	a.mu.RUnlock()

	worst := StatusHealthy
	message := "all checks healthy"
	details := make(map[string]any, len(names))

	for _, name := range names {
		result := checkers[name].Check(ctx)
		details[name] = result
		if result.Status > worst {
			worst = result.Status
			message = name + ": " + result.Message
		}
	}

	return Result{
		Status:  worst,
		Message: message,
		Details: details,
	}
}
