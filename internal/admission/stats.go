package admission

import (
	"context"
	"sync"
	"time"
)

// StatsEvent is one admission decision.
type StatsEvent struct {
	Resource string
	Allowed  bool
	Reason   Reason
	At       time.Time
}

// StatsStore persists admission decisions. Errors never affect the decision.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}

type Counters struct {
	Allowed int64            `json:"allowed"`
	Denied  int64            `json:"denied"`
	Reasons map[Reason]int64 `json:"reasons,omitempty"`
}

type MemoryStatsStore struct {
	mutex      sync.Mutex
	byResource map[string]Counters
}

func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{
		byResource: make(map[string]Counters),
	}
}

func (s *MemoryStatsStore) Record(_ context.Context, ev StatsEvent) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	c := s.byResource[ev.Resource]
	if ev.Allowed {
		c.Allowed++
	} else {
		c.Denied++
		if c.Reasons == nil {
			c.Reasons = make(map[Reason]int64)
		}
		c.Reasons[ev.Reason]++
	}
	s.byResource[ev.Resource] = c

	return nil
}

// Counters returns a copy of the counters for a resource.
func (s *MemoryStatsStore) Counters(resource string) Counters {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	c := s.byResource[resource]
	out := Counters{Allowed: c.Allowed, Denied: c.Denied}
	if len(c.Reasons) > 0 {
		out.Reasons = make(map[Reason]int64, len(c.Reasons))
		for k, v := range c.Reasons {
			out.Reasons[k] = v
		}
	}

	return out
}
