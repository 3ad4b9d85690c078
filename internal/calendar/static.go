package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskDesk/internal/config"
	"taskDesk/internal/models/task"
)

type Holiday struct {
	Date time.Time
	Name string
}

// Static is an in-process holiday list, loaded from configuration.
type Static struct {
	mtx  sync.RWMutex
	days map[time.Time]string
}

func NewStatic(holidays ...Holiday) *Static {
	s := &Static{days: make(map[time.Time]string, len(holidays))}
	for _, h := range holidays {
		s.days[task.Day(h.Date)] = h.Name
	}
	return s
}

func StaticFromConfig(entries []config.HolidayConfig) (*Static, error) {
	holidays := make([]Holiday, 0, len(entries))
	for _, e := range entries {
		day, err := task.ParseDate(e.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", e.Date, err)
		}
		holidays = append(holidays, Holiday{Date: day, Name: e.Name})
	}
	return NewStatic(holidays...), nil
}

func (s *Static) Lookup(_ context.Context, day time.Time) (string, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	name, ok := s.days[task.Day(day)]
	return name, ok, nil
}

func (s *Static) Add(h Holiday) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.days[task.Day(h.Date)] = h.Name
}
