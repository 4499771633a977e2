package cache

import "time"

const _defaultName = "default"

type settings struct {
	name string
	now  func() time.Time
}

type Option func(*settings)

// WithName sets the "type" label reported to cache metrics.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.now = now
	}
}
