package circuitbreaker

import "time"

// Settings tune a breaker. They are loaded from the "breaker" config section.
type Settings struct {
	MaxHalfOpenRequests uint32        `mapstructure:"max_half_open_requests"`
	Interval            time.Duration `mapstructure:"interval"`     // closed-state counter reset; 0 never resets
	OpenTimeout         time.Duration `mapstructure:"open_timeout"` // open → half-open
	FailureThreshold    uint32        `mapstructure:"failure_threshold"`
	SuccessThreshold    uint32        `mapstructure:"success_threshold"`
}

// DefaultSettings suit a single assistant backend called per chat turn.
func DefaultSettings() Settings {
	return Settings{
		MaxHalfOpenRequests: 5,
		Interval:            30 * time.Second,
		OpenTimeout:         15 * time.Second,
		FailureThreshold:    3,
		SuccessThreshold:    2,
	}
}
