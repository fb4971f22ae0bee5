package sqlite

import "time"

// Config holds SQLite file and retention settings
type Config struct {
	// Path is the database file; parent directories are created
	Path string

	// BusyTimeout is how long a writer waits on a locked database
	BusyTimeout time.Duration

	// GuestUserTTL expires guest accounts; registered users never expire
	GuestUserTTL time.Duration
}

// DefaultConfig returns the settings used when only a path is given
func DefaultConfig() Config {
	return Config{
		Path:         "teamprogress.db",
		BusyTimeout:  5 * time.Second,
		GuestUserTTL: 30 * 24 * time.Hour,
	}
}
