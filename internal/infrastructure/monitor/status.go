package monitor

import "time"

type Status struct {
	DataDir     bool      `json:"data_dir"`
	Uploads     bool      `json:"uploads"`
	Journal     bool      `json:"journal"`
	JournalSize int       `json:"journal_size"`
	LastCheck   time.Time `json:"last_check"`
}

// Healthy reports whether the storage the registry depends on is reachable.
func (s Status) Healthy() bool {
	return s.DataDir && s.Uploads
}
