package usecase

import (
	"io"
	"time"

	"github.com/fastygo/plantcare/domain"
)

// Clock returns the current instant. Use cases derive "today" from it.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// Today is the canonical UTC calendar day of the clock.
func (c Clock) Today() domain.Date {
	if c == nil {
		return domain.DateOf(time.Now())
	}
	return domain.DateOf(c())
}

// ImageStore abstracts where uploaded plant images live.
type ImageStore interface {
	EnsurePlantDir(plantID string) error
	Write(plantID, filename string, src io.Reader) (int64, error)
	Remove(plantID, filename string) error
	RemovePlant(plantID string) (bool, error)
}

// CareJournal records care actions. Failures are never fatal to a request.
type CareJournal interface {
	Record(event domain.CareEvent) error
	List(plantID string) ([]domain.CareEvent, error)
	Purge(plantID string) (int, error)
}
