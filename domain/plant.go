package domain

// Plant is a tracked house plant with its care intervals and history anchors.
type Plant struct {
	ID                       string   `json:"id"`
	Name                     string   `json:"name"`
	WateringFrequencyDays    int      `json:"wateringFrequencyDays"`
	FertilizingFrequencyDays int      `json:"fertilizingFrequencyDays"`
	LastWatered              *Date    `json:"lastWatered,omitempty"`
	LastFertilized           *Date    `json:"lastFertilized,omitempty"`
	ImageFilenames           []string `json:"imageFilenames"`
	CreatedAt                Date     `json:"createdAt"`
}

// NextWateringDue is the last watering (or creation) day plus the watering interval.
func (p *Plant) NextWateringDue() Date {
	return nextDue(p.LastWatered, p.CreatedAt, p.WateringFrequencyDays)
}

// NextFertilizingDue is the last fertilizing (or creation) day plus the fertilizing interval.
func (p *Plant) NextFertilizingDue() Date {
	return nextDue(p.LastFertilized, p.CreatedAt, p.FertilizingFrequencyDays)
}

func (p *Plant) WateringDaysOverdue(today Date) *int {
	return daysOverdue(p.NextWateringDue(), today)
}

func (p *Plant) FertilizingDaysOverdue(today Date) *int {
	return daysOverdue(p.NextFertilizingDue(), today)
}

// Clone returns a deep copy safe to hand out of the registry.
func (p Plant) Clone() Plant {
	out := p
	if p.LastWatered != nil {
		d := *p.LastWatered
		out.LastWatered = &d
	}
	if p.LastFertilized != nil {
		d := *p.LastFertilized
		out.LastFertilized = &d
	}
	out.ImageFilenames = make([]string, len(p.ImageFilenames))
	copy(out.ImageFilenames, p.ImageFilenames)
	return out
}

func nextDue(last *Date, createdAt Date, frequencyDays int) Date {
	anchor := createdAt
	if last != nil {
		anchor = *last
	}
	return anchor.AddDays(frequencyDays)
}

func daysOverdue(due, today Date) *int {
	if !due.Before(today) {
		return nil
	}
	days := today.DaysSince(due)
	return &days
}
