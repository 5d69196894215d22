package domain

import "time"

// CareEventKind classifies journal entries.
type CareEventKind string

const (
	CareWatering    CareEventKind = "Watering"
	CareFertilizing CareEventKind = "Fertilizing"
	CareImage       CareEventKind = "Image"
)

// CareEvent records a single care action applied to a plant.
type CareEvent struct {
	ID         string        `json:"id"`
	PlantID    string        `json:"plantId"`
	Kind       CareEventKind `json:"kind"`
	Date       Date          `json:"date"`
	Detail     string        `json:"detail,omitempty"`
	RecordedAt time.Time     `json:"recordedAt"`
}
