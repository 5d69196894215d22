package transport

// PlantRequest is the body of plant create and update calls.
type PlantRequest struct {
	Name                     string `json:"name"`
	WateringFrequencyDays    int    `json:"wateringFrequencyDays"`
	FertilizingFrequencyDays int    `json:"fertilizingFrequencyDays"`
}
