package domain

// TaskType names the kind of care a PlantTask asks for.
type TaskType string

const (
	TaskWatering    TaskType = "Watering"
	TaskFertilizing TaskType = "Fertilizing"
)

// PlantTask is one due or overdue care item derived from a plant.
type PlantTask struct {
	PlantID     string   `json:"plantId"`
	PlantName   string   `json:"plantName"`
	TaskType    TaskType `json:"taskType"`
	DueDate     Date     `json:"dueDate"`
	DaysOverdue *int     `json:"daysOverdue,omitempty"`
}

// ScheduleResponse groups tasks due within the near-term window and those already overdue.
type ScheduleResponse struct {
	UpcomingTasks []PlantTask `json:"upcomingTasks"`
	OverdueTasks  []PlantTask `json:"overdueTasks"`
}
