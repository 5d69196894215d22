package schedule

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/fastygo/plantcare/domain"
	"github.com/fastygo/plantcare/internal/registry"
	"github.com/fastygo/plantcare/usecase"
)

// WindowDays is how far ahead of today a task still counts as upcoming.
const WindowDays = 3

type UseCase struct {
	registry *registry.Registry
	clock    usecase.Clock
	logger   *zap.Logger
}

func New(reg *registry.Registry, clock usecase.Clock, logger *zap.Logger) *UseCase {
	if clock == nil {
		clock = usecase.SystemClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		registry: reg,
		clock:    clock,
		logger:   logger,
	}
}

// GetSchedule evaluates one registry snapshot against a single "today".
func (uc *UseCase) GetSchedule(ctx context.Context) domain.ScheduleResponse {
	resp := Compute(uc.registry.Snapshot(), uc.clock.Today())
	uc.logger.Debug("schedule computed",
		zap.Int("upcoming", len(resp.UpcomingTasks)),
		zap.Int("overdue", len(resp.OverdueTasks)))
	return resp
}

// Compute classifies every watering and fertilizing due date of plants.
func Compute(plants []domain.Plant, today domain.Date) domain.ScheduleResponse {
	resp := domain.ScheduleResponse{
		UpcomingTasks: []domain.PlantTask{},
		OverdueTasks:  []domain.PlantTask{},
	}
	horizon := today.AddDays(WindowDays)

	for i := range plants {
		p := &plants[i]
		resp = classify(resp, p, domain.TaskWatering, p.NextWateringDue(), today, horizon)
		resp = classify(resp, p, domain.TaskFertilizing, p.NextFertilizingDue(), today, horizon)
	}

	sortByDueDate(resp.UpcomingTasks)
	sortByDueDate(resp.OverdueTasks)
	return resp
}

func classify(resp domain.ScheduleResponse, p *domain.Plant, kind domain.TaskType, due, today, horizon domain.Date) domain.ScheduleResponse {
	task := domain.PlantTask{
		PlantID:   p.ID,
		PlantName: p.Name,
		TaskType:  kind,
		DueDate:   due,
	}
	switch {
	case due.Before(today):
		days := today.DaysSince(due)
		task.DaysOverdue = &days
		resp.OverdueTasks = append(resp.OverdueTasks, task)
	case !due.After(horizon):
		resp.UpcomingTasks = append(resp.UpcomingTasks, task)
	}
	return resp
}

func sortByDueDate(tasks []domain.PlantTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})
}
