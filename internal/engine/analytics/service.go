package analytics

import (
	"context"
	"time"
)

type Overview struct {
	TasksByStatus     map[string]int `json:"tasks_by_status"`
	TasksByPriority   map[string]int `json:"tasks_by_priority"`
	TotalTasks        int            `json:"total_tasks"`
	OverdueTasks      int            `json:"overdue_tasks"`
	ActiveAutomations int            `json:"active_automations"`
	ActiveAPIKeys     int            `json:"active_api_keys"`
	APIRequests24h    int            `json:"api_requests_24h"`
	GeneratedAt       int64          `json:"generated_at"`
}

type Service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) GetOverview(ctx context.Context, orgID string) (*Overview, error) {
	now := s.now()
	o := &Overview{GeneratedAt: now.Unix()}

	var err error
	if o.TasksByStatus, err = s.repo.CountTasksBy(ctx, orgID, "status"); err != nil {
		return nil, err
	}
	if o.TasksByPriority, err = s.repo.CountTasksBy(ctx, orgID, "priority"); err != nil {
		return nil, err
	}
	for _, n := range o.TasksByStatus {
		o.TotalTasks += n
	}
	if o.OverdueTasks, err = s.repo.CountOverdue(ctx, orgID, now.Unix()); err != nil {
		return nil, err
	}
	if o.ActiveAutomations, err = s.repo.CountActiveAutomations(ctx, orgID); err != nil {
		return nil, err
	}
	if o.ActiveAPIKeys, err = s.repo.CountActiveKeys(ctx, orgID); err != nil {
		return nil, err
	}
	if o.APIRequests24h, err = s.repo.CountAPIRequestsSince(ctx, orgID, now.Add(-24*time.Hour).Unix()); err != nil {
		return nil, err
	}
	return o, nil
}
