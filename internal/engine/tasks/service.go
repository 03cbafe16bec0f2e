package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	apperrors "taskgate/internal/pkg/errors"
	"taskgate/internal/pkg/logger"
	"taskgate/internal/platform/models"
)

// Dispatcher receives the events of one committed mutation, in the order
// they were raised. It must not block or fail the caller.
type Dispatcher interface {
	Dispatch(taskID string, events []Event, old, new *Task)
}

// Members resolves users within a single organization.
type Members interface {
	GetByIDInOrg(ctx context.Context, orgID, id string) (*models.User, error)
}

type Notifier interface {
	Create(ctx context.Context, n *models.Notification) error
}

type Service struct {
	repo       *Repository
	members    Members
	notifier   Notifier
	dispatcher Dispatcher
	log        zerolog.Logger
}

func NewService(repo *Repository, members Members, notifier Notifier, dispatcher Dispatcher) *Service {
	return &Service{
		repo:       repo,
		members:    members,
		notifier:   notifier,
		dispatcher: dispatcher,
		log:        logger.Component("tasks"),
	}
}

func (s *Service) CreateTask(ctx context.Context, orgID, createdBy string, req *Task) (*Task, error) {
	if err := ValidateTask(req); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	now := time.Now().Unix()
	task := &Task{
		ID:          "tsk_" + uuid.New().String(),
		OrgID:       orgID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		CreatedBy:   createdBy,
		DueAt:       req.DueAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Status == "" {
		task.Status = StatusTodo
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	if task.AssigneeID != nil && *task.AssigneeID == "" {
		task.AssigneeID = nil
	}
	if err := s.checkAssignee(ctx, orgID, task.AssigneeID); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, apperrors.FromStore(err)
	}

	events := []Event{EventCreated}
	if task.AssigneeID != nil {
		s.notifyAssignee(ctx, task, createdBy)
		events = append(events, EventAssigned)
	}
	s.emit(events, nil, task)

	return task, nil
}

func (s *Service) GetTask(ctx context.Context, orgID, id string) (*Task, error) {
	task, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return task, nil
}

func (s *Service) ListTasks(ctx context.Context, orgID string, f Filter) ([]*Task, error) {
	items, err := s.repo.List(ctx, orgID, f)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	return items, nil
}

func (s *Service) UpdateTask(ctx context.Context, orgID, id, actorID string, patch *Patch) (*Task, error) {
	existing, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, notFound(err)
	}
	old := existing.Clone()

	if patch.Title != nil {
		existing.Title = *patch.Title
	}
	if patch.Description != nil {
		existing.Description = *patch.Description
	}
	if patch.Status != nil {
		existing.Status = *patch.Status
	}
	if patch.Priority != nil {
		existing.Priority = *patch.Priority
	}
	if patch.AssigneeID != nil {
		if *patch.AssigneeID == "" {
			existing.AssigneeID = nil
		} else {
			assignee := *patch.AssigneeID
			existing.AssigneeID = &assignee
		}
	}
	if patch.DueAt != nil {
		existing.DueAt = patch.DueAt
	}

	if err := ValidateTask(existing); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if existing.Assignee() != old.Assignee() {
		if err := s.checkAssignee(ctx, orgID, existing.AssigneeID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, notFound(err)
	}

	events := []Event{EventUpdated}
	if old.Status != existing.Status {
		events = append(events, EventStatusChanged)
	}
	if old.Priority != existing.Priority {
		events = append(events, EventPriorityChanged)
	}
	if existing.AssigneeID != nil && old.Assignee() != existing.Assignee() {
		s.notifyAssignee(ctx, existing, actorID)
		events = append(events, EventAssigned)
	}
	s.emit(events, old, existing)

	return existing, nil
}

func (s *Service) DeleteTask(ctx context.Context, orgID, id string) error {
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return notFound(err)
	}
	return nil
}

func (s *Service) emit(events []Event, old, new *Task) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(new.ID, events, old.Clone(), new.Clone())
}

// checkAssignee rejects assignees outside the task's organization.
func (s *Service) checkAssignee(ctx context.Context, orgID string, assigneeID *string) error {
	if assigneeID == nil {
		return nil
	}
	if s.members == nil {
		return apperrors.Validation("assignee_id cannot be resolved")
	}
	user, err := s.members.GetByIDInOrg(ctx, orgID, *assigneeID)
	if err != nil {
		return apperrors.FromStore(err)
	}
	if user == nil {
		return apperrors.Validation("assignee_id is not a member of this organization")
	}
	return nil
}

// notifyAssignee is best effort; a failed notification never fails the
// task write that caused it.
func (s *Service) notifyAssignee(ctx context.Context, task *Task, actorID string) {
	if s.notifier == nil || task.AssigneeID == nil || *task.AssigneeID == actorID {
		return
	}

	taskID := task.ID
	err := s.notifier.Create(ctx, &models.Notification{
		OrgID:   task.OrgID,
		UserID:  *task.AssigneeID,
		Type:    models.NotificationTaskAssigned,
		Title:   "New task assigned",
		Message: fmt.Sprintf("You were assigned to %q", task.Title),
		TaskID:  &taskID,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("task_id", task.ID).Msg("failed to create assignment notification")
	}
}

func notFound(err error) error {
	mapped := apperrors.FromStore(err)
	if e, ok := mapped.(*apperrors.AppError); ok && e.Code == apperrors.ErrCodeNotFound {
		return apperrors.NotFound("Task not found")
	}
	return mapped
}
