package automations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"taskgate/internal/engine/tasks"
	apperrors "taskgate/internal/pkg/errors"
)

// Service manages rule definitions for org admins.
type Service struct {
	repo    *Repository
	members tasks.Members
}

func NewService(repo *Repository, members tasks.Members) *Service {
	return &Service{repo: repo, members: members}
}

type RuleInput struct {
	Name          *string `json:"name"`
	TriggerType   *string `json:"trigger_type"`
	TriggerConfig Config  `json:"trigger_config"`
	ActionType    *string `json:"action_type"`
	ActionConfig  Config  `json:"action_config"`
	IsActive      *bool   `json:"is_active"`
}

func (s *Service) Create(ctx context.Context, orgID, createdBy string, in *RuleInput) (*Rule, error) {
	rule := &Rule{
		ID:            "aut_" + uuid.New().String(),
		OrgID:         orgID,
		TriggerConfig: Config{},
		ActionConfig:  Config{},
		IsActive:      true,
		CreatedBy:     createdBy,
		CreatedAt:     time.Now().Unix(),
	}
	apply(rule, in)

	if err := s.validate(ctx, rule); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, apperrors.FromStore(err)
	}
	return rule, nil
}

func (s *Service) List(ctx context.Context, orgID string) ([]*Rule, error) {
	rules, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	return rules, nil
}

func (s *Service) Update(ctx context.Context, orgID, id string, in *RuleInput) (*Rule, error) {
	rule, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, notFound(err)
	}
	apply(rule, in)

	if err := s.validate(ctx, rule); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, notFound(err)
	}
	return rule, nil
}

// Toggle flips is_active and returns the rule in its new state.
func (s *Service) Toggle(ctx context.Context, orgID, id string) (*Rule, error) {
	rule, err := s.repo.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, notFound(err)
	}
	rule.IsActive = !rule.IsActive
	if err := s.repo.SetActive(ctx, orgID, id, rule.IsActive); err != nil {
		return nil, notFound(err)
	}
	return rule, nil
}

func (s *Service) Delete(ctx context.Context, orgID, id string) error {
	if err := s.repo.Delete(ctx, orgID, id); err != nil {
		return notFound(err)
	}
	return nil
}

func apply(rule *Rule, in *RuleInput) {
	if in.Name != nil {
		rule.Name = strings.TrimSpace(*in.Name)
	}
	if in.TriggerType != nil {
		rule.TriggerType = *in.TriggerType
	}
	if in.TriggerConfig != nil {
		rule.TriggerConfig = in.TriggerConfig
	}
	if in.ActionType != nil {
		rule.ActionType = *in.ActionType
	}
	if in.ActionConfig != nil {
		rule.ActionConfig = in.ActionConfig
	}
	if in.IsActive != nil {
		rule.IsActive = *in.IsActive
	}
}

// validate rejects bad definitions at write time. Unknown action types are
// refused here even though the engine tolerates them in stored rows.
func (s *Service) validate(ctx context.Context, rule *Rule) error {
	if rule.Name == "" {
		return apperrors.Validation("name is required")
	}
	if !tasks.ValidEvent(rule.TriggerType) {
		return apperrors.Validation(fmt.Sprintf("unsupported trigger_type %q", rule.TriggerType))
	}
	if !KnownAction(rule.ActionType) {
		return apperrors.Validation(fmt.Sprintf("unsupported action_type %q", rule.ActionType))
	}
	action, err := DecodeAction(rule.ActionType, rule.ActionConfig)
	if err != nil {
		return apperrors.Validation(err.Error())
	}

	var userID string
	switch a := action.(type) {
	case AssignUser:
		userID = a.UserID
	case SendNotification:
		userID = a.UserID
	}
	if userID == "" {
		return nil
	}
	if s.members == nil {
		return apperrors.Validation("user_id cannot be resolved")
	}
	user, err := s.members.GetByIDInOrg(ctx, rule.OrgID, userID)
	if err != nil {
		return apperrors.FromStore(err)
	}
	if user == nil {
		return apperrors.Validation("user_id is not a member of this organization")
	}
	return nil
}

func notFound(err error) error {
	mapped := apperrors.FromStore(err)
	if e, ok := mapped.(*apperrors.AppError); ok && e.Code == apperrors.ErrCodeNotFound {
		return apperrors.NotFound("Automation not found")
	}
	return mapped
}
