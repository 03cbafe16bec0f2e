package automations

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"taskgate/internal/engine/tasks"
	"taskgate/internal/pkg/logger"
	"taskgate/internal/platform/models"
)

const (
	OutcomeExecuted  = "executed"
	OutcomeUnmatched = "unmatched"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

type RuleSource interface {
	ListActive(ctx context.Context, orgID, triggerType string) ([]*Rule, error)
}

// TaskWriter performs single-column task writes. These bypass the task
// service so an action never fires further triggers.
type TaskWriter interface {
	SetStatus(ctx context.Context, id, status string) error
	SetPriority(ctx context.Context, id, priority string) error
	SetAssignee(ctx context.Context, id, userID string) error
}

type Observer interface {
	ObserveAutomation(trigger, outcome string)
}

// Report summarises one ProcessTrigger run.
type Report struct {
	Trigger  tasks.Event `json:"trigger"`
	TaskID   string      `json:"task_id"`
	Rules    int         `json:"rules"`
	Executed int         `json:"executed"`
	Skipped  int         `json:"skipped"`
	Failed   int         `json:"failed"`
}

type Engine struct {
	rules    RuleSource
	tasks    TaskWriter
	notifier tasks.Notifier
	observer Observer
	log      zerolog.Logger
}

func NewEngine(rules RuleSource, writer TaskWriter, notifier tasks.Notifier, observer Observer) *Engine {
	return &Engine{
		rules:    rules,
		tasks:    writer,
		notifier: notifier,
		observer: observer,
		log:      logger.Component("automations"),
	}
}

// ProcessTrigger runs every active rule of the task's org registered for
// trigger. Rules run one after another; a failing or panicking rule is
// logged and the remaining rules still run.
func (e *Engine) ProcessTrigger(ctx context.Context, trigger tasks.Event, taskID string, old, new *tasks.Task) Report {
	report := Report{Trigger: trigger, TaskID: taskID}

	orgID := ""
	if new != nil {
		orgID = new.OrgID
	} else if old != nil {
		orgID = old.OrgID
	}
	if orgID == "" {
		return report
	}

	rules, err := e.rules.ListActive(ctx, orgID, string(trigger))
	if err != nil {
		e.log.Error().Err(err).Str("org_id", orgID).Str("trigger", string(trigger)).Msg("failed to load automation rules")
		return report
	}
	report.Rules = len(rules)

	for _, rule := range rules {
		outcome, err := e.runRule(ctx, rule, taskID, old, new)
		switch outcome {
		case OutcomeExecuted:
			report.Executed++
		case OutcomeSkipped:
			report.Skipped++
		case OutcomeFailed:
			report.Failed++
			e.log.Error().Err(err).
				Str("rule_id", rule.ID).
				Str("task_id", taskID).
				Str("trigger", string(trigger)).
				Msg("automation rule failed")
		}
		if e.observer != nil {
			e.observer.ObserveAutomation(string(trigger), outcome)
		}
	}

	return report
}

func (e *Engine) runRule(ctx context.Context, rule *Rule, taskID string, old, new *tasks.Task) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = OutcomeFailed
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if !Matches(rule.TriggerConfig, old, new) {
		return OutcomeUnmatched, nil
	}

	action, err := DecodeAction(rule.ActionType, rule.ActionConfig)
	if errors.Is(err, ErrUnknownAction) {
		e.log.Debug().Str("rule_id", rule.ID).Str("action_type", rule.ActionType).Msg("skipping unknown action")
		return OutcomeSkipped, nil
	}
	if err != nil {
		return OutcomeFailed, err
	}

	if err := e.execute(ctx, rule, action, taskID, new); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeExecuted, nil
}

func (e *Engine) execute(ctx context.Context, rule *Rule, action Action, taskID string, task *tasks.Task) error {
	switch a := action.(type) {
	case ChangeStatus:
		return e.tasks.SetStatus(ctx, taskID, a.Status)
	case ChangePriority:
		return e.tasks.SetPriority(ctx, taskID, a.Priority)
	case AssignUser:
		return e.tasks.SetAssignee(ctx, taskID, a.UserID)
	case SendNotification:
		return e.notify(ctx, rule, a, taskID, task)
	default:
		return fmt.Errorf("unhandled action %T", action)
	}
}

func (e *Engine) notify(ctx context.Context, rule *Rule, a SendNotification, taskID string, task *tasks.Task) error {
	if e.notifier == nil {
		return errors.New("send_notification: no notifier configured")
	}

	userID := a.UserID
	if userID == "" {
		userID = task.Assignee()
	}
	if userID == "" {
		return errors.New("send_notification: no recipient")
	}

	title := a.Title
	if title == "" {
		title = "Automation: " + rule.Name
	}
	message := a.Message
	if message == "" && task != nil {
		message = fmt.Sprintf("Automation %q ran on %q", rule.Name, task.Title)
	}

	id := taskID
	return e.notifier.Create(ctx, &models.Notification{
		OrgID:   rule.OrgID,
		UserID:  userID,
		Type:    models.NotificationAutomation,
		Title:   title,
		Message: message,
		TaskID:  &id,
	})
}
