package automations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"taskgate/internal/engine/tasks"
	apperrors "taskgate/internal/pkg/errors"
	"taskgate/internal/platform/models"
	"taskgate/internal/platform/repositories"
)

func strPtr(s string) *string { return &s }

func TestService_CreateValidates(t *testing.T) {
	svc := NewService(NewRepository(setupTestDB(t)), nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   *RuleInput
	}{
		{"missing name", &RuleInput{TriggerType: strPtr("task_created"), ActionType: strPtr(ActionChangeStatus), ActionConfig: Config{"status": "done"}}},
		{"bad trigger", &RuleInput{Name: strPtr("x"), TriggerType: strPtr("task_viewed"), ActionType: strPtr(ActionChangeStatus), ActionConfig: Config{"status": "done"}}},
		{"unknown action", &RuleInput{Name: strPtr("x"), TriggerType: strPtr("task_created"), ActionType: strPtr("webhook")}},
		{"bad action config", &RuleInput{Name: strPtr("x"), TriggerType: strPtr("task_created"), ActionType: strPtr(ActionChangeStatus), ActionConfig: Config{"status": "nope"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "org_1", "usr_1", tt.in)
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
		})
	}
}

func TestService_ToggleAndUpdate(t *testing.T) {
	svc := NewService(NewRepository(setupTestDB(t)), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, "org_1", "usr_1", &RuleInput{
		Name:         strPtr("Close reviewed"),
		TriggerType:  strPtr("status_changed"),
		ActionType:   strPtr(ActionChangePriority),
		ActionConfig: Config{"priority": "low"},
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	toggled, err := svc.Toggle(ctx, "org_1", created.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	updated, err := svc.Update(ctx, "org_1", created.ID, &RuleInput{TriggerConfig: Config{"status": "done"}})
	require.NoError(t, err)
	assert.Equal(t, "done", updated.TriggerConfig["status"])
	assert.False(t, updated.IsActive)

	_, err = svc.Toggle(ctx, "org_2", created.ID)
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
}

func TestDispatcher_TaskMutationRunsRules(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	rules := NewRepository(db)
	require.NoError(t, rules.Create(ctx, &Rule{
		ID: "a1", OrgID: "org_1", Name: "auto-close", TriggerType: string(tasks.EventStatusChanged),
		TriggerConfig: Config{"status": tasks.StatusReview}, ActionType: ActionChangePriority,
		ActionConfig: Config{"priority": tasks.PriorityUrgent}, IsActive: true, CreatedBy: "u", CreatedAt: time.Now().Unix(),
	}))

	taskRepo := tasks.NewRepository(db)
	notifications := repositories.NewNotificationRepository(db)
	dispatcher := NewDispatcher(NewEngine(rules, taskRepo, notifications, nil), time.Second)
	taskSvc := tasks.NewService(taskRepo, repositories.NewUserRepository(db), notifications, dispatcher)

	task, err := taskSvc.CreateTask(ctx, "org_1", "usr_1", &tasks.Task{Title: "Review me"})
	require.NoError(t, err)

	_, err = taskSvc.UpdateTask(ctx, "org_1", task.ID, "usr_1", &tasks.Patch{Status: strPtr(tasks.StatusReview)})
	require.NoError(t, err)
	dispatcher.Wait()

	got, err := taskRepo.GetByID(ctx, "org_1", task.ID)
	require.NoError(t, err)
	assert.Equal(t, tasks.PriorityUrgent, got.Priority)
	assert.Equal(t, tasks.StatusReview, got.Status)
}

func TestService_RejectsUsersFromAnotherOrg(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	users := repositories.NewUserRepository(db)
	now := time.Now().Unix()
	for _, u := range []*models.User{
		{ID: "usr_lead", OrganizationID: "org_1", Email: "lead@one.test", Role: "member", CreatedAt: now, UpdatedAt: now},
		{ID: "usr_other", OrganizationID: "org_2", Email: "other@two.test", Role: "member", CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, users.Create(ctx, u))
	}
	svc := NewService(NewRepository(db), users)

	tests := []struct {
		name    string
		action  string
		userID  string
		wantErr bool
	}{
		{"assign member", ActionAssignUser, "usr_lead", false},
		{"assign outsider", ActionAssignUser, "usr_other", true},
		{"notify outsider", ActionSendNotification, "usr_other", true},
		{"notify unknown", ActionSendNotification, "usr_ghost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "org_1", "usr_lead", &RuleInput{
				Name:         strPtr(tt.name),
				TriggerType:  strPtr(string(tasks.EventCreated)),
				ActionType:   strPtr(tt.action),
				ActionConfig: Config{"user_id": tt.userID},
			})
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var appErr *apperrors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, apperrors.ErrCodeValidation, appErr.Code)
		})
	}
}

// overlapWriter records how many writes are in flight at once.
type overlapWriter struct {
	recordingWriter
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (w *overlapWriter) SetPriority(ctx context.Context, id, priority string) error {
	w.mu.Lock()
	w.inFlight++
	if w.inFlight > w.maxInFlight {
		w.maxInFlight = w.inFlight
	}
	w.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	err := w.recordingWriter.SetPriority(ctx, id, priority)

	w.mu.Lock()
	w.inFlight--
	w.mu.Unlock()
	return err
}

func TestDispatcher_RunsMutationTriggersInOrder(t *testing.T) {
	writer := &overlapWriter{}
	rules := &stubRules{rules: []*Rule{
		rule("on-update", string(tasks.EventUpdated), ActionChangePriority, nil, Config{"priority": tasks.PriorityUrgent}),
		rule("on-status", string(tasks.EventStatusChanged), ActionChangePriority, nil, Config{"priority": tasks.PriorityLow}),
	}}
	dispatcher := NewDispatcher(NewEngine(rules, writer, nil, nil), time.Second)

	old, new := statusTransition(tasks.StatusTodo, tasks.StatusReview)
	dispatcher.Dispatch("tsk_1", []tasks.Event{tasks.EventUpdated, tasks.EventStatusChanged}, old, new)
	dispatcher.Wait()

	assert.Equal(t, 1, writer.maxInFlight)
	assert.Equal(t, []write{{"priority", tasks.PriorityUrgent}, {"priority", tasks.PriorityLow}}, writer.writes)
}
