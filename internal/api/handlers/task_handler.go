package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskgate/internal/api/middleware"
	"taskgate/internal/engine/tasks"
	"taskgate/internal/pkg/errors"
	"taskgate/internal/platform/models"
	"taskgate/internal/platform/repositories"
)

const (
	defaultTaskLimit = 50
	maxTaskLimit     = 200
)

// TaskHandler serves both the session routes and the public v1 routes. The
// acting user comes from the tenant context either way.
type TaskHandler struct {
	responder
	svc         *tasks.Service
	attachments *repositories.AttachmentRepository
}

func NewTaskHandler(svc *tasks.Service, attachments *repositories.AttachmentRepository, debug bool) *TaskHandler {
	return &TaskHandler{responder: responder{debug: debug}, svc: svc, attachments: attachments}
}

func parseFilter(r *http.Request) tasks.Filter {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 || limit > maxTaskLimit {
		limit = defaultTaskLimit
	}
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}

	return tasks.Filter{
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		AssigneeID: q.Get("assignee_id"),
		Limit:      limit,
		Offset:     offset,
	}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	items, err := h.svc.ListTasks(r.Context(), tenant.OrgID, parseFilter(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	var req tasks.Task
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.svc.CreateTask(r.Context(), tenant.OrgID, tenant.UserID, &req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	task, err := h.svc.GetTask(r.Context(), tenant.OrgID, param(r, "task_id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	var patch tasks.Patch
	if !decodeJSON(w, r, &patch) {
		return
	}

	task, err := h.svc.UpdateTask(r.Context(), tenant.OrgID, param(r, "task_id"), tenant.UserID, &patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	if err := h.svc.DeleteTask(r.Context(), tenant.OrgID, param(r, "task_id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type AttachmentRequest struct {
	FileName  string `json:"file_name"`
	SizeBytes int64  `json:"size_bytes"`
}

// AddAttachment records metadata only. Storage quota is enforced by the
// upload_file gate ahead of this handler.
func (h *TaskHandler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	var req AttachmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.FileName = strings.TrimSpace(req.FileName)
	if req.FileName == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeValidation, "file_name is required", nil)
		return
	}
	if req.SizeBytes <= 0 {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeValidation, "size_bytes must be positive", nil)
		return
	}

	ctx := r.Context()
	task, err := h.svc.GetTask(ctx, tenant.OrgID, param(r, "task_id"))
	if err != nil {
		h.fail(w, err)
		return
	}

	att := &models.Attachment{
		ID:         "att_" + uuid.NewString(),
		OrgID:      tenant.OrgID,
		TaskID:     task.ID,
		FileName:   req.FileName,
		SizeBytes:  req.SizeBytes,
		UploadedBy: tenant.UserID,
		CreatedAt:  time.Now().Unix(),
	}
	if err := h.attachments.Create(ctx, att); err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

func (h *TaskHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	items, err := h.attachments.ListByTask(r.Context(), tenant.OrgID, param(r, "task_id"))
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	writeJSON(w, http.StatusOK, items)
}
