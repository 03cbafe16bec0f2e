package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"taskgate/internal/api/middleware"
	"taskgate/internal/engine/jobs"
	"taskgate/internal/pkg/errors"
	"taskgate/internal/pkg/logger"
	"taskgate/internal/pkg/validator"
	"taskgate/internal/platform/models"
	"taskgate/internal/platform/repositories"
)

type JobEnqueuer interface {
	Enqueue(jobType string, payload map[string]string) (*jobs.Job, error)
}

type MemberHandler struct {
	responder
	userRepo   *repositories.UserRepository
	jobs       JobEnqueuer
	bcryptCost int
	log        zerolog.Logger
}

func NewMemberHandler(userRepo *repositories.UserRepository, jobs JobEnqueuer, bcryptCost int, debug bool) *MemberHandler {
	return &MemberHandler{
		responder:  responder{debug: debug},
		userRepo:   userRepo,
		jobs:       jobs,
		bcryptCost: bcryptCost,
		log:        logger.Component("members"),
	}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	users, err := h.userRepo.ListByOrg(r.Context(), tenant.OrgID)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type AddMemberRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Add creates the member with an unusable random password and queues the
// invite email. The plan quota is checked by middleware before this runs.
func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.TenantFrom(r)

	var req AddMemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Role == "" {
		req.Role = validator.RoleMember
	}

	if err := validator.ValidateEmail(req.Email); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeValidation, err.Error(), nil)
		return
	}
	if req.Role != validator.RoleAdmin && req.Role != validator.RoleMember {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeValidation, "role must be one of admin, member", nil)
		return
	}

	ctx := r.Context()
	existing, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	if existing != nil {
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "User already exists", nil)
		return
	}

	temp := make([]byte, 24)
	if _, err := rand.Read(temp); err != nil {
		h.fail(w, err)
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(temp)), h.bcryptCost)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to hash password", nil)
		return
	}

	now := time.Now().Unix()
	user := &models.User{
		ID:             "usr_" + uuid.NewString(),
		OrganizationID: tenant.OrgID,
		Email:          req.Email,
		PasswordHash:   string(hashed),
		FullName:       strings.TrimSpace(req.FullName),
		Role:           req.Role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.userRepo.Create(ctx, user); err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}

	if _, err := h.jobs.Enqueue(jobs.TypeSendInviteEmail, map[string]string{
		"email":      user.Email,
		"org_id":     tenant.OrgID,
		"invited_by": tenant.UserID,
	}); err != nil {
		h.log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to enqueue invite email")
	}

	writeJSON(w, http.StatusCreated, user)
}
