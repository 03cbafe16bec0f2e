package handlers

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskgate/internal/engine/plans"
	"taskgate/internal/pkg/errors"
	"taskgate/internal/pkg/validator"
	"taskgate/internal/platform/auth"
	"taskgate/internal/platform/models"
	"taskgate/internal/platform/repositories"
)

type AuthHandler struct {
	responder
	userRepo   *repositories.UserRepository
	orgRepo    *repositories.OrganizationRepository
	tokenSvc   *auth.TokenService
	bcryptCost int
}

func NewAuthHandler(userRepo *repositories.UserRepository, orgRepo *repositories.OrganizationRepository, tokenSvc *auth.TokenService, bcryptCost int, debug bool) *AuthHandler {
	return &AuthHandler{
		responder:  responder{debug: debug},
		userRepo:   userRepo,
		orgRepo:    orgRepo,
		tokenSvc:   tokenSvc,
		bcryptCost: bcryptCost,
	}
}

type SignupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"full_name"`
	OrganizationName string `json:"organization_name"`
}

type SessionResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "org"
	}
	return slug
}

// Signup creates a new organization on the free plan with the caller as
// its owner.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.OrganizationName = strings.TrimSpace(req.OrganizationName)

	if err := validator.ValidateEmail(req.Email); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeValidation, err.Error(), nil)
		return
	}
	if err := validator.ValidatePassword(req.Password); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeValidation, err.Error(), nil)
		return
	}
	if req.OrganizationName == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeValidation, "organization_name is required", nil)
		return
	}

	ctx := r.Context()
	existingUser, err := h.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	if existingUser != nil {
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "User already exists", nil)
		return
	}

	slug := slugify(req.OrganizationName)
	if taken, err := h.orgRepo.GetBySlug(ctx, slug); err != nil {
		h.fail(w, errors.FromStore(err))
		return
	} else if taken != nil {
		slug = fmt.Sprintf("%s-%s", slug, uuid.NewString()[:6])
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to hash password", nil)
		return
	}

	now := time.Now().Unix()
	org := &models.Organization{
		ID:        "org_" + uuid.NewString(),
		Slug:      slug,
		Name:      req.OrganizationName,
		Plan:      plans.Free,
		CreatedAt: now,
		UpdatedAt: now,
	}
	user := &models.User{
		ID:             "usr_" + uuid.NewString(),
		OrganizationID: org.ID,
		Email:          req.Email,
		PasswordHash:   string(hashedPassword),
		FullName:       strings.TrimSpace(req.FullName),
		Role:           validator.RoleOwner,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := h.orgRepo.BeginTx(ctx)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	defer tx.Rollback()

	if err := h.orgRepo.CreateTx(ctx, tx, org); err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	if err := h.userRepo.CreateTx(ctx, tx, user); err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	if err := tx.Commit(); err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}

	user.Organization = org
	h.writeSession(w, http.StatusCreated, user)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	user, err := h.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	if user == nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid credentials", nil)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid credentials", nil)
		return
	}

	now := time.Now().Unix()
	if err := h.userRepo.UpdateLastLogin(ctx, user.ID, now); err == nil {
		user.LastLoginAt = &now
	}

	if org, err := h.orgRepo.GetByID(ctx, user.OrganizationID); err == nil {
		user.Organization = org
	}

	h.writeSession(w, http.StatusOK, user)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	userID, err := h.tokenSvc.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired refresh token", nil)
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), userID)
	if err != nil {
		h.fail(w, errors.FromStore(err))
		return
	}
	if user == nil {
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid or expired refresh token", nil)
		return
	}

	h.writeSession(w, http.StatusOK, user)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, status int, user *models.User) {
	accessToken, err := h.tokenSvc.GenerateAccessToken(user.ID, user.OrganizationID, user.Role, user.Email)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate token", nil)
		return
	}

	refreshToken, err := h.tokenSvc.GenerateRefreshToken(user.ID)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate token", nil)
		return
	}

	writeJSON(w, status, SessionResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}
