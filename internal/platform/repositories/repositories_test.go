package repositories

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func TestOrganizationRepository_GetByID_NotFound(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDB.Close()

	repo := NewOrganizationRepository(sqlx.NewDb(mockDB, "sqlmock"))

	mock.ExpectQuery("SELECT (.+) FROM organizations WHERE id = ?").
		WithArgs("org_404").
		WillReturnError(sql.ErrNoRows)

	org, err := repo.GetByID(context.Background(), "org_404")
	if err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if org != nil {
		t.Errorf("Expected nil org, got %+v", org)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestOrganizationRepository_UpdatePlan(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDB.Close()

	repo := NewOrganizationRepository(sqlx.NewDb(mockDB, "sqlmock"))

	mock.ExpectExec("UPDATE organizations SET plan").
		WithArgs("starter", sqlmock.AnyArg(), "org_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE organizations SET plan").
		WithArgs("starter", sqlmock.AnyArg(), "org_missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdatePlan(context.Background(), "org_1", "starter"); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := repo.UpdatePlan(context.Background(), "org_missing", "starter"); err != sql.ErrNoRows {
		t.Errorf("Expected ErrNoRows, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestUserRepository_GetByIDInOrg(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer mockDB.Close()

	repo := NewUserRepository(sqlx.NewDb(mockDB, "sqlmock"))

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = \\? AND organization_id = \\?").
		WithArgs("usr_b", "org_a").
		WillReturnError(sql.ErrNoRows)

	user, err := repo.GetByIDInOrg(context.Background(), "org_a", "usr_b")
	if err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if user != nil {
		t.Errorf("Expected no user across orgs, got %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
