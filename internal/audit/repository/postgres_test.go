package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"volunteer-platform/backend/internal/audit/domain"
)

func TestPostgresRepository_Create_AnonymousStoresNullUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WithArgs("a1", nil, "login_failure", "session", "10.0.0.1", nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	err = repo.Create(context.Background(), &domain.AuditLog{
		ID: "a1", Action: "login_failure", Resource: "session", IP: "10.0.0.1", CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "ip", "metadata", "created_at"}).
		AddRow("a2", "u1", "logout", "session", "10.0.0.1", nil, at.Add(time.Minute)).
		AddRow("a1", "u1", "login_success", "session", "10.0.0.1", `{"k":"v"}`, at)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_logs WHERE user_id = $1")).
		WithArgs("u1", int32(10), int32(0)).
		WillReturnRows(rows)

	list, err := NewPostgresRepository(db).ListByUser(context.Background(), "u1", 10, 0)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Action != "logout" || list[0].Metadata != "" {
		t.Errorf("list[0] = %+v, want logout with empty metadata", list[0])
	}
	if list[1].Metadata != `{"k":"v"}` {
		t.Errorf("list[1].Metadata = %q", list[1].Metadata)
	}
}
