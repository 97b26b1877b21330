// seed inserts development sample data for local testing: a staff user, a cell managed by a
// volunteer, an event in that cell and one participation.
// Idempotent: skips inserts if the staff user (staff@example.com) already exists.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"volunteer-platform/backend/internal/config"
	"volunteer-platform/backend/internal/db"
	"volunteer-platform/backend/internal/security"
	userdomain "volunteer-platform/backend/internal/user/domain"
	userrepo "volunteer-platform/backend/internal/user/repository"
)

const (
	staffEmail      = "staff@example.com"
	managerEmail    = "manager@example.com"
	volunteerEmail  = "volunteer@example.com"
	devPassword     = "password123"
	staffID         = "dev-user-001"
	managerID       = "dev-user-002"
	volunteerID     = "dev-user-003"
	devCellID       = "dev-cell-001"
	devEventID      = "dev-event-001"
	devParticipationID = "dev-participation-001"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, staffEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", staffEmail)
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash(devPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	for _, u := range []*userdomain.User{
		{ID: staffID, Email: staffEmail, FirstName: "Staff", LastName: "User", IsStaff: true},
		{ID: managerID, Email: managerEmail, FirstName: "Cell", LastName: "Manager"},
		{ID: volunteerID, Email: volunteerEmail, FirstName: "Vol", LastName: "Unteer"},
	} {
		u.PasswordHash = passwordHash
		u.IsActive = true
		u.CreatedAt = now
		u.UpdatedAt = now
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.Email, err)
		}
	}

	if err := seedCell(ctx, conn, now); err != nil {
		log.Fatalf("seed cell: %v", err)
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Staff login: %s / %s\n", staffEmail, devPassword)
	fmt.Printf("Manager login: %s / %s\n", managerEmail, devPassword)
	fmt.Printf("Volunteer login: %s / %s\n", volunteerEmail, devPassword)
}

// seedCell inserts the sample cell, its manager, one event and a pending participation in one transaction.
func seedCell(ctx context.Context, conn *sql.DB, now time.Time) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT INTO cells (id, name, created_at) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			[]any{devCellID, "Dev Cell", now}},
		{`INSERT INTO cell_managers (cell_id, user_id, created_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			[]any{devCellID, managerID, now}},
		{`INSERT INTO events (id, cell_id, title, starts_at, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`,
			[]any{devEventID, devCellID, "Beach clean-up", now.AddDate(0, 0, 7), now}},
		{`INSERT INTO participations (id, event_id, user_id, status, is_present, created_at, updated_at)
		  VALUES ($1, $2, $3, 'pending', FALSE, $4, $4) ON CONFLICT (event_id, user_id) DO NOTHING`,
			[]any{devParticipationID, devEventID, volunteerID, now}},
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
