package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-content-auth/config"
	"github.com/oksasatya/go-content-auth/internal/application"
	"github.com/oksasatya/go-content-auth/internal/domain"
	"github.com/oksasatya/go-content-auth/internal/domain/entity"
	pginfra "github.com/oksasatya/go-content-auth/internal/infrastructure/postgres"
	"github.com/oksasatya/go-content-auth/pkg/helpers"
)

// seed creates an identity, or resets the role and password of an existing one.
//
//	go run ./cmd/seed -email editor@example.com -password secret-123 -role EDITOR
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	email := flag.String("email", cfg.SuperAdminEmail, "account email")
	password := flag.String("password", cfg.SuperAdminPassword, "account password (min 8 chars)")
	roleName := flag.String("role", "SUPER_ADMIN", "VIEWER, EDITOR, ADMIN or SUPER_ADMIN")
	firstName := flag.String("first-name", "Seed", "first name")
	lastName := flag.String("last-name", "User", "last name")
	flag.Parse()

	role, err := entity.ParseRole(*roleName)
	if err != nil {
		log.Fatal(err)
	}
	if *email == "" || *password == "" {
		log.Fatal("-email and -password are required")
	}
	if cfg.DBHost == "" {
		log.Fatal("DB_HOST is not set; nothing to seed")
	}

	ctx := context.Background()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolConfig{MaxConns: 2})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	creds := application.NewCredentialStore(pginfra.NewIdentityRepository(pool), cfg.BcryptCost, logger)

	u, err := creds.Create(ctx, application.NewIdentity{Email: *email, FirstName: *firstName, LastName: *lastName, Role: role}, *password)
	switch {
	case err == nil:
		fmt.Printf("created identity: id=%s email=%s role=%s\n", u.ID, u.Email, u.Role)
	case errors.Is(err, domain.ErrDuplicateEmail):
		existing, ferr := creds.FindByEmail(ctx, *email)
		if ferr != nil {
			log.Fatalf("failed to load identity: %v", ferr)
		}
		if err := creds.SetPassword(ctx, existing, *password); err != nil {
			log.Fatalf("failed to reset password: %v", err)
		}
		if u, err = creds.UpdateRole(ctx, existing.ID, role); err != nil {
			log.Fatalf("failed to update role: %v", err)
		}
		fmt.Printf("updated identity: id=%s email=%s role=%s\n", u.ID, u.Email, u.Role)
	default:
		log.Fatalf("failed to seed identity: %v", err)
	}
}
