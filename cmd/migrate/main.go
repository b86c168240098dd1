// Command migrate applies the database schema and seeds operator accounts.
// The server also migrates on boot; this tool exists for CI pipelines and
// for bootstrapping an admin tenant without starting the API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/threatalytics/backend/internal/domain/identity"
	"github.com/threatalytics/backend/internal/domain/shared"
	"github.com/threatalytics/backend/internal/infrastructure/config"
	"github.com/threatalytics/backend/internal/infrastructure/logger"
	"github.com/threatalytics/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:  logLevel,
		Format: "console",
		Output: "stdout",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	database, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	switch command {
	case "up":
		if err := database.AutoMigrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Schema is up to date")

	case "seed-admin":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: migrate seed-admin <email> <password>")
			os.Exit(1)
		}
		if err := database.AutoMigrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		if err := seedAdmin(context.Background(), database, args[1], args[2]); err != nil {
			log.Fatal("Failed to seed admin account", zap.Error(err))
		}
		log.Info("Admin account ready", zap.String("email", strings.ToLower(args[1])))

	default:
		printUsage()
		os.Exit(1)
	}
}

// seedAdmin creates an admin tenant, or promotes an existing account
func seedAdmin(ctx context.Context, database *persistence.Database, email, password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	repo := persistence.NewTenantRepository(database.DB)
	email = strings.ToLower(strings.TrimSpace(email))

	tenant, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		tenant.PromoteToAdmin()
	case errors.Is(err, shared.ErrNotFound):
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if hashErr != nil {
			return hashErr
		}
		tenant, err = identity.NewTenant(email, "Administrator", string(hash))
		if err != nil {
			return err
		}
		tenant.PromoteToAdmin()
	default:
		return err
	}

	return repo.Save(ctx, tenant)
}

func printUsage() {
	fmt.Println(`Database schema tool

Usage:
  migrate [flags] <command>

Commands:
  up                            Apply the schema
  seed-admin <email> <password> Apply the schema and create or promote an admin account

Flags:
  -log-level string   Log level (default "info")`)
}
