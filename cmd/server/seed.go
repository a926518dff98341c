package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"authsvc/internal/auth"
	"authsvc/internal/db"
	"authsvc/internal/model"
	"authsvc/internal/repository"
	"authsvc/internal/validation"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	username string
	email    string
	password string
	timeout  time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create an initial user",
		Long: `Creates a user with the given credentials.
This command is idempotent - an existing username is left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.username, "username", "admin", "username of the seeded user")
	cmd.Flags().StringVar(&cfg.email, "email", "admin@localhost", "email of the seeded user")
	cmd.Flags().StringVar(&cfg.password, "password", "", "password of the seeded user (required)")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runSeed(cmd *cobra.Command, cfg *seedConfig) error {
	appCfg, err := loadConfig()
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	gormDB, err := db.Open(appCfg.DBDriver, appCfg.DSN, false)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer func() { _ = db.Close(gormDB) }()

	if err := db.Migrate(gormDB); err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}

	created, err := seedUser(ctx, repository.NewUserRepository(gormDB), auth.NewArgon2idHasher(), cfg)
	if err != nil {
		return err
	}
	if created {
		cmd.Printf("Created user %q\n", cfg.username)
	} else {
		cmd.Printf("User %q already exists, skipped\n", cfg.username)
	}
	return nil
}

// seedUser creates the user unless the username is taken. It reports
// whether a row was written.
func seedUser(ctx context.Context, repo repository.UserRepository, hasher auth.PasswordHasher, cfg *seedConfig) (bool, error) {
	in := validation.RegisterInput{Username: cfg.username, Email: cfg.email, Password: cfg.password}
	if errs := validation.ValidateRegister(in); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, fe := range errs {
			msgs = append(msgs, fe.Field+": "+fe.Message)
		}
		return false, oops.Code("SEED_INVALID").Errorf("invalid seed user: %s", strings.Join(msgs, "; "))
	}

	_, err := repo.FindByUsername(ctx, cfg.username)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, oops.Code("SEED_FAILED").With("operation", "find user").Wrap(err)
	}

	hashed, err := hasher.Hash(cfg.password)
	if err != nil {
		return false, oops.Code("SEED_FAILED").With("operation", "hash password").Wrap(err)
	}

	user := &model.User{Username: cfg.username, Email: cfg.email, Password: hashed}
	if err := repo.Create(ctx, user); err != nil {
		var dup *repository.DuplicateKeyError
		if errors.As(err, &dup) {
			return false, oops.Code("SEED_CONFLICT").Errorf("%s %q already taken", dup.Field, fieldValue(cfg, dup.Field))
		}
		return false, oops.Code("SEED_FAILED").With("operation", "create user").Wrap(err)
	}
	return true, nil
}

func fieldValue(cfg *seedConfig, field string) string {
	if field == "email" {
		return cfg.email
	}
	return cfg.username
}
