package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promptpilot/server/internal/domain"
	"github.com/promptpilot/server/internal/infra"
	"github.com/promptpilot/server/internal/sqlinline"
)

func main() {
	var (
		idFlag     string
		emailFlag  string
		roleFlag   string
		revokeFlag bool
	)

	flag.StringVar(&idFlag, "id", "", "user ID to modify (UUID)")
	flag.StringVar(&emailFlag, "email", "", "user email to modify")
	flag.StringVar(&roleFlag, "role", "admin", "role to grant or revoke (user, admin, superadmin)")
	flag.BoolVar(&revokeFlag, "revoke", false, "revoke the role instead of granting it")
	flag.Parse()

	userID := strings.TrimSpace(idFlag)
	email := strings.TrimSpace(emailFlag)
	rawRole := strings.TrimSpace(strings.ToLower(roleFlag))

	if userID == "" && email == "" {
		exitWithError(errors.New("either -id or -email must be provided"))
	}
	role, ok := domain.ParseRole(rawRole)
	if !ok {
		exitWithError(fmt.Errorf("unsupported role %q", rawRole))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "grantrole").Logger()
	runner := infra.NewSQLRunner(pool, logger)

	if userID == "" {
		lookupCtx, cancelLookup := context.WithTimeout(context.Background(), 5*time.Second)
		row := runner.QueryRow(lookupCtx, sqlinline.QSelectUserIDByEmail, email)
		scanErr := row.Scan(&userID)
		cancelLookup()
		if scanErr != nil {
			exitWithError(fmt.Errorf("failed to load user by email: %w", scanErr))
		}
	}

	execCtx, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()

	if revokeFlag {
		tag, err := runner.Exec(execCtx, sqlinline.QRevokeUserRole, userID, string(role))
		if err != nil {
			exitWithError(fmt.Errorf("failed to revoke role: %w", err))
		}
		if tag.RowsAffected() == 0 {
			fmt.Printf("User %s did not hold role %s\n", userID, role)
			return
		}
		fmt.Printf("Revoked role %s from user %s\n", role, userID)
		return
	}

	if _, err := runner.Exec(execCtx, sqlinline.QGrantUserRole, userID, string(role)); err != nil {
		exitWithError(fmt.Errorf("failed to grant role: %w", err))
	}
	fmt.Printf("Granted role %s to user %s\n", role, userID)
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
