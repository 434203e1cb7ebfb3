package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/terraincognita07/telecare/internal/config"
	"github.com/terraincognita07/telecare/internal/db"
	"github.com/terraincognita07/telecare/internal/metrics"
	"github.com/terraincognita07/telecare/internal/services"
	"go.uber.org/zap"
)

// RunResetPasswordCommand issues a temporary password for the account with the
// given email. The user must change it on next login.
func RunResetPasswordCommand(ctx context.Context, cfg config.DatabaseConfig, email string, out io.Writer, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}

	database, err := db.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("database init failed: %w", err)
	}
	defer func() {
		if closeErr := db.Close(database); closeErr != nil {
			log.Warn("close database", zap.Error(closeErr))
		}
	}()

	repos := db.NewRepositories(database)
	collector := metrics.NewCollector("telecare_cli")
	audit := services.NewAuditService(repos.Audit, collector.AuditEntriesTotal, log)
	users := services.NewUserService(repos.Users, audit)

	temporaryPassword, err := users.ResetPasswordByEmail(ctx, email)
	if err != nil {
		var validation *services.ValidationError
		switch {
		case errors.As(err, &validation):
			return fmt.Errorf("invalid email address %q", email)
		case errors.Is(err, services.ErrNotFound):
			return fmt.Errorf("user %s not found", email)
		default:
			return fmt.Errorf("reset password: %w", err)
		}
	}

	fmt.Fprintln(out, "Password reset successful")
	fmt.Fprintf(out, "Temporary password: %s\n", temporaryPassword)
	fmt.Fprintln(out, "User must change password on next login.")
	return nil
}
