package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/arklim/signup-iam/internal/core/domain"
	applog "github.com/arklim/signup-iam/internal/infra/logger"
	"github.com/arklim/signup-iam/internal/repository"
)

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// translateConflict maps a unique violation to the domain error of the offending column.
// usernameErr is returned for username collisions since its meaning depends on the table.
func translateConflict(err error, usernameErr error) (error, bool) {
	var conflict *repository.ConflictError
	if !errors.As(err, &conflict) {
		return nil, false
	}
	switch conflict.Column {
	case repository.ColumnEmail:
		return domain.ErrEmailAlreadyUsed, true
	case repository.ColumnPhone:
		return domain.ErrPhoneAlreadyUsed, true
	default:
		return usernameErr, true
	}
}

// publishBestEffort runs publish and logs a failure; events never fail the operation that produced them.
func publishBestEffort(ctx context.Context, logger *zap.Logger, event string, publish func() error) {
	if err := publish(); err != nil {
		logger.Warn("publish event failed",
			append(applog.ContextFields(ctx), zap.String("event", event), zap.Error(err))...)
	}
}
