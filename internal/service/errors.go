package service

import (
	"errors"

	"taskDesk/internal/apperr"
	repo "taskDesk/internal/repository"

	"github.com/google/uuid"
)

// storageError turns a repository failure into a business error.
func storageError(err error, id uuid.UUID) error {
	var busErr *apperr.BusinessError
	switch {
	case errors.As(err, &busErr):
		return err
	case errors.Is(err, repo.ErrNotFound):
		return apperr.NewNotFound("task", id.String())
	case errors.Is(err, repo.ErrVersionConflict):
		return apperr.Wrap(apperr.CodeVersionConflict, "task was changed by someone else, reload and retry", err,
			apperr.ToDetail("id", id.String()),
		)
	default:
		return apperr.NewServiceUnavailable("task store", err)
	}
}
