package service

import (
	"errors"

	"retailer-service/internal/apperror"

	"gorm.io/gorm"
)

// fromDB classifies a gorm error raised while working on entity.
// The connection is opened with TranslateError so driver constraint errors arrive as gorm sentinels.
func fromDB(err error, entity string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound(entity + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Conflict(entity+" already exists", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperror.Wrap(apperror.KindValidation, err, "%s references a missing row or is still referenced", entity)
	default:
		return apperror.Internal(err, "%s query failed", entity)
	}
}

// MessageResponse is the confirmation body returned by write operations without an entity
type MessageResponse struct {
	Message string `json:"message"`
}
