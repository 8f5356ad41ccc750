// Package repositories wraps every persistence operation so that it
// returns (value, error) and never panics. Absence is (nil, nil), distinct
// from failure. Rows read back from storage are re-validated before they
// are returned.
package repositories

import (
	"context"
	"errors"

	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/types"
	"gorm.io/gorm"
)

// Pagination selects one page of a list. It is validated by the service.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Offset is the number of rows skipped before the page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// run executes fn through types.Try and translates storage errors.
func run[T any](op string, fn func() (T, error)) (T, error) {
	return types.Try(op, types.KindDatabase, func() (T, error) {
		v, err := fn()
		if err != nil {
			var zero T
			return zero, storageError(op, err)
		}
		return v, nil
	})
}

func storageError(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &types.Error{Kind: types.KindConflict, Op: op, Message: "resource already exists", Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return types.NewDatabaseError(op, "database operation interrupted", err)
	}
	return types.NewDatabaseError(op, "database operation failed", err)
}

// validateInput rejects a record before it is written.
func validateInput(op string, v interface{}) error {
	if err := models.Validate(v); err != nil {
		return &types.Error{Kind: types.KindValidation, Op: op, Message: models.ValidationMessage(err), Err: err}
	}
	return nil
}

// validateRow checks a record that came back from storage. A mismatch is a
// server fault.
func validateRow(op string, v interface{}) error {
	if err := models.Validate(v); err != nil {
		return types.NewInternalError(op, "stored record failed validation", err)
	}
	return nil
}

// validateRows fails on the first invalid row.
func validateRows[T any](op string, rows []T) error {
	for i := range rows {
		if err := validateRow(op, &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// findOne returns the first matching row, or nil when there is none.
func findOne[T any](ctx context.Context, db *gorm.DB, op string, query string, args ...interface{}) (*T, error) {
	rows, err := run(op, func() ([]T, error) {
		var rows []T
		err := db.WithContext(ctx).Where(query, args...).Limit(1).Find(&rows).Error
		return rows, err
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if err := validateRow(op, &rows[0]); err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// insert validates, writes, and re-validates a record. An insert that
// affects nothing is a logic error.
func insert[T any](ctx context.Context, db *gorm.DB, op string, record *T) (*T, error) {
	if err := validateInput(op, record); err != nil {
		return nil, err
	}
	affected, err := run(op, func() (int64, error) {
		res := db.WithContext(ctx).Create(record)
		return res.RowsAffected, res.Error
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, types.NewInternalError(op, "insert returned no rows", nil)
	}
	if err := validateRow(op, record); err != nil {
		return nil, err
	}
	return record, nil
}

// update applies column updates to the row with the given id and reads it
// back. Zero affected rows is a logic error, not absence.
func update[T any](ctx context.Context, db *gorm.DB, op string, id string, updates map[string]interface{}) (*T, error) {
	if len(updates) == 0 {
		return nil, types.NewValidationError(op, "no fields to update")
	}
	affected, err := run(op, func() (int64, error) {
		var model T
		res := db.WithContext(ctx).Model(&model).Where("id = ?", id).Updates(updates)
		return res.RowsAffected, res.Error
	})
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, types.NewInternalError(op, "update returned no rows", nil)
	}

	row, err := findOne[T](ctx, db, op, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, types.NewInternalError(op, "updated row disappeared", nil)
	}
	return row, nil
}

// remove deletes the row with the given id. Deleting nothing is absence.
func remove[T any](ctx context.Context, db *gorm.DB, op string, id string) error {
	affected, err := run(op, func() (int64, error) {
		var model T
		res := db.WithContext(ctx).Where("id = ?", id).Delete(&model)
		return res.RowsAffected, res.Error
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return types.NewNotFoundError(op, "record not found")
	}
	return nil
}
