package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/focustrack/focustrack/internal/models"
	"github.com/focustrack/focustrack/internal/storage"
)

// Repository stores whole-file buffers and error logs in sqlite.
// It satisfies storage.Gateway, so it can replace the file backend.
type Repository struct {
	db *DB
}

var _ storage.Gateway = (*Repository)(nil)

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// ReadFile returns the buffer stored under key, or storage.ErrNotFound.
func (r *Repository) ReadFile(ctx context.Context, key string) ([]byte, error) {
	var blob models.Blob
	result := r.db.WithContext(ctx).Where("blob_key = ?", key).First(&blob)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(storage.ErrNotFound, "%s", key)
		}
		return nil, errors.Wrapf(result.Error, "failed to read blob %s", key)
	}
	return blob.Data, nil
}

// WriteFile replaces the buffer stored under key.
func (r *Repository) WriteFile(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return errors.Wrap(storage.ErrInvalidKey, "empty key")
	}
	if data == nil {
		data = []byte{}
	}

	blob := models.Blob{Key: key, Data: data, Size: len(data)}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blob_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "size", "updated_at"}),
	}).Create(&blob)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to write blob %s", key)
	}
	return nil
}

// Keys lists stored keys, most recently updated first.
func (r *Repository) Keys(ctx context.Context) ([]models.Blob, error) {
	var blobs []models.Blob
	result := r.db.WithContext(ctx).Select("blob_key", "size", "created_at", "updated_at").
		Order("updated_at DESC").Find(&blobs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list blobs")
	}
	return blobs, nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// StoreError records err for component with the current time.
func (r *Repository) StoreError(component string, err error) error {
	return r.CreateErrorLog(&models.ErrorLog{
		Timestamp: time.Now(),
		Component: component,
		ErrorMsg:  err.Error(),
	})
}

// GetErrorsSince returns error logs recorded at or after since, oldest first.
func (r *Repository) GetErrorsSince(since time.Time) ([]models.ErrorLog, error) {
	var logs []models.ErrorLog
	result := r.db.Where("timestamp >= ?", since).Order("timestamp ASC").Find(&logs)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query error logs")
	}
	return logs, nil
}

// DeleteOldErrors deletes error logs older than before (soft delete)
func (r *Repository) DeleteOldErrors(before time.Time) (int64, error) {
	result := r.db.Where("timestamp < ?", before).Delete(&models.ErrorLog{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete old error logs")
	}
	return result.RowsAffected, nil
}
