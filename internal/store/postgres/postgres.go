// Package postgres implements the tenant record store on PostgreSQL.
//
// The status transition guard is enforced in SQL: UpdateStatus issues a
// single UPDATE whose WHERE clause restricts the current status to the
// set of statuses the graph allows as sources for the target. Zero rows
// affected means either the record is gone or a concurrent writer moved
// it first; a follow-up read distinguishes the two.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bluefairy/tenantd/internal/store"
)

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// Store is the PostgreSQL-backed tenant record store.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open connects to the database, runs migrations and returns the store.
func Open(dsn string, opts Options) (*Store, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&store.TenantRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing gorm connection. Used by tests.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new record.
func (s *Store) Create(ctx context.Context, record *store.TenantRecord) error {
	err := s.db.WithContext(ctx).Create(record).Error
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Owner and slug both carry unique indexes; resolve which one
		// tripped so the caller gets the precise sentinel.
		var count int64
		if s.db.WithContext(ctx).Model(&store.TenantRecord{}).
			Where("owner_ref = ?", record.OwnerRef).Count(&count); count > 0 {
			return store.ErrDuplicateOwner
		}
		return store.ErrDuplicateSlug
	}
	return fmt.Errorf("failed to create tenant record: %w", err)
}

// Get returns the record by id.
func (s *Store) Get(ctx context.Context, id string) (*store.TenantRecord, error) {
	return s.getWhere(ctx, "id = ?", id)
}

// GetByOwner returns the record owned by ownerRef.
func (s *Store) GetByOwner(ctx context.Context, ownerRef string) (*store.TenantRecord, error) {
	return s.getWhere(ctx, "owner_ref = ?", ownerRef)
}

// GetBySlug returns the record with the given slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*store.TenantRecord, error) {
	return s.getWhere(ctx, "slug = ?", slug)
}

func (s *Store) getWhere(ctx context.Context, query string, arg any) (*store.TenantRecord, error) {
	var record store.TenantRecord
	err := s.db.WithContext(ctx).Where(query, arg).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tenant record: %w", err)
	}
	return &record, nil
}

// UpdateStatus applies a guarded status transition. The guard and the
// write happen in one statement, so concurrent transitions serialize on
// the row without an explicit transaction.
func (s *Store) UpdateStatus(ctx context.Context, id string, next store.Status, fields store.Fields) error {
	sources := store.TransitionSources(next)
	if len(sources) == 0 {
		return &store.InvalidTransitionError{ID: id, To: next}
	}

	updates := fieldUpdates(fields)
	updates["status"] = next
	updates["updated_at"] = time.Now()

	res := s.db.WithContext(ctx).Model(&store.TenantRecord{}).
		Where("id = ? AND status IN ?", id, sources).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update tenant status: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return &store.InvalidTransitionError{ID: id, From: current.Status, To: next}
}

// UpdateFields applies field changes without touching status.
func (s *Store) UpdateFields(ctx context.Context, id string, fields store.Fields) error {
	updates := fieldUpdates(fields)
	updates["updated_at"] = time.Now()

	res := s.db.WithContext(ctx).Model(&store.TenantRecord{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update tenant record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// List returns all records matching the filter.
func (s *Store) List(ctx context.Context, filter store.Filter) ([]*store.TenantRecord, error) {
	q := s.db.WithContext(ctx).Model(&store.TenantRecord{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.UpdatedBefore.IsZero() {
		q = q.Where("updated_at < ?", filter.UpdatedBefore)
	}

	var records []*store.TenantRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list tenant records: %w", err)
	}
	return records, nil
}

func fieldUpdates(fields store.Fields) map[string]any {
	updates := make(map[string]any)
	if fields.VolumeID != nil {
		updates["volume_id"] = *fields.VolumeID
	}
	if fields.ComputeID != nil {
		updates["compute_id"] = *fields.ComputeID
	}
	if fields.Endpoint != nil {
		updates["endpoint"] = *fields.Endpoint
	}
	if fields.AuthToken != nil {
		updates["auth_token"] = *fields.AuthToken
	}
	if fields.ClearBackend {
		updates["volume_id"] = ""
		updates["compute_id"] = ""
		updates["endpoint"] = ""
	}
	return updates
}
