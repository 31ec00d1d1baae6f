package registration

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// LinkSource resolves the community link of a district. found is false when
// no link is configured.
type LinkSource interface {
	CommunityLink(ctx context.Context, district string) (link string, found bool, err error)
}

// Store persists registrations. Create returns an error wrapping
// ErrConflict when the phone is already taken.
type Store interface {
	LinkSource
	PhoneExists(ctx context.Context, phone string) (bool, error)
	Create(ctx context.Context, r *Registration) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) PhoneExists(ctx context.Context, phone string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&Registration{}).
		Where("phone = ?", phone).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("%w: checking phone: %w", ErrStorage, err)
	}
	return n > 0, nil
}

func (s *GormStore) Create(ctx context.Context, r *Registration) error {
	err := s.db.WithContext(ctx).Create(r).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return fmt.Errorf("%w: inserting registration: %w", ErrStorage, err)
}

func (s *GormStore) CommunityLink(ctx context.Context, district string) (string, bool, error) {
	var cl CommunityLink
	err := s.db.WithContext(ctx).Where("district = ?", district).First(&cl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: loading community link: %w", ErrStorage, err)
	}
	return cl.Link, true, nil
}

// Ping checks the connection pool, for health checks.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
