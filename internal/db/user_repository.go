package db

import (
	"context"
	"fmt"

	"account_system/internal/domain"

	"gorm.io/gorm"
)

// UserRepository implements domain.UserRepository using GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindUserByID retrieves a user by primary key.
func (r *UserRepository) FindUserByID(ctx context.Context, id int64) (*domain.AccountUser, error) {
	var user domain.AccountUser
	err := conn(ctx, r.db).Where("id = ?", id).Take(&user).Error
	return found(&user, err, "user")
}

// LockUserByID retrieves a user and locks its row. MUST be called within a transaction.
func (r *UserRepository) LockUserByID(ctx context.Context, id int64) (*domain.AccountUser, error) {
	var user domain.AccountUser
	err := forUpdate(conn(ctx, r.db)).Where("id = ?", id).Take(&user).Error
	return found(&user, err, "user")
}

// FindUserByName retrieves a user by login name.
func (r *UserRepository) FindUserByName(ctx context.Context, name string) (*domain.AccountUser, error) {
	var user domain.AccountUser
	err := conn(ctx, r.db).Where("name = ?", name).Take(&user).Error
	return found(&user, err, "user")
}

// CreateUser inserts a new user. A taken name yields domain.ErrWriteConflict.
func (r *UserRepository) CreateUser(ctx context.Context, user *domain.AccountUser) error {
	if err := conn(ctx, r.db).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translateError(err))
	}
	return nil
}
