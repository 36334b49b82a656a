package repository

import (
	"context"

	"github.com/AngelAdrianVR/WashApp/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	ListActiveEmployees(ctx context.Context) ([]models.User, error)
	LockEmployee(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error)
	UpdateContact(ctx context.Context, id uint, name, phone string) error
	Upsert(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListActiveEmployees(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleEmployee, true).
		Order("id ASC").
		Find(&users).Error
	return users, err
}

// LockEmployee takes a row lock on an active employee for the rest of tx.
// Every writer that assigns work to the employee goes through this lock, so
// the employee's bookings read afterwards cannot change until tx ends.
func (r *userRepository) LockEmployee(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("role = ? AND is_active = ?", models.RoleEmployee, true).
		First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateContact(ctx context.Context, id uint, name, phone string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"name": name, "phone_number": phone}).Error
}

func (r *userRepository) Upsert(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "phone_number", "role", "is_active", "updated_at"}),
	}).Create(user).Error
}
