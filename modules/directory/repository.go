package directory

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrMemberNotFound is returned when an identity does not resolve in the
// directory.
var ErrMemberNotFound = errors.New("member not found in directory")

// Repository provides access to the employee directory table.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new directory repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByMemberID retrieves an employee by their member identity.
func (r *Repository) FindByMemberID(memberID string) (*Employee, error) {
	var employee Employee
	if err := r.db.First(&employee, "member_id = ?", memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	return &employee, nil
}

// Upsert creates or updates an employee record. Used by bootstrap seeding
// and the directory sync endpoint.
func (r *Repository) Upsert(employee *Employee) error {
	if err := r.db.Save(employee).Error; err != nil {
		return fmt.Errorf("failed to upsert employee: %w", err)
	}
	return nil
}

// Count returns the number of directory entries.
func (r *Repository) Count() (int64, error) {
	var n int64
	if err := r.db.Model(&Employee{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count employees: %w", err)
	}
	return n, nil
}
