package directory

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(&Employee{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func TestRepository_FindByMemberID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	if err := repo.Upsert(&Employee{
		MemberID:   "emp-1",
		Name:       "Kim Jiyoung",
		Department: "Engineering",
		Position:   "Manager",
	}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	t.Run("existing member", func(t *testing.T) {
		employee, err := repo.FindByMemberID("emp-1")
		if err != nil {
			t.Fatalf("FindByMemberID() error = %v", err)
		}
		if employee.Name != "Kim Jiyoung" {
			t.Errorf("expected name %q, got %q", "Kim Jiyoung", employee.Name)
		}
		if employee.Department != "Engineering" {
			t.Errorf("expected department %q, got %q", "Engineering", employee.Department)
		}
	})

	t.Run("unknown member", func(t *testing.T) {
		_, err := repo.FindByMemberID("nobody")
		if !errors.Is(err, ErrMemberNotFound) {
			t.Errorf("expected ErrMemberNotFound, got %v", err)
		}
	})
}

func TestRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	employee := &Employee{MemberID: "emp-2", Name: "Lee Minho"}
	if err := repo.Upsert(employee); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// Upserting the same member updates in place.
	employee.Department = "Sales"
	if err := repo.Upsert(employee); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}

	n, err := repo.Count()
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 employee after upsert, got %d", n)
	}

	found, err := repo.FindByMemberID("emp-2")
	if err != nil {
		t.Fatalf("FindByMemberID() error = %v", err)
	}
	if found.Department != "Sales" {
		t.Errorf("expected department %q, got %q", "Sales", found.Department)
	}
}

func TestCachedLookup_NoRedisFallsThrough(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)

	if err := repo.Upsert(&Employee{MemberID: "emp-3", Name: "Park Sooyoung"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	// A nil client means every lookup goes straight to the database.
	lookup := newCachedLookup(repo, nil)

	employee, err := lookup.Lookup(context.Background(), "emp-3")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if employee.Name != "Park Sooyoung" {
		t.Errorf("expected name %q, got %q", "Park Sooyoung", employee.Name)
	}

	if _, err := lookup.Lookup(context.Background(), "ghost"); !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got %v", err)
	}
}
