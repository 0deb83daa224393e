package directory

import "time"

// Employee is a row in the organization directory. The chat core only
// consumes this table; administration of employees lives elsewhere.
type Employee struct {
	MemberID   string    `gorm:"primaryKey;type:text" json:"member_id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Department string    `gorm:"size:100" json:"department"`
	Position   string    `gorm:"size:100" json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName returns the table name for the Employee entity.
func (Employee) TableName() string {
	return "employees"
}
