package domain

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a clinic patient record. A patient may or may not have a
// portal account; UserID is set once they register for one.
type Patient struct {
	ID          uuid.UUID
	UserID      *uuid.UUID
	Name        string
	Phone       string
	Email       *string
	DateOfBirth *time.Time
	Address     *string
	Notes       *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
