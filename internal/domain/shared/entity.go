package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps every stored record has.
// Timestamps come from the sync run, never from the wall clock.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity assigns a fresh id to a record created at createdAt and
// last written at updatedAt.
func NewBaseEntity(createdAt, updatedAt time.Time) BaseEntity {
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}
