// Package migration models the lifecycle of moving a tenant's documents from
// one physical index to another behind the alias pair.
//
// Only the record and its state machine live here; nothing executes migrations.
package migration

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a migration.
type Status string

const (
	Pending    Status = "PENDING"
	InProgress Status = "IN_PROGRESS"
	Verifying  Status = "VERIFYING"
	Cutover    Status = "CUTOVER"
	Completed  Status = "COMPLETED"
	RolledBack Status = "ROLLED_BACK"
	Failed     Status = "FAILED"
)

// ErrInvalidTransition is returned for a status change the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid migration transition")

var transitions = map[Status][]Status{
	Pending:    {InProgress, Failed},
	InProgress: {Verifying, RolledBack, Failed},
	Verifying:  {Cutover, RolledBack, Failed},
	Cutover:    {Completed, RolledBack, Failed},
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	_, ok := transitions[s]
	return !ok
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Migration tracks one index migration for a (tenant, documentType).
type Migration struct {
	ID           string
	TenantID     string
	DocumentType string
	FromStrategy string
	ToStrategy   string
	OldIndex     string
	NewIndex     string
	Status       Status
	StartedAt    time.Time
	CompletedAt  time.Time
	OldCount     int64
	NewCount     int64
	ErrorMessage string
}

// CountDifference is OldCount - NewCount.
func (m *Migration) CountDifference() int64 {
	return m.OldCount - m.NewCount
}

// Advance moves the migration to next, stamping CompletedAt on terminal states.
func (m *Migration) Advance(next Status, now time.Time) error {
	if !CanTransition(m.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, next)
	}
	m.Status = next
	if next.Terminal() {
		m.CompletedAt = now
	}
	return nil
}

// Fail moves the migration to Failed with reason.
func (m *Migration) Fail(reason string, now time.Time) error {
	if err := m.Advance(Failed, now); err != nil {
		return err
	}
	m.ErrorMessage = reason
	return nil
}

// Orchestrator runs migrations. No implementation ships with the gateway.
type Orchestrator interface {
	Start(ctx context.Context, tenantID, documentType, toStrategy string) (*Migration, error)
	Get(ctx context.Context, id string) (*Migration, error)
	Rollback(ctx context.Context, id string) (*Migration, error)
}
