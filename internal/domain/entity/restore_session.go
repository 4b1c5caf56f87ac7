package entity

import (
	"time"

	"github.com/google/uuid"
)

type RestoreOutcome string

const (
	RestoreOutcomeNone      RestoreOutcome = "none"
	RestoreOutcomeSucceeded RestoreOutcome = "succeeded"
	RestoreOutcomeFailed    RestoreOutcome = "failed"
)

// RestoreSession aggregates one restore-purchases cycle
type RestoreSession struct {
	ID           uuid.UUID
	Transactions []*Transaction
	Outcome      RestoreOutcome
	Err          error
	StartedAt    time.Time
	ClosedAt     *time.Time
}

// NewRestoreSession opens a new restore session
func NewRestoreSession() *RestoreSession {
	return &RestoreSession{
		ID:        uuid.New(),
		Outcome:   RestoreOutcomeNone,
		StartedAt: time.Now(),
	}
}

// IsOpen returns true until the session is completed or failed
func (s *RestoreSession) IsOpen() bool {
	return s.ClosedAt == nil
}

// Append records a restored transaction in arrival order
func (s *RestoreSession) Append(tx *Transaction) {
	s.Transactions = append(s.Transactions, tx)
}

// Complete closes the session successfully
func (s *RestoreSession) Complete() {
	now := time.Now()
	s.Outcome = RestoreOutcomeSucceeded
	s.ClosedAt = &now
}

// Fail closes the session with the platform error
func (s *RestoreSession) Fail(err error) {
	now := time.Now()
	s.Outcome = RestoreOutcomeFailed
	s.Err = err
	s.ClosedAt = &now
}

// Clone returns a copy safe to hand outside the owning queue
func (s *RestoreSession) Clone() *RestoreSession {
	c := *s
	c.Transactions = make([]*Transaction, len(s.Transactions))
	copy(c.Transactions, s.Transactions)
	return &c
}
