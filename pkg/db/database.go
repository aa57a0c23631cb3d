package db

import (
	"errors"
	"time"

	"github.com/whoiswatch/whoiswatch/pkg/model"
)

// ErrDomainNotFound is returned by operations that require the domain to
// already be tracked.
var ErrDomainNotFound = errors.New("domain not found in database")

// StateTime identifies one recorded state by id and check time.
type StateTime struct {
	ID        uint
	CheckTime time.Time
}

type Database interface {
	// GetDomain returns the zero-value Domain when the name is unknown.
	GetDomain(name string) (Domain, error)
	CreateDomain(name string, doDNS bool) (Domain, error)
	SetActive(name string, active bool) error

	// GetCurrentState loads the state Domain.LastStateID points at, or nil
	// when the domain is unknown or has no recorded state yet.
	GetCurrentState(name string) (*State, error)

	// RecordCheck diffs rec against the domain's current state and, when
	// they differ, appends a new state plus its changed-field rows. The
	// domain's cur_raw_text, last_checked and do_dns are refreshed either
	// way. Everything commits as one transaction. Reports whether a new
	// state was stored, and the per-field changes attributed to it.
	RecordCheck(name, rawText string, rec model.CanonicalRecord, doDNS bool, now time.Time) (bool, []model.FieldChange, error)

	// PurgeDomain removes the domain and every state and changed-field row
	// belonging to it, as one transaction.
	PurgeDomain(name string) error

	ListDomains() ([]Domain, error)
	ListStateTimes(name string) ([]StateTime, error)
	ChangesForState(stateID uint) ([]ChangedField, error)

	GetParam(key string) (string, error)
	SetParam(key, value string) error

	// Wipe drops all tables so the next connect starts fresh.
	Wipe() error
}
