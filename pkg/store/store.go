// Package store persists the serve-mode run history: every validation and
// dry-run plan the API performs, with its outcome. The memory backend
// serves tests and single-process usage; the Mongo backend backs
// multi-replica serve deployments.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a run record does not exist.
var ErrNotFound = errors.New("run record not found")

// Record kinds.
const (
	KindValidate = "validate"
	KindPlan     = "plan"
)

// Record is one run the serve API performed. The platform remains the
// source of truth for interpreter jobs; records capture what was checked
// or planned locally and how it came out.
type Record struct {
	ID          string    `bson:"_id" json:"id"`
	Kind        string    `bson:"kind" json:"kind"`
	Channel     string    `bson:"channel,omitempty" json:"channel,omitempty"`
	GraphName   string    `bson:"graph_name" json:"graph_name"`
	Status      string    `bson:"status" json:"status"`
	Seed        *int64    `bson:"seed,omitempty" json:"seed,omitempty"`
	SubmittedBy string    `bson:"submitted_by,omitempty" json:"submitted_by,omitempty"`
	SubmittedAt time.Time `bson:"submitted_at" json:"submitted_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// Store is the run history backend. Implementations must be safe for
// concurrent use.
type Store interface {
	// Put inserts or updates a record by ID.
	Put(ctx context.Context, rec *Record) error

	// Get retrieves a record by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records newest first, optionally filtered by channel.
	// A limit of 0 means no limit.
	List(ctx context.Context, channel string, limit int) ([]*Record, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
