// Package storage defines the persistence interface for topics and notes.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/wadai/internal/models"
)

var (
	// ErrNotFound is returned when a topic or note does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a record whose id is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// Storage defines topic and note persistence. Writes always carry the full record.
type Storage interface {
	// Topic operations
	ListTopics(ctx context.Context) ([]*models.Topic, error)
	GetTopic(ctx context.Context, id string) (*models.Topic, error)
	CreateTopic(ctx context.Context, topic *models.Topic) error
	UpdateTopic(ctx context.Context, id string, topic *models.Topic) error

	// Note operations
	CreateInput(ctx context.Context, input *models.Input) error
	GetInput(ctx context.Context, id string) (*models.Input, error)
	ListInputs(ctx context.Context, offset, limit int) ([]*models.Input, error)

	// Stats
	CountTopics(ctx context.Context) (int64, error)
	CountInputs(ctx context.Context) (int64, error)

	Close() error
}
