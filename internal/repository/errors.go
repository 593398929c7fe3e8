package repository

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
)

// query is any bob query that can render itself.
type query interface {
	Build(ctx context.Context) (string, []any, error)
}
