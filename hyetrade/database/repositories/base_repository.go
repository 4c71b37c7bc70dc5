package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/ellavondegurechaff/hyetrade/hyetrade/config"
	"github.com/uptrace/bun"
)

// BaseRepository provides common repository functionality. Repositories
// hold a bun.IDB so the same code runs against the pool or inside a
// transaction.
type BaseRepository struct {
	db             bun.IDB
	defaultTimeout time.Duration
}

func NewBaseRepository(db bun.IDB) *BaseRepository {
	return &BaseRepository{
		db:             db,
		defaultTimeout: config.DefaultQueryTimeout,
	}
}

// RepositoryError represents a repository-level error
type RepositoryError struct {
	Operation string
	Entity    string
	Err       error
}

func (re *RepositoryError) Error() string {
	return fmt.Sprintf("repository error during %s for %s: %v", re.Operation, re.Entity, re.Err)
}

func (re *RepositoryError) Unwrap() error {
	return re.Err
}

// WithTimeout creates a context with the default query timeout
func (br *BaseRepository) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, br.defaultTimeout)
}

// HandleError wraps database errors with operation context
func (br *BaseRepository) HandleError(operation, entity string, err error) error {
	if err == nil {
		return nil
	}
	return &RepositoryError{
		Operation: operation,
		Entity:    entity,
		Err:       err,
	}
}

// IsRepositoryError checks if an error is a RepositoryError
func IsRepositoryError(err error) bool {
	_, ok := err.(*RepositoryError)
	return ok
}
