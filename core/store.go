package core

import "context"

// Store is the persistence contract shared by the tenant entities.
// Reads, updates and deletes are restricted to the rows the Scope allows; rows outside it are ErrNotFound.
// Unique violations are reported as *ConflictError.
type Store[T any] interface {
	List(ctx context.Context, scope Scope, filter QueryFilter, ordering []DBOrdering, exec ...DBExecutor) ([]T, error)
	Count(ctx context.Context, scope Scope, filter QueryFilter, exec ...DBExecutor) (int, error)
	Get(ctx context.Context, scope Scope, id string, exec ...DBExecutor) (T, error)
	Insert(ctx context.Context, row T, exec ...DBExecutor) (T, error)
	Update(ctx context.Context, scope Scope, row T, exec ...DBExecutor) (T, error)
	Delete(ctx context.Context, scope Scope, id string, exec ...DBExecutor) error
}

