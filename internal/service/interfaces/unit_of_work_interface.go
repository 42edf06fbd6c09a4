package interfaces

import "context"

// UnitOfWork runs fn atomically. Every repository write made with the ctx
// handed to fn commits together or not at all.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}
