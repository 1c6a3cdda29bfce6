// Package storage defines the client registry contract shared by every
// backing store.
package storage

import "context"

// Adapter describes the storage interface for client and phone management
type Adapter interface {
	// CreateSchema ensures the client and phone tables exist. Calling it on an
	// existing schema is a no-op.
	CreateSchema(ctx context.Context) error
	// DropSchema drops the phone table and then the client table.
	DropSchema(ctx context.Context) error

	// AddClient inserts a client and, when phone is non-nil, its first phone
	// number in the same transaction. It returns the generated client id.
	AddClient(ctx context.Context, firstName, lastName, email string, phone *string) (int, error)
	AddPhone(ctx context.Context, clientID int, phone string) (int, error)
	ChangeClient(ctx context.Context, clientID int, changes ClientChanges) error
	DeletePhone(ctx context.Context, clientID int, phone string) (int64, error)
	DeleteClient(ctx context.Context, clientID int) error
	FindClient(ctx context.Context, filter ClientFilter) ([]ClientPhone, error)

	GetClient(ctx context.Context, clientID int) (*Client, error)
	ListPhones(ctx context.Context, clientID int) ([]Phone, error)

	// Close releases the underlying connection.
	Close() error
}
