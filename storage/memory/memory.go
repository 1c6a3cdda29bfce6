// Package memory provides an in-process implementation of storage.Adapter.
// It enforces the same constraints as the relational schema and hands out
// sequential ids starting at 1, so runs against it are reproducible.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"clientsdb/storage"
)

// Ensure Adapter implements storage.Adapter
var _ storage.Adapter = (*Adapter)(nil)

type phoneRow struct {
	id       int
	clientID int
	number   *string
}

// Adapter keeps clients and phones in memory
type Adapter struct {
	mu     sync.Mutex
	logger *slog.Logger

	schema       bool
	clients      map[int]storage.Client
	phones       []phoneRow // ordered by id
	nextClientID int
	nextPhoneID  int
}

// New returns an empty registry without a schema
func New() *Adapter {
	return &Adapter{logger: slog.Default().With(slog.String("adapter", "memory"))}
}

// Close is a no-op
func (a *Adapter) Close() error {
	return nil
}

// CreateSchema creates the tables if absent
func (a *Adapter) CreateSchema(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.schema {
		return nil
	}
	a.schema = true
	a.clients = make(map[int]storage.Client)
	a.phones = nil
	a.nextClientID = 1
	a.nextPhoneID = 1
	a.logger.Debug("schema ensured")
	return nil
}

// DropSchema discards every table; it fails when there is nothing to drop
func (a *Adapter) DropSchema(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.schema {
		return fmt.Errorf("failed to drop schema: %w", storage.ErrNoSchema)
	}
	a.schema = false
	a.clients = nil
	a.phones = nil
	a.logger.Debug("schema dropped")
	return nil
}

func (a *Adapter) emailTaken(email string, except int) bool {
	for id, c := range a.clients {
		if id != except && c.Email == email {
			return true
		}
	}
	return false
}

// checkClient validates the client columns that are set
func checkClient(firstName, lastName, email *string) error {
	checks := []struct {
		column string
		value  *string
		limit  int
	}{
		{"first_name", firstName, storage.MaxNameLength},
		{"last_name", lastName, storage.MaxNameLength},
		{"email", email, storage.MaxEmailLength},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		if err := storage.CheckLength(c.column, *c.value, c.limit); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) insertPhone(clientID int, number *string) int {
	id := a.nextPhoneID
	a.nextPhoneID++
	a.phones = append(a.phones, phoneRow{id: id, clientID: clientID, number: number})
	return id
}

// AddClient inserts a client and its optional first phone
func (a *Adapter) AddClient(_ context.Context, firstName, lastName, email string, phone *string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.schema {
		return 0, fmt.Errorf("failed to insert client: %w", storage.ErrNoSchema)
	}
	if err := checkClient(&firstName, &lastName, &email); err != nil {
		return 0, fmt.Errorf("failed to insert client: %w", err)
	}
	if a.emailTaken(email, 0) {
		return 0, fmt.Errorf("failed to insert client: %w: %s", storage.ErrDuplicateEmail, email)
	}

	if phone != nil {
		if err := storage.CheckLength("phone", *phone, storage.MaxPhoneLength); err != nil {
			return 0, fmt.Errorf("failed to insert phone: %w", err)
		}
	}

	id := a.nextClientID
	a.nextClientID++
	a.clients[id] = storage.Client{ID: id, FirstName: firstName, LastName: lastName, Email: email}
	if phone != nil {
		a.insertPhone(id, storage.String(*phone))
	}

	a.logger.Debug("client added", slog.Int("client_id", id))
	return id, nil
}

// AddPhone inserts a phone for an existing client
func (a *Adapter) AddPhone(_ context.Context, clientID int, phone string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.schema {
		return 0, fmt.Errorf("failed to insert phone: %w", storage.ErrNoSchema)
	}
	if _, ok := a.clients[clientID]; !ok {
		return 0, fmt.Errorf("failed to insert phone: %w: %d", storage.ErrClientNotFound, clientID)
	}
	if err := storage.CheckLength("phone", phone, storage.MaxPhoneLength); err != nil {
		return 0, fmt.Errorf("failed to insert phone: %w", err)
	}

	id := a.insertPhone(clientID, storage.String(phone))
	a.logger.Debug("phone added", slog.Int("client_id", clientID), slog.Int("phone_id", id))
	return id, nil
}

// ChangeClient applies the requested changes. Unknown clients are left alone,
// matching an UPDATE that touches no rows. A phone change overwrites every
// phone of the client.
func (a *Adapter) ChangeClient(_ context.Context, clientID int, changes storage.ClientChanges) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.schema {
		return fmt.Errorf("failed to update client %d: %w", clientID, storage.ErrNoSchema)
	}

	// Widths are only checked on rows an UPDATE would touch
	client, ok := a.clients[clientID]
	if ok {
		if err := checkClient(changes.FirstName, changes.LastName, changes.Email); err != nil {
			return fmt.Errorf("failed to update client %d: %w", clientID, err)
		}
	}
	if changes.Phone != nil && a.hasPhones(clientID) {
		if err := storage.CheckLength("phone", *changes.Phone, storage.MaxPhoneLength); err != nil {
			return fmt.Errorf("failed to update client %d: %w", clientID, err)
		}
	}

	if ok {
		if changes.Email != nil && a.emailTaken(*changes.Email, clientID) {
			return fmt.Errorf("failed to update client %d: %w: %s", clientID, storage.ErrDuplicateEmail, *changes.Email)
		}
		if changes.FirstName != nil {
			client.FirstName = *changes.FirstName
		}
		if changes.LastName != nil {
			client.LastName = *changes.LastName
		}
		if changes.Email != nil {
			client.Email = *changes.Email
		}
		a.clients[clientID] = client
	}

	if changes.Phone != nil {
		for i := range a.phones {
			if a.phones[i].clientID == clientID {
				a.phones[i].number = storage.String(*changes.Phone)
			}
		}
	}

	a.logger.Debug("client changed", slog.Int("client_id", clientID))
	return nil
}

// DeletePhone removes the phones of a client matching the number exactly
func (a *Adapter) DeletePhone(_ context.Context, clientID int, phone string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.schema {
		return 0, fmt.Errorf("failed to delete phone: %w", storage.ErrNoSchema)
	}

	before := len(a.phones)
	a.phones = slices.DeleteFunc(a.phones, func(p phoneRow) bool {
		return p.clientID == clientID && p.number != nil && *p.number == phone
	})
	n := int64(before - len(a.phones))

	a.logger.Debug("phone deleted", slog.Int("client_id", clientID), slog.Int64("rows", n))
	return n, nil
}

// DeleteClient removes the phones of a client and then the client itself
func (a *Adapter) DeleteClient(_ context.Context, clientID int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.schema {
		return fmt.Errorf("failed to delete client %d: %w", clientID, storage.ErrNoSchema)
	}

	a.phones = slices.DeleteFunc(a.phones, func(p phoneRow) bool {
		return p.clientID == clientID
	})
	delete(a.clients, clientID)

	a.logger.Debug("client deleted", slog.Int("client_id", clientID))
	return nil
}

func (a *Adapter) hasPhones(clientID int) bool {
	return slices.ContainsFunc(a.phones, func(p phoneRow) bool {
		return p.clientID == clientID
	})
}

// lookup returns the lowest client id matching the filter field
func (a *Adapter) lookup(field storage.FilterField, value string) (int, bool) {
	var ids []int
	switch field {
	case storage.FilterPhone:
		for _, p := range a.phones {
			if p.number != nil && *p.number == value {
				ids = append(ids, p.clientID)
			}
		}
	default:
		for id, c := range a.clients {
			var v string
			switch field {
			case storage.FilterFirstName:
				v = c.FirstName
			case storage.FilterLastName:
				v = c.LastName
			case storage.FilterEmail:
				v = c.Email
			}
			if v == value {
				ids = append(ids, id)
			}
		}
	}

	if len(ids) == 0 {
		return 0, false
	}
	return slices.Min(ids), true
}

// FindClient resolves a client from the effective filter and returns one row
// per phone of that client
func (a *Adapter) FindClient(_ context.Context, filter storage.ClientFilter) ([]storage.ClientPhone, error) {
	field, value, ok := filter.Effective()
	if !ok {
		return nil, storage.ErrNoFilter
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.schema {
		return nil, fmt.Errorf("failed to look up client by %s: %w", field, storage.ErrNoSchema)
	}

	clientID, found := a.lookup(field, value)
	if !found {
		return nil, nil
	}
	client, ok := a.clients[clientID]
	if !ok {
		return nil, nil
	}

	row := storage.ClientPhone{
		ClientID:  client.ID,
		FirstName: client.FirstName,
		LastName:  client.LastName,
		Email:     client.Email,
	}

	var result []storage.ClientPhone
	for _, p := range a.phones {
		if p.clientID != clientID {
			continue
		}
		r := row
		r.Phone = p.number
		result = append(result, r)
	}
	if len(result) == 0 {
		result = append(result, row)
	}

	return result, nil
}

// GetClient retrieves a single client by id
func (a *Adapter) GetClient(_ context.Context, clientID int) (*storage.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.schema {
		return nil, fmt.Errorf("failed to get client %d: %w", clientID, storage.ErrNoSchema)
	}

	client, ok := a.clients[clientID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", storage.ErrClientNotFound, clientID)
	}
	return &client, nil
}

// ListPhones retrieves the phones of a client ordered by id
func (a *Adapter) ListPhones(_ context.Context, clientID int) ([]storage.Phone, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.schema {
		return nil, fmt.Errorf("failed to list phones of client %d: %w", clientID, storage.ErrNoSchema)
	}

	var phones []storage.Phone
	for _, p := range a.phones {
		if p.clientID == clientID {
			phones = append(phones, storage.Phone{ID: p.id, ClientID: p.clientID, Number: p.number})
		}
	}
	return phones, nil
}
