// Package demo runs the fixed demonstration sequence against a registry.
package demo

import (
	"context"
	"fmt"
	"log/slog"

	"clientsdb/storage"
)

// BlockPrinter receives the rows of each lookup
type BlockPrinter interface {
	PrintBlock(rows []storage.ClientPhone) error
}

type newClient struct {
	firstName, lastName, email string
	phone                      *string
}

var clients = []newClient{
	{"Nick", "Nlte", "n.nolte@gmail.com", storage.String("13102796312")},
	{"Robin", "Williams", "r.will@outlook.com", nil},
	{"Gary", "Oldman", "g.oldman@mail.ru", nil},
	{"Toy", "Jones", "t.jones@yandex.ru", storage.String("79991237799")},
	{"Peter", "Falk", "peter.falk@rambler.ru", nil},
}

// Run ensures the schema exists and then inserts, changes, deletes and looks
// up the demonstration clients, printing every lookup. The first store error
// stops the sequence.
func Run(ctx context.Context, registry storage.Adapter, printer BlockPrinter) error {
	if err := registry.CreateSchema(ctx); err != nil {
		return err
	}

	ids := make([]int, len(clients))
	for i, c := range clients {
		id, err := registry.AddClient(ctx, c.firstName, c.lastName, c.email, c.phone)
		if err != nil {
			return fmt.Errorf("adding %s %s: %w", c.firstName, c.lastName, err)
		}
		ids[i] = id
	}
	nick, robin, gary, toy, peter := ids[0], ids[1], ids[2], ids[3], ids[4]

	extraPhones := []struct {
		clientID int
		phone    string
	}{
		{nick, "13108541111"},
		{nick, "13105691199"},
		{gary, "13108503770"},
	}
	for _, p := range extraPhones {
		if _, err := registry.AddPhone(ctx, p.clientID, p.phone); err != nil {
			return fmt.Errorf("adding phone %s: %w", p.phone, err)
		}
	}

	changes := []struct {
		clientID int
		changes  storage.ClientChanges
	}{
		{toy, storage.ClientChanges{FirstName: storage.String("Toby")}},
		{nick, storage.ClientChanges{LastName: storage.String("Nolte")}},
		{robin, storage.ClientChanges{Email: storage.String("r.williams@outlook.com")}},
		{toy, storage.ClientChanges{Phone: storage.String("79991117799")}},
	}
	for _, c := range changes {
		if err := registry.ChangeClient(ctx, c.clientID, c.changes); err != nil {
			return fmt.Errorf("changing client %d: %w", c.clientID, err)
		}
	}

	if _, err := registry.DeletePhone(ctx, nick, "13105691199"); err != nil {
		return fmt.Errorf("deleting phone: %w", err)
	}
	if err := registry.DeleteClient(ctx, peter); err != nil {
		return fmt.Errorf("deleting client %d: %w", peter, err)
	}

	lookups := []storage.ClientFilter{
		{FirstName: storage.String("Toby")},
		{LastName: storage.String("Nolte")},
		{Email: storage.String("r.williams@outlook.com")},
		{Phone: storage.String("13108503770")},
	}
	for _, filter := range lookups {
		rows, err := registry.FindClient(ctx, filter)
		if err != nil {
			return fmt.Errorf("finding client: %w", err)
		}
		if err := printer.PrintBlock(rows); err != nil {
			return err
		}
	}

	slog.Info("demo finished", slog.Int("lookups", len(lookups)))
	return nil
}
