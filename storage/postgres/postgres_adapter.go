package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // Registers the "pgx" driver with database/sql
	_ "github.com/lib/pq"              // Imported as a side-effect to register drivers with database/sql package

	"clientsdb/storage"
)

const (
	sslModeKey  = "sslmode"
	passwordKey = "password"
	hostKey     = "host"
	portKey     = "port"
	userKey     = "user"
	dbNameKey   = "dbname"
	driverKey   = "driver"
)

// Supported database/sql driver names
const (
	DriverPQ  = "postgres"
	DriverPgx = "pgx"
)

// Ensure PgAdapter implements storage.Adapter
var _ storage.Adapter = (*PgAdapter)(nil)

// PgAdapter represents the postgres storage adapter
type PgAdapter struct {
	driver string
	conn   *sql.DB
	logger *slog.Logger
}

// PgOptionFunc describes functions which add optional connection variables to Postgres
type PgOptionFunc func(options map[string]string)

// WithPassword is an optional function to provide a password to connect to the database with; default is empty
func WithPassword(password string) PgOptionFunc {
	return func(options map[string]string) {
		if password != "" {
			options[passwordKey] = password
		}
	}
}

// WithSslOn is an optional function to make ssl enabled; default is disabled
func WithSslOn() PgOptionFunc {
	return WithSSLMode("require")
}

// WithSSLMode sets an explicit sslmode connection option
func WithSSLMode(mode string) PgOptionFunc {
	return func(options map[string]string) {
		if mode != "" {
			options[sslModeKey] = mode
		}
	}
}

// WithDriver selects the database/sql driver; default is lib/pq ("postgres")
func WithDriver(driver string) PgOptionFunc {
	return func(options map[string]string) {
		if driver != "" {
			options[driverKey] = driver
		}
	}
}

// applyOpts iterates over the options provided, adds them to the connection variables map, and returns the options
// in string format as optKey=optValue, sorted by key
func applyOpts(connVars map[string]string, pgOpts []PgOptionFunc) string {
	for _, pgOpt := range pgOpts {
		pgOpt(connVars)
	}

	parts := make([]string, 0, len(connVars))
	for _, key := range slices.Sorted(maps.Keys(connVars)) {
		if key == driverKey { // Driver is not a connection option; leave in map for later use
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%s", key, quoteValue(connVars[key])))
	}

	return strings.Join(parts, " ")
}

// quoteValue quotes a connection value when it is empty or contains
// whitespace, quotes or backslashes
func quoteValue(val string) string {
	if val != "" && !strings.ContainsAny(val, " \t\n'\\") {
		return val
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(val) + "'"
}

// NewAdapter instantiates a new postgres PgAdapter and verifies the connection.
// The schema is not touched; call CreateSchema to ensure the tables exist.
func NewAdapter(ctx context.Context, host string, port string, user string, dbName string, pgOpts ...PgOptionFunc) (*PgAdapter, error) {
	connVars := map[string]string{hostKey: host, portKey: port, dbNameKey: dbName, userKey: user, sslModeKey: "disable", driverKey: DriverPQ}
	psqlInfo := applyOpts(connVars, pgOpts)
	driver := connVars[driverKey]

	db, err := sql.Open(driver, psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	// One connection for the lifetime of the process
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	adapter := newAdapter(db, driver)
	adapter.logger.Debug("connected to postgres", slog.String("host", host), slog.String("database", dbName))

	return adapter, nil
}

func newAdapter(db *sql.DB, driver string) *PgAdapter {
	return &PgAdapter{
		driver: driver,
		conn:   db,
		logger: slog.Default().With(slog.String("adapter", "postgres"), slog.String("driver", driver)),
	}
}

// Close closes the database connection
func (a PgAdapter) Close() error {
	return a.conn.Close()
}

// withTx runs fn inside a transaction, committing when fn succeeds
func (a PgAdapter) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := a.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CreateSchema creates the client and phone tables if they do not exist yet
func (a PgAdapter) CreateSchema(ctx context.Context) error {
	return a.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{createClientTableSQL, createPhoneTableSQL} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create schema: %w", err)
			}
		}
		a.logger.Debug("schema ensured")
		return nil
	})
}

// DropSchema drops the phone table, then the client table; error if either is missing
func (a PgAdapter) DropSchema(ctx context.Context) error {
	return a.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{dropPhoneTableSQL, dropClientTableSQL} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to drop schema: %w", err)
			}
		}
		a.logger.Debug("schema dropped")
		return nil
	})
}

// AddClient inserts a client and its optional first phone, returning the id of the client
func (a PgAdapter) AddClient(ctx context.Context, firstName, lastName, email string, phone *string) (int, error) {
	var clientID int
	err := a.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, insertClientSQL, firstName, lastName, email).Scan(&clientID)
		if err != nil {
			return fmt.Errorf("failed to insert client: %w", classify(err))
		}

		if phone != nil {
			var phoneID int
			if err := tx.QueryRowContext(ctx, insertPhoneSQL, clientID, *phone).Scan(&phoneID); err != nil {
				return fmt.Errorf("failed to insert phone: %w", classify(err))
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	a.logger.Debug("client added", slog.Int("client_id", clientID))
	return clientID, nil
}

// AddPhone inserts a phone for an existing client and returns the id of the phone
func (a PgAdapter) AddPhone(ctx context.Context, clientID int, phone string) (int, error) {
	var phoneID int
	err := a.conn.QueryRowContext(ctx, insertPhoneSQL, clientID, phone).Scan(&phoneID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert phone: %w", classify(err))
	}

	a.logger.Debug("phone added", slog.Int("client_id", clientID), slog.Int("phone_id", phoneID))
	return phoneID, nil
}

// ChangeClient applies every requested change in one transaction. A phone
// change overwrites all phone numbers of the client.
func (a PgAdapter) ChangeClient(ctx context.Context, clientID int, changes storage.ClientChanges) error {
	updates := []struct {
		value *string
		query string
	}{
		{changes.FirstName, updateFirstNameSQL},
		{changes.LastName, updateLastNameSQL},
		{changes.Email, updateEmailSQL},
		{changes.Phone, updatePhonesSQL},
	}

	return a.withTx(ctx, func(tx *sql.Tx) error {
		for _, u := range updates {
			if u.value == nil {
				continue
			}
			if _, err := tx.ExecContext(ctx, u.query, *u.value, clientID); err != nil {
				return fmt.Errorf("failed to update client %d: %w", clientID, classify(err))
			}
		}
		a.logger.Debug("client changed", slog.Int("client_id", clientID))
		return nil
	})
}

// DeletePhone removes the phones of a client matching the number exactly and
// returns how many rows were removed
func (a PgAdapter) DeletePhone(ctx context.Context, clientID int, phone string) (int64, error) {
	res, err := a.conn.ExecContext(ctx, deletePhoneSQL, clientID, phone)
	if err != nil {
		return 0, fmt.Errorf("failed to delete phone: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted phones: %w", err)
	}

	a.logger.Debug("phone deleted", slog.Int("client_id", clientID), slog.Int64("rows", n))
	return n, nil
}

// DeleteClient removes the phones of a client and then the client itself
func (a PgAdapter) DeleteClient(ctx context.Context, clientID int) error {
	return a.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteClientPhonesSQL, clientID); err != nil {
			return fmt.Errorf("failed to delete phones of client %d: %w", clientID, err)
		}
		if _, err := tx.ExecContext(ctx, deleteClientSQL, clientID); err != nil {
			return fmt.Errorf("failed to delete client %d: %w", clientID, err)
		}
		a.logger.Debug("client deleted", slog.Int("client_id", clientID))
		return nil
	})
}

// FindClient resolves a client from the effective filter and returns one row
// per phone of that client. No match yields no rows and no error.
func (a PgAdapter) FindClient(ctx context.Context, filter storage.ClientFilter) ([]storage.ClientPhone, error) {
	field, value, ok := filter.Effective()
	if !ok {
		return nil, storage.ErrNoFilter
	}

	var clientID int
	err := a.conn.QueryRowContext(ctx, lookupSQL[field], value).Scan(&clientID)
	if errors.Is(err, sql.ErrNoRows) {
		a.logger.Debug("no client matched", slog.String("field", string(field)))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up client by %s: %w", field, err)
	}

	rows, err := a.conn.QueryContext(ctx, selectClientPhonesSQL, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query client %d: %w", clientID, err)
	}
	defer rows.Close()

	var result []storage.ClientPhone
	for rows.Next() {
		var row storage.ClientPhone
		var phone sql.NullString
		if err := rows.Scan(&row.ClientID, &row.FirstName, &row.LastName, &row.Email, &phone); err != nil {
			return nil, fmt.Errorf("could not transform rows into client phones: %w", err)
		}
		if phone.Valid {
			row.Phone = storage.String(phone.String)
		}

		result = append(result, row)
	}
	// Get any error encountered during iteration
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error while iterating over rows: %w", err)
	}

	return result, nil
}

// GetClient retrieves a single client by id
func (a PgAdapter) GetClient(ctx context.Context, clientID int) (*storage.Client, error) {
	client := &storage.Client{}
	err := a.conn.QueryRowContext(ctx, selectClientSQL, clientID).
		Scan(&client.ID, &client.FirstName, &client.LastName, &client.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", storage.ErrClientNotFound, clientID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client %d: %w", clientID, err)
	}

	return client, nil
}

// ListPhones retrieves the phones of a client ordered by id
func (a PgAdapter) ListPhones(ctx context.Context, clientID int) ([]storage.Phone, error) {
	rows, err := a.conn.QueryContext(ctx, selectPhonesSQL, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list phones of client %d: %w", clientID, err)
	}
	defer rows.Close()

	var phones []storage.Phone
	for rows.Next() {
		var phone storage.Phone
		var number sql.NullString
		if err := rows.Scan(&phone.ID, &phone.ClientID, &number); err != nil {
			return nil, fmt.Errorf("could not transform rows into phones: %w", err)
		}
		if number.Valid {
			phone.Number = storage.String(number.String)
		}

		phones = append(phones, phone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error while iterating over rows: %w", err)
	}

	return phones, nil
}
