//go:build integration

package postgres

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/bradleyjkemp/cupaloy"
	"github.com/ory/dockertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientsdb/demo"
	"clientsdb/report"
	"clientsdb/storage"
)

var testPort string

const testUser = "postgres"
const testHost = "localhost"
const testPassword = "postgres"
const testDbName = "clients_db"

// getAdapter retrieves the Postgres adapter with test credentials
func getAdapter(driver string) (*PgAdapter, error) {
	return NewAdapter(context.Background(), testHost, testPort, testUser, testDbName,
		WithPassword(testPassword), WithDriver(driver))
}

// freshAdapter connects and recreates an empty schema; dropping the tables also resets the id sequences
func freshAdapter(t *testing.T, driver string) *PgAdapter {
	t.Helper()

	adapter, err := getAdapter(driver)
	require.NoError(t, err, "error creating new test adapter")
	t.Cleanup(func() { _ = adapter.Close() })

	ctx := context.Background()
	_ = adapter.DropSchema(ctx) // Schema may not exist yet
	require.NoError(t, adapter.CreateSchema(ctx))

	return adapter
}

// setup instantiates a Postgres docker container and waits until it accepts connections
func setup() *dockertest.Resource {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("could not connect to docker: %s", err)
	}

	// Pulls an image, creates a container based on it and runs it
	resource, err := pool.Run("postgres", "16", []string{
		fmt.Sprintf("POSTGRES_PASSWORD=%s", testPassword),
		fmt.Sprintf("POSTGRES_DB=%s", testDbName),
	})
	if err != nil {
		log.Fatalf("could not start resource: %s", err)
	}
	testPort = resource.GetPort("5432/tcp") // Set port used to communicate with Postgres

	// Exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	if err := pool.Retry(func() error {
		adapter, err := getAdapter(DriverPQ)
		if err != nil {
			return err
		}
		return adapter.Close()
	}); err != nil {
		log.Fatalf("could not connect to docker: %s", err)
	}

	return resource
}

// cleanup removes the docker container resource
func cleanup(resource *dockertest.Resource) {
	err := resource.Close()
	if err != nil {
		log.Fatalf("error removing container %v", err)
	}
}

func TestMain(m *testing.M) {
	resource := setup() // Setup one container for test suite to limit resources created during tests
	code := m.Run()
	cleanup(resource) // Tear down container when test suite is done running to avoid extraneous resources
	os.Exit(code)
}

const describeColumnsSQL = `SELECT table_name, column_name, data_type, COALESCE(character_maximum_length, 0), is_nullable
	FROM information_schema.columns
	WHERE table_schema = 'public' AND table_name IN ('client', 'phone')
	ORDER BY table_name, ordinal_position`

const describeConstraintsSQL = `SELECT tc.table_name, tc.constraint_type, kcu.column_name
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
	WHERE tc.table_schema = 'public' AND tc.table_name IN ('client', 'phone')
	ORDER BY tc.table_name, tc.constraint_type, kcu.column_name`

// describeSchema renders the registry tables' columns and keys one per line
func describeSchema(t *testing.T, adapter *PgAdapter) []string {
	t.Helper()
	ctx := context.Background()

	var lines []string
	rows, err := adapter.conn.QueryContext(ctx, describeColumnsSQL)
	require.NoError(t, err)
	for rows.Next() {
		var table, column, dataType, nullable string
		var length int
		require.NoError(t, rows.Scan(&table, &column, &dataType, &length, &nullable))
		lines = append(lines, fmt.Sprintf("%s.%s %s(%d) nullable=%s", table, column, dataType, length, nullable))
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())

	rows, err = adapter.conn.QueryContext(ctx, describeConstraintsSQL)
	require.NoError(t, err)
	for rows.Next() {
		var table, kind, column string
		require.NoError(t, rows.Scan(&table, &kind, &column))
		lines = append(lines, fmt.Sprintf("%s %s (%s)", table, kind, column))
	}
	require.NoError(t, rows.Err())
	require.NoError(t, rows.Close())

	return lines
}

func TestSchemaIsIdempotent(t *testing.T) {
	adapter := freshAdapter(t, DriverPQ)
	ctx := context.Background()

	id, err := adapter.AddClient(ctx, "Nick", "Nlte", "n.nolte@gmail.com", storage.String("13102796312"))
	require.NoError(t, err)

	before := describeSchema(t, adapter)
	assert.Equal(t, []string{
		"client.client_id integer(0) nullable=NO",
		"client.first_name character varying(100) nullable=NO",
		"client.last_name character varying(100) nullable=NO",
		"client.email character varying(255) nullable=NO",
		"phone.phone_id integer(0) nullable=NO",
		"phone.phone character varying(15) nullable=YES",
		"phone.client_id integer(0) nullable=NO",
		"client PRIMARY KEY (client_id)",
		"client UNIQUE (email)",
		"phone FOREIGN KEY (client_id)",
		"phone PRIMARY KEY (phone_id)",
	}, before)

	require.NoError(t, adapter.CreateSchema(ctx))
	assert.Equal(t, before, describeSchema(t, adapter), "a second create must not alter the tables")

	rows, err := adapter.FindClient(ctx, storage.ClientFilter{Email: storage.String("n.nolte@gmail.com")})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, id, rows[0].ClientID, "a second create must keep existing rows")

	require.NoError(t, adapter.DropSchema(ctx))
	assert.Error(t, adapter.DropSchema(ctx), "dropping a missing schema should fail")
}

func TestRegistryConstraints(t *testing.T) {
	for _, driver := range []string{DriverPQ, DriverPgx} {
		t.Run(driver, func(t *testing.T) {
			adapter := freshAdapter(t, driver)
			ctx := context.Background()

			id, err := adapter.AddClient(ctx, "Nick", "Nlte", "n.nolte@gmail.com", storage.String("13102796312"))
			require.NoError(t, err)

			_, err = adapter.AddClient(ctx, "Nicholas", "Nolte", "n.nolte@gmail.com", nil)
			assert.ErrorIs(t, err, storage.ErrDuplicateEmail)

			_, err = adapter.AddPhone(ctx, id+100, "13108541111")
			assert.ErrorIs(t, err, storage.ErrClientNotFound)

			_, err = adapter.AddPhone(ctx, id, strings.Repeat("9", 40))
			assert.ErrorIs(t, err, storage.ErrValueTooLong)

			_, err = adapter.AddClient(ctx, strings.Repeat("N", storage.MaxNameLength+1), "Nolte", "nn@gmail.com", nil)
			assert.ErrorIs(t, err, storage.ErrValueTooLong)

			rows, err := adapter.FindClient(ctx, storage.ClientFilter{Email: storage.String("n.nolte@gmail.com")})
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, storage.ClientPhone{
				ClientID:  id,
				FirstName: "Nick",
				LastName:  "Nlte",
				Email:     "n.nolte@gmail.com",
				Phone:     storage.String("13102796312"),
			}, rows[0])
		})
	}
}

func TestDeleteClientRemovesPhones(t *testing.T) {
	adapter := freshAdapter(t, DriverPQ)
	ctx := context.Background()

	id, err := adapter.AddClient(ctx, "Gary", "Oldman", "g.oldman@mail.ru", storage.String("13108503770"))
	require.NoError(t, err)
	for _, phone := range []string{"13108541111", "13105691199"} {
		_, err := adapter.AddPhone(ctx, id, phone)
		require.NoError(t, err)
	}

	phones, err := adapter.ListPhones(ctx, id)
	require.NoError(t, err)
	require.Len(t, phones, 3)

	require.NoError(t, adapter.DeleteClient(ctx, id))

	phones, err = adapter.ListPhones(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, phones)

	rows, err := adapter.FindClient(ctx, storage.ClientFilter{Email: storage.String("g.oldman@mail.ru")})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestChangeClientReplacesAllPhones(t *testing.T) {
	adapter := freshAdapter(t, DriverPQ)
	ctx := context.Background()

	id, err := adapter.AddClient(ctx, "Nick", "Nlte", "n.nolte@gmail.com", storage.String("13102796312"))
	require.NoError(t, err)
	_, err = adapter.AddPhone(ctx, id, "13108541111")
	require.NoError(t, err)

	require.NoError(t, adapter.ChangeClient(ctx, id, storage.ClientChanges{
		LastName: storage.String("Nolte"),
		Phone:    storage.String("79991117799"),
	}))

	rows, err := adapter.FindClient(ctx, storage.ClientFilter{LastName: storage.String("Nolte")})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, id, row.ClientID)
		assert.Equal(t, "79991117799", *row.Phone)
	}
}

func TestDemoAgainstPostgres(t *testing.T) {
	adapter := freshAdapter(t, DriverPQ)

	var out bytes.Buffer
	require.NoError(t, demo.Run(context.Background(), adapter, report.NewPrinter(&out, report.FormatTuple)))

	cupaloy.SnapshotT(t, out.String())
}
