package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"clientsdb/storage"
)

func parseClientID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid client id %q: %w", s, err)
	}
	return id, nil
}

// optionalString returns the flag value only when it was set explicitly
func optionalString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func addClientFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("first-name", "", "first name")
	cmd.Flags().String("last-name", "", "last name")
	cmd.Flags().String("email", "", "email address")
	cmd.Flags().String("phone", "", "phone number")
}

func (a *app) schemaCmd() *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Create or drop the client and phone tables",
	}

	schemaCmd.AddCommand(
		&cobra.Command{
			Use:   "create",
			Short: "Create the tables if they do not exist",
			Args:  cobra.NoArgs,
			// setup already ensured the schema
			RunE: func(_ *cobra.Command, _ []string) error {
				slog.Info("schema ready")
				return nil
			},
		},
		&cobra.Command{
			Use:         "drop",
			Short:       "Drop the phone and client tables",
			Args:        cobra.NoArgs,
			Annotations: map[string]string{skipSchemaAnnotation: "true"},
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := a.registry.DropSchema(cmd.Context()); err != nil {
					return err
				}
				slog.Info("schema dropped")
				return nil
			},
		},
	)

	return schemaCmd
}

func (a *app) addClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-client FIRST_NAME LAST_NAME EMAIL",
		Short: "Add a client, optionally with a first phone number",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.registry.AddClient(cmd.Context(), args[0], args[1], args[2], optionalString(cmd, "phone"))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
	cmd.Flags().String("phone", "", "first phone number")
	return cmd
}

func (a *app) addPhoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-phone CLIENT_ID PHONE",
		Short: "Add a phone number to an existing client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			id, err := a.registry.AddPhone(cmd.Context(), clientID, args[1])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
			return err
		},
	}
}

func (a *app) changeClientCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change-client CLIENT_ID",
		Short: "Change client fields; --phone replaces every phone number of the client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			changes := storage.ClientChanges{
				FirstName: optionalString(cmd, "first-name"),
				LastName:  optionalString(cmd, "last-name"),
				Email:     optionalString(cmd, "email"),
				Phone:     optionalString(cmd, "phone"),
			}
			if changes.Empty() {
				return fmt.Errorf("nothing to change for client %d", clientID)
			}
			return a.registry.ChangeClient(cmd.Context(), clientID, changes)
		},
	}
	addClientFieldFlags(cmd)
	return cmd
}

func (a *app) deletePhoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-phone CLIENT_ID PHONE",
		Short: "Delete a phone number of a client",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			n, err := a.registry.DeletePhone(cmd.Context(), clientID, args[1])
			if err != nil {
				return err
			}
			slog.Info("phones deleted", slog.Int("client_id", clientID), slog.Int64("rows", n))
			return nil
		},
	}
}

func (a *app) deleteClientCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-client CLIENT_ID",
		Short: "Delete a client and all of its phone numbers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			return a.registry.DeleteClient(cmd.Context(), clientID)
		},
	}
}

func (a *app) findCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find a client by one field and print it with its phones",
		Long: `Find a client by first name, last name, email or phone and print one
row per phone number.

Filters are evaluated in the order first name, last name, email, phone and
only the last one given is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := a.registry.FindClient(cmd.Context(), storage.ClientFilter{
				FirstName: optionalString(cmd, "first-name"),
				LastName:  optionalString(cmd, "last-name"),
				Email:     optionalString(cmd, "email"),
				Phone:     optionalString(cmd, "phone"),
			})
			if err != nil {
				return err
			}
			return a.printer.PrintBlock(rows)
		},
	}
	addClientFieldFlags(cmd)
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show CLIENT_ID",
		Short: "Print a client by id with its phones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := parseClientID(args[0])
			if err != nil {
				return err
			}
			client, err := a.registry.GetClient(cmd.Context(), clientID)
			if err != nil {
				return err
			}
			phones, err := a.registry.ListPhones(cmd.Context(), clientID)
			if err != nil {
				return err
			}

			row := storage.ClientPhone{
				ClientID:  client.ID,
				FirstName: client.FirstName,
				LastName:  client.LastName,
				Email:     client.Email,
			}
			rows := []storage.ClientPhone{row}
			if len(phones) > 0 {
				rows = rows[:0]
				for _, p := range phones {
					r := row
					r.Phone = p.Number
					rows = append(rows, r)
				}
			}
			return a.printer.PrintBlock(rows)
		},
	}
}
