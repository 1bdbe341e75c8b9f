package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/safe-estate/internal/auth"
)

// adminPasswordEnv supplies the password when --password is not given.
const adminPasswordEnv = "ESTATE_ADMIN_PASSWORD"

func newCreateAdminCmd() *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account",
		Long:  "Create a verified administrator account. The password comes from --password or " + adminPasswordEnv + ".",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv(adminPasswordEnv)
			}
			if password == "" {
				return fmt.Errorf("a password is required (--password or %s)", adminPasswordEnv)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(database)

			u, err := auth.NewUserStore(database).CreateAdmin(username, email, password)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), u)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Admin %s (#%d) created.\n", u.Username, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	for _, name := range []string{"username", "email"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}

	return cmd
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and manage accounts",
	}

	var role, status, search, pageNum string
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(database)

			users, p, err := auth.NewUserStore(database).List(auth.UserFilter{Role: role, Status: status, Search: search}, pageNum)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]any{"users": users, "page": p})
			}
			if err := printUserTable(cmd.OutOrStdout(), users); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d (%d users)\n", p.Number, p.Pages, p.Total)
			return nil
		},
	}
	list.Flags().StringVar(&role, "role", "", "filter by role (buyer|seller|admin)")
	list.Flags().StringVar(&status, "status", "", "filter by status (active|inactive)")
	list.Flags().StringVar(&search, "search", "", "username or email contains")
	list.Flags().StringVar(&pageNum, "page", "1", "page number")

	toggle := &cobra.Command{
		Use:   "toggle <username>",
		Short: "Activate or deactivate an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(database)

			users := auth.NewUserStore(database)
			u, err := users.GetByUsername(args[0])
			if err != nil {
				return err
			}
			if u, err = users.ToggleActive(u.ID); err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), u)
			}
			state := "activated"
			if !u.IsActive {
				state = "deactivated"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s has been %s.\n", u.Username, state)
			return nil
		},
	}

	cmd.AddCommand(list, toggle)
	return cmd
}
