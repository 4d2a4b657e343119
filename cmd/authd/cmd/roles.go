package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	roleEmail string
	roleName  string
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Manage declared roles and memberships",
}

var rolesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the declared roles in the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		if err := svc.seedRoles(cmd.Context()); err != nil {
			return fmt.Errorf("failed to seed roles: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Seeded roles: %s\n", strings.Join(svc.registry.Names(), ", "))
		return nil
	},
}

var rolesAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Add a role to a principal, used to bootstrap the first admin",
	RunE: func(cmd *cobra.Command, args []string) error {
		if roleEmail == "" || roleName == "" {
			return fmt.Errorf("--email and --role flags are required")
		}

		svc, err := newServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		_ = svc.seedRoles(cmd.Context())

		if err := svc.roles.AssignRole(cmd.Context(), roleEmail, roleName); err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}

		roles, err := svc.roles.Roles(cmd.Context(), roleEmail)
		if err != nil {
			return fmt.Errorf("failed to read roles: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s roles: %s\n", roleEmail, strings.Join(roles, ", "))
		return nil
	},
}

func init() {
	rolesAssignCmd.Flags().StringVar(&roleEmail, "email", "", "Principal email")
	rolesAssignCmd.Flags().StringVar(&roleName, "role", "", "Declared role name")

	rolesCmd.AddCommand(rolesSeedCmd)
	rolesCmd.AddCommand(rolesAssignCmd)
}
