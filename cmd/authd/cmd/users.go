package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-auth-core"
)

var (
	userEmail    string
	userName     string
	userFullName string
	userPassword string
	userStdin    bool
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage principals",
}

var usersRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new principal",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userEmail == "" {
			return fmt.Errorf("--email flag is required")
		}

		password := userPassword
		if userStdin {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Fprint(cmd.ErrOrStderr(), "Enter password: ")
			if scanner.Scan() {
				password = strings.TrimRight(scanner.Text(), "\r\n")
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}

		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		svc, err := newServices(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer svc.Close()

		summary, err := svc.auther.Register(cmd.Context(), auth.RegisterRequest{
			Email:    userEmail,
			Username: userName,
			FullName: userFullName,
			Password: password,
		})
		if err != nil {
			return fmt.Errorf("failed to register user: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", summary.Email, summary.ID)
		return nil
	},
}

func init() {
	usersRegisterCmd.Flags().StringVar(&userEmail, "email", "", "Email address")
	usersRegisterCmd.Flags().StringVar(&userName, "username", "", "Username, defaults to the email")
	usersRegisterCmd.Flags().StringVar(&userFullName, "full-name", "", "Full name")
	usersRegisterCmd.Flags().StringVar(&userPassword, "password", "", "Password")
	usersRegisterCmd.Flags().BoolVar(&userStdin, "stdin", false, "Read the password from stdin")

	usersCmd.AddCommand(usersRegisterCmd)
}
