/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/pipecraft/apiserver/config"
	"github.com/pipecraft/apiserver/internal/auth"
	"github.com/pipecraft/apiserver/internal/db"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/services"
	"github.com/pipecraft/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// usersCmd groups operator commands over user accounts.
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
}

var promoteCmd = &cobra.Command{
	Use:   "promote <email>",
	Short: "Grant the admin role to a registered user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRole(cmd, args[0], auth.RoleAdmin)
	},
}

var demoteCmd = &cobra.Command{
	Use:   "demote <email>",
	Short: "Revoke the admin role from a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRole(cmd, args[0], auth.RoleUser)
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(promoteCmd, demoteCmd)
}

func setRole(cmd *cobra.Command, email, role string) error {
	cfg := config.LoadConfig()
	logger := logging.New(os.Stderr, cfg.Log)

	conn, err := db.Open(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	users := services.NewUserService(store.NewUserRepository(conn), nil, logger)
	user, err := users.SetRole(cmd.Context(), email, role)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", user.Email, user.ID, user.Role)
	return nil
}
