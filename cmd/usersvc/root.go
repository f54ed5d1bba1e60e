package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command of the usersvc CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usersvc",
		Short: "User account service",
		Long: `usersvc serves signup, login and user management over HTTP.
Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}
