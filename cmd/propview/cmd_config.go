package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	var format string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the configuration after files, env and flags are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.config().Write(cmd.OutOrStdout(), format)
		},
	}
	show.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or json")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit non-zero if it is invalid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Loading already validated the file; flags may still break it.
			if err := a.config().Validate(); err != nil {
				return err
			}
			src := a.vc.ConfigFile()
			if src == "" {
				src = "defaults and environment"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", successStyle.Render("configuration is valid"), src)
			return nil
		},
	}

	cmd.AddCommand(show, validate)
	return cmd
}
