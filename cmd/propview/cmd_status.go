package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Humphrey-He/propview/internal/controller"
)

func newStatusCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st := controller.NewStatusController(a.gw).Check(cmd.Context())
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(st); err != nil {
					return err
				}
			} else {
				writeStatus(out, st)
			}
			if st.Status != controller.StatusConnected {
				return &cliError{msg: st.Error, err: errors.New("backend unavailable")}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the status as JSON")
	return cmd
}
