package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Humphrey-He/propview/internal/controller"
	"github.com/Humphrey-He/propview/pkg/filter"
	"github.com/Humphrey-He/propview/pkg/gateway"
	"github.com/Humphrey-He/propview/pkg/listing"
)

// cliError shows the user-facing message while keeping the cause for errors.Is.
type cliError struct {
	msg string
	err error
}

func (e *cliError) Error() string { return e.msg }
func (e *cliError) Unwrap() error { return e.err }

func newListCmd(a *app) *cobra.Command {
	var (
		search, location, price, output string
		remote                          bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List properties, optionally filtered",
		Long: `List every property, filtered client side.

Price ranges are "min-max" or "min+", e.g. --price 5000000-10000000.
With --remote the backend's search endpoint does the filtering instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			crit, err := filter.ParseCriteria(search, location, price)
			if err != nil {
				return err
			}
			f := a.config().Locale.Formatter()
			out := cmd.OutOrStdout()

			if remote {
				env, err := a.gw.Search(cmd.Context(), searchParams(crit))
				if err != nil {
					return &cliError{msg: controller.ListMessage(err, a.gw.BaseURL()), err: err}
				}
				return writeListings(out, f, env.Data, output)
			}

			lc := controller.NewListController(a.gw, a.logger.Named("list"))
			if err := lc.Refresh(cmd.Context()); err != nil {
				return &cliError{msg: lc.State().Error, err: err}
			}
			if err := lc.SetCriteria(crit); err != nil {
				return err
			}
			view, err := lc.View()
			if err != nil {
				return err
			}
			if err := writeListings(out, f, view.Listings, output); err != nil {
				return err
			}
			if output == "text" {
				writeSummary(out, view)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Match title or description")
	cmd.Flags().StringVarP(&location, "location", "l", "", "Match location")
	cmd.Flags().StringVarP(&price, "price", "p", "", "Price range, min-max or min+")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&remote, "remote", false, "Filter on the backend via /properties/search")
	return cmd
}

// searchParams maps client criteria to the backend search query.
func searchParams(c filter.Criteria) gateway.SearchParams {
	p := gateway.SearchParams{Query: c.SearchTerm, Location: c.LocationFilter}
	if !c.PriceRange.IsZero() {
		p.MinPrice = c.PriceRange.Min()
		if hi, ok := c.PriceRange.Max(); ok {
			p.MaxPrice = hi
		}
	}
	return p
}

func newShowCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid property id %q", args[0])
			}
			cfg := a.config()
			dc := controller.NewDetailController(a.gw, 0, a.logger.Named("detail"))
			l, err := dc.Load(cmd.Context(), id)
			if err != nil {
				return &cliError{msg: dc.State().Error, err: err}
			}
			f := cfg.Locale.Formatter()
			out := cmd.OutOrStdout()
			if output != "text" {
				return writeListings(out, f, []listing.Listing{l}, output)
			}
			fmt.Fprintln(out, card(f, l, true))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text, json or yaml")
	return cmd
}
