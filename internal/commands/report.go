package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nexpass/nexsync/internal/query"
)

func newReportCommand(configPath *string) *cobra.Command {
	var (
		userID string
		month  string
		topN   int
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a spending report for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			app, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.Close()

			filter := query.Filter{UserID: userID, Month: month}

			totals, err := app.query.Totals(ctx, filter)
			if err != nil {
				return err
			}
			fmt.Printf("transactions: %d\nincome:   %s\nexpenses: %s\nnet:      %s\n\n",
				totals.Count, totals.Income, totals.Expenses, totals.Net)

			breakdown, err := app.query.CategoryBreakdown(ctx, filter, topN)
			if err != nil {
				return err
			}
			if len(breakdown) > 0 {
				fmt.Println("top categories:")
				for _, c := range breakdown {
					fmt.Printf("  %-16s %10s  (%d)\n", c.Category, c.Total, c.Count)
				}
				fmt.Println()
			}

			counterparties, err := app.query.TopCounterparties(ctx, filter, topN)
			if err != nil {
				return err
			}
			if len(counterparties) > 0 {
				fmt.Println("top counterparties:")
				for _, c := range counterparties {
					fmt.Printf("  %-24s %10s  (%d)\n", c.Counterparty, c.Total, c.Count)
				}
				fmt.Println()
			}

			// The trend only makes sense without a month filter.
			if month == "" {
				trend, err := app.query.MonthlyTrend(ctx, filter)
				if err != nil {
					return err
				}
				if len(trend) > 0 {
					fmt.Println("monthly trend:")
					for _, p := range trend {
						fmt.Printf("  %s  income %10s  expenses %10s\n", p.Month, p.Income, p.Expenses)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id to report on")
	cmd.Flags().StringVarP(&month, "month", "m", "", "restrict to a month (YYYY-MM)")
	cmd.Flags().IntVar(&topN, "top", 5, "number of categories and counterparties to show")
	cmd.MarkFlagRequired("user")

	return cmd
}
