package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/mcclellann/debtplan/pkg/models"
	"github.com/mcclellann/debtplan/pkg/money"
	"github.com/mcclellann/debtplan/pkg/schedule"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// previewRow is one schedule period as printed by the schedule command.
type previewRow struct {
	DueDate   string `json:"dueDate" yaml:"dueDate"`
	Payment   string `json:"payment" yaml:"payment"`
	Interest  string `json:"interest" yaml:"interest"`
	Principal string `json:"principal" yaml:"principal"`
	Balance   string `json:"balance" yaml:"balance"`
}

type previewOptions struct {
	balance string
	rate    string
	minimum string
	dueDay  int
	from    string
	months  int
	output  string
}

func newScheduleCmd() *cobra.Command {
	var opts previewOptions
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Preview an amortization schedule without touching the database",
		Example: "  debtplan schedule --balance 1200 --rate 12 --min 50 --due-day 15 --from 2025-01-01\n" +
			"  debtplan schedule --balance 1200 --rate 12 --min 50 --due-day 15 -o yaml",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPreview(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.balance, "balance", "", "Outstanding balance in major units")
	cmd.Flags().StringVar(&opts.rate, "rate", "0", "Annual interest rate in percent")
	cmd.Flags().StringVar(&opts.minimum, "min", "", "Minimum monthly payment in major units")
	cmd.Flags().IntVar(&opts.dueDay, "due-day", 1, "Day of month payments are due (1-31)")
	cmd.Flags().StringVar(&opts.from, "from", "", "First possible due date, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&opts.months, "months", 0, "Number of periods (default until payoff)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "table", "Output format: table, json or yaml")
	cmd.MarkFlagRequired("balance")
	cmd.MarkFlagRequired("min")
	return cmd
}

func runPreview(w io.Writer, opts previewOptions) error {
	balance, err := money.FromMajor(opts.balance)
	if err != nil {
		return fmt.Errorf("--balance: %w", err)
	}
	minimum, err := money.FromMajor(opts.minimum)
	if err != nil {
		return fmt.Errorf("--min: %w", err)
	}
	rate, err := decimal.NewFromString(opts.rate)
	if err != nil {
		return fmt.Errorf("--rate: %w", err)
	}
	from := models.DateOf(time.Now())
	if opts.from != "" {
		if from, err = models.ParseDate(opts.from); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}

	terms := schedule.Terms{InterestRate: rate, MinMonthlyPayment: minimum, DueDay: opts.dueDay}
	payments, err := schedule.Generate(terms, balance, from, opts.months)
	if err != nil {
		return err
	}

	rows := make([]previewRow, 0, len(payments))
	for _, p := range payments {
		rows = append(rows, previewRow{
			DueDate:   p.DueDate.String(),
			Payment:   p.Payment.String(),
			Interest:  p.Interest.String(),
			Principal: p.Principal.String(),
			Balance:   p.Balance.String(),
		})
	}

	switch opts.output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return err
		}
		return enc.Close()
	case "table":
		return printTable(w, rows, payments)
	}
	return fmt.Errorf("unknown output format %q", opts.output)
}

func printTable(w io.Writer, rows []previewRow, payments []schedule.Payment) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tDue date\tPayment\tInterest\tPrincipal\tBalance\t")
	for i, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n", i+1, r.DueDate, r.Payment, r.Interest, r.Principal, r.Balance)
	}
	payment, interest, principal := schedule.Totals(payments)
	fmt.Fprintf(tw, "\tTotal\t%s\t%s\t%s\t\t\n", payment, interest, principal)
	return tw.Flush()
}
