package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"finance/internal/client"
	"finance/internal/core"
	"finance/internal/store"
)

// surveyOpts contains custom options for all survey prompts
var surveyOpts = []survey.AskOpt{
	survey.WithIcons(func(icons *survey.IconSet) {
		icons.Question.Text = "-"
	}),
}

// confirm asks a yes/no question, defaulting to no.
var confirm = func(message string) (bool, error) {
	var confirmation bool
	prompt := &survey.Confirm{Message: message, Default: false}
	if err := survey.AskOne(prompt, &confirmation, surveyOpts...); err != nil {
		return false, err
	}
	return confirmation, nil
}

type txFlags struct {
	text   string
	amount string
	typ    string
	date   string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.text, "text", "t", "", "description")
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "amount, grouping separators allowed (1.500.000)")
	cmd.Flags().StringVar(&f.typ, "type", "", "income or expense")
	cmd.Flags().StringVarP(&f.date, "date", "d", "", "date as YYYY-MM-DD")
}

// apply copies every flag the user set onto in.
func (f *txFlags) apply(cmd *cobra.Command, in *client.Input) error {
	if cmd.Flags().Changed("text") {
		in.Text = f.text
	}
	if cmd.Flags().Changed("amount") {
		amount, err := core.ParseGroupedAmount(f.amount)
		if err != nil {
			return fmt.Errorf("invalid amount %q", f.amount)
		}
		in.Amount = amount
	}
	if cmd.Flags().Changed("type") {
		typ := core.Type(f.typ)
		if !typ.Known() {
			return fmt.Errorf("invalid type %q: must be income or expense", f.typ)
		}
		in.Type = typ
	}
	if cmd.Flags().Changed("date") {
		date, err := core.ParseDate(f.date)
		if err != nil {
			return fmt.Errorf("invalid date %q: use YYYY-MM-DD", f.date)
		}
		in.Date = date
	}
	return nil
}

func newListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			txs, err := a.client.List(ctx)
			if err != nil {
				return fmt.Errorf("list transactions: %w", err)
			}
			if len(txs) == 0 {
				pterm.Info.Println("No transactions yet")
				return nil
			}
			if limit > 0 && len(txs) > limit {
				txs = txs[:limit]
			}

			tableData := pterm.TableData{{"ID", "Date", "Type", "Amount", "Description"}}
			for _, tx := range txs {
				tableData = append(tableData, []string{tx.ID, tx.Date.Key(), colorType(tx.Type), a.formatter.Money(tx.Amount), tx.Text})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Render(); err != nil {
				return err
			}
			pterm.Info.Printf("Showing %d transaction(s)\n", len(txs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n transactions")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	var f txFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction",
		Example: `  financectl add --text "Lương tháng 6" --amount 15.000.000 --type income
  financectl add -t "Cà phê" -a 45000 --type expense -d 2024-06-02`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range []string{"text", "amount", "type"} {
				if !cmd.Flags().Changed(name) {
					return fmt.Errorf("--%s is required", name)
				}
			}
			in := client.Input{Date: today()}
			if err := f.apply(cmd, &in); err != nil {
				return err
			}

			ctx, cancel := a.context(cmd)
			defer cancel()
			tx, err := a.client.Create(ctx, in)
			if err != nil {
				return fmt.Errorf("add transaction: %w", err)
			}
			pterm.Success.Printf("Transaction %s added: %s %s\n", tx.ID, a.formatter.Money(tx.Amount), tx.Type)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var f txFlags
	cmd := &cobra.Command{
		Use:   "update <transaction-id>",
		Short: "Change fields of a transaction; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			cur, err := a.client.Get(ctx, args[0])
			if err != nil {
				return notFoundOr(args[0], err)
			}
			if !cur.Amount.Valid() && !cmd.Flags().Changed("amount") {
				return fmt.Errorf("transaction %s has no valid amount: pass --amount", cur.ID)
			}
			in := client.Input{Text: cur.Text, Amount: cur.Amount, Type: cur.Type, Date: cur.Date}
			if err := f.apply(cmd, &in); err != nil {
				return err
			}
			tx, err := a.client.Update(ctx, args[0], in)
			if err != nil {
				return notFoundOr(args[0], err)
			}
			pterm.Success.Printf("Transaction %s updated\n", tx.ID)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <transaction-id>",
		Short: "Delete a transaction",
		Long:  `Delete a transaction. This action cannot be undone.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			getCtx, cancelGet := a.context(cmd)
			tx, err := a.client.Get(getCtx, args[0])
			cancelGet()
			if err != nil {
				return notFoundOr(args[0], err)
			}

			if !yes {
				pterm.Warning.Printf("About to delete transaction %s:\n", tx.ID)
				info := pterm.TableData{
					{"Date", tx.Date.Key()},
					{"Type", tx.Type.String()},
					{"Amount", a.formatter.Money(tx.Amount)},
					{"Description", tx.Text},
				}
				if err := pterm.DefaultTable.WithData(info).Render(); err != nil {
					return err
				}

				confirmation, err := confirm("Do you want to delete this transaction?")
				if err != nil {
					return err
				}
				if !confirmation {
					pterm.Info.Println("Deletion cancelled")
					return nil
				}
			}

			// The delete timeout starts once the prompt is answered.
			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := a.client.Delete(ctx, tx.ID); err != nil {
				return notFoundOr(tx.ID, err)
			}
			pterm.Success.Printf("Transaction %s deleted\n", tx.ID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "delete without asking")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	var chronological bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals, breakdown and daily series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			s, err := a.client.Summary(ctx, chronological)
			if err != nil {
				return fmt.Errorf("get summary: %w", err)
			}

			pterm.DefaultSection.Println("Totals")
			balance := a.formatter.Money(s.Totals.Balance)
			if s.Totals.Balance < 0 {
				balance = pterm.Red(balance)
			} else {
				balance = pterm.Green(balance)
			}
			totals := pterm.TableData{
				{"Income", a.formatter.Money(s.Totals.TotalIncome)},
				{"Expense", a.formatter.Money(s.Totals.TotalExpense)},
				{"Balance", balance},
			}
			if err := pterm.DefaultTable.WithData(totals).Render(); err != nil {
				return err
			}

			pterm.DefaultSection.Println("Breakdown")
			whole := s.Totals.TotalIncome + s.Totals.TotalExpense
			breakdown := pterm.TableData{{"Type", "Amount", "Share"}}
			for _, slot := range s.Breakdown {
				share := "0%"
				if whole > 0 {
					share = strconv.FormatFloat(float64(slot.Value/whole)*100, 'f', 0, 64) + "%"
				}
				breakdown = append(breakdown, []string{colorType(slot.Label), a.formatter.Money(slot.Value), share})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(breakdown).Render(); err != nil {
				return err
			}

			pterm.DefaultSection.Println("Daily")
			if len(s.Daily) == 0 {
				pterm.Info.Println("No dated transactions")
				return nil
			}
			daily := pterm.TableData{{"Day", "Income", "Expense"}}
			for _, p := range s.Daily {
				daily = append(daily, []string{p.Day, a.formatter.Money(p.Income), a.formatter.Money(p.Expense)})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(daily).Render()
		},
	}
	cmd.Flags().BoolVar(&chronological, "chronological", false, "order the daily series oldest day first")
	return cmd
}

func colorType(t core.Type) string {
	switch t {
	case core.Income:
		return pterm.Green(t.String())
	case core.Expense:
		return pterm.Red(t.String())
	default:
		return t.String()
	}
}

func notFoundOr(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("transaction %s not found", id)
	}
	return err
}

func today() core.Date {
	y, m, d := time.Now().Date()
	return core.NewDate(y, int(m), d)
}
