package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"
)

type agenciesCmd struct{}

func (*agenciesCmd) Name() string     { return "agencies" }
func (*agenciesCmd) Synopsis() string { return "list agencies; the current one is marked with *" }
func (*agenciesCmd) Usage() string    { return "agencies\n" }

func (*agenciesCmd) SetFlags(*flag.FlagSet) {}

func (*agenciesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		agencies := a.svc.Agencies()
		if len(agencies) == 0 {
			fmt.Fprintln(stdout, "No agencies visible. Log in with an agency passcode or sign in.")
			return nil
		}
		current := a.svc.CurrentAgency().ID
		for _, ag := range agencies {
			mark := " "
			if ag.ID == current {
				mark = "*"
			}
			fmt.Fprintf(stdout, "%s %s\t%s\t%d projects\n", mark, ag.ID, ag.Name, len(ag.Projects))
		}
		return nil
	})
}

type addAgencyCmd struct {
	name string
}

func (*addAgencyCmd) Name() string     { return "add-agency" }
func (*addAgencyCmd) Synopsis() string { return "create an agency and make it current" }
func (*addAgencyCmd) Usage() string {
	return `add-agency -name <name>

  Creates an agency with the default categories, budget and reader passcode.
`
}

func (c *addAgencyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Agency name (required)")
}

func (c *addAgencyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		name := strings.TrimSpace(c.name)
		if name == "" {
			return usagef("-name is required")
		}
		ag, err := a.svc.AddAgency(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Added agency %s (%s).\n", ag.Name, ag.ID)
		return nil
	})
}

type switchAgencyCmd struct {
	id string
}

func (*switchAgencyCmd) Name() string     { return "switch-agency" }
func (*switchAgencyCmd) Synopsis() string { return "make another agency current" }
func (*switchAgencyCmd) Usage() string    { return "switch-agency -id <agency id>\n" }

func (c *switchAgencyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Agency id (required)")
}

func (c *switchAgencyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if c.id == "" {
			return usagef("-id is required")
		}
		if _, err := a.svc.SwitchAgency(ctx, c.id); err != nil {
			return err
		}
		cur := a.svc.CurrentAgency()
		fmt.Fprintf(stdout, "Current agency: %s (%s).\n", cur.Name, cur.ID)
		return nil
	})
}

type renameAgencyCmd struct {
	id, name string
}

func (*renameAgencyCmd) Name() string     { return "rename-agency" }
func (*renameAgencyCmd) Synopsis() string { return "rename an agency" }
func (*renameAgencyCmd) Usage() string    { return "rename-agency -id <agency id> -name <name>\n" }

func (c *renameAgencyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Agency id (required)")
	f.StringVar(&c.name, "name", "", "New name (required)")
}

func (c *renameAgencyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		name := strings.TrimSpace(c.name)
		if c.id == "" || name == "" {
			return usagef("-id and -name are required")
		}
		ok, err := a.svc.UpdateAgencyName(ctx, c.id, name)
		if err != nil {
			return err
		}
		reportNoOp(ok, "agency "+c.id)
		return nil
	})
}

type setAgencyPasscodeCmd struct {
	id, passcode string
}

func (*setAgencyPasscodeCmd) Name() string     { return "set-agency-passcode" }
func (*setAgencyPasscodeCmd) Synopsis() string { return "set the reader passcode of an agency" }
func (*setAgencyPasscodeCmd) Usage() string {
	return "set-agency-passcode -id <agency id> -passcode <passcode>\n"
}

func (c *setAgencyPasscodeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Agency id (defaults to the current agency)")
	f.StringVar(&c.passcode, "passcode", "", "Reader passcode (required)")
}

func (c *setAgencyPasscodeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if c.passcode == "" {
			return usagef("-passcode is required")
		}
		id := c.id
		if id == "" {
			id = a.svc.CurrentAgency().ID
		}
		ok, err := a.svc.UpdateAgencyPasscode(ctx, id, c.passcode)
		if err != nil {
			return err
		}
		reportNoOp(ok, "agency "+id)
		return nil
	})
}

type deleteAgencyCmd struct {
	id string
}

func (*deleteAgencyCmd) Name() string     { return "delete-agency" }
func (*deleteAgencyCmd) Synopsis() string { return "delete an agency and its projects" }
func (*deleteAgencyCmd) Usage() string {
	return `delete-agency -id <agency id>

  The last remaining agency cannot be deleted.
`
}

func (c *deleteAgencyCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Agency id (required)")
}

func (c *deleteAgencyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if c.id == "" {
			return usagef("-id is required")
		}
		ok, err := a.svc.DeleteAgency(ctx, c.id)
		if err != nil {
			return err
		}
		reportNoOp(ok, "agency "+c.id)
		return nil
	})
}

type setBudgetCmd struct {
	amount float64
}

func (*setBudgetCmd) Name() string     { return "set-budget" }
func (*setBudgetCmd) Synopsis() string { return "set the current agency's total allocated budget" }
func (*setBudgetCmd) Usage() string    { return "set-budget -amount <number>\n" }

func (c *setBudgetCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.amount, "amount", 0, "Total allocated budget")
}

func (c *setBudgetCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		return a.svc.UpdateTotalAllocatedBudget(ctx, c.amount)
	})
}

type clearCmd struct {
	passcode string
}

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "erase all data and reseed the default agency" }
func (*clearCmd) Usage() string {
	return `clear -passcode <ui passcode>

  Irreversibly replaces every agency with the default agency and sample
  project. Requires the UI passcode.
`
}

func (c *clearCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.passcode, "passcode", "", "UI passcode (required)")
}

func (c *clearCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if err := requirePasscode(a, c.passcode); err != nil {
			return err
		}
		if err := a.svc.ClearAllData(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "All data cleared.")
		return nil
	})
}
