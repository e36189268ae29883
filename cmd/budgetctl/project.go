package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"budgetcore/internal/core"
	"budgetcore/pkg/domain"
)

// projectFlags are shared by add-project and update-project.
type projectFlags struct {
	code, name, category    string
	owner, location         string
	startDate, activityDate string
	level, status, wbs      string
	budget                  float64
	progress                int
}

func (p *projectFlags) register(f *flag.FlagSet) {
	f.StringVar(&p.code, "code", "", "Project code")
	f.StringVar(&p.name, "name", "", "Project name")
	f.StringVar(&p.category, "category", "", "Category")
	f.StringVar(&p.owner, "owner", "", "Owning department")
	f.StringVar(&p.location, "location", "", "Location")
	f.StringVar(&p.startDate, "start", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&p.activityDate, "activity", "", "Activity date (YYYY-MM-DD)")
	f.StringVar(&p.level, "level", "", "Progress level: NotStart, Planning, InProgress or Done")
	f.StringVar(&p.status, "status", "", "Legacy status: Planning, InProgress, Completed or OnHold")
	f.StringVar(&p.wbs, "wbs", "", `WBS items as "description:quantity:unit:unitPrice;..."`)
	f.Float64Var(&p.budget, "budget", 0, "Budget")
	f.IntVar(&p.progress, "progress", 0, "Legacy progress percentage (update-project only)")
}

func (p *projectFlags) progressLevel() (domain.ProgressLevel, error) {
	level := domain.ProgressLevel(p.level)
	if !level.Valid() {
		return "", usagef("invalid -level %q", p.level)
	}
	return level, nil
}

// parseWBS reads "description:quantity:unit:unitPrice" items separated by ';'.
func parseWBS(raw string) ([]domain.WBSItem, error) {
	items := []domain.WBSItem{}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 4 {
			return nil, usagef("invalid WBS item %q: want description:quantity:unit:unitPrice", part)
		}
		qty, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			return nil, usagef("invalid WBS quantity %q", fields[1])
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
		if err != nil {
			return nil, usagef("invalid WBS unit price %q", fields[3])
		}
		items = append(items, domain.WBSItem{
			Description: strings.TrimSpace(fields[0]),
			Quantity:    qty,
			Unit:        strings.TrimSpace(fields[2]),
			UnitPrice:   price,
		})
	}
	return items, nil
}

func printProject(p domain.Project, a domain.Agency) {
	fmt.Fprintf(stdout, "%d\t%s\t%s\t%s\t%s\t%s\n",
		p.ID, p.ProjectCode, p.Name, formatAmount(p.Budget), p.ProgressLevel, a.CategoryLabel(p))
}

type projectsCmd struct {
	wbs bool
}

func (*projectsCmd) Name() string     { return "projects" }
func (*projectsCmd) Synopsis() string { return "list the current agency's projects, newest first" }
func (*projectsCmd) Usage() string    { return "projects [-wbs]\n" }

func (c *projectsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.wbs, "wbs", false, "Also print WBS items")
}

func (c *projectsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		agency := a.svc.CurrentAgency()
		for _, p := range agency.Projects {
			printProject(p, agency)
			if !c.wbs {
				continue
			}
			for _, item := range p.WBS {
				fmt.Fprintf(stdout, "\t- %s\t%v %s x %s = %s\n",
					item.Description, item.Quantity, item.Unit, formatAmount(item.UnitPrice), item.LineTotal().StringFixed(2))
			}
		}
		return nil
	})
}

type addProjectCmd struct {
	projectFlags
}

func (*addProjectCmd) Name() string     { return "add-project" }
func (*addProjectCmd) Synopsis() string { return "add a project to the current agency" }
func (*addProjectCmd) Usage() string {
	return `add-project -name <name> [-code <code>] [-budget <n>] [-category <c>] [-wbs <items>] ...

  The project receives a fresh id and is listed first.
`
}

func (c *addProjectCmd) SetFlags(f *flag.FlagSet) { c.register(f) }

func (c *addProjectCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if strings.TrimSpace(c.name) == "" {
			return usagef("-name is required")
		}
		if c.level == "" {
			c.level = string(domain.ProgressNotStart)
		}
		level, err := c.progressLevel()
		if err != nil {
			return err
		}
		wbs, err := parseWBS(c.wbs)
		if err != nil {
			return err
		}
		status := domain.ProjectStatus(c.status)
		if status == "" {
			status = domain.StatusPlanning
		}
		p, err := a.svc.AddProject(ctx, domain.Project{
			ProjectCode:   c.code,
			Name:          strings.TrimSpace(c.name),
			Budget:        c.budget,
			Status:        status,
			ProgressLevel: level,
			ActivityDate:  c.activityDate,
			Owner:         c.owner,
			Location:      c.location,
			StartDate:     c.startDate,
			Category:      c.category,
			WBS:           wbs,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Added project %d.\n", p.ID)
		return nil
	})
}

type updateProjectCmd struct {
	projectFlags
	id int64
}

func (*updateProjectCmd) Name() string     { return "update-project" }
func (*updateProjectCmd) Synopsis() string { return "change fields of a project in the current agency" }
func (*updateProjectCmd) Usage() string {
	return `update-project -id <project id> [-name <name>] [-budget <n>] [-level <level>] ...

  Only the flags given on the command line are changed. -wbs replaces the
  whole WBS table.
`
}

func (c *updateProjectCmd) SetFlags(f *flag.FlagSet) {
	c.register(f)
	f.Int64Var(&c.id, "id", 0, "Project id (required)")
}

func (c *updateProjectCmd) patch(f *flag.FlagSet) (core.ProjectPatch, error) {
	var (
		patch core.ProjectPatch
		err   error
	)
	f.Visit(func(fl *flag.Flag) {
		if err != nil {
			return
		}
		switch fl.Name {
		case "code":
			patch.ProjectCode = &c.code
		case "name":
			patch.Name = &c.name
		case "category":
			patch.Category = &c.category
		case "owner":
			patch.Owner = &c.owner
		case "location":
			patch.Location = &c.location
		case "start":
			patch.StartDate = &c.startDate
		case "activity":
			patch.ActivityDate = &c.activityDate
		case "budget":
			patch.Budget = &c.budget
		case "progress":
			patch.Progress = &c.progress
		case "status":
			status := domain.ProjectStatus(c.status)
			patch.Status = &status
		case "level":
			var level domain.ProgressLevel
			if level, err = c.progressLevel(); err == nil {
				patch.ProgressLevel = &level
			}
		case "wbs":
			var items []domain.WBSItem
			if items, err = parseWBS(c.wbs); err == nil {
				patch.WBS = &items
			}
		}
	})
	return patch, err
}

func (c *updateProjectCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if c.id == 0 {
			return usagef("-id is required")
		}
		patch, err := c.patch(f)
		if err != nil {
			return err
		}
		ok, err := a.svc.UpdateProject(ctx, c.id, patch)
		if err != nil {
			return err
		}
		reportNoOp(ok, fmt.Sprintf("project %d", c.id))
		return nil
	})
}

type duplicateProjectCmd struct {
	id int64
}

func (*duplicateProjectCmd) Name() string     { return "duplicate-project" }
func (*duplicateProjectCmd) Synopsis() string { return "copy a project as a new, not started project" }
func (*duplicateProjectCmd) Usage() string    { return "duplicate-project -id <project id>\n" }

func (c *duplicateProjectCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Project id (required)")
}

func (c *duplicateProjectCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		cp, ok, err := a.svc.DuplicateProject(ctx, c.id)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(stdout, "Added project %d (%s).\n", cp.ID, cp.Name)
		}
		reportNoOp(ok, fmt.Sprintf("project %d", c.id))
		return nil
	})
}

type deleteProjectCmd struct {
	id int64
}

func (*deleteProjectCmd) Name() string     { return "delete-project" }
func (*deleteProjectCmd) Synopsis() string { return "delete a project from the current agency" }
func (*deleteProjectCmd) Usage() string    { return "delete-project -id <project id>\n" }

func (c *deleteProjectCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.id, "id", 0, "Project id (required)")
}

func (c *deleteProjectCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		ok, err := a.svc.DeleteProject(ctx, c.id)
		if err != nil {
			return err
		}
		reportNoOp(ok, fmt.Sprintf("project %d", c.id))
		return nil
	})
}

type resetDatesCmd struct {
	passcode string
}

func (*resetDatesCmd) Name() string     { return "reset-dates" }
func (*resetDatesCmd) Synopsis() string { return "clear the activity date of every project in every agency" }
func (*resetDatesCmd) Usage() string    { return "reset-dates -passcode <ui passcode>\n" }

func (c *resetDatesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.passcode, "passcode", "", "UI passcode (required)")
}

func (c *resetDatesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if err := requirePasscode(a, c.passcode); err != nil {
			return err
		}
		if err := a.svc.ResetAllProjectDates(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "Activity dates cleared.")
		return nil
	})
}

type categoriesCmd struct{}

func (*categoriesCmd) Name() string     { return "categories" }
func (*categoriesCmd) Synopsis() string { return "list the current agency's categories" }
func (*categoriesCmd) Usage() string    { return "categories\n" }

func (*categoriesCmd) SetFlags(*flag.FlagSet) {}

func (*categoriesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		for _, c := range a.svc.CurrentAgency().Categories {
			fmt.Fprintln(stdout, c)
		}
		return nil
	})
}

type addCategoryCmd struct {
	name string
}

func (*addCategoryCmd) Name() string     { return "add-category" }
func (*addCategoryCmd) Synopsis() string { return "add a category to the current agency" }
func (*addCategoryCmd) Usage() string    { return "add-category -name <category>\n" }

func (c *addCategoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Category (required)")
}

func (c *addCategoryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if strings.TrimSpace(c.name) == "" {
			return usagef("-name is required")
		}
		_, err := a.svc.AddCategory(ctx, c.name)
		return err
	})
}

type deleteCategoryCmd struct {
	name string
}

func (*deleteCategoryCmd) Name() string     { return "delete-category" }
func (*deleteCategoryCmd) Synopsis() string { return "remove a category; its projects show as other" }
func (*deleteCategoryCmd) Usage() string    { return "delete-category -name <category>\n" }

func (c *deleteCategoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Category (required)")
}

func (c *deleteCategoryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		ok, err := a.svc.DeleteCategory(ctx, c.name)
		if err != nil {
			return err
		}
		reportNoOp(ok, "category "+c.name)
		return nil
	})
}

type summaryCmd struct{}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "show the budget summary of the current agency" }
func (*summaryCmd) Usage() string    { return "summary\n" }

func (*summaryCmd) SetFlags(*flag.FlagSet) {}

func (*summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		s := a.svc.Summary()
		fmt.Fprintf(stdout, "Agency:     %s\n", s.AgencyName)
		fmt.Fprintf(stdout, "Allocated:  %s\n", s.Allocated.StringFixed(2))
		fmt.Fprintf(stdout, "Committed:  %s\n", s.Committed.StringFixed(2))
		fmt.Fprintf(stdout, "Remaining:  %s\n", s.Remaining.StringFixed(2))
		fmt.Fprintf(stdout, "WBS total:  %s\n", s.WBSTotal.StringFixed(2))
		fmt.Fprintf(stdout, "Projects:   %d\n", s.Projects)
		for _, c := range s.ByCategory {
			label := c.Category
			if c.Uncategorized {
				label += " (uncategorized)"
			}
			fmt.Fprintf(stdout, "  %s\t%d\t%s\n", label, c.Projects, c.Budget.StringFixed(2))
		}
		for _, p := range s.ByProgress {
			fmt.Fprintf(stdout, "  %s\t%d\n", p.Level, p.Projects)
		}
		return nil
	})
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
