// Command budgetctl manages agencies, projects and budgets from the command
// line. State lives in the configured local cache and, when signed in, is
// mirrored to the remote store.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var exitFunc = os.Exit

func main() {
	commander := newCommander(flag.CommandLine, path.Base(os.Args[0]))
	flag.Parse()
	exitFunc(int(commander.Execute(context.Background())))
}

// newCommander registers the global flags on fs and every subcommand.
func newCommander(fs *flag.FlagSet, name string) *subcommands.Commander {
	registerGlobalFlags(fs)
	c := subcommands.NewCommander(fs, name)
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&agenciesCmd{}, "agencies")
	c.Register(&addAgencyCmd{}, "agencies")
	c.Register(&switchAgencyCmd{}, "agencies")
	c.Register(&renameAgencyCmd{}, "agencies")
	c.Register(&setAgencyPasscodeCmd{}, "agencies")
	c.Register(&deleteAgencyCmd{}, "agencies")
	c.Register(&setBudgetCmd{}, "agencies")
	c.Register(&clearCmd{}, "agencies")

	c.Register(&projectsCmd{}, "projects")
	c.Register(&addProjectCmd{}, "projects")
	c.Register(&updateProjectCmd{}, "projects")
	c.Register(&duplicateProjectCmd{}, "projects")
	c.Register(&deleteProjectCmd{}, "projects")
	c.Register(&resetDatesCmd{}, "projects")
	c.Register(&categoriesCmd{}, "projects")
	c.Register(&addCategoryCmd{}, "projects")
	c.Register(&deleteCategoryCmd{}, "projects")
	c.Register(&summaryCmd{}, "projects")

	c.Register(&whoamiCmd{}, "access")
	c.Register(&loginReaderCmd{}, "access")
	c.Register(&loginDemoCmd{}, "access")
	c.Register(&signUpCmd{}, "access")
	c.Register(&signInCmd{}, "access")
	c.Register(&logoutCmd{}, "access")
	c.Register(&changePasswordCmd{}, "access")
	c.Register(&changePasscodeCmd{}, "access")

	c.Register(&uploadCmd{}, "sync")
	return c
}
