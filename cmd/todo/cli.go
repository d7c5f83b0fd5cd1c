package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"todovoice/internal/recurrence"
	"todovoice/internal/repository"
	"todovoice/internal/storage"
	"todovoice/internal/task"
	"todovoice/internal/transfer"
)

// Args represents parsed command line arguments
type Args struct {
	ConfigPath string
	Verbose    bool

	AddTask string
	Every   string
	List    bool

	ImportFile string
	ExportFile string

	Purge bool
	Yes   bool
}

func parseArgs(argv []string, stderr io.Writer) (*Args, error) {
	args := &Args{}
	fs := flag.NewFlagSet("todo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&args.ConfigPath, "config", "", "Path to configuration file")
	fs.BoolVar(&args.Verbose, "verbose", false, "Enable debug logging")

	fs.StringVar(&args.AddTask, "add", "", "Add a new task")
	fs.StringVar(&args.Every, "every", "", "Repeat the added task: daily, weekly, monthly, yearly or a number of days")
	fs.BoolVar(&args.List, "list", false, "Print active tasks grouped by day")

	fs.StringVar(&args.ImportFile, "import", "", "Import tasks from a .json or .yaml file")
	fs.StringVar(&args.ExportFile, "export", "", "Export tasks to a .json, .yaml or .txt file")

	fs.BoolVar(&args.Purge, "purge", false, "Remove every task in the configured namespace")
	fs.BoolVar(&args.Yes, "yes", false, "Skip the -purge confirmation")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	if args.Every != "" && args.AddTask == "" {
		return nil, errors.New("-every needs -add")
	}
	if args.Yes && !args.Purge {
		return nil, errors.New("-yes needs -purge")
	}
	return args, nil
}

type app struct {
	repo  *repository.Repository
	store *storage.Store
	now   task.Clock
	in    io.Reader
	out   io.Writer
}

// handle runs the one-shot command named by args. It reports false when
// there is none and the UI should start.
func (a *app) handle(args *Args) (bool, error) {
	switch {
	case args.Purge:
		return true, a.purge(args.Yes)
	case args.AddTask != "":
		return true, a.add(args.AddTask, args.Every)
	case args.ImportFile != "":
		return true, a.importFile(args.ImportFile)
	case args.ExportFile != "":
		return true, a.exportFile(args.ExportFile)
	case args.List:
		a.repo.CheckDue()
		return true, a.list()
	}
	return false, nil
}

func (a *app) add(text, every string) error {
	var rec *task.Recurrence
	if every != "" {
		iv, err := task.ParseInterval(every)
		if err != nil {
			return err
		}
		rec = &task.Recurrence{Interval: iv, NextDate: a.now()}
	}
	t, err := a.repo.CreateTask(text, rec)
	if err != nil {
		return err
	}
	if err := a.repo.Add(t); err != nil {
		return err
	}
	spawned := a.repo.CheckDue()
	fmt.Fprintf(a.out, "Added task #%d: %s\n", t.ID, t.Text)
	if len(spawned) > 0 {
		fmt.Fprintf(a.out, "%d recurring task(s) due\n", len(spawned))
	}
	return nil
}

func (a *app) list() error {
	groups := a.repo.Groups()
	if len(groups) == 0 {
		_, err := fmt.Fprintln(a.out, "No tasks.")
		return err
	}
	var b strings.Builder
	now := a.now()
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(repository.FormatDate(g.Day, now, a.repo.Location()) + "\n")
		for _, t := range g.Tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			fmt.Fprintf(&b, "  [%s] %s", mark, t.Text)
			if t.Recurring != nil {
				fmt.Fprintf(&b, " (%s)", recurrence.FormatInterval(t.Recurring.Interval))
			}
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(a.out, b.String())
	return err
}

func (a *app) exportFile(path string) error {
	format, err := transfer.FormatFromPath(path)
	if err != nil {
		return err
	}
	a.repo.CheckDue()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := transfer.Export(f, a.repo.All(), format, a.repo.Location()); err != nil {
		f.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported tasks to %s\n", path)
	return nil
}

func (a *app) importFile(path string) error {
	format, err := transfer.FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	tasks, err := transfer.Import(f, format)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	n, err := a.repo.Import(tasks)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	a.repo.CheckDue()
	fmt.Fprintf(a.out, "Imported %d task(s) from %s\n", n, path)
	return nil
}

func (a *app) purge(yes bool) error {
	key := a.store.Key()
	if !yes {
		fmt.Fprintf(a.out, "Remove all tasks in namespace %q? [y/N]: ", key)
		reader := bufio.NewReader(a.in)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(a.out, "Purge cancelled.")
			return nil
		}
	}
	if err := a.store.Purge(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed all tasks in namespace %q\n", key)
	return nil
}
