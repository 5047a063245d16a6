package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/gistapp/gist/internal/app/tasklist"
	"github.com/gistapp/gist/internal/app/taskmove"
	"github.com/gistapp/gist/internal/notify"
	"github.com/gistapp/gist/internal/taskstore"
)

// NewTasksCommand returns the parent command of the task commands.
func NewTasksCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("tasks", "Manage the prioritized tasks.")
}

type TasksListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	refresh        bool
	classification string
	format         string
}

// NewTasksListCommand returns the tasks list command.
func NewTasksListCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TasksListCommand {
	c := &TasksListCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("list", "List the tasks in display order.")
	c.Cmd.Flag("refresh", "Ignore the local cache and fetch the tasks from the backend.").BoolVar(&c.refresh)
	c.Cmd.Flag("classification", "Only show the tasks of this classification (e.g. Main, Drawer).").StringVar(&c.classification)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c TasksListCommand) Name() string { return c.Cmd.FullCommand() }

func (c TasksListCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	uc, err := c.rootCmd.user(ctx)
	if err != nil {
		return err
	}

	repo, err := c.rootCmd.repository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	cli, err := c.rootCmd.backendClient(uc)
	if err != nil {
		return err
	}

	store, err := c.rootCmd.taskStore(repo, cli)
	if err != nil {
		return err
	}

	svc, err := tasklist.NewService(tasklist.ServiceConfig{Store: store, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, tasklist.Request{
		UserID:         uc.UserID,
		Refresh:        c.refresh,
		Classification: c.classification,
	})
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	if res.Status == taskstore.LoadStatusFailed {
		notify.NewWriterNotifier(c.rootCmd.Stderr, c.rootCmd.NoColor).Notify(ctx, notify.Notification{
			Level:   notify.LevelError,
			Title:   "Could not fetch the tasks",
			Message: "showing the last known ones",
		})
	}

	p := c.rootCmd.newPrinter(c.format)
	if len(res.Tasks) == 0 && c.format == formatTable {
		return p.PrintMessage("No tasks yet.")
	}

	if err := p.PrintTasks(res.Tasks); err != nil {
		return fmt.Errorf("could not print tasks: %w", err)
	}

	return nil
}

type TasksMoveCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID   string
	targetID string
}

// NewTasksMoveCommand returns the tasks move command.
func NewTasksMoveCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TasksMoveCommand {
	c := &TasksMoveCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("move", "Move a task to the position of another one and send the ranking feedback.")
	c.Cmd.Arg("task", "ID of the task to move.").Required().StringVar(&c.taskID)
	c.Cmd.Arg("target", "ID of the task whose position the moved task takes.").Required().StringVar(&c.targetID)

	return c
}

func (c TasksMoveCommand) Name() string { return c.Cmd.FullCommand() }

func (c TasksMoveCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	uc, err := c.rootCmd.user(ctx)
	if err != nil {
		return err
	}

	repo, err := c.rootCmd.repository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	cli, err := c.rootCmd.backendClient(uc)
	if err != nil {
		return err
	}

	store, err := c.rootCmd.taskStore(repo, cli)
	if err != nil {
		return err
	}

	engine, err := c.rootCmd.reorderEngine(store, cli, notify.NewWriterNotifier(c.rootCmd.Stderr, c.rootCmd.NoColor))
	if err != nil {
		return err
	}

	svc, err := taskmove.NewService(taskmove.ServiceConfig{
		Store:     store,
		Reorderer: engine,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, taskmove.Request{
		UserID:   uc.UserID,
		TaskID:   c.taskID,
		TargetID: c.targetID,
	})
	if err != nil {
		return fmt.Errorf("could not move task: %w", err)
	}

	p := c.rootCmd.newPrinter(formatTable)
	if !res.Moved {
		return p.PrintMessage("Nothing to move.")
	}

	return p.PrintTasks(res.Tasks)
}
