package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/notify"
	"github.com/gistapp/gist/internal/sortable"
	"github.com/gistapp/gist/internal/taskstore"
	"github.com/gistapp/gist/internal/tui/board"
)

type TasksBoardCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	refresh bool
}

// NewTasksBoardCommand returns the interactive tasks board command.
func NewTasksBoardCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *TasksBoardCommand {
	c := &TasksBoardCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("board", "Reorder the tasks interactively.")
	c.Cmd.Flag("refresh", "Ignore the local cache and fetch the tasks from the backend.").BoolVar(&c.refresh)

	return c
}

func (c TasksBoardCommand) Name() string { return c.Cmd.FullCommand() }

func (c TasksBoardCommand) Run(ctx context.Context) error {
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

	notifications := board.NewChannelNotifier(8)
	engine, err := c.rootCmd.reorderEngine(store, cli, notifications)
	if err != nil {
		return err
	}

	ctrl, err := sortable.NewController(sortable.ControllerConfig{
		Reorderer: engine,
		OnReordered: func(tasks []model.Task) {
			ids := make([]string, 0, len(tasks))
			for _, t := range tasks {
				ids = append(ids, t.ID)
			}
			store.ApplyOrder(ctx, ids)
		},
		EmptyState: sortable.EmptyState{
			Title:       "No tasks yet",
			Description: "Finish the onboarding to generate your first tasks.",
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create sortable list: %w", err)
	}

	if status := store.Load(ctx, uc.UserID, c.refresh); status == taskstore.LoadStatusFailed {
		notifications.Notify(ctx, notify.Notification{
			Level:   notify.LevelError,
			Title:   "Could not fetch the tasks",
			Message: "showing the last known ones",
		})
	}
	ctrl.SetTasks(store.Tasks())

	m, err := board.New(ctx, board.Config{
		Controller:    ctrl,
		Notifications: notifications.C(),
		NoColor:       c.rootCmd.NoColor,
	})
	if err != nil {
		return fmt.Errorf("could not create board: %w", err)
	}

	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(c.rootCmd.Stdin),
		tea.WithOutput(c.rootCmd.Stdout),
	)
	_, runErr := p.Run()

	// Let the in flight moves reach the backend before leaving.
	ctrl.Wait()

	if runErr != nil && !(errors.Is(runErr, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return fmt.Errorf("board failed: %w", runErr)
	}

	return nil
}
