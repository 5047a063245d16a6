package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/gistapp/gist/internal/app/onboard"
	"github.com/gistapp/gist/internal/app/onboardreset"
	"github.com/gistapp/gist/internal/app/onboardstatus"
	"github.com/gistapp/gist/internal/app/onboardwatch"
	"github.com/gistapp/gist/internal/model"
	"github.com/gistapp/gist/internal/notify"
	"github.com/gistapp/gist/internal/onboarding"
	"github.com/gistapp/gist/internal/printer"
	"github.com/gistapp/gist/internal/tui/prompt"
)

// NewOnboardingCommand returns the parent command of the onboarding commands.
func NewOnboardingCommand(app *kingpin.Application) *kingpin.CmdClause {
	return app.Command("onboarding", "Personalize Gist and generate the first tasks.")
}

type OnboardingRunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	accessible bool
	bulkRating bool
}

// NewOnboardingRunCommand returns the interactive onboarding command.
func NewOnboardingRunCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *OnboardingRunCommand {
	c := &OnboardingRunCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("run", "Run the onboarding, resuming it where it was left.")
	c.Cmd.Flag("accessible", "Use screen reader friendly prompts.").BoolVar(&c.accessible)
	c.Cmd.Flag("bulk-rating", "Rate all the emails in a single page.").BoolVar(&c.bulkRating)

	return c
}

func (c OnboardingRunCommand) Name() string { return c.Cmd.FullCommand() }

func (c OnboardingRunCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	uc, err := c.rootCmd.user(ctx)
	if err != nil {
		return err
	}
	if uc.EmailAddress == "" {
		return fmt.Errorf("the onboarding needs the user email address, set it with --email: %w", model.ErrNotValid)
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

	streamer, err := c.rootCmd.statusClient(uc, cli)
	if err != nil {
		return err
	}

	p := c.rootCmd.newPrinter(formatTable)
	streamErrors := make(chan error, 1)
	machine, err := onboarding.NewMachine(onboarding.MachineConfig{
		UserID:       uc.UserID,
		EmailAddress: uc.EmailAddress,
		Backend:      cli,
		Sessions:     repo,
		Streamer:     streamer,
		Notifier:     notify.NewWriterNotifier(c.rootCmd.Stderr, c.rootCmd.NoColor),
		EmailLimit:   uc.Config.EmailLimit,
		EmailFolder:  uc.Config.EmailFolder,
		OnStatus: func(ev model.StatusEvent) {
			_ = p.PrintStatusEvent(ev)
		},
		OnStreamError: func(err error) {
			select {
			case streamErrors <- err:
			default:
			}
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create onboarding: %w", err)
	}
	defer machine.Close()

	prompter, err := prompt.NewHuhPrompter(prompt.HuhPrompterConfig{Accessible: c.accessible, BulkRating: c.bulkRating})
	if err != nil {
		return fmt.Errorf("could not create prompter: %w", err)
	}

	svc, err := onboard.NewService(onboard.ServiceConfig{
		Machine:      machine,
		Prompter:     prompter,
		StreamErrors: streamErrors,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	if err := svc.Run(ctx); err != nil {
		if errors.Is(err, prompt.ErrAborted) {
			return p.PrintMessage("Onboarding paused, run it again to continue where you left it.")
		}
		return fmt.Errorf("onboarding failed: %w", err)
	}

	return p.PrintMessage("Your tasks are ready, run `gist tasks list` to see them.")
}

type OnboardingStatusCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewOnboardingStatusCommand returns the onboarding status command.
func NewOnboardingStatusCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *OnboardingStatusCommand {
	c := &OnboardingStatusCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("status", "Show the onboarding progress and the task generation job status.")
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c OnboardingStatusCommand) Name() string { return c.Cmd.FullCommand() }

func (c OnboardingStatusCommand) Run(ctx context.Context) error {
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

	svc, err := onboardstatus.NewService(onboardstatus.ServiceConfig{
		Sessions: repo,
		Checker:  cli,
		Logger:   c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, onboardstatus.Request{UserID: uc.UserID})
	if err != nil {
		return fmt.Errorf("could not get onboarding status: %w", err)
	}

	return c.rootCmd.newPrinter(c.format).PrintOnboardingStatus(printer.OnboardingStatus{
		Session: res.Session,
		Job:     res.Job,
	})
}

type OnboardingWatchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewOnboardingWatchCommand returns the onboarding watch command.
func NewOnboardingWatchCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *OnboardingWatchCommand {
	c := &OnboardingWatchCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("watch", "Follow the task generation status until it finishes.")
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c OnboardingWatchCommand) Name() string { return c.Cmd.FullCommand() }

func (c OnboardingWatchCommand) Run(ctx context.Context) error {
	uc, err := c.rootCmd.user(ctx)
	if err != nil {
		return err
	}

	cli, err := c.rootCmd.backendClient(uc)
	if err != nil {
		return err
	}

	streamer, err := c.rootCmd.statusClient(uc, cli)
	if err != nil {
		return err
	}

	svc, err := onboardwatch.NewService(onboardwatch.ServiceConfig{
		Streamer: streamer,
		Logger:   c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	p := c.rootCmd.newPrinter(c.format)
	return svc.Run(ctx, onboardwatch.Request{
		OnEvent: func(ev model.StatusEvent) {
			_ = p.PrintStatusEvent(ev)
		},
	})
}

type OnboardingResetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewOnboardingResetCommand returns the onboarding reset command.
func NewOnboardingResetCommand(rootCmd *RootCommand, parent *kingpin.CmdClause) *OnboardingResetCommand {
	c := &OnboardingResetCommand{rootCmd: rootCmd}

	c.Cmd = parent.Command("reset", "Forget the local onboarding progress, the next run starts from the beginning.")

	return c
}

func (c OnboardingResetCommand) Name() string { return c.Cmd.FullCommand() }

func (c OnboardingResetCommand) Run(ctx context.Context) error {
	uc, err := c.rootCmd.user(ctx)
	if err != nil {
		return err
	}

	repo, err := c.rootCmd.repository(ctx)
	if err != nil {
		return err
	}
	defer repo.Close()

	svc, err := onboardreset.NewService(onboardreset.ServiceConfig{
		Sessions: repo,
		Logger:   c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	if err := svc.Run(ctx, onboardreset.Request{UserID: uc.UserID}); err != nil {
		return fmt.Errorf("could not reset onboarding: %w", err)
	}

	return c.rootCmd.newPrinter(formatTable).PrintMessage("Onboarding progress removed.")
}
