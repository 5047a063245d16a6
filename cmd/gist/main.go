package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/gistapp/gist/cmd/gist/commands"
	"github.com/gistapp/gist/internal/log"
	loglogrus "github.com/gistapp/gist/internal/log/logrus"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("gist", "Gist prioritized tasks client.")
	app.DefaultEnvars()
	rootCmd := commands.NewRootCommand(app)

	// Task subcommands share a parent command.
	tasksCmd := commands.NewTasksCommand(app)
	tasksListCmd := commands.NewTasksListCommand(rootCmd, tasksCmd)
	tasksMoveCmd := commands.NewTasksMoveCommand(rootCmd, tasksCmd)
	tasksBoardCmd := commands.NewTasksBoardCommand(rootCmd, tasksCmd)

	// Onboarding subcommands share a parent command.
	onboardingCmd := commands.NewOnboardingCommand(app)
	onboardingRunCmd := commands.NewOnboardingRunCommand(rootCmd, onboardingCmd)
	onboardingStatusCmd := commands.NewOnboardingStatusCommand(rootCmd, onboardingCmd)
	onboardingWatchCmd := commands.NewOnboardingWatchCommand(rootCmd, onboardingCmd)
	onboardingResetCmd := commands.NewOnboardingResetCommand(rootCmd, onboardingCmd)

	cmds := map[string]commands.Command{
		tasksListCmd.Name():        tasksListCmd,
		tasksMoveCmd.Name():        tasksMoveCmd,
		tasksBoardCmd.Name():       tasksBoardCmd,
		onboardingRunCmd.Name():    onboardingRunCmd,
		onboardingStatusCmd.Name(): onboardingStatusCmd,
		onboardingWatchCmd.Name():  onboardingWatchCmd,
		onboardingResetCmd.Name():  onboardingResetCmd,
	}

	// Parse command.
	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	// Set standard input/output.
	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Printed and interactive output would be mixed with the logs, only log
	// on these when debugging.
	quietCommands := map[string]bool{
		"tasks list":        true,
		"tasks board":       true,
		"onboarding run":    true,
		"onboarding status": true,
		"onboarding watch":  true,
	}
	if quietCommands[cmdName] && !rootCmd.Debug {
		rootCmd.NoLog = true
	}

	// Set logger.
	rootCmd.Logger = getLogger(ctx, *rootCmd)

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				err := cmds[cmdName].Run(ctx)
				if err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// getLogger returns the application logger.
func getLogger(ctx context.Context, config commands.RootCommand) log.Logger {
	if config.NoLog {
		return log.Noop
	}

	// If logger not disabled use logrus logger.
	logrusLog := logrus.New()
	logrusLog.Out = config.Stderr // By default logger goes to stderr (so it can split stdout prints).
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if config.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	// Log format.
	switch config.LoggerType {
	case commands.LoggerTypeDefault:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !config.NoColor,
			DisableColors: config.NoColor,
		})
	case commands.LoggerTypeJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled") // Will log only when debug enabled.

	return logger
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
