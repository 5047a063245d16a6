package commands

import (
	"context"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/gistapp/gist/internal/conventions"
	"github.com/gistapp/gist/internal/log"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug           bool
	NoLog           bool
	NoColor         bool
	LoggerType      string
	DataDir         string
	ConfigPath      string
	APIURL          string
	Token           string
	UserID          string
	Email           string
	StreamTransport string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger and output color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultDataDir := filepath.Join(homedir.HomeDir(), conventions.DefaultDataDir)
	app.Flag("data-dir", "Directory of the local database and configuration.").Default(defaultDataDir).StringVar(&c.DataDir)
	app.Flag("config", "Path to the YAML configuration file, by default the one inside the data directory.").StringVar(&c.ConfigPath)

	app.Flag("api-url", "Gist backend API base URL.").StringVar(&c.APIURL)
	app.Flag("token", "Bearer token of the user.").StringVar(&c.Token)
	app.Flag("user-id", "User ID, by default the subject of the token.").StringVar(&c.UserID)
	app.Flag("email", "Email address of the user, by default the one of the token.").StringVar(&c.Email)
	app.Flag("stream-transport", "Task generation status transport (sse, poll).").EnumVar(&c.StreamTransport, "sse", "poll")

	return c
}
