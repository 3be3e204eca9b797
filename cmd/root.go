package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/marcus/portrait/internal/config"
	"github.com/marcus/portrait/internal/logging"
	"github.com/marcus/portrait/internal/output"
)

// Command annotations
const (
	// annotationTUI keeps logs off the terminal while the station runs.
	annotationTUI = "tui"
	// annotationNoConfig skips loading the settings file.
	annotationNoConfig = "no-config"
)

var (
	version string

	configPath string
	logLevel   string
	logFormat  string

	settings  *config.Settings
	logger    *slog.Logger
	logCloser io.Closer
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "portrait",
	Short: "Roster-driven photo capture station",
	Long: `portrait - a photo station for school portrait days.

Walks through a class roster person by person, captures and crops a
portrait for each, records no-shows and packs every class into zip
archives when it is done.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// reported marks an error that was already shown to the user.
type reported struct{ error }

func (r reported) Unwrap() error { return r.error }

// fail prints err and returns it marked as reported.
func fail(err error) error {
	output.Error("%v", err)
	return reported{err}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var r reported
		if !errors.As(err, &r) {
			output.Error("%v", err)
		}
		os.Exit(1)
	}
}

// nameWithAliases returns "name, alias1, alias2" if aliases exist, else just "name"
func nameWithAliases(cmd *cobra.Command) string {
	if len(cmd.Aliases) > 0 {
		return cmd.Name() + ", " + strings.Join(cmd.Aliases, ", ")
	}
	return cmd.Name()
}

func init() {
	cobra.AddTemplateFunc("nameWithAliases", nameWithAliases)
	cobra.AddTemplateFunc("add", func(a, b int) int { return a + b })

	usageTemplate := `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad (nameWithAliases .) (add .NamePadding 8)}} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`
	rootCmd.SetUsageTemplate(usageTemplate)

	rootCmd.AddGroup(
		&cobra.Group{ID: "station", Title: "Station Commands:"},
		&cobra.Group{ID: "data", Title: "Roster and Report Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", config.DefaultPath, "settings file (env PORTRAIT_CONFIG)")
	pf.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error (env PORTRAIT_LOG_LEVEL)")
	pf.StringVar(&logFormat, "log-format", "text", "log format: text or json (env PORTRAIT_LOG_FORMAT)")
}

// envOverride sets a flag from an environment variable unless the flag
// was given on the command line.
func envOverride(cmd *cobra.Command, flag, env string) bool {
	if cmd.Flags().Changed(flag) {
		return true
	}
	v, ok := os.LookupEnv(env)
	if !ok || v == "" {
		return false
	}
	if err := cmd.Flags().Set(flag, v); err != nil {
		output.Warning("ignoring %s: %v", env, err)
		return false
	}
	return true
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fail(fmt.Errorf("load .env: %w", err))
	}
	envOverride(cmd, "config", "PORTRAIT_CONFIG")
	levelSet := envOverride(cmd, "log-level", "PORTRAIT_LOG_LEVEL")
	envOverride(cmd, "log-format", "PORTRAIT_LOG_FORMAT")

	if cmd.Annotations[annotationNoConfig] == "true" {
		logger = slog.Default()
		return nil
	}

	s, err := config.Load(configPath)
	if err != nil {
		return fail(fmt.Errorf("settings %s: %w", configPath, err))
	}
	settings = s

	// The terminal belongs to the station while it runs; other commands
	// echo logs to stderr when a level was asked for explicitly.
	l, closer, err := logging.Setup(logging.Options{
		Dir:    s.LogDir,
		Level:  logLevel,
		Format: logFormat,
		Stderr: levelSet && cmd.Annotations[annotationTUI] != "true",
	})
	if err != nil {
		return fail(err)
	}
	logger, logCloser = l, closer
	logger.Debug("command start", "command", cmd.CommandPath(), "version", version)
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if logCloser != nil {
		return logCloser.Close()
	}
	return nil
}
