package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcus/portrait/internal/config"
	"github.com/marcus/portrait/internal/output"
)

// configSetters maps a settings key to the field it writes.
var configSetters = map[string]func(s *config.Settings, val string) error{
	"output_dir":      setString(func(s *config.Settings) *string { return &s.OutputDir }),
	"missed_log_path": setString(func(s *config.Settings) *string { return &s.MissedLogPath }),
	"log_dir":         setString(func(s *config.Settings) *string { return &s.LogDir }),
	"roster_path":     setString(func(s *config.Settings) *string { return &s.RosterPath }),

	"image.width":   setInt(func(s *config.Settings) *int { return &s.Image.Width }),
	"image.height":  setInt(func(s *config.Settings) *int { return &s.Image.Height }),
	"image.quality": setInt(func(s *config.Settings) *int { return &s.Image.Quality }),
	"image.aspect": func(s *config.Settings, val string) error {
		return s.Image.Aspect.Set(val)
	},

	"overlay.enabled": setBool(func(s *config.Settings) *bool { return &s.Overlay.Enabled }),
	"overlay.mode":    setString(func(s *config.Settings) *string { return &s.Overlay.Mode }),
	"overlay.opacity": func(s *config.Settings, val string) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", val)
		}
		s.Overlay.Opacity = f
		return nil
	},
	"overlay.image": setString(func(s *config.Settings) *string { return &s.Overlay.Image }),

	"camera.backend":     setString(func(s *config.Settings) *string { return &s.Camera.Backend }),
	"camera.device":      setInt(func(s *config.Settings) *int { return &s.Camera.Device }),
	"camera.preview_fps": setInt(func(s *config.Settings) *int { return &s.Camera.PreviewFPS }),
	"camera.timeout_ms":  setInt(func(s *config.Settings) *int { return &s.Camera.TimeoutMs }),
	"camera.gphoto2_bin": setString(func(s *config.Settings) *string { return &s.Camera.GPhoto2Bin }),
	"camera.ffmpeg_bin":  setString(func(s *config.Settings) *string { return &s.Camera.FFmpegBin }),

	"archive.max_entries": setInt(func(s *config.Settings) *int { return &s.Archive.MaxEntries }),

	"copyright.artist": setString(func(s *config.Settings) *string { return &s.Copyright.Artist }),
	"copyright.notice": setString(func(s *config.Settings) *string { return &s.Copyright.Notice }),

	"roster.class":        setColumn(func(s *config.Settings) *string { return &s.Roster.Class }),
	"roster.last_name":    setColumn(func(s *config.Settings) *string { return &s.Roster.LastName }),
	"roster.first_name":   setColumn(func(s *config.Settings) *string { return &s.Roster.FirstName }),
	"roster.student_id":   setColumn(func(s *config.Settings) *string { return &s.Roster.StudentID }),
	"roster.photographed": setColumn(func(s *config.Settings) *string { return &s.Roster.Photographed }),
	"roster.date":         setColumn(func(s *config.Settings) *string { return &s.Roster.Date }),
	"roster.reason":       setColumn(func(s *config.Settings) *string { return &s.Roster.Reason }),

	"journal.enabled": setBool(func(s *config.Settings) *bool { return &s.Journal.Enabled }),
	"journal.path":    setString(func(s *config.Settings) *string { return &s.Journal.Path }),

	"metrics.textfile": setString(func(s *config.Settings) *string { return &s.Metrics.Textfile }),
}

func setString(field func(*config.Settings) *string) func(*config.Settings, string) error {
	return func(s *config.Settings, val string) error {
		*field(s) = val
		return nil
	}
}

func setColumn(field func(*config.Settings) *string) func(*config.Settings, string) error {
	return func(s *config.Settings, val string) error {
		*field(s) = strings.ToUpper(strings.TrimSpace(val))
		return nil
	}
}

func setInt(field func(*config.Settings) *int) func(*config.Settings, string) error {
	return func(s *config.Settings, val string) error {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int value %q", val)
		}
		*field(s) = n
		return nil
	}
}

func setBool(field func(*config.Settings) *bool) func(*config.Settings, string) error {
	return func(s *config.Settings, val string) error {
		b, err := parseBool(val)
		if err != nil {
			return err
		}
		*field(s) = b
		return nil
	}
}

func parseBool(val string) (bool, error) {
	switch strings.ToLower(val) {
	case "true", "1", "ja", "yes":
		return true, nil
	case "false", "0", "nein", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q (use true/false/1/0)", val)
	}
}

func configKeys() []string {
	keys := make([]string, 0, len(configSetters))
	for k := range configSetters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// applyConfigValue sets key on a copy of s and validates the result.
func applyConfigValue(s config.Settings, key, val string) (*config.Settings, error) {
	set, ok := configSetters[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	if err := set(&s, val); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage station settings",
	GroupID: "system",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active settings as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.JSON(settings)
	},
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the settings file location",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return fail(err)
		}
		fmt.Println(abs)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a settings value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		updated, err := applyConfigValue(*settings, key, val)
		if err != nil {
			if strings.HasPrefix(err.Error(), "unknown config key") {
				fmt.Println("Valid keys:", strings.Join(configKeys(), ", "))
			}
			return fail(err)
		}
		if err := config.Save(configPath, updated); err != nil {
			return fail(fmt.Errorf("save settings: %w", err))
		}
		output.Success("set %s = %s", key, val)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:         "keys",
	Short:       "List the keys accepted by config set",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, k := range configKeys() {
			fmt.Println(k)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a settings file with defaults",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNoConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		if _, err := os.Stat(configPath); err == nil && !force {
			return fail(errors.New(configPath + " exists, use --force to overwrite"))
		}
		if err := config.Save(configPath, config.Default()); err != nil {
			return fail(err)
		}
		output.Success("wrote %s", configPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configPathCmd, configSetCmd, configKeysCmd, configInitCmd)
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
}
