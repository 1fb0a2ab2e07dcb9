// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jmcdonald/savebak/internal/archive"
	"github.com/jmcdonald/savebak/internal/config"
	"github.com/jmcdonald/savebak/internal/metadata"
	"github.com/jmcdonald/savebak/internal/pagination"
	"github.com/jmcdonald/savebak/internal/tui"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	// Load reads the config at path, or the default location when path is empty.
	Load(path string) (*config.Config, error)
	Save(cfg *config.Config, path string) error
	ConfigPath() (string, error)
	DefaultConfig() (*config.Config, error)
}

// ArchiveService provides save archive operations for the CLI.
type ArchiveService interface {
	LastSaveNumber() (int, error)
	Saves() (map[int]metadata.Slot, error)
	GetSave(saveNumber int) (metadata.Slot, error)
	Save(description string) (metadata.Slot, error)
	Restore(saveNumber int) error
	SlotSize(saveNumber int) (int64, error)
	LiveDir() string
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	In      io.Reader // Standard input, for confirmations
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Injectable dependencies (nil means use defaults)
	ConfigSvc  ConfigService
	NewArchive func(cfg *config.Config, logger *slog.Logger) (ArchiveService, error)
	RunTUI     func(svc tui.Service) error

	// Global flags
	configPath string
	verbose    bool

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		In:      os.Stdin,
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	return &CLI{
		In:      strings.NewReader(""),
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(code int) {},
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// defaultConfigService wraps the config package functions.
type defaultConfigService struct{}

func (d *defaultConfigService) Load(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func (d *defaultConfigService) Save(cfg *config.Config, path string) error {
	if path != "" {
		return cfg.SaveTo(path)
	}
	return cfg.Save()
}

func (d *defaultConfigService) ConfigPath() (string, error)            { return config.ConfigPath() }
func (d *defaultConfigService) DefaultConfig() (*config.Config, error) { return config.DefaultConfig() }

// Helper methods to get the service or default
func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

func (c *CLI) newArchive(cfg *config.Config, logger *slog.Logger) (ArchiveService, error) {
	if c.NewArchive != nil {
		return c.NewArchive(cfg, logger)
	}
	return archive.NewFromConfig(cfg, logger)
}

func (c *CLI) runTUI(svc tui.Service) error {
	if c.RunTUI != nil {
		return c.RunTUI(svc)
	}
	return tui.Run(svc)
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	root := c.rootCommand()
	args := []string{}
	if len(c.Args) > 1 {
		args = c.Args[1:]
	}
	root.SetArgs(args)
	root.SetIn(c.In)
	root.SetOut(c.Out)
	root.SetErr(c.Err)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(c.Err, "%s %v\n", c.red("Error:"), err)
		c.Exit(1)
	}
}

func (c *CLI) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "savebak",
		Short: "Back up and restore game saves",
		Long: `savebak keeps numbered copies of a game's save directory.

Run without a command to open the interactive menu.`,
		Version:       c.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withArchive(func(svc ArchiveService) error {
				return c.runTUI(svc)
			})
		},
	}
	root.SetVersionTemplate("savebak v{{.Version}}\n")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ~/.savebak/config.yaml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "also log to stderr")

	ui := &cobra.Command{
		Use:     "ui",
		Aliases: []string{"tui"},
		Short:   "Open the interactive menu",
		Args:    cobra.NoArgs,
		RunE:    root.RunE,
	}

	save := &cobra.Command{
		Use:   "save <description...>",
		Short: "Copy the live save directory into a new numbered save",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withArchive(func(svc ArchiveService) error {
				return c.SaveGame(svc, strings.Join(args, " "))
			})
		},
	}

	var page, height int
	list := &cobra.Command{
		Use:   "list",
		Short: "List saves, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withArchive(func(svc ArchiveService) error {
				return c.ListSaves(svc, page, height)
			})
		},
	}
	list.Flags().IntVar(&page, "page", 1, "page to show")
	list.Flags().IntVar(&height, "height", 24, "display height used to size pages")

	var yes bool
	restore := &cobra.Command{
		Use:   "restore <save-number>",
		Short: "Copy a save's files back over the live save directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid save number: %q", args[0])
			}
			return c.withArchive(func(svc ArchiveService) error {
				return c.RestoreGame(svc, n, yes)
			})
		},
	}
	restore.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the default config file",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return c.InitConfig() },
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show configuration and archive status",
		Args:  cobra.NoArgs,
		RunE:  func(cmd *cobra.Command, args []string) error { return c.ShowStatus() },
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.Out, "savebak v%s\n", c.Version)
		},
	}

	root.AddCommand(ui, save, list, restore, initCmd, status, version)
	return root
}

// withArchive loads the config, opens the log and hands fn an archive.
func (c *CLI) withArchive(fn func(svc ArchiveService) error) error {
	cfg, err := c.configSvc().Load(c.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog, err := c.openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	svc, err := c.newArchive(cfg, logger)
	if err != nil {
		return err
	}
	return fn(svc)
}

// SaveGame captures the live directory as a new save.
func (c *CLI) SaveGame(svc ArchiveService, description string) error {
	slot, err := svc.Save(description)
	if err != nil {
		if errors.Is(err, archive.ErrSourceUnavailable) {
			return fmt.Errorf("the game save path is not available (%w)", err)
		}
		return err
	}
	fmt.Fprintf(c.Out, "%s Saved #%d %s %s\n", c.green("*"), slot.SaveNumber, slot.Description, c.gray("("+slot.Date+")"))
	return nil
}

// ListSaves prints one page of saves, newest first.
func (c *CLI) ListSaves(svc ArchiveService, page, height int) error {
	saves, err := svc.Saves()
	if err != nil {
		return err
	}

	total := len(saves)
	if total == 0 {
		fmt.Fprintln(c.Out, "No saves yet. Use 'savebak save <description>' to create one.")
		return nil
	}

	maxPage := pagination.MaxPage(total, height)
	page = pagination.Clamp(page, maxPage)
	plural := "s"
	if total == 1 {
		plural = ""
	}
	fmt.Fprintf(c.Out, "Page %d of %d (%d save%s).\n\n", page, maxPage, total, plural)
	fmt.Fprintf(c.Out, "  %5s  %-19s %9s  %s\n", "SAVE", "DATE", "SIZE", "DESCRIPTION")

	for _, slot := range pagination.PageWindow(saves, page, height) {
		size := c.gray("-")
		if n, err := svc.SlotSize(slot.SaveNumber); err == nil {
			size = humanize.Bytes(uint64(n))
		}
		fmt.Fprintf(c.Out, "  %5s  %-19s %9s  %s\n",
			c.cyan(strconv.Itoa(slot.SaveNumber)), slot.Date, size, slot.Description)
	}
	return nil
}

// RestoreGame copies a save back over the live directory, asking first
// unless yes is set.
func (c *CLI) RestoreGame(svc ArchiveService, n int, yes bool) error {
	slot, err := svc.GetSave(n)
	if err != nil {
		return err
	}

	if !yes {
		fmt.Fprintf(c.Out, "Restore save %d (%s) over %s? [y/N] ", n, slot.Description, svc.LiveDir())
		answer, _ := bufio.NewReader(c.In).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(c.Out, "Cancelled.")
			return nil
		}
	}

	if err := svc.Restore(n); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	fmt.Fprintf(c.Out, "%s Restored save #%d %s\n", c.green("*"), n, slot.Description)
	return nil
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() error {
	svc := c.configSvc()
	cfg, err := svc.DefaultConfig()
	if err != nil {
		return err
	}
	if err := svc.Save(cfg, c.configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	path := c.configPath
	if path == "" {
		if path, err = svc.ConfigPath(); err != nil {
			return err
		}
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", path)
	fmt.Fprintf(c.Out, "%s Edit live_dir to point at the game's save directory.\n", c.yellow("!"))
	return nil
}

// ShowStatus shows the current configuration and archive state.
func (c *CLI) ShowStatus() error {
	cfgSvc := c.configSvc()
	cfg, err := cfgSvc.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	path := c.configPath
	if path == "" {
		if path, err = cfgSvc.ConfigPath(); err != nil {
			return err
		}
	}

	fmt.Fprintln(c.Out, "savebak status:")
	fmt.Fprintf(c.Out, "  Live:     %s\n", cfg.LiveDir)
	fmt.Fprintf(c.Out, "  Archive:  %s\n", cfg.ArchiveDir)
	fmt.Fprintf(c.Out, "  Config:   %s\n", path)

	return c.withArchive(func(svc ArchiveService) error {
		saves, err := svc.Saves()
		if err != nil {
			fmt.Fprintf(c.Out, "  Saves:    %s\n", c.red(err.Error()))
			return nil
		}
		if len(saves) == 0 {
			fmt.Fprintf(c.Out, "  Saves:    %s\n", c.gray("none"))
			return nil
		}
		last, err := svc.LastSaveNumber()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "  Saves:    %s (last #%d)\n", c.green(strconv.Itoa(len(saves))), last)
		return nil
	})
}
