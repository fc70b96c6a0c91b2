package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	// earlyinit must be listed before bubbletea so its init() runs first and
	// pre-sets lipgloss.SetHasDarkBackground; see the package doc.
	_ "github.com/Dhanuzh/arrow/internal/earlyinit"

	"github.com/charmbracelet/glamour"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Dhanuzh/arrow/internal/config"
	"github.com/Dhanuzh/arrow/internal/document"
	"github.com/Dhanuzh/arrow/internal/logging"
	"github.com/Dhanuzh/arrow/internal/provider"
	"github.com/Dhanuzh/arrow/internal/server"
	"github.com/Dhanuzh/arrow/internal/session"
	"github.com/Dhanuzh/arrow/internal/theme"
	"github.com/Dhanuzh/arrow/internal/tui"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "arrow [file[:line[:col]]]",
		Short: "Arrow AI - chat and code generation panel",
		Long: `Arrow AI is a chat panel for your editor that runs in the terminal.
Ask questions in the Chat tab, generate code in the Composer tab, and
insert it at the cursor of the open file with a single-step undo.
Append :line or :line:col to the file to place the cursor.`,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runTUI,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Flags
	rootCmd.PersistentFlags().StringP("model", "m", "", "Model to use (e.g. gpt-4, gpt-3.5-turbo)")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a config file (default: search for arrow.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	// Sub-commands
	rootCmd.AddCommand(
		serveCmd(),
		askCmd(),
		generateCmd(),
		modelsCmd(),
		configCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// TUI (default command)
// ---------------------------------------------------------------------------

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// the TUI owns the terminal, so logs always go to a file
	if cfg.LogFile == "" || cfg.LogFile == "-" {
		cfg.LogFile = filepath.Join(config.GetConfigDir(), "arrow.log")
	}
	log, closeLog, err := newLogger(cmd, cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}
	host, err := openHost(args)
	if err != nil {
		return err
	}

	th, err := theme.Get(cfg.Theme)
	if err != nil {
		log.WithError(err).Warn("falling back to default theme")
		th = theme.Default()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	sess := session.New(cfg.Model, cfg.Models)
	log.WithFields(logrus.Fields{"session": sess.ID, "model": sess.Model()}).Info("panel started")

	return tui.Run(ctx, client, tui.Options{
		Session:     sess,
		Host:        host,
		Theme:       th,
		Log:         log,
		HistoryFile: tui.DefaultHistoryFile(),
	})
}

// ---------------------------------------------------------------------------
// serve command
// ---------------------------------------------------------------------------

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [file[:line[:col]]]",
		Short: "Start the HTTP panel bridge",
		Long: `Start a headless HTTP server that editor panels talk to.
Each panel gets its own session; replies are streamed over server-sent events.
When a file is given, apply and unapply edit that file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port, _ = cmd.Flags().GetInt("port")
			}
			if h, _ := cmd.Flags().GetString("hostname"); h != "" {
				cfg.Server.Hostname = h
			}

			log, closeLog, err := newLogger(cmd, cfg, os.Stderr)
			if err != nil {
				return err
			}
			defer closeLog()

			client, err := newClient(cfg, log)
			if err != nil {
				return err
			}
			host, err := openHost(args)
			if err != nil {
				return err
			}

			srv := server.New(cfg, client, host, log)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				log.Info("shutting down panel bridge")
				if err := srv.Stop(); err != nil {
					log.WithError(err).Error("shutdown")
				}
			}()

			return srv.Start()
		},
	}
	cmd.Flags().IntP("port", "P", 4097, "Port to listen on")
	cmd.Flags().String("hostname", "", "Interface to bind (default from config)")
	return cmd
}

// ---------------------------------------------------------------------------
// ask / generate commands
// ---------------------------------------------------------------------------

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [message...]",
		Short: "Ask a single question without the TUI",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, strings.Join(args, " "), "", provider.ChatFallback, true)
		},
	}
}

func generateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate [description...]",
		Short: "Generate code from a description without the TUI",
		Long:  "Generate code and print it to stdout unmodified, so it can be piped or redirected.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return oneShot(cmd, strings.Join(args, " "), provider.GeneratePrefix, provider.GenerateFallback, false)
		},
	}
}

// oneShot sends prefix+text once and prints the reply. Markdown replies are
// rendered when stdout is a terminal.
func oneShot(cmd *cobra.Command, text, prefix, fallback string, markdown bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, closeLog, err := newLogger(cmd, cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := newClient(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reply, err := client.Complete(ctx, cfg.Model, prefix+text)
	if err != nil {
		fmt.Fprintln(os.Stderr, fallback)
		return err
	}

	out := cmd.OutOrStdout()
	if markdown {
		reply = renderForTerminal(reply, cfg.Theme)
	}
	fmt.Fprintln(out, reply)
	return nil
}

// renderForTerminal renders markdown with glamour when stdout is a TTY and
// returns text unchanged otherwise.
func renderForTerminal(text, themeName string) string {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return text
	}
	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w - 2
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(theme.MustGet(themeName).MarkdownStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

// ---------------------------------------------------------------------------
// models / config / version
// ---------------------------------------------------------------------------

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the panel can switch between",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cfg.Models) == 0 {
				fmt.Fprintf(out, "* %s (any model id accepted)\n", cfg.Model)
				return nil
			}
			for _, id := range cfg.Models {
				mark := " "
				if id == cfg.Model {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s\n", mark, id)
			}
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration (API key masked)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			file := cfg.ConfigFile()
			if file == "" {
				file = "(none, defaults and environment only)"
			}
			fmt.Fprintf(out, "Config file: %s\n\n%s\n\n%s\n", file, cfg.String(), config.GetConfigPrecedence())
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("arrow version %s (%s)\n", version, commit)
			fmt.Printf("go version %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		cfg.Model = m
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.LogLevel = "debug"
	}
}

func newLogger(cmd *cobra.Command, cfg *config.Config, fallback io.Writer) (*logrus.Logger, func() error, error) {
	log, closeFn, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	}, fallback)
	if err != nil {
		return nil, nil, err
	}
	server.Version = version
	log.WithFields(logrus.Fields{"command": cmd.Name(), "config": cfg.ConfigFile()}).Debug("configuration loaded")
	return log, closeFn, nil
}

func newClient(cfg *config.Config, log logrus.FieldLogger) (*provider.Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	backend, err := provider.NewOpenAIProvider(provider.OpenAIOptions{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return provider.NewClient(backend, cfg.Timeout, log), nil
}

// openHost opens the file named in args as the active document. With no
// file the panel still chats, but apply reports that no editor is open.
func openHost(args []string) (*document.Workspace, error) {
	if len(args) == 0 {
		return document.NewWorkspace(nil), nil
	}
	path, pos := splitLocation(args[0])
	f, err := document.OpenFile(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("cannot open %s: permission denied", path)
		}
		return nil, err
	}
	if pos != nil {
		if err := f.SetCursor(*pos); err != nil {
			return nil, err
		}
	}
	return document.NewWorkspace(f), nil
}

// splitLocation splits "path:line[:col]" into the path and a one-based
// cursor position. An argument that names an existing file is a plain path.
func splitLocation(arg string) (string, *document.Position) {
	if _, err := os.Stat(arg); err == nil {
		return arg, nil
	}
	parts := strings.Split(arg, ":")
	for _, n := range []int{2, 1} {
		if len(parts) <= n {
			continue
		}
		path := strings.Join(parts[:len(parts)-n], ":")
		pos, err := document.ParsePosition(strings.Join(parts[len(parts)-n:], ":"))
		if err == nil && path != "" {
			return path, &pos
		}
	}
	return arg, nil
}
