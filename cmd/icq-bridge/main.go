package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/flared/icq-bridge/internal/conf"
	"github.com/flared/icq-bridge/internal/data"
	"github.com/flared/icq-bridge/internal/host"
	"github.com/flared/icq-bridge/internal/host/console"
	"github.com/flared/icq-bridge/internal/infra/icq"
	"github.com/flared/icq-bridge/internal/logging"
	"github.com/flared/icq-bridge/internal/mcp"
	"github.com/flared/icq-bridge/internal/server"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:          "icq-bridge",
	Short:        "icq-bridge - connect an ICQ account to a terminal or an MCP client",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Log in and relay chats to the terminal",
	RunE:  runRun,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in once, registering the phone number if needed",
	RunE:  runLogin,
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the account as MCP tools over stdio",
	RunE:  runMCP,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "icq-bridge", version)
	},
}

var resetFlag bool

func init() {
	loginCmd.Flags().BoolVar(&resetFlag, "reset", false, "forget stored credentials and register again")
	rootCmd.AddCommand(runCmd, loginCmd, mcpCmd, versionCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app is everything one account needs, wired from the configuration
type app struct {
	cfg     *conf.Config
	logger  *slog.Logger
	flusher *logging.BufferedHandler
	repos   *data.Repositories
	console *console.Console
	server  *server.ICQServer
}

func newApp(out io.Writer, in io.Reader) (*app, error) {
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, flusher := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel))

	opts := []icq.Option{
		icq.WithBaseURL(cfg.ICQ.APIBase),
		icq.WithPollTimeout(cfg.Poll.Timeout),
		icq.WithLogger(logging.Component(logger, "icq")),
	}
	if cfg.ICQ.DevID != "" {
		opts = append(opts, icq.WithDevID(cfg.ICQ.DevID))
	}
	client := icq.NewClient(opts...)

	repos, err := data.NewRepositories(client, cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	logger.Debug("storage opened", "db_path", cfg.Storage.DBPath)

	h := console.New(cfg.ICQ.Phone, out, in, repos.Settings, repos.Blist)

	return &app{
		cfg:     cfg,
		logger:  logger,
		flusher: flusher,
		repos:   repos,
		console: h,
		server:  server.NewICQServer(cfg, repos.ICQ, h, flusher, logger),
	}, nil
}

func (a *app) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), server.StopTimeout(a.cfg))
	defer cancel()
	if err := a.server.Stop(ctx); err != nil {
		a.logger.Warn("stop timed out", "error", err)
	}
	_ = a.flusher.Flush(ctx)
	if err := a.repos.Close(); err != nil {
		a.logger.Warn("failed to close storage", "error", err)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The console and the command loop share one reader
	in := bufio.NewReader(os.Stdin)
	a, err := newApp(cmd.OutOrStdout(), in)
	if err != nil {
		return err
	}
	defer a.stop()

	if err := a.server.Start(ctx); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), helpText)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := in.ReadString('\n')
			if line != "" {
				lines <- line
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := a.handleLine(ctx, cmd.OutOrStdout(), line); quit {
				return nil
			}
		}
	}
}

func (a *app) handleLine(ctx context.Context, out io.Writer, line string) bool {
	action, command, err := parseLine(line)
	if err != nil {
		fmt.Fprintln(out, err)
		return false
	}

	switch action {
	case actionCommand:
		if err := a.server.Dispatcher().Submit(ctx, command); err != nil {
			fmt.Fprintln(out, "command rejected:", err)
		}
	case actionAway:
		a.console.SetDisconnected(true)
		fmt.Fprintln(out, "* away, polling paused")
	case actionBack:
		a.console.SetDisconnected(false)
		fmt.Fprintln(out, "* back")
	case actionHelp:
		fmt.Fprint(out, helpText)
	case actionQuit:
		return true
	}
	return false
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(cmd.OutOrStdout(), os.Stdin)
	if err != nil {
		return err
	}
	defer a.stop()

	if resetFlag {
		if err := a.repos.Settings.ClearCredentials(ctx, a.cfg.ICQ.Phone); err != nil {
			return fmt.Errorf("failed to clear credentials: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "* stored credentials cleared")
	}

	session, err := a.server.Login(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "* logged in as %s\n", session.AimID)
	return nil
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// stdout carries the protocol, so the host prints to stderr and takes no input
	a, err := newApp(cmd.ErrOrStderr(), nil)
	if err != nil {
		return err
	}
	defer a.stop()

	if err := a.server.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("%w (run `icq-bridge login` first)", err)
	}

	chats := host.NewBlist(a.repos.Blist, a.cfg.ICQ.Phone)
	s := mcp.NewServer(version, a.server.Dispatcher(), chats, logging.Component(a.logger, "mcp"))
	a.logger.Info("mcp server listening on stdio")
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
