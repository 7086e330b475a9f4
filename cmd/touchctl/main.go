package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tartampluch/touch/internal/config"
	"github.com/tartampluch/touch/internal/device"
	"github.com/tartampluch/touch/internal/engine"
	"github.com/tartampluch/touch/internal/scheduler"
	"github.com/tartampluch/touch/internal/server"
)

// cli holds what every command shares. Tests swap the clock, the input and
// the fetcher.
type cli struct {
	dbPath   string
	envFile  string
	debug    bool
	settings config.Settings

	clock   engine.Clock
	in      io.Reader
	fetcher engine.ReminderFetcher
}

func main() {
	c := &cli{
		clock:   engine.RealClock{},
		in:      os.Stdin,
		fetcher: engine.NewHTTPFetcher(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(config.ExitCodeError)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          config.CLIName,
		Short:        config.CmdShortRoot,
		Version:      config.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), c.debug)

			var envFiles []string
			if c.envFile != "" {
				envFiles = append(envFiles, c.envFile)
			}
			c.settings = config.LoadSettings(envFiles...)
			if c.dbPath == "" {
				c.dbPath = c.settings.DBPath
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.dbPath, config.FlagDB, "", config.FlagDescDB)
	rootCmd.PersistentFlags().StringVar(&c.envFile, config.FlagEnvFile, "", config.FlagDescEnvFile)
	rootCmd.PersistentFlags().BoolVar(&c.debug, config.FlagDebug, false, config.FlagDescDebug)

	rootCmd.AddCommand(c.pendingCmd())
	rootCmd.AddCommand(c.enableCmd())
	rootCmd.AddCommand(c.disableCmd())
	rootCmd.AddCommand(c.statusCmd())
	rootCmd.AddCommand(c.deliverCmd())
	rootCmd.AddCommand(c.feedCmd())
	rootCmd.AddCommand(c.healthCmd())
	rootCmd.AddCommand(c.loginCmd())
	return rootCmd
}

// setupLogging keeps the terminal quiet unless --debug is set.
func setupLogging(w io.Writer, debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})).With(config.LogKeyComponent, config.CompCLI))
}

func (c *cli) openQueue(opts ...device.Option) (*device.Queue, error) {
	if dir := filepath.Dir(c.dbPath); dir != "" {
		if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrCreateDir, err)
		}
	}
	return device.Open(c.dbPath, append([]device.Option{device.WithClock(c.clock)}, opts...)...)
}

// collect gathers pending reminders from the configured source.
func (c *cli) collect(ctx context.Context) ([]engine.ReminderEntry, error) {
	token, err := config.APIToken(c.settings.APIUser)
	if err != nil {
		slog.Debug(config.MsgTokenMissing,
			config.LogKeyUser, c.settings.APIUser,
			config.LogKeyError, err)
	}

	collector := &engine.Collector{Clock: c.clock, Fetcher: c.fetcher}
	return collector.Collect(ctx, engine.SourceConfig{
		Mode:       c.settings.SourceMode,
		BackendURL: c.settings.BackendURL,
		Token:      token,
		LocalPath:  c.settings.LocalPath,
	})
}

func (c *cli) pendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: config.CmdShortPending,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := c.collect(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, config.OutPendingNone)
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, config.OutPendingRow, e.ContactName, e.Health, e.DaysOverdue, e.Message)
			}
			return nil
		},
	}
}

func (c *cli) enableCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "enable",
		Short: config.CmdShortEnable,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			prompt := func(context.Context) (bool, error) {
				if yes {
					return true, nil
				}
				fmt.Fprint(out, config.PromptPermission)
				return readYes(c.in)
			}

			q, err := c.openQueue(device.WithPermissionPrompt(prompt))
			if err != nil {
				return err
			}
			defer q.Close()

			// Without entries only the recurring notifications are
			// scheduled; queued contact reminders stay.
			s := scheduler.New(q, nil)
			entries, err := c.collect(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), config.OutWarning, err)
				err = s.EnableRecurring(cmd.Context())
			} else {
				err = s.Enable(cmd.Context(), entries)
			}
			if errors.Is(err, scheduler.ErrPermissionDenied) {
				fmt.Fprintln(out, config.OutDenied)
				return err
			}
			if s.State() == scheduler.Enabled {
				fmt.Fprintf(out, config.OutEnabled, s.LastCount())
			}
			return err
		},
	}

	cmd.Flags().BoolVarP(&yes, config.FlagYes, "y", false, config.FlagDescYes)
	return cmd
}

func (c *cli) disableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: config.CmdShortDisable,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := c.openQueue()
			if err != nil {
				return err
			}
			defer q.Close()

			if err := scheduler.New(q, nil).Disable(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), config.OutDisabled)
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: config.CmdShortStatus,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := c.openQueue()
			if err != nil {
				return err
			}
			defer q.Close()

			state, err := scheduler.New(q, nil).Refresh(cmd.Context())
			if err != nil {
				return err
			}
			list, err := q.ListScheduled(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, config.OutStatus, state, len(list))
			for _, n := range list {
				fmt.Fprintf(out, config.OutQueueRow, n.Identifier, n.Type(), n.FireAt.Format(time.RFC3339), n.Title)
			}
			return nil
		},
	}
}

func (c *cli) deliverCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "deliver",
		Short: config.CmdShortDeliver,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := c.openQueue()
			if err != nil {
				return err
			}
			defer q.Close()

			out := cmd.OutOrStdout()
			d := device.DeliverFunc(func(_ context.Context, n scheduler.Notification) error {
				_, err := fmt.Fprintf(out, config.OutDelivered, c.clock.Now().Format(time.RFC3339), n.Title, n.Body)
				return err
			})

			if watch {
				err := q.Run(cmd.Context(), config.DefaultDispatchInterval, d)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}

			n, err := q.DeliverDue(cmd.Context(), d)
			fmt.Fprintf(out, config.OutDeliverCount, n)
			return err
		},
	}

	cmd.Flags().BoolVarP(&watch, config.FlagWatch, "w", false, config.FlagDescWatch)
	return cmd
}

func (c *cli) feedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feed",
		Short: config.CmdShortFeed,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := c.openQueue()
			if err != nil {
				return err
			}
			defer q.Close()

			list, err := q.ListScheduled(cmd.Context())
			if err != nil {
				return err
			}
			data, err := server.RenderCalendar(list, c.clock.Now())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func (c *cli) healthCmd() *cobra.Command {
	var (
		last  string
		every int
		dark  bool
	)

	cmd := &cobra.Command{
		Use:   "health",
		Short: config.CmdShortHealth,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if every <= 0 {
				return errors.New(config.ErrFrequencyPositive)
			}

			var ts *time.Time
			if last != "" {
				t, err := engine.ParseTimestamp(last)
				if err != nil {
					return err
				}
				ts = &t
			}

			now := c.clock.Now()
			health := engine.ConnectionHealth(ts, every, now)
			fmt.Fprintf(cmd.OutOrStdout(), config.OutHealth,
				health,
				engine.HealthLevel(health),
				engine.HealthColorFor(health, dark),
				engine.TimeSince(ts, now),
				engine.DaysOverdue(ts, every, now),
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&last, config.FlagLast, "", config.FlagDescLast)
	cmd.Flags().IntVar(&every, config.FlagEvery, config.DefaultFrequencyDays, config.FlagDescEvery)
	cmd.Flags().BoolVar(&dark, config.FlagDark, false, config.FlagDescDark)
	return cmd
}

func (c *cli) loginCmd() *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "login",
		Short: config.CmdShortLogin,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" {
				user = c.settings.APIUser
			}
			if user == "" {
				return errors.New(config.ErrAPIUserRequired)
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, config.OutTokenPrompt)
			token, err := readLine(c.in)
			if err != nil {
				return fmt.Errorf("%s: %w", config.ErrTokenRead, err)
			}
			if token == "" {
				return errors.New(config.ErrTokenEmpty)
			}

			if err := config.StoreAPIToken(user, token); err != nil {
				return err
			}
			fmt.Fprintf(out, config.OutTokenStored, user)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, config.FlagUser, "", config.FlagDescUser)
	return cmd
}

// readLine returns the first line of r without its line ending. An empty
// input is not an error.
func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readYes reports whether the answer on r is y or yes.
func readYes(r io.Reader) (bool, error) {
	answer, err := readLine(r)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == config.AnswerYes || answer == config.AnswerYesLong, nil
}
