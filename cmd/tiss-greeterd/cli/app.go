// Package cli wires the conversation engine to a cobra/viper command line,
// the way the session daemon's own entry point wires its gRPC server.
package cli

import (
	"context"
	"fmt"
	"os"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tiss-greeter/greetd-backend/internal/consts"
	"github.com/tiss-greeter/greetd-backend/internal/engine"
	"github.com/tiss-greeter/greetd-backend/internal/powergate"
	"github.com/tiss-greeter/greetd-backend/internal/statestore"
	"github.com/tiss-greeter/greetd-backend/internal/uiproto"
	"github.com/tiss-greeter/greetd-backend/log"
)

// App encapsulates the commands and options of the greeter backend, which
// can be controlled by env variables, flags and a config file.
type App struct {
	rootCmd cobra.Command
	viper   *viper.Viper
	config  appConfig

	ready chan struct{}
}

// appConfig defines the configuration parameters read through viper. The
// domain configuration proper (sessions, profiles, power allow-lists) is
// read directly from the environment by engine.LoadConfigFromEnv, matching
// the launcher's contract in §6.
type appConfig struct {
	Verbosity int
}

// New registers commands and returns a new App.
func New() *App {
	a := App{ready: make(chan struct{})}
	a.rootCmd = cobra.Command{
		Use:   consts.CmdName,
		Short: "Graphical login greeter authentication backend",
		Long:  "Brokers an interactive PAM authentication conversation between the UI and the session daemon.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Command parsing has been successful. Returns to not print usage anymore.
			a.rootCmd.SilenceUsage = true

			if err := initViperConfig(consts.CmdName, &a.rootCmd, a.viper); err != nil {
				return err
			}
			if err := a.viper.Unmarshal(&a.config); err != nil {
				return fmt.Errorf("unable to decode configuration into struct: %w", err)
			}

			setVerboseMode(a.config.Verbosity)
			log.Debug(context.Background(), "Debug mode is enabled")

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve()
		},
		// We display usage error ourselves.
		SilenceErrors: true,
	}

	vip := viper.New()
	a.viper = vip

	installVerbosityFlag(&a.rootCmd, a.viper)
	installConfigFlag(&a.rootCmd)

	// --help skips PersistentPreRunE, so mark it as a successful parse here.
	defaultHelp := a.rootCmd.HelpFunc()
	a.rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		a.rootCmd.SilenceUsage = true
		defaultHelp(cmd, args)
	})

	a.installVersion()

	return &a
}

// serve assembles the conversation engine's collaborators and runs the
// engine to completion. This call is blocking until the conversation exits.
func (a *App) serve() error {
	ctx := context.Background()
	close(a.ready)

	log.InitJournalHandler(false)

	cfg := engine.LoadConfigFromEnv()
	if cfg.GreetdSocket == "" {
		log.Warning(ctx, "GREETD_SOCK is not set; auth requests will fail to connect")
	}

	store := statestore.New()

	conn, err := dbus.SystemBus()
	if err != nil {
		log.Warningf(ctx, "system bus unavailable, power actions will be rejected: %v", err)
	}
	gate := powergate.New(conn, cfg.PowerAllowed, cfg.PowerActions)

	reader := uiproto.NewReader(os.Stdin)
	writer := uiproto.NewWriter(os.Stdout)

	eng := engine.New(cfg, reader, writer, store, gate, pollStdin)

	if sent, err := sddaemon.SdNotify(false, sddaemon.SdNotifyReady); err != nil {
		log.Warningf(ctx, "sd_notify failed: %v", err)
	} else if sent {
		log.Debug(ctx, "notified systemd readiness")
	}

	return eng.Run()
}

// installVerbosityFlag adds the -v and -vv options and returns a reference
// to it.
func installVerbosityFlag(cmd *cobra.Command, vip *viper.Viper) *int {
	r := cmd.PersistentFlags().CountP("verbosity", "v", "issue INFO (-v) or DEBUG (-vv and above) output")
	if err := vip.BindPFlag("verbosity", cmd.PersistentFlags().Lookup("verbosity")); err != nil {
		log.Warningf(context.Background(), "could not bind verbosity flag: %v", err)
	}
	return r
}

// installVersion adds a "version" subcommand that prints consts.Version.
func (a *App) installVersion() {
	a.rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", consts.CmdName, consts.Version)
			return nil
		},
	})
}

// Run executes the command and associated process. It returns an error on
// a syntax/usage error or an unrecoverable engine failure.
func (a *App) Run() error {
	return a.rootCmd.Execute()
}

// UsageError reports whether the last error was a command parsing one.
func (a *App) UsageError() bool {
	return !a.rootCmd.SilenceUsage
}

// Hup is a no-op for this single-conversation process: there is no
// long-lived state worth dumping, and a HUP should simply be ignored.
func (a *App) Hup() (shouldQuit bool) {
	return false
}

// Quit is a no-op: the engine owns its own shutdown path (a clean EOF or a
// post-ack exit) and is not cancellable from outside.
func (a *App) Quit() {
	a.WaitReady()
}

// WaitReady blocks until the app has started serving.
func (a *App) WaitReady() {
	<-a.ready
}
