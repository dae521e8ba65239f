// Command ftlq queries the Pi-hole FTL API from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andreyvit/ftl"
)

type app struct {
	configPath string
	endpoint   string
	format     string
	verbose    bool

	cfg    Config
	logger zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "ftlq",
		Short:         "Query the Pi-hole FTL statistics API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file")
	root.PersistentFlags().StringVar(&a.endpoint, "addr", "", "backend endpoint, e.g. unix:/run/FTL.sock or tcp:127.0.0.1:4711")
	root.PersistentFlags().StringVarP(&a.format, "format", "f", "table", "output format: table or json")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log session details")

	for _, qc := range queryCommands {
		root.AddCommand(a.newQueryCmd(qc))
	}
	root.AddCommand(a.newDashboardCmd())
	root.AddCommand(a.newCaptureCmd())
	root.AddCommand(a.newCapturesCmd())
	root.AddCommand(a.newReplayCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	if a.endpoint != "" {
		cfg.Backend.Network, cfg.Backend.Addr = parseEndpoint(a.endpoint)
	}
	if a.verbose {
		cfg.Log.Verbose = true
		if cfg.Log.Level == "info" {
			cfg.Log.Level = "debug"
		}
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}
	lvl, err := parseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	switch a.format {
	case "table", "json":
	default:
		return fmt.Errorf("unknown output format %q", a.format)
	}
	a.cfg = cfg
	a.logger = initLogger(cmd.ErrOrStderr(), lvl)
	return nil
}

func (a *app) ftlConfig() ftl.Config {
	c := a.cfg.ftlConfig()
	c.Logf = logfFor(a.logger)
	return c
}

func (a *app) client() (*ftl.Client, error) {
	return ftl.NewClient(a.ftlConfig())
}

type queryCommand struct {
	use   string
	wire  string
	short string
}

var queryCommands = []queryCommand{
	{"summary", ftl.CmdSummary, "Show aggregate statistics"},
	{"over-time", ftl.CmdOverTime, "Show queries over time"},
	{"top-domains", ftl.CmdTopDomains, "Show the most queried domains"},
	{"top-blocked", ftl.CmdTopBlocked, "Show the most blocked domains"},
	{"top-clients", ftl.CmdTopClients, "Show the most active clients"},
	{"history", ftl.CmdHistory, "Show the query log"},
	{"dbstats", ftl.CmdDBStats, "Show long-term database statistics"},
}

func (a *app) newQueryCmd(qc queryCommand) *cobra.Command {
	return &cobra.Command{
		Use:   qc.use,
		Short: qc.short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			result, err := c.Run(cmd.Context(), qc.wire)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), result)
		},
	}
}

func (a *app) newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Fetch summary, over-time and top lists in parallel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			d, err := c.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			a.logger.Debug().Uint64("commands", c.CommandCount.Load()).Int64("bytes", c.BytesRead.Load()).Msg("dashboard fetched")
			return a.print(cmd.OutOrStdout(), d)
		},
	}
}
