package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/pixclock/pkg/config"
	"github.com/matzehuels/pixclock/pkg/observability"
	"github.com/matzehuels/pixclock/pkg/pipeline"
	"github.com/matzehuels/pixclock/pkg/status"
	"github.com/matzehuels/pixclock/pkg/transport"
)

type runOpts struct {
	listen string
	noBLE  bool
}

// runCommand creates the run command: the long-running clock.
func (c *CLI) runCommand() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the display until interrupted",
		Long: `Run renders a frame every tick and streams it to the first panel found.

The loop keeps rendering while the panel is disconnected; frames produced
without a link are dropped and the transport reconnects on its own.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runClock(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "", "serve the status endpoint on this address (overrides status.listen)")
	cmd.Flags().BoolVar(&opts.noBLE, "no-ble", false, "render without a panel")

	return cmd
}

func (c *CLI) runClock(ctx context.Context, opts runOpts) error {
	logger := loggerFromContext(ctx)

	cfg, path, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger.Debug("config loaded", "path", path)
	if opts.listen != "" {
		cfg.Status.Listen = opts.listen
	}

	clk, err := buildClock(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer clk.Close()

	var adapter transport.Adapter
	if !opts.noBLE {
		adapter = transport.NewBluetoothAdapter()
	}
	plan, err := newRunPlan(clk, cfg, opts, adapter, logger)
	if err != nil {
		return err
	}
	logger.Info("pixclock running",
		"prefixes", cfg.BLE.Prefixes(),
		"tick", cfg.Display.Tick.Duration,
		"sky", clk.dynamic)
	return plan.run(ctx)
}

// runPlan holds everything the run command starts. Building it starts
// nothing, so a wiring error leaves no goroutine behind.
type runPlan struct {
	runner *pipeline.Runner
	link   *transport.Transport
	status *status.Server
	listen string
	drain  time.Duration
	logger *log.Logger
}

func newRunPlan(clk *clock, cfg config.Config, opts runOpts, adapter transport.Adapter, logger *log.Logger) (*runPlan, error) {
	p := &runPlan{
		listen: cfg.Status.Listen,
		drain:  cfg.Weather.Timeout.Duration + time.Second,
		logger: logger,
	}

	var sink pipeline.Sink
	if !opts.noBLE {
		p.link = transport.New(adapter, transport.Options{
			Prefixes:          cfg.BLE.Prefixes(),
			ScanTimeout:       cfg.BLE.ScanTimeout.Duration,
			ReconnectInterval: cfg.BLE.ReconnectInterval.Duration,
			AckTimeout:        cfg.BLE.AckTimeout.Duration,
			Brightness:        cfg.Display.Brightness,
			PowerOffOnExit:    cfg.Display.PowerOffOnExit,
			Logger:            logger.WithPrefix("transport"),
		})
		sink = p.link
	}

	runner, err := clk.runner(sink, pipeline.Options{
		Tick:   cfg.Display.Tick.Duration,
		Logger: logger.WithPrefix("loop"),
	})
	if err != nil {
		return nil, err
	}
	p.runner = runner

	if p.listen != "" {
		p.status = status.New(status.Options{Logger: logger.WithPrefix("status")})
	}
	return p, nil
}

// run starts the loops and blocks until they stop, then waits for
// refreshes still in flight so none touches the cache after it closes.
func (p *runPlan) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	if p.status != nil {
		observability.SetTickHooks(p.status)
		observability.SetTransportHooks(p.status)
		defer observability.Reset()
		g.Go(func() error { return p.status.ListenAndServe(gctx, p.listen) })
	}
	if p.link != nil {
		g.Go(func() error { return p.link.Run(gctx) })
	}
	g.Go(func() error { return p.runner.Run(gctx) })

	err := g.Wait()

	dctx, cancel := context.WithTimeout(context.Background(), p.drain)
	defer cancel()
	if werr := p.runner.Wait(dctx); werr != nil {
		p.logger.Warn("refreshes still running at exit", "err", werr)
	}
	return err
}
