package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pixclock/pkg/errors"
	"github.com/matzehuels/pixclock/pkg/transport"
)

// scanCommand creates the scan command: find a panel and report it.
func (c *CLI) scanCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Look for a panel advertising a known name prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.scan(cmd.Context(), transport.NewBluetoothAdapter(), timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "give up after this long (default ble.scan_timeout)")

	return cmd
}

func (c *CLI) scan(ctx context.Context, adapter transport.Adapter, timeout time.Duration) error {
	cfg, _, err := c.loadConfig()
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = cfg.BLE.ScanTimeout.Duration
	}
	prefixes := cfg.BLE.Prefixes()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	spin := newSpinner(ctx, fmt.Sprintf("Scanning for %s...", strings.Join(prefixes, ", "))).start()
	prog := newProgress(loggerFromContext(ctx))
	dev, err := adapter.Scan(ctx, prefixes)
	if err != nil {
		spin.fail("No panel found")
		if spin.expired() {
			printDetail("Gave up after %s", timeout)
		}
		if errors.Is(err, errors.ErrCodeDeviceNotFound) {
			printDetail("Is the panel powered and not connected to another host?")
		}
		return err
	}
	spin.stop()
	prog.done("scan finished", "device", dev.Name)

	printSuccess("Found %s", dev.Name)
	printKeyValue("Name", dev.Name)
	printKeyValue("Address", dev.Address)
	printNextStep("Start the clock", "pixclock run")
	return nil
}
