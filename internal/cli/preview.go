package cli

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pixclock/pkg/pipeline"
)

// upperHalf is drawn with the top pixel as foreground and the bottom pixel
// as background, so one terminal cell shows two pixel rows.
const upperHalf = "▀"

type previewOpts struct {
	output string
	at     string
	watch  bool
}

// previewCommand creates the preview command: render without a panel.
func (c *CLI) previewCommand() *cobra.Command {
	var opts previewOpts

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render a frame to the terminal or a PNG file",
		Long: `Preview renders one frame exactly as it would be sent to the panel.

With --output the encoded payload is written as a PNG file. Otherwise the
frame is drawn in the terminal using half-block characters, which needs a
true-colour terminal. --watch keeps re-rendering every tick.`,
		Example: `  pixclock preview
  pixclock preview --at 2026-10-15T21:30:00+09:00 -o night.png
  pixclock preview --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.preview(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the encoded frame to this PNG file")
	cmd.Flags().StringVar(&opts.at, "at", "", "render at this RFC 3339 time instead of now")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-render every tick until q is pressed")

	return cmd
}

func (c *CLI) preview(ctx context.Context, opts previewOpts) error {
	logger := loggerFromContext(ctx)

	now := time.Now
	if opts.at != "" {
		t, err := time.Parse(time.RFC3339, opts.at)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
		now = func() time.Time { return t }
	}

	cfg, _, err := c.loadConfig()
	if err != nil {
		return err
	}
	clk, err := buildClock(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer clk.Close()

	// A single frame waits for the weather instead of composing around it.
	budget := cfg.Weather.Timeout.Duration + time.Second
	if opts.watch {
		budget = 0
	}
	runner, err := clk.runner(nil, pipeline.Options{
		Tick:   cfg.Display.Tick.Duration,
		Budget: budget,
		Now:    now,
		Logger: logger.WithPrefix("loop"),
	})
	if err != nil {
		return err
	}

	if opts.watch {
		p := tea.NewProgram(newPreviewModel(ctx, runner, now, cfg.Display.Tick.Duration), tea.WithContext(ctx))
		_, err := p.Run()
		return err
	}

	prog := newProgress(logger)
	res, err := runner.Tick(ctx, now())
	if err != nil {
		return err
	}
	prog.done("frame rendered", "due", len(res.Due), "bytes", res.Payload.Len())
	for id, ferr := range res.Failed {
		printWarning("%s: %v", id, ferr)
	}

	if opts.output == "" {
		fmt.Print(halfBlocks(res.Frame.RGBA()))
		printStats(res.Payload.Len(), res.Payload.Level)
		return nil
	}
	if res.Dropped {
		return fmt.Errorf("frame does not fit in %d bytes", cfg.Display.MaxPayload)
	}
	if err := os.WriteFile(opts.output, res.Payload.Data, 0o644); err != nil {
		return err
	}
	printSuccess("Wrote frame")
	printFile(opts.output)
	printStats(res.Payload.Len(), res.Payload.Level)
	return nil
}

// halfBlocks draws img with two pixel rows per terminal line.
func halfBlocks(img image.Image) string {
	b := img.Bounds()
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			style := lipgloss.NewStyle().Foreground(hexColor(img.At(x, y)))
			if y+1 < b.Max.Y {
				style = style.Background(hexColor(img.At(x, y+1)))
			}
			sb.WriteString(style.Render(upperHalf))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func hexColor(c color.Color) lipgloss.Color {
	r, g, b, _ := c.RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}
