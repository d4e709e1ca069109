package content

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"

	"github.com/matzehuels/pixclock/pkg/errors"
	"github.com/matzehuels/pixclock/pkg/render"
	"github.com/matzehuels/pixclock/pkg/schedule"
)

// imageExts are the file extensions loaded from the background directory.
var imageExts = []string{".png", ".jpg", ".jpeg", ".bmp", ".gif"}

// posterizeMask keeps the top 4 bits of each channel.
const posterizeMask = 0xF0

// BackgroundOptions configures the image background.
type BackgroundOptions struct {
	Dir        string
	Brightness float64 // 0..1 multiplier; 0 means 1
	Logger     *log.Logger
}

// Background rotates through the images in a directory, advancing one
// image per refresh. Images are prepared once at load: fitted to the frame,
// dimmed and posterised.
type Background struct {
	opts   BackgroundOptions
	logger *log.Logger

	mu      sync.RWMutex
	images  []image.Image
	names   []string
	next    int
	current Fragment
}

var _ Provider = (*Background)(nil)

// NewBackground returns a background provider for opts.Dir. Call
// [Background.Load] before use.
func NewBackground(opts BackgroundOptions) *Background {
	if opts.Brightness <= 0 || opts.Brightness > 1 {
		opts.Brightness = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	return &Background{opts: opts, logger: logger}
}

// Load reads every supported image in the directory in name order and
// returns how many were usable. A missing directory loads nothing.
// Unreadable files are skipped with a warning.
func (b *Background) Load() (int, error) {
	entries, err := os.ReadDir(b.opts.Dir)
	if os.IsNotExist(err) {
		b.logger.Warn("background directory not found", "dir", b.opts.Dir)
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read background directory")
	}

	var (
		images []image.Image
		names  []string
	)
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		path := filepath.Join(b.opts.Dir, e.Name())
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			b.logger.Warn("skipping background", "file", e.Name(), "err", err)
			continue
		}
		images = append(images, PrepareBackground(img, b.opts.Brightness))
		names = append(names, e.Name())
		b.logger.Debug("background loaded", "file", e.Name())
	}

	b.mu.Lock()
	b.images, b.names, b.next = images, names, 0
	b.mu.Unlock()
	return len(images), nil
}

// Len returns the number of loaded images.
func (b *Background) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.images)
}

func (b *Background) ID() schedule.ID { return BackgroundID }

// Refresh advances to the next image.
func (b *Background) Refresh(_ context.Context, _ time.Time) (Fragment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.images) == 0 {
		return b.current, errors.New(errors.ErrCodeInvalidConfig, "no background images in %s", b.opts.Dir)
	}
	i := b.next % len(b.images)
	b.next = i + 1
	b.current = Fragment{Background: b.images[i]}
	b.logger.Debug("background rotated", "file", b.names[i])
	return b.current, nil
}

// Current returns the image on screen.
func (b *Background) Current() Fragment {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// PrepareBackground fits img to the frame. Images at least as large as the
// frame are scaled to fill it and cropped at the centre; smaller pixel art
// is centred unscaled on its dominant corner colour. The result is scaled
// by brightness and posterised to 4 bits per channel.
func PrepareBackground(img image.Image, brightness float64) *image.NRGBA {
	var fitted *image.NRGBA
	size := img.Bounds().Size()
	if size.X >= render.Size && size.Y >= render.Size {
		fitted = imaging.Fill(img, render.Size, render.Size, imaging.Center, imaging.Lanczos)
	} else {
		canvas := imaging.New(render.Size, render.Size, cornerColor(img))
		fitted = imaging.OverlayCenter(canvas, img, 1)
	}
	return imaging.AdjustFunc(fitted, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: scaleChannel(c.R, brightness) & posterizeMask,
			G: scaleChannel(c.G, brightness) & posterizeMask,
			B: scaleChannel(c.B, brightness) & posterizeMask,
			A: 255,
		}
	})
}

func scaleChannel(v uint8, f float64) uint8 {
	return uint8(min(float64(v)*f+0.5, 255))
}

// cornerColor returns the most common of the four corner colours, ties
// going to the earliest corner (top-left, top-right, bottom-left,
// bottom-right).
func cornerColor(img image.Image) color.NRGBA {
	r := img.Bounds()
	corners := []image.Point{
		{r.Min.X, r.Min.Y},
		{r.Max.X - 1, r.Min.Y},
		{r.Min.X, r.Max.Y - 1},
		{r.Max.X - 1, r.Max.Y - 1},
	}
	var (
		colors []color.NRGBA
		counts = map[color.NRGBA]int{}
	)
	for _, p := range corners {
		c := color.NRGBAModel.Convert(img.At(p.X, p.Y)).(color.NRGBA)
		c.A = 255
		if counts[c] == 0 {
			colors = append(colors, c)
		}
		counts[c]++
	}
	best := colors[0]
	for _, c := range colors[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}
