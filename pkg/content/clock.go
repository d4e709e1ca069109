package content

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/matzehuels/pixclock/pkg/render"
	"github.com/matzehuels/pixclock/pkg/schedule"
)

// DefaultDateFormat renders "10/15 Thu".
const DefaultDateFormat = "MM/DD ddd"

// Text colours.
var (
	TimeColor     = color.RGBA{255, 255, 255, 255}
	MeridiemColor = color.RGBA{255, 255, 255, 255}
	SecondsColor  = color.RGBA{200, 200, 200, 255}
)

// WeekdayColors maps each weekday to its date colour.
var WeekdayColors = map[time.Weekday]color.RGBA{
	time.Monday:    {255, 255, 255, 255},
	time.Tuesday:   {255, 255, 255, 255},
	time.Wednesday: {255, 255, 255, 255},
	time.Thursday:  {255, 255, 255, 255},
	time.Friday:    {255, 255, 255, 255},
	time.Saturday:  {80, 130, 255, 255},
	time.Sunday:    {255, 80, 80, 255},
}

// Clock layout.
var (
	TimePlace = render.At(render.TopLeft, 2, 2)
	DatePlace = render.At(render.TopRight, 1, 18)
)

// DateKerning is the extra spacing between date characters.
const DateKerning = -1

// ClockOptions configures the clock text.
type ClockOptions struct {
	Format24h   bool
	ShowSeconds bool
	BlinkColon  bool
	DateFormat  string
}

// Clock renders the time and date. It never fails.
type Clock struct {
	opts ClockOptions

	mu      sync.RWMutex
	current Fragment
}

// NewClock returns a clock provider already rendered for the current
// time, so Current is usable before the first Refresh. An empty DateFormat
// selects [DefaultDateFormat].
func NewClock(opts ClockOptions) *Clock {
	if opts.DateFormat == "" {
		opts.DateFormat = DefaultDateFormat
	}
	c := &Clock{opts: opts}
	c.Refresh(context.Background(), time.Now())
	return c
}

var _ Provider = (*Clock)(nil)

func (c *Clock) ID() schedule.ID { return ClockID }

// Refresh renders the clock for now.
func (c *Clock) Refresh(_ context.Context, now time.Time) (Fragment, error) {
	f := Fragment{Layers: []render.Layer{
		render.TextLayer("time", TimePlace, c.TimeText(now)),
		render.TextLayer("date", DatePlace, c.DateText(now)),
	}}
	c.mu.Lock()
	c.current = f
	c.mu.Unlock()
	return f, nil
}

// Current returns the last rendered clock.
func (c *Clock) Current() Fragment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// TimeText returns the time block: an optional AM/PM prefix, the hours and
// minutes, and optional seconds. With blinking enabled the colons are
// blank on odd seconds.
func (c *Clock) TimeText(now time.Time) render.Text {
	sep := ":"
	if c.opts.BlinkColon && now.Second()%2 == 1 {
		sep = " "
	}

	var spans []render.Span
	hour := now.Hour()
	if !c.opts.Format24h {
		spans = append(spans, render.Span{Text: Meridiem(now) + " ", Color: MeridiemColor, Style: render.StyleMedium})
		hour = hour % 12
		if hour == 0 {
			hour = 12
		}
	}
	spans = append(spans, render.Span{
		Text:  fmt.Sprintf("%02d%s%02d", hour, sep, now.Minute()),
		Color: TimeColor,
		Style: render.StyleLarge,
	})
	if c.opts.ShowSeconds {
		spans = append(spans, render.Span{
			Text:  fmt.Sprintf("%s%02d", sep, now.Second()),
			Color: SecondsColor,
			Style: render.StyleSmall,
		})
	}
	return render.Text{Spans: spans}
}

// DateText returns the date block coloured by weekday.
func (c *Clock) DateText(now time.Time) render.Text {
	return render.Text{
		Spans:   []render.Span{{Text: FormatDate(now, c.opts.DateFormat), Color: WeekdayColors[now.Weekday()], Style: render.StyleSmall}},
		Kerning: DateKerning,
	}
}

// Meridiem returns "AM" before noon and "PM" after.
func Meridiem(t time.Time) string {
	if t.Hour() < 12 {
		return "AM"
	}
	return "PM"
}

var (
	weekdayShort  = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	weekdayKorean = [...]string{"일", "월", "화", "수", "목", "금", "토"}
)

// dateTokens are matched longest first.
var dateTokens = []struct {
	tok string
	fn  func(time.Time) string
}{
	{"YYYY", func(t time.Time) string { return fmt.Sprintf("%04d", t.Year()) }},
	{"dddd", func(t time.Time) string { return t.Weekday().String() }},
	{"ddd", func(t time.Time) string { return weekdayShort[t.Weekday()] }},
	{"YY", func(t time.Time) string { return fmt.Sprintf("%02d", t.Year()%100) }},
	{"MM", func(t time.Time) string { return fmt.Sprintf("%02d", int(t.Month())) }},
	{"DD", func(t time.Time) string { return fmt.Sprintf("%02d", t.Day()) }},
	{"M", func(t time.Time) string { return fmt.Sprint(int(t.Month())) }},
	{"D", func(t time.Time) string { return fmt.Sprint(t.Day()) }},
	{"K", func(t time.Time) string { return weekdayKorean[t.Weekday()] }},
}

// FormatDate expands the tokens YYYY, YY, MM, M, DD, D, dddd (Thursday),
// ddd (Thu) and K (목) in layout. Other characters are copied.
func FormatDate(t time.Time, layout string) string {
	var b strings.Builder
	for len(layout) > 0 {
		matched := false
		for _, dt := range dateTokens {
			if strings.HasPrefix(layout, dt.tok) {
				b.WriteString(dt.fn(t))
				layout = layout[len(dt.tok):]
				matched = true
				break
			}
		}
		if !matched {
			_, n := utf8.DecodeRuneInString(layout)
			b.WriteString(layout[:n])
			layout = layout[n:]
		}
	}
	return b.String()
}
