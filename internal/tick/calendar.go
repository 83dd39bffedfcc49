package tick

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

const (
	DefaultTicksPerDay  = 5000
	DefaultDateTemplate = `{{ dateInZone "2006-01-02 15:04" .Date "UTC" }}`
)

// Calendar maps an absolute tick count to the in-world clock.
type Calendar struct {
	ticksPerDay int64
	tmpl        *template.Template
}

// Moment is one reading of the in-world clock.
type Moment struct {
	Ticks      int64
	TickOfDay  int64
	Day        int64
	Date       time.Time
	InGameDate string
}

func NewCalendar(ticksPerDay int64, dateTemplate string) (*Calendar, error) {
	if ticksPerDay <= 0 {
		return nil, fmt.Errorf("ticks per day must be positive")
	}
	if dateTemplate == "" {
		dateTemplate = DefaultDateTemplate
	}
	tmpl, err := template.New("date").Funcs(sprig.TxtFuncMap()).Parse(dateTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing date template: %w", err)
	}
	return &Calendar{ticksPerDay: ticksPerDay, tmpl: tmpl}, nil
}

// At reads the clock after ticks ticks since epoch. Day n covers ticks
// [n*ticksPerDay, (n+1)*ticksPerDay).
func (c *Calendar) At(epoch time.Time, ticks int64) (Moment, error) {
	if ticks < 0 {
		return Moment{}, fmt.Errorf("negative tick count %d", ticks)
	}
	m := Moment{
		Ticks:     ticks,
		TickOfDay: ticks % c.ticksPerDay,
		Day:       ticks / c.ticksPerDay,
	}
	dayFraction := time.Duration(float64(24*time.Hour) * float64(m.TickOfDay) / float64(c.ticksPerDay))
	m.Date = epoch.AddDate(0, 0, int(m.Day)).Add(dayFraction)

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, m); err != nil {
		return Moment{}, fmt.Errorf("rendering date: %w", err)
	}
	m.InGameDate = buf.String()
	return m, nil
}
