package utils

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Lap is one named timing measurement.
type Lap struct {
	Name    string
	Elapsed time.Duration
}

// Timer measures the stages of a long running command.
type Timer struct {
	start time.Time
	last  time.Time
	laps  []Lap
}

func NewTimer() *Timer {
	t := &Timer{}
	t.Tic()
	return t
}

// Tic restarts the timer and forgets all laps.
func (t *Timer) Tic() {
	t.start = time.Now()
	t.last = t.start
	t.laps = nil
}

// Toc returns the time since Tic.
func (t *Timer) Toc() time.Duration {
	return time.Since(t.start)
}

// Lap records the time since the previous lap under name.
func (t *Timer) Lap(name string) time.Duration {
	now := time.Now()
	d := now.Sub(t.last)
	t.last = now
	t.laps = append(t.laps, Lap{Name: name, Elapsed: d})
	return d
}

// LogLap records a lap and logs it along with heap usage.
func (t *Timer) LogLap(name string) {
	d := t.Lap(name)
	logrus.WithFields(logrus.Fields{
		"elapsed": fmt.Sprintf("%.2fs", d.Seconds()),
		"heap_mb": fmt.Sprintf("%.1f", HeapMB()),
	}).Info(name)
}

func (t *Timer) Laps() []Lap {
	return t.laps
}

// Summary formats every lap and the total.
func (t *Timer) Summary() string {
	var b strings.Builder
	for _, l := range t.laps {
		fmt.Fprintf(&b, "%s: %.2fs\n", l.Name, l.Elapsed.Seconds())
	}
	fmt.Fprintf(&b, "total: %.2fs", t.Toc().Seconds())
	return b.String()
}

// HeapMB reports the allocated heap in megabytes.
func HeapMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}
