package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const separatorLineLength = 80

type operationMetrics struct {
	Name     string
	Duration time.Duration
	Size     int64
	Error    error
}

type stepMetrics struct {
	Name       string
	StartTime  time.Time
	Duration   time.Duration
	Operations []operationMetrics
	Error      error
}

// metricsCollector tracks operations per step.
type metricsCollector struct {
	mu          sync.Mutex
	steps       []stepMetrics
	currentStep *stepMetrics
	showSummary bool
	totals      map[string]int
	totalBytes  int64
}

func newMetricsCollector(showSummary bool) *metricsCollector {
	return &metricsCollector{showSummary: showSummary, totals: make(map[string]int)}
}

func (m *metricsCollector) startStep(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentStep = &stepMetrics{Name: name, StartTime: time.Now()}
}

func (m *metricsCollector) endStep(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.currentStep == nil {
		return
	}
	m.currentStep.Duration = time.Since(m.currentStep.StartTime)
	m.currentStep.Error = err
	m.steps = append(m.steps, *m.currentStep)
	m.currentStep = nil
}

func (m *metricsCollector) record(op operationMetrics) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentStep != nil {
		m.currentStep.Operations = append(m.currentStep.Operations, op)
	}
	m.totals[op.Name]++
	if op.Error == nil {
		m.totalBytes += op.Size
	}
}

// timed runs fn and records it as operation name.
func (t *tester) timed(name string, size int64, fn func() error) error {
	start := time.Now()
	err := fn()
	t.metrics.record(operationMetrics{Name: name, Duration: time.Since(start), Size: size, Error: err})
	if err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

func (m *metricsCollector) printSummary(w io.Writer) {
	if !m.showSummary {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	line := strings.Repeat("=", separatorLineLength)
	fmt.Fprintf(w, "\n%s\nMETRICS SUMMARY\n%s\n", line, line)

	fmt.Fprintf(w, "\nOverall Statistics:\n")
	names := make([]string, 0, len(m.totals))
	for name := range m.totals {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %d\n", name+":", m.totals[name])
	}
	fmt.Fprintf(w, "  Total bytes: %s\n", humanize.IBytes(uint64(m.totalBytes)))

	var total time.Duration
	fmt.Fprintf(w, "\nStep-by-Step Breakdown:\n")
	for _, step := range m.steps {
		total += step.Duration
		status := "ok"
		if step.Error != nil {
			status = "FAILED"
		}
		fmt.Fprintf(w, "\n  [%s] %s (%.2fs)\n", status, step.Name, step.Duration.Seconds())

		counts := make(map[string]int)
		durations := make(map[string]time.Duration)
		for _, op := range step.Operations {
			counts[op.Name]++
			durations[op.Name] += op.Duration
		}
		for _, name := range names {
			if counts[name] == 0 {
				continue
			}
			avg := durations[name] / time.Duration(counts[name])
			fmt.Fprintf(w, "    - %s: %d operations, avg %s\n", name, counts[name], avg.Round(time.Microsecond))
		}
		if step.Error != nil {
			fmt.Fprintf(w, "    Error: %v\n", step.Error)
		}
	}

	fmt.Fprintf(w, "\nTiming Summary:\n  Total execution time: %.2fs\n", total.Seconds())
	if m.totalBytes > 0 && total > 0 {
		throughput := float64(m.totalBytes) / total.Seconds()
		fmt.Fprintf(w, "  Average throughput:   %s/s\n", humanize.IBytes(uint64(throughput)))
	}
	fmt.Fprintln(w, line)
}
