// Package stats samples process resource usage during long extraction
// runs and writes a plain-text report next to the output data.
package stats

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/process"
)

type Sample struct {
	Elapsed    time.Duration
	HeapAlloc  uint64
	RSS        uint64
	CPUPercent float64
	Goroutines int
}

type Summary struct {
	Started       time.Time
	Finished      time.Time
	PeakHeapAlloc uint64
	PeakRSS       uint64
	PeakCPU       float64
	AvgCPU        float64
	Samples       []Sample
}

type Collector struct {
	mu      sync.Mutex
	samples []Sample

	started  time.Time
	interval time.Duration
	proc     *process.Process

	stopChan chan struct{}
	doneChan chan struct{}
}

func NewCollector(interval time.Duration) (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to get process info: %w", err)
	}

	return &Collector{
		interval: interval,
		proc:     proc,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}, nil
}

func (c *Collector) Start() {
	c.started = time.Now()
	go c.collect()
}

func (c *Collector) collect() {
	defer close(c.doneChan)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample()
	for {
		select {
		case <-c.stopChan:
			c.sample()
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

func (c *Collector) sample() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s := Sample{
		Elapsed:    time.Since(c.started),
		HeapAlloc:  mem.HeapAlloc,
		Goroutines: runtime.NumGoroutine(),
	}

	if memInfo, err := c.proc.MemoryInfo(); err == nil && memInfo != nil {
		s.RSS = memInfo.RSS
	}
	if cpuPercent, err := c.proc.CPUPercent(); err == nil {
		s.CPUPercent = cpuPercent
	}

	c.mu.Lock()
	c.samples = append(c.samples, s)
	c.mu.Unlock()
}

func (c *Collector) Stop() Summary {
	close(c.stopChan)
	<-c.doneChan

	c.mu.Lock()
	defer c.mu.Unlock()

	sum := Summary{
		Started:  c.started,
		Finished: time.Now(),
		Samples:  c.samples,
	}

	var totalCPU float64
	for _, s := range c.samples {
		if s.HeapAlloc > sum.PeakHeapAlloc {
			sum.PeakHeapAlloc = s.HeapAlloc
		}
		if s.RSS > sum.PeakRSS {
			sum.PeakRSS = s.RSS
		}
		if s.CPUPercent > sum.PeakCPU {
			sum.PeakCPU = s.CPUPercent
		}
		totalCPU += s.CPUPercent
	}
	if len(c.samples) > 0 {
		sum.AvgCPU = totalCPU / float64(len(c.samples))
	}

	return sum
}

// WriteReport saves a readable run report to filename.
func (sum Summary) WriteReport(filename string) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "extraction run %s -> %s (%s)\n",
		sum.Started.Format(time.RFC3339),
		sum.Finished.Format(time.RFC3339),
		sum.Finished.Sub(sum.Started).Round(time.Second))
	fmt.Fprintf(&sb, "peak heap: %s\n", humanize.Bytes(sum.PeakHeapAlloc))
	fmt.Fprintf(&sb, "peak rss:  %s\n", humanize.Bytes(sum.PeakRSS))
	fmt.Fprintf(&sb, "cpu:       peak %.1f%% avg %.1f%%\n\n", sum.PeakCPU, sum.AvgCPU)

	fmt.Fprintf(&sb, "%-12s %-12s %-12s %-8s %-10s\n", "elapsed", "heap", "rss", "cpu%", "goroutines")
	for _, s := range sum.Samples {
		fmt.Fprintf(&sb, "%-12s %-12s %-12s %-8.1f %-10d\n",
			s.Elapsed.Round(time.Second),
			humanize.Bytes(s.HeapAlloc),
			humanize.Bytes(s.RSS),
			s.CPUPercent,
			s.Goroutines)
	}

	if err := os.WriteFile(filename, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}
