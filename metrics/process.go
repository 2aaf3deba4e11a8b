// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

//go:build linux

package metrics

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

type ioStats struct {
	readSyscalls  int64
	writeSyscalls int64
	readBytes     int64
	writeBytes    int64
}

// IOCollector is a prometheus.Collector reading this process's /proc/self/io
// counters. It exists so the engine can be scraped for disk-IO pressure
// caused by artifact-cache misses and state-database access without pulling
// in a full system-metrics agent.
type IOCollector struct {
	readSyscalls  *prometheus.Desc
	writeSyscalls *prometheus.Desc
	readBytes     *prometheus.Desc
	writeBytes    *prometheus.Desc
}

func NewIOCollector() *IOCollector {
	return &IOCollector{
		readSyscalls:  prometheus.NewDesc(namePrefix+"process_read_syscalls_total", "Number of read(2)-family syscalls issued.", nil, nil),
		writeSyscalls: prometheus.NewDesc(namePrefix+"process_write_syscalls_total", "Number of write(2)-family syscalls issued.", nil, nil),
		readBytes:     prometheus.NewDesc(namePrefix+"process_read_bytes_total", "Bytes actually read from storage.", nil, nil),
		writeBytes:    prometheus.NewDesc(namePrefix+"process_write_bytes_total", "Bytes actually written to storage.", nil, nil),
	}
}

func (c *IOCollector) getIOStats() (ioStats, error) {
	f, err := os.Open("/proc/self/io")
	if err != nil {
		return ioStats{}, fmt.Errorf("open /proc/self/io: %w", err)
	}
	defer f.Close()

	var stats ioStats
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "syscr":
			stats.readSyscalls = val
		case "syscw":
			stats.writeSyscalls = val
		case "read_bytes":
			stats.readBytes = val
		case "write_bytes":
			stats.writeBytes = val
		}
	}
	if err := scanner.Err(); err != nil {
		return ioStats{}, fmt.Errorf("scan /proc/self/io: %w", err)
	}
	return stats, nil
}

func (c *IOCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readSyscalls
	ch <- c.writeSyscalls
	ch <- c.readBytes
	ch <- c.writeBytes
}

func (c *IOCollector) Collect(ch chan<- prometheus.Metric) {
	stats, err := c.getIOStats()
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.readSyscalls, prometheus.CounterValue, float64(stats.readSyscalls))
	ch <- prometheus.MustNewConstMetric(c.writeSyscalls, prometheus.CounterValue, float64(stats.writeSyscalls))
	ch <- prometheus.MustNewConstMetric(c.readBytes, prometheus.CounterValue, float64(stats.readBytes))
	ch <- prometheus.MustNewConstMetric(c.writeBytes, prometheus.CounterValue, float64(stats.writeBytes))
}

// NewProcessCollector is the process-wide collector InitializePrometheusMetrics
// registers alongside the counter/gauge/histogram backend; today it only
// wraps IOCollector, but the indirection leaves room for CPU/RSS collectors
// without changing the registration call site.
func NewProcessCollector() prometheus.Collector {
	return NewIOCollector()
}
