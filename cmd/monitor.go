// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 The scpiterm Authors

package cmd

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opticslab/scpiterm/pkg/scpi"
)

var (
	monitorInterval     time.Duration
	monitorCSVPath      string
	monitorFailureLimit int
	monitorQuiet        bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll the SHG/THG temperature stages",
	Long: `Continuously poll the actual SHG and THG stage temperatures and report the
deviation from the set-points captured at start.

Each tick emits one sample even when a query times out; timed-out readings
are marked invalid rather than dropped, so the sample cadence stays intact.
Samples can be appended to a semicolon-separated CSV transcript with --csv.

Runs until Ctrl+C, or until --failure-limit consecutive fully-failed ticks.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", scpi.DefaultInterval, "Polling cadence")
	monitorCmd.Flags().StringVar(&monitorCSVPath, "csv", "", "Append samples to this CSV file")
	monitorCmd.Flags().IntVar(&monitorFailureLimit, "failure-limit", 0, "Stop after N consecutive fully-failed ticks (0 = never)")
	monitorCmd.Flags().BoolVar(&monitorQuiet, "quiet", false, "Suppress the per-sample stdout line")
	rootCmd.AddCommand(monitorCmd)
}

// csvSink appends monitor samples to a semicolon-separated transcript.
type csvSink struct {
	file   *os.File
	writer *csv.Writer
}

func newCSVSink(path string) (*csvSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	w := csv.NewWriter(f)
	w.Comma = ';'

	info, err := f.Stat()
	if err == nil && info.Size() == 0 {
		w.Write([]string{
			"timestamp", "elapsed_s",
			"set_shg", "actual_shg", "delta_shg",
			"set_thg", "actual_thg", "delta_thg",
		})
	}
	return &csvSink{file: f, writer: w}, nil
}

func (s *csvSink) Consume(sample scpi.Sample) {
	s.writer.Write([]string{
		sample.Timestamp.Format("2006-01-02 15:04:05.000"),
		strconv.FormatFloat(sample.Elapsed.Seconds(), 'f', 3, 64),
		formatFloat(sample.SetSHG),
		formatReading(sample.ActualSHG),
		formatReading(sample.DeltaSHG),
		formatFloat(sample.SetTHG),
		formatReading(sample.ActualTHG),
		formatReading(sample.DeltaTHG),
	})
	s.writer.Flush()
}

func (s *csvSink) Close() error {
	s.writer.Flush()
	return s.file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// formatReading renders an invalid reading as an empty CSV cell.
func formatReading(r scpi.Reading) string {
	if !r.Valid {
		return ""
	}
	return formatFloat(r.Value)
}

// stdoutSink prints one status line per sample.
type stdoutSink struct{}

func (stdoutSink) Consume(s scpi.Sample) {
	fmt.Printf("%8.3fs  SHG %s (set %.3f, delta %s)  THG %s (set %.3f, delta %s)\n",
		s.Elapsed.Seconds(),
		readingOrDash(s.ActualSHG, "%.3f"), s.SetSHG, readingOrDash(s.DeltaSHG, "%+.3f"),
		readingOrDash(s.ActualTHG, "%.3f"), s.SetTHG, readingOrDash(s.DeltaTHG, "%+.3f"))
}

func readingOrDash(r scpi.Reading, format string) string {
	if !r.Valid {
		return "--"
	}
	return fmt.Sprintf(format, r.Value)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	adapter, connInfo, err := OpenAdapter()
	if err != nil {
		return err
	}
	defer adapter.Close()

	var sinks []scpi.SampleSink
	if !monitorQuiet {
		sinks = append(sinks, stdoutSink{})
	}
	if monitorCSVPath != "" {
		sink, err := newCSVSink(monitorCSVPath)
		if err != nil {
			return err
		}
		defer sink.Close()
		sinks = append(sinks, sink)
	}

	monitor := scpi.NewMonitor(adapter, sinks...)
	monitor.SetInterval(monitorInterval)
	monitor.SetFailureLimit(monitorFailureLimit)

	log.Infof("Connection: %s", connInfo)
	if err := monitor.Start(); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	shg, thg := monitor.SetPoints()
	log.Infof("Set-points: SHG %.3f, THG %.3f; polling every %v", shg, thg, monitorInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sig:
			log.Info("Stopping monitor")
			monitor.Stop()
			return nil
		case <-ticker.C:
			if !monitor.Running() {
				return fmt.Errorf("monitor stopped after %d consecutive failed ticks", monitorFailureLimit)
			}
		}
	}
}
