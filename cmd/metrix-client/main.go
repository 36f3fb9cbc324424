// Command metrix-client submits a run against a running MetriX server and
// polls it until the run reaches a terminal status, printing a summary
// table — the operator tool mirrored from the teacher's go-client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"
)

// Flag descriptions.
const (
	flagServerDesc  = "Base URL of the MetriX server"
	flagModeDesc    = "Run mode: isolated or chained"
	flagVendorsDesc = "Comma-separated vendor ids"
	flagTextDesc    = "Input text (repeat --text for multiple inputs, or use --text with commas)"
	flagServiceDesc = "Service under test for isolated mode: tts or stt"
	flagTTSDesc     = "TTS vendor id for chained mode"
	flagSTTDesc     = "STT vendor id for chained mode"
	flagPollDesc    = "Polling interval while waiting for the run to finish"
	flagTimeoutDesc = "Maximum time to wait for the run to finish"
)

// Flag names.
const (
	flagServer  = "server"
	flagMode    = "mode"
	flagVendors = "vendors"
	flagText    = "text"
	flagService = "service"
	flagTTS     = "tts-vendor"
	flagSTT     = "stt-vendor"
	flagPoll    = "poll"
	flagTimeout = "timeout"
)

var errEmptyText = errors.New("metrix-client: --text must not be empty")

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	server     string
	mode       string
	vendors    string
	text       string
	service    string
	ttsVendor  string
	sttVendor  string
	poll       time.Duration
	timeout    time.Duration
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("metrix-client: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	if err := validateFlags(flags); err != nil {
		flag.Usage()

		return err
	}

	client := newRunClient(flags.server, 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), flags.timeout)
	defer cancel()

	runID, accepted, err := client.createRun(ctx, flags)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}

	fmt.Printf("run %s accepted, %d item(s) queued\n", runID, accepted)

	finished, items, err := client.pollUntilTerminal(ctx, runID, flags.poll)
	if err != nil {
		return fmt.Errorf("poll run: %w", err)
	}

	printSummary(finished, items)

	return nil
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.server, flagServer, "http://127.0.0.1:8080", flagServerDesc)
	flag.StringVar(&flags.mode, flagMode, "isolated", flagModeDesc)
	flag.StringVar(&flags.vendors, flagVendors, "", flagVendorsDesc)
	flag.StringVar(&flags.text, flagText, "", flagTextDesc)
	flag.StringVar(&flags.service, flagService, "", flagServiceDesc)
	flag.StringVar(&flags.ttsVendor, flagTTS, "", flagTTSDesc)
	flag.StringVar(&flags.sttVendor, flagSTT, "", flagSTTDesc)
	flag.DurationVar(&flags.poll, flagPoll, time.Second, flagPollDesc)
	flag.DurationVar(&flags.timeout, flagTimeout, 5*time.Minute, flagTimeoutDesc)
	flag.Parse()

	return flags
}

func validateFlags(flags appFlags) error {
	if strings.TrimSpace(flags.text) == "" {
		return errEmptyText
	}

	if flags.vendors == "" {
		return errors.New("metrix-client: --vendors must not be empty")
	}

	if flags.mode != "isolated" && flags.mode != "chained" {
		return fmt.Errorf("metrix-client: --mode must be isolated or chained, got %q", flags.mode)
	}

	if flags.mode == "isolated" && flags.service != "tts" && flags.service != "stt" {
		return errors.New("metrix-client: --service is required (tts or stt) when --mode=isolated")
	}

	if flags.mode == "chained" && (flags.ttsVendor == "" || flags.sttVendor == "") {
		return errors.New("metrix-client: --tts-vendor and --stt-vendor are required when --mode=chained")
	}

	return nil
}

func inputTexts(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

func vendorList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

func printSummary(run runView, items []itemView) {
	fmt.Printf("\nrun %s finished with status %s\n", run.ID, run.Status)
	fmt.Printf("%-36s %-20s %-10s %s\n", "item", "vendor", "status", "metrics")

	for _, item := range items {
		fmt.Printf("%-36s %-20s %-10s %s\n", item.ID, item.VendorLabel, item.Status, item.MetricsSummary)
	}
}

