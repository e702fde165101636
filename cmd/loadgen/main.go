// Loadgen sends concurrent division requests to the consumer and reports how
// many answers came from the provider and how many were fallbacks.
//
// Usage:
//
//	go run ./cmd/loadgen --url http://localhost:8080 --concurrency 20 --requests 2000
//	go run ./cmd/loadgen --url http://localhost:8080 --zero-every 5 --csv results.csv --out summary.json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/pflag"
)

func main() {
	opts := defaultOptions()

	fs := pflag.NewFlagSet("loadgen", pflag.ExitOnError)
	fs.StringVar(&opts.URL, "url", opts.URL, "consumer base URL")
	fs.IntVar(&opts.Concurrency, "concurrency", opts.Concurrency, "number of concurrent workers")
	fs.IntVar(&opts.Requests, "requests", opts.Requests, "total number of requests to send")
	fs.IntVar(&opts.ZeroEvery, "zero-every", opts.ZeroEvery, "send b=0 on every n-th request (0 disables)")
	fs.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "per-request timeout")
	fs.StringVar(&opts.CSVPath, "csv", "", "write per-request CSV to this file")
	outJSON := fs.String("out", "", "write JSON summary to this file")
	_ = fs.Parse(os.Args[1:])

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	summary, err := run(ctx, opts, &http.Client{Timeout: opts.Timeout})
	if err != nil {
		fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}

	printSummary(summary)

	if *outJSON != "" {
		if err := writeJSON(*outJSON, summary); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write json summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if summary.Errors > 0 {
		os.Exit(2)
	}
}

func printSummary(s *Summary) {
	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s\n", s.Target)
	fmt.Printf("Requests: %d  Concurrency: %d\n", s.Requests, s.Concurrency)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", s.Duration, s.Throughput)

	fmt.Println("\nOutcomes:")
	keys := make([]string, 0, len(s.Outcomes))
	for k := range s.Outcomes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %d\n", k, s.Outcomes[k])
	}

	fmt.Println("\nLatencies:")
	fmt.Printf("  min=%v p50=%v p90=%v p95=%v p99=%v max=%v\n",
		s.Latency.Min, s.Latency.P50, s.Latency.P90, s.Latency.P95, s.Latency.P99, s.Latency.Max)
}

func writeJSON(path string, s *Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

func defaultOptions() Options {
	return Options{
		URL:         "http://localhost:8080",
		Concurrency: 10,
		Requests:    100,
		Timeout:     10 * time.Second,
	}
}
