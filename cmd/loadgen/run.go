package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angeloszaimis/divider/internal/division"
	"github.com/angeloszaimis/divider/internal/fallback"
	"github.com/angeloszaimis/divider/internal/httpserver"
)

const (
	OutcomeValue = "value"
	OutcomeError = "error"
)

type Options struct {
	URL         string
	Concurrency int
	Requests    int
	// ZeroEvery makes every n-th request divide by zero.
	ZeroEvery int
	Timeout   time.Duration
	CSVPath   string
}

type Latency struct {
	Min time.Duration `json:"min"`
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
	Max time.Duration `json:"max"`
}

type Summary struct {
	Target      string           `json:"target"`
	Requests    int              `json:"requests"`
	Concurrency int              `json:"concurrency"`
	Duration    time.Duration    `json:"duration"`
	Throughput  float64          `json:"throughput_rps"`
	Outcomes    map[string]int64 `json:"outcomes"`
	Errors      int64            `json:"errors"`
	Latency     Latency          `json:"latency"`
}

type result struct {
	idx      int
	outcome  string
	status   int
	duration time.Duration
}

// outcomeFor names a consumer answer: a provider value, or the fallback
// category the value stands for.
func outcomeFor(value int) string {
	switch value {
	case fallback.RejectedResult:
		return "fallback_" + fallback.AdmissionRejected.String()
	case fallback.DefaultResult:
		return "fallback_" + fallback.Other.String()
	default:
		return OutcomeValue
	}
}

func requestFor(idx, zeroEvery int) division.Request {
	b := idx%9 + 1
	if zeroEvery > 0 && idx%zeroEvery == zeroEvery-1 {
		b = 0
	}
	return division.Request{A: (idx + 1) * 10, B: b}
}

func run(ctx context.Context, opts Options, client *http.Client) (*Summary, error) {
	if opts.Concurrency < 1 || opts.Requests < 1 {
		return nil, errors.New("concurrency and requests must be positive")
	}

	base, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	endpoint := base.JoinPath("divide")

	var (
		csvFile   *os.File
		csvWriter *csv.Writer
	)
	if opts.CSVPath != "" {
		csvFile, err = os.Create(opts.CSVPath)
		if err != nil {
			return nil, fmt.Errorf("create csv: %w", err)
		}
		defer csvFile.Close()

		csvWriter = csv.NewWriter(csvFile)
		if err := csvWriter.Write([]string{"idx", "outcome", "status", "duration_ms"}); err != nil {
			return nil, fmt.Errorf("write csv: %w", err)
		}
	}

	jobs := make(chan int)
	results := make(chan result, opts.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- send(ctx, client, endpoint, idx, opts.ZeroEvery)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := 0; i < opts.Requests; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := &Summary{
		Target:      endpoint.String(),
		Requests:    opts.Requests,
		Concurrency: opts.Concurrency,
		Outcomes:    make(map[string]int64),
	}

	start := time.Now()
	var (
		latencies []time.Duration
		csvErr    error
	)

	for r := range results {
		summary.Outcomes[r.outcome]++
		if r.outcome == OutcomeError || r.status != http.StatusOK {
			summary.Errors++
		}
		latencies = append(latencies, r.duration)

		// Keep draining results after a CSV error so workers can finish.
		if csvWriter != nil && csvErr == nil {
			csvErr = csvWriter.Write([]string{
				strconv.Itoa(r.idx),
				r.outcome,
				strconv.Itoa(r.status),
				fmt.Sprintf("%.3f", float64(r.duration.Microseconds())/1000.0),
			})
		}
	}

	if csvWriter != nil {
		csvWriter.Flush()
		if csvErr == nil {
			csvErr = csvWriter.Error()
		}
		if err := csvFile.Close(); csvErr == nil {
			csvErr = err
		}
		if csvErr != nil {
			return nil, fmt.Errorf("write csv: %w", csvErr)
		}
	}

	summary.Duration = time.Since(start)
	if secs := summary.Duration.Seconds(); secs > 0 {
		summary.Throughput = float64(len(latencies)) / secs
	}
	summary.Latency = summarize(latencies)

	return summary, nil
}

func send(ctx context.Context, client *http.Client, endpoint *url.URL, idx, zeroEvery int) result {
	u := *endpoint
	u.RawQuery = requestFor(idx, zeroEvery).Query().Encode()

	res := result{idx: idx, outcome: OutcomeError}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return res
	}
	req.Header.Set(httpserver.RequestIDHeader, uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		res.duration = time.Since(start)
		return res
	}
	defer resp.Body.Close()

	res.status = resp.StatusCode
	res.duration = time.Since(start)

	if resp.StatusCode != http.StatusOK {
		res.outcome = "http_" + strconv.Itoa(resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		return res
	}

	var value int
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil {
		return res
	}
	res.outcome = outcomeFor(value)
	return res
}

func summarize(latencies []time.Duration) Latency {
	if len(latencies) == 0 {
		return Latency{}
	}

	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	pick := func(p float64) time.Duration {
		return sorted[int(float64(len(sorted)-1)*p)]
	}

	return Latency{
		Min: sorted[0],
		P50: pick(0.50),
		P90: pick(0.90),
		P95: pick(0.95),
		P99: pick(0.99),
		Max: sorted[len(sorted)-1],
	}
}
