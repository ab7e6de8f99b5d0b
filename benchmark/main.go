// Package main provides a performance benchmarking tool for the gitnote CLI.
// It measures extraction and sync times across repositories of different sizes,
// running each test multiple times and comparing commit replay with snapshot diffs,
// then writes a CSV file for performance analysis and documentation.
//
// Prerequisites:
// - gitnote binary installed and available in PATH
// - Test repositories cloned to the specified base directory
//
// Usage: go run benchmark/main.go [repo-base-dir]
//
//	repo-base-dir: Directory containing test repositories
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// BenchmarkResult holds the timings of one command on one repository.
type BenchmarkResult struct {
	Repository string
	Command    string
	ColdTime   string
	WarmTime   string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	RepoBase  string
	Timeout   time.Duration
	Runs      int
	TestRepos []string
	RepoRefs  map[string][2]string
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [repo-base-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		RepoBase:  os.Args[1],
		Timeout:   5 * time.Minute,
		Runs:      4,
		TestRepos: []string{"csv-parser", "fd", "git"},
		RepoRefs: map[string][2]string{
			"csv-parser": {"v1.0.0", "v1.1.0"},
			"fd":         {"v9.0.0", "v10.0.0"},
			"git":        {"v2.51.0", "v2.52.0-rc0"},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the gitnote binary and test repositories exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("gitnote"); err != nil {
		return fmt.Errorf("gitnote binary not found in PATH")
	}

	for _, repo := range config.TestRepos {
		repoPath := filepath.Join(config.RepoBase, repo)
		if _, err := os.Stat(repoPath); os.IsNotExist(err) {
			return fmt.Errorf("repository %s not found at %s", repo, repoPath)
		}
	}

	return nil
}

// runBenchmarks executes all benchmark tests across configured repositories
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d repos, %v timeout, %d runs\n", len(config.TestRepos), config.Timeout, config.Runs)

	for _, repo := range config.TestRepos {
		fmt.Printf("Benchmarking %s\n", repo)
		repoPath := filepath.Join(config.RepoBase, repo)

		if refs, ok := config.RepoRefs[repo]; ok {
			results = append(results,
				runSuite(config, repo, repoPath, "extract", "extract", refs[0], refs[1]),
				runSuite(config, repo, repoPath, "extract-snapshot", "extract", "--snapshot", refs[0], refs[1]),
			)
		}

		// The first sync replays the whole history; later runs find nothing new.
		dbPath := filepath.Join(os.TempDir(), fmt.Sprintf("gitnote_bench_%s.db", repo))
		_ = os.Remove(dbPath)
		results = append(results,
			runSuite(config, repo, repoPath, "sync", "sync", "--archive-backend", "none", "--entry-db-connect", dbPath),
		)
		_ = os.Remove(dbPath)
	}

	return results
}

// runSuite runs one command several times and reports the first run as cold and the rest as warm
func runSuite(config BenchmarkConfig, repo, repoPath, name string, args ...string) BenchmarkResult {
	fmt.Printf("Running %s on %s (%d runs)\n", name, repo, config.Runs)

	var times []float64
	for run := 1; run <= config.Runs; run++ {
		if elapsed, ok := timeRun(config.Timeout, repoPath, args); ok {
			times = append(times, elapsed)
		}
	}

	result := BenchmarkResult{Repository: repo, Command: name, ColdTime: "TIMEOUT", WarmTime: "TIMEOUT"}
	if len(times) > 0 {
		result.ColdTime = fmt.Sprintf("%.3fs", times[0])
	}
	if len(times) > 1 {
		var sum float64
		for _, t := range times[1:] {
			sum += t
		}
		result.WarmTime = fmt.Sprintf("%.3fs", sum/float64(len(times)-1))
	}

	fmt.Printf("  Cold time: %s, Warm average: %s\n", result.ColdTime, result.WarmTime)
	return result
}

// timeRun executes gitnote once and reports the elapsed seconds of a successful run
func timeRun(timeout time.Duration, repoPath string, args []string) (float64, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	full := append([]string{"--log-level", "none", "--output", "csv", "--output-file", os.DevNull}, args...)
	cmd := exec.CommandContext(ctx, "gitnote", full...)
	cmd.Dir = repoPath

	start := time.Now()
	if output, err := cmd.CombinedOutput(); err != nil {
		fmt.Printf("  run failed: %v\n%s", err, output)
		return 0, false
	}
	return time.Since(start).Seconds(), true
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/gitnote_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"repo", "cmd", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Repository, result.Command, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range []string{"extract", "extract-snapshot", "sync"} {
		fmt.Printf("%s:\n", command)
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %-12s: Cold: %s, Warm: %s\n", result.Repository, result.ColdTime, result.WarmTime)
			}
		}
	}
}
