package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/intersect"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/logger"
)

func main() {
	pathA := flag.String("a", "postinglists/film.txt", "first posting list file")
	pathB := flag.String("b", "postinglists/comedy.txt", "second posting list file")
	algorithm := flag.String("algorithm", "linear", "linear, binary, gallop or skip")
	repeats := flag.Int("repeats", 1, "number of copies of each list")
	offset := flag.Int("offset", 0, "id shift between copies")
	printResult := flag.Bool("print", false, "write the intersection to stdout as <id> <score> lines")
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	logger.SetupWriter(os.Stderr, *logLevel, "text")

	alg, err := intersect.ParseAlgorithm(*algorithm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	if *repeats < 1 || *offset < 0 {
		fmt.Fprintln(os.Stderr, "-repeats must be >= 1 and -offset >= 0")
		os.Exit(2)
	}

	a, err := loader.ReadFile(*pathA, *repeats, *offset)
	if err != nil {
		slog.Error("failed to read list", "path", *pathA, "error", err)
		os.Exit(1)
	}
	b, err := loader.ReadFile(*pathB, *repeats, *offset)
	if err != nil {
		slog.Error("failed to read list", "path", *pathB, "error", err)
		os.Exit(1)
	}
	if alg == intersect.BinarySearch {
		a, b = intersect.ShorterFirst(a, b)
	}

	start := time.Now()
	result, err := intersect.Run(alg, a, b)
	elapsed := time.Since(start)
	if err != nil {
		slog.Error("intersection failed", "error", err)
		os.Exit(1)
	}
	slog.Info("intersection done",
		"algorithm", alg.String(),
		"size_a", humanize.Comma(int64(a.Len())),
		"size_b", humanize.Comma(int64(b.Len())),
		"results", humanize.Comma(int64(result.Len())),
		"elapsed", elapsed,
	)

	if !*printResult {
		fmt.Printf("%d results in %s\n", result.Len(), elapsed)
		return
	}
	if err := loader.Write(os.Stdout, result); err != nil {
		slog.Error("failed to write result", "error", err)
		os.Exit(1)
	}
}
