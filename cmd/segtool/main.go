package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/loader"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/posting-intersection/pkg/logger"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  segtool build [-out dir] [-repeats n] [-offset n] [-upload] [-config file] list.txt...
  segtool inspect segment.pseg
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	logger.SetupWriter(os.Stderr, "info", "text")
	switch os.Args[1] {
	case "build":
		build(os.Args[2:])
	case "inspect":
		inspect(os.Args[2:])
	default:
		usage()
	}
}

func build(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	out := fs.String("out", "segments", "output directory")
	repeats := fs.Int("repeats", 1, "number of copies of each list")
	offset := fs.Int("offset", 0, "id shift between copies")
	upload := fs.Bool("upload", false, "publish the segment to the configured object store")
	configPath := fs.String("config", "configs/development.yaml", "config file holding the objects section")
	fs.Parse(args)
	if fs.NArg() == 0 {
		usage()
	}

	entries := make([]segment.Entry, 0, fs.NArg())
	for _, path := range fs.Args() {
		list, err := loader.ReadFile(path, *repeats, *offset)
		if err != nil {
			slog.Error("failed to read list", "path", path, "error", err)
			os.Exit(1)
		}
		entries = append(entries, segment.Entry{Name: catalog.ListName(path), List: list})
	}

	name, err := segment.NewWriter(*out).Write(entries)
	if err != nil {
		slog.Error("failed to write segment", "error", err)
		os.Exit(1)
	}
	local := filepath.Join(*out, name)
	fmt.Println(local)

	if !*upload {
		return
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	remote, err := segment.NewRemote(cfg.Objects)
	if err != nil {
		slog.Error("failed to create object store client", "error", err)
		os.Exit(1)
	}
	if err := remote.EnsureBucket(ctx); err != nil {
		slog.Error("bucket unavailable", "error", err)
		os.Exit(1)
	}
	key, err := remote.Upload(ctx, local)
	if err != nil {
		slog.Error("upload failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("uploaded to %s/%s\n", cfg.Objects.Bucket, key)
}

func inspect(args []string) {
	if len(args) != 1 {
		usage()
	}
	r, err := segment.OpenReader(args[0])
	if err != nil {
		slog.Error("failed to open segment", "path", args[0], "error", err)
		os.Exit(1)
	}
	defer r.Close()

	h := r.Header()
	fmt.Printf("segment %s: version %d, %d lists, %s postings\n",
		r.Path(), h.Version, h.ListCount, humanize.Comma(int64(h.TotalPostings)))
	for _, name := range r.Names() {
		list, _, err := r.Load(name)
		if err != nil {
			slog.Error("failed to load list", "name", name, "error", err)
			os.Exit(1)
		}
		fmt.Printf("  %-24s %12s postings  checksum %d\n", name, humanize.Comma(int64(list.Len())), list.Checksum())
	}
}
