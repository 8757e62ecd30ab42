// Command scan scores local image files and prints one JSON line per file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anime-shed/synthscan/internal/analyzer"
	"github.com/anime-shed/synthscan/internal/logger"
	"github.com/anime-shed/synthscan/internal/metadata"
	"github.com/anime-shed/synthscan/internal/strategy"
	"github.com/anime-shed/synthscan/pkg/models"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	maxDim := fs.Int("max-dim", analyzer.DefaultMaxDim, "largest side, in pixels, images are analysed at")
	seed := fs.Uint64("seed", 0, "fixed noise sampling seed")
	mode := fs.String("mode", "standard", "analysis mode: fast, standard or detailed")
	maxPixels := fs.Int64("max-pixels", analyzer.DefaultMaxDecodePixels, "largest image area, in pixels, accepted for decoding")
	workers := fs.Int("workers", 0, "feature worker count (0 = NumCPU)")
	noExif := fs.Bool("no-exif", false, "ignore generator markers in metadata")
	quiet := fs.Bool("quiet", false, "disable the progress bar")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: scan [flags] files...")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	files := fs.Args()
	if len(files) == 0 {
		fs.Usage()
		return 2
	}

	// stdout carries results only
	logger.SetOutput(stderr)

	strat, err := strategy.NewRegistry().Resolve(*mode)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	opts := strat.Options(*maxDim).WithMaxDecodePixels(*maxPixels)
	if isFlagSet(fs, "seed") {
		opts = opts.WithSeed(*seed)
	}
	if *noExif {
		opts = opts.WithoutMetadata()
	}

	a, err := analyzer.NewImageAnalyzer(metadata.NewExtractor(), *workers)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer a.Close()

	var bar *progressbar.ProgressBar
	if !*quiet {
		bar = progressbar.NewOptions(
			len(files),
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetWriter(stderr),
			progressbar.OptionSetWidth(15),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprint(stderr, "\n")
			}),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	enc := json.NewEncoder(stdout)
	failed := 0
	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		result := scanFile(ctx, a, file, opts)
		if result.Error != "" {
			failed++
			logger.WithFields(logrus.Fields{"file": file, "error": result.Error}).Warn("Scan failed")
		}
		if err := enc.Encode(result); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if bar != nil {
			bar.Add(1)
		}
	}

	if failed > 0 || ctx.Err() != nil {
		return 1
	}
	return 0
}

func scanFile(ctx context.Context, a analyzer.ImageAnalyzer, file string, opts analyzer.AnalysisOptions) models.ScanResult {
	data, err := os.ReadFile(file)
	if err != nil {
		return models.ScanResult{File: file, Error: err.Error()}
	}
	report, err := a.AnalyzeBytes(ctx, data, opts)
	if err != nil {
		return models.ScanResult{File: file, Error: err.Error()}
	}
	return models.ScanResult{
		File:       file,
		Score:      report.Result.Score,
		Reasons:    report.Result.Reasons,
		Components: report.Result.Components,
		Format:     report.Format,
	}
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
