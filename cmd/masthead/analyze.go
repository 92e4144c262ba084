package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/openglam/masthead/internal/classify"
	"github.com/openglam/masthead/internal/iiif"
	"github.com/openglam/masthead/internal/ranges"
	"github.com/openglam/masthead/internal/scan"
	"github.com/openglam/masthead/internal/server/endpoints"
	"github.com/openglam/masthead/internal/svcctx"
)

var (
	analyzePDF      string
	analyzeStrategy string
	analyzeSave     string
	analyzeStart    int
	analyzeEnd      int
	analyzeVerbose  bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [manifest-url]",
	Short: "Classify pages of a manifest or PDF without a server",
	Long: `Analyze runs cover detection directly, without a running server.

Pages come either from a IIIF Presentation manifest URL or, with --pdf,
from a local PDF file rendered page by page. Results print as three
lists: the final cover pages, the pages the vision model flagged, and
the pages the structural heuristic flagged.

With --save the manifest is rewritten with regenerated structures and
written to the given path (manifest sources only).

Examples:
  masthead analyze https://example.org/iiif/manifest.json
  masthead analyze --pdf volume.pdf --strategy structural-only
  masthead analyze https://example.org/iiif/manifest.json --save out.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if analyzePDF == "" && len(args) == 0 {
			return fmt.Errorf("a manifest URL or --pdf is required")
		}
		if analyzePDF != "" && len(args) > 0 {
			return fmt.Errorf("--pdf and a manifest URL are mutually exclusive")
		}
		if analyzeSave != "" && analyzePDF != "" {
			return fmt.Errorf("--save requires a manifest source")
		}

		level := slog.LevelWarn
		if analyzeVerbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		h, err := getHome()
		if err != nil {
			return err
		}
		cfgMgr, err := getConfigManager(h)
		if err != nil {
			return err
		}
		appCfg := cfgMgr.Get()

		// Classifier pipeline from the configured providers.
		registry := classify.NewRegistry()
		registry.SetLogger(logger)
		registry.Reload(appCfg.ToRegistryConfig())

		strategy := classify.Strategy(appCfg.Policy.Strategy)
		if analyzeStrategy != "" {
			strategy = classify.Strategy(analyzeStrategy)
		}
		if !classify.ValidStrategy(strategy) {
			return fmt.Errorf("unknown strategy %q", strategy)
		}

		pipeline, err := endpoints.BuildPipeline(&svcctx.Services{
			Registry: registry,
			Config:   cfgMgr,
			Logger:   logger,
		}, strategy)
		if err != nil {
			return err
		}

		// Page source: manifest or local PDF.
		var (
			fetcher  scan.ImageFetcher
			pages    []iiif.Canvas
			manifest *iiif.Manifest
		)
		if analyzePDF != "" {
			src, err := scan.OpenPDF(analyzePDF)
			if err != nil {
				return fmt.Errorf("failed to open PDF: %w", err)
			}
			fetcher = src
			pages = src.Pages()
		} else {
			client := iiif.NewClient(iiif.ClientConfig{
				ImageWidth:      appCfg.Fetch.ImageWidth,
				ManifestTimeout: time.Duration(appCfg.Fetch.ManifestTimeout) * time.Second,
				ImageTimeout:    time.Duration(appCfg.Fetch.ImageTimeout) * time.Second,
				Logger:          logger,
			})
			m, err := client.FetchManifest(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch manifest: %w", err)
			}
			fetcher = client
			manifest = m
			pages = m.Canvases()
		}

		if analyzeStart > 0 || analyzeEnd > 0 {
			pages, err = slicePages(pages, analyzeStart, analyzeEnd)
			if err != nil {
				return err
			}
		}
		if len(pages) == 0 {
			return fmt.Errorf("no pages to analyze")
		}

		scanner := scan.New(fetcher, pipeline, scan.Options{
			FetchConcurrency: appCfg.Fetch.Concurrency,
			Dedupe:           appCfg.Fetch.Dedupe,
		}, logger)

		fmt.Printf("Analyzing %d pages (%s)...\n", len(pages), strategy)
		results, err := scanner.Run(ctx, pages, func(done, total int) {
			fmt.Printf("\rPage %d/%d", done, total)
		})
		fmt.Println()
		if err != nil {
			return err
		}

		printSummary(results)

		if analyzeSave != "" {
			if err := saveManifest(manifest, results, analyzeSave); err != nil {
				return err
			}
			fmt.Printf("Saved manifest with %d structures to %s\n",
				len(scan.CoverPages(results)), analyzeSave)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzePDF, "pdf", "", "Analyze a local PDF instead of a manifest")
	analyzeCmd.Flags().StringVar(&analyzeStrategy, "strategy", "", "Override strategy: visual-only, structural-only, hybrid")
	analyzeCmd.Flags().StringVar(&analyzeSave, "save", "", "Write the manifest with regenerated structures to this path")
	analyzeCmd.Flags().IntVar(&analyzeStart, "start", 0, "First page to analyze (1-based)")
	analyzeCmd.Flags().IntVar(&analyzeEnd, "end", 0, "Last page to analyze (1-based)")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(analyzeCmd)
}

// slicePages narrows pages to the 1-based inclusive range [start, end].
func slicePages(pages []iiif.Canvas, start, end int) ([]iiif.Canvas, error) {
	if start <= 0 {
		start = 1
	}
	if end <= 0 || end > len(pages) {
		end = len(pages)
	}
	if start > end || start > len(pages) {
		return nil, fmt.Errorf("invalid page range %d-%d for %d pages", start, end, len(pages))
	}
	return pages[start-1 : end], nil
}

// printSummary prints the final cover list and the per-signal lists,
// so disagreements between the two detectors are easy to spot.
func printSummary(results []scan.Result) {
	var covers, visual, structural []int
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			continue
		}
		if r.IsCover {
			covers = append(covers, r.Page.Number)
		}
		if r.Visual != nil && r.Visual.IsCover {
			visual = append(visual, r.Page.Number)
		}
		if r.Structural != nil && r.Structural.LargeHeading {
			structural = append(structural, r.Page.Number)
		}
	}

	fmt.Printf("\nCover pages:      %s\n", pageList(covers))
	fmt.Printf("Visual signal:    %s\n", pageList(visual))
	fmt.Printf("Structural signal: %s\n", pageList(structural))
	if failed > 0 {
		fmt.Printf("Failed pages: %d\n", failed)
	}
}

func pageList(pages []int) string {
	if len(pages) == 0 {
		return "(none)"
	}
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ", ")
}

// saveManifest rebuilds the manifest structures from the detected covers
// and writes the result.
func saveManifest(manifest *iiif.Manifest, results []scan.Result, path string) error {
	built, err := ranges.Build(scan.CoverPages(results), manifest.Pages(), manifest.BaseID())
	if err != nil {
		return fmt.Errorf("failed to build ranges: %w", err)
	}
	manifest.ApplyStructures(built.Ranges)

	data, err := manifest.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
