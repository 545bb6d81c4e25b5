package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/Iv4nS/gpstelemetry/controller"
	"github.com/Iv4nS/gpstelemetry/services/gpmf"
	"github.com/Iv4nS/gpstelemetry/services/mp4demux"
	"github.com/Iv4nS/gpstelemetry/utils"
	"github.com/Iv4nS/gpstelemetry/views"
)

func usage() {
	fmt.Fprintf(os.Stderr, "%s [options] <mp4file> [mp4file_2] ... [mp4file_n]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nFiles must be given in chronological order; their timelines are\nstitched into one continuous table on stdout.\n\nOptions:\n")
	pflag.PrintDefaults()
}

func main() {
	// ── CLI flags ────────────────────────────────────────────────────
	printFilename := pflag.Bool("print_filename", false, "print the filename in output")
	printFilepath := pflag.Bool("print_filepath", false, "print the full file path in output")
	minFix := pflag.Int("min_fix", -1, "only output entries with fix >= N")
	maxPrecision := pflag.Int("max_precision", -1, "only output entries with precision <= N")
	gpxPath := pflag.String("gpx", "", "also write accepted samples as a GPX track to this path")
	configPath := pflag.String("config", "", "optional extraction profile (yaml); flags override it")
	logFile := pflag.String("log", "", "optional log file path (stderr is always included)")
	verbose := pflag.BoolP("verbose", "v", false, "enable debug logging")
	pflag.Usage = usage
	pflag.Parse()

	// ── Logger ───────────────────────────────────────────────────────
	level := utils.INFO
	if *verbose {
		level = utils.DEBUG
	}
	logger := utils.InitLogger(level, *logFile)
	defer logger.Close()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	// ── Options: profile defaults, then explicit flags on top ────────
	opts := controller.Options{}
	gpxOut := ""

	if *configPath != "" {
		cfg, err := utils.LoadExtractConfig(*configPath)
		if err != nil {
			utils.L().Fatal("%v", err)
		}
		opts.PrintFilename = cfg.Output.PrintFilename
		opts.PrintFilepath = cfg.Output.PrintFilepath
		opts.MinFix = cfg.Filter.MinFix
		opts.MaxPrecision = cfg.Filter.MaxPrecision
		gpxOut = cfg.Output.GPXPath
	}
	if *printFilename {
		opts.PrintFilename = true
	}
	if *printFilepath {
		opts.PrintFilepath = true
	}
	if pflag.CommandLine.Changed("min_fix") {
		opts.MinFix = minFix
	}
	if pflag.CommandLine.Changed("max_precision") {
		opts.MaxPrecision = maxPrecision
	}
	if *gpxPath != "" {
		gpxOut = *gpxPath
	}

	// ── Sinks ────────────────────────────────────────────────────────
	withLabel := opts.PrintFilename || opts.PrintFilepath
	csvOut := views.NewCSVEmitter(os.Stdout, withLabel)
	sinks := []controller.RowSink{csvOut}

	var gpxExp *views.GPXExporter
	if gpxOut != "" {
		gpxExp = views.NewGPXExporter(gpxOut)
		sinks = append(sinks, gpxExp)
	}

	// ── Run ──────────────────────────────────────────────────────────
	extractor := controller.NewExtractor(opts, sinks...)
	err := extractor.Run(pflag.Args())

	// Whatever was produced before a failure stays flushed.
	_ = csvOut.Flush()

	if err != nil {
		switch {
		case errors.Is(err, mp4demux.ErrNoTelemetryTrack):
			utils.L().Error("invalid MP4/MOV or no telemetry data: %v", err)
		case errors.Is(err, mp4demux.ErrInvalidDuration):
			utils.L().Error("%v", err)
		case errors.Is(err, gpmf.ErrUnknownType):
			utils.L().Error("unknown record type within telemetry stream: %v", err)
		case errors.Is(err, gpmf.ErrCorrupt):
			utils.L().Error("telemetry stream has corruption: %v", err)
		default:
			utils.L().Error("%v", err)
		}
		os.Exit(1)
	}

	if gpxExp != nil {
		if err := gpxExp.WriteFile(); err != nil {
			utils.L().Fatal("%v", err)
		}
	}

	utils.L().Info("done  (rows=%d)", csvOut.Rows())
}
