package main

import (
	"fmt"
	"os"

	"github.com/akosourov/photomap/internal/config"
	"github.com/akosourov/photomap/internal/logger"
	"github.com/akosourov/photomap/internal/pipeline"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile  string `short:"c" long:"config"       env:"CONFIG_FILE" description:"Path to configuration file"`
	Output      string `short:"o" long:"output"       env:"OUTPUT_FILE" description:"Output KML path (default: <folder>/<folder name>_images.kml)"`
	Concurrency int    `short:"p" long:"concurrency"  env:"CONCURRENCY" description:"Number of files processed in parallel"`
	NoRecursive bool   `short:"n" long:"no-recursive" description:"Scan only the top level of the folder"`
	Thumbs      bool   `short:"t" long:"thumbs"       description:"Render webp thumbnails next to the output document"`
	Compact     bool   `short:"m" long:"minify"       description:"Minify the KML output"`

	Args struct {
		Folder string `positional-arg-name:"FOLDER" description:"Directory to scan for geotagged images"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	// Optional .env so the env-tagged flags pick values up in dev setups.
	_ = godotenv.Load()

	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	concurrency := cfg.Concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}

	p := pipeline.New(pipeline.Options{
		Root:         opts.Args.Folder,
		Output:       opts.Output,
		Extensions:   cfg.Extensions,
		Concurrency:  concurrency,
		Recursive:    !opts.NoRecursive,
		Thumbnails:   opts.Thumbs,
		ThumbSize:    cfg.Thumbnails.MaxSize,
		ThumbQuality: cfg.Thumbnails.Quality,
		Compact:      opts.Compact,
	})

	summary, err := p.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Conversion failed")
	}

	fmt.Printf("Wrote KML: %s\n", summary.Output)
	fmt.Printf("Scanned %d images; %d with GPS; %d skipped.\n",
		summary.Scanned(), summary.Processed, summary.Skipped+summary.Failed)
}
