// Package pipeline orchestrates a conversion run: scan a directory tree for
// images, extract and normalize their GPS metadata, and write the resulting
// placemarks as one KML document.
package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/akosourov/photomap/internal/exif"
	"github.com/akosourov/photomap/internal/geo"
	"github.com/akosourov/photomap/internal/kml"
	"github.com/akosourov/photomap/internal/thumbs"

	"github.com/rs/zerolog/log"
)

// ErrDirectoryNotFound marks a root path that does not exist or is not a
// directory. It is the only scan-phase failure.
var ErrDirectoryNotFound = errors.New("directory not found")

// State tracks pipeline progress through a run.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateProcessing
	StateWriting
	StateDone
	StateFailed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateProcessing:
		return "processing"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configure a single conversion run.
type Options struct {
	// Root is the directory to scan.
	Root string
	// Output is the KML destination; empty means
	// <root>/<root base name>_images.kml.
	Output string
	// DocName overrides the document name; empty means
	// "<root base name> (Geotagged Images)".
	DocName string
	// Extensions are the file suffixes treated as images, lower case with
	// leading dot. Other files are ignored entirely.
	Extensions []string
	// Concurrency is the worker count; values below one mean sequential.
	Concurrency int
	// ThumbSize and ThumbQuality apply when Thumbnails is set.
	ThumbSize    int
	ThumbQuality int
	Recursive    bool
	Thumbnails   bool
	// Compact minifies the written document.
	Compact bool
}

// Failure records why one file was left out of the document.
type Failure struct {
	Path   string
	Reason string
}

// Summary aggregates per-file outcomes of a run. Processed files became
// placemarks; Skipped carried no location metadata; Failed were unreadable
// or carried metadata that did not normalize.
type Summary struct {
	Output    string
	Failures  []Failure
	Processed int
	Skipped   int
	Failed    int
}

// Scanned returns the number of image files examined.
func (s *Summary) Scanned() int {
	return s.Processed + s.Skipped + s.Failed
}

// Pipeline runs the conversion. A Pipeline is single-use: create one per run.
type Pipeline struct {
	opts  Options
	state State
}

// New creates a pipeline for the given options.
func New(opts Options) *Pipeline {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Pipeline{opts: opts, state: StateIdle}
}

// State reports the current pipeline state.
func (p *Pipeline) State() State {
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.state = s
	log.Debug().Str("state", s.String()).Msg("Pipeline state changed")
}

// Run executes the full conversion and returns the summary. Per-file
// problems never abort the run; only a missing root directory or an
// unwritable destination do.
func (p *Pipeline) Run() (*Summary, error) {
	p.setState(StateScanning)

	info, err := os.Stat(p.opts.Root)
	if err != nil || !info.IsDir() {
		p.setState(StateFailed)
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, p.opts.Root)
	}

	base := filepath.Base(filepath.Clean(p.opts.Root))
	output := p.opts.Output
	if output == "" {
		output = filepath.Join(p.opts.Root, base+"_images.kml")
	}
	docName := p.opts.DocName
	if docName == "" {
		docName = base + " (Geotagged Images)"
	}

	files, err := p.scan()
	if err != nil {
		p.setState(StateFailed)
		return nil, fmt.Errorf("scan %s: %w", p.opts.Root, err)
	}

	log.Info().
		Str("root", p.opts.Root).
		Int("candidates", len(files)).
		Bool("recursive", p.opts.Recursive).
		Int("concurrency", p.opts.Concurrency).
		Msg("Scan finished, processing files")

	p.setState(StateProcessing)
	placemarks, summary := p.process(files, output)

	p.setState(StateWriting)
	if err := kml.WriteFile(output, docName, placemarks, p.opts.Compact); err != nil {
		p.setState(StateFailed)
		return nil, err
	}
	summary.Output = output

	p.setState(StateDone)
	log.Info().
		Str("output", output).
		Int("processed", summary.Processed).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("Conversion finished")

	return summary, nil
}

// scan walks the root and collects candidate image paths. WalkDir visits
// directory entries in lexical order, which keeps the output deterministic.
func (p *Pipeline) scan() ([]string, error) {
	exts := make(map[string]bool, len(p.opts.Extensions))
	for _, e := range p.opts.Extensions {
		exts[strings.ToLower(e)] = true
	}

	var files []string
	err := filepath.WalkDir(p.opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !p.opts.Recursive && path != p.opts.Root {
				return fs.SkipDir
			}
			return nil
		}
		if exts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeSkipped
	outcomeFailed
)

type entry struct {
	placemark kml.Placemark
	path      string
	reason    string
	outcome   outcome
}

// process runs the per-file work across a bounded worker pool. Results land
// in a slice indexed by file position, so placemarks keep traversal order
// regardless of worker scheduling.
func (p *Pipeline) process(files []string, output string) ([]kml.Placemark, *Summary) {
	var gen *thumbs.Generator
	if p.opts.Thumbnails {
		gen = &thumbs.Generator{
			Dir:     strings.TrimSuffix(output, filepath.Ext(output)) + "_thumbs",
			MaxSize: p.opts.ThumbSize,
			Quality: float32(p.opts.ThumbQuality),
		}
	}

	entries := make([]entry, len(files))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < p.opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				entries[i] = p.processFile(files[i], output, gen)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summary := &Summary{}
	placemarks := make([]kml.Placemark, 0, len(files))
	for _, e := range entries {
		switch e.outcome {
		case outcomeOK:
			summary.Processed++
			placemarks = append(placemarks, e.placemark)
		case outcomeSkipped:
			summary.Skipped++
		case outcomeFailed:
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{Path: e.path, Reason: e.reason})
		}
	}

	return placemarks, summary
}

func (p *Pipeline) processFile(path, output string, gen *thumbs.Generator) entry {
	rel, err := filepath.Rel(p.opts.Root, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	rec := exif.Extract(path)
	switch rec.Status {
	case exif.StatusUnreadable:
		log.Warn().Str("file", rel).Str("reason", rec.Reason).Msg("Unreadable file")
		return entry{path: path, reason: rec.Reason, outcome: outcomeFailed}
	case exif.StatusNoMetadata:
		log.Debug().Str("file", rel).Str("reason", rec.Reason).Msg("No location metadata, skipping")
		return entry{path: path, outcome: outcomeSkipped}
	}

	coord, err := geo.Normalize(*rec.Raw)
	if err != nil {
		log.Warn().Err(err).Str("file", rel).Msg("Rejected location metadata")
		return entry{path: path, reason: err.Error(), outcome: outcomeFailed}
	}

	thumbRef := ""
	if gen != nil {
		thumbPath, err := gen.Generate(path, rel)
		if err != nil {
			// A missing thumbnail never drops the placemark.
			log.Warn().Err(err).Str("file", rel).Msg("Thumbnail generation failed")
		} else if ref, err := filepath.Rel(filepath.Dir(output), thumbPath); err == nil {
			thumbRef = filepath.ToSlash(ref)
		}
	}

	log.Debug().
		Str("file", rel).
		Float64("lat", coord.Lat).
		Float64("lon", coord.Lon).
		Msg("Placemark built")

	return entry{
		placemark: kml.NewPlacemark(coord, filepath.Base(path), rel, thumbRef),
		path:      path,
		outcome:   outcomeOK,
	}
}
