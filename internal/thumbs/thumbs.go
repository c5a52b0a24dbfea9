// Package thumbs renders webp thumbnails for placemark descriptions.
package thumbs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Generator writes bounded-fit thumbnails into a single directory.
type Generator struct {
	Dir     string
	MaxSize int
	Quality float32
}

// Generate decodes the image at srcPath and writes a webp thumbnail named
// after relPath, with path separators flattened so files from different
// subdirectories cannot collide. Returns the created file path.
func (g *Generator) Generate(srcPath, relPath string) (string, error) {
	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", srcPath, err)
	}

	thumb := imaging.Fit(img, g.MaxSize, g.MaxSize, imaging.Lanczos)

	name := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	name = strings.ReplaceAll(filepath.ToSlash(name), "/", "_")
	outPath := filepath.Join(g.Dir, name+".webp")

	if err := os.MkdirAll(g.Dir, 0755); err != nil {
		return "", err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", outPath).Msg("Failed to close thumbnail")
		}
	}()

	if err := webp.Encode(f, thumb, &webp.Options{Lossless: false, Quality: g.Quality}); err != nil {
		return "", err
	}

	return outPath, nil
}
