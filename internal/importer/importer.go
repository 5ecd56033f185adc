// Package importer reads stop catalogs into matching.Stop values.
package importer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/klauspost/compress/gzip"
	"stopmatcher.onebusaway.org/internal/logging"
	"stopmatcher.onebusaway.org/internal/matching"
)

// ErrUnsupportedFormat is returned for an input format no importer handles.
var ErrUnsupportedFormat = errors.New("unsupported input format")

// Format identifies a stop catalog encoding.
type Format string

const (
	FormatFPTF    Format = "fptf"
	FormatGTFS    Format = "gtfs"
	FormatGeoJSON Format = "geojson"
)

// Options tune how catalogs are read.
type Options struct {
	// UseStopCode takes the GTFS stop_code as reference code instead of stop_id.
	UseStopCode bool
}

// Importer converts one catalog encoding into stops.
type Importer interface {
	Import(ctx context.Context, r io.Reader) ([]matching.Stop, error)
}

// New returns the importer for format.
func New(format Format, opts Options) (Importer, error) {
	switch format {
	case FormatFPTF:
		return FPTFImporter{}, nil
	case FormatGTFS:
		return GTFSImporter{UseStopCode: opts.UseStopCode}, nil
	case FormatGeoJSON:
		return GeoJSONImporter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ImportFile reads a catalog from disk. Gzip-compressed files are detected
// by their magic bytes and decompressed transparently.
func ImportFile(ctx context.Context, path string, format Format, opts Options) ([]matching.Stop, error) {
	imp, err := New(format, opts)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx).With(slog.String("component", "importer"))

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer logging.SafeCloseWithLogging(f, logger, "input_file")

	r, closer, err := maybeGunzip(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if closer != nil {
		defer logging.SafeCloseWithLogging(closer, logger, "gzip_reader")
	}

	stops, err := imp.Import(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to import %s: %w", path, err)
	}

	logging.LogOperation(logger, "stops_imported",
		slog.String("path", path),
		slog.String("format", string(format)),
		slog.Int("count", len(stops)))
	return stops, nil
}

func maybeGunzip(r io.Reader) (io.Reader, io.Closer, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return zr, zr, nil
	}
	return br, nil, nil
}
