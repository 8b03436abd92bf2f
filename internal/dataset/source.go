package dataset

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/rlqty/internal/pipeline/replenishment"
)

// ErrMalformedInput marks a dataset file that could be read but not parsed.
var ErrMalformedInput = errors.New("malformed dataset")

// Loaded is the decoded planner input plus a digest of the raw content.
// Fingerprint is empty when the source cannot provide one.
type Loaded struct {
	Inputs      replenishment.Inputs
	Fingerprint string
}

// Source produces the four planner inputs.
type Source interface {
	Load(ctx context.Context) (*Loaded, error)
}

// Input is one named, openable dataset file.
type Input struct {
	Name string
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// Bundle maps every dataset kind to the file holding it.
type Bundle map[Kind]Input

// Load reads and decodes all four files concurrently.
func (b Bundle) Load(ctx context.Context) (*Loaded, error) {
	for _, kind := range Kinds {
		if _, ok := b[kind]; !ok {
			return nil, fmt.Errorf("missing %s dataset", kind)
		}
	}

	parts := make([]replenishment.Inputs, len(Kinds))
	digests := make([]string, len(Kinds))

	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range Kinds {
		input := b[kind]
		g.Go(func() error {
			content, err := readInput(gctx, input)
			if err != nil {
				return fmt.Errorf("read %s (%s): %w", kind, input.Name, err)
			}
			sum := sha1.Sum(content)
			digests[i] = hex.EncodeToString(sum[:])

			records, err := ReadRecords(input.Name, content)
			if err != nil {
				return fmt.Errorf("%w: parse %s (%s): %w", ErrMalformedInput, kind, input.Name, err)
			}
			if err := Decode(kind, records, &parts[i]); err != nil {
				return fmt.Errorf("%w: %w", ErrMalformedInput, err)
			}
			log.Debug().Str("dataset", string(kind)).Str("file", input.Name).Int("records", len(records)-1).Msg("Loaded dataset")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loaded := &Loaded{Inputs: replenishment.Inputs{
		StockOnHand:    parts[0].StockOnHand,
		SalesForecast:  parts[1].SalesForecast,
		SafetyStock:    parts[2].SafetyStock,
		VendorSchedule: parts[3].VendorSchedule,
	}}

	h := sha1.New()
	for i, kind := range Kinds {
		fmt.Fprintf(h, "%s=%s\n", kind, digests[i])
	}
	loaded.Fingerprint = hex.EncodeToString(h.Sum(nil))
	return loaded, nil
}

func readInput(ctx context.Context, input Input) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rc, err := input.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// FileBundle builds a bundle from local paths.
func FileBundle(paths map[Kind]string) Bundle {
	b := make(Bundle, len(paths))
	for kind, path := range paths {
		b[kind] = Input{
			Name: path,
			Open: func(context.Context) (io.ReadCloser, error) { return os.Open(path) },
		}
	}
	return b
}

// DirBundle finds the four datasets in dir by file name, e.g.
// stock_on_hand.csv or vendor_schedule.xlsx. Explicit paths in overrides win.
func DirBundle(dir string, overrides map[Kind]string) (Bundle, error) {
	paths := make(map[Kind]string, len(Kinds))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		kind, ok := kindFromName(e.Name())
		if !ok {
			continue
		}
		if _, seen := paths[kind]; seen {
			return nil, fmt.Errorf("more than one %s file in %s", kind, dir)
		}
		paths[kind] = filepath.Join(dir, e.Name())
	}
	for kind, path := range overrides {
		if path != "" {
			paths[kind] = path
		}
	}
	return FileBundle(paths), nil
}
