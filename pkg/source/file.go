package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/musyoka101/sliver-tui/pkg/logger"
	"github.com/musyoka101/sliver-tui/pkg/models"
)

// FileSource reads records exported by the C2 client to disk. Either one
// file holds {"sessions": [...], "beacons": [...]} or two files hold the
// bare arrays.
type FileSource struct {
	path         string
	sessionsPath string
	beaconsPath  string
	logger       logger.Logger
	now          func() time.Time
}

func NewFileSource(path string, log logger.Logger) *FileSource {
	return &FileSource{path: path, logger: log, now: time.Now}
}

func NewSplitFileSource(sessionsPath, beaconsPath string, log logger.Logger) *FileSource {
	return &FileSource{sessionsPath: sessionsPath, beaconsPath: beaconsPath, logger: log, now: time.Now}
}

func (f *FileSource) Fetch(ctx context.Context) (*models.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var batch models.Batch

	if f.path != "" {
		if err := readJSON(f.path, &batch); err != nil {
			return nil, err
		}
	} else {
		g, _ := errgroup.WithContext(ctx)

		g.Go(func() error { return readJSON(f.sessionsPath, &batch.Sessions) })
		g.Go(func() error { return readJSON(f.beaconsPath, &batch.Beacons) })

		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	batch.FetchedAt = f.now()

	f.logger.Debug().
		Int("sessions", len(batch.Sessions)).
		Int("beacons", len(batch.Beacons)).
		Msg("Read agent records from disk")

	return &batch, nil
}

func (*FileSource) Close() error { return nil }

func readJSON(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return nil
}
