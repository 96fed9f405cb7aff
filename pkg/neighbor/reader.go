package neighbor

import (
	"context"
	"errors"
	"fmt"

	"github.com/projectdiscovery/gologger"
)

// ErrUnavailable is returned when the neighbor cache could not be read
// completely. No partial table accompanies it.
var ErrUnavailable = errors.New("neighbor table unavailable")

// Reader captures snapshots of the OS neighbor cache.
type Reader interface {
	// Read returns a fresh, complete snapshot. Every error wraps
	// ErrUnavailable.
	Read(ctx context.Context) (*Table, error)
}

// NewReader returns the reader for the current platform.
func NewReader() (Reader, error) {
	return newPlatformReader()
}

type readResult struct {
	table *Table
	err   error
}

// readAsync runs a blocking OS query on its own goroutine so the caller can
// stop waiting when ctx is done. An abandoned result is discarded once the
// query returns.
func readAsync(ctx context.Context, read func() (*Table, error)) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	done := make(chan readResult, 1)
	go func() {
		table, err := read()
		done <- readResult{table: table, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, ErrUnavailable) {
				return nil, res.err
			}
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, res.err)
		}
		return res.table, nil
	}
}

func logDropped(source string, b *tableBuilder) {
	if b.dropped > 0 {
		gologger.Debug().Msgf("%s: dropped %d incomplete neighbor records", source, b.dropped)
	}
}
