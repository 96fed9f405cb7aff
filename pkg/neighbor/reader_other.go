//go:build !linux && !darwin && !windows

package neighbor

import (
	"context"
	"fmt"
	"runtime"
)

type unsupportedReader struct{}

func newPlatformReader() (Reader, error) {
	return unsupportedReader{}, nil
}

func (unsupportedReader) Read(context.Context) (*Table, error) {
	return nil, fmt.Errorf("%w: neighbor table lookup is not supported on %s", ErrUnavailable, runtime.GOOS)
}
