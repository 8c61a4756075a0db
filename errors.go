package buildcache

import (
	"errors"
	"fmt"

	platformerrors "github.com/jmgilman/go/errors"
)

// ErrInvalidConfig is returned for configuration that cannot enable the cache.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// ErrCacheDirectory is returned by BeforeCompile when the cache directory
// cannot be created. It is the only cache failure that fails a build.
var ErrCacheDirectory = errors.New("cache directory unavailable")

func invalidConfig(msg string) error {
	return platformerrors.Wrap(fmt.Errorf("%w: %s", ErrInvalidConfig, msg),
		platformerrors.CodeInvalidConfig, msg)
}
