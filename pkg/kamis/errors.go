package kamis

import "errors"

var (
	// ErrUpstreamFormat is returned when the provider responds with something
	// that is not the documented JSON envelope (HTML error pages included).
	// Not retryable at this layer.
	ErrUpstreamFormat = errors.New("kamis: unexpected response format")

	// ErrTransient is returned for network-level failures; callers may retry.
	ErrTransient = errors.New("kamis: transient upstream failure")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
