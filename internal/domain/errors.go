package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidMystery    = errors.New("invalid mystery type")
	ErrInvalidLanguage   = errors.New("invalid language")
	ErrStaleProgress     = errors.New("progress is not from today")
	ErrPlaybackCancelled = errors.New("playback cancelled")
	ErrMalformedContent  = errors.New("malformed content")
)
