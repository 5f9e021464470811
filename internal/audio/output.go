package audio

import (
	"fmt"
	"strings"
	"time"
)

// Backend names an audio output implementation.
type Backend string

const (
	BackendEbiten Backend = "ebiten"
	BackendOto    Backend = "oto"
)

// ParseBackend accepts "ebiten" or "oto".
func ParseBackend(name string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(name))) {
	case BackendEbiten:
		return BackendEbiten, nil
	case BackendOto:
		return BackendOto, nil
	default:
		return "", fmt.Errorf("audio: unknown backend %q (expected ebiten|oto)", name)
	}
}

// Output is a running playback stream.
type Output interface {
	Play()
	Pause()
	IsPlaying() bool
	// Position is what the listener actually hears, not what has been rendered.
	Position() time.Duration
	Close() error
}

// Open starts a paused output that pulls from source at sampleRate.
func Open(backend Backend, sampleRate int, source SampleSource) (Output, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}
	switch backend {
	case BackendEbiten, "":
		return openEbiten(sampleRate, source)
	case BackendOto:
		return openOto(sampleRate, source)
	default:
		return nil, fmt.Errorf("audio: unknown backend %q", backend)
	}
}
