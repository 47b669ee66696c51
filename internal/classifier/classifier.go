package classifier

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"sync"

	"github.com/oshokin/catpoint/internal/config"
)

// Classifier reports whether an image contains a cat with at least the given
// confidence (0-100).
type Classifier interface {
	ImageContainsCat(ctx context.Context, img image.Image, confidenceThreshold float32) (bool, error)
}

// ErrNoImage is returned when a nil image is submitted.
var ErrNoImage = errors.New("image is required")

// Static always reports the same result.
type Static struct {
	// ContainsCat is the answer returned for every image.
	ContainsCat bool
}

// ImageContainsCat returns the configured answer.
func (s Static) ImageContainsCat(ctx context.Context, img image.Image, _ float32) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if img == nil {
		return false, ErrNoImage
	}

	return s.ContainsCat, nil
}

// Random reports a cat with a fixed probability, ignoring the image contents.
type Random struct {
	rng         *rand.Rand
	probability float64
	mu          sync.Mutex
}

// NewRandom creates a classifier that reports a cat with the given probability.
// A zero seed draws one from the runtime source.
func NewRandom(probability float64, seed uint64) *Random {
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Random{
		rng:         rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		probability: probability,
	}
}

// ImageContainsCat draws a detection with the configured probability and a
// uniform confidence; the detection only counts when it clears the threshold.
func (r *Random) ImageContainsCat(ctx context.Context, img image.Image, confidenceThreshold float32) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if img == nil {
		return false, ErrNoImage
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rng.Float64() >= r.probability {
		return false, nil
	}

	confidence := r.rng.Float32() * 100

	return confidence >= confidenceThreshold, nil
}

// New builds the classifier selected by the settings.
//
//nolint:ireturn // Callers only need the Classifier behavior.
func New(settings config.Classifier) (Classifier, error) {
	switch settings.Mode {
	case config.ClassifierRandom, "":
		return NewRandom(settings.Probability, settings.Seed), nil
	case config.ClassifierAlways:
		return Static{ContainsCat: true}, nil
	case config.ClassifierNever:
		return Static{ContainsCat: false}, nil
	default:
		return nil, fmt.Errorf("unknown classifier mode %q", settings.Mode)
	}
}
