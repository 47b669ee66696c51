package security

import (
	"context"
	"fmt"
	"image"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// HandleImageScan classifies a camera frame and updates the alarm status.
//
// The result always overwrites the cat-detection memory. A cat raises the
// alarm only while armed at home; no cat with every sensor inactive clears it.
// Classifier failures change nothing.
func (s *Service) HandleImageScan(ctx context.Context, img image.Image) error {
	if img == nil {
		return invalidArgument("image is required")
	}

	// The classifier runs outside the lock: it may be slow and has no state.
	catPresent, err := s.classifier.ImageContainsCat(ctx, img, s.threshold)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrClassifier, err)
	}

	ctx = logger.WithKV(ctx, "cat_detected", catPresent)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.catDetected = catPresent

	current, err := s.repo.AlarmStatus(ctx)
	if err != nil {
		return repositoryError("get alarm status", err)
	}

	next, decided, err := s.decideOnScan(ctx, catPresent)
	if err != nil {
		return err
	}

	changed := false

	if decided {
		if changed, err = s.commitAlarmStatus(ctx, current, next); err != nil {
			return err
		}
	}

	logger.Debug(ctx, "Image scanned")

	s.notifyCatDetected(ctx, catPresent)

	if changed {
		s.notifyAlarmStatus(ctx, next)
	}

	return nil
}

// decideOnScan returns the alarm status a scan result calls for, and whether it
// calls for one at all. Callers hold s.mu.
func (s *Service) decideOnScan(ctx context.Context, catPresent bool) (domain.AlarmStatus, bool, error) {
	if !catPresent {
		sensors, err := s.repo.Sensors(ctx)
		if err != nil {
			return "", false, repositoryError("get sensors", err)
		}

		if domain.AnyActive(sensors) {
			return "", false, nil
		}

		return domain.AlarmNone, true, nil
	}

	arming, err := s.repo.ArmingStatus(ctx)
	if err != nil {
		return "", false, repositoryError("get arming status", err)
	}

	if arming != domain.ArmingArmedHome {
		return "", false, nil
	}

	return domain.AlarmActive, true, nil
}
