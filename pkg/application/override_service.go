package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/override"
)

// OverrideService manages manual velocity overrides on behalf of a user.
type OverrideService struct {
	store override.Store
	user  string
	log   logrus.FieldLogger
	now   Clock
}

func NewOverrideService(store override.Store, user string, log logrus.FieldLogger) *OverrideService {
	return &OverrideService{store: store, user: user, log: log, now: time.Now}
}

// WithClock replaces the service clock.
func (s *OverrideService) WithClock(now Clock) *OverrideService {
	s.now = now
	return s
}

// Get returns the override stored for the exact key, or nil.
func (s *OverrideService) Get(ctx context.Context, projectID, activity string) (*override.Override, error) {
	key, err := override.NewKey(projectID, activity)
	if err != nil {
		return nil, err
	}
	return s.store.Load(ctx, key)
}

// Set replaces the override for a key.
func (s *OverrideService) Set(ctx context.Context, projectID, activity string, hours float64, reason string, active bool) (*override.Override, error) {
	key, err := override.NewKey(projectID, activity)
	if err != nil {
		return nil, err
	}
	o := override.Override{
		HoursPerSprint: hours,
		Reason:         reason,
		UpdatedAt:      s.now().UTC(),
		UpdatedBy:      s.user,
		Active:         active,
	}
	if err := s.store.Save(ctx, key, o); err != nil {
		s.log.WithField("key", key.String()).WithError(err).Warn("forecast override rejected")
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"key":    key.String(),
		"hours":  hours,
		"active": active,
	}).Info("forecast override saved")
	return &o, nil
}

// Disable switches a key back to automatic velocity, keeping the record.
func (s *OverrideService) Disable(ctx context.Context, projectID, activity string) (*override.Override, error) {
	return s.setActive(ctx, projectID, activity, false)
}

// Enable re-activates a stored override.
func (s *OverrideService) Enable(ctx context.Context, projectID, activity string) (*override.Override, error) {
	return s.setActive(ctx, projectID, activity, true)
}

func (s *OverrideService) setActive(ctx context.Context, projectID, activity string, active bool) (*override.Override, error) {
	existing, err := s.Get(ctx, projectID, activity)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w for %s", override.ErrNotFound, override.Key{ProjectID: projectID, Activity: activity})
	}
	return s.Set(ctx, projectID, activity, existing.HoursPerSprint, existing.Reason, active)
}
