package service

import (
	"context"
	"fmt"

	"github.com/lingwo/essayd/internal/domain"
)

// Settings returns the user's settings, falling back to defaults for users
// who never changed anything.
func (s *Service) Settings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	settings, err := s.store.GetUserSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		defaults := domain.DefaultSettings(userID)
		return &defaults, nil
	}
	return settings, nil
}

// UpdateSettings applies a partial update and returns the result.
func (s *Service) UpdateSettings(ctx context.Context, userID string, patch domain.SettingsPatch) (*domain.UserSettings, error) {
	settings, err := s.Settings(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.TargetPercent != nil {
		if *patch.TargetPercent < 0 || *patch.TargetPercent > 100 {
			return nil, fmt.Errorf("target_percent must be between 0 and 100")
		}
		settings.TargetPercent = *patch.TargetPercent
	}
	if patch.AutoSaveEnabled != nil {
		settings.AutoSaveEnabled = *patch.AutoSaveEnabled
	}
	if patch.AutoSaveIntervalSec != nil {
		if *patch.AutoSaveIntervalSec < 10 || *patch.AutoSaveIntervalSec > 120 {
			return nil, fmt.Errorf("auto_save_interval_sec must be between 10 and 120")
		}
		settings.AutoSaveIntervalSec = *patch.AutoSaveIntervalSec
	}

	if err := s.store.UpsertUserSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
