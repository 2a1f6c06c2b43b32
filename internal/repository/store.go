// Package repository defines the durable storage interface and its SQLite
// implementation.
package repository

import (
	"context"

	"github.com/lingwo/essayd/internal/domain"
)

// Store defines the interface for durable essay persistence.
type Store interface {
	// Essay records
	CreateEssay(ctx context.Context, record *domain.EssayRecord) error
	GetEssay(ctx context.Context, id, userID string) (*domain.EssayRecord, error)
	// GetEssayForScoring looks a record up by id alone; the background
	// scorer has no user in hand.
	GetEssayForScoring(ctx context.Context, id string) (*domain.EssayRecord, error)
	// UpdateEssayScores writes scoring results onto a record. It reports
	// found=false when the record no longer exists, so a scorer racing a
	// user deletion can skip the write.
	UpdateEssayScores(ctx context.Context, id string, update *domain.ScoreUpdate) (found bool, err error)
	DeleteEssay(ctx context.Context, id, userID string) (found bool, err error)
	ListEssays(ctx context.Context, userID string, filter domain.ListFilter) ([]domain.EssayListItem, error)

	// User settings
	GetUserSettings(ctx context.Context, userID string) (*domain.UserSettings, error)
	UpsertUserSettings(ctx context.Context, settings *domain.UserSettings) error

	// Lifecycle
	Close() error
}
