package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lingwo/essayd/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS essays (
			essay_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			essay_type TEXT NOT NULL,
			theme TEXT NOT NULL,
			text TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			total_score REAL NOT NULL DEFAULT 0,
			total_score_per REAL,
			max_score REAL,
			criteries TEXT NOT NULL DEFAULT '{}',
			common_mistakes TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_essays_user ON essays(user_id, ended_at)`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			user_id TEXT PRIMARY KEY,
			target_percent INTEGER NOT NULL DEFAULT 70,
			auto_save_enabled INTEGER NOT NULL DEFAULT 1,
			auto_save_interval_sec INTEGER NOT NULL DEFAULT 30
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// CreateEssay inserts a new essay record. Scoring fields are stored as-is,
// so a freshly submitted record carries its zeroed defaults.
func (s *SQLiteStore) CreateEssay(ctx context.Context, record *domain.EssayRecord) error {
	criteria, err := json.Marshal(record.Criteria)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}
	mistakes, err := json.Marshal(record.CommonMistakes)
	if err != nil {
		return fmt.Errorf("marshal common mistakes: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO essays (essay_id, user_id, essay_type, theme, text, started_at, ended_at,
			total_score, total_score_per, max_score, criteries, common_mistakes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.UserID, string(record.Kind), record.Topic, record.Text,
		record.StartedAt, record.EndedAt,
		record.TotalScore, record.TotalScorePercent, record.MaxScore,
		string(criteria), string(mistakes))
	return err
}

// GetEssay retrieves a record by id scoped to its owner. Missing is (nil, nil).
func (s *SQLiteStore) GetEssay(ctx context.Context, id, userID string) (*domain.EssayRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT essay_id, user_id, essay_type, theme, text, started_at, ended_at,
			total_score, total_score_per, max_score, criteries, common_mistakes
		FROM essays WHERE essay_id = ? AND user_id = ?`, id, userID)
	return scanEssay(row)
}

// getEssayAny retrieves a record by id regardless of owner. Used by the
// background scorer, which only has the record id.
func (s *SQLiteStore) getEssayAny(ctx context.Context, id string) (*domain.EssayRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT essay_id, user_id, essay_type, theme, text, started_at, ended_at,
			total_score, total_score_per, max_score, criteries, common_mistakes
		FROM essays WHERE essay_id = ?`, id)
	return scanEssay(row)
}

// GetEssayForScoring exposes the unscoped lookup to the service layer.
func (s *SQLiteStore) GetEssayForScoring(ctx context.Context, id string) (*domain.EssayRecord, error) {
	return s.getEssayAny(ctx, id)
}

func scanEssay(row *sql.Row) (*domain.EssayRecord, error) {
	var record domain.EssayRecord
	var kind string
	var percent, maxScore sql.NullFloat64
	var criteria, mistakes string

	err := row.Scan(&record.ID, &record.UserID, &kind, &record.Topic, &record.Text,
		&record.StartedAt, &record.EndedAt,
		&record.TotalScore, &percent, &maxScore, &criteria, &mistakes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record.Kind = domain.EssayKind(kind)
	if percent.Valid {
		record.TotalScorePercent = &percent.Float64
	}
	if maxScore.Valid {
		record.MaxScore = &maxScore.Float64
	}
	record.Criteria = map[string]domain.CriterionResult{}
	if err := json.Unmarshal([]byte(criteria), &record.Criteria); err != nil {
		return nil, fmt.Errorf("unmarshal criteria: %w", err)
	}
	record.CommonMistakes = []domain.Mistake{}
	if err := json.Unmarshal([]byte(mistakes), &record.CommonMistakes); err != nil {
		return nil, fmt.Errorf("unmarshal common mistakes: %w", err)
	}
	return &record, nil
}

// UpdateEssayScores writes the scoring result onto an existing record.
func (s *SQLiteStore) UpdateEssayScores(ctx context.Context, id string, update *domain.ScoreUpdate) (bool, error) {
	criteria, err := json.Marshal(update.Criteria)
	if err != nil {
		return false, fmt.Errorf("marshal criteria: %w", err)
	}
	mistakes, err := json.Marshal(update.CommonMistakes)
	if err != nil {
		return false, fmt.Errorf("marshal common mistakes: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE essays SET total_score = ?, total_score_per = ?, max_score = ?,
			criteries = ?, common_mistakes = ?
		WHERE essay_id = ?`,
		update.TotalScore, update.TotalScorePercent, update.MaxScore,
		string(criteria), string(mistakes), id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteEssay removes a record scoped to its owner.
func (s *SQLiteStore) DeleteEssay(ctx context.Context, id, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM essays WHERE essay_id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListEssays lists a user's records with optional kind filter, free-text
// search over theme and text, and ordering. Score ordering puts unscored
// records last.
func (s *SQLiteStore) ListEssays(ctx context.Context, userID string, filter domain.ListFilter) ([]domain.EssayListItem, error) {
	query := `SELECT essay_id, essay_type, theme, text, ended_at,
		total_score, total_score_per, max_score, criteries
	FROM essays WHERE user_id = ?`
	args := []any{userID}

	if filter.Kind.Valid() {
		query += ` AND essay_type = ?`
		args = append(args, string(filter.Kind))
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		query += ` AND (lower(theme) LIKE ? OR lower(text) LIKE ?)`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	switch filter.Order {
	case domain.OrderByScore:
		query += ` ORDER BY (max_score IS NULL) ASC, total_score DESC, ended_at DESC`
	case domain.OrderByTopic:
		query += ` ORDER BY theme ASC, ended_at DESC`
	default:
		query += ` ORDER BY ended_at DESC`
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.EssayListItem{}
	for rows.Next() {
		var item domain.EssayListItem
		var kind, text, criteria string
		var percent, maxScore sql.NullFloat64
		if err := rows.Scan(&item.ID, &kind, &item.Topic, &text, &item.EndedAt,
			&item.TotalScore, &percent, &maxScore, &criteria); err != nil {
			return nil, err
		}
		item.Kind = domain.EssayKind(kind)
		if percent.Valid {
			item.TotalScorePercent = &percent.Float64
		}
		if maxScore.Valid {
			item.MaxScore = &maxScore.Float64
		}
		item.Criteria = map[string]domain.CriterionResult{}
		if err := json.Unmarshal([]byte(criteria), &item.Criteria); err != nil {
			return nil, fmt.Errorf("unmarshal criteria: %w", err)
		}
		item.Excerpt = excerpt(text, 150)
		items = append(items, item)
	}
	return items, rows.Err()
}

func excerpt(text string, n int) string {
	if runes := []rune(text); len(runes) > n {
		return string(runes[:n])
	}
	return text
}

// GetUserSettings retrieves settings for a user. Missing is (nil, nil).
func (s *SQLiteStore) GetUserSettings(ctx context.Context, userID string) (*domain.UserSettings, error) {
	var settings domain.UserSettings
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, target_percent, auto_save_enabled, auto_save_interval_sec
		FROM user_settings WHERE user_id = ?`, userID).
		Scan(&settings.UserID, &settings.TargetPercent, &settings.AutoSaveEnabled, &settings.AutoSaveIntervalSec)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpsertUserSettings creates or replaces a user's settings row.
func (s *SQLiteStore) UpsertUserSettings(ctx context.Context, settings *domain.UserSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, target_percent, auto_save_enabled, auto_save_interval_sec)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			target_percent = excluded.target_percent,
			auto_save_enabled = excluded.auto_save_enabled,
			auto_save_interval_sec = excluded.auto_save_interval_sec`,
		settings.UserID, settings.TargetPercent, settings.AutoSaveEnabled, settings.AutoSaveIntervalSec)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
