package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/lingwo/essayd/internal/domain"
	"github.com/lingwo/essayd/internal/kvstore"
	"github.com/lingwo/essayd/internal/scoring"
)

// StartEssay begins a new drafting session. Untrusted topics are validated
// by the model first; a user with an active session gets ErrConflict.
func (s *Service) StartEssay(ctx context.Context, userID string, kind domain.EssayKind, topic string, source domain.TopicSource) (*domain.EssaySession, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown essay kind %q", domain.ErrInvalidTopic, kind)
	}
	if topic == "" {
		return nil, fmt.Errorf("%w: empty topic", domain.ErrInvalidTopic)
	}

	// Validate unless the topic explicitly came from a trusted origin. An
	// unset source is treated as user-authored, otherwise a resubmission
	// could skip the check.
	if !source.Trusted() {
		verdict, err := s.scorer.ValidateTopic(ctx, topic)
		if err != nil {
			return nil, err
		}
		if !verdict.Valid {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidTopic, verdict.Message)
		}
	}

	session := &domain.EssaySession{
		UserID:    userID,
		Kind:      kind,
		Topic:     topic,
		Text:      "",
		StartedAt: time.Now().UTC(),
	}
	blob, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	created, err := s.kv.SetNX(ctx, kvstore.SessionKey(userID), string(blob))
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("%w for user %s", domain.ErrConflict, userID)
	}
	return session, nil
}

// CurrentEssay returns the user's active session.
func (s *Service) CurrentEssay(ctx context.Context, userID string) (*domain.EssaySession, error) {
	return s.loadSession(ctx, userID)
}

// SaveEssay overwrites the draft text of the active session. Autosave calls
// this repeatedly; the write replaces, never appends.
func (s *Service) SaveEssay(ctx context.Context, userID, text string) (*domain.EssaySession, error) {
	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	session.Text = text

	blob, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	if err := s.kv.Set(ctx, kvstore.SessionKey(userID), string(blob)); err != nil {
		return nil, err
	}
	return session, nil
}

// EndEssay submits the essay: the session snapshot plus the final text
// becomes a durable record with zeroed scores, the session is deleted, and
// scoring is scheduled in the background. The caller polls the record for
// the final score.
func (s *Service) EndEssay(ctx context.Context, userID, text string) (*domain.EssayRecord, error) {
	session, err := s.loadSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	record := &domain.EssayRecord{
		ID:             "es_" + uuid.New().String(),
		UserID:         session.UserID,
		Kind:           session.Kind,
		Topic:          session.Topic,
		Text:           text,
		StartedAt:      session.StartedAt,
		EndedAt:        time.Now().UTC(),
		Criteria:       map[string]domain.CriterionResult{},
		CommonMistakes: []domain.Mistake{},
	}
	if err := s.store.CreateEssay(ctx, record); err != nil {
		return nil, fmt.Errorf("create essay record: %w", err)
	}

	if err := s.kv.Delete(ctx, kvstore.SessionKey(userID)); err != nil {
		return nil, err
	}

	s.scoring.Add(1)
	go s.scoreEssay(record.ID)

	return record, nil
}

// ClearEssay abandons the draft without submitting. Idempotent.
func (s *Service) ClearEssay(ctx context.Context, userID string) error {
	return s.kv.Delete(ctx, kvstore.SessionKey(userID))
}

func (s *Service) loadSession(ctx context.Context, userID string) (*domain.EssaySession, error) {
	blob, found, err := s.kv.Get(ctx, kvstore.SessionKey(userID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: no active essay for user %s", domain.ErrNotFound, userID)
	}
	var session domain.EssaySession
	if err := json.Unmarshal([]byte(blob), &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// scoreEssay is the detached background job. It outlives the originating
// request, runs at most once per record, and absorbs every model-side
// failure: a record left at default scores is a valid terminal state.
func (s *Service) scoreEssay(id string) {
	defer s.scoring.Done()
	ctx := context.Background()

	record, err := s.store.GetEssayForScoring(ctx, id)
	if err != nil {
		log.Printf("essay_eval: load essay %s: %v", id, err)
		return
	}
	if record == nil {
		log.Printf("essay_eval: essay %s not found", id)
		return
	}

	log.Printf("essay_eval: scoring essay %s (kind=%s, len=%d)", id, record.Kind, len(record.Text))
	result, err := s.scorer.Evaluate(ctx, record.Topic, record.Text, record.Kind)
	if err != nil {
		log.Printf("essay_eval: scoring essay %s failed: %v", id, err)
		return
	}

	found, err := s.store.UpdateEssayScores(ctx, id, &domain.ScoreUpdate{
		MaxScore:          result.MaxScore,
		TotalScore:        result.TotalScore,
		TotalScorePercent: result.TotalScorePercent,
		Criteria:          result.Criteria,
		CommonMistakes:    result.CommonMistakes,
	})
	if err != nil {
		log.Printf("essay_eval: save scores for essay %s: %v", id, err)
		return
	}
	if !found {
		// Deleted by the user while scoring ran; the result is discarded.
		log.Printf("essay_eval: essay %s gone before scores were saved", id)
		return
	}
	log.Printf("essay_eval: essay %s scored, total=%v", id, result.TotalScore)
}

// GetEssay returns one of the user's records, including scores once the
// background job finished.
func (s *Service) GetEssay(ctx context.Context, userID, id string) (*domain.EssayRecord, error) {
	record, err := s.store.GetEssay(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("%w: essay %s", domain.ErrNotFound, id)
	}
	return record, nil
}

// ListEssays lists the user's records.
func (s *Service) ListEssays(ctx context.Context, userID string, filter domain.ListFilter) ([]domain.EssayListItem, error) {
	return s.store.ListEssays(ctx, userID, filter)
}

// DeleteEssay removes one of the user's records. A scoring job still in
// flight for it will find the row gone and drop its result.
func (s *Service) DeleteEssay(ctx context.Context, userID, id string) error {
	found, err := s.store.DeleteEssay(ctx, id, userID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: essay %s", domain.ErrNotFound, id)
	}
	return nil
}

// ValidateTopic checks a user-authored topic with the model.
func (s *Service) ValidateTopic(ctx context.Context, topic string) (scoring.TopicVerdict, error) {
	return s.scorer.ValidateTopic(ctx, topic)
}

// RandomTopic picks a topic, optionally narrowed by section labels.
func (s *Service) RandomTopic(ctx context.Context, sections []string) (string, error) {
	return s.topics.Random(ctx, sections)
}
