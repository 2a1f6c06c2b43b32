package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingwo/essayd/internal/adapter/llm"
	"github.com/lingwo/essayd/internal/domain"
	"github.com/lingwo/essayd/internal/kvstore"
	"github.com/lingwo/essayd/internal/repository"
	"github.com/lingwo/essayd/internal/scoring"
	"github.com/lingwo/essayd/internal/topics"
)

func newTestService(t *testing.T, gen llm.Generator) (*Service, *repository.SQLiteStore) {
	t.Helper()

	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	svc := New(store, kvstore.NewWithClient(rdb), scoring.NewScorer(gen), topics.NewProvider("", "no-such-file"))
	return svc, store
}

const goodGrade = `{"criteries":{"k1":{"score":1},"k2":{"score":1},"k3":{"score":1},"k4":{"score":0},"k5":{"score":0}},"common_mistakes":[]}`

func TestStartSaveEndLifecycle(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{goodGrade}}
	svc, _ := newTestService(t, mock)
	ctx := context.Background()

	session, err := svc.StartEssay(ctx, "u1", domain.KindFinalEssay, "Человек и природа", domain.TopicSourceRecommended)
	require.NoError(t, err)
	assert.Equal(t, "", session.Text)
	assert.False(t, session.StartedAt.IsZero())

	_, err = svc.SaveEssay(ctx, "u1", "черновик")
	require.NoError(t, err)

	current, err := svc.CurrentEssay(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "черновик", current.Text)

	record, err := svc.EndEssay(ctx, "u1", "финальный текст")
	require.NoError(t, err)

	// The record is returned immediately with default scoring fields.
	assert.Equal(t, "финальный текст", record.Text)
	assert.Equal(t, 0.0, record.TotalScore)
	assert.Nil(t, record.MaxScore)
	assert.Empty(t, record.Criteria)

	// The session is gone.
	_, err = svc.CurrentEssay(ctx, "u1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// The background job fills scores in exactly once.
	svc.WaitScoring()
	scored, err := svc.GetEssay(ctx, "u1", record.ID)
	require.NoError(t, err)
	require.NotNil(t, scored.MaxScore)
	assert.Equal(t, 5.0, *scored.MaxScore)
	assert.Equal(t, 3.0, scored.TotalScore)
	require.NotNil(t, scored.TotalScorePercent)
	assert.Equal(t, 0.6, *scored.TotalScorePercent)
	assert.Equal(t, 1, scored.Criteria["k1"].Score)
}

func TestStartConflict(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	ctx := context.Background()

	_, err := svc.StartEssay(ctx, "u1", domain.KindFinalEssay, "Тема", domain.TopicSourceRandom)
	require.NoError(t, err)

	_, err = svc.StartEssay(ctx, "u1", domain.KindStateExam, "Другая тема", domain.TopicSourceRandom)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	// clear releases the slot.
	require.NoError(t, svc.ClearEssay(ctx, "u1"))
	_, err = svc.StartEssay(ctx, "u1", domain.KindStateExam, "Другая тема", domain.TopicSourceRandom)
	assert.NoError(t, err)
}

func TestStartValidatesUntrustedTopics(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{`{"valid": false, "message": "бессмысленный набор слов"}`}}
	svc, _ := newTestService(t, mock)

	_, err := svc.StartEssay(context.Background(), "u1", domain.KindFinalEssay, "фыва олдж", domain.TopicSourceOwn)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidTopic))
	assert.Contains(t, err.Error(), "бессмысленный")
}

func TestStartUnsetSourceIsValidated(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{`{"valid": true}`}}
	svc, _ := newTestService(t, mock)

	_, err := svc.StartEssay(context.Background(), "u1", domain.KindFinalEssay, "Человек и природа", "")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls())
}

func TestStartTrustedSourceSkipsValidation(t *testing.T) {
	mock := llm.NewMockClient()
	svc, _ := newTestService(t, mock)

	_, err := svc.StartEssay(context.Background(), "u1", domain.KindFinalEssay, "Тема", domain.TopicSourceRecommended)
	require.NoError(t, err)
	assert.Zero(t, mock.Calls())
}

func TestSaveEndWithoutStart(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	ctx := context.Background()

	_, err := svc.SaveEssay(ctx, "u1", "текст")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.EndEssay(ctx, "u1", "текст")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestClearIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	assert.NoError(t, svc.ClearEssay(context.Background(), "u1"))
	assert.NoError(t, svc.ClearEssay(context.Background(), "u1"))
}

// gatedGenerator blocks generation until released, so tests can order the
// background job against foreground calls.
type gatedGenerator struct {
	release chan struct{}
	inner   llm.Generator
}

func (g *gatedGenerator) Generate(ctx context.Context, req *llm.CompletionRequest) (string, error) {
	<-g.release
	return g.inner.Generate(ctx, req)
}

func TestDeleteBeforeScoringSkipsWrite(t *testing.T) {
	gate := &gatedGenerator{
		release: make(chan struct{}),
		inner:   &llm.MockClient{Responses: []string{goodGrade}},
	}
	svc, store := newTestService(t, gate)
	ctx := context.Background()

	_, err := svc.StartEssay(ctx, "u1", domain.KindFinalEssay, "Тема", domain.TopicSourceRandom)
	require.NoError(t, err)
	record, err := svc.EndEssay(ctx, "u1", "текст")
	require.NoError(t, err)

	// Delete while the model call is still in flight, then let it finish.
	require.NoError(t, svc.DeleteEssay(ctx, "u1", record.ID))
	close(gate.release)
	svc.WaitScoring()

	got, err := store.GetEssayForScoring(ctx, record.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "a discarded scoring result must not resurrect the record")
}

func TestScoringFailureLeavesDefaults(t *testing.T) {
	mock := &llm.MockClient{Err: domain.ErrUpstream}
	svc, _ := newTestService(t, mock)
	ctx := context.Background()

	_, err := svc.StartEssay(ctx, "u1", domain.KindFinalEssay, "Тема", domain.TopicSourceRandom)
	require.NoError(t, err)
	record, err := svc.EndEssay(ctx, "u1", "текст")
	require.NoError(t, err)
	svc.WaitScoring()

	// The record stays visible with default scores; no retry is queued.
	got, err := svc.GetEssay(ctx, "u1", record.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.TotalScore)
	assert.Nil(t, got.MaxScore)
}

func TestGetAndDeleteUnknownEssay(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	ctx := context.Background()

	_, err := svc.GetEssay(ctx, "u1", "es_nope")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.True(t, errors.Is(svc.DeleteEssay(ctx, "u1", "es_nope"), domain.ErrNotFound))
}

func TestSettingsDefaultsAndPatch(t *testing.T) {
	svc, _ := newTestService(t, llm.NewMockClient())
	ctx := context.Background()

	settings, err := svc.Settings(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 70, settings.TargetPercent)

	target := 90
	updated, err := svc.UpdateSettings(ctx, "u1", domain.SettingsPatch{TargetPercent: &target})
	require.NoError(t, err)
	assert.Equal(t, 90, updated.TargetPercent)
	assert.True(t, updated.AutoSaveEnabled)

	bad := 300
	_, err = svc.UpdateSettings(ctx, "u1", domain.SettingsPatch{TargetPercent: &bad})
	assert.Error(t, err)
}
