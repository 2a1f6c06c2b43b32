package scoring

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/lingwo/essayd/internal/adapter/llm"
	"github.com/lingwo/essayd/internal/domain"
)

// Result is the outcome of grading one essay.
type Result struct {
	Criteria          map[string]domain.CriterionResult
	CommonMistakes    []domain.Mistake
	MaxScore          float64
	TotalScore        float64
	TotalScorePercent *float64
}

// TopicVerdict is the outcome of validating a free-typed topic.
type TopicVerdict struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// MaxTopicChars bounds the topic passed to validation.
const MaxTopicChars = 512

const (
	msgTopicTooShort    = "Тема слишком короткая. Напишите формулировку темы сочинения."
	msgTopicCheckFailed = "Не удалось проверить тему. Попробуйте ещё раз."
	msgTopicRejected    = "Тема не прошла проверку."
)

// Scorer grades essays and validates topics against the model runtime.
type Scorer struct {
	gen llm.Generator
}

// NewScorer creates a scorer on top of the shared runtime handle.
func NewScorer(gen llm.Generator) *Scorer {
	return &Scorer{gen: gen}
}

// Evaluate grades an essay against the rubric for its kind. Unusable model
// output — empty text, no JSON, garbled JSON — degrades to a zeroed result
// and is never an error: an ungraded record is a valid terminal state. Only
// a runtime failure is returned as an error.
func (s *Scorer) Evaluate(ctx context.Context, topic, text string, kind domain.EssayKind) (Result, error) {
	req := &llm.CompletionRequest{
		Prompt:        buildGradingPrompt(kind, topic, text),
		NPredict:      1536,
		Temperature:   0.3,
		TopK:          gemmaTopK,
		TopP:          gemmaTopP,
		RepeatPenalty: gemmaRepeatPenalty,
		MinP:          gemmaMinP,
		Stop:          []string{"</s>", "<end_of_turn>", "\n\n\n"},
	}

	out, err := s.gen.Generate(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("essay_eval: generate: %w", err)
	}
	if out == "" {
		log.Printf("essay_eval: model returned empty output (kind=%s)", kind)
		return zeroResult(kind), nil
	}

	raw, err := ExtractObject(out)
	if err != nil {
		log.Printf("essay_eval: unusable model output (kind=%s): %v; head: %s", kind, err, head(out, 500))
		raw = map[string]any{}
	}

	criteria, mistakes := Normalize(raw, kind)
	maxScore := MaxScore(kind)

	total := 0.0
	for _, key := range CriterionKeys(kind) {
		total += float64(criteria[key].Score)
	}
	total = math.Min(total, maxScore)

	return Result{
		Criteria:          criteria,
		CommonMistakes:    mistakes,
		MaxScore:          maxScore,
		TotalScore:        total,
		TotalScorePercent: percentOf(total, maxScore),
	}, nil
}

// ValidateTopic checks a free-typed topic with a lighter model call. Topics
// under 2 characters fail locally without touching the model. An empty model
// response is retried once, then validation fails closed.
func (s *Scorer) ValidateTopic(ctx context.Context, topic string) (TopicVerdict, error) {
	topic = strings.TrimSpace(topic)
	if runes := []rune(topic); len(runes) > MaxTopicChars {
		topic = string(runes[:MaxTopicChars])
	}
	if len([]rune(topic)) < 2 {
		return TopicVerdict{Valid: false, Message: msgTopicTooShort}, nil
	}

	req := &llm.CompletionRequest{
		Prompt:        buildValidatePrompt(topic),
		NPredict:      256,
		Temperature:   0,
		TopK:          gemmaTopK,
		TopP:          gemmaTopP,
		RepeatPenalty: gemmaRepeatPenalty,
		MinP:          gemmaMinP,
		Stop:          []string{"</s>", "<end_of_turn>"},
	}

	var out string
	for attempt := 1; attempt <= 2; attempt++ {
		text, err := s.gen.Generate(ctx, req)
		if err != nil {
			return TopicVerdict{}, fmt.Errorf("validate_topic: generate: %w", err)
		}
		if text != "" {
			out = text
			break
		}
		log.Printf("validate_topic: empty model response (attempt %d), topic=%q", attempt, head(topic, 100))
	}
	if out == "" {
		return TopicVerdict{Valid: false, Message: msgTopicCheckFailed}, nil
	}

	raw, err := ExtractObject(out)
	if err != nil {
		log.Printf("validate_topic: could not parse model response, topic=%q, response=%q: %v", head(topic, 80), head(out, 300), err)
		return TopicVerdict{Valid: false, Message: msgTopicCheckFailed}, nil
	}

	valid, _ := raw["valid"].(bool)
	message := coerceString(raw["message"])
	if !valid && message == "" {
		message = msgTopicRejected
	}
	if valid {
		message = ""
	}
	return TopicVerdict{Valid: valid, Message: message}, nil
}

func zeroResult(kind domain.EssayKind) Result {
	maxScore := MaxScore(kind)
	zero := 0.0
	return Result{
		Criteria:          DefaultCriteria(kind),
		CommonMistakes:    []domain.Mistake{},
		MaxScore:          maxScore,
		TotalScore:        0,
		TotalScorePercent: &zero,
	}
}

// percentOf returns total/max rounded to two decimals, or nil when max is 0.
func percentOf(total, max float64) *float64 {
	if max == 0 {
		return nil
	}
	p := math.Round(total/max*100) / 100
	return &p
}

func head(s string, n int) string {
	if runes := []rune(s); len(runes) > n {
		return string(runes[:n])
	}
	return s
}
