// Package domain defines the core domain models for essayd.
package domain

import "time"

// EssayKind selects the rubric an essay is scored against.
type EssayKind string

const (
	// KindFinalEssay is the final graduation essay: 5 pass/fail criteria, max 5.
	KindFinalEssay EssayKind = "essay"
	// KindStateExam is the state exam written task: 10 graded criteria, max 22.
	KindStateExam EssayKind = "ege"
)

// Valid reports whether the kind is one of the known rubric variants.
func (k EssayKind) Valid() bool {
	return k == KindFinalEssay || k == KindStateExam
}

// TopicSource records where a topic string came from. Topics from trusted
// sources (recommended, random) skip model validation; everything else,
// including an unset source, is treated as user-authored and validated.
type TopicSource string

const (
	TopicSourceOwn         TopicSource = "own"
	TopicSourceRecommended TopicSource = "recommended"
	TopicSourceRandom      TopicSource = "random"
)

// Trusted reports whether the topic may skip validation.
func (s TopicSource) Trusted() bool {
	return s == TopicSourceRecommended || s == TopicSourceRandom
}

// EssaySession is the ephemeral per-user draft. At most one exists per user
// at any time; it lives in the key-value store until end or clear.
type EssaySession struct {
	UserID    string    `json:"user_id"`
	Kind      EssayKind `json:"type"`
	Topic     string    `json:"theme"`
	Text      string    `json:"text"`
	StartedAt time.Time `json:"started_at"`
}

// CriterionResult is the normalized score for a single rubric criterion.
type CriterionResult struct {
	Score       int      `json:"score"`
	Comment     string   `json:"comment"`
	FoundInText []string `json:"found_in_text"`
	Suggestions []string `json:"suggestions"`
}

// MistakeType categorizes a common mistake reported by the grader.
type MistakeType string

const (
	MistakePunctuation MistakeType = "punctuation"
	MistakeSpelling    MistakeType = "spelling"
	MistakeGrammar     MistakeType = "grammar"
	MistakeStyle       MistakeType = "style"
)

// Mistake is one category of mistakes found in the essay text. Ranges holds
// [start, end) character offsets into the submitted text.
type Mistake struct {
	Type   MistakeType `json:"type"`
	Count  int         `json:"count"`
	Ranges [][2]int    `json:"ranges"`
}

// EssayRecord is the durable snapshot created at submission time. Scoring
// fields start zeroed so the client can poll immediately; the background
// scorer fills them in exactly once.
type EssayRecord struct {
	ID                string                     `json:"id"`
	UserID            string                     `json:"user_id"`
	Kind              EssayKind                  `json:"type"`
	Topic             string                     `json:"theme"`
	Text              string                     `json:"text"`
	StartedAt         time.Time                  `json:"started_at"`
	EndedAt           time.Time                  `json:"ended_at"`
	TotalScore        float64                    `json:"total_score"`
	TotalScorePercent *float64                   `json:"total_score_per"`
	MaxScore          *float64                   `json:"max_score"`
	Criteria          map[string]CriterionResult `json:"criteries"`
	CommonMistakes    []Mistake                  `json:"common_mistakes"`
}

// EssayListItem is the trimmed projection returned by listing. Excerpt holds
// the first 150 characters of the text.
type EssayListItem struct {
	ID                string                     `json:"id"`
	Kind              EssayKind                  `json:"type"`
	Topic             string                     `json:"theme"`
	EndedAt           time.Time                  `json:"ended_at"`
	TotalScore        float64                    `json:"total_score"`
	TotalScorePercent *float64                   `json:"total_score_per"`
	MaxScore          *float64                   `json:"max_score"`
	Criteria          map[string]CriterionResult `json:"criteries"`
	Excerpt           string                     `json:"excerpt"`
}

// ScoreUpdate is the one-time write-back of scoring results onto a record.
type ScoreUpdate struct {
	MaxScore          float64
	TotalScore        float64
	TotalScorePercent *float64
	Criteria          map[string]CriterionResult
	CommonMistakes    []Mistake
}

// ListOrder selects the ordering of a listing query.
type ListOrder string

const (
	OrderByDate  ListOrder = "date"
	OrderByScore ListOrder = "score"
	OrderByTopic ListOrder = "theme"
)

// ListFilter narrows and orders a listing query.
type ListFilter struct {
	Kind   EssayKind // empty = all kinds
	Search string    // free-text over topic and text
	Order  ListOrder
	Limit  int
}
