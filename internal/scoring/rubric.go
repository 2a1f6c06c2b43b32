// Package scoring turns model output into rubric scores. It builds the
// grading prompt, extracts the JSON object from the completion, and
// normalizes the raw criterion data onto one of two fixed rubric schemas.
package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lingwo/essayd/internal/domain"
)

// Final essay rubric: 5 pass/fail criteria, one point each.
const (
	FinalEssayCriteria = 5
	FinalEssayMaxScore = 5.0
)

// State exam rubric: per-criterion maxima for K1..K10, summing to 22.
var stateExamMaxByCriterion = map[string]int{
	"K1": 1, "K2": 3, "K3": 2, "K4": 1, "K5": 2,
	"K6": 1, "K7": 3, "K8": 3, "K9": 3, "K10": 3,
}

// StateExamMaxScore is the state exam total maximum.
var StateExamMaxScore = func() float64 {
	sum := 0
	for _, m := range stateExamMaxByCriterion {
		sum += m
	}
	return float64(sum)
}()

// MaxScore returns the rubric total maximum for an essay kind.
func MaxScore(kind domain.EssayKind) float64 {
	if kind == domain.KindStateExam {
		return StateExamMaxScore
	}
	return FinalEssayMaxScore
}

// CriterionKeys returns the rubric's criterion keys in order.
func CriterionKeys(kind domain.EssayKind) []string {
	if kind == domain.KindStateExam {
		keys := make([]string, 0, 10)
		for i := 1; i <= 10; i++ {
			keys = append(keys, fmt.Sprintf("K%d", i))
		}
		return keys
	}
	keys := make([]string, 0, FinalEssayCriteria)
	for i := 1; i <= FinalEssayCriteria; i++ {
		keys = append(keys, fmt.Sprintf("k%d", i))
	}
	return keys
}

// DefaultCriteria returns a fully zeroed criteria map for the kind. Used
// when the model returns nothing usable.
func DefaultCriteria(kind domain.EssayKind) map[string]domain.CriterionResult {
	out := make(map[string]domain.CriterionResult)
	for _, key := range CriterionKeys(kind) {
		out[key] = zeroCriterion()
	}
	return out
}

func zeroCriterion() domain.CriterionResult {
	return domain.CriterionResult{FoundInText: []string{}, Suggestions: []string{}}
}

// Normalize projects a raw extracted object onto the rubric schema for the
// given kind. Model output is unreliable rather than malicious: every field
// is salvaged independently under strict type and bound enforcement, and a
// missing or garbled field degrades to its zero value without rejecting the
// rest of the object.
func Normalize(raw map[string]any, kind domain.EssayKind) (map[string]domain.CriterionResult, []domain.Mistake) {
	if kind == domain.KindStateExam {
		return normalizeGraded(raw), normalizeMistakes(raw)
	}
	return normalizeBinary(raw), normalizeMistakes(raw)
}

// normalizeBinary maps k1..k5 onto pass/fail scores. Any numeric or truthy
// value >= 1 is a pass; everything else, including an absent criterion, is a
// fail. There is no partial credit.
func normalizeBinary(raw map[string]any) map[string]domain.CriterionResult {
	section := criteriaSection(raw)
	out := make(map[string]domain.CriterionResult, FinalEssayCriteria)
	for i := 1; i <= FinalEssayCriteria; i++ {
		key := fmt.Sprintf("k%d", i)
		val := lookupCriterion(section, key, strconv.Itoa(i))
		if val == nil {
			out[key] = zeroCriterion()
			continue
		}
		score := 0
		if n, ok := coerceInt(val["score"]); ok && n >= 1 {
			score = 1
		}
		out[key] = criterionFrom(val, score)
	}
	return out
}

// normalizeGraded maps K1..K10 onto integer scores clamped to each
// criterion's maximum.
func normalizeGraded(raw map[string]any) map[string]domain.CriterionResult {
	section := criteriaSection(raw)
	out := make(map[string]domain.CriterionResult, len(stateExamMaxByCriterion))
	for i := 1; i <= 10; i++ {
		key := fmt.Sprintf("K%d", i)
		val := lookupCriterion(section, key, fmt.Sprintf("k%d", i), strconv.Itoa(i))
		if val == nil {
			out[key] = zeroCriterion()
			continue
		}
		score := 0
		if n, ok := coerceInt(val["score"]); ok {
			score = clamp(n, 0, stateExamMaxByCriterion[key])
		}
		out[key] = criterionFrom(val, score)
	}
	return out
}

func criterionFrom(val map[string]any, score int) domain.CriterionResult {
	return domain.CriterionResult{
		Score:       score,
		Comment:     coerceString(val["comment"]),
		FoundInText: stringList(val["found_in_text"]),
		Suggestions: stringList(val["suggestions"]),
	}
}

// normalizeMistakes keeps only entries with a known type and a count, and
// only ranges that are two-element numeric pairs. A malformed range drops
// that range alone, not the whole mistake entry.
func normalizeMistakes(raw map[string]any) []domain.Mistake {
	items, ok := lookupAny(raw, "common_mistakes", "mistakes").([]any)
	if !ok {
		return []domain.Mistake{}
	}
	out := make([]domain.Mistake, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rawType, hasType := entry["type"]
		rawCount, hasCount := entry["count"]
		if !hasType || !hasCount {
			continue
		}
		mtype := domain.MistakeType(coerceString(rawType))
		switch mtype {
		case domain.MistakePunctuation, domain.MistakeSpelling, domain.MistakeGrammar, domain.MistakeStyle:
		default:
			continue
		}
		count, ok := coerceInt(rawCount)
		if !ok {
			continue
		}
		out = append(out, domain.Mistake{
			Type:   mtype,
			Count:  count,
			Ranges: rangePairs(entry["ranges"]),
		})
	}
	return out
}

func rangePairs(v any) [][2]int {
	out := [][2]int{}
	items, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range items {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			continue
		}
		start, okStart := coerceInt(pair[0])
		end, okEnd := coerceInt(pair[1])
		if !okStart || !okEnd {
			continue
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

// criteriaSection accepts both spellings the model tends to produce.
func criteriaSection(raw map[string]any) map[string]any {
	if section, ok := lookupAny(raw, "criteries", "criteria").(map[string]any); ok {
		return section
	}
	return map[string]any{}
}

// lookupCriterion tries the canonical key and the alternate spellings the
// model substitutes (lowercase, bare index).
func lookupCriterion(section map[string]any, keys ...string) map[string]any {
	for _, key := range keys {
		if val, ok := section[key].(map[string]any); ok {
			return val
		}
	}
	return nil
}

func lookupAny(raw map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

// coerceInt converts what json.Unmarshal produces for a score-like field
// into an int. Numbers truncate, bools map to 0/1, numeric strings parse.
func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return int(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", s)
	}
}

// stringList keeps only well-formed string lists; anything else is empty.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
