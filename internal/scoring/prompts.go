package scoring

import (
	"strings"

	"github.com/lingwo/essayd/internal/domain"
)

// Gemma instruction-tuned chat format: the prompt is one user turn followed
// by the opening of the model turn.
const (
	gemmaUserPrefix = "<start_of_turn>user\n"
	gemmaUserSuffix = "<end_of_turn>\n<start_of_turn>model\n"
)

// Sampling settings tuned for deterministic-leaning grading output.
const (
	gemmaTopK          = 64
	gemmaTopP          = 0.95
	gemmaRepeatPenalty = 1.0
	gemmaMinP          = 0.01
)

// MaxEssayInputChars bounds the essay text included in the grading prompt.
const MaxEssayInputChars = 8000

// promptFinalEssay grades the final graduation essay: each of the 5 criteria
// is pass (1) or fail (0).
const promptFinalEssay = `Ты — эксперт по проверке итоговых сочинений. По каждому из 5 критериев выставляется только «зачет» или «незачет». В JSON для каждого критерия укажи score: 1 (зачет) или 0 (незачет).

Критерии:
k1 — Соответствие теме. «Незачет» только если сочинение не по теме, нет ответа на вопрос или нет цели высказывания. Иначе «зачет».
k2 — Аргументация. Привлечение литературного материала. «Незачет» если нет аргументации, нет опоры на литературу, существенно искажён текст или примеры не подкрепляют аргументы. Иначе «зачет».
k3 — Композиция и логика рассуждения. «Незачет» если грубые логические нарушения мешают пониманию или нет тезисно-доказательной части. Иначе «зачет».
k4 — Качество письменной речи. «Незачет» если низкое качество речи существенно затрудняет понимание. Иначе «зачет».
k5 — Грамотность. «Незачет» если на 100 слов в среднем более 5 ошибок (орфография, пунктуация, грамматика). Иначе «зачет».

Выяви типы ошибок по категориям: punctuation, spelling, grammar, style.

Для каждой ошибки укажи точные индексы начала и конца фрагмента в тексте (start и end - позиции символов в исходном тексте, начиная с 0).

Используй для входа только текст сочинения, никаких других данных. Сам ничего не добавляй.

Ответь ТОЛЬКО валидным JSON без markdown. У каждого критерия score — только 0 или 1:
{"criteries": {"k1": {"score": 0, "comment": "...", "found_in_text": []}, "k2": {"score": 0, "comment": "...", "suggestions": []}, "k3": {"score": 0, "comment": "..."}, "k4": {"score": 0, "comment": "..."}, "k5": {"score": 0, "comment": "..."}}, "common_mistakes": [{"type": "punctuation", "count": 0, "ranges": [[0, 0]]}]}

Тема: {theme}

Текст сочинения:
{text}
`

// promptStateExam grades the state exam written task: K1..K10 with integer
// scores inside the stated per-criterion bounds, max 22 total.
const promptStateExam = `Ты — эксперт по проверке сочинений ЕГЭ (задание 27). Оцени сочинение по критериям К1–К10. Баллы по каждому критерию — целое число в указанных пределах.

Критерии и макс. баллы:
К1 — Отражение позиции автора по проблеме исходного текста (0–1).
К2 — Комментарий к позиции автора: 2 примера-иллюстрации, пояснения, смысловая связь (0–3).
К3 — Собственное отношение к позиции автора, обоснование, пример-аргумент (0–2).
К4 — Фактическая точность речи (0–1).
К5 — Логичность речи (0–2).
К6 — Соблюдение этических норм (0–1).
К7 — Орфография (0–3).
К8 — Пунктуация (0–3).
К9 — Грамматика (0–3).
К10 — Речевые нормы (0–3).
Максимум за сочинение — 22 балла.

Выяви типы ошибок: punctuation, spelling, grammar, style.

Для каждой ошибки укажи точные индексы начала и конца фрагмента в тексте (start и end - позиции символов в исходном тексте, начиная с 0).

Используй для входа только текст сочинения, никаких других данных. Сам ничего не добавляй.

Ответь ТОЛЬКО валидным JSON без markdown, в формате:
{"criteries": {"k1": {"score": 0, "comment": "..."}, "k2": {"score": 0, "comment": "..."}, "k3": {"score": 0, "comment": "..."}, "k4": {"score": 0, "comment": "..."}, "k5": {"score": 0, "comment": "..."}, "k6": {"score": 0, "comment": "..."}, "k7": {"score": 0, "comment": "..."}, "k8": {"score": 0, "comment": "..."}, "k9": {"score": 0, "comment": "..."}, "k10": {"score": 0, "comment": "..."}}, "common_mistakes": [{"type": "punctuation", "count": 0, "ranges": [[0, 0]]}]}

Тема/проблема: {theme}

Текст сочинения:
{text}
`

// promptValidateTopic checks that a free-typed topic is a meaningful essay
// topic rather than noise.
const promptValidateTopic = `Проверь, является ли следующая строка осмысленной темой сочинения (итоговое сочинение или ЕГЭ по русскому языку).
Тема должна быть формулировкой проблемы или вопроса, по которому можно написать сочинение. Не допускаются: бессмысленный текст, случайный набор слов, оскорбления, реклама.
Ответь ТОЛЬКО валидным JSON без markdown: {"valid": true, "message": "краткая причина, если valid false"}

Тема: {theme}
`

// buildGradingPrompt fills the rubric template for the kind and wraps it in
// the gemma chat format. Substitution is a single pass over the template, so
// placeholder-like sequences inside the user text are inert.
func buildGradingPrompt(kind domain.EssayKind, topic, text string) string {
	tpl := promptFinalEssay
	if kind == domain.KindStateExam {
		tpl = promptStateExam
	}
	if runes := []rune(text); len(runes) > MaxEssayInputChars {
		text = string(runes[:MaxEssayInputChars])
	}
	body := strings.NewReplacer("{theme}", topic, "{text}", text).Replace(tpl)
	return gemmaUserPrefix + body + gemmaUserSuffix
}

func buildValidatePrompt(topic string) string {
	body := strings.Replace(promptValidateTopic, "{theme}", topic, 1)
	return gemmaUserPrefix + body + gemmaUserSuffix
}
