package assessment

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// RepairTier identifies which strategy turned upstream text into a value.
type RepairTier int

const (
	TierNone RepairTier = iota
	TierDirect
	TierPatternRepaired
	TierFieldExtracted
	TierSynthesized
)

func (t RepairTier) String() string {
	switch t {
	case TierDirect:
		return "direct"
	case TierPatternRepaired:
		return "pattern_repaired"
	case TierFieldExtracted:
		return "field_extracted"
	case TierSynthesized:
		return "synthesized"
	default:
		return "none"
	}
}

// ParsedQuestion is one question as emitted by the upstream model.
type ParsedQuestion struct {
	ID             string `json:"id"`
	Question       string `json:"question"`
	Difficulty     string `json:"difficulty"`
	Category       string `json:"category"`
	ExpectedOutput string `json:"expectedOutput"`
}

// ParsedQuestionSet is the question-set payload as emitted upstream.
type ParsedQuestionSet struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Questions   []ParsedQuestion `json:"questions"`
}

// QuestionSetRepair is the result of RepairQuestionSet.
type QuestionSetRepair struct {
	Set  ParsedQuestionSet
	Tier RepairTier
}

// ParsedReview is a single review payload with scores clamped to [0,100].
type ParsedReview struct {
	Correctness  int
	Efficiency   int
	Readability  int
	OverallScore int
	Feedback     string
	Improvements []string
}

const questionSetSchemaJSON = `{
  "type": "object",
  "required": ["title", "questions"],
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["question"],
        "properties": {
          "id": {"type": "string"},
          "question": {"type": "string", "minLength": 1},
          "difficulty": {"type": "string"},
          "category": {"type": "string"},
          "expectedOutput": {"type": "string"}
        }
      }
    }
  }
}`

const reviewSchemaJSON = `{
  "type": "object",
  "required": ["correctness", "efficiency", "readability", "overallScore", "feedback"],
  "properties": {
    "correctness": {"type": "number"},
    "efficiency": {"type": "number"},
    "readability": {"type": "number"},
    "overallScore": {"type": "number"},
    "feedback": {"type": "string"},
    "improvements": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	questionSetSchema = jsonschema.MustCompileString("question_set.json", questionSetSchemaJSON)
	reviewSchema      = jsonschema.MustCompileString("review.json", reviewSchemaJSON)
)

const jsonString = `"((?:[^"\\]|\\.)*)"`

var (
	fencePattern           = regexp.MustCompile("```(?:json|JSON)?")
	idQuestionPattern      = regexp.MustCompile(`"id"\s*:\s*"([^"]*)"\s*:\s*"`)
	trailingCommaPattern   = regexp.MustCompile(`,(\s*[}\]])`)
	adjacentObjectsPattern = regexp.MustCompile(`}\s*{`)

	titleField          = regexp.MustCompile(`"title"\s*:\s*` + jsonString)
	descriptionField    = regexp.MustCompile(`"description"\s*:\s*` + jsonString)
	idAnchor            = regexp.MustCompile(`"id"\s*:`)
	questionAnchor      = regexp.MustCompile(`"question"\s*:`)
	idField             = regexp.MustCompile(`"id"\s*:\s*(?:` + jsonString + `|(\d+))`)
	questionField       = regexp.MustCompile(`"question"\s*:\s*` + jsonString)
	inlineQuestionField = regexp.MustCompile(`"id"\s*:\s*"[^"]*"\s*:\s*` + jsonString)
	difficultyField     = regexp.MustCompile(`"difficulty"\s*:\s*"([^"]*)"`)
	categoryField       = regexp.MustCompile(`"category"\s*:\s*` + jsonString)
	expectedOutputField = regexp.MustCompile(`"expected_?[oO]utput"\s*:\s*` + jsonString)

	unescaper = strings.NewReplacer(`\n`, "\n", `\"`, `"`)
)

// RepairQuestionSet turns arbitrary upstream text into a question set. It
// never fails: when nothing can be recovered it synthesises a generic set.
func RepairQuestionSet(raw string) QuestionSetRepair {
	if set, ok := decodeQuestionSet(raw); ok {
		return QuestionSetRepair{Set: set, Tier: TierDirect}
	}

	if set, ok := decodeQuestionSet(applyRepairPatterns(raw)); ok {
		return QuestionSetRepair{Set: set, Tier: TierPatternRepaired}
	}

	if set := scanQuestionFields(raw); len(set.Questions) > 0 {
		return QuestionSetRepair{Set: set, Tier: TierFieldExtracted}
	}

	return QuestionSetRepair{Set: synthesizedQuestionSet(), Tier: TierSynthesized}
}

// RepairReview parses a single review payload, trying a direct decode and then
// the pattern substitutions. Anything else is ErrMalformedResponse; scores
// cannot be invented without context, so there is no synthesis tier.
func RepairReview(raw string) (ParsedReview, RepairTier, error) {
	if review, ok := decodeReview(raw); ok {
		return review, TierDirect, nil
	}
	if review, ok := decodeReview(applyRepairPatterns(raw)); ok {
		return review, TierPatternRepaired, nil
	}
	return ParsedReview{}, TierNone, fmt.Errorf("%w: review payload", ErrMalformedResponse)
}

func decodeQuestionSet(raw string) (ParsedQuestionSet, bool) {
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return ParsedQuestionSet{}, false
	}
	if err := questionSetSchema.Validate(doc); err != nil {
		return ParsedQuestionSet{}, false
	}

	var set ParsedQuestionSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return ParsedQuestionSet{}, false
	}
	return set, true
}

func decodeReview(raw string) (ParsedReview, bool) {
	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return ParsedReview{}, false
	}
	if err := reviewSchema.Validate(doc); err != nil {
		return ParsedReview{}, false
	}

	var payload struct {
		Correctness  float64  `json:"correctness"`
		Efficiency   float64  `json:"efficiency"`
		Readability  float64  `json:"readability"`
		OverallScore float64  `json:"overallScore"`
		Feedback     string   `json:"feedback"`
		Improvements []string `json:"improvements"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return ParsedReview{}, false
	}

	improvements := make([]string, 0, len(payload.Improvements))
	for _, item := range payload.Improvements {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			improvements = append(improvements, trimmed)
		}
	}

	return ParsedReview{
		Correctness:  clampScore(payload.Correctness),
		Efficiency:   clampScore(payload.Efficiency),
		Readability:  clampScore(payload.Readability),
		OverallScore: clampScore(payload.OverallScore),
		Feedback:     strings.TrimSpace(payload.Feedback),
		Improvements: improvements,
	}, true
}

// applyRepairPatterns rewrites the malformation signatures seen in practice.
func applyRepairPatterns(raw string) string {
	out := fencePattern.ReplaceAllString(raw, "")
	out = outermostObject(out)
	out = idQuestionPattern.ReplaceAllString(out, `"id": "$1", "question": "`)
	out = trailingCommaPattern.ReplaceAllString(out, "$1")
	out = adjacentObjectsPattern.ReplaceAllString(out, "},{")
	return strings.TrimSpace(out)
}

// outermostObject returns the first balanced {...} span, ignoring braces inside
// strings. A truncated document yields everything from the first brace.
func outermostObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return s
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}

func scanQuestionFields(raw string) ParsedQuestionSet {
	set := ParsedQuestionSet{
		Title:       firstMatch(titleField, raw),
		Description: firstMatch(descriptionField, raw),
	}

	anchors := idAnchor.FindAllStringIndex(raw, -1)
	questionAnchors := questionAnchor.FindAllStringIndex(raw, -1)
	if len(anchors) == 0 || (len(questionAnchors) > 0 && questionAnchors[0][0] < anchors[0][0]) {
		anchors = questionAnchors
	}

	for i, loc := range anchors {
		end := len(raw)
		if i+1 < len(anchors) {
			end = anchors[i+1][0]
		}
		chunk := raw[loc[0]:end]

		text := firstMatch(questionField, chunk)
		if text == "" {
			text = firstMatch(inlineQuestionField, chunk)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}

		id := ""
		if m := idField.FindStringSubmatch(chunk); m != nil {
			id = m[1] + m[2]
		}
		if id == "" {
			id = fmt.Sprintf("q%d", len(set.Questions)+1)
		}

		set.Questions = append(set.Questions, ParsedQuestion{
			ID:             id,
			Question:       strings.TrimSpace(text),
			Difficulty:     firstMatch(difficultyField, chunk),
			Category:       firstMatch(categoryField, chunk),
			ExpectedOutput: firstMatch(expectedOutputField, chunk),
		})
	}

	return set
}

func firstMatch(pattern *regexp.Regexp, s string) string {
	m := pattern.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return unescaper.Replace(m[1])
}

// DegradedTitle marks a question set synthesised without upstream content.
const DegradedTitle = "General Coding Assessment (degraded)"

func synthesizedQuestionSet() ParsedQuestionSet {
	return ParsedQuestionSet{
		Title:       DegradedTitle,
		Description: "The question generator returned an unreadable response, so a general-purpose question set is provided instead.",
		Questions: []ParsedQuestion{
			{
				ID:             "q1",
				Question:       "Write a function that returns the first character of a string that does not repeat anywhere in the string, or an empty value if every character repeats.",
				Difficulty:     "easy",
				Category:       "Strings",
				ExpectedOutput: "For \"swiss\" the result is \"w\".",
			},
			{
				ID:             "q2",
				Question:       "Given a list of meeting time intervals, merge all overlapping intervals and return the resulting list sorted by start time.",
				Difficulty:     "medium",
				Category:       "Sorting",
				ExpectedOutput: "[[1,3],[2,6],[8,10]] becomes [[1,6],[8,10]].",
			},
			{
				ID:             "q3",
				Question:       "Design a fixed-capacity cache that evicts the least recently used entry when full, with get and put operations in constant time.",
				Difficulty:     "hard",
				Category:       "Data Structures",
				ExpectedOutput: "With capacity 2: put(1), put(2), get(1), put(3) evicts key 2.",
			},
		},
	}
}

// clampScore bounds v before converting, since float to int conversion is
// undefined outside the int range.
func clampScore(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return int(math.Round(v))
}
