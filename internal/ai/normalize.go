package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/stemsi/toefl-quiz-backend/internal/model"
	"github.com/xeipuuv/gojsonschema"
)

// GeneratedQuestion is one question as produced by the generator.
type GeneratedQuestion struct {
	QuestionType  model.QuestionType `json:"question_type"`
	Passage       *string            `json:"passage"`
	QuestionText  string             `json:"question_text"`
	Options       []string           `json:"options"`
	CorrectAnswer string             `json:"correct_answer"`
	Explanation   string             `json:"explanation"`
}

// ValidatedQuiz is generator output that passed normalization and schema checks.
type ValidatedQuiz struct {
	Questions []GeneratedQuestion `json:"questions"`
}

var schemaLoader = gojsonschema.NewStringLoader(questionSchema)

// compiledSchema is built once; the schema text is static.
var compiledSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(schemaLoader)
	if err != nil {
		panic(fmt.Sprintf("ai: compile question schema: %v", err))
	}
	return s
}()

// StripCodeFence removes a Markdown code fence wrapped around raw, with or
// without a language tag. Unfenced input is returned trimmed.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Optional info string such as "json".
		s = strings.TrimLeftFunc(s, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		})
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// NormalizeAnswer reduces answer spellings such as "(b)", " B " or "B) text"
// to a single uppercase letter.
func NormalizeAnswer(v string) string {
	v = strings.NewReplacer("(", "", ")", "").Replace(v)
	v = strings.TrimSpace(v)
	for _, r := range v {
		return string(unicode.ToUpper(r))
	}
	return ""
}

// NormalizeAndValidate turns raw generator text into a ValidatedQuiz. Any
// parse or schema failure is reported as an *InvalidResponseError.
func NormalizeAndValidate(raw string) (*ValidatedQuiz, error) {
	text := StripCodeFence(raw)
	if text == "" {
		return nil, &InvalidResponseError{Reason: "empty response"}
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &InvalidResponseError{Reason: "malformed JSON", Err: err}
	}

	normalizeAnswers(doc)

	result, err := compiledSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, &InvalidResponseError{Reason: "schema check failed", Err: err}
	}
	if !result.Valid() {
		fields := make([]FieldError, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			fields = append(fields, FieldError{Field: e.Field(), Message: e.Description()})
		}
		return nil, &InvalidResponseError{Reason: "schema violation", Fields: fields}
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, &InvalidResponseError{Reason: "re-encode", Err: err}
	}
	var quiz ValidatedQuiz
	if err := json.Unmarshal(normalized, &quiz); err != nil {
		return nil, &InvalidResponseError{Reason: "decode", Err: err}
	}
	return &quiz, nil
}

// normalizeAnswers rewrites correct_answer in place for every question object
// it can find. Shapes it does not recognize are left for the schema to reject.
func normalizeAnswers(doc interface{}) {
	root, ok := doc.(map[string]interface{})
	if !ok {
		return
	}
	questions, ok := root["questions"].([]interface{})
	if !ok {
		return
	}
	for _, item := range questions {
		q, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		v, ok := q["correct_answer"]
		if !ok || v == nil {
			continue
		}
		q["correct_answer"] = NormalizeAnswer(fmt.Sprint(v))
	}
}
