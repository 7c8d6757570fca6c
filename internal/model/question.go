package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the question formats the generator may produce.
type QuestionType string

const (
	QuestionTypeMultipleChoice       QuestionType = "multiple_choice"
	QuestionTypeErrorIdentification  QuestionType = "error_identification"
	QuestionTypeSentenceCompletion   QuestionType = "sentence_completion"
	QuestionTypeReadingComprehension QuestionType = "reading_comprehension"
)

// QuestionTypes lists every accepted question type in schema order.
var QuestionTypes = []QuestionType{
	QuestionTypeMultipleChoice,
	QuestionTypeErrorIdentification,
	QuestionTypeSentenceCompletion,
	QuestionTypeReadingComprehension,
}

// Question represents a single stored quiz question.
// UserAnswer and IsCorrect stay nil until the quiz is submitted.
type Question struct {
	ID            uuid.UUID    `json:"id"`
	QuizID        uuid.UUID    `json:"quizId"`
	QuestionType  QuestionType `json:"questionType"`
	Passage       *string      `json:"passage,omitempty"`
	QuestionText  string       `json:"questionText"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
	OrderIndex    int          `json:"orderIndex"`
	UserAnswer    *string      `json:"userAnswer,omitempty"`
	IsCorrect     *bool        `json:"isCorrect,omitempty"`
}

// QuestionForUser is a question as shown to the quiz owner. The answer key is
// omitted while an exam-mode quiz is still open.
type QuestionForUser struct {
	ID            uuid.UUID    `json:"id"`
	QuestionType  QuestionType `json:"questionType"`
	Passage       *string      `json:"passage,omitempty"`
	QuestionText  string       `json:"questionText"`
	Options       []string     `json:"options"`
	OrderIndex    int          `json:"orderIndex"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	Explanation   string       `json:"explanation,omitempty"`
	UserAnswer    *string      `json:"userAnswer,omitempty"`
	IsCorrect     *bool        `json:"isCorrect,omitempty"`
}

// ForUser projects q for display, revealing the key only when reveal is true.
func (q Question) ForUser(reveal bool) QuestionForUser {
	out := QuestionForUser{
		ID:           q.ID,
		QuestionType: q.QuestionType,
		Passage:      q.Passage,
		QuestionText: q.QuestionText,
		Options:      q.Options,
		OrderIndex:   q.OrderIndex,
		UserAnswer:   q.UserAnswer,
		IsCorrect:    q.IsCorrect,
	}
	if reveal {
		out.CorrectAnswer = q.CorrectAnswer
		out.Explanation = q.Explanation
	}
	return out
}

// GradedAnswer is the per-question outcome persisted on submission.
type GradedAnswer struct {
	QuestionID uuid.UUID
	UserAnswer *string
	IsCorrect  bool
}
