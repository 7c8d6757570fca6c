package model

import (
	"time"

	"github.com/google/uuid"
)

// Category enumerates the TOEFL skill areas a quiz can cover.
type Category string

const (
	CategoryReading    Category = "reading"
	CategoryGrammar    Category = "grammar"
	CategoryVocabulary Category = "vocabulary"
	CategoryListening  Category = "listening"
	CategoryMixed      Category = "mixed"
)

// Difficulty enumerates quiz difficulty levels.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// TimerMode controls how the client presents the countdown.
type TimerMode string

const (
	TimerModeNone   TimerMode = "none"
	TimerModeSoft   TimerMode = "soft"
	TimerModeStrict TimerMode = "strict"
)

// QuizMode selects whether answers are revealed while taking the quiz.
type QuizMode string

const (
	QuizModeLearning QuizMode = "learning"
	QuizModeExam     QuizMode = "exam"
)

// Quiz represents a generated quiz. Exactly one of UserID and SessionToken is set.
type Quiz struct {
	ID               uuid.UUID  `json:"id"`
	UserID           *uuid.UUID `json:"userId,omitempty"`
	SessionToken     *string    `json:"-"`
	Category         Category   `json:"category"`
	Difficulty       Difficulty `json:"difficulty"`
	QuestionsCount   int        `json:"questionsCount"`
	TimerMode        TimerMode  `json:"timerMode"`
	QuizMode         QuizMode   `json:"quizMode"`
	Score            int        `json:"score"`
	TimeSpentSeconds *int       `json:"timeSpent,omitempty"`
	Completed        bool       `json:"completed"`
	CreatedAt        time.Time  `json:"createdAt"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
}

// IsGuest reports whether the quiz is owned by a session token rather than a user.
func (q *Quiz) IsGuest() bool {
	return q.UserID == nil
}

// Expired reports whether a guest quiz is past its expiry at now.
// Member quizzes never expire.
func (q *Quiz) Expired(now time.Time) bool {
	return q.ExpiresAt != nil && now.After(*q.ExpiresAt)
}

// GenerateQuizRequest is the payload for generating a new quiz.
type GenerateQuizRequest struct {
	Category       Category   `json:"category" binding:"required,oneof=reading grammar vocabulary listening mixed"`
	Difficulty     Difficulty `json:"difficulty" binding:"required,oneof=easy medium hard"`
	QuestionsCount int        `json:"questionsCount" binding:"required,min=5,max=20"`
	TimerMode      TimerMode  `json:"timerMode" binding:"omitempty,oneof=none soft strict"`
	QuizMode       QuizMode   `json:"quizMode" binding:"omitempty,oneof=learning exam"`
}

// ApplyDefaults fills optional fields left empty by the client.
func (r *GenerateQuizRequest) ApplyDefaults() {
	if r.TimerMode == "" {
		r.TimerMode = TimerModeNone
	}
	if r.QuizMode == "" {
		r.QuizMode = QuizModeExam
	}
}

// GenerateQuizResponse is returned after a quiz is generated and stored.
type GenerateQuizResponse struct {
	QuizID         uuid.UUID  `json:"quizId"`
	Category       Category   `json:"category"`
	Difficulty     Difficulty `json:"difficulty"`
	QuestionsCount int        `json:"questionsCount"`
	TimerMode      TimerMode  `json:"timerMode"`
	QuizMode       QuizMode   `json:"quizMode"`
	SessionToken   string     `json:"sessionToken,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
}

// SubmitQuizRequest is the payload for submitting answers to a quiz.
type SubmitQuizRequest struct {
	QuizID    string         `json:"quizId" binding:"required,uuid4_rfc4122"`
	Answers   []SubmitAnswer `json:"answers" binding:"required,dive"`
	TimeSpent *int           `json:"timeSpent" binding:"required,min=0,max=86400"`
}

// SubmitAnswer is a single answer within a submission.
type SubmitAnswer struct {
	QuestionID string `json:"questionId" binding:"required,uuid4_rfc4122"`
	Answer     string `json:"answer" binding:"required,min=1,notblank"`
}

// SubmitQuizResponse is the grading result of a submission.
type SubmitQuizResponse struct {
	QuizID     uuid.UUID `json:"quizId"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	Percentage int       `json:"percentage"`
	TimeSpent  int       `json:"timeSpent"`
}

// QuizDetail is a quiz with its ordered questions, as returned to its owner.
type QuizDetail struct {
	Quiz      *Quiz             `json:"quiz"`
	Questions []QuestionForUser `json:"questions"`
}
