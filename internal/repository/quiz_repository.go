package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stemsi/toefl-quiz-backend/internal/model"
)

const quizColumns = `id, user_id, session_token, category, difficulty, questions_count,
	timer_mode, quiz_mode, score, time_spent_seconds, completed, created_at, expires_at`

// InsertQuiz implements DataAccess.
func (a *quizAccess) InsertQuiz(ctx context.Context, q *model.Quiz) error {
	return a.run(ctx, func(db dbtx) error {
		return db.QueryRow(ctx,
			`INSERT INTO quizzes (user_id, session_token, category, difficulty, questions_count,
			                      timer_mode, quiz_mode, score, completed, expires_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, false, $8)
			 RETURNING id, created_at`,
			q.UserID, q.SessionToken, q.Category, q.Difficulty, q.QuestionsCount,
			q.TimerMode, q.QuizMode, q.ExpiresAt,
		).Scan(&q.ID, &q.CreatedAt)
	})
}

// DeleteQuiz implements DataAccess.
func (a *quizAccess) DeleteQuiz(ctx context.Context, id uuid.UUID) error {
	return a.run(ctx, func(db dbtx) error {
		_, err := db.Exec(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
		return err
	})
}

// GetQuiz implements DataAccess.
func (a *quizAccess) GetQuiz(ctx context.Context, id uuid.UUID) (*model.Quiz, error) {
	q := &model.Quiz{}
	err := a.run(ctx, func(db dbtx) error {
		return db.QueryRow(ctx,
			`SELECT `+quizColumns+` FROM quizzes WHERE id = $1`, id,
		).Scan(&q.ID, &q.UserID, &q.SessionToken, &q.Category, &q.Difficulty, &q.QuestionsCount,
			&q.TimerMode, &q.QuizMode, &q.Score, &q.TimeSpentSeconds, &q.Completed, &q.CreatedAt, &q.ExpiresAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// CompleteQuiz implements DataAccess.
func (a *quizAccess) CompleteQuiz(ctx context.Context, id uuid.UUID, score, timeSpentSeconds int) error {
	return a.run(ctx, func(db dbtx) error {
		tag, err := db.Exec(ctx,
			`UPDATE quizzes
			 SET score = $2, time_spent_seconds = $3, completed = true
			 WHERE id = $1 AND completed = false`,
			id, score, timeSpentSeconds)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrAlreadyCompleted
		}
		return nil
	})
}

// ────────────────────────────────────────────────────────────────────────────
// Questions
// ────────────────────────────────────────────────────────────────────────────

// InsertQuestions implements DataAccess using a single UNNEST insert.
func (a *quizAccess) InsertQuestions(ctx context.Context, quizID uuid.UUID, questions []model.Question) error {
	n := len(questions)
	if n == 0 {
		return nil
	}

	types := make([]string, 0, n)
	passages := make([]*string, 0, n)
	texts := make([]string, 0, n)
	options := make([]string, 0, n)
	answers := make([]string, 0, n)
	explanations := make([]string, 0, n)
	orders := make([]int32, 0, n)

	for _, q := range questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
		types = append(types, string(q.QuestionType))
		passages = append(passages, q.Passage)
		texts = append(texts, q.QuestionText)
		options = append(options, string(opts))
		answers = append(answers, q.CorrectAnswer)
		explanations = append(explanations, q.Explanation)
		orders = append(orders, int32(q.OrderIndex))
	}

	const query = `
		INSERT INTO quiz_questions
			(quiz_id, question_type, passage, question_text, options, correct_answer, explanation, order_index)
		SELECT $1::uuid, u.question_type, u.passage, u.question_text, u.options::jsonb, u.correct_answer, u.explanation, u.order_index
		FROM UNNEST(
			$2::text[],
			$3::text[],
			$4::text[],
			$5::text[],
			$6::text[],
			$7::text[],
			$8::int[]
		) AS u (question_type, passage, question_text, options, correct_answer, explanation, order_index)
	`

	return a.run(ctx, func(db dbtx) error {
		_, err := db.Exec(ctx, query, quizID, types, passages, texts, options, answers, explanations, orders)
		return err
	})
}

// ListQuestions implements DataAccess.
func (a *quizAccess) ListQuestions(ctx context.Context, quizID uuid.UUID) ([]model.Question, error) {
	var questions []model.Question
	err := a.run(ctx, func(db dbtx) error {
		rows, err := db.Query(ctx,
			`SELECT id, quiz_id, question_type, passage, question_text, options, correct_answer,
			        explanation, order_index, user_answer, is_correct
			 FROM quiz_questions
			 WHERE quiz_id = $1
			 ORDER BY order_index`, quizID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var q model.Question
			if err := rows.Scan(&q.ID, &q.QuizID, &q.QuestionType, &q.Passage, &q.QuestionText, &q.Options,
				&q.CorrectAnswer, &q.Explanation, &q.OrderIndex, &q.UserAnswer, &q.IsCorrect); err != nil {
				return err
			}
			questions = append(questions, q)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// SaveAnswers implements DataAccess with a single UPDATE ... FROM UNNEST.
func (a *quizAccess) SaveAnswers(ctx context.Context, quizID uuid.UUID, graded []model.GradedAnswer) error {
	n := len(graded)
	if n == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, n)
	answers := make([]*string, 0, n)
	correct := make([]bool, 0, n)
	for _, g := range graded {
		ids = append(ids, g.QuestionID)
		answers = append(answers, g.UserAnswer)
		correct = append(correct, g.IsCorrect)
	}

	const query = `
		UPDATE quiz_questions AS q
		SET user_answer = u.user_answer,
		    is_correct  = u.is_correct
		FROM UNNEST(
			$2::uuid[],
			$3::text[],
			$4::bool[]
		) AS u (id, user_answer, is_correct)
		WHERE q.id = u.id
		  AND q.quiz_id = $1
	`

	return a.run(ctx, func(db dbtx) error {
		_, err := db.Exec(ctx, query, quizID, ids, answers, correct)
		return err
	})
}
