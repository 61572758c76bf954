package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sensai/sensai-backend/internal/model"
)

// AnalyticsRepository runs the aggregation queries behind the instructor analytics page.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository creates a new AnalyticsRepository.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

// minSessionSize is the number of attempts a batch needs to count as a quiz session.
const minSessionSize = 2

// GetSummary retrieves the headline counts of a quiz.
func (r *AnalyticsRepository) GetSummary(ctx context.Context, quizID int64) (*model.QuizSummary, error) {
	s := &model.QuizSummary{QuizID: quizID}
	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_correct),
			COUNT(DISTINCT student_id),
			AVG(is_correct::int)::float8,
			AVG(num_messages)::float8
		 FROM question_attempts
		 WHERE quiz_id = $1`, quizID,
	).Scan(&s.TotalAttempts, &s.CorrectCount, &s.StudentCount, &s.CorrectRate, &s.AvgNumMessages)
	if err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM (
			SELECT batch_id FROM question_attempts
			WHERE quiz_id = $1
			GROUP BY batch_id
			HAVING COUNT(*) >= $2
		 ) sessions`, quizID, minSessionSize,
	).Scan(&s.SessionCount)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetQuestionStats retrieves per-question correctness for every question in the quiz.
func (r *AnalyticsRepository) GetQuestionStats(ctx context.Context, quizID int64) ([]model.QuestionStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT
			q.id, q.title,
			COUNT(a.id),
			COUNT(a.id) FILTER (WHERE a.is_correct),
			COUNT(a.id) FILTER (WHERE a.id IS NOT NULL AND a.given_answer IS NULL)
		 FROM quiz_questions qq
		 JOIN questions q ON q.id = qq.question_id
		 LEFT JOIN question_attempts a ON a.question_id = q.id AND a.quiz_id = qq.quiz_id
		 WHERE qq.quiz_id = $1
		 GROUP BY q.id, q.title
		 ORDER BY q.id ASC`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []model.QuestionStat{}
	for rows.Next() {
		var s model.QuestionStat
		if err := rows.Scan(&s.QuestionID, &s.Title, &s.Attempts, &s.Correct, &s.Unanswered); err != nil {
			return nil, err
		}
		if s.Attempts > 0 {
			s.CorrectRatio = float64(s.Correct) / float64(s.Attempts)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// GetMistakeStats retrieves the mistake-type distribution of a quiz's wrong answers.
func (r *AnalyticsRepository) GetMistakeStats(ctx context.Context, quizID int64) ([]model.MistakeStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT m.id, m.label, COUNT(*)
		 FROM question_attempts a
		 JOIN mistake_types m ON m.id = a.mistake_type_id
		 WHERE a.quiz_id = $1
		 GROUP BY m.id, m.label
		 ORDER BY COUNT(*) DESC, m.id ASC`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []model.MistakeStat{}
	for rows.Next() {
		var s model.MistakeStat
		if err := rows.Scan(&s.MistakeTypeID, &s.Label, &s.Count); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// GetConfidenceStats breaks attempts down by self-reported confidence.
func (r *AnalyticsRepository) GetConfidenceStats(ctx context.Context, quizID int64) ([]model.ConfidenceStat, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT confidence, COUNT(*), COUNT(*) FILTER (WHERE is_correct)
		 FROM question_attempts
		 WHERE quiz_id = $1 AND confidence IS NOT NULL
		 GROUP BY confidence
		 ORDER BY confidence ASC`, quizID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []model.ConfidenceStat{}
	for rows.Next() {
		var s model.ConfidenceStat
		if err := rows.Scan(&s.Confidence, &s.Attempts, &s.Correct); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// GetSessions retrieves the most recent quiz sessions, a session being a batch of
// at least two attempts by one student.
func (r *AnalyticsRepository) GetSessions(ctx context.Context, quizID int64, limit int) ([]model.QuizSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.batch_id, a.student_id, u.name, MIN(a.attempted_at), COUNT(*), COUNT(*) FILTER (WHERE a.is_correct)
		 FROM question_attempts a
		 JOIN users u ON u.id = a.student_id
		 WHERE a.quiz_id = $1
		 GROUP BY a.batch_id, a.student_id, u.name
		 HAVING COUNT(*) >= $2
		 ORDER BY MIN(a.attempted_at) DESC
		 LIMIT $3`, quizID, minSessionSize, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []model.QuizSession{}
	for rows.Next() {
		var s model.QuizSession
		if err := rows.Scan(&s.BatchID, &s.StudentID, &s.StudentName, &s.StartedAt, &s.TotalQuestions, &s.Score); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
