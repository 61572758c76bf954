package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/grading"
	"github.com/sensai/sensai-backend/internal/metrics"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/response"
)

// AttemptStore persists question attempts.
type AttemptStore interface {
	Insert(ctx context.Context, a *model.Attempt) error
	// FindLatest returns pgx.ErrNoRows when the student never attempted the question in that quiz.
	FindLatest(ctx context.Context, studentID, questionID, quizID int64) (*model.Attempt, error)
	Touch(ctx context.Context, attemptID int64, batchID uuid.UUID, at time.Time) error
	ListByStudent(ctx context.Context, studentID int64, quizID *int64, limit, offset int) ([]model.Attempt, int, error)
}

// QuizChecker reports whether a quiz exists and which questions it holds.
type QuizChecker interface {
	Exists(ctx context.Context, quizID int64) (bool, error)
	HasQuestion(ctx context.Context, quizID, questionID int64) (bool, error)
}

// AnswerKeySource returns the stored correct answer of a question, or an
// error wrapping ErrNotFound.
type AnswerKeySource interface {
	CorrectAnswer(ctx context.Context, questionID int64) (string, error)
}

// UnansweredLookup resolves the catalog entry used for unanswered questions.
// A nil id means the catalog has no such entry.
type UnansweredLookup interface {
	UnansweredID(ctx context.Context) (*int64, error)
}

// ClassifyInput is what the mistake classifier gets to see about a wrong answer.
type ClassifyInput struct {
	StudentID   int64
	QuestionID  int64
	QuizID      int64
	GivenAnswer string
	Confidence  *model.Confidence
	Transcript  []model.ChatTurn
}

// MistakeClassifier labels a wrong answer with a mistake type id. A nil id
// with a nil error means no catalog entry fits.
type MistakeClassifier interface {
	Classify(ctx context.Context, in ClassifyInput) (*int64, error)
}

// AttemptPublisher pushes recorded attempts onto the live instructor feed.
type AttemptPublisher interface {
	PublishAttempt(ctx context.Context, ev model.AttemptEvent) error
}

// TranscriptQueue hands a tutor transcript to the persistence worker.
type TranscriptQueue interface {
	EnqueueTranscript(ctx context.Context, log model.ChatLog) error
}

// RecordAttemptInput carries one question attempt into the recorder.
type RecordAttemptInput struct {
	StudentID        int64
	QuestionID       int64
	QuizID           int64
	GivenAnswer      *string
	Transcript       []model.ChatTurn
	MessageCount     int
	Confidence       *model.Confidence
	SessionTimestamp time.Time
	BatchID          uuid.UUID
	IsRecheck        bool
}

// AttemptOutcome is the result of recording one attempt.
type AttemptOutcome struct {
	AttemptID     int64     `json:"attemptId"`
	IsCorrect     bool      `json:"isCorrect"`
	MistakeTypeID *int64    `json:"mistakeTypeId"`
	BatchID       uuid.UUID `json:"batchId"`
	AttemptedAt   time.Time `json:"timestamp"`
	// Touched is set when a re-check updated an existing row instead of inserting.
	Touched bool `json:"touched"`
}

// AttemptDeps groups the collaborators of AttemptService.
type AttemptDeps struct {
	Store       AttemptStore
	Quizzes     QuizChecker
	Answers     AnswerKeySource
	Unanswered  UnansweredLookup
	Classifier  MistakeClassifier
	Publisher   AttemptPublisher
	Transcripts TranscriptQueue
	Metrics     *metrics.Metrics

	// ClassifyTimeout bounds each classifier call. Zero means no extra deadline.
	ClassifyTimeout time.Duration
}

// AttemptService records quiz attempts and scores quiz submissions.
type AttemptService struct {
	store           AttemptStore
	quizzes         QuizChecker
	answers         AnswerKeySource
	unanswered      UnansweredLookup
	classifier      MistakeClassifier
	publisher       AttemptPublisher
	transcripts     TranscriptQueue
	metrics         *metrics.Metrics
	classifyTimeout time.Duration
	log             zerolog.Logger
	now             func() time.Time
}

// NewAttemptService creates a new AttemptService. Classifier, Publisher,
// Transcripts and Metrics are optional.
func NewAttemptService(deps AttemptDeps, log zerolog.Logger) *AttemptService {
	return &AttemptService{
		store:           deps.Store,
		quizzes:         deps.Quizzes,
		answers:         deps.Answers,
		unanswered:      deps.Unanswered,
		classifier:      deps.Classifier,
		publisher:       deps.Publisher,
		transcripts:     deps.Transcripts,
		metrics:         deps.Metrics,
		classifyTimeout: deps.ClassifyTimeout,
		log:             log.With().Str("component", "attempt_service").Logger(),
		now:             time.Now,
	}
}

// RecordAttempt grades one answer and writes it, or on a re-check touches the
// latest prior attempt of the same student, question and quiz. The question
// must belong to the quiz. A touched re-check is not classified and carries
// no mistake type.
func (s *AttemptService) RecordAttempt(ctx context.Context, in RecordAttemptInput) (*AttemptOutcome, error) {
	if in.StudentID <= 0 || in.QuestionID <= 0 || in.QuizID <= 0 {
		return nil, fmt.Errorf("record attempt: student, question and quiz ids are required: %w", ErrInvalidInput)
	}

	log := s.log.With().
		Int64("student_id", in.StudentID).
		Int64("question_id", in.QuestionID).
		Int64("quiz_id", in.QuizID).
		Logger()

	inQuiz, err := s.quizzes.HasQuestion(ctx, in.QuizID, in.QuestionID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check quiz membership")
		return nil, fmt.Errorf("check quiz membership: %w", ErrInternal)
	}
	if !inQuiz {
		return nil, fmt.Errorf("question %d in quiz %d: %w", in.QuestionID, in.QuizID, ErrNotFound)
	}

	given := grading.NormalizeAnswer(in.GivenAnswer)

	at := in.SessionTimestamp
	if at.IsZero() {
		at = s.now()
	}
	batchID := in.BatchID
	if batchID == uuid.Nil {
		batchID = uuid.New()
	}

	var (
		isCorrect bool
		mistakeID *int64
	)

	if given != nil {
		correct, err := s.answers.CorrectAnswer(ctx, in.QuestionID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("question %d: %w", in.QuestionID, ErrNotFound)
			}
			log.Error().Err(err).Msg("Failed to load correct answer")
			return nil, fmt.Errorf("load correct answer: %w", ErrInternal)
		}

		isCorrect = grading.IsAnswerCorrect(correct, given)

		if in.IsRecheck {
			out, err := s.touchPrior(ctx, log, in, batchID, at, isCorrect)
			if err != nil {
				return nil, err
			}
			if out != nil {
				s.afterWrite(ctx, log, in, given, out)
				return out, nil
			}
			// No prior attempt: fall through to a normal insert.
		}

		if !isCorrect {
			mistakeID = s.classify(ctx, log, ClassifyInput{
				StudentID:   in.StudentID,
				QuestionID:  in.QuestionID,
				QuizID:      in.QuizID,
				GivenAnswer: *given,
				Confidence:  in.Confidence,
				Transcript:  in.Transcript,
			})
		}
	} else {
		id, err := s.unanswered.UnansweredID(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Failed to look up unanswered mistake type")
			return nil, fmt.Errorf("look up unanswered mistake type: %w", ErrInternal)
		}
		mistakeID = id
	}

	attempt := &model.Attempt{
		StudentID:     in.StudentID,
		QuestionID:    in.QuestionID,
		QuizID:        in.QuizID,
		BatchID:       batchID,
		AttemptedAt:   at,
		GivenAnswer:   given,
		IsCorrect:     isCorrect,
		NumMessages:   max(in.MessageCount, 0),
		Confidence:    in.Confidence,
		MistakeTypeID: mistakeID,
	}
	if err := s.store.Insert(ctx, attempt); err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return nil, fmt.Errorf("insert attempt: referenced row missing: %w", ErrNotFound)
		}
		log.Error().Err(err).Msg("Failed to insert attempt")
		return nil, fmt.Errorf("insert attempt: %w", ErrInternal)
	}

	out := &AttemptOutcome{
		AttemptID:     attempt.ID,
		IsCorrect:     isCorrect,
		MistakeTypeID: mistakeID,
		BatchID:       batchID,
		AttemptedAt:   at,
	}
	s.afterWrite(ctx, log, in, given, out)
	return out, nil
}

// touchPrior moves the latest prior attempt to the re-check's batch and time.
// It returns nil, nil when there is no prior attempt.
func (s *AttemptService) touchPrior(ctx context.Context, log zerolog.Logger, in RecordAttemptInput, batchID uuid.UUID, at time.Time, isCorrect bool) (*AttemptOutcome, error) {
	prior, err := s.store.FindLatest(ctx, in.StudentID, in.QuestionID, in.QuizID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		log.Error().Err(err).Msg("Failed to look up prior attempt")
		return nil, fmt.Errorf("find prior attempt: %w", ErrInternal)
	}

	if err := s.store.Touch(ctx, prior.ID, batchID, at); err != nil {
		log.Error().Err(err).Int64("attempt_id", prior.ID).Msg("Failed to touch attempt on re-check")
		return nil, fmt.Errorf("touch attempt: %w", ErrInternal)
	}
	return &AttemptOutcome{
		AttemptID:   prior.ID,
		IsCorrect:   isCorrect,
		BatchID:     batchID,
		AttemptedAt: at,
		Touched:     true,
	}, nil
}

// SubmitQuizAttempt records every submission under one batch id and timestamp,
// in order. A failing item is reported in its feedback entry and the rest of
// the batch continues.
func (s *AttemptService) SubmitQuizAttempt(ctx context.Context, studentID, quizID int64, subs []model.QuestionSubmission) (*model.QuizSubmissionResult, error) {
	if studentID <= 0 || quizID <= 0 {
		return nil, fmt.Errorf("submit quiz: student and quiz ids are required: %w", ErrInvalidInput)
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("submit quiz: no questions submitted: %w", ErrInvalidInput)
	}

	exists, err := s.quizzes.Exists(ctx, quizID)
	if err != nil {
		s.log.Error().Err(err).Int64("quiz_id", quizID).Msg("Failed to look up quiz")
		return nil, fmt.Errorf("look up quiz: %w", ErrInternal)
	}
	if !exists {
		return nil, fmt.Errorf("quiz %d: %w", quizID, ErrNotFound)
	}

	batchID := uuid.New()
	at := s.now()

	result := &model.QuizSubmissionResult{
		Success:          true,
		QuestionFeedback: make([]model.QuestionFeedback, 0, len(subs)),
		TotalQuestions:   len(subs),
		BatchID:          batchID,
		Timestamp:        at,
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fb := model.QuestionFeedback{
			QuestionID:  sub.QuestionID,
			GivenAnswer: grading.NormalizeAnswer(sub.GivenAns),
		}

		out, err := s.RecordAttempt(ctx, RecordAttemptInput{
			StudentID:        studentID,
			QuestionID:       sub.QuestionID,
			QuizID:           quizID,
			GivenAnswer:      sub.GivenAns,
			Transcript:       sub.ChatHistory,
			MessageCount:     sub.NumMsgs,
			Confidence:       sub.SelfConfidence,
			SessionTimestamp: at,
			BatchID:          batchID,
			IsRecheck:        sub.HasCheckedAnswer,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.log.Warn().Err(err).
				Int64("student_id", studentID).
				Int64("question_id", sub.QuestionID).
				Int64("quiz_id", quizID).
				Str("batch_id", batchID.String()).
				Msg("Question skipped in quiz submission")
			result.Success = false
			fb.Error = string(ErrorCode(err))
		} else {
			fb.IsCorrect = out.IsCorrect
			fb.MistakeTypeID = out.MistakeTypeID
			if out.IsCorrect {
				result.Score++
			}
		}

		result.QuestionFeedback = append(result.QuestionFeedback, fb)
	}

	s.log.Info().
		Int64("student_id", studentID).
		Int64("quiz_id", quizID).
		Str("batch_id", batchID.String()).
		Int("score", result.Score).
		Int("total", result.TotalQuestions).
		Msg("Quiz submission recorded")

	return result, nil
}

// ListHistory returns a student's own attempts, newest first.
func (s *AttemptService) ListHistory(ctx context.Context, studentID int64, quizID *int64, page, perPage int) ([]model.Attempt, *response.Pagination, error) {
	page, perPage = clampPage(page, perPage)

	attempts, total, err := s.store.ListByStudent(ctx, studentID, quizID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list attempts: %w", err)
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}

	return attempts, newPagination(page, perPage, total), nil
}

// classify never fails the attempt: errors and panics from the classifier are
// logged, counted and turned into a nil mistake type.
func (s *AttemptService) classify(ctx context.Context, log zerolog.Logger, in ClassifyInput) (id *int64) {
	if s.classifier == nil {
		return nil
	}

	if s.classifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.classifyTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			s.classifierFailed(log, fmt.Errorf("classifier panic: %v", r))
			id = nil
		}
	}()

	id, err := s.classifier.Classify(ctx, in)
	if err != nil {
		s.classifierFailed(log, err)
		return nil
	}
	return id
}

func (s *AttemptService) classifierFailed(log zerolog.Logger, err error) {
	if s.metrics != nil {
		s.metrics.ClassifierFailures.Inc()
	}
	log.Warn().Err(err).Msg("Mistake classification failed, recording without a mistake type")
}

// afterWrite runs the best-effort side effects of a recorded attempt.
func (s *AttemptService) afterWrite(ctx context.Context, log zerolog.Logger, in RecordAttemptInput, given *string, out *AttemptOutcome) {
	if s.metrics != nil {
		outcome := metrics.OutcomeIncorrect
		switch {
		case given == nil:
			outcome = metrics.OutcomeUnanswered
		case out.IsCorrect:
			outcome = metrics.OutcomeCorrect
		}
		s.metrics.AttemptsRecorded.WithLabelValues(outcome).Inc()
	}

	if s.publisher != nil {
		ev := model.AttemptEvent{
			Type:          "attempt.recorded",
			StudentID:     in.StudentID,
			QuestionID:    in.QuestionID,
			QuizID:        in.QuizID,
			BatchID:       out.BatchID,
			IsCorrect:     out.IsCorrect,
			Answered:      given != nil,
			MistakeTypeID: out.MistakeTypeID,
			AttemptedAt:   out.AttemptedAt,
		}
		if err := s.publisher.PublishAttempt(ctx, ev); err != nil {
			log.Warn().Err(err).Msg("Failed to publish attempt event")
		}
	}

	if s.transcripts != nil {
		chat := model.ChatLog{
			StudentID:  in.StudentID,
			QuizID:     in.QuizID,
			QuestionID: in.QuestionID,
			BatchID:    out.BatchID,
			Turns:      in.Transcript,
			LoggedAt:   out.AttemptedAt,
		}
		if err := s.transcripts.EnqueueTranscript(ctx, chat); err != nil {
			log.Warn().Err(err).Msg("Failed to queue tutor transcript")
		}
	}
}
