package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/metrics"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── fakes ───────────────────────────────────────────────────────────────

type fakeAttemptStore struct {
	mu        sync.Mutex
	rows      []model.Attempt
	nextID    int64
	insertErr error
	touches   int
}

func (f *fakeAttemptStore) Insert(_ context.Context, a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.nextID++
	a.ID = f.nextID
	f.rows = append(f.rows, *a)
	return nil
}

func (f *fakeAttemptStore) FindLatest(_ context.Context, studentID, questionID, quizID int64) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *model.Attempt
	for i := range f.rows {
		r := &f.rows[i]
		if r.StudentID != studentID || r.QuestionID != questionID || r.QuizID != quizID {
			continue
		}
		if latest == nil || !r.AttemptedAt.Before(latest.AttemptedAt) {
			latest = r
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeAttemptStore) Touch(_ context.Context, attemptID int64, batchID uuid.UUID, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == attemptID {
			f.rows[i].AttemptedAt = at
			f.rows[i].BatchID = batchID
			f.touches++
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (f *fakeAttemptStore) ListByStudent(_ context.Context, studentID int64, _ *int64, limit, offset int) ([]model.Attempt, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attempt
	for _, r := range f.rows {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	return out[offset:min(offset+limit, total)], total, nil
}

// fakeQuizzes maps a quiz id to the question ids it holds.
type fakeQuizzes map[int64][]int64

func (f fakeQuizzes) Exists(_ context.Context, quizID int64) (bool, error) {
	_, ok := f[quizID]
	return ok, nil
}

func (f fakeQuizzes) HasQuestion(_ context.Context, quizID, questionID int64) (bool, error) {
	return slices.Contains(f[quizID], questionID), nil
}

type fakeAnswers map[int64]string

func (f fakeAnswers) CorrectAnswer(_ context.Context, questionID int64) (string, error) {
	a, ok := f[questionID]
	if !ok {
		return "", fmt.Errorf("question %d: %w", questionID, ErrNotFound)
	}
	return a, nil
}

type fakeUnanswered struct{ id *int64 }

func (f fakeUnanswered) UnansweredID(context.Context) (*int64, error) { return f.id, nil }

type fakeClassifier struct {
	id    *int64
	err   error
	panic bool
	calls []ClassifyInput
}

func (f *fakeClassifier) Classify(_ context.Context, in ClassifyInput) (*int64, error) {
	f.calls = append(f.calls, in)
	if f.panic {
		panic("upstream exploded")
	}
	return f.id, f.err
}

type fakePublisher struct {
	events []model.AttemptEvent
	err    error
}

func (f *fakePublisher) PublishAttempt(_ context.Context, ev model.AttemptEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

type fakeTranscripts struct{ logs []model.ChatLog }

func (f *fakeTranscripts) EnqueueTranscript(_ context.Context, log model.ChatLog) error {
	f.logs = append(f.logs, log)
	return nil
}

func ptr[T any](v T) *T { return &v }

const (
	testStudent = int64(10)
	testQuiz    = int64(20)
	q1          = int64(1)
	q2          = int64(2)
	q3          = int64(3)
	q4          = int64(4) // belongs to another quiz
)

var unansweredID = int64(99)

type attemptFixture struct {
	svc        *AttemptService
	store      *fakeAttemptStore
	classifier *fakeClassifier
	publisher  *fakePublisher
	queue      *fakeTranscripts
	metrics    *metrics.Metrics
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()
	f := &attemptFixture{
		store:      &fakeAttemptStore{},
		classifier: &fakeClassifier{id: ptr(int64(4))},
		publisher:  &fakePublisher{},
		queue:      &fakeTranscripts{},
		metrics:    metrics.New(),
	}
	f.svc = NewAttemptService(AttemptDeps{
		Store:       f.store,
		Quizzes:     fakeQuizzes{testQuiz: {q1, q2, q3, 404}, 21: {q4}},
		Answers:     fakeAnswers{q1: "42", q2: "Paris", q3: "7", q4: "blue"},
		Unanswered:  fakeUnanswered{id: &unansweredID},
		Classifier:  f.classifier,
		Publisher:   f.publisher,
		Transcripts: f.queue,
		Metrics:     f.metrics,
	}, zerolog.Nop())
	return f
}

func (f *attemptFixture) record(t *testing.T, questionID int64, given *string, recheck bool) *AttemptOutcome {
	t.Helper()
	out, err := f.svc.RecordAttempt(context.Background(), RecordAttemptInput{
		StudentID:   testStudent,
		QuestionID:  questionID,
		QuizID:      testQuiz,
		GivenAnswer: given,
		IsRecheck:   recheck,
	})
	require.NoError(t, err)
	return out
}

// ─── RecordAttempt ───────────────────────────────────────────────────────

func TestRecordAttempt_MissingIDs(t *testing.T) {
	f := newAttemptFixture(t)

	for _, in := range []RecordAttemptInput{
		{QuestionID: q1, QuizID: testQuiz},
		{StudentID: testStudent, QuizID: testQuiz},
		{StudentID: testStudent, QuestionID: q1},
	} {
		_, err := f.svc.RecordAttempt(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Empty(t, f.store.rows, "no write on invalid input")
}

func TestRecordAttempt_NumericAnswerIsCorrect(t *testing.T) {
	f := newAttemptFixture(t)

	out := f.record(t, q1, ptr("42.0"), false)

	assert.True(t, out.IsCorrect)
	assert.Nil(t, out.MistakeTypeID)
	assert.Empty(t, f.classifier.calls, "correct answers are not classified")
	require.Len(t, f.store.rows, 1)
	assert.True(t, f.store.rows[0].IsCorrect)
}

func TestRecordAttempt_EmptyAnswerIsUnanswered(t *testing.T) {
	f := newAttemptFixture(t)

	for _, given := range []*string{nil, ptr(""), ptr("   ")} {
		out := f.record(t, q1, given, false)
		assert.False(t, out.IsCorrect)
		require.NotNil(t, out.MistakeTypeID)
		assert.Equal(t, unansweredID, *out.MistakeTypeID)
	}

	assert.Empty(t, f.classifier.calls)
	for _, row := range f.store.rows {
		assert.Nil(t, row.GivenAnswer)
		assert.Equal(t, unansweredID, *row.MistakeTypeID)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.AttemptsRecorded.WithLabelValues(metrics.OutcomeUnanswered)))
}

func TestRecordAttempt_UnansweredWithoutCatalogEntry(t *testing.T) {
	f := newAttemptFixture(t)
	f.svc.unanswered = fakeUnanswered{}

	out := f.record(t, q1, nil, false)

	assert.False(t, out.IsCorrect)
	assert.Nil(t, out.MistakeTypeID)
}

func TestRecordAttempt_WrongAnswerIsClassified(t *testing.T) {
	f := newAttemptFixture(t)
	transcript := []model.ChatTurn{{Role: model.ChatRoleStudent, Content: "is it 41?"}}

	out, err := f.svc.RecordAttempt(context.Background(), RecordAttemptInput{
		StudentID:   testStudent,
		QuestionID:  q1,
		QuizID:      testQuiz,
		GivenAnswer: ptr(" 41 "),
		Transcript:  transcript,
		Confidence:  ptr(model.ConfidenceHigh),
	})
	require.NoError(t, err)

	assert.False(t, out.IsCorrect)
	require.NotNil(t, out.MistakeTypeID)
	assert.Equal(t, int64(4), *out.MistakeTypeID)

	require.Len(t, f.classifier.calls, 1)
	call := f.classifier.calls[0]
	assert.Equal(t, "41", call.GivenAnswer)
	assert.Equal(t, transcript, call.Transcript)
	assert.Equal(t, model.ConfidenceHigh, *call.Confidence)
}

func TestRecordAttempt_ClassifierFailureStillWritesRow(t *testing.T) {
	for name, classifier := range map[string]*fakeClassifier{
		"error": {err: errors.New("llm timeout")},
		"panic": {panic: true},
	} {
		t.Run(name, func(t *testing.T) {
			f := newAttemptFixture(t)
			f.svc.classifier = classifier

			out := f.record(t, q2, ptr("London"), false)

			assert.False(t, out.IsCorrect)
			assert.Nil(t, out.MistakeTypeID)
			require.Len(t, f.store.rows, 1)
			assert.Nil(t, f.store.rows[0].MistakeTypeID)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ClassifierFailures))
		})
	}
}

func TestRecordAttempt_ClassifierHonorsTimeout(t *testing.T) {
	f := newAttemptFixture(t)
	f.svc.classifyTimeout = 5 * time.Millisecond
	f.svc.classifier = classifierFunc(func(ctx context.Context, _ ClassifyInput) (*int64, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	out := f.record(t, q1, ptr("41"), false)

	assert.Nil(t, out.MistakeTypeID)
	assert.Len(t, f.store.rows, 1)
}

type classifierFunc func(ctx context.Context, in ClassifyInput) (*int64, error)

func (fn classifierFunc) Classify(ctx context.Context, in ClassifyInput) (*int64, error) {
	return fn(ctx, in)
}

func TestRecordAttempt_UnknownQuestion(t *testing.T) {
	f := newAttemptFixture(t)

	_, err := f.svc.RecordAttempt(context.Background(), RecordAttemptInput{
		StudentID: testStudent, QuestionID: 404, QuizID: testQuiz, GivenAnswer: ptr("x"),
	})

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.store.rows)
}

func TestRecordAttempt_QuestionOutsideQuiz(t *testing.T) {
	f := newAttemptFixture(t)

	for _, given := range []*string{ptr("blue"), ptr("red"), nil} {
		_, err := f.svc.RecordAttempt(context.Background(), RecordAttemptInput{
			StudentID: testStudent, QuestionID: q4, QuizID: testQuiz, GivenAnswer: given,
		})
		assert.ErrorIs(t, err, ErrNotFound)
	}

	assert.Empty(t, f.store.rows, "nothing is written for a question outside the quiz")
	assert.Empty(t, f.classifier.calls)
	assert.Empty(t, f.publisher.events)
}

func TestRecordAttempt_InsertErrors(t *testing.T) {
	f := newAttemptFixture(t)

	f.store.insertErr = &pgconn.PgError{Code: "23503"}
	_, err := f.svc.RecordAttempt(context.Background(), RecordAttemptInput{StudentID: testStudent, QuestionID: q1, QuizID: testQuiz})
	assert.ErrorIs(t, err, ErrNotFound)

	f.store.insertErr = errors.New("connection reset")
	_, err = f.svc.RecordAttempt(context.Background(), RecordAttemptInput{StudentID: testStudent, QuestionID: q1, QuizID: testQuiz})
	assert.ErrorIs(t, err, ErrInternal)
	assert.Empty(t, f.publisher.events, "nothing is published for failed writes")
}

func TestRecordAttempt_WithoutRecheckInsertsTwice(t *testing.T) {
	f := newAttemptFixture(t)

	first := f.record(t, q1, ptr("42"), false)
	second := f.record(t, q1, ptr("42"), false)

	assert.Len(t, f.store.rows, 2)
	assert.NotEqual(t, first.AttemptID, second.AttemptID)
	assert.False(t, second.Touched)
}

func TestRecordAttempt_RecheckTouchesPriorRow(t *testing.T) {
	f := newAttemptFixture(t)
	first := f.record(t, q1, ptr("41"), false)

	later := first.AttemptedAt.Add(time.Minute)
	batch := uuid.New()
	out, err := f.svc.RecordAttempt(context.Background(), RecordAttemptInput{
		StudentID:        testStudent,
		QuestionID:       q1,
		QuizID:           testQuiz,
		GivenAnswer:      ptr("42"),
		SessionTimestamp: later,
		BatchID:          batch,
		IsRecheck:        true,
	})
	require.NoError(t, err)

	assert.True(t, out.Touched)
	assert.Equal(t, first.AttemptID, out.AttemptID)
	assert.True(t, out.IsCorrect, "outcome reflects this invocation's grading")
	assert.Nil(t, out.MistakeTypeID)

	require.Len(t, f.store.rows, 1)
	row := f.store.rows[0]
	assert.Equal(t, later, row.AttemptedAt)
	assert.Equal(t, batch, row.BatchID)
	assert.False(t, row.IsCorrect, "stored grading is not changed by a re-check")
	assert.Equal(t, "41", *row.GivenAnswer)
}

func TestRecordAttempt_RecheckSkipsClassifier(t *testing.T) {
	f := newAttemptFixture(t)
	f.record(t, q1, ptr("41"), false)
	require.Len(t, f.classifier.calls, 1)

	out := f.record(t, q1, ptr("40"), true)

	assert.True(t, out.Touched)
	assert.False(t, out.IsCorrect)
	assert.Nil(t, out.MistakeTypeID)
	assert.Len(t, f.classifier.calls, 1, "a touched re-check is not classified")
	require.Len(t, f.store.rows, 1)
	assert.Equal(t, int64(4), *f.store.rows[0].MistakeTypeID)
}

func TestRecordAttempt_RecheckWithoutPriorInserts(t *testing.T) {
	f := newAttemptFixture(t)

	out := f.record(t, q1, ptr("42"), true)

	assert.False(t, out.Touched)
	assert.Len(t, f.store.rows, 1)
}

func TestRecordAttempt_RecheckOfEmptyAnswerInserts(t *testing.T) {
	f := newAttemptFixture(t)
	f.record(t, q1, ptr("42"), false)

	out := f.record(t, q1, ptr(""), true)

	assert.False(t, out.Touched)
	assert.Len(t, f.store.rows, 2)
	assert.Zero(t, f.store.touches)
}

func TestRecordAttempt_DefaultsTimestampAndBatch(t *testing.T) {
	f := newAttemptFixture(t)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	out := f.record(t, q1, ptr("42"), false)

	assert.Equal(t, fixed, out.AttemptedAt)
	assert.NotEqual(t, uuid.Nil, out.BatchID)
}

func TestRecordAttempt_SideEffects(t *testing.T) {
	f := newAttemptFixture(t)
	f.publisher.err = errors.New("redis down")
	transcript := []model.ChatTurn{{Role: model.ChatRoleTutor, Content: "hint"}}

	out, err := f.svc.RecordAttempt(context.Background(), RecordAttemptInput{
		StudentID: testStudent, QuestionID: q2, QuizID: testQuiz,
		GivenAnswer: ptr("paris "), Transcript: transcript,
	})
	require.NoError(t, err, "publish failures never fail the attempt")
	assert.True(t, out.IsCorrect)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, "attempt.recorded", ev.Type)
	assert.True(t, ev.Answered)
	assert.Equal(t, out.BatchID, ev.BatchID)

	require.Len(t, f.queue.logs, 1)
	assert.Equal(t, transcript, f.queue.logs[0].Turns)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AttemptsRecorded.WithLabelValues(metrics.OutcomeCorrect)))
}

// ─── SubmitQuizAttempt ───────────────────────────────────────────────────

func TestSubmitQuizAttempt_Validation(t *testing.T) {
	f := newAttemptFixture(t)
	subs := []model.QuestionSubmission{{QuestionID: q1}}

	_, err := f.svc.SubmitQuizAttempt(context.Background(), 0, testQuiz, subs)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.SubmitQuizAttempt(context.Background(), testStudent, testQuiz, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.SubmitQuizAttempt(context.Background(), testStudent, 777, subs)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitQuizAttempt_ScoresBatch(t *testing.T) {
	f := newAttemptFixture(t)
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	res, err := f.svc.SubmitQuizAttempt(context.Background(), testStudent, testQuiz, []model.QuestionSubmission{
		{QuestionID: q1, GivenAns: ptr("42.0")},
		{QuestionID: q2, GivenAns: ptr("PARIS")},
		{QuestionID: q3, GivenAns: ptr("")},
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.TotalQuestions)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, fixed, res.Timestamp)

	correct := 0
	for _, fb := range res.QuestionFeedback {
		if fb.IsCorrect {
			correct++
		}
	}
	assert.Equal(t, res.Score, correct)

	require.Len(t, res.QuestionFeedback, 3)
	assert.Equal(t, []int64{q1, q2, q3}, []int64{
		res.QuestionFeedback[0].QuestionID,
		res.QuestionFeedback[1].QuestionID,
		res.QuestionFeedback[2].QuestionID,
	})
	assert.Nil(t, res.QuestionFeedback[2].GivenAnswer)
	assert.Equal(t, unansweredID, *res.QuestionFeedback[2].MistakeTypeID)
}

func TestSubmitQuizAttempt_SharedBatchAndTimestamp(t *testing.T) {
	f := newAttemptFixture(t)
	ticks := 0
	f.svc.now = func() time.Time {
		ticks++
		return time.Unix(int64(1_700_000_000+ticks), 0)
	}

	res, err := f.svc.SubmitQuizAttempt(context.Background(), testStudent, testQuiz, []model.QuestionSubmission{
		{QuestionID: q1, GivenAns: ptr("1")},
		{QuestionID: q2, GivenAns: ptr("2")},
		{QuestionID: q3},
	})
	require.NoError(t, err)

	require.Len(t, f.store.rows, 3)
	for _, row := range f.store.rows {
		assert.Equal(t, res.BatchID, row.BatchID)
		assert.Equal(t, res.Timestamp, row.AttemptedAt)
	}
	assert.Equal(t, 1, ticks, "the clock is read once per batch")
}

func TestSubmitQuizAttempt_BestEffortOnItemFailure(t *testing.T) {
	f := newAttemptFixture(t)

	res, err := f.svc.SubmitQuizAttempt(context.Background(), testStudent, testQuiz, []model.QuestionSubmission{
		{QuestionID: q1, GivenAns: ptr("42")},
		{QuestionID: 0, GivenAns: ptr("x")},
		{QuestionID: 404, GivenAns: ptr("x")},
		{QuestionID: q2, GivenAns: ptr("Paris")},
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, 4, res.TotalQuestions)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, "INVALID_INPUT", res.QuestionFeedback[1].Error)
	assert.Equal(t, "NOT_FOUND", res.QuestionFeedback[2].Error)
	assert.Empty(t, res.QuestionFeedback[3].Error)
	assert.Len(t, f.store.rows, 2)
}

func TestSubmitQuizAttempt_StopsOnCancel(t *testing.T) {
	f := newAttemptFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.svc.classifier = classifierFunc(func(context.Context, ClassifyInput) (*int64, error) {
		cancel()
		return nil, nil
	})

	_, err := f.svc.SubmitQuizAttempt(ctx, testStudent, testQuiz, []model.QuestionSubmission{
		{QuestionID: q1, GivenAns: ptr("wrong")},
		{QuestionID: q2, GivenAns: ptr("Paris")},
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.store.rows, 1)
}

func TestListHistory_Paginates(t *testing.T) {
	f := newAttemptFixture(t)
	for range 3 {
		f.record(t, q1, ptr("42"), false)
	}

	items, page, err := f.svc.ListHistory(context.Background(), testStudent, nil, 2, 2)
	require.NoError(t, err)

	assert.Len(t, items, 1)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
}
