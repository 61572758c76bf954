package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/config"
	"github.com/sensai/sensai-backend/internal/llm"
	"github.com/sensai/sensai-backend/internal/model"
	"github.com/sensai/sensai-backend/internal/repository"
)

const (
	tutorMaxTokens   = 800
	tutorTemperature = 0.4
)

var tutorPrompt = template.Must(template.New("tutor").Parse(
	`You are SensAI, a patient tutor helping a student understand a quiz question.
Guide the student towards the answer with hints and questions. Never state the correct answer outright.
{{- if .QuizPrompt}}

Instructor notes for this quiz:
{{.QuizPrompt}}
{{- end}}

Question: {{.Title}}
{{- if .Description}}
{{.Description}}
{{- end}}
{{- if .QuestionPrompt}}

Instructor notes for this question:
{{.QuestionPrompt}}
{{- end}}

Correct answer (for your reference only): {{.CorrectAnswer}}
{{- if .GivenAnswer}}
The student answered: {{.GivenAnswer}}
{{- else}}
The student has not answered yet.
{{- end}}
`))

type tutorPromptData struct {
	QuizPrompt     string
	Title          string
	Description    string
	QuestionPrompt string
	CorrectAnswer  string
	GivenAnswer    string
}

// TutorService runs the AI tutor chat and owns the transcripts it produces.
type TutorService struct {
	quizzes   *QuizService
	questions *repository.QuestionRepository
	courses   *CourseService
	chats     *repository.ChatRepository
	factory   *llm.Factory
	rdb       *redis.Client
	ttl       time.Duration
	log       zerolog.Logger
}

// NewTutorService creates a new TutorService.
func NewTutorService(
	quizzes *QuizService,
	questions *repository.QuestionRepository,
	courses *CourseService,
	chats *repository.ChatRepository,
	factory *llm.Factory,
	rdb *redis.Client,
	ttl time.Duration,
	log zerolog.Logger,
) *TutorService {
	return &TutorService{
		quizzes:   quizzes,
		questions: questions,
		courses:   courses,
		chats:     chats,
		factory:   factory,
		rdb:       rdb,
		ttl:       ttl,
		log:       log.With().Str("component", "tutor_service").Logger(),
	}
}

// Chat sends one student message to the tutor and returns the reply. Both
// turns are appended to the transcript.
func (s *TutorService) Chat(ctx context.Context, studentID int64, req *model.TutorChatRequest) (string, error) {
	if err := s.checkAccess(ctx, studentID, req.QuizID, req.QuestionID); err != nil {
		return "", err
	}

	quiz, err := s.quizzes.load(ctx, req.QuizID)
	if err != nil {
		return "", err
	}
	question, err := s.questions.GetByID(ctx, req.QuestionID)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("question %d: %w", req.QuestionID, ErrNotFound)
		}
		return "", fmt.Errorf("get question: %w", err)
	}

	system, err := buildTutorPrompt(quiz, question, req.GivenAns)
	if err != nil {
		return "", fmt.Errorf("build tutor prompt: %w", err)
	}

	key := config.CacheKey.TutorTranscriptKey(studentID, req.QuizID, req.QuestionID)
	history, err := s.readTranscript(ctx, key)
	if err != nil {
		return "", err
	}

	provider, err := s.provider(ctx, req.QuizID)
	if err != nil {
		return "", err
	}

	student := model.ChatTurn{Role: model.ChatRoleStudent, Content: req.Message}

	callCtx := llm.WithPurpose(ctx, "tutor")
	if timeout := s.factory.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, timeout)
		defer cancel()
	}

	resp, err := provider.Generate(callCtx, llm.Request{
		System:      system,
		Messages:    toMessages(append(history, student)),
		MaxTokens:   tutorMaxTokens,
		Temperature: tutorTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("tutor reply: %w", err)
	}

	reply := strings.TrimSpace(resp.Text())
	tutor := model.ChatTurn{Role: model.ChatRoleTutor, Content: reply}
	if err := s.appendTranscript(ctx, key, student, tutor); err != nil {
		s.log.Warn().Err(err).
			Int64("student_id", studentID).
			Int64("question_id", req.QuestionID).
			Msg("Failed to store tutor transcript")
	}
	return reply, nil
}

// History returns the student's chat for one question. The live Redis
// transcript wins, otherwise the persisted messages are returned.
func (s *TutorService) History(ctx context.Context, studentID, quizID, questionID int64) ([]model.ChatTurn, error) {
	turns, err := s.readTranscript(ctx, config.CacheKey.TutorTranscriptKey(studentID, quizID, questionID))
	if err != nil {
		return nil, err
	}
	if len(turns) > 0 {
		return turns, nil
	}

	turns, err = s.chats.ListByQuestion(ctx, studentID, quizID, questionID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	if turns == nil {
		turns = []model.ChatTurn{}
	}
	return turns, nil
}

// EnqueueTranscript queues a transcript for the chat persistence worker. When
// the submission carried no chat history the live Redis transcript is used.
func (s *TutorService) EnqueueTranscript(ctx context.Context, entry model.ChatLog) error {
	key := config.CacheKey.TutorTranscriptKey(entry.StudentID, entry.QuizID, entry.QuestionID)

	if len(entry.Turns) == 0 {
		turns, err := s.readTranscript(ctx, key)
		if err != nil {
			return err
		}
		entry.Turns = turns
	}
	if len(entry.Turns) == 0 {
		return nil
	}
	if entry.LoggedAt.IsZero() {
		entry.LoggedAt = time.Now()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal chat log: %w", err)
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, config.WorkerKey.PersistChatQueue, payload)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("enqueue chat log: %w", err)
	}
	return nil
}

func (s *TutorService) checkAccess(ctx context.Context, studentID, quizID, questionID int64) error {
	unlocked, err := s.quizzes.IsUnlocked(ctx, studentID, quizID)
	if err != nil {
		return err
	}
	if !unlocked {
		return ErrQuizLocked
	}

	inQuiz, err := s.quizzes.HasQuestion(ctx, quizID, questionID)
	if err != nil {
		return err
	}
	if !inQuiz {
		return fmt.Errorf("question %d in quiz %d: %w", questionID, quizID, ErrNotFound)
	}
	return nil
}

// provider prefers the key of the course that owns the quiz.
func (s *TutorService) provider(ctx context.Context, quizID int64) (llm.Provider, error) {
	key, err := s.courses.LLMKeyForQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if key != "" {
		return s.factory.WithAPIKey(ctx, key)
	}
	return s.factory.Default(ctx)
}

func (s *TutorService) readTranscript(ctx context.Context, key string) ([]model.ChatTurn, error) {
	raw, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return decodeTurns(raw), nil
}

func (s *TutorService) appendTranscript(ctx context.Context, key string, turns ...model.ChatTurn) error {
	values := make([]any, 0, len(turns))
	for _, t := range turns {
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		values = append(values, b)
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return err
}

// decodeTurns skips entries that do not decode.
func decodeTurns(raw []string) []model.ChatTurn {
	turns := make([]model.ChatTurn, 0, len(raw))
	for _, r := range raw {
		var t model.ChatTurn
		if err := json.Unmarshal([]byte(r), &t); err != nil || t.Content == "" {
			continue
		}
		turns = append(turns, t)
	}
	return turns
}

func buildTutorPrompt(quiz *model.Quiz, q *model.Question, given *string) (string, error) {
	data := tutorPromptData{
		Title:         q.Title,
		Description:   q.Description,
		CorrectAnswer: q.CorrectAnswer,
	}
	if quiz != nil && quiz.Prompt != nil {
		data.QuizPrompt = strings.TrimSpace(*quiz.Prompt)
	}
	if q.Prompt != nil {
		data.QuestionPrompt = strings.TrimSpace(*q.Prompt)
	}
	if given != nil {
		data.GivenAnswer = strings.TrimSpace(*given)
	}

	var b strings.Builder
	if err := tutorPrompt.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func toMessages(turns []model.ChatTurn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == model.ChatRoleTutor {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	return msgs
}
