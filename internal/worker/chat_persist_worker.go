package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sensai/sensai-backend/internal/config"
	"github.com/sensai/sensai-backend/internal/model"
)

const (
	ChatPollTimeout = 1 * time.Second
	ChatRetryDelay  = 5 * time.Second
)

// TranscriptSaver persists one tutor transcript.
type TranscriptSaver interface {
	SaveTranscript(ctx context.Context, log *model.ChatLog) error
}

// ChatPersistWorker consumes chat_persist_queue and writes transcripts to PostgreSQL.
type ChatPersistWorker struct {
	saver TranscriptSaver
	rdb   *redis.Client
	log   zerolog.Logger
	queue string
	delay time.Duration
}

// NewChatPersistWorker creates a new ChatPersistWorker.
func NewChatPersistWorker(saver TranscriptSaver, rdb *redis.Client, log zerolog.Logger) *ChatPersistWorker {
	return &ChatPersistWorker{
		saver: saver,
		rdb:   rdb,
		log:   log.With().Str("component", "chat_persist_worker").Logger(),
		queue: config.WorkerKey.PersistChatQueue,
		delay: ChatRetryDelay,
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *ChatPersistWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ChatPersistWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, ChatPollTimeout, w.queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
			w.wait(ctx)
		}
		return
	}
	if len(result) < 2 {
		return
	}

	chatLog, err := decodeChatLog(result[1])
	if err != nil {
		// A malformed payload can never succeed, so it is dropped.
		w.log.Error().Err(err).Msg("Dropping malformed transcript")
		return
	}

	if err := w.saver.SaveTranscript(ctx, chatLog); err != nil {
		w.log.Error().Err(err).
			Int64("student_id", chatLog.StudentID).
			Int64("question_id", chatLog.QuestionID).
			Msg("Persist error, retrying later")
		w.rdb.RPush(context.Background(), w.queue, result[1])
		w.wait(ctx)
	}
}

// drain persists whatever is still queued before shutdown.
func (w *ChatPersistWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.rdb.LPop(ctx, w.queue).Result()
		if err != nil {
			break
		}

		chatLog, err := decodeChatLog(raw)
		if err != nil {
			w.log.Error().Err(err).Msg("Drain decode error")
			continue
		}
		if err := w.saver.SaveTranscript(ctx, chatLog); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, w.queue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining transcripts")
	}
}

func (w *ChatPersistWorker) wait(ctx context.Context) {
	t := time.NewTimer(w.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func decodeChatLog(raw string) (*model.ChatLog, error) {
	var chatLog model.ChatLog
	if err := json.Unmarshal([]byte(raw), &chatLog); err != nil {
		return nil, fmt.Errorf("unmarshal transcript: %w", err)
	}
	if chatLog.StudentID <= 0 || chatLog.QuizID <= 0 || chatLog.QuestionID <= 0 {
		return nil, errors.New("transcript is missing its identifiers")
	}
	if len(chatLog.Turns) == 0 {
		return nil, errors.New("transcript has no turns")
	}
	if chatLog.LoggedAt.IsZero() {
		chatLog.LoggedAt = time.Now()
	}
	return &chatLog, nil
}
