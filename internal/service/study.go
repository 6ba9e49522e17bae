package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/zara-ai/internal/domain"
	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/rs/zerolog/log"
)

const (
	defaultFlashcards = 10
	defaultQuestions  = 5
	defaultPlanDays   = 7
	defaultDifficulty = "medium"
)

// ErrMalformedOutput is returned when the model output does not fit the expected shape
var ErrMalformedOutput = errors.New("model returned malformed study content")

// StudyService generates study material through structured model output
type StudyService struct {
	generator llm.StructuredGenerator
	behavior  llm.BehaviorConfig
}

// NewStudyService creates a new study service
func NewStudyService(generator llm.StructuredGenerator, behavior llm.BehaviorConfig) *StudyService {
	return &StudyService{
		generator: generator,
		behavior:  behavior,
	}
}

// GenerateFlashcards creates question/answer cards for a topic
func (s *StudyService) GenerateFlashcards(ctx context.Context, req domain.FlashcardRequest) ([]domain.Flashcard, error) {
	count := req.Count
	if count == 0 {
		count = defaultFlashcards
	}

	var cards []domain.Flashcard
	if err := s.generate(ctx, "flashcards", buildFlashcardPrompt(req.Topic, count), flashcardSchema, &cards); err != nil {
		return nil, err
	}

	out := cards[:0]
	for _, c := range cards {
		if strings.TrimSpace(c.Front) == "" || strings.TrimSpace(c.Back) == "" {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, ErrMalformedOutput
	}
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

// GenerateExam creates multiple-choice questions for a subject
func (s *StudyService) GenerateExam(ctx context.Context, req domain.ExamRequest) ([]domain.ExamQuestion, error) {
	count := req.Count
	if count == 0 {
		count = defaultQuestions
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = defaultDifficulty
	}

	var questions []domain.ExamQuestion
	if err := s.generate(ctx, "exam", buildExamPrompt(req.Subject, count, difficulty), examSchema, &questions); err != nil {
		return nil, err
	}

	out := questions[:0]
	for _, q := range questions {
		if q.Question == "" || len(q.Options) < 2 || q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			log.Debug().Str("question", q.Question).Msg("dropping invalid exam question")
			continue
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, ErrMalformedOutput
	}
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}

// GeneratePlan creates a day-by-day study plan
func (s *StudyService) GeneratePlan(ctx context.Context, req domain.StudyPlanRequest) (*domain.StudyPlan, error) {
	days := req.Days
	if days == 0 {
		days = defaultPlanDays
	}

	var plan domain.StudyPlan
	if err := s.generate(ctx, "plan", buildPlanPrompt(req.Goal, days), planSchema, &plan); err != nil {
		return nil, err
	}
	if len(plan.Days) == 0 {
		return nil, ErrMalformedOutput
	}
	if plan.Goal == "" {
		plan.Goal = req.Goal
	}
	for i := range plan.Days {
		plan.Days[i].Day = i + 1
	}
	return &plan, nil
}

func (s *StudyService) generate(ctx context.Context, kind, prompt string, schema *llm.Schema, v any) error {
	start := time.Now()
	raw, err := s.generator.GenerateStructured(ctx, llm.StructuredRequest{
		Prompt: prompt,
		Schema: schema,
		Config: s.behavior,
	})
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", kind, err)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("structured output did not decode")
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	log.Info().
		Str("kind", kind).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("study content generated")
	return nil
}
