package handler

import (
	"errors"
	"net/http"

	"github.com/Rrens/zara-ai/internal/api/response"
	"github.com/Rrens/zara-ai/internal/domain"
	"github.com/Rrens/zara-ai/internal/llm"
	"github.com/Rrens/zara-ai/internal/service"
	"github.com/rs/zerolog/log"
)

// StudyHandler handles study material generation
type StudyHandler struct {
	studyService *service.StudyService
}

// NewStudyHandler creates a new study handler
func NewStudyHandler(studyService *service.StudyService) *StudyHandler {
	return &StudyHandler{studyService: studyService}
}

// Flashcards generates flashcards for a topic
func (h *StudyHandler) Flashcards(w http.ResponseWriter, r *http.Request) {
	var req domain.FlashcardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cards, err := h.studyService.GenerateFlashcards(r.Context(), req)
	if err != nil {
		writeStudyError(w, err)
		return
	}
	response.OK(w, map[string]any{"flashcards": cards})
}

// Exam generates a multiple-choice exam
func (h *StudyHandler) Exam(w http.ResponseWriter, r *http.Request) {
	var req domain.ExamRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	questions, err := h.studyService.GenerateExam(r.Context(), req)
	if err != nil {
		writeStudyError(w, err)
		return
	}
	response.OK(w, map[string]any{"questions": questions})
}

// Plan generates a study plan
func (h *StudyHandler) Plan(w http.ResponseWriter, r *http.Request) {
	var req domain.StudyPlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	plan, err := h.studyService.GeneratePlan(r.Context(), req)
	if err != nil {
		writeStudyError(w, err)
		return
	}
	response.OK(w, plan)
}

func writeStudyError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("study generation failed")

	switch {
	case errors.Is(err, service.ErrMalformedOutput):
		response.Error(w, http.StatusBadGateway, "the model returned content that could not be used, please try again")
	case errors.Is(err, llm.ErrNotConfigured), errors.Is(err, llm.ErrProviderNotFound):
		response.Error(w, http.StatusServiceUnavailable, llm.UserMessage(err))
	default:
		response.InternalError(w, llm.UserMessage(err))
	}
}
