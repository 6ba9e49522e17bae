package service

import (
	"fmt"

	"github.com/Rrens/zara-ai/internal/llm"
)

var (
	flashcardSchema = llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"front": {Type: llm.TypeString, Description: "question or term"},
		"back":  {Type: llm.TypeString, Description: "answer or definition"},
	}))

	examSchema = llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"question":    {Type: llm.TypeString},
		"options":     llm.ArrayOf(&llm.Schema{Type: llm.TypeString}),
		"answerIndex": {Type: llm.TypeInteger, Description: "zero-based index of the correct option"},
		"explanation": {Type: llm.TypeString},
	}))

	planSchema = llm.Object(map[string]*llm.Schema{
		"goal": {Type: llm.TypeString},
		"days": llm.ArrayOf(llm.Object(map[string]*llm.Schema{
			"day":   {Type: llm.TypeInteger},
			"focus": {Type: llm.TypeString},
			"tasks": llm.ArrayOf(&llm.Schema{Type: llm.TypeString}),
		})),
	})
)

func buildFlashcardPrompt(topic string, count int) string {
	return fmt.Sprintf(`Create %d study flashcards about the topic below.

Rules:
1. Each card has a short "front" (a question or term) and a "back" (a concise answer)
2. Cover the most important ideas first
3. Keep each back under 40 words

Topic: %s`, count, topic)
}

func buildExamPrompt(subject string, count int, difficulty string) string {
	return fmt.Sprintf(`Write a %s difficulty multiple-choice exam with %d questions on the subject below.

Rules:
1. Give exactly 4 options per question
2. "answerIndex" is the zero-based index of the single correct option
3. Add a one-sentence explanation of the correct answer

Subject: %s`, difficulty, count, subject)
}

func buildPlanPrompt(goal string, days int) string {
	return fmt.Sprintf(`Build a %d-day study plan for the goal below.

Rules:
1. One entry per day, numbered from 1
2. Each day has a short focus and 2 to 5 concrete tasks
3. Finish with review and self-testing

Goal: %s`, days, goal)
}
