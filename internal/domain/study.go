package domain

// Flashcard is a single question/answer card
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// FlashcardRequest represents flashcard generation parameters
type FlashcardRequest struct {
	Topic string `json:"topic" validate:"required,max=500"`
	Count int    `json:"count" validate:"omitempty,min=1,max=50"`
}

// ExamQuestion is one multiple-choice exam question
type ExamQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answerIndex"`
	Explanation string   `json:"explanation,omitempty"`
}

// ExamRequest represents exam generation parameters
type ExamRequest struct {
	Subject    string `json:"subject" validate:"required,max=500"`
	Count      int    `json:"count" validate:"omitempty,min=1,max=50"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

// StudyPlan is a day-by-day schedule for a goal
type StudyPlan struct {
	Goal string         `json:"goal"`
	Days []StudyPlanDay `json:"days"`
}

// StudyPlanDay is one day of a study plan
type StudyPlanDay struct {
	Day   int      `json:"day"`
	Focus string   `json:"focus"`
	Tasks []string `json:"tasks"`
}

// StudyPlanRequest represents study plan generation parameters
type StudyPlanRequest struct {
	Goal string `json:"goal" validate:"required,max=1000"`
	Days int    `json:"days" validate:"omitempty,min=1,max=60"`
}
