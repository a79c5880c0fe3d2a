package generate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/AnvinX1/Firm-ai-sub000/internal/models"
)

// Models wrap JSON in markdown fences more often than not. Prefer a ```json
// fence, fall back to any fence, then try the raw body.
var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	bareFenceRe = regexp.MustCompile("(?s)```\\s*(.*?)```")
)

// extractJSON pulls the most likely JSON payload out of a model response.
func extractJSON(body string) string {
	if m := jsonFenceRe.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := bareFenceRe.FindStringSubmatch(body); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(body)
}

// decodeSummary parses an IRAC response. A response that cannot be parsed at
// all still yields a usable summary: the first line becomes the issue and the
// remaining sections carry pending placeholders.
func decodeSummary(body string) models.CaseSummary {
	var summary models.CaseSummary
	if err := json.Unmarshal([]byte(extractJSON(body)), &summary); err == nil {
		if summary.Issue == "" {
			summary.Issue = "Issue analysis pending"
		}
		if summary.Rule == "" {
			summary.Rule = "Rule analysis pending"
		}
		if summary.Analysis == "" {
			summary.Analysis = "Analysis pending"
		}
		if summary.Conclusion == "" {
			summary.Conclusion = "Conclusion pending"
		}
		return summary
	}

	firstLine := "Issue analysis pending"
	for _, line := range strings.Split(body, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			firstLine = trimmed
			break
		}
	}
	return models.CaseSummary{
		Issue:      firstLine,
		Rule:       "Rule analysis pending",
		Analysis:   "Analysis pending",
		Conclusion: "Conclusion pending",
	}
}

// decodeQuestions parses a question list from either a bare array or a
// {"questions": [...]} wrapper, dropping malformed entries. It returns nil
// only when nothing usable could be recovered.
func decodeQuestions(body string) []models.QuizQuestion {
	payload := extractJSON(body)

	var questions []models.QuizQuestion
	if err := json.Unmarshal([]byte(payload), &questions); err != nil {
		var wrapper struct {
			Questions []models.QuizQuestion `json:"questions"`
		}
		if err := json.Unmarshal([]byte(payload), &wrapper); err != nil {
			return nil
		}
		questions = wrapper.Questions
	}

	valid := questions[:0]
	for _, q := range questions {
		if validQuestion(q) {
			valid = append(valid, q)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	return valid
}

func validQuestion(q models.QuizQuestion) bool {
	if strings.TrimSpace(q.Question) == "" {
		return false
	}
	if len(q.Options) != 4 {
		return false
	}
	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return false
		}
	}
	return q.CorrectAnswer >= 0 && q.CorrectAnswer <= 3
}

// decodeExam parses a titled exam, tolerating a missing title.
func decodeExam(body string) (models.MockExam, bool) {
	payload := extractJSON(body)

	var exam models.MockExam
	if err := json.Unmarshal([]byte(payload), &exam); err != nil {
		return models.MockExam{}, false
	}

	valid := exam.Questions[:0]
	for _, q := range exam.Questions {
		if validQuestion(q) {
			valid = append(valid, q)
		}
	}
	if len(valid) == 0 {
		return models.MockExam{}, false
	}
	exam.Questions = valid

	if strings.TrimSpace(exam.Title) == "" {
		exam.Title = "Mock Law Exam"
	}
	return exam, true
}
