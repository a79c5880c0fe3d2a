package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"json fence", "Here you go:\n```json\n{\"a\": 1}\n```\nEnjoy.", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"raw", `  {"a": 1}  `, `{"a": 1}`},
		{"prefers json fence", "```\nnot it\n```\n```json\n{\"a\": 1}\n```", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.body))
		})
	}
}

func TestDecodeSummary_WellFormed(t *testing.T) {
	body := "```json\n" + `{
		"issue": "Whether a duty of care was owed",
		"rule": "The neighbour principle",
		"analysis": "The manufacturer could foresee harm",
		"conclusion": "A duty was owed"
	}` + "\n```"

	s := decodeSummary(body)
	assert.Equal(t, "Whether a duty of care was owed", s.Issue)
	assert.Equal(t, "The neighbour principle", s.Rule)
	assert.Equal(t, "The manufacturer could foresee harm", s.Analysis)
	assert.Equal(t, "A duty was owed", s.Conclusion)
}

func TestDecodeSummary_MissingSectionsGetPlaceholders(t *testing.T) {
	s := decodeSummary(`{"issue": "The central question"}`)

	assert.Equal(t, "The central question", s.Issue)
	assert.Equal(t, "Rule analysis pending", s.Rule)
	assert.Equal(t, "Analysis pending", s.Analysis)
	assert.Equal(t, "Conclusion pending", s.Conclusion)
}

func TestDecodeSummary_GarbageDegradesToFirstLine(t *testing.T) {
	s := decodeSummary("The case turns on consideration.\nMore prose follows.")

	assert.Equal(t, "The case turns on consideration.", s.Issue)
	assert.Equal(t, "Rule analysis pending", s.Rule)
	assert.Equal(t, "Analysis pending", s.Analysis)
	assert.Equal(t, "Conclusion pending", s.Conclusion)
}

func TestDecodeSummary_EmptyBody(t *testing.T) {
	s := decodeSummary("")
	assert.Equal(t, "Issue analysis pending", s.Issue)
}

func TestDecodeQuestions_WrapperAndBareArray(t *testing.T) {
	q := `{"question": "Q?", "options": ["a", "b", "c", "d"], "correct_answer": 2, "explanation": "why"}`

	fromWrapper := decodeQuestions(`{"questions": [` + q + `]}`)
	fromArray := decodeQuestions(`[` + q + `]`)

	require.Len(t, fromWrapper, 1)
	require.Len(t, fromArray, 1)
	assert.Equal(t, 2, fromWrapper[0].CorrectAnswer)
}

func TestDecodeQuestions_DropsMalformedEntries(t *testing.T) {
	body := `{"questions": [
		{"question": "Good?", "options": ["a", "b", "c", "d"], "correct_answer": 0, "explanation": "x"},
		{"question": "Three options", "options": ["a", "b", "c"], "correct_answer": 0, "explanation": "x"},
		{"question": "Bad index", "options": ["a", "b", "c", "d"], "correct_answer": 4, "explanation": "x"},
		{"question": "", "options": ["a", "b", "c", "d"], "correct_answer": 1, "explanation": "x"},
		{"question": "Blank option", "options": ["a", "", "c", "d"], "correct_answer": 1, "explanation": "x"}
	]}`

	questions := decodeQuestions(body)
	require.Len(t, questions, 1)
	assert.Equal(t, "Good?", questions[0].Question)
}

func TestDecodeQuestions_NothingUsable(t *testing.T) {
	assert.Nil(t, decodeQuestions("I cannot produce a quiz."))
	assert.Nil(t, decodeQuestions(`{"questions": []}`))
	assert.Nil(t, decodeQuestions(`{"questions": [{"question": "Q", "options": ["a"], "correct_answer": 0}]}`))
}

func TestDecodeExam_TitleFallback(t *testing.T) {
	body := `{"questions": [
		{"question": "Q?", "options": ["a", "b", "c", "d"], "correct_answer": 1, "explanation": "x", "topic": "Torts"}
	]}`

	exam, ok := decodeExam(body)
	require.True(t, ok)
	assert.Equal(t, "Mock Law Exam", exam.Title)
	require.Len(t, exam.Questions, 1)
	assert.Equal(t, "Torts", exam.Questions[0].Topic)
}

func TestDecodeExam_Unusable(t *testing.T) {
	_, ok := decodeExam("no exam here")
	assert.False(t, ok)

	_, ok = decodeExam(`{"title": "Empty", "questions": []}`)
	assert.False(t, ok)
}
