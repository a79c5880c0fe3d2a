package generate

import (
	"fmt"
	"strings"
)

const summarySystemPrompt = `You are an expert legal AI assistant specializing in IRAC (Issue, Rule, Analysis, Conclusion) case analysis.
Your task is to analyze legal cases and provide comprehensive IRAC summaries that help law students understand the key legal concepts.

Guidelines:
- Extract the central legal issue clearly and concisely
- Identify the applicable legal rule(s) or principle(s)
- Provide thorough analysis connecting facts to the rule
- State a clear conclusion based on your analysis
- Use professional legal terminology
- Be precise and structured in your responses
- If provided with relevant legal context, use it to enhance your analysis
- Format your response as JSON with keys: issue, rule, analysis, conclusion`

func summaryUserPrompt(caseText, context string) string {
	var contextInfo string
	if context != "" {
		contextInfo = "\n\nRelevant Legal Context:\n" + context
	}
	return fmt.Sprintf(`Please analyze the following legal case and provide an IRAC summary:

%s%s

Provide your response as a JSON object with the following structure:
{
  "issue": "The central legal issue",
  "rule": "The applicable legal rule or principle",
  "analysis": "How the rule applies to the facts",
  "conclusion": "The logical conclusion based on the analysis"
}`, caseText, contextInfo)
}

const quizSystemPrompt = `You are an expert legal AI assistant specializing in creating educational quizzes for law students.
Your task is to create multiple-choice questions that test understanding of the legal material provided.

Guidelines:
- Create questions appropriate for law school level
- Provide 4 multiple-choice options (A, B, C, D)
- Ensure clear, unambiguous correct answers
- Include detailed explanations that aid learning
- Base every question on the material provided
- Format responses as JSON`

func quizUserPrompt(material, context string, count int) string {
	var contextInfo string
	if context != "" {
		contextInfo = "\n\nRelevant Legal Context:\n" + context
	}
	return fmt.Sprintf(`Create %d multiple-choice quiz questions based on the following legal material:

%s%s

Provide your response as a JSON object with this structure:
{
  "questions": [
    {
      "question": "The question text",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correct_answer": 0,
      "explanation": "Why this answer is correct"
    }
  ]
}`, count, material, contextInfo)
}

const examSystemPrompt = `You are an expert legal AI assistant specializing in creating comprehensive law school mock examinations.
Your task is to create realistic exam questions that test deep understanding of legal principles across multiple topics.

Guidelines:
- Create challenging questions appropriate for law school level
- Provide 4 multiple-choice options (A, B, C, D)
- Ensure clear, unambiguous correct answers
- Include detailed explanations that aid learning
- Cover multiple legal principles and applications
- Use realistic case scenarios
- Format responses as JSON`

func examUserPrompt(topics []string, context string, count int) string {
	var list strings.Builder
	for i, t := range topics {
		fmt.Fprintf(&list, "%d. %s\n", i+1, t)
	}
	var contextInfo string
	if context != "" {
		contextInfo = "\n\nRelevant Legal Context:\n" + context
	}
	return fmt.Sprintf(`Create a comprehensive mock law school exam with %d questions covering the following topics:
%s%s

Provide your response as a JSON object with this structure:
{
  "title": "Descriptive exam title",
  "questions": [
    {
      "question": "The question text",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correct_answer": 0,
      "explanation": "Why this answer is correct",
      "topic": "Contract Law"
    }
  ]
}`, count, strings.TrimRight(list.String(), "\n"), contextInfo)
}

const tutorSystemPrompt = `You are an expert legal AI tutor helping law students understand complex legal concepts.
Your role is to explain legal principles clearly, answer questions, and provide guidance.

Guidelines:
- Be conversational and supportive
- Explain legal concepts in accessible language
- Use examples when helpful
- Encourage critical thinking
- Correct misconceptions gently
- Provide accurate legal information
- If asked about specific cases, provide analysis based on standard legal principles
- Use relevant legal context from the student's case library to provide personalized examples
- Keep responses concise but thorough
- Ask clarifying questions when needed`

// CaseRef is a prior case the student has been studying, carried into tutor
// prompts as conversational context.
type CaseRef struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// TutorContext is the optional material woven into a tutor turn.
type TutorContext struct {
	CaseHistory []CaseRef `json:"case_history,omitempty"`
	StudyTopic  string    `json:"study_topic,omitempty"`
}

func tutorUserPrompt(message string, tc TutorContext, context string) string {
	var sb strings.Builder
	sb.WriteString(message)

	if len(tc.CaseHistory) > 0 {
		sb.WriteString("\n\nContext: The student has been studying the following cases:\n")
		for _, c := range tc.CaseHistory {
			fmt.Fprintf(&sb, "- %s: %s\n", c.Title, c.Summary)
		}
	}
	if tc.StudyTopic != "" {
		fmt.Fprintf(&sb, "\n\nCurrent study focus: %s", tc.StudyTopic)
	}
	if context != "" {
		sb.WriteString("\n\nRelevant Legal Reference:\n")
		sb.WriteString(context)
	}
	return sb.String()
}
