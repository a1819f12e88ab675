package assessment

import (
	"strings"

	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
)

const maxResumePromptChars = 12000

func generationPrompt(resumeText string) ai.Prompt {
	system := `You are a technical interviewer who writes coding assessments. Respond with a single JSON object and nothing else, using exactly this shape:
{"title": string, "description": string, "questions": [{"id": string, "question": string, "difficulty": "easy"|"medium"|"hard", "category": string, "expectedOutput": string}]}

Rules:
- Exactly 5 questions, spanning easy, medium and hard difficulty.
- Questions must be language-agnostic algorithmic problems. Do not mention any programming language, library, framework or language-specific syntax; the candidate chooses their own language.
- "expectedOutput" describes the expected behaviour or a sample input/output pair in plain words.
- Return valid JSON only, no markdown fencing or explanation.`

	builder := strings.Builder{}
	resume := strings.TrimSpace(resumeText)
	if resume == "" {
		builder.WriteString("No resume is available. Write questions suitable for a general software engineering candidate.\n")
	} else {
		if len(resume) > maxResumePromptChars {
			resume = resume[:maxResumePromptChars]
		}
		builder.WriteString("Tailor the difficulty and topics to this candidate's resume:\n\n")
		builder.WriteString(resume)
		builder.WriteString("\n")
	}
	builder.WriteString("\nReturn JSON.")

	return ai.Prompt{System: system, User: builder.String()}
}

func reviewPrompt(question models.CodingQuestion, answer models.CodingAnswer) ai.Prompt {
	system := `You are an automated code reviewer. Respond with a single JSON object and nothing else, using exactly this shape:
{"correctness": integer 0-100, "efficiency": integer 0-100, "readability": integer 0-100, "overallScore": integer 0-100, "feedback": string, "improvements": [string]}

Judge the answer on its own terms in the language the candidate chose. Keep feedback to a few sentences and list up to three short improvements.`

	builder := strings.Builder{}
	builder.WriteString("# Question\n")
	builder.WriteString(question.Question)
	if question.ExpectedOutput != "" {
		builder.WriteString("\n\n## Expected Behaviour\n")
		builder.WriteString(question.ExpectedOutput)
	}
	builder.WriteString("\n\n## Language\n")
	language := strings.TrimSpace(answer.Language)
	if language == "" {
		language = "unspecified"
	}
	builder.WriteString(language)
	builder.WriteString("\n\n## Candidate Answer\n")
	builder.WriteString(answer.Answer)
	builder.WriteString("\n\nReturn JSON.")

	return ai.Prompt{System: system, User: builder.String(), MaxTokens: 1024}
}
