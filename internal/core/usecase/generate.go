package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/studymate/docqa/internal/core/domain"
)

const conversationalTemperature = 0.7

var languageNames = map[string]string{
	"en":  "English",
	"hi":  "Hindi (हिंदी)",
	"te":  "Telugu (తెలుగు)",
	"ta":  "Tamil (தமிழ்)",
	"ml":  "Malayalam (മലയാളം)",
	"bn":  "Bengali (বাংলা)",
	"ne":  "Nepali (नेपाली)",
	"mai": "Maithili (मैथिली)",
}

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return "English"
}

// BuildConversationalPrompt produces the short persona prompt used when a
// query is chit-chat rather than a document question. Refusing because "no
// documents were found" is explicitly forbidden on this path.
func BuildConversationalPrompt(query string) string {
	return fmt.Sprintf(`You are StudyMate, a friendly AI study assistant.

The user said: %q

Reply naturally and warmly, as a person would in conversation.
- Do NOT mention documents, uploads, or searching. Never say you could not find anything.
- Only describe who you are if the user actually asked (then: you are StudyMate, an assistant that answers questions about the user's documents).
- Keep it short and conversational.`, query)
}

// BuildAnswerPrompt assembles the informational prompt: document metadata
// summary, retrieved context (or an explicit no-documents marker), the
// question with its corrected restatement, the answer strategy, and
// formatting/citation rules.
func BuildAnswerPrompt(
	query string,
	preprocessed domain.Preprocessed,
	cls domain.QueryClassification,
	contextText string,
	metadataSummary string,
	resultsFound int,
) string {
	var b strings.Builder

	b.WriteString("You are an expert AI assistant. Answer questions with perfect accuracy, even if the query has typos or poor grammar.\n\n")

	if metadataSummary != "" {
		b.WriteString("**UPLOADED DOCUMENTS:**\n")
		b.WriteString(metadataSummary)
		b.WriteString("\n\n")
	}

	if contextText != "" {
		b.WriteString("**DOCUMENT CONTEXT (your PRIMARY source):**\nThe following excerpts are from the user's uploaded documents. Base your answer ENTIRELY on this:\n\n")
		b.WriteString(contextText)
		b.WriteString("\n\n")
	} else {
		b.WriteString("**NO RELEVANT DOCUMENTS FOUND** - The question topic was not found in the uploaded documents.\n\n")
	}

	b.WriteString("**USER QUESTION:** ")
	b.WriteString(query)
	b.WriteString("\n")
	if preprocessed.NeedsPreprocessing && preprocessed.Corrected != query {
		b.WriteString("**INTERPRETED AS:** ")
		b.WriteString(preprocessed.Corrected)
		b.WriteString("\n")
	}

	b.WriteString("\n**ANSWER STRATEGY:**\n")
	if contextText != "" {
		b.WriteString("1. Base the answer on the document context; cover every relevant point it contains, do not skip any.\n")
		if cls.Type == domain.QuestionConceptual || cls.Type == domain.QuestionComparative {
			b.WriteString("2. Synthesize across ALL excerpts into one coherent explanation rather than answering each excerpt separately.\n")
		} else {
			b.WriteString("2. Read every excerpt carefully and include all relevant details, examples and definitions.\n")
		}
		if resultsFound > 5 {
			b.WriteString("3. If excerpts from different documents conflict, point out the conflict and ask the user which document to follow.\n")
		}
		b.WriteString("4. Only if the specific answer is NOT in the documents, start with: \"The specific answer to your question is not found in your uploaded documents. Based on my general knowledge:\"\n")
	} else {
		b.WriteString("1. The question topic was not found in the uploaded documents.\n")
		b.WriteString("2. Provide a comprehensive answer from general knowledge.\n")
		b.WriteString("3. Start your answer with: \"Based on general knowledge (no relevant documents found):\"\n")
	}

	b.WriteString(`
**FORMATTING RULES:**
- Use proper markdown: ## for main headings, ### for subheadings
- Use **bold** for key terms
- Use bullet points and numbered lists where they help
- Add blank lines between paragraphs

**CITATION RULES (STRICT):**
- Cite sources as [Document: <name>, Page: <number>]
- Only cite document names and page numbers that literally appear in the context headers above. NEVER invent a page number.
- Place citations at the end of the sentence or paragraph they support, not mid-sentence.

Provide a comprehensive, accurate, well-formatted answer.`)

	return b.String()
}

// AppendLanguageClause adds the target-language requirement for non-English
// requests. English requests get the prompt unchanged.
func AppendLanguageClause(prompt, language string) string {
	if language == "" || language == "en" {
		return prompt
	}
	name := languageName(language)
	return prompt + fmt.Sprintf(`

**LANGUAGE REQUIREMENT (CRITICAL):**
- You MUST respond in %s
- The user's question may be in English, but your ENTIRE response must be in %s
- Translate ALL content including headings, explanations, examples, and lists
- Keep markdown formatting intact (**, ##, -, etc.)
- Do NOT mix languages - use ONLY %s`, name, name, name)
}

// BuildDocumentMetadataSummary renders "name (N pages)" lines for the prompt.
func BuildDocumentMetadataSummary(meta map[string]domain.DocumentMeta, documentIDs []string) string {
	ordered := make([]domain.DocumentMeta, 0, len(meta))
	if len(documentIDs) > 0 {
		for _, id := range documentIDs {
			if m, ok := meta[id]; ok {
				ordered = append(ordered, m)
			}
		}
	} else {
		for _, m := range meta {
			ordered = append(ordered, m)
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })
	}

	lines := make([]string, 0, len(ordered))
	for _, m := range ordered {
		if m.TotalPages > 0 {
			lines = append(lines, fmt.Sprintf("- %s (%d pages)", m.Name, m.TotalPages))
		} else {
			lines = append(lines, fmt.Sprintf("- %s", m.Name))
		}
	}
	return strings.Join(lines, "\n")
}

// EstimateTokens approximates token usage as one token per four characters
// of prompt plus answer.
func EstimateTokens(prompt, answer string) int {
	return (len(prompt) + len(answer) + 3) / 4
}
