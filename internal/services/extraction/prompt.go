package extraction

import "fmt"

// extractionSystemPrompt instructs the oracle to return strict JSON. The
// needs_clarification flag is the dedicated signal for ambiguous input; the
// orchestrator turns it into a clarification outcome instead of drafts.
const extractionSystemPrompt = `You are a task extraction assistant. You turn natural language descriptions of work into structured task records.

Respond with valid JSON only, using exactly this shape:
{
  "tasks": [
    {
      "title": "short imperative title, at most 60 characters",
      "description": "fuller description of the work",
      "priority": "low" | "medium" | "high" | "urgent",
      "tags": ["lowercase", "tags"],
      "dueDate": "YYYY-MM-DD",
      "status": "todo" | "in-progress" | "completed",
      "projectName": "project the task belongs to"
    }
  ],
  "summary": "one sentence describing what was extracted",
  "needs_clarification": false,
  "clarification_question": ""
}

Rules:
- Extract zero or more tasks. Split compound requests into separate tasks.
- dueDate and projectName are optional; omit them when the input gives no signal.
- If the input is too vague or ambiguous to extract anything meaningful, set
  "needs_clarification" to true, put a single concrete question for the user in
  "clarification_question", and return an empty tasks array.
- Use earlier turns of the conversation to resolve references, including answers
  to your own previous clarification question.
- Return only the JSON object, with no surrounding prose.`

// BuildExtractionTurn wraps the user's transcript as the final user turn of
// the extraction conversation.
func BuildExtractionTurn(transcript string) string {
	return fmt.Sprintf("Extract tasks from the following input:\n\n%q", transcript)
}

// summarySystemPrompt drives the post-session conversation summary job.
const summarySystemPrompt = `You are a helpful assistant that creates concise summaries of conversations. Capture what tasks were discussed, which were confirmed, and any preferences the user expressed. Respond with plain text.`
