package assistant

import (
	"fmt"
	"strings"
)

// templateExcerptLimit bounds how much of each canned response's content is
// shown to the model.
const templateExcerptLimit = 500

// systemMessage fixes the assistant role, demands strict JSON-only output,
// and sets the language-matching policy: prefer templates written in the
// ticket's language and avoid substitution between closely related languages
// unless nothing else is available.
const systemMessage = "You are an expert customer support assistant. " +
	"Analyze support tickets and suggest the most appropriate canned response template. " +
	"Tickets and templates may be written in different languages (for example Russian, Ukrainian, English). " +
	"First, detect the primary language of the customer's ticket text. " +
	"Prefer templates written in the same language as the ticket. " +
	"In particular, if the ticket is in Russian, do not choose Ukrainian templates unless there are absolutely no reasonable Russian options, and vice versa. " +
	"Always respond with valid JSON only, with no natural-language text outside of the JSON object."

// buildMessages turns a ticket snapshot and its candidate templates into the
// system and user messages of a chat-completion request. It is deterministic:
// identical inputs produce byte-identical output, and template order is
// preserved from the input.
func buildMessages(ticket *TicketContext, templates []Template) (system, user string) {
	var b strings.Builder

	b.WriteString("Analyze the following support ticket and determine which canned response template is most suitable.\n\n")

	b.WriteString("TICKET INFORMATION:\n")
	fmt.Fprintf(&b, "Subject: %s\n", ticket.Subject)
	fmt.Fprintf(&b, "Content: %s\n", ticket.Content)

	if ticket.Department != "" {
		fmt.Fprintf(&b, "Department: %s\n", ticket.Department)
	}
	if ticket.Priority != "" {
		fmt.Fprintf(&b, "Priority: %s\n", ticket.Priority)
	}
	if ticket.History != "" {
		fmt.Fprintf(&b, "\nPREVIOUS MESSAGES:\n%s\n", ticket.History)
	}

	b.WriteString("\n\nAVAILABLE CANNED RESPONSE TEMPLATES:\n")
	for _, tmpl := range templates {
		fmt.Fprintf(&b, "\nTemplate ID: %d\n", tmpl.ID)
		fmt.Fprintf(&b, "Title: %s\n", tmpl.Title)
		fmt.Fprintf(&b, "Content: %s\n", truncate(tmpl.Content, templateExcerptLimit))
		b.WriteString("---\n")
	}

	b.WriteString("\n\nTASK:\n")
	b.WriteString("First, determine the primary language of the ticket text (for example: \"ru\" for Russian, \"uk\" for Ukrainian, \"en\" for English). ")
	b.WriteString("When selecting the best_template_id, strongly prefer templates written in the same language as the ticket. ")
	b.WriteString("In particular, avoid choosing Ukrainian templates for clearly Russian tickets and vice versa, unless there are no reasonable templates in the same language.\n")
	b.WriteString("Analyze the ticket and return JSON with:\n")
	b.WriteString("{\n")
	b.WriteString("  \"best_template_id\": <ID of most suitable template>,\n")
	b.WriteString("  \"confidence_score\": <0-100>,\n")
	b.WriteString("  \"detected_language\": \"<ticket language code such as ru, uk, en>\",\n")
	b.WriteString("  \"reasoning\": \"<brief explanation>\",\n")
	b.WriteString("  \"suggested_modifications\": \"<optional customizations>\",\n")
	b.WriteString("  \"alternatives\": [<array of alternative template IDs if applicable>]\n")
	b.WriteString("}\n")

	return systemMessage, b.String()
}

// truncate shortens s to at most limit runes, marking the cut with an
// ellipsis. Rune-based so multi-byte text is never split mid-character.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
