package recommend

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

var responseSchema = mustSchema()

var systemPrompt = `You are an empathetic mental health assistant. Based on the user's data, generate 5 personalized recommendations.

Each recommendation must include:
- category (string)
- title (string)
- description (string)
- priority (integer between 1 and 10)

Return ONLY a JSON array matching this schema, with no Markdown and no text outside the array:
` + responseSchema

func mustSchema() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect([]Recommendation{})
	schema.Version = ""
	b, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	return string(b)
}

type promptEntry struct {
	Date       string   `json:"date"`
	Score      int      `json:"score"`
	Activities []string `json:"activities"`
	Note       string   `json:"note,omitempty"`
}

func buildUserPrompt(req Request) (string, error) {
	statsJSON, err := json.Marshal(req.Stats)
	if err != nil {
		return "", err
	}

	recent := LastN(req.Recent, MaxRecentEntries)
	entries := make([]promptEntry, 0, len(recent))
	for _, e := range recent {
		acts := []string(e.Activities)
		if acts == nil {
			acts = []string{}
		}
		entries = append(entries, promptEntry{
			Date:       e.Date.Format(time.RFC3339),
			Score:      e.Score,
			Activities: acts,
			Note:       e.Note,
		})
	}
	entriesJSON, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(req.ConversationSummary)
	if summary == "" {
		summary = "No previous conversation history available."
	}

	var sb strings.Builder
	sb.WriteString("Conversation Summary: ")
	sb.WriteString(summary)
	sb.WriteString("\nUser Stats: ")
	sb.Write(statsJSON)
	sb.WriteString("\nRecent Mood Entries: ")
	sb.Write(entriesJSON)
	return sb.String(), nil
}
