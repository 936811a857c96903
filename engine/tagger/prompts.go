package tagger

import (
	"encoding/json"
	"strings"
	"text/template"

	"github.com/WessleyAI/rizz-engine/engine/domain"
)

var taggingTemplate = template.Must(template.New("tagging").Parse(`You are annotating one exchange from a social interaction video for a retrieval index.

Return a JSON object and nothing else, with these keys:
  "type":             kind of scenario (dating, networking, party, workplace, ...)
  "setting":          where it happens (coffee_shop, bar, street, office, ...)
  "goal":             what the speaker is trying to achieve (first_impression, get_number, ...)
  "system_archetype": the other person's persona in snake_case
  "roast_level":      integer 1-5, how harsh the banter is
  "player_sex":       sex of the person initiating
  "system_sex":       sex of the person responding
  "techniques":       list of conversational techniques used
  "outcome":          how the exchange ended

Use null for anything the exchange does not show.

Block:
{{.}}
`))

// TaggingPrompt renders the tagging instructions for a block.
func TaggingPrompt(b domain.Block) (string, error) {
	payload, err := json.MarshalIndent(struct {
		ID      domain.BlockID `json:"block_id"`
		Summary string         `json:"summary,omitempty"`
		Lines   domain.Lines   `json:"lines"`
	}{b.ID, b.Summary, b.Lines}, "", "  ")
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := taggingTemplate.Execute(&sb, string(payload)); err != nil {
		return "", err
	}
	return sb.String(), nil
}
