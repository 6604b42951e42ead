package extract

import (
	"fmt"
	"strings"

	"github.com/poiesic/lattice/ai"
)

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {
            "type": "string"
          },
          "name": {
            "type": "string"
          },
          "type": {
            "type": "string"
          },
          "description": {
            "type": "string"
          },
          "snippets": {
            "type": "array",
            "items": {"type": "string"}
          }
        },
        "required": ["id", "name", "type", "description"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract the entities mentioned in the document below and return them as JSON.

Output ONLY valid JSON which complies with the schema given here. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- "id" is a short stable identifier derived from the name, lowercase with hyphens (e.g. "marie-curie").
- "name" is the canonical name of the entity as written in the document.
- "type" must match exactly one of the listed values: %s.
- "description" is one sentence summarizing what the document says about the entity.
- "snippets" holds up to 3 short verbatim quotes from the document mentioning the entity.
- Include only entities present in the document. Do not hallucinate.
- If no entities can be identified, return "entities": [].
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Document:
---
%s
---`

// buildPrompt creates the extraction prompt with the entity type set and the
// document's raw text substituted in.
func buildPrompt(docText string) string {
	return fmt.Sprintf(extractionPromptTemplate,
		extractionResponseSchema,
		strings.Join(ai.EntityTypes, ", "),
		docText)
}
