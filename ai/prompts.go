package ai

import (
	"fmt"
	"strings"
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
          "text": {"type": "string"},
          "type": {"type": "string"}
        },
        "required": ["text", "type"],
        "additionalProperties": false
      }
    },
    "relations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "source": {"type": "string"},
          "type": {"type": "string"},
          "target": {"type": "string"}
        },
        "required": ["source", "type", "target"],
        "additionalProperties": false
      }
    }
  },
  "required": ["entities", "relations"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Extract the entities mentioned in the given text and the relations between them, and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Entity text is lowercase, 1-4 words, as it appears in the text.
- Entity type must be one of: %s.
- Relation type is a short lowercase verb phrase with underscores, e.g. "works_at", "located_in".
- Relation source and target must exactly match the text of an extracted entity.
- Only extract what the text states. Do not infer facts the text does not support.`

// buildExtractionPrompt renders the fixed extraction system prompt.
func buildExtractionPrompt() string {
	return fmt.Sprintf(extractionPromptTemplate, extractionResponseSchema, strings.Join(EntityTypes, ", "))
}

const continuationPrompt = `Your previous output was cut off. Continue exactly where you stopped, without repeating anything you already produced and without any preamble.`

const judgePromptTemplate = `Two mentions share the name %q (type %q) but appear in different contexts. Decide whether they refer to the same real-world entity.

Context A:
%s

Context B:
%s

Output ONLY valid JSON of the form {"same": true} or {"same": false}. No preamble, no explanation.`

const summarizePromptTemplate = `You maintain a running summary of a document while reading it chunk by chunk.

Current summary (may be empty):
%s

Next chunk:
%s

Rewrite the summary so it also covers the new chunk. Keep it concise (at most 300 words), factual, and in the document's language. Output only the updated summary text.`

const tagPromptTemplate = `Extract 3 to 8 topical keywords for the document below. Output ONLY a JSON array of lowercase strings, e.g. ["distributed systems", "raft"]. No preamble.

Document:
%s`

const sectionMergePromptTemplate = `You maintain a curated knowledge section in markdown. Integrate the new source documents into the existing section content, reorganizing where it improves the flow. Preserve facts already present unless a source contradicts them. Output only the updated section markdown.

Existing section:
%s

Known entities and relations:
%s

New source documents:
%s`

const illustrationPlanPromptTemplate = `Propose illustrations for the markdown document below. Choose at most %d places where an image genuinely helps, and for each produce a short generation prompt.

Output ONLY valid JSON of the form:
{"document": "<the full markdown with {{image:<id>}} markers inserted where each image belongs>",
 "images": [{"id": "<id>", "prompt": "<image generation prompt>"}]}

Each id must be a short lowercase slug, unique within the document. If no illustration is warranted, return the document unchanged with an empty images array.

Document:
%s`
