package content

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationIssue is one schema violation in an uploaded chapter document.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

const baseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["chapterId", "title", "description", "questions"],
  "properties": {
    "chapterId": {"type": "string", "minLength": 1},
    "title": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "text", "options"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "text": {"type": "string", "minLength": 1},
          "options": {
            "type": "array",
            "minItems": 2,
            "maxItems": 4,
            "items": {
              "type": "object",
              "required": ["id", "text", "isCorrect"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "text": {"type": "string", "minLength": 1},
                "isCorrect": {"type": "boolean"}
              }
            }
          }
        }
      }
    }
  }
}`

const etiSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "chapterId": {"type": "string", "pattern": "^eti-"},
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["explanation", "tags"],
        "properties": {
          "explanation": {"type": "string", "minLength": 1},
          "tags": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

const mgtSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["learningObjectives"],
  "properties": {
    "chapterId": {"type": "string", "pattern": "^mgt-"},
    "learningObjectives": {"type": "array", "items": {"type": "string"}},
    "questions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["category", "difficulty"],
        "properties": {
          "category": {"type": "string", "minLength": 1},
          "difficulty": {"enum": ["basic", "intermediate", "advanced"]}
        }
      }
    }
  }
}`

// Validate checks a chapter document against the base schema plus the
// subject-specific profile implied by its chapterId prefix. A non-empty issue
// list means the document must be rejected whole. The error return covers
// undecodable input and schema-engine failures, not document violations.
func Validate(doc []byte) ([]ValidationIssue, error) {
	var peek struct {
		ChapterID string `json:"chapterId"`
	}
	if err := json.Unmarshal(doc, &peek); err != nil {
		return nil, fmt.Errorf("document is not valid JSON: %w", err)
	}

	issues, err := runSchema(baseSchema, doc)
	if err != nil {
		return nil, err
	}

	switch SubjectOf(peek.ChapterID) {
	case "eti":
		extra, err := runSchema(etiSchema, doc)
		if err != nil {
			return nil, err
		}
		issues = append(issues, extra...)
	case "mgt":
		extra, err := runSchema(mgtSchema, doc)
		if err != nil {
			return nil, err
		}
		issues = append(issues, extra...)
	}

	return issues, nil
}

func runSchema(schema string, doc []byte) ([]ValidationIssue, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	issues := make([]ValidationIssue, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, ValidationIssue{
			Field:   e.Field(),
			Message: e.Description(),
		})
	}
	return issues, nil
}
