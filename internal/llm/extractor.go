package llm

import (
	"fmt"
	"strings"

	"github.com/jonathan/resume-rag/internal/prompts"
)

const promptFile = "extraction.json"

// ExtractionSchema describes the JSON object a prompt asks the model for.
type ExtractionSchema struct {
	Name        string
	Description string
	Fields      []SchemaField
}

// SchemaField is one key of the expected JSON object.
type SchemaField struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// BuildExtractionPrompt constructs the prompt from a schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\nReturn ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		sb.WriteString(fmt.Sprintf("  %q: %s", field.Name, typeHint))
		if field.Required {
			sb.WriteString(" (required)")
		}
		if field.Description != "" {
			sb.WriteString(" // " + field.Description)
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")
	sb.WriteString(prompts.MustGet(promptFile, "rules"))
	sb.WriteString("\n\n")
	sb.WriteString(prompts.Format(prompts.MustGet(promptFile, "input"), map[string]string{"Input": inputText}))
	return sb.String()
}

// ResumeSkillsSchema asks for the technical skills listed or demonstrated in
// a resume.
func ResumeSkillsSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "ResumeSkills",
		Description: prompts.MustGet(promptFile, "resume-skills"),
		Fields: []SchemaField{
			{Name: "skills", Type: "[]string", Description: "technical skills", Required: true},
		},
	}
}
