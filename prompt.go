package wildlens

import (
	"fmt"
	"strings"
)

// Prompt is a structured model instruction with consistent formatting.
type Prompt struct {
	Task        string   // Required: what the model should do
	Context     string   // Optional: additional context
	Schema      string   // Required: JSON schema for the response
	Constraints []string // Rules the response must follow
}

// Render converts the structured prompt to the string sent to the model.
func (p *Prompt) Render() string {
	var sections []string

	if p.Task != "" {
		sections = append(sections, "Task: "+p.Task)
	}
	if p.Context != "" {
		sections = append(sections, "Context: "+p.Context)
	}
	if p.Schema != "" {
		sections = append(sections, "Return JSON:\n"+p.Schema)
	}
	if len(p.Constraints) > 0 {
		con := "Constraints:\n"
		for _, c := range p.Constraints {
			con += "- " + c + "\n"
		}
		sections = append(sections, strings.TrimSpace(con))
	}

	return strings.Join(sections, "\n\n")
}

// Validate checks that the prompt has its required fields.
func (p *Prompt) Validate() error {
	if p.Task == "" {
		return fmt.Errorf("prompt missing required Task field")
	}
	if p.Schema == "" {
		return fmt.Errorf("prompt missing required Schema field")
	}
	return nil
}

// identificationPrompt builds the fixed instruction prompt for a species
// identification call. The schema is generated once per service from the
// IdentificationResult type.
func identificationPrompt(schema string) *Prompt {
	return &Prompt{
		Task: "Identify the species shown in the attached photograph.",
		Context: "You are an expert field biologist. Examine the photograph and identify " +
			"the most prominent animal, plant, or fungus species visible.",
		Schema: schema,
		Constraints: []string{
			"species.commonName and species.scientificName are required",
			"confidence: 0.0 to 1.0",
			"alternatives: up to three secondary candidates, most likely first",
			"details: habitat, behavior, conservationStatus, and notable facts when known",
			"imageQuality: note blur, framing, or lighting problems that limited the identification",
			`if no species can be identified, return {"error": "<why>", "reasons": [], "suggestions": []} instead`,
			"respond with a single JSON object and no surrounding prose",
		},
	}
}

// connectionProbePrompt is the minimal prompt used by TestConnection.
func connectionProbePrompt() *Prompt {
	return &Prompt{
		Task:        "Reply to confirm the connection works.",
		Schema:      `{"type": "object", "properties": {"ok": {"type": "boolean"}}, "required": ["ok"]}`,
		Constraints: []string{`respond with exactly {"ok": true}`},
	}
}
