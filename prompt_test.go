package wildlens

import (
	"strings"
	"testing"
)

func TestPrompt_Render(t *testing.T) {
	p := &Prompt{
		Task:        "Identify the species.",
		Context:     "Photo from a garden.",
		Schema:      `{"type": "object"}`,
		Constraints: []string{"respond with JSON only"},
	}

	rendered := p.Render()

	for _, want := range []string{
		"Task: Identify the species.",
		"Context: Photo from a garden.",
		"Return JSON:\n{\"type\": \"object\"}",
		"Constraints:\n- respond with JSON only",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("rendered prompt missing %q:\n%s", want, rendered)
		}
	}

	if !strings.HasPrefix(rendered, "Task:") {
		t.Error("task must come first")
	}
	if strings.Index(rendered, "Constraints:") < strings.Index(rendered, "Return JSON:") {
		t.Error("constraints must come last")
	}
}

func TestPrompt_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p := &Prompt{Task: "identify", Schema: "{}"}
		if err := p.Validate(); err != nil {
			t.Errorf("valid prompt rejected: %v", err)
		}
	})

	t.Run("missing_task", func(t *testing.T) {
		p := &Prompt{Schema: "{}"}
		if err := p.Validate(); err == nil {
			t.Error("expected error for missing task")
		}
	})

	t.Run("missing_schema", func(t *testing.T) {
		p := &Prompt{Task: "identify"}
		if err := p.Validate(); err == nil {
			t.Error("expected error for missing schema")
		}
	})
}

func TestIdentificationPrompt(t *testing.T) {
	p := identificationPrompt(`{"type": "object"}`)
	if err := p.Validate(); err != nil {
		t.Fatalf("identification prompt invalid: %v", err)
	}

	rendered := p.Render()
	for _, want := range []string{
		"species.commonName",
		"species.scientificName",
		"confidence: 0.0 to 1.0",
		`"error"`,
		"single JSON object",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("identification prompt missing %q", want)
		}
	}
}

func TestConnectionProbePrompt(t *testing.T) {
	p := connectionProbePrompt()
	if err := p.Validate(); err != nil {
		t.Fatalf("probe prompt invalid: %v", err)
	}
	if !strings.Contains(p.Render(), `{"ok": true}`) {
		t.Error("probe prompt missing expected reply shape")
	}
}
