package wildlens

import "fmt"

// Species is the primary identification in a result.
type Species struct {
	CommonName     string  `json:"commonName" desc:"Common name of the species"`
	ScientificName string  `json:"scientificName" desc:"Latin binomial name"`
	Confidence     float64 `json:"confidence" desc:"Identification confidence between 0 and 1"`
	Family         string  `json:"family,omitempty" desc:"Taxonomic family"`
	Order          string  `json:"order,omitempty" desc:"Taxonomic order"`
	Class          string  `json:"class,omitempty" desc:"Taxonomic class"`
}

// SpeciesCandidate is a secondary identification candidate.
type SpeciesCandidate struct {
	CommonName     string  `json:"commonName"`
	ScientificName string  `json:"scientificName"`
	Confidence     float64 `json:"confidence"`
}

// Details holds optional structured facts about the identified species.
type Details struct {
	Habitat            string   `json:"habitat,omitempty"`
	Behavior           string   `json:"behavior,omitempty"`
	ConservationStatus string   `json:"conservationStatus,omitempty"`
	Facts              []string `json:"facts,omitempty"`
}

// ImageQuality is the model's optional assessment of the supplied photo.
type ImageQuality struct {
	Assessment string   `json:"assessment,omitempty"`
	Issues     []string `json:"issues,omitempty"`
}

// ErrorInfo is the error variant of a result: the model looked at the
// photo but declined to identify a species.
type ErrorInfo struct {
	Message     string   `json:"message"`
	Reasons     []string `json:"reasons"`
	Suggestions []string `json:"suggestions"`
}

// IdentificationResult is the validated, typed output of processing a
// model response. It is the only artifact returned to callers on success.
// When Error is non-nil the Species fields hold the "Unknown" placeholder.
type IdentificationResult struct {
	Species      Species            `json:"species"`
	Summary      string             `json:"summary"`
	Alternatives []SpeciesCandidate `json:"alternatives,omitempty"`
	Details      *Details           `json:"details,omitempty"`
	ImageQuality *ImageQuality      `json:"imageQuality,omitempty"`
	Error        *ErrorInfo         `json:"error,omitempty"`
}

// Validate checks the result invariants: confidence values live in [0,1]
// and the primary species identifiers are non-empty unless the result is
// the error variant.
func (r IdentificationResult) Validate() error {
	if r.Species.Confidence < 0 || r.Species.Confidence > 1 {
		return fmt.Errorf("confidence must be 0-1, got %f", r.Species.Confidence)
	}
	for i, alt := range r.Alternatives {
		if alt.Confidence < 0 || alt.Confidence > 1 {
			return fmt.Errorf("alternative %d confidence must be 0-1, got %f", i, alt.Confidence)
		}
	}
	if r.Error != nil {
		return nil
	}
	if r.Species.CommonName == "" || r.Species.ScientificName == "" {
		return fmt.Errorf("species identifiers required but empty")
	}
	return nil
}
