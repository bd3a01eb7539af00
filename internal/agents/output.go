package agents

import (
	"encoding/json"
	"strings"

	"skymarshal/pkg/errors"
)

// assessmentPayload is the model-facing success shape. It is decoded
// strictly and validated before anything downstream sees it.
type assessmentPayload struct {
	Recommendation     string              `json:"recommendation"`
	Reasoning          string              `json:"reasoning"`
	DataSources        []string            `json:"data_sources"`
	Confidence         float64             `json:"confidence"`
	BindingConstraints []BindingConstraint `json:"binding_constraints"`
}

// extractJSONObject finds the first balanced top-level JSON object in
// model output. Models frequently wrap JSON in prose or markdown fences;
// anything outside the object is discarded.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)

	// Strip markdown code fences if present
	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx != -1 {
			text = text[idx+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	if start == -1 {
		return "", errors.Wrap(errors.ErrMalformedOutput, "no JSON object in model output")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]

		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], nil
				}
			}
		}
	}

	return "", errors.Wrap(errors.ErrMalformedOutput, "unbalanced JSON object in model output")
}

// parseAssessment validates model output against the assessment shape.
// Malformed output never crosses this boundary.
func parseAssessment(text string) (*assessmentPayload, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var payload assessmentPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, errors.Wrap(errors.ErrMalformedOutput, err.Error())
	}

	if strings.TrimSpace(payload.Recommendation) == "" {
		return nil, errors.Wrap(errors.ErrMalformedOutput, "missing recommendation")
	}
	if payload.Confidence < 0 || payload.Confidence > 1 {
		return nil, errors.Wrapf(errors.ErrMalformedOutput, "confidence %.3f outside [0,1]", payload.Confidence)
	}

	// Constraints without a stable id cannot be tracked across rounds
	// and are dropped rather than failing the whole assessment.
	kept := payload.BindingConstraints[:0]
	for _, bc := range payload.BindingConstraints {
		if strings.TrimSpace(bc.ID) != "" {
			kept = append(kept, bc)
		}
	}
	payload.BindingConstraints = kept

	return &payload, nil
}
