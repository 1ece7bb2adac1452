package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"city-inspect-be/internal/constant"
)

// VisionAnalyzer turns an image (URL or base64 data URI) into a textual
// hazard description. A long-latency boundary; runs only inside workers.
type VisionAnalyzer interface {
	// Analyze returns the analysis text. When structured is set the
	// model is asked for JSON hazard fields which are rendered back to
	// the labeled report form.
	Analyze(ctx context.Context, image string, prompt string, structured bool) (string, error)

	// Name identifies the backing model for the models_used response
	// field.
	Name() string
}

// StructuredAnalysis is the JSON shape requested from the model when
// structured output is enabled.
type StructuredAnalysis struct {
	IndicatorClassification string `json:"indicator_classification"`
	SpecificProblem         string `json:"specific_problem"`
	DetailedDescription     string `json:"detailed_description"`
}

// RenderStructured converts a structured JSON analysis into the labeled
// text form the report prompt expects. Non-JSON input is returned as-is
// so a model that ignored the format instruction still produces output.
func RenderStructured(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var parsed StructuredAnalysis
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return raw
	}
	if parsed.IndicatorClassification == "" && parsed.DetailedDescription == "" {
		return raw
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**: %s\n", constant.StructuredLabelClassification, parsed.IndicatorClassification)
	fmt.Fprintf(&b, "**%s**: %s\n", constant.StructuredLabelProblem, parsed.SpecificProblem)
	fmt.Fprintf(&b, "**%s**: %s", constant.StructuredLabelDescription, parsed.DetailedDescription)
	return b.String()
}
