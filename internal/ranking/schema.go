package ranking

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "github.com/fmuoria/resume-screening-dashboard/internal/errors"
	"github.com/fmuoria/resume-screening-dashboard/internal/models"
)

var skillList = map[string]interface{}{
	"type":  []interface{}{"array", "null"},
	"items": map[string]interface{}{"type": "string"},
}

// candidateListSchema describes the body of a successful ranking response
var candidateListSchema = map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"id"},
		"properties": map[string]interface{}{
			"id":                    map[string]interface{}{"type": "string", "minLength": 1},
			"name":                  map[string]interface{}{"type": "string"},
			"fitScore":              map[string]interface{}{"type": "number"},
			"overall_similarity":    map[string]interface{}{"type": "number"},
			"llm_fit_score":         map[string]interface{}{"type": "number"},
			"education_highlights":  map[string]interface{}{"type": []interface{}{"string", "null"}},
			"experience_highlights": map[string]interface{}{"type": []interface{}{"string", "null"}},
			"summary":               map[string]interface{}{"type": []interface{}{"string", "null"}},
			"justification":         map[string]interface{}{"type": []interface{}{"string", "null"}},
			"email":                 map[string]interface{}{"type": []interface{}{"string", "null"}},
			"mobile_number":         map[string]interface{}{"type": []interface{}{"string", "null"}},
			"skills": map[string]interface{}{
				"type": []interface{}{"object", "null"},
				"properties": map[string]interface{}{
					"exact_matches": skillList,
					"transferable":  skillList,
					"non_technical": skillList,
				},
			},
		},
	},
}

var schemaLoader = gojsonschema.NewGoLoader(candidateListSchema)

// DecodeCandidates validates a 2xx body and maps it to candidates in server
// order. Anything other than a well-formed candidate array is a ProtocolError.
func DecodeCandidates(body []byte) ([]models.Candidate, error) {
	if !json.Valid(body) {
		return nil, apperrors.NewProtocolError("response is not valid JSON", nil)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, apperrors.NewProtocolError("response could not be validated", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, apperrors.NewProtocolError("response does not match candidate schema: "+strings.Join(errs, "; "), nil)
	}

	var candidates []models.Candidate
	if err := json.Unmarshal(body, &candidates); err != nil {
		return nil, apperrors.NewProtocolError("response could not be decoded", err)
	}

	seen := make(map[string]struct{}, len(candidates))
	for i := range candidates {
		if _, dup := seen[candidates[i].ID]; dup {
			return nil, apperrors.NewProtocolError(fmt.Sprintf("duplicate candidate id %q", candidates[i].ID), nil)
		}
		seen[candidates[i].ID] = struct{}{}
		candidates[i].Skills.Normalize()
	}

	if candidates == nil {
		candidates = []models.Candidate{}
	}
	return candidates, nil
}
