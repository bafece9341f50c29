package sarif_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openkraft/ecoscan/internal/adapters/outbound/sarif"
	"github.com/openkraft/ecoscan/internal/domain"
)

func sampleReport() *domain.Report {
	return &domain.Report{
		RunID:        "run-1",
		HealthScore:  85,
		HealthStatus: "Good",
		CriticalIssues: []domain.Finding{{
			Fingerprint: "abc",
			Severity:    domain.SeverityCritical,
			Category:    domain.CategoryExternalPath,
			Type:        "hardcoded_external_path",
			Title:       "hardcoded path into sibling repository",
			Details:     domain.Details{File: "sales/models/io.py", Line: 7},
		}},
		Warnings: []domain.Finding{{
			Fingerprint: "def",
			Severity:    domain.SeverityWarning,
			Category:    domain.CategoryDuplicate,
			Type:        "similar_models",
			Title:       "x.a and x.b are 90% similar",
		}},
		Recommendations: []domain.Recommendation{{Priority: domain.PriorityHigh, Title: "Remove hardcoded paths"}},
	}
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sarif.Write(&buf, sampleReport()))

	var doc struct {
		Version string `json:"version"`
		Runs    []struct {
			Results []struct {
				RuleID    string `json:"ruleId"`
				Level     string `json:"level"`
				Locations []struct {
					PhysicalLocation struct {
						ArtifactLocation struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
						Region struct {
							StartLine int `json:"startLine"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
			Properties map[string]any `json:"properties"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	results := doc.Runs[0].Results
	require.Len(t, results, 2)

	assert.Equal(t, "external_path/hardcoded_external_path", results[0].RuleID)
	assert.Equal(t, "error", results[0].Level)
	require.Len(t, results[0].Locations, 1)
	assert.Equal(t, "sales/models/io.py", results[0].Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 7, results[0].Locations[0].PhysicalLocation.Region.StartLine)

	assert.Equal(t, "warning", results[1].Level)
	assert.Empty(t, results[1].Locations)
	assert.EqualValues(t, 85, doc.Runs[0].Properties["health_score"])
}
