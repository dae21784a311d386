package runner

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportRoundTrip(t *testing.T) {
	started := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	run := &Run{
		ID:           "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		WorkflowName: "CI",
		Event:        "push of refs/heads/develop",
		Commit:       &Commit{SHA: "abc123", Message: "feat(api): add endpoint", Type: "feat", Scope: "api"},
		Conclusion:   ConclusionFailure,
		StartedAt:    started,
		CompletedAt:  started.Add(90 * time.Second),
		Jobs: []JobResult{
			{
				JobID:      "lint",
				Name:       "lint",
				Outcome:    ConclusionFailure,
				Conclusion: ConclusionSuccess,
				Steps: []StepResult{
					{
						Name:        "pylint",
						Outcome:     ConclusionFailure,
						Conclusion:  ConclusionFailure,
						ExitCode:    2,
						Output:      "E0001 syntax error\n",
						Error:       "command execution failed",
						StartedAt:   started,
						CompletedAt: started.Add(30 * time.Second),
					},
				},
				Artifacts:   []string{"run/lint/report.txt"},
				StartedAt:   started,
				CompletedAt: started.Add(30 * time.Second),
			},
		},
	}

	raw, err := MarshalReport(run)
	require.NoError(t, err)

	decoded, err := UnmarshalReport(raw)
	require.NoError(t, err)
	assert.Equal(t, run, decoded)
}

func TestReportFieldNamesAreStable(t *testing.T) {
	run := &Run{ID: "id", Conclusion: ConclusionSuccess}

	raw, err := MarshalReport(run)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	for _, key := range []string{"id", "workflow", "event", "conclusion", "startedAt", "completedAt", "jobs"} {
		assert.Contains(t, doc, key)
	}
}
