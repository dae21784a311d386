package runner

import (
	"encoding/json"
	"time"
)

// MarshalReport serializes a run with stable field names, suitable for
// storage and for other tools to consume.
func MarshalReport(run *Run) ([]byte, error) {
	payload := runPayload{
		ID:          run.ID,
		Workflow:    run.WorkflowName,
		Event:       run.Event,
		Conclusion:  string(run.Conclusion),
		StartedAt:   run.StartedAt.Format(time.RFC3339Nano),
		CompletedAt: run.CompletedAt.Format(time.RFC3339Nano),
		Jobs:        make([]jobPayload, 0, len(run.Jobs)),
	}
	if run.Commit != nil {
		payload.Commit = &commitPayload{
			SHA:     run.Commit.SHA,
			Message: run.Commit.Message,
			Type:    run.Commit.Type,
			Scope:   run.Commit.Scope,
		}
	}
	for _, job := range run.Jobs {
		jp := jobPayload{
			JobID:       job.JobID,
			Name:        job.Name,
			Outcome:     string(job.Outcome),
			Conclusion:  string(job.Conclusion),
			Artifacts:   job.Artifacts,
			StartedAt:   job.StartedAt.Format(time.RFC3339Nano),
			CompletedAt: job.CompletedAt.Format(time.RFC3339Nano),
			Steps:       make([]stepPayload, 0, len(job.Steps)),
		}
		for _, step := range job.Steps {
			jp.Steps = append(jp.Steps, stepPayload{
				Name:        step.Name,
				Outcome:     string(step.Outcome),
				Conclusion:  string(step.Conclusion),
				ExitCode:    step.ExitCode,
				Output:      step.Output,
				Error:       step.Error,
				StartedAt:   step.StartedAt.Format(time.RFC3339Nano),
				CompletedAt: step.CompletedAt.Format(time.RFC3339Nano),
			})
		}
		payload.Jobs = append(payload.Jobs, jp)
	}
	return json.MarshalIndent(payload, "", "  ")
}

// UnmarshalReport parses a persisted run report.
func UnmarshalReport(raw []byte) (*Run, error) {
	var payload runPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           payload.ID,
		WorkflowName: payload.Workflow,
		Event:        payload.Event,
		Conclusion:   Conclusion(payload.Conclusion),
		Jobs:         make([]JobResult, 0, len(payload.Jobs)),
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, payload.StartedAt)
	run.CompletedAt, _ = time.Parse(time.RFC3339Nano, payload.CompletedAt)
	if payload.Commit != nil {
		run.Commit = &Commit{
			SHA:     payload.Commit.SHA,
			Message: payload.Commit.Message,
			Type:    payload.Commit.Type,
			Scope:   payload.Commit.Scope,
		}
	}
	for _, jp := range payload.Jobs {
		job := JobResult{
			JobID:      jp.JobID,
			Name:       jp.Name,
			Outcome:    Conclusion(jp.Outcome),
			Conclusion: Conclusion(jp.Conclusion),
			Artifacts:  jp.Artifacts,
			Steps:      make([]StepResult, 0, len(jp.Steps)),
		}
		job.StartedAt, _ = time.Parse(time.RFC3339Nano, jp.StartedAt)
		job.CompletedAt, _ = time.Parse(time.RFC3339Nano, jp.CompletedAt)
		for _, sp := range jp.Steps {
			step := StepResult{
				Name:       sp.Name,
				Outcome:    Conclusion(sp.Outcome),
				Conclusion: Conclusion(sp.Conclusion),
				ExitCode:   sp.ExitCode,
				Output:     sp.Output,
				Error:      sp.Error,
			}
			step.StartedAt, _ = time.Parse(time.RFC3339Nano, sp.StartedAt)
			step.CompletedAt, _ = time.Parse(time.RFC3339Nano, sp.CompletedAt)
			job.Steps = append(job.Steps, step)
		}
		run.Jobs = append(run.Jobs, job)
	}
	return run, nil
}

type runPayload struct {
	ID          string         `json:"id"`
	Workflow    string         `json:"workflow"`
	Event       string         `json:"event"`
	Commit      *commitPayload `json:"commit,omitempty"`
	Conclusion  string         `json:"conclusion"`
	StartedAt   string         `json:"startedAt"`
	CompletedAt string         `json:"completedAt"`
	Jobs        []jobPayload   `json:"jobs"`
}

type commitPayload struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Scope   string `json:"scope,omitempty"`
}

type jobPayload struct {
	JobID       string        `json:"jobId"`
	Name        string        `json:"name"`
	Outcome     string        `json:"outcome"`
	Conclusion  string        `json:"conclusion"`
	Steps       []stepPayload `json:"steps"`
	Artifacts   []string      `json:"artifacts,omitempty"`
	StartedAt   string        `json:"startedAt"`
	CompletedAt string        `json:"completedAt"`
}

type stepPayload struct {
	Name        string `json:"name"`
	Outcome     string `json:"outcome"`
	Conclusion  string `json:"conclusion"`
	ExitCode    int    `json:"exitCode"`
	Output      string `json:"output,omitempty"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"startedAt"`
	CompletedAt string `json:"completedAt"`
}
