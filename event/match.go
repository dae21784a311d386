package event

import (
	"fmt"

	"github.com/sluiceworks/sluice/internal/pattern"
	"github.com/sluiceworks/sluice/workflow"
)

// Match is the outcome of evaluating a workflow's triggers against an
// event. Reason explains the outcome either way, for logs and dry runs.
type Match struct {
	Triggered bool
	Reason    string
}

// defaultPRActions are the pull request activity types that trigger runs.
var defaultPRActions = map[string]bool{
	"opened":      true,
	"synchronize": true,
	"reopened":    true,
}

// Evaluate matches an event against a workflow's triggers.
func Evaluate(t workflow.Triggers, ev Event) (Match, error) {
	switch e := ev.(type) {
	case PushEvent:
		return MatchPush(t, e)
	case *PushEvent:
		return MatchPush(t, *e)
	case PullRequestEvent:
		return MatchPullRequest(t, e)
	case *PullRequestEvent:
		return MatchPullRequest(t, *e)
	default:
		return Match{}, fmt.Errorf("unsupported event kind %q", ev.Kind())
	}
}

// MatchPush evaluates a push event. A push triggers when a push trigger
// is declared, the head commit message carries no skip marker, and the
// pushed branch or tag passes the trigger's filters.
func MatchPush(t workflow.Triggers, ev PushEvent) (Match, error) {
	if t.Push == nil {
		return Match{Reason: "no push trigger declared"}, nil
	}

	if marker, ok := SkipRequested(ev.HeadCommit.Message); ok {
		return Match{Reason: fmt.Sprintf("head commit message contains %q", marker)}, nil
	}

	if tag, isTag := TagName(ev.Ref); isTag {
		return matchTagPush(t.Push, tag)
	}
	return matchBranchPush(t.Push, BranchName(ev.Ref))
}

func matchBranchPush(tr *workflow.PushTrigger, branch string) (Match, error) {
	if len(tr.BranchesIgnore) > 0 {
		list, err := pattern.CompileFilters(tr.BranchesIgnore)
		if err != nil {
			return Match{}, err
		}
		if list.Matches(branch) {
			return Match{Reason: fmt.Sprintf("branch %q is ignored by the push trigger", branch)}, nil
		}
		return Match{Triggered: true, Reason: fmt.Sprintf("branch %q is not ignored by the push trigger", branch)}, nil
	}

	if len(tr.Branches) > 0 {
		list, err := pattern.CompileFilters(tr.Branches)
		if err != nil {
			return Match{}, err
		}
		if list.Matches(branch) {
			return Match{Triggered: true, Reason: fmt.Sprintf("branch %q matches the push branch filters", branch)}, nil
		}
		return Match{Reason: fmt.Sprintf("branch %q does not match the push branch filters", branch)}, nil
	}

	// A trigger that filters only tags does not run for branch pushes.
	if len(tr.Tags) > 0 {
		return Match{Reason: fmt.Sprintf("branch %q pushed but the trigger filters tags only", branch)}, nil
	}
	return Match{Triggered: true, Reason: "push trigger declares no branch filters"}, nil
}

func matchTagPush(tr *workflow.PushTrigger, tag string) (Match, error) {
	if len(tr.Tags) > 0 {
		list, err := pattern.CompileFilters(tr.Tags)
		if err != nil {
			return Match{}, err
		}
		if list.Matches(tag) {
			return Match{Triggered: true, Reason: fmt.Sprintf("tag %q matches the push tag filters", tag)}, nil
		}
		return Match{Reason: fmt.Sprintf("tag %q does not match the push tag filters", tag)}, nil
	}

	// A trigger that filters only branches does not run for tag pushes.
	if len(tr.Branches) > 0 || len(tr.BranchesIgnore) > 0 {
		return Match{Reason: fmt.Sprintf("tag %q pushed but the trigger filters branches only", tag)}, nil
	}
	return Match{Triggered: true, Reason: "push trigger declares no tag filters"}, nil
}

// MatchPullRequest evaluates a pull request event. A pull request
// triggers when a pull_request trigger is declared, the activity type is
// one that starts runs, the head commit message carries no skip marker,
// and the TARGET (base) branch passes the trigger's filters.
func MatchPullRequest(t workflow.Triggers, ev PullRequestEvent) (Match, error) {
	if t.PullRequest == nil {
		return Match{Reason: "no pull_request trigger declared"}, nil
	}

	action := ev.Action
	if action == "" {
		action = "opened"
	}
	if !defaultPRActions[action] {
		return Match{Reason: fmt.Sprintf("activity type %q does not trigger runs", action)}, nil
	}

	if marker, ok := SkipRequested(ev.HeadCommit.Message); ok {
		return Match{Reason: fmt.Sprintf("head commit message contains %q", marker)}, nil
	}

	base := BranchName(ev.BaseRef)

	if len(t.PullRequest.BranchesIgnore) > 0 {
		list, err := pattern.CompileFilters(t.PullRequest.BranchesIgnore)
		if err != nil {
			return Match{}, err
		}
		if list.Matches(base) {
			return Match{Reason: fmt.Sprintf("target branch %q is ignored by the pull_request trigger", base)}, nil
		}
		return Match{Triggered: true, Reason: fmt.Sprintf("target branch %q is not ignored by the pull_request trigger", base)}, nil
	}

	if len(t.PullRequest.Branches) > 0 {
		list, err := pattern.CompileFilters(t.PullRequest.Branches)
		if err != nil {
			return Match{}, err
		}
		if list.Matches(base) {
			return Match{Triggered: true, Reason: fmt.Sprintf("target branch %q matches the pull_request branch filters", base)}, nil
		}
		return Match{Reason: fmt.Sprintf("target branch %q does not match the pull_request branch filters", base)}, nil
	}

	return Match{Triggered: true, Reason: "pull_request trigger declares no branch filters"}, nil
}
