package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sluiceworks/sluice/workflow"
)

// ciTriggers mirrors the Python CI workflow: pushes to develop and
// feature/**, pull requests into main and develop.
func ciTriggers() workflow.Triggers {
	return workflow.Triggers{
		Push: &workflow.PushTrigger{
			Branches: workflow.StringList{"develop", "feature/**"},
		},
		PullRequest: &workflow.PullRequestTrigger{
			Branches: workflow.StringList{"main", "develop"},
		},
	}
}

func TestMatchPushBranchFilters(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want bool
	}{
		{"develop triggers", "refs/heads/develop", true},
		{"feature one level", "refs/heads/feature/login", true},
		{"feature nested", "refs/heads/feature/login/v2", true},
		{"bare branch name accepted", "develop", true},
		{"main does not trigger", "refs/heads/main", false},
		{"features is not feature", "refs/heads/features", false},
		{"unrelated branch", "refs/heads/hotfix/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := MatchPush(ciTriggers(), PushEvent{Ref: tt.ref})
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Triggered, m.Reason)
			assert.NotEmpty(t, m.Reason)
		})
	}
}

func TestMatchPushRequiresPushTrigger(t *testing.T) {
	triggers := workflow.Triggers{
		PullRequest: &workflow.PullRequestTrigger{},
	}

	m, err := MatchPush(triggers, PushEvent{Ref: "refs/heads/develop"})
	require.NoError(t, err)
	assert.False(t, m.Triggered)
	assert.Contains(t, m.Reason, "no push trigger")
}

func TestMatchPushSkipMarkers(t *testing.T) {
	for _, marker := range []string{"[skip ci]", "[ci skip]", "[no ci]"} {
		t.Run(marker, func(t *testing.T) {
			m, err := MatchPush(ciTriggers(), PushEvent{
				Ref:        "refs/heads/develop",
				HeadCommit: Commit{Message: "fix build " + marker},
			})
			require.NoError(t, err)
			assert.False(t, m.Triggered)
			assert.Contains(t, m.Reason, marker)
		})
	}
}

func TestMatchPushWithoutFilters(t *testing.T) {
	triggers := workflow.Triggers{Push: &workflow.PushTrigger{}}

	m, err := MatchPush(triggers, PushEvent{Ref: "refs/heads/anything"})
	require.NoError(t, err)
	assert.True(t, m.Triggered)

	// Tags also pass an unfiltered push trigger.
	m, err = MatchPush(triggers, PushEvent{Ref: "refs/tags/v1.0.0"})
	require.NoError(t, err)
	assert.True(t, m.Triggered)
}

func TestMatchPushBranchesIgnore(t *testing.T) {
	triggers := workflow.Triggers{
		Push: &workflow.PushTrigger{
			BranchesIgnore: workflow.StringList{"main", "release/**"},
		},
	}

	m, err := MatchPush(triggers, PushEvent{Ref: "refs/heads/main"})
	require.NoError(t, err)
	assert.False(t, m.Triggered)

	m, err = MatchPush(triggers, PushEvent{Ref: "refs/heads/develop"})
	require.NoError(t, err)
	assert.True(t, m.Triggered)
}

func TestMatchPushTagFilters(t *testing.T) {
	triggers := workflow.Triggers{
		Push: &workflow.PushTrigger{
			Tags: workflow.StringList{"v**"},
		},
	}

	m, err := MatchPush(triggers, PushEvent{Ref: "refs/tags/v1.2.3"})
	require.NoError(t, err)
	assert.True(t, m.Triggered)

	m, err = MatchPush(triggers, PushEvent{Ref: "refs/tags/nightly"})
	require.NoError(t, err)
	assert.False(t, m.Triggered)

	// Tag-only triggers do not run for branch pushes.
	m, err = MatchPush(triggers, PushEvent{Ref: "refs/heads/develop"})
	require.NoError(t, err)
	assert.False(t, m.Triggered)
}

func TestMatchPushTagAgainstBranchFilters(t *testing.T) {
	m, err := MatchPush(ciTriggers(), PushEvent{Ref: "refs/tags/v1.0.0"})
	require.NoError(t, err)
	assert.False(t, m.Triggered)
	assert.Contains(t, m.Reason, "branches only")
}

func TestMatchPullRequestTargets(t *testing.T) {
	tests := []struct {
		name string
		base string
		want bool
	}{
		{"into main triggers", "refs/heads/main", true},
		{"into develop triggers", "refs/heads/develop", true},
		{"bare base name accepted", "main", true},
		{"into release does not trigger", "refs/heads/release/1.0", false},
		{"into feature does not trigger", "refs/heads/feature/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := MatchPullRequest(ciTriggers(), PullRequestEvent{
				BaseRef: tt.base,
				HeadRef: "refs/heads/feature/login",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Triggered, m.Reason)
		})
	}
}

func TestMatchPullRequestActivityTypes(t *testing.T) {
	for action, want := range map[string]bool{
		"":            true, // defaults to opened
		"opened":      true,
		"synchronize": true,
		"reopened":    true,
		"closed":      false,
		"labeled":     false,
	} {
		t.Run("action_"+action, func(t *testing.T) {
			m, err := MatchPullRequest(ciTriggers(), PullRequestEvent{
				Action:  action,
				BaseRef: "refs/heads/main",
			})
			require.NoError(t, err)
			assert.Equal(t, want, m.Triggered, m.Reason)
		})
	}
}

func TestMatchPullRequestRequiresTrigger(t *testing.T) {
	triggers := workflow.Triggers{Push: &workflow.PushTrigger{}}

	m, err := MatchPullRequest(triggers, PullRequestEvent{BaseRef: "refs/heads/main"})
	require.NoError(t, err)
	assert.False(t, m.Triggered)
	assert.Contains(t, m.Reason, "no pull_request trigger")
}

func TestMatchPullRequestSkipMarker(t *testing.T) {
	m, err := MatchPullRequest(ciTriggers(), PullRequestEvent{
		BaseRef:    "refs/heads/main",
		HeadCommit: Commit{Message: "wip [ci skip]"},
	})
	require.NoError(t, err)
	assert.False(t, m.Triggered)
}

func TestEvaluateDispatches(t *testing.T) {
	m, err := Evaluate(ciTriggers(), PushEvent{Ref: "refs/heads/develop"})
	require.NoError(t, err)
	assert.True(t, m.Triggered)

	m, err = Evaluate(ciTriggers(), &PullRequestEvent{BaseRef: "refs/heads/main"})
	require.NoError(t, err)
	assert.True(t, m.Triggered)
}

func TestEventDescriptions(t *testing.T) {
	push := PushEvent{Ref: "refs/heads/develop"}
	assert.Equal(t, KindPush, push.Kind())
	assert.Equal(t, "refs/heads/develop", push.CheckoutRef())
	assert.Contains(t, push.Describe(), "develop")

	pr := PullRequestEvent{Number: 7, BaseRef: "refs/heads/main", HeadRef: "refs/heads/feature/x"}
	assert.Equal(t, KindPullRequest, pr.Kind())
	assert.Equal(t, "refs/heads/feature/x", pr.CheckoutRef())
	assert.Contains(t, pr.Describe(), "#7")
}
