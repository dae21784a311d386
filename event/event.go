// Package event models the repository events a workflow can respond to
// and evaluates a workflow's triggers against them: push and pull
// request events, branch and tag filter globs, and commit-message skip
// markers.
package event

import (
	"fmt"
	"strings"
)

// Kind identifies an event type. Kinds match the trigger keys used in
// workflow definitions.
type Kind string

const (
	// KindPush is a branch or tag push.
	KindPush Kind = "push"

	// KindPullRequest is pull request activity.
	KindPullRequest Kind = "pull_request"
)

// Ref prefixes in the git namespace.
const (
	branchRefPrefix = "refs/heads/"
	tagRefPrefix    = "refs/tags/"
)

// skipMarkers are the commit-message tokens that suppress a run.
var skipMarkers = []string{
	"[skip ci]",
	"[ci skip]",
	"[no ci]",
	"[skip actions]",
	"[actions skip]",
}

// Event is a repository event a runner can evaluate triggers against.
type Event interface {
	// Kind returns the event type.
	Kind() Kind

	// CheckoutRef returns the git ref a runner materializes for this
	// event.
	CheckoutRef() string

	// Repository returns the repository the event belongs to.
	Repository() Repository

	// Describe returns a one-line summary for logs and reports.
	Describe() string
}

// Commit identifies a commit and the message trigger evaluation reads.
type Commit struct {
	SHA     string
	Message string
	Author  string
}

// Repository names the repository an event belongs to. URL may be a
// local path; DefaultBranch is used when an event carries no ref.
type Repository struct {
	URL           string
	DefaultBranch string
}

// PushEvent is a branch or tag push.
type PushEvent struct {
	// Ref is the pushed ref ("refs/heads/develop", "refs/tags/v1.0.0").
	// A bare name is treated as a branch.
	Ref        string
	Before     string
	After      string
	HeadCommit Commit
	Repo       Repository
}

// Kind implements Event.
func (e PushEvent) Kind() Kind { return KindPush }

// CheckoutRef implements Event.
func (e PushEvent) CheckoutRef() string { return e.Ref }

// Repository implements Event.
func (e PushEvent) Repository() Repository { return e.Repo }

// Describe implements Event.
func (e PushEvent) Describe() string {
	return fmt.Sprintf("push of %s", e.Ref)
}

// PullRequestEvent is pull request activity against a base branch.
type PullRequestEvent struct {
	// Action is the activity type ("opened", "synchronize", "reopened",
	// ...). Empty means "opened".
	Action     string
	Number     int
	BaseRef    string
	HeadRef    string
	HeadCommit Commit
	Repo       Repository
}

// Kind implements Event.
func (e PullRequestEvent) Kind() Kind { return KindPullRequest }

// CheckoutRef implements Event.
func (e PullRequestEvent) CheckoutRef() string { return e.HeadRef }

// Repository implements Event.
func (e PullRequestEvent) Repository() Repository { return e.Repo }

// Describe implements Event.
func (e PullRequestEvent) Describe() string {
	if e.Number > 0 {
		return fmt.Sprintf("pull request #%d into %s", e.Number, BranchName(e.BaseRef))
	}
	return fmt.Sprintf("pull request into %s", BranchName(e.BaseRef))
}

// BranchName strips the branch ref prefix; bare names pass through.
func BranchName(ref string) string {
	return strings.TrimPrefix(ref, branchRefPrefix)
}

// TagName strips the tag ref prefix. The second result reports whether
// the ref is in the tag namespace.
func TagName(ref string) (string, bool) {
	if strings.HasPrefix(ref, tagRefPrefix) {
		return strings.TrimPrefix(ref, tagRefPrefix), true
	}
	return "", false
}

// SkipRequested reports whether a commit message carries a skip marker
// such as "[skip ci]", and returns the marker found.
func SkipRequested(message string) (string, bool) {
	for _, marker := range skipMarkers {
		if strings.Contains(message, marker) {
			return marker, true
		}
	}
	return "", false
}
