// Package checkout materializes the repository behind an event into a job
// workspace. It clones with go-git through the project's filesystem
// abstraction, checks out the event's ref (branch, tag, or commit SHA), and
// inspects the resulting head commit so runs can be labeled from
// conventional commit messages.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/leodido/go-conventionalcommits"
	ccparser "github.com/leodido/go-conventionalcommits/parser"

	"github.com/sluiceworks/sluice/event"
	"github.com/sluiceworks/sluice/fs"
	billyfs "github.com/sluiceworks/sluice/fs/billy"
)

const (
	// DefaultStorerCacheSize is the default size for the LRU object cache.
	DefaultStorerCacheSize = 1000

	// DefaultWorkdir is the default worktree directory name.
	DefaultWorkdir = "."

	// DefaultRemoteName is the remote name created by clone operations.
	DefaultRemoteName = "origin"
)

// Source identifies the repository and ref to materialize.
type Source struct {
	// URL is the clone source. Local directory paths are the runner's
	// normal mode; any URL go-git accepts also works.
	URL string

	// Ref is the ref to check out: "refs/heads/develop", "refs/tags/v1.0.0",
	// a bare branch name, or a full commit SHA. Empty checks out the
	// source's default branch.
	Ref string
}

// Options configures where and how a checkout materializes.
type Options struct {
	// FS is the REQUIRED filesystem the workspace lives in. It must be a
	// billy-backed filesystem from the fs/billy package.
	FS fs.Filesystem

	// Workdir is the path within FS for the worktree root.
	// Defaults to "." (current directory in FS).
	Workdir string

	// Depth sets the depth for shallow clones. If 0, a full clone is
	// performed; full clones are cheap for the local-path sources the
	// runner normally uses and keep every ref resolvable.
	Depth int

	// StorerCacheSize sets the LRU object cache entries.
	// Defaults to DefaultStorerCacheSize.
	StorerCacheSize int
}

// Validate checks that the Options are properly configured.
func (o *Options) Validate() error {
	if o.FS == nil {
		return WrapError(ErrInvalidSource, "FS is required")
	}

	if o.Depth < 0 {
		return WrapError(ErrInvalidSource, "Depth cannot be negative")
	}

	if o.StorerCacheSize < 0 {
		return WrapError(ErrInvalidSource, "StorerCacheSize cannot be negative")
	}

	return nil
}

// applyDefaults sets default values for any unset fields in Options.
func (o *Options) applyDefaults() {
	if o.Workdir == "" {
		o.Workdir = DefaultWorkdir
	}

	if o.StorerCacheSize == 0 {
		o.StorerCacheSize = DefaultStorerCacheSize
	}
}

// Label is the conventional-commit classification of a head commit.
type Label struct {
	// Type is the commit type ("feat", "fix", "ci", ...).
	Type string

	// Scope is the commit scope, empty when the message has none.
	Scope string

	// Description is the commit description after the type prefix.
	Description string

	// Breaking reports whether the commit is marked as a breaking change.
	Breaking bool
}

// Head describes the commit a checkout materialized.
type Head struct {
	// SHA is the full commit hash.
	SHA string

	// Message is the full commit message.
	Message string

	// Author is the commit author's name.
	Author string

	// When is the author timestamp.
	When time.Time

	// Label is the conventional-commit classification of Message,
	// nil when the message does not parse as one.
	Label *Label
}

// Checkout is a materialized repository inside a job workspace.
type Checkout struct {
	// Head describes the checked-out commit.
	Head Head

	repo     *git.Repository
	worktree *git.Worktree
}

// Repo returns the underlying go-git repository.
func (c *Checkout) Repo() *git.Repository {
	return c.repo
}

// Materialize clones the source repository into the workspace and checks out
// the requested ref. The worktree is left at the event's commit; tag and SHA
// checkouts detach HEAD the way hosted runners do.
//
// Context timeout/cancellation is honored during the clone operation.
func Materialize(ctx context.Context, src Source, opts *Options) (*Checkout, error) {
	if src.URL == "" {
		return nil, WrapError(ErrInvalidSource, "repository URL cannot be empty")
	}

	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}

	opts.applyDefaults()

	billyFS, err := toBilly(opts.FS)
	if err != nil {
		return nil, fmt.Errorf("filesystem conversion failed: %w", err)
	}

	// Chroot to the workdir to scope the repository location
	scopedFS, err := billyFS.Chroot(opts.Workdir)
	if err != nil {
		return nil, fmt.Errorf("failed to chroot to workdir %q: %w", opts.Workdir, err)
	}

	// Storage goes in the .git subdirectory; the workdir is the worktree
	dotGitFS, err := scopedFS.Chroot(".git")
	if err != nil {
		return nil, fmt.Errorf("failed to create .git directory: %w", err)
	}
	storage := newStorage(dotGitFS, opts.StorerCacheSize)

	cloneOpts := &git.CloneOptions{
		URL:   src.URL,
		Depth: opts.Depth,
	}

	repo, err := git.CloneContext(ctx, storage, scopedFS, cloneOpts)
	if err != nil {
		return nil, WrapErrorf(ErrCloneFailed, "failed to clone %q: %s", src.URL, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, WrapError(ErrCloneFailed, "failed to get worktree")
	}

	if src.Ref != "" {
		if err := checkoutRef(repo, worktree, src.Ref); err != nil {
			return nil, err
		}
	}

	head, err := headInfo(repo)
	if err != nil {
		return nil, err
	}

	return &Checkout{
		Head:     *head,
		repo:     repo,
		worktree: worktree,
	}, nil
}

// checkoutRef moves the worktree to the requested ref. Branch refs keep HEAD
// symbolic; tags and commit SHAs detach it. Branches that only exist as
// remote-tracking refs after the clone get a local branch first, the way
// `git checkout <branch>` creates one.
func checkoutRef(repo *git.Repository, worktree *git.Worktree, ref string) error {
	if name, ok := event.TagName(ref); ok {
		// ResolveRevision peels annotated tags down to their commit.
		hash, err := repo.ResolveRevision(plumbing.Revision("refs/tags/" + name))
		if err != nil {
			return WrapErrorf(ErrRefMissing, "tag %q", name)
		}
		return detach(worktree, *hash)
	}

	if plumbing.IsHash(ref) {
		return detach(worktree, plumbing.NewHash(ref))
	}

	name := event.BranchName(ref)
	branchRef := plumbing.NewBranchReferenceName(name)

	if _, err := repo.Reference(branchRef, true); err != nil {
		// Clone only creates a local branch for the default HEAD; other
		// branches arrive as remote-tracking refs.
		remoteRef, remoteErr := repo.Reference(plumbing.NewRemoteReferenceName(DefaultRemoteName, name), true)
		if remoteErr != nil {
			return WrapErrorf(ErrRefMissing, "branch %q", name)
		}

		newRef := plumbing.NewHashReference(branchRef, remoteRef.Hash())
		if setErr := repo.Storer.SetReference(newRef); setErr != nil {
			return WrapError(setErr, "failed to create branch reference")
		}
	}

	err := worktree.Checkout(&git.CheckoutOptions{
		Branch: branchRef,
		Force:  true,
	})
	if err != nil {
		return WrapErrorf(ErrRefMissing, "failed to checkout branch %q: %s", name, err)
	}

	return nil
}

// detach checks out the worktree at an exact commit hash.
func detach(worktree *git.Worktree, hash plumbing.Hash) error {
	err := worktree.Checkout(&git.CheckoutOptions{
		Hash:  hash,
		Force: true,
	})
	if err != nil {
		return WrapErrorf(ErrRefMissing, "failed to checkout %s: %s", hash, err)
	}
	return nil
}

// headInfo reads the checked-out commit and classifies its message.
func headInfo(repo *git.Repository) (*Head, error) {
	headRef, err := repo.Head()
	if err != nil {
		return nil, WrapError(err, "failed to get HEAD reference")
	}

	commit, err := repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, WrapError(err, "failed to read HEAD commit")
	}

	return &Head{
		SHA:     headRef.Hash().String(),
		Message: commit.Message,
		Author:  commit.Author.Name,
		When:    commit.Author.When,
		Label:   ParseLabel(commit.Message),
	}, nil
}

// ParseLabel parses a commit message as a conventional commit and returns
// the run label it implies. Messages that do not follow the convention
// return nil; that is not an error.
func ParseLabel(message string) *Label {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil
	}

	machine := ccparser.NewMachine(
		conventionalcommits.WithTypes(conventionalcommits.TypesConventional),
		conventionalcommits.WithBestEffort(),
	)

	msg, err := machine.Parse([]byte(message))
	if err != nil && msg == nil {
		return nil
	}

	commit, ok := msg.(*conventionalcommits.ConventionalCommit)
	if !ok || !commit.Ok() {
		return nil
	}

	label := &Label{
		Type:        commit.Type,
		Description: commit.Description,
		Breaking:    commit.IsBreakingChange(),
	}
	if commit.Scope != nil {
		label.Scope = *commit.Scope
	}

	return label
}

// toBilly converts an fs.Filesystem to a billy.Filesystem. The passed
// filesystem must be the billy-backed FS from the fs/billy package.
//
//nolint:ireturn // returns interface as required by billy.Filesystem interface
func toBilly(fsys fs.Filesystem) (billy.Filesystem, error) {
	wrapped, ok := fsys.(*billyfs.FS)
	if !ok {
		return nil, fmt.Errorf("filesystem must be a billy-backed FS from fs/billy, got %T", fsys)
	}
	return wrapped.Raw(), nil
}

// newStorage creates git object storage with an LRU cache on the given
// filesystem.
func newStorage(billyFS billy.Filesystem, cacheSize int) *filesystem.Storage {
	if cacheSize <= 0 {
		cacheSize = DefaultStorerCacheSize
	}

	objCache := cache.NewObjectLRU(cache.FileSize(cacheSize))
	return filesystem.NewStorage(billyFS, objCache)
}
