package checkout

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billyfs "github.com/sluiceworks/sluice/fs/billy"
)

// fixture is a local source repository for clone tests. main holds the
// initial commit (tagged v1.0.0), develop adds one more on top.
type fixture struct {
	path       string
	mainSHA    string
	developSHA string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()

	repo, err := git.PlainInitWithOptions(dir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
	})
	require.NoError(t, err, "failed to init fixture repository")

	worktree, err := repo.Worktree()
	require.NoError(t, err, "failed to get fixture worktree")

	commit := func(name, content, message string) plumbing.Hash {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
		_, addErr := worktree.Add(name)
		require.NoError(t, addErr, "failed to add %s", name)

		hash, commitErr := worktree.Commit(message, &git.CommitOptions{
			Author: &object.Signature{
				Name:  "Dev",
				Email: "dev@example.com",
				When:  time.Now(),
			},
		})
		require.NoError(t, commitErr, "failed to commit %s", name)
		return hash
	}

	mainSHA := commit("README.md", "readme", "docs: initial readme")

	_, err = repo.CreateTag("v1.0.0", mainSHA, nil)
	require.NoError(t, err, "failed to tag fixture")

	err = worktree.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName("develop"),
		Create: true,
	})
	require.NoError(t, err, "failed to create develop branch")

	developSHA := commit("feature.txt", "wip", "feat(api): add feature surface")

	// Leave the source on main so clones see it as the default branch.
	require.NoError(t, worktree.Checkout(&git.CheckoutOptions{Branch: plumbing.Main}))

	return &fixture{
		path:       dir,
		mainSHA:    mainSHA.String(),
		developSHA: developSHA.String(),
	}
}

func workspaceOptions() (*Options, *billyfs.FS) {
	memFS := billyfs.NewInMemoryFS()
	return &Options{FS: memFS, Workdir: "workspace"}, memFS
}

func TestMaterializeDefaultBranch(t *testing.T) {
	fx := newFixture(t)
	opts, memFS := workspaceOptions()

	co, err := Materialize(context.Background(), Source{URL: fx.path}, opts)
	require.NoError(t, err)

	assert.Equal(t, fx.mainSHA, co.Head.SHA)
	assert.Equal(t, "Dev", co.Head.Author)

	exists, err := memFS.Exists("workspace/README.md")
	require.NoError(t, err)
	assert.True(t, exists, "worktree should contain README.md")

	require.NotNil(t, co.Head.Label, "docs commit should parse as conventional")
	assert.Equal(t, "docs", co.Head.Label.Type)
}

func TestMaterializeBranchRef(t *testing.T) {
	fx := newFixture(t)
	opts, memFS := workspaceOptions()

	co, err := Materialize(context.Background(), Source{
		URL: fx.path,
		Ref: "refs/heads/develop",
	}, opts)
	require.NoError(t, err)

	assert.Equal(t, fx.developSHA, co.Head.SHA)

	exists, err := memFS.Exists("workspace/feature.txt")
	require.NoError(t, err)
	assert.True(t, exists, "develop worktree should contain feature.txt")

	require.NotNil(t, co.Head.Label)
	assert.Equal(t, "feat", co.Head.Label.Type)
	assert.Equal(t, "api", co.Head.Label.Scope)
}

func TestMaterializeBareBranchName(t *testing.T) {
	fx := newFixture(t)
	opts, _ := workspaceOptions()

	co, err := Materialize(context.Background(), Source{URL: fx.path, Ref: "develop"}, opts)
	require.NoError(t, err)
	assert.Equal(t, fx.developSHA, co.Head.SHA)
}

func TestMaterializeTag(t *testing.T) {
	fx := newFixture(t)
	opts, _ := workspaceOptions()

	co, err := Materialize(context.Background(), Source{
		URL: fx.path,
		Ref: "refs/tags/v1.0.0",
	}, opts)
	require.NoError(t, err)
	assert.Equal(t, fx.mainSHA, co.Head.SHA)
}

func TestMaterializeCommitSHA(t *testing.T) {
	fx := newFixture(t)
	opts, _ := workspaceOptions()

	co, err := Materialize(context.Background(), Source{URL: fx.path, Ref: fx.developSHA}, opts)
	require.NoError(t, err)
	assert.Equal(t, fx.developSHA, co.Head.SHA)
}

func TestMaterializeMissingRef(t *testing.T) {
	fx := newFixture(t)
	opts, _ := workspaceOptions()

	_, err := Materialize(context.Background(), Source{
		URL: fx.path,
		Ref: "refs/heads/nope",
	}, opts)
	require.ErrorIs(t, err, ErrRefMissing)
}

func TestMaterializeMissingTag(t *testing.T) {
	fx := newFixture(t)
	opts, _ := workspaceOptions()

	_, err := Materialize(context.Background(), Source{
		URL: fx.path,
		Ref: "refs/tags/v9.9.9",
	}, opts)
	require.ErrorIs(t, err, ErrRefMissing)
}

func TestMaterializeMissingSource(t *testing.T) {
	opts, _ := workspaceOptions()

	_, err := Materialize(context.Background(), Source{
		URL: filepath.Join(t.TempDir(), "does-not-exist"),
	}, opts)
	require.ErrorIs(t, err, ErrCloneFailed)
}

func TestMaterializeEmptyURL(t *testing.T) {
	opts, _ := workspaceOptions()

	_, err := Materialize(context.Background(), Source{}, opts)
	require.ErrorIs(t, err, ErrInvalidSource)
}

func TestMaterializeRequiresFS(t *testing.T) {
	_, err := Materialize(context.Background(), Source{URL: "/somewhere"}, &Options{})
	require.ErrorIs(t, err, ErrInvalidSource)
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    *Label
	}{
		{
			name:    "type and scope",
			message: "fix(parser): handle empty input",
			want:    &Label{Type: "fix", Scope: "parser", Description: "handle empty input"},
		},
		{
			name:    "type only",
			message: "ci: bump runner image",
			want:    &Label{Type: "ci", Description: "bump runner image"},
		},
		{
			name:    "breaking change",
			message: "feat(api)!: drop v1 endpoints",
			want:    &Label{Type: "feat", Scope: "api", Description: "drop v1 endpoints", Breaking: true},
		},
		{
			name:    "body does not affect the label",
			message: "fix: tighten retries\n\nlonger explanation here",
			want:    &Label{Type: "fix", Description: "tighten retries"},
		},
		{
			name:    "not conventional",
			message: "Merge branch 'develop'",
			want:    nil,
		},
		{
			name:    "empty",
			message: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLabel(tt.message))
		})
	}
}
