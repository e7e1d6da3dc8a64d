package pipeline

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// initRepo creates a repository with one commit holding models/llm/{a,b}.yaml
// and README.md.
func initRepo(t *testing.T) (root string, repo *git.Repository) {
	t.Helper()
	root = t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	writeFile(t, filepath.Join(root, "models", "llm", "a.yaml"), "model: acme/a\n")
	writeFile(t, filepath.Join(root, "models", "llm", "b.yaml"), "model: acme/b\n")
	writeFile(t, filepath.Join(root, "README.md"), "# plugins\n")

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return root, repo
}

func TestGitOpsStagesCatalogOnly(t *testing.T) {
	root, repo := initRepo(t)
	catalogDir := filepath.Join(root, "models", "llm")

	writeFile(t, filepath.Join(catalogDir, "a.yaml"), "model: acme/a\ncontext: 1\n")
	require.NoError(t, os.Remove(filepath.Join(catalogDir, "b.yaml")))
	writeFile(t, filepath.Join(catalogDir, "c.yaml"), "model: acme/c\n")
	writeFile(t, filepath.Join(root, "README.md"), "# edited\n")

	g, err := OpenRepo(catalogDir, "")
	require.NoError(t, err)
	require.NoError(t, g.CreateBranch("modelsync/test"))

	staged, err := g.StageDir(catalogDir)
	require.NoError(t, err)
	sort.Strings(staged)
	assert.Equal(t, []string{"models/llm/a.yaml", "models/llm/b.yaml", "models/llm/c.yaml"}, staged)

	_, err = g.Commit(commitMessage)
	require.NoError(t, err)

	head, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, "refs/heads/modelsync/test", head.Name().String())

	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, commitMessage, commit.Message)

	tree, err := commit.Tree()
	require.NoError(t, err)
	_, err = tree.File("models/llm/b.yaml")
	assert.Error(t, err, "deleted file must be gone from the commit")
	_, err = tree.File("models/llm/c.yaml")
	assert.NoError(t, err)

	readme, err := tree.File("README.md")
	require.NoError(t, err)
	contents, err := readme.Contents()
	require.NoError(t, err)
	assert.Equal(t, "# plugins\n", contents, "changes outside the catalog stay unstaged")
}

func TestOpenRepoOutsideRepository(t *testing.T) {
	_, err := OpenRepo(t.TempDir(), "")
	assert.Error(t, err)
}

func TestStageDirOutsideWorktree(t *testing.T) {
	root, _ := initRepo(t)
	g, err := OpenRepo(root, "")
	require.NoError(t, err)

	_, err = g.StageDir(t.TempDir())
	assert.Error(t, err)
}

func TestPushWithoutBranch(t *testing.T) {
	root, _ := initRepo(t)
	g, err := OpenRepo(root, "")
	require.NoError(t, err)
	assert.Error(t, g.Push())
}
