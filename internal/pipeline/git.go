package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
)

// GitOps handles git operations for the repository holding the catalog.
type GitOps struct {
	repo     *git.Repository
	worktree *git.Worktree
	root     string
	token    string
	branch   string
}

// OpenRepo opens the git repository containing path. path may be any
// directory inside the worktree.
func OpenRepo(path, token string) (*GitOps, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repo: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	return &GitOps{repo: repo, worktree: wt, root: wt.Filesystem.Root(), token: token}, nil
}

// CreateBranch creates a branch at HEAD and checks it out, keeping
// uncommitted changes.
func (g *GitOps) CreateBranch(name string) error {
	headRef, err := g.repo.Head()
	if err != nil {
		return fmt.Errorf("getting HEAD: %w", err)
	}

	branchRef := plumbing.NewBranchReferenceName(name)
	ref := plumbing.NewHashReference(branchRef, headRef.Hash())

	if err := g.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("creating branch ref: %w", err)
	}

	if err := g.worktree.Checkout(&git.CheckoutOptions{Branch: branchRef, Keep: true}); err != nil {
		return fmt.Errorf("checking out %s: %w", name, err)
	}
	g.branch = name
	return nil
}

// StageDir stages every change under dir, deletions included. Changes
// elsewhere in the worktree are left alone. It returns the staged paths.
func (g *GitOps) StageDir(dir string) ([]string, error) {
	prefix, err := g.relative(dir)
	if err != nil {
		return nil, err
	}

	status, err := g.worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	var staged []string
	for path, st := range status {
		if prefix != "" && !strings.HasPrefix(path, prefix+"/") {
			continue
		}
		switch st.Worktree {
		case git.Unmodified:
			continue
		case git.Deleted:
			if _, err := g.worktree.Remove(path); err != nil {
				return nil, fmt.Errorf("staging removal of %s: %w", path, err)
			}
		default:
			if _, err := g.worktree.Add(path); err != nil {
				return nil, fmt.Errorf("staging %s: %w", path, err)
			}
		}
		staged = append(staged, path)
	}
	return staged, nil
}

// relative returns dir as a slash-separated path inside the worktree.
func (g *GitOps) relative(dir string) (string, error) {
	root, err := filepath.EvalSymlinks(g.root)
	if err != nil {
		return "", fmt.Errorf("resolving worktree root: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	if abs, err = filepath.EvalSymlinks(abs); err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside the repository at %s", dir, root)
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// Commit creates a commit with the given message.
func (g *GitOps) Commit(message string) (plumbing.Hash, error) {
	return g.worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "modelsync",
			Email: "modelsync@everstack.dev",
			When:  time.Now(),
		},
	})
}

// Push pushes the branch created by CreateBranch to origin.
func (g *GitOps) Push() error {
	if g.branch == "" {
		return fmt.Errorf("no branch to push")
	}
	refSpec := fmt.Sprintf("refs/heads/%[1]s:refs/heads/%[1]s", g.branch)
	opts := &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(refSpec)},
	}
	if g.token != "" {
		opts.Auth = &githttp.BasicAuth{
			Username: "x-access-token",
			Password: g.token,
		}
	}
	return g.repo.Push(opts)
}
