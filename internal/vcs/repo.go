// Package vcs performs the branch and pull steps of an upgrade against the
// application's git working copy.
package vcs

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrDetachedHead is returned when HEAD does not point at a branch.
var ErrDetachedHead = errors.New("HEAD is detached")

// Repo is a working copy with one tracked remote.
type Repo struct {
	repo   *git.Repository
	path   string
	remote string
}

// Open locates the repository containing dir.
func Open(dir, remote string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}
	if remote == "" {
		remote = git.DefaultRemoteName
	}
	return &Repo{repo: repo, path: dir, remote: remote}, nil
}

// Remote returns the remote name used for fetch and tracking branches.
func (r *Repo) Remote() string { return r.remote }

// CurrentBranch returns the short name of the checked out branch.
func (r *Repo) CurrentBranch(context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", ErrDetachedHead
	}
	return head.Name().Short(), nil
}

// LocalBranchExists reports whether refs/heads/<name> exists.
func (r *Repo) LocalBranchExists(_ context.Context, name string) (bool, error) {
	return r.hasReference(plumbing.NewBranchReferenceName(name))
}

// RemoteBranchExists reports whether refs/remotes/<remote>/<name> exists.
func (r *Repo) RemoteBranchExists(_ context.Context, name string) (bool, error) {
	return r.hasReference(plumbing.NewRemoteReferenceName(r.remote, name))
}

func (r *Repo) hasReference(name plumbing.ReferenceName) (bool, error) {
	_, err := r.repo.Reference(name, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolve %s: %w", name, err)
	}
	return true, nil
}

// Switch checks out an existing local branch.
func (r *Repo) Switch(_ context.Context, name string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)}); err != nil {
		return fmt.Errorf("checkout %s: %w", name, err)
	}
	return nil
}

// CreateTrackingBranch creates a local branch from <remote>/<name>, records
// the upstream in the repository config and checks it out.
func (r *Repo) CreateTrackingBranch(_ context.Context, name string) error {
	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName(r.remote, name), true)
	if err != nil {
		return fmt.Errorf("resolve %s/%s: %w", r.remote, name, err)
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	localRef := plumbing.NewBranchReferenceName(name)
	if err := wt.Checkout(&git.CheckoutOptions{Branch: localRef, Hash: remoteRef.Hash(), Create: true}); err != nil {
		return fmt.Errorf("checkout new branch %s: %w", name, err)
	}
	err = r.repo.CreateBranch(&gitconfig.Branch{Name: name, Remote: r.remote, Merge: localRef})
	if err != nil && !errors.Is(err, git.ErrBranchExists) {
		return fmt.Errorf("record upstream for %s: %w", name, err)
	}
	return nil
}

// Fetch updates every remote-tracking branch.
func (r *Repo) Fetch(ctx context.Context) error {
	opts := &git.FetchOptions{
		RemoteName: r.remote,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec("+refs/heads/*:refs/remotes/" + r.remote + "/*")},
	}
	if err := r.repo.FetchContext(ctx, opts); err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("fetch %s: %w", r.remote, err)
	}
	return nil
}

// Pull fast-forwards the current branch from its remote counterpart. It
// reports whether HEAD moved.
func (r *Repo) Pull(ctx context.Context) (bool, error) {
	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return false, err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    r.remote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	switch {
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("pull %s: %w", branch, err)
	}
	return true, nil
}

// Head returns the abbreviated commit hash of HEAD.
func (r *Repo) Head(context.Context) (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash().String()[:8], nil
}
