// Package deploy publishes the generated output directory.
//
// When a deploy remote is configured, the output tree is committed into a
// git repository rooted at the output directory and pushed to the remote
// branch. The deploy hook fires in either case, so installations that
// publish through a plugin (rsync, object storage and so on) configure no
// remote and rely on the hook alone.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	git "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/sitegen/internal/config"
	"git.home.luguber.info/inful/sitegen/internal/hooks"
)

const (
	defaultBranch = "gh-pages"
	remoteName    = "deploy"
	authorName    = "sitegen"
	authorEmail   = "sitegen@localhost"
)

// Deployer publishes one output directory.
type Deployer struct {
	cfg *config.Config
	now func() time.Time
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithClock overrides the commit timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Deployer) { d.now = now }
}

// NewDeployer creates a deployer for the given configuration.
func NewDeployer(cfg *config.Config, opts ...Option) *Deployer {
	d := &Deployer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run fires the deploy hook and, when a remote is configured, commits and
// pushes the output directory. The hook always fires, even when the git
// push is skipped or fails.
func (d *Deployer) Run(ctx context.Context, buildID string, registry *hooks.Registry) error {
	hookCtx := hooks.NewContext(buildID, d.cfg).With("output_dir", d.cfg.OutputDir)
	registry.Run(hooks.Deploy, hookCtx)

	if d.cfg.DeployRemote == "" {
		slog.Info("No deploy remote configured, deploy hook only")
		return nil
	}
	return d.push(ctx)
}

func (d *Deployer) push(ctx context.Context) error {
	if _, err := os.Stat(d.cfg.OutputDir); err != nil {
		return fmt.Errorf("output directory not found, run a build first: %w", err)
	}

	branch := d.cfg.DeployBranch
	if branch == "" {
		branch = defaultBranch
	}
	branchRef := plumbing.NewBranchReferenceName(branch)

	repo, err := d.openOrInit(branchRef)
	if err != nil {
		return err
	}

	if err := d.ensureRemote(repo); err != nil {
		return err
	}

	hash, committed, err := d.commitTree(repo)
	if err != nil {
		return err
	}
	if committed {
		slog.Info("Committed output directory", "commit", hash.String(), "branch", branch)
	} else {
		slog.Info("Output directory unchanged since last deploy")
	}

	pushOptions := &git.PushOptions{
		RemoteName: remoteName,
		// Force push: each deploy starts a fresh history because the build
		// recreates the output directory from scratch.
		RefSpecs: []gitcfg.RefSpec{
			gitcfg.RefSpec(fmt.Sprintf("+%s:%s", branchRef, branchRef)),
		},
	}
	if err := repo.PushContext(ctx, pushOptions); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			slog.Info("Deploy remote already up to date", "remote", d.cfg.DeployRemote)
			return nil
		}
		return fmt.Errorf("push to %s: %w", d.cfg.DeployRemote, err)
	}

	slog.Info("Deployed site", "remote", d.cfg.DeployRemote, "branch", branch)
	return nil
}

// openOrInit opens the repository embedded in the output directory, or
// initializes one on the deploy branch when this is the first deploy.
func (d *Deployer) openOrInit(branchRef plumbing.ReferenceName) (*git.Repository, error) {
	repo, err := git.PlainOpen(d.cfg.OutputDir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open deploy repository: %w", err)
	}

	repo, err = git.PlainInitWithOptions(d.cfg.OutputDir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: branchRef},
	})
	if err != nil {
		return nil, fmt.Errorf("initialize deploy repository: %w", err)
	}
	return repo, nil
}

func (d *Deployer) ensureRemote(repo *git.Repository) error {
	_, err := repo.Remote(remoteName)
	if err == nil {
		// Recreate so a changed configuration URL takes effect.
		if delErr := repo.DeleteRemote(remoteName); delErr != nil {
			return fmt.Errorf("replace deploy remote: %w", delErr)
		}
	} else if !errors.Is(err, git.ErrRemoteNotFound) {
		return fmt.Errorf("inspect deploy remote: %w", err)
	}

	_, err = repo.CreateRemote(&gitcfg.RemoteConfig{
		Name: remoteName,
		URLs: []string{d.cfg.DeployRemote},
	})
	if err != nil {
		return fmt.Errorf("configure deploy remote: %w", err)
	}
	return nil
}

// commitTree stages the whole output tree and commits it. When nothing
// changed since the previous deploy no commit is created.
func (d *Deployer) commitTree(repo *git.Repository) (plumbing.Hash, bool, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("open worktree: %w", err)
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("stage output tree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		head, headErr := repo.Head()
		if headErr != nil {
			return plumbing.ZeroHash, false, fmt.Errorf("resolve head: %w", headErr)
		}
		return head.Hash(), false, nil
	}

	when := d.now()
	hash, err := wt.Commit(fmt.Sprintf("Deploy site %s", when.UTC().Format(time.RFC3339)), &git.CommitOptions{
		Author: &object.Signature{Name: authorName, Email: authorEmail, When: when},
	})
	if err != nil {
		return plumbing.ZeroHash, false, fmt.Errorf("commit output tree: %w", err)
	}
	return hash, true, nil
}
