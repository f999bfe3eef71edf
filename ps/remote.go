package ps

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/config"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	"github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
)

// AuthType defines the type of authentication
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeSSH   AuthType = "ssh"
	AuthTypeBasic AuthType = "basic"
)

// RemoteAuth holds authentication configuration for remote operations
type RemoteAuth struct {
	Type       AuthType
	Token      string // For token auth
	KeyPath    string // For SSH key auth
	Passphrase string // For SSH key with passphrase
	Username   string // For basic auth
	Password   string // For basic auth
}

// DefaultRemote is used when a command names no remote.
const DefaultRemote = "origin"

var ErrNotFastForward = errors.New("remote history has diverged")

// Remote represents a Git remote
type Remote struct {
	Name string
	URLs []string
}

// getAuthMethod converts RemoteAuth to go-git's AuthMethod
func (auth *RemoteAuth) getAuthMethod() (transport.AuthMethod, error) {
	if auth == nil {
		return nil, nil
	}

	switch auth.Type {
	case AuthTypeNone:
		return nil, nil

	case AuthTypeToken:
		return &http.BasicAuth{
			Username: "git",
			Password: auth.Token,
		}, nil

	case AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			home, _ := os.UserHomeDir()
			keyPath = filepath.Join(home, ".ssh", "id_rsa")
		}

		return ssh.NewPublicKeysFromFile("git", keyPath, auth.Passphrase)

	case AuthTypeBasic:
		return &http.BasicAuth{
			Username: auth.Username,
			Password: auth.Password,
		}, nil

	default:
		return nil, fmt.Errorf("unknown auth type: %s", auth.Type)
	}
}

// AddRemote adds a named remote, replacing the URL if the name exists.
func (p *Persistence) AddRemote(name, url string) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	if name == "" {
		name = DefaultRemote
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.repo.Remote(name); err == nil {
		if err := p.repo.DeleteRemote(name); err != nil {
			return fmt.Errorf("failed to replace remote '%s': %w", name, err)
		}
	}

	_, err := p.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("failed to add remote '%s': %w", name, err)
	}
	return nil
}

// Remotes returns all configured remotes
func (p *Persistence) Remotes() ([]Remote, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	remotes, err := p.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("failed to list remotes: %w", err)
	}

	result := make([]Remote, len(remotes))
	for i, r := range remotes {
		cfg := r.Config()
		result[i] = Remote{
			Name: cfg.Name,
			URLs: cfg.URLs,
		}
	}
	return result, nil
}

// currentBranch returns the branch HEAD points at, master before the first commit.
func (p *Persistence) currentBranch() plumbing.ReferenceName {
	ref, err := p.repo.Storer.Reference(plumbing.HEAD)
	if err == nil && ref.Type() == plumbing.SymbolicReference {
		return ref.Target()
	}
	return plumbing.Master
}

// Push sends the current branch to a remote
func (p *Persistence) Push(remoteName string, auth *RemoteAuth) error {
	if err := p.ensureInitialized(); err != nil {
		return err
	}
	if remoteName == "" {
		remoteName = DefaultRemote
	}

	authMethod, err := auth.getAuthMethod()
	if err != nil {
		return fmt.Errorf("failed to configure auth: %w", err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	branch := p.currentBranch()
	refSpec := config.RefSpec(fmt.Sprintf("%s:%s", branch, branch))

	err = p.repo.Push(&git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       authMethod,
	})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to push to '%s': %w", remoteName, err)
	}
	return nil
}

// Pull fetches the current branch from a remote and fast-forwards to it.
// Diverged histories are refused with ErrNotFastForward.
func (p *Persistence) Pull(remoteName string, auth *RemoteAuth) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}
	if remoteName == "" {
		remoteName = DefaultRemote
	}

	authMethod, err := auth.getAuthMethod()
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to configure auth: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	branch := p.currentBranch()
	tracking := plumbing.NewRemoteReferenceName(remoteName, branch.Short())
	refSpec := config.RefSpec(fmt.Sprintf("+%s:%s", branch, tracking))

	err = p.repo.Fetch(&git.FetchOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       authMethod,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return Transaction{}, fmt.Errorf("failed to pull from '%s': %w", remoteName, err)
	}

	remoteRef, err := p.repo.Reference(tracking, true)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to pull from '%s': %w", remoteName, err)
	}
	remoteCommit, err := p.repo.CommitObject(remoteRef.Hash())
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to read remote head: %w", err)
	}

	local, err := p.headCommit()
	if err != nil {
		return Transaction{}, err
	}
	if local != nil {
		if local.Hash == remoteCommit.Hash {
			return transactionFromCommit(local), nil
		}
		isAncestor, err := local.IsAncestor(remoteCommit)
		if err != nil {
			return Transaction{}, fmt.Errorf("failed to compare histories: %w", err)
		}
		if !isAncestor {
			return Transaction{}, fmt.Errorf("%w: pull from '%s'", ErrNotFastForward, remoteName)
		}
	}

	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(branch, remoteCommit.Hash)); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}
	if err := p.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return transactionFromCommit(remoteCommit), nil
}
