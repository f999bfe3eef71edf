package ps

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/storer"
	"github.com/nickyhof/PrimitiveDB/core"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrSnapshotExists      = errors.New("snapshot already exists")
)

// Snapshot tags HEAD with name so it can later be passed to Restore.
func (p *Persistence) Snapshot(name string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	commit, err := p.headCommit()
	if err != nil {
		return Transaction{}, err
	}
	if commit == nil {
		return Transaction{}, fmt.Errorf("%w: nothing committed yet", ErrTransactionNotFound)
	}

	if _, err := p.repo.CreateTag(name, commit.Hash, nil); err != nil {
		if errors.Is(err, git.ErrTagExists) {
			return Transaction{}, fmt.Errorf("%w: %s", ErrSnapshotExists, name)
		}
		return Transaction{}, fmt.Errorf("failed to create snapshot %s: %w", name, err)
	}

	return transactionFromCommit(commit), nil
}

// resolveCommit finds a commit by snapshot name, full hash or unique hash prefix.
func (p *Persistence) resolveCommit(target string) (*object.Commit, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrTransactionNotFound)
	}

	if ref, err := p.repo.Tag(target); err == nil {
		return p.repo.CommitObject(ref.Hash())
	}

	if _, err := p.repo.Head(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, target)
	}

	cIter, err := p.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer cIter.Close()

	var matches []*object.Commit
	err = cIter.ForEach(func(c *object.Commit) error {
		if strings.HasPrefix(c.Hash.String(), strings.ToLower(target)) {
			matches = append(matches, c)
			if len(matches) > 1 {
				return storer.ErrStop
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, target)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s is ambiguous", ErrTransactionNotFound, target)
	}
}

// Restore brings every document back to the state recorded by target (a
// transaction id, id prefix or snapshot name). The restore is itself a new
// commit, so history is never rewritten.
func (p *Persistence) Restore(target string, identity core.Identity) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	commit, err := p.resolveCommit(target)
	if err != nil {
		return Transaction{}, err
	}

	treeHash := commit.TreeHash
	if tree, err := commit.Tree(); err == nil && len(tree.Entries) == 0 {
		treeHash = plumbing.ZeroHash
	}

	shortID := commit.Hash.String()[:8]
	txn, err := p.createCommitDirect(treeHash, identity, "restore "+shortID)
	if err != nil {
		return Transaction{}, err
	}

	if err := p.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return txn, nil
}
