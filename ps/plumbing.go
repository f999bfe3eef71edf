package ps

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-billy/v6/util"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/nickyhof/PrimitiveDB/core"
)

// createBlob stores data as a blob object without touching the worktree
func (p *Persistence) createBlob(data []byte) (plumbing.Hash, error) {
	obj := p.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	writer.Close()

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}
	return hash, nil
}

// headCommit returns the commit HEAD points to, or nil before the first commit.
func (p *Persistence) headCommit() (*object.Commit, error) {
	headRef, err := p.repo.Head()
	if err != nil {
		return nil, nil
	}

	commit, err := p.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get head commit: %w", err)
	}
	return commit, nil
}

// getCurrentTree returns the tree hash of HEAD, or ZeroHash for an empty repository.
func (p *Persistence) getCurrentTree() (plumbing.Hash, error) {
	commit, err := p.headCommit()
	if err != nil || commit == nil {
		return plumbing.ZeroHash, err
	}
	return commit.TreeHash, nil
}

func (p *Persistence) getTreeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)
	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}

	tree, err := object.GetTree(p.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}
	return entries, nil
}

func (p *Persistence) buildTreeFromEntries(entries map[string]object.TreeEntry) (plumbing.Hash, error) {
	if len(entries) == 0 {
		return plumbing.ZeroHash, nil
	}

	sorted := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		sorted = append(sorted, entry)
	}

	// Git orders directories as if their name had a trailing slash
	sortKey := func(entry object.TreeEntry) string {
		if entry.Mode == filemode.Dir {
			return entry.Name + "/"
		}
		return entry.Name
	}
	sort.Slice(sorted, func(i, j int) bool {
		return sortKey(sorted[i]) < sortKey(sorted[j])
	})

	obj := p.repo.Storer.NewEncodedObject()
	if err := (&object.Tree{Entries: sorted}).Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}

	hash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}
	return hash, nil
}

// TreeChange represents a single change to apply to a tree
type TreeChange struct {
	Path     string        // slash separated, e.g. "tables/users.json"
	BlobHash plumbing.Hash // ignored for deletes
	IsDelete bool
}

// batchUpdateTree applies all changes below rootTreeHash and returns the new
// root. Subtrees left empty are removed; an empty root yields ZeroHash.
func (p *Persistence) batchUpdateTree(rootTreeHash plumbing.Hash, changes []TreeChange) (plumbing.Hash, error) {
	entries, err := p.getTreeEntries(rootTreeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	nested := make(map[string][]TreeChange)

	for _, change := range changes {
		dir, rest, isNested := strings.Cut(change.Path, "/")
		if isNested {
			nested[dir] = append(nested[dir], TreeChange{Path: rest, BlobHash: change.BlobHash, IsDelete: change.IsDelete})
			continue
		}

		if change.IsDelete {
			delete(entries, change.Path)
		} else {
			entries[change.Path] = object.TreeEntry{Name: change.Path, Mode: filemode.Regular, Hash: change.BlobHash}
		}
	}

	for dir, subChanges := range nested {
		subTree := plumbing.ZeroHash
		if existing, ok := entries[dir]; ok && existing.Mode == filemode.Dir {
			subTree = existing.Hash
		}

		newSubTree, err := p.batchUpdateTree(subTree, subChanges)
		if err != nil {
			return plumbing.ZeroHash, err
		}

		if newSubTree == plumbing.ZeroHash {
			delete(entries, dir)
		} else {
			entries[dir] = object.TreeEntry{Name: dir, Mode: filemode.Dir, Hash: newSubTree}
		}
	}

	return p.buildTreeFromEntries(entries)
}

// createCommitDirect commits treeHash on top of HEAD and advances the
// current branch, without using the worktree.
func (p *Persistence) createCommitDirect(treeHash plumbing.Hash, identity core.Identity, message string) (Transaction, error) {
	if treeHash == plumbing.ZeroHash {
		obj := p.repo.Storer.NewEncodedObject()
		if err := (&object.Tree{}).Encode(obj); err != nil {
			return Transaction{}, fmt.Errorf("failed to encode empty tree: %w", err)
		}
		var err error
		if treeHash, err = p.repo.Storer.SetEncodedObject(obj); err != nil {
			return Transaction{}, fmt.Errorf("failed to store empty tree: %w", err)
		}
	}

	var parents []plumbing.Hash
	headRef, err := p.repo.Head()
	if err == nil {
		parents = []plumbing.Hash{headRef.Hash()}
	}

	sig := object.Signature{
		Name:  identity.Name,
		Email: identity.Email,
		When:  time.Now(),
	}

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parents,
	}

	obj := p.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode commit: %w", err)
	}

	commitHash, err := p.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	branch := plumbing.Master
	if headRef != nil && headRef.Name().IsBranch() {
		branch = headRef.Name()
	}

	if err := p.repo.Storer.SetReference(plumbing.NewHashReference(branch, commitHash)); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	return Transaction{
		Id:      commitHash.String(),
		When:    sig.When,
		Author:  identity.String(),
		Message: message,
	}, nil
}

// commitChanges applies changes to HEAD's tree in a single commit and
// brings the worktree up to date.
func (p *Persistence) commitChanges(changes []TreeChange, identity core.Identity, message string) (Transaction, error) {
	currentTree, err := p.getCurrentTree()
	if err != nil {
		return Transaction{}, err
	}

	newTree, err := p.batchUpdateTree(currentTree, changes)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to update tree: %w", err)
	}

	txn, err := p.createCommitDirect(newTree, identity, message)
	if err != nil {
		return Transaction{}, err
	}

	if err := p.syncWorktree(); err != nil {
		return Transaction{}, fmt.Errorf("failed to sync worktree: %w", err)
	}

	return txn, nil
}

// syncWorktree makes the files on disk match HEAD. In memory mode reads go
// straight to the Git tree, so there is nothing to do.
func (p *Persistence) syncWorktree() error {
	if p.isMemoryMode {
		return nil
	}

	wt, err := p.repo.Worktree()
	if err != nil {
		return err
	}

	commit, err := p.headCommit()
	if err != nil || commit == nil {
		return err
	}

	tree, err := commit.Tree()
	if err != nil {
		return err
	}

	// A hard reset to an empty tree fails with "base dir cannot be removed"
	if len(tree.Entries) == 0 {
		fs := wt.Filesystem
		entries, err := fs.ReadDir("/")
		if err != nil {
			return nil
		}
		for _, entry := range entries {
			if entry.Name() != gitDirName {
				if err := util.RemoveAll(fs, entry.Name()); err != nil {
					return err
				}
			}
		}
		return nil
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: commit.Hash,
	})
}

// WriteFileDirect writes a single file in its own commit
func (p *Persistence) WriteFileDirect(filePath string, data []byte, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	blobHash, err := p.createBlob(data)
	if err != nil {
		return Transaction{}, err
	}

	return p.commitChanges([]TreeChange{{Path: filePath, BlobHash: blobHash}}, identity, message)
}

// DeletePathDirect removes files in a single commit. Missing paths are ignored.
func (p *Persistence) DeletePathDirect(paths []string, identity core.Identity, message string) (Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return Transaction{}, err
	}

	changes := make([]TreeChange, len(paths))
	for i, filePath := range paths {
		changes[i] = TreeChange{Path: filePath, IsDelete: true}
	}

	return p.commitChanges(changes, identity, message)
}

// ReadFileDirect reads a file from HEAD's tree, bypassing the worktree.
func (p *Persistence) ReadFileDirect(filePath string) ([]byte, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	commit, err := p.headCommit()
	if err != nil {
		return nil, err
	}
	if commit == nil {
		return nil, fmt.Errorf("file not found: %s", filePath)
	}

	file, err := commit.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s: %w", filePath, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}

	return []byte(content), nil
}

// TreeEntry represents a directory entry from the Git tree
type TreeEntry struct {
	Name  string
	IsDir bool
}

// ListEntriesDirect lists a directory of HEAD's tree. A missing directory
// is reported as empty.
func (p *Persistence) ListEntriesDirect(dirPath string) ([]TreeEntry, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	commit, err := p.headCommit()
	if err != nil || commit == nil {
		return nil, err
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	if dirPath != "" && dirPath != "." {
		tree, err = tree.Tree(dirPath)
		if err != nil {
			return nil, nil
		}
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		entries = append(entries, TreeEntry{
			Name:  entry.Name,
			IsDir: entry.Mode == filemode.Dir,
		})
	}
	return entries, nil
}
