package ps

import (
	"errors"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
)

const gitDirName = ".git"

var (
	ErrNotInitialized = errors.New("persistence layer not initialized")
	ErrNoChanges      = errors.New("no changes to commit")
)

// Persistence stores PrimitiveDB documents in a Git repository. Every save
// is a commit, so a document is either fully replaced or left untouched.
type Persistence struct {
	repo         *git.Repository
	mu           sync.RWMutex
	isMemoryMode bool
}

// IsInitialized returns true if the persistence layer has a valid repository
func (p *Persistence) IsInitialized() bool {
	return p != nil && p.repo != nil
}

func (p *Persistence) ensureInitialized() error {
	if !p.IsInitialized() {
		return ErrNotInitialized
	}
	return nil
}

// NewMemoryPersistence creates a repository that lives only in memory.
func NewMemoryPersistence() (*Persistence, error) {
	repo, err := git.Init(memory.NewStorage(), git.WithWorkTree(memfs.New()))
	if err != nil {
		return nil, err
	}

	return &Persistence{
		repo:         repo,
		isMemoryMode: true,
	}, nil
}

// NewFilePersistence opens the repository in baseDir, creating it when
// missing. With a non-nil gitURL a missing repository is cloned instead.
func NewFilePersistence(baseDir string, gitURL *string) (*Persistence, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(baseDir)
	dotGit, err := wt.Chroot(gitDirName)
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		dotGit,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository

	if _, statErr := os.Stat(dotGit.Root()); statErr == nil {
		repo, err = git.Open(storer, wt)
	} else if gitURL != nil {
		repo, err = git.Clone(storer, wt, &git.CloneOptions{URL: *gitURL})
	} else {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	}
	if err != nil {
		return nil, err
	}

	return &Persistence{repo: repo}, nil
}
