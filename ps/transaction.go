package ps

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/plumbing/storer"
)

type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

// ShortId returns the abbreviated commit hash shown to users.
func (transaction Transaction) ShortId() string {
	if len(transaction.Id) > 8 {
		return transaction.Id[:8]
	}
	return transaction.Id
}

func transactionFromCommit(c *object.Commit) Transaction {
	author := ""
	if c.Author.Name != "" || c.Author.Email != "" {
		author = fmt.Sprintf("%s <%s>", c.Author.Name, c.Author.Email)
	}

	return Transaction{
		Id:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  author,
		Message: strings.TrimSpace(c.Message),
	}
}

// LatestTransaction returns HEAD, or the zero Transaction before the first commit.
func (p *Persistence) LatestTransaction() Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	commit, err := p.headCommit()
	if err != nil || commit == nil {
		return Transaction{}
	}
	return transactionFromCommit(commit)
}

// History returns up to limit transactions, newest first. A limit of zero
// or less returns the whole log.
func (p *Persistence) History(limit int) ([]Transaction, error) {
	if err := p.ensureInitialized(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if _, err := p.repo.Head(); err != nil {
		return nil, nil
	}

	cIter, err := p.repo.Log(&git.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer cIter.Close()

	var transactions []Transaction
	err = cIter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(transactions) >= limit {
			return storer.ErrStop
		}
		transactions = append(transactions, transactionFromCommit(c))
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	return transactions, nil
}
