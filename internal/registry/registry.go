// Package registry holds the fixed table of managed accounts.
package registry

import (
	"fmt"

	"terminal_bridge/internal/models"
)

// Registry is the immutable set of managed accounts in configuration order.
type Registry struct {
	accounts []models.ManagedAccount
	byID     map[int64]int
}

// New validates the account table and builds a registry.
func New(accounts []models.ManagedAccount) (*Registry, error) {
	if len(accounts) == 0 {
		return nil, fmt.Errorf("registry: no managed accounts")
	}

	r := &Registry{
		accounts: make([]models.ManagedAccount, 0, len(accounts)),
		byID:     make(map[int64]int, len(accounts)),
	}
	for i, acc := range accounts {
		if acc.ID <= 0 {
			return nil, fmt.Errorf("registry: account %d: id must be positive, got %d", i, acc.ID)
		}
		if acc.Name == "" {
			return nil, fmt.Errorf("registry: account %d: name is required", acc.ID)
		}
		if _, dup := r.byID[acc.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate account id %d", acc.ID)
		}
		r.byID[acc.ID] = len(r.accounts)
		r.accounts = append(r.accounts, acc)
	}
	return r, nil
}

// Lookup returns the managed account with the given id.
func (r *Registry) Lookup(id int64) (models.ManagedAccount, bool) {
	i, ok := r.byID[id]
	if !ok {
		return models.ManagedAccount{}, false
	}
	return r.accounts[i], true
}

// All returns a copy of the accounts in configuration order.
func (r *Registry) All() []models.ManagedAccount {
	out := make([]models.ManagedAccount, len(r.accounts))
	copy(out, r.accounts)
	return out
}

// IDs returns the account ids in configuration order.
func (r *Registry) IDs() []int64 {
	ids := make([]int64, len(r.accounts))
	for i, acc := range r.accounts {
		ids[i] = acc.ID
	}
	return ids
}

func (r *Registry) Len() int {
	return len(r.accounts)
}
