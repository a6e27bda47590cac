package accounts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

var (
	// ErrUnknownType indicates an unrecognized account type.
	ErrUnknownType = errors.New("accounts: unknown account type")
	// ErrParentMissing indicates ParentCode does not resolve.
	ErrParentMissing = errors.New("accounts: parent account does not exist")
	// ErrCycle indicates the parent chain loops back onto the account.
	ErrCycle = errors.New("accounts: circular account hierarchy")
	// ErrSystemAccount protects seeded structural accounts.
	ErrSystemAccount = errors.New("accounts: system account cannot be deleted")
	// ErrNonZeroBalance rejects deleting an account holding a balance.
	ErrNonZeroBalance = errors.New("accounts: account with non-zero balance cannot be deleted")
	// ErrHasChildren rejects deleting an account other accounts point at.
	ErrHasChildren = errors.New("accounts: account with child accounts cannot be deleted")
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("accounts: account not found")
)

const balanceEpsilon = 1e-9

// Service owns chart of accounts rules for a tenant.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs the accounts service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns the tenant's accounts sorted by code, installing the default
// chart the first time a tenant is seen.
func (s *Service) List(ctx context.Context, companyID string) ([]Account, error) {
	existing, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		seeded := defaultAccounts(companyID, s.now())
		if err := s.repo.SeedCompany(ctx, seeded); err != nil {
			return nil, err
		}
		existing = seeded
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i].Code < existing[j].Code })
	return existing, nil
}

// Get returns a single account by code.
func (s *Service) Get(ctx context.Context, companyID, code string) (Account, error) {
	account, err := s.repo.Get(ctx, companyID, code)
	if err != nil {
		return Account{}, ErrNotFound
	}
	return account, nil
}

// Save upserts an account keyed by code after referential checks.
func (s *Service) Save(ctx context.Context, account Account) (Account, error) {
	if account.Code == "" {
		return Account{}, errors.New("accounts: code required")
	}
	if account.Name == "" {
		return Account{}, errors.New("accounts: name required")
	}
	if !account.Type.Valid() {
		return Account{}, fmt.Errorf("%w: %q", ErrUnknownType, account.Type)
	}
	existing, err := s.List(ctx, account.CompanyID)
	if err != nil {
		return Account{}, err
	}
	byCode := make(map[string]Account, len(existing))
	for _, a := range existing {
		byCode[a.Code] = a
	}
	if account.ParentCode != "" {
		if _, ok := byCode[account.ParentCode]; !ok {
			return Account{}, fmt.Errorf("%w: %q", ErrParentMissing, account.ParentCode)
		}
		if err := checkNoCycle(byCode, account); err != nil {
			return Account{}, err
		}
	}
	now := s.now()
	if prev, ok := byCode[account.Code]; ok {
		account.CreatedAt = prev.CreatedAt
		account.IsSystem = prev.IsSystem
	} else {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	if err := s.repo.Upsert(ctx, account); err != nil {
		return Account{}, err
	}
	return account, nil
}

// Delete removes an account unless it is protected, holds a balance, or has
// children. The store is left unchanged on rejection.
func (s *Service) Delete(ctx context.Context, companyID, code string) error {
	account, err := s.repo.Get(ctx, companyID, code)
	if err != nil {
		return ErrNotFound
	}
	if account.IsSystem {
		return ErrSystemAccount
	}
	if math.Abs(account.Balance) > balanceEpsilon {
		return ErrNonZeroBalance
	}
	siblings, err := s.repo.ListByCompany(ctx, companyID)
	if err != nil {
		return err
	}
	for _, other := range siblings {
		if other.ParentCode == code {
			return ErrHasChildren
		}
	}
	return s.repo.Delete(ctx, companyID, code)
}

// Tree rebuilds the hierarchy depth-first from the root accounts, siblings
// ordered lexicographically by code at every level.
func (s *Service) Tree(ctx context.Context, companyID string) ([]TreeNode, error) {
	accounts, err := s.List(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return BuildTree(accounts), nil
}

// BuildTree assembles the account hierarchy from a flat slice.
func BuildTree(accounts []Account) []TreeNode {
	children := make(map[string][]Account)
	var roots []Account
	for _, a := range accounts {
		if a.ParentCode == "" {
			roots = append(roots, a)
			continue
		}
		children[a.ParentCode] = append(children[a.ParentCode], a)
	}
	var build func(list []Account, level int) []TreeNode
	build = func(list []Account, level int) []TreeNode {
		sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })
		nodes := make([]TreeNode, 0, len(list))
		for _, a := range list {
			nodes = append(nodes, TreeNode{
				Account:  a,
				Level:    level,
				Children: build(children[a.Code], level+1),
			})
		}
		return nodes
	}
	return build(roots, 0)
}

func checkNoCycle(byCode map[string]Account, candidate Account) error {
	seen := map[string]struct{}{candidate.Code: {}}
	parent := candidate.ParentCode
	for parent != "" {
		if _, looped := seen[parent]; looped {
			return fmt.Errorf("%w: via %q", ErrCycle, parent)
		}
		seen[parent] = struct{}{}
		next, ok := byCode[parent]
		if !ok {
			return nil
		}
		parent = next.ParentCode
	}
	return nil
}
