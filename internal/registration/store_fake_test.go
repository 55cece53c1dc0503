package registration_test

import (
	"context"
	"sync"

	"college-erp/internal/account"
	"college-erp/internal/profile"
	"college-erp/internal/registration"
)

// fakeStore keeps committed rows in memory and stages transactional writes
// until the callback returns nil.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*account.Account
	profiles map[string]profile.Profile

	// hideEmails makes EmailExists miss, as when a concurrent signup commits after the pre-check.
	hideEmails     bool
	emailExistsErr error
	profileErr     error
	accountErr     error

	emailChecks  int
	transactions int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts: map[string]*account.Account{},
		profiles: map[string]profile.Profile{},
	}
}

func profileKey(role account.Role, key string) string {
	return string(role) + ":" + key
}

func (s *fakeStore) seedProfile(p profile.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profileKey(p.Role(), p.Key())] = p
}

func (s *fakeStore) seedAccount(acct *account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[acct.Email] = acct
}

func (s *fakeStore) accountCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

func (s *fakeStore) profileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}

func (s *fakeStore) account(email string) *account.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[email]
}

func (s *fakeStore) profile(role account.Role, key string) profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[profileKey(role, key)]
}

func (s *fakeStore) EmailExists(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emailChecks++
	if s.emailExistsErr != nil {
		return false, s.emailExistsErr
	}
	if s.hideEmails {
		return false, nil
	}
	_, ok := s.accounts[email]
	return ok, nil
}

func (s *fakeStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx registration.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions++

	tx := &fakeTx{
		store:    s,
		accounts: map[string]*account.Account{},
		profiles: map[string]profile.Profile{},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for k, p := range tx.profiles {
		s.profiles[k] = p
	}
	for email, acct := range tx.accounts {
		s.accounts[email] = acct
	}
	return nil
}

type fakeTx struct {
	store    *fakeStore
	accounts map[string]*account.Account
	profiles map[string]profile.Profile
}

func (t *fakeTx) EnsureProfile(ctx context.Context, p profile.Profile) (bool, error) {
	if t.store.profileErr != nil {
		return false, t.store.profileErr
	}
	k := profileKey(p.Role(), p.Key())
	if _, ok := t.store.profiles[k]; ok {
		return false, nil
	}
	if _, ok := t.profiles[k]; ok {
		return false, nil
	}
	t.profiles[k] = p
	return true, nil
}

func (t *fakeTx) CreateAccount(ctx context.Context, acct *account.Account) error {
	if t.store.accountErr != nil {
		return t.store.accountErr
	}
	if _, ok := t.store.accounts[acct.Email]; ok {
		return account.ErrEmailTaken
	}
	t.accounts[acct.Email] = acct
	return nil
}
