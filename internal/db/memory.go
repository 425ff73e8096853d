package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"account_system/internal/domain"
)

const lastAccountLockKey = "accounts:last"

// MemoryStore keeps users, accounts and transactions in process memory. It
// implements every repository plus domain.TransactionManager, emulating row
// locks with per-key semaphores that are held until the transaction ends.
// Writes made inside a failed transaction are undone. Reads without a lock
// may observe uncommitted writes.
type MemoryStore struct {
	mu           sync.Mutex
	users        map[int64]domain.AccountUser
	accounts     map[int64]domain.Account
	transactions map[int64]domain.Transaction
	rowLocks     map[string]chan struct{}

	lastUserID        int64
	lastAccountID     int64
	lastTransactionID int64
}

// memTxKey is the key type for storing the in-memory transaction in context.
type memTxKey struct{}

type memTx struct {
	held  map[string]bool
	order []string
	undo  []func()
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[int64]domain.AccountUser),
		accounts:     make(map[int64]domain.Account),
		transactions: make(map[int64]domain.Transaction),
		rowLocks:     make(map[string]chan struct{}),
	}
}

// WithTransaction runs fn as one unit of work. Nested calls join the outer one.
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		return fn(ctx)
	}
	tx := &memTx{held: make(map[string]bool)}
	defer s.release(tx)

	if err := fn(context.WithValue(ctx, memTxKey{}, tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// lock acquires the row lock for key when ctx carries a transaction.
func (s *MemoryStore) lock(ctx context.Context, key string) error {
	tx, ok := ctx.Value(memTxKey{}).(*memTx)
	if !ok || tx.held[key] {
		return nil
	}
	s.mu.Lock()
	sem, ok := s.rowLocks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		s.rowLocks[key] = sem
	}
	s.mu.Unlock()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	tx.held[key] = true
	tx.order = append(tx.order, key)
	return nil
}

func (s *MemoryStore) release(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(tx.order) - 1; i >= 0; i-- {
		<-s.rowLocks[tx.order[i]]
	}
}

// onRollback registers an undo step. Callers hold s.mu.
func (s *MemoryStore) onRollback(ctx context.Context, undo func()) {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok {
		tx.undo = append(tx.undo, undo)
	}
}

// FindUserByID retrieves a user by id.
func (s *MemoryStore) FindUserByID(_ context.Context, id int64) (*domain.AccountUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// LockUserByID retrieves a user and holds its row lock.
func (s *MemoryStore) LockUserByID(ctx context.Context, id int64) (*domain.AccountUser, error) {
	if err := s.lock(ctx, fmt.Sprintf("users:%d", id)); err != nil {
		return nil, err
	}
	return s.FindUserByID(ctx, id)
}

// FindUserByName retrieves a user by login name.
func (s *MemoryStore) FindUserByName(_ context.Context, name string) (*domain.AccountUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Name == name {
			return &u, nil
		}
	}
	return nil, nil
}

// CreateUser inserts a user, assigning its id.
func (s *MemoryStore) CreateUser(ctx context.Context, user *domain.AccountUser) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Name == user.Name {
			return fmt.Errorf("%w: user name %q taken", domain.ErrWriteConflict, user.Name)
		}
	}
	if user.ID == 0 {
		s.lastUserID++
		user.ID = s.lastUserID
	} else if user.ID > s.lastUserID {
		s.lastUserID = user.ID
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	user.CreatedAt = time.Now()
	s.users[user.ID] = *user

	id := user.ID
	s.onRollback(ctx, func() { delete(s.users, id) })
	return nil
}

// FindAccountByNumber retrieves an account by number.
func (s *MemoryStore) FindAccountByNumber(_ context.Context, number string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.AccountNumber == number {
			return &a, nil
		}
	}
	return nil, nil
}

// FindAccountByID retrieves an account by id.
func (s *MemoryStore) FindAccountByID(_ context.Context, id int64) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// FindLastAccount retrieves the account with the highest number. Inside a
// transaction it holds a store-wide lock so only one creator runs at a time.
func (s *MemoryStore) FindLastAccount(ctx context.Context) (*domain.Account, error) {
	if err := s.lock(ctx, lastAccountLockKey); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *domain.Account
	for _, a := range s.accounts {
		if last == nil || a.AccountNumber > last.AccountNumber {
			last = &a
		}
	}
	return last, nil
}

// LockAccountByNumber retrieves an account and holds its row lock.
func (s *MemoryStore) LockAccountByNumber(ctx context.Context, number string) (*domain.Account, error) {
	if err := s.lock(ctx, "accounts:"+number); err != nil {
		return nil, err
	}
	return s.FindAccountByNumber(ctx, number)
}

// CountActiveAccountsForUser counts the user's accounts that are not UNREGISTERED.
func (s *MemoryStore) CountActiveAccountsForUser(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.accounts {
		if a.AccountUserID == userID && !a.IsUnregistered() {
			n++
		}
	}
	return n, nil
}

// FindAccountsByUser lists the user's accounts, oldest first.
func (s *MemoryStore) FindAccountsByUser(_ context.Context, userID int64) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Account
	for _, a := range s.accounts {
		if a.AccountUserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SaveAccount inserts or updates an account.
func (s *MemoryStore) SaveAccount(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, other := range s.accounts {
		if id != account.ID && other.AccountNumber == account.AccountNumber {
			return nil, fmt.Errorf("%w: account number %s taken", domain.ErrWriteConflict, account.AccountNumber)
		}
	}

	now := time.Now()
	if account.ID == 0 {
		s.lastAccountID++
		account.ID = s.lastAccountID
		account.CreatedAt = now
		id := account.ID
		s.onRollback(ctx, func() { delete(s.accounts, id) })
	} else if prev, ok := s.accounts[account.ID]; ok {
		s.onRollback(ctx, func() { s.accounts[prev.ID] = prev })
	} else {
		id := account.ID
		if id > s.lastAccountID {
			s.lastAccountID = id
		}
		s.onRollback(ctx, func() { delete(s.accounts, id) })
	}
	account.UpdatedAt = now
	s.accounts[account.ID] = *account
	return account, nil
}

// FindTransactionByTransactionID retrieves a transaction by its external id.
func (s *MemoryStore) FindTransactionByTransactionID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.TransactionID == transactionID {
			return &t, nil
		}
	}
	return nil, nil
}

// FindSuccessfulCancel retrieves the applied CANCEL of a USE transaction.
func (s *MemoryStore) FindSuccessfulCancel(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transactions {
		if t.TransactionType == domain.TransactionTypeCancel &&
			t.TransactionResultType == domain.TransactionResultSuccess &&
			t.CanceledTransactionID != nil && *t.CanceledTransactionID == transactionID {
			return &t, nil
		}
	}
	return nil, nil
}

// SaveTransaction inserts a transaction record.
func (s *MemoryStore) SaveTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.transactions {
		if other.TransactionID == t.TransactionID {
			return nil, fmt.Errorf("%w: transaction id %s taken", domain.ErrWriteConflict, t.TransactionID)
		}
	}
	s.lastTransactionID++
	t.ID = s.lastTransactionID
	t.CreatedAt = time.Now()
	s.transactions[t.ID] = *t

	id := t.ID
	s.onRollback(ctx, func() { delete(s.transactions, id) })
	return t, nil
}

// FindTransactionsByAccount lists every record made against the account, in insertion order.
func (s *MemoryStore) FindTransactionsByAccount(_ context.Context, accountID int64) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, t := range s.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
