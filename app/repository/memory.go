package repository

import (
	"context"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-account/app/entity"
	"github.com/vibast-solutions/ms-go-account/app/token"
)

// MemoryAccountRepository keeps accounts in process memory. Every call, and
// every WithinTx callback as a whole, runs under a single mutex, so
// transactions are serialized. Callers always receive copies.
type MemoryAccountRepository struct {
	mu       sync.Mutex
	accounts map[string]*entity.Account
}

func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]*entity.Account)}
}

func (r *MemoryAccountRepository) WithinTx(ctx context.Context, fn func(store AccountStore) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memoryTx{base: r.accounts, writes: make(map[string]*entity.Account)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, account := range tx.writes {
		if account == nil {
			delete(r.accounts, id)
			continue
		}
		r.accounts[id] = account
	}
	return nil
}

func (r *MemoryAccountRepository) Create(ctx context.Context, account *entity.Account) error {
	return r.WithinTx(ctx, func(store AccountStore) error { return store.Create(ctx, account) })
}

func (r *MemoryAccountRepository) FindByEmail(ctx context.Context, canonicalEmail string) (*entity.Account, error) {
	return r.read(func(v *memoryTx) (*entity.Account, error) { return v.FindByEmail(ctx, canonicalEmail) })
}

func (r *MemoryAccountRepository) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.read(func(v *memoryTx) (*entity.Account, error) { return v.FindByID(ctx, id) })
}

func (r *MemoryAccountRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Account, error) {
	return r.FindByID(ctx, id)
}

func (r *MemoryAccountRepository) FindByToken(ctx context.Context, p token.Purpose, value string) (*entity.Account, error) {
	return r.read(func(v *memoryTx) (*entity.Account, error) { return v.FindByToken(ctx, p, value) })
}

func (r *MemoryAccountRepository) FindByTokenForUpdate(ctx context.Context, p token.Purpose, value string) (*entity.Account, error) {
	return r.FindByToken(ctx, p, value)
}

func (r *MemoryAccountRepository) Save(ctx context.Context, account *entity.Account) error {
	return r.WithinTx(ctx, func(store AccountStore) error { return store.Save(ctx, account) })
}

func (r *MemoryAccountRepository) Delete(ctx context.Context, id string) error {
	return r.WithinTx(ctx, func(store AccountStore) error { return store.Delete(ctx, id) })
}

// Len reports how many accounts are stored.
func (r *MemoryAccountRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

func (r *MemoryAccountRepository) read(fn func(v *memoryTx) (*entity.Account, error)) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&memoryTx{base: r.accounts})
}

// memoryTx stages writes over the committed map. A nil entry in writes marks
// a deletion.
type memoryTx struct {
	base   map[string]*entity.Account
	writes map[string]*entity.Account
}

func (t *memoryTx) lookup(id string) (*entity.Account, bool) {
	if account, staged := t.writes[id]; staged {
		return account, account != nil
	}
	account, ok := t.base[id]
	return account, ok
}

func (t *memoryTx) find(match func(a *entity.Account) bool) *entity.Account {
	for _, account := range t.writes {
		if account != nil && match(account) {
			return account.Clone()
		}
	}
	for id, account := range t.base {
		if _, staged := t.writes[id]; staged {
			continue
		}
		if match(account) {
			return account.Clone()
		}
	}
	return nil
}

func (t *memoryTx) Create(_ context.Context, account *entity.Account) error {
	if _, exists := t.lookup(account.ID); exists {
		return ErrDuplicateEmail
	}
	if t.find(func(a *entity.Account) bool { return a.CanonicalEmail == account.CanonicalEmail }) != nil {
		return ErrDuplicateEmail
	}
	t.writes[account.ID] = account.Clone()
	return nil
}

func (t *memoryTx) FindByEmail(_ context.Context, canonicalEmail string) (*entity.Account, error) {
	return t.find(func(a *entity.Account) bool { return a.CanonicalEmail == canonicalEmail }), nil
}

func (t *memoryTx) FindByID(_ context.Context, id string) (*entity.Account, error) {
	account, ok := t.lookup(id)
	if !ok {
		return nil, nil
	}
	return account.Clone(), nil
}

func (t *memoryTx) FindByIDForUpdate(ctx context.Context, id string) (*entity.Account, error) {
	return t.FindByID(ctx, id)
}

func (t *memoryTx) FindByToken(_ context.Context, p token.Purpose, value string) (*entity.Account, error) {
	if _, err := tokenColumn(p); err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return t.find(func(a *entity.Account) bool { return a.Token(p) == value }), nil
}

func (t *memoryTx) FindByTokenForUpdate(ctx context.Context, p token.Purpose, value string) (*entity.Account, error) {
	return t.FindByToken(ctx, p, value)
}

func (t *memoryTx) Save(_ context.Context, account *entity.Account) error {
	if _, ok := t.lookup(account.ID); !ok {
		return nil
	}
	account.UpdatedAt = time.Now()
	t.writes[account.ID] = account.Clone()
	return nil
}

func (t *memoryTx) Delete(_ context.Context, id string) error {
	if _, ok := t.lookup(id); ok {
		t.writes[id] = nil
	}
	return nil
}
