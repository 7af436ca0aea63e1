package voucher

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store with the same conditional-write semantics as Postgres.
type MemoryStore struct {
	mu       sync.Mutex
	vouchers map[uuid.UUID]Voucher
	ledger   map[uuid.UUID][]Redemption
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vouchers: make(map[uuid.UUID]Voucher),
		ledger:   make(map[uuid.UUID][]Redemption),
	}
}

func (m *MemoryStore) Insert(_ context.Context, v Voucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.vouchers[v.ID]; ok {
		return invalidInput("voucher %s already exists", v.ID)
	}
	for _, existing := range m.vouchers {
		if existing.Code == v.Code {
			return ErrDuplicateCode
		}
		if existing.OrderNumber == v.OrderNumber {
			return ErrDuplicateOrderNumber
		}
	}
	if v.Version == 0 {
		v.Version = 1
	}
	m.vouchers[v.ID] = v
	return nil
}

func (m *MemoryStore) CodeTaken(_ context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vouchers {
		if v.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) OrderNumberTaken(_ context.Context, orderNumber string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vouchers {
		if v.OrderNumber == orderNumber {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[id]
	if !ok {
		return Voucher{}, ErrVoucherNotFound
	}
	return v, nil
}

func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]Voucher, int, error) {
	m.mu.Lock()
	matched := make([]Voucher, 0, len(m.vouchers))
	for _, v := range m.vouchers {
		if v.StudioID != f.StudioID || v.Deleted() != f.Trashed {
			continue
		}
		matched = append(matched, v)
	}
	m.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() > matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if f.Offset >= total {
		return []Voucher{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (m *MemoryStore) History(_ context.Context, id uuid.UUID) ([]Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Redemption, len(m.ledger[id]))
	copy(out, m.ledger[id])
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, mut Mutation) (Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.vouchers[mut.Voucher.ID]
	if !ok {
		return Voucher{}, ErrVoucherNotFound
	}
	if current.Version != mut.ExpectedVersion {
		return Voucher{}, ErrVersionConflict
	}
	next := mut.Voucher
	next.Version = current.Version + 1
	m.vouchers[next.ID] = next
	if mut.Redemption != nil {
		m.ledger[next.ID] = append(m.ledger[next.ID], *mut.Redemption)
	}
	return next, nil
}

func (m *MemoryStore) Purge(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[id]
	if !ok {
		return ErrVoucherNotFound
	}
	if !v.Deleted() {
		return ErrNotInTrash
	}
	delete(m.vouchers, id)
	delete(m.ledger, id)
	return nil
}
