package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"p2p-reconciler/internal/models"
)

// MemoryStore is an in-memory Store implementation with the same filtering
// and idempotency semantics as the gorm driver. It backs unit tests and
// local experiments that have no database at hand.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[int64]models.User
	transactions map[int64]*models.Transaction
	externals    map[int64]*models.ExternalTransaction
	matches      []models.Match

	matchedExternals    map[int64]bool
	matchedTransactions map[int64]bool

	nextTransactionID int64
	nextMatchID       int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:               make(map[int64]models.User),
		transactions:        make(map[int64]*models.Transaction),
		externals:           make(map[int64]*models.ExternalTransaction),
		matchedExternals:    make(map[int64]bool),
		matchedTransactions: make(map[int64]bool),
		nextTransactionID:   1,
		nextMatchID:         1,
	}
}

// SeedUser registers a user.
func (s *MemoryStore) SeedUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// SeedExternalTransaction registers a gateway transaction.
func (s *MemoryStore) SeedExternalTransaction(e *models.ExternalTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.externals[cp.ID] = &cp
}

// ExternalTransactions implements Store.
func (s *MemoryStore) ExternalTransactions(ctx context.Context, filter ExternalTransactionFilter) ([]*models.ExternalTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.ExternalTransaction
	for _, e := range s.externals {
		if filter.ApprovedWithin != nil {
			if !e.Approved() || !filter.ApprovedWithin.Contains(*e.ApprovedAt) {
				continue
			}
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Transactions implements Store.
func (s *MemoryStore) Transactions(ctx context.Context, filter TransactionFilter) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Transaction
	for _, tx := range s.transactions {
		if filter.Within != nil && !filter.Within.Contains(tx.DateTime) {
			continue
		}
		if filter.UserID != 0 && tx.UserID != filter.UserID {
			continue
		}
		cp := *tx
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// CreateTransactions implements Store.
func (s *MemoryStore) CreateTransactions(ctx context.Context, transactions []*models.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted int64
	for _, tx := range transactions {
		if s.hasTransactionLocked(tx.UserID, tx.OrderNo) {
			continue
		}

		cp := *tx
		if cp.ID == 0 {
			cp.ID = s.nextTransactionID
		}
		if cp.ID >= s.nextTransactionID {
			s.nextTransactionID = cp.ID + 1
		}
		s.transactions[cp.ID] = &cp
		inserted++
	}

	return inserted, nil
}

func (s *MemoryStore) hasTransactionLocked(userID int64, orderNo string) bool {
	for _, tx := range s.transactions {
		if tx.UserID == userID && tx.OrderNo == orderNo {
			return true
		}
	}
	return false
}

// InsertMatches implements Store.
func (s *MemoryStore) InsertMatches(ctx context.Context, matches []models.Match) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted int64
	for _, m := range matches {
		if s.matchedExternals[m.ExternalTransactionID] || s.matchedTransactions[m.TransactionID] {
			continue
		}

		m.ID = s.nextMatchID
		s.nextMatchID++
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		m.Transaction = nil
		m.ExternalTransaction = nil
		m.User = nil

		s.matches = append(s.matches, m)
		s.matchedExternals[m.ExternalTransactionID] = true
		s.matchedTransactions[m.TransactionID] = true
		inserted++
	}

	return inserted, nil
}

func (s *MemoryStore) matchInFilterLocked(m models.Match, filter MatchFilter) bool {
	tx := s.transactions[m.TransactionID]
	ext := s.externals[m.ExternalTransactionID]

	if filter.UserID != 0 || filter.InternalOnly {
		if tx == nil || !filter.Range.Contains(tx.DateTime) {
			return false
		}
		return filter.UserID == 0 || tx.UserID == filter.UserID
	}

	if tx != nil && filter.Range.Contains(tx.DateTime) {
		return true
	}
	return ext != nil && ext.Approved() && filter.Range.Contains(*ext.ApprovedAt)
}

// Matches implements Store.
func (s *MemoryStore) Matches(ctx context.Context, filter MatchFilter, page *Pagination) ([]models.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Match
	for _, m := range s.matches {
		if !s.matchInFilterLocked(m, filter) {
			continue
		}

		if tx, ok := s.transactions[m.TransactionID]; ok {
			cp := *tx
			m.Transaction = &cp
			if u, ok := s.users[tx.UserID]; ok {
				cu := u
				m.User = &cu
			}
		}
		if ext, ok := s.externals[m.ExternalTransactionID]; ok {
			cp := *ext
			m.ExternalTransaction = &cp
		}

		result = append(result, m)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if page != nil {
		p := page.Normalize()
		offset := p.Offset()
		if offset >= len(result) {
			return []models.Match{}, nil
		}
		end := offset + p.PageSize
		if end > len(result) {
			end = len(result)
		}
		result = result[offset:end]
	}

	if result == nil {
		result = []models.Match{}
	}
	return result, nil
}

// CountMatches implements Store.
func (s *MemoryStore) CountMatches(ctx context.Context, filter MatchFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, m := range s.matches {
		if s.matchInFilterLocked(m, filter) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) matchedUserIDsLocked(r TimeRange) []int64 {
	seen := make(map[int64]bool)
	for _, m := range s.matches {
		tx := s.transactions[m.TransactionID]
		if tx == nil || !r.Contains(tx.DateTime) {
			continue
		}
		seen[tx.UserID] = true
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// UsersWithMatches implements Store.
func (s *MemoryStore) UsersWithMatches(ctx context.Context, r TimeRange, page *Pagination) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.matchedUserIDsLocked(r)

	if page != nil {
		p := page.Normalize()
		offset := p.Offset()
		if offset >= len(ids) {
			return []models.User{}, nil
		}
		end := offset + p.PageSize
		if end > len(ids) {
			end = len(ids)
		}
		ids = ids[offset:end]
	}

	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		} else {
			users = append(users, models.User{ID: id})
		}
	}
	return users, nil
}

// CountUsersWithMatches implements Store.
func (s *MemoryStore) CountUsersWithMatches(ctx context.Context, r TimeRange) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matchedUserIDsLocked(r))), nil
}
