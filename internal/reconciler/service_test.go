package reconciler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"p2p-reconciler/internal/matcher"
	"p2p-reconciler/internal/models"
	"p2p-reconciler/internal/storage"
	"p2p-reconciler/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runBase = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

const (
	runFrom = "2024-01-01"
	runTo   = "2024-01-31 23:59:59"
)

func seedPair(t *testing.T, store *storage.MemoryStore, id int64, totalPrice string, gap time.Duration) {
	t.Helper()

	tradeTime := runBase.Add(time.Duration(id) * time.Hour)
	approved := tradeTime.Add(gap)

	store.SeedExternalTransaction(&models.ExternalTransaction{
		ID:         id,
		ExternalID: id * 100,
		CabinetID:  1,
		Amount:     models.NewTraderPayload(map[string]any{models.CurrencyRUB: totalPrice}),
		Total:      models.NewTraderPayload(map[string]any{models.CurrencyUSDT: 11.5}),
		ApprovedAt: &approved,
	})

	price, err := decimal.NewFromString(totalPrice)
	require.NoError(t, err)

	inserted, err := store.CreateTransactions(context.Background(), []*models.Transaction{{
		OrderNo:    fmt.Sprintf("ORD-%d", id),
		UserID:     1,
		DateTime:   tradeTime,
		Type:       models.TransactionTypeSell,
		Asset:      "USDT",
		TotalPrice: price,
	}})
	require.NoError(t, err)
	require.Equal(t, int64(1), inserted)
}

func newTestService(t *testing.T) (*Service, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	store.SeedUser(models.User{ID: 1, Username: "alice"})

	service, err := NewService(store, nil)
	require.NoError(t, err)
	return service, store
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	store := storage.NewMemoryStore()

	_, err := NewService(store, nil)
	assert.NoError(t, err, "nil config selects the default policy")

	bad := matcher.DefaultConfig()
	bad.MinutesThreshold = -1
	_, err = NewService(store, bad)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidConfig))
}

func TestParseDateRange(t *testing.T) {
	r, err := ParseDateRange(runFrom, runTo)
	require.NoError(t, err)
	assert.True(t, r.Contains(runBase))

	_, err = ParseDateRange("garbage", runTo)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidDateRange))

	_, err = ParseDateRange(runTo, runFrom)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidDateRange))
}

func TestMatchTransactions(t *testing.T) {
	service, store := newTestService(t)
	seedPair(t, store, 1, "1000", 15*time.Minute)

	summary, err := service.MatchTransactions(context.Background(), runFrom, runTo)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Stats.MatchedCount)
	assert.Equal(t, int64(1), summary.Inserted)
	assert.Equal(t, 1, summary.ExternalsLoaded)
	assert.Equal(t, 1, summary.TransactionsLoaded)
	assert.Equal(t, 0, summary.UnmatchedExternals)

	matches, err := store.Matches(context.Background(), storage.MatchFilter{Range: summary.Window}, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, int64(900), m.TimeDifference)
	assert.True(t, m.GrossExpense.Equal(decimal.NewFromInt(1009)), "GrossExpense = %s", m.GrossExpense)
	assert.True(t, m.GrossIncome.Equal(decimal.NewFromFloat(11.5)), "GrossIncome = %s", m.GrossIncome)
	assert.True(t, m.GrossProfit.Equal(decimal.NewFromFloat(-997.5)), "GrossProfit = %s", m.GrossProfit)
	assert.Equal(t, "-98.86", m.ProfitPercentage.Round(2).String())
}

func TestMatchTransactionsRerunIsIdempotent(t *testing.T) {
	service, store := newTestService(t)
	seedPair(t, store, 1, "1000", 15*time.Minute)

	first, err := service.MatchTransactions(context.Background(), runFrom, runTo)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.Inserted)

	// The pairing is found again; the insert skips the duplicate.
	second, err := service.MatchTransactions(context.Background(), runFrom, runTo)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Stats.MatchedCount)
	assert.Equal(t, int64(0), second.Inserted)

	count, err := store.CountMatches(context.Background(), storage.MatchFilter{Range: second.Window})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMatchTransactionsRejectsInvalidRangeBeforeRun(t *testing.T) {
	service, store := newTestService(t)
	seedPair(t, store, 1, "1000", 15*time.Minute)

	_, err := service.MatchTransactions(context.Background(), runTo, runFrom)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidDateRange))

	// The failed call must not have written anything.
	window, parseErr := ParseDateRange(runFrom, runTo)
	require.NoError(t, parseErr)
	count, countErr := store.CountMatches(context.Background(), storage.MatchFilter{Range: window})
	require.NoError(t, countErr)
	assert.Equal(t, int64(0), count)
}

func TestMatchTransactionsSingleFlight(t *testing.T) {
	service, _ := newTestService(t)

	require.True(t, service.tryAcquire())

	_, err := service.MatchTransactions(context.Background(), runFrom, runTo)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeRunInProgress))

	service.release()

	_, err = service.MatchTransactions(context.Background(), runFrom, runTo)
	assert.NoError(t, err, "the guard must be released after a run")
}

func TestMatchTransactionsWindowBounds(t *testing.T) {
	service, store := newTestService(t)

	// Trade and approval both outside the requested window.
	outside := runBase.AddDate(0, 2, 0)
	store.SeedExternalTransaction(&models.ExternalTransaction{
		ID:         1,
		ExternalID: 100,
		Amount:     models.NewTraderPayload(map[string]any{models.CurrencyRUB: "1000"}),
		Total:      models.NewTraderPayload(map[string]any{models.CurrencyUSDT: 11.5}),
		ApprovedAt: &outside,
	})
	_, err := store.CreateTransactions(context.Background(), []*models.Transaction{{
		OrderNo: "ORD-OUT", UserID: 1, DateTime: outside,
		Type: models.TransactionTypeSell, TotalPrice: decimal.NewFromInt(1000),
	}})
	require.NoError(t, err)

	summary, err := service.MatchTransactions(context.Background(), runFrom, runTo)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.ExternalsLoaded)
	assert.Equal(t, 0, summary.TransactionsLoaded)
	assert.Equal(t, 0, summary.Stats.MatchedCount)
}
