package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

func TestSQLiteStore_SaveLoad(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	txs := sampleTxs()
	require.NoError(t, store.Save(ctx, txs))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, txs[0].ID, got[0].ID)
	assert.True(t, txs[0].Amount.Equal(got[0].Amount))
	assert.True(t, got[0].IsExpense)
	assert.Equal(t, txs[0].Note, got[0].Note)
	assert.Equal(t, model.CategorySalary, got[1].Category)
	assert.True(t, got[1].Date.Equal(date(2025, 1, 5)))
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleTxs()))
	require.NoError(t, store.Save(ctx, sampleTxs()[1:]))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-01-002", got[0].ID)
}

func TestSQLiteStore_WithService(t *testing.T) {
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()

	svc := newTestService(t, store)
	_, err = svc.Append(context.Background(), model.Transaction{
		Title: "Metro", Amount: dec("62"), Category: model.CategoryTransport, Date: date(2025, 3, 1), IsExpense: true,
	})
	require.NoError(t, err)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-03-001", got[0].ID)
}
