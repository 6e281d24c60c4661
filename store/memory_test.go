package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryDBSetGetDelete(t *testing.T) {
	db := NewMemory()

	err := db.Update(func(txn Txn) error {
		return txn.Set([]byte("k1"), []byte("v1"))
	})
	require.NoError(t, err)

	err = db.View(func(txn Txn) error {
		v, err := txn.Get([]byte("k1"))
		require.NoError(t, err)
		require.Equal(t, []byte("v1"), v)
		return nil
	})
	require.NoError(t, err)

	err = db.Update(func(txn Txn) error {
		return txn.Delete([]byte("k1"))
	})
	require.NoError(t, err)

	err = db.View(func(txn Txn) error {
		_, err := txn.Get([]byte("k1"))
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDBFailedUpdateDoesNotCommit(t *testing.T) {
	db := NewMemory()

	sentinelErr := require.Error
	_ = sentinelErr

	err := db.Update(func(txn Txn) error {
		_ = txn.Set([]byte("k"), []byte("v"))
		return ErrNotFound // any non-nil error aborts the commit
	})
	require.Error(t, err)

	err = db.View(func(txn Txn) error {
		_, err := txn.Get([]byte("k"))
		return err
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryDBIteratorPrefixOrder(t *testing.T) {
	db := NewMemory()
	err := db.Update(func(txn Txn) error {
		for _, k := range []string{"utxo-b", "utxo-a", "other", "utxo-c"} {
			if err := txn.Set([]byte(k), []byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var got []string
	err = db.View(func(txn Txn) error {
		it := txn.NewIterator([]byte("utxo-"))
		defer it.Close()
		for it.Next() {
			got = append(got, string(it.Key()))
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"utxo-a", "utxo-b", "utxo-c"}, got)
}
