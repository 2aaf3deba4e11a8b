// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vmlayer/engine/primitives"
	"github.com/vmlayer/engine/state"
)

func TestJournalRevertToSnapshot(t *testing.T) {
	db := state.NewMemDB()
	j := New(db)

	addrOne := primitives.Address{1}
	addrTwo := primitives.Address{2}
	key := primitives.Hash{10}

	ver := j.Snapshot()
	assert.Equal(t, 0, ver)

	require := assert.New(t)
	require.NoError(j.SetBalance(addrOne, primitives.WordFromUint64(10)))
	require.NoError(j.SetBalance(addrTwo, primitives.WordFromUint64(20)))
	require.NoError(j.SetStorage(addrOne, key, primitives.Hash{10}))

	ver2 := j.Snapshot()
	assert.Equal(t, 1, ver2)

	require.NoError(j.SetBalance(addrOne, primitives.WordFromUint64(30)))
	require.NoError(j.SetStorage(addrOne, key, primitives.Hash{20}))

	accOne, _, _ := db.GetAccount(addrOne)
	assert.Equal(t, uint64(30), accOne.Balance.Uint64())

	require.NoError(j.RevertToSnapshot(ver2))

	accOne, _, _ = db.GetAccount(addrOne)
	assert.Equal(t, uint64(10), accOne.Balance.Uint64())
	sv, _ := db.GetStorage(addrOne, key)
	assert.Equal(t, primitives.Hash{10}, sv)

	require.NoError(j.RevertToSnapshot(ver))
	_, ok, _ := db.GetAccount(addrOne)
	assert.False(t, ok, "account created after the outer checkpoint should be gone")
}

func TestJournalRefundUndo(t *testing.T) {
	db := state.NewMemDB()
	j := New(db)

	ver := j.Snapshot()
	j.AddRefund(100)
	assert.Equal(t, uint64(100), j.Refund())

	j.AddRefund(50)
	assert.Equal(t, uint64(150), j.Refund())

	assert.NoError(t, j.RevertToSnapshot(ver))
	assert.Equal(t, uint64(0), j.Refund())
}
