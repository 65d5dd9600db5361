package main

import (
	"testing"

	"github.com/Maphikza/flow-wallet-state/internal/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewestID(t *testing.T) {
	list := []transaction.PendingTransaction{
		{CadenceTxID: "old", EVMTxIDs: []string{"0x01"}},
		{CadenceTxID: "new", EVMTxIDs: []string{"0x02", "0x03"}},
	}

	id, err := newestID(list, false)
	require.NoError(t, err)
	assert.Equal(t, "new", id)

	id, err = newestID(list, true)
	require.NoError(t, err)
	assert.Equal(t, "0x03", id)

	_, err = newestID(nil, false)
	assert.Error(t, err)

	_, err = newestID([]transaction.PendingTransaction{{CadenceTxID: "x"}}, true)
	assert.ErrorContains(t, err, "no EVM hash")
}
