package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	tests := []struct {
		name     string
		expected Topic
		ok       bool
	}{
		{"vote-cast", TopicVoteCast, true},
		{"wallet.vote", TopicVoteCast, true},
		{"wallet.unvote", TopicVoteWithdrawn, true},
		{"vote-withdrawn", TopicVoteWithdrawn, true},
		{"transaction.applied", TopicTransactionApplied, true},
		{"transaction-applied", TopicTransactionApplied, true},
		{"block.applied", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			topic, ok := ParseTopic(tc.name)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, topic)
		})
	}
}

func TestTransactionAmountsDecodeFromStringsAndNumbers(t *testing.T) {
	raw := `{
		"type": 6,
		"id": "e330",
		"senderPublicKey": "0328",
		"amount": "0",
		"asset": {"payments": [{"amount": "100000000", "recipientId": "Abf"}, {"amount": 200000000, "recipientId": "ASG"}]}
	}`

	var tx Transaction
	require.NoError(t, json.Unmarshal([]byte(raw), &tx))
	assert.Equal(t, TransactionTypeMultiPayment, tx.Type)
	require.NotNil(t, tx.Asset)
	require.Len(t, tx.Asset.Payments, 2)
	assert.Equal(t, "100000000", tx.Asset.Payments[0].Amount.String())
	assert.Equal(t, "200000000", tx.Asset.Payments[1].Amount.String())
	assert.True(t, tx.Amount.IsZero())
}

func TestDelegateSet(t *testing.T) {
	set := NewDelegateSet([]string{"genesis_1", "", "genesis_2"})
	assert.Len(t, set, 2)
	assert.True(t, set.Contains("genesis_1"))
	assert.False(t, set.Contains("genesis_3"))
	assert.False(t, set.Contains(""))

	var empty DelegateSet
	assert.False(t, empty.Contains("genesis_1"))
}
