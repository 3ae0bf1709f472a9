package messages

import (
	"testing"

	"github.com/safwentrabelsi/delegate-notifier/platform"
	"github.com/safwentrabelsi/delegate-notifier/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const explorer = "https://explorer/tx/"

var vote = types.VoteRecord{
	VoterAddress:     "AbcAddr",
	DelegateUsername: "genesis_1",
	SignedBalance:    "+100.00000000",
	TransactionID:    "txid123",
}

func TestRenderVote(t *testing.T) {
	tests := []struct {
		name     string
		platform platform.Kind
		kind     EventKind
		record   types.VoteRecord
		expected string
	}{
		{
			name:     "Discord vote",
			platform: platform.Discord,
			kind:     Vote,
			record:   vote,
			expected: "⬆️ **AbcAddr** voted for **genesis_1** with **+100.00000000**. [Open transaction](<https://explorer/tx/txid123>)",
		},
		{
			name:     "Slack vote",
			platform: platform.Slack,
			kind:     Vote,
			record:   vote,
			expected: "⬆️ *AbcAddr* voted for *genesis_1* with *+100.00000000*. <https://explorer/tx/txid123|Open transaction>",
		},
		{
			name:     "Fallback unvote",
			platform: platform.Fallback,
			kind:     Unvote,
			record:   types.VoteRecord{VoterAddress: "AbcAddr", DelegateUsername: "genesis_1", SignedBalance: "-5.00000000", TransactionID: "txid9"},
			expected: "⬇️ AbcAddr unvoted genesis_1 with -5.00000000. https://explorer/tx/txid9",
		},
		{
			name:     "Pushover renders like fallback",
			platform: platform.Pushover,
			kind:     Vote,
			record:   vote,
			expected: "⬆️ AbcAddr voted for genesis_1 with +100.00000000. https://explorer/tx/txid123",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Render(tc.platform, tc.kind, tc.record, explorer)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, msg)
		})
	}
}

func TestRenderBalanceChange(t *testing.T) {
	out := types.BalanceChangeRecord{
		Direction:          types.DirectionOut,
		SenderAddress:      "SenderAddr",
		SenderDelegateName: "genesis_1",
		RecipientAddress:   "RecipientAddr",
		SignedAmount:       "-15.00000000",
		SignedPercent:      "-15.00%",
		TransactionID:      "tx1",
	}
	in := types.BalanceChangeRecord{
		Direction:             types.DirectionIn,
		SenderAddress:         "SenderAddr",
		RecipientDelegateName: "genesis_2",
		RecipientAddress:      "RecipientAddr",
		SignedAmount:          "+15.00000000",
		SignedPercent:         "+50.00%",
		TransactionID:         "tx1",
	}

	t.Run("Discord out without recipient delegate", func(t *testing.T) {
		msg, err := Render(platform.Discord, BalanceChange, out, explorer)
		require.NoError(t, err)
		assert.Equal(t, "**SenderAddr** voting **genesis_1** decreased balance by **-15.00000000** (-15.00%) sending it to RecipientAddr address [Open transaction](<https://explorer/tx/tx1>)", msg)
	})

	// Slack bold is a single asterisk, "**" would be rendered literally.
	t.Run("Slack out with recipient delegate", func(t *testing.T) {
		rec := out
		rec.RecipientDelegateName = "genesis_2"
		msg, err := Render(platform.Slack, BalanceChange, rec, explorer)
		require.NoError(t, err)
		assert.Equal(t, "*SenderAddr* voting *genesis_1* decreased balance by *-15.00000000* (-15.00%) sending it to RecipientAddr address voting *genesis_2* <https://explorer/tx/tx1|Open transaction>", msg)
	})

	t.Run("Fallback in without sender delegate", func(t *testing.T) {
		msg, err := Render(platform.Fallback, BalanceChange, in, explorer)
		require.NoError(t, err)
		assert.Equal(t, "RecipientAddr voting genesis_2 increased balance by +15.00000000 (+50.00%) via SenderAddr address https://explorer/tx/tx1", msg)
	})

	t.Run("Discord in with sender delegate", func(t *testing.T) {
		rec := in
		rec.SenderDelegateName = "genesis_1"
		msg, err := Render(platform.Discord, BalanceChange, rec, explorer)
		require.NoError(t, err)
		assert.Equal(t, "**RecipientAddr** voting **genesis_2** increased balance by **+15.00000000** (+50.00%) via SenderAddr address voting **genesis_1** [Open transaction](<https://explorer/tx/tx1>)", msg)
	})
}

func TestRenderIsDeterministic(t *testing.T) {
	first, err := Render(platform.Discord, Vote, vote, explorer)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Render(platform.Discord, Vote, vote, explorer)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRenderMismatchedRecord(t *testing.T) {
	_, err := Render(platform.Discord, BalanceChange, vote, explorer)
	assert.Error(t, err)

	_, err = Render(platform.Slack, Vote, types.BalanceChangeRecord{}, explorer)
	assert.Error(t, err)
}
