package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/safwentrabelsi/delegate-notifier/amount"
	"github.com/safwentrabelsi/delegate-notifier/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "analyzer")

// WalletStore is the read-only view of the node's wallets the analyzers need.
type WalletStore interface {
	HasByPublicKey(ctx context.Context, publicKey string) (bool, error)
	FindByPublicKey(ctx context.Context, publicKey string) (*types.Account, error)
	FindByUsername(ctx context.Context, username string) (*types.Account, error)
	FindByAddress(ctx context.Context, address string) (*types.Account, error)
}

// Analyzer turns node events into notification records for one tracked delegate set at a time.
// It holds no state besides the injected wallet store.
type Analyzer struct {
	wallets WalletStore
}

func NewAnalyzer(wallets WalletStore) *Analyzer {
	return &Analyzer{wallets: wallets}
}

// Transfer is a single value movement. Multi-payments are expanded into one Transfer per payment.
type Transfer struct {
	ID              string
	SenderPublicKey string
	RecipientID     string
	Amount          decimal.Decimal
}

// Transaction analyzes an applied transaction. Only transfers and multi-payments are considered.
// Payments of a multi-payment are analyzed independently: a failed recipient lookup is logged and
// only drops that payment. The sender is resolved once per transaction.
func (a *Analyzer) Transaction(ctx context.Context, tx *types.Transaction, tracked types.DelegateSet) ([]types.BalanceChangeRecord, error) {
	switch tx.Type {
	case types.TransactionTypeTransfer:
		return a.Transfer(ctx, Transfer{
			ID:              tx.ID,
			SenderPublicKey: tx.SenderPublicKey,
			RecipientID:     tx.RecipientID,
			Amount:          tx.Amount,
		}, tracked)
	case types.TransactionTypeMultiPayment:
		if tx.Asset == nil || len(tx.Asset.Payments) == 0 {
			return nil, nil
		}
		sender, err := a.resolveParty(ctx, func() (*types.Account, error) {
			return a.wallets.FindByPublicKey(ctx, tx.SenderPublicKey)
		}, "sender", tx.SenderPublicKey)
		if err != nil {
			return nil, err
		}

		var records []types.BalanceChangeRecord
		for i, p := range tx.Asset.Payments {
			recs, err := a.transfer(ctx, sender, Transfer{
				ID:              tx.ID,
				SenderPublicKey: tx.SenderPublicKey,
				RecipientID:     p.RecipientID,
				Amount:          p.Amount,
			}, tracked)
			if err != nil {
				log.WithError(err).WithField("tx", tx.ID).Warnf("Skipping payment %d", i)
				continue
			}
			records = append(records, recs...)
		}
		return records, nil
	default:
		return nil, nil
	}
}

// party is a resolved account together with the username of the delegate it votes for.
type party struct {
	account  *types.Account
	delegate string
}

func (a *Analyzer) resolveParty(ctx context.Context, find func() (*types.Account, error), role, id string) (*party, error) {
	account, err := find()
	if err != nil {
		return nil, fmt.Errorf("failed to find %s %s: %w", role, id, err)
	}
	delegate, err := a.votedDelegate(ctx, account)
	if err != nil {
		return nil, err
	}
	return &party{account: account, delegate: delegate}, nil
}

// Transfer produces an OUT record when the sender votes for a tracked delegate and an IN record when
// the recipient does. Both fire when both delegates are tracked.
func (a *Analyzer) Transfer(ctx context.Context, t Transfer, tracked types.DelegateSet) ([]types.BalanceChangeRecord, error) {
	sender, err := a.resolveParty(ctx, func() (*types.Account, error) {
		return a.wallets.FindByPublicKey(ctx, t.SenderPublicKey)
	}, "sender", t.SenderPublicKey)
	if err != nil {
		return nil, err
	}
	return a.transfer(ctx, sender, t, tracked)
}

func (a *Analyzer) transfer(ctx context.Context, sender *party, t Transfer, tracked types.DelegateSet) ([]types.BalanceChangeRecord, error) {
	recipient, err := a.resolveParty(ctx, func() (*types.Account, error) {
		return a.wallets.FindByAddress(ctx, t.RecipientID)
	}, "recipient", t.RecipientID)
	if err != nil {
		return nil, err
	}

	if sender.delegate == "" && recipient.delegate == "" {
		return nil, nil
	}
	if sender.account.Address == recipient.account.Address {
		return nil, nil
	}

	formatted := amount.Format(t.Amount)
	var records []types.BalanceChangeRecord

	if tracked.Contains(sender.delegate) {
		pct, err := amount.PercentOfPool(t.Amount, sender.account.Balance)
		if err != nil {
			log.WithError(err).WithField("tx", t.ID).Warn("Skipping outgoing balance change")
		} else {
			records = append(records, types.BalanceChangeRecord{
				Direction:             types.DirectionOut,
				SenderAddress:         sender.account.Address,
				SenderDelegateName:    sender.delegate,
				RecipientDelegateName: recipient.delegate,
				RecipientAddress:      recipient.account.Address,
				SignedAmount:          "-" + formatted,
				SignedPercent:         "-" + pct + "%",
				TransactionID:         t.ID,
			})
		}
	}

	if tracked.Contains(recipient.delegate) {
		pct, err := amount.PercentOfPool(t.Amount, recipient.account.Balance)
		if err != nil {
			log.WithError(err).WithField("tx", t.ID).Warn("Skipping incoming balance change")
		} else {
			records = append(records, types.BalanceChangeRecord{
				Direction:             types.DirectionIn,
				SenderAddress:         sender.account.Address,
				SenderDelegateName:    sender.delegate,
				RecipientDelegateName: recipient.delegate,
				RecipientAddress:      recipient.account.Address,
				SignedAmount:          "+" + formatted,
				SignedPercent:         "+" + pct + "%",
				TransactionID:         t.ID,
			})
		}
	}

	return records, nil
}

// votedDelegate returns the username of the delegate the account votes for, or "" if it has not voted.
func (a *Analyzer) votedDelegate(ctx context.Context, account *types.Account) (string, error) {
	if !account.HasVoted() {
		return "", nil
	}
	delegate, err := a.wallets.FindByPublicKey(ctx, account.Vote)
	if err != nil {
		return "", fmt.Errorf("failed to find delegate voted by %s: %w", account.Address, err)
	}
	return delegate.Username, nil
}

// Vote analyzes a vote-cast event.
func (a *Analyzer) Vote(ctx context.Context, ev *types.VoteEvent, tracked types.DelegateSet) ([]types.VoteRecord, error) {
	return a.vote(ctx, ev, tracked, "+")
}

// Unvote analyzes a vote-withdrawn event.
func (a *Analyzer) Unvote(ctx context.Context, ev *types.VoteEvent, tracked types.DelegateSet) ([]types.VoteRecord, error) {
	return a.vote(ctx, ev, tracked, "-")
}

func (a *Analyzer) vote(ctx context.Context, ev *types.VoteEvent, tracked types.DelegateSet, sign string) ([]types.VoteRecord, error) {
	if ev.Transaction.SenderPublicKey == "" {
		return nil, fmt.Errorf("vote transaction %s has no sender public key", ev.Transaction.ID)
	}

	delegate, err := a.resolveDelegate(ctx, strings.TrimLeft(ev.Delegate, "+-"))
	if err != nil {
		return nil, err
	}
	if !tracked.Contains(delegate.Username) {
		return nil, nil
	}

	voter, err := a.wallets.FindByPublicKey(ctx, ev.Transaction.SenderPublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to find voter %s: %w", ev.Transaction.SenderPublicKey, err)
	}
	if voter.Address == delegate.Address {
		return nil, nil
	}

	return []types.VoteRecord{{
		VoterAddress:     voter.Address,
		DelegateUsername: delegate.Username,
		SignedBalance:    sign + amount.Format(voter.Balance),
		TransactionID:    ev.Transaction.ID,
	}}, nil
}

// resolveDelegate looks the identifier up as a public key first and falls back to a username.
func (a *Analyzer) resolveDelegate(ctx context.Context, identifier string) (*types.Account, error) {
	exists, err := a.wallets.HasByPublicKey(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to check delegate %s: %w", identifier, err)
	}
	var delegate *types.Account
	if exists {
		delegate, err = a.wallets.FindByPublicKey(ctx, identifier)
	} else {
		delegate, err = a.wallets.FindByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find delegate %s: %w", identifier, err)
	}
	return delegate, nil
}
