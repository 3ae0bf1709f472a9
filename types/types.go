package types

import (
	"time"

	"github.com/safwentrabelsi/delegate-notifier/platform"
	"github.com/shopspring/decimal"
)

// Topic is a normalized event-bus topic.
type Topic string

const (
	TopicVoteCast           Topic = "vote-cast"
	TopicVoteWithdrawn      Topic = "vote-withdrawn"
	TopicTransactionApplied Topic = "transaction-applied"
)

// node-side names for the same topics
var topicAliases = map[string]Topic{
	"wallet.vote":         TopicVoteCast,
	"wallet.unvote":       TopicVoteWithdrawn,
	"transaction.applied": TopicTransactionApplied,
}

// ParseTopic maps either a normalized topic or the node's dotted event name to a Topic.
func ParseTopic(name string) (Topic, bool) {
	switch t := Topic(name); t {
	case TopicVoteCast, TopicVoteWithdrawn, TopicTransactionApplied:
		return t, true
	}
	t, ok := topicAliases[name]
	return t, ok
}

const (
	TransactionTypeTransfer     = 0
	TransactionTypeMultiPayment = 6
)

// Account is a read-only view of a wallet held by the node.
type Account struct {
	Address   string
	PublicKey string
	Balance   decimal.Decimal
	// Vote is the public key of the delegate this account votes for, empty if it has not voted.
	Vote string
	// Username is set when the account is itself a registered delegate.
	Username string
}

func (a *Account) HasVoted() bool {
	return a.Vote != ""
}

type Payment struct {
	Amount      decimal.Decimal `json:"amount"`
	RecipientID string          `json:"recipientId"`
}

type TransactionAsset struct {
	Payments []Payment `json:"payments"`
}

type Transaction struct {
	ID              string            `json:"id"`
	Type            int               `json:"type"`
	SenderPublicKey string            `json:"senderPublicKey"`
	Amount          decimal.Decimal   `json:"amount"`
	RecipientID     string            `json:"recipientId"`
	Asset           *TransactionAsset `json:"asset,omitempty"`
}

// VoteEvent is the payload of vote-cast and vote-withdrawn events.
type VoteEvent struct {
	Delegate    string      `json:"delegate"`
	Transaction Transaction `json:"transaction"`
}

// Event is a single occurrence received from the node.
type Event struct {
	Topic       Topic
	Vote        *VoteEvent
	Transaction *Transaction
	// ReceivedAt is when the ingest API accepted the event.
	ReceivedAt time.Time
}

// Direction of a balance change relative to the tracked account.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Record is implemented by every notification record an analyzer can produce.
type Record interface {
	TxID() string
}

type VoteRecord struct {
	VoterAddress     string
	DelegateUsername string
	SignedBalance    string
	TransactionID    string
}

func (r VoteRecord) TxID() string { return r.TransactionID }

type BalanceChangeRecord struct {
	Direction             Direction
	SenderAddress         string
	SenderDelegateName    string
	RecipientDelegateName string
	RecipientAddress      string
	SignedAmount          string
	SignedPercent         string
	TransactionID         string
}

func (r BalanceChangeRecord) TxID() string { return r.TransactionID }

// Delivery status values stored in the delivery log.
const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliverySkipped = "skipped"
)

// Delivery is one logged outbound notification attempt.
type Delivery struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Topic         Topic     `json:"topic"`
	EndpointHost  string    `json:"endpointHost"`
	Platform      string    `json:"platform"`
	TransactionID string    `json:"transactionId"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
}

// DelegateSet is the set of delegate usernames a subscriber tracks.
type DelegateSet map[string]struct{}

func NewDelegateSet(usernames []string) DelegateSet {
	set := make(DelegateSet, len(usernames))
	for _, u := range usernames {
		if u != "" {
			set[u] = struct{}{}
		}
	}
	return set
}

// Contains never matches the empty name of an account that has not voted.
func (s DelegateSet) Contains(username string) bool {
	if username == "" {
		return false
	}
	_, ok := s[username]
	return ok
}

// Subscriber is one notification target built from a webhook configuration. It is shared by every
// topic the webhook listens to and never mutated after creation.
type Subscriber struct {
	Endpoint string
	// MessageField is the payload key the rendered message is written to.
	MessageField string
	Payload      map[string]interface{}
	Delegates    DelegateSet
}

func (s *Subscriber) Platform() platform.Kind {
	return platform.Detect(s.Endpoint)
}
