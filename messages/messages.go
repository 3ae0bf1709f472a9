package messages

import (
	"fmt"
	"strings"

	"github.com/safwentrabelsi/delegate-notifier/platform"
	"github.com/safwentrabelsi/delegate-notifier/types"
)

// EventKind selects the message template.
type EventKind int

const (
	Vote EventKind = iota
	Unvote
	BalanceChange
)

func (k EventKind) String() string {
	switch k {
	case Vote:
		return "vote"
	case Unvote:
		return "unvote"
	case BalanceChange:
		return "balancechange"
	default:
		return "unknown"
	}
}

const linkText = "Open transaction"

type markup struct {
	bold func(s string) string
	link func(url string) string
}

var (
	discordMarkup = markup{
		bold: func(s string) string { return "**" + s + "**" },
		link: func(url string) string { return fmt.Sprintf("[%s](<%s>)", linkText, url) },
	}
	slackMarkup = markup{
		bold: func(s string) string { return "*" + s + "*" },
		link: func(url string) string { return fmt.Sprintf("<%s|%s>", url, linkText) },
	}
	plainMarkup = markup{
		bold: func(s string) string { return s },
		link: func(url string) string { return url },
	}
)

func markupFor(k platform.Kind) markup {
	switch k {
	case platform.Discord:
		return discordMarkup
	case platform.Slack:
		return slackMarkup
	default:
		// pushover only differs in its payload
		return plainMarkup
	}
}

// Render formats a notification record for the given platform. explorerTx is the explorer
// base URL the transaction id gets appended to.
func Render(k platform.Kind, kind EventKind, record types.Record, explorerTx string) (string, error) {
	m := markupFor(k)
	switch r := record.(type) {
	case types.VoteRecord:
		switch kind {
		case Vote:
			return fmt.Sprintf("⬆️ %s voted for %s with %s. %s",
				m.bold(r.VoterAddress), m.bold(r.DelegateUsername), m.bold(r.SignedBalance), m.link(explorerTx+r.TransactionID)), nil
		case Unvote:
			return fmt.Sprintf("⬇️ %s unvoted %s with %s. %s",
				m.bold(r.VoterAddress), m.bold(r.DelegateUsername), m.bold(r.SignedBalance), m.link(explorerTx+r.TransactionID)), nil
		}
	case types.BalanceChangeRecord:
		if kind == BalanceChange {
			return renderBalanceChange(m, r, explorerTx), nil
		}
	}
	return "", fmt.Errorf("no %s template for record %T", kind, record)
}

func renderBalanceChange(m markup, r types.BalanceChangeRecord, explorerTx string) string {
	var sb strings.Builder
	if r.Direction == types.DirectionIn {
		fmt.Fprintf(&sb, "%s voting %s increased balance by %s (%s) via %s address",
			m.bold(r.RecipientAddress), m.bold(r.RecipientDelegateName), m.bold(r.SignedAmount), r.SignedPercent, r.SenderAddress)
		if r.SenderDelegateName != "" {
			sb.WriteString(" voting " + m.bold(r.SenderDelegateName))
		}
	} else {
		fmt.Fprintf(&sb, "%s voting %s decreased balance by %s (%s) sending it to %s address",
			m.bold(r.SenderAddress), m.bold(r.SenderDelegateName), m.bold(r.SignedAmount), r.SignedPercent, r.RecipientAddress)
		if r.RecipientDelegateName != "" {
			sb.WriteString(" voting " + m.bold(r.RecipientDelegateName))
		}
	}
	sb.WriteString(" " + m.link(explorerTx+r.TransactionID))
	return sb.String()
}
