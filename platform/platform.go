package platform

import "strings"

// Kind identifies the destination platform of a webhook.
type Kind int

const (
	Fallback Kind = iota
	Slack
	Discord
	Pushover
)

func (k Kind) String() string {
	switch k {
	case Slack:
		return "slack"
	case Discord:
		return "discord"
	case Pushover:
		return "pushover"
	default:
		return "fallback"
	}
}

// Detect classifies a destination URL by substring match. The order of checks matters.
func Detect(endpoint string) Kind {
	switch {
	case strings.Contains(endpoint, "hooks.slack.com"):
		return Slack
	case strings.Contains(endpoint, "discordapp.com"), strings.Contains(endpoint, "discord.com"):
		return Discord
	case strings.Contains(endpoint, "pushover.net"):
		return Pushover
	default:
		return Fallback
	}
}
