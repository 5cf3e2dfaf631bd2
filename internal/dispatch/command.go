package dispatch

import (
	"strings"

	"github.com/goodtune/breakbot/internal/breaks"
)

// Kind is the type of an inbound command
type Kind int

const (
	Ignore Kind = iota
	StartBreak
	ReturnFromBreak
	SupplyReason
	SupervisorDecision
	CheckAvailability
	Help
)

func (k Kind) String() string {
	switch k {
	case StartBreak:
		return "start_break"
	case ReturnFromBreak:
		return "return_from_break"
	case SupplyReason:
		return "supply_reason"
	case SupervisorDecision:
		return "supervisor_decision"
	case CheckAvailability:
		return "check_availability"
	case Help:
		return "help"
	default:
		return "ignore"
	}
}

// ReturnCallbackData is the callback payload of the inline "I'm back" button
const ReturnCallbackData = "return"

// Command is a parsed inbound message
type Command struct {
	Kind      Kind
	BreakType breaks.BreakType
	Text      string
	Decision  breaks.Decision
}

var returnPhrases = map[string]bool{
	"i'm back":         true,
	"i’m back":         true,
	"im back":          true,
	"back":             true,
	"/back":            true,
	"/return":          true,
	ReturnCallbackData: true,
}

var breakLabels = func() map[string]breaks.BreakType {
	labels := make(map[string]breaks.BreakType)
	for _, t := range breaks.Types {
		labels[strings.ToLower(t.Title())+" break"] = t
	}
	return labels
}()

// Parse maps chat text to a command. Supervisor replies of yes/no are fine
// decisions; any other free text is treated as a late-return reason.
func Parse(text string, fromSupervisor bool) Command {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Command{Kind: Ignore}
	}
	lower := strings.ToLower(trimmed)

	// Strip a bot mention from group commands: /check@breakbot
	if strings.HasPrefix(lower, "/") {
		if at := strings.Index(lower, "@"); at > 0 {
			lower = lower[:at]
		}
	}

	if fromSupervisor {
		switch lower {
		case "yes":
			return Command{Kind: SupervisorDecision, Decision: breaks.Approved, Text: trimmed}
		case "no":
			return Command{Kind: SupervisorDecision, Decision: breaks.Rejected, Text: trimmed}
		}
	}

	switch lower {
	case "/start", "/help":
		return Command{Kind: Help}
	case "/check", "check availability", "availability":
		return Command{Kind: CheckAvailability}
	}

	if returnPhrases[lower] {
		return Command{Kind: ReturnFromBreak, Text: trimmed}
	}

	if strings.HasPrefix(lower, "/") {
		t := breaks.ParseBreakType(lower)
		if !t.Valid() {
			return Command{Kind: Help}
		}
		return Command{Kind: StartBreak, BreakType: t}
	}

	// Plain text starts a break only when it is a keyboard label
	if t, ok := breakLabels[lower]; ok {
		return Command{Kind: StartBreak, BreakType: t}
	}

	return Command{Kind: SupplyReason, Text: trimmed}
}
