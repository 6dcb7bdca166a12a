package engine

import "strings"

// Action is the engine's verdict on a command. Ordering matters: when
// decisions combine, the highest severity wins.
type Action int

const (
	ActionAllow Action = iota
	ActionAsk
	ActionDeny
)

func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "allow"
	case ActionDeny:
		return "deny"
	default:
		return "ask"
	}
}

// Decision is the result of analyzing one AST node, bubbled up the tree.
// Children preserves the per-node decisions a combined result was folded
// from, so an audit can trace which subcommand triggered.
type Decision struct {
	Action   Action
	Reason   string
	Children []Decision
}

func allowD(reason string) Decision { return Decision{Action: ActionAllow, Reason: reason} }
func askD(reason string) Decision   { return Decision{Action: ActionAsk, Reason: reason} }

// combine folds child decisions into one: most restrictive action wins, and
// the reason collects every child reason at that level so the operator sees
// all of what triggered, not just the first hit.
func combine(decisions []Decision) Decision {
	if len(decisions) == 0 {
		return allowD("empty")
	}
	if len(decisions) == 1 {
		return decisions[0]
	}

	worst := ActionAllow
	for _, d := range decisions {
		if d.Action > worst {
			worst = d.Action
		}
	}

	var reasons []string
	for _, d := range decisions {
		if d.Action == worst && d.Reason != "" {
			reasons = append(reasons, d.Reason)
		}
	}
	return Decision{Action: worst, Reason: strings.Join(reasons, ", "), Children: decisions}
}
