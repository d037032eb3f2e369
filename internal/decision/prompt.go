package decision

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/cards"
	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
)

// Prompt asks a human for decisions over a line-oriented text stream.
type Prompt struct {
	in      *bufio.Scanner
	out     io.Writer
	players map[string]bool
}

// NewPrompt answers for the given players, or for everyone when none are
// named.
func NewPrompt(in io.Reader, out io.Writer, uids ...string) *Prompt {
	p := &Prompt{in: bufio.NewScanner(in), out: out, players: map[string]bool{}}
	for _, uid := range uids {
		p.players[uid] = true
	}
	return p
}

func (p *Prompt) HasDecisionFor(uid string) bool {
	return len(p.players) == 0 || p.players[uid]
}

// Decide prints the table and reads until a parsable command arrives.
func (p *Prompt) Decide(uid string, snap engine.Snapshot) (engine.Decision, error) {
	me, _ := snap.Player(uid)
	fmt.Fprintf(p.out, "\n%s  board [%s]  pot %d\n", snap.Street, cards.Join(snap.Board), snap.Pot)
	fmt.Fprintf(p.out, "%s (%s) holds [%s]  stack %d  to call %d\n",
		uid, me.Position, cards.Join(me.HoleCards), me.Stack, snap.ToCall(uid))
	for {
		fmt.Fprintf(p.out, "%s> ", describeLegal(snap.Legal))
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return engine.Decision{}, fmt.Errorf("read decision: %w", err)
			}
			return engine.Decision{}, io.ErrUnexpectedEOF
		}
		d, err := ParseCommand(p.in.Text(), snap.Legal)
		if err != nil {
			fmt.Fprintf(p.out, "  %v\n", err)
			continue
		}
		return d, nil
	}
}

// ParseCommand understands "fold", "check", "call", "bet N", "raise N" and
// "allin", plus their one-letter forms f, x, c, b, r and a.
func ParseCommand(line string, legal engine.LegalActions) (engine.Decision, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return engine.Decision{}, fmt.Errorf("empty command")
	}
	var kind engine.ActionKind
	switch fields[0] {
	case "f", "fold":
		kind = engine.ActionFold
	case "x", "k", "check":
		kind = engine.ActionCheck
	case "c", "call":
		kind = engine.ActionCall
	case "b", "bet":
		kind = engine.ActionBet
	case "r", "raise":
		kind = engine.ActionRaise
	case "a", "allin", "all-in", "shove":
		if legal.Allows(engine.ActionBet) {
			return engine.Decision{Kind: engine.ActionBet, ToAmount: legal.MaxRaiseTo}, nil
		}
		if legal.Allows(engine.ActionRaise) {
			return engine.Decision{Kind: engine.ActionRaise, ToAmount: legal.MaxRaiseTo}, nil
		}
		return engine.Decision{Kind: engine.ActionCall}, nil
	default:
		return engine.Decision{}, fmt.Errorf("unknown command %q", fields[0])
	}
	d := engine.Decision{Kind: kind}
	if kind == engine.ActionBet || kind == engine.ActionRaise {
		if len(fields) < 2 {
			return engine.Decision{}, fmt.Errorf("%s needs a total amount", kind)
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			return engine.Decision{}, fmt.Errorf("bad amount %q", fields[1])
		}
		d.ToAmount = n
	}
	return d, nil
}

func describeLegal(legal engine.LegalActions) string {
	parts := make([]string, 0, len(legal.Actions))
	for _, a := range legal.Actions {
		switch a {
		case engine.ActionCall:
			parts = append(parts, fmt.Sprintf("call %d", legal.CallAmount))
		case engine.ActionBet, engine.ActionRaise:
			parts = append(parts, fmt.Sprintf("%s %d-%d", a, legal.MinRaiseTo, legal.MaxRaiseTo))
		default:
			parts = append(parts, a.String())
		}
	}
	return strings.Join(parts, " | ")
}
