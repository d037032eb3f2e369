package decision

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yeogirlyun/enhanced-poker-strategy-system-sub000/internal/engine"
)

// Step is one scripted decision.
type Step struct {
	PlayerUID string
	Decision  engine.Decision
}

// Scripted answers from a fixed sequence of steps, in order.
type Scripted struct {
	steps []Step
	pos   int
}

func NewScripted(steps ...Step) *Scripted {
	return &Scripted{steps: append([]Step(nil), steps...)}
}

// ParseScript reads steps like "alice raise 30; bob call; alice check".
func ParseScript(s string) (*Scripted, error) {
	var steps []Step
	for _, part := range strings.Split(s, ";") {
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("script step %q: want \"player action [amount]\"", strings.TrimSpace(part))
		}
		kind, err := engine.ParseActionKind(fields[1])
		if err != nil {
			return nil, fmt.Errorf("script step %q: %w", strings.TrimSpace(part), err)
		}
		st := Step{PlayerUID: fields[0], Decision: engine.Decision{Kind: kind}}
		if len(fields) == 3 {
			if st.Decision.ToAmount, err = strconv.Atoi(fields[2]); err != nil {
				return nil, fmt.Errorf("script step %q: bad amount: %w", strings.TrimSpace(part), err)
			}
		}
		steps = append(steps, st)
	}
	return NewScripted(steps...), nil
}

func (s *Scripted) HasDecisionFor(string) bool { return s.pos < len(s.steps) }

func (s *Scripted) Decide(uid string, _ engine.Snapshot) (engine.Decision, error) {
	if s.pos >= len(s.steps) {
		return engine.Decision{}, fmt.Errorf("script exhausted")
	}
	st := s.steps[s.pos]
	if st.PlayerUID != uid {
		return engine.Decision{}, fmt.Errorf("script step %d is for %s, engine asks %s", s.pos, st.PlayerUID, uid)
	}
	s.pos++
	return st.Decision, nil
}
