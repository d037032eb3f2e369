package engine

// startRound resets per-street flags and seeds the players owing a
// decision. seed is false once no more decisions will be collected.
func (gs *GameState) startRound(seed bool) {
	for _, p := range gs.Players {
		p.HasActedThisRound = false
	}
	gs.Round = RoundState{
		LastFullRaiseSize: gs.BigBlind,
		LastAggressorIdx:  -1,
		ReopenAvailable:   true,
		NeedActionFrom:    seatSet{},
	}
	if !seed {
		gs.ActorIdx = -1
		return
	}
	var able []int
	for i, p := range gs.Players {
		if p.canAct() {
			able = append(able, i)
		}
	}
	for _, i := range able {
		// A lone player with chips only acts when facing a bet.
		if len(able) >= 2 || gs.Players[i].CurrentBet < gs.CurrentBet {
			gs.Round.NeedActionFrom.add(i)
		}
	}
}

// clearNeed drops every pending decision, closing the round.
func (gs *GameState) clearNeed() {
	gs.Round.NeedActionFrom = seatSet{}
	gs.ActorIdx = -1
}

// nextActor is the first player after from that still owes a decision.
func (gs *GameState) nextActor(from int) int {
	if gs.RoundComplete() {
		return -1
	}
	return gs.nextFrom(from, gs.Round.NeedActionFrom.has)
}

// canRaise reports whether betting is open to p: either the last raise was
// a full one or p has not acted since it.
func (gs *GameState) canRaise(p *Player) bool {
	return gs.Round.ReopenAvailable || !p.HasActedThisRound
}

// LegalActions returns what the player at idx may do right now. It is empty
// for anyone but the current actor.
func (gs *GameState) LegalActions(idx int) LegalActions {
	var la LegalActions
	if idx < 0 || idx != gs.ActorIdx || !gs.Round.NeedActionFrom.has(idx) {
		return la
	}
	p := gs.Players[idx]
	if !p.canAct() {
		return la
	}
	la.Actions = append(la.Actions, ActionFold)
	toCall := gs.CurrentBet - p.CurrentBet
	if toCall <= 0 {
		la.Actions = append(la.Actions, ActionCheck)
	} else {
		la.Actions = append(la.Actions, ActionCall)
		la.CallAmount = min(toCall, p.Stack)
	}
	maxTo := p.CurrentBet + p.Stack
	switch {
	case gs.CurrentBet == 0:
		la.Actions = append(la.Actions, ActionBet)
		la.MinRaiseTo = min(gs.BigBlind, maxTo)
		la.MaxRaiseTo = maxTo
	case maxTo > gs.CurrentBet && gs.canRaise(p):
		la.Actions = append(la.Actions, ActionRaise)
		la.MinRaiseTo = min(gs.CurrentBet+gs.Round.LastFullRaiseSize, maxTo)
		la.MaxRaiseTo = maxTo
	}
	return la
}

// validate checks an action without touching state and returns the
// clamped to-amount for bets and raises.
func (gs *GameState) validate(idx int, kind ActionKind, toAmount int) (int, *RuleError) {
	p := gs.Players[idx]
	if gs.ActorIdx < 0 {
		return 0, ruleErr(RuleNoActionPending, p.UID, "no decision is pending")
	}
	if idx != gs.ActorIdx {
		return 0, ruleErr(RuleNotYourTurn, p.UID, "waiting on %s", gs.Players[gs.ActorIdx].UID)
	}
	la := gs.LegalActions(idx)
	if !la.Allows(kind) {
		switch {
		case kind == ActionCheck:
			return 0, ruleErr(RuleIllegalAction, p.UID, "cannot check facing a bet of %d", gs.CurrentBet)
		case kind == ActionCall:
			return 0, ruleErr(RuleIllegalAction, p.UID, "nothing to call")
		case kind == ActionBet && gs.CurrentBet > 0:
			return 0, ruleErr(RuleIllegalAction, p.UID, "a bet of %d is open, raise instead", gs.CurrentBet)
		case kind == ActionRaise && gs.CurrentBet == 0:
			return 0, ruleErr(RuleIllegalAction, p.UID, "no bet to raise, bet instead")
		case kind == ActionRaise && !gs.canRaise(p):
			return 0, ruleErr(RuleNotReopened, p.UID, "short all-in did not reopen betting")
		case kind == ActionRaise:
			return 0, ruleErr(RuleIllegalAction, p.UID, "not enough chips to raise")
		default:
			return 0, ruleErr(RuleIllegalAction, p.UID, "action %s not available", kind)
		}
	}
	if kind != ActionBet && kind != ActionRaise {
		return 0, nil
	}
	if toAmount > la.MaxRaiseTo {
		toAmount = la.MaxRaiseTo
	}
	if toAmount <= gs.CurrentBet {
		return 0, ruleErr(RuleBelowMinimum, p.UID, "%s to %d does not exceed the current bet %d", kind, toAmount, gs.CurrentBet)
	}
	if toAmount < la.MinRaiseTo {
		return 0, ruleErr(RuleBelowMinimum, p.UID, "%s to %d is below the minimum %d", kind, toAmount, la.MinRaiseTo)
	}
	return toAmount, nil
}

// apply executes an action for the current actor. On a rule error the state
// is unchanged.
func (gs *GameState) apply(idx int, kind ActionKind, toAmount int) (AppliedAction, error) {
	if idx < 0 || idx >= len(gs.Players) {
		return AppliedAction{}, ruleErr(RuleUnknownPlayer, "", "no player at index %d", idx)
	}
	to, rerr := gs.validate(idx, kind, toAmount)
	if rerr != nil {
		return AppliedAction{}, rerr
	}
	p := gs.Players[idx]
	prevBet := p.CurrentBet
	prevStreetBet := gs.CurrentBet
	res := AppliedAction{PlayerIdx: idx, Kind: kind}

	switch kind {
	case ActionFold:
		p.HasFolded = true
		p.Active = false
	case ActionCheck:
	case ActionCall:
		gs.commit(p, gs.CurrentBet-p.CurrentBet)
	case ActionBet, ActionRaise:
		gs.commit(p, to-p.CurrentBet)
		increment := to - prevStreetBet
		full := increment >= gs.Round.LastFullRaiseSize
		if kind == ActionBet {
			// An opening bet always reopens action; only a full-size bet
			// resets the minimum raise.
			full = to >= gs.BigBlind
			if full {
				gs.Round.LastFullRaiseSize = to
			}
			gs.reopenFor(idx)
		} else if full {
			gs.Round.LastFullRaiseSize = increment
			gs.reopenFor(idx)
		} else {
			gs.Round.ReopenAvailable = false
			for i, q := range gs.Players {
				if i != idx && q.canAct() && q.CurrentBet < to {
					gs.Round.NeedActionFrom.add(i)
				}
			}
		}
		res.FullRaise = full
	}

	p.HasActedThisRound = true
	gs.Round.NeedActionFrom.remove(idx)
	if p.CurrentBet < prevBet {
		return res, invariantErr("monotonic_bets", "player %s bet fell from %d to %d", p.UID, prevBet, p.CurrentBet)
	}
	res.Amount = p.CurrentBet - prevBet
	res.ToAmount = p.CurrentBet
	res.AllIn = p.IsAllIn && res.Amount > 0
	gs.ActorIdx = gs.nextActor(idx)
	if err := gs.CheckChips(); err != nil {
		return res, err
	}
	return res, nil
}

// reopenFor marks idx as the aggressor and puts every other player able to
// act back in the decision set.
func (gs *GameState) reopenFor(idx int) {
	gs.Round.LastAggressorIdx = idx
	gs.Round.ReopenAvailable = true
	gs.Round.NeedActionFrom = seatSet{}
	for i, q := range gs.Players {
		if i != idx && q.canAct() {
			q.HasActedThisRound = false
			gs.Round.NeedActionFrom.add(i)
		}
	}
}
