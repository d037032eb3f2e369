package handhistory

// Clone returns a fully independent deep copy of h.
func Clone(h *Hand) *Hand {
	if h == nil {
		return nil
	}
	out := *h
	out.Seats = cloneSlice(h.Seats)
	if h.Streets != nil {
		out.Streets = make(map[Street]*StreetState, len(h.Streets))
		for k, st := range h.Streets {
			out.Streets[k] = cloneStreet(st)
		}
	}
	if h.Pots != nil {
		out.Pots = make([]Pot, len(h.Pots))
		for i, p := range h.Pots {
			out.Pots[i] = Pot{Amount: p.Amount, Eligible: cloneSlice(p.Eligible), Shares: cloneMap(p.Shares)}
		}
	}
	if h.Showdown != nil {
		out.Showdown = make([]ShowdownEntry, len(h.Showdown))
		for i, e := range h.Showdown {
			e.HoleCards = cloneSlice(e.HoleCards)
			out.Showdown[i] = e
		}
	}
	out.FinalStacks = cloneMap(h.FinalStacks)
	return &out
}

func cloneStreet(st *StreetState) *StreetState {
	if st == nil {
		return nil
	}
	out := &StreetState{Board: cloneSlice(st.Board)}
	if st.Actions != nil {
		out.Actions = make([]Action, len(st.Actions))
		for i, a := range st.Actions {
			if a.Actor != nil {
				actor := *a.Actor
				a.Actor = &actor
			}
			out.Actions[i] = a
		}
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	if in == nil {
		return nil
	}
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
