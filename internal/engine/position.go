package engine

// Position represents a player's position at the table
type Position int

const (
	PosUnknown Position = iota
	PosSB               // Small Blind
	PosBB               // Big Blind
	PosUTG              // Under the Gun
	PosUTG1             // UTG+1
	PosMP               // Middle Position
	PosHJ               // Hijack
	PosCO               // Cutoff
	PosBTN              // Button (Dealer)
)

func (p Position) String() string {
	switch p {
	case PosSB:
		return "SB"
	case PosBB:
		return "BB"
	case PosUTG:
		return "UTG"
	case PosUTG1:
		return "UTG+1"
	case PosMP:
		return "MP"
	case PosHJ:
		return "HJ"
	case PosCO:
		return "CO"
	case PosBTN:
		return "BTN"
	default:
		return "?"
	}
}

// positionOrder lists labels starting from the small blind. Heads-up the
// button posts the small blind and is labelled BTN.
func positionOrder(n int) []Position {
	switch n {
	case 2:
		return []Position{PosBTN, PosBB}
	case 3:
		return []Position{PosSB, PosBB, PosBTN}
	case 4:
		return []Position{PosSB, PosBB, PosUTG, PosBTN}
	case 5:
		return []Position{PosSB, PosBB, PosUTG, PosCO, PosBTN}
	case 6:
		return []Position{PosSB, PosBB, PosUTG, PosHJ, PosCO, PosBTN}
	case 7:
		return []Position{PosSB, PosBB, PosUTG, PosMP, PosHJ, PosCO, PosBTN}
	case 8:
		return []Position{PosSB, PosBB, PosUTG, PosUTG1, PosMP, PosHJ, PosCO, PosBTN}
	default:
		result := make([]Position, n)
		if n == 0 {
			return result
		}
		result[0] = PosSB
		if n > 1 {
			result[1] = PosBB
		}
		if n > 2 {
			result[2] = PosUTG
			result[n-1] = PosBTN
		}
		if n > 3 {
			result[n-2] = PosCO
		}
		if n > 4 {
			result[n-3] = PosHJ
		}
		for i := 3; i < n-3; i++ {
			result[i] = PosMP
		}
		return result
	}
}

// assignPositions labels every seated player, rotating from the small blind.
func (gs *GameState) assignPositions() {
	seated := gs.seatedFrom(gs.SmallBlindIdx)
	labels := positionOrder(len(seated))
	for i, idx := range seated {
		gs.Players[idx].Position = labels[i]
	}
}

// PositionLabels returns the labels for an n-handed table, starting from the
// seat left of the button (the button itself when heads-up).
func PositionLabels(n int) []Position {
	return positionOrder(n)
}
