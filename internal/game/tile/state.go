package tile

// State tile flip lifecycle
type State int8

const (
	FaceDown     State = iota // hidden, flippable
	Flipping                  // animating toward FaceUp or back to FaceDown
	FaceUp                    // revealed, waiting to be paired
	InComparison              // claimed into a comparison unit
	Matched                   // retired, no further transitions
)

// String returns the wire name of the state
func (s State) String() string {
	switch s {
	case FaceDown:
		return "face_down"
	case Flipping:
		return "flipping"
	case FaceUp:
		return "face_up"
	case InComparison:
		return "in_comparison"
	case Matched:
		return "matched"
	default:
		return "unknown"
	}
}

// Revealed reports whether the symbol is visible to the player in this state
func (s State) Revealed() bool {
	return s == FaceUp || s == InComparison || s == Matched
}
