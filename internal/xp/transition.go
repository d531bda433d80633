package xp

// Kind classifies how a profile changed between two observations.
type Kind int

const (
	// NoChange means level and XP are identical.
	NoChange Kind = iota
	// Gain means XP changed within the same level.
	Gain
	// LevelUp means the level increased.
	LevelUp
	// MaxLevel means the level increased into the maximum level.
	MaxLevel
	// Regression means the level dropped, as after a rank reset.
	Regression
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case NoChange:
		return "no_change"
	case Gain:
		return "gain"
	case LevelUp:
		return "level_up"
	case MaxLevel:
		return "max_level"
	case Regression:
		return "regression"
	default:
		return "unknown"
	}
}

// Snapshot is an observed level and XP within that level.
type Snapshot struct {
	Level int
	XP    int
}

// Transition is the classified change between a stored and a remote snapshot.
type Transition struct {
	Kind   Kind
	Earned int
}

// Changed reports whether the observation differs from the stored state.
func (t Transition) Changed() bool {
	return t.Kind != NoChange
}

// Classify compares the remote snapshot against the stored one.
//
// A level increase resets the earned baseline, so the earned XP is the remote
// XP within the new level. Otherwise it is the XP difference. Earned XP is
// never negative; a drop in level or XP earns nothing.
func Classify(stored, remote Snapshot, maxLevel int) Transition {
	switch {
	case remote.Level > stored.Level:
		kind := LevelUp
		if remote.Level >= maxLevel && stored.Level < maxLevel {
			kind = MaxLevel
		}

		return Transition{Kind: kind, Earned: max(remote.XP, 0)}
	case remote.Level < stored.Level:
		return Transition{Kind: Regression}
	case remote.XP == stored.XP:
		return Transition{Kind: NoChange}
	default:
		return Transition{Kind: Gain, Earned: max(remote.XP-stored.XP, 0)}
	}
}
