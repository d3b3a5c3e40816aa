package domain

// LevelGrowth is the multiplier applied to MaxXP on every level-up.
const LevelGrowth = 1.2

// Progress holds the gamification counters of an identity.
type Progress struct {
	CurrentXP int
	MaxXP     int
	Level     int
}

// Normalize replaces absent or out-of-range counters with their defaults.
func (p Progress) Normalize() Progress {
	if p.CurrentXP < 0 {
		p.CurrentXP = DefaultCurrentXP
	}
	if p.MaxXP <= 0 {
		p.MaxXP = DefaultMaxXP
	}
	if p.Level < 1 {
		p.Level = DefaultLevel
	}
	return p
}

// Gain adds amount XP and applies every level-up the new total crosses.
// It returns the updated progress and the number of levels gained.
func (p Progress) Gain(amount int) (Progress, int) {
	next := p.Normalize()
	next.CurrentXP += amount

	gained := 0
	for next.CurrentXP >= next.MaxXP {
		next.CurrentXP -= next.MaxXP
		next.Level++
		next.MaxXP = int(float64(next.MaxXP) * LevelGrowth)
		gained++
	}
	return next, gained
}

// LevelChange describes the outcome of a single XP award.
type LevelChange struct {
	Before Progress
	After  Progress
	Gained int
}

// LeveledUp reports whether the award crossed at least one threshold.
func (c LevelChange) LeveledUp() bool {
	return c.Gained > 0
}
