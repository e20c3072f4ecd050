package progress

import (
	"github.com/felixgeelhaar/palabras/internal/content"
	"github.com/felixgeelhaar/palabras/internal/profile"
)

// Recompute unlocks every unit whose predecessor has reached the
// threshold. Unlocks are only ever added, so repeated calls converge.
// It reports whether any flag changed.
func Recompute(units []*content.Unit, p *profile.Profile) bool {
	if p.Unlocks == nil {
		p.Unlocks = make(map[string]bool)
	}
	changed := false
	for i := 0; i+1 < len(units); i++ {
		if UnitProgress(units[i], p) < UnlockThreshold {
			continue
		}
		next := units[i+1].ID
		if !p.Unlocks[next] {
			p.Unlocks[next] = true
			changed = true
		}
	}
	return changed
}

// IsUnlocked reports whether a unit is accessible. The first unit is
// always open.
func IsUnlocked(units []*content.Unit, p *profile.Profile, unitID string) bool {
	if len(units) > 0 && units[0].ID == unitID {
		return true
	}
	return p.Unlocks[unitID]
}

// LastUnlocked returns the index of the last unlocked unit in course
// order, scanning the flags rather than assuming they are contiguous.
func LastUnlocked(units []*content.Unit, p *profile.Profile) int {
	last := -1
	for i, u := range units {
		if IsUnlocked(units, p, u.ID) {
			last = i
		}
	}
	return last
}

// UnlockAfterLast opens the unit following the last unlocked one and
// returns its id, or "" when every unit is already open.
func UnlockAfterLast(units []*content.Unit, p *profile.Profile) string {
	i := LastUnlocked(units, p)
	if i+1 >= len(units) {
		return ""
	}
	if p.Unlocks == nil {
		p.Unlocks = make(map[string]bool)
	}
	next := units[i+1].ID
	p.Unlocks[next] = true
	return next
}
