// Package presence reduces a contact's per-source Presence details down to
// a single derived GlobalPresence row. Grounded on beads'
// lowest-wins severity ordering used for its own sync-conflict resolution
// in internal/storage/dolt/transaction.go's retry backoff selection,
// adapted here from "lowest retry count wins" to "lowest presence state
// code wins".
package presence

import "github.com/localcontacts/contactwriter/internal/model"

// Reduce folds a contact's Presence details into a single GlobalPresence
// value. ok is false when details is empty. The numerically lowest
// PresenceState wins, except PresenceUnknown, which always loses to any
// other state; ties keep whichever detail was seen first.
func Reduce(details []model.Detail) (model.GlobalPresenceFields, bool) {
	var best model.PresenceFields
	found := false
	for _, d := range details {
		if d.Kind != model.KindPresence {
			continue
		}
		f, ok := d.Fields.(model.PresenceFields)
		if !ok {
			continue
		}
		if !found {
			best = f
			found = true
			continue
		}
		if best.PresenceState == model.PresenceUnknown && f.PresenceState != model.PresenceUnknown {
			best = f
			continue
		}
		if f.PresenceState != model.PresenceUnknown && f.PresenceState < best.PresenceState {
			best = f
		}
	}
	if !found {
		return model.GlobalPresenceFields{}, false
	}
	return model.GlobalPresenceFields{
		PresenceState: best.PresenceState,
		Timestamp:     best.Timestamp,
		Nickname:      best.Nickname,
		CustomMessage: best.CustomMessage,
	}, true
}
