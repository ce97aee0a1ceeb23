package availability

import (
	"github.com/clinicdesk/clinicdesk/pkg/timeofday"
)

// GenerateSlots walks each work window in the order given, stepping by
// step minutes. A slot is emitted only when the full step fits before the
// window's end, so a trailing partial slot is dropped. Windows marked
// unavailable still produce slots, carrying the flag for the resolver.
func GenerateSlots(windows []WorkWindow, step int) []Slot {
	if step <= 0 {
		return nil
	}
	var slots []Slot
	for _, w := range windows {
		cur := w.Start
		for {
			end := cur.Add(step)
			if end.After(w.End) {
				break
			}
			slots = append(slots, Slot{Start: cur, End: end, Available: w.Available})
			cur = end
		}
	}
	return slots
}

// Resolve marks each candidate slot's final availability: a slot stays
// available only if its template flag allows it, no open booking holds
// its start time, and, when resolving today's schedule, its start is
// still in the future. Deterministic for identical inputs.
func Resolve(slots []Slot, booked map[string]bool, sameDay bool, now timeofday.TimeOfDay) []Slot {
	resolved := make([]Slot, len(slots))
	for i, sl := range slots {
		available := sl.Available
		if available && booked[sl.Start.String()] {
			available = false
		}
		if available && sameDay && !sl.Start.After(now) {
			available = false
		}
		resolved[i] = Slot{Start: sl.Start, End: sl.End, Available: available}
	}
	return resolved
}
