package domain

import "sort"

// Reactions emoji -> set of actor ids. Sets are kept sorted and deduplicated.
type Reactions map[string][]string

// NormalizeReactions dedupes every set and drops empty keys. nil stays nil.
func NormalizeReactions(raw map[string][]string) Reactions {
	if raw == nil {
		return nil
	}
	out := make(Reactions, len(raw))
	for emoji, actors := range raw {
		set := dedupe(actors)
		if len(set) == 0 {
			continue
		}
		out[emoji] = set
	}
	return out
}

// Clone deep copy
func (r Reactions) Clone() Reactions {
	if r == nil {
		return nil
	}
	out := make(Reactions, len(r))
	for emoji, actors := range r {
		out[emoji] = append([]string(nil), actors...)
	}
	return out
}

// Has actor reacted with emoji
func (r Reactions) Has(emoji, actorID string) bool {
	for _, a := range r[emoji] {
		if a == actorID {
			return true
		}
	}
	return false
}

// Toggle returns a new map with actorID removed from (or added to) the emoji set.
// An emoji whose set becomes empty is removed. Toggle is its own inverse.
func (r Reactions) Toggle(emoji, actorID string) Reactions {
	out := r.Clone()
	if out == nil {
		out = Reactions{}
	}

	if !r.Has(emoji, actorID) {
		out[emoji] = dedupe(append(out[emoji], actorID))
		return out
	}

	kept := make([]string, 0, len(out[emoji]))
	for _, a := range out[emoji] {
		if a != actorID {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		delete(out, emoji)
	} else {
		out[emoji] = kept
	}
	return out
}

func dedupe(actors []string) []string {
	seen := make(map[string]struct{}, len(actors))
	out := make([]string, 0, len(actors))
	for _, a := range actors {
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
