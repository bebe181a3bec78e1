package web

// calcDiff compares the freshly loaded objects with the session's last
// seen state: objects that are new or changed go to set, objects gone
// from the fresh list go to deleted. The state map is replaced with the
// fresh view.
func calcDiff[T any](fresh []T, state map[string]T, key func(T) string, equal func(a, b T) bool) (set, deleted []T) {
	next := make(map[string]T, len(fresh))
	for _, obj := range fresh {
		k := key(obj)
		next[k] = obj
		if prev, ok := state[k]; !ok || !equal(prev, obj) {
			set = append(set, obj)
		}
	}
	for k, obj := range state {
		if _, ok := next[k]; !ok {
			deleted = append(deleted, obj)
		}
		delete(state, k)
	}
	for k, obj := range next {
		state[k] = obj
	}
	return set, deleted
}
