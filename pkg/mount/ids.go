package mount

// nextID returns the id for a new config: 1 for an empty scope, otherwise one
// above the highest live id.
//
// Freed ids below the maximum are never reused, but once the highest config
// is removed its id becomes available again: after adding 1 and 2 and
// removing 2, the next id is 2, not 3. Two processes adding to the same
// scope concurrently can compute the same id; the legacy format offers no
// way to prevent that.
func nextID(configs map[int]*MountConfig) int {
	highest := 0
	for id := range configs {
		if id > highest {
			highest = id
		}
	}
	return highest + 1
}
