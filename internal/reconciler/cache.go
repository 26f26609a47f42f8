package reconciler

// eventCache holds the last-seen generation and serialized status snapshot
// per resource name.
//
// Entries are created by Added events, updated by Modified events and
// removed by Deleted events, so an entry exists exactly while the resource is
// known to the watch. All access happens inside serializer-protected
// sections; the cache itself carries no locking.
type eventCache struct {
	generations map[string]int64
	statuses    map[string][]byte
}

func newEventCache() *eventCache {
	return &eventCache{
		generations: make(map[string]int64),
		statuses:    make(map[string][]byte),
	}
}

// observeAdded records the generation seen on an Added event.
func (c *eventCache) observeAdded(name string, generation int64) {
	c.generations[name] = generation
}

// generation returns the cached generation and whether the name is known.
func (c *eventCache) generation(name string) (int64, bool) {
	gen, ok := c.generations[name]
	return gen, ok
}

// setGeneration updates the cached generation for a known name.
func (c *eventCache) setGeneration(name string, generation int64) {
	c.generations[name] = generation
}

// status returns the cached serialized status snapshot, nil if none.
func (c *eventCache) status(name string) []byte {
	return c.statuses[name]
}

// setStatus replaces the cached status snapshot.
func (c *eventCache) setStatus(name string, snapshot []byte) {
	c.statuses[name] = snapshot
}

// remove drops both cache entries for the name.
func (c *eventCache) remove(name string) {
	delete(c.generations, name)
	delete(c.statuses, name)
}

// contains reports whether an entry exists for the name.
func (c *eventCache) contains(name string) bool {
	_, ok := c.generations[name]
	return ok
}

// len returns the number of tracked resources.
func (c *eventCache) len() int {
	return len(c.generations)
}

// reset drops all entries. Used between leadership generations so a fresh
// promotion re-observes the world from scratch.
func (c *eventCache) reset() {
	c.generations = make(map[string]int64)
	c.statuses = make(map[string][]byte)
}
