package cache

// evictor maintains the per-policy ordering metadata for the memory tier
// and selects victims under capacity pressure. The memory tier calls it
// while holding its own lock; evictors do no locking of their own.
//
// Invariant: after any completed operation the evictor's tracked key set
// equals the entry map's key set exactly.
type evictor interface {
	// recordGet notes a successful lookup of key.
	recordGet(key string)

	// recordPut notes an insert or overwrite of key.
	recordPut(key string)

	// forget drops all bookkeeping for key (explicit delete or expiry).
	forget(key string)

	// victim selects the key to evict. Returns false when nothing is
	// tracked; choosing a victim must never fail otherwise.
	victim() (string, bool)
}

func newEvictor(p EvictionPolicy) evictor {
	switch p {
	case PolicyFIFO:
		return newFIFOEvictor()
	case PolicyLFU:
		return newLFUEvictor()
	default:
		return newLRUEvictor()
	}
}

// lruNode is one key in the recency list.
type lruNode struct {
	key        string
	prev, next *lruNode
}

// lruEvictor keeps a doubly-linked recency list: head is most recently
// used, tail is the victim.
type lruEvictor struct {
	nodes map[string]*lruNode
	head  *lruNode
	tail  *lruNode
}

func newLRUEvictor() *lruEvictor {
	return &lruEvictor{nodes: make(map[string]*lruNode)}
}

func (l *lruEvictor) recordGet(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		l.pushFront(n)
	}
}

// recordPut treats an overwrite as a touch: an existing key moves to the
// front just like a lookup does.
func (l *lruEvictor) recordPut(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		l.pushFront(n)
		return
	}
	n := &lruNode{key: key}
	l.nodes[key] = n
	l.pushFront(n)
}

func (l *lruEvictor) forget(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		delete(l.nodes, key)
	}
}

func (l *lruEvictor) victim() (string, bool) {
	if l.tail == nil {
		return "", false
	}
	return l.tail.key, true
}

func (l *lruEvictor) pushFront(n *lruNode) {
	n.prev = nil
	n.next = l.head
	if l.head != nil {
		l.head.prev = n
	}
	l.head = n
	if l.tail == nil {
		l.tail = n
	}
}

func (l *lruEvictor) unlink(n *lruNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// fifoEvictor tracks insertion order. Overwriting an existing key does
// NOT reset its queue position; only the first insertion counts.
type fifoEvictor struct {
	queue []string
	seen  map[string]struct{}
}

func newFIFOEvictor() *fifoEvictor {
	return &fifoEvictor{seen: make(map[string]struct{})}
}

func (f *fifoEvictor) recordGet(string) {}

func (f *fifoEvictor) recordPut(key string) {
	if _, ok := f.seen[key]; ok {
		return
	}
	f.queue = append(f.queue, key)
	f.seen[key] = struct{}{}
}

func (f *fifoEvictor) forget(key string) {
	if _, ok := f.seen[key]; !ok {
		return
	}
	delete(f.seen, key)
	for i, k := range f.queue {
		if k == key {
			f.queue = append(f.queue[:i], f.queue[i+1:]...)
			break
		}
	}
}

func (f *fifoEvictor) victim() (string, bool) {
	if len(f.queue) == 0 {
		return "", false
	}
	return f.queue[0], true
}

// lfuEvictor counts hits per key. The victim is the key with the minimum
// hit count, found by a full scan in insertion order, so ties always break
// toward the key inserted first. The linear scan matches the observable
// tie-break contract; capacity bounds keep it cheap.
type lfuEvictor struct {
	order []string
	hits  map[string]uint64
}

func newLFUEvictor() *lfuEvictor {
	return &lfuEvictor{hits: make(map[string]uint64)}
}

func (l *lfuEvictor) recordGet(key string) {
	if _, ok := l.hits[key]; ok {
		l.hits[key]++
	}
}

// recordPut starts a fresh entry at zero hits. An overwrite resets the
// count (the entry is new) but keeps the insertion-order position.
func (l *lfuEvictor) recordPut(key string) {
	if _, ok := l.hits[key]; ok {
		l.hits[key] = 0
		return
	}
	l.order = append(l.order, key)
	l.hits[key] = 0
}

func (l *lfuEvictor) forget(key string) {
	if _, ok := l.hits[key]; !ok {
		return
	}
	delete(l.hits, key)
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func (l *lfuEvictor) victim() (string, bool) {
	if len(l.order) == 0 {
		return "", false
	}
	minKey := l.order[0]
	minHits := l.hits[minKey]
	for _, k := range l.order[1:] {
		if l.hits[k] < minHits {
			minKey, minHits = k, l.hits[k]
		}
	}
	return minKey, true
}
