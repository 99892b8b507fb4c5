package eviction

// lruNode is one key in the recency list. head is the most recent use.
type lruNode struct {
	key        string
	prev, next *lruNode
}

type lru struct {
	nodes      map[string]*lruNode
	head, tail *lruNode
}

func newLRU() *lru {
	return &lru{nodes: make(map[string]*lruNode)}
}

func (l *lru) Touch(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		l.pushFront(n)
	}
}

func (l *lru) Track(key string) {
	if n, ok := l.nodes[key]; ok {
		// A rewrite is a use.
		l.unlink(n)
		l.pushFront(n)
		return
	}
	n := &lruNode{key: key}
	l.nodes[key] = n
	l.pushFront(n)
}

func (l *lru) Forget(key string) {
	if n, ok := l.nodes[key]; ok {
		l.unlink(n)
		delete(l.nodes, key)
	}
}

func (l *lru) Victim() (string, bool) {
	if l.tail == nil {
		return "", false
	}
	k := l.tail.key
	l.Forget(k)
	return k, true
}

func (l *lru) Len() int { return len(l.nodes) }

func (l *lru) pushFront(n *lruNode) {
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

func (l *lru) unlink(n *lruNode) {
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
