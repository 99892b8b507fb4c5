package eviction

// lfuItem tracks how often a key was used and when it was last used, so ties
// between equally cold keys are broken by age instead of map iteration order.
type lfuItem struct {
	freq int
	tick uint64
}

type lfu struct {
	items map[string]*lfuItem
	clock uint64
}

func newLFU() *lfu {
	return &lfu{items: make(map[string]*lfuItem)}
}

func (l *lfu) next() uint64 {
	l.clock++
	return l.clock
}

func (l *lfu) Touch(key string) {
	if it, ok := l.items[key]; ok {
		it.freq++
		it.tick = l.next()
	}
}

func (l *lfu) Track(key string) {
	if it, ok := l.items[key]; ok {
		it.freq++
		it.tick = l.next()
		return
	}
	l.items[key] = &lfuItem{freq: 1, tick: l.next()}
}

func (l *lfu) Forget(key string) {
	delete(l.items, key)
}

// Victim scans for the coldest key. Namespaces are small (hundreds of
// packages), so a linear scan beats maintaining frequency buckets.
func (l *lfu) Victim() (string, bool) {
	var (
		victim string
		best   *lfuItem
	)
	for k, it := range l.items {
		if best == nil || it.freq < best.freq || (it.freq == best.freq && it.tick < best.tick) {
			victim, best = k, it
		}
	}
	if best == nil {
		return "", false
	}
	delete(l.items, victim)
	return victim, true
}

func (l *lfu) Len() int { return len(l.items) }
