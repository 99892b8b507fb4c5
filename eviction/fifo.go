package eviction

type fifo struct {
	// order holds keys oldest first. Forgotten keys are removed eagerly so
	// order and set always agree.
	order []string
	set   map[string]struct{}
}

func newFIFO() *fifo {
	return &fifo{set: make(map[string]struct{})}
}

// Touch is ignored: FIFO only cares about insertion order.
func (f *fifo) Touch(string) {}

// Track keeps the original insertion position of a rewritten key.
func (f *fifo) Track(key string) {
	if _, ok := f.set[key]; ok {
		return
	}
	f.order = append(f.order, key)
	f.set[key] = struct{}{}
}

func (f *fifo) Forget(key string) {
	if _, ok := f.set[key]; !ok {
		return
	}
	delete(f.set, key)
	for i, k := range f.order {
		if k == key {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func (f *fifo) Victim() (string, bool) {
	if len(f.order) == 0 {
		return "", false
	}
	k := f.order[0]
	f.order = f.order[1:]
	delete(f.set, k)
	return k, true
}

func (f *fifo) Len() int { return len(f.order) }
