package app

// idSet 有上限的 id 集合，超過上限時先進先出淘汰
type idSet[V any] struct {
	limit int
	items map[string]V
	order []string
}

func newIDSet[V any](limit int) *idSet[V] {
	return &idSet[V]{
		limit: limit,
		items: make(map[string]V),
	}
}

func (b *idSet[V]) get(id string) (V, bool) {
	v, ok := b.items[id]
	return v, ok
}

func (b *idSet[V]) has(id string) bool {
	_, ok := b.items[id]
	return ok
}

func (b *idSet[V]) put(id string, v V) {
	if _, ok := b.items[id]; !ok {
		b.order = append(b.order, id)
	}
	b.items[id] = v

	for len(b.items) > b.limit && len(b.order) > 0 {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.items, oldest)
	}
	if len(b.order) > 2*b.limit {
		b.compact()
	}
}

func (b *idSet[V]) remove(id string) {
	delete(b.items, id)
	if len(b.order) > 2*b.limit {
		b.compact()
	}
}

// removeIf drops every entry matching fn
func (b *idSet[V]) removeIf(fn func(id string, v V) bool) {
	for id, v := range b.items {
		if fn(id, v) {
			delete(b.items, id)
		}
	}
	b.compact()
}

func (b *idSet[V]) len() int {
	return len(b.items)
}

// compact drops order entries whose item is gone, keeping the latest position of each id
func (b *idSet[V]) compact() {
	seen := make(map[string]struct{}, len(b.items))
	kept := make([]string, 0, len(b.items))
	for i := len(b.order) - 1; i >= 0; i-- {
		id := b.order[i]
		if _, ok := b.items[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		kept = append(kept, id)
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	b.order = kept
}
