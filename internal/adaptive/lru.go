package adaptive

import "container/list"

// #region lru
//
// No third-party LRU library appears anywhere in the retrieved example
// pack — the closest precedent is a hand-rolled generic LRUCache over
// container/list. recencyList follows that same shape but is
// intentionally unsynchronized: the Coordinator's single-writer lock
// already serializes every call into the adaptive layer (§5), so an
// internal mutex here would just be redundant locking.

// recencyList tracks least-recently-seen order for eviction. The map
// value is a *list.Element whose Value is the record key string;
// records themselves live in Layer.records, keyed the same way.
type recencyList struct {
	l   *list.List
	pos map[string]*list.Element
}

func newRecencyList() *recencyList {
	return &recencyList{l: list.New(), pos: make(map[string]*list.Element)}
}

// touch marks key as most-recently-used, inserting it if new.
func (r *recencyList) touch(key string) {
	if el, ok := r.pos[key]; ok {
		r.l.MoveToFront(el)
		return
	}
	el := r.l.PushFront(key)
	r.pos[key] = el
}

// evictLRU removes and returns the least-recently-used key, or "" if empty.
func (r *recencyList) evictLRU() string {
	back := r.l.Back()
	if back == nil {
		return ""
	}
	key := back.Value.(string)
	r.l.Remove(back)
	delete(r.pos, key)
	return key
}

func (r *recencyList) remove(key string) {
	if el, ok := r.pos[key]; ok {
		r.l.Remove(el)
		delete(r.pos, key)
	}
}

func (r *recencyList) len() int {
	return r.l.Len()
}

// #endregion lru
