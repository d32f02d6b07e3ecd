package app

import (
	"sort"
	"sync"

	"social_chat_sync/internal/chat/domain"
)

// ChangeListener called with the conversation whose view changed
type ChangeListener func(key domain.ConversationKey)

// Command one mutation of the Store. Commands only run inside Store.Apply.
type Command interface {
	apply(s *Store) []domain.ConversationKey
}

// retiredLimit bounds the retired provisional ids and the delete tombstones kept per store
const retiredLimit = 4096

// tombstone conversation and sequence of a removed record
type tombstone struct {
	key domain.ConversationKey
	seq uint64
}

// Store 本地訊息快取: ordered per-conversation views keyed by ConversationKey.
// Every mutation is serialized through one write lock.
type Store struct {
	actorID string

	mu      sync.RWMutex
	convs   map[domain.ConversationKey][]domain.Message
	index   map[string]domain.ConversationKey
	retired *idSet[struct{}]

	// seq orders mutations; touched holds the seq of the last insert or patch per id
	seq        uint64
	touched    map[string]uint64
	tombstones *idSet[tombstone]

	lmu       sync.Mutex
	listeners map[int]ChangeListener
	nextID    int
}

// NewStore create an empty store for the signed-in actor
func NewStore(actorID string) *Store {
	return &Store{
		actorID:   actorID,
		convs:     make(map[domain.ConversationKey][]domain.Message),
		index:     make(map[string]domain.ConversationKey),
		retired:    newIDSet[struct{}](retiredLimit),
		seq:        1,
		touched:    make(map[string]uint64),
		tombstones: newIDSet[tombstone](retiredLimit),
		listeners:  make(map[int]ChangeListener),
	}
}

// ActorID owner of the store
func (s *Store) ActorID() string {
	return s.actorID
}

// Apply runs cmd to completion under the write lock, then notifies listeners for each
// affected conversation. Returns false when the command changed nothing.
func (s *Store) Apply(cmd Command) bool {
	s.mu.Lock()
	affected := cmd.apply(s)
	s.mu.Unlock()

	if len(affected) == 0 {
		return false
	}
	s.notify(affected)
	return true
}

// OnChange registers fn; the returned func unregisters it
func (s *Store) OnChange(fn ChangeListener) func() {
	s.lmu.Lock()
	defer s.lmu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.lmu.Lock()
		defer s.lmu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(keys []domain.ConversationKey) {
	s.lmu.Lock()
	fns := make([]ChangeListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, key := range uniqueKeys(keys) {
		for _, fn := range fns {
			fn(key)
		}
	}
}

// Load copy of the ordered view; empty, non-nil when nothing is cached
func (s *Store) Load(key domain.ConversationKey) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := s.convs[key]
	out := make([]domain.Message, len(view))
	for i, m := range view {
		out[i] = m.Clone()
	}
	return out
}

// Get message by id
func (s *Store) Get(id string) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.index[id]
	if !ok {
		return domain.Message{}, false
	}
	i := s.position(key, id)
	if i < 0 {
		return domain.Message{}, false
	}
	return s.convs[key][i].Clone(), true
}

// Checkpoint current mutation sequence. Pass it to HydrateConversation so records that
// change while the listing is in flight are not rolled back.
func (s *Store) Checkpoint() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}

// ConversationOf conversation holding id
func (s *Store) ConversationOf(id string) (domain.ConversationKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.index[id]
	return key, ok
}

// UnreadInbound ids of canonical messages in key sent to actorID and not yet read
func (s *Store) UnreadInbound(key domain.ConversationKey, actorID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, m := range s.convs[key] {
		if m.SenderID == actorID || m.IsRead || m.IsProvisional() {
			continue
		}
		ids = append(ids, m.ID)
	}
	return ids
}

// Append inserts msg in order. No-op when the id is present or was retired.
func (s *Store) Append(msg domain.Message) bool {
	return s.Apply(appendOp{msg: msg})
}

// Replace swaps the provisional oldID for canonical
func (s *Store) Replace(oldID string, canonical domain.Message) bool {
	return s.Apply(ReconcileCanonical{ProvisionalID: oldID, Canonical: canonical})
}

// Patch merges patch into the record with id; no-op when absent
func (s *Store) Patch(id string, patch domain.MessagePatch) bool {
	return s.Apply(patchOp{id: id, patch: patch})
}

// Remove deletes id; no-op when absent
func (s *Store) Remove(id string) bool {
	return s.Apply(DeleteLocal{ID: id})
}

// --- primitives, caller holds s.mu ---

func (s *Store) position(key domain.ConversationKey, id string) int {
	for i, m := range s.convs[key] {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) insert(msg domain.Message) (domain.ConversationKey, bool) {
	if msg.ID == "" {
		return domain.ConversationKey{}, false
	}
	if _, ok := s.index[msg.ID]; ok {
		return domain.ConversationKey{}, false
	}
	if s.retired.has(msg.ID) {
		return domain.ConversationKey{}, false
	}

	key := KeyFor(msg, s.actorID)
	view := s.convs[key]
	msg = msg.Clone()

	i := sort.Search(len(view), func(i int) bool {
		return domain.Less(msg, view[i])
	})
	view = append(view, domain.Message{})
	copy(view[i+1:], view[i:])
	view[i] = msg

	s.convs[key] = view
	s.index[msg.ID] = key
	s.touch(msg.ID)
	return key, true
}

func (s *Store) remove(id string) (domain.ConversationKey, bool) {
	key, ok := s.index[id]
	if !ok {
		return domain.ConversationKey{}, false
	}
	i := s.position(key, id)
	delete(s.index, id)
	delete(s.touched, id)
	if i < 0 {
		return key, false
	}

	view := s.convs[key]
	s.convs[key] = append(view[:i], view[i+1:]...)
	return key, true
}

func (s *Store) patch(id string, p domain.MessagePatch) (domain.ConversationKey, bool) {
	if p.IsEmpty() {
		return domain.ConversationKey{}, false
	}
	key, ok := s.index[id]
	if !ok {
		return domain.ConversationKey{}, false
	}
	i := s.position(key, id)
	if i < 0 {
		return domain.ConversationKey{}, false
	}
	p.Apply(&s.convs[key][i])
	s.touch(id)
	return key, true
}

func (s *Store) touch(id string) {
	s.seq++
	s.touched[id] = s.seq
}

// drop removes id and leaves a tombstone so an in-flight listing cannot bring it back
func (s *Store) drop(id string) (domain.ConversationKey, bool) {
	key, ok := s.remove(id)
	if ok {
		s.seq++
		s.tombstones.put(id, tombstone{key: key, seq: s.seq})
	}
	return key, ok
}

// overwrite replaces the record holding canonical.ID in place, re-sorting if the
// timestamp moved
func (s *Store) overwrite(canonical domain.Message) (domain.ConversationKey, bool) {
	key, ok := s.remove(canonical.ID)
	if !ok {
		return domain.ConversationKey{}, false
	}
	s.insert(canonical)
	return key, true
}

func uniqueKeys(keys []domain.ConversationKey) []domain.ConversationKey {
	seen := make(map[domain.ConversationKey]struct{}, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func affected(key domain.ConversationKey, ok bool) []domain.ConversationKey {
	if !ok {
		return nil
	}
	return []domain.ConversationKey{key}
}

// --- commands ---

type appendOp struct {
	msg domain.Message
}

func (c appendOp) apply(s *Store) []domain.ConversationKey {
	return affected(s.insert(c.msg))
}

type patchOp struct {
	id    string
	patch domain.MessagePatch
}

func (c patchOp) apply(s *Store) []domain.ConversationKey {
	return affected(s.patch(c.id, c.patch))
}

// SendCommand appends an optimistic provisional record
type SendCommand struct {
	Message domain.Message
}

func (c SendCommand) apply(s *Store) []domain.ConversationKey {
	if !c.Message.IsProvisional() {
		return nil
	}
	return affected(s.insert(c.Message))
}

// ReconcileCanonical replaces a provisional record with the persisted one.
// The provisional id is retired. If the stream already delivered the canonical id the
// existing record is overwritten so exactly one copy remains.
type ReconcileCanonical struct {
	ProvisionalID string
	Canonical     domain.Message
}

func (c ReconcileCanonical) apply(s *Store) []domain.ConversationKey {
	var keys []domain.ConversationKey

	if key, ok := s.remove(c.ProvisionalID); ok {
		keys = append(keys, key)
	}
	if domain.IsProvisionalID(c.ProvisionalID) {
		s.retired.put(c.ProvisionalID, struct{}{})
	}

	if existing, ok := s.index[c.Canonical.ID]; ok {
		i := s.position(existing, c.Canonical.ID)
		canonical := c.Canonical
		if i >= 0 && s.convs[existing][i].IsRead {
			// stream already reported the read receipt
			canonical.IsRead = true
			canonical.Status = domain.StatusRead
		}
		if key, ok := s.overwrite(canonical); ok {
			keys = append(keys, key)
		}
		return keys
	}

	if key, ok := s.insert(c.Canonical); ok {
		keys = append(keys, key)
	}
	return keys
}

// DiscardProvisional rolls back a failed send. The id is retired.
type DiscardProvisional struct {
	ProvisionalID string
}

func (c DiscardProvisional) apply(s *Store) []domain.ConversationKey {
	if !domain.IsProvisionalID(c.ProvisionalID) {
		return nil
	}
	s.retired.put(c.ProvisionalID, struct{}{})
	return affected(s.remove(c.ProvisionalID))
}

// ApplyRemoteInsert record observed on the stream; status is derived when empty
type ApplyRemoteInsert struct {
	Message domain.Message
}

func (c ApplyRemoteInsert) apply(s *Store) []domain.ConversationKey {
	msg := c.Message
	if msg.Status == "" {
		msg.Status = domain.DeriveStatus(msg, s.actorID)
	}
	return affected(s.insert(msg))
}

// ApplyRemoteUpdate merges a stream update into an existing record
type ApplyRemoteUpdate struct {
	ID    string
	Patch domain.MessagePatch
}

func (c ApplyRemoteUpdate) apply(s *Store) []domain.ConversationKey {
	return affected(s.patch(c.ID, c.Patch))
}

// ApplyRemoteDelete removes a record deleted elsewhere
type ApplyRemoteDelete struct {
	ID string
}

func (c ApplyRemoteDelete) apply(s *Store) []domain.ConversationKey {
	return affected(s.drop(c.ID))
}

// DeleteLocal removes a record after the backend confirmed the delete
type DeleteLocal struct {
	ID string
}

func (c DeleteLocal) apply(s *Store) []domain.ConversationKey {
	return affected(s.drop(c.ID))
}

// ToggleReaction applies a reaction map the backend accepted
type ToggleReaction struct {
	ID        string
	Reactions domain.Reactions
}

func (c ToggleReaction) apply(s *Store) []domain.ConversationKey {
	reactions := c.Reactions
	if reactions == nil {
		reactions = domain.Reactions{}
	}
	return affected(s.patch(c.ID, domain.MessagePatch{Reactions: reactions}))
}

// MarkRead flags ids read; already-read records are left alone
type MarkRead struct {
	IDs []string
}

func (c MarkRead) apply(s *Store) []domain.ConversationKey {
	var keys []domain.ConversationKey
	for _, id := range c.IDs {
		key, ok := s.index[id]
		if !ok {
			continue
		}
		i := s.position(key, id)
		if i < 0 || s.convs[key][i].IsRead {
			continue
		}
		if key, ok := s.patch(id, domain.ReadPatch()); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// HydrateConversation replaces the canonical records of Key with a persisted listing.
// Provisional records still in flight are kept. With a non-zero Checkpoint, records
// inserted, patched or deleted locally after the checkpoint win over the listing.
type HydrateConversation struct {
	Key        domain.ConversationKey
	Messages   []domain.Message
	Checkpoint uint64
}

func (c HydrateConversation) apply(s *Store) []domain.ConversationKey {
	newer := func(seq uint64) bool {
		return c.Checkpoint > 0 && seq > c.Checkpoint
	}

	cached := append([]domain.Message(nil), s.convs[c.Key]...)
	for _, m := range cached {
		if m.IsProvisional() || newer(s.touched[m.ID]) {
			continue
		}
		s.remove(m.ID)
	}

	for _, m := range c.Messages {
		if m.IsProvisional() || KeyFor(m, s.actorID) != c.Key {
			continue
		}
		if t, ok := s.tombstones.get(m.ID); ok && newer(t.seq) {
			// 列表送出後才刪除
			continue
		}
		if m.Status == "" {
			m.Status = domain.DeriveStatus(m, s.actorID)
		}
		s.insert(m)
	}

	if _, ok := s.convs[c.Key]; !ok {
		// mark as hydrated even when empty
		s.convs[c.Key] = []domain.Message{}
	}
	s.tombstones.removeIf(func(_ string, t tombstone) bool {
		return t.key == c.Key
	})
	return []domain.ConversationKey{c.Key}
}
