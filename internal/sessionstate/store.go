package sessionstate

import (
	"container/list"
	"sync"
)

// chatState is everything the bot remembers about one chat
type chatState struct {
	chatID int64

	// lastImage is the most recent user-sent photo
	lastImage []byte

	// lastGenerated is the most recent bot-produced image
	lastGenerated []byte

	// groups accumulates photos of media groups by group ID;
	// lastGroupID names the most recently touched group
	groups      map[string][][]byte
	lastGroupID string
}

// Store keeps per-chat image context with last-write-wins semantics.
// Chats never share state. The store is bounded: when a new chat would
// exceed the cap, the least recently touched chat is evicted wholesale.
type Store struct {
	mu       sync.Mutex
	maxChats int
	chats    map[int64]*list.Element
	order    *list.List // front = most recently touched
}

func New(maxChats int) *Store {
	if maxChats <= 0 {
		maxChats = 1
	}
	return &Store{
		maxChats: maxChats,
		chats:    make(map[int64]*list.Element),
		order:    list.New(),
	}
}

// RememberImage stores the last user-sent photo for a chat
func (s *Store) RememberImage(chatID int64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(chatID).lastImage = data
}

// LastImage returns the last user-sent photo, if any
func (s *Store) LastImage(chatID int64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.peek(chatID)
	if !ok || state.lastImage == nil {
		return nil, false
	}
	return state.lastImage, true
}

// RememberGenerated stores the last bot-produced image for a chat
func (s *Store) RememberGenerated(chatID int64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch(chatID).lastGenerated = data
}

// LastGenerated returns the last bot-produced image, if any
func (s *Store) LastGenerated(chatID int64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.peek(chatID)
	if !ok || state.lastGenerated == nil {
		return nil, false
	}
	return state.lastGenerated, true
}

// AppendGroupImage accumulates one photo of a media group
func (s *Store) AppendGroupImage(chatID int64, groupID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.touch(chatID)
	if state.groups == nil {
		state.groups = make(map[string][][]byte)
	}
	state.groups[groupID] = append(state.groups[groupID], data)
	state.lastGroupID = groupID
}

// LatestGroupImages returns the photos of the most recently touched
// media group for a chat
func (s *Store) LatestGroupImages(chatID int64) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.peek(chatID)
	if !ok || state.groups == nil || state.lastGroupID == "" {
		return nil
	}
	return state.groups[state.lastGroupID]
}

// TakeGroupImages returns and clears the accumulated photos of a media group
func (s *Store) TakeGroupImages(chatID int64, groupID string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.peek(chatID)
	if !ok || state.groups == nil {
		return nil
	}
	images := state.groups[groupID]
	delete(state.groups, groupID)
	return images
}

// GroupImages returns the photos accumulated so far without clearing them
func (s *Store) GroupImages(chatID int64, groupID string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.peek(chatID)
	if !ok || state.groups == nil {
		return nil
	}
	return state.groups[groupID]
}

// touch returns the chat's state, creating it and evicting the coldest
// chat when the cap is hit. Callers must hold the lock.
func (s *Store) touch(chatID int64) *chatState {
	if elem, ok := s.chats[chatID]; ok {
		s.order.MoveToFront(elem)
		return elem.Value.(*chatState)
	}

	if s.order.Len() >= s.maxChats {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.chats, oldest.Value.(*chatState).chatID)
		}
	}

	state := &chatState{chatID: chatID}
	s.chats[chatID] = s.order.PushFront(state)
	return state
}

func (s *Store) peek(chatID int64) (*chatState, bool) {
	elem, ok := s.chats[chatID]
	if !ok {
		return nil, false
	}
	s.order.MoveToFront(elem)
	return elem.Value.(*chatState), true
}
