package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wooahyo/internal/model"
	"github.com/wooahyo/internal/repository"
)

// memStore is an in-memory implementation of every store interface, used to
// exercise the services without a database.
type memStore struct {
	mu        sync.Mutex
	posts     map[string]*model.Post
	rooms     map[string]*model.ChatRoom
	messages  []*model.Message
	reviews   []*model.Review
	bookmarks map[string]model.Bookmark
	profiles  map[string]*model.Profile
	openChats map[string]*model.OpenChat

	// afterGetPost runs after PostStore.GetByID returns, letting tests
	// interleave a concurrent transition between read and compare-and-swap.
	afterGetPost func()
}

func newMemStore() *memStore {
	return &memStore{
		posts:     make(map[string]*model.Post),
		rooms:     make(map[string]*model.ChatRoom),
		bookmarks: make(map[string]model.Bookmark),
		profiles:  make(map[string]*model.Profile),
		openChats: make(map[string]*model.OpenChat),
	}
}

// --- PostStore ---

func (s *memStore) Create(ctx context.Context, p *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.posts[p.ID] = &cp
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*model.Post, error) {
	s.mu.Lock()
	p, ok := s.posts[id]
	var cp model.Post
	if ok {
		cp = *p
	}
	s.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.afterGetPost != nil {
		s.afterGetPost()
	}
	return &cp, nil
}

func (s *memStore) Update(ctx context.Context, p *model.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	s.posts[p.ID] = &cp
	return nil
}

func (s *memStore) UpdateStatus(ctx context.Context, id string, from, to model.PostStatus, buyerID *string, completedAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok || p.Status != from || p.IsHidden {
		return false, nil
	}
	p.Status = to
	p.BuyerID = buyerID
	p.CompletedAt = completedAt
	p.UpdatedAt = time.Now()
	return true, nil
}

func (s *memStore) Hide(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[id]; ok {
		p.IsHidden = true
	}
	return nil
}

func (s *memStore) IncrementViewCount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[id]; ok {
		p.ViewCount++
	}
	return nil
}

func (s *memStore) IncrementChatCount(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[id]; ok {
		p.ChatCount++
	}
	return nil
}

func (s *memStore) AddBookmarkCount(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[id]; ok {
		p.BookmarkCount += delta
		if p.BookmarkCount < 0 {
			p.BookmarkCount = 0
		}
	}
	return nil
}

func (s *memStore) ListByApartment(ctx context.Context, apartmentID string, limit int) ([]model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Post
	for _, p := range s.posts {
		if p.ApartmentID == apartmentID && !p.IsHidden {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- RoomStore ---

func (s *memStore) CreateRoom(ctx context.Context, c *model.ChatRoom) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if c.PostID != nil && r.PostID != nil && *r.PostID == *c.PostID && r.BuyerID == c.BuyerID {
			return errors.New("duplicate room")
		}
		if c.OpenChatID != nil && r.OpenChatID != nil && *r.OpenChatID == *c.OpenChatID && r.BuyerID == c.BuyerID {
			return errors.New("duplicate room")
		}
	}
	cp := *c
	s.rooms[c.ID] = &cp
	return nil
}

func (s *memStore) GetRoom(ctx context.Context, id string) (*model.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) FindByPostBuyer(ctx context.Context, postID, buyerID string) (*model.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.PostID != nil && *r.PostID == postID && r.BuyerID == buyerID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) FindByOpenChatBuyer(ctx context.Context, openChatID, buyerID string) (*model.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.OpenChatID != nil && *r.OpenChatID == openChatID && r.BuyerID == buyerID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) ListForUser(ctx context.Context, userID string) ([]model.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ChatRoom
	for _, r := range s.rooms {
		if r.IsActive && (r.BuyerID == userID || r.SellerID == userID) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *memStore) SetLastRead(ctx context.Context, roomID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	switch userID {
	case r.BuyerID:
		r.BuyerLastReadAt = &at
	case r.SellerID:
		r.SellerLastReadAt = &at
	}
	return nil
}

func (s *memStore) Touch(ctx context.Context, roomID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[roomID]; ok {
		r.UpdatedAt = at
	}
	return nil
}

func (s *memStore) DeactivateForOpenChat(ctx context.Context, openChatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.OpenChatID != nil && *r.OpenChatID == openChatID {
			r.IsActive = false
		}
	}
	return nil
}

func (s *memStore) unreadLocked(roomID, userID string) int {
	r, ok := s.rooms[roomID]
	if !ok || !r.HasParticipant(userID) {
		return 0
	}
	since := r.LastReadOf(userID)
	n := 0
	for _, m := range s.messages {
		if m.ChatRoomID != roomID || m.SenderID == userID {
			continue
		}
		if since == nil || m.CreatedAt.After(*since) {
			n++
		}
	}
	return n
}

func (s *memStore) UnreadCount(ctx context.Context, roomID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadLocked(roomID, userID), nil
}

func (s *memStore) UnreadByRoom(ctx context.Context, userID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int)
	for id, r := range s.rooms {
		if !r.IsActive || !r.HasParticipant(userID) {
			continue
		}
		if n := s.unreadLocked(id, userID); n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}

// --- MessageStore ---

func (s *memStore) CreateMessage(ctx context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ClientKey != nil {
		for _, prev := range s.messages {
			if prev.ChatRoomID == m.ChatRoomID && prev.ClientKey != nil && *prev.ClientKey == *m.ClientKey {
				return errors.New("duplicate client key")
			}
		}
	}
	cp := *m
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *memStore) GetByClientKey(ctx context.Context, roomID, clientKey string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ChatRoomID == roomID && m.ClientKey != nil && *m.ClientKey == clientKey {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memStore) ListAsc(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.messages {
		if m.ChatRoomID == roomID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) Last(ctx context.Context, roomID string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *model.Message
	for _, m := range s.messages {
		if m.ChatRoomID == roomID && (last == nil || m.CreatedAt.After(last.CreatedAt)) {
			last = m
		}
	}
	if last == nil {
		return nil, repository.ErrNotFound
	}
	cp := *last
	return &cp, nil
}

// --- ReviewStore ---

func (s *memStore) CreateReview(ctx context.Context, rv *model.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rv
	s.reviews = append(s.reviews, &cp)
	return nil
}

func (s *memStore) Exists(ctx context.Context, postID, reviewerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rv := range s.reviews {
		if rv.PostID == postID && rv.ReviewerID == reviewerID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ListForReviewee(ctx context.Context, revieweeID string) ([]model.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Review
	for _, rv := range s.reviews {
		if rv.RevieweeID == revieweeID {
			out = append(out, *rv)
		}
	}
	return out, nil
}

// --- BookmarkStore ---

func (s *memStore) Add(ctx context.Context, b *model.Bookmark) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := b.UserID + "|" + b.PostID
	if _, ok := s.bookmarks[key]; ok {
		return false, nil
	}
	s.bookmarks[key] = *b
	return true, nil
}

func (s *memStore) Remove(ctx context.Context, userID, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userID + "|" + postID
	if _, ok := s.bookmarks[key]; !ok {
		return false, nil
	}
	delete(s.bookmarks, key)
	return true, nil
}

func (s *memStore) bookmarkExists(ctx context.Context, userID, postID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bookmarks[userID+"|"+postID]
	return ok, nil
}

// --- ProfileStore ---

func (s *memStore) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) Upsert(ctx context.Context, p *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.ID] = &cp
	return nil
}

// --- OpenChatStore ---

func (s *memStore) CreateOpenChat(ctx context.Context, oc *model.OpenChat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *oc
	s.openChats[oc.ID] = &cp
	return nil
}

func (s *memStore) GetOpenChat(ctx context.Context, id string) (*model.OpenChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	oc, ok := s.openChats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *oc
	return &cp, nil
}

func (s *memStore) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if oc, ok := s.openChats[id]; ok {
		oc.IsActive = false
	}
	return nil
}

func (s *memStore) IncrementOpenChatViews(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if oc, ok := s.openChats[id]; ok {
		oc.ViewCount++
	}
	return nil
}

func (s *memStore) ListOpenChats(ctx context.Context, apartmentID string, limit int) ([]model.OpenChat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.OpenChat
	for _, oc := range s.openChats {
		if oc.ApartmentID == apartmentID && oc.IsActive {
			out = append(out, *oc)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Per-interface views over memStore. The store interfaces reuse method names
// (Create, GetByID, Exists), so each view renames where needed.

type memRooms struct{ *memStore }

func (f memRooms) Create(ctx context.Context, c *model.ChatRoom) error { return f.CreateRoom(ctx, c) }
func (f memRooms) GetByID(ctx context.Context, id string) (*model.ChatRoom, error) {
	return f.GetRoom(ctx, id)
}

type memMessages struct{ *memStore }

func (f memMessages) Create(ctx context.Context, m *model.Message) error {
	return f.CreateMessage(ctx, m)
}

type memReviews struct{ *memStore }

func (f memReviews) Create(ctx context.Context, rv *model.Review) error {
	return f.CreateReview(ctx, rv)
}

type memBookmarks struct{ *memStore }

func (f memBookmarks) Exists(ctx context.Context, userID, postID string) (bool, error) {
	return f.bookmarkExists(ctx, userID, postID)
}

type memProfiles struct{ *memStore }

func (f memProfiles) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return f.GetProfile(ctx, id)
}

type memOpenChats struct{ *memStore }

func (f memOpenChats) Create(ctx context.Context, oc *model.OpenChat) error {
	return f.CreateOpenChat(ctx, oc)
}
func (f memOpenChats) GetByID(ctx context.Context, id string) (*model.OpenChat, error) {
	return f.GetOpenChat(ctx, id)
}
func (f memOpenChats) IncrementViewCount(ctx context.Context, id string) error {
	return f.IncrementOpenChatViews(ctx, id)
}
func (f memOpenChats) ListByApartment(ctx context.Context, apartmentID string, limit int) ([]model.OpenChat, error) {
	return f.ListOpenChats(ctx, apartmentID, limit)
}

// fakeClock hands out strictly increasing timestamps so message ordering and
// read stamps are deterministic.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// fixture wires every service over one shared memStore.
type fixture struct {
	store        *memStore
	clock        *fakeClock
	posts        *Posts
	transactions *Transactions
	rooms        *Rooms
	messages     *Messages
	reviews      *Reviews
	openChats    *OpenChats
}

func newFixture() *fixture {
	st := newMemStore()
	clock := newFakeClock()

	messages := NewMessages(memMessages{st}, memRooms{st})
	messages.now = clock.Now

	rooms := NewRooms(memRooms{st}, st, memOpenChats{st}, memProfiles{st}, messages)
	rooms.now = clock.Now

	transactions := NewTransactions(st)
	transactions.now = clock.Now

	reviews := NewReviews(memReviews{st}, st)
	reviews.now = clock.Now

	openChats := NewOpenChats(memOpenChats{st}, memRooms{st}, messages)
	openChats.now = clock.Now

	posts := NewPosts(st, memBookmarks{st})
	posts.now = clock.Now

	return &fixture{
		store:        st,
		clock:        clock,
		posts:        posts,
		transactions: transactions,
		rooms:        rooms,
		messages:     messages,
		reviews:      reviews,
		openChats:    openChats,
	}
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

// seedPost inserts an active sale post directly into the store.
func (f *fixture) seedPost(id, authorID, apartmentID string) *model.Post {
	now := f.clock.Now()
	p := &model.Post{
		ID:          id,
		AuthorID:    authorID,
		ApartmentID: apartmentID,
		Type:        model.PostTypeSale,
		Status:      model.PostStatusActive,
		Title:       "의자 팝니다",
		Images:      []string{},
		Price:       int64Ptr(15000),
		Quantity:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.store.Create(context.Background(), p)
	return p
}

func (f *fixture) seedProfile(id, nickname string) {
	now := f.clock.Now()
	f.store.Upsert(context.Background(), &model.Profile{
		ID: id, Nickname: nickname, Role: model.RoleResident, CreatedAt: now, UpdatedAt: now,
	})
}

func (f *fixture) seedOpenChat(id, creatorID, apartmentID, title string, private bool) *model.OpenChat {
	now := f.clock.Now()
	oc := &model.OpenChat{
		ID:          id,
		ApartmentID: apartmentID,
		CreatorID:   creatorID,
		Title:       title,
		ChatType:    model.OpenChatPublic,
		Category:    "취미",
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if private {
		oc.ChatType = model.OpenChatPrivate
		oc.ExternalLink = strPtr("https://open.kakao.com/o/abc123")
		oc.AccessCode = strPtr("0423")
	}
	f.store.CreateOpenChat(context.Background(), oc)
	return oc
}
