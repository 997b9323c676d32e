package handlers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/models"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/repository"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/storage"
	"github.com/Ebunwadi/SoftwareDevelopmentProject/internal/websocket"
)

// In-memory repository fakes for handler tests.

type memUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Followers == nil {
		user.Followers = []string{}
	}
	if user.Following == nil {
		user.Following = []string{}
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByEmailOrUsername(_ context.Context, email, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email || u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) SetFrozen(_ context.Context, id primitive.ObjectID, frozen bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsFrozen = frozen
	return nil
}

func (r *memUserRepo) Follow(_ context.Context, followerID, followedID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[followerID].Following = append(r.users[followerID].Following, followedID.Hex())
	r.users[followedID].Followers = append(r.users[followedID].Followers, followerID.Hex())
	return nil
}

func (r *memUserRepo) Unfollow(_ context.Context, followerID, followedID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[followerID].Following = removeHex(r.users[followerID].Following, followedID.Hex())
	r.users[followedID].Followers = removeHex(r.users[followedID].Followers, followerID.Hex())
	return nil
}

func removeHex(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (r *memUserRepo) Suggested(_ context.Context, userID primitive.ObjectID, following []string, limit int) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	skip := map[string]struct{}{userID.Hex(): {}}
	for _, id := range following {
		skip[id] = struct{}{}
	}
	out := []models.User{}
	for _, u := range r.users {
		if _, ok := skip[u.ID.Hex()]; ok {
			continue
		}
		if len(out) >= limit {
			break
		}
		out = append(out, u.Public())
	}
	return out, nil
}

type memPostRepo struct {
	mu          sync.Mutex
	posts       map[primitive.ObjectID]*models.Post
	identityErr error
}

func newMemPostRepo() *memPostRepo {
	return &memPostRepo{posts: make(map[primitive.ObjectID]*models.Post)}
}

func (r *memPostRepo) Create(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.Likes == nil {
		post.Likes = []primitive.ObjectID{}
	}
	if post.Replies == nil {
		post.Replies = []models.Reply{}
	}
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r *memPostRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memPostRepo) Update(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[post.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r *memPostRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *memPostRepo) Like(_ context.Context, postID, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Likes = append(p.Likes, userID)
	return nil
}

func (r *memPostRepo) Unlike(_ context.Context, postID, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return repository.ErrNotFound
	}
	likes := p.Likes[:0]
	for _, id := range p.Likes {
		if id != userID {
			likes = append(likes, id)
		}
	}
	p.Likes = likes
	return nil
}

func (r *memPostRepo) AddReply(_ context.Context, postID primitive.ObjectID, reply models.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[postID]
	if !ok {
		return repository.ErrNotFound
	}
	p.Replies = append(p.Replies, reply)
	return nil
}

func (r *memPostRepo) Feed(_ context.Context, following []string) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	followed := map[string]struct{}{}
	for _, id := range following {
		followed[id] = struct{}{}
	}
	out := []models.Post{}
	for _, p := range r.posts {
		if _, ok := followed[p.PostedBy.Hex()]; ok {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memPostRepo) ByAuthor(_ context.Context, authorID primitive.ObjectID) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Post{}
	for _, p := range r.posts {
		if p.PostedBy == authorID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPostRepo) UpdateReplyIdentity(_ context.Context, userID primitive.ObjectID, username, profilePic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.identityErr != nil {
		return r.identityErr
	}
	for _, p := range r.posts {
		for i := range p.Replies {
			if p.Replies[i].UserID == userID {
				p.Replies[i].Username = username
				p.Replies[i].UserProfilePic = profilePic
			}
		}
	}
	return nil
}

type memConvStore struct {
	mu    sync.Mutex
	convs map[primitive.ObjectID]*models.Conversation
}

func newMemConvStore() *memConvStore {
	return &memConvStore{convs: make(map[primitive.ObjectID]*models.Conversation)}
}

func (s *memConvStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memConvStore) FindByParticipants(_ context.Context, a, b primitive.ObjectID) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.convs {
		if hasBoth(c.Participants, a, b) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func hasBoth(ps []primitive.ObjectID, a, b primitive.ObjectID) bool {
	var foundA, foundB bool
	for _, p := range ps {
		if p == a {
			foundA = true
		}
		if p == b {
			foundB = true
		}
	}
	return foundA && foundB
}

func (s *memConvStore) Create(_ context.Context, conv *models.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv.ID.IsZero() {
		conv.ID = primitive.NewObjectID()
	}
	cp := *conv
	s.convs[conv.ID] = &cp
	return nil
}

func (s *memConvStore) UpdateLastMessage(_ context.Context, id primitive.ObjectID, last models.LastMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.LastMessage = last
	return nil
}

func (s *memConvStore) MarkLastMessageSeen(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.LastMessage.Seen = true
	return nil
}

func (s *memConvStore) ListForUser(_ context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Conversation{}
	for _, c := range s.convs {
		for _, p := range c.Participants {
			if p == userID {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

type memMsgStore struct {
	mu        sync.Mutex
	msgs      []*models.Message
	insertErr error
}

func newMemMsgStore() *memMsgStore {
	return &memMsgStore{}
}

func (s *memMsgStore) Insert(_ context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	cp := *msg
	s.msgs = append(s.msgs, &cp)
	return nil
}

func (s *memMsgStore) ListByConversation(_ context.Context, conversationID primitive.ObjectID) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Message{}
	for _, m := range s.msgs {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memMsgStore) MarkConversationSeen(_ context.Context, conversationID, requesterID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.msgs {
		if m.ConversationID == conversationID && !m.Seen && m.Sender != requesterID {
			m.Seen = true
			n++
		}
	}
	return n, nil
}

// recordingDispatcher captures targeted deliveries for assertions.
type recordingDispatcher struct {
	mu        sync.Mutex
	online    map[string]bool
	delivered []deliveredEvent
}

type deliveredEvent struct {
	UserID  string
	Message *websocket.Message
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{online: make(map[string]bool)}
}

func (d *recordingDispatcher) DeliverToUser(userID string, message *websocket.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.online[userID] {
		return websocket.ErrRecipientOffline
	}
	d.delivered = append(d.delivered, deliveredEvent{UserID: userID, Message: message})
	return nil
}

func (d *recordingDispatcher) IsUserOnline(userID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online[userID]
}

func (d *recordingDispatcher) events() []deliveredEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]deliveredEvent(nil), d.delivered...)
}

// fakeUploader records uploads and deletes without touching S3.
type fakeUploader struct {
	mu      sync.Mutex
	uploads int
	deleted []string
}

func (u *fakeUploader) UploadImage(_ context.Context, _ []byte, userID, filename string) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads++
	key := fmt.Sprintf("images/2026/08/%s/upload-%d%s", userID, u.uploads, filepath.Ext(filename))
	return &storage.UploadResult{
		Key: key,
		URL: "https://cdn.test/" + key,
	}, nil
}

func (u *fakeUploader) DeleteImage(_ context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) deletedKeys() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.deleted...)
}
