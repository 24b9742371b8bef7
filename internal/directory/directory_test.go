package directory

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shareyt/backend/internal/models"
	"github.com/shareyt/backend/internal/social"
)

type stubUsers struct {
	mu    sync.Mutex
	users map[string]models.User
	calls int
}

func newStubUsers(users ...models.User) *stubUsers {
	s := &stubUsers{users: make(map[string]models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubUsers) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, nil
	}
	return u, nil
}

func (s *stubUsers) FindByIDs(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	var out []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *stubUsers) findCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubConnections struct {
	connected map[string]map[string]struct{}
}

func (s *stubConnections) ConnectedUIDs(_ context.Context, uid string) (map[string]struct{}, error) {
	if set, ok := s.connected[uid]; ok {
		return set, nil
	}
	return map[string]struct{}{}, nil
}

func connections(self string, others ...string) *stubConnections {
	set := make(map[string]struct{}, len(others))
	for _, uid := range others {
		set[uid] = struct{}{}
	}
	return &stubConnections{connected: map[string]map[string]struct{}{self: set}}
}

func newCache(t *testing.T) (*RedisProfileCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisProfileCache(client, time.Minute), srv
}

func assertKind(t *testing.T, err error, kind social.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error got nil", kind)
	}
	if got := social.KindOf(err); got != kind {
		t.Fatalf("expected kind %s got %s (%v)", kind, got, err)
	}
}

func TestBatchResolveAuthorization(t *testing.T) {
	users := newStubUsers(
		models.User{ID: "bob", Email: "bob@example.com", DisplayName: "Bob"},
		models.User{ID: "carol", Email: "carol@example.com"},
		models.User{ID: "mallory", Email: "mallory@example.com"},
	)
	dir := New(users, connections("alice", "bob", "carol"), nil)

	result, err := dir.BatchResolve(context.Background(), "alice", []string{"bob", "mallory", "carol"})
	if err != nil {
		t.Fatalf("batch resolve: %v", err)
	}

	if len(result.Users) != 3 {
		t.Fatalf("expected 3 aligned results got %d", len(result.Users))
	}
	if result.Users[0].Profile == nil || result.Users[0].Profile.DisplayName != "Bob" {
		t.Fatalf("expected bob resolved, got %+v", result.Users[0])
	}
	// mallory exists but is not connected to the caller, so the result
	// hides the profile and reports the uid as not found.
	if result.Users[1].Profile != nil {
		t.Fatalf("expected unconnected profile to be hidden, got %+v", result.Users[1].Profile)
	}
	if result.Users[2].Profile == nil {
		t.Fatal("expected carol resolved")
	}
	if len(result.NotFound) != 1 || result.NotFound[0] != "mallory" {
		t.Fatalf("expected mallory in notFound got %v", result.NotFound)
	}
}

func TestBatchResolveSelfAlwaysAllowed(t *testing.T) {
	users := newStubUsers(models.User{ID: "alice", Email: "alice@example.com"})
	dir := New(users, connections("alice"), nil)

	result, err := dir.BatchResolve(context.Background(), "alice", []string{"alice"})
	if err != nil {
		t.Fatalf("batch resolve: %v", err)
	}
	if len(result.Users) != 1 || result.Users[0].Profile == nil {
		t.Fatalf("expected self to resolve, got %+v", result.Users)
	}
}

func TestBatchResolveDuplicatesAlign(t *testing.T) {
	users := newStubUsers(models.User{ID: "bob", Email: "bob@example.com"})
	dir := New(users, connections("alice", "bob"), nil)

	result, err := dir.BatchResolve(context.Background(), "alice", []string{"bob", " bob ", "bob"})
	if err != nil {
		t.Fatalf("batch resolve: %v", err)
	}
	if len(result.Users) != 3 {
		t.Fatalf("expected duplicates preserved in result order got %d", len(result.Users))
	}
	for i, resolved := range result.Users {
		if resolved.UID != "bob" || resolved.Profile == nil {
			t.Fatalf("expected bob at position %d got %+v", i, resolved)
		}
	}
	if users.findCalls() != 1 {
		t.Fatalf("expected a single lookup for deduped uids got %d", users.findCalls())
	}
}

func TestBatchResolveValidation(t *testing.T) {
	dir := New(newStubUsers(), &stubConnections{}, nil)

	_, err := dir.BatchResolve(context.Background(), "", []string{"bob"})
	assertKind(t, err, social.KindUnauthenticated)

	_, err = dir.BatchResolve(context.Background(), "alice", nil)
	assertKind(t, err, social.KindInvalidArgument)

	_, err = dir.BatchResolve(context.Background(), "alice", []string{" ", ""})
	assertKind(t, err, social.KindInvalidArgument)

	big := make([]string, MaxBatchSize+1)
	for i := range big {
		big[i] = strings.Repeat("u", 3) + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	_, err = dir.BatchResolve(context.Background(), "alice", big)
	assertKind(t, err, social.KindInvalidArgument)
}

func TestBatchResolveNoneAuthorized(t *testing.T) {
	users := newStubUsers(models.User{ID: "mallory", Email: "m@example.com"})
	dir := New(users, connections("alice"), nil)

	result, err := dir.BatchResolve(context.Background(), "alice", []string{"mallory"})
	if err != nil {
		t.Fatalf("batch resolve: %v", err)
	}
	if len(result.NotFound) != 1 || result.NotFound[0] != "mallory" {
		t.Fatalf("expected mallory unresolved got %+v", result)
	}
}

func TestBatchResolveUsesCache(t *testing.T) {
	cache, srv := newCache(t)
	users := newStubUsers(models.User{ID: "bob", Email: "bob@example.com", DisplayName: "Bob"})
	dir := New(users, connections("alice", "bob"), cache)

	if _, err := dir.BatchResolve(context.Background(), "alice", []string{"bob"}); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if users.findCalls() != 1 {
		t.Fatalf("expected one store lookup got %d", users.findCalls())
	}
	if !srv.Exists("profile:bob") {
		t.Fatal("expected profile to be cached")
	}

	if _, err := dir.BatchResolve(context.Background(), "alice", []string{"bob"}); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if users.findCalls() != 1 {
		t.Fatalf("expected cache hit to skip the store, got %d lookups", users.findCalls())
	}
}

func TestBatchResolveSurvivesCacheOutage(t *testing.T) {
	cache, srv := newCache(t)
	users := newStubUsers(models.User{ID: "bob", Email: "bob@example.com"})
	dir := New(users, connections("alice", "bob"), cache)

	srv.Close()

	result, err := dir.BatchResolve(context.Background(), "alice", []string{"bob"})
	if err != nil {
		t.Fatalf("expected resolve to survive a cache outage, got %v", err)
	}
	if len(result.Users) != 1 || result.Users[0].Profile == nil {
		t.Fatalf("expected bob resolved from the store, got %+v", result.Users)
	}
}

func TestResolveSingle(t *testing.T) {
	users := newStubUsers(models.User{ID: "bob", Email: "bob@example.com"})
	dir := New(users, connections("alice", "bob"), nil)

	profile, err := dir.Resolve(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if profile.UID != "bob" {
		t.Fatalf("expected bob got %+v", profile)
	}

	_, err = dir.Resolve(context.Background(), "alice", "stranger")
	assertKind(t, err, social.KindPermissionDenied)

	dirMissing := New(newStubUsers(), connections("alice", "ghost"), nil)
	_, err = dirMissing.Resolve(context.Background(), "alice", "ghost")
	assertKind(t, err, social.KindNotFound)
}

func TestCacheInvalidate(t *testing.T) {
	cache, srv := newCache(t)

	profile := models.Profile{UID: "bob", Email: "bob@example.com"}
	if err := cache.Set(context.Background(), profile); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := cache.Get(context.Background(), "bob")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Email != "bob@example.com" {
		t.Fatalf("expected cached profile got %+v", got)
	}

	if err := cache.Invalidate(context.Background(), "bob"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if srv.Exists("profile:bob") {
		t.Fatal("expected key to be removed")
	}

	got, err = cache.Get(context.Background(), "bob")
	if err != nil || got != nil {
		t.Fatalf("expected miss after invalidate got %+v err %v", got, err)
	}
}
