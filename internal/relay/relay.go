package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shareyt/backend/internal/directory"
	"github.com/shareyt/backend/internal/models"
	"github.com/shareyt/backend/internal/repositories"
	"github.com/shareyt/backend/internal/social"
)

const refreshTimeout = 10 * time.Second

// Source provides the authoritative state a session mirrors.
type Source interface {
	Friends(ctx context.Context, uid string) ([]models.Friend, error)
	Requests(ctx context.Context, uid string) (repositories.RequestSnapshot, error)
	Suggested(ctx context.Context, uid string) ([]models.VideoSuggestion, error)
	Sent(ctx context.Context, uid string) ([]models.VideoSuggestion, error)
}

// ProfileResolver resolves friend uids to public profiles for the mirror's
// friends projection.
type ProfileResolver interface {
	BatchResolve(ctx context.Context, selfUID string, uids []string) (directory.BatchResult, error)
}

// Sink receives replaced mirror sections for delivery to the user's
// presentation surfaces.
type Sink interface {
	Push(uid, section string, payload any)
}

// Notifier emits user-visible notifications.
type Notifier interface {
	NotifyVideoSuggested(uid, senderName, title, videoID string)
}

// Relay owns the per-user session lifecycle: a user signs in, their
// session hydrates the mirror, subscribes to change events, and
// republishes fresh snapshots until sign-out. Subscription errors are
// logged and never tear a session down.
type Relay struct {
	source   Source
	profiles ProfileResolver
	broker   *Broker
	mirror   *Mirror
	sink     Sink
	notifier Notifier
	beat     *Heartbeat
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	uid    string
	events chan social.Event
	done   chan struct{}
}

// New wires a relay. sink and notifier may be nil.
func New(source Source, profiles ProfileResolver, broker *Broker, mirror *Mirror, sink Sink, notifier Notifier, beat *Heartbeat, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		source:   source,
		profiles: profiles,
		broker:   broker,
		mirror:   mirror,
		sink:     sink,
		notifier: notifier,
		beat:     beat,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// SignIn transitions the user to SignedIn: hydrates the mirror, opens the
// event subscription, and starts the keep-alive heartbeat. Signing in an
// already signed-in user is a no-op.
func (r *Relay) SignIn(ctx context.Context, user models.Profile) {
	r.mu.Lock()
	if _, ok := r.sessions[user.UID]; ok {
		r.mu.Unlock()
		return
	}

	sess := &session{
		uid:    user.UID,
		events: r.broker.Subscribe(user.UID),
		done:   make(chan struct{}),
	}
	r.sessions[user.UID] = sess

	if r.beat != nil && len(r.sessions) == 1 {
		r.beat.Start()
	}
	r.mu.Unlock()

	r.mirror.SetUser(user.UID, user)
	r.push(user.UID, SectionUser, user)

	go r.run(sess)
}

// SignOut transitions the user to SignedOut: tears down the subscription,
// clears the mirror, and stops the heartbeat when no user remains.
func (r *Relay) SignOut(uid string) {
	r.mu.Lock()
	sess, ok := r.sessions[uid]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, uid)
	if r.beat != nil && len(r.sessions) == 0 {
		r.beat.Stop()
	}
	r.mu.Unlock()

	close(sess.done)
	r.broker.Unsubscribe(uid, sess.events)
	r.mirror.Clear(uid)
	r.logger.Info("relay session ended", "uid", uid)
}

// SignedIn reports whether the user currently has an active session.
func (r *Relay) SignedIn(uid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[uid]
	return ok
}

// Snapshot exposes the mirrored state for surfaces that poll over HTTP
// instead of holding a WebSocket.
func (r *Relay) Snapshot(uid string) (Snapshot, bool) {
	return r.mirror.Snapshot(uid)
}

// Shutdown ends every active session.
func (r *Relay) Shutdown() {
	r.mu.Lock()
	uids := make([]string, 0, len(r.sessions))
	for uid := range r.sessions {
		uids = append(uids, uid)
	}
	r.mu.Unlock()

	for _, uid := range uids {
		r.SignOut(uid)
	}
}

func (r *Relay) run(sess *session) {
	logger := r.logger.With("uid", sess.uid)

	// Hydration: the first snapshot never notifies, so a backlog of
	// suggestions received while signed out stays silent.
	r.refreshFriends(sess.uid, logger)
	r.refreshRequests(sess.uid, logger)
	r.refreshSuggested(sess.uid, logger)
	r.refreshSent(sess.uid, logger)

	logger.Info("relay session hydrated")

	for {
		select {
		case <-sess.done:
			return
		case event := <-sess.events:
			r.handle(sess, event, logger)
		}
	}
}

func (r *Relay) handle(sess *session, event social.Event, logger *slog.Logger) {
	switch event.Type {
	case social.EventFriendsChanged:
		r.refreshFriends(sess.uid, logger)
	case social.EventRequestsChanged:
		r.refreshRequests(sess.uid, logger)
	case social.EventSuggestionAdded, social.EventSuggestionUpdated, social.EventSuggestionRemoved:
		r.refreshSuggested(sess.uid, logger)
		r.refreshSent(sess.uid, logger)
	default:
		logger.Warn("unknown relay event", "type", event.Type)
		return
	}

	if event.Type == social.EventSuggestionAdded && r.notifier != nil {
		s := event.Suggestion
		if s != nil && s.To == sess.uid {
			sender := r.mirror.FriendName(sess.uid, s.From)
			r.notifier.NotifyVideoSuggested(sess.uid, sender, s.Title, s.VideoID)
		}
	}
}

func (r *Relay) refreshFriends(uid string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	friends, err := r.source.Friends(ctx, uid)
	if err != nil {
		logger.Error("refresh friends snapshot", "error", err)
		return
	}

	entries := make([]FriendEntry, 0, len(friends))
	profiles := make(map[string]*models.Profile)

	if len(friends) > 0 && r.profiles != nil {
		uids := make([]string, 0, len(friends))
		for _, f := range friends {
			uids = append(uids, f.UID)
		}
		result, err := r.profiles.BatchResolve(ctx, uid, uids)
		if err != nil {
			logger.Warn("resolve friend profiles", "error", err)
		} else {
			for _, resolved := range result.Users {
				profiles[resolved.UID] = resolved.Profile
			}
		}
	}

	for _, f := range friends {
		entry := FriendEntry{UID: f.UID, Since: f.Since.UTC().Format(time.RFC3339)}
		if p := profiles[f.UID]; p != nil {
			entry.DisplayName = p.DisplayName
			entry.Email = p.Email
			entry.PhotoURL = p.PhotoURL
		}
		entries = append(entries, entry)
	}

	r.mirror.ReplaceFriends(uid, entries)
	r.push(uid, SectionFriends, entries)
}

func (r *Relay) refreshRequests(uid string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	snapshot, err := r.source.Requests(ctx, uid)
	if err != nil {
		logger.Error("refresh requests snapshot", "error", err)
		return
	}

	view := RequestsView{Sent: snapshot.Sent, Received: snapshot.Received}
	r.mirror.ReplaceRequests(uid, view)
	r.push(uid, SectionRequests, view)
}

func (r *Relay) refreshSuggested(uid string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	videos, err := r.source.Suggested(ctx, uid)
	if err != nil {
		logger.Error("refresh suggested snapshot", "error", err)
		return
	}

	r.mirror.ReplaceSuggested(uid, videos)
	r.push(uid, SectionSuggested, videos)
}

func (r *Relay) refreshSent(uid string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	videos, err := r.source.Sent(ctx, uid)
	if err != nil {
		logger.Error("refresh sent snapshot", "error", err)
		return
	}

	r.mirror.ReplaceSent(uid, videos)
	r.push(uid, SectionSent, videos)
}

func (r *Relay) push(uid, section string, payload any) {
	if r.sink != nil {
		r.sink.Push(uid, section, payload)
	}
}
