package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/shareyt/backend/internal/logging"
	"github.com/shareyt/backend/internal/models"
	"github.com/shareyt/backend/internal/social"
)

// MaxBatchSize caps the number of unique uids a single batch may resolve.
const MaxBatchSize = 100

// UserFinder captures the user lookups the directory needs.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}

// ConnectionSource reports which uids a user is connected to (friends or
// pending requests in either direction).
type ConnectionSource interface {
	ConnectedUIDs(ctx context.Context, uid string) (map[string]struct{}, error)
}

// Resolved pairs an input uid with its profile; Profile is nil when the
// uid was not found or the caller was not authorized to view it.
type Resolved struct {
	UID     string          `json:"uid"`
	Profile *models.Profile `json:"profile"`
}

// BatchResult aligns resolved profiles with the sanitized input order and
// lists the unique uids that could not be resolved.
type BatchResult struct {
	Users    []Resolved `json:"users"`
	NotFound []string   `json:"notFound"`
}

// Directory resolves uids to public profiles, enforcing that callers only
// see profiles of users they are connected to.
type Directory struct {
	users       UserFinder
	connections ConnectionSource
	cache       ProfileCache
}

// New constructs a Directory. cache may be nil to disable caching.
func New(users UserFinder, connections ConnectionSource, cache ProfileCache) *Directory {
	return &Directory{users: users, connections: connections, cache: cache}
}

// Resolve returns a single profile, gated on the caller being connected
// to the target (or resolving themselves).
func (d *Directory) Resolve(ctx context.Context, selfUID, uid string) (models.Profile, error) {
	if selfUID == "" {
		return models.Profile{}, social.E(social.KindUnauthenticated, "login required")
	}

	uid = strings.TrimSpace(uid)
	if uid == "" {
		return models.Profile{}, social.E(social.KindInvalidArgument, "missing uid")
	}

	if uid != selfUID {
		connected, err := d.connections.ConnectedUIDs(ctx, selfUID)
		if err != nil {
			return models.Profile{}, fmt.Errorf("load connections: %w", err)
		}
		if _, ok := connected[uid]; !ok {
			return models.Profile{}, social.E(social.KindPermissionDenied, "you are not authorized to view this user profile")
		}
	}

	profiles, notFound, err := d.resolveAuthorized(ctx, []string{uid})
	if err != nil {
		return models.Profile{}, err
	}
	if len(notFound) > 0 {
		return models.Profile{}, social.E(social.KindNotFound, "user not found")
	}

	return *profiles[uid], nil
}

// BatchResolve sanitizes and dedupes the input, filters out uids the
// caller may not view, resolves the remainder, and returns results aligned
// with the sanitized input order plus the unique uids left unresolved.
func (d *Directory) BatchResolve(ctx context.Context, selfUID string, raw []string) (BatchResult, error) {
	if selfUID == "" {
		return BatchResult{}, social.E(social.KindUnauthenticated, "login required")
	}

	if len(raw) == 0 {
		return BatchResult{}, social.E(social.KindInvalidArgument, "uids must be a non-empty array")
	}

	var uids []string
	for _, uid := range raw {
		uid = strings.TrimSpace(uid)
		if uid != "" {
			uids = append(uids, uid)
		}
	}
	if len(uids) == 0 {
		return BatchResult{}, social.E(social.KindInvalidArgument, "no valid uids provided")
	}

	seen := make(map[string]struct{}, len(uids))
	var unique []string
	for _, uid := range uids {
		if _, ok := seen[uid]; ok {
			continue
		}
		seen[uid] = struct{}{}
		unique = append(unique, uid)
	}
	if len(unique) > MaxBatchSize {
		return BatchResult{}, social.Ef(social.KindInvalidArgument, "max %d uids per request", MaxBatchSize)
	}

	connected, err := d.connections.ConnectedUIDs(ctx, selfUID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("load connections: %w", err)
	}

	var authorized []string
	for _, uid := range unique {
		if uid == selfUID {
			authorized = append(authorized, uid)
			continue
		}
		if _, ok := connected[uid]; ok {
			authorized = append(authorized, uid)
		}
	}
	if len(authorized) == 0 {
		return BatchResult{NotFound: unique}, nil
	}

	found, _, err := d.resolveAuthorized(ctx, authorized)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Users: make([]Resolved, 0, len(uids))}
	for _, uid := range uids {
		result.Users = append(result.Users, Resolved{UID: uid, Profile: found[uid]})
	}
	for _, uid := range unique {
		if found[uid] == nil {
			result.NotFound = append(result.NotFound, uid)
		}
	}

	return result, nil
}

// resolveAuthorized looks profiles up through the cache, falling back to
// the user store for misses. Cache failures are logged, never fatal.
func (d *Directory) resolveAuthorized(ctx context.Context, uids []string) (map[string]*models.Profile, []string, error) {
	logger := logging.FromContext(ctx)

	found := make(map[string]*models.Profile, len(uids))
	var misses []string

	for _, uid := range uids {
		if d.cache == nil {
			misses = append(misses, uid)
			continue
		}
		profile, err := d.cache.Get(ctx, uid)
		if err != nil {
			logger.Warn("profile cache read failed", "uid", uid, "error", err)
		}
		if profile != nil {
			found[uid] = profile
			continue
		}
		misses = append(misses, uid)
	}

	if len(misses) > 0 {
		users, err := d.users.FindByIDs(ctx, misses)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve profiles: %w", err)
		}
		for _, user := range users {
			profile := user.PublicProfile()
			found[user.ID] = &profile
			if d.cache != nil {
				if err := d.cache.Set(ctx, profile); err != nil {
					logger.Warn("profile cache write failed", "uid", user.ID, "error", err)
				}
			}
		}
	}

	var notFound []string
	for _, uid := range uids {
		if found[uid] == nil {
			notFound = append(notFound, uid)
		}
	}

	return found, notFound, nil
}
