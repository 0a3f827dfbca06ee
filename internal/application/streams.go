package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/sirupsen/logrus"
)

type postActivityParams struct {
	DestinationType     domain.ScopeType    `json:"destinationType"`
	DestinationUniqueID string              `json:"destinationUniqueId"`
	Body                string              `json:"body"`
	TargetURL           string              `json:"targetUrl"`
	Verb                domain.ActivityVerb `json:"verb"`
	BaseObjectType      string              `json:"baseObjectType"`
	OriginalActivityID  *int64              `json:"originalActivityId"`
}

type postCommentParams struct {
	ActivityID int64  `json:"activityId"`
	Body       string `json:"body"`
}

type activityIDParams struct {
	ActivityID int64 `json:"activityId"`
}

type starActivityParams struct {
	ActivityID int64 `json:"activityId"`
	Starred    bool  `json:"starred"`
}

type getStreamParams struct {
	ScopeType  domain.ScopeType `json:"scopeType"`
	UniqueKey  string           `json:"uniqueKey"`
	MaxResults int              `json:"maxResults"`
	BeforeID   int64            `json:"beforeId"`
}

// streamDestination is a stream scope together with the entity that owns it.
type streamDestination struct {
	scope domain.StreamScope
	owner *domain.Person
	group *domain.Group
	org   *domain.Organization
}

func (d streamDestination) isPublic() bool {
	return d.group == nil || d.group.PublicGroup
}

func (s *Service) resolveDestination(ctx context.Context, scopeType domain.ScopeType, uniqueKey string) (streamDestination, error) {
	scope, err := s.repo.GetStreamScope(ctx, domain.ScopeType(strings.ToUpper(string(scopeType))), uniqueKey)
	if err != nil {
		return streamDestination{}, err
	}
	return s.destinationForScope(ctx, scope)
}

func (s *Service) destinationForScope(ctx context.Context, scope domain.StreamScope) (streamDestination, error) {
	dest := streamDestination{scope: scope}
	switch scope.ScopeType {
	case domain.ScopeTypePerson:
		p, err := s.cachedPersonByID(ctx, scope.DestinationEntityID)
		if err != nil {
			return streamDestination{}, err
		}
		dest.owner = &p
	case domain.ScopeTypeGroup:
		g, err := s.cachedGroupByID(ctx, scope.DestinationEntityID)
		if err != nil {
			return streamDestination{}, err
		}
		dest.group = &g
	case domain.ScopeTypeOrganization:
		o, err := s.cachedOrganizationByID(ctx, scope.DestinationEntityID)
		if err != nil {
			return streamDestination{}, err
		}
		dest.org = &o
	default:
		return streamDestination{}, fmt.Errorf("%w: unknown stream type %q", domain.ErrBadRequest, scope.ScopeType)
	}
	return dest, nil
}

// isStreamManager reports whether the principal owns or coordinates the destination.
func (s *Service) isStreamManager(ctx context.Context, p domain.Principal, dest streamDestination) (bool, error) {
	if isAdmin(p) {
		return true, nil
	}
	switch {
	case dest.owner != nil:
		return dest.owner.ID == p.PersonID, nil
	case dest.group != nil:
		return s.hasGroupCoordinatorAccess(ctx, p.PersonID, *dest.group)
	case dest.org != nil:
		ids, err := s.repo.GetOrganizationCoordinatorIDs(ctx, dest.org.ID)
		if err != nil {
			return false, err
		}
		return containsID(ids, p.PersonID), nil
	}
	return false, nil
}

func (s *Service) canReadStream(ctx context.Context, p domain.Principal, dest streamDestination) (bool, error) {
	if dest.group == nil {
		return true, nil
	}
	return s.canViewGroup(ctx, p, *dest.group)
}

func (s *Service) canPostToStream(ctx context.Context, p domain.Principal, dest streamDestination) (bool, error) {
	manager, err := s.isStreamManager(ctx, p, dest)
	if err != nil || manager {
		return manager, err
	}
	switch {
	case dest.owner != nil:
		return dest.owner.StreamPostable, nil
	case dest.group != nil:
		if dest.group.IsPending || !dest.group.StreamPostable {
			return false, nil
		}
		return s.canViewGroup(ctx, p, *dest.group)
	}
	return false, nil
}

func (s *Service) canCommentOnStream(ctx context.Context, p domain.Principal, dest streamDestination) (bool, error) {
	manager, err := s.isStreamManager(ctx, p, dest)
	if err != nil || manager {
		return manager, err
	}
	switch {
	case dest.owner != nil:
		return dest.owner.Commentable, nil
	case dest.group != nil:
		if !dest.group.Commentable {
			return false, nil
		}
		return s.canViewGroup(ctx, p, *dest.group)
	}
	return true, nil
}

func (s *Service) postActivity(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in postActivityParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	verb := domain.ActivityVerb(strings.ToUpper(string(in.Verb)))
	if verb == "" {
		verb = domain.VerbPost
	}

	check := newFieldCheck()
	if verb != domain.VerbPost && verb != domain.VerbShare {
		check.Add("verb", "Verb must be POST or SHARE.")
	}
	if verb == domain.VerbShare {
		if in.OriginalActivityID == nil {
			check.Add("originalActivityId", "A shared activity requires the original activity.")
		} else if _, err := s.repo.GetActivityByID(ctx, *in.OriginalActivityID); errors.Is(err, domain.ErrNotFound) {
			check.Add("originalActivityId", "The shared activity no longer exists.")
		} else if err != nil {
			return nil, err
		}
	} else {
		check.required("body", in.Body, "Message is required.")
	}
	check.maxLength("body", in.Body, maxActivityBody, fmt.Sprintf("Message supports up to %d characters.", maxActivityBody))
	if err := check.OrNil(); err != nil {
		return nil, err
	}

	dest, err := s.resolveDestination(ctx, in.DestinationType, in.DestinationUniqueID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canPostToStream(ctx, ac.Principal, dest)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, domain.ErrForbidden
	}

	baseType := strings.ToUpper(in.BaseObjectType)
	if baseType == "" {
		baseType = "NOTE"
		if in.TargetURL != "" {
			baseType = "BOOKMARK"
		}
	}
	a, err := s.repo.CreateActivity(ctx, domain.Activity{
		ActorPersonID:             ac.Principal.PersonID,
		RecipientStreamScopeID:    dest.scope.ID,
		Verb:                      verb,
		BaseObjectType:            baseType,
		Body:                      in.Body,
		TargetURL:                 in.TargetURL,
		OriginalActivityID:        in.OriginalActivityID,
		IsDestinationStreamPublic: dest.isPublic(),
		PostedTime:                s.now(),
	})
	if err != nil {
		return nil, err
	}

	s.addToCachedList(ctx, domain.CacheEveryoneActivityIDs, a.ID)
	s.addToCachedList(ctx, domain.CacheKey(domain.CacheEntityStreamByScopeID, dest.scope.ID), a.ID)
	if err := s.repo.UpsertSearchDocument(ctx, domain.SearchDocument{
		EntityType: domain.EntityTypeActivity,
		EntityID:   a.ID,
		Key:        dest.scope.UniqueKey,
		Title:      ac.Principal.AccountID,
		Body:       joinNonEmpty(a.Body, a.TargetURL),
	}); err != nil {
		return nil, err
	}

	if err := s.enqueueCacheDelete(ac, destinationKeys(dest)...); err != nil {
		return nil, err
	}
	if req, ok := postNotification(dest, ac.Principal.PersonID, a.ID); ok {
		if err := ac.Enqueue(ActionCreateNotifications, req); err != nil {
			return nil, err
		}
	}
	s.log.WithFields(logrus.Fields{"activity": a.ID, "stream": dest.scope.UniqueKey}).Debug("activity posted")
	return s.activityModelView(ctx, a, ac.Principal.PersonID)
}

func postNotification(dest streamDestination, actorID, activityID int64) (notificationRequest, bool) {
	switch {
	case dest.owner != nil && dest.owner.ID != actorID:
		return notificationRequest{Type: domain.NotificationPostPersonStream, ActorID: actorID, TargetID: dest.owner.ID, ActivityID: activityID}, true
	case dest.group != nil:
		return notificationRequest{Type: domain.NotificationPostGroupStream, ActorID: actorID, TargetID: dest.group.ID, ActivityID: activityID}, true
	}
	return notificationRequest{}, false
}

// destinationKeys are the cached entries holding the destination's updates count.
func destinationKeys(dest streamDestination) []string {
	switch {
	case dest.owner != nil:
		return []string{domain.CacheKey(domain.CachePersonByID, dest.owner.ID), domain.CachePersonByAccountID + dest.owner.AccountID}
	case dest.group != nil:
		return []string{domain.CacheKey(domain.CacheGroupByID, dest.group.ID), domain.CacheGroupByShortName + dest.group.ShortName}
	case dest.org != nil:
		return []string{domain.CacheKey(domain.CacheOrganizationByID, dest.org.ID), domain.CacheOrganizationByShortName + dest.org.ShortName}
	}
	return nil
}

func (s *Service) postComment(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in postCommentParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	check := newFieldCheck()
	if check.required("body", in.Body, "Comment is required.") {
		check.maxLength("body", in.Body, maxActivityBody, fmt.Sprintf("Comment supports up to %d characters.", maxActivityBody))
	}
	if err := check.OrNil(); err != nil {
		return nil, err
	}

	a, dest, err := s.activityWithDestination(ctx, in.ActivityID)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canCommentOnStream(ctx, ac.Principal, dest)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, domain.ErrForbidden
	}

	c, err := s.repo.CreateComment(ctx, domain.Comment{
		ActivityID:     a.ID,
		AuthorPersonID: ac.Principal.PersonID,
		Body:           in.Body,
		TimeSent:       s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.enqueueCacheDelete(ac, domain.CacheKey(domain.CacheActivityByID, a.ID)); err != nil {
		return nil, err
	}
	if a.ActorPersonID != ac.Principal.PersonID {
		if err := ac.Enqueue(ActionCreateNotifications, notificationRequest{
			Type:       domain.NotificationCommentToActivity,
			ActorID:    ac.Principal.PersonID,
			TargetID:   a.ActorPersonID,
			ActivityID: a.ID,
		}); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (s *Service) deleteActivity(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in activityIDParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	a, dest, err := s.activityWithDestination(ctx, in.ActivityID)
	if err != nil {
		return nil, err
	}
	if a.ActorPersonID != ac.Principal.PersonID {
		manager, err := s.isStreamManager(ctx, ac.Principal, dest)
		if err != nil {
			return nil, err
		}
		if !manager {
			return nil, domain.ErrForbidden
		}
	}

	commentIDs, err := s.repo.DeleteActivity(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if err := s.enqueueListRemoval(ac, []int64{a.ID},
		domain.CacheEveryoneActivityIDs,
		domain.CacheKey(domain.CacheEntityStreamByScopeID, dest.scope.ID),
	); err != nil {
		return nil, err
	}
	keys := []string{domain.CacheKey(domain.CacheActivityByID, a.ID)}
	for _, id := range commentIDs {
		keys = append(keys, domain.CacheKey(domain.CacheCommentByID, id))
	}
	keys = append(keys, destinationKeys(dest)...)
	if err := s.enqueueCacheDelete(ac, keys...); err != nil {
		return nil, err
	}
	if err := ac.Enqueue(ActionDeleteFromSearchIndex, deleteFromSearchIndexParams{EntityType: domain.EntityTypeActivity, IDs: []int64{a.ID}}); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Service) starActivity(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in starActivityParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	_, dest, err := s.activityWithDestination(ctx, in.ActivityID)
	if err != nil {
		return nil, err
	}
	readable, err := s.canReadStream(ctx, ac.Principal, dest)
	if err != nil {
		return nil, err
	}
	if !readable {
		return nil, domain.ErrForbidden
	}
	if err := s.repo.SetStar(ctx, ac.Principal.PersonID, in.ActivityID, in.Starred); err != nil {
		return nil, err
	}
	key := domain.CacheKey(domain.CacheStarredByPersonID, ac.Principal.PersonID)
	if in.Starred {
		s.addToCachedList(ctx, key, in.ActivityID)
	} else if err := s.enqueueListRemoval(ac, []int64{in.ActivityID}, key); err != nil {
		return nil, err
	}
	return in.Starred, nil
}

func (s *Service) getStream(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in getStreamParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	return s.Stream(ctx, ac.Principal, in.ScopeType, in.UniqueKey, in.MaxResults, in.BeforeID)
}

// Stream returns a page of a stream newest first. Private group streams need the same access as the
// group itself.
func (s *Service) Stream(ctx context.Context, p domain.Principal, scopeType domain.ScopeType, uniqueKey string, maxResults int, beforeID int64) ([]domain.ActivityModelView, error) {
	limit := clamp(maxResults, 10, 1, 100)
	dest, err := s.resolveDestination(ctx, scopeType, uniqueKey)
	if err != nil {
		return nil, err
	}
	readable, err := s.canReadStream(ctx, p, dest)
	if err != nil {
		return nil, err
	}
	if !readable {
		return nil, domain.ErrForbidden
	}

	ids, err := s.cachedList(ctx, domain.CacheKey(domain.CacheEntityStreamByScopeID, dest.scope.ID), func(ctx context.Context) ([]int64, error) {
		activities, err := s.repo.ListActivitiesByScope(ctx, dest.scope.ID, 0, s.opts.MaxCacheListSize)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, 0, len(activities))
		for _, a := range activities {
			ids = append(ids, a.ID)
		}
		return ids, nil
	})
	if err != nil {
		return nil, err
	}

	views := make([]domain.ActivityModelView, 0, limit)
	for _, id := range ids {
		if len(views) == limit {
			break
		}
		if beforeID > 0 && id >= beforeID {
			continue
		}
		a, err := s.cachedActivityByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		view, err := s.activityModelView(ctx, a, p.PersonID)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) purgeExpiredActivities(ctx context.Context, ac *domain.ActionContext) (any, error) {
	settings, err := s.repo.GetSystemSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.ContentExpiration <= 0 {
		return 0, nil
	}
	cutoff := s.now().AddDate(0, 0, -settings.ContentExpiration)
	ids, err := s.repo.DeleteActivitiesOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.enqueueListRemoval(ac, ids, domain.CacheEveryoneActivityIDs); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, domain.CacheKey(domain.CacheActivityByID, id))
	}
	if err := s.enqueueCacheDelete(ac, keys...); err != nil {
		return nil, err
	}
	if err := ac.Enqueue(ActionDeleteFromSearchIndex, deleteFromSearchIndexParams{EntityType: domain.EntityTypeActivity, IDs: ids}); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"deleted": len(ids), "days": settings.ContentExpiration}).Info("expired activities purged")
	return len(ids), nil
}

func (s *Service) cachedActivityByID(ctx context.Context, id int64) (domain.Activity, error) {
	key := domain.CacheKey(domain.CacheActivityByID, id)
	var a domain.Activity
	if s.cacheGet(ctx, key, &a) {
		return a, nil
	}
	a, err := s.repo.GetActivityByID(ctx, id)
	if err != nil {
		return domain.Activity{}, err
	}
	s.cacheSet(ctx, key, a)
	return a, nil
}

func (s *Service) activityWithDestination(ctx context.Context, activityID int64) (domain.Activity, streamDestination, error) {
	a, err := s.repo.GetActivityByID(ctx, activityID)
	if err != nil {
		return domain.Activity{}, streamDestination{}, err
	}
	scope, err := s.repo.GetStreamScopeByID(ctx, a.RecipientStreamScopeID)
	if err != nil {
		return domain.Activity{}, streamDestination{}, err
	}
	dest, err := s.destinationForScope(ctx, scope)
	if err != nil {
		return domain.Activity{}, streamDestination{}, err
	}
	return a, dest, nil
}

// activityModelView fills in the actor, destination, comments and, for a viewer, the star flag.
func (s *Service) activityModelView(ctx context.Context, a domain.Activity, viewerID int64) (domain.ActivityModelView, error) {
	view := domain.ActivityModelView{Activity: a}
	actor, err := s.cachedPersonByID(ctx, a.ActorPersonID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return domain.ActivityModelView{}, err
	default:
		view.ActorAccountID = actor.AccountID
		view.ActorDisplayName = actor.DisplayName()
	}
	scope, err := s.repo.GetStreamScopeByID(ctx, a.RecipientStreamScopeID)
	if err != nil {
		return domain.ActivityModelView{}, err
	}
	view.DestinationType = scope.ScopeType
	view.DestinationKey = scope.UniqueKey

	if a.CommentCount > 0 {
		comments, err := s.repo.ListComments(ctx, a.ID)
		if err != nil {
			return domain.ActivityModelView{}, err
		}
		view.Comments = comments
	}
	if viewerID != 0 {
		starred, err := s.cachedList(ctx, domain.CacheKey(domain.CacheStarredByPersonID, viewerID), func(ctx context.Context) ([]int64, error) {
			return s.repo.GetStarredActivityIDs(ctx, viewerID)
		})
		if err != nil {
			return domain.ActivityModelView{}, err
		}
		view.Starred = containsID(starred, a.ID)
	}
	return view, nil
}
