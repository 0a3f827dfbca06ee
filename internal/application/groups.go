package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

type createGroupParams struct {
	ShortName                   string   `json:"shortName"`
	Name                        string   `json:"name"`
	Overview                    string   `json:"overview"`
	Description                 string   `json:"description"`
	URL                         string   `json:"url"`
	PublicGroup                 bool     `json:"publicGroup"`
	Commentable                 *bool    `json:"commentable"`
	StreamPostable              *bool    `json:"streamPostable"`
	ParentOrganizationShortName string   `json:"parentOrganizationShortName"`
	Coordinators                []string `json:"coordinators"`
	Capabilities                []string `json:"capabilities"`
}

type followGroupParams struct {
	FollowerAccountID string `json:"followerAccountId"`
	GroupShortName    string `json:"groupShortName"`
	Status            string `json:"status"`
}

type reviewPendingGroupParams struct {
	GroupShortName string `json:"groupShortName"`
	Approved       bool   `json:"approved"`
}

type groupIDParams struct {
	GroupID int64 `json:"groupId"`
}

func (s *Service) createGroup(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in createGroupParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	in.ShortName = strings.ToLower(strings.TrimSpace(in.ShortName))

	check := newFieldCheck()
	check.shortName("shortName", in.ShortName, "Group Web Address")
	if check.required("name", in.Name, "Group Name is required.") {
		check.maxLength("name", in.Name, maxNameLength, fmt.Sprintf("Group Name supports up to %d characters.", maxNameLength))
	}
	check.maxLength("description", in.Description, maxDescriptionLength, fmt.Sprintf("Description supports up to %d characters.", maxDescriptionLength))
	if _, err := s.repo.GetGroupByShortName(ctx, in.ShortName); err == nil {
		check.Add("shortName", "Group Web Address is already in use.")
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var org domain.Organization
	if check.required("parentOrganizationShortName", in.ParentOrganizationShortName, "Please select a parent organization.") {
		var err error
		org, err = s.repo.GetOrganizationByShortName(ctx, in.ParentOrganizationShortName)
		if errors.Is(err, domain.ErrNotFound) {
			check.Add("parentOrganizationShortName", "The selected parent organization does not exist.")
		} else if err != nil {
			return nil, err
		}
	}

	coordinators, err := s.resolveAccountIDs(ctx, in.Coordinators)
	if err != nil {
		var missing missingAccountsError
		if !errors.As(err, &missing) {
			return nil, err
		}
		check.Add("coordinators", "One or more coordinators do not exist: "+strings.Join(missing, ", "))
	}
	if err := check.OrNil(); err != nil {
		return nil, err
	}
	if !containsID(coordinators, ac.Principal.PersonID) {
		coordinators = append(coordinators, ac.Principal.PersonID)
	}

	pending := !ac.Principal.Can(PermGroupApprove)
	g, err := s.repo.CreateGroup(ctx, domain.Group{
		ShortName:            in.ShortName,
		Name:                 strings.TrimSpace(in.Name),
		Overview:             in.Overview,
		Description:          in.Description,
		URL:                  in.URL,
		PublicGroup:          in.PublicGroup,
		Commentable:          boolOr(in.Commentable, true),
		StreamPostable:       boolOr(in.StreamPostable, true),
		IsPending:            pending,
		CreatedByID:          ac.Principal.PersonID,
		ParentOrganizationID: org.ID,
		Capabilities:         in.Capabilities,
	})
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetGroupCoordinators(ctx, g.ID, coordinators); err != nil {
		return nil, err
	}
	if _, err := s.repo.AddGroupFollower(ctx, ac.Principal.PersonID, g.ID); err != nil {
		return nil, err
	}
	if err := s.repo.RefreshOrganizationStats(ctx, org.ID); err != nil {
		return nil, err
	}

	if err := ac.Enqueue(ActionIndexGroupByID, entityIDParams{ID: g.ID}); err != nil {
		return nil, err
	}
	keys, err := s.organizationChainKeys(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	keys = append(keys,
		domain.CacheKey(domain.CacheOrganizationByID, org.ID),
		domain.CacheOrganizationByShortName+org.ShortName,
		domain.CacheKey(domain.CachePersonByID, ac.Principal.PersonID),
		domain.CachePersonByAccountID+ac.Principal.AccountID,
		domain.CacheKey(domain.CacheGroupsFollowedByPerson, ac.Principal.PersonID),
	)
	if err := s.enqueueCacheDelete(ac, keys...); err != nil {
		return nil, err
	}
	if pending {
		if err := ac.Enqueue(ActionCreateNotifications, notificationRequest{
			Type:     domain.NotificationPendingGroupCreated,
			ActorID:  ac.Principal.PersonID,
			TargetID: g.ID,
		}); err != nil {
			return nil, err
		}
	}

	g, err = s.repo.GetGroupByID(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	return s.groupModelView(ctx, g)
}

func (s *Service) getGroup(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in shortNameParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	g, err := s.cachedGroupByShortName(ctx, in.ShortName)
	if err != nil {
		return nil, err
	}
	allowed, err := s.canViewGroup(ctx, ac.Principal, g)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return restrictedGroupView(g), nil
	}
	return s.groupModelView(ctx, g)
}

// canViewGroup is true for public groups and for coordinators and followers of private ones.
func (s *Service) canViewGroup(ctx context.Context, p domain.Principal, g domain.Group) (bool, error) {
	if g.PublicGroup || p.Can(PermGroupApprove) {
		return true, nil
	}
	if p.PersonID == 0 {
		return false, nil
	}
	coordinator, err := s.hasGroupCoordinatorAccess(ctx, p.PersonID, g)
	if err != nil || coordinator {
		return coordinator, err
	}
	followers, err := s.cachedGroupFollowerIDs(ctx, g.ID)
	if err != nil {
		return false, err
	}
	return containsID(followers, p.PersonID), nil
}

// hasGroupCoordinatorAccess covers group coordinators and coordinators of any organization above
// the group.
func (s *Service) hasGroupCoordinatorAccess(ctx context.Context, personID int64, g domain.Group) (bool, error) {
	coordinators, err := s.cachedGroupCoordinatorIDs(ctx, g.ID)
	if err != nil {
		return false, err
	}
	if containsID(coordinators, personID) {
		return true, nil
	}
	orgIDs, err := s.repo.GetRecursiveParentOrgIDs(ctx, g.ParentOrganizationID)
	if err != nil {
		return false, err
	}
	for _, orgID := range append([]int64{g.ParentOrganizationID}, orgIDs...) {
		ids, err := s.repo.GetOrganizationCoordinatorIDs(ctx, orgID)
		if err != nil {
			return false, err
		}
		if containsID(ids, personID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) setFollowingGroupStatus(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in followGroupParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	follower, err := s.repo.GetPersonByAccountID(ctx, defaultString(in.FollowerAccountID, ac.Principal.AccountID))
	if err != nil {
		return nil, err
	}
	if follower.ID != ac.Principal.PersonID && !isAdmin(ac.Principal) {
		return nil, domain.ErrForbidden
	}
	g, err := s.repo.GetGroupByShortName(ctx, in.GroupShortName)
	if err != nil {
		return nil, err
	}

	followersKey := domain.CacheKey(domain.CacheFollowersByGroup, g.ID)
	followedKey := domain.CacheKey(domain.CacheGroupsFollowedByPerson, follower.ID)
	keys := []string{
		domain.CacheKey(domain.CacheGroupByID, g.ID),
		domain.CacheGroupByShortName + g.ShortName,
		domain.CacheKey(domain.CachePersonByID, follower.ID),
		domain.CachePersonByAccountID + follower.AccountID,
	}

	switch strings.ToUpper(in.Status) {
	case FollowStatusFollowing:
		if !g.PublicGroup && !ac.Principal.Can(PermGroupApprove) {
			coordinator, err := s.hasGroupCoordinatorAccess(ctx, follower.ID, g)
			if err != nil {
				return nil, err
			}
			if !coordinator {
				return nil, domain.ErrForbidden
			}
		}
		added, err := s.repo.AddGroupFollower(ctx, follower.ID, g.ID)
		if err != nil {
			return nil, err
		}
		if added {
			s.addToCachedList(ctx, followersKey, follower.ID)
			s.addToCachedList(ctx, followedKey, g.ID)
			if err := s.enqueueCacheDelete(ac, keys...); err != nil {
				return nil, err
			}
			if err := ac.Enqueue(ActionRefreshFollowedByActivities, personIDParams{PersonID: follower.ID}); err != nil {
				return nil, err
			}
			if err := ac.Enqueue(ActionCreateNotifications, notificationRequest{
				Type:     domain.NotificationGroupFollower,
				ActorID:  follower.ID,
				TargetID: g.ID,
			}); err != nil {
				return nil, err
			}
		}
	case FollowStatusNotFollowing:
		removed, err := s.repo.RemoveGroupFollower(ctx, follower.ID, g.ID)
		if err != nil {
			return nil, err
		}
		if removed {
			if err := s.enqueueCacheDelete(ac, keys...); err != nil {
				return nil, err
			}
			if err := s.enqueueListRemoval(ac, []int64{follower.ID}, followersKey); err != nil {
				return nil, err
			}
			if err := s.enqueueListRemoval(ac, []int64{g.ID}, followedKey); err != nil {
				return nil, err
			}
		}
	default:
		verr := domain.NewValidationError()
		verr.Add("status", "Status must be FOLLOWING or NOTFOLLOWING.")
		return nil, verr
	}

	updated, err := s.repo.GetGroupByID(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	return updated.FollowersCount, nil
}

func (s *Service) reviewPendingGroup(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in reviewPendingGroupParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	g, err := s.repo.GetGroupByShortName(ctx, in.GroupShortName)
	if err != nil {
		return nil, err
	}
	if !g.IsPending {
		verr := domain.NewValidationError()
		verr.Add("groupShortName", "Group is not pending approval.")
		return nil, verr
	}
	coordinators, err := s.repo.GetGroupCoordinatorIDs(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	if !in.Approved {
		if err := ac.Enqueue(ActionCreateNotifications, notificationRequest{
			Type:         domain.NotificationNewGroupDenied,
			ActorID:      ac.Principal.PersonID,
			TargetID:     g.ID,
			TargetName:   g.Name,
			RecipientIDs: coordinators,
		}); err != nil {
			return nil, err
		}
		if err := s.removeGroup(ctx, ac, g); err != nil {
			return nil, err
		}
		s.log.WithField("group", g.ShortName).Info("pending group denied")
		return false, nil
	}

	g.IsPending = false
	if err := s.repo.UpdateGroup(ctx, g); err != nil {
		return nil, err
	}
	if err := s.repo.RefreshOrganizationStats(ctx, g.ParentOrganizationID); err != nil {
		return nil, err
	}
	if !g.PublicGroup {
		for _, id := range coordinators {
			s.addToCachedList(ctx, domain.CacheKey(domain.CachePrivateGroupIDsViewableAsCoord, id), g.ID)
		}
	}
	if err := ac.Enqueue(ActionCreateNotifications, notificationRequest{
		Type:         domain.NotificationNewGroupApproved,
		ActorID:      ac.Principal.PersonID,
		TargetID:     g.ID,
		TargetName:   g.Name,
		RecipientIDs: coordinators,
	}); err != nil {
		return nil, err
	}
	keys, err := s.organizationChainKeys(ctx, g.ParentOrganizationID)
	if err != nil {
		return nil, err
	}
	keys = append(keys, domain.CacheKey(domain.CacheGroupByID, g.ID), domain.CacheGroupByShortName+g.ShortName)
	if err := s.enqueueCacheDelete(ac, keys...); err != nil {
		return nil, err
	}
	if err := ac.Enqueue(ActionIndexGroupByID, entityIDParams{ID: g.ID}); err != nil {
		return nil, err
	}
	s.log.WithField("group", g.ShortName).Info("pending group approved")
	return true, nil
}

// deleteGroup checks access and hands the removal to deleteGroupFromDB.
func (s *Service) deleteGroup(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in groupIDParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	g, err := s.repo.GetGroupByID(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if !ac.Principal.Can(PermGroupApprove) {
		coordinator, err := s.hasGroupCoordinatorAccess(ctx, ac.Principal.PersonID, g)
		if err != nil {
			return nil, err
		}
		if !coordinator {
			return nil, domain.ErrForbidden
		}
	}
	if err := ac.Enqueue(ActionDeleteGroupFromDB, groupIDParams{GroupID: g.ID}); err != nil {
		return nil, err
	}
	return true, nil
}

func (s *Service) deleteGroupFromDB(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in groupIDParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	g, err := s.repo.GetGroupByID(ctx, in.GroupID)
	if err != nil {
		return nil, err
	}
	if err := s.removeGroup(ctx, ac, g); err != nil {
		return nil, err
	}
	s.log.WithField("group", g.ShortName).Info("group deleted")
	return true, nil
}

// removeGroup deletes the group with its stream and followers and queues the cache and index
// cleanup for everything that referenced it.
func (s *Service) removeGroup(ctx context.Context, ac *domain.ActionContext, g domain.Group) error {
	coordinators, err := s.repo.GetGroupCoordinatorIDs(ctx, g.ID)
	if err != nil {
		return err
	}
	deletion, err := s.repo.DeleteActivitiesByScope(ctx, g.StreamScopeID)
	if err != nil {
		return err
	}
	followerIDs, err := s.repo.RemoveAllGroupFollowers(ctx, g.ID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteGroup(ctx, g.ID); err != nil {
		return err
	}
	if err := s.repo.RefreshOrganizationStats(ctx, g.ParentOrganizationID); err != nil {
		return err
	}

	if err := s.enqueueCacheDelete(ac,
		domain.CacheGroupByShortName+g.ShortName,
		domain.CacheKey(domain.CacheGroupByID, g.ID),
		domain.CacheKey(domain.CacheFollowersByGroup, g.ID),
		domain.CacheKey(domain.CacheCoordinatorPersonIDsByGroupID, g.ID),
		domain.CacheKey(domain.CacheEntityStreamByScopeID, g.StreamScopeID),
		domain.CacheStreamScopeIDByGroupShortName+g.ShortName,
		domain.CachePopularHashTagsByStreamTypeAndSN+string(domain.ScopeTypeGroup)+"-"+g.ShortName,
	); err != nil {
		return err
	}
	for _, id := range followerIDs {
		if err := s.enqueueListRemoval(ac, []int64{g.ID}, domain.CacheKey(domain.CacheGroupsFollowedByPerson, id)); err != nil {
			return err
		}
	}
	for personID, activityIDs := range deletion.StarredByPerson {
		if err := s.enqueueListRemoval(ac, activityIDs, domain.CacheKey(domain.CacheStarredByPersonID, personID)); err != nil {
			return err
		}
	}
	if len(deletion.ActivityIDs) > 0 {
		everyone := deletion.ActivityIDs
		if len(everyone) > s.opts.MaxCacheListSize {
			everyone = everyone[:s.opts.MaxCacheListSize-1]
		}
		if err := s.enqueueListRemoval(ac, everyone, domain.CacheEveryoneActivityIDs); err != nil {
			return err
		}
	}
	if !g.PublicGroup {
		for _, id := range coordinators {
			if err := s.enqueueListRemoval(ac, []int64{g.ID}, domain.CacheKey(domain.CachePrivateGroupIDsViewableAsCoord, id)); err != nil {
				return err
			}
		}
	}

	if err := ac.Enqueue(ActionDeleteFromSearchIndex, deleteFromSearchIndexParams{EntityType: domain.ScopeTypeGroup, IDs: []int64{g.ID}}); err != nil {
		return err
	}
	if len(deletion.ActivityIDs) > 0 {
		if err := ac.Enqueue(ActionDeleteFromSearchIndex, deleteFromSearchIndexParams{EntityType: domain.EntityTypeActivity, IDs: deletion.ActivityIDs}); err != nil {
			return err
		}
	}
	for _, id := range deletion.ActivityIDs {
		if err := s.enqueueCacheDelete(ac, domain.CacheKey(domain.CacheActivityByID, id)); err != nil {
			return err
		}
	}
	for _, id := range deletion.CommentIDs {
		if err := s.enqueueCacheDelete(ac, domain.CacheKey(domain.CacheCommentByID, id)); err != nil {
			return err
		}
	}

	people := append(append([]int64{}, followerIDs...), coordinators...)
	personKeys := make([]string, 0, len(people))
	for _, id := range people {
		personKeys = append(personKeys, domain.CacheKey(domain.CachePersonByID, id))
	}
	orgKeys, err := s.organizationChainKeys(ctx, g.ParentOrganizationID)
	if err != nil {
		return err
	}
	return s.enqueueCacheDelete(ac, append(personKeys, orgKeys...)...)
}

func (s *Service) getPendingGroups(ctx context.Context, _ *domain.ActionContext) (any, error) {
	groups, err := s.repo.ListPendingGroups(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domain.GroupModelView, 0, len(groups))
	for _, g := range groups {
		views = append(views, groupView(g))
	}
	return views, nil
}

func (s *Service) groupModelView(ctx context.Context, g domain.Group) (domain.GroupModelView, error) {
	view := groupView(g)
	entityID := g.ID
	view.BannerEntityID = &entityID
	if g.BannerID == nil && g.ParentOrganizationID != 0 {
		banner, err := s.bannerFromParentOrganization(ctx, g.ParentOrganizationID)
		if err != nil {
			return domain.GroupModelView{}, err
		}
		if banner.ID != nil {
			view.BannerID = banner.ID
			view.BannerEntityID = banner.EntityID
		}
	}

	coordinatorIDs, err := s.cachedGroupCoordinatorIDs(ctx, g.ID)
	if err != nil {
		return domain.GroupModelView{}, err
	}
	coordinators, err := s.personModelViews(ctx, coordinatorIDs)
	if err != nil {
		return domain.GroupModelView{}, err
	}
	view.Coordinators = coordinators

	if g.StickyActivityID != nil {
		a, err := s.repo.GetActivityByID(ctx, *g.StickyActivityID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
		case err != nil:
			return domain.GroupModelView{}, err
		default:
			sticky, err := s.activityModelView(ctx, a, 0)
			if err != nil {
				return domain.GroupModelView{}, err
			}
			view.StickyActivity = &sticky
		}
	}
	return view, nil
}

func groupView(g domain.Group) domain.GroupModelView {
	return domain.GroupModelView{
		ID:                   g.ID,
		ShortName:            g.ShortName,
		Name:                 g.Name,
		AvatarID:             g.AvatarID,
		BannerID:             g.BannerID,
		Overview:             g.Overview,
		Description:          g.Description,
		URL:                  g.URL,
		PublicGroup:          g.PublicGroup,
		Commentable:          g.Commentable,
		StreamPostable:       g.StreamPostable,
		IsPending:            g.IsPending,
		ParentOrganizationID: g.ParentOrganizationID,
		StreamScopeID:        g.StreamScopeID,
		FollowersCount:       g.FollowersCount,
		UpdatesCount:         g.UpdatesCount,
		Capabilities:         g.Capabilities,
		DateAdded:            g.DateAdded,
	}
}

func restrictedGroupView(g domain.Group) domain.GroupModelView {
	return domain.GroupModelView{
		ID:         g.ID,
		ShortName:  g.ShortName,
		Name:       g.Name,
		AvatarID:   g.AvatarID,
		BannerID:   g.BannerID,
		Restricted: true,
	}
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
