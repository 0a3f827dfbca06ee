package domain

import "strconv"

const (
	CachePersonByID                       = "Person:"
	CachePersonByAccountID                = "PersonByAccountId:"
	CacheOrganizationByID                 = "Org:"
	CacheOrganizationByShortName          = "OrgByShortName:"
	CacheOrganizationRecursiveChildren    = "OrgRecursiveChildren:"
	CacheOrganizationParentsRecursive     = "OrgParentsRecursive:"
	CacheOrganizationTreeDTO              = "OrgTreeDTO"
	CacheGroupByID                        = "Group:"
	CacheGroupByShortName                 = "GroupByShortName:"
	CacheFollowersByPerson                = "FollowersByPerson:"
	CachePeopleFollowedByPerson           = "PeopleFollowedByPerson:"
	CacheFollowersByGroup                 = "FollowersByGroup:"
	CacheGroupsFollowedByPerson           = "GroupsFollowedByPerson:"
	CacheCoordinatorPersonIDsByGroupID    = "CoordinatorPersonIdsByGroupId:"
	CachePrivateGroupIDsViewableAsCoord   = "PrivateGroupIdsViewableByPersonAsCoordinator:"
	CacheEntityStreamByScopeID            = "EntityStreamByScopeId:"
	CacheStreamScopeIDByGroupShortName    = "StreamScopeIdByGroupShortName:"
	CachePopularHashTagsByStreamTypeAndSN = "PopularHashTagsByStreamTypeAndShortName:"
	CacheStarredByPersonID                = "StarredByPersonId:"
	CacheEveryoneActivityIDs              = "EveryoneActivityIds"
	CacheActivitiesByFollowing            = "ActivitiesByFollowing:"
	CacheActivityByID                     = "Activity:"
	CacheCommentByID                      = "Comment:"
	CacheSystemSettings                   = "SystemSettings"
	CacheSharedResourceByURL              = "SharedResourceByUrl:"
)

// CacheKey joins a key prefix with an entity id.
func CacheKey(prefix string, id int64) string {
	return prefix + strconv.FormatInt(id, 10)
}
