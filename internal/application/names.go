package application

const (
	ActionRegisterUsageMetric       = "registerUsageMetric"
	ActionPersistUsageMetric        = "persistUsageMetric"
	ActionGenerateDailyUsageSummary = "generateDailyUsageSummary"
	ActionGetUsageMetricSummary     = "getUsageMetricSummary"

	ActionReindexEntities       = "reindexEntities"
	ActionIndexPersonByID       = "indexPersonById"
	ActionIndexOrganizationByID = "indexOrganizationById"
	ActionIndexGroupByID        = "indexGroupById"
	ActionDeleteFromSearchIndex = "deleteFromSearchIndexAction"
	ActionSearchDirectory       = "searchDirectory"

	ActionDeleteCacheKeys    = "deleteCacheKeysAction"
	ActionDeleteIDsFromLists = "deleteIdsFromLists"
	ActionClearCache         = "clearCache"

	ActionCreateOrganization      = "createOrganization"
	ActionUpdateOrganization      = "updateOrganization"
	ActionGetOrganization         = "getOrganization"
	ActionGetOrganizationChildren = "getOrganizationChildren"
	ActionDeleteOrganization      = "deleteOrganization"

	ActionCreatePerson                = "createPerson"
	ActionGetPerson                   = "getPerson"
	ActionUpdatePerson                = "updatePerson"
	ActionSetFollowingPersonStatus    = "setFollowingPersonStatus"
	ActionGetFollowers                = "getFollowers"
	ActionGetFollowing                = "getFollowing"
	ActionRefreshFollowedByActivities = "refreshFollowedByActivities"

	ActionGetJobs              = "getJobs"
	ActionAddJob               = "addJob"
	ActionUpdateJob            = "updateJob"
	ActionDeleteJob            = "deleteJob"
	ActionGetEnrollments       = "getEnrollments"
	ActionAddEnrollment        = "addEnrollment"
	ActionDeleteEnrollment     = "deleteEnrollment"
	ActionGetRecommendations   = "getRecommendations"
	ActionAddRecommendation    = "addRecommendation"
	ActionDeleteRecommendation = "deleteRecommendation"
	ActionGetBackground        = "getBackground"
	ActionUpdateBackground     = "updateBackground"

	ActionCreateGroup             = "createGroup"
	ActionGetGroup                = "getGroup"
	ActionSetFollowingGroupStatus = "setFollowingGroupStatus"
	ActionReviewPendingGroup      = "reviewPendingGroup"
	ActionDeleteGroup             = "deleteGroup"
	ActionDeleteGroupFromDB       = "deleteGroupFromDB"
	ActionGetPendingGroups        = "getPendingGroups"

	ActionPostActivity           = "postActivity"
	ActionPostComment            = "postComment"
	ActionDeleteActivity         = "deleteActivity"
	ActionStarActivity           = "starActivity"
	ActionGetStream              = "getStream"
	ActionPurgeExpiredActivities = "purgeExpiredActivities"

	ActionCreateNotifications   = "createNotificationsAction"
	ActionGetNotifications      = "getNotifications"
	ActionMarkNotificationsRead = "markNotificationsRead"

	ActionGetSystemSettings    = "getSystemSettings"
	ActionUpdateSystemSettings = "updateSystemSettings"

	ActionSaveAvatar = "saveAvatar"

	ActionGetStreamEmailAddress = "getStreamEmailAddress"
	ActionProcessInboundMessage = "processInboundMessage"
)
