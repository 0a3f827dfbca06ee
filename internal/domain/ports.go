package domain

import (
	"context"
	"time"
)

type PersonRepository interface {
	CreatePerson(ctx context.Context, value Person) (Person, error)
	CountPeople(ctx context.Context) (int64, error)
	GetPersonByID(ctx context.Context, id int64) (Person, error)
	GetPersonByAccountID(ctx context.Context, accountID string) (Person, error)
	GetPersonByEmail(ctx context.Context, email string) (Person, error)
	GetPeopleByIDs(ctx context.Context, ids []int64) ([]Person, error)
	GetPeopleByAccountIDs(ctx context.Context, accountIDs []string) ([]Person, error)
	ListPersonIDs(ctx context.Context) ([]int64, error)
	UpdatePerson(ctx context.Context, value Person) error
	SetRelatedOrganizations(ctx context.Context, personID int64, orgIDs []int64) error
	GetRelatedOrganizationIDs(ctx context.Context, personID int64) ([]int64, error)
	GetPersonIDsRelatedToOrganization(ctx context.Context, orgID int64) ([]int64, error)
	MovePeopleToOrganization(ctx context.Context, fromOrgID, toOrgID int64) ([]int64, error)

	AddPersonFollower(ctx context.Context, followerID, targetID int64) (bool, error)
	RemovePersonFollower(ctx context.Context, followerID, targetID int64) (bool, error)
	IsFollowingPerson(ctx context.Context, followerID, targetID int64) (bool, error)
	GetFollowerIDs(ctx context.Context, personID int64) ([]int64, error)
	GetFollowingIDs(ctx context.Context, personID int64) ([]int64, error)
}

type OrganizationRepository interface {
	CreateOrganization(ctx context.Context, value Organization) (Organization, error)
	GetOrganizationByID(ctx context.Context, id int64) (Organization, error)
	GetOrganizationByShortName(ctx context.Context, shortName string) (Organization, error)
	GetOrganizationsByIDs(ctx context.Context, ids []int64) ([]Organization, error)
	GetRootOrganization(ctx context.Context) (Organization, error)
	ListOrganizationIDs(ctx context.Context) ([]int64, error)
	ListChildOrganizations(ctx context.Context, orgID int64) ([]Organization, error)
	GetRecursiveParentOrgIDs(ctx context.Context, orgID int64) ([]int64, error)
	UpdateOrganization(ctx context.Context, value Organization) error
	DeleteOrganization(ctx context.Context, orgID int64) error
	SetOrganizationCoordinators(ctx context.Context, orgID int64, personIDs []int64) error
	GetOrganizationCoordinatorIDs(ctx context.Context, orgID int64) ([]int64, error)
	RefreshOrganizationStats(ctx context.Context, orgID int64) error
}

type GroupRepository interface {
	CreateGroup(ctx context.Context, value Group) (Group, error)
	GetGroupByID(ctx context.Context, id int64) (Group, error)
	GetGroupByShortName(ctx context.Context, shortName string) (Group, error)
	GetGroupsByIDs(ctx context.Context, ids []int64) ([]Group, error)
	ListGroupIDs(ctx context.Context) ([]int64, error)
	ListPendingGroups(ctx context.Context) ([]Group, error)
	UpdateGroup(ctx context.Context, value Group) error
	DeleteGroup(ctx context.Context, groupID int64) error
	SetGroupCoordinators(ctx context.Context, groupID int64, personIDs []int64) error
	GetGroupCoordinatorIDs(ctx context.Context, groupID int64) ([]int64, error)

	AddGroupFollower(ctx context.Context, followerID, groupID int64) (bool, error)
	RemoveGroupFollower(ctx context.Context, followerID, groupID int64) (bool, error)
	RemoveAllGroupFollowers(ctx context.Context, groupID int64) ([]int64, error)
	IsFollowingGroup(ctx context.Context, personID, groupID int64) (bool, error)
	GetGroupFollowerIDs(ctx context.Context, groupID int64) ([]int64, error)
	GetFollowedGroupIDs(ctx context.Context, personID int64) ([]int64, error)
}

type StreamRepository interface {
	GetStreamScopeByID(ctx context.Context, id int64) (StreamScope, error)
	GetStreamScope(ctx context.Context, scopeType ScopeType, uniqueKey string) (StreamScope, error)

	CreateActivity(ctx context.Context, value Activity) (Activity, error)
	GetActivityByID(ctx context.Context, id int64) (Activity, error)
	DeleteActivity(ctx context.Context, id int64) ([]int64, error)
	ListActivitiesByScope(ctx context.Context, scopeID int64, beforeID int64, limit int) ([]Activity, error)
	DeleteActivitiesByScope(ctx context.Context, scopeID int64) (ActivityDeletion, error)
	DeleteActivitiesOlderThan(ctx context.Context, cutoff time.Time) ([]int64, error)
	CreateComment(ctx context.Context, value Comment) (Comment, error)
	ListComments(ctx context.Context, activityID int64) ([]Comment, error)
	SetStar(ctx context.Context, personID, activityID int64, starred bool) error
	GetStarredActivityIDs(ctx context.Context, personID int64) ([]int64, error)
}

type ProfileRepository interface {
	ListJobs(ctx context.Context, personID int64) ([]Job, error)
	GetJob(ctx context.Context, id int64) (Job, error)
	SaveJob(ctx context.Context, value Job) (Job, error)
	DeleteJob(ctx context.Context, id int64) error

	ListEnrollments(ctx context.Context, personID int64) ([]Enrollment, error)
	GetEnrollment(ctx context.Context, id int64) (Enrollment, error)
	SaveEnrollment(ctx context.Context, value Enrollment) (Enrollment, error)
	DeleteEnrollment(ctx context.Context, id int64) error

	ListRecommendations(ctx context.Context, subjectID int64) ([]Recommendation, error)
	GetRecommendation(ctx context.Context, id int64) (Recommendation, error)
	CreateRecommendation(ctx context.Context, value Recommendation) (Recommendation, error)
	DeleteRecommendation(ctx context.Context, id int64) error

	ListBackgroundItems(ctx context.Context, personID int64) ([]BackgroundItem, error)
	SetBackgroundItems(ctx context.Context, personID int64, itemType BackgroundItemType, names []string) error
}

type UsageRepository interface {
	InsertUsageMetric(ctx context.Context, value UsageMetric) error
	DeleteUsageMetricsBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ComputeUsageStats(ctx context.Context, from, to time.Time, scopeID *int64) (UsageStats, error)
	ComputeStreamTotals(ctx context.Context, scopeID int64, until time.Time) (StreamTotals, error)
	ListActiveStreamScopeIDs(ctx context.Context, from, to time.Time) ([]int64, error)
	GetDailyUsageSummary(ctx context.Context, usageDate time.Time, scopeID *int64) (DailyUsageSummary, error)
	InsertDailyUsageSummary(ctx context.Context, value DailyUsageSummary) error
	ListWeekdaySummaries(ctx context.Context, scopeID *int64) ([]DailyUsageSummary, error)
}

type SettingsRepository interface {
	GetSystemSettings(ctx context.Context) (SystemSettings, error)
	UpdateSystemSettings(ctx context.Context, value SystemSettings) error
}

type NotificationRepository interface {
	CreateNotifications(ctx context.Context, values []Notification) error
	ListNotifications(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]Notification, error)
	MarkNotificationsRead(ctx context.Context, recipientID int64, ids []int64) (int64, error)
}

type SearchRepository interface {
	UpsertSearchDocument(ctx context.Context, value SearchDocument) error
	DeleteSearchDocuments(ctx context.Context, entityType ScopeType, ids []int64) error
	SearchDocuments(ctx context.Context, query string, entityType ScopeType, limit int) ([]SearchDocument, error)
}

type AuthRepository interface {
	CreateSession(ctx context.Context, value AuthSession) (AuthSession, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (AuthSession, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	CreateAPIToken(ctx context.Context, value APIToken) (APIToken, error)
	GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (APIToken, error)
	CreateRoleIfMissing(ctx context.Context, key, name string) (int64, error)
	ListRoles(ctx context.Context) ([]Role, error)
	CreatePermissionIfMissing(ctx context.Context, key string) (int64, error)
	GrantPermissionToRole(ctx context.Context, roleID, permissionID int64) error
	AssignRoleToPerson(ctx context.Context, personID, roleID int64) error
	SetRoleMembers(ctx context.Context, roleID int64, personIDs []int64) error
	GetPersonIDsWithRole(ctx context.Context, roleKey string) ([]int64, error)
	GetPermissionsByPersonID(ctx context.Context, personID int64) ([]string, error)
	CreateAuditLog(ctx context.Context, value AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]AuditRecord, error)
}

type Repository interface {
	PersonRepository
	OrganizationRepository
	GroupRepository
	StreamRepository
	ProfileRepository
	UsageRepository
	SettingsRepository
	NotificationRepository
	SearchRepository
	AuthRepository
}

// Cache stores JSON-encoded values and id lists.
type Cache interface {
	Get(ctx context.Context, key string, out any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
	GetList(ctx context.Context, key string) ([]int64, bool, error)
	SetList(ctx context.Context, key string, ids []int64) error
	AddToTopOfList(ctx context.Context, key string, ids ...int64) error
	RemoveFromList(ctx context.Context, key string, ids ...int64) error
}

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, string, error)
	Delete(ctx context.Context, key string) error
}

type TaskQueue interface {
	Enqueue(ctx context.Context, requests ...UserActionRequest) error
}
