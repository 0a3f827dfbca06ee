package domain

import "time"

type PersonModelView struct {
	ID                      int64    `json:"id"`
	AccountID               string   `json:"accountId"`
	OpenSocialID            string   `json:"openSocialId"`
	DisplayName             string   `json:"displayName"`
	Title                   string   `json:"title"`
	Email                   string   `json:"email"`
	AvatarID                string   `json:"avatarId"`
	ParentOrganizationID    int64    `json:"parentOrganizationId"`
	ParentOrganizationName  string   `json:"parentOrganizationName"`
	ParentOrganizationShort string   `json:"parentOrganizationShortName"`
	StreamScopeID           int64    `json:"streamScopeId"`
	FollowersCount          int      `json:"followersCount"`
	FollowingCount          int      `json:"followingCount"`
	GroupsCount             int      `json:"groupsCount"`
	UpdatesCount            int      `json:"updatesCount"`
	Commentable             bool     `json:"commentable"`
	StreamPostable          bool     `json:"streamPostable"`
	AccountLocked           bool     `json:"accountLocked"`
	Skills                  []string `json:"skills"`
}

type OrganizationModelView struct {
	ID                      int64   `json:"id"`
	ShortName               string  `json:"shortName"`
	Name                    string  `json:"name"`
	Overview                string  `json:"overview"`
	AvatarID                string  `json:"avatarId"`
	BannerID                *string `json:"bannerId"`
	BannerEntityID          *int64  `json:"bannerEntityId"`
	ParentOrganizationID    *int64  `json:"parentOrganizationId"`
	StreamScopeID           int64   `json:"streamScopeId"`
	ChildOrganizationCount  int     `json:"childOrganizationCount"`
	DescendantGroupCount    int     `json:"descendantGroupCount"`
	DescendantEmployeeCount int     `json:"descendantEmployeeCount"`
	EmployeeFollowerCount   int     `json:"employeeFollowerCount"`
	Coordinators            []int64 `json:"coordinators"`
}

type GroupModelView struct {
	ID                   int64              `json:"id"`
	ShortName            string             `json:"shortName"`
	Name                 string             `json:"name"`
	AvatarID             string             `json:"avatarId"`
	BannerID             *string            `json:"bannerId"`
	BannerEntityID       *int64             `json:"bannerEntityId,omitempty"`
	Restricted           bool               `json:"restricted"`
	Overview             string             `json:"overview,omitempty"`
	Description          string             `json:"description,omitempty"`
	URL                  string             `json:"url,omitempty"`
	PublicGroup          bool               `json:"publicGroup"`
	Commentable          bool               `json:"commentable"`
	StreamPostable       bool               `json:"streamPostable"`
	IsPending            bool               `json:"isPending"`
	ParentOrganizationID int64              `json:"parentOrganizationId,omitempty"`
	StreamScopeID        int64              `json:"streamScopeId,omitempty"`
	FollowersCount       int                `json:"followersCount"`
	UpdatesCount         int                `json:"updatesCount"`
	Capabilities         []string           `json:"capabilities,omitempty"`
	Coordinators         []PersonModelView  `json:"coordinators,omitempty"`
	StickyActivity       *ActivityModelView `json:"stickyActivity,omitempty"`
	DateAdded            time.Time          `json:"dateAdded"`
}

type ActivityModelView struct {
	Activity
	ActorAccountID   string    `json:"actorAccountId"`
	ActorDisplayName string    `json:"actorDisplayName"`
	DestinationType  ScopeType `json:"destinationType"`
	DestinationKey   string    `json:"destinationUniqueKey"`
	Starred          bool      `json:"starred"`
	Comments         []Comment `json:"comments,omitempty"`
}

type UsageMetricSummary struct {
	RecordCount                        int                  `json:"recordCount"`
	WeekdayRecordCount                 int64                `json:"weekdayRecordCount"`
	AverageDailyUniqueVisitorCount     int64                `json:"averageDailyUniqueVisitorCount"`
	AverageDailyPageViewCount          int64                `json:"averageDailyPageViewCount"`
	AverageDailyStreamViewerCount      int64                `json:"averageDailyStreamViewerCount"`
	AverageDailyStreamViewCount        int64                `json:"averageDailyStreamViewCount"`
	AverageDailyStreamContributorCount int64                `json:"averageDailyStreamContributorCount"`
	AverageDailyMessageCount           int64                `json:"averageDailyMessageCount"`
	AverageDailyActivityResponseTime   int64                `json:"averageDailyActivityResponseTime"`
	AverageDailyCommentCount           int64                `json:"averageDailyCommentCount"`
	TotalActivityCount                 int64                `json:"totalActivityCount"`
	TotalCommentCount                  int64                `json:"totalCommentCount"`
	TotalStreamViewCount               int64                `json:"totalStreamViewCount"`
	TotalContributorCount              int64                `json:"totalContributorCount"`
	DailyStatistics                    []*DailyUsageSummary `json:"dailyStatistics"`
}
