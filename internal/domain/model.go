package domain

import "time"

type ScopeType string

const (
	ScopeTypePerson       ScopeType = "PERSON"
	ScopeTypeGroup        ScopeType = "GROUP"
	ScopeTypeOrganization ScopeType = "ORGANIZATION"

	// EntityTypeActivity only appears in the search index.
	EntityTypeActivity ScopeType = "ACTIVITY"
)

type StreamScope struct {
	ID                  int64     `json:"id"`
	ScopeType           ScopeType `json:"scopeType"`
	UniqueKey           string    `json:"uniqueKey"`
	DestinationEntityID int64     `json:"destinationEntityId"`
}

type Person struct {
	ID                   int64     `json:"id"`
	AccountID            string    `json:"accountId"`
	OpenSocialID         string    `json:"openSocialId"`
	FirstName            string    `json:"firstName"`
	MiddleName           string    `json:"middleName"`
	LastName             string    `json:"lastName"`
	PreferredName        string    `json:"preferredName"`
	Email                string    `json:"email"`
	Title                string    `json:"title"`
	JobDescription       string    `json:"jobDescription"`
	Overview             string    `json:"overview"`
	Quote                string    `json:"quote"`
	Location             string    `json:"location"`
	WorkPhone            string    `json:"workPhone"`
	CellPhone            string    `json:"cellPhone"`
	Fax                  string    `json:"fax"`
	CompanyName          string    `json:"companyName"`
	AvatarID             string    `json:"avatarId"`
	ParentOrganizationID int64     `json:"parentOrganizationId"`
	StreamScopeID        int64     `json:"streamScopeId"`
	FollowersCount       int       `json:"followersCount"`
	FollowingCount       int       `json:"followingCount"`
	GroupsCount          int       `json:"groupsCount"`
	UpdatesCount         int       `json:"updatesCount"`
	Commentable          bool      `json:"commentable"`
	StreamPostable       bool      `json:"streamPostable"`
	AccountLocked        bool      `json:"accountLocked"`
	AccountDeactivated   bool      `json:"accountDeactivated"`
	PasswordHash         string    `json:"-"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (p Person) DisplayName() string {
	first := p.PreferredName
	if first == "" {
		first = p.FirstName
	}
	if p.LastName == "" {
		return first
	}
	return first + " " + p.LastName
}

type Organization struct {
	ID                      int64     `json:"id"`
	ShortName               string    `json:"shortName"`
	Name                    string    `json:"name"`
	Overview                string    `json:"overview"`
	Description             string    `json:"description"`
	URL                     string    `json:"url"`
	AvatarID                string    `json:"avatarId"`
	BannerID                *string   `json:"bannerId"`
	ParentOrganizationID    *int64    `json:"parentOrganizationId"`
	StreamScopeID           int64     `json:"streamScopeId"`
	AllUsersCanCreateGroups bool      `json:"allUsersCanCreateGroups"`
	ChildOrganizationCount  int       `json:"childOrganizationCount"`
	DescendantGroupCount    int       `json:"descendantGroupCount"`
	DescendantEmployeeCount int       `json:"descendantEmployeeCount"`
	EmployeeFollowerCount   int       `json:"employeeFollowerCount"`
	UpdatesCount            int       `json:"updatesCount"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

func (o Organization) IsRoot() bool { return o.ParentOrganizationID == nil }

type Group struct {
	ID                   int64     `json:"id"`
	ShortName            string    `json:"shortName"`
	Name                 string    `json:"name"`
	Overview             string    `json:"overview"`
	Description          string    `json:"description"`
	URL                  string    `json:"url"`
	AvatarID             string    `json:"avatarId"`
	BannerID             *string   `json:"bannerId"`
	PublicGroup          bool      `json:"publicGroup"`
	Commentable          bool      `json:"commentable"`
	StreamPostable       bool      `json:"streamPostable"`
	IsPending            bool      `json:"isPending"`
	CreatedByID          int64     `json:"createdById"`
	ParentOrganizationID int64     `json:"parentOrganizationId"`
	StreamScopeID        int64     `json:"streamScopeId"`
	Capabilities         []string  `json:"capabilities"`
	FollowersCount       int       `json:"followersCount"`
	UpdatesCount         int       `json:"updatesCount"`
	StickyActivityID     *int64    `json:"stickyActivityId"`
	DateAdded            time.Time `json:"dateAdded"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

type ActivityVerb string

const (
	VerbPost  ActivityVerb = "POST"
	VerbShare ActivityVerb = "SHARE"
)

type Activity struct {
	ID                        int64        `json:"id"`
	ActorPersonID             int64        `json:"actorPersonId"`
	RecipientStreamScopeID    int64        `json:"recipientStreamScopeId"`
	Verb                      ActivityVerb `json:"verb"`
	BaseObjectType            string       `json:"baseObjectType"`
	Body                      string       `json:"body"`
	TargetURL                 string       `json:"targetUrl"`
	OriginalActivityID        *int64       `json:"originalActivityId"`
	CommentCount              int          `json:"commentCount"`
	IsDestinationStreamPublic bool         `json:"isDestinationStreamPublic"`
	PostedTime                time.Time    `json:"postedTime"`
}

type Comment struct {
	ID             int64     `json:"id"`
	ActivityID     int64     `json:"activityId"`
	AuthorPersonID int64     `json:"authorPersonId"`
	Body           string    `json:"body"`
	TimeSent       time.Time `json:"timeSent"`
}

// ActivityDeletion describes everything removed along with a stream's activities.
type ActivityDeletion struct {
	ActivityIDs     []int64
	CommentIDs      []int64
	StarredByPerson map[int64][]int64
}

type Job struct {
	ID          int64      `json:"id"`
	PersonID    int64      `json:"personId"`
	CompanyName string     `json:"companyName"`
	Industry    string     `json:"industry"`
	Title       string     `json:"title"`
	DateFrom    time.Time  `json:"dateFrom"`
	DateTo      *time.Time `json:"dateTo"`
	Description string     `json:"description"`
}

type Enrollment struct {
	ID                int64      `json:"id"`
	PersonID          int64      `json:"personId"`
	SchoolName        string     `json:"schoolName"`
	Degree            string     `json:"degree"`
	AreasOfStudy      []string   `json:"areasOfStudy"`
	GradDate          *time.Time `json:"gradDate"`
	Activities        []string   `json:"activities"`
	AdditionalDetails string     `json:"additionalDetails"`
}

type Recommendation struct {
	ID                  int64     `json:"id"`
	SubjectID           int64     `json:"subjectId"`
	SubjectOpenSocialID string    `json:"subjectOpenSocialId"`
	AuthorOpenSocialID  string    `json:"authorOpenSocialId"`
	Text                string    `json:"text"`
	Date                time.Time `json:"date"`
}

type BackgroundItemType string

const (
	BackgroundAffiliation BackgroundItemType = "AFFILIATION"
	BackgroundHonor       BackgroundItemType = "HONOR"
	BackgroundInterest    BackgroundItemType = "INTEREST"
	BackgroundSkill       BackgroundItemType = "SKILL"
)

var BackgroundItemTypes = []BackgroundItemType{BackgroundAffiliation, BackgroundHonor, BackgroundInterest, BackgroundSkill}

type BackgroundItem struct {
	ID       int64              `json:"id"`
	PersonID int64              `json:"personId"`
	Type     BackgroundItemType `json:"type"`
	Name     string             `json:"name"`
}

type Background struct {
	PersonID int64                           `json:"personId"`
	Items    map[BackgroundItemType][]string `json:"items"`
}

type UsageMetric struct {
	ID                      int64     `json:"id"`
	ActorPersonID           int64     `json:"actorPersonId"`
	IsPageView              bool      `json:"isPageView"`
	IsStreamView            bool      `json:"isStreamView"`
	StreamViewStreamScopeID *int64    `json:"streamViewStreamScopeId"`
	Created                 time.Time `json:"created"`
}

type DailyUsageSummary struct {
	ID                      int64     `json:"id"`
	UniqueVisitorCount      int64     `json:"uniqueVisitorCount"`
	PageViewCount           int64     `json:"pageViewCount"`
	StreamViewerCount       int64     `json:"streamViewerCount"`
	StreamViewCount         int64     `json:"streamViewCount"`
	StreamContributorCount  int64     `json:"streamContributorCount"`
	MessageCount            int64     `json:"messageCount"`
	AvgActivityResponseTime int64     `json:"avgActivityResponseTime"`
	UsageDate               time.Time `json:"usageDate"`
	UsageDateTimeStampInMs  int64     `json:"usageDateTimeStampInMs"`
	IsWeekday               bool      `json:"isWeekday"`
	StreamViewStreamScopeID *int64    `json:"streamViewStreamScopeId"`
	TotalActivityCount      int64     `json:"totalActivityCount"`
	TotalCommentCount       int64     `json:"totalCommentCount"`
	TotalStreamViewCount    int64     `json:"totalStreamViewCount"`
	TotalContributorCount   int64     `json:"totalContributorCount"`
}

// UsageStats are the per-day counts that feed a DailyUsageSummary.
type UsageStats struct {
	UniqueVisitorCount      int64
	PageViewCount           int64
	StreamViewerCount       int64
	StreamViewCount         int64
	StreamContributorCount  int64
	MessageCount            int64
	AvgActivityResponseTime int64
}

// StreamTotals are all-time counts up to a point in time.
type StreamTotals struct {
	ActivityCount    int64
	CommentCount     int64
	StreamViewCount  int64
	ContributorCount int64
}

type SystemSettings struct {
	SiteLabel                     string  `json:"siteLabel"`
	TermsOfService                string  `json:"termsOfService"`
	TOSPromptInterval             int     `json:"tosPromptInterval"`
	ContentWarningText            string  `json:"contentWarningText"`
	ContentExpiration             int     `json:"contentExpiration"`
	PluginWarning                 string  `json:"pluginWarning"`
	SendWelcomeEmails             bool    `json:"sendWelcomeEmails"`
	SupportStreamGroupShortName   string  `json:"supportStreamGroupShortName"`
	SupportStreamGroupDisplayName string  `json:"supportStreamGroupDisplayName"`
	SupportPhoneNumber            string  `json:"supportPhoneNumber"`
	SupportEmailAddress           string  `json:"supportEmailAddress"`
	AdminIDs                      []int64 `json:"adminIds"`
}

type NotificationType string

const (
	NotificationFollower            NotificationType = "FOLLOWER"
	NotificationGroupFollower       NotificationType = "GROUP_FOLLOWER"
	NotificationPostPersonStream    NotificationType = "POST_PERSON_STREAM"
	NotificationPostGroupStream     NotificationType = "POST_GROUP_STREAM"
	NotificationCommentToActivity   NotificationType = "COMMENT_TO_PERSONAL_POST"
	NotificationNewGroupApproved    NotificationType = "REQUEST_NEW_GROUP_APPROVED"
	NotificationNewGroupDenied      NotificationType = "REQUEST_NEW_GROUP_DENIED"
	NotificationPendingGroupCreated NotificationType = "REQUEST_NEW_GROUP"
)

type Notification struct {
	ID               int64            `json:"id"`
	RecipientID      int64            `json:"recipientId"`
	NotificationType NotificationType `json:"notificationType"`
	Message          string           `json:"message"`
	URL              string           `json:"url"`
	HighPriority     bool             `json:"highPriority"`
	IsRead           bool             `json:"isRead"`
	CreatedAt        time.Time        `json:"createdAt"`
}

type SearchDocument struct {
	EntityType ScopeType `json:"entityType"`
	EntityID   int64     `json:"entityId"`
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Restricted bool      `json:"restricted,omitempty"`
}

type AuthSession struct {
	ID        int64
	PersonID  int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type APIToken struct {
	ID        int64
	PersonID  int64
	Name      string
	TokenHash string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

type AuditLog struct {
	ID            int64
	ActorPersonID *int64
	Action        string
	TargetType    string
	TargetID      *int64
	Metadata      string
	CreatedAt     time.Time
}

type Role struct {
	ID        int64
	Key       string
	Name      string
	CreatedAt time.Time
}

type AuditRecord struct {
	ID             int64
	ActorPersonID  *int64
	ActorAccountID string
	Action         string
	TargetType     string
	TargetID       *int64
	Metadata       string
	CreatedAt      time.Time
}
