package sqlite

import "time"

type StreamScopeModel struct {
	ID                  int64  `gorm:"primaryKey"`
	ScopeType           string `gorm:"not null;index:idx_scope_key,unique"`
	UniqueKey           string `gorm:"not null;index:idx_scope_key,unique"`
	DestinationEntityID int64  `gorm:"not null"`
}

func (StreamScopeModel) TableName() string { return "stream_scopes" }

type PersonModel struct {
	ID                   int64  `gorm:"primaryKey"`
	AccountID            string `gorm:"not null;uniqueIndex"`
	OpenSocialID         string `gorm:"not null;uniqueIndex"`
	FirstName            string `gorm:"not null"`
	MiddleName           string
	LastName             string `gorm:"not null"`
	PreferredName        string
	Email                string `gorm:"not null;uniqueIndex"`
	Title                string
	JobDescription       string
	Overview             string
	Quote                string
	Location             string
	WorkPhone            string
	CellPhone            string
	Fax                  string
	CompanyName          string
	AvatarID             string
	ParentOrganizationID int64 `gorm:"not null;index"`
	StreamScopeID        int64
	FollowersCount       int
	FollowingCount       int
	GroupsCount          int
	UpdatesCount         int
	Commentable          bool
	StreamPostable       bool
	AccountLocked        bool
	AccountDeactivated   bool
	PasswordHash         string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (PersonModel) TableName() string { return "people" }

type PersonRelatedOrgModel struct {
	PersonID       int64 `gorm:"primaryKey"`
	OrganizationID int64 `gorm:"primaryKey"`
}

func (PersonRelatedOrgModel) TableName() string { return "person_related_orgs" }

type FollowerModel struct {
	FollowerID  int64 `gorm:"primaryKey"`
	FollowingID int64 `gorm:"primaryKey"`
	CreatedAt   time.Time
}

func (FollowerModel) TableName() string { return "followers" }

type OrganizationModel struct {
	ID                      int64  `gorm:"primaryKey"`
	ShortName               string `gorm:"not null;uniqueIndex"`
	Name                    string `gorm:"not null"`
	Overview                string
	Description             string
	URL                     string `gorm:"column:url"`
	AvatarID                string
	BannerID                *string
	ParentOrganizationID    *int64 `gorm:"index"`
	StreamScopeID           int64
	AllUsersCanCreateGroups bool
	ChildOrganizationCount  int
	DescendantGroupCount    int
	DescendantEmployeeCount int
	EmployeeFollowerCount   int
	UpdatesCount            int
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (OrganizationModel) TableName() string { return "organizations" }

type OrgCoordinatorModel struct {
	OrganizationID int64 `gorm:"primaryKey"`
	PersonID       int64 `gorm:"primaryKey"`
}

func (OrgCoordinatorModel) TableName() string { return "org_coordinators" }

type GroupModel struct {
	ID                   int64  `gorm:"primaryKey"`
	ShortName            string `gorm:"not null;uniqueIndex"`
	Name                 string `gorm:"not null"`
	Overview             string
	Description          string
	URL                  string `gorm:"column:url"`
	AvatarID             string
	BannerID             *string
	PublicGroup          bool
	Commentable          bool
	StreamPostable       bool
	IsPending            bool
	CreatedByID          int64
	ParentOrganizationID int64 `gorm:"not null;index"`
	StreamScopeID        int64
	Capabilities         string
	FollowersCount       int
	UpdatesCount         int
	StickyActivityID     *int64
	DateAdded            time.Time
	UpdatedAt            time.Time
}

func (GroupModel) TableName() string { return "domain_groups" }

type GroupCoordinatorModel struct {
	GroupID  int64 `gorm:"primaryKey"`
	PersonID int64 `gorm:"primaryKey"`
}

func (GroupCoordinatorModel) TableName() string { return "group_coordinators" }

type GroupFollowerModel struct {
	FollowerID int64 `gorm:"primaryKey"`
	GroupID    int64 `gorm:"primaryKey"`
	CreatedAt  time.Time
}

func (GroupFollowerModel) TableName() string { return "group_followers" }

type ActivityModel struct {
	ID                        int64 `gorm:"primaryKey"`
	ActorPersonID             int64 `gorm:"not null;index"`
	RecipientStreamScopeID    int64 `gorm:"not null;index"`
	Verb                      string
	BaseObjectType            string
	Body                      string
	TargetURL                 string `gorm:"column:target_url"`
	OriginalActivityID        *int64
	CommentCount              int
	IsDestinationStreamPublic bool
	PostedTime                time.Time `gorm:"index"`
}

func (ActivityModel) TableName() string { return "activities" }

type CommentModel struct {
	ID             int64 `gorm:"primaryKey"`
	ActivityID     int64 `gorm:"not null;index"`
	AuthorPersonID int64 `gorm:"not null"`
	Body           string
	TimeSent       time.Time `gorm:"index"`
}

func (CommentModel) TableName() string { return "comments" }

type StarModel struct {
	PersonID   int64 `gorm:"primaryKey"`
	ActivityID int64 `gorm:"primaryKey"`
	CreatedAt  time.Time
}

func (StarModel) TableName() string { return "stars" }

type JobModel struct {
	ID          int64 `gorm:"primaryKey"`
	PersonID    int64 `gorm:"not null;index"`
	CompanyName string
	Industry    string
	Title       string
	DateFrom    time.Time
	DateTo      *time.Time
	Description string
}

func (JobModel) TableName() string { return "jobs" }

type EnrollmentModel struct {
	ID                int64 `gorm:"primaryKey"`
	PersonID          int64 `gorm:"not null;index"`
	SchoolName        string
	Degree            string
	AreasOfStudy      string
	GradDate          *time.Time
	Activities        string
	AdditionalDetails string
}

func (EnrollmentModel) TableName() string { return "enrollments" }

type RecommendationModel struct {
	ID                  int64 `gorm:"primaryKey"`
	SubjectID           int64 `gorm:"not null;index"`
	SubjectOpenSocialID string
	AuthorOpenSocialID  string
	Text                string
	Date                time.Time
}

func (RecommendationModel) TableName() string { return "recommendations" }

type BackgroundItemModel struct {
	ID       int64  `gorm:"primaryKey"`
	PersonID int64  `gorm:"not null;index"`
	ItemType string `gorm:"not null"`
	Name     string `gorm:"not null"`
}

func (BackgroundItemModel) TableName() string { return "background_items" }

type UsageMetricModel struct {
	ID                      int64 `gorm:"primaryKey"`
	ActorPersonID           int64 `gorm:"not null"`
	IsPageView              bool
	IsStreamView            bool
	StreamViewStreamScopeID *int64
	Created                 time.Time `gorm:"index"`
}

func (UsageMetricModel) TableName() string { return "usage_metrics" }

type DailyUsageSummaryModel struct {
	ID                      int64 `gorm:"primaryKey"`
	UniqueVisitorCount      int64
	PageViewCount           int64
	StreamViewerCount       int64
	StreamViewCount         int64
	StreamContributorCount  int64
	MessageCount            int64
	AvgActivityResponseTime int64
	UsageDate               time.Time
	UsageDateTimeStampInMs  int64 `gorm:"column:usage_date_time_stamp_in_ms"`
	IsWeekday               bool
	StreamViewStreamScopeID *int64
	TotalActivityCount      int64
	TotalCommentCount       int64
	TotalStreamViewCount    int64
	TotalContributorCount   int64
}

func (DailyUsageSummaryModel) TableName() string { return "daily_usage_summaries" }

type SystemSettingsModel struct {
	ID                            int64 `gorm:"primaryKey"`
	SiteLabel                     string
	TermsOfService                string
	TOSPromptInterval             int `gorm:"column:tos_prompt_interval"`
	ContentWarningText            string
	ContentExpiration             int
	PluginWarning                 string
	SendWelcomeEmails             bool
	SupportStreamGroupShortName   string
	SupportStreamGroupDisplayName string
	SupportPhoneNumber            string
	SupportEmailAddress           string
	UpdatedAt                     time.Time
}

func (SystemSettingsModel) TableName() string { return "system_settings" }

type NotificationModel struct {
	ID               int64  `gorm:"primaryKey"`
	RecipientID      int64  `gorm:"not null;index"`
	NotificationType string `gorm:"not null"`
	Message          string
	URL              string `gorm:"column:url"`
	HighPriority     bool
	IsRead           bool
	CreatedAt        time.Time
}

func (NotificationModel) TableName() string { return "notifications" }

type SearchDocumentModel struct {
	EntityType string `gorm:"primaryKey"`
	EntityID   int64  `gorm:"primaryKey"`
	Key        string
	Title      string
	Body       string
	UpdatedAt  time.Time
}

func (SearchDocumentModel) TableName() string { return "search_documents" }

type SessionModel struct {
	ID        int64  `gorm:"primaryKey"`
	PersonID  int64  `gorm:"not null;index"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (SessionModel) TableName() string { return "sessions" }

type APITokenModel struct {
	ID        int64  `gorm:"primaryKey"`
	PersonID  int64  `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (APITokenModel) TableName() string { return "api_tokens" }

type RoleModel struct {
	ID        int64  `gorm:"primaryKey"`
	Key       string `gorm:"not null;uniqueIndex"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
}

func (RoleModel) TableName() string { return "roles" }

type PermissionModel struct {
	ID        int64  `gorm:"primaryKey"`
	Key       string `gorm:"not null;uniqueIndex"`
	CreatedAt time.Time
}

func (PermissionModel) TableName() string { return "permissions" }

type PersonRoleModel struct {
	ID        int64 `gorm:"primaryKey"`
	PersonID  int64 `gorm:"not null;index:idx_person_role,unique"`
	RoleID    int64 `gorm:"not null;index:idx_person_role,unique"`
	CreatedAt time.Time
}

func (PersonRoleModel) TableName() string { return "person_roles" }

type RolePermissionModel struct {
	ID           int64 `gorm:"primaryKey"`
	RoleID       int64 `gorm:"not null;index:idx_role_perm,unique"`
	PermissionID int64 `gorm:"not null;index:idx_role_perm,unique"`
	CreatedAt    time.Time
}

func (RolePermissionModel) TableName() string { return "role_permissions" }

type AuditLogModel struct {
	ID            int64 `gorm:"primaryKey"`
	ActorPersonID *int64
	Action        string `gorm:"not null;index"`
	TargetType    string `gorm:"not null;index"`
	TargetID      *int64
	Metadata      string
	CreatedAt     time.Time
}

func (AuditLogModel) TableName() string { return "audit_logs" }
