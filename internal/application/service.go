package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/sirupsen/logrus"
)

const (
	PermOrgWrite      = "org.write"
	PermPersonWrite   = "person.write"
	PermGroupApprove  = "group.approve"
	PermSettingsWrite = "settings.write"
	PermSystem        = "system.tasks"
	PermAll           = "*"

	adminRoleKey = "admin"
)

type Options struct {
	RootOrgShortName   string
	MaxCacheListSize   int
	UsageRetentionDays int
	EmailTokenSecret   string
	InboundEmailUser   string
	InboundEmailDomain string
}

// Service holds the execution strategies. Every strategy is exposed as a named Action.
type Service struct {
	repo   domain.Repository
	cache  domain.Cache
	blobs  domain.BlobStore
	tokens *TokenCodec
	log    *logrus.Entry
	opts   Options
	now    func() time.Time

	reindexMu      sync.Mutex
	reindexRunning bool
}

func NewService(repo domain.Repository, cache domain.Cache, blobs domain.BlobStore, log logrus.FieldLogger, opts Options) *Service {
	if opts.MaxCacheListSize <= 0 {
		opts.MaxCacheListSize = 10000
	}
	if opts.UsageRetentionDays <= 0 {
		opts.UsageRetentionDays = 14
	}
	if opts.RootOrgShortName == "" {
		opts.RootOrgShortName = "root"
	}
	return &Service{
		repo:   repo,
		cache:  cache,
		blobs:  blobs,
		tokens: NewTokenCodec(opts.EmailTokenSecret),
		log:    log.WithField("component", "service"),
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Actions lists every strategy for registration with an Executor.
func (s *Service) Actions() []Action {
	return []Action{
		{Name: ActionRegisterUsageMetric, Run: s.registerUsageMetric},
		{Name: ActionPersistUsageMetric, Permission: PermSystem, Run: s.persistUsageMetric},
		{Name: ActionGenerateDailyUsageSummary, Permission: PermSystem, Run: s.generateDailyUsageSummary},
		{Name: ActionGetUsageMetricSummary, Run: s.getUsageMetricSummary},

		{Name: ActionReindexEntities, Permission: PermSystem, Run: s.reindexEntities},
		{Name: ActionIndexPersonByID, Permission: PermSystem, Run: s.indexPersonByID},
		{Name: ActionIndexOrganizationByID, Permission: PermSystem, Run: s.indexOrganizationByID},
		{Name: ActionIndexGroupByID, Permission: PermSystem, Run: s.indexGroupByID},
		{Name: ActionDeleteFromSearchIndex, Permission: PermSystem, Run: s.deleteFromSearchIndex},
		{Name: ActionSearchDirectory, Run: s.searchDirectory},

		{Name: ActionDeleteCacheKeys, Permission: PermSystem, Run: s.deleteCacheKeys},
		{Name: ActionDeleteIDsFromLists, Permission: PermSystem, Run: s.deleteIDsFromLists},
		{Name: ActionClearCache, Permission: PermSystem, Run: s.clearCache},

		{Name: ActionCreateOrganization, Permission: PermOrgWrite, Run: s.createOrganization},
		{Name: ActionUpdateOrganization, Permission: PermOrgWrite, Run: s.updateOrganization},
		{Name: ActionGetOrganization, Run: s.getOrganization},
		{Name: ActionGetOrganizationChildren, Run: s.getOrganizationChildren},
		{Name: ActionDeleteOrganization, Permission: PermOrgWrite, Run: s.deleteOrganization},

		{Name: ActionCreatePerson, Permission: PermPersonWrite, Run: s.createPerson},
		{Name: ActionGetPerson, Run: s.getPerson},
		{Name: ActionUpdatePerson, Run: s.updatePerson},
		{Name: ActionSetFollowingPersonStatus, Run: s.setFollowingPersonStatus},
		{Name: ActionGetFollowers, Run: s.getFollowers},
		{Name: ActionGetFollowing, Run: s.getFollowing},
		{Name: ActionRefreshFollowedByActivities, Permission: PermSystem, Run: s.refreshFollowedByActivities},

		{Name: ActionGetJobs, Run: s.getJobs},
		{Name: ActionAddJob, Run: s.addJob},
		{Name: ActionUpdateJob, Run: s.updateJob},
		{Name: ActionDeleteJob, Run: s.deleteJob},
		{Name: ActionGetEnrollments, Run: s.getEnrollments},
		{Name: ActionAddEnrollment, Run: s.addEnrollment},
		{Name: ActionDeleteEnrollment, Run: s.deleteEnrollment},
		{Name: ActionGetRecommendations, Run: s.getRecommendations},
		{Name: ActionAddRecommendation, Run: s.addRecommendation},
		{Name: ActionDeleteRecommendation, Run: s.deleteRecommendation},
		{Name: ActionGetBackground, Run: s.getBackground},
		{Name: ActionUpdateBackground, Run: s.updateBackground},

		{Name: ActionCreateGroup, Run: s.createGroup},
		{Name: ActionGetGroup, Run: s.getGroup},
		{Name: ActionSetFollowingGroupStatus, Run: s.setFollowingGroupStatus},
		{Name: ActionReviewPendingGroup, Permission: PermGroupApprove, Run: s.reviewPendingGroup},
		{Name: ActionDeleteGroup, Run: s.deleteGroup},
		{Name: ActionDeleteGroupFromDB, Permission: PermSystem, Run: s.deleteGroupFromDB},
		{Name: ActionGetPendingGroups, Permission: PermGroupApprove, Run: s.getPendingGroups},

		{Name: ActionPostActivity, Run: s.postActivity},
		{Name: ActionPostComment, Run: s.postComment},
		{Name: ActionDeleteActivity, Run: s.deleteActivity},
		{Name: ActionStarActivity, Run: s.starActivity},
		{Name: ActionGetStream, Run: s.getStream},
		{Name: ActionPurgeExpiredActivities, Permission: PermSystem, Run: s.purgeExpiredActivities},

		{Name: ActionCreateNotifications, Permission: PermSystem, Run: s.createNotifications},
		{Name: ActionGetNotifications, Run: s.getNotifications},
		{Name: ActionMarkNotificationsRead, Run: s.markNotificationsRead},

		{Name: ActionGetSystemSettings, Run: s.getSystemSettings},
		{Name: ActionUpdateSystemSettings, Permission: PermSettingsWrite, Run: s.updateSystemSettings},

		{Name: ActionSaveAvatar, Run: s.saveAvatar},

		{Name: ActionGetStreamEmailAddress, Run: s.getStreamEmailAddress},
		{Name: ActionProcessInboundMessage, Permission: PermSystem, Run: s.processInboundMessage},
	}
}

// BootstrapAdmin makes sure the root organization exists and, on an empty directory, creates the
// first person with the admin role.
func (s *Service) BootstrapAdmin(ctx context.Context, accountID, email, password string) error {
	root, err := s.ensureRootOrganization(ctx)
	if err != nil {
		return err
	}

	count, err := s.repo.CountPeople(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if strings.TrimSpace(accountID) == "" || strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return errors.New("bootstrap admin account id, email and password are required")
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	p, err := s.repo.CreatePerson(ctx, domain.Person{
		AccountID:            accountID,
		OpenSocialID:         newOpenSocialID(),
		FirstName:            "System",
		LastName:             "Administrator",
		Email:                email,
		ParentOrganizationID: root.ID,
		Commentable:          true,
		StreamPostable:       true,
		PasswordHash:         hash,
	})
	if err != nil {
		return err
	}

	adminRoleID, err := s.repo.CreateRoleIfMissing(ctx, adminRoleKey, "Administrator")
	if err != nil {
		return err
	}
	permID, err := s.repo.CreatePermissionIfMissing(ctx, PermAll)
	if err != nil {
		return err
	}
	if err := s.repo.GrantPermissionToRole(ctx, adminRoleID, permID); err != nil {
		return err
	}
	if err := s.repo.AssignRoleToPerson(ctx, p.ID, adminRoleID); err != nil {
		return err
	}
	if err := s.repo.RefreshOrganizationStats(ctx, root.ID); err != nil {
		return err
	}
	if err := s.indexPerson(ctx, p.ID); err != nil {
		return err
	}

	return s.repo.CreateAuditLog(ctx, domain.AuditLog{ActorPersonID: &p.ID, Action: "auth.bootstrap_admin", TargetType: "person", TargetID: &p.ID, Metadata: "initial admin created"})
}

func (s *Service) ensureRootOrganization(ctx context.Context) (domain.Organization, error) {
	root, err := s.repo.GetRootOrganization(ctx)
	if err == nil {
		return root, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Organization{}, err
	}
	root, err = s.repo.CreateOrganization(ctx, domain.Organization{
		ShortName: s.opts.RootOrgShortName,
		Name:      "Root Organization",
	})
	if err != nil {
		return domain.Organization{}, fmt.Errorf("create root organization: %w", err)
	}
	s.log.WithField("shortName", root.ShortName).Info("root organization created")
	return root, s.indexOrganization(ctx, root.ID)
}

// requirePerson rejects principals that are not backed by a person.
func requirePerson(ac *domain.ActionContext) error {
	if ac.Principal.PersonID == 0 {
		return domain.ErrUnauthorized
	}
	return nil
}

func isAdmin(p domain.Principal) bool {
	return p.Can(PermAll)
}

func (s *Service) enqueueCacheDelete(ac *domain.ActionContext, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return ac.Enqueue(ActionDeleteCacheKeys, deleteCacheKeysParams{Keys: keys})
}

func (s *Service) enqueueListRemoval(ac *domain.ActionContext, ids []int64, keys ...string) error {
	if len(ids) == 0 || len(keys) == 0 {
		return nil
	}
	return ac.Enqueue(ActionDeleteIDsFromLists, deleteIDsFromListsParams{Keys: keys, IDs: ids})
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}
	return input
}

func clamp(value, def, lo, hi int) int {
	if value <= 0 {
		value = def
	}
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
