package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

const (
	FollowStatusFollowing    = "FOLLOWING"
	FollowStatusNotFollowing = "NOTFOLLOWING"
)

type createPersonParams struct {
	AccountID             string `json:"accountId"`
	FirstName             string `json:"firstName"`
	MiddleName            string `json:"middleName"`
	LastName              string `json:"lastName"`
	PreferredName         string `json:"preferredName"`
	Email                 string `json:"email"`
	Title                 string `json:"title"`
	OrganizationShortName string `json:"organizationShortName"`
	Password              string `json:"password"`
}

type updatePersonParams struct {
	AccountID                   string   `json:"accountId"`
	Title                       string   `json:"title"`
	PreferredName               string   `json:"preferredName"`
	JobDescription              string   `json:"jobDescription"`
	Overview                    string   `json:"overview"`
	Quote                       string   `json:"quote"`
	Location                    string   `json:"location"`
	WorkPhone                   string   `json:"workPhone"`
	CellPhone                   string   `json:"cellPhone"`
	Fax                         string   `json:"fax"`
	Email                       string   `json:"email"`
	ParentOrganizationShortName string   `json:"parentOrganization"`
	RelatedOrganizations        []string `json:"relatedOrganizations"`
	Skills                      *string  `json:"skills"`
}

type accountParams struct {
	AccountID string `json:"accountId"`
}

type followPersonParams struct {
	FollowerAccountID string `json:"followerAccountId"`
	TargetAccountID   string `json:"targetAccountId"`
	Status            string `json:"status"`
}

type personIDParams struct {
	PersonID int64 `json:"personId"`
}

func (s *Service) createPerson(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in createPersonParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	in.AccountID = strings.ToLower(strings.TrimSpace(in.AccountID))

	check := newFieldCheck()
	if check.required("accountId", in.AccountID, "Account id is required.") {
		if _, err := s.repo.GetPersonByAccountID(ctx, in.AccountID); err == nil {
			check.Add("accountId", "Account id is already in use.")
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if check.required("firstName", in.FirstName, "First name is required.") {
		check.maxLength("firstName", in.FirstName, maxNameLength, fmt.Sprintf("First name must be between 1 and %d characters.", maxNameLength))
	}
	if check.required("lastName", in.LastName, "Last name is required.") {
		check.maxLength("lastName", in.LastName, maxNameLength, fmt.Sprintf("Last name must be between 1 and %d characters.", maxNameLength))
	}
	check.maxLength("title", in.Title, maxTitleLength, fmt.Sprintf("Title supports up to %d characters.", maxTitleLength))
	check.email("email", in.Email)
	if err := s.checkEmailAvailable(ctx, check, in.Email, 0); err != nil {
		return nil, err
	}

	var org domain.Organization
	if check.required("organizationShortName", in.OrganizationShortName, "Please select a parent organization.") {
		var err error
		org, err = s.repo.GetOrganizationByShortName(ctx, in.OrganizationShortName)
		if errors.Is(err, domain.ErrNotFound) {
			check.Add("organizationShortName", "The selected parent organization does not exist.")
		} else if err != nil {
			return nil, err
		}
	}
	if err := check.OrNil(); err != nil {
		return nil, err
	}

	p := domain.Person{
		AccountID:            in.AccountID,
		OpenSocialID:         newOpenSocialID(),
		FirstName:            strings.TrimSpace(in.FirstName),
		MiddleName:           strings.TrimSpace(in.MiddleName),
		LastName:             strings.TrimSpace(in.LastName),
		PreferredName:        defaultString(strings.TrimSpace(in.PreferredName), strings.TrimSpace(in.FirstName)),
		Email:                in.Email,
		Title:                in.Title,
		ParentOrganizationID: org.ID,
		Commentable:          true,
		StreamPostable:       true,
	}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		p.PasswordHash = hash
	}
	p, err := s.repo.CreatePerson(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RefreshOrganizationStats(ctx, org.ID); err != nil {
		return nil, err
	}

	if err := ac.Enqueue(ActionIndexPersonByID, entityIDParams{ID: p.ID}); err != nil {
		return nil, err
	}
	keys, err := s.organizationChainKeys(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	keys = append(keys, domain.CacheKey(domain.CacheOrganizationByID, org.ID), domain.CacheOrganizationByShortName+org.ShortName)
	if err := s.enqueueCacheDelete(ac, keys...); err != nil {
		return nil, err
	}
	return s.personModelView(ctx, p)
}

func (s *Service) getPerson(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in accountParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	accountID := defaultString(in.AccountID, ac.Principal.AccountID)
	p, err := s.cachedPersonByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.personModelView(ctx, p)
}

// updatePerson lets people edit their own profile; admins may edit anyone's.
func (s *Service) updatePerson(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in updatePersonParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	p, err := s.repo.GetPersonByAccountID(ctx, defaultString(in.AccountID, ac.Principal.AccountID))
	if err != nil {
		return nil, err
	}
	if p.ID != ac.Principal.PersonID && !isAdmin(ac.Principal) {
		return nil, domain.ErrForbidden
	}

	check := newFieldCheck()
	if check.required("title", in.Title, "Title is required.") {
		check.maxLength("title", in.Title, maxTitleLength, fmt.Sprintf("Title supports up to %d characters.", maxTitleLength))
	}
	if check.required("preferredName", in.PreferredName, "Display Name is required.") {
		check.maxLength("preferredName", in.PreferredName, maxPreferredNameLength, "Display Name is required.")
	}
	check.maxLength("jobDescription", in.JobDescription, maxJobDescription, fmt.Sprintf("Job Description supports up to %d characters.", maxJobDescription))
	check.maxLength("workPhone", in.WorkPhone, maxPhoneLength, fmt.Sprintf("Phone numbers can be no more than %d characters.", maxPhoneLength))
	check.maxLength("cellPhone", in.CellPhone, maxPhoneLength, fmt.Sprintf("Phone numbers can be no more than %d characters.", maxPhoneLength))
	check.maxLength("fax", in.Fax, maxPhoneLength, fmt.Sprintf("Fax number can be no more than %d characters.", maxPhoneLength))
	check.email("email", in.Email)
	if err := s.checkEmailAvailable(ctx, check, in.Email, p.ID); err != nil {
		return nil, err
	}

	var newParent domain.Organization
	if check.required("parentOrganization", in.ParentOrganizationShortName, "Please select a parent organization.") {
		newParent, err = s.repo.GetOrganizationByShortName(ctx, in.ParentOrganizationShortName)
		if errors.Is(err, domain.ErrNotFound) {
			check.Add("parentOrganization", "The selected parent organization does not exist.")
		} else if err != nil {
			return nil, err
		}
	}

	relatedIDs := make([]int64, 0, len(in.RelatedOrganizations))
	for _, shortName := range in.RelatedOrganizations {
		o, err := s.repo.GetOrganizationByShortName(ctx, shortName)
		if errors.Is(err, domain.ErrNotFound) {
			check.Add("relatedOrganizations", "One or more related organizations no longer exist.")
			continue
		}
		if err != nil {
			return nil, err
		}
		if !containsID(relatedIDs, o.ID) {
			relatedIDs = append(relatedIDs, o.ID)
		}
	}

	var skills []string
	if in.Skills != nil {
		skills = splitBackgroundItems(*in.Skills)
		if !validBackgroundItems(skills) {
			check.Add("skills", fmt.Sprintf("Interests keywords support up to %d characters each.", maxBackgroundItem))
		}
	}
	if err := check.OrNil(); err != nil {
		return nil, err
	}

	oldParentID := p.ParentOrganizationID
	p.Title = in.Title
	p.PreferredName = strings.TrimSpace(in.PreferredName)
	p.JobDescription = in.JobDescription
	p.Overview = in.Overview
	p.Quote = in.Quote
	p.Location = in.Location
	p.WorkPhone = in.WorkPhone
	p.CellPhone = in.CellPhone
	p.Fax = in.Fax
	p.Email = in.Email
	p.ParentOrganizationID = newParent.ID
	if err := s.repo.UpdatePerson(ctx, p); err != nil {
		return nil, err
	}
	if in.Skills != nil {
		if err := s.repo.SetBackgroundItems(ctx, p.ID, domain.BackgroundSkill, skills); err != nil {
			return nil, err
		}
	}
	if err := s.repo.SetRelatedOrganizations(ctx, p.ID, relatedIDs); err != nil {
		return nil, err
	}

	keys := []string{domain.CacheKey(domain.CachePersonByID, p.ID), domain.CachePersonByAccountID + p.AccountID}
	if oldParentID != newParent.ID {
		for _, orgID := range []int64{oldParentID, newParent.ID} {
			if err := s.repo.RefreshOrganizationStats(ctx, orgID); err != nil {
				return nil, err
			}
			chain, err := s.organizationChainKeys(ctx, orgID)
			if err != nil {
				return nil, err
			}
			keys = append(keys, chain...)
		}
		keys = append(keys,
			domain.CacheKey(domain.CacheOrganizationByID, oldParentID),
			domain.CacheKey(domain.CacheOrganizationByID, newParent.ID),
		)
		s.log.WithField("accountId", p.AccountID).WithField("organization", newParent.ShortName).Info("person moved to organization")
	}
	if err := s.enqueueCacheDelete(ac, keys...); err != nil {
		return nil, err
	}
	if err := ac.Enqueue(ActionIndexPersonByID, entityIDParams{ID: p.ID}); err != nil {
		return nil, err
	}
	return s.personModelView(ctx, p)
}

func (s *Service) checkEmailAvailable(ctx context.Context, check fieldCheck, email string, selfID int64) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	existing, err := s.repo.GetPersonByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		check.Add("email", "Email address is already in use.")
	}
	return nil
}

// setFollowingPersonStatus returns the target's follower count after the change.
func (s *Service) setFollowingPersonStatus(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in followPersonParams
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
	target, err := s.repo.GetPersonByAccountID(ctx, in.TargetAccountID)
	if err != nil {
		return nil, err
	}
	if target.ID == follower.ID {
		verr := domain.NewValidationError()
		verr.Add("targetAccountId", "You cannot follow yourself.")
		return nil, verr
	}

	followersKey := domain.CacheKey(domain.CacheFollowersByPerson, target.ID)
	followingKey := domain.CacheKey(domain.CachePeopleFollowedByPerson, follower.ID)
	personKeys := []string{
		domain.CacheKey(domain.CachePersonByID, target.ID),
		domain.CachePersonByAccountID + target.AccountID,
		domain.CacheKey(domain.CachePersonByID, follower.ID),
		domain.CachePersonByAccountID + follower.AccountID,
	}

	switch strings.ToUpper(in.Status) {
	case FollowStatusFollowing:
		added, err := s.repo.AddPersonFollower(ctx, follower.ID, target.ID)
		if err != nil {
			return nil, err
		}
		if added {
			s.addToCachedList(ctx, followersKey, follower.ID)
			s.addToCachedList(ctx, followingKey, target.ID)
			if err := s.enqueueCacheDelete(ac, personKeys...); err != nil {
				return nil, err
			}
			if err := ac.Enqueue(ActionRefreshFollowedByActivities, personIDParams{PersonID: follower.ID}); err != nil {
				return nil, err
			}
			if err := ac.Enqueue(ActionCreateNotifications, notificationRequest{
				Type:     domain.NotificationFollower,
				ActorID:  follower.ID,
				TargetID: target.ID,
			}); err != nil {
				return nil, err
			}
		}
	case FollowStatusNotFollowing:
		removed, err := s.repo.RemovePersonFollower(ctx, follower.ID, target.ID)
		if err != nil {
			return nil, err
		}
		if removed {
			if err := s.enqueueCacheDelete(ac, personKeys...); err != nil {
				return nil, err
			}
			if err := s.enqueueListRemoval(ac, []int64{follower.ID}, followersKey); err != nil {
				return nil, err
			}
			if err := s.enqueueListRemoval(ac, []int64{target.ID}, followingKey); err != nil {
				return nil, err
			}
		}
	default:
		verr := domain.NewValidationError()
		verr.Add("status", "Status must be FOLLOWING or NOTFOLLOWING.")
		return nil, verr
	}

	if err := s.repo.RefreshOrganizationStats(ctx, target.ParentOrganizationID); err != nil {
		return nil, err
	}
	updated, err := s.repo.GetPersonByID(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	return updated.FollowersCount, nil
}

func (s *Service) getFollowers(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in accountParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	p, err := s.cachedPersonByAccountID(ctx, defaultString(in.AccountID, ac.Principal.AccountID))
	if err != nil {
		return nil, err
	}
	ids, err := s.cachedFollowerIDs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return s.personModelViews(ctx, ids)
}

func (s *Service) getFollowing(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in accountParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	p, err := s.cachedPersonByAccountID(ctx, defaultString(in.AccountID, ac.Principal.AccountID))
	if err != nil {
		return nil, err
	}
	ids, err := s.cachedFollowingIDs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return s.personModelViews(ctx, ids)
}

func (s *Service) refreshFollowedByActivities(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in personIDParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	return nil, s.cache.Delete(ctx, domain.CacheKey(domain.CacheActivitiesByFollowing, in.PersonID))
}

func (s *Service) personModelView(ctx context.Context, p domain.Person) (domain.PersonModelView, error) {
	view := personView(p)
	if p.ParentOrganizationID != 0 {
		org, err := s.cachedOrganizationByID(ctx, p.ParentOrganizationID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.PersonModelView{}, err
		}
		view.ParentOrganizationName = org.Name
		view.ParentOrganizationShort = org.ShortName
	}
	skills, err := s.personSkills(ctx, p.ID)
	if err != nil {
		return domain.PersonModelView{}, err
	}
	view.Skills = skills
	return view, nil
}

// personModelViews keeps the order of ids.
func (s *Service) personModelViews(ctx context.Context, ids []int64) ([]domain.PersonModelView, error) {
	people, err := s.repo.GetPeopleByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Person, len(people))
	for _, p := range people {
		byID[p.ID] = p
	}
	views := make([]domain.PersonModelView, 0, len(ids))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		views = append(views, personView(p))
	}
	return views, nil
}

func personView(p domain.Person) domain.PersonModelView {
	return domain.PersonModelView{
		ID:                   p.ID,
		AccountID:            p.AccountID,
		OpenSocialID:         p.OpenSocialID,
		DisplayName:          p.DisplayName(),
		Title:                p.Title,
		Email:                p.Email,
		AvatarID:             p.AvatarID,
		ParentOrganizationID: p.ParentOrganizationID,
		StreamScopeID:        p.StreamScopeID,
		FollowersCount:       p.FollowersCount,
		FollowingCount:       p.FollowingCount,
		GroupsCount:          p.GroupsCount,
		UpdatesCount:         p.UpdatesCount,
		Commentable:          p.Commentable,
		StreamPostable:       p.StreamPostable,
		AccountLocked:        p.AccountLocked,
		Skills:               []string{},
	}
}

func (s *Service) personSkills(ctx context.Context, personID int64) ([]string, error) {
	items, err := s.repo.ListBackgroundItems(ctx, personID)
	if err != nil {
		return nil, err
	}
	skills := make([]string, 0)
	for _, item := range items {
		if item.Type == domain.BackgroundSkill {
			skills = append(skills, item.Name)
		}
	}
	return skills, nil
}
