package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

// notificationRequest is the payload of createNotificationsAction. TargetName and RecipientIDs are
// carried for targets that may be gone by the time the request runs.
type notificationRequest struct {
	Type         domain.NotificationType `json:"type"`
	ActorID      int64                   `json:"actorId"`
	TargetID     int64                   `json:"targetId"`
	ActivityID   int64                   `json:"activityId,omitempty"`
	TargetName   string                  `json:"targetName,omitempty"`
	RecipientIDs []int64                 `json:"recipientIds,omitempty"`
}

type getNotificationsParams struct {
	UnreadOnly bool `json:"unreadOnly"`
	Limit      int  `json:"limit"`
}

type markNotificationsReadParams struct {
	IDs []int64 `json:"ids"`
}

func (s *Service) createNotifications(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in notificationRequest
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}

	actorName := "Someone"
	if in.ActorID != 0 {
		actor, err := s.cachedPersonByID(ctx, in.ActorID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if err == nil {
			actorName = actor.DisplayName()
		}
	}

	var (
		recipients []int64
		message    string
		url        string
		high       bool
	)
	switch in.Type {
	case domain.NotificationFollower:
		recipients = []int64{in.TargetID}
		message = fmt.Sprintf("%s is now following your stream", actorName)
		if actor, err := s.cachedPersonByID(ctx, in.ActorID); err == nil {
			url = "#people/" + actor.AccountID
		}
	case domain.NotificationGroupFollower:
		g, err := s.repo.GetGroupByID(ctx, in.TargetID)
		if err != nil {
			return nil, err
		}
		if recipients, err = s.repo.GetGroupCoordinatorIDs(ctx, g.ID); err != nil {
			return nil, err
		}
		message = fmt.Sprintf("%s is now following the %s group", actorName, g.Name)
		url = "#groups/" + g.ShortName
	case domain.NotificationPostPersonStream:
		recipients = []int64{in.TargetID}
		message = fmt.Sprintf("%s posted a message to your stream", actorName)
		url = fmt.Sprintf("#activity/%d", in.ActivityID)
	case domain.NotificationPostGroupStream:
		g, err := s.repo.GetGroupByID(ctx, in.TargetID)
		if err != nil {
			return nil, err
		}
		coordinators, err := s.repo.GetGroupCoordinatorIDs(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		followers, err := s.repo.GetGroupFollowerIDs(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		recipients = append(coordinators, followers...)
		message = fmt.Sprintf("%s posted a message to the %s stream", actorName, g.Name)
		url = fmt.Sprintf("#activity/%d", in.ActivityID)
	case domain.NotificationCommentToActivity:
		recipients = []int64{in.TargetID}
		message = fmt.Sprintf("%s commented on your post", actorName)
		url = fmt.Sprintf("#activity/%d", in.ActivityID)
	case domain.NotificationNewGroupApproved:
		recipients = in.RecipientIDs
		message = fmt.Sprintf("Your request to create the %s group has been approved", in.TargetName)
		if g, err := s.repo.GetGroupByID(ctx, in.TargetID); err == nil {
			url = "#groups/" + g.ShortName
		}
		high = true
	case domain.NotificationNewGroupDenied:
		recipients = in.RecipientIDs
		message = fmt.Sprintf("Your request to create the %s group has been denied", in.TargetName)
		high = true
	case domain.NotificationPendingGroupCreated:
		g, err := s.repo.GetGroupByID(ctx, in.TargetID)
		if err != nil {
			return nil, err
		}
		if recipients, err = s.repo.GetPersonIDsWithRole(ctx, adminRoleKey); err != nil {
			return nil, err
		}
		message = fmt.Sprintf("%s has requested a new group: %s", actorName, g.Name)
		url = "#settings/pendinggroups"
	default:
		verr := domain.NewValidationError()
		verr.Add("type", fmt.Sprintf("Unknown notification type %q.", in.Type))
		return nil, verr
	}

	seen := make(map[int64]struct{}, len(recipients))
	rows := make([]domain.Notification, 0, len(recipients))
	for _, id := range recipients {
		if id == 0 || id == in.ActorID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rows = append(rows, domain.Notification{
			RecipientID:      id,
			NotificationType: in.Type,
			Message:          message,
			URL:              url,
			HighPriority:     high,
		})
	}
	if err := s.repo.CreateNotifications(ctx, rows); err != nil {
		return nil, err
	}
	return len(rows), nil
}

func (s *Service) getNotifications(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in getNotificationsParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	return s.repo.ListNotifications(ctx, ac.Principal.PersonID, in.UnreadOnly, clamp(in.Limit, 50, 1, 200))
}

func (s *Service) markNotificationsRead(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in markNotificationsReadParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	return s.repo.MarkNotificationsRead(ctx, ac.Principal.PersonID, in.IDs)
}
