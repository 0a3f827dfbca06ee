package application

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	avatarMaxSize    = 400
	avatarNormalSize = 75
	avatarSmallSize  = 50
	avatarMaxPixels  = 40_000_000

	avatarOriginalPrefix = "o"
	avatarNormalPrefix   = "n"
	avatarSmallPrefix    = "s"
)

var avatarKeyPattern = regexp.MustCompile(`^[ons][0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

type saveAvatarParams struct {
	EntityType domain.ScopeType `json:"entityType"`
	UniqueKey  string           `json:"uniqueKey"`
	Image      []byte           `json:"image"`
}

func (s *Service) saveAvatar(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in saveAvatarParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	if len(in.Image) == 0 {
		verr := domain.NewValidationError()
		verr.Add("image", "An image is required.")
		return nil, verr
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(in.Image))
	if err != nil {
		verr := domain.NewValidationError()
		verr.Add("image", "The file is not a supported image.")
		return nil, verr
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > avatarMaxPixels {
		verr := domain.NewValidationError()
		verr.Add("image", "The image is too large.")
		return nil, verr
	}
	src, format, err := image.Decode(bytes.NewReader(in.Image))
	if err != nil {
		verr := domain.NewValidationError()
		verr.Add("image", "The file is not a supported image.")
		return nil, verr
	}

	target, err := s.avatarTarget(ctx, ac.Principal, in.EntityType, in.UniqueKey)
	if err != nil {
		return nil, err
	}

	avatarID := uuid.NewString()
	renditions := []struct {
		prefix string
		img    image.Image
	}{
		{avatarOriginalPrefix, scaleToFit(src, avatarMaxSize)},
		{avatarNormalPrefix, squareThumbnail(src, avatarNormalSize)},
		{avatarSmallPrefix, squareThumbnail(src, avatarSmallSize)},
	}
	for _, r := range renditions {
		var buf bytes.Buffer
		if err := png.Encode(&buf, r.img); err != nil {
			return nil, fmt.Errorf("encode avatar: %w", err)
		}
		if err := s.blobs.Put(ctx, r.prefix+avatarID, buf.Bytes(), "image/png"); err != nil {
			return nil, fmt.Errorf("store avatar: %w", err)
		}
	}

	old, err := target.setAvatar(ctx, avatarID)
	if err != nil {
		return nil, err
	}
	if old != "" {
		for _, prefix := range []string{avatarOriginalPrefix, avatarNormalPrefix, avatarSmallPrefix} {
			if err := s.blobs.Delete(ctx, prefix+old); err != nil {
				s.log.WithError(err).WithField("avatar", prefix+old).Warn("old avatar not removed")
			}
		}
	}
	if err := s.enqueueCacheDelete(ac, target.cacheKeys...); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"entity": target.key, "format": format}).Info("avatar saved")
	return avatarID, nil
}

// AvatarImage returns a stored avatar rendition by its blob key.
func (s *Service) AvatarImage(ctx context.Context, key string) ([]byte, string, error) {
	if !avatarKeyPattern.MatchString(key) {
		return nil, "", fmt.Errorf("%w: avatar %s", domain.ErrNotFound, key)
	}
	return s.blobs.Get(ctx, key)
}

type avatarTarget struct {
	key       string
	cacheKeys []string
	setAvatar func(ctx context.Context, avatarID string) (string, error)
}

// avatarTarget loads the entity fresh from the repository and checks the principal may change it.
func (s *Service) avatarTarget(ctx context.Context, p domain.Principal, entityType domain.ScopeType, key string) (avatarTarget, error) {
	switch domain.ScopeType(strings.ToUpper(string(entityType))) {
	case domain.ScopeTypePerson:
		person, err := s.repo.GetPersonByAccountID(ctx, defaultString(key, p.AccountID))
		if err != nil {
			return avatarTarget{}, err
		}
		if person.ID != p.PersonID && !isAdmin(p) {
			return avatarTarget{}, domain.ErrForbidden
		}
		return avatarTarget{
			key: person.AccountID,
			cacheKeys: []string{
				domain.CacheKey(domain.CachePersonByID, person.ID),
				domain.CachePersonByAccountID + person.AccountID,
			},
			setAvatar: func(ctx context.Context, avatarID string) (string, error) {
				old := person.AvatarID
				person.AvatarID = avatarID
				return old, s.repo.UpdatePerson(ctx, person)
			},
		}, nil
	case domain.ScopeTypeGroup:
		g, err := s.repo.GetGroupByShortName(ctx, key)
		if err != nil {
			return avatarTarget{}, err
		}
		if !isAdmin(p) {
			coordinator, err := s.hasGroupCoordinatorAccess(ctx, p.PersonID, g)
			if err != nil {
				return avatarTarget{}, err
			}
			if !coordinator {
				return avatarTarget{}, domain.ErrForbidden
			}
		}
		return avatarTarget{
			key: g.ShortName,
			cacheKeys: []string{
				domain.CacheKey(domain.CacheGroupByID, g.ID),
				domain.CacheGroupByShortName + g.ShortName,
			},
			setAvatar: func(ctx context.Context, avatarID string) (string, error) {
				old := g.AvatarID
				g.AvatarID = avatarID
				return old, s.repo.UpdateGroup(ctx, g)
			},
		}, nil
	case domain.ScopeTypeOrganization:
		org, err := s.repo.GetOrganizationByShortName(ctx, key)
		if err != nil {
			return avatarTarget{}, err
		}
		if !isAdmin(p) && !p.Can(PermOrgWrite) {
			ids, err := s.repo.GetOrganizationCoordinatorIDs(ctx, org.ID)
			if err != nil {
				return avatarTarget{}, err
			}
			if !containsID(ids, p.PersonID) {
				return avatarTarget{}, domain.ErrForbidden
			}
		}
		return avatarTarget{
			key: org.ShortName,
			cacheKeys: []string{
				domain.CacheKey(domain.CacheOrganizationByID, org.ID),
				domain.CacheOrganizationByShortName + org.ShortName,
			},
			setAvatar: func(ctx context.Context, avatarID string) (string, error) {
				old := org.AvatarID
				org.AvatarID = avatarID
				return old, s.repo.UpdateOrganization(ctx, org)
			},
		}, nil
	}
	verr := domain.NewValidationError()
	verr.Add("entityType", "Entity type must be PERSON, GROUP or ORGANIZATION.")
	return avatarTarget{}, verr
}

// scaleToFit shrinks src to fit a max×max box keeping its aspect ratio.
func scaleToFit(src image.Image, max int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return src
	}
	if w >= h {
		h = h * max / w
		w = max
	} else {
		w = w * max / h
		h = max
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

// squareThumbnail crops the centered square of src and scales it to size×size.
func squareThumbnail(src image.Image, size int) image.Image {
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, crop, draw.Over, nil)
	return dst
}
