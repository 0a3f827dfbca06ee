package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"sort"
	"strconv"
	"strings"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	TokenKeyActivity = "a"
	TokenKeyStream   = "s"

	nonceSize = 24
)

// TokenCodec seals small id maps into tokens that only decode with the same person's key.
type TokenCodec struct {
	secret []byte
}

func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{secret: []byte(secret)}
}

func (c *TokenCodec) key(personID int64) *[32]byte {
	sum := sha256.Sum256([]byte(string(c.secret) + ":" + strconv.FormatInt(personID, 10)))
	return &sum
}

// Encode produces a URL-safe token for personID.
func (c *TokenCodec) Encode(personID int64, content map[string]int64) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("%w: empty token content", domain.ErrInvalidToken)
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}
	sealed := secretbox.Seal(nonce[:], []byte(formatTokenContent(content)), &nonce, c.key(personID))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *TokenCodec) Decode(personID int64, token string) (map[string]int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) <= nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: malformed token", domain.ErrInvalidToken)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, c.key(personID))
	if !ok {
		return nil, fmt.Errorf("%w: cannot decrypt token for user", domain.ErrInvalidToken)
	}
	content, err := parseTokenContent(string(plain))
	if err != nil {
		return nil, err
	}
	return content, nil
}

// formatTokenContent writes "k:v" pairs sorted by key and separated by ";".
func formatTokenContent(content map[string]int64) string {
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+strconv.FormatInt(content[k], 10))
	}
	return strings.Join(parts, ";")
}

func parseTokenContent(s string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, part := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok || k == "" {
			return nil, fmt.Errorf("%w: cannot parse token", domain.ErrInvalidToken)
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot parse token", domain.ErrInvalidToken)
		}
		out[k] = n
	}
	return out, nil
}

// TokenAddress builds user+token@domain.
func TokenAddress(user, token, domainName string) string {
	return user + "+" + token + "@" + domainName
}

// ParseTokenAddress returns the token of a user+token@domain address. The user and domain must
// match.
func ParseTokenAddress(address, user, domainName string) (string, error) {
	addr := strings.TrimSpace(address)
	if parsed, err := mail.ParseAddress(addr); err == nil {
		addr = parsed.Address
	}
	prefix := user + "+"
	suffix := "@" + domainName
	if !strings.HasPrefix(strings.ToLower(addr), strings.ToLower(prefix)) || !strings.HasSuffix(strings.ToLower(addr), strings.ToLower(suffix)) {
		return "", fmt.Errorf("%w: address %q has no token", domain.ErrInvalidToken, address)
	}
	token := addr[len(prefix) : len(addr)-len(suffix)]
	if token == "" {
		return "", fmt.Errorf("%w: address %q has no token", domain.ErrInvalidToken, address)
	}
	return token, nil
}

type streamEmailAddressParams struct {
	StreamScopeID int64 `json:"streamScopeId"`
	ActivityID    int64 `json:"activityId"`
}

type inboundMessageParams struct {
	From string   `json:"from"`
	To   []string `json:"to"`
	Body string   `json:"body"`
}

// getStreamEmailAddress returns the principal's address for posting to a stream, or commenting on
// an activity when activityId is given.
func (s *Service) getStreamEmailAddress(ctx context.Context, ac *domain.ActionContext) (any, error) {
	if err := requirePerson(ac); err != nil {
		return nil, err
	}
	var in streamEmailAddressParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}
	if s.opts.InboundEmailDomain == "" || s.opts.InboundEmailUser == "" {
		return nil, errors.New("inbound email is not configured")
	}

	content := map[string]int64{}
	if in.ActivityID != 0 {
		_, dest, err := s.activityWithDestination(ctx, in.ActivityID)
		if err != nil {
			return nil, err
		}
		allowed, err := s.canCommentOnStream(ctx, ac.Principal, dest)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, domain.ErrForbidden
		}
		content[TokenKeyActivity] = in.ActivityID
	} else {
		scope, err := s.repo.GetStreamScopeByID(ctx, in.StreamScopeID)
		if err != nil {
			return nil, err
		}
		dest, err := s.destinationForScope(ctx, scope)
		if err != nil {
			return nil, err
		}
		allowed, err := s.canPostToStream(ctx, ac.Principal, dest)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, domain.ErrForbidden
		}
		content[TokenKeyStream] = scope.ID
	}

	token, err := s.tokens.Encode(ac.Principal.PersonID, content)
	if err != nil {
		return nil, err
	}
	return TokenAddress(s.opts.InboundEmailUser, token, s.opts.InboundEmailDomain), nil
}

// processInboundMessage turns a tokenized email into a comment or post by its sender.
func (s *Service) processInboundMessage(ctx context.Context, ac *domain.ActionContext) (any, error) {
	var in inboundMessageParams
	if err := ac.Decode(&in); err != nil {
		return nil, err
	}

	var token string
	for _, to := range in.To {
		if t, err := ParseTokenAddress(to, s.opts.InboundEmailUser, s.opts.InboundEmailDomain); err == nil {
			token = t
			break
		}
	}
	if token == "" {
		return nil, fmt.Errorf("%w: cannot find a system address with a token", domain.ErrInvalidToken)
	}

	from, err := mail.ParseAddress(in.From)
	if err != nil {
		return nil, fmt.Errorf("%w: message must contain a single from address", domain.ErrBadRequest)
	}
	sender, err := s.repo.GetPersonByEmail(ctx, from.Address)
	if err != nil {
		return nil, err
	}
	content, err := s.tokens.Decode(sender.ID, token)
	if err != nil {
		return nil, err
	}
	principal, err := s.principalFor(ctx, sender)
	if err != nil {
		return nil, err
	}

	body := extractReplyContent(in.Body)
	var (
		run    ActionFunc
		params any
	)
	switch {
	case content[TokenKeyActivity] != 0:
		run = s.postComment
		params = postCommentParams{ActivityID: content[TokenKeyActivity], Body: body}
	case content[TokenKeyStream] != 0:
		scope, err := s.repo.GetStreamScopeByID(ctx, content[TokenKeyStream])
		if err != nil {
			return nil, err
		}
		run = s.postActivity
		params = postActivityParams{DestinationType: scope.ScopeType, DestinationUniqueID: scope.UniqueKey, Body: body}
	default:
		return nil, fmt.Errorf("%w: token names no action", domain.ErrInvalidToken)
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	nested := &domain.ActionContext{Principal: principal, Params: raw, ActionID: ac.ActionID}
	result, err := run(ctx, nested)
	if err != nil {
		s.log.WithError(err).WithField("sender", sender.AccountID).Info("inbound message rejected")
		return nil, err
	}
	ac.Adopt(nested.Requests()...)
	return result, nil
}

// extractReplyContent drops quoted text and everything after a reply separator.
func extractReplyContent(body string) string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-----Original Message-----") || (strings.HasPrefix(trimmed, "On ") && strings.HasSuffix(trimmed, "wrote:")) {
			break
		}
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
