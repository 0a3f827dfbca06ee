package application

import (
	"testing"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCodecRoundTrip(t *testing.T) {
	codec := NewTokenCodec("secret")
	token, err := codec.Encode(42, map[string]int64{TokenKeyActivity: 7, TokenKeyStream: 9})
	require.NoError(t, err)
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	content, err := codec.Decode(42, token)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{TokenKeyActivity: 7, TokenKeyStream: 9}, content)

	_, err = codec.Decode(43, token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = NewTokenCodec("other").Decode(42, token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = codec.Decode(42, "!!!")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = codec.Encode(42, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestParseTokenAddress(t *testing.T) {
	token, err := ParseTokenAddress(`"Streams" <Streams+abc123@Example.com>`, "streams", "example.com")
	require.NoError(t, err)
	assert.Equal(t, "abc123", token)

	for _, addr := range []string{"streams@example.com", "streams+@example.com", "other+abc@example.com", "streams+abc@elsewhere.com"} {
		_, err := ParseTokenAddress(addr, "streams", "example.com")
		assert.ErrorIs(t, err, domain.ErrInvalidToken, addr)
	}
	assert.Equal(t, "streams+tok@example.com", TokenAddress("streams", "tok", "example.com"))
}

func TestExtractReplyContent(t *testing.T) {
	body := "Sounds good\r\n> earlier text\r\nsee you\r\n\r\nOn Tue, Jan 5, 2010 someone wrote:\r\nold body"
	assert.Equal(t, "Sounds good\nsee you", extractReplyContent(body))
	assert.Equal(t, "top", extractReplyContent("top\n-----Original Message-----\nbottom"))
}

func TestProcessInboundMessageComments(t *testing.T) {
	h := newHarness(t)
	sam := h.person("sam")
	tess := h.person("tess")
	a := h.post(sam, domain.ScopeTypePerson, "sam", "email me")

	address := h.mustRun(tess, ActionGetStreamEmailAddress, map[string]any{"activityId": a.ID}).(string)
	require.Contains(t, address, "@example.com")
	h.queue.take()

	result := h.mustRun(domain.SystemPrincipal(), ActionProcessInboundMessage, map[string]any{
		"from": "Tess <tess@example.com>",
		"to":   []string{"someone@example.com", address},
		"body": "Replying by mail\n\nOn Mon, Feb 1 Sam wrote:\n> email me",
	})
	comment := result.(domain.Comment)
	assert.Equal(t, tess.PersonID, comment.AuthorPersonID)
	assert.Equal(t, "Replying by mail", comment.Body)
	assert.Len(t, requestsFor(h.queue.take(), ActionCreateNotifications), 1)

	_, err := h.run(domain.SystemPrincipal(), ActionProcessInboundMessage, map[string]any{
		"from": "sam@example.com",
		"to":   []string{address},
		"body": "not mine",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestProcessInboundMessagePostsToStream(t *testing.T) {
	h := newHarness(t)
	uma := h.person("uma")
	g := h.group(h.admin, "mailers", true)
	h.mustRun(uma, ActionSetFollowingGroupStatus, map[string]any{"groupShortName": "mailers", "status": "FOLLOWING"})

	address := h.mustRun(uma, ActionGetStreamEmailAddress, map[string]any{"streamScopeId": g.StreamScopeID}).(string)
	result := h.mustRun(domain.SystemPrincipal(), ActionProcessInboundMessage, map[string]any{
		"from": "uma@example.com",
		"to":   []string{address},
		"body": "posted by email",
	})
	view := result.(domain.ActivityModelView)
	assert.Equal(t, "uma", view.ActorAccountID)
	assert.Equal(t, domain.ScopeTypeGroup, view.DestinationType)
	assert.Equal(t, "mailers", view.DestinationKey)
}
