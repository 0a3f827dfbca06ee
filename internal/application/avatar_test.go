package application

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/lmco/eurekastreams-sub009/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// withDimensions rewrites the IHDR chunk of a PNG to declare w×h without adding pixel data.
func withDimensions(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func storedSize(t *testing.T, h *harness, key string) image.Point {
	t.Helper()
	data, contentType, err := h.svc.AvatarImage(h.ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return image.Pt(cfg.Width, cfg.Height)
}

func TestSaveAvatarWritesRenditions(t *testing.T) {
	h := newHarness(t)
	pat := h.person("pat")
	h.queue.take()

	first := h.mustRun(pat, ActionSaveAvatar, map[string]any{"entityType": "PERSON", "image": testPNG(t, 800, 400)}).(string)
	assert.Equal(t, image.Pt(400, 200), storedSize(t, h, "o"+first))
	assert.Equal(t, image.Pt(75, 75), storedSize(t, h, "n"+first))
	assert.Equal(t, image.Pt(50, 50), storedSize(t, h, "s"+first))

	person, err := h.repo.GetPersonByID(h.ctx, pat.PersonID)
	require.NoError(t, err)
	assert.Equal(t, first, person.AvatarID)
	assert.Len(t, requestsFor(h.queue.take(), ActionDeleteCacheKeys), 1)

	second := h.mustRun(pat, ActionSaveAvatar, map[string]any{"entityType": "PERSON", "uniqueKey": "pat", "image": testPNG(t, 20, 30)}).(string)
	assert.NotEqual(t, first, second)
	assert.Equal(t, image.Pt(20, 30), storedSize(t, h, "o"+second))
	_, _, err = h.svc.AvatarImage(h.ctx, "n"+first)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveAvatarRejectsOversizedImage(t *testing.T) {
	h := newHarness(t)
	rae := h.person("rae")

	bomb := withDimensions(t, testPNG(t, 1, 1), 50000, 50000)
	cfg, err := png.DecodeConfig(bytes.NewReader(bomb))
	require.NoError(t, err)
	require.Equal(t, 50000, cfg.Width)

	_, err = h.run(rae, ActionSaveAvatar, map[string]any{"entityType": "PERSON", "image": bomb})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "The image is too large.", verr.Errors["image"])

	person, err := h.repo.GetPersonByID(h.ctx, rae.PersonID)
	require.NoError(t, err)
	assert.Empty(t, person.AvatarID)
}

func TestSaveAvatarChecksAccess(t *testing.T) {
	h := newHarness(t)
	h.person("quinn")
	rita := h.person("rita")

	_, err := h.run(rita, ActionSaveAvatar, map[string]any{"entityType": "PERSON", "uniqueKey": "quinn", "image": testPNG(t, 10, 10)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = h.run(rita, ActionSaveAvatar, map[string]any{"entityType": "PERSON", "image": []byte("not an image")})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Errors, "image")

	h.mustRun(h.admin, ActionSaveAvatar, map[string]any{"entityType": "PERSON", "uniqueKey": "quinn", "image": testPNG(t, 10, 10)})
}

func TestAvatarImageRejectsUnknownKeys(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.svc.AvatarImage(h.ctx, "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = h.svc.AvatarImage(h.ctx, "x0f8c3c4e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
