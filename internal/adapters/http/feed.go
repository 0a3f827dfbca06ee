package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/feeds"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

const feedTitleLength = 80

func (h *Handler) handleAtomStream(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFromContext(r.Context())
	scopeType := domain.ScopeType(strings.ToUpper(chi.URLParam(r, "scopeType")))
	key := chi.URLParam(r, "uniqueKey")
	maxResults, err := queryInt(r, "maxResults")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	activities, err := h.service.Stream(r.Context(), p, scopeType, key, int(maxResults), 0)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	atom, err := streamFeed(requestBaseURL(r), scopeType, key, activities).ToAtom()
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(atom))
}

func streamFeed(base string, scopeType domain.ScopeType, key string, activities []domain.ActivityModelView) *feeds.Feed {
	streamURL := fmt.Sprintf("%s/resources/stream/%s/%s", base, strings.ToLower(string(scopeType)), key)
	feed := &feeds.Feed{
		Title:   fmt.Sprintf("%s stream: %s", strings.ToLower(string(scopeType)), key),
		Link:    &feeds.Link{Href: streamURL},
		Id:      streamURL,
		Created: time.Now().UTC(),
	}
	if len(activities) > 0 {
		feed.Updated = activities[0].PostedTime
	}
	for _, a := range activities {
		link := a.TargetURL
		if link == "" {
			link = streamURL + "?beforeId=" + strconv.FormatInt(a.ID+1, 10)
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          "activity:" + strconv.FormatInt(a.ID, 10),
			Title:       feedTitle(a.Body),
			Link:        &feeds.Link{Href: link},
			Author:      &feeds.Author{Name: a.ActorDisplayName},
			Description: a.Body,
			Created:     a.PostedTime,
		})
	}
	return feed
}

func feedTitle(body string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	runes := []rune(line)
	if len(runes) > feedTitleLength {
		return string(runes[:feedTitleLength-3]) + "..."
	}
	return line
}

func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
