package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

// paramsFunc builds an action's params from the request URL.
type paramsFunc func(r *http.Request) (map[string]any, error)

// resource exposes a read action as a GET endpoint returning the bare result.
func (h *Handler) resource(action string, params paramsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _ := principalFromContext(r.Context())
		var raw json.RawMessage
		if params != nil {
			in, err := params(r)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
			raw, err = json.Marshal(in)
			if err != nil {
				h.writeError(w, r, err)
				return
			}
		}
		result, err := h.exec.Execute(r.Context(), action, p, raw)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func pathParams(names ...string) paramsFunc {
	return func(r *http.Request) (map[string]any, error) {
		out := make(map[string]any, len(names))
		for _, name := range names {
			out[name] = chi.URLParam(r, name)
		}
		return out, nil
	}
}

func streamParams(r *http.Request) (map[string]any, error) {
	maxResults, err := queryInt(r, "maxResults")
	if err != nil {
		return nil, err
	}
	beforeID, err := queryInt(r, "beforeId")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"scopeType":  strings.ToUpper(chi.URLParam(r, "scopeType")),
		"uniqueKey":  chi.URLParam(r, "uniqueKey"),
		"maxResults": maxResults,
		"beforeId":   beforeID,
	}, nil
}

func notificationParams(r *http.Request) (map[string]any, error) {
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unreadOnly"))
	return map[string]any{"unreadOnly": unread}, nil
}

func searchParams(r *http.Request) (map[string]any, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"q":          r.URL.Query().Get("q"),
		"entityType": strings.ToUpper(r.URL.Query().Get("type")),
		"limit":      limit,
	}, nil
}

func usageParams(r *http.Request) (map[string]any, error) {
	days, err := queryInt(r, "days")
	if err != nil {
		return nil, err
	}
	out := map[string]any{"numberOfDays": days}
	if r.URL.Query().Get("streamScopeId") != "" {
		scopeID, err := queryInt(r, "streamScopeId")
		if err != nil {
			return nil, err
		}
		out["streamRecipientStreamScopeId"] = scopeID
	}
	return out, nil
}

func queryInt(r *http.Request, name string) (int64, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", domain.ErrBadRequest, name)
	}
	return n, nil
}
