package apiclient

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/runoshun/label-crew/internal/domain"
)

// DefaultRoutes maps every action to its endpoint on the task service.
var DefaultRoutes = map[domain.Action]string{
	domain.ActionProject:          "GET /project",
	domain.ActionTasks:            "GET /tasks",
	domain.ActionTask:             "GET /tasks/:taskID",
	domain.ActionNextTask:         "GET /tasks/next",
	domain.ActionSubmitAnnotation: "POST /tasks/:taskID/annotations",
	domain.ActionUpdateAnnotation: "PATCH /annotations/:completionID",
	domain.ActionDeleteAnnotation: "DELETE /annotations/:completionID",
	domain.ActionSkipTask:         "POST /tasks/:taskID/annotations",
}

var methods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}

// route is a parsed "<METHOD> /path/:param" endpoint.
type route struct {
	method   string
	segments []string
}

func parseRoute(s string) (route, error) {
	method, path, ok := strings.Cut(strings.TrimSpace(s), " ")
	method = strings.ToUpper(method)
	if !ok || !slices.Contains(methods, method) {
		return route{}, fmt.Errorf("invalid route %q: want \"<METHOD> /path\"", s)
	}
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		return route{}, fmt.Errorf("invalid route %q: path must start with /", s)
	}
	return route{method: method, segments: strings.Split(strings.Trim(path, "/"), "/")}, nil
}

// build substitutes params into the path. Params not named by the path
// are returned as query values.
func (r route) build(params domain.Params) (string, url.Values, error) {
	used := make(map[string]bool, len(params))
	parts := make([]string, len(r.segments))
	for i, seg := range r.segments {
		name, ok := strings.CutPrefix(seg, ":")
		if !ok {
			parts[i] = seg
			continue
		}
		value, found := params[name]
		if !found || value == "" {
			return "", nil, fmt.Errorf("%w: %s", domain.ErrMissingParam, name)
		}
		parts[i] = value
		used[name] = true
	}

	query := url.Values{}
	for k, v := range params {
		if !used[k] && v != "" {
			query.Set(k, v)
		}
	}
	return "/" + strings.Join(parts, "/"), query, nil
}

// routeTable resolves the defaults overridden by config.
func routeTable(overrides map[domain.Action]string) (map[domain.Action]route, error) {
	table := make(map[domain.Action]route, len(DefaultRoutes))
	for _, action := range domain.Actions {
		raw, ok := overrides[action]
		if !ok {
			raw = DefaultRoutes[action]
		}
		r, err := parseRoute(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", action, err)
		}
		table[action] = r
	}
	return table, nil
}
