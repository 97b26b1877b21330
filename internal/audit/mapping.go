package audit

import "strings"

// ActionResource holds action and resource derived from an HTTP route.
type ActionResource struct {
	Action   string
	Resource string
}

// Manager set routes are audited as manager_added and manager_removed on resource "cell".
const cellManagerRoute = "/cells/:id/managers/:user_id"

// ParseRoute returns action and resource for an HTTP method and router pattern
// (e.g. PATCH /participations/:id). Action is a verb: get, list, create, update, delete.
// Resource is the singular of the first path segment (participations -> participation).
func ParseRoute(method, route string) ActionResource {
	if route == cellManagerRoute {
		switch method {
		case "PUT":
			return ActionResource{Action: "manager_added", Resource: "cell"}
		case "DELETE":
			return ActionResource{Action: "manager_removed", Resource: "cell"}
		}
	}
	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return ActionResource{Action: "unknown", Resource: "unknown"}
	}
	resource := segmentToResource(segments[0])
	last := segments[len(segments)-1]
	return ActionResource{Action: methodToAction(method, strings.HasPrefix(last, ":")), Resource: resource}
}

func segmentToResource(segment string) string {
	switch {
	case strings.HasSuffix(segment, "ies"):
		return strings.TrimSuffix(segment, "ies") + "y"
	case strings.HasSuffix(segment, "s"):
		return strings.TrimSuffix(segment, "s")
	}
	return segment
}

func methodToAction(method string, instance bool) string {
	switch method {
	case "GET":
		if instance {
			return "get"
		}
		return "list"
	case "POST":
		return "create"
	case "PUT", "PATCH":
		return "update"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}
