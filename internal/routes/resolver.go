// Package routes maps notifications to in-app navigation targets.
package routes

import "github.com/go-notify-sync/internal/domain"

// Route is a navigable in-app location.
type Route struct {
	Path string
}

// Resolve returns the deep link for a notification, or false when the
// notification is not navigable. Missing required metadata yields false,
// never a partial path. Pure function, no side effects.
func Resolve(n domain.Notification) (Route, bool) {
	meta := n.Metadata

	switch n.Module {
	case domain.ModuleTasks:
		if projectID, ok := meta["project_id"]; ok && projectID != "" {
			return Route{Path: "/app/projects/" + projectID}, true
		}
		return Route{Path: "/app/tasks"}, true

	case domain.ModuleCost:
		return resolveCost(n, meta)

	case domain.ModuleDocuments:
		if entityType(n) == "document" && n.EntityID != nil && *n.EntityID != "" {
			return Route{Path: "/app/documents/" + *n.EntityID}, true
		}
		return Route{Path: "/app/documents"}, true

	case domain.ModuleRBAC:
		return Route{Path: "/app/admin/users"}, true
	}

	// system, empty and unrecognized modules are not navigable.
	return Route{}, false
}

func resolveCost(n domain.Notification, meta map[string]string) (Route, bool) {
	projectID := meta["project_id"]
	contractID := meta["contract_id"]

	switch entityType(n) {
	case "change_order":
		coID := meta["co_id"]
		if projectID == "" || contractID == "" || coID == "" {
			return Route{}, false
		}
		return Route{Path: "/app/projects/" + projectID + "/contracts/" + contractID + "/change-orders/" + coID}, true

	case "payment_certificate", "payment":
		if projectID == "" || contractID == "" {
			return Route{}, false
		}
		return Route{Path: "/app/projects/" + projectID + "/contracts/" + contractID}, true
	}

	if projectID == "" {
		return Route{}, false
	}
	return Route{Path: "/app/projects/" + projectID}, true
}

func entityType(n domain.Notification) string {
	if n.EntityType == nil {
		return ""
	}
	return *n.EntityType
}
