package models

import "strings"

type kindKey struct {
	domain   string
	category string
}

// kindTable is the only source of (domain, category) → kind resolution.
var kindTable = map[kindKey]NotificationKind{
	{"PROJECT", "created"}: KindProjectCreated,
	{"PROJECT", "updated"}: KindProjectUpdated,
	{"PROJECT", "deleted"}: KindProjectDeleted,
	{"EVENT", "created"}:   KindEventCreated,
	{"EVENT", "updated"}:   KindEventUpdated,
	{"EVENT", "cancelled"}: KindEventCancelled,
	{"FILE", "uploaded"}:   KindFileUploaded,
	{"FILE", "updated"}:    KindFileUpdated,
	{"WIKI", "created"}:    KindWikiCreated,
	{"WIKI", "updated"}:    KindWikiUpdated,
	{"TASK", "assigned"}:   KindTaskAssigned,
	{"TASK", "completed"}:  KindTaskCompleted,
}

// Domains used by the request builders.
const (
	DomainProject = "PROJECT"
	DomainEvent   = "EVENT"
	DomainFile    = "FILE"
	DomainWiki    = "WIKI"
	DomainTask    = "TASK"
)

// ResolveKind maps a domain prefix and a free-text category ("created",
// "cancelled", ...) to a kind. Anything not in the table resolves to
// KindSystem. With an empty domain the category may carry the prefix itself,
// e.g. "PROJECT_CREATED".
func ResolveKind(domain, category string) NotificationKind {
	domain = strings.ToUpper(strings.TrimSpace(domain))
	category = strings.ToLower(strings.TrimSpace(category))

	if domain == "" {
		prefix, rest, ok := strings.Cut(category, "_")
		if !ok {
			return KindSystem
		}
		domain, category = strings.ToUpper(prefix), rest
	}

	if kind, ok := kindTable[kindKey{domain, category}]; ok {
		return kind
	}
	return KindSystem
}
