package notifier

import "portal-notifier/internal/models"

// Template is a pair of {{placeholder}} format strings.
type Template struct {
	Title   string
	Message string
}

// builtinTemplates are used when the locale files carry no entry for a kind.
var builtinTemplates = map[models.NotificationKind]Template{
	models.KindProjectCreated: {
		Title:   "New Project Created",
		Message: "Project '{{project_name}}' has been created and assigned to you.",
	},
	models.KindReminder: {
		Title:   "Event Reminder",
		Message: "Reminder: '{{event_title}}' starts in {{time_until}} minutes.",
	},
	models.KindFileUploaded: {
		Title:   "New File Uploaded",
		Message: "A new file '{{filename}}' has been uploaded to project '{{project_name}}'.",
	},
	models.KindTaskAssigned: {
		Title:   "New Task Assigned",
		Message: "You have been assigned a new task: '{{task_name}}' in project '{{project_name}}'.",
	},
}

// BuiltinTemplates returns a copy of the compiled-in template set.
func BuiltinTemplates() map[models.NotificationKind]Template {
	out := make(map[models.NotificationKind]Template, len(builtinTemplates))
	for k, v := range builtinTemplates {
		out[k] = v
	}
	return out
}
