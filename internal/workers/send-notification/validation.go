package sendnotification

import "portal-notifier/internal/common/validation"

var inputSchema = validation.MustCompile(`{
  "type": "object",
  "required": ["recipientIds"],
  "properties": {
    "recipientIds": {
      "type": "array",
      "items": {"type": "integer", "minimum": 1}
    },
    "kind":     {"type": "string", "maxLength": 64},
    "domain":   {"type": "string", "maxLength": 32},
    "category": {"type": "string", "maxLength": 64},
    "title":    {"type": "string", "maxLength": 255},
    "message":  {"type": "string", "maxLength": 4000},
    "payload":  {"type": "object"},
    "priority": {"type": "string", "enum": ["", "low", "medium", "normal", "high", "urgent"]},
    "channels": {
      "type": "array",
      "items": {"type": "string", "enum": ["in_app", "email", "both"]}
    },
    "locale":   {"type": "string", "maxLength": 16}
  },
  "anyOf": [
    {"required": ["kind"]},
    {"required": ["category"]}
  ]
}`)
