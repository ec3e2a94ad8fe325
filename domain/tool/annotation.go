// Package tool provides the domain model for MCP tools.
package tool

import "strings"

// Category groups tools by the system they touch.
type Category string

const (
	CategoryDatabase     Category = "database"
	CategoryNotification Category = "notification"
	CategoryLLM          Category = "llm"
	CategoryActivity     Category = "activity"
)

// Annotations describe tool behavior to clients and to the dispatcher.
type Annotations struct {
	// ReadOnly indicates the tool has no side effects on external systems.
	ReadOnly bool `json:"read_only"`

	// Destructive indicates the tool may change external state.
	Destructive bool `json:"destructive"`

	// OpenWorld indicates the tool talks to a system outside the server.
	OpenWorld bool `json:"open_world"`

	// Category is the tool group.
	Category Category `json:"category,omitempty"`
}

// Hints renders the annotations as the short tag list appended to tool
// descriptions, e.g. "[read-only, database]".
func (a Annotations) Hints() string {
	var tags []string
	switch {
	case a.ReadOnly:
		tags = append(tags, "read-only")
	case a.Destructive:
		tags = append(tags, "side effects")
	}
	if a.Category != "" {
		tags = append(tags, string(a.Category))
	}
	if len(tags) == 0 {
		return ""
	}
	return "[" + strings.Join(tags, ", ") + "]"
}
