package common

import (
	"time"

	"github.com/apex/log"
)

// Component base structure for a Component
type Component struct {
	LogTags log.Fields
}

// CopyLogTags helper function to extend a component's log tags without mutating them
func (c Component) CopyLogTags(extra log.Fields) log.Fields {
	result := log.Fields{}
	for k, v := range c.LogTags {
		result[k] = v
	}
	for k, v := range extra {
		result[k] = v
	}
	return result
}

// dateLayout is the calendar date format used by all stored dates
const dateLayout = "2006-01-02"

// FormatDate format a timestamp as YYYY-MM-DD in UTC
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
