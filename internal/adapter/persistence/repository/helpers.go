package repository

import (
	"os"
	"strings"
)

// tableName returns the table named by envKey, or def when the variable is unset.
func tableName(envKey, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return def
}
