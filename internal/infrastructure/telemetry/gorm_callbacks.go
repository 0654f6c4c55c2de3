package telemetry

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const statementStartKey = "agrolink:statement_start"

// gormRegistrar is satisfied by the values returned from GORM's
// Callback().X().Before/After chains.
type gormRegistrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

type gormHook struct {
	registrar gormRegistrar
	name      string
	fn        func(*gorm.DB)
}

func registerHooks(hooks []gormHook) error {
	for _, h := range hooks {
		if err := h.registrar.Register(h.name, h.fn); err != nil {
			return fmt.Errorf("register gorm callback %s: %w", h.name, err)
		}
	}
	return nil
}

// markStatementStart records when the current statement began
func markStatementStart(db *gorm.DB) {
	db.InstanceSet(statementStartKey, time.Now())
}

// statementElapsed returns the time since markStatementStart ran for this statement
func statementElapsed(db *gorm.DB) (time.Duration, bool) {
	v, ok := db.InstanceGet(statementStartKey)
	if !ok {
		return 0, false
	}
	start, ok := v.(time.Time)
	if !ok {
		return 0, false
	}
	return time.Since(start), true
}

// statementVerb classifies Row and Raw statements by their leading keyword
func statementVerb(sql string) string {
	sql = strings.ToUpper(strings.TrimSpace(sql))
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, verb) {
			return verb
		}
	}
	if strings.HasPrefix(sql, "WITH") {
		return "SELECT"
	}
	return "OTHER"
}

func statementTable(db *gorm.DB) string {
	if db.Statement.Table != "" {
		return db.Statement.Table
	}
	return "unknown"
}
