package sandbox

import (
	"github.com/erp/openadmin/internal/domain/admin"
	"github.com/erp/openadmin/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const (
	settingKey         = "sandbox:id"
	createCallbackName = "sandbox:before_create"
)

// WithSandbox marks db so rows created through it are stamped with the
// scope's sandbox. Production scopes leave db unchanged.
func WithSandbox(db *gorm.DB, scope admin.Scope) *gorm.DB {
	if scope.SandboxID == nil {
		return db
	}
	return db.Set(settingKey, *scope.SandboxID)
}

// RegisterCallbacks registers the create hook that assigns the sandbox id set
// by WithSandbox
func RegisterCallbacks(db *gorm.DB) error {
	return db.Callback().Create().Before("gorm:create").Register(createCallbackName, assignSandbox)
}

// UnregisterCallbacks removes the hooks added by RegisterCallbacks
func UnregisterCallbacks(db *gorm.DB) error {
	return db.Callback().Create().Remove(createCallbackName)
}

func assignSandbox(db *gorm.DB) {
	raw, ok := db.Get(settingKey)
	if !ok {
		return
	}
	id, ok := raw.(int64)
	if !ok {
		return
	}
	row, ok := db.Statement.Dest.(models.SandboxRow)
	if !ok {
		return
	}
	row.AssignSandbox(&id)
}
