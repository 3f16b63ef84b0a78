package models

import (
	"time"
)

// Timestamps provides creation and update times for all models
type Timestamps struct {
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// SandboxModel provides the edit-context columns of sandboxed rows. A nil
// SandboxID marks a production row; the flags are NULL on live rows.
type SandboxModel struct {
	SandboxID       *int64 `gorm:"column:sandbox_id;index"`
	SandboxDeleted  *bool  `gorm:"column:sandbox_deleted"`
	SandboxArchived *bool  `gorm:"column:sandbox_archived"`
}

// AssignSandbox stamps the row with the sandbox it is created in
func (m *SandboxModel) AssignSandbox(id *int64) {
	m.SandboxID = id
}

// SandboxRow is implemented by models embedding SandboxModel
type SandboxRow interface {
	AssignSandbox(id *int64)
}

// Sandbox column names shared by the data access layer and rebalance statements
const (
	SandboxColumn         = "sandbox_id"
	SandboxDeletedColumn  = "sandbox_deleted"
	SandboxArchivedColumn = "sandbox_archived"
)
