package services

import (
	"encoding/json"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"creatorx/internal/logger"
	"creatorx/internal/models"
)

// auditService appends market actions to audit_logs.
type auditService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db, log: logger.Named("audit")}
}

// Log records a market action. An empty userID marks a pipeline action.
// Failures are logged and swallowed so a committed trade is never reported
// as failed.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	entry := &models.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      s.encodeChanges(action, changes),
	}
	if userID != "" {
		entry.UserID = &userID
	}

	if err := s.db.Create(entry).Error; err != nil {
		s.log.Errorw("failed to write audit entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource", resourceType+":"+resourceID,
		)
	}
}

func (s *auditService) encodeChanges(action string, changes map[string]any) string {
	if changes == nil {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		s.log.Errorw("failed to encode audit changes", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}
