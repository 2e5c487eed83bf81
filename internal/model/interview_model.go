package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Interview struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId          uuid.UUID      `gorm:"type:uuid;not null;index:idx_interviews_user_created,priority:1"`
	Email           string         `gorm:"type:varchar(255)"`
	Type            string         `gorm:"type:varchar(20);not null"`
	Difficulty      string         `gorm:"type:varchar(20);not null"`
	CVFileName      string         `gorm:"column:cv_file_name;type:varchar(255)"`
	CVText          string         `gorm:"column:cv_text;type:text"`
	CVSummary       string         `gorm:"column:cv_summary;type:text"`
	Status          string         `gorm:"type:varchar(20);not null;default:'Pending';index"`
	Score           *int           `gorm:"type:int"`
	AnswerScore     *int           `gorm:"type:int"`
	ClarityScore    *int           `gorm:"type:int"`
	ConfidenceScore *int           `gorm:"type:int"`
	Feedback        datatypes.JSON `gorm:"type:jsonb"`
	KeyInsights     datatypes.JSON `gorm:"type:jsonb"`
	Transcript      string         `gorm:"type:text"`
	Metrics         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index:idx_interviews_user_created,priority:2"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (Interview) TableName() string {
	return "interviews"
}
