package unitofwork

import (
	"ai-interview-be/internal/repository/contract"
	"ai-interview-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) InterviewRepository() contract.InterviewRepository {
	return implementation.NewInterviewRepository(u.db)
}

func (u *UnitOfWorkImpl) NotificationRepository() contract.NotificationRepository {
	return implementation.NewNotificationRepository(u.db)
}
