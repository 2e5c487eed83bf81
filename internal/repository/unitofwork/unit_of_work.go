package unitofwork

import "ai-interview-be/internal/repository/contract"

// UnitOfWork hands out repositories sharing one database handle.
type UnitOfWork interface {
	InterviewRepository() contract.InterviewRepository
	NotificationRepository() contract.NotificationRepository
}
