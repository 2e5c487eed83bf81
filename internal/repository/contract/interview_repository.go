package contract

import (
	"context"

	"ai-interview-be/internal/entity"
	"ai-interview-be/internal/repository/specification"

	"github.com/google/uuid"
)

type InterviewRepository interface {
	Create(ctx context.Context, interview *entity.Interview) error
	Update(ctx context.Context, interview *entity.Interview) error
	SetCVSummary(ctx context.Context, id uuid.UUID, summary string) error
	// SaveResult writes the evaluation columns and status only.
	SaveResult(ctx context.Context, interview *entity.Interview) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Interview, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Interview, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	ScoreStats(ctx context.Context, specs ...specification.Specification) (*entity.InterviewStats, error)
}
