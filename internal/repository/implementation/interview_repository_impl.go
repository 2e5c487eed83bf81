package implementation

import (
	"context"
	"errors"

	"ai-interview-be/internal/entity"
	"ai-interview-be/internal/mapper"
	"ai-interview-be/internal/model"
	"ai-interview-be/internal/repository/contract"
	"ai-interview-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InterviewRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.InterviewMapper
}

func NewInterviewRepository(db *gorm.DB) contract.InterviewRepository {
	return &InterviewRepositoryImpl{
		db:     db,
		mapper: mapper.NewInterviewMapper(),
	}
}

func (r *InterviewRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *InterviewRepositoryImpl) Create(ctx context.Context, interview *entity.Interview) error {
	m := r.mapper.ToModel(interview)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*interview = *r.mapper.ToEntity(m)
	return nil
}

func (r *InterviewRepositoryImpl) Update(ctx context.Context, interview *entity.Interview) error {
	m := r.mapper.ToModel(interview)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*interview = *r.mapper.ToEntity(m)
	return nil
}

func (r *InterviewRepositoryImpl) SetCVSummary(ctx context.Context, id uuid.UUID, summary string) error {
	return r.db.WithContext(ctx).
		Model(&model.Interview{}).
		Where("id = ?", id).
		Update("cv_summary", summary).Error
}

func (r *InterviewRepositoryImpl) SaveResult(ctx context.Context, interview *entity.Interview) error {
	m := r.mapper.ToModel(interview)
	result := r.db.WithContext(ctx).
		Model(m).
		Select("status", "score", "answer_score", "clarity_score", "confidence_score",
			"feedback", "key_insights", "transcript", "metrics", "updated_at").
		Updates(m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *InterviewRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Interview, error) {
	var m model.Interview
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *InterviewRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Interview, error) {
	var models []*model.Interview
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *InterviewRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Interview{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ScoreStats aggregates over the rows matched by specs. Unscored rows count as
// zero in the average.
func (r *InterviewRepositoryImpl) ScoreStats(ctx context.Context, specs ...specification.Specification) (*entity.InterviewStats, error) {
	var row struct {
		Total     int64
		Completed int64
		Average   float64
		Best      int
	}
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Interview{}), specs...)
	err := query.Select(
		"COUNT(*) AS total, " +
			"COUNT(score) AS completed, " +
			"COALESCE(AVG(COALESCE(score, 0)), 0) AS average, " +
			"COALESCE(MAX(score), 0) AS best",
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &entity.InterviewStats{
		Total:        row.Total,
		Completed:    row.Completed,
		AverageScore: row.Average,
		BestScore:    row.Best,
	}, nil
}
