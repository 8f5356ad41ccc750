package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/localnerve/macroai/internal/models"
	"github.com/localnerve/macroai/internal/types"
	"gorm.io/gorm"
)

// VectorRepository persists message embeddings.
type VectorRepository struct {
	db *gorm.DB
}

func NewVectorRepository(db *gorm.DB) *VectorRepository {
	return &VectorRepository{db: db}
}

// CreateVector inserts an embedding record, assigning an id when none is set.
func (r *VectorRepository) CreateVector(ctx context.Context, vector *models.ChatVector) (*models.ChatVector, error) {
	if vector.ID == "" {
		vector.ID = uuid.NewString()
	}
	return insert(ctx, r.db, "vectorRepository - createVector", vector)
}

// FindVectorsByChatID returns a chat's embedding records oldest first.
func (r *VectorRepository) FindVectorsByChatID(ctx context.Context, chatID string) ([]models.ChatVector, error) {
	const op = "vectorRepository - findVectorsByChatId"

	vectors, err := run(op, func() ([]models.ChatVector, error) {
		var vectors []models.ChatVector
		err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Order("created_at ASC").Find(&vectors).Error
		return vectors, err
	})
	if err != nil {
		return nil, err
	}
	if err := validateRows(op, vectors); err != nil {
		return nil, err
	}
	if vectors == nil {
		vectors = []models.ChatVector{}
	}
	return vectors, nil
}

// DeleteVectorsByChatID removes a chat's embedding records and reports how many.
func (r *VectorRepository) DeleteVectorsByChatID(ctx context.Context, chatID string) (int64, error) {
	return run("vectorRepository - deleteVectorsByChatId", func() (int64, error) {
		res := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&models.ChatVector{})
		return res.RowsAffected, res.Error
	})
}

// SemanticSearch matches stored embeddings against a query vector. Similarity
// search is not implemented; a valid request yields no matches.
func (r *VectorRepository) SemanticSearch(ctx context.Context, userID string, query []float32, limit int) ([]models.ChatVector, error) {
	const op = "vectorRepository - semanticSearch"
	if userID == "" {
		return nil, types.NewValidationError(op, "user id is required")
	}
	if len(query) == 0 {
		return nil, types.NewValidationError(op, "query embedding is required")
	}
	if limit <= 0 {
		return nil, types.NewValidationError(op, "limit must be positive")
	}
	if err := ctx.Err(); err != nil {
		return nil, types.NewDatabaseError(op, "database operation interrupted", err)
	}
	return []models.ChatVector{}, nil
}
