package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/qna-go-api/internal/database"
	"github.com/noah-isme/qna-go-api/internal/models"
)

// VoteTally counts the votes on one target. Mine is the caller's current vote, nil when none.
type VoteTally struct {
	Likes    int64
	Dislikes int64
	Mine     *bool
}

// LikeRepository persists votes.
type LikeRepository interface {
	Vote(ctx context.Context, targetType, targetID, likerID string, isLiked bool) (bool, error)
	Tally(ctx context.Context, targetType string, targetIDs []string, likerID string) (map[string]VoteTally, error)
}

type likeRepository struct {
	store *database.Store
}

// NewLikeRepository constructs a GORM-backed repository.
func NewLikeRepository(store *database.Store) LikeRepository {
	return &likeRepository{store: store}
}

// Vote applies a vote atomically. Casting the vote already held withdraws it; casting the
// opposite vote flips it. The returned flag reports whether a vote is held afterwards.
func (r *likeRepository) Vote(ctx context.Context, targetType, targetID, likerID string, isLiked bool) (bool, error) {
	db, err := r.store.DB(ctx)
	if err != nil {
		return false, err
	}

	held := false
	err = db.Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("target_type = ? AND target_id = ? AND liker_id = ?", targetType, targetID, likerID).
			First(&existing).Error
		switch {
		case err == nil && existing.IsLiked == isLiked:
			return tx.Delete(&existing).Error
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		held = true
		like := models.Like{TargetType: targetType, TargetID: targetID, LikerID: likerID, IsLiked: isLiked}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "target_type"}, {Name: "target_id"}, {Name: "liker_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_liked", "updated_at"}),
		}).Create(&like).Error
	})
	if err != nil {
		return false, err
	}
	return held, nil
}

type tallyRow struct {
	TargetID string
	Likes    int64
	Dislikes int64
}

// Tally counts votes for every target in one query. Targets without votes are present with zero
// counts.
func (r *likeRepository) Tally(ctx context.Context, targetType string, targetIDs []string, likerID string) (map[string]VoteTally, error) {
	out := make(map[string]VoteTally, len(targetIDs))
	if len(targetIDs) == 0 {
		return out, nil
	}
	for _, id := range targetIDs {
		out[id] = VoteTally{}
	}

	db, err := r.store.DB(ctx)
	if err != nil {
		return nil, err
	}

	var rows []tallyRow
	if err := db.Model(&models.Like{}).
		Select("target_id, SUM(CASE WHEN is_liked THEN 1 ELSE 0 END) AS likes, SUM(CASE WHEN is_liked THEN 0 ELSE 1 END) AS dislikes").
		Where("target_type = ? AND target_id IN ?", targetType, targetIDs).
		Group("target_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.TargetID] = VoteTally{Likes: row.Likes, Dislikes: row.Dislikes}
	}

	if likerID == "" {
		return out, nil
	}

	var mine []models.Like
	if err := db.Where("target_type = ? AND target_id IN ? AND liker_id = ?", targetType, targetIDs, likerID).
		Find(&mine).Error; err != nil {
		return nil, err
	}
	for _, like := range mine {
		tally := out[like.TargetID]
		vote := like.IsLiked
		tally.Mine = &vote
		out[like.TargetID] = tally
	}

	return out, nil
}
