package repo

import (
	"context"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"

	"github.com/xxxsen/yawiki/internal/model"
)

type VoteRepo struct {
	base
}

func NewVoteRepo(db *sqlx.DB) *VoteRepo {
	return &VoteRepo{base{db: db}}
}

func (r *VoteRepo) Create(ctx context.Context, vote *model.DevItemVote) error {
	data := map[string]interface{}{
		"id":          vote.ID,
		"dev_item_id": vote.DevItemID,
		"user_id":     vote.UserID,
		"ctime":       vote.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("dev_item_votes", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.exec(ctx, sqlStr, args)
	return err
}

func (r *VoteRepo) Find(ctx context.Context, itemID, userID string) (*model.DevItemVote, error) {
	where := map[string]interface{}{"dev_item_id": itemID, "user_id": userID}
	sqlStr, args, err := builder.BuildSelect("dev_item_votes", where, []string{"id", "dev_item_id", "user_id", "ctime"})
	if err != nil {
		return nil, err
	}
	var vote model.DevItemVote
	if err := r.get(ctx, &vote, sqlStr, args); err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *VoteRepo) Delete(ctx context.Context, id string) error {
	sqlStr, args, err := builder.BuildDelete("dev_item_votes", map[string]interface{}{"id": id})
	if err != nil {
		return err
	}
	return r.execAffected(ctx, sqlStr, args)
}
