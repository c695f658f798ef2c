package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IkonicR/clanova-manager/internal/model"
)

// PostgresClanMembershipRepo はPostgreSQLを使用したクラン参加リクエストリポジトリ。
type PostgresClanMembershipRepo struct {
	db *sql.DB
}

// NewPostgresClanMembershipRepo はPostgresClanMembershipRepoを生成する。
func NewPostgresClanMembershipRepo(db *sql.DB) *PostgresClanMembershipRepo {
	return &PostgresClanMembershipRepo{db: db}
}

// Create は参加リクエストを作成する。
func (r *PostgresClanMembershipRepo) Create(ctx context.Context, req *model.ClanMembershipRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clan_membership_requests (id, user_id, clan_tag, role, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.UserID, req.ClanTag, req.Role, string(req.Status), req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert clan membership request: %w", err)
	}
	return nil
}

// FindByUserID は指定ユーザーの参加リクエストを取得する。見つからない場合はnilを返す。
func (r *PostgresClanMembershipRepo) FindByUserID(ctx context.Context, userID string) (*model.ClanMembershipRequest, error) {
	req := &model.ClanMembershipRequest{}
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, clan_tag, role, status, created_at
		 FROM clan_membership_requests WHERE user_id = $1`,
		userID,
	).Scan(&req.ID, &req.UserID, &req.ClanTag, &req.Role, &status, &req.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find clan membership request: %w", err)
	}
	req.Status = model.MembershipStatus(status)

	return req, nil
}

// compile-time interface check
var _ ClanMembershipRepository = (*PostgresClanMembershipRepo)(nil)
