package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/IkonicR/clanova-manager/internal/model"
)

// PostgresPlayerProfileRepo はPostgreSQLを使用したプレイヤープロフィールリポジトリ。
type PostgresPlayerProfileRepo struct {
	db *sql.DB
}

// NewPostgresPlayerProfileRepo はPostgresPlayerProfileRepoを生成する。
func NewPostgresPlayerProfileRepo(db *sql.DB) *PostgresPlayerProfileRepo {
	return &PostgresPlayerProfileRepo{db: db}
}

// Create はプロフィールを作成する。ClanTagがnilの場合はNULLで保存する。
func (r *PostgresPlayerProfileRepo) Create(ctx context.Context, profile *model.PlayerProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO player_profiles (id, user_id, player_tag, clan_tag, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		profile.ID, profile.UserID, profile.PlayerTag, profile.ClanTag, profile.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert player profile: %w", err)
	}
	return nil
}

// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresPlayerProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.PlayerProfile, error) {
	profile := &model.PlayerProfile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, player_tag, clan_tag, created_at
		 FROM player_profiles WHERE user_id = $1`,
		userID,
	).Scan(&profile.ID, &profile.UserID, &profile.PlayerTag, &profile.ClanTag, &profile.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find player profile: %w", err)
	}

	return profile, nil
}

// compile-time interface check
var _ PlayerProfileRepository = (*PostgresPlayerProfileRepo)(nil)
