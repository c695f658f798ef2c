// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/IkonicR/clanova-manager/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレス重複の場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するsessions、player_profiles、clan_membership_requestsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// PlayerProfileRepository はプレイヤープロフィールの永続化インターフェース。
type PlayerProfileRepository interface {
	// Create はプロフィールを作成する。ユーザーあたり最大1件。
	Create(ctx context.Context, profile *model.PlayerProfile) error

	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.PlayerProfile, error)
}

// ClanMembershipRepository はクラン参加リクエストの永続化インターフェース。
// 承認ワークフローはスコープ外のため、作成と参照のみを提供する。
type ClanMembershipRepository interface {
	// Create は参加リクエストを作成する。
	Create(ctx context.Context, req *model.ClanMembershipRequest) error

	// FindByUserID は指定ユーザーの参加リクエストを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.ClanMembershipRequest, error)
}
