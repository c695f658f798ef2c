package model

import (
	"strings"
	"time"
)

// PlayerProfile はユーザーに紐付くClash of Clansプレイヤー情報を表す。
// サインアップ時に最大1件作成される。ClanTagはクランレスの場合nil。
type PlayerProfile struct {
	ID        string
	UserID    string
	PlayerTag string
	ClanTag   *string
	CreatedAt time.Time
}

// MembershipStatus はクラン参加リクエストの状態。
type MembershipStatus string

const (
	// MembershipPending はリーダー承認待ちの状態。
	MembershipPending MembershipStatus = "pending"
	// MembershipAccepted は承認済みの状態。
	MembershipAccepted MembershipStatus = "accepted"
)

// RoleLeader はクランリーダーのロール値（小文字で永続化する）。
const RoleLeader = "leader"

// DefaultRole は上流APIがロールを返さなかった場合の既定値。
const DefaultRole = "member"

// ClanMembershipRequest はクラン参加リクエストを表す。
// 作成時の不変条件: status = accepted ⇔ role = leader（大文字小文字を区別しない）。
// 承認ワークフローはスコープ外（承認は帯域外で行われる前提）。
type ClanMembershipRequest struct {
	ID        string
	UserID    string
	ClanTag   string
	Role      string
	Status    MembershipStatus
	CreatedAt time.Time
}

// StatusForRole はロールから作成時のメンバーシップ状態を導出する。
// leader（大文字小文字問わず）のみacceptedで開始し、それ以外はpendingで開始する。
func StatusForRole(role string) MembershipStatus {
	if strings.ToLower(role) == RoleLeader {
		return MembershipAccepted
	}
	return MembershipPending
}

// SignUpOutcome はサインアップ処理の結果区分を表す。
// アカウント作成自体は成功している前提で、プレイヤー連携の到達度を区別する。
type SignUpOutcome string

const (
	// OutcomeCreated はプレイヤータグなしでアカウントのみ作成された。
	OutcomeCreated SignUpOutcome = "created"
	// OutcomeLeaderWelcome はクランリーダーとして連携された。
	OutcomeLeaderWelcome SignUpOutcome = "leader_welcome"
	// OutcomePendingApproval はクラン参加リクエストが承認待ちで作成された。
	OutcomePendingApproval SignUpOutcome = "pending_approval"
	// OutcomeNoClan はプレイヤーは確認できたがクランに所属していなかった。
	OutcomeNoClan SignUpOutcome = "no_clan"
	// OutcomeTagUnverified はプレイヤータグを上流で確認できず、
	// クランタグなしのプロフィールのみ保存された（部分的成功）。
	OutcomeTagUnverified SignUpOutcome = "tag_unverified"
	// OutcomeDegraded は連携処理中に予期しない失敗が発生した。
	// アカウントはロールバックせず、素のプロフィール保存のみ試行済み。
	OutcomeDegraded SignUpOutcome = "degraded"
)
