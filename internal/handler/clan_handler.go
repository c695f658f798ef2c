package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/IkonicR/clanova-manager/internal/clanstats"
	"github.com/IkonicR/clanova-manager/internal/clash"
	"github.com/IkonicR/clanova-manager/internal/middleware"
	"github.com/IkonicR/clanova-manager/internal/model"
)

// ClanStatsInterface はクランハンドラーが必要とする統計サービスインターフェース。
type ClanStatsInterface interface {
	Overview(ctx context.Context, tag string) (*clanstats.ClanOverview, error)
	TopMembers(ctx context.Context, tag string, n int) ([]clanstats.MemberStats, error)
	SummarizeWars(ctx context.Context, tag string) (*clanstats.WarSummary, error)
}

// デフォルトで返すメンバー数の上限
const defaultTopMembers = 50

// ClanHandler はクラン統計のHTTPハンドラー。セッション認証下で提供する。
type ClanHandler struct {
	stats  ClanStatsInterface
	logger *slog.Logger
}

// NewClanHandler はClanHandlerを生成する。
func NewClanHandler(stats ClanStatsInterface, logger *slog.Logger) *ClanHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClanHandler{stats: stats, logger: logger}
}

// Overview はクラン概要を返す。
// GET /api/clans/{tag}
func (h *ClanHandler) Overview(w http.ResponseWriter, r *http.Request) {
	tag := clash.NormalizeTag(chi.URLParam(r, "tag"))
	if tag == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("tag"))
		return
	}

	overview, err := h.stats.Overview(r.Context(), tag)
	if err != nil {
		h.writeClanError(w, tag, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(overview)
}

// Members はトロフィー順のメンバー一覧を返す。
// GET /api/clans/{tag}/members
func (h *ClanHandler) Members(w http.ResponseWriter, r *http.Request) {
	tag := clash.NormalizeTag(chi.URLParam(r, "tag"))
	if tag == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("tag"))
		return
	}

	members, err := h.stats.TopMembers(r.Context(), tag, defaultTopMembers)
	if err != nil {
		h.writeClanError(w, tag, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"members": members})
}

// Wars はウォーログの集計を返す。
// GET /api/clans/{tag}/wars
func (h *ClanHandler) Wars(w http.ResponseWriter, r *http.Request) {
	tag := clash.NormalizeTag(chi.URLParam(r, "tag"))
	if tag == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewMissingFieldError("tag"))
		return
	}

	summary, err := h.stats.SummarizeWars(r.Context(), tag)
	if err != nil {
		h.writeClanError(w, tag, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// writeClanError は上流の404をCLAN_NOT_FOUNDに変換し、その他の上流エラーは
// ステータスをそのまま中継する。
func (h *ClanHandler) writeClanError(w http.ResponseWriter, tag string, err error) {
	var upstreamErr *model.UpstreamError
	if errors.As(err, &upstreamErr) {
		if upstreamErr.StatusCode == http.StatusNotFound {
			middleware.WriteErrorResponse(w, http.StatusNotFound, &model.APIError{
				Code:     model.ErrCodeClanNotFound,
				Message:  "クランが見つかりませんでした。",
				Category: "upstream",
				Action:   "クランタグを確認してください。",
			})
			return
		}
		middleware.WriteErrorResponse(w, upstreamErr.StatusCode, &model.APIError{
			Code:     "UPSTREAM_ERROR",
			Message:  "上流APIがエラーを返しました。",
			Category: "upstream",
			Action:   "しばらく待ってから再度お試しください。",
		})
		return
	}

	if errors.Is(err, clash.ErrTokenNotConfigured) {
		middleware.WriteErrorResponse(w, http.StatusInternalServerError, model.NewAPIKeyNotConfiguredError())
		return
	}

	h.logger.Error("clan stats request failed",
		slog.String("clan_tag", tag),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}
