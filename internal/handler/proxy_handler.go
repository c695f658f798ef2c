package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/IkonicR/clanova-manager/internal/clash"
	"github.com/IkonicR/clanova-manager/internal/metrics"
	"github.com/IkonicR/clanova-manager/internal/model"
)

// ProxyClientInterface はプロキシハンドラーが必要とする上流クライアントインターフェース。
type ProxyClientInterface interface {
	FetchPlayer(ctx context.Context, tag string) (*model.PlayerRecord, error)
	FetchClanRaw(ctx context.Context, tag string) ([]byte, error)
}

// ProxyHandler はブラウザクライアント向けの上流ゲームAPIプロキシ関数。
// エラー文字列はワイヤー互換のため英語固定。
type ProxyHandler struct {
	client    ProxyClientInterface
	collector metrics.MetricsCollector
	logger    *slog.Logger
}

// NewProxyHandler はProxyHandlerを生成する。collectorはnil可。
func NewProxyHandler(client ProxyClientInterface, collector metrics.MetricsCollector, logger *slog.Logger) *ProxyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyHandler{
		client:    client,
		collector: collector,
		logger:    logger,
	}
}

type playerDataRequest struct {
	PlayerTag string `json:"playerTag"`
}

type clanDataRequest struct {
	ClanTag string `json:"clanTag"`
}

// GetPlayerData はプレイヤー情報の要約を返すプロキシ関数。
// POST /functions/getplayerdata {"playerTag": "..."}
func (h *ProxyHandler) GetPlayerData(w http.ResponseWriter, r *http.Request) {
	var req playerDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerTag == "" {
		h.writeProxyJSON(w, "getplayerdata", http.StatusBadRequest, map[string]interface{}{
			"error": "Player tag is required",
		})
		return
	}

	start := time.Now()
	record, err := h.client.FetchPlayer(r.Context(), clash.NormalizeTag(req.PlayerTag))
	h.observeUpstream(start, err)
	if err != nil {
		h.writeProxyError(w, "getplayerdata", "Unable to fetch player data", err)
		return
	}

	h.writeProxyJSON(w, "getplayerdata", http.StatusOK, record)
}

// GetClanData はクラン情報を上流の生JSONのまま中継するプロキシ関数。
// POST /functions/getclashclandata {"clanTag": "..."}
func (h *ProxyHandler) GetClanData(w http.ResponseWriter, r *http.Request) {
	var req clanDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClanTag == "" {
		h.writeProxyJSON(w, "getclashclandata", http.StatusBadRequest, map[string]interface{}{
			"error": "Clan tag is required",
		})
		return
	}

	start := time.Now()
	body, err := h.client.FetchClanRaw(r.Context(), clash.NormalizeTag(req.ClanTag))
	h.observeUpstream(start, err)
	if err != nil {
		h.writeProxyError(w, "getclashclandata", "Failed to fetch clan data", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
	h.record("getclashclandata", http.StatusOK)
}

// Preflight はOPTIONSプリフライトに応答する。
// CORSヘッダーはミドルウェア側で付与済みのため、ここでは204の空ボディのみ返す。
func (h *ProxyHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// writeProxyError は上流・設定・予期しない失敗を区別してレスポンスを書き込む。
// 上流の非2xxはステータスとボディをそのまま中継する。
func (h *ProxyHandler) writeProxyError(w http.ResponseWriter, function, upstreamMessage string, err error) {
	var upstreamErr *model.UpstreamError
	if errors.As(err, &upstreamErr) {
		h.writeProxyJSON(w, function, upstreamErr.StatusCode, map[string]interface{}{
			"error":   upstreamMessage,
			"details": upstreamErr.Details,
			"status":  upstreamErr.StatusCode,
		})
		return
	}

	if errors.Is(err, clash.ErrTokenNotConfigured) {
		h.logger.Error("proxy function called without API token", slog.String("function", function))
		h.writeProxyJSON(w, function, http.StatusInternalServerError, map[string]interface{}{
			"error": "API key not configured",
		})
		return
	}

	h.logger.Error("proxy function failed",
		slog.String("function", function),
		slog.String("error", err.Error()),
	)
	h.writeProxyJSON(w, function, http.StatusInternalServerError, map[string]interface{}{
		"error":   "Internal server error",
		"details": err.Error(),
	})
}

func (h *ProxyHandler) writeProxyJSON(w http.ResponseWriter, function string, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
	h.record(function, status)
}

// observeUpstream は上流呼び出しのレイテンシと結果ステータスを記録する。
// トランスポートエラーはステータス0として数える。
func (h *ProxyHandler) observeUpstream(start time.Time, err error) {
	if h.collector == nil {
		return
	}
	h.collector.RecordUpstreamLatency(time.Since(start))

	status := http.StatusOK
	var upstreamErr *model.UpstreamError
	if errors.As(err, &upstreamErr) {
		status = upstreamErr.StatusCode
	} else if err != nil {
		status = 0
	}
	h.collector.RecordUpstreamRequest(status)
}

func (h *ProxyHandler) record(function string, status int) {
	if h.collector != nil {
		h.collector.RecordProxyRequest(function, status)
	}
}
