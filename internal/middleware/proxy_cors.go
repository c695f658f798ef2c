package middleware

import "net/http"

// NewProxyCORSMiddleware はプロキシ関数エンドポイント用のCORSミドルウェアを返す。
// 任意オリジンのブラウザクライアントから呼び出せるようワイルドカードを許可し、
// credentialsは使用しない（NewCORSMiddlewareとは方針が異なる）。
// OPTIONSプリフライトリクエストには204の空ボディで応答する。
func NewProxyCORSMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
