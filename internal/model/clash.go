package model

import "encoding/json"

// PlayerRecord は上流APIのプレイヤー応答から抽出した要約。
// フィールド構成はプロキシ関数のレスポンス形式そのもの。
// クランレスのプレイヤーではClanTag/ClanName/ClanRoleが空になる。
type PlayerRecord struct {
	Name          string `json:"name"`
	PlayerTag     string `json:"playerTag"`
	TownHallLevel int    `json:"townHallLevel"`
	Trophies      int    `json:"trophies"`
	ClanTag       string `json:"clanTag"`
	ClanName      string `json:"clanName"`
	ClanRole      string `json:"clanRole"`
}

// MarshalJSON はクランレスのプレイヤーでclanTag/clanName/clanRoleを
// 空文字列ではなくnullとして出力する。
func (r PlayerRecord) MarshalJSON() ([]byte, error) {
	type wire struct {
		Name          string  `json:"name"`
		PlayerTag     string  `json:"playerTag"`
		TownHallLevel int     `json:"townHallLevel"`
		Trophies      int     `json:"trophies"`
		ClanTag       *string `json:"clanTag"`
		ClanName      *string `json:"clanName"`
		ClanRole      *string `json:"clanRole"`
	}

	w := wire{
		Name:          r.Name,
		PlayerTag:     r.PlayerTag,
		TownHallLevel: r.TownHallLevel,
		Trophies:      r.Trophies,
	}
	if r.ClanTag != "" {
		w.ClanTag = &r.ClanTag
	}
	if r.ClanName != "" {
		w.ClanName = &r.ClanName
	}
	if r.ClanRole != "" {
		w.ClanRole = &r.ClanRole
	}
	return json.Marshal(w)
}

// ClanMember はクラン応答のメンバー1件を表す。
type ClanMember struct {
	Tag               string `json:"tag"`
	Name              string `json:"name"`
	Role              string `json:"role"`
	ExpLevel          int    `json:"expLevel"`
	Trophies          int    `json:"trophies"`
	Donations         int    `json:"donations"`
	DonationsReceived int    `json:"donationsReceived"`
}

// ClanRecord は上流APIのクラン応答を表す。
// プロキシ関数は生のJSONをそのまま中継するため、
// この構造体は統計サービス側のデコードにのみ使用する。
type ClanRecord struct {
	Tag           string       `json:"tag"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	ClanLevel     int          `json:"clanLevel"`
	ClanPoints    int          `json:"clanPoints"`
	WarWins       int          `json:"warWins"`
	WarLosses     int          `json:"warLosses"`
	WarTies       int          `json:"warTies"`
	WarWinStreak  int          `json:"warWinStreak"`
	CapitalPoints int          `json:"clanCapitalPoints"`
	Members       int          `json:"members"`
	MemberList    []ClanMember `json:"memberList"`
}

// WarClanSide はウォーログ1件における片側クランの成績。
type WarClanSide struct {
	Tag                   string  `json:"tag"`
	Name                  string  `json:"name"`
	Stars                 int     `json:"stars"`
	DestructionPercentage float64 `json:"destructionPercentage"`
}

// WarLogEntry はウォーログの1戦を表す。Resultはwin/lose/tieのいずれか。
type WarLogEntry struct {
	Result   string      `json:"result"`
	EndTime  string      `json:"endTime"`
	TeamSize int         `json:"teamSize"`
	Clan     WarClanSide `json:"clan"`
	Opponent WarClanSide `json:"opponent"`
}

// WarLog は上流APIのウォーログ応答を表す。
type WarLog struct {
	Items []WarLogEntry `json:"items"`
}
