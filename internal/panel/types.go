package panel

import "encoding/json"

// ClientInfo is one provisioned proxy identity together with everything a
// client app needs to connect. It is embedded into config tokens, so every
// field must be self-contained (no panel lookup at delivery time).
type ClientInfo struct {
	UUID          string `json:"uuid"`
	Email         string `json:"email"`
	InboundID     int    `json:"inboundId"`
	ServerAddress string `json:"serverAddress"`
	Port          int    `json:"port"`
	PublicKey     string `json:"publicKey"`
	ShortID       string `json:"shortId"`
	ServerName    string `json:"serverName"`
}

// ClientStatus extends ClientInfo with the panel-side state needed by the
// trial flow.
type ClientStatus struct {
	ClientInfo
	ExpiryTime int64 // unix ms, 0 = unlimited
	Enable     bool
}

// TrafficStats is the per-client counter set reported by the panel.
type TrafficStats struct {
	UUID       string
	Email      string
	Up         int64
	Down       int64
	Total      int64
	ExpiryTime int64 // unix ms
}

// Inbound mirrors /panel/api/inbounds/get/:id. Settings, StreamSettings and
// Sniffing arrive as embedded JSON strings and must be re-parsed.
type Inbound struct {
	ID             int           `json:"id"`
	Up             int64         `json:"up"`
	Down           int64         `json:"down"`
	Total          int64         `json:"total"`
	Remark         string        `json:"remark"`
	Enable         bool          `json:"enable"`
	ExpiryTime     int64         `json:"expiryTime"`
	ClientStats    []clientStat  `json:"clientStats"`
	Listen         string        `json:"listen"`
	Port           int           `json:"port"`
	Protocol       string        `json:"protocol"`
	Settings       string        `json:"settings"`
	StreamSettings string        `json:"streamSettings"`
	Sniffing       string        `json:"sniffing"`
}

type clientStat struct {
	Email string `json:"email"`
	Up    int64  `json:"up"`
	Down  int64  `json:"down"`
	Total int64  `json:"total"`
}

// inboundSettings is the parsed form of Inbound.Settings.
type inboundSettings struct {
	Clients    []inboundClient `json:"clients"`
	Decryption string          `json:"decryption,omitempty"`
}

// inboundClient is one entry of the settings blob. The field set follows the
// 3x-ui schema; unknown fields are preserved only through full re-marshal of
// this struct, so it must stay complete.
type inboundClient struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Flow       string `json:"flow,omitempty"`
	LimitIP    int    `json:"limitIp"`
	TotalGB    int64  `json:"totalGB"`
	ExpiryTime int64  `json:"expiryTime"`
	Enable     bool   `json:"enable"`
	TgID       string `json:"tgId"`
	SubID      string `json:"subId"`
}

// streamSettings carries only the Reality block we care about.
type streamSettings struct {
	RealitySettings *realitySettings `json:"realitySettings"`
}

type realitySettings struct {
	ServerName string `json:"serverName"`
	PublicKey  string `json:"publicKey"`
	ShortID    string `json:"shortId"`

	// 3x-ui also exposes serverNames/shortIds arrays; the first entry wins
	// when the scalar fields are empty.
	ServerNames []string `json:"serverNames"`
	ShortIDs    []string `json:"shortIds"`

	Settings struct {
		PublicKey string `json:"publicKey"`
	} `json:"settings"`
}

// apiResponse is the common panel envelope {success, msg, obj}.
type apiResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Obj     json.RawMessage `json:"obj"`
}
