package observerproto

import "driftline.space/internal/sim/activation"

// Version is the observer protocol version.
const Version = "0.1"

// Client -> Server. First message on the observer WS connection; re-send to
// change the rate.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// EveryN forwards one summary out of every N published.
	EveryN int `json:"every_n,omitempty"`
}

// HTTP response for GET /observer/v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string             `json:"protocol_version"`
	WorldID         string             `json:"world_id"`
	TickRateHz      int                `json:"tick_rate_hz"`
	DayTicks        int                `json:"day_ticks"`
	Sectors         []SectorInfo       `json:"sectors"`
	Latest          activation.Summary `json:"latest"`
}

type SectorInfo struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	LimitRadius float64 `json:"limit_radius"`
}

// Server -> Client.
type SummaryMsg struct {
	Type            string             `json:"type"`
	ProtocolVersion string             `json:"protocol_version"`
	Seq             uint64             `json:"seq"`
	Summary         activation.Summary `json:"summary"`
}
