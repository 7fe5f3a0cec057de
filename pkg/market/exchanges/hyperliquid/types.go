package hyperliquid

import (
	"encoding/json"
	"fmt"
)

// InfoRequest is the shared envelope for Hyperliquid info endpoint requests.
type InfoRequest struct {
	Type string      `json:"type"`
	Req  interface{} `json:"req,omitempty"`
}

// CandleSnapshotRequest carries parameters for the candleSnapshot request.
type CandleSnapshotRequest struct {
	Coin      string `json:"coin"`
	Interval  string `json:"interval"` // e.g. "1m", "4h"
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

// CandleResponse mirrors the payload returned from candleSnapshot requests.
type CandleResponse []struct {
	T      int64   `json:"t"`        // Open timestamp (ms)
	TClose int64   `json:"T"`        // Close timestamp (ms)
	S      string  `json:"s"`        // Symbol
	I      string  `json:"i"`        // Interval
	O      float64 `json:"o,string"` // Open price
	C      float64 `json:"c,string"` // Close price
	H      float64 `json:"h,string"` // High price
	L      float64 `json:"l,string"` // Low price
	V      float64 `json:"v,string"` // Volume
}

// MetaAndAssetCtxsResponse carries the perpetuals universe. Asset contexts are
// accepted on the wire but only the universe is used for symbol resolution.
type MetaAndAssetCtxsResponse struct {
	Universe []UniverseEntry
}

// UniverseEntry enumerates tradable assets on Hyperliquid.
type UniverseEntry struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"szDecimals"`
	IsDelisted bool   `json:"isDelisted"`
}

// UnmarshalJSON accepts both the documented [meta, ctxs] tuple and the single
// object form some gateways return.
func (m *MetaAndAssetCtxsResponse) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("unexpected metaAndAssetCtxs payload: empty array")
	}
	var meta struct {
		Universe []UniverseEntry `json:"universe"`
	}
	if err := json.Unmarshal(raw[0], &meta); err != nil {
		return err
	}
	m.Universe = meta.Universe
	return nil
}

// AllMidsResponse maps symbols to their current mid prices.
type AllMidsResponse map[string]string
