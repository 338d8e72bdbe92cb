package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceTick is a single USD price observation for an asset
type PriceTick struct {
	ID        int64           `json:"id,omitempty"`
	AssetKey  string          `json:"asset_key"`
	Price     decimal.Decimal `json:"price"`
	SampledAt time.Time       `json:"sampled_at"`
}

// LivePrice is a current quote returned by the price oracle
type LivePrice struct {
	AssetKey       string          `json:"asset_key"`
	USDPrice       decimal.Decimal `json:"usd_price"`
	PriceChange24h decimal.Decimal `json:"price_change_24h"`
}

// PriceTickEvent is the Kafka envelope published by the price ingestion process
type PriceTickEvent struct {
	EventType string           `json:"event_type"`
	Source    string           `json:"source"`
	Timestamp string           `json:"timestamp"`
	Data      []PriceTickEntry `json:"data"`
}

// PriceTickEntry carries string-encoded values to avoid float rounding on the wire
type PriceTickEntry struct {
	AssetKey  string `json:"asset_key"`
	Price     string `json:"price"`
	SampledAt string `json:"sampled_at"`
}

// Price tick event types
const (
	EventTypePriceTicks = "PRICE_TICKS"
)
