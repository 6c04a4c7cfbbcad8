package dto

import "time"

// CoinbaseTicker is the /products/{id}/ticker payload. Numeric fields arrive as strings.
type CoinbaseTicker struct {
	TradeID int64     `json:"trade_id"`
	Price   string    `json:"price"`
	Size    string    `json:"size"`
	Bid     string    `json:"bid"`
	Ask     string    `json:"ask"`
	Volume  string    `json:"volume"`
	Time    time.Time `json:"time"`
}
