package models

// HistoryRequest queries the persisted tick log over a time window.
type HistoryRequest struct {
	From  string `query:"from" validate:"required"`
	To    string `query:"to"`
	Limit int    `query:"limit" default:"500" validate:"gte=1,lte=5000"`
}
