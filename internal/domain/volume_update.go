package domain

import "time"

// VolumeUpdate carries the recent-sales metrics for one (size, consigned)
// group of the peer provider's second ingestion pass. It targets the current
// record for its identity regardless of capture minute and touches only the
// volume and last-sale fields.
type VolumeUpdate struct {
	Provider  Provider
	ProductID string
	Size      string
	Consigned bool

	Sales72h   int
	Sales30d   int
	LastSale   *float64 // major units
	LastSaleAt *time.Time
}
