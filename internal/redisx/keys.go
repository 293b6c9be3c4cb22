package redisx

import "time"

const (
	// Rendered cart view per session: cart:{session_id}
	KeyCartView = "cart:%s"

	// Order read-model cache: order:{order_number}
	KeyOrderView = "order:%s"

	// Dedup for notification processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCartView  = 15 * time.Minute
	TTLOrderView = 5 * time.Minute
	TTLDedup     = 48 * time.Hour
)
