package cart

import "time"

const cacheOpTimeout = time.Second

func nowUTC() time.Time { return time.Now().UTC() }
