package quorum

import "time"

// NowFunc is the clock used when creating records, swappable in tests.
var NowFunc func() time.Time = time.Now
