package bluetooth

import "time"

// SetAdvertiseTimeout shortens the advertise wait for tests.
func SetAdvertiseTimeout(c *LE, d time.Duration) { c.advertiseTimeout = d }
