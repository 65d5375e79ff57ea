package auth

import "time"

// timeNow is swapped in tests to pin the clock.
var timeNow = time.Now
