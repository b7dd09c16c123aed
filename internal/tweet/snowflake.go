package tweet

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// firstSnowflake is the earliest instant status ids encode; ids from before
// the switch decode to the epoch itself.
var firstSnowflake = time.Date(2010, time.November, 4, 22, 0, 0, 0, time.UTC)

// IDTime returns the creation instant encoded in a status id. The default
// snowflake layout (41 bit ms, 10 bit node, 12 bit step, epoch
// 1288834974657) is the one status ids use.
func IDTime(id int64) (time.Time, bool) {
	if id <= 0 {
		return time.Time{}, false
	}
	ms := snowflake.ParseInt64(id).Time()
	t := time.UnixMilli(ms).UTC()
	if t.Before(firstSnowflake) {
		return time.Time{}, false
	}
	return t, true
}
