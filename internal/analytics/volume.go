// Package analytics aggregates stored records for reporting.
package analytics

import (
	"sort"
	"time"

	"tweetarchive/internal/tweet"
)

// Bucket counts the records created within one hour.
type Bucket struct {
	Hour     time.Time `json:"hour"`
	Tweets   int       `json:"tweets"`
	Retweets int       `json:"retweets"`
}

// HourlyVolume groups records by the hour of created_at in loc, oldest
// first. Hours with no records are omitted.
func HourlyVolume(recs []tweet.Record, loc *time.Location) []Bucket {
	if loc == nil {
		loc = time.UTC
	}
	buckets := make(map[time.Time]*Bucket)
	for _, r := range recs {
		t := r.CreatedAt.In(loc)
		key := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
		b, ok := buckets[key]
		if !ok {
			b = &Bucket{Hour: key}
			buckets[key] = b
		}
		b.Tweets++
		if r.IsRetweet() {
			b.Retweets++
		}
	}
	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour) })
	return out
}
