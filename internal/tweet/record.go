package tweet

import (
	"time"
	"unicode/utf8"
)

// Filter levels reported by the streaming API.
const (
	FilterNone   = "none"
	FilterLow    = "low"
	FilterMedium = "medium"
)

// Column limits of the tweets table.
const (
	MaxTextLen       = 250
	MaxLangLen       = 9
	MaxScreenNameLen = 50
	MaxUserNameLen   = 150
	MaxTimeZoneLen   = 150
)

// Record holds selected fields of a streamed status object, plus a few
// fields of the author taken from the nested user object.
//
// Record is the base schema. Deployments embed it in their own model to add
// a table name, indices or columns; see capture.Tweet.
type Record struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// Basic tweet info
	TweetID   int64   `gorm:"not null" json:"tweet_id"`
	Text      string  `gorm:"size:250;not null" json:"text"`
	Truncated bool    `gorm:"not null;default:false" json:"truncated"`
	Lang      *string `gorm:"size:9" json:"lang"`

	// Basic user info
	UserID         int64  `gorm:"not null" json:"user_id"`
	UserScreenName string `gorm:"size:50;not null" json:"user_screen_name"`
	UserName       string `gorm:"size:150;not null" json:"user_name"`
	UserVerified   bool   `gorm:"not null;default:false" json:"user_verified"`

	// Timing. CreatedAt is set by the builder, never by the ORM.
	CreatedAt     time.Time `gorm:"not null;index;autoCreateTime:false" json:"created_at"`
	UserUTCOffset *int      `gorm:"column:user_utc_offset" json:"user_utc_offset"`
	UserTimeZone  *string   `gorm:"size:150" json:"user_time_zone"`

	FilterLevel *string `gorm:"size:6" json:"filter_level"`

	// Engagement. Unknown counts are nil, never negative.
	FavoriteCount      *int64 `json:"favorite_count"`
	RetweetCount       *int64 `json:"retweet_count"`
	UserFollowersCount *int64 `json:"user_followers_count"`
	UserFriendsCount   *int64 `json:"user_friends_count"`

	// Relation to other tweets
	InReplyToStatusID *int64 `json:"in_reply_to_status_id"`
	RetweetedStatusID *int64 `json:"retweeted_status_id"`
}

// TableName is the table of the base schema. Embedding types override it.
func (Record) TableName() string { return "tweets" }

// Base returns the record itself. It is promoted to every model that embeds
// Record, which is how stores reach the shared columns of a deployment type.
func (r *Record) Base() *Record { return r }

// IsRetweet reports whether the record was built from a retweet.
func (r *Record) IsRetweet() bool { return r.RetweetedStatusID != nil }

// Validate checks the column constraints before a record is written.
func (r *Record) Validate() error {
	var problems []string
	if n := utf8.RuneCountInString(r.Text); n > MaxTextLen {
		problems = append(problems, tooLong("text", n, MaxTextLen))
	}
	if r.Lang != nil && utf8.RuneCountInString(*r.Lang) > MaxLangLen {
		problems = append(problems, tooLong("lang", utf8.RuneCountInString(*r.Lang), MaxLangLen))
	}
	if n := utf8.RuneCountInString(r.UserScreenName); n > MaxScreenNameLen {
		problems = append(problems, tooLong("user_screen_name", n, MaxScreenNameLen))
	}
	if n := utf8.RuneCountInString(r.UserName); n > MaxUserNameLen {
		problems = append(problems, tooLong("user_name", n, MaxUserNameLen))
	}
	if r.UserTimeZone != nil && utf8.RuneCountInString(*r.UserTimeZone) > MaxTimeZoneLen {
		problems = append(problems, tooLong("user_time_zone", utf8.RuneCountInString(*r.UserTimeZone), MaxTimeZoneLen))
	}
	if r.FilterLevel != nil && !validFilterLevel(*r.FilterLevel) {
		problems = append(problems, "filter_level: unknown value "+quote(*r.FilterLevel))
	}
	for _, c := range []struct {
		name string
		v    *int64
	}{
		{"favorite_count", r.FavoriteCount},
		{"retweet_count", r.RetweetCount},
		{"user_followers_count", r.UserFollowersCount},
		{"user_friends_count", r.UserFriendsCount},
	} {
		if c.v != nil && *c.v < 0 {
			problems = append(problems, c.name+": negative")
		}
	}
	if r.CreatedAt.IsZero() {
		problems = append(problems, "created_at: zero")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validFilterLevel(s string) bool {
	switch s {
	case FilterNone, FilterLow, FilterMedium:
		return true
	}
	return false
}
