package tweet

// Builder turns parsed status messages into records. It holds no state
// besides the time settings and is safe for concurrent use.
type Builder struct {
	ts TimeSettings
}

func NewBuilder(ts TimeSettings) *Builder {
	return &Builder{ts: ts}
}

// Build constructs a Record from a parsed status object. It fails with a
// MissingFieldError, InvalidFieldError or ParseError and never returns a
// partly filled record. Negative counts become nil.
func (b *Builder) Build(raw Message) (Record, error) {
	root := fieldReader{msg: raw}
	var rec Record

	user, err := root.requireObject("user")
	if err != nil {
		return Record{}, err
	}

	// Basic tweet info
	if rec.TweetID, err = root.requireInt64("id"); err != nil {
		return Record{}, err
	}
	if rec.Text, err = root.requireString("text"); err != nil {
		return Record{}, err
	}
	if rec.Truncated, err = root.requireBool("truncated"); err != nil {
		return Record{}, err
	}
	if rec.Lang, err = root.string("lang"); err != nil {
		return Record{}, err
	}

	// Basic user info
	if rec.UserID, err = user.requireInt64("id"); err != nil {
		return Record{}, err
	}
	if rec.UserScreenName, err = user.requireString("screen_name"); err != nil {
		return Record{}, err
	}
	if rec.UserName, err = user.requireString("name"); err != nil {
		return Record{}, err
	}
	if rec.UserVerified, err = user.requireBool("verified"); err != nil {
		return Record{}, err
	}

	// Timing
	createdAt, err := root.requireString("created_at")
	if err != nil {
		return Record{}, err
	}
	if rec.CreatedAt, err = ParseCreatedAt(createdAt, b.ts); err != nil {
		return Record{}, err
	}
	offset, err := user.int64("utc_offset")
	if err != nil {
		return Record{}, err
	}
	if offset != nil {
		o := int(*offset)
		rec.UserUTCOffset = &o
	}
	if rec.UserTimeZone, err = user.string("time_zone"); err != nil {
		return Record{}, err
	}

	if rec.FilterLevel, err = root.string("filter_level"); err != nil {
		return Record{}, err
	}

	// Engagement
	counts := []struct {
		from fieldReader
		key  string
		dst  **int64
	}{
		{root, "favorite_count", &rec.FavoriteCount},
		{root, "retweet_count", &rec.RetweetCount},
		{user, "followers_count", &rec.UserFollowersCount},
		{user, "friends_count", &rec.UserFriendsCount},
	}
	for _, c := range counts {
		n, err := c.from.int64(c.key)
		if err != nil {
			return Record{}, err
		}
		*c.dst = nonNegative(n)
	}

	// Relation to other tweets
	if rec.InReplyToStatusID, err = root.int64("in_reply_to_status_id"); err != nil {
		return Record{}, err
	}
	retweeted, ok, err := root.object("retweeted_status")
	if err != nil {
		return Record{}, err
	}
	if ok {
		id, err := retweeted.requireInt64("id")
		if err != nil {
			return Record{}, err
		}
		rec.RetweetedStatusID = &id
	}

	return rec, nil
}

// nonNegative maps negative counts, which the API uses for "unknown", to nil.
func nonNegative(n *int64) *int64 {
	if n == nil || *n < 0 {
		return nil
	}
	return n
}
