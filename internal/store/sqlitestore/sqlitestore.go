// Package sqlitestore keeps tweets in an embedded SQLite file.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "modernc.org/sqlite"

	"tweetarchive/internal/metrics"
	"tweetarchive/internal/store"
	"tweetarchive/internal/tweet"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const columns = `tweet_id, text, truncated, lang, user_id, user_screen_name, user_name, user_verified,
	created_at, user_utc_offset, user_time_zone, filter_level,
	favorite_count, retweet_count, user_followers_count, user_friends_count,
	in_reply_to_status_id, retweeted_status_id`

// DB is a SQLite-backed store. created_at is kept as unix seconds.
type DB struct {
	sql   *sql.DB
	table string
	loc   *time.Location
}

var _ store.Store = (*DB)(nil)

// Open opens (or creates) the database at path. ts decides the location
// timestamps are returned in.
func Open(path, table string, ts tweet.TimeSettings) (*DB, error) {
	if table == "" {
		table = tweet.Record{}.TableName()
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		d.SetMaxOpenConns(1)
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	loc := time.UTC
	if ts.UseTZ && ts.Location != nil {
		loc = ts.Location
	}
	return &DB{sql: d, table: table, loc: loc}, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.sql.ExecContext(ctx, fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  tweet_id INTEGER NOT NULL,
	  text VARCHAR(250) NOT NULL,
	  truncated BOOLEAN NOT NULL DEFAULT 0,
	  lang VARCHAR(9),
	  user_id INTEGER NOT NULL,
	  user_screen_name VARCHAR(50) NOT NULL,
	  user_name VARCHAR(150) NOT NULL,
	  user_verified BOOLEAN NOT NULL DEFAULT 0,
	  created_at INTEGER NOT NULL,
	  user_utc_offset INTEGER,
	  user_time_zone VARCHAR(150),
	  filter_level VARCHAR(6),
	  favorite_count INTEGER CHECK (favorite_count >= 0),
	  retweet_count INTEGER CHECK (retweet_count >= 0),
	  user_followers_count INTEGER CHECK (user_followers_count >= 0),
	  user_friends_count INTEGER CHECK (user_friends_count >= 0),
	  in_reply_to_status_id INTEGER,
	  retweeted_status_id INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s(created_at);
	`, d.table))
	if err != nil {
		return fmt.Errorf("migrate %s: %w", d.table, err)
	}
	return nil
}

// Save inserts rec. src is unused; this backend has no extra columns.
func (d *DB) Save(ctx context.Context, rec tweet.Record, src tweet.Message) (err error) {
	defer func(start time.Time) { metrics.ObserveStore("save", start, err) }(time.Now())
	if err := rec.Validate(); err != nil {
		return err
	}
	q := fmt.Sprintf(`INSERT INTO %s(%s) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, d.table, columns)
	_, err = d.sql.ExecContext(ctx, q,
		rec.TweetID, rec.Text, rec.Truncated, rec.Lang,
		rec.UserID, rec.UserScreenName, rec.UserName, rec.UserVerified,
		rec.CreatedAt.Unix(), rec.UserUTCOffset, rec.UserTimeZone, rec.FilterLevel,
		rec.FavoriteCount, rec.RetweetCount, rec.UserFollowersCount, rec.UserFriendsCount,
		rec.InReplyToStatusID, rec.RetweetedStatusID)
	if err != nil {
		return fmt.Errorf("insert tweet %d: %w", rec.TweetID, err)
	}
	return nil
}

// CreatedInRange returns records in [start, end).
func (d *DB) CreatedInRange(ctx context.Context, start, end time.Time) (out []tweet.Record, err error) {
	defer func(t0 time.Time) { metrics.ObserveStore("range", t0, err) }(time.Now())
	q := fmt.Sprintf(`SELECT id, %s FROM %s WHERE created_at>=? AND created_at<?`, columns, d.table)
	rows, err := d.sql.QueryContext(ctx, q, ceilUnix(start), ceilUnix(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := d.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ceilUnix rounds t up to whole seconds. Stored values are whole seconds,
// so x >= t and x < t hold exactly when they hold against the ceiling.
func ceilUnix(t time.Time) int64 {
	if t.Nanosecond() > 0 {
		return t.Unix() + 1
	}
	return t.Unix()
}

func (d *DB) EarliestCreatedAt(ctx context.Context) (*time.Time, error) {
	return d.bound(ctx, "MIN")
}

func (d *DB) LatestCreatedAt(ctx context.Context) (*time.Time, error) {
	return d.bound(ctx, "MAX")
}

func (d *DB) bound(ctx context.Context, agg string) (_ *time.Time, err error) {
	defer func(start time.Time) { metrics.ObserveStore("bound", start, err) }(time.Now())
	var ts sql.NullInt64
	row := d.sql.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s(created_at) FROM %s`, agg, d.table))
	if err := row.Scan(&ts); err != nil {
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}
	t := time.Unix(ts.Int64, 0).In(d.loc)
	return &t, nil
}

// CountApprox always counts exactly; SQLite keeps no row estimate.
func (d *DB) CountApprox(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { metrics.ObserveStore("count", start, err) }(time.Now())
	err = d.sql.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, d.table)).Scan(&n)
	return n, err
}

func (d *DB) scan(rows *sql.Rows) (tweet.Record, error) {
	var (
		rec                         tweet.Record
		createdAt                   int64
		lang, tz, level             sql.NullString
		offset                      sql.NullInt64
		fav, rt, followers, friends sql.NullInt64
		replyTo, retweeted          sql.NullInt64
	)
	err := rows.Scan(&rec.ID,
		&rec.TweetID, &rec.Text, &rec.Truncated, &lang,
		&rec.UserID, &rec.UserScreenName, &rec.UserName, &rec.UserVerified,
		&createdAt, &offset, &tz, &level,
		&fav, &rt, &followers, &friends,
		&replyTo, &retweeted)
	if err != nil {
		return tweet.Record{}, err
	}
	rec.CreatedAt = time.Unix(createdAt, 0).In(d.loc)
	rec.Lang = nullString(lang)
	rec.UserTimeZone = nullString(tz)
	rec.FilterLevel = nullString(level)
	if offset.Valid {
		o := int(offset.Int64)
		rec.UserUTCOffset = &o
	}
	rec.FavoriteCount = nullInt(fav)
	rec.RetweetCount = nullInt(rt)
	rec.UserFollowersCount = nullInt(followers)
	rec.UserFriendsCount = nullInt(friends)
	rec.InReplyToStatusID = nullInt(replyTo)
	rec.RetweetedStatusID = nullInt(retweeted)
	return rec, nil
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
