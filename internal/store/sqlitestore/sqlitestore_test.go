package sqlitestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"tweetarchive/internal/tweet"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", "", tweet.TimeSettings{UseTZ: true, Location: time.UTC})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	return db
}

func record(id int64, at time.Time) tweet.Record {
	return tweet.Record{
		TweetID:        id,
		Text:           "hi",
		UserID:         7,
		UserScreenName: "a",
		UserName:       "A",
		CreatedAt:      at,
	}
}

func TestEmptyStoreBounds(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	earliest, err := db.EarliestCreatedAt(ctx)
	if err != nil || earliest != nil {
		t.Fatalf("expected nil earliest, got %v err=%v", earliest, err)
	}
	latest, err := db.LatestCreatedAt(ctx)
	if err != nil || latest != nil {
		t.Fatalf("expected nil latest, got %v err=%v", latest, err)
	}
	n, err := db.CountApprox(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected 0, got %d err=%v", n, err)
	}
}

func TestRangeIsHalfOpen(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	t0 := time.Date(2018, 10, 10, 20, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	for i, at := range []time.Time{t0.Add(-time.Second), t0, t0.Add(30 * time.Minute), t1} {
		if err := db.Save(ctx, record(int64(i+1), at), nil); err != nil {
			t.Fatal(err)
		}
	}
	got, err := db.CreatedInRange(ctx, t0, t1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	for _, r := range got {
		if r.CreatedAt.Equal(t1) {
			t.Fatal("upper bound must be exclusive")
		}
	}
	if !got[0].CreatedAt.Equal(t0) && !got[1].CreatedAt.Equal(t0) {
		t.Fatal("lower bound must be inclusive")
	}

	earliest, _ := db.EarliestCreatedAt(ctx)
	latest, _ := db.LatestCreatedAt(ctx)
	if earliest == nil || !earliest.Equal(t0.Add(-time.Second)) {
		t.Fatalf("earliest: %v", earliest)
	}
	if latest == nil || !latest.Equal(t1) {
		t.Fatalf("latest: %v", latest)
	}
	n, err := db.CountApprox(ctx)
	if err != nil || n != 4 {
		t.Fatalf("count: %d err=%v", n, err)
	}
}

func TestSaveRoundTripsNullables(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	at := time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC)
	rec := record(42, at)
	lang, level := "en", tweet.FilterMedium
	offset := -3600
	fav, rts := int64(0), int64(5)
	rec.Lang, rec.FilterLevel, rec.UserUTCOffset = &lang, &level, &offset
	rec.FavoriteCount, rec.RetweetedStatusID = &fav, &rts
	rec.Truncated, rec.UserVerified = true, true
	if err := db.Save(ctx, rec, nil); err != nil {
		t.Fatal(err)
	}
	got, err := db.CreatedInRange(ctx, at, at.Add(time.Second))
	if err != nil || len(got) != 1 {
		t.Fatalf("expected one record, got %d err=%v", len(got), err)
	}
	r := got[0]
	if r.ID == 0 || r.TweetID != 42 || !r.Truncated || !r.UserVerified {
		t.Fatalf("basics: %+v", r)
	}
	if r.Lang == nil || *r.Lang != "en" || r.FilterLevel == nil || *r.FilterLevel != level {
		t.Fatalf("strings: %+v", r)
	}
	if r.UserUTCOffset == nil || *r.UserUTCOffset != -3600 {
		t.Fatalf("offset: %v", r.UserUTCOffset)
	}
	if r.FavoriteCount == nil || *r.FavoriteCount != 0 || r.RetweetCount != nil {
		t.Fatalf("counts: %v %v", r.FavoriteCount, r.RetweetCount)
	}
	if !r.IsRetweet() || r.UserTimeZone != nil || r.InReplyToStatusID != nil {
		t.Fatalf("relations: %+v", r)
	}
}

func TestSaveRejectsInvalidRecord(t *testing.T) {
	db := openTest(t)
	rec := record(1, time.Now().UTC())
	neg := int64(-1)
	rec.UserFriendsCount = &neg
	if err := db.Save(context.Background(), rec, nil); !errors.Is(err, tweet.ErrInvalidRecord) {
		t.Fatalf("expected invalid record, got %v", err)
	}
}

func TestOpenRejectsBadTableName(t *testing.T) {
	if _, err := Open(":memory:", "tweets; DROP TABLE x", tweet.TimeSettings{}); err == nil {
		t.Fatal("expected error for bad table name")
	}
}

func TestTimestampsUseConfiguredZone(t *testing.T) {
	loc := time.FixedZone("X", 2*3600)
	db, err := Open(":memory:", "zoned", tweet.TimeSettings{UseTZ: true, Location: loc})
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2020, 1, 1, 12, 0, 0, 0, loc)
	if err := db.Save(ctx, record(1, at), nil); err != nil {
		t.Fatal(err)
	}
	latest, err := db.LatestCreatedAt(ctx)
	if err != nil || latest == nil {
		t.Fatalf("latest: %v %v", latest, err)
	}
	if !latest.Equal(at) || latest.Location() != loc {
		t.Fatalf("got %v, want %v", latest, at)
	}
}

func TestRangeWithFractionalBounds(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()
	t1 := time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC)
	if err := db.Save(ctx, record(1, t1), nil); err != nil {
		t.Fatal(err)
	}
	half := 500 * time.Millisecond
	cases := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"end just after", t1.Add(-time.Hour), t1.Add(half), 1},
		{"start just after", t1.Add(half), t1.Add(time.Hour), 0},
		{"start just before", t1.Add(-half), t1.Add(time.Hour), 1},
		{"end just before", t1.Add(-time.Hour), t1.Add(-half), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := db.CreatedInRange(ctx, tc.start, tc.end)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != tc.want {
				t.Fatalf("got %d records, want %d", len(got), tc.want)
			}
		})
	}
}
