package tweet

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseCreatedAt(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable:", err)
	}
	cases := []struct {
		name string
		in   string
		ts   TimeSettings
		want time.Time
	}{
		{"stream layout aware", "Wed Oct 10 20:19:24 +0000 2018", TimeSettings{UseTZ: true, Location: time.UTC}, time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC)},
		// the offset is dropped and the wall clock anchored to the configured zone
		{"offset discarded", "Wed Oct 10 20:19:24 +0530 2018", TimeSettings{UseTZ: true, Location: ny}, time.Date(2018, 10, 10, 20, 19, 24, 0, ny)},
		{"naive", "Wed Oct 10 20:19:24 -0700 2018", TimeSettings{UseTZ: false, Location: ny}, time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC)},
		{"rfc1123z", "Wed, 10 Oct 2018 20:19:24 +0000", TimeSettings{}, time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC)},
		{"single digit day", "Tue, 2 Oct 2018 01:02:03 +0000", TimeSettings{}, time.Date(2018, 10, 2, 1, 2, 3, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCreatedAt(tc.in, tc.ts)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tc.want) || got.Location().String() != tc.want.Location().String() {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseCreatedAtRejects(t *testing.T) {
	for _, in := range []string{"", "   ", "2018-13-45", "Wed Oct 32 20:19:24 +0000 2018"} {
		if _, err := ParseCreatedAt(in, TimeSettings{}); !errors.Is(err, ErrParse) {
			t.Fatalf("%q: expected parse error, got %v", in, err)
		}
	}
}

func validRecord() Record {
	return Record{
		TweetID:        1,
		Text:           "hi",
		UserID:         2,
		UserScreenName: "a",
		UserName:       "A",
		CreatedAt:      time.Date(2018, 10, 10, 20, 19, 24, 0, time.UTC),
	}
}

func TestValidate(t *testing.T) {
	ok := validRecord()
	if err := ok.Validate(); err != nil {
		t.Fatal(err)
	}
	// 250 multi-byte characters fit
	ok.Text = strings.Repeat("é", MaxTextLen)
	if err := ok.Validate(); err != nil {
		t.Fatalf("250 runes should fit: %v", err)
	}

	bad := validRecord()
	bad.Text = strings.Repeat("x", MaxTextLen+1)
	level := "high"
	bad.FilterLevel = &level
	neg := int64(-1)
	bad.RetweetCount = &neg
	err := bad.Validate()
	if !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected invalid record, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Problems) != 3 {
		t.Fatalf("expected three problems, got %v", err)
	}
}

func TestIsRetweet(t *testing.T) {
	r := validRecord()
	if r.IsRetweet() {
		t.Fatal("no retweeted status")
	}
	id := int64(555)
	r.RetweetedStatusID = &id
	if !r.IsRetweet() {
		t.Fatal("expected retweet")
	}
	if r.Base() != &r {
		t.Fatal("Base must return the receiver")
	}
}

func TestIDTime(t *testing.T) {
	got, ok := IDTime(1050118621198921728)
	if !ok {
		t.Fatal("expected snowflake id")
	}
	want := time.Date(2018, 10, 10, 20, 19, 24, 211e6, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if _, ok := IDTime(42); ok {
		t.Fatal("pre-snowflake id should not decode")
	}
	if _, ok := IDTime(-1); ok {
		t.Fatal("negative id should not decode")
	}
}
