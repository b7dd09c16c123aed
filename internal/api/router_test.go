package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"tweetarchive/internal/store"
	"tweetarchive/internal/store/sqlitestore"
	"tweetarchive/internal/tweet"
)

func init() { gin.SetMode(gin.TestMode) }

func seeded(t *testing.T, at ...time.Time) *sqlitestore.DB {
	t.Helper()
	db, err := sqlitestore.Open(":memory:", "", tweet.TimeSettings{UseTZ: true, Location: time.UTC})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	for i, ts := range at {
		rec := tweet.Record{TweetID: int64(i + 1), Text: "hi", UserID: 7, UserScreenName: "a", UserName: "A", CreatedAt: ts}
		if err := db.Save(ctx, rec, nil); err != nil {
			t.Fatal(err)
		}
	}
	return db
}

func get(t *testing.T, h http.Handler, url string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v (%s)", url, err, rec.Body.String())
		}
	}
	return rec.Code
}

func TestBoundsOnEmptyStoreAreNull(t *testing.T) {
	h := NewRouter(seeded(t), store.CountExact, nil)
	var body map[string]any
	if code := get(t, h, "/tweets/bounds", &body); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if body["earliest_created_at"] != nil || body["latest_created_at"] != nil {
		t.Fatalf("expected nulls, got %v", body)
	}
}

func TestRangeAndCount(t *testing.T) {
	t0 := time.Date(2018, 10, 10, 20, 0, 0, 0, time.UTC)
	h := NewRouter(seeded(t, t0, t0.Add(time.Minute), t0.Add(time.Hour)), store.CountExact, nil)

	var rng struct {
		Tweets []tweet.Record `json:"tweets"`
		Count  int            `json:"count"`
	}
	if code := get(t, h, "/tweets?start=2018-10-10T20:00:00Z&end=2018-10-10T21:00:00Z", &rng); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if rng.Count != 2 || len(rng.Tweets) != 2 {
		t.Fatalf("expected 2 tweets, got %+v", rng)
	}

	var cnt struct {
		Count       int64 `json:"count"`
		Approximate bool  `json:"approximate"`
	}
	if code := get(t, h, "/tweets/count", &cnt); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if cnt.Count != 3 || cnt.Approximate {
		t.Fatalf("unexpected count: %+v", cnt)
	}
}

func TestHourly(t *testing.T) {
	t0 := time.Date(2018, 10, 10, 20, 5, 0, 0, time.UTC)
	h := NewRouter(seeded(t, t0, t0.Add(10*time.Minute), t0.Add(time.Hour)), store.CountExact, nil)
	var body struct {
		Buckets []struct {
			Hour   time.Time `json:"hour"`
			Tweets int       `json:"tweets"`
		} `json:"buckets"`
	}
	if code := get(t, h, "/tweets/hourly?start=2018-10-10T00:00:00Z&end=2018-10-11T00:00:00Z", &body); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(body.Buckets) != 2 || body.Buckets[0].Tweets != 2 || body.Buckets[1].Tweets != 1 {
		t.Fatalf("unexpected buckets: %+v", body.Buckets)
	}
}

func TestHourlyUsesConfiguredZone(t *testing.T) {
	t0 := time.Date(2018, 10, 10, 20, 5, 0, 0, time.UTC)
	zone := time.FixedZone("IST", 5*3600+1800)
	h := NewRouter(seeded(t, t0), store.CountExact, zone)
	var body struct {
		Buckets []struct {
			Hour time.Time `json:"hour"`
		} `json:"buckets"`
	}
	if code := get(t, h, "/tweets/hourly?start=2018-10-10T00:00:00Z&end=2018-10-11T00:00:00Z", &body); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	// 20:05 UTC is 01:35 IST, so the bucket starts at 01:00 IST, 19:30 UTC
	want := time.Date(2018, 10, 11, 1, 0, 0, 0, zone)
	if len(body.Buckets) != 1 || !body.Buckets[0].Hour.Equal(want) {
		t.Fatalf("got %+v, want bucket at %v", body.Buckets, want)
	}
}

func TestRangeRejectsBadParams(t *testing.T) {
	h := NewRouter(seeded(t), store.CountExact, nil)
	for _, url := range []string{
		"/tweets",
		"/tweets?start=yesterday&end=2018-10-10T21:00:00Z",
		"/tweets?start=2018-10-10T21:00:00Z&end=2018-10-10T20:00:00Z",
		"/tweets/hourly?start=2018-10-10T21:00:00Z",
	} {
		if code := get(t, h, url, nil); code != http.StatusBadRequest {
			t.Fatalf("%s: status %d", url, code)
		}
	}
}

type brokenReader struct{}

func (brokenReader) CreatedInRange(context.Context, time.Time, time.Time) ([]tweet.Record, error) {
	return nil, errors.New("db down")
}
func (brokenReader) EarliestCreatedAt(context.Context) (*time.Time, error) { return nil, errors.New("db down") }
func (brokenReader) LatestCreatedAt(context.Context) (*time.Time, error) { return nil, errors.New("db down") }
func (brokenReader) CountApprox(context.Context) (int64, error) { return 0, errors.New("db down") }

func TestStorageErrorsAre500(t *testing.T) {
	h := NewRouter(brokenReader{}, store.CountEstimated, nil)
	for _, url := range []string{"/tweets/bounds", "/tweets/count", "/tweets?start=2018-10-10T20:00:00Z&end=2018-10-10T21:00:00Z"} {
		var body map[string]any
		if code := get(t, h, url, &body); code != http.StatusInternalServerError || body["error"] != "db down" {
			t.Fatalf("%s: status %d body %v", url, code, body)
		}
	}
}

func TestHealth(t *testing.T) {
	h := NewRouter(brokenReader{}, store.CountExact, nil)
	if code := get(t, h, "/health", nil); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
}
