package capture

import (
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm/schema"

	"tweetarchive/internal/tweet"
)

func TestAnnotateKeepsRawMessage(t *testing.T) {
	src, err := tweet.DecodeMessage([]byte(`{"id": 1050118621198921728, "text": "hi"}`))
	if err != nil {
		t.Fatal(err)
	}
	var tw Tweet
	before := time.Now().UTC().Add(-time.Second)
	if err := tw.Annotate(src); err != nil {
		t.Fatal(err)
	}
	if tw.Host == "" || tw.ReceivedAt.Before(before) {
		t.Fatalf("capture columns not set: %+v", tw)
	}
	if !strings.Contains(string(tw.Raw), "1050118621198921728") {
		t.Fatalf("raw should keep the exact id: %s", tw.Raw)
	}
}

func TestAnnotateNilSource(t *testing.T) {
	var tw Tweet
	if err := tw.Annotate(nil); err != nil {
		t.Fatal(err)
	}
	if tw.Raw != nil {
		t.Fatalf("expected empty raw, got %s", tw.Raw)
	}
}

func TestEmbeddingOverridesTableAndPromotesBase(t *testing.T) {
	var tw Tweet
	if tw.TableName() != "captured_tweets" || (tweet.Record{}).TableName() != "tweets" {
		t.Fatal("table names")
	}
	tw.Base().TweetID = 9
	if tw.TweetID != 9 {
		t.Fatal("Base must point at the embedded record")
	}
}

func TestUserCreatedIndex(t *testing.T) {
	models := Tweet{}.Indexes()
	m, ok := models[UserCreatedIndex]
	if !ok {
		t.Fatalf("missing %s: %v", UserCreatedIndex, models)
	}
	s, err := schema.Parse(m, &sync.Map{}, schema.NamingStrategy{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Table != "captured_tweets" {
		t.Fatalf("index on table %q", s.Table)
	}
	idx := s.LookIndex(UserCreatedIndex)
	if idx == nil || len(idx.Fields) != 2 {
		t.Fatalf("unexpected index: %+v", idx)
	}
	if idx.Fields[0].DBName != "user_id" || idx.Fields[1].DBName != "created_at" {
		t.Fatalf("column order: %s, %s", idx.Fields[0].DBName, idx.Fields[1].DBName)
	}
}
