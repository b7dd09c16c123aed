// Package capture declares the table the stream capture deployment writes.
package capture

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"gorm.io/datatypes"

	"tweetarchive/internal/tweet"
)

// Tweet extends the base record with capture bookkeeping and the original
// message, kept for re-processing.
type Tweet struct {
	tweet.Record

	Host       string         `gorm:"size:64;index" json:"host"`
	ReceivedAt time.Time      `gorm:"not null;index" json:"received_at"`
	Raw        datatypes.JSON `json:"raw,omitempty"`
}

func (Tweet) TableName() string { return "captured_tweets" }

// UserCreatedIndex serves per-user timelines.
const UserCreatedIndex = "idx_captured_tweets_user_created"

// userCreated maps the composite index onto captured_tweets. Its columns
// belong to the embedded record, whose tags are shared with the base table.
type userCreated struct {
	UserID    int64     `gorm:"index:idx_captured_tweets_user_created,priority:1"`
	CreatedAt time.Time `gorm:"index:idx_captured_tweets_user_created,priority:2"`
}

func (userCreated) TableName() string { return "captured_tweets" }

// Indexes lists the indices Migrate adds after the tag-declared ones.
func (Tweet) Indexes() map[string]any {
	return map[string]any{UserCreatedIndex: &userCreated{}}
}

var hostname = sync.OnceValue(func() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
})

// Annotate stamps the capture columns. A nil src leaves Raw empty.
func (t *Tweet) Annotate(src tweet.Message) error {
	t.Host = hostname()
	t.ReceivedAt = time.Now().UTC()
	if src == nil {
		return nil
	}
	b, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode raw message: %w", err)
	}
	t.Raw = datatypes.JSON(b)
	return nil
}
