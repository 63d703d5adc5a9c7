package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// User is returned by Users.
type User struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	// Username is unique across the platform and is the last part of the channel URL.
	Username string `json:"username"`
	// Nickname is the display name shown in chat.
	Nickname string `json:"nickname"`
}

// AudienceType is the audience rating of a channel.
type AudienceType string

const (
	AudienceFamilyFriendly AudienceType = "CHANNEL_AUDIENCE_TYPE_FAMILYFRIENDLY"
	AudienceTeen           AudienceType = "CHANNEL_AUDIENCE_TYPE_TEEN"
	AudienceEighteenPlus   AudienceType = "CHANNEL_AUDIENCE_TYPE_EIGHTEENPLUS"
)

// SocialLink is a social media account of a streamer.
type SocialLink struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// ChannelInfo is returned by ChannelByID.
type ChannelInfo struct {
	IsLive       bool         `json:"is_live"`
	CategoryID   string       `json:"category_id"`
	CategoryName string       `json:"category_name"`
	LiveTitle    string       `json:"live_title"`
	AudiType     AudienceType `json:"audi_type"`
	// LanguageCode is an ISO 639-1 code.
	LanguageCode string `json:"language_code"`
	// Thumbnail is empty once the thumbnail of the previous stream expired.
	Thumbnail      string       `json:"thumbnail"`
	CurrentViewers uint64       `json:"current_viewers"`
	Followers      uint64       `json:"followers"`
	StreamerInfo   string       `json:"streamer_info"`
	ProfilePic     string       `json:"profile_pic"`
	ChannelURL     string       `json:"channel_url"`
	CreatedAt      Timestamp    `json:"created_at"`
	SubscriberNum  uint64       `json:"subscriber_num"`
	Username       string       `json:"username"`
	SocialLinks    []SocialLink `json:"social_links"`
	StartedAt      Timestamp    `json:"started_at"`
	EndedAt        Timestamp    `json:"ended_at"`
}

// Timestamp is a unix time in seconds sent either as a number or as a string.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		ts.Time = time.Time{}
		return nil
	}

	secs, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q: %w", data, err)
	}
	whole := int64(secs)
	ts.Time = time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.IsZero() {
		return []byte("0"), nil
	}
	return json.Marshal(ts.Unix())
}

type getUsersPayload struct {
	User []string `json:"user"`
}

type getUsersResponse struct {
	Users []User `json:"users"`
}

type getChannelByIDPayload struct {
	ChannelID string `json:"channel_id"`
}

type sendChatMessagePayload struct {
	Content   string `json:"content"`
	ChannelID string `json:"channel_id,omitempty"`
}
