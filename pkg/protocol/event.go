package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ChatToken is the short-lived credential that authenticates a chat session.
type ChatToken struct {
	Token string `json:"token"`
}

// MessageKind is the numeric type of a chat event.
type MessageKind uint16

const (
	KindNormal            MessageKind = 0
	KindSpell             MessageKind = 5
	KindMagicSuperCap     MessageKind = 6
	KindMagicColorful     MessageKind = 7
	KindMagicSpell        MessageKind = 8
	KindMagicBulletScreen MessageKind = 9
	KindSubscription      MessageKind = 5001
	KindSystem            MessageKind = 5002
	KindFollow            MessageKind = 5003
	KindWelcome           MessageKind = 5004
	KindGiftSub           MessageKind = 5005
	KindGiftSubDetailed   MessageKind = 5006
	KindEvent             MessageKind = 5007
	KindRaid              MessageKind = 5008
	KindCustomSpell       MessageKind = 5009
)

var kindNames = map[MessageKind]string{
	KindNormal:            "NORMAL",
	KindSpell:             "SPELL",
	KindMagicSuperCap:     "MAGIC_SUPER_CAP",
	KindMagicColorful:     "MAGIC_COLORFUL",
	KindMagicSpell:        "MAGIC_SPELL",
	KindMagicBulletScreen: "MAGIC_BULLET_SCREEN",
	KindSubscription:      "SUBSCRIPTION",
	KindSystem:            "SYSTEM",
	KindFollow:            "FOLLOW",
	KindWelcome:           "WELCOME",
	KindGiftSub:           "GIFT_SUB",
	KindGiftSubDetailed:   "GIFT_SUB_DETAILED",
	KindEvent:             "EVENT",
	KindRaid:              "RAID",
	KindCustomSpell:       "CUSTOM_SPELL",
}

// ErrUnknownKind is returned when a chat event carries an unknown type code.
var ErrUnknownKind = errors.New("unknown chat message kind")

// String returns the string representation of MessageKind
func (k MessageKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN(" + strconv.Itoa(int(k)) + ")"
}

// Valid reports whether k is one of the known kinds.
func (k MessageKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// UnmarshalJSON implements json.Unmarshaler.
func (k *MessageKind) UnmarshalJSON(data []byte) error {
	var code uint16
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	if !MessageKind(code).Valid() {
		return fmt.Errorf("%w %d", ErrUnknownKind, code)
	}
	*k = MessageKind(code)
	return nil
}

// ChatEvent is a single chat line.
type ChatEvent struct {
	Kind MessageKind
	// Content of the message. Gift messages carry gift_id, gift_value and
	// value_type inside it.
	Content  string
	NickName string
	// Avatar is the URL of the sender's profile picture, empty if not sent.
	Avatar string
	// SubLevel is the sender's subscription level in the channel, e.g. "sub_L1".
	SubLevel  string
	Medals    []string
	Decos     []string
	Roles     []string
	MessageID string
	SenderID  int64
	// ContentData holds the free-form extra info of the chat.
	ContentData map[string]*structpb.Value
	// CustomRole is the raw JSON role descriptor of the sender.
	CustomRole string
}

type chatEventWire struct {
	Kind        MessageKind                `json:"type"`
	Content     string                     `json:"content"`
	NickName    string                     `json:"nick_name"`
	Avatar      string                     `json:"avatar,omitempty"`
	SubLevel    string                     `json:"sub_lv,omitempty"`
	Medals      []string                   `json:"medals"`
	Decos       []string                   `json:"decos"`
	Roles       []string                   `json:"roles"`
	MessageID   string                     `json:"message_id"`
	SenderID    int64                      `json:"sender_id"`
	ContentData map[string]json.RawMessage `json:"content_data"`
	CustomRole  string                     `json:"custom_role,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e ChatEvent) MarshalJSON() ([]byte, error) {
	contentData := make(map[string]json.RawMessage, len(e.ContentData))
	for key, value := range e.ContentData {
		if value == nil {
			contentData[key] = json.RawMessage("null")
			continue
		}
		raw, err := protojson.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("content_data.%s: %w", key, err)
		}
		contentData[key] = raw
	}

	return json.Marshal(chatEventWire{
		Kind:        e.Kind,
		Content:     e.Content,
		NickName:    e.NickName,
		Avatar:      e.Avatar,
		SubLevel:    e.SubLevel,
		Medals:      orEmpty(e.Medals),
		Decos:       orEmpty(e.Decos),
		Roles:       orEmpty(e.Roles),
		MessageID:   e.MessageID,
		SenderID:    e.SenderID,
		ContentData: contentData,
		CustomRole:  e.CustomRole,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *ChatEvent) UnmarshalJSON(data []byte) error {
	ev, err := decodeChatEvent(data)
	if err != nil {
		return err
	}
	*e = ev
	return nil
}

type fieldError struct {
	field string
	err   error
}

func (e *fieldError) Error() string { return e.field + ": " + e.err.Error() }
func (e *fieldError) Unwrap() error { return e.err }

func decodeChatEvent(data []byte) (ChatEvent, error) {
	var raw struct {
		Kind        *MessageKind               `json:"type"`
		Content     *string                    `json:"content"`
		NickName    *string                    `json:"nick_name"`
		Avatar      *string                    `json:"avatar"`
		SubLevel    *string                    `json:"sub_lv"`
		Medals      []string                   `json:"medals"`
		Decos       []string                   `json:"decos"`
		Roles       []string                   `json:"roles"`
		MessageID   *string                    `json:"message_id"`
		SenderID    *int64                     `json:"sender_id"`
		ContentData map[string]json.RawMessage `json:"content_data"`
		CustomRole  *string                    `json:"custom_role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return ChatEvent{}, err
	}

	switch {
	case raw.Kind == nil:
		return ChatEvent{}, &fieldError{"type", ErrMissingField}
	case raw.Content == nil:
		return ChatEvent{}, &fieldError{"content", ErrMissingField}
	case raw.NickName == nil:
		return ChatEvent{}, &fieldError{"nick_name", ErrMissingField}
	case raw.MessageID == nil:
		return ChatEvent{}, &fieldError{"message_id", ErrMissingField}
	case raw.SenderID == nil:
		return ChatEvent{}, &fieldError{"sender_id", ErrMissingField}
	}

	ev := ChatEvent{
		Kind:        *raw.Kind,
		Content:     *raw.Content,
		NickName:    *raw.NickName,
		Avatar:      deref(raw.Avatar),
		SubLevel:    deref(raw.SubLevel),
		Medals:      orEmpty(raw.Medals),
		Decos:       orEmpty(raw.Decos),
		Roles:       orEmpty(raw.Roles),
		MessageID:   *raw.MessageID,
		SenderID:    *raw.SenderID,
		ContentData: make(map[string]*structpb.Value, len(raw.ContentData)),
		CustomRole:  deref(raw.CustomRole),
	}
	for key, value := range raw.ContentData {
		v := &structpb.Value{}
		if err := protojson.Unmarshal(value, v); err != nil {
			return ChatEvent{}, &fieldError{"content_data." + key, err}
		}
		ev.ContentData[key] = v
	}
	return ev, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
