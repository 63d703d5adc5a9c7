// Package protocol defines the messages exchanged over the chat socket and
// their JSON wire encoding.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType is the value of the "type" discriminator carried by every frame.
type MessageType string

const (
	TypeAuth     MessageType = "AUTH"
	TypeResponse MessageType = "RESPONSE"
	TypePing     MessageType = "PING"
	TypePong     MessageType = "PONG"
	TypeChat     MessageType = "CHAT"
)

// String returns the wire representation of MessageType
func (mt MessageType) String() string {
	return string(mt)
}

// ParseMessageType resolves a wire tag case-insensitively.
func ParseMessageType(s string) (MessageType, error) {
	switch mt := MessageType(strings.ToUpper(s)); mt {
	case TypeAuth, TypeResponse, TypePing, TypePong, TypeChat:
		return mt, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownType, s)
	}
}

var (
	// ErrUnknownType is returned when a frame carries a tag outside the known set.
	ErrUnknownType = errors.New("unknown message type")
	// ErrMissingField is returned when a field required by the resolved tag is absent.
	ErrMissingField = errors.New("missing field")
)

// DecodeError describes a frame that could not be decoded.
type DecodeError struct {
	// Type is the resolved tag, empty if the tag itself could not be resolved.
	Type MessageType
	// Field is the dotted path of the offending field, empty for whole-frame errors.
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("failed to decode message")
	if e.Type != "" {
		b.WriteString(" ")
		b.WriteString(string(e.Type))
	}
	if e.Field != "" {
		b.WriteString(": field ")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Message is one frame of the chat socket protocol.
// Implementations are Auth, Response, Ping, Pong and Chat.
type Message interface {
	Type() MessageType
	isMessage()
}

// Auth authenticates the chat session.
type Auth struct {
	// Nonce is echoed back by the peer in the matching Response.
	Nonce string
	Token ChatToken
}

// Response acknowledges an Auth message.
type Response struct {
	Nonce string
}

// Ping keeps the chat socket alive.
type Ping struct {
	Nonce string
}

// Pong acknowledges a Ping.
type Pong struct {
	Nonce string
	// Gap is the interval in seconds the peer advises between pings.
	Gap uint64
}

// Chat carries one or more chat events. It is also sent right after
// authentication when the channel has recent history.
type Chat struct {
	// ChannelInfo is absent on historic chat messages.
	ChannelInfo *ChannelInfo
	// EID identifies the message container, not the individual messages.
	EID   string
	Chats []ChatEvent
}

// ChannelInfo identifies the channel a Chat batch was sent in.
type ChannelInfo struct {
	ChannelID string `json:"channel_id"`
}

func (Auth) Type() MessageType     { return TypeAuth }
func (Response) Type() MessageType { return TypeResponse }
func (Ping) Type() MessageType     { return TypePing }
func (Pong) Type() MessageType     { return TypePong }
func (Chat) Type() MessageType     { return TypeChat }

func (Auth) isMessage()     {}
func (Response) isMessage() {}
func (Ping) isMessage()     {}
func (Pong) isMessage()     {}
func (Chat) isMessage()     {}

type nonceFrame struct {
	Type  MessageType `json:"type"`
	Nonce string      `json:"nonce"`
}

// MarshalJSON implements json.Marshaler.
func (m Auth) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		nonceFrame
		Data ChatToken `json:"data"`
	}{nonceFrame{TypeAuth, m.Nonce}, m.Token})
}

// MarshalJSON implements json.Marshaler.
func (m Response) MarshalJSON() ([]byte, error) {
	return json.Marshal(nonceFrame{TypeResponse, m.Nonce})
}

// MarshalJSON implements json.Marshaler.
func (m Ping) MarshalJSON() ([]byte, error) {
	return json.Marshal(nonceFrame{TypePing, m.Nonce})
}

// MarshalJSON implements json.Marshaler.
func (m Pong) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		nonceFrame
		Data pongData `json:"data"`
	}{nonceFrame{TypePong, m.Nonce}, pongData{Gap: m.Gap}})
}

// MarshalJSON implements json.Marshaler.
func (m Chat) MarshalJSON() ([]byte, error) {
	chats := m.Chats
	if chats == nil {
		chats = []ChatEvent{}
	}
	return json.Marshal(struct {
		Type        MessageType  `json:"type"`
		ChannelInfo *ChannelInfo `json:"channel_info,omitempty"`
		Data        chatData     `json:"data"`
	}{TypeChat, m.ChannelInfo, chatData{EID: m.EID, Chats: chats}})
}

type pongData struct {
	Gap uint64 `json:"gap"`
}

type chatData struct {
	EID   string      `json:"eid"`
	Chats []ChatEvent `json:"chats"`
}

// Encode encodes the message into a JSON frame
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

type envelope struct {
	Type        *string         `json:"type"`
	Nonce       *string         `json:"nonce"`
	Data        json.RawMessage `json:"data"`
	ChannelInfo json.RawMessage `json:"channel_info"`
}

// Decode decodes a text or binary frame into a Message.
// Any structural problem is reported as a *DecodeError.
func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if env.Type == nil {
		return nil, &DecodeError{Field: "type", Err: ErrMissingField}
	}
	mt, err := ParseMessageType(*env.Type)
	if err != nil {
		return nil, &DecodeError{Field: "type", Err: err}
	}

	switch mt {
	case TypeAuth:
		nonce, err := env.nonce(mt)
		if err != nil {
			return nil, err
		}
		var d struct {
			Token *string `json:"token"`
		}
		if err := env.data(mt, &d); err != nil {
			return nil, err
		}
		if d.Token == nil {
			return nil, &DecodeError{Type: mt, Field: "data.token", Err: ErrMissingField}
		}
		return Auth{Nonce: nonce, Token: ChatToken{Token: *d.Token}}, nil

	case TypeResponse:
		nonce, err := env.nonce(mt)
		if err != nil {
			return nil, err
		}
		return Response{Nonce: nonce}, nil

	case TypePing:
		nonce, err := env.nonce(mt)
		if err != nil {
			return nil, err
		}
		return Ping{Nonce: nonce}, nil

	case TypePong:
		nonce, err := env.nonce(mt)
		if err != nil {
			return nil, err
		}
		var d struct {
			Gap *uint64 `json:"gap"`
		}
		if err := env.data(mt, &d); err != nil {
			return nil, err
		}
		if d.Gap == nil {
			return nil, &DecodeError{Type: mt, Field: "data.gap", Err: ErrMissingField}
		}
		return Pong{Nonce: nonce, Gap: *d.Gap}, nil

	default:
		return env.chat()
	}
}

func (env *envelope) nonce(mt MessageType) (string, error) {
	if env.Nonce == nil {
		return "", &DecodeError{Type: mt, Field: "nonce", Err: ErrMissingField}
	}
	return *env.Nonce, nil
}

func (env *envelope) data(mt MessageType, v any) error {
	if isNull(env.Data) {
		return &DecodeError{Type: mt, Field: "data", Err: ErrMissingField}
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return &DecodeError{Type: mt, Field: "data", Err: err}
	}
	return nil
}

func (env *envelope) chat() (Message, error) {
	var msg Chat

	if !isNull(env.ChannelInfo) {
		var info struct {
			ChannelID *string `json:"channel_id"`
		}
		if err := json.Unmarshal(env.ChannelInfo, &info); err != nil {
			return nil, &DecodeError{Type: TypeChat, Field: "channel_info", Err: err}
		}
		if info.ChannelID == nil {
			return nil, &DecodeError{Type: TypeChat, Field: "channel_info.channel_id", Err: ErrMissingField}
		}
		msg.ChannelInfo = &ChannelInfo{ChannelID: *info.ChannelID}
	}

	var d struct {
		EID   *string           `json:"eid"`
		Chats []json.RawMessage `json:"chats"`
	}
	if err := env.data(TypeChat, &d); err != nil {
		return nil, err
	}
	if d.EID == nil {
		return nil, &DecodeError{Type: TypeChat, Field: "data.eid", Err: ErrMissingField}
	}
	msg.EID = *d.EID

	msg.Chats = make([]ChatEvent, 0, len(d.Chats))
	for i, raw := range d.Chats {
		ev, err := decodeChatEvent(raw)
		if err != nil {
			field := fmt.Sprintf("data.chats[%d]", i)
			var fe *fieldError
			if errors.As(err, &fe) {
				field += "." + fe.field
				err = fe.err
			}
			return nil, &DecodeError{Type: TypeChat, Field: field, Err: err}
		}
		msg.Chats = append(msg.Chats, ev)
	}
	return msg, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
