// Package media turns raw webhook envelopes into normalized inbound events:
// it classifies message kinds, resolves sender identities, and converts
// voice notes into text via download, decryption, and transcription.
package media

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jarbasai/jarbas/pkg/models"
)

// Kind classifies an inbound webhook event.
type Kind string

const (
	// KindText is a plain or quoted text message.
	KindText Kind = "text"

	// KindAudio is a voice note requiring transcription.
	KindAudio Kind = "audio"

	// KindIgnore covers self-sent messages, delivery receipts, and message
	// types the assistant does not handle.
	KindIgnore Kind = "ignore"
)

// Envelope is the webhook payload shape delivered by the Evolution API.
type Envelope struct {
	Event    string       `json:"event"`
	Instance string       `json:"instance"`
	Data     EnvelopeData `json:"data"`
}

// EnvelopeData is the message portion of an envelope.
type EnvelopeData struct {
	Key      MessageKey `json:"key"`
	PushName string     `json:"pushName"`
	Status   string     `json:"status"`
	Message  *Content   `json:"message"`
}

// MessageKey identifies the chat and sender of a message.
type MessageKey struct {
	RemoteJID     string `json:"remoteJid"`
	RemoteJIDAlt  string `json:"remoteJidAlt"`
	FromMe        bool   `json:"fromMe"`
	ID            string `json:"id"`
	Participant   string `json:"participant"`
	ParticipantPn string `json:"participantPn"`
}

// Content holds the message body variants the assistant handles.
type Content struct {
	Conversation        string        `json:"conversation"`
	ExtendedTextMessage *ExtendedText `json:"extendedTextMessage"`
	AudioMessage        *AudioMessage `json:"audioMessage"`
}

// ExtendedText is the quoted/linked text message variant.
type ExtendedText struct {
	Text string `json:"text"`
}

// AudioMessage describes an encrypted voice note.
type AudioMessage struct {
	URL      string `json:"url"`
	MediaKey string `json:"mediaKey"`
	Mimetype string `json:"mimetype"`
	Seconds  int    `json:"seconds"`
}

// Inbound is a normalized inbound event ready for the gateway pipeline.
type Inbound struct {
	// Kind classifies the event; only KindText and KindAudio proceed.
	Kind Kind

	// Utterance is the message text (transcribed for voice notes).
	Utterance string

	// UserKey partitions conversation state: the chat JID, which for group
	// chats is the group JID shared by all participants.
	UserKey string

	// ChatID is where the reply goes. Equal to UserKey.
	ChatID string

	// AuthID identifies the human sender for authorization.
	AuthID string

	// GroupJID is set when the message arrived in a group chat.
	GroupJID string

	// SenderName is the sender's display name, when provided.
	SenderName string
}

// ParseEnvelope decodes a raw webhook body. A malformed body is an error;
// everything decodable is classified, possibly as KindIgnore.
func ParseEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed webhook envelope: %w", err)
	}
	if env.Data.Key.RemoteJID == "" {
		return Envelope{}, fmt.Errorf("webhook envelope missing remoteJid")
	}
	return env, nil
}

// Classify determines the message kind without touching the network.
func Classify(env Envelope) Kind {
	d := env.Data
	if d.Key.FromMe {
		return KindIgnore
	}
	if d.Status != "" && !strings.EqualFold(d.Status, "delivered") && !strings.EqualFold(d.Status, "received") {
		return KindIgnore
	}
	if d.Message == nil {
		return KindIgnore
	}
	if d.Message.AudioMessage != nil {
		return KindAudio
	}
	if textOf(d.Message) != "" {
		return KindText
	}
	return KindIgnore
}

// Identity resolves the conversation partition key, the reply target, and
// the sender identity used for authorization.
//
// For group chats the chat JID is the group, so the human sender comes from
// the participant fields. For direct chats the privacy-preserving alternate
// JID is preferred when present, with mutual fallbacks either way.
func Identity(env Envelope) (userKey, chatID, authID, groupJID string) {
	key := env.Data.Key
	userKey = key.RemoteJID
	chatID = key.RemoteJID

	if models.IsGroupJID(key.RemoteJID) {
		groupJID = key.RemoteJID
		authID = firstNonEmpty(key.Participant, key.ParticipantPn)
		return
	}
	authID = firstNonEmpty(key.RemoteJIDAlt, key.RemoteJID)
	return
}

func textOf(c *Content) string {
	if c == nil {
		return ""
	}
	if strings.TrimSpace(c.Conversation) != "" {
		return c.Conversation
	}
	if c.ExtendedTextMessage != nil {
		return c.ExtendedTextMessage.Text
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
