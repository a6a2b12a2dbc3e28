package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recyclemart/internal/domain/chat"
)

func TestChatMessageAcceptsBareAndPopulatedRefs(t *testing.T) {
	raw := `[
		{"_id":"M1","conversation":"C1","sender":"U1","text":"hi","createdAt":"2025-03-10T09:00:00Z"},
		{"_id":"M2","conversation":{"_id":"C1"},"sender":{"_id":"U2","name":"Nadia"},
		 "attachment":{"type":"image","url":"https://cdn/x.png"},"createdAt":"2025-03-10T09:01:00Z"}
	]`
	var msgs []ChatMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msgs))
	require.Len(t, msgs, 2)

	first := ToMessage(msgs[0], "U1")
	assert.Equal(t, "C1", first.ConversationID)
	assert.True(t, first.FromMe)
	assert.Nil(t, first.Attachment)

	second := ToMessage(msgs[1], "U1")
	assert.Equal(t, "U2", second.SenderID)
	assert.False(t, second.FromMe)
	require.NotNil(t, second.Attachment)
	assert.Equal(t, chat.AttachmentImage, second.Attachment.Type)
	assert.Equal(t, "https://cdn/x.png", second.Image())
}

func TestToMessageWithoutIdentityIsNeverMine(t *testing.T) {
	m := ToMessage(ChatMessage{ID: "M1", Sender: Ref{ID: ""}}, "")
	assert.False(t, m.FromMe)
}

func TestToConversationSummary(t *testing.T) {
	posted := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	got := ToConversationSummary(Conversation{
		ID:          "C1",
		Participant: Ref{ID: "U2", Name: "Karim", Image: "a.png"},
		Ad:          &AdRef{ID: "A1", Title: "Old bicycle", Price: 2500, Images: []string{"b.png"}, CreatedAt: posted},
		LastMessage: "is it available?",
		UnreadCount: 2,
	})
	assert.Equal(t, "Karim", got.Name)
	assert.Equal(t, 2, got.UnreadCount)
	require.NotNil(t, got.Ad)
	assert.Equal(t, "b.png", got.Ad.Image)
	assert.Equal(t, "/ads/A1", got.Ad.Link)
	assert.Equal(t, posted, got.Ad.Posted)

	assert.Equal(t, "Unknown user", ToConversationSummary(Conversation{ID: "C2"}).Name)
}

func TestEnvelopeDecodeAndDetail(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"success":false,"message":"Validation failed",
		"errorSources":[{"path":"text","message":"too long"}]}`), &env))
	assert.False(t, env.HasData())
	assert.Equal(t, "Validation failed; text: too long", env.Detail())

	require.NoError(t, json.Unmarshal([]byte(`{"success":true,"data":{"url":"u"}}`), &env))
	var res UploadResult
	require.NoError(t, env.Decode(&res))
	assert.Equal(t, "u", res.URL)
}

func TestFromDraft(t *testing.T) {
	req := FromDraft("C1", chat.Draft{Attachment: &chat.Attachment{Type: chat.AttachmentImage, URL: "u", Name: "p.png"}})
	b, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"conversationId":"C1","attachment":{"type":"image","url":"u","name":"p.png"}}`, string(b))
}
