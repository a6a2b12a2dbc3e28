package ginserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	chatapp "recyclemart/internal/app/chat"
	"recyclemart/internal/app/dto"
	domainauth "recyclemart/internal/domain/auth"
	domainchat "recyclemart/internal/domain/chat"
	"recyclemart/internal/domain/marketplace"
	"recyclemart/internal/infra/api"
	"recyclemart/internal/infra/messaging"
	"recyclemart/internal/infra/obs"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeSession struct {
	mock.Mock

	mu      sync.Mutex
	snap    chatapp.Snapshot
	changes chan chatapp.Change
}

func (f *fakeSession) Snapshot() chatapp.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

func (f *fakeSession) Select(ctx context.Context, id string) error {
	return f.Called(id).Error(0)
}

func (f *fakeSession) Open(ctx context.Context, link domainchat.DeepLink) (string, error) {
	args := f.Called(link)
	return args.String(0), args.Error(1)
}

func (f *fakeSession) Send(ctx context.Context, draft domainchat.Draft) (domainchat.Message, error) {
	args := f.Called(draft)
	return args.Get(0).(domainchat.Message), args.Error(1)
}

func (f *fakeSession) SendImage(ctx context.Context, file chatapp.LocalFile) (domainchat.Message, error) {
	args := f.Called(file.Name, file.MIME)
	return args.Get(0).(domainchat.Message), args.Error(1)
}

func (f *fakeSession) Subscribe() (<-chan chatapp.Change, func()) {
	return f.changes, func() {}
}

type fakeCatalog struct {
	query marketplace.AdQuery
	page  marketplace.AdPage
	err   error
}

func (f *fakeCatalog) ListAds(ctx context.Context, q marketplace.AdQuery) (marketplace.AdPage, error) {
	f.query = q
	return f.page, f.err
}

func (f *fakeCatalog) Categories(ctx context.Context) ([]marketplace.Category, error) {
	return []marketplace.Category{{ID: "c1", Name: "Furniture"}}, f.err
}

func newRouter(session *fakeSession, catalog *fakeCatalog) *gin.Engine {
	return NewRouter("test", obs.Middleware{}, obs.HealthHandlers{Checks: []obs.Check{{Name: "chat", Probe: func() error {
		if !session.Snapshot().Connected {
			return errors.New("disconnected")
		}
		return nil
	}}}}, Handlers{
		Chat:    ChatHandler{Session: session, Location: time.UTC, KeepAlive: time.Hour},
		Catalog: CatalogHandler{API: catalog},
	})
}

func do(r http.Handler, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func baseSnapshot() chatapp.Snapshot {
	created := time.Now().UTC()
	return chatapp.Snapshot{
		Connected: true,
		Identity:  domainauth.IdentityHint{UserID: "U1", Name: "Me"},
		Conversations: []domainchat.ConversationSummary{
			{ID: "C1", Name: "Karim", LastMessage: "hi", Ad: &domainchat.AdSummary{ID: "A1", Title: "Sofa", Link: "/ads/A1"}},
			{ID: "C2", Name: "Nadia"},
		},
		ActiveID: "C1",
		Active:   &domainchat.ConversationSummary{ID: "C1", Name: "Karim"},
		Messages: []domainchat.Message{
			{ID: "M1", ConversationID: "C1", SenderID: "U2", Text: "hello", CreatedAt: created.Add(-time.Minute)},
			{ID: "M2", ConversationID: "C1", SenderID: "U1", FromMe: true, Text: "hi", CreatedAt: created},
		},
		Location: "/chat",
	}
}

func TestHealthEndpoints(t *testing.T) {
	session := &fakeSession{snap: baseSnapshot()}
	r := newRouter(session, &fakeCatalog{})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/livez", nil, "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/readyz", nil, "").Code)

	session.snap.Connected = false
	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/readyz", nil, "").Code)
}

func TestConversationsFilter(t *testing.T) {
	r := newRouter(&fakeSession{snap: baseSnapshot()}, &fakeCatalog{})
	rec := do(r, http.MethodGet, "/api/v1/chat/conversations?q=KAR", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out dto.ConversationList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "C1", out.Items[0].ID)
	require.NotNil(t, out.Items[0].Ad)
	assert.Equal(t, "/ads/A1", out.Items[0].Ad.Link)
}

func TestThreadGroupsByDay(t *testing.T) {
	r := newRouter(&fakeSession{snap: baseSnapshot()}, &fakeCatalog{})
	rec := do(r, http.MethodGet, "/api/v1/chat/thread", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var out dto.ThreadView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "C1", out.ConversationID)
	require.NotEmpty(t, out.Days)
	last := out.Days[len(out.Days)-1]
	assert.Equal(t, "Today", last.Label)
	assert.Equal(t, "M2", last.Messages[len(last.Messages)-1].ID)
	assert.True(t, last.Messages[len(last.Messages)-1].FromMe)
}

func TestThreadWithoutActiveConversation(t *testing.T) {
	snap := baseSnapshot()
	snap.ActiveID = ""
	r := newRouter(&fakeSession{snap: snap}, &fakeCatalog{})
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/chat/thread", nil, "").Code)
}

func TestSelectMapsErrors(t *testing.T) {
	session := &fakeSession{snap: baseSnapshot()}
	session.On("Select", "C2").Return(nil)
	session.On("Select", "C3").Return(chatapp.ErrNotAuthenticated)
	session.On("Select", "C4").Return(&messaging.AckError{Event: dto.EventConversationJoin, Timeout: true})
	r := newRouter(session, &fakeCatalog{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/chat/conversations/C2/select", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/v1/chat/conversations/C3/select", nil, "").Code)
	assert.Equal(t, http.StatusGatewayTimeout, do(r, http.MethodPost, "/api/v1/chat/conversations/C4/select", nil, "").Code)
}

func TestSendText(t *testing.T) {
	session := &fakeSession{snap: baseSnapshot()}
	session.On("Send", domainchat.Draft{Text: "hello"}).
		Return(domainchat.Message{ID: "M3", ConversationID: "C1", SenderID: "U1", FromMe: true, Text: "hello"}, nil)
	session.On("Send", domainchat.Draft{Text: "boom"}).
		Return(domainchat.Message{}, &messaging.AckError{Event: dto.EventMessageSend, Message: "Conversation closed"})
	r := newRouter(session, &fakeCatalog{})

	rec := do(r, http.MethodPost, "/api/v1/chat/messages", []byte(`{"text":"  hello "}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg dto.MessageView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "M3", msg.ID)

	rec = do(r, http.MethodPost, "/api/v1/chat/messages", []byte(`{"text":"boom"}`), "application/json")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Conversation closed")

	rec = do(r, http.MethodPost, "/api/v1/chat/messages", []byte(`{"text":"   "}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	session.AssertNumberOfCalls(t, "Send", 2)
}

func TestSendAttachment(t *testing.T) {
	session := &fakeSession{snap: baseSnapshot()}
	session.On("SendImage", "photo.png", "image/png").
		Return(domainchat.Message{ID: "M4", Attachment: &domainchat.Attachment{Type: domainchat.AttachmentImage, URL: "https://cdn/p.png"}}, nil)
	r := newRouter(session, &fakeCatalog{})

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	rec := do(r, http.MethodPost, "/api/v1/chat/attachments", body.Bytes(), form.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var msg dto.MessageView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	require.NotNil(t, msg.Attachment)
	assert.Equal(t, "image", msg.Attachment.Type)
}

func TestSendAttachmentWithoutUsableFileName(t *testing.T) {
	session := &fakeSession{snap: baseSnapshot()}
	session.On("SendImage", mock.Anything, "image/png").
		Return(domainchat.Message{ID: "M5", Attachment: &domainchat.Attachment{Type: domainchat.AttachmentImage, URL: "https://cdn/q.png"}}, nil)
	r := newRouter(session, &fakeCatalog{})

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", ".")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	rec := do(r, http.MethodPost, "/api/v1/chat/attachments", body.Bytes(), form.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session.AssertExpectations(t)
}

func TestUploadName(t *testing.T) {
	assert.Equal(t, "photo.png", uploadName("../../etc/photo.png"))
	for _, raw := range []string{"", ".", "..", "/"} {
		name := uploadName(raw)
		assert.NotContains(t, []string{"", ".", "..", "/"}, name, raw)
		_, err := uuid.Parse(name)
		assert.NoError(t, err, raw)
	}
}

func TestSendAttachmentRequiresFile(t *testing.T) {
	r := newRouter(&fakeSession{snap: baseSnapshot()}, &fakeCatalog{})
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/chat/attachments", nil, "").Code)
}

func TestOpen(t *testing.T) {
	session := &fakeSession{snap: baseSnapshot()}
	session.On("Open", domainchat.DeepLink{AdID: "A1", ParticipantID: "U2"}).Return("C9", nil)
	session.On("Open", domainchat.DeepLink{AdID: "A1", ParticipantID: "U1"}).Return("", chatapp.ErrSelfChat)
	r := newRouter(session, &fakeCatalog{})

	rec := do(r, http.MethodPost, "/api/v1/chat/open", []byte(`{"adId":"A1","participantId":"U2"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"conversationId":"C9"}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/api/v1/chat/open", []byte(`{"adId":"A1","participantId":"U1"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPost, "/api/v1/chat/open", []byte(`{"adId":"A1"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamEmitsSnapshotAndChanges(t *testing.T) {
	session := &fakeSession{snap: baseSnapshot(), changes: make(chan chatapp.Change, 2)}
	srv := httptest.NewServer(newRouter(session, &fakeCatalog{}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/chat/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	session.changes <- chatapp.Change{Kind: chatapp.ChangeThread}
	close(session.changes)

	var events []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			events = append(events, strings.TrimSpace(strings.TrimPrefix(line, "event:")))
		}
	}
	assert.Equal(t, []string{"session", "thread"}, events)
}

func TestCatalogAds(t *testing.T) {
	catalog := &fakeCatalog{page: marketplace.AdPage{
		Items: []marketplace.Ad{{ID: "A1", Title: "Sofa"}},
		Meta:  marketplace.PageMeta{Page: 1, Limit: 20, Total: 30, TotalPage: 2},
	}}
	r := newRouter(&fakeSession{snap: baseSnapshot()}, catalog)

	rec := do(r, http.MethodGet, "/api/v1/ads?searchTerm=sofa&minPrice=10&page=x", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sofa", catalog.query.Search)
	assert.Equal(t, float64(10), catalog.query.MinPrice)
	assert.Equal(t, 1, catalog.query.Page)
	assert.Contains(t, rec.Body.String(), `"hasNext":true`)

	rec = do(r, http.MethodGet, "/api/v1/ads?minPrice=50&maxPrice=10", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogErrors(t *testing.T) {
	catalog := &fakeCatalog{err: &api.Error{Status: http.StatusNotFound, Message: "Category not found"}}
	r := newRouter(&fakeSession{snap: baseSnapshot()}, catalog)
	rec := do(r, http.MethodGet, "/api/v1/categories", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Category not found")

	catalog.err = errors.New("dial tcp: refused")
	rec = do(r, http.MethodGet, "/api/v1/ads", nil, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
