package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bridgeit/internal/adapter/api"
	"bridgeit/internal/adapter/api/handler"
	"bridgeit/internal/adapter/api/middleware"
	memrepo "bridgeit/internal/adapter/repository"
	"bridgeit/internal/domain/entity"
	"bridgeit/internal/infrastructure/cache"
	ws "bridgeit/internal/infrastructure/websocket"
	"bridgeit/internal/usecase"
)

// tokenVerifier accepts "token-<uid>".
type tokenVerifier struct{}

func (tokenVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	if !strings.HasPrefix(token, "token-") {
		return "", fmt.Errorf("invalid token")
	}
	return strings.TrimPrefix(token, "token-"), nil
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	chats := memrepo.NewMemoryChatRepository()
	profiles := memrepo.NewMemoryProfileRepository()
	profiles.PutJobSeeker(&entity.JobSeekerProfile{UserID: "seeker-1", Name: "Jane Doe"})
	profiles.PutEmployer(&entity.EmployerProfile{UserID: "employer-1", CompanyName: "Acme Corp"})

	resolver := usecase.NewProfileResolver(profiles, cache.NewMemoryIdentityCache(), nil)
	chatUseCase := usecase.NewChatUseCase(
		resolver,
		usecase.NewChatDirectory(chats, resolver),
		usecase.NewChatThread(chats, resolver, nil),
		usecase.NewUnreadTracker(chats),
		time.UTC,
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	wsManager := ws.NewManager(chatUseCase)
	wsManager.Start(ctx)

	authMiddleware := middleware.NewAuthMiddleware(tokenVerifier{})

	e := echo.New()
	e.Validator = api.NewValidator()
	Setup(e, Handlers{
		Chat:      handler.NewChatHandler(chatUseCase),
		Profile:   handler.NewProfileHandler(chatUseCase),
		WebSocket: handler.NewWebSocketHandler(wsManager, authMiddleware),
		Health:    handler.NewHealthHandler(wsManager, "memory"),
	}, authMiddleware)
	return e
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func do(t *testing.T, e *echo.Echo, method, path, uid, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if uid != "" {
		req.Header.Set("Authorization", "Bearer token-"+uid)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func createChat(t *testing.T, e *echo.Echo, uid, recipient string) string {
	t.Helper()
	rec, env := do(t, e, http.MethodPost, "/v1/chats", uid, `{"recipient_id":"`+recipient+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var data struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.ID
}

func TestRequiresAuthentication(t *testing.T) {
	e := newTestServer(t)

	rec, env := do(t, e, http.MethodGet, "/v1/chats", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/chats", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateChatIsIdempotent(t *testing.T) {
	e := newTestServer(t)

	first := createChat(t, e, "seeker-1", "employer-1")
	second := createChat(t, e, "employer-1", "seeker-1")
	assert.Equal(t, first, second)

	rec, env := do(t, e, http.MethodPost, "/v1/chats", "seeker-1", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "recipient_id is required", env.Error.Message)

	rec, env = do(t, e, http.MethodPost, "/v1/chats", "seeker-1", `{"recipient_id":"seeker-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestChatFlow(t *testing.T) {
	e := newTestServer(t)
	id := createChat(t, e, "seeker-1", "employer-1")

	rec, _ := do(t, e, http.MethodPost, "/v1/chats/"+id+"/messages", "seeker-1", `{"text":"Hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = do(t, e, http.MethodPost, "/v1/chats/"+id+"/messages", "seeker-1", `{"text":"   "}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env := do(t, e, http.MethodGet, "/v1/chats", "employer-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Items []struct {
			Preview string `json:"preview"`
			Unread  bool   `json:"unread"`
			Other   struct {
				DisplayName string `json:"display_name"`
				Initials    string `json:"initials"`
			} `json:"other"`
		} `json:"items"`
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, "Hello", page.Items[0].Preview)
	assert.True(t, page.Items[0].Unread)
	assert.Equal(t, "JD", page.Items[0].Other.Initials)

	assertUnread(t, e, "employer-1", 1)
	assertUnread(t, e, "seeker-1", 0)

	rec, _ = do(t, e, http.MethodPut, "/v1/chats/"+id+"/read", "employer-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assertUnread(t, e, "employer-1", 0)

	rec, env = do(t, e, http.MethodGet, "/v1/chats/"+id+"/messages?tz=Asia/Jakarta", "employer-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var feed entity.Feed
	require.NoError(t, json.Unmarshal(env.Data, &feed))
	require.Len(t, feed.Items, 2)
	assert.Equal(t, entity.FeedItemHeader, feed.Items[0].Kind)
	assert.Equal(t, "Today", feed.Items[0].Label)
	assert.Equal(t, "Hello", feed.Items[1].Message.Text)
	assert.Equal(t, "Jane Doe", feed.Senders["seeker-1"].DisplayName)
}

func assertUnread(t *testing.T, e *echo.Echo, uid string, want int) {
	t.Helper()
	rec, env := do(t, e, http.MethodGet, "/v1/chats/unread-count", uid, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, want, data.Count, "unread for %s", uid)
}

func TestNonParticipantIsForbidden(t *testing.T) {
	e := newTestServer(t)
	id := createChat(t, e, "seeker-1", "employer-1")

	rec, env := do(t, e, http.MethodGet, "/v1/chats/"+id, "intruder", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, _ = do(t, e, http.MethodPost, "/v1/chats/"+id+"/messages", "intruder", `{"text":"hi"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/v1/chats/missing", "seeker-1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIdentityEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec, env := do(t, e, http.MethodGet, "/v1/profiles/employer-1/identity", "seeker-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var identity entity.Identity
	require.NoError(t, json.Unmarshal(env.Data, &identity))
	assert.Equal(t, entity.IdentityEmployer, identity.Kind)
	assert.Equal(t, "Acme Corp", identity.DisplayName)

	_, env = do(t, e, http.MethodGet, "/v1/profiles/ghost/identity", "seeker-1", "")
	require.NoError(t, json.Unmarshal(env.Data, &identity))
	assert.Equal(t, "User", identity.DisplayName)
	assert.Equal(t, "U", identity.Initials)
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"memory"`)
}

func TestWebSocketSubscription(t *testing.T) {
	e := newTestServer(t)
	srv := httptest.NewServer(e)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := gorillaws.DefaultDialer.Dial(wsURL+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL+"?token=token-employer-1", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(ws.ClientFrame{Type: ws.MessageTypeSubscribeUnread}))
	frame := readWSFrame(t, conn)
	assert.Equal(t, ws.MessageTypeUnreadCount, frame.Type)

	id := createChat(t, e, "seeker-1", "employer-1")
	rec, _ := do(t, e, http.MethodPost, "/v1/chats/"+id+"/messages", "seeker-1", `{"text":"Hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	for {
		frame = readWSFrame(t, conn)
		if frame.Type != ws.MessageTypeUnreadCount {
			continue
		}
		if frame.Data.(map[string]interface{})["count"] == float64(1) {
			break
		}
	}

	require.NoError(t, conn.WriteJSON(ws.ClientFrame{Type: ws.MessageTypePing}))
	for readWSFrame(t, conn).Type != ws.MessageTypePong {
	}
}

func readWSFrame(t *testing.T, conn *gorillaws.Conn) ws.ServerFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame ws.ServerFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}
