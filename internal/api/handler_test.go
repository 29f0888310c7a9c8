package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/openscholar/scholarship-agent/internal/agent"
	"github.com/openscholar/scholarship-agent/internal/composer"
	"github.com/openscholar/scholarship-agent/internal/config"
	"github.com/openscholar/scholarship-agent/internal/history"
	"github.com/openscholar/scholarship-agent/internal/profile"
	"github.com/openscholar/scholarship-agent/internal/search"
	"github.com/openscholar/scholarship-agent/internal/session"
)

type stubAdapter struct {
	SearchFunc func(ctx context.Context, query string) ([]search.Result, error)
}

func (s *stubAdapter) Search(ctx context.Context, query string) ([]search.Result, error) {
	if s.SearchFunc != nil {
		return s.SearchFunc(ctx, query)
	}
	return []search.Result{{Title: "Loran Award", URL: "https://loranscholar.ca", Snippet: "national scholarship"}}, nil
}

type stubComposer struct{}

func (stubComposer) Compose(ctx context.Context, p profile.Profile, results []search.Result) (string, error) {
	return "## Scholarships for " + p.Citizenship + " Citizens\n- **Loran Award** [Source: loranscholar.ca]", nil
}

func (stubComposer) FollowUp(ctx context.Context, p profile.Profile, history []composer.Turn, input string) (string, error) {
	return "follow-up answer", nil
}

func (stubComposer) ApplicationSupport(ctx context.Context, p profile.Profile) (string, error) {
	return "## Personal Statement Template", nil
}

// capturingComposer records the follow-up arguments it was called with.
type capturingComposer struct {
	stubComposer
	mu         sync.Mutex
	gotHistory []composer.Turn
	gotInput   string
}

func (c *capturingComposer) FollowUp(ctx context.Context, p profile.Profile, history []composer.Turn, input string) (string, error) {
	c.mu.Lock()
	c.gotHistory = append([]composer.Turn(nil), history...)
	c.gotInput = input
	c.mu.Unlock()
	return "follow-up answer", nil
}

func newTestRouter(t *testing.T, adapter search.Adapter) (chi.Router, session.Store) {
	t.Helper()
	return newTestRouterWith(t, adapter, stubComposer{})
}

func newTestRouterWith(t *testing.T, adapter search.Adapter, comp agent.Composer) (chi.Router, session.Store) {
	t.Helper()
	store, err := session.NewStore(session.StoreTypeMemory, session.WithTimeout(2*time.Hour))
	require.NoError(t, err)

	ag := agent.New(adapter, comp, time.Second)
	archive := history.NewArchive(filepath.Join(t.TempDir(), "history.db"))
	t.Cleanup(func() { _ = archive.Close() })

	cfg := &config.Config{}
	cfg.LLM.APIKey = "llm-key"
	cfg.Search.APIKey = "search-key"

	h := NewHandler(store, ag, archive, cfg)
	return h.Routes(), store
}

func postChat(t *testing.T, router chi.Router, message, sessionID string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"message": message, "session_id": sessionID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestChat_CreatesSessionAndProfiles(t *testing.T) {
	router, _ := newTestRouter(t, &stubAdapter{})

	rec, out := postChat(t, router, "I'm studying Computer Science", "")
	require.Equal(t, http.StatusOK, rec.Code)

	sid, _ := out["session_id"].(string)
	require.NotEmpty(t, sid)
	require.Equal(t, "profiling", out["conversation_state"])
	require.Contains(t, out["response"], "education level")
	require.Equal(t, sid+"_2", out["message_id"])

	up, _ := out["user_profile"].(map[string]any)
	require.Equal(t, "Computer Science", up["field_of_study"])
}

func TestChat_EmptyMessageIsBadRequest(t *testing.T) {
	router, _ := newTestRouter(t, &stubAdapter{})
	rec, _ := postChat(t, router, "   ", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat_FullFlowToResults(t *testing.T) {
	router, _ := newTestRouter(t, &stubAdapter{})

	sid := ""
	for _, msg := range []string{"Computer Science", "Undergraduate", "I'm Canadian"} {
		rec, out := postChat(t, router, msg, sid)
		require.Equal(t, http.StatusOK, rec.Code)
		sid, _ = out["session_id"].(string)
		require.Equal(t, "profiling", out["conversation_state"])
	}

	rec, out := postChat(t, router, "I live in Canada", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "searching", out["conversation_state"])

	rec, out = postChat(t, router, "go ahead", sid)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "responding", out["conversation_state"])
	require.Contains(t, out["response"], "Loran Award")
	require.Contains(t, out["response"], "[Source: loranscholar.ca]")
}

func TestChat_SearchFailureIsRetryable(t *testing.T) {
	adapter := &stubAdapter{SearchFunc: func(ctx context.Context, query string) ([]search.Result, error) {
		return nil, search.ErrUnavailable
	}}
	router, store := newTestRouter(t, adapter)

	sess, err := store.GetOrCreate(context.Background(), "")
	require.NoError(t, err)
	sess.Profile = profile.Profile{
		FieldOfStudy: "Business", EducationLevel: "Graduate",
		Citizenship: "Indian", Location: "India",
	}
	sess.State = "searching"
	require.NoError(t, store.Save(context.Background(), sess))

	rec, out := postChat(t, router, "search please", sess.ID)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, true, out["retryable"])
	require.Equal(t, "searching", out["conversation_state"])

	// History records the failure as a typed error entry.
	got, err := store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	last := got.History[len(got.History)-1]
	require.Equal(t, session.MessageTypeError, last.Type)

	// Retrying the same request succeeds once the adapter recovers.
	adapter.SearchFunc = nil
	rec, out = postChat(t, router, "search please", sess.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "responding", out["conversation_state"])
}

func TestChat_FollowUpWindowExcludesCurrentMessage(t *testing.T) {
	comp := &capturingComposer{}
	router, store := newTestRouterWith(t, &stubAdapter{}, comp)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	sess.State = "responding"
	sess.Append(session.SenderUser, "find scholarships", session.MessageTypeText)
	sess.Append(session.SenderAgent, "here they are", session.MessageTypeText)
	require.NoError(t, store.Save(ctx, sess))

	rec, _ := postChat(t, router, "when are the deadlines?", sess.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	// The composer sees the question once, as input, never in the window.
	require.Equal(t, "when are the deadlines?", comp.gotInput)
	require.Len(t, comp.gotHistory, 2)
	require.Equal(t, "find scholarships", comp.gotHistory[0].Content)
	require.Equal(t, "here they are", comp.gotHistory[1].Content)

	// History still records the full exchange in order.
	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 4)
	require.Equal(t, "when are the deadlines?", got.History[2].Content)
}

// Read-only endpoints run unlocked against the store while chat turns
// mutate the same session; the store's copy semantics must keep that
// safe under the race detector.
func TestConcurrentChatAndReads(t *testing.T) {
	router, _ := newTestRouter(t, &stubAdapter{})
	_, out := postChat(t, router, "I'm studying engineering", "")
	sid, _ := out["session_id"].(string)
	require.NotEmpty(t, sid)

	body, err := json.Marshal(map[string]string{"message": "volunteering and music", "session_id": sid})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(body))
				router.ServeHTTP(httptest.NewRecorder(), req)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/profile/"+sid, nil))
				router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/stats", nil))
			}
		}()
	}
	wg.Wait()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/"+sid, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	up, _ := got["user_profile"].(map[string]any)
	require.Equal(t, "Engineering", up["field_of_study"])
}

func TestProfile_UnknownSessionIsNotFound(t *testing.T) {
	router, _ := newTestRouter(t, &stubAdapter{})

	req := httptest.NewRequest(http.MethodGet, "/profile/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfile_ReturnsProfileAndState(t *testing.T) {
	router, _ := newTestRouter(t, &stubAdapter{})
	_, out := postChat(t, router, "I'm studying medicine", "")
	sid, _ := out["session_id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/profile/"+sid, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, sid, got["session_id"])
	up, _ := got["user_profile"].(map[string]any)
	require.Equal(t, "Medicine", up["field_of_study"])
}

func TestReset_UnknownSessionStillSucceeds(t *testing.T) {
	router, _ := newTestRouter(t, &stubAdapter{})

	req := httptest.NewRequest(http.MethodPost, "/reset/nonexistent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "success", got["status"])
}

func TestReset_ClearsProfileAndHistory(t *testing.T) {
	router, store := newTestRouter(t, &stubAdapter{})
	_, out := postChat(t, router, "I'm studying engineering", "")
	sid, _ := out["session_id"].(string)

	req := httptest.NewRequest(http.MethodPost, "/reset/"+sid, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	sess, err := store.Get(context.Background(), sid)
	require.NoError(t, err)
	require.Empty(t, sess.Profile.FieldOfStudy)
	require.Equal(t, "profiling", string(sess.State))
	require.Empty(t, sess.History)
}

func TestHealth_ReportsKeyConfiguration(t *testing.T) {
	router, _ := newTestRouter(t, &stubAdapter{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "healthy", got["status"])
	require.Equal(t, true, got["api_keys_configured"])
}

func TestStats_CountsSessionsAndMessages(t *testing.T) {
	router, _ := newTestRouter(t, &stubAdapter{})
	postChat(t, router, "I'm studying business", "")

	req := httptest.NewRequest(http.MethodGet, "/sessions/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.EqualValues(t, 1, got["active_sessions"])
	require.EqualValues(t, 2, got["total_messages"]) // user turn + agent reply
	require.InDelta(t, 2.0, got["session_timeout_hours"], 0.001)
}
