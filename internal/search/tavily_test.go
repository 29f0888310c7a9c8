package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openscholar/scholarship-agent/internal/profile"
)

func TestTavily_Search(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "Fulbright Program", "url": "https://fulbright.org", "content": "Graduate scholarships"},
				{"title": "DAAD", "url": "https://daad.de", "content": "Scholarships in Germany"},
			},
		})
	}))
	defer srv.Close()

	tv := NewTavily("key", "advanced", 6, srv.Client())
	tv.endpoint = srv.URL

	results, err := tv.Search(context.Background(), "scholarships for engineers")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "Fulbright Program", results[0].Title)
	require.Equal(t, "https://fulbright.org", results[0].URL)
	require.Equal(t, "Scholarships in Germany", results[1].Snippet)

	require.Equal(t, "key", gotBody["api_key"])
	require.Equal(t, "advanced", gotBody["search_depth"])
	require.Equal(t, "scholarships for engineers", gotBody["query"])
}

func TestTavily_MaxResultsCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{"results": []map[string]string{
			{"title": "a"}, {"title": "b"}, {"title": "c"},
		}}
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	tv := NewTavily("key", "basic", 2, srv.Client())
	tv.endpoint = srv.URL

	results, err := tv.Search(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestTavily_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	tv := NewTavily("key", "", 0, srv.Client())
	tv.endpoint = srv.URL

	_, err := tv.Search(context.Background(), "q")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestTavily_MissingAPIKey(t *testing.T) {
	tv := NewTavily("", "", 0, nil)
	_, err := tv.Search(context.Background(), "q")
	require.Error(t, err)
}

func TestQueries_UseProfileFields(t *testing.T) {
	p := profile.Profile{
		FieldOfStudy:   "Computer Science",
		EducationLevel: "Undergraduate",
		Citizenship:    "Canadian",
		Location:       "Canada",
	}
	queries := Queries(p)
	require.Len(t, queries, 3)
	require.Contains(t, queries[0], "Canadian citizens")
	require.Contains(t, queries[0], "Computer Science")
	require.Contains(t, queries[1], "Canada")
	require.Contains(t, queries[2], "application tips")
}
