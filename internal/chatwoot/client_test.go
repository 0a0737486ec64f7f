package chatwoot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/contactbridge/contactbridge/internal/upstream"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	return NewClient(Options{
		BaseURL:    server.URL + "/",
		APIToken:   "cw-token",
		AccountID:  "3",
		HTTPClient: server.Client(),
	})
}

func TestClient_FetchContact(t *testing.T) {
	var gotPath, gotToken string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("api_access_token")
		_, _ = w.Write([]byte(`{"payload":{"id":42,"name":"Jane","email":"jane@example.com"}}`))
	})

	record, err := client.FetchContact(context.Background(), "42")
	if err != nil {
		t.Fatalf("FetchContact() error = %v", err)
	}
	if gotPath != "/api/v1/accounts/3/contacts/42" {
		t.Errorf("path = %q", gotPath)
	}
	if gotToken != "cw-token" {
		t.Errorf("api_access_token = %q", gotToken)
	}
	if record.ID != "42" || record.Email == nil || *record.Email != "jane@example.com" {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestClient_FetchConversation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/accounts/3/conversations/7" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":7,"contact":{"id":42}}`))
	})

	record, err := client.FetchConversation(context.Background(), "7")
	if err != nil {
		t.Fatalf("FetchConversation() error = %v", err)
	}
	if got := record.ResolveContactID(); got != "42" {
		t.Errorf("ResolveContactID() = %q, want 42", got)
	}
}

func TestClient_NotFoundIsAbsent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Resource could not be found"}`))
	})

	contact, err := client.FetchContact(context.Background(), "1")
	if err != nil || contact != nil {
		t.Errorf("FetchContact() = %v, %v; want nil, nil", contact, err)
	}

	conversation, err := client.FetchConversation(context.Background(), "1")
	if err != nil || conversation != nil {
		t.Errorf("FetchConversation() = %v, %v; want nil, nil", conversation, err)
	}
}

func TestClient_UpstreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"You need to sign in or sign up before continuing."}`))
	})

	_, err := client.FetchContact(context.Background(), "1")

	var upErr *upstream.Error
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *upstream.Error, got %v", err)
	}
	if upErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d", upErr.Status)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	tests := []struct {
		name string
		opts Options
	}{
		{"missing url", Options{APIToken: "t"}},
		{"missing token", Options{BaseURL: server.URL}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.opts)
			if client.Configured() {
				t.Error("Configured() should be false")
			}
			if _, err := client.FetchContact(context.Background(), "1"); !errors.Is(err, upstream.ErrNotConfigured) {
				t.Errorf("FetchContact: expected ErrNotConfigured, got %v", err)
			}
			if _, err := client.FetchConversation(context.Background(), "1"); !errors.Is(err, upstream.ErrNotConfigured) {
				t.Errorf("FetchConversation: expected ErrNotConfigured, got %v", err)
			}
		})
	}

	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no network calls, got %d", calls)
	}
}

func TestConversationRecord_ResolveContactID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want ID
	}{
		{"nested wins", `{"contact":{"id":42},"contact_id":9}`, "42"},
		{"flat", `{"contact_id":9}`, "9"},
		{"meta sender", `{"meta":{"sender":{"id":11}}}`, "11"},
		{"string id", `{"contact":{"id":"42"}}`, "42"},
		{"nested null falls through", `{"contact":{"id":null},"contact_id":9}`, "9"},
		{"none", `{"id":7}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var record ConversationRecord
			if err := json.Unmarshal([]byte(tt.body), &record); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := record.ResolveContactID(); got != tt.want {
				t.Errorf("ResolveContactID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestID_MarshalJSON(t *testing.T) {
	tests := []struct {
		id   ID
		want string
	}{
		{"42", `42`},
		{"", `null`},
		{"abc", `"abc"`},
	}

	for _, tt := range tests {
		got, err := json.Marshal(tt.id)
		if err != nil {
			t.Fatalf("Marshal(%q): %v", tt.id, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal(%q) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestContactRecord_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantID   ID
		wantName string
	}{
		{"bare", `{"id":1,"name":"A"}`, "1", "A"},
		{"envelope", `{"payload":{"id":2,"name":"B"}}`, "2", "B"},
		{"array payload ignored", `{"id":3,"name":"C","payload":[]}`, "3", "C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var record ContactRecord
			if err := json.Unmarshal([]byte(tt.body), &record); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if record.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", record.ID, tt.wantID)
			}
			if record.Name == nil || *record.Name != tt.wantName {
				t.Errorf("Name = %v, want %q", record.Name, tt.wantName)
			}
		})
	}
}
