package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coachpo/rosterview/errs"
	"github.com/coachpo/rosterview/internal/schema"
	"github.com/coachpo/rosterview/internal/viewstate"
)

func listParams() viewstate.Params {
	s := viewstate.Default()
	s.Page = 2
	s.PageSize = 25
	s.DebouncedQuery = "ada"
	s.Status = viewstate.StatusActive
	s.SortBy = "name"
	s.SortOrder = viewstate.SortDesc
	return s.Params()
}

func TestListUsersBuildsWireQuery(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"users":[{"id":"u-1","name":"Ada","status":"active"}],"totalCount":31}}`)
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	page, err := client.ListUsers(context.Background(), listParams())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}

	want := map[string]string{
		"page":      "3",
		"pageSize":  "25",
		"query":     "ada",
		"status":    "active",
		"sortBy":    "name",
		"sortOrder": "desc",
	}
	for key, value := range want {
		if gotQuery[key] != value {
			t.Errorf("query %s = %q, want %q", key, gotQuery[key], value)
		}
	}
	if page.TotalCount != 31 || len(page.Users) != 1 || page.Users[0].ID != "u-1" {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestListUsersOmitsDefaultFilters(t *testing.T) {
	var rawQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"data":{"users":[],"totalCount":0}}`)
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL})
	if _, err := client.ListUsers(context.Background(), viewstate.Default().Params()); err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if rawQuery != "page=1&pageSize=10" {
		t.Fatalf("expected only pagination on the wire, got %q", rawQuery)
	}
}

func TestListUsersClassifiesServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"maintenance"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL})
	_, err := client.ListUsers(context.Background(), viewstate.Default().Params())
	if errs.CodeOf(err) != errs.CodeServer {
		t.Fatalf("expected server_error, got %v", err)
	}
}

func TestListUsersClassifiesClientRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad page"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL})
	_, err := client.ListUsers(context.Background(), viewstate.Default().Params())
	if errs.CodeOf(err) != errs.CodeClientRejected {
		t.Fatalf("expected client_rejected, got %v", err)
	}
	var envelope *errs.E
	if !errors.As(err, &envelope) || envelope.Message != "bad page" {
		t.Fatalf("expected server message preserved, got %v", err)
	}
}

func TestNonJSONErrorBodyDoesNotCrash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "<html>upstream burped</html>")
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL})
	_, err := client.ListUsers(context.Background(), viewstate.Default().Params())
	if errs.CodeOf(err) != errs.CodeServer {
		t.Fatalf("expected server_error for 502, got %v", err)
	}
}

func TestEmptyErrorBodyDoesNotCrash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL})
	_, err := client.ListUsers(context.Background(), viewstate.Default().Params())
	if errs.CodeOf(err) != errs.CodeServer {
		t.Fatalf("expected server_error for empty 500 body, got %v", err)
	}
}

func TestMalformedSuccessBodyClassifiesParse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"users":`)
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL})
	_, err := client.ListUsers(context.Background(), viewstate.Default().Params())
	if errs.CodeOf(err) != errs.CodeParse {
		t.Fatalf("expected parse failure, got %v", err)
	}
}

func TestTimeoutClassifiesTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := client.ListUsers(context.Background(), viewstate.Default().Params())
	if errs.CodeOf(err) != errs.CodeTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestUpdateUserStatus(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"u-2","name":"Lin","status":"inactive"},"message":"ok"}`)
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL})
	user, err := client.UpdateUserStatus(context.Background(), "u-2", schema.StatusInactive)
	if err != nil {
		t.Fatalf("UpdateUserStatus() error = %v", err)
	}

	if gotMethod != http.MethodPatch {
		t.Errorf("method = %q, want PATCH", gotMethod)
	}
	if gotPath != "/collection/u-2" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != `{"status":"inactive"}` {
		t.Errorf("body = %q", gotBody)
	}
	if user.ID != "u-2" || user.Status != schema.StatusInactive {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestUpdateUserStatusUnsuccessfulEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":false,"message":"user is locked"}`)
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL})
	_, err := client.UpdateUserStatus(context.Background(), "u-2", schema.StatusInactive)
	if errs.CodeOf(err) != errs.CodeClientRejected {
		t.Fatalf("expected client_rejected for declined patch, got %v", err)
	}
}
