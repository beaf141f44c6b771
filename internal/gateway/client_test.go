package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

type fakeCredentials struct {
	mu        sync.Mutex
	token     string
	teardowns int
}

func (f *fakeCredentials) Token(context.Context) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeCredentials) Teardown(context.Context, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = ""
	f.teardowns++
}

func newTestClient(t *testing.T, handler http.HandlerFunc, creds Credentials) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Options{BaseURL: server.URL + "/", APIPrefix: "api"}, creds)
}

func TestListTickets_Envelope(t *testing.T) {
	creds := &fakeCredentials{token: "tok-123"}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tickets/all", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		_, _ = io.WriteString(w, `{
			"text_tickets": [
				{"id": 1, "subject": "VPN down", "body": "cannot connect", "ticket_type": "Software", "priority": "HIGH",
				 "resolution": "Reinstall client", "admin_solution": null, "created_at": "2024-05-01 10:00:00.123456"}
			],
			"ocr_tickets": [
				{"id": "66a1f", "subject": "Printer", "body": "jam", "ticket_type": "hardware", "priority": "urgent",
				 "resolution": null, "admin_solution": "Replaced tray", "image_url": "http://img", "created_at": "2024-05-02T08:30:00Z"}
			],
			"total": 2
		}`)
	}, creds)

	tickets, err := client.ListTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 2)

	assert.Equal(t, "1", tickets[0].ID)
	assert.Equal(t, domain.TicketSourceText, tickets[0].Source)
	assert.Equal(t, domain.TicketTypeSoftware, tickets[0].Type)
	assert.Equal(t, domain.TicketPriorityHigh, tickets[0].Priority)
	assert.Equal(t, "Reinstall client", tickets[0].AIResolution)
	assert.Equal(t, "", tickets[0].AdminSolution)
	assert.Equal(t, 2024, tickets[0].CreatedAt.Year())

	assert.Equal(t, "66a1f", tickets[1].ID)
	assert.Equal(t, domain.TicketSourceImage, tickets[1].Source)
	assert.Equal(t, domain.TicketPriorityMedium, tickets[1].Priority, "unknown priority falls back to medium")
	assert.Equal(t, "Replaced tray", tickets[1].AdminSolution)
	assert.Equal(t, time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC), tickets[1].CreatedAt)
}

func TestListTickets_FlatArrayAndDedup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"id": 7, "subject": "a", "body": "b"},
			{"id": "7", "subject": "dup", "body": "b"},
			{"subject": "no id", "body": "b"},
			{"id": 8, "subject": "c", "body": "d", "ticket_type": null, "priority": null, "is_resolved": true}
		]`)
	}, nil)

	tickets, err := client.ListTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "a", tickets[0].Subject)
	assert.Equal(t, "8", tickets[1].ID)
	assert.Equal(t, domain.TicketTypeGeneral, tickets[1].Type)
	assert.Equal(t, domain.TicketPriorityMedium, tickets[1].Priority)
	assert.True(t, tickets[1].IsResolved)
}

func TestListTickets_UnexpectedShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `"ok"`)
	}, nil)

	_, err := client.ListTickets(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeServer))
}

func TestListTickets_ObjectWithoutEnvelopeKeys(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"tickets":[{"id":1,"subject":"a","body":"b"}]}`)
	}, nil)

	tickets, err := client.ListTickets(context.Background())
	require.Error(t, err)
	assert.Nil(t, tickets)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeServer))
	assert.Contains(t, err.Error(), "unexpected ticket list response")
}

func TestListTickets_EnvelopeWithOneKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"ocr_tickets":[{"id":3,"subject":"scan","body":"text"}]}`)
	}, nil)

	tickets, err := client.ListTickets(context.Background())
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, domain.TicketSourceImage, tickets[0].Source)
}

func TestUnauthorizedTearsDownCredentials(t *testing.T) {
	creds := &fakeCredentials{token: "expired"}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail": "Could not validate credentials"}`)
	}, creds)

	_, err := client.ListTickets(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, "Could not validate credentials", apperrors.ToDomainError(err).Message)
	assert.Equal(t, 1, creds.teardowns)
	assert.Equal(t, "", creds.Token(context.Background()))
}

func TestErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   string
		msg    string
	}{
		{"Validation", http.StatusUnprocessableEntity, `{"detail":[{"msg":"field required"},{"msg":"value is not a valid email"}]}`, apperrors.CodeValidation, "field required; value is not a valid email"},
		{"BadRequest", http.StatusBadRequest, `{"detail":"Username already registered"}`, apperrors.CodeValidation, "Username already registered"},
		{"Forbidden", http.StatusForbidden, `{"detail":"admins only"}`, apperrors.CodeForbidden, "admins only"},
		{"NotFound", http.StatusNotFound, ``, apperrors.CodeNotFound, "resource not found"},
		{"Server", http.StatusInternalServerError, `Internal Server Error`, apperrors.CodeServer, "Internal Server Error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}, nil)
			_, err := client.SubmitTextTicket(context.Background(), domain.TextTicketInput{Subject: "Hello", Body: "long enough body"})
			require.Error(t, err)
			de := apperrors.ToDomainError(err)
			assert.Equal(t, tc.code, de.Code)
			assert.Equal(t, tc.msg, de.Message)
		})
	}
}

func TestNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := New(Options{BaseURL: url, Timeout: time.Second}, nil)
	_, err := client.ListTickets(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNetwork))
}

func TestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := New(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := client.ListTickets(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNetwork))
}

func TestSubmitTextTicket(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tickets/submit", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Laptop fan", payload["subject"])
		assert.Equal(t, "Fan is very loud all day", payload["body"])
		_, hasNote := payload["admin_solution"]
		assert.False(t, hasNote, "blank notes are omitted")

		_, _ = io.WriteString(w, `{"subject":"Laptop fan","body":"Fan is very loud all day","ticket_type":"hardware","priority":"low","resolution":"Clean the vents"}`)
	}, &fakeCredentials{token: "t"})

	ticket, err := client.SubmitTextTicket(context.Background(), domain.TextTicketInput{
		Subject:       "Laptop fan",
		Body:          "Fan is very loud all day",
		AdminSolution: "   ",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketTypeHardware, ticket.Type)
	assert.Equal(t, domain.TicketPriorityLow, ticket.Priority)
	assert.Equal(t, "Clean the vents", ticket.AIResolution)
	assert.Equal(t, "", ticket.ID)
}

func TestSubmitImageTicket(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ocr/submit-image", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Blue screen", r.FormValue("subject"))
		assert.Equal(t, "See screenshot", r.FormValue("body"))
		assert.Equal(t, "Tried reboot", r.FormValue("admin_solution"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "bsod.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

		_, _ = io.WriteString(w, `{"subject":"Blue screen","body":"See screenshot STOP 0x0000007B","ticket_type":"software","priority":"high","resolution":"Update storage driver"}`)
	}, nil)

	ticket, err := client.SubmitImageTicket(context.Background(), domain.ImageTicketInput{
		Subject:       "Blue screen",
		Body:          "See screenshot",
		AdminSolution: "Tried reboot",
		Image:         &domain.ImageUpload{FileName: "bsod.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketSourceImage, ticket.Source)
	assert.Equal(t, "See screenshot STOP 0x0000007B", ticket.Body)
}

func TestUpdateAdminSolution(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/tickets/42/admin-solution", r.URL.Path)
		var payload adminSolutionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Restart router", payload.AdminSolution)
		_, _ = io.WriteString(w, `{"subject":"s","body":"b","admin_solution":"Restart router"}`)
	}, &fakeCredentials{token: "t"})

	ticket, err := client.UpdateAdminSolution(context.Background(), "42", "Restart router")
	require.NoError(t, err)
	require.NotNil(t, ticket)
	assert.Equal(t, "42", ticket.ID)
	assert.Equal(t, "Restart router", ticket.AdminSolution)

	_, err = client.UpdateAdminSolution(context.Background(), " ", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestLogin(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		creds := &fakeCredentials{token: "old"}
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/login", r.URL.Path)
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			assert.Empty(t, r.Header.Get("Authorization"), "login is anonymous")
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "alice@example.com", r.PostForm.Get("username"))
			assert.Equal(t, "secret", r.PostForm.Get("password"))
			_, _ = io.WriteString(w, `{"access_token":"jwt","role":" Admin ","username":"alice","token_type":"bearer"}`)
		}, creds)

		result, err := client.Login(context.Background(), domain.Credentials{Username: "alice@example.com", Password: "secret"})
		require.NoError(t, err)
		assert.Equal(t, "jwt", result.AccessToken)
		assert.Equal(t, "admin", result.Role)
		assert.Equal(t, "alice", result.Username)
	})

	t.Run("MissingFields", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"access_token":"jwt"}`)
		}, nil)
		_, err := client.Login(context.Background(), domain.Credentials{Username: "a", Password: "b"})
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	})
}

func TestSignupAndCurrentUser(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/signup":
			var payload domain.Signup
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, domain.RoleUser, payload.Role)
			_, _ = io.WriteString(w, `{"access_token":"jwt","role":"user","username":"bob"}`)
		case "/auth/me":
			assert.Equal(t, "Bearer jwt", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"id": 3, "username":"bob","email":"bob@example.com","role":"USER"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, &fakeCredentials{token: "jwt"})

	result, err := client.Signup(context.Background(), domain.Signup{Username: "bob", Email: "bob@example.com", Password: "pw", Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, "bob", result.Username)

	me, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3", me.ID)
	assert.Equal(t, domain.RoleUser, me.Role)
}

func TestWithCredentials(t *testing.T) {
	var seen string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("Authorization")
		_, _ = io.WriteString(w, `[]`)
	}, &fakeCredentials{token: "first"})

	other := client.WithCredentials(&fakeCredentials{token: "second"})
	_, err := other.ListTickets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer second", seen)
}
