package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"debt_flow_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://api", 0)
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
	assert.Empty(t, c.token)

	authed := c.WithToken("tok")
	assert.Equal(t, "tok", authed.token)
	assert.Empty(t, c.token, "WithToken must not mutate the original")
}

func TestCaseListSendsTokenAndQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cases", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "pending", r.URL.Query().Get("status"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "acme", r.URL.Query().Get("search"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"cases":[{"id":"CS-1","caseId":"CS-1","customerName":"Acme","invoiceAmount":100,"recoveredAmount":0,"status":"pending","createdAt":"2024-01-01T00:00:00Z"}],"total":11,"pages":2,"current_page":2}`)
	}))
	defer server.Close()

	api := NewAPI(NewClient(server.URL, time.Second).WithToken("secret-token"))
	list, err := api.Cases.List(context.Background(), models.CaseFilter{
		Status: models.CaseStatusPending, Page: 2, Limit: 10, Search: "acme",
	})

	require.NoError(t, err)
	assert.Equal(t, 11, list.Total)
	require.Len(t, list.Cases, 1)
	assert.Equal(t, "Acme", list.Cases[0].CustomerName)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		target  error
		message string
	}{
		{http.StatusUnauthorized, `{"error":"Unauthorized"}`, ErrUnauthorized, "Unauthorized"},
		{http.StatusForbidden, `{}`, ErrForbidden, ""},
		{http.StatusNotFound, `{"error":"Case not found"}`, ErrNotFound, "Case not found"},
		{http.StatusBadRequest, `{"error":"Missing amount"}`, ErrValidation, "Missing amount"},
		{http.StatusInternalServerError, `boom`, ErrUnavailable, ""},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			api := NewAPI(NewClient(server.URL, time.Second))
			_, err := api.Cases.Get(context.Background(), "CS-404")

			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target))
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewAPI(NewClient(url, time.Second)).Agencies.List(context.Background())
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestStrictDecodingRejectsUnknownFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"a1","name":"Premier","performance_score":0.9}]`)
	}))
	defer server.Close()

	_, err := NewAPI(NewClient(server.URL, time.Second)).Agencies.List(context.Background())
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestStrictDecodingRejectsUnknownEnum(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"e1","timestamp":"2024-01-01T00:00:00Z","from":"fedex","to":"customer","eventType":"manual_update","title":"x","description":"y","metadata":null}]`)
	}))
	defer server.Close()

	_, err := NewAPI(NewClient(server.URL, time.Second)).Cases.Timeline(context.Background(), "CS-1")
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestAssignSendsAgencyID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/cases/CS-7/assign", r.URL.Path)

		var body models.AssignRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "prs", body.AgencyID)

		fmt.Fprint(w, `{"id":"CS-7","caseId":"CS-7","customerName":"Zeta","invoiceAmount":10,"recoveredAmount":0,"status":"assigned","assignedAgency":"Premier","assignedAgencyId":"prs"}`)
	}))
	defer server.Close()

	c, err := NewAPI(NewClient(server.URL, time.Second)).Cases.Assign(context.Background(), "CS-7", "prs")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusAssigned, c.Status)
	assert.Equal(t, "Premier", c.AgencyName())
}

func TestListAllWalksPages(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		page := r.URL.Query().Get("page")
		fmt.Fprintf(w, `{"cases":[{"id":"CS-%s","caseId":"CS-%s","customerName":"c","invoiceAmount":1,"recoveredAmount":0,"status":"pending"}],"total":3,"pages":3,"current_page":%s}`, page, page, page)
	}))
	defer server.Close()

	cases, err := NewAPI(NewClient(server.URL, time.Second)).Cases.ListAll(context.Background(), models.CaseStatusPending, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, cases, 3)
	assert.Equal(t, "CS-3", cases[2].ID)
}

func TestUploadSendsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/actions/upload", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		content, _ := io.ReadAll(file)

		assert.Equal(t, "cases.csv", header.Filename)
		assert.Contains(t, string(content), "invoice_id")

		fmt.Fprint(w, `{"message":"Successfully processed the CSV file.","cases_created":2,"errors":[]}`)
	}))
	defer server.Close()

	res, err := NewAPI(NewClient(server.URL, time.Second)).Actions.Upload(context.Background(), "cases.csv",
		strings.NewReader("invoice_id,account_number,customer_email\nINV-1,ACC-1,a@b.c\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, res.CasesCreated)
}

func TestLoginAndMe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			fmt.Fprint(w, `{"token":"fake-jwt-token-for-u2","user":{"id":"u2","name":"DCA Agent","email":"agent@dca.com","role":"dca"}}`)
		case "/auth/me":
			assert.Equal(t, "Bearer fake-jwt-token-for-u2", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"user":{"id":"u2","name":"DCA Agent","email":"agent@dca.com","role":"dca"}}`)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	res, err := NewAPI(client).Auth.Login(context.Background(), "agent@dca.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAgency, res.User.Role)

	me, err := NewAPI(client.WithToken(res.Token)).Auth.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u2", me.ID)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Case not found", UserMessage(&APIError{Status: 404, Message: "Case not found"}, "fallback"))
	assert.Equal(t, "fallback", UserMessage(&APIError{Status: 500, Message: "trace"}, "fallback"))
	assert.Equal(t, "fallback", UserMessage(errors.New("x"), "fallback"))
}
