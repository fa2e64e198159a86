package tableau

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

// fakeTableauServer emulates the sign-in, views, and view-data endpoints of
// a Tableau server.
type fakeTableauServer struct {
	t            *testing.T
	signIns      int
	dataRequests int
	expireFirst  bool
	csv          string
}

func (f *fakeTableauServer) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/3.22/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		f.signIns++

		var req signInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			f.t.Errorf("Sign-in body did not decode: %v", err)
		}
		if req.Credentials.PersonalAccessTokenName == "" && req.Credentials.JWT == "" {
			f.t.Errorf("Sign-in request carried no credentials")
		}
		if req.Credentials.Site.ContentURL != "acme" {
			f.t.Errorf("Expected site contentUrl 'acme', got %q", req.Credentials.Site.ContentURL)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"credentials":{"site":{"id":"site-1","contentUrl":"acme"},"token":"token-%d"}}`, f.signIns)
	})

	mux.HandleFunc("/api/3.22/sites/site-1/views", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("filter"); got != "workbookName:eq:Analytics" {
			f.t.Errorf("Unexpected views filter %q", got)
		}
		if r.Header.Get("X-Tableau-Auth") == "" {
			f.t.Errorf("Views request missing auth token")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"views":{"view":[
			{"id":"v1","name":"Sales"},
			{"id":"v2","name":"Orders"},
			{"id":"v3","name":"Returns"}
		]}}`))
	})

	mux.HandleFunc("/api/3.22/sites/site-1/views/v1/data", func(w http.ResponseWriter, r *http.Request) {
		f.dataRequests++
		if f.expireFirst && r.Header.Get("X-Tableau-Auth") == "token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(f.csv))
	})

	return mux
}

func newTestRESTHost(t *testing.T, fake *fakeTableauServer) (*RESTHost, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	host := NewRESTHost(RESTConfig{
		ServerURL: srv.URL,
		Site:      "acme",
		Workbook:  "Analytics",
		PATName:   "ci-token",
		PATSecret: "secret",
	})
	return host, srv
}

func TestRESTHostInitialize(t *testing.T) {
	fake := &fakeTableauServer{t: t}
	host, _ := newTestRESTHost(t, fake)

	dash, err := host.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if dash.Name != "Analytics" {
		t.Errorf("Expected dashboard name 'Analytics', got %q", dash.Name)
	}
	want := []string{"Sales", "Orders", "Returns"}
	if len(dash.Worksheets) != len(want) {
		t.Fatalf("Expected %d worksheets, got %d", len(want), len(dash.Worksheets))
	}
	for i, name := range want {
		if dash.Worksheets[i].Name != name {
			t.Errorf("Worksheet %d: expected %q, got %q", i, name, dash.Worksheets[i].Name)
		}
	}
	if fake.signIns != 1 {
		t.Errorf("Expected exactly one sign-in, got %d", fake.signIns)
	}
}

func TestRESTHostFetchSummary(t *testing.T) {
	fake := &fakeTableauServer{t: t, csv: "Region,Amount\nWest,500\nEast,120.5\nNorth,n/a\n"}
	host, _ := newTestRESTHost(t, fake)

	if _, err := host.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	table, err := host.FetchSummary(context.Background(), "Sales", SummaryOptions{MaxRows: 1000})
	if err != nil {
		t.Fatalf("FetchSummary failed: %v", err)
	}

	if len(table.Columns) != 2 || table.Columns[0].FieldName != "Region" {
		t.Fatalf("Unexpected columns: %v", table.Columns)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(table.Rows))
	}

	if table.Rows[0][1].Value != float64(500) {
		t.Errorf("Expected numeric cell float64(500), got %v (type %T)", table.Rows[0][1].Value, table.Rows[0][1].Value)
	}
	if table.Rows[2][1].Value != "n/a" {
		t.Errorf("Expected non-numeric cell to stay a string, got %v", table.Rows[2][1].Value)
	}
	if table.Rows[0][0].FormattedValue != nil {
		t.Errorf("REST cells should carry no formatted value")
	}
}

func TestRESTHostFetchSummaryMaxRows(t *testing.T) {
	fake := &fakeTableauServer{t: t, csv: "A\n1\n2\n3\n4\n5\n"}
	host, _ := newTestRESTHost(t, fake)

	if _, err := host.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	table, err := host.FetchSummary(context.Background(), "Sales", SummaryOptions{MaxRows: 2})
	if err != nil {
		t.Fatalf("FetchSummary failed: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Errorf("Expected MaxRows to cap at 2 rows, got %d", len(table.Rows))
	}
}

func TestRESTHostFetchSummaryReauthsOnce(t *testing.T) {
	fake := &fakeTableauServer{t: t, expireFirst: true, csv: "A\n1\n"}
	host, _ := newTestRESTHost(t, fake)

	if _, err := host.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	table, err := host.FetchSummary(context.Background(), "Sales", SummaryOptions{MaxRows: 10})
	if err != nil {
		t.Fatalf("FetchSummary failed after re-auth: %v", err)
	}
	if len(table.Rows) != 1 {
		t.Errorf("Expected 1 row after retry, got %d", len(table.Rows))
	}
	if fake.signIns != 2 {
		t.Errorf("Expected a second sign-in after 401, got %d", fake.signIns)
	}
	if fake.dataRequests != 2 {
		t.Errorf("Expected exactly one retry, got %d data requests", fake.dataRequests)
	}
}

func TestRESTHostFetchSummaryUnknownView(t *testing.T) {
	fake := &fakeTableauServer{t: t}
	host, _ := newTestRESTHost(t, fake)

	if _, err := host.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if _, err := host.FetchSummary(context.Background(), "Imaginary", SummaryOptions{}); err == nil {
		t.Fatalf("Expected error for view outside the workbook")
	}
}

func TestRESTHostNoCredentials(t *testing.T) {
	host := NewRESTHost(RESTConfig{ServerURL: "http://example.invalid", Site: "acme", Workbook: "Analytics"})
	if _, err := host.Initialize(context.Background()); err == nil {
		t.Fatalf("Expected error when no credentials are configured")
	}
}

func TestConnectedAppJWT(t *testing.T) {
	host := NewRESTHost(RESTConfig{
		ServerURL:   "http://example.invalid",
		Site:        "acme",
		Workbook:    "Analytics",
		Username:    "analyst@example.com",
		ClientID:    "client-1",
		SecretID:    "secret-id-1",
		SecretValue: "super-secret",
	})

	signed, err := host.connectedAppJWT()
	if err != nil {
		t.Fatalf("connectedAppJWT failed: %v", err)
	}

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte("super-secret"), nil
	}, jwt.WithAudience("tableau"))
	if err != nil || !token.Valid {
		t.Fatalf("Generated JWT did not verify: %v", err)
	}

	if kid, _ := token.Header["kid"].(string); kid != "secret-id-1" {
		t.Errorf("Expected kid 'secret-id-1', got %q", kid)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("Expected map claims")
	}
	if claims["iss"] != "client-1" {
		t.Errorf("Expected iss 'client-1', got %v", claims["iss"])
	}
	if claims["sub"] != "analyst@example.com" {
		t.Errorf("Expected sub 'analyst@example.com', got %v", claims["sub"])
	}

	scopes, ok := claims["scp"].([]interface{})
	if !ok || len(scopes) == 0 {
		t.Fatalf("Expected scp claim with scopes, got %v", claims["scp"])
	}
	joined := make([]string, len(scopes))
	for i, s := range scopes {
		joined[i], _ = s.(string)
	}
	if !strings.Contains(strings.Join(joined, " "), "tableau:views:download") {
		t.Errorf("Expected view download scope, got %v", joined)
	}
}
