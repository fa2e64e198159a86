package tableau

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const restAPIVersion = "3.22"

// RESTConfig carries everything needed to reach a Tableau server. A personal
// access token wins when both the PAT pair and a connected app are set.
type RESTConfig struct {
	ServerURL string
	Site      string
	Workbook  string
	Username  string

	PATName   string
	PATSecret string

	ClientID    string
	SecretID    string
	SecretValue string
}

// RESTHost reads dashboard data over the Tableau REST API: worksheets are
// the views of the configured workbook and summary data is the view's CSV
// export. IgnoreSelection is accepted and ignored; the REST surface carries
// no browser selection state.
type RESTHost struct {
	cfg        RESTConfig
	httpClient *http.Client

	mu      sync.Mutex
	token   string
	siteID  string
	viewIDs map[string]string
}

func NewRESTHost(cfg RESTConfig) *RESTHost {
	return &RESTHost{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		viewIDs:    make(map[string]string),
	}
}

func (h *RESTHost) Initialize(ctx context.Context) (*Dashboard, error) {
	if err := h.signIn(ctx); err != nil {
		return nil, err
	}

	views, err := h.listWorkbookViews(ctx)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return &Dashboard{Name: h.cfg.Workbook}, nil
	}

	dash := &Dashboard{Name: h.cfg.Workbook}
	h.mu.Lock()
	for _, v := range views {
		dash.Worksheets = append(dash.Worksheets, Worksheet{Name: v.name})
		h.viewIDs[v.name] = v.id
	}
	h.mu.Unlock()

	return dash, nil
}

func (h *RESTHost) FetchSummary(ctx context.Context, worksheet string, opts SummaryOptions) (*SummaryTable, error) {
	h.mu.Lock()
	viewID, ok := h.viewIDs[worksheet]
	h.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("view %q is not part of workbook %q", worksheet, h.cfg.Workbook)
	}

	resp, err := h.viewData(ctx, viewID)
	if err != nil {
		return nil, err
	}

	// Session tokens expire server-side; one re-sign-in then one retry.
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := h.signIn(ctx); err != nil {
			return nil, fmt.Errorf("re-authentication failed: %w", err)
		}
		resp, err = h.viewData(ctx, viewID)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("fetch view data", resp)
	}

	return parseViewCSV(resp.Body, opts.MaxRows)
}

func (h *RESTHost) viewData(ctx context.Context, viewID string) (*http.Response, error) {
	endpoint := fmt.Sprintf("%s/api/%s/sites/%s/views/%s/data",
		strings.TrimRight(h.cfg.ServerURL, "/"), restAPIVersion, h.siteIDSnapshot(), viewID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tableau-Auth", h.tokenSnapshot())

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch view data: %w", err)
	}
	return resp, nil
}

type workbookView struct {
	id   string
	name string
}

func (h *RESTHost) listWorkbookViews(ctx context.Context) ([]workbookView, error) {
	query := url.Values{"filter": {"workbookName:eq:" + h.cfg.Workbook}}
	endpoint := fmt.Sprintf("%s/api/%s/sites/%s/views?%s",
		strings.TrimRight(h.cfg.ServerURL, "/"), restAPIVersion, h.siteIDSnapshot(), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Tableau-Auth", h.tokenSnapshot())

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("list views", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read views response: %w", err)
	}

	var views []workbookView
	gjson.GetBytes(body, "views.view").ForEach(func(_, v gjson.Result) bool {
		views = append(views, workbookView{
			id:   v.Get("id").String(),
			name: v.Get("name").String(),
		})
		return true
	})

	return views, nil
}

type signInRequest struct {
	Credentials signInCredentials `json:"credentials"`
}

type signInCredentials struct {
	PersonalAccessTokenName   string     `json:"personalAccessTokenName,omitempty"`
	PersonalAccessTokenSecret string     `json:"personalAccessTokenSecret,omitempty"`
	JWT                       string     `json:"jwt,omitempty"`
	Site                      signInSite `json:"site"`
}

type signInSite struct {
	ContentURL string `json:"contentUrl"`
}

func (h *RESTHost) signIn(ctx context.Context) error {
	creds := signInCredentials{Site: signInSite{ContentURL: h.cfg.Site}}

	switch {
	case h.cfg.PATName != "" && h.cfg.PATSecret != "":
		creds.PersonalAccessTokenName = h.cfg.PATName
		creds.PersonalAccessTokenSecret = h.cfg.PATSecret
	case h.cfg.ClientID != "":
		token, err := h.connectedAppJWT()
		if err != nil {
			return fmt.Errorf("failed to build connected-app JWT: %w", err)
		}
		creds.JWT = token
	default:
		return fmt.Errorf("no Tableau credentials configured (set a PAT pair or a connected app)")
	}

	payload, err := json.Marshal(signInRequest{Credentials: creds})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/api/%s/auth/signin", strings.TrimRight(h.cfg.ServerURL, "/"), restAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sign-in request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError("sign in", resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read sign-in response: %w", err)
	}

	token := gjson.GetBytes(body, "credentials.token").String()
	siteID := gjson.GetBytes(body, "credentials.site.id").String()
	if token == "" || siteID == "" {
		return fmt.Errorf("sign-in response missing token or site id")
	}

	h.mu.Lock()
	h.token = token
	h.siteID = siteID
	h.mu.Unlock()

	return nil
}

// connectedAppJWT builds the short-lived HS256 token for Connected App
// (direct trust) sign-in: kid is the secret id, iss the client id, and the
// scopes cover view reads.
func (h *RESTHost) connectedAppJWT() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": h.cfg.ClientID,
		"sub": h.cfg.Username,
		"aud": "tableau",
		"jti": uuid.New().String(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"iat": now.Unix(),
		"scp": []string{"tableau:content:read", "tableau:views:download"},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = h.cfg.SecretID
	token.Header["iss"] = h.cfg.ClientID

	return token.SignedString([]byte(h.cfg.SecretValue))
}

func (h *RESTHost) tokenSnapshot() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token
}

func (h *RESTHost) siteIDSnapshot() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.siteID
}

// parseViewCSV reads the CSV export of a view. The first record is the
// header row; data rows are capped at maxRows. The export carries display
// text only, so numeric-looking cells become float64 values and everything
// else stays a plain string with no separate formatted value.
func parseViewCSV(r io.Reader, maxRows int) (*SummaryTable, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return &SummaryTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse view data CSV: %w", err)
	}

	table := &SummaryTable{}
	for _, name := range header {
		table.Columns = append(table.Columns, Column{FieldName: name})
	}

	for {
		if maxRows > 0 && len(table.Rows) >= maxRows {
			break
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse view data CSV: %w", err)
		}

		cells := make([]Cell, len(record))
		for i, raw := range record {
			if f, parseErr := strconv.ParseFloat(raw, 64); parseErr == nil {
				cells[i] = Cell{Value: f}
			} else {
				cells[i] = Cell{Value: raw}
			}
		}
		table.Rows = append(table.Rows, cells)
	}

	return table, nil
}

func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		return fmt.Errorf("%s: server returned status %d", op, resp.StatusCode)
	}
	return fmt.Errorf("%s: server returned status %d: %s", op, resp.StatusCode, detail)
}
