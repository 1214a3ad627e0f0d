// Package frameio is the gateway to the Frame.io v2 HTTP API. Every
// outbound call goes through the retry policy, so transient server errors
// and rate limiting never reach callers as failures.
package frameio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/flamepipe/frameio-bridge/internal/retry"
)

const defaultBaseURL = "https://api.frame.io/v2"

// ErrMissingToken indicates the client was constructed without credentials.
var ErrMissingToken = errors.New("frameio: api token is required")

// Options configures the gateway client.
type Options struct {
	Token      string
	AccountID  string
	TeamID     string
	BaseURL    string
	HTTPClient *http.Client
	Retry      retry.Policy
	Logger     zerolog.Logger
}

// Client performs HTTP calls against the review service.
type Client struct {
	token      string
	accountID  string
	teamID     string
	baseURL    string
	httpClient *http.Client
	retry      retry.Policy
	log        zerolog.Logger
}

// New constructs a client. The token is required; everything else has
// usable defaults.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, ErrMissingToken
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	pol := opts.Retry
	if pol.MaxAttempts == 0 {
		pol = retry.NewPolicy()
	}
	return &Client{
		token:      strings.TrimSpace(opts.Token),
		accountID:  opts.AccountID,
		teamID:     opts.TeamID,
		baseURL:    baseURL,
		httpClient: httpClient,
		retry:      pol,
		log:        opts.Logger,
	}, nil
}

// do performs one JSON API call inside the retry policy. body is marshaled
// once; out, when non-nil, receives the decoded response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("frameio: encode request: %w", err)
		}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	return c.retry.Do(ctx, func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("frameio: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("frameio: %s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("frameio: read response: %w", err)
		}
		if resp.StatusCode >= 300 {
			return &APIError{Status: resp.StatusCode, Message: remoteMessage(raw)}
		}
		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("frameio: decode response: %w", err)
			}
		}
		c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("api call")
		return nil
	})
}

// remoteMessage pulls the human-readable message out of an error body.
func remoteMessage(raw []byte) string {
	var detail struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil {
		if detail.Message != "" {
			return detail.Message
		}
		if len(detail.Errors) > 0 {
			return strings.Join(detail.Errors, "; ")
		}
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 160 {
		msg = msg[:160]
	}
	return msg
}

// FindProject looks up a team project by exact name and returns it.
// Archived and deleted projects are excluded. ErrNotFound when absent.
func (c *Client) FindProject(ctx context.Context, name string) (Project, error) {
	query := url.Values{
		"filter[archived]": {"none"},
		"include_deleted":  {"false"},
	}
	var projects []Project
	if err := c.do(ctx, http.MethodGet, "/teams/"+c.teamID+"/projects", query, nil, &projects); err != nil {
		return Project{}, fmt.Errorf("list projects: %w", err)
	}
	for _, p := range projects {
		if p.Type == "project" && p.Name == name {
			c.log.Debug().Str("project", name).Str("id", p.ID).Msg("found project")
			return p, nil
		}
	}
	return Project{}, fmt.Errorf("project %q: %w", name, ErrNotFound)
}

// CreateProject creates a non-private team project.
func (c *Client) CreateProject(ctx context.Context, name string) (Project, error) {
	payload := map[string]any{"name": name, "private": false}
	var p Project
	if err := c.do(ctx, http.MethodPost, "/teams/"+c.teamID+"/projects", nil, payload, &p); err != nil {
		return Project{}, fmt.Errorf("create project %q: %w", name, err)
	}
	c.log.Info().Str("project", name).Str("id", p.ID).Msg("created project")
	return p, nil
}

// CreateFolder creates a folder under the given parent asset.
func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (AssetRef, error) {
	payload := map[string]any{"name": name, "type": TypeFolder}
	var ref AssetRef
	if err := c.do(ctx, http.MethodPost, "/assets/"+parentID+"/children", nil, payload, &ref); err != nil {
		return AssetRef{}, fmt.Errorf("create folder %q: %w", name, err)
	}
	c.log.Info().Str("folder", name).Str("id", ref.ID).Msg("created folder")
	return ref, nil
}

// SearchAssets runs an asset search scoped to the account, team and project.
func (c *Client) SearchAssets(ctx context.Context, q SearchQuery) ([]AssetRef, error) {
	query := url.Values{
		"account_id": {c.accountID},
		"team_id":    {c.teamID},
		"project_id": {q.ProjectID},
		"q":          {q.Text},
	}
	if q.Type != "" {
		query.Set("type", q.Type)
	}
	var refs []AssetRef
	if err := c.do(ctx, http.MethodGet, "/search/assets", query, nil, &refs); err != nil {
		return nil, fmt.Errorf("search assets %q: %w", q.Text, err)
	}
	return refs, nil
}

// FindAssetByName searches for an asset and picks the best match by
// preference: exact name, case-insensitive exact, then partial. assetType
// may be empty to accept any type. ErrNotFound when nothing matches.
func (c *Client) FindAssetByName(ctx context.Context, projectID, name, assetType string) (AssetRef, error) {
	refs, err := c.SearchAssets(ctx, SearchQuery{ProjectID: projectID, Text: name, Type: assetType})
	if err != nil {
		return AssetRef{}, err
	}

	var exact, ciExact, partial *AssetRef
	lower := strings.ToLower(name)
	for i := range refs {
		ref := &refs[i]
		if assetType != "" && ref.Type != assetType {
			continue
		}
		refName := strings.TrimSpace(ref.Name)
		switch {
		case refName == name:
			exact = ref
		case strings.EqualFold(refName, name) && ciExact == nil:
			ciExact = ref
		case strings.Contains(strings.ToLower(refName), lower) && partial == nil:
			partial = ref
		}
		if exact != nil {
			break
		}
	}

	for _, ref := range []*AssetRef{exact, ciExact, partial} {
		if ref != nil {
			c.log.Debug().Str("name", name).Str("id", ref.ID).Str("type", ref.Type).Msg("matched asset")
			return *ref, nil
		}
	}
	return AssetRef{}, fmt.Errorf("asset %q: %w", name, ErrNotFound)
}

// GetAsset fetches one asset by ID.
func (c *Client) GetAsset(ctx context.Context, assetID string) (AssetRef, error) {
	var detail assetDetail
	if err := c.do(ctx, http.MethodGet, "/assets/"+assetID, nil, nil, &detail); err != nil {
		return AssetRef{}, fmt.Errorf("get asset %s: %w", assetID, err)
	}
	return detail.AssetRef, nil
}

// GetLabel returns the status label of an asset ("" when unset).
func (c *Client) GetLabel(ctx context.Context, assetID string) (string, error) {
	ref, err := c.GetAsset(ctx, assetID)
	if err != nil {
		return "", err
	}
	return ref.Label, nil
}

// SetLabel sets the status label of an asset.
func (c *Client) SetLabel(ctx context.Context, assetID, label string) error {
	payload := map[string]any{"label": label}
	if err := c.do(ctx, http.MethodPut, "/assets/"+assetID, nil, payload, nil); err != nil {
		return fmt.Errorf("set label on %s: %w", assetID, err)
	}
	c.log.Info().Str("asset", assetID).Str("label", label).Msg("set status label")
	return nil
}

// ListComments fetches an asset's comments, including replies and the
// commenter identity.
func (c *Client) ListComments(ctx context.Context, assetID string) ([]Comment, error) {
	query := url.Values{
		"include":   {"replies,user"},
		"page_size": {"500"},
	}
	var comments []Comment
	if err := c.do(ctx, http.MethodGet, "/assets/"+assetID+"/comments", query, nil, &comments); err != nil {
		return nil, fmt.Errorf("list comments for %s: %w", assetID, err)
	}
	c.log.Debug().Str("asset", assetID).Int("count", len(comments)).Msg("fetched comments")
	return comments, nil
}

// ResolveStackRoot walks from any asset up to its version-stack root so
// AddVersion is never pointed at a child version (which the service rejects
// with 422). Assets outside a stack resolve to themselves; lookup failures
// fall back to the original ID so behavior is unchanged.
func (c *Client) ResolveStackRoot(ctx context.Context, assetID string) string {
	var detail assetDetail
	if err := c.do(ctx, http.MethodGet, "/assets/"+assetID, nil, nil, &detail); err != nil {
		c.log.Warn().Err(err).Str("asset", assetID).Msg("could not resolve stack root")
		return assetID
	}
	if detail.Type == TypeVersionStack && !detail.IsVersioned {
		return assetID
	}
	if detail.VersionStack != nil && detail.VersionStack.ID != "" {
		return detail.VersionStack.ID
	}
	if detail.OriginalAssetID != "" {
		return detail.OriginalAssetID
	}
	return assetID
}

// AddVersion links a newly uploaded asset onto an existing asset's version
// stack, creating the stack if the base asset was not versioned yet.
func (c *Client) AddVersion(ctx context.Context, assetID, nextAssetID string) error {
	payload := map[string]any{"next_asset_id": nextAssetID}
	if err := c.do(ctx, http.MethodPost, "/assets/"+assetID+"/version", nil, payload, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 422 {
			// Usually means the base asset is itself a version, or is not a
			// stackable video asset.
			c.log.Warn().Str("asset", assetID).Str("next", nextAssetID).Msg("version stack rejected (422)")
		}
		return fmt.Errorf("version %s onto %s: %w", nextAssetID, assetID, err)
	}
	c.log.Info().Str("asset", assetID).Str("next", nextAssetID).Msg("added to version stack")
	return nil
}
