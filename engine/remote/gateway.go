package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/compozy/groupops/engine/group"
	"github.com/compozy/groupops/pkg/config"
	"github.com/compozy/groupops/pkg/logger"
)

const (
	pathGroups      = "/sessions/{session}/groups"
	pathParticipant = "/sessions/{session}/groups/{group}/participants/{target}"
	pathAdd         = "/sessions/{session}/groups/{group}/participants"
	pathPromote     = "/sessions/{session}/groups/{group}/participants/{target}/promote"
	pathDemote      = "/sessions/{session}/groups/{group}/participants/{target}/demote"
	pathAdmins      = "/sessions/{session}/groups/{group}/admins"

	roleSuperAdmin = "superadmin"
	roleAdmin      = "admin"
)

// GatewayClient talks to the REST gateway fronting the messaging accounts.
// Retries are owned by the batch executor, so the HTTP client never retries.
type GatewayClient struct {
	client *resty.Client
}

// NewGatewayClient builds a gateway client from configuration.
func NewGatewayClient(cfg *config.GatewayConfig) (*GatewayClient, error) {
	if cfg == nil {
		return nil, errors.New("gateway configuration is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("gateway base_url is required")
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if key := cfg.APIKey.Value(); key != "" {
		client.SetHeader("X-API-Key", key)
	}
	return &GatewayClient{client: client}, nil
}

type participantsRequest struct {
	Participants []string `json:"participants"`
}

type membershipResponse struct {
	Member bool `json:"member"`
}

type adminEntry struct {
	ID    string `json:"id"`
	Admin string `json:"admin"`
}

func (c *GatewayClient) ListGroups(ctx context.Context, session string) ([]group.Group, error) {
	resp, err := c.do(ctx, "list groups", http.MethodGet, pathGroups, params(session, "", ""), nil)
	if err != nil {
		return nil, err
	}
	var groups []group.Group
	if err := decode(resp, &groups); err != nil {
		return nil, &Error{Op: "list groups", Message: err.Error(), Kind: ErrTransient}
	}
	return groups, nil
}

func (c *GatewayClient) IsMember(ctx context.Context, session, groupID, target string) (bool, error) {
	resp, err := c.do(ctx, "check membership", http.MethodGet, pathParticipant, params(session, groupID, target), nil)
	if err != nil {
		var rerr *Error
		if errors.As(err, &rerr) && rerr.Status == http.StatusNotFound {
			return false, nil
		}
		return false, err
	}
	var out membershipResponse
	if err := decode(resp, &out); err != nil {
		return false, &Error{Op: "check membership", Message: err.Error(), Kind: ErrTransient}
	}
	return out.Member, nil
}

func (c *GatewayClient) AddMember(ctx context.Context, session, groupID, target string) error {
	body := participantsRequest{Participants: []string{target}}
	_, err := c.do(ctx, "add member", http.MethodPost, pathAdd, params(session, groupID, ""), body)
	return err
}

func (c *GatewayClient) Promote(ctx context.Context, session, groupID, target string) error {
	_, err := c.do(ctx, "promote", http.MethodPost, pathPromote, params(session, groupID, target), nil)
	return err
}

func (c *GatewayClient) Demote(ctx context.Context, session, groupID, target string) error {
	_, err := c.do(ctx, "demote", http.MethodPost, pathDemote, params(session, groupID, target), nil)
	return err
}

func (c *GatewayClient) ListAdmins(ctx context.Context, session, groupID string) ([]group.Admin, error) {
	resp, err := c.do(ctx, "list admins", http.MethodGet, pathAdmins, params(session, groupID, ""), nil)
	if err != nil {
		return nil, err
	}
	var entries []adminEntry
	if err := decode(resp, &entries); err != nil {
		return nil, &Error{Op: "list admins", Message: err.Error(), Kind: ErrTransient}
	}
	admins := make([]group.Admin, 0, len(entries))
	for _, e := range entries {
		switch e.Admin {
		case roleSuperAdmin:
			admins = append(admins, group.Admin{Key: e.ID, Role: group.RoleOwner})
		case roleAdmin:
			admins = append(admins, group.Admin{Key: e.ID, Role: group.RoleAdmin})
		}
	}
	return admins, nil
}

func params(session, groupID, target string) map[string]string {
	p := map[string]string{"session": session}
	if groupID != "" {
		p["group"] = groupID
	}
	if target != "" {
		p["target"] = target
	}
	return p
}

func (c *GatewayClient) do(
	ctx context.Context,
	op, method, path string,
	pathParams map[string]string,
	body any,
) (*resty.Response, error) {
	log := logger.FromContext(ctx)
	req := c.client.R().SetContext(ctx).SetPathParams(pathParams)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		log.Debug("Gateway request failed", "op", op, "error", err)
		return nil, &Error{Op: op, Message: err.Error(), Kind: ErrTransient}
	}
	if resp.IsError() {
		rerr := &Error{
			Op:      op,
			Status:  resp.StatusCode(),
			Message: errorMessage(resp),
			Kind:    kindForStatus(resp.StatusCode()),
		}
		log.Debug("Gateway returned error", "op", op, "status", rerr.Status, "message", rerr.Message)
		return resp, rerr
	}
	return resp, nil
}

func decode(resp *resty.Response, out any) error {
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage prefers the gateway's JSON message field over the raw body.
func errorMessage(resp *resty.Response) string {
	body := resp.Body()
	for _, path := range []string{"message", "error.message", "error"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return http.StatusText(resp.StatusCode())
}
