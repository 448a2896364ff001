package auralis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// ManageService administers projects: keys, members, scopes, invitations,
// usage and billing balances.
type ManageService struct {
	client *Client
}

func projectPath(projectID string, parts ...string) string {
	p := "/v1/projects/" + url.PathEscape(projectID)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

func (s *ManageService) get(ctx context.Context, path, endpoint string, q url.Values, out any) error {
	return s.client.doJSON(ctx, apiRequest{
		method:   http.MethodGet,
		path:     path,
		query:    q,
		endpoint: endpoint,
	}, out)
}

func (s *ManageService) send(ctx context.Context, method, path, endpoint string, body, out any) error {
	req := apiRequest{method: method, path: path, endpoint: endpoint}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return NewInvalidRequestError(fmt.Sprintf("encode request body: %v", err))
		}
		req.body = bytes.NewReader(data)
		req.contentType = "application/json"
	}
	return s.client.doJSON(ctx, req, out)
}

// ListProjects returns all projects the API key can see.
func (s *ManageService) ListProjects(ctx context.Context) (*ProjectList, error) {
	var out ProjectList
	if err := s.get(ctx, "/v1/projects", "manage.projects", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetProject returns one project.
func (s *ManageService) GetProject(ctx context.Context, projectID string) (*Project, error) {
	var out Project
	if err := s.get(ctx, projectPath(projectID), "manage.projects", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProject patches a project's name or company.
func (s *ManageService) UpdateProject(ctx context.Context, projectID string, update ProjectUpdate) (*MessageResponse, error) {
	var out MessageResponse
	if err := s.send(ctx, http.MethodPatch, projectPath(projectID), "manage.projects", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProject permanently deletes a project.
func (s *ManageService) DeleteProject(ctx context.Context, projectID string) error {
	return s.send(ctx, http.MethodDelete, projectPath(projectID), "manage.projects", nil, nil)
}

// ListKeys returns a project's API keys with their owning members.
func (s *ManageService) ListKeys(ctx context.Context, projectID string) (*KeyList, error) {
	var out KeyList
	if err := s.get(ctx, projectPath(projectID, "keys"), "manage.keys", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetKey returns one API key.
func (s *ManageService) GetKey(ctx context.Context, projectID, keyID string) (*KeyMembership, error) {
	var out KeyMembership
	if err := s.get(ctx, projectPath(projectID, "keys", url.PathEscape(keyID)), "manage.keys", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateKey creates an API key. The returned Key carries the secret; it
// is not retrievable afterwards.
func (s *ManageService) CreateKey(ctx context.Context, projectID string, create KeyCreate) (*Key, error) {
	if create.ExpirationDate != "" && create.TimeToLiveSeconds > 0 {
		return nil, NewInvalidRequestError("set either expiration_date or time_to_live_in_seconds, not both")
	}
	var out Key
	if err := s.send(ctx, http.MethodPost, projectPath(projectID, "keys"), "manage.keys", create, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteKey revokes an API key.
func (s *ManageService) DeleteKey(ctx context.Context, projectID, keyID string) error {
	return s.send(ctx, http.MethodDelete, projectPath(projectID, "keys", url.PathEscape(keyID)), "manage.keys", nil, nil)
}

// ListMembers returns a project's members.
func (s *ManageService) ListMembers(ctx context.Context, projectID string) (*MemberList, error) {
	var out MemberList
	if err := s.get(ctx, projectPath(projectID, "members"), "manage.members", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveMember removes a member from a project.
func (s *ManageService) RemoveMember(ctx context.Context, projectID, memberID string) error {
	return s.send(ctx, http.MethodDelete, projectPath(projectID, "members", url.PathEscape(memberID)), "manage.members", nil, nil)
}

// GetMemberScopes returns a member's scopes within a project.
func (s *ManageService) GetMemberScopes(ctx context.Context, projectID, memberID string) (*ScopeList, error) {
	var out ScopeList
	if err := s.get(ctx, projectPath(projectID, "members", url.PathEscape(memberID), "scopes"), "manage.scopes", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMemberScope sets a member's scope within a project.
func (s *ManageService) UpdateMemberScope(ctx context.Context, projectID, memberID string, update ScopeUpdate) (*MessageResponse, error) {
	var out MessageResponse
	if err := s.send(ctx, http.MethodPut, projectPath(projectID, "members", url.PathEscape(memberID), "scopes"), "manage.scopes", update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInvitations returns a project's pending invitations.
func (s *ManageService) ListInvitations(ctx context.Context, projectID string) (*InvitationList, error) {
	var out InvitationList
	if err := s.get(ctx, projectPath(projectID, "invites"), "manage.invites", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendInvitation invites an email address into a project.
func (s *ManageService) SendInvitation(ctx context.Context, projectID string, invite Invitation) (*MessageResponse, error) {
	var out MessageResponse
	if err := s.send(ctx, http.MethodPost, projectPath(projectID, "invites"), "manage.invites", invite, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteInvitation withdraws a pending invitation by email.
func (s *ManageService) DeleteInvitation(ctx context.Context, projectID, email string) error {
	return s.send(ctx, http.MethodDelete, projectPath(projectID, "invites", url.PathEscape(email)), "manage.invites", nil, nil)
}

// LeaveProject removes the calling account from a project.
func (s *ManageService) LeaveProject(ctx context.Context, projectID string) (*MessageResponse, error) {
	var out MessageResponse
	if err := s.send(ctx, http.MethodDelete, projectPath(projectID, "leave"), "manage.invites", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListUsageRequests pages through a project's transcription request log.
func (s *ManageService) ListUsageRequests(ctx context.Context, projectID string, opts *UsageRequestsOptions) (*UsageRequestList, error) {
	q, err := encodeQuery(opts)
	if err != nil {
		return nil, err
	}
	var out UsageRequestList
	if err := s.get(ctx, projectPath(projectID, "requests"), "manage.usage", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUsageRequest returns one logged transcription request.
func (s *ManageService) GetUsageRequest(ctx context.Context, projectID, requestID string) (*UsageRequest, error) {
	var out UsageRequest
	if err := s.get(ctx, projectPath(projectID, "requests", url.PathEscape(requestID)), "manage.usage", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUsageSummary returns aggregated usage for a period.
func (s *ManageService) GetUsageSummary(ctx context.Context, projectID string, opts *UsageSummaryOptions) (*UsageSummary, error) {
	q, err := encodeQuery(opts)
	if err != nil {
		return nil, err
	}
	var out UsageSummary
	if err := s.get(ctx, projectPath(projectID, "usage"), "manage.usage", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUsageFields lists the distinct models, methods and tags present in a
// project's usage over a period.
func (s *ManageService) GetUsageFields(ctx context.Context, projectID string, opts *UsageFieldsOptions) (*UsageFields, error) {
	q, err := encodeQuery(opts)
	if err != nil {
		return nil, err
	}
	var out UsageFields
	if err := s.get(ctx, projectPath(projectID, "usage", "fields"), "manage.usage", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListBalances returns a project's credit balances.
func (s *ManageService) ListBalances(ctx context.Context, projectID string) (*BalanceList, error) {
	var out BalanceList
	if err := s.get(ctx, projectPath(projectID, "balances"), "manage.balances", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBalance returns one credit balance.
func (s *ManageService) GetBalance(ctx context.Context, projectID, balanceID string) (*Balance, error) {
	var out Balance
	if err := s.get(ctx, projectPath(projectID, "balances", url.PathEscape(balanceID)), "manage.balances", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
