// Package api is the HTTP client for the TrackHub JSON API. It speaks the
// same method set as the coordinator, so the client state layer can sit on
// either one.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/trackhub/internal/app/coordinator"
	"github.com/dalemusser/trackhub/internal/app/system/apperr"
	"github.com/dalemusser/trackhub/internal/app/system/auth"
	"github.com/dalemusser/trackhub/internal/domain/models"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Client calls one TrackHub server.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// New builds a Client for baseURL (e.g. "http://localhost:8080"). A nil
// httpClient gets a 30 second timeout.
func New(baseURL string, httpClient *http.Client, logger *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("api: invalid base URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     logger,
	}, nil
}

type wireError struct {
	Kind    string `json:"kind"`
	SubKind string `json:"subKind"`
	Message string `json:"message"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *wireError      `json:"error"`
}

// do sends one request and decodes the envelope's data into out (if non-nil).
// Failures come back as *apperr.Error.
func (c *Client) do(ctx context.Context, method, path string, cred auth.Credential, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encoding request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("api: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred != "" {
		req.Header.Set("Authorization", "Bearer "+string(cred))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return apperr.Wrap(apperr.Unavailable, "the server could not be reached", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.Unavailable, "the server response was cut off", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return apperr.FromStatus(resp.StatusCode, "", "", "")
		}
		return apperr.Wrap(apperr.Unavailable, "the server sent an unreadable response", err)
	}
	if !env.Success || resp.StatusCode >= 400 {
		if env.Error == nil {
			return apperr.FromStatus(resp.StatusCode, "", "", "")
		}
		return apperr.FromStatus(resp.StatusCode, env.Error.Kind, env.Error.SubKind, env.Error.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return apperr.Wrap(apperr.Unavailable, "the server sent an unreadable response", err)
		}
	}
	return nil
}

func listPath(base string, lp coordinator.ListParams) string {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	if lp.Page > 0 {
		q.Set("page", strconv.Itoa(lp.Page))
	}
	if lp.Limit > 0 {
		q.Set("limit", strconv.Itoa(lp.Limit))
	}
	set("search", lp.Search)
	set("role", lp.Role)
	set("status", lp.Status)
	set("priority", lp.Priority)
	set("type", lp.Type)
	set("project", lp.Project)
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

func idPath(base, id string, rest ...string) string {
	p := base + "/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + url.PathEscape(r)
	}
	return p
}

// Ping checks GET /health.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.Unavailable, "the server could not be reached", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.FromStatus(resp.StatusCode, "", "", "health check failed")
	}
	return nil
}

// Account

func (c *Client) Register(ctx context.Context, in coordinator.RegisterInput) (s coordinator.Session, err error) {
	err = c.do(ctx, http.MethodPost, "/api/auth/register", "", in, &s)
	return s, err
}

func (c *Client) Login(ctx context.Context, in coordinator.LoginInput) (s coordinator.Session, err error) {
	err = c.do(ctx, http.MethodPost, "/api/auth/login", "", in, &s)
	return s, err
}

func (c *Client) VerifyCredential(ctx context.Context, cred auth.Credential) (models.User, error) {
	var out struct {
		User models.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/auth/verify", cred, nil, &out)
	return out.User, err
}

func (c *Client) RefreshCredential(ctx context.Context, cred auth.Credential) (s coordinator.Session, err error) {
	err = c.do(ctx, http.MethodPost, "/api/auth/refresh", cred, nil, &s)
	return s, err
}

func (c *Client) UpdateProfile(ctx context.Context, cred auth.Credential, in coordinator.ProfileInput) (u models.User, err error) {
	err = c.do(ctx, http.MethodPut, "/api/users/profile", cred, in, &u)
	return u, err
}

func (c *Client) ChangePassword(ctx context.Context, cred auth.Credential, in coordinator.ChangePasswordInput) error {
	return c.do(ctx, http.MethodPut, "/api/users/password", cred, in, nil)
}

// Projects

func (c *Client) ListProjects(ctx context.Context, cred auth.Credential, lp coordinator.ListParams) (res coordinator.PageResult[models.ProjectView], err error) {
	err = c.do(ctx, http.MethodGet, listPath("/api/projects", lp), cred, nil, &res)
	return res, err
}

func (c *Client) GetProject(ctx context.Context, cred auth.Credential, id string) (v models.ProjectView, err error) {
	err = c.do(ctx, http.MethodGet, idPath("/api/projects", id), cred, nil, &v)
	return v, err
}

func (c *Client) CreateProject(ctx context.Context, cred auth.Credential, in coordinator.CreateProjectInput) (v models.ProjectView, err error) {
	err = c.do(ctx, http.MethodPost, "/api/projects", cred, in, &v)
	return v, err
}

func (c *Client) UpdateProject(ctx context.Context, cred auth.Credential, id string, in coordinator.UpdateProjectInput) (v models.ProjectView, err error) {
	err = c.do(ctx, http.MethodPut, idPath("/api/projects", id), cred, in, &v)
	return v, err
}

func (c *Client) DeleteProject(ctx context.Context, cred auth.Credential, id string) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/projects", id), cred, nil, nil)
}

func (c *Client) AddMember(ctx context.Context, cred auth.Credential, projectID string, in coordinator.AddMemberInput) (v models.ProjectView, err error) {
	err = c.do(ctx, http.MethodPost, idPath("/api/projects", projectID, "members"), cred, in, &v)
	return v, err
}

func (c *Client) RemoveMember(ctx context.Context, cred auth.Credential, projectID, userID string) (v models.ProjectView, err error) {
	err = c.do(ctx, http.MethodDelete, idPath("/api/projects", projectID, "members", userID), cred, nil, &v)
	return v, err
}

// Tasks

func (c *Client) ListTasks(ctx context.Context, cred auth.Credential, lp coordinator.ListParams) (res coordinator.PageResult[models.TaskView], err error) {
	err = c.do(ctx, http.MethodGet, listPath("/api/tasks", lp), cred, nil, &res)
	return res, err
}

func (c *Client) GetTask(ctx context.Context, cred auth.Credential, id string) (v models.TaskView, err error) {
	err = c.do(ctx, http.MethodGet, idPath("/api/tasks", id), cred, nil, &v)
	return v, err
}

func (c *Client) CreateTask(ctx context.Context, cred auth.Credential, in coordinator.CreateTaskInput) (v models.TaskView, err error) {
	err = c.do(ctx, http.MethodPost, "/api/tasks", cred, in, &v)
	return v, err
}

func (c *Client) UpdateTask(ctx context.Context, cred auth.Credential, id string, in coordinator.UpdateTaskInput) (v models.TaskView, err error) {
	err = c.do(ctx, http.MethodPut, idPath("/api/tasks", id), cred, in, &v)
	return v, err
}

func (c *Client) DeleteTask(ctx context.Context, cred auth.Credential, id string) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/tasks", id), cred, nil, nil)
}

func (c *Client) AddComment(ctx context.Context, cred auth.Credential, taskID string, in coordinator.CommentInput) (v models.TaskView, err error) {
	err = c.do(ctx, http.MethodPost, idPath("/api/tasks", taskID, "comments"), cred, in, &v)
	return v, err
}

// Admin

func (c *Client) AdminDashboard(ctx context.Context, cred auth.Credential) (d models.Dashboard, err error) {
	err = c.do(ctx, http.MethodGet, "/api/admin/dashboard", cred, nil, &d)
	return d, err
}

func (c *Client) AdminListUsers(ctx context.Context, cred auth.Credential, lp coordinator.ListParams) (res coordinator.PageResult[models.User], err error) {
	err = c.do(ctx, http.MethodGet, listPath("/api/admin/users", lp), cred, nil, &res)
	return res, err
}

func (c *Client) AdminUpdateUser(ctx context.Context, cred auth.Credential, id string, in coordinator.AdminUserInput) (u models.User, err error) {
	err = c.do(ctx, http.MethodPut, idPath("/api/admin/users", id), cred, in, &u)
	return u, err
}

func (c *Client) AdminDeleteUser(ctx context.Context, cred auth.Credential, id string) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/admin/users", id), cred, nil, nil)
}

func (c *Client) AdminListProjects(ctx context.Context, cred auth.Credential, lp coordinator.ListParams) (res coordinator.PageResult[models.ProjectView], err error) {
	err = c.do(ctx, http.MethodGet, listPath("/api/admin/projects", lp), cred, nil, &res)
	return res, err
}

func (c *Client) AdminUpdateProject(ctx context.Context, cred auth.Credential, id string, in coordinator.UpdateProjectInput) (v models.ProjectView, err error) {
	err = c.do(ctx, http.MethodPut, idPath("/api/admin/projects", id), cred, in, &v)
	return v, err
}

func (c *Client) AdminDeleteProject(ctx context.Context, cred auth.Credential, id string) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/admin/projects", id), cred, nil, nil)
}

func (c *Client) AdminListTasks(ctx context.Context, cred auth.Credential, lp coordinator.ListParams) (res coordinator.PageResult[models.TaskView], err error) {
	err = c.do(ctx, http.MethodGet, listPath("/api/admin/tasks", lp), cred, nil, &res)
	return res, err
}

func (c *Client) AdminUpdateTask(ctx context.Context, cred auth.Credential, id string, in coordinator.UpdateTaskInput) (v models.TaskView, err error) {
	err = c.do(ctx, http.MethodPut, idPath("/api/admin/tasks", id), cred, in, &v)
	return v, err
}

func (c *Client) AdminDeleteTask(ctx context.Context, cred auth.Credential, id string) error {
	return c.do(ctx, http.MethodDelete, idPath("/api/admin/tasks", id), cred, nil, nil)
}
