package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// 默认超时
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// Client Home Assistant REST API 客户端
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient 创建 Home Assistant 客户端
// connectTimeout 限制建立连接的时间，requestTimeout 限制整个请求
func NewClient(baseURL, token string, connectTimeout, requestTimeout time.Duration) *Client {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &Client{
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   token,
	}
}

// BaseURL 返回规范化后的地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// endpoint 拼接 API 路径并校验地址
func (c *Client) endpoint(path string) (string, error) {
	if c.baseURL == "" {
		return "", ErrInvalidEndpoint
	}
	u, err := url.Parse(c.baseURL + path)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("%w: %s", ErrInvalidEndpoint, c.baseURL)
	}
	return u.String(), nil
}

// doRequest 执行带认证的 GET 请求
func (c *Client) doRequest(ctx context.Context, path string) (*http.Response, error) {
	if c.token == "" {
		return nil, fmt.Errorf("%w: no token configured", ErrUnauthenticated)
	}

	endpoint, err := c.endpoint(path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return resp, nil
}

// TestConnection 测试与 Home Assistant 的连接
func (c *Client) TestConnection(ctx context.Context) error {
	resp, err := c.doRequest(ctx, "/api/")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return ErrUnauthenticated
	default:
		return fmt.Errorf("%w: test connection status=%d", ErrMalformedResponse, resp.StatusCode)
	}
}

// GetEntityState 读取实体当前状态
func (c *Client) GetEntityState(ctx context.Context, entityID string) (*EntityState, error) {
	resp, err := c.doRequest(ctx, "/api/states/"+url.PathEscape(entityID))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// 正常
	case http.StatusUnauthorized:
		return nil, ErrUnauthenticated
	case http.StatusNotFound:
		return nil, &EntityNotFoundError{EntityID: entityID}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: get state %s status=%d body=%s", ErrMalformedResponse, entityID, resp.StatusCode, string(body))
	}

	var state EntityState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		var netErr net.Error
		if ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
		}
		return nil, fmt.Errorf("%w: decode state %s: %v", ErrMalformedResponse, entityID, err)
	}
	if state.EntityID == "" {
		state.EntityID = entityID
	}

	return &state, nil
}
