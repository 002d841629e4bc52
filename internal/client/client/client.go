package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/cubicd/internal/clock"
	"github.com/dmitrijs2005/cubicd/internal/common"
	"github.com/dmitrijs2005/cubicd/internal/netx"
	"github.com/dmitrijs2005/cubicd/internal/server/settings"
	"github.com/dmitrijs2005/cubicd/internal/store"
	"github.com/dmitrijs2005/cubicd/internal/wifi"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, p string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+p, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusBadRequest:
		err = common.ErrBadInput
	case http.StatusNotFound:
		err = common.ErrNotFound
	}
	defer resp.Body.Close()

	statusErr := netx.CheckStatus(resp)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, p, errors.Join(err, statusErr))
	}
	return nil, fmt.Errorf("%s %s: %w", method, p, statusErr)
}

func (c *Client) getJSON(ctx context.Context, p string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, p, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", p, err)
	}
	return nil
}

type okResponse struct {
	OK bool `json:"ok"`
}

func decodeOK(resp *http.Response) (bool, error) {
	defer resp.Body.Close()
	var r okResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return false, fmt.Errorf("decode ack: %w", err)
	}
	return r.OK, nil
}

// Config returns the device configuration and uptime.
func (c *Client) Config(ctx context.Context) (settings.View, error) {
	var v settings.View
	err := c.getJSON(ctx, "/config.json", &v)
	return v, err
}

// SetConfig sends a partial update; nil fields are left unchanged on the
// device.
func (c *Client) SetConfig(ctx context.Context, p settings.Patch) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, http.MethodPut, "/config.json", bytes.NewReader(b), "application/json")
	if err != nil {
		return err
	}
	_, err = decodeOK(resp)
	return err
}

func (c *Client) NTP(ctx context.Context) (settings.Configuration, error) {
	var v settings.Configuration
	err := c.getJSON(ctx, "/ntp.json", &v)
	return v, err
}

func (c *Client) Time(ctx context.Context) (clock.Snapshot, error) {
	var v clock.Snapshot
	err := c.getJSON(ctx, "/time.json", &v)
	return v, err
}

func (c *Client) WiFi(ctx context.Context) (wifi.Snapshot, error) {
	var v wifi.Snapshot
	err := c.getJSON(ctx, "/wifi.json", &v)
	return v, err
}

func (c *Client) List(ctx context.Context) ([]store.FileInfo, error) {
	var v []store.FileInfo
	err := c.getJSON(ctx, "/fs/list", &v)
	return v, err
}

// Delete removes p and reports whether the device had it.
func (c *Client) Delete(ctx context.Context, p string) (bool, error) {
	resp, err := c.do(ctx, http.MethodDelete, "/fs/delete?path="+url.QueryEscape(p), nil, "")
	if err != nil {
		return false, err
	}
	return decodeOK(resp)
}

// Upload streams r to the device under name. The device acknowledges every
// upload, so success here only means the bytes were delivered.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) error {
	body, ct := netx.MultipartBody("file", path.Base(name), r)
	defer body.Close()

	resp, err := c.do(ctx, http.MethodPost, "/fs/upload", body, ct)
	if err != nil {
		return err
	}
	_, err = decodeOK(resp)
	return err
}

// Fetch copies the stored file at p into w.
func (c *Client) Fetch(ctx context.Context, p string, w io.Writer) (int64, error) {
	target := (&url.URL{Path: store.NormalizePath(p)}).EscapedPath()
	resp, err := c.do(ctx, http.MethodGet, target, nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return io.Copy(w, resp.Body)
}
