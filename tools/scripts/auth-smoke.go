// Package main provides a CI-friendly smoke test for the MovieScore auth API.
//
// It validates against a running server:
//   - register sets both session cookies
//   - /me resolves the access cookie
//   - refresh rotates the refresh token and the old one is rejected
//   - logout clears the session
//   - login with the same credentials succeeds
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	accessCookie  = "moviescore_access"
	refreshCookie = "moviescore_refresh"
	smokePassword = "SmokeCheck#2026pass"
	maxReadBytes  = 1 << 20
)

type smokeClient struct {
	base string
	http *http.Client
	v    bool
}

type userEnvelope struct {
	User struct {
		UserID      string `json:"userId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		MFAEnabled  bool   `json:"mfaEnabled"`
	} `json:"user"`
}

func main() {
	var (
		baseURL = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		fatalf("cookie jar: %v", err)
	}
	c := &smokeClient{
		base: strings.TrimRight(*baseURL, "/"),
		http: &http.Client{Jar: jar, Timeout: *timeout},
		v:    *verbose,
	}

	email := fmt.Sprintf("smoke-%d@moviescore.local", time.Now().UnixNano())

	var reg userEnvelope
	c.mustStatus("register", http.MethodPost, "/api/auth/register", map[string]string{
		"email":       email,
		"displayName": "Smoke Check",
		"password":    smokePassword,
	}, http.StatusCreated, &reg)
	if reg.User.Email != email || reg.User.UserID == "" {
		fatalf("register: unexpected user %+v", reg.User)
	}
	c.mustHaveCookie(accessCookie)
	firstRefresh := c.mustHaveCookie(refreshCookie)

	var me userEnvelope
	c.mustStatus("me", http.MethodGet, "/api/auth/me", nil, http.StatusOK, &me)
	if me.User.UserID != reg.User.UserID {
		fatalf("me: user mismatch: got=%q want=%q", me.User.UserID, reg.User.UserID)
	}

	c.mustStatus("refresh", http.MethodPost, "/api/auth/refresh", nil, http.StatusOK, nil)
	if got := c.mustHaveCookie(refreshCookie); got == firstRefresh {
		fatalf("refresh: refresh token was not rotated")
	}

	c.mustReplayRejected(firstRefresh)

	c.mustStatus("logout", http.MethodPost, "/api/auth/logout", nil, http.StatusOK, nil)
	c.mustStatus("me after logout", http.MethodGet, "/api/auth/me", nil, http.StatusUnauthorized, nil)

	c.mustStatus("login", http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": smokePassword,
	}, http.StatusOK, nil)
	c.mustStatus("me after login", http.MethodGet, "/api/auth/me", nil, http.StatusOK, nil)

	fmt.Printf("OK: user_id=%s email=%s\n", reg.User.UserID, email)
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func (c *smokeClient) mustStatus(step, method, path string, body any, want int, out any) {
	res, data := c.do(step, method, path, body, nil)
	if res.StatusCode != want {
		fatalf("%s: status=%d want=%d body=%s", step, res.StatusCode, want, strings.TrimSpace(string(data)))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			fatalf("%s: decode response: %v", step, err)
		}
	}
	if c.v {
		fmt.Printf("%s: %d %s\n", step, res.StatusCode, res.Header.Get("X-Request-Id"))
	}
}

// mustReplayRejected presents an already rotated refresh token without touching the jar.
func (c *smokeClient) mustReplayRejected(stale string) {
	plain := &http.Client{Timeout: c.http.Timeout}
	res, data := (&smokeClient{base: c.base, http: plain}).do("refresh replay", http.MethodPost, "/api/auth/refresh", nil,
		&http.Cookie{Name: refreshCookie, Value: stale})
	if res.StatusCode != http.StatusUnauthorized {
		fatalf("refresh replay: status=%d want=401 body=%s", res.StatusCode, strings.TrimSpace(string(data)))
	}
}

func (c *smokeClient) do(step, method, path string, body any, cookie *http.Cookie) (*http.Response, []byte) {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			fatalf("%s: encode body: %v", step, err)
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.base+path, rdr)
	if err != nil {
		fatalf("%s: build request: %v", step, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}

	res, err := c.http.Do(req)
	if err != nil {
		fatalf("%s: %v", step, err)
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxReadBytes))
	if err != nil {
		fatalf("%s: read body: %v", step, err)
	}
	return res, data
}

func (c *smokeClient) mustHaveCookie(name string) string {
	u, _ := url.Parse(c.base + "/api/auth/")
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == name && ck.Value != "" {
			return ck.Value
		}
	}
	fatalf("cookie %s not set", name)
	return ""
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
