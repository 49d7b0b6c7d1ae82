// Package auth manages the DAB session token and the local config
// file it is stored in.
package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/1337.0.0.0 Safari/537.36"

var ErrNotLoggedIn = errors.New("no DAB credentials; run: dabhounds login")

var httpClient = &http.Client{Timeout: 15 * time.Second}

// Login authenticates against the DAB API and stores the session
// token (and the credentials for silent re-login) in the config.
func Login(cfg *Config, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequest("POST", cfg.DABAPIBase+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed: status %d, check email/password", resp.StatusCode)
	}

	token := sessionCookie(resp)
	if token == "" {
		return "", errors.New("login response carried no session cookie")
	}

	cfg.DABAuthToken = token
	cfg.DABEmail = email
	cfg.DABPassword = password
	if err := SaveConfig(cfg); err != nil {
		return "", err
	}
	return token, nil
}

func sessionCookie(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			return c.Value
		}
	}
	return ""
}

// VerifyToken checks the token against /auth/me.
func VerifyToken(cfg *Config, token string) bool {
	req, err := http.NewRequest("GET", cfg.DABAPIBase+"/auth/me", nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Cookie", "session="+token)

	resp, err := httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// EnsureLoggedIn returns a valid session token, re-authenticating with
// the stored credentials when the saved token expired. Failing both is
// a fatal configuration error for the caller.
func EnsureLoggedIn(cfg *Config) (string, error) {
	if cfg.DABAuthToken != "" && VerifyToken(cfg, cfg.DABAuthToken) {
		return cfg.DABAuthToken, nil
	}

	if cfg.DABEmail == "" || cfg.DABPassword == "" {
		return "", ErrNotLoggedIn
	}

	token, err := Login(cfg, cfg.DABEmail, cfg.DABPassword)
	if err != nil {
		return "", fmt.Errorf("stored token expired and re-login failed: %w", err)
	}
	return token, nil
}

// Logout drops the stored token and credentials.
func Logout(cfg *Config) error {
	cfg.DABAuthToken = ""
	cfg.DABEmail = ""
	cfg.DABPassword = ""
	return SaveConfig(cfg)
}
