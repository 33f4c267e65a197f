// Package summarize talks to the external transcript and web-summary
// services and recognizes summarizable links.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	transcriptTimeout = 30 * time.Second
	webTimeout        = 90 * time.Second
)

type Client struct {
	TranscriptURL   string
	TranscriptToken string
	WebSummaryURL   string
	WebSummaryToken string
	HTTP            *http.Client
}

func NewClient(transcriptURL, transcriptToken, webURL, webToken string) *Client {
	return &Client{
		TranscriptURL:   transcriptURL,
		TranscriptToken: transcriptToken,
		WebSummaryURL:   webURL,
		WebSummaryToken: webToken,
		HTTP:            &http.Client{},
	}
}

type Transcript struct {
	Title string `json:"title"`
	Text  string `json:"transcript"`
}

// Transcript fetches the transcript for a video URL. An empty transcript in
// the service response is an error: there is nothing to summarize.
func (c *Client) Transcript(ctx context.Context, videoURL string) (Transcript, error) {
	if c.TranscriptURL == "" {
		return Transcript{}, errors.New("summarize: transcript service not configured")
	}

	cctx, cancel := context.WithTimeout(ctx, transcriptTimeout)
	defer cancel()

	body, err := c.post(cctx, c.TranscriptURL, c.TranscriptToken, map[string]string{
		"video_id_or_url": videoURL,
	})
	if err != nil {
		return Transcript{}, err
	}

	var t Transcript
	if err := json.Unmarshal(body, &t); err != nil {
		return Transcript{}, err
	}
	if t.Text == "" {
		return Transcript{}, errors.New("summarize: no transcript found in response")
	}
	if t.Title == "" {
		t.Title = "YouTube Video"
	}
	return t, nil
}

// WebSummary asks the web summarizer for a ready-made summary of url. The
// service returns either a JSON string or an object carrying an error field.
func (c *Client) WebSummary(ctx context.Context, url string) (string, error) {
	if c.WebSummaryURL == "" {
		return "", errors.New("summarize: web summary service not configured")
	}

	cctx, cancel := context.WithTimeout(ctx, webTimeout)
	defer cancel()

	body, err := c.post(cctx, c.WebSummaryURL, c.WebSummaryToken, map[string]string{
		"url": url,
	})
	if err != nil {
		return "", err
	}

	var summary string
	if err := json.Unmarshal(body, &summary); err == nil {
		return summary, nil
	}

	var failed struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &failed); err == nil && failed.Error != "" {
		return "", errors.New(failed.Error)
	}
	return "", errors.New("summarize: unexpected web summary response")
}

func (c *Client) post(ctx context.Context, url, token string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("summarize: %s", msg)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
}
