package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	domainDish "github.com/snapfood/snapfood-engine/domains/dish"
	pkgError "github.com/snapfood/snapfood-engine/pkg/error"
)

const DefaultBaseURL = "https://api.dify.ai/v1"

// Client calls the hosted image-matcher workflow. One workflow run resolves a
// dish query into a list of candidate image URLs.
type Client struct {
	baseURL    string
	apiKey     string
	user       string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, user string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		user:       user,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient replaces the underlying HTTP client (used in tests).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// dishNamePattern keeps CJK ideographs, latin letters, digits and whitespace.
var (
	dishNamePattern   = regexp.MustCompile(`[^\x{4e00}-\x{9fa5}a-zA-Z0-9\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	throttlePattern   = regexp.MustCompile(`(?i)rate limit|too many requests|throttl`)
)

// SanitizeDishName strips characters the image matcher cannot use and
// collapses repeated whitespace.
func SanitizeDishName(name string) string {
	cleaned := dishNamePattern.ReplaceAllString(strings.TrimSpace(name), "")
	return whitespacePattern.ReplaceAllString(cleaned, " ")
}

type workflowRequest struct {
	Inputs       map[string]string `json:"inputs"`
	ResponseMode string            `json:"response_mode"`
	User         string            `json:"user"`
}

type workflowResponse struct {
	Data struct {
		Outputs struct {
			ImageURLs []string `json:"imageUrls"`
		} `json:"outputs"`
	} `json:"data"`
	Message string `json:"message"`
}

// MatchImages runs the workflow for the given dish query and returns the
// usable image URLs. Failures come back classified: RateLimitedError and
// UpstreamNetworkError are retryable, everything else is terminal.
func (c *Client) MatchImages(ctx context.Context, query domainDish.Query) ([]string, error) {
	inputs := map[string]string{
		"name": SanitizeDishName(query.Name),
	}
	if query.Description != "" {
		inputs["desc"] = query.Description
	}
	if query.GeneralDescription != "" {
		inputs["gen_desc"] = query.GeneralDescription
	}
	if query.Category != "" {
		inputs["category"] = query.Category
	}
	if query.Count != nil {
		inputs["count"] = strconv.Itoa(*query.Count)
	}
	if query.PlaceID != "" {
		inputs["place_id"] = query.PlaceID
	}

	body, err := json.Marshal(workflowRequest{
		Inputs:       inputs,
		ResponseMode: "blocking",
		User:         c.user,
	})
	if err != nil {
		return nil, pkgError.UnknownUpstreamError(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/workflows/run", bytes.NewReader(body))
	if err != nil {
		return nil, pkgError.UnknownUpstreamError(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// A cancelled resolution is not an upstream failure; let the caller
		// discard it.
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, pkgError.UpstreamNetworkError(fmt.Sprintf("image matcher request failed: %v", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgError.UpstreamNetworkError(fmt.Sprintf("failed to read image matcher response: %v", err))
	}

	if classified := classifyStatus(resp.StatusCode, raw); classified != nil {
		return nil, classified
	}

	var parsed workflowResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		logrus.WithError(err).Debug("[DIFY] Invalid JSON from image matcher workflow")
		return nil, pkgError.UnknownUpstreamError("invalid response from image matcher")
	}

	urls := make([]string, 0, len(parsed.Data.Outputs.ImageURLs))
	for _, url := range parsed.Data.Outputs.ImageURLs {
		if strings.TrimSpace(url) != "" {
			urls = append(urls, url)
		}
	}
	if len(urls) == 0 {
		return nil, pkgError.EmptyResultError("no matching images for dish")
	}
	return urls, nil
}

func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return pkgError.RateLimitedError("image matcher rate limit exceeded")
	case status == http.StatusBadRequest:
		return pkgError.InvalidParamsError("image matcher rejected the request")
	case status >= 200 && status < 300:
		return nil
	default:
		if throttlePattern.Match(body) {
			return pkgError.RateLimitedError("image matcher reported throttling")
		}
		return pkgError.UnknownUpstreamError(fmt.Sprintf("image matcher returned HTTP %d", status))
	}
}
