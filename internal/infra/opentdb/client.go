package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"trivia-quiz/internal/domain"
)

// DefaultURL is the public Open Trivia DB endpoint.
const DefaultURL = "https://opentdb.com/api.php"

// Client fetches multiple choice questions from the Open Trivia DB API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client with sane timeouts.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   3 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 2,
			},
		},
	}
}

type apiResponse struct {
	ResponseCode int               `json:"response_code"`
	Results      []domain.Question `json:"results"`
}

// Response codes documented by the API.
var responseCodes = map[int]string{
	1: "not enough questions for the query",
	2: "invalid parameter",
	3: "token not found",
	4: "token exhausted",
	5: "rate limited",
}

func (c *Client) FetchQuestions(ctx context.Context, amount int, difficulty domain.Difficulty) ([]domain.Question, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("parse url: %w", err)}
	}
	q := u.Query()
	q.Set("amount", strconv.Itoa(amount))
	q.Set("difficulty", string(difficulty))
	q.Set("type", "multiple")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &domain.FetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("network response was not ok: %s", b)}
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &domain.FetchError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if body.ResponseCode != 0 {
		msg, ok := responseCodes[body.ResponseCode]
		if !ok {
			msg = "unknown error"
		}
		return nil, &domain.FetchError{Err: fmt.Errorf("response code %d: %s", body.ResponseCode, msg)}
	}

	for i := range body.Results {
		unescape(&body.Results[i])
	}
	return body.Results, nil
}

// unescape decodes the HTML entities the API embeds in every text field.
func unescape(q *domain.Question) {
	q.Category = html.UnescapeString(q.Category)
	q.Prompt = html.UnescapeString(q.Prompt)
	q.CorrectAnswer = html.UnescapeString(q.CorrectAnswer)
	for i, d := range q.Distractors {
		q.Distractors[i] = html.UnescapeString(d)
	}
}
