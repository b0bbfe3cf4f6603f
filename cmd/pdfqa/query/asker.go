package querycmder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/papercomputeco/pdfqa/api"
	"github.com/papercomputeco/pdfqa/pkg/query"
)

// Asker answers a question, either in-process or through a running API server.
type Asker interface {
	Ask(ctx context.Context, question string, topK int) (*api.QueryResponse, error)
}

// LocalAsker answers from the local store.
type LocalAsker struct {
	answerer *query.Answerer
}

func NewLocalAsker(answerer *query.Answerer) *LocalAsker {
	return &LocalAsker{answerer: answerer}
}

func (a *LocalAsker) Ask(ctx context.Context, question string, topK int) (*api.QueryResponse, error) {
	ans, err := a.answerer.Answer(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	return api.NewQueryResponse(ans), nil
}

// RemoteAsker posts questions to a pdfqa API server.
type RemoteAsker struct {
	target string
	client *http.Client
}

// NewRemoteAsker creates a RemoteAsker for apiTarget. A nil client uses a
// client with a 60 second timeout.
func NewRemoteAsker(apiTarget string, client *http.Client) (*RemoteAsker, error) {
	if _, err := url.Parse(apiTarget); err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &RemoteAsker{target: apiTarget, client: client}, nil
}

func (a *RemoteAsker) Ask(ctx context.Context, question string, topK int) (*api.QueryResponse, error) {
	queryURL, err := url.JoinPath(a.target, "query")
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}

	body, err := json.Marshal(api.QueryRequest{Query: question, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("encoding query request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, queryURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pdfqa API at %s: %w", a.target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if json.Unmarshal(data, &apiErr) != nil || apiErr.Error == "" {
			apiErr.Error = string(data)
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return nil, query.ErrNoResults
		case http.StatusBadRequest:
			return nil, fmt.Errorf("query rejected: %w", errors.New(apiErr.Error))
		default:
			return nil, fmt.Errorf("query request failed (HTTP %d): %s", resp.StatusCode, apiErr.Error)
		}
	}

	var out api.QueryResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse query response: %w", err)
	}

	return &out, nil
}
