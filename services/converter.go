package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// HTTPDocumentConverter calls the external document-conversion
// collaborator over HTTP. The collaborator owns the actual Google Docs
// interaction; this client only relays the contract.
type HTTPDocumentConverter struct {
	baseURL string
	client  *http.Client
}

func NewHTTPDocumentConverter() *HTTPDocumentConverter {
	return &HTTPDocumentConverter{
		baseURL: os.Getenv("CONVERTER_URL"),
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

type convertRequest struct {
	SubmissionID int `json:"submission_id"`
	ActorID      int `json:"actor_id"`
}

type convertResponse struct {
	Success      bool   `json:"success"`
	GoogleDocURL string `json:"google_doc_url"`
	Error        string `json:"error"`
	Status       int    `json:"status"`
}

func (c *HTTPDocumentConverter) Convert(ctx context.Context, submissionID, actorID int) (string, error) {
	if c.baseURL == "" {
		return "", &ConversionError{Message: "CONVERTER_URL is not configured", Status: 503}
	}

	body, err := json.Marshal(convertRequest{SubmissionID: submissionID, ActorID: actorID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &ConversionError{Message: fmt.Sprintf("conversion request failed: %v", err), Status: 502}
	}
	defer resp.Body.Close()

	var out convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ConversionError{Message: "invalid conversion response", Status: 502}
	}
	if !out.Success {
		status := out.Status
		if status == 0 {
			status = resp.StatusCode
		}
		msg := out.Error
		if msg == "" {
			msg = "document conversion failed"
		}
		return "", &ConversionError{Message: msg, Status: status}
	}
	return out.GoogleDocURL, nil
}
