package serving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// RemoteGenerator forwards queries to a model-runner HTTP endpoint
// exposing the same generate contract, letting the service act as a
// drop-in front for an externally hosted model.
type RemoteGenerator struct {
	Endpoint   string
	HTTPClient *http.Client
}

type remoteGenerateResponse struct {
	Script string `json:"script"`
	Error  string `json:"error"`
}

func (g RemoteGenerator) Generate(ctx context.Context, query string, temperature float64) (string, error) {
	payload, marshalErr := json.Marshal(generateRequest{Query: query, Temperature: temperature})
	if marshalErr != nil {
		return "", marshalErr
	}
	httpRequest, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(payload))
	if buildErr != nil {
		return "", buildErr
	}
	httpRequest.Header.Set("Content-Type", "application/json")

	httpClient := g.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	httpResponse, httpErr := httpClient.Do(httpRequest)
	if httpErr != nil {
		return "", httpErr
	}
	defer func(closer io.ReadCloser) { _ = closer.Close() }(httpResponse.Body)

	bodyBytes, readErr := io.ReadAll(httpResponse.Body)
	if readErr != nil {
		return "", readErr
	}

	var decoded remoteGenerateResponse
	if decodeErr := json.Unmarshal(bodyBytes, &decoded); decodeErr != nil {
		return "", fmt.Errorf("decode model runner response: %w", decodeErr)
	}
	if httpResponse.StatusCode != http.StatusOK {
		message := decoded.Error
		if message == "" {
			message = strings.TrimSpace(string(bodyBytes))
		}
		return "", fmt.Errorf("model runner error %d: %s", httpResponse.StatusCode, message)
	}
	return decoded.Script, nil
}
