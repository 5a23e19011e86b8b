package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseEndpoint validates a base URL and strips trailing slashes so clients can append API paths
func ParseEndpoint(baseURL string) (*url.URL, error) {
	parsedUrl, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint url %q: %w", baseURL, err)
	}
	if parsedUrl.Scheme == "" || parsedUrl.Host == "" {
		return nil, fmt.Errorf("invalid endpoint url %q: scheme and host are required", baseURL)
	}

	parsedUrl.Path = strings.TrimRight(parsedUrl.Path, "/")
	return parsedUrl, nil
}
