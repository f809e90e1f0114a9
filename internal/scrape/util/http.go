package util

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"internwatch/internal/scrape/types"

	"github.com/PuerkitoBio/goquery"
)

const (
	browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxBody = 8 << 20
)

// ErrBodyTooLarge means the response was bigger than we are willing to parse.
var ErrBodyTooLarge = fmt.Errorf("response body exceeds %d bytes", maxBody)

// BrowserHeaders sets the header set a desktop browser sends for a page load.
func BrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Connection", "keep-alive")
}

// Get issues a GET with browser headers and returns the decoded body of a
// 2xx response. Failures come back as *types.FetchError with Kind set.
func Get(ctx context.Context, hc *http.Client, lim *HostLimiter, rawURL string) ([]byte, error) {
	return get(ctx, hc, lim, rawURL, "")
}

// GetJSON fetches rawURL asking for JSON and decodes the body into v.
func GetJSON(ctx context.Context, hc *http.Client, lim *HostLimiter, rawURL string, v any) error {
	b, err := GetJSONBody(ctx, hc, lim, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return &types.FetchError{URL: rawURL, Kind: types.KindParse, Err: fmt.Errorf("decode json: %w", err)}
	}
	return nil
}

// GetJSONBody fetches rawURL asking for JSON and returns the raw body.
func GetJSONBody(ctx context.Context, hc *http.Client, lim *HostLimiter, rawURL string) ([]byte, error) {
	return get(ctx, hc, lim, rawURL, "application/json")
}

func get(ctx context.Context, hc *http.Client, lim *HostLimiter, rawURL, accept string) ([]byte, error) {
	if err := lim.WaitURL(ctx, rawURL); err != nil {
		return nil, &types.FetchError{URL: rawURL, Kind: types.KindTransport, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Kind: types.KindTransport, Err: err}
	}
	BrowserHeaders(req)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	res, err := hc.Do(req)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Kind: types.KindTransport, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return nil, &types.FetchError{URL: rawURL, Kind: types.KindStatus, Status: res.StatusCode}
	}

	body, err := decodedBody(res)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Kind: types.KindParse, Status: res.StatusCode, Err: err}
	}
	defer body.Close()

	b, err := io.ReadAll(io.LimitReader(body, maxBody+1))
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Kind: types.KindTransport, Status: res.StatusCode, Err: err}
	}
	if len(b) > maxBody {
		return nil, &types.FetchError{URL: rawURL, Kind: types.KindParse, Status: res.StatusCode, Err: ErrBodyTooLarge}
	}
	return b, nil
}

// GetDocument fetches rawURL and parses it as HTML.
func GetDocument(ctx context.Context, hc *http.Client, lim *HostLimiter, rawURL string) (*goquery.Document, error) {
	b, err := Get(ctx, hc, lim, rawURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Kind: types.KindParse, Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}

// We set Accept-Encoding ourselves, so net/http leaves decompression to us.
func decodedBody(res *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(res.Header.Get("Content-Encoding"))) {
	case "gzip":
		return gzip.NewReader(res.Body)
	case "deflate":
		return zlib.NewReader(res.Body)
	default:
		return io.NopCloser(res.Body), nil
	}
}
