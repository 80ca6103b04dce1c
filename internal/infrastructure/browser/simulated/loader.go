package simulated

import (
	"fmt"
	"io"
	"net/http"

	"browser-agent/internal/infrastructure/browser/htmldom"
)

// HTTPLoader fetches markup for full navigations of an in-memory document.
func HTTPLoader(client *http.Client) htmldom.Loader {
	return func(url string) (io.ReadCloser, error) {
		resp, err := client.Get(url)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusBadRequest {
			resp.Body.Close()
			return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
		}
		return resp.Body, nil
	}
}

// Load fetches url into a document that keeps loading later full navigations
// through the same client.
func Load(client *http.Client, url string) (*htmldom.Document, error) {
	loader := HTTPLoader(client)

	body, err := loader(url)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	defer body.Close()

	doc, err := htmldom.Parse(body, url)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	doc.SetLoader(loader)
	return doc, nil
}
