package httpds

import (
	"context"
	"io"
	"strings"

	"github.com/Sanjarbek1024/Demo-project/internal/datasource"
)

// URLSource adapts a Client and a URL to the datasource.Source interface.
type URLSource struct {
	client *Client
	url    string
}

// NewURLSource returns a Source that downloads the given URL on Open.
func NewURLSource(client *Client, url string) *URLSource {
	return &URLSource{client: client, url: url}
}

// Open performs the download and returns the response body.
func (s *URLSource) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := s.client.Get(ctx, s.url)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Base resolves source file names against a base URL, one Source per file.
type Base struct {
	client *Client
	url    string
}

// NewBase returns an Opener rooted at the given base URL.
func NewBase(client *Client, url string) *Base {
	return &Base{client: client, url: strings.TrimRight(url, "/")}
}

// Source returns a URLSource for the named file under the base URL.
func (b *Base) Source(file string) datasource.Source {
	return NewURLSource(b.client, b.url+"/"+file)
}
