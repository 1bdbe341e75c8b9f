// Package imagefetch downloads stock listing photos from an external
// image host.
package imagefetch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
)

const userAgent = "safe-estate/1.0"

// MaxSize is the largest image accepted from the remote host.
const MaxSize = 10 << 20

// UniquePool is the set of stock photos handed out one per listing.
var UniquePool = []string{
	"https://images.unsplash.com/photo-1545324418-cc1a3fa10c00?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1502672260266-1c1ef2d93688?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1560448204-e02f11c3d0e2?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1570129477492-45c003edd2be?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1582268611958-ebfd161ef9cf?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1600585154340-be6161a56a0c?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1486406146926-c627a92ad1ab?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1560472354-b33ff0c44a43?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1497366216548-37526070297c?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1500382017468-9049fed747ef?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1500534314209-a25ddb2bd429?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1506905925346-21bda4d32df4?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1522708323590-d24dbb6b0267?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1564013799919-ab600027ffc6?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1481026469463-66327c86e544?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1442544213729-6a15f1611937?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1449824913935-59a10b8d2000?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1518780664697-55e3ad937233?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1571896349842-33c89424de2d?w=800&h=600&fit=crop",
	"https://images.unsplash.com/photo-1572120360610-d971b9d7767c?w=800&h=600&fit=crop",
}

// Placeholder is the stock photo given to listings without images.
const Placeholder = "https://images.unsplash.com/photo-1560518883-ce09059eeffa?w=800&h=600&fit=crop"

// Image is a downloaded picture.
type Image struct {
	Data []byte
	Ext  string // detected extension including the dot, e.g. ".jpg"
}

// Fetcher downloads images by URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Image, error)
}

// Client fetches images over HTTP. Requests are not retried.
type Client struct {
	http *resty.Client
}

// NewClient creates a client whose requests time out after timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent),
	}
}

// Fetch downloads url and checks that the response is an image.
func (c *Client) Fetch(ctx context.Context, url string) (*Image, error) {
	resp, err := c.http.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("downloading %s: unexpected status %d", url, resp.StatusCode())
	}

	ct := resp.Header().Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("downloading %s: unexpected content type %q", url, ct)
	}

	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("downloading %s: empty body", url)
	}
	if len(body) > MaxSize {
		return nil, fmt.Errorf("downloading %s: image exceeds %d bytes", url, MaxSize)
	}

	detected := mimetype.Detect(body)
	if !strings.HasPrefix(detected.String(), "image/") {
		return nil, fmt.Errorf("downloading %s: content is %s, not an image", url, detected.String())
	}
	return &Image{Data: body, Ext: detected.Extension()}, nil
}
