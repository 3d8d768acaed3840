// Package assets maps logical reference image and video names to URLs the
// client can fetch.
package assets

import (
	"fmt"
	"net/url"

	"github.com/ashureev/assembly-coach/internal/domain"
)

// ImageRoute is where the server exposes the local image directory.
const ImageRoute = "/assets/images/"

// Resolver maps a logical asset name to a retrievable reference.
type Resolver interface {
	Image(name string) domain.Asset
	Video(name string) domain.Asset
}

// URLResolver joins names onto fixed base URLs.
type URLResolver struct {
	imageBase *url.URL
	videoBase *url.URL
}

// NewURLResolver creates a resolver. imageBase may be relative (for images
// served by this process); videoBase is usually the external video host.
func NewURLResolver(imageBase, videoBase string) (*URLResolver, error) {
	img, err := parseBase(imageBase)
	if err != nil {
		return nil, fmt.Errorf("image base: %w", err)
	}
	vid, err := parseBase(videoBase)
	if err != nil {
		return nil, fmt.Errorf("video base: %w", err)
	}
	return &URLResolver{imageBase: img, videoBase: vid}, nil
}

// Image resolves a reference image name.
func (r *URLResolver) Image(name string) domain.Asset {
	return domain.Asset{Name: name, URL: join(r.imageBase, name)}
}

// Video resolves a demonstration video name.
func (r *URLResolver) Video(name string) domain.Asset {
	return domain.Asset{Name: name, URL: join(r.videoBase, name)}
}

func parseBase(raw string) (*url.URL, error) {
	if raw == "" {
		raw = "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Path == "" || u.Path[len(u.Path)-1] != '/' {
		u.Path += "/"
	}
	return u, nil
}

func join(base *url.URL, name string) string {
	return base.ResolveReference(&url.URL{Path: name}).String()
}
