package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// Location is a parsed input resource.
type Location struct {
	// Scheme is "" for plain paths, otherwise "file", "gs" or "s3".
	Scheme string
	// Bucket is the bucket of gs:// and s3:// locations.
	Bucket string
	// Object is the object key, or the file path for local locations.
	Object string
}

// IsLocal reports whether the location refers to the local file system.
func (l Location) IsLocal() bool {
	return l.Scheme == "" || l.Scheme == "file"
}

// StorageType returns the storage type that serves the location's scheme.
func (l Location) StorageType() string {
	switch l.Scheme {
	case "gs":
		return "gcs"
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

// String implements fmt.Stringer.
func (l Location) String() string {
	if l.IsLocal() {
		return l.Object
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Object
}

// ParseLocation parses a local path or a file://, gs:// or s3:// URI.
func ParseLocation(resource string) (Location, error) {
	if resource == "" {
		return Location{}, fmt.Errorf("empty resource location")
	}
	if !strings.Contains(resource, "://") {
		return Location{Object: resource}, nil
	}

	u, err := url.Parse(resource)
	if err != nil {
		return Location{}, fmt.Errorf("invalid resource location '%s': %w", resource, err)
	}
	switch u.Scheme {
	case "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		return Location{Scheme: "file", Object: path}, nil
	case "gs", "s3":
		object := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || object == "" {
			return Location{}, fmt.Errorf("resource location '%s' must name a bucket and an object", resource)
		}
		return Location{Scheme: u.Scheme, Bucket: u.Host, Object: object}, nil
	default:
		return Location{}, fmt.Errorf("unsupported resource scheme '%s' in '%s'", u.Scheme, resource)
	}
}
