package imagepipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vincent-petithory/dataurl"
)

// StoragePrefix marks an image reference that points into object storage.
const StoragePrefix = "orders/"

type Kind int

const (
	KindUnknown Kind = iota
	KindInline
	KindURL
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindInline:
		return "inline"
	case KindURL:
		return "url"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Reference is a classified image reference. Key is set for storage references only.
type Reference struct {
	Kind Kind
	Raw  string
	Key  string
}

func ParseReference(ref string) Reference {
	switch {
	case strings.HasPrefix(ref, "data:image"):
		return Reference{Kind: KindInline, Raw: ref}
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return Reference{Kind: KindURL, Raw: ref}
	case strings.HasPrefix(ref, StoragePrefix) && len(ref) > len(StoragePrefix):
		return Reference{Kind: KindStorage, Raw: ref, Key: strings.TrimPrefix(ref, StoragePrefix)}
	default:
		return Reference{Kind: KindUnknown, Raw: ref}
	}
}

// StorageKey is the object key of the index-th photo of an order.
func StorageKey(userID, orderID string, index int) string {
	return fmt.Sprintf("%s/%s/%d.jpg", userID, orderID, index)
}

// OrderPrefix is the key prefix holding every photo of an order.
func OrderPrefix(userID, orderID string) string {
	return userID + "/" + orderID + "/"
}

func StorageReference(key string) string {
	return StoragePrefix + key
}

// DecodeInline returns the payload and media type of an inline data URL.
func DecodeInline(ref string) ([]byte, string, error) {
	if !strings.HasPrefix(ref, "data:image") {
		return nil, "", errors.New("not an inline image")
	}

	u, err := dataurl.DecodeString(ref)
	if err != nil {
		return nil, "", fmt.Errorf("decode inline image: %w", err)
	}

	return u.Data, u.MediaType.ContentType(), nil
}

// EncodeInline wraps image bytes into a data URL.
func EncodeInline(data []byte, contentType string) string {
	return dataurl.New(data, contentType).String()
}
