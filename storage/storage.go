package storage

import (
	"context"
	b64 "encoding/base64"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

const (
	jpegMimetype  = "image/jpeg"
	jpegDataUri   = "data:image/jpeg;base64,"
	fileExtension = ".jpg"
)

var (
	ErrUnsupportedFileFormat = fmt.Errorf("unsupported format. The only accepted format is %s", jpegMimetype)
)

// Storage keeps uploaded images and hands out download URLs for them.
type Storage interface {
	Store(ctx context.Context, b64image string, folder string) (string, error)
	Get(ctx context.Context, fileName string) (string, error)
	Delete(ctx context.Context, fileName string) error
}

// IsDataUri tells an upload apart from a reference to an already stored file.
func IsDataUri(s string) bool {
	return strings.HasPrefix(s, "data:")
}

func decode64EncodedPhoto(photo string) ([]byte, error) {
	if !strings.HasPrefix(photo, jpegDataUri) {
		return nil, ErrUnsupportedFileFormat
	}
	encoded := strings.TrimPrefix(photo, jpegDataUri)
	decoded, err := b64.StdEncoding.DecodeString(encoded)
	if err != nil {
		decoded, err = b64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}
	return decoded, nil
}

func objectName(folder, id string) string {
	fileName := id + fileExtension
	if folder != "" {
		fileName = strings.TrimSuffix(folder, "/") + "/" + fileName
	}
	return fileName
}
