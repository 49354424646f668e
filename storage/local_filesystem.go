package storage

import (
	"context"
	"io/ioutil"
	"net/url"
	"os"
	"path/filepath"

	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/pkg/errors"
)

type LocalStorage struct {
	Config          *shared.AppConfig `inject:""`
	StringGenerator interface {
		GenerateUuid() string
	} `inject:""`
}

func (s *LocalStorage) Store(ctx context.Context, b64image string, folder string) (string, error) {
	if b64image == "" {
		return "", nil
	}
	decoded, err := decode64EncodedPhoto(b64image)
	if err != nil {
		return "", err
	}

	fileName := objectName(folder, s.StringGenerator.GenerateUuid())
	filePath := s.path(fileName)
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create folder")
	}
	if err := ioutil.WriteFile(filePath, decoded, 0644); err != nil {
		return "", errors.Wrap(err, "failed to write image")
	}

	return fileName, nil
}

// Get returns a file:// URI of the stored image.
func (s *LocalStorage) Get(ctx context.Context, fileName string) (string, error) {
	if fileName == "" {
		return "", nil
	}
	filePath, err := filepath.Abs(s.path(fileName))
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(filePath); err != nil {
		return "", errors.Wrapf(err, "image %s is not available", fileName)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(filePath)}).String(), nil
}

func (s *LocalStorage) Delete(ctx context.Context, fileName string) error {
	if fileName == "" {
		return nil
	}
	if err := os.Remove(s.path(fileName)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStorage) path(fileName string) string {
	return filepath.Join(s.Config.LocalStoragePath, filepath.FromSlash(filepath.Clean("/"+fileName)))
}
