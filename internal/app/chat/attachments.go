package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// InspectFile stats path and sniffs its MIME type from content.
func InspectFile(path string) (LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return LocalFile{}, fmt.Errorf("chat: inspect attachment: %w", err)
	}
	if info.IsDir() {
		return LocalFile{}, fmt.Errorf("chat: inspect attachment: %s is a directory", path)
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return LocalFile{}, fmt.Errorf("chat: detect attachment type: %w", err)
	}
	return LocalFile{
		Path: path,
		Name: filepath.Base(path),
		MIME: mt.String(),
		Size: info.Size(),
	}, nil
}

// IsImage reports whether a MIME type is an image type.
func IsImage(mime string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mime)), "image/")
}

// AttachmentUploader validates a picked file and stores it through the
// configured ImageStore.
type AttachmentUploader struct {
	Store    ImageStore
	Tokens   TokenSource
	Notifier Notifier
	Logger   *slog.Logger
}

// Upload returns the public URL of the stored image. Non-image files are
// rejected before any network call.
func (u *AttachmentUploader) Upload(ctx context.Context, file LocalFile) (string, error) {
	if !IsImage(file.MIME) {
		notify(u.Notifier, LevelError, titleNotImage, detailNotImage)
		return "", ErrNotImage
	}
	if u.Tokens == nil {
		notify(u.Notifier, LevelError, titleLoginRequired, detailLoginRequired)
		return "", ErrNotAuthenticated
	}
	token, err := u.Tokens.AccessToken(ctx)
	if err != nil || strings.TrimSpace(token) == "" {
		notify(u.Notifier, LevelError, titleLoginRequired, detailLoginRequired)
		if err != nil && !errors.Is(err, ErrNotAuthenticated) {
			return "", fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
		}
		return "", ErrNotAuthenticated
	}
	if u.Store == nil {
		notify(u.Notifier, LevelError, titleUploadFailed, detailGenericFailure)
		return "", errors.New("chat: image store is not configured")
	}
	url, err := u.Store.UploadImage(ctx, token, file)
	if err != nil {
		if u.Logger != nil {
			u.Logger.Warn("attachment upload failed", "file", file.Name, "error", err)
		}
		notify(u.Notifier, LevelError, titleUploadFailed, describe(err))
		return "", err
	}
	if strings.TrimSpace(url) == "" {
		notify(u.Notifier, LevelError, titleUploadFailed, detailGenericFailure)
		return "", errors.New("chat: upload returned no url")
	}
	if u.Logger != nil {
		u.Logger.Info("attachment uploaded", "file", file.Name, "size", file.Size, "url", url)
	}
	return url, nil
}
