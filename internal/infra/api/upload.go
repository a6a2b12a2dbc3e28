package api

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"

	chatapp "recyclemart/internal/app/chat"
	"recyclemart/internal/app/dto"
)

// UploadImage posts a chat image as multipart form data and returns its URL.
func (c *Client) UploadImage(ctx context.Context, token string, file chatapp.LocalFile) (string, error) {
	if err := requireToken(token); err != nil {
		return "", err
	}
	f, err := os.Open(file.Path)
	if err != nil {
		return "", fmt.Errorf("api: open %s: %w", file.Name, err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeImagePart(form, file, f))
	}()

	var res dto.UploadResult
	_, err = c.send(ctx, request{method: http.MethodPost, path: c.uploadPath, token: token}, pr, form.FormDataContentType(), &res)
	pr.Close()
	if err != nil {
		return "", err
	}
	if res.URL == "" {
		return "", &Error{Status: http.StatusOK, Message: "upload returned no url"}
	}
	return res.URL, nil
}

func writeImagePart(form *multipart.Writer, file chatapp.LocalFile, r io.Reader) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, file.Name))
	header.Set("Content-Type", file.MIME)
	part, err := form.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return form.Close()
}

var _ chatapp.ImageStore = (*Client)(nil)
