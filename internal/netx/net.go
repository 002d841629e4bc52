// Package netx holds HTTP transfer helpers shared by the client.
package netx

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// MultipartBody streams src as a single file part of a multipart/form-data
// body. Nothing is buffered: the returned reader is fed through a pipe as
// the HTTP client consumes it. The second result is the Content-Type.
func MultipartBody(field, filename string, src io.Reader) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(field, filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	return pr, mw.FormDataContentType()
}

// CheckStatus turns a non-200 response into an error carrying the body.
func CheckStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("request failed: %s; body: %s", resp.Status, string(b))
}
