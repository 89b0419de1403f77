package httpclient

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// MultipartBody represents a multipart/form-data request body. Pass it as
// the Body field of a Request; the client encodes it and sets the boundary
// Content-Type automatically.
type MultipartBody struct {
	// Fields are simple key-value form fields.
	Fields map[string]string
	// Files are file upload fields.
	Files []FileField
}

// FileField represents a file to upload in a multipart request.
type FileField struct {
	// FieldName is the form field name (e.g., "file").
	FieldName string
	// FileName is the file name sent to the server.
	FileName string
	// ContentType is the MIME type (e.g., "audio/flac"). If empty, the
	// standard application/octet-stream default applies.
	ContentType string
	// Data is the file content. Used if Reader is nil.
	Data []byte
	// Reader streams the file content, for large uploads.
	Reader io.Reader
}

// AudioFile builds a FileField for the "file" form field used by the worker
// enqueue endpoint, inferring the MIME type from the file extension.
func AudioFile(fileName string, data []byte) FileField {
	ct := "application/octet-stream"
	switch {
	case strings.HasSuffix(fileName, ".flac"):
		ct = "audio/flac"
	case strings.HasSuffix(fileName, ".wav"):
		ct = "audio/wav"
	case strings.HasSuffix(fileName, ".mp3"):
		ct = "audio/mpeg"
	case strings.HasSuffix(fileName, ".ogg"), strings.HasSuffix(fileName, ".opus"):
		ct = "audio/ogg"
	}
	return FileField{FieldName: "file", FileName: fileName, ContentType: ct, Data: data}
}

// encode builds the multipart body and returns the reader and content-type.
func (m *MultipartBody) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	for _, f := range m.Files {
		part, err := m.createPart(w, f)
		if err != nil {
			return nil, "", err
		}

		src := f.Reader
		if src == nil {
			src = bytes.NewReader(f.Data)
		}
		if _, err := io.Copy(part, src); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

func (m *MultipartBody) createPart(w *multipart.Writer, f FileField) (io.Writer, error) {
	if f.ContentType == "" {
		return w.CreateFormFile(f.FieldName, f.FileName)
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		`form-data; name="`+escapeQuotes(f.FieldName)+`"; filename="`+escapeQuotes(f.FileName)+`"`)
	header.Set("Content-Type", f.ContentType)
	return w.CreatePart(header)
}

// escapeQuotes replaces special characters in header values.
func escapeQuotes(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return r.Replace(s)
}
