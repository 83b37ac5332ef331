package apiclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
)

// Multipart is an encoded multipart/form-data body. It is sent unchanged.
type Multipart struct {
	ContentType string
	Body        []byte
}

// Form collects fields and files and encodes them as multipart content.
type Form struct {
	fields []formField
	files  []formFile
}

type formField struct {
	name, value string
}

type formFile struct {
	field, filename string
	content         io.Reader
}

// Set appends a text field.
func (f *Form) Set(name, value string) {
	f.fields = append(f.fields, formField{name, value})
}

// File appends a file part.
func (f *Form) File(field, filename string, content io.Reader) {
	f.files = append(f.files, formFile{field, filename, content})
}

// Encode writes the collected parts.
func (f *Form) Encode() (*Multipart, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, fld := range f.fields {
		if err := w.WriteField(fld.name, fld.value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", fld.name, err)
		}
	}
	for _, file := range f.files {
		part, err := w.CreateFormFile(file.field, file.filename)
		if err != nil {
			return nil, fmt.Errorf("create file part %s: %w", file.field, err)
		}
		if _, err := io.Copy(part, file.content); err != nil {
			return nil, fmt.Errorf("copy file part %s: %w", file.field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return &Multipart{ContentType: w.FormDataContentType(), Body: buf.Bytes()}, nil
}
