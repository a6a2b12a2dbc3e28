package dto

import (
	"encoding/json"
	"strings"
)

// Envelope is the response wrapper shared by the REST API and socket acks.
type Envelope struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	ErrorSources []ErrorSource   `json:"errorSources,omitempty"`
	Meta         *Meta           `json:"meta,omitempty"`
}

// ErrorSource points at the request field a validation error refers to.
type ErrorSource struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type Meta struct {
	Page      int `json:"page"`
	Limit     int `json:"limit"`
	Total     int `json:"total"`
	TotalPage int `json:"totalPage"`
}

// HasData reports whether the payload carries a non-null data field.
func (e Envelope) HasData() bool {
	trimmed := strings.TrimSpace(string(e.Data))
	return trimmed != "" && trimmed != "null"
}

// Decode unmarshals Data into out. Missing data leaves out untouched.
func (e Envelope) Decode(out any) error {
	if !e.HasData() || out == nil {
		return nil
	}
	return json.Unmarshal(e.Data, out)
}

// Detail joins the server message with its field errors for display.
func (e Envelope) Detail() string {
	parts := make([]string, 0, len(e.ErrorSources)+1)
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	for _, src := range e.ErrorSources {
		if src.Message == "" || src.Message == e.Message {
			continue
		}
		if src.Path != "" {
			parts = append(parts, src.Path+": "+src.Message)
			continue
		}
		parts = append(parts, src.Message)
	}
	return strings.Join(parts, "; ")
}
