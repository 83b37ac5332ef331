package model

import (
	"encoding/json"
	"errors"
)

// ErrMissingData is returned when a response envelope has no data field.
var ErrMissingData = errors.New("response has no data field")

// ListEnvelope is the backend's list response: {data: [...], total}.
type ListEnvelope[T any] struct {
	Data    []T    `json:"data"`
	Total   *int   `json:"total,omitempty"`
	Message string `json:"message,omitempty"`
}

func (e *ListEnvelope[T]) UnmarshalJSON(b []byte) error {
	var raw struct {
		Data    json.RawMessage `json:"data"`
		Total   *int            `json:"total"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return ErrMissingData
	}
	var data []T
	if err := json.Unmarshal(raw.Data, &data); err != nil {
		return err
	}
	e.Data, e.Total, e.Message = data, raw.Total, raw.Message
	return nil
}

// Count returns the server-reported total or the list length when omitted.
func (e ListEnvelope[T]) Count() int {
	if e.Total != nil {
		return *e.Total
	}
	return len(e.Data)
}

// ItemEnvelope is the backend's single record response: {data: record}.
type ItemEnvelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

func (e *ItemEnvelope[T]) UnmarshalJSON(b []byte) error {
	var raw struct {
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.Data) == 0 || string(raw.Data) == "null" {
		return ErrMissingData
	}
	var data T
	if err := json.Unmarshal(raw.Data, &data); err != nil {
		return err
	}
	e.Data, e.Message = data, raw.Message
	return nil
}

// MessageEnvelope captures the message of mutation responses and errors.
type MessageEnvelope struct {
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
