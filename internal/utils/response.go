package utils

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the shape of every API response. Success is derived from StatusCode when the
// envelope is serialized and Errors is never null.
type Envelope struct {
	StatusCode int
	Message    string
	Data       interface{}
	Errors     []string
}

type envelopeJSON struct {
	StatusCode int         `json:"statusCode"`
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
	Errors     []string    `json:"errors"`
}

// IsSuccess reports whether status is a 2xx code.
func IsSuccess(status int) bool {
	return status >= fiber.StatusOK && status < fiber.StatusMultipleChoices
}

// Success mirrors the serialized success flag.
func (e Envelope) Success() bool {
	return IsSuccess(e.StatusCode)
}

// MarshalJSON writes the wire form of the envelope.
func (e Envelope) MarshalJSON() ([]byte, error) {
	errs := e.Errors
	if errs == nil {
		errs = []string{}
	}
	return json.Marshal(envelopeJSON{
		StatusCode: e.StatusCode,
		Success:    e.Success(),
		Message:    e.Message,
		Data:       e.Data,
		Errors:     errs,
	})
}

// UnmarshalJSON reads the wire form. The success flag is ignored because it is derived.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw envelopeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.StatusCode = raw.StatusCode
	e.Message = raw.Message
	e.Data = raw.Data
	e.Errors = raw.Errors
	if e.Errors == nil {
		e.Errors = []string{}
	}
	return nil
}

// NewEnvelope builds an envelope with a defaulted message.
func NewEnvelope(status int, message string, data interface{}, errs ...string) Envelope {
	if status == 0 {
		status = fiber.StatusOK
	}
	if message == "" {
		if IsSuccess(status) {
			message = "success"
		} else {
			message = "error"
		}
	}
	if errs == nil {
		errs = []string{}
	}
	return Envelope{StatusCode: status, Message: message, Data: data, Errors: errs}
}

// OK builds a 200 envelope.
func OK(message string, data interface{}) Envelope {
	return NewEnvelope(fiber.StatusOK, message, data)
}

// Created builds a 201 envelope.
func Created(message string, data interface{}) Envelope {
	return NewEnvelope(fiber.StatusCreated, message, data)
}

// Send writes the envelope with an HTTP status mirroring its StatusCode.
func Send(c *fiber.Ctx, envelope Envelope) error {
	if envelope.StatusCode == 0 {
		envelope.StatusCode = fiber.StatusOK
	}
	return c.Status(envelope.StatusCode).JSON(envelope)
}

// Fail writes an error envelope.
func Fail(c *fiber.Ctx, status int, message string, errs []string) error {
	return Send(c, NewEnvelope(status, message, nil, errs...))
}
