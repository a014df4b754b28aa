package wb

import (
	"context"
	"net/http"
	"net/url"
)

// envelope is the {"data", "error", "errorText"} wrapper several endpoint
// families put around their payload.
type envelope[T any] struct {
	Data             T      `json:"data"`
	Error            bool   `json:"error"`
	ErrorText        string `json:"errorText"`
	AdditionalErrors any    `json:"additionalErrors"`
}

func (e *envelope[T]) err(status int) error {
	if !e.Error {
		return nil
	}
	msg := e.ErrorText
	if msg == "" {
		msg = "request reported an error"
	}
	return &APIError{
		Kind:       KindGeneric,
		StatusCode: status,
		Message:    msg,
		Body:       map[string]any{"errorText": e.ErrorText, "additionalErrors": e.AdditionalErrors},
	}
}

func (c *Client) get(ctx context.Context, cat Category, path string, query url.Values, out any) error {
	return c.do(ctx, Request{Method: http.MethodGet, Path: path, Category: cat, Query: query}, out)
}

func (c *Client) post(ctx context.Context, cat Category, path string, body, out any) error {
	return c.do(ctx, Request{Method: http.MethodPost, Path: path, Category: cat, Body: body}, out)
}

func (c *Client) patch(ctx context.Context, cat Category, path string, body, out any) error {
	return c.do(ctx, Request{Method: http.MethodPatch, Path: path, Category: cat, Body: body}, out)
}

func (c *Client) del(ctx context.Context, cat Category, path string, query url.Values) error {
	return c.do(ctx, Request{Method: http.MethodDelete, Path: path, Category: cat, Query: query}, nil)
}

func (c *Client) do(ctx context.Context, req Request, out any) error {
	res, err := c.exec.Execute(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return res.Decode(out)
}

// getData decodes an enveloped GET response and returns its data field.
func getData[T any](ctx context.Context, c *Client, cat Category, path string, query url.Values) (T, error) {
	return doData[T](ctx, c, Request{Method: http.MethodGet, Path: path, Category: cat, Query: query})
}

// postData decodes an enveloped POST response and returns its data field.
func postData[T any](ctx context.Context, c *Client, cat Category, path string, body any) (T, error) {
	return doData[T](ctx, c, Request{Method: http.MethodPost, Path: path, Category: cat, Body: body})
}

func doData[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T
	res, err := c.exec.Execute(ctx, req)
	if err != nil {
		return zero, err
	}
	var env envelope[T]
	if err := res.Decode(&env); err != nil {
		return zero, err
	}
	if err := env.err(res.StatusCode); err != nil {
		return zero, err
	}
	return env.Data, nil
}
