package api

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"

	"github.com/TomascpMarques/to-orderly/internal/schema"
)

// jsonSerializer is an echo.JSONSerializer backed by goccy/go-json.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

// Deserialize decodes the whole request body into i. Read errors, such as
// the body limit's 413, pass through unchanged; anything that is not a single
// JSON value of the right shape is schema.ErrMalformedInput.
func (jsonSerializer) Deserialize(c echo.Context, i any) error {
	data, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, i); err != nil {
		return fmt.Errorf("api: request body: %w: %v", schema.ErrMalformedInput, err)
	}
	return nil
}
