package admin

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// messageSchema validates the POST /sessions/{id}/message body. An empty
// text field is rejected before anything reaches the transport.
const messageSchema = `{
	"type": "object",
	"properties": {
		"text": {
			"type": "string",
			"minLength": 1
		}
	},
	"required": ["text"],
	"additionalProperties": false
}`

func compileMessageSchema() (*gojsonschema.Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(messageSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile message schema: %w", err)
	}
	return schema, nil
}

// validateMessageBody validates a raw request body against the message
// schema and returns the first violation.
func validateMessageBody(schema *gojsonschema.Schema, body []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if !result.Valid() {
		for _, desc := range result.Errors() {
			return fmt.Errorf("invalid message body: %s", desc.String())
		}
	}
	return nil
}
