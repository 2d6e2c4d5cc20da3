// Package docs embeds the OpenAPI description of the HTTP API.
package docs

import _ "embed"

// Swagger is the OpenAPI document served at /docs/swagger.yml.
//
//go:embed swagger.yml
var Swagger []byte
