// Package prompt renders style- and duration-parameterized instructions for
// the completion provider, including the JSON Schema of the expected response.
package prompt
