// Package thread models a captured social-media discussion (one original post
// plus its replies) and decodes the JSON files written by capture tools.
package thread
