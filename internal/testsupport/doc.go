// Package testsupport provides fixtures shared by package tests: temp-dir
// configs, thread documents on disk and a scripted CompletionClient.
package testsupport
